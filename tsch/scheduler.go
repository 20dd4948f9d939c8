// Copyright (c) 2020-2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package tsch

import (
	"github.com/thvdveld/dot15d4/clock"
	"github.com/thvdveld/dot15d4/frame"
	"github.com/thvdveld/dot15d4/logger"
	"github.com/thvdveld/dot15d4/macconf"
	"github.com/thvdveld/dot15d4/octet"
	"github.com/thvdveld/dot15d4/radio"
)

// Action describes what a slot actually did, for logging and tests.
type Action uint8

const (
	ActionIdle Action = iota
	ActionTX
	ActionTXSkippedEmpty
	ActionTXAbortedCCA
	ActionTXFailed
	ActionRX
	ActionRXTimeout
)

// SlotOutcome reports what happened in one call to Scheduler.RunSlot,
// the granularity the §8 quantified invariants are checked against.
type SlotOutcome struct {
	ASN     ASN
	Action  Action
	Channel uint8
	Acked   bool
}

// FrameSource supplies the scheduler with a frame queued for
// transmission to neighbor, the MAC driver's per-destination FIFO
// (§4.8). ok is false when nothing is queued for neighbor.
type FrameSource interface {
	Pending(neighbor frame.Address) (payload []byte, seq uint8, ackRequest bool, ok bool)
}

// FrameSink receives a frame successfully received on an RX link,
// the MAC driver's recv() path (§4.8).
type FrameSink interface {
	Deliver(f *frame.Frame, meta radio.RxMetadata)
}

// Scheduler runs the TSCH slot loop (§4.7) against one radio and
// clock. It is driven one slot at a time by RunSlot; the caller (the
// mac package) is responsible for calling RunSlot at the right wall-
// clock moments.
type Scheduler struct {
	radio radio.Capability
	clk   clock.Sleeper
	conf  macconf.Config

	Template  Timeslot
	Slotframe Slotframe
	Hopping   HoppingSequence

	ASN       ASN
	SlotStart clock.Instant

	Source FrameSource
	Sink   FrameSink

	lastCorrection int64
}

// New returns a Scheduler with the given static schedule, starting at
// asn/slotStart.
func New(r radio.Capability, clk clock.Sleeper, conf macconf.Config, template Timeslot, sf Slotframe, hopping HoppingSequence, asn ASN, slotStart clock.Instant) *Scheduler {
	return &Scheduler{
		radio: r, clk: clk, conf: conf,
		Template: template, Slotframe: sf, Hopping: hopping,
		ASN: asn, SlotStart: slotStart,
	}
}

// RunSlot executes exactly one slot of the algorithm in §4.7 and
// advances ASN by exactly one, regardless of outcome — the invariant
// §8 requires ("ASN_after_n_slots - ASN_before = n exactly").
func (s *Scheduler) RunSlot() SlotOutcome {
	outcome := SlotOutcome{ASN: s.ASN}
	defer s.advance()

	slotOffset := uint16(uint64(s.ASN) % uint64(s.Slotframe.Size))
	link, ok := s.Slotframe.LinkAt(slotOffset)
	if !ok {
		return outcome
	}

	channel := s.Hopping.Channel(s.ASN, link.ChannelOffset)
	outcome.Channel = channel
	if err := s.radio.SetChannel(channel); err != nil {
		logger.Warnf("tsch: set channel failed at ASN %d: %v", s.ASN, err)
		return outcome
	}

	// Tie-break for a link carrying both TX and RX options: the radio
	// is half-duplex, so TX takes priority and RX is skipped whenever
	// a frame was actually sent this slot.
	if link.Options&frame.LinkOptionTX != 0 {
		if txOutcome, transmitted := s.runTX(link); transmitted {
			outcome.Action = txOutcome.Action
			outcome.Acked = txOutcome.Acked
			return outcome
		}
	}
	if link.Options&frame.LinkOptionRX != 0 {
		return s.runRX(link, outcome)
	}
	return outcome
}

func (s *Scheduler) runTX(link Link) (SlotOutcome, bool) {
	payload, seq, ackRequest, ok := s.Source.Pending(link.Neighbor)
	if !ok {
		return SlotOutcome{Action: ActionTXSkippedEmpty}, false
	}

	s.clk.SleepUntil(clock.Add(s.SlotStart, uint64(s.Template.CCAOffset)))
	if link.Options&frame.LinkOptionShared != 0 {
		result, err := s.radio.CCA()
		if err != nil || result == radio.Busy {
			return SlotOutcome{Action: ActionTXAbortedCCA}, true
		}
	}

	s.clk.SleepUntil(clock.Add(s.SlotStart, uint64(s.Template.TxOffset)))
	at := clock.Add(s.SlotStart, uint64(s.Template.TxOffset))
	if _, err := s.radio.Transmit(payload, &at); err != nil {
		logger.Warnf("tsch: transmit failed at ASN %d: %v", s.ASN, err)
		return SlotOutcome{Action: ActionTXFailed}, true
	}

	outcome := SlotOutcome{Action: ActionTX}
	if !ackRequest {
		return outcome, true
	}

	s.radio.EnableAckFiltering(seq)
	defer s.radio.DisableAckFiltering()

	buf := make([]byte, radio.MaxPSDU)
	expected := clock.Add(s.SlotStart, uint64(s.Template.RxAckDelay))
	until := clock.Add(expected, uint64(s.Template.AckWait))
	n, meta, got, err := s.radio.Receive(buf, until)
	if err != nil || !got {
		return outcome, true
	}
	ack, err := frame.ParseWithoutFCS(buf[:n])
	if err != nil || ack.Control.FrameType() != frame.TypeAck || !ack.HasSeq || ack.Seq != seq {
		return outcome, true
	}

	outcome.Acked = true
	if link.Options&frame.LinkOptionTimekeeping != 0 {
		s.applyCorrection(meta.Timestamp, expected)
	}
	return outcome, true
}

func (s *Scheduler) runRX(link Link, outcome SlotOutcome) SlotOutcome {
	s.clk.SleepUntil(clock.Add(s.SlotStart, uint64(s.Template.RxOffset)))
	expected := clock.Add(s.SlotStart, uint64(s.Template.RxOffset))
	until := clock.Add(expected, uint64(s.Template.RxWait))

	buf := make([]byte, radio.MaxPSDU)
	n, meta, got, err := s.radio.Receive(buf, until)
	if err != nil || !got {
		outcome.Action = ActionRXTimeout
		return outcome
	}
	outcome.Action = ActionRX

	f, err := frame.ParseWithoutFCS(buf[:n])
	if err != nil {
		logger.Debugf("tsch: dropping malformed frame at ASN %d: %v", s.ASN, err)
		return outcome
	}

	if link.Options&frame.LinkOptionTimekeeping != 0 {
		s.applyCorrection(meta.Timestamp, expected)
	}

	if s.Sink != nil {
		s.Sink.Deliver(f, meta)
	}

	if f.Control.AckRequest() && f.HasSeq {
		ack := buildEnhancedAck(f.Seq, -s.lastCorrection)
		at := clock.Add(s.SlotStart, uint64(s.Template.TxAckDelay))
		if _, err := s.radio.Transmit(ack, &at); err != nil {
			logger.Warnf("tsch: enhanced ack transmit failed at ASN %d: %v", s.ASN, err)
		}
	}
	return outcome
}

// applyCorrection computes the time-source correction (measured SFD
// minus expected SFD), bounds it to ±conf.MaxClockSlew, applies it to
// the local clock if the clock supports slewing, and records it so
// the next outgoing Enhanced ACK can embed its negation (§4.7
// "time-source tracking").
func (s *Scheduler) applyCorrection(measured, expected clock.Instant) {
	delta := int64(measured) - int64(expected)
	bound := int64(s.conf.MaxClockSlew)
	if delta > bound {
		delta = bound
	} else if delta < -bound {
		delta = -bound
	}
	s.lastCorrection = delta

	if adj, ok := s.clk.(clock.Adjustable); ok {
		adj.AdjustBy(delta)
	}
}

// LastCorrection returns the most recently computed, bounded
// time-source correction in microseconds.
func (s *Scheduler) LastCorrection() int64 {
	return s.lastCorrection
}

func (s *Scheduler) advance() {
	s.ASN++
	s.SlotStart = clock.Add(s.SlotStart, uint64(s.Template.TimeslotLength))
}

// buildEnhancedAck assembles a minimal Enhanced ACK carrying a Time
// Correction IE. The Time Correction IE's wire encoding (a signed
// 12-bit correction packed with a 1-bit "nack" flag into one Header
// IE, IEEE 802.15.4-2020 §7.4.2.7) is out of this module's codec
// scope (frame only models the TSCH MLME sub-IEs this module needs),
// so the correction is carried as a raw Header IE payload instead of
// a standards-exact Time Correction IE.
func buildEnhancedAck(seq uint8, correctionUS int64) []byte {
	correction := int16(correctionUS)
	content := []byte{byte(correction), byte(correction >> 8)}

	b := &frame.Builder{
		Control: frame.NewControl(frame.TypeAck, false, false, false, false, false, true,
			frame.AddrModeNone, frame.AddrModeNone, frame.Version2020),
		Seq:    seq,
		HasSeq: true,
		HeaderIEs: []frame.HeaderIE{
			{ID: timeCorrectionHeaderIEID, Content: content},
		},
	}
	buf := make([]byte, 32)
	w := octet.NewWriter(buf)
	if err := b.Emit(w); err != nil {
		logger.Warnf("tsch: failed to build enhanced ack: %v", err)
		return nil
	}
	return w.Bytes()
}

// timeCorrectionHeaderIEID is a Header IE ID in the vendor-specific
// range, used to carry the correction payload built by
// buildEnhancedAck.
const timeCorrectionHeaderIEID = 0x3f
