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

// Package mac composes the csma and tsch engines behind one send/recv
// surface (§4.8): a single MAC driver per radio, dispatching each
// outgoing frame to CSMA/CA or to the TSCH slot scheduler depending on
// whether a slotframe has been configured, queuing per-destination and
// reporting a uniform Result for every attempt.
package mac

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/thvdveld/dot15d4/clock"
	"github.com/thvdveld/dot15d4/csma"
	"github.com/thvdveld/dot15d4/frame"
	"github.com/thvdveld/dot15d4/logger"
	"github.com/thvdveld/dot15d4/macconf"
	"github.com/thvdveld/dot15d4/octet"
	"github.com/thvdveld/dot15d4/prng"
	"github.com/thvdveld/dot15d4/radio"
	"github.com/thvdveld/dot15d4/tsch"
)

// defaultQueueCapacity bounds how many frames may be queued per
// destination before Send reports Dropped instead of blocking forever
// behind a stalled neighbor.
const defaultQueueCapacity = 8

// ErrRadio is the sentinel wrapped into every error this package
// returns that originated from the underlying radio.Capability, so a
// caller can recognize a radio-layer failure with errors.Is regardless
// of the specific operation that produced it.
var ErrRadio = errors.New("mac: radio error")

func wrapRadioErr(err error) error {
	return errors.Wrap(ErrRadio, err.Error())
}

// Result is the outcome of one Send call, covering both the CSMA/CA
// and TSCH delivery paths with one vocabulary (§4.8).
type Result uint8

const (
	Success Result = iota
	NoAck
	ChannelAccessFailure
	Dropped
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NoAck:
		return "no-ack"
	case ChannelAccessFailure:
		return "channel-access-failure"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

type receivedFrame struct {
	frame *frame.Frame
	meta  radio.RxMetadata
}

// Driver is the MAC instance for one radio: it owns the radio
// exclusively, builds outgoing frames, and dispatches each Send to
// whichever engine the current configuration calls for.
type Driver struct {
	radio radio.Capability
	clk   clock.Sleeper
	conf  macconf.Config

	selfPAN  frame.PANID
	selfAddr frame.Address
	selfSeq  uint8

	csmaEngine *csma.Engine
	scheduler  *tsch.Scheduler
	alarms     *alarmQueue

	queues   *txQueues
	received chan receivedFrame

	// inFlightDest/inFlightFrame track the pendingFrame most recently
	// handed to the TSCH scheduler via Pending, so RunSlot can resolve
	// its Result once that slot's outcome is known.
	inFlightDest  frame.Address
	inFlightFrame *pendingFrame
}

// New returns a Driver for r running unslotted CSMA/CA only; call
// ConfigureTSCH to switch it to slotted (TSCH) operation.
func New(r radio.Capability, rng prng.Source, clk clock.Sleeper, conf macconf.Config, panID frame.PANID, selfAddr frame.Address) *Driver {
	return &Driver{
		radio:      r,
		clk:        clk,
		conf:       conf,
		selfPAN:    panID,
		selfAddr:   selfAddr,
		csmaEngine: csma.New(r, rng, clk, conf),
		alarms:     newAlarmQueue(),
		queues:     newTxQueues(defaultQueueCapacity),
		received:   make(chan receivedFrame, defaultQueueCapacity),
	}
}

// ConfigureTSCH switches the driver to slotted operation against sched,
// starting at asn/slotStart. Subsequent Send calls enqueue onto the
// scheduler's per-destination queues instead of driving CSMA/CA
// directly; the caller must pump slots forward with RunSlot or RunLoop.
func (d *Driver) ConfigureTSCH(sched tsch.Schedule, asn tsch.ASN, slotStart clock.Instant) {
	s := tsch.New(d.radio, d.clk, d.conf, sched.Template, sched.Slotframe, sched.Hopping, asn, slotStart)
	s.Source = d
	s.Sink = d
	d.scheduler = s
	d.alarms.Set("tsch-slot", slotStart)
}

// nextSeq returns the next outgoing sequence number, wrapping at 255
// the way an 8-bit MAC sequence counter does.
func (d *Driver) nextSeq() uint8 {
	seq := d.selfSeq
	d.selfSeq++
	return seq
}

// Send builds and delivers a data frame to dest, blocking until either
// a final Result is known or the destination's queue is full. In TSCH
// mode this may take several slots: the frame is retried on each
// subsequent occurrence of dest's scheduled link until it is
// acknowledged, fails CCA enough times, or exhausts the frame retry
// budget in conf.
func (d *Driver) Send(dest frame.Address, payload []byte, ackRequest bool) (Result, error) {
	seq := d.nextSeq()

	if d.scheduler == nil {
		frameBytes, err := d.buildDataFrame(dest, seq, ackRequest, payload)
		if err != nil {
			return Dropped, err
		}
		result, err := d.csmaEngine.Send(frameBytes, seq, ackRequest)
		if err != nil {
			return Dropped, wrapRadioErr(err)
		}
		return fromCSMAResult(result), nil
	}

	frameBytes, err := d.buildDataFrame(dest, seq, ackRequest, payload)
	if err != nil {
		return Dropped, err
	}
	resultCh := make(chan Result, 1)
	if err := d.queues.push(dest, pendingFrame{payload: frameBytes, seq: seq, ackRequest: ackRequest, resultCh: resultCh}); err != nil {
		return Dropped, err
	}
	return <-resultCh, nil
}

func (d *Driver) buildDataFrame(dest frame.Address, seq uint8, ackRequest bool, payload []byte) ([]byte, error) {
	b := &frame.Builder{
		Control: frame.NewControl(frame.TypeData, false, false, ackRequest, true, false, false,
			dest.Mode, d.selfAddr.Mode, frame.Version2020),
		Seq:    seq,
		HasSeq: true,
		Addr: frame.Addressing{
			DstPAN: d.selfPAN,
			Dst:    dest,
			SrcPAN: d.selfPAN,
			Src:    d.selfAddr,
		},
		Payload: payload,
	}
	buf := make([]byte, radio.MaxPSDU)
	w := octet.NewWriter(buf)
	if err := b.Emit(w); err != nil {
		return nil, errors.Wrap(err, "mac: building outgoing frame")
	}
	return w.Bytes(), nil
}

// Pending implements tsch.FrameSource: it is called by the TSCH
// scheduler once per slot that has a TX link, and remembers which
// pendingFrame it handed out so RunSlot can resolve that frame's
// Result once the slot completes.
func (d *Driver) Pending(neighbor frame.Address) ([]byte, uint8, bool, bool) {
	f, ok := d.queues.pop(neighbor)
	if !ok {
		return nil, 0, false, false
	}
	d.inFlightDest = neighbor
	d.inFlightFrame = &f
	return f.payload, f.seq, f.ackRequest, true
}

// Deliver implements tsch.FrameSink: frames received on a scheduled RX
// link are buffered for Recv, dropped with a warning if the receive
// buffer is already full (a slow consumer, not a MAC-layer failure).
func (d *Driver) Deliver(f *frame.Frame, meta radio.RxMetadata) {
	select {
	case d.received <- receivedFrame{frame: f, meta: meta}:
	default:
		logger.Warnf("mac: dropping received frame, receive buffer full")
	}
}

// RunSlot advances the TSCH scheduler by exactly one slot and resolves
// the Result of whatever frame that slot attempted, if any. It panics
// if the driver was not configured for TSCH via ConfigureTSCH.
func (d *Driver) RunSlot() tsch.SlotOutcome {
	d.inFlightFrame = nil
	outcome := d.scheduler.RunSlot()
	d.alarms.Set("tsch-slot", d.scheduler.SlotStart)

	f := d.inFlightFrame
	if f == nil {
		return outcome
	}
	dest := d.inFlightDest

	switch {
	case outcome.Action == tsch.ActionTXAbortedCCA,
		outcome.Action == tsch.ActionTXFailed,
		outcome.Action == tsch.ActionTX && f.ackRequest && !outcome.Acked:
		f.attempts++
		if f.attempts > d.conf.MaxFrameRetries {
			f.resultCh <- NoAck
		} else {
			d.queues.requeueFront(dest, *f)
		}
	case outcome.Action == tsch.ActionTX:
		f.resultCh <- Success
	}
	return outcome
}

// RunLoop drives RunSlot forward using clk, one slot at a time, until
// the next slot alarm lies after until; a slot whose alarm falls
// exactly at until is still run. There is only
// ever one alarm in play today (the next slot boundary) since Send
// blocks the caller's own goroutine rather than registering a separate
// wake-up, but the heap-based alarmQueue is kept as the extension
// point for a future alarm (e.g. an ACK-wait deadline) that needs to
// preempt the slot loop.
func (d *Driver) RunLoop(until clock.Instant) {
	if d.scheduler == nil {
		logger.Panicf("mac: RunLoop requires ConfigureTSCH")
	}
	for {
		id, ts, ok := d.alarms.Next()
		if !ok || clock.Before(until, ts) {
			return
		}
		d.alarms.logState()
		d.clk.SleepUntil(ts)
		if id == "tsch-slot" {
			d.RunSlot()
		}
	}
}

// Recv returns the next received frame, if any is immediately
// available. In TSCH mode this drains frames delivered off the
// scheduled RX link; in CSMA mode it opens a short passive receive
// window on the radio directly, since there is no scheduler to
// deliver through.
func (d *Driver) Recv() (*frame.Frame, radio.RxMetadata, bool) {
	if d.scheduler != nil {
		select {
		case rf := <-d.received:
			return rf.frame, rf.meta, true
		default:
			return nil, radio.RxMetadata{}, false
		}
	}

	buf := make([]byte, radio.MaxPSDU)
	until := clock.Add(d.clk.Now(), uint64(d.conf.SIFS))
	n, meta, ok, err := d.radio.Receive(buf, until)
	if err != nil || !ok {
		return nil, radio.RxMetadata{}, false
	}
	f, err := frame.ParseWithoutFCS(buf[:n])
	if err != nil {
		logger.Debugf("mac: dropping malformed received frame: %v", err)
		return nil, radio.RxMetadata{}, false
	}
	return f, meta, true
}

// Close releases the radio resources the driver was using. It is
// best-effort: a failure returning the radio to the default channel
// does not stop it from also attempting (and reporting a failure from)
// a final CCA probe to confirm the channel is quiet, so both errors are
// aggregated via multierr instead of the first one masking the second.
func (d *Driver) Close() error {
	var err error
	d.radio.DisableAckFiltering()
	if setErr := d.radio.SetChannel(defaultChannel); setErr != nil {
		err = multierr.Append(err, wrapRadioErr(setErr))
	}
	if _, ccaErr := d.radio.CCA(); ccaErr != nil {
		err = multierr.Append(err, wrapRadioErr(ccaErr))
	}
	return err
}

// defaultChannel is the IEEE 802.15.4 channel the radio is parked on
// once the driver is closed.
const defaultChannel uint8 = 11

func fromCSMAResult(r csma.Result) Result {
	switch r {
	case csma.Success:
		return Success
	case csma.NoAck:
		return NoAck
	case csma.ChannelAccessFailure:
		return ChannelAccessFailure
	default:
		return Dropped
	}
}
