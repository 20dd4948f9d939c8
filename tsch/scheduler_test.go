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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thvdveld/dot15d4/clock"
	"github.com/thvdveld/dot15d4/frame"
	"github.com/thvdveld/dot15d4/macconf"
	"github.com/thvdveld/dot15d4/radio"
)

// fakeRadio records every SetChannel call and never has anything
// queued or received, so a link with no FrameSource attachment never
// transmits or receives.
type fakeRadio struct {
	channels []uint8

	rxFrame []byte
	rxMeta  radio.RxMetadata
	rxOK    bool

	txCount int
}

func (f *fakeRadio) SetChannel(n uint8) error {
	f.channels = append(f.channels, n)
	return nil
}
func (f *fakeRadio) CCA() (radio.CCAResult, error) { return radio.Clear, nil }
func (f *fakeRadio) Transmit(_ []byte, _ *clock.Instant) (clock.Instant, error) {
	f.txCount++
	return 0, nil
}
func (f *fakeRadio) Receive(into []byte, _ clock.Instant) (int, radio.RxMetadata, bool, error) {
	if !f.rxOK {
		return 0, radio.RxMetadata{}, false, nil
	}
	n := copy(into, f.rxFrame)
	return n, f.rxMeta, true, nil
}
func (f *fakeRadio) EnableAckFiltering(uint8) {}
func (f *fakeRadio) DisableAckFiltering()     {}

type noSource struct{}

func (noSource) Pending(frame.Address) ([]byte, uint8, bool, bool) { return nil, 0, false, false }

type queuedSource struct {
	payload []byte
	seq     uint8
	ack     bool
	sent    bool
}

func (q *queuedSource) Pending(frame.Address) ([]byte, uint8, bool, bool) {
	if q.sent {
		return nil, 0, false, false
	}
	q.sent = true
	return q.payload, q.seq, q.ack, true
}

// TestRunSlot_ChannelHoppingScenario reproduces the concrete scenario:
// slotframe size=4, one TX link at slot_offset=1/channel_offset=2,
// hopping [15,20,25,26], starting ASN=0. Channel at slot 1 should be
// hopping[(1+2)%4]=26; slots 0, 2, 3 are idle (no SetChannel call).
func TestRunSlot_ChannelHoppingScenario(t *testing.T) {
	r := &fakeRadio{}
	sf := Slotframe{Size: 4, Links: []Link{
		{Timeslot: 1, ChannelOffset: 2, Options: frame.LinkOptionTX, Neighbor: frame.ShortAddress(1)},
	}}
	hopping := HoppingSequence{15, 20, 25, 26}
	template := Timeslot{TimeslotLength: 10000}

	s := New(r, clock.NewSimClock(0), macconf.Default(), template, sf, hopping, 0, 0)
	s.Source = &queuedSource{payload: []byte{0x01}, seq: 1, ack: false}

	outcomes := make([]SlotOutcome, 4)
	for i := range outcomes {
		outcomes[i] = s.RunSlot()
	}

	assert.Equal(t, ActionIdle, outcomes[0].Action)
	assert.Equal(t, ActionTX, outcomes[1].Action)
	assert.Equal(t, uint8(26), outcomes[1].Channel)
	assert.Equal(t, ActionIdle, outcomes[2].Action)
	assert.Equal(t, ActionIdle, outcomes[3].Action)

	assert.Equal(t, []uint8{26}, r.channels)
	assert.Equal(t, ASN(4), s.ASN)
}

func TestRunSlot_AdvancesASNExactlyOnePerSlotRegardlessOfOutcome(t *testing.T) {
	r := &fakeRadio{}
	sf := Slotframe{Size: 1} // no links at all: every slot is idle
	s := New(r, clock.NewSimClock(0), macconf.Default(), Timeslot{TimeslotLength: 10000}, sf, HoppingSequence{1}, 100, 0)
	s.Source = noSource{}

	before := s.ASN
	for i := 0; i < 7; i++ {
		s.RunSlot()
	}
	assert.Equal(t, before+7, s.ASN)
}

// TestApplyCorrection_TimeSourceTracking reproduces the concrete
// scenario: a frame received 40µs later than expected causes a +40µs
// slew (bounded) and records +40µs as the last correction, the value
// whose negation runRX embeds in the next outgoing Enhanced ACK.
func TestApplyCorrection_TimeSourceTracking(t *testing.T) {
	simClk := clock.NewSimClock(1000)
	r := &fakeRadio{}
	s := New(r, simClk, macconf.Default(), Timeslot{}, Slotframe{Size: 1}, HoppingSequence{1}, 0, 0)

	expected := clock.Instant(5000)
	measured := clock.Instant(5040)
	s.applyCorrection(measured, expected)

	assert.Equal(t, int64(40), s.LastCorrection())
	assert.Equal(t, clock.Instant(1040), simClk.Now())
}

func TestApplyCorrection_BoundedBySlewLimit(t *testing.T) {
	simClk := clock.NewSimClock(0)
	conf := macconf.Default()
	conf.MaxClockSlew = 10
	r := &fakeRadio{}
	s := New(r, simClk, conf, Timeslot{}, Slotframe{Size: 1}, HoppingSequence{1}, 0, 0)

	s.applyCorrection(clock.Instant(1000), clock.Instant(0))

	assert.Equal(t, int64(10), s.LastCorrection())
	assert.Equal(t, clock.Instant(10), simClk.Now())
}

func TestHoppingSequence_ChannelFormula(t *testing.T) {
	h := HoppingSequence{15, 20, 25, 26}
	assert.Equal(t, uint8(26), h.Channel(1, 2))
	assert.Equal(t, uint8(15), h.Channel(4, 0))
}
