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

package csma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thvdveld/dot15d4/clock"
	"github.com/thvdveld/dot15d4/frame"
	"github.com/thvdveld/dot15d4/macconf"
	"github.com/thvdveld/dot15d4/octet"
	"github.com/thvdveld/dot15d4/prng"
	"github.com/thvdveld/dot15d4/radio"
)

// fakeRadio is a small hand-written fake driven by a scripted sequence
// of CCA outcomes and receive-window results, rather than a mocking
// framework.
type fakeRadio struct {
	ccaResults []radio.CCAResult
	ccaCalls   int

	transmitCalls int
	transmitted   [][]byte

	rxFrames [][]byte // nil entry means "nothing arrived"
	rxCalls  int

	ackFilterSeq     uint8
	ackFilterEnabled bool
}

func (f *fakeRadio) SetChannel(uint8) error { return nil }

func (f *fakeRadio) CCA() (radio.CCAResult, error) {
	r := f.ccaResults[f.ccaCalls]
	f.ccaCalls++
	return r, nil
}

func (f *fakeRadio) Transmit(frame []byte, _ *clock.Instant) (clock.Instant, error) {
	f.transmitCalls++
	cp := append([]byte{}, frame...)
	f.transmitted = append(f.transmitted, cp)
	return 0, nil
}

func (f *fakeRadio) Receive(into []byte, _ clock.Instant) (int, radio.RxMetadata, bool, error) {
	if f.rxCalls >= len(f.rxFrames) {
		return 0, radio.RxMetadata{}, false, nil
	}
	data := f.rxFrames[f.rxCalls]
	f.rxCalls++
	if data == nil {
		return 0, radio.RxMetadata{}, false, nil
	}
	n := copy(into, data)
	return n, radio.RxMetadata{}, true, nil
}

func (f *fakeRadio) EnableAckFiltering(seq uint8) {
	f.ackFilterEnabled = true
	f.ackFilterSeq = seq
}

func (f *fakeRadio) DisableAckFiltering() {
	f.ackFilterEnabled = false
}

func buildAck(seq uint8) []byte {
	b := &frame.Builder{
		Control: frame.NewControl(frame.TypeAck, false, false, false, false, false, false, frame.AddrModeNone, frame.AddrModeNone, frame.Version2020),
		Seq:     seq,
		HasSeq:  true,
	}
	buf := make([]byte, 16)
	w := octet.NewWriter(buf)
	if err := b.Emit(w); err != nil {
		panic(err)
	}
	return w.Bytes()
}

func busy(n int) []radio.CCAResult {
	out := make([]radio.CCAResult, n)
	for i := range out {
		out[i] = radio.Busy
	}
	return out
}

// TestSend_ChannelAccessFailure reproduces the concrete scenario: a
// radio that reports busy on its first 9 CCAs then clear, with
// MinBE=3, MaxBE=5, MaxCSMABackoffs=4. The backoff budget is exhausted
// after 5 busy readings, well before the radio would ever report
// clear, so no transmit happens.
func TestSend_ChannelAccessFailure(t *testing.T) {
	cca := busy(9)
	cca = append(cca, radio.Clear)
	r := &fakeRadio{ccaResults: cca}

	conf := macconf.Default()
	conf.MinBE, conf.MaxBE, conf.MaxCSMABackoffs = 3, 5, 4

	e := New(r, prng.NewMathRandSource(1), clock.NewSimClock(0), conf)
	result, err := e.Send([]byte{0x01, 0x02}, 7, false)

	assert.NoError(t, err)
	assert.Equal(t, ChannelAccessFailure, result)
	assert.Equal(t, 5, r.ccaCalls)
	assert.Equal(t, 0, r.transmitCalls)
}

// TestSend_SuccessOnMatchingAck transmits once, with a simulated ACK
// carrying the correct sequence number, and expects Success after
// exactly one transmit.
func TestSend_SuccessOnMatchingAck(t *testing.T) {
	r := &fakeRadio{
		ccaResults: []radio.CCAResult{radio.Clear},
		rxFrames:   [][]byte{buildAck(9)},
	}
	e := New(r, prng.NewMathRandSource(1), clock.NewSimClock(0), macconf.Default())

	result, err := e.Send([]byte{0xde, 0xad}, 9, true)

	assert.NoError(t, err)
	assert.Equal(t, Success, result)
	assert.Equal(t, 1, r.transmitCalls)
}

// TestSend_NoAckAfterRetryBudget simulates three non-matching ACKs (a
// different sequence number each time) and expects NoAck once the
// retry budget (default MaxFrameRetries=3) is exhausted, after exactly
// MaxFrameRetries+1 transmit attempts.
func TestSend_NoAckAfterRetryBudget(t *testing.T) {
	conf := macconf.Default()
	r := &fakeRadio{
		ccaResults: []radio.CCAResult{radio.Clear, radio.Clear, radio.Clear, radio.Clear},
		rxFrames:   [][]byte{buildAck(250), buildAck(251), buildAck(252), nil},
	}
	e := New(r, prng.NewMathRandSource(1), clock.NewSimClock(0), conf)

	result, err := e.Send([]byte{0xbe, 0xef}, 9, true)

	assert.NoError(t, err)
	assert.Equal(t, NoAck, result)
	assert.Equal(t, int(conf.MaxFrameRetries)+1, r.transmitCalls)
}

func TestSend_ZeroBEIsImmediateCCA(t *testing.T) {
	r := &fakeRadio{ccaResults: []radio.CCAResult{radio.Clear}}
	conf := macconf.Default()
	conf.MinBE = 0

	e := New(r, prng.NewMathRandSource(42), clock.NewSimClock(1000), conf)
	result, err := e.Send([]byte{0x01}, 1, false)

	assert.NoError(t, err)
	assert.Equal(t, Success, result)
	// BE=0 means window=2^0-1=0, so no backoff delay was possible and
	// the simulated clock never advanced.
	assert.Equal(t, clock.Instant(1000), e.clk.Now())
}
