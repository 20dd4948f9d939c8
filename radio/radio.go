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

// Package radio defines the abstract radio capability the MAC engines
// are driven against (§4.5, §6 "Radio trait"). The PHY PSDU upper
// bound is 127 octets; a capability implementation owns the framing up
// to and including the FCS trailer.
package radio

import "github.com/thvdveld/dot15d4/clock"

// MaxPSDU is the IEEE 802.15.4 PHY payload upper bound in octets.
const MaxPSDU = 127

// CCAResult is the outcome of one clear-channel-assessment window.
type CCAResult uint8

const (
	Clear CCAResult = iota
	Busy
)

func (r CCAResult) String() string {
	if r == Clear {
		return "clear"
	}
	return "busy"
}

// RxMetadata describes a received frame: its hardware SFD timestamp,
// received signal strength, and link quality, the fields the MAC
// driver folds into the metadata it returns from recv (§4.8).
type RxMetadata struct {
	Timestamp clock.Instant
	RSSI      int8
	LQI       uint8
}

// Capability is the abstract radio contract a host provides (§4.5).
// All operations are cancellation-safe: a caller that abandons a
// pending operation (by simply not calling it again) must find the
// radio back in receive-idle on its next call.
type Capability interface {
	// SetChannel tunes to channel n and returns once the PLL has
	// settled.
	SetChannel(n uint8) error

	// CCA performs one energy-detect or carrier-sense window (128 µs
	// nominal) and reports whether the channel was clear.
	CCA() (CCAResult, error)

	// Transmit sends frame. If at is non-nil, the first symbol is on
	// air within timing tolerance of that instant; Transmit returns
	// the hardware timestamp of the start-of-frame delimiter.
	Transmit(frame []byte, at *clock.Instant) (clock.Instant, error)

	// Receive returns the first frame whose SFD arrives before
	// until, copied into into. ok is false if no frame arrived in
	// time.
	Receive(into []byte, until clock.Instant) (n int, meta RxMetadata, ok bool, err error)

	// EnableAckFiltering hints that only an ACK frame carrying seq
	// should be accepted by the next Receive; it is advisory, not a
	// correctness requirement (a caller must still check the
	// sequence number itself).
	EnableAckFiltering(seq uint8)

	// DisableAckFiltering clears the hint set by EnableAckFiltering.
	DisableAckFiltering()
}
