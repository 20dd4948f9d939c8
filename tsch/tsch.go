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

// Package tsch implements the TSCH slot scheduler (§4.7): slotframe
// and link table, channel hopping, timeslot timing, ASN tracking, and
// time-source clock discipline. Static schedule data can additionally
// be loaded from a YAML document via LoadSchedule.
package tsch

import "github.com/thvdveld/dot15d4/frame"

// ASN is the Absolute Slot Number, a monotonically increasing slot
// counter that never resets for the lifetime of a slotframe schedule.
type ASN = frame.ASN

// Link is the MAC driver's in-memory view of one scheduled link: the
// wire TSCH Slotframe and Link IE (frame.TSCHLink) carries no neighbor
// address, so Neighbor is a purely local addition the driver resolves
// out-of-band (e.g. from the joining handshake), not a wire field.
type Link struct {
	Timeslot      uint16
	ChannelOffset uint16
	Options       frame.TSCHLinkOption
	Neighbor      frame.Address
}

// Slotframe is a handle, a size (number of timeslots before ASN wraps
// modulo it), and its scheduled links.
type Slotframe struct {
	Handle uint8
	Size   uint16
	Links  []Link
}

// LinkAt returns the link scheduled at slotOffset, if any.
func (s Slotframe) LinkAt(slotOffset uint16) (Link, bool) {
	for _, l := range s.Links {
		if l.Timeslot == slotOffset {
			return l, true
		}
	}
	return Link{}, false
}

// HoppingSequence is the ordered list of PHY channels a slotframe
// hops across.
type HoppingSequence []uint8

// Channel returns the channel selected for ASN a and link channel
// offset c: hopping[(a+c) mod len(hopping)] (§4.7, §8 quantified
// invariant).
func (h HoppingSequence) Channel(a ASN, c uint16) uint8 {
	return h[(uint64(a)+uint64(c))%uint64(len(h))]
}

// Timeslot is the local, decoded form of the wire TSCH Timeslot IE
// (frame.TSCHTimeslot): the microsecond offsets the slot loop times
// its actions against.
type Timeslot = frame.TSCHTimeslot
