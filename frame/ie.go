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

package frame

import "github.com/thvdveld/dot15d4/octet"

// Header Termination IDs (§3, §4.3). The worked example in the
// standard's conformance vectors pins 0x7E as "payload IEs follow"
// and 0x7F as "no payload IEs, remainder is MAC payload" — see
// DESIGN.md for why this implementation follows the pinned example
// rather than a looser prose reading.
const (
	headerIEIDTermination1 uint8 = 0x7E // header IEs end, payload IEs follow
	headerIEIDTermination2 uint8 = 0x7F // header IEs end, no payload IEs
)

// PayloadIEIDMLME is the Payload IE ID carrying a nested chain of MLME
// sub-IEs (TSCH synchronization, timeslot, channel hopping, slotframe
// and link).
const PayloadIEIDMLME uint8 = 0x01

// PayloadIEIDTermination marks the end of the Payload IE chain,
// symmetric to the Header IE termination markers: whatever follows it
// is the MAC payload rather than another Payload IE.
const PayloadIEIDTermination uint8 = 0x0F

// HeaderIE is a single decoded Header Information Element: a 2-octet
// descriptor (length:7 | id:8 | type=0:1) followed by length content
// octets, borrowed without copying from the parent frame's buffer.
type HeaderIE struct {
	ID      uint8
	Content []byte
}

// PayloadIE is a single decoded Payload Information Element: a
// 2-octet descriptor (length:11 | id:4 | type=1:1) followed by length
// content octets. An MLME Payload IE's Content further decodes into a
// chain of MLME sub-IEs via DecodeMLME.
type PayloadIE struct {
	ID      uint8
	Content []byte
}

func decodeHeaderIEDescriptor(v uint16) (id uint8, length int, isPayloadType bool) {
	isPayloadType = v&0x8000 != 0
	id = uint8((v >> 7) & 0xFF)
	length = int(v & 0x7F)
	return
}

func decodePayloadIEDescriptor(v uint16) (id uint8, length int) {
	id = uint8((v >> 11) & 0x0F)
	length = int(v & 0x7FF)
	return
}

// HeaderIEChain lazily decodes the Header IE list starting at r's
// current position, stopping at a Header Termination descriptor or
// exhaustion (§4.3). endsWithPayloadIEs reports whether the
// termination marker that ended the chain (if any) indicates Payload
// IEs follow (HT1, 0x7E). If the chain runs to exhaustion with no
// termination marker, there is by definition no payload and no
// payload IEs.
type HeaderIEChain struct {
	r                 *octet.Reader
	terminated        bool
	followedByPayload bool
}

// DecodeHeaderIEs begins lazy iteration over the Header IE chain.
func DecodeHeaderIEs(r *octet.Reader) *HeaderIEChain {
	return &HeaderIEChain{r: r}
}

// Next returns the next Header IE, or ok=false once the chain is
// terminated or exhausted. It never itself returns the termination
// marker as an item.
func (c *HeaderIEChain) Next() (HeaderIE, bool, error) {
	if c.terminated {
		return HeaderIE{}, false, nil
	}
	if c.r.Len() < 2 {
		return HeaderIE{}, false, nil
	}
	v, err := c.r.U16()
	if err != nil {
		return HeaderIE{}, false, malformed("header IE descriptor: %v", err)
	}
	id, length, isPayloadType := decodeHeaderIEDescriptor(v)
	if isPayloadType {
		return HeaderIE{}, false, malformed("payload IE descriptor found in header IE chain")
	}
	if id == headerIEIDTermination1 || id == headerIEIDTermination2 {
		c.terminated = true
		c.followedByPayload = id == headerIEIDTermination1
		return HeaderIE{}, false, nil
	}
	content, err := c.r.Bytes(length)
	if err != nil {
		return HeaderIE{}, false, malformed("header IE 0x%02x content: %v", id, err)
	}
	return HeaderIE{ID: id, Content: content}, true, nil
}

// Terminated reports whether the chain ended at a termination marker
// (as opposed to running to buffer exhaustion without one).
func (c *HeaderIEChain) Terminated() bool { return c.terminated }

// FollowedByPayloadIEs reports whether the terminating marker
// indicated that a Payload IE list follows.
func (c *HeaderIEChain) FollowedByPayloadIEs() bool { return c.followedByPayload }

// PayloadIEChain lazily decodes the Payload IE list starting at r's
// current position, running to exhaustion of the enclosing frame's
// payload-IE region (the caller bounds r to that region first).
type PayloadIEChain struct {
	r          *octet.Reader
	terminated bool
}

// DecodePayloadIEs begins lazy iteration over the Payload IE chain.
func DecodePayloadIEs(r *octet.Reader) *PayloadIEChain {
	return &PayloadIEChain{r: r}
}

// Next returns the next Payload IE, or ok=false once terminated or
// exhausted. It never itself returns the termination marker as an
// item.
func (c *PayloadIEChain) Next() (PayloadIE, bool, error) {
	if c.terminated {
		return PayloadIE{}, false, nil
	}
	if c.r.Len() < 2 {
		return PayloadIE{}, false, nil
	}
	v, err := c.r.U16()
	if err != nil {
		return PayloadIE{}, false, malformed("payload IE descriptor: %v", err)
	}
	id, length := decodePayloadIEDescriptor(v)
	if id == PayloadIEIDTermination {
		c.terminated = true
		_, err := c.r.Bytes(length)
		if err != nil {
			return PayloadIE{}, false, malformed("payload termination IE content: %v", err)
		}
		return PayloadIE{}, false, nil
	}
	content, err := c.r.Bytes(length)
	if err != nil {
		return PayloadIE{}, false, malformed("payload IE 0x%02x content: %v", id, err)
	}
	return PayloadIE{ID: id, Content: content}, true, nil
}

// Terminated reports whether the chain ended at a termination marker
// (as opposed to running to exhaustion without one).
func (c *PayloadIEChain) Terminated() bool { return c.terminated }

// encodeHeaderIE writes one Header IE descriptor and its content.
func encodeHeaderIE(w *octet.Writer, ie HeaderIE) error {
	if len(ie.Content) > 0x7F {
		return malformed("header IE 0x%02x content too long: %d", ie.ID, len(ie.Content))
	}
	v := uint16(len(ie.Content))&0x7F | uint16(ie.ID)<<7
	if err := w.PutU16(v); err != nil {
		return err
	}
	return w.PutBytes(ie.Content)
}

// encodeHeaderTermination writes the termination descriptor that ends
// the Header IE chain, selecting 0x7E when payload IEs follow and
// 0x7F when they do not (see the package doc comment on the ID
// constants for why this polarity was chosen).
func encodeHeaderTermination(w *octet.Writer, payloadIEsFollow bool) error {
	id := headerIEIDTermination2
	if payloadIEsFollow {
		id = headerIEIDTermination1
	}
	v := uint16(id) << 7
	return w.PutU16(v)
}

// encodePayloadTermination writes the marker that ends the Payload IE
// chain when the frame also carries a MAC payload after it.
func encodePayloadTermination(w *octet.Writer) error {
	v := uint16(PayloadIEIDTermination)<<11 | 0x8000
	return w.PutU16(v)
}

// encodePayloadIE writes one Payload IE descriptor and its content.
func encodePayloadIE(w *octet.Writer, ie PayloadIE) error {
	if len(ie.Content) > 0x7FF {
		return malformed("payload IE 0x%02x content too long: %d", ie.ID, len(ie.Content))
	}
	v := uint16(len(ie.Content))&0x7FF | uint16(ie.ID)<<11 | 0x8000
	if err := w.PutU16(v); err != nil {
		return err
	}
	return w.PutBytes(ie.Content)
}
