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

import (
	"github.com/pkg/errors"
	"github.com/thvdveld/dot15d4/octet"
)

// Frame is a lazy, borrowed view over a complete IEEE 802.15.4 MAC
// frame, including its trailing FCS (§4.4). Parse validates structure
// but not the FCS; call ValidateFCS explicitly, since a receiver with
// hardware CRC checking may want to skip the software recomputation.
type Frame struct {
	Control Control

	Seq    uint8
	HasSeq bool

	Addr Addressing

	Security    AuxSecurityHeader
	HasSecurity bool

	headerIEs  []byte // raw region, nil if IEPresent is false or empty
	payloadIEs []byte // raw region, nil if no payload IEs

	Payload []byte

	raw []byte // full wire bytes, including FCS, for ValidateFCS
}

// Parse decodes b as a complete IEEE 802.15.4 frame, including its
// trailing 2-octet FCS (§3 invariant: consumed fields total len(b)-2).
// The returned Frame borrows b; b must outlive the Frame and must not
// be mutated while the Frame is in use. Use ParseWithoutFCS for bytes
// delivered by a radio that has already stripped or hardware-checked
// the FCS (§4.5); ValidateFCS is unavailable on a Frame parsed that
// way.
func Parse(b []byte) (*Frame, error) {
	if len(b) < 4 {
		return nil, malformed("frame shorter than Frame Control + FCS: %d octets", len(b))
	}
	f, err := parseBody(b[:len(b)-2])
	if err != nil {
		return nil, err
	}
	f.raw = b
	return f, nil
}

// ParseWithoutFCS decodes b as an IEEE 802.15.4 frame with no trailing
// FCS octets present, e.g. a PSDU a radio driver delivers after
// stripping a hardware-verified FCS. ValidateFCS on the result always
// fails, since there is no FCS to check.
func ParseWithoutFCS(b []byte) (*Frame, error) {
	if len(b) < 2 {
		return nil, malformed("frame shorter than Frame Control: %d octets", len(b))
	}
	return parseBody(b)
}

func parseBody(body []byte) (*Frame, error) {
	r := octet.NewReader(body)

	fcVal, err := r.U16()
	if err != nil {
		return nil, malformed("frame control: %v", err)
	}
	fc := Control(fcVal)
	if fc.FrameVersion() == version3 {
		return nil, unsupported("frame version 3")
	}

	f := &Frame{Control: fc}

	if !fc.SeqNrSuppression() {
		seq, err := r.U8()
		if err != nil {
			return nil, malformed("sequence number: %v", err)
		}
		f.Seq = seq
		f.HasSeq = true
	}

	addr, err := decodeAddressing(r, fc)
	if err != nil {
		return nil, err
	}
	f.Addr = addr

	if fc.SecurityEnabled() {
		sec, err := decodeAuxSecurityHeader(r)
		if err != nil {
			return nil, err
		}
		f.Security = sec
		f.HasSecurity = true
	}

	if fc.IEPresent() {
		headerStart := r.Pos()
		chain := DecodeHeaderIEs(r)
		for {
			_, ok, err := chain.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
		}
		f.headerIEs = body[headerStart:r.Pos()]

		if chain.Terminated() && chain.FollowedByPayloadIEs() {
			payloadStart := r.Pos()
			pchain := DecodePayloadIEs(r)
			for {
				_, ok, err := pchain.Next()
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
			}
			f.payloadIEs = body[payloadStart:r.Pos()]
		}
	}

	f.Payload = body[r.Pos():]

	return f, nil
}

// HeaderIEs returns a fresh lazy iterator over the frame's Header IEs.
// It may be called repeatedly; each call re-iterates from the start.
func (f *Frame) HeaderIEs() *HeaderIEChain {
	return DecodeHeaderIEs(octet.NewReader(f.headerIEs))
}

// PayloadIEs returns a fresh lazy iterator over the frame's Payload
// IEs, empty if the frame carries none.
func (f *Frame) PayloadIEs() *PayloadIEChain {
	return DecodePayloadIEs(octet.NewReader(f.payloadIEs))
}

// ValidateFCS recomputes the CRC-16/X-25 over the frame body and
// compares it against the trailing two wire octets (§3, §4.4).
func (f *Frame) ValidateFCS() error {
	if f.raw == nil {
		return malformed("frame has no FCS to validate (parsed via ParseWithoutFCS)")
	}
	body := f.raw[:len(f.raw)-2]
	want := uint16(f.raw[len(f.raw)-2]) | uint16(f.raw[len(f.raw)-1])<<8
	got := CRC16X25(body)
	if got != want {
		return errors.Wrapf(ErrInvalidFCS, "computed 0x%04x, wire 0x%04x", got, want)
	}
	return nil
}

// Builder assembles a Frame for emission. It is the mutable,
// write-side counterpart of Frame, carrying the same fields plus the
// IEs to emit (already-encoded, in the order the standard requires —
// §4.3 "Builders accept a list of IEs and emit them in the fixed order
// defined by the standard").
type Builder struct {
	Control Control

	Seq    uint8
	HasSeq bool

	Addr Addressing

	Security    AuxSecurityHeader
	HasSecurity bool

	HeaderIEs  []HeaderIE
	PayloadIEs []PayloadIE

	Payload []byte
}

// Emit writes Frame Control, Sequence Number, Addressing, Auxiliary
// Security Header, Information Elements, Payload, and finally the FCS
// into w in a single pass (§4.4). It does not compute the frame's total
// length beforehand; a w too small for the frame makes Emit return the
// error of the first write that does not fit. Emit sets the
// IE Present bit automatically based on whether any IEs were supplied,
// and inserts the Header/Payload termination markers itself; HeaderIEs
// and PayloadIEs should list only the substantive IEs.
func (b *Builder) Emit(w *octet.Writer) error {
	iePresent := len(b.HeaderIEs) > 0 || len(b.PayloadIEs) > 0
	fc := b.Control
	if iePresent {
		fc |= maskIEPresent
	} else {
		fc &^= maskIEPresent
	}

	start := w.Len()
	if err := w.PutU16(uint16(fc)); err != nil {
		return err
	}
	if !fc.SeqNrSuppression() {
		if err := w.PutU8(b.Seq); err != nil {
			return err
		}
	}
	if err := encodeAddressing(w, fc, b.Addr); err != nil {
		return err
	}
	if fc.SecurityEnabled() {
		if err := encodeAuxSecurityHeader(w, b.Security); err != nil {
			return err
		}
	}

	if iePresent {
		for _, ie := range b.HeaderIEs {
			if err := encodeHeaderIE(w, ie); err != nil {
				return err
			}
		}
		payloadIEsFollow := len(b.PayloadIEs) > 0
		if err := encodeHeaderTermination(w, payloadIEsFollow); err != nil {
			return err
		}
		if payloadIEsFollow {
			for _, ie := range b.PayloadIEs {
				if err := encodePayloadIE(w, ie); err != nil {
					return err
				}
			}
			if len(b.Payload) > 0 {
				if err := encodePayloadTermination(w); err != nil {
					return err
				}
			}
		}
	}

	if err := w.PutBytes(b.Payload); err != nil {
		return err
	}

	fcs := CRC16X25(w.Bytes()[start:])
	return w.PutU16(fcs)
}
