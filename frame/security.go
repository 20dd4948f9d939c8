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

// SecurityLevel is the 3-bit Security Level sub-field of the Security
// Control octet (§3, Auxiliary Security Header). The codec only
// parses/emits the structures that describe security; AES-CCM* itself
// is explicitly a non-goal (§1).
type SecurityLevel uint8

const (
	SecLevelNone      SecurityLevel = 0
	SecLevelMIC32     SecurityLevel = 1
	SecLevelMIC64     SecurityLevel = 2
	SecLevelMIC128    SecurityLevel = 3
	SecLevelENC       SecurityLevel = 4
	SecLevelEncMIC32  SecurityLevel = 5
	SecLevelEncMIC64  SecurityLevel = 6
	SecLevelEncMIC128 SecurityLevel = 7
)

// KeyIDMode selects how the Key Identifier field of the Auxiliary
// Security Header is encoded.
type KeyIDMode uint8

const (
	KeyIDModeImplicit    KeyIDMode = 0 // Key determined implicitly.
	KeyIDModeIndex       KeyIDMode = 1 // 1-octet Key Index only.
	KeyIDModeSrc4Index   KeyIDMode = 2 // 4-octet Key Source + Key Index.
	KeyIDModeSrc8Index   KeyIDMode = 3 // 8-octet Key Source + Key Index.
)

// SecurityControl is the 1-octet Security Control sub-field: bits 0-2
// Security Level, bits 3-4 Key Identifier Mode, bit 5 Frame Counter
// Suppression, bit 6 ASN in Nonce, bit 7 reserved.
type SecurityControl uint8

func (sc SecurityControl) Level() SecurityLevel { return SecurityLevel(sc & 0x07) }
func (sc SecurityControl) KeyIDMode() KeyIDMode  { return KeyIDMode((sc >> 3) & 0x03) }
func (sc SecurityControl) FrameCounterSuppressed() bool { return sc&0x20 != 0 }
func (sc SecurityControl) ASNInNonce() bool             { return sc&0x40 != 0 }

// KeyIdentifier is the Key Identifier sub-field, whose layout depends
// on KeyIDMode: KeyIDModeSrc4Index populates Source4,
// KeyIDModeSrc8Index populates Source8, and all modes except KeyIDModeImplicit populate Index.
type KeyIdentifier struct {
	Source4 uint32
	Source8 uint64
	Index   uint8
}

// AuxSecurityHeader is the decoded Auxiliary Security Header (§3/§4.2).
// FrameCounter is zero and meaningless when Control.FrameCounterSuppressed().
type AuxSecurityHeader struct {
	Control      SecurityControl
	FrameCounter uint32
	KeyID        KeyIdentifier
}

// decodeAuxSecurityHeader reads the Auxiliary Security Header, present
// iff the frame's Security Enabled bit is set.
func decodeAuxSecurityHeader(r *octet.Reader) (AuxSecurityHeader, error) {
	var h AuxSecurityHeader
	scOctet, err := r.U8()
	if err != nil {
		return h, malformed("security control: %v", err)
	}
	h.Control = SecurityControl(scOctet)

	if !h.Control.FrameCounterSuppressed() {
		fc, err := r.U16()
		if err != nil {
			return h, malformed("frame counter low: %v", err)
		}
		fcHi, err := r.U16()
		if err != nil {
			return h, malformed("frame counter high: %v", err)
		}
		h.FrameCounter = uint32(fc) | uint32(fcHi)<<16
	}

	switch h.Control.KeyIDMode() {
	case KeyIDModeImplicit:
		// no key identifier octets
	case KeyIDModeIndex:
		idx, err := r.U8()
		if err != nil {
			return h, malformed("key index: %v", err)
		}
		h.KeyID.Index = idx
	case KeyIDModeSrc4Index:
		src, err := r.U16()
		if err != nil {
			return h, malformed("key source (4): %v", err)
		}
		srcHi, err := r.U16()
		if err != nil {
			return h, malformed("key source (4): %v", err)
		}
		h.KeyID.Source4 = uint32(src) | uint32(srcHi)<<16
		idx, err := r.U8()
		if err != nil {
			return h, malformed("key index: %v", err)
		}
		h.KeyID.Index = idx
	case KeyIDModeSrc8Index:
		src, err := r.U64()
		if err != nil {
			return h, malformed("key source (8): %v", err)
		}
		h.KeyID.Source8 = src
		idx, err := r.U8()
		if err != nil {
			return h, malformed("key index: %v", err)
		}
		h.KeyID.Index = idx
	}

	return h, nil
}

// encodeAuxSecurityHeader writes h in the same layout decodeAuxSecurityHeader reads.
func encodeAuxSecurityHeader(w *octet.Writer, h AuxSecurityHeader) error {
	if err := w.PutU8(uint8(h.Control)); err != nil {
		return err
	}
	if !h.Control.FrameCounterSuppressed() {
		if err := w.PutU16(uint16(h.FrameCounter)); err != nil {
			return err
		}
		if err := w.PutU16(uint16(h.FrameCounter >> 16)); err != nil {
			return err
		}
	}
	switch h.Control.KeyIDMode() {
	case KeyIDModeImplicit:
	case KeyIDModeIndex:
		return w.PutU8(h.KeyID.Index)
	case KeyIDModeSrc4Index:
		if err := w.PutU16(uint16(h.KeyID.Source4)); err != nil {
			return err
		}
		if err := w.PutU16(uint16(h.KeyID.Source4 >> 16)); err != nil {
			return err
		}
		return w.PutU8(h.KeyID.Index)
	case KeyIDModeSrc8Index:
		if err := w.PutU64(h.KeyID.Source8); err != nil {
			return err
		}
		return w.PutU8(h.KeyID.Index)
	}
	return nil
}
