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

import "fmt"

// Type is the 3-bit MAC frame type (Frame Control bits 0-2).
type Type uint8

const (
	TypeBeacon       Type = 0
	TypeData         Type = 1
	TypeAck          Type = 2
	TypeMACCommand   Type = 3
	TypeReserved4    Type = 4
	TypeMultipurpose Type = 5
	TypeFragment     Type = 6
	TypeExtended     Type = 7
)

// AddrMode is a 2-bit destination/source addressing mode.
type AddrMode uint8

const (
	AddrModeNone     AddrMode = 0
	AddrModeReserved AddrMode = 1
	AddrModeShort    AddrMode = 2
	AddrModeExtended AddrMode = 3
)

// Version is the 2-bit Frame Version field.
type Version uint8

const (
	Version2003 Version = 0
	Version2006 Version = 1
	Version2020 Version = 2
	version3    Version = 3 // recognized only to be rejected as Unsupported
)

// Control is the 16-bit, little-endian-on-the-wire Frame Control
// field (§3). It is a plain bitfield accessor, extended with the 2020
// fields (sequence-number suppression, IE present) beyond the 2006
// layout.
type Control uint16

const (
	maskType             Control = 0x0007
	maskSecurityEnabled  Control = 0x0008
	maskFramePending     Control = 0x0010
	maskAckRequest       Control = 0x0020
	maskPanIDCompression Control = 0x0040
	// bit 7 is reserved.
	maskSeqNrSuppression Control = 0x0100
	maskIEPresent        Control = 0x0200
	maskDstAddrMode      Control = 0x0c00
	maskFrameVersion     Control = 0x3000
	maskSrcAddrMode      Control = 0xc000
)

func (fc Control) String() string {
	return fmt.Sprintf("0x%04x", uint16(fc))
}

// FrameType returns the Frame Type field.
func (fc Control) FrameType() Type {
	return Type(fc & maskType)
}

// SecurityEnabled reports whether the Security Enabled bit is set.
func (fc Control) SecurityEnabled() bool {
	return fc&maskSecurityEnabled != 0
}

// FramePending reports whether the Frame Pending bit is set.
func (fc Control) FramePending() bool {
	return fc&maskFramePending != 0
}

// AckRequest reports whether the AR bit is set.
func (fc Control) AckRequest() bool {
	return fc&maskAckRequest != 0
}

// PanIDCompression reports whether PAN ID Compression is set.
func (fc Control) PanIDCompression() bool {
	return fc&maskPanIDCompression != 0
}

// SeqNrSuppression reports whether Sequence Number Suppression is set.
// The sequence number field is present in the frame iff this is false.
func (fc Control) SeqNrSuppression() bool {
	return fc&maskSeqNrSuppression != 0
}

// IEPresent reports whether the frame carries Information Elements.
func (fc Control) IEPresent() bool {
	return fc&maskIEPresent != 0
}

// DstAddrMode returns the Destination Addressing Mode.
func (fc Control) DstAddrMode() AddrMode {
	return AddrMode((fc & maskDstAddrMode) >> 10)
}

// SrcAddrMode returns the Source Addressing Mode.
func (fc Control) SrcAddrMode() AddrMode {
	return AddrMode((fc & maskSrcAddrMode) >> 14)
}

// FrameVersion returns the Frame Version field.
func (fc Control) FrameVersion() Version {
	return Version((fc & maskFrameVersion) >> 12)
}

// IsEnhancedBeacon reports whether fc describes an Enhanced Beacon:
// an IEEE 802.15.4-2020 frame with FrameType Beacon is always an
// Enhanced Beacon (the legacy, non-enhanced Beacon only exists in
// Version2003/Version2006 frames).
func (fc Control) IsEnhancedBeacon() bool {
	return fc.FrameType() == TypeBeacon && fc.FrameVersion() == Version2020
}

// NewControl assembles a Frame Control field from its components, the
// mirror of the accessors above. It is exported so that a MAC engine
// composing its own frames (ACKs, Enhanced ACKs, data frames) outside
// this package never needs to poke at the bitfield directly.
func NewControl(ft Type, secure, pending, ackReq, panIDComp, seqSuppress, iePresent bool, dstMode, srcMode AddrMode, ver Version) Control {
	var fc Control
	fc |= Control(ft) & maskType
	if secure {
		fc |= maskSecurityEnabled
	}
	if pending {
		fc |= maskFramePending
	}
	if ackReq {
		fc |= maskAckRequest
	}
	if panIDComp {
		fc |= maskPanIDCompression
	}
	if seqSuppress {
		fc |= maskSeqNrSuppression
	}
	if iePresent {
		fc |= maskIEPresent
	}
	fc |= Control(dstMode) << 10 & maskDstAddrMode
	fc |= Control(ver) << 12 & maskFrameVersion
	fc |= Control(srcMode) << 14 & maskSrcAddrMode
	return fc
}

// newControl is the package-internal spelling used by this package's
// own tests, kept so existing call sites read naturally.
func newControl(ft Type, secure, pending, ackReq, panIDComp, seqSuppress, iePresent bool, dstMode, srcMode AddrMode, ver Version) Control {
	return NewControl(ft, secure, pending, ackReq, panIDComp, seqSuppress, iePresent, dstMode, srcMode, ver)
}
