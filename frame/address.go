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

// PANID is a 16-bit Personal Area Network identifier.
type PANID uint16

// BroadcastPANID is the reserved "no PAN"/broadcast PAN ID, 0xFFFF.
const BroadcastPANID PANID = 0xFFFF

func (p PANID) String() string {
	return fmt.Sprintf("0x%04x", uint16(p))
}

// ShortAddr is a 16-bit short device address.
type ShortAddr uint16

// BroadcastShortAddr is the reserved broadcast short address, 0xFFFF.
const BroadcastShortAddr ShortAddr = 0xFFFF

func (a ShortAddr) String() string {
	return fmt.Sprintf("0x%04x", uint16(a))
}

// IsBroadcast reports whether a is the broadcast short address.
func (a ShortAddr) IsBroadcast() bool {
	return a == BroadcastShortAddr
}

// ExtendedAddr is a 64-bit IEEE EUI-64 extended address.
type ExtendedAddr uint64

func (a ExtendedAddr) String() string {
	return fmt.Sprintf("0x%016x", uint64(a))
}

// Address is a addressing-mode-tagged device address, able to hold
// either a short or an extended address (or neither), matching how
// §4.2 treats destination/source addressing as mode-dependent.
type Address struct {
	Mode     AddrMode
	Short    ShortAddr
	Extended ExtendedAddr
}

// NoAddress is the zero-value Address with mode AddrModeNone.
var NoAddress = Address{Mode: AddrModeNone}

// ShortAddress builds an Address in short-addressing mode.
func ShortAddress(a ShortAddr) Address {
	return Address{Mode: AddrModeShort, Short: a}
}

// ExtendedAddress builds an Address in extended-addressing mode.
func ExtendedAddress(a ExtendedAddr) Address {
	return Address{Mode: AddrModeExtended, Extended: a}
}

// IsBroadcast reports whether the address is the short broadcast
// address; extended addresses are never broadcast.
func (a Address) IsBroadcast() bool {
	return a.Mode == AddrModeShort && a.Short.IsBroadcast()
}

func (a Address) String() string {
	switch a.Mode {
	case AddrModeShort:
		return a.Short.String()
	case AddrModeExtended:
		return a.Extended.String()
	default:
		return "-"
	}
}
