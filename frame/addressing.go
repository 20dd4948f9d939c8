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

// presence is the (dst_pan_present, dst_addr_present, src_pan_present,
// src_addr_present) tuple §4.2 requires the codec to reproduce exactly
// from (dst_mode, src_mode, pan_id_comp, version).
type presence struct {
	dstPAN, dstAddr, srcPAN, srcAddr bool
}

// presenceLegacy implements the IEEE 802.15.4-2006 §7.2.1.5 rule used
// by Frame Version 2003/2006 frames: PAN ID Compression only ever
// elides the source PAN ID, and only when a destination address is
// also present (the two devices are then known to share an address
// field PAN, the destination's).
func presenceLegacy(dstMode, srcMode AddrMode, panIDComp bool) presence {
	p := presence{
		dstPAN:  dstMode != AddrModeNone,
		dstAddr: dstMode != AddrModeNone,
		srcAddr: srcMode != AddrModeNone,
	}
	p.srcPAN = srcMode != AddrModeNone && !(panIDComp && dstMode != AddrModeNone)
	return p
}

// presence2020 implements the IEEE 802.15.4-2020 Table 7-2 rule used
// by Frame Version 2 frames, the 14-row table that depends on all
// three of (dst_mode, src_mode, pan_id_comp) jointly rather than
// factoring as the legacy rule does. ok is false for a (mode, mode)
// combination the table does not define (a reserved addressing mode).
func presence2020(dstMode, srcMode AddrMode, panIDComp bool) (presence, bool) {
	type key struct {
		dst, src AddrMode
		comp     bool
	}
	table := map[key]presence{
		{AddrModeNone, AddrModeNone, false}:         {false, false, false, false},
		{AddrModeNone, AddrModeNone, true}:          {true, false, false, false},
		{AddrModeNone, AddrModeShort, false}:        {false, false, true, true},
		{AddrModeNone, AddrModeExtended, false}:     {false, false, true, true},
		{AddrModeNone, AddrModeShort, true}:         {false, false, false, true},
		{AddrModeNone, AddrModeExtended, true}:      {false, false, false, true},
		{AddrModeShort, AddrModeNone, false}:        {true, true, false, false},
		{AddrModeExtended, AddrModeNone, false}:     {true, true, false, false},
		{AddrModeShort, AddrModeNone, true}:         {false, true, false, false},
		{AddrModeExtended, AddrModeNone, true}:      {false, true, false, false},
		{AddrModeShort, AddrModeShort, false}:       {true, true, true, true},
		{AddrModeShort, AddrModeExtended, false}:    {true, true, true, true},
		{AddrModeExtended, AddrModeShort, false}:    {true, true, true, true},
		{AddrModeExtended, AddrModeExtended, false}: {true, true, false, true},
		{AddrModeShort, AddrModeShort, true}:        {true, true, false, true},
		{AddrModeShort, AddrModeExtended, true}:     {true, true, false, true},
		{AddrModeExtended, AddrModeShort, true}:     {true, true, false, true},
		{AddrModeExtended, AddrModeExtended, true}:  {false, true, false, true},
	}
	p, ok := table[key{dstMode, srcMode, panIDComp}]
	return p, ok
}

// resolvePresence dispatches to the legacy or 2020 table per §4.2: the
// compression table differs for version 2 from versions 0/1. Version
// 3 is rejected by the caller before this is reached (Unsupported).
func resolvePresence(ver Version, dstMode, srcMode AddrMode, panIDComp bool) (presence, error) {
	if dstMode == AddrModeReserved || srcMode == AddrModeReserved {
		return presence{}, malformed("reserved addressing mode")
	}
	if ver == Version2020 {
		p, ok := presence2020(dstMode, srcMode, panIDComp)
		if !ok {
			return presence{}, malformed("addressing-mode combination not in 2020 presence table")
		}
		return p, nil
	}
	return presenceLegacy(dstMode, srcMode, panIDComp), nil
}

// Addressing holds the decoded addressing fields of a frame, in the
// fixed wire order dst PAN, dst addr, src PAN, src addr (§3/§4.2).
// Fields absent per the presence table keep their zero value.
type Addressing struct {
	DstPAN  PANID
	Dst     Address
	SrcPAN  PANID
	Src     Address
	present presence
}

// decodeAddressing reads the addressing fields from r according to fc.
// For every frame version, when a source address is present without
// its own PAN ID, a destination PAN ID is present, and PAN ID
// Compression is set, it fills SrcPAN from DstPAN (same PAN).
func decodeAddressing(r *octet.Reader, fc Control) (Addressing, error) {
	p, err := resolvePresence(fc.FrameVersion(), fc.DstAddrMode(), fc.SrcAddrMode(), fc.PanIDCompression())
	if err != nil {
		return Addressing{}, err
	}

	var a Addressing
	a.present = p

	if p.dstPAN {
		v, err := r.U16()
		if err != nil {
			return Addressing{}, malformed("dst PAN ID: %v", err)
		}
		a.DstPAN = PANID(v)
	}
	if p.dstAddr {
		addr, err := decodeAddr(r, fc.DstAddrMode())
		if err != nil {
			return Addressing{}, malformed("dst addr: %v", err)
		}
		a.Dst = addr
	}
	if p.srcPAN {
		v, err := r.U16()
		if err != nil {
			return Addressing{}, malformed("src PAN ID: %v", err)
		}
		a.SrcPAN = PANID(v)
	} else if p.srcAddr && p.dstPAN && fc.PanIDCompression() {
		// Source PAN ID omitted but implied equal to the destination's.
		a.SrcPAN = a.DstPAN
	}
	if p.srcAddr {
		addr, err := decodeAddr(r, fc.SrcAddrMode())
		if err != nil {
			return Addressing{}, malformed("src addr: %v", err)
		}
		a.Src = addr
	}

	return a, nil
}

func decodeAddr(r *octet.Reader, mode AddrMode) (Address, error) {
	switch mode {
	case AddrModeShort:
		v, err := r.U16()
		if err != nil {
			return Address{}, err
		}
		return ShortAddress(ShortAddr(v)), nil
	case AddrModeExtended:
		v, err := r.U64()
		if err != nil {
			return Address{}, err
		}
		return ExtendedAddress(ExtendedAddr(v)), nil
	default:
		return NoAddress, nil
	}
}

// encodeAddressing writes a's fields in wire order, consulting the
// same presence table so a caller cannot accidentally emit a field
// the addressing-mode combination says is absent.
func encodeAddressing(w *octet.Writer, fc Control, a Addressing) error {
	p, err := resolvePresence(fc.FrameVersion(), fc.DstAddrMode(), fc.SrcAddrMode(), fc.PanIDCompression())
	if err != nil {
		return err
	}

	if p.dstPAN {
		if err := w.PutU16(uint16(a.DstPAN)); err != nil {
			return err
		}
	}
	if p.dstAddr {
		if err := encodeAddr(w, fc.DstAddrMode(), a.Dst); err != nil {
			return err
		}
	}
	if p.srcPAN {
		if err := w.PutU16(uint16(a.SrcPAN)); err != nil {
			return err
		}
	}
	if p.srcAddr {
		if err := encodeAddr(w, fc.SrcAddrMode(), a.Src); err != nil {
			return err
		}
	}
	return nil
}

func encodeAddr(w *octet.Writer, mode AddrMode, a Address) error {
	switch mode {
	case AddrModeShort:
		return w.PutU16(uint16(a.Short))
	case AddrModeExtended:
		return w.PutU64(uint64(a.Extended))
	default:
		return nil
	}
}
