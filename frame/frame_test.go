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
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thvdveld/dot15d4/octet"
)

// TestParse_EnhancedBeaconScenario decodes the worked example: an
// Enhanced Beacon carrying a TSCH Synchronization and Channel Hopping
// sub-IE. This capture has no trailing FCS octets (common for
// documentation-style captures and radios that strip a
// hardware-verified FCS before handing the PSDU to software), so it
// is decoded with ParseWithoutFCS rather than Parse.
func TestParse_EnhancedBeaconScenario(t *testing.T) {
	b, err := hex.DecodeString("40ebcdabffff0100010001000100003f1188061a0e0000000000011c0001c800011b00")
	assert.NoError(t, err)

	f, err := ParseWithoutFCS(b)
	assert.NoError(t, err)

	assert.Equal(t, TypeBeacon, f.Control.FrameType())
	assert.True(t, f.Control.IsEnhancedBeacon())
	assert.Equal(t, Version2020, f.Control.FrameVersion())
	assert.True(t, f.Control.PanIDCompression())
	assert.True(t, f.Control.SeqNrSuppression())
	assert.False(t, f.HasSeq)
	assert.True(t, f.Control.IEPresent())

	assert.Equal(t, PANID(0xabcd), f.Addr.DstPAN)
	assert.Equal(t, BroadcastShortAddr, f.Addr.Dst.Short)
	assert.True(t, f.Addr.Dst.IsBroadcast())
	assert.Equal(t, AddrModeExtended, f.Addr.Src.Mode)
	assert.Equal(t, ExtendedAddr(0x0001000100010001), f.Addr.Src.Extended)

	headerChain := f.HeaderIEs()
	_, ok, err := headerChain.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, headerChain.Terminated())
	assert.True(t, headerChain.FollowedByPayloadIEs())

	payloadChain := f.PayloadIEs()
	pie, ok, err := payloadChain.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, PayloadIEIDMLME, pie.ID)

	mlme := DecodeMLME(pie.Content)
	sub, ok, err := mlme.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mlmeSubIDTSCHSynchronization, sub.SubID)
	sync, err := decodeTSCHSynchronization(sub.Content)
	assert.NoError(t, err)
	assert.Equal(t, ASN(14), sync.ASN)
	assert.Equal(t, uint8(0), sync.JoinMetric)

	var foundHopping bool
	for {
		sub, ok, err = mlme.Next()
		assert.NoError(t, err)
		if !ok {
			break
		}
		if sub.SubID == mlmeSubIDChannelHopping {
			foundHopping = true
			ch, err := decodeChannelHopping(sub.Content)
			assert.NoError(t, err)
			assert.False(t, ch.Explicit)
			assert.Equal(t, uint8(0), ch.SequenceID)
		}
	}
	assert.True(t, foundHopping)

	assert.Empty(t, f.Payload)
}

// TestBuilderEmit_DataFrameRoundTrip emits a Data frame (version 2020)
// with short addresses, PAN ID compression, AR=1, and re-parses it,
// checking the FCS and that every field survives the round trip.
func TestBuilderEmit_DataFrameRoundTrip(t *testing.T) {
	b := &Builder{
		Control: newControl(TypeData, false, false, true, true, false, false, AddrModeShort, AddrModeShort, Version2020),
		Seq:     42,
		HasSeq:  true,
		Addr: Addressing{
			DstPAN: 0x1aaa,
			Dst:    ShortAddress(0x2222),
			Src:    ShortAddress(0x3333),
		},
		Payload: []byte{0x01, 0x02, 0x03},
	}

	buf := make([]byte, 64)
	w := octet.NewWriter(buf)
	assert.NoError(t, b.Emit(w))
	wire := w.Bytes()

	f, err := Parse(wire)
	assert.NoError(t, err)
	assert.NoError(t, f.ValidateFCS())

	assert.Equal(t, TypeData, f.Control.FrameType())
	assert.True(t, f.Control.AckRequest())
	assert.True(t, f.Control.PanIDCompression())
	assert.True(t, f.HasSeq)
	assert.Equal(t, uint8(42), f.Seq)
	assert.Equal(t, PANID(0x1aaa), f.Addr.DstPAN)
	assert.Equal(t, ShortAddr(0x2222), f.Addr.Dst.Short)
	assert.Equal(t, ShortAddr(0x3333), f.Addr.Src.Short)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, f.Payload)
}

func TestParse_RejectsFrameVersion3(t *testing.T) {
	fc := newControl(TypeData, false, false, false, false, false, false, AddrModeNone, AddrModeNone, version3)
	wire := []byte{byte(fc), byte(fc >> 8), 0x00, 0x00}
	_, err := Parse(wire)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParse_TooShort(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrMalformed)
}
