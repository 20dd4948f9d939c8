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

func TestHeaderIEChain_EmptyEndsWithTermination(t *testing.T) {
	buf := make([]byte, 4)
	w := octet.NewWriter(buf)
	assert.NoError(t, encodeHeaderTermination(w, true))

	chain := DecodeHeaderIEs(octet.NewReader(w.Bytes()))
	_, ok, err := chain.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, chain.Terminated())
	assert.True(t, chain.FollowedByPayloadIEs())
}

func TestHeaderIEChain_OneIEThenTermination(t *testing.T) {
	buf := make([]byte, 16)
	w := octet.NewWriter(buf)
	assert.NoError(t, encodeHeaderIE(w, HeaderIE{ID: 0x2b, Content: []byte{0xaa, 0xbb}}))
	assert.NoError(t, encodeHeaderTermination(w, false))

	chain := DecodeHeaderIEs(octet.NewReader(w.Bytes()))
	ie, ok, err := chain.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(0x2b), ie.ID)
	assert.Equal(t, []byte{0xaa, 0xbb}, ie.Content)

	_, ok, err = chain.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, chain.Terminated())
	assert.False(t, chain.FollowedByPayloadIEs())
}

func TestPayloadIEChain_StopsAtTerminationIE(t *testing.T) {
	buf := make([]byte, 16)
	w := octet.NewWriter(buf)
	assert.NoError(t, encodePayloadIE(w, PayloadIE{ID: PayloadIEIDMLME, Content: []byte{0x01, 0x02}}))
	assert.NoError(t, encodePayloadTermination(w))
	assert.NoError(t, w.PutBytes([]byte{0xca, 0xfe}))

	r := octet.NewReader(w.Bytes())
	chain := DecodePayloadIEs(r)
	ie, ok, err := chain.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, PayloadIEIDMLME, ie.ID)

	_, ok, err = chain.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, chain.Terminated())

	assert.Equal(t, []byte{0xca, 0xfe}, r.Remaining())
}

// TestMLMESubIEChain_ConcreteScenario decodes the MLME Payload IE
// content from the hex scenario in the test vectors: a TSCH
// Synchronization sub-IE (ASN=14, join metric=0), a TSCH Timeslot
// sub-IE (default template), a Channel Hopping sub-IE (sequence ID 0),
// and a TSCH Slotframe and Link sub-IE (zero slotframes advertised).
func TestMLMESubIEChain_ConcreteScenario(t *testing.T) {
	content, err := hex.DecodeString("061a0e0000000000011c0001c800011b00")
	assert.NoError(t, err)

	chain := DecodeMLME(content)

	sub, ok, err := chain.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mlmeSubIDTSCHSynchronization, sub.SubID)
	assert.False(t, sub.Long)
	sync, err := decodeTSCHSynchronization(sub.Content)
	assert.NoError(t, err)
	assert.Equal(t, ASN(14), sync.ASN)
	assert.Equal(t, uint8(0), sync.JoinMetric)

	sub, ok, err = chain.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mlmeSubIDTSCHTimeslot, sub.SubID)
	ts, err := decodeTSCHTimeslot(sub.Content)
	assert.NoError(t, err)
	assert.False(t, ts.Explicit)
	assert.Equal(t, uint8(0), ts.TemplateID)

	sub, ok, err = chain.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mlmeSubIDChannelHopping, sub.SubID)
	assert.True(t, sub.Long)
	ch, err := decodeChannelHopping(sub.Content)
	assert.NoError(t, err)
	assert.False(t, ch.Explicit)
	assert.Equal(t, uint8(0), ch.SequenceID)

	sub, ok, err = chain.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mlmeSubIDTSCHSlotframeAndLink, sub.SubID)
	sfl, err := decodeTSCHSlotframeAndLink(sub.Content)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(sfl.Slotframes))

	_, ok, err = chain.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTSCHSlotframeAndLink_RoundTrip(t *testing.T) {
	in := TSCHSlotframeAndLink{Slotframes: []TSCHSlotframe{
		{
			Handle: 1,
			Size:   101,
			Links: []TSCHLink{
				{Timeslot: 1, ChannelOffset: 2, Options: LinkOptionTX},
				{Timeslot: 3, ChannelOffset: 0, Options: LinkOptionRX | LinkOptionTimekeeping},
			},
		},
	}}
	content, err := encodeTSCHSlotframeAndLink(in)
	assert.NoError(t, err)

	out, err := decodeTSCHSlotframeAndLink(content)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTSCHTimeslot_ExplicitRoundTrip(t *testing.T) {
	in := TSCHTimeslot{
		TemplateID: 0, Explicit: true,
		CCAOffset: 1800, CCA: 128, TxOffset: 2120, RxOffset: 1020,
		RxAckDelay: 800, TxAckDelay: 1000, RxWait: 2200, AckWait: 400,
		RxTxTransition: 192, MaxAck: 2400, MaxTx: 4256, TimeslotLength: 10000,
	}
	content := encodeTSCHTimeslot(in)
	assert.Equal(t, 25, len(content))

	out, err := decodeTSCHTimeslot(content)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}
