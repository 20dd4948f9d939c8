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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16X25_KnownVectors(t *testing.T) {
	assert.Equal(t, uint16(0x906e), CRC16X25([]byte("123456789")))
	assert.Equal(t, uint16(0x0000), CRC16X25(nil))
}

func TestCRC16X25_MatchesWireTrailer(t *testing.T) {
	body := []byte{0x61, 0x88, 0x2a, 0xcd, 0xab, 0xff, 0xff, 0x34, 0x12}
	crc := CRC16X25(body)
	frame := append(append([]byte{}, body...), byte(crc), byte(crc>>8))

	f, err := Parse(frame)
	assert.NoError(t, err)
	assert.NoError(t, f.ValidateFCS())
}

func TestCRC16X25_DetectsCorruption(t *testing.T) {
	body := []byte{0x61, 0x88, 0x2a, 0xcd, 0xab, 0xff, 0xff, 0x34, 0x12}
	crc := CRC16X25(body)
	frame := append(append([]byte{}, body...), byte(crc), byte(crc>>8))
	frame[2] ^= 0xFF // corrupt the sequence number octet, leaving Frame Control intact

	f, err := Parse(frame)
	assert.NoError(t, err)
	assert.ErrorIs(t, f.ValidateFCS(), ErrInvalidFCS)
}
