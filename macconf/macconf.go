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

// Package macconf holds the MAC constants §6 calls out as
// "compile-time constants, overridable at build time" and rejects an
// out-of-range override as early as possible. Go has no const-generic
// range assertion the way the original language does, so Validate is
// called from an init()-installed Default so a bad override panics at
// program start rather than silently misbehaving in the field.
package macconf

import (
	"github.com/pkg/errors"
	"github.com/thvdveld/dot15d4/logger"
)

// Config holds the §6 MAC constants.
type Config struct {
	MinBE           uint8
	MaxBE           uint8
	UnitBackoff     uint32 // microseconds
	MaxFrameRetries uint8
	MaxCSMABackoffs uint8
	AckWaitDuration uint32 // microseconds; aMacAckWaitDuration
	AIFS            uint32 // microseconds
	SIFS            uint32 // microseconds
	LIFS            uint32 // microseconds

	// MaxClockSlew bounds how far one TSCH time-source correction may
	// move the local clock, microseconds per correction (§4.7 "apply
	// to local time base within a bounded slew rate").
	MaxClockSlew uint32
}

// Default returns the §6 default Config: MinBE=0, MaxBE=8,
// UnitBackoff=320µs, MaxFrameRetries=3, AIFS=1ms, SIFS=1ms, LIFS=10ms.
// MaxCSMABackoffs follows the IEEE default of 4, consumed by the §4.6
// state machine but not otherwise listed alongside the others.
func Default() Config {
	return Config{
		MinBE:           0,
		MaxBE:           8,
		UnitBackoff:     320,
		MaxFrameRetries: 3,
		MaxCSMABackoffs: 4,
		AckWaitDuration: 864,
		MaxClockSlew:    1000,
		AIFS:            1000,
		SIFS:            1000,
		LIFS:            10000,
	}
}

// Validate reports the first out-of-range field it finds, matching
// the IEEE bounds on the backoff exponent (0-8) and the "MaxBE ≥
// MinBE" invariant §4.6 depends on.
func (c Config) Validate() error {
	if c.MaxBE > 8 {
		return errors.Errorf("MaxBE %d exceeds the IEEE maximum of 8", c.MaxBE)
	}
	if c.MinBE > c.MaxBE {
		return errors.Errorf("MinBE %d exceeds MaxBE %d", c.MinBE, c.MaxBE)
	}
	if c.UnitBackoff == 0 {
		return errors.New("UnitBackoff must be non-zero")
	}
	if c.SIFS == 0 || c.LIFS == 0 {
		return errors.New("SIFS and LIFS must be non-zero")
	}
	return nil
}

// init validates the package default eagerly, the closest Go analogue
// to the original's compile-time const assertion (see DESIGN.md Open
// Question "macconf validation timing").
func init() {
	if err := Default().Validate(); err != nil {
		logger.Panicf("macconf: invalid default configuration: %v", err)
	}
}
