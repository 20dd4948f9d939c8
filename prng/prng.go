// Copyright (c) 2024, The OTNS Authors.
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

// Package prng exposes the randomness capability that the CSMA engine
// consumes for backoff-window selection (§6, "Randomness trait"). The CORE never seeds or owns global process
// randomness itself: a host picks a Source implementation and hands
// it to the CSMA engine at construction.
package prng

import "math/rand"

// Source is the abstract randomness capability: next_u32() in spec
// terms. A hardware TRNG or a deterministic test source can both
// implement it.
type Source interface {
	// NextU32 returns a uniformly distributed 32-bit word.
	NextU32() uint32
}

// mathRandSource is the default Source, backed by math/rand. It is
// adequate for backoff jitter (not a cryptographic use) and is what a
// host without a hardware TRNG should start from.
type mathRandSource struct {
	r *rand.Rand
}

// NewMathRandSource returns a Source seeded deterministically from
// seed. Two sources built from the same seed produce the same
// sequence, which is what makes CSMA backoff behavior reproducible in
// tests (see the csma package tests).
func NewMathRandSource(seed int64) Source {
	return &mathRandSource{r: rand.New(rand.NewSource(seed))}
}

func (s *mathRandSource) NextU32() uint32 {
	return s.r.Uint32()
}

// Intn returns a uniform random integer in [0, n) drawn from src, the
// way the CSMA engine draws its backoff window. n must be > 0.
func Intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	return int(src.NextU32() % uint32(n))
}
