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

//go:build linux

package cs

import (
	"sync"

	"golang.org/x/sys/unix"
)

// POSIX is a reference Section implementation for hosted test/reference
// targets: it blocks delivery of SIGALRM (the signal a hosted
// simulation uses to model the radio ISR) for the duration of the
// closure, via golang.org/x/sys/unix thread signal masking, then
// restores the previous mask. A real embedded target implements
// Section directly over its interrupt controller; this exists so the
// engines can be exercised on a development machine without a second,
// fake implementation of the contract.
type POSIX struct {
	mu sync.Mutex
}

// NewPOSIX returns a POSIX critical-section implementation.
func NewPOSIX() *POSIX {
	return &POSIX{}
}

func sigsetAdd(set *unix.Sigset_t, sig int) {
	set.Val[(sig-1)/64] |= 1 << uint((sig-1)%64)
}

func (p *POSIX) WithCS(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var mask, old unix.Sigset_t
	sigsetAdd(&mask, int(unix.SIGALRM))
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &mask, &old); err != nil {
		fn()
		return
	}
	defer func() {
		_ = unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil)
	}()

	fn()
}
