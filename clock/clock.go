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

// Package clock defines the monotonic time capability the MAC engines
// are driven against (§6, "Clock trait"). Instant is microseconds
// since an arbitrary epoch fixed at host boot.
package clock

// Instant is a monotonic timestamp in microseconds.
type Instant uint64

// Ever is a timestamp that never arrives, used as a "no alarm pending"
// sentinel for an empty alarm-queue slot.
const Ever Instant = ^Instant(0)

// Clock is the abstract monotonic microsecond clock a host provides.
type Clock interface {
	// Now returns the current time.
	Now() Instant
}

// Add returns i advanced by d microseconds, saturating at Ever instead
// of wrapping, so a deadline arithmetic overflow never produces a
// timestamp that appears to already be due.
func Add(i Instant, d uint64) Instant {
	if d >= uint64(Ever)-uint64(i) {
		return Ever
	}
	return i + Instant(d)
}

// Before reports whether a happens strictly before b.
func Before(a, b Instant) bool {
	return a < b
}

// Sleeper is the blocking counterpart of Clock, a delay-until-deadline
// primitive. The CSMA and TSCH engines call SleepUntil at each of
// their documented suspension points (§5); a real target backs it with
// a hardware timer, a hosted/simulated target just advances its clock.
type Sleeper interface {
	Clock
	// SleepUntil blocks (or, for a simulated clock, jumps) until t.
	// Calling it with a t not after Now is a no-op.
	SleepUntil(t Instant)
}

// SimClock is a deterministic Sleeper for tests: SleepUntil jumps
// straight to its argument instead of waiting in real time, driving
// simulated nodes from a virtual clock rather than the wall clock.
type SimClock struct {
	now Instant
}

// NewSimClock returns a SimClock starting at start.
func NewSimClock(start Instant) *SimClock {
	return &SimClock{now: start}
}

func (c *SimClock) Now() Instant {
	return c.now
}

func (c *SimClock) SleepUntil(t Instant) {
	if t > c.now {
		c.now = t
	}
}

// Advance moves the simulated clock forward by d microseconds,
// independent of any SleepUntil call, for tests that need to model
// time passing between polls.
func (c *SimClock) Advance(d uint64) {
	c.now = Add(c.now, d)
}

// Adjustable is implemented by a Clock that can have its time base
// slewed by a signed correction, the capability the TSCH engine's
// time-source tracking needs (§4.7) to pull the local clock towards a
// neighbor's. A Clock with no drift to correct (e.g. a host with its
// own disciplined oscillator) need not implement it.
type Adjustable interface {
	// AdjustBy slews the clock by delta microseconds, which may be
	// negative.
	AdjustBy(delta int64)
}

// AdjustBy implements Adjustable for SimClock.
func (c *SimClock) AdjustBy(delta int64) {
	c.now = Instant(int64(c.now) + delta)
}
