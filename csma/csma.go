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

// Package csma implements the unslotted CSMA/CA engine (§4.6): the
// state machine that drives a single outgoing frame through backoff,
// clear-channel assessment, transmission, and (if requested) the ACK
// wait window. The engine owns no goroutine of its own; Send blocks
// the calling goroutine at exactly the suspension points §5 names
// (backoff delay, CCA, transmit completion, ACK receive window) by
// calling into the Sleeper and Capability it was built with — the
// natural Go stand-in for the cooperative poll primitive the design
// notes describe (see DESIGN.md).
package csma

import (
	"github.com/thvdveld/dot15d4/clock"
	"github.com/thvdveld/dot15d4/frame"
	"github.com/thvdveld/dot15d4/logger"
	"github.com/thvdveld/dot15d4/macconf"
	"github.com/thvdveld/dot15d4/prng"
	"github.com/thvdveld/dot15d4/radio"
)

// Result is the outcome of one Send call.
type Result uint8

const (
	Success Result = iota
	NoAck
	ChannelAccessFailure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NoAck:
		return "no-ack"
	case ChannelAccessFailure:
		return "channel-access-failure"
	default:
		return "unknown"
	}
}

// Engine drives one radio through the CSMA/CA algorithm on behalf of
// the MAC driver. It is not safe for concurrent use by multiple
// goroutines; the MAC driver serializes access to it the same way it
// exclusively owns the radio capability (§5 "Shared resources").
type Engine struct {
	radio radio.Capability
	rng   prng.Source
	clk   clock.Sleeper
	conf  macconf.Config
}

// New returns an Engine driving r, drawing backoff jitter from rng and
// timing its suspension points against clk, per conf.
func New(r radio.Capability, rng prng.Source, clk clock.Sleeper, conf macconf.Config) *Engine {
	return &Engine{radio: r, rng: rng, clk: clk, conf: conf}
}

// Send runs the §4.6 algorithm to completion for one frame, which must
// already carry seq as its sequence number and the AR bit set iff
// ackRequest. It returns once the frame has either been acknowledged
// (or, for ackRequest=false, transmitted), or the retry/backoff budget
// in conf is exhausted.
func (e *Engine) Send(frameBytes []byte, seq uint8, ackRequest bool) (Result, error) {
	var retries uint8
	for {
		nb := uint8(0)
		be := e.conf.MinBE

		for {
			if window := (uint32(1) << be) - 1; window > 0 {
				backoff := uint64(prng.Intn(e.rng, int(window)+1))
				e.clk.SleepUntil(clock.Add(e.clk.Now(), backoff*uint64(e.conf.UnitBackoff)))
			}

			result, err := e.radio.CCA()
			if err != nil {
				return 0, err
			}
			if result == radio.Clear {
				break
			}

			nb++
			if be < e.conf.MaxBE {
				be++
			}
			if nb > e.conf.MaxCSMABackoffs {
				return ChannelAccessFailure, nil
			}
		}

		if _, err := e.radio.Transmit(frameBytes, nil); err != nil {
			return 0, err
		}
		if !ackRequest {
			return Success, nil
		}

		acked, err := e.waitForAck(seq)
		if err != nil {
			return 0, err
		}
		if acked {
			return Success, nil
		}

		retries++
		if retries > e.conf.MaxFrameRetries {
			logger.Debugf("csma: giving up on seq %d after %d retries", seq, retries-1)
			return NoAck, nil
		}
	}
}

// waitForAck opens the ACK receive window and reports whether a
// well-formed Ack frame carrying seq arrived before it closed.
func (e *Engine) waitForAck(seq uint8) (bool, error) {
	e.radio.EnableAckFiltering(seq)
	defer e.radio.DisableAckFiltering()

	buf := make([]byte, radio.MaxPSDU)
	until := clock.Add(e.clk.Now(), uint64(e.conf.AckWaitDuration))
	n, _, ok, err := e.radio.Receive(buf, until)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	f, err := frame.ParseWithoutFCS(buf[:n])
	if err != nil {
		logger.Debugf("csma: dropping malformed frame in ACK window: %v", err)
		return false, nil
	}
	return f.Control.FrameType() == frame.TypeAck && f.HasSeq && f.Seq == seq, nil
}
