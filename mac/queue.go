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

package mac

import (
	"github.com/pkg/errors"
	"github.com/thvdveld/dot15d4/frame"
)

// ErrQueueFull is returned by txQueues.push when a destination's queue
// has reached its fixed capacity (§4.8 "fixed-capacity per-destination
// FIFO").
var ErrQueueFull = errors.New("mac: transmit queue full")

// pendingFrame is one queued outgoing frame, carrying everything the
// tsch engine needs to attempt delivery plus the bookkeeping the
// driver uses to resolve its eventual Result: attempts counts how many
// scheduled occurrences of the link have been spent on it, and
// resultCh is signaled exactly once, when the frame is finally
// acknowledged, dropped, or exhausts its retry budget.
type pendingFrame struct {
	payload    []byte
	seq        uint8
	ackRequest bool
	attempts   uint8
	resultCh   chan Result
}

// txQueues holds one fixed-capacity FIFO per destination address, the
// way a constrained host avoids a single global queue letting one slow
// neighbor starve delivery to every other neighbor.
type txQueues struct {
	capacity int
	byDest   map[frame.Address][]pendingFrame
}

// newTxQueues returns a txQueues whose per-destination queues hold at
// most capacity frames each.
func newTxQueues(capacity int) *txQueues {
	return &txQueues{
		capacity: capacity,
		byDest:   make(map[frame.Address][]pendingFrame),
	}
}

// push enqueues f for dest, returning ErrQueueFull if dest's queue is
// already at capacity.
func (q *txQueues) push(dest frame.Address, f pendingFrame) error {
	if len(q.byDest[dest]) >= q.capacity {
		return ErrQueueFull
	}
	q.byDest[dest] = append(q.byDest[dest], f)
	return nil
}

// pop removes and returns the oldest frame queued for dest, if any.
func (q *txQueues) pop(dest frame.Address) (pendingFrame, bool) {
	fs := q.byDest[dest]
	if len(fs) == 0 {
		return pendingFrame{}, false
	}
	f := fs[0]
	q.byDest[dest] = fs[1:]
	return f, true
}

// requeueFront pushes f back onto the front of dest's queue, used when
// a csma/tsch attempt consumes a frame but must give it back unsent
// (e.g. a channel access failure that the caller wants retried later).
func (q *txQueues) requeueFront(dest frame.Address, f pendingFrame) {
	q.byDest[dest] = append([]pendingFrame{f}, q.byDest[dest]...)
}

// len reports how many frames are queued for dest.
func (q *txQueues) len(dest frame.Address) int {
	return len(q.byDest[dest])
}
