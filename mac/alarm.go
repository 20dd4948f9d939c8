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
	"container/heap"

	"github.com/thvdveld/dot15d4/clock"
	"github.com/thvdveld/dot15d4/logger"
)

// alarmEvent is one named wake-up point the driver's event loop waits
// on: the TSCH slot boundary today, with room for more (a CSMA retry
// backoff, an ACK-wait deadline) if a future caller drives those
// through the loop instead of a direct blocking Send.
type alarmEvent struct {
	id        string
	timestamp clock.Instant
	index     int
}

type alarmHeap []*alarmEvent

func (h alarmHeap) Len() int            { return len(h) }
func (h alarmHeap) Less(i, j int) bool  { return h[i].timestamp < h[j].timestamp }
func (h alarmHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *alarmHeap) Push(x interface{}) {
	e := x.(*alarmEvent)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *alarmHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// alarmQueue is a min-heap of named alarms: instead of one alarm per
// simulated node it holds one per wake-up reason the driver's event
// loop multiplexes.
type alarmQueue struct {
	h      alarmHeap
	byName map[string]*alarmEvent
}

func newAlarmQueue() *alarmQueue {
	q := &alarmQueue{byName: map[string]*alarmEvent{}}
	heap.Init(&q.h)
	return q
}

// Set schedules (or reschedules) the alarm named id to fire at ts.
func (q *alarmQueue) Set(id string, ts clock.Instant) {
	if e, ok := q.byName[id]; ok {
		e.timestamp = ts
		heap.Fix(&q.h, e.index)
		return
	}
	e := &alarmEvent{id: id, timestamp: ts}
	heap.Push(&q.h, e)
	q.byName[id] = e
}

// Clear removes the alarm named id, if set.
func (q *alarmQueue) Clear(id string) {
	e, ok := q.byName[id]
	if !ok {
		return
	}
	heap.Remove(&q.h, e.index)
	delete(q.byName, id)
}

// Next returns the id and timestamp of the earliest-firing alarm, and
// false if no alarm is scheduled.
func (q *alarmQueue) Next() (string, clock.Instant, bool) {
	if len(q.h) == 0 {
		return "", clock.Ever, false
	}
	return q.h[0].id, q.h[0].timestamp, true
}

func (q *alarmQueue) logState() {
	id, ts, ok := q.Next()
	if !ok {
		logger.Tracef("mac: alarm queue empty")
		return
	}
	logger.Tracef("mac: next alarm %q at %d", id, ts)
}
