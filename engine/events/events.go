// Package events holds the scheduler's pending-work queue and the timeline
// sinks that receive what a run produced.
package events

import (
	"container/heap"
	"time"

	"github.com/nathoo/aplcore/types"
)

// Kind tags a pending queue item.
type Kind string

const (
	KindDecision     Kind = "decision"
	KindCastComplete Kind = "cast_complete"
	KindDotTick      Kind = "dot_tick"
	KindExpire       Kind = "expire"
	KindCooldownUp   Kind = "cooldown_ready"
	KindManaTick     Kind = "mana_tick"
)

// Item is one pending occurrence. Generation is only meaningful for dot
// ticks and expiries; stale generations are ignored when popped.
type Item struct {
	At         time.Duration
	Kind       Kind
	SpellID    types.SpellID
	Target     int
	Generation int
	Entry      int

	seq uint64
}

// Queue is a min-queue ordered by time, then by insertion order. Items
// scheduled for the same instant pop in the order they were pushed, so a
// run never depends on heap internals.
type Queue struct {
	items itemHeap
	seq   uint64
}

// Push schedules an item.
func (q *Queue) Push(it Item) {
	q.seq++
	it.seq = q.seq
	heap.Push(&q.items, it)
}

// Pop removes and returns the earliest item.
func (q *Queue) Pop() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return heap.Pop(&q.items).(Item), true
}

// Peek returns the earliest item without removing it.
func (q *Queue) Peek() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

func (q *Queue) Len() int { return len(q.items) }

type itemHeap []Item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].At != h[j].At {
		return h[i].At < h[j].At
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(Item)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Sink receives timeline events in emission order.
type Sink interface {
	Emit(ev types.Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ev types.Event)

func (f SinkFunc) Emit(ev types.Event) { f(ev) }

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	Events []types.Event
}

func (r *Recorder) Emit(ev types.Event) { r.Events = append(r.Events, ev) }

// Multi fans each event out to several sinks. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ev types.Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(ev)
			}
		}
	})
}
