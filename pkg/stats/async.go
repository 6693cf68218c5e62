package stats

import (
	"sync"
	"sync/atomic"
)

// AsyncRecorder decouples recording from the request path. Events that do not
// fit the buffer are dropped, never blocked on.
type AsyncRecorder struct {
	inner   Recorder
	ch      chan Event
	dropped int64
	closed  atomic.Bool
	once    sync.Once
}

func NewAsyncRecorder(inner Recorder, buffer int) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 256
	}
	a := &AsyncRecorder{
		inner: inner,
		ch:    make(chan Event, buffer),
	}
	go a.loop()
	return a
}

func (a *AsyncRecorder) Record(ev Event) {
	if a == nil || a.closed.Load() {
		return
	}
	select {
	case a.ch <- ev:
	default:
		atomic.AddInt64(&a.dropped, 1)
	}
}

func (a *AsyncRecorder) Dropped() int64 {
	return atomic.LoadInt64(&a.dropped)
}

func (a *AsyncRecorder) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
	})
}

func (a *AsyncRecorder) loop() {
	for ev := range a.ch {
		a.inner.Record(ev)
	}
}
