package stats

import (
	"testing"
	"time"
)

func TestMemoryRecorderCounts(t *testing.T) {
	m := NewMemoryRecorder()
	m.Record(Event{Name: "detection_tool_calls", Time: time.Now(), Value: 2})
	m.Record(Event{Name: "detection_tool_calls", Time: time.Now(), Value: 1})
	m.Record(Event{Name: "detection_no_tools", Time: time.Now()})

	counts := m.Counts()
	if counts["detection_tool_calls"] != 3 {
		t.Fatalf("expected 3, got %v", counts["detection_tool_calls"])
	}
	if len(m.Events()) != 3 {
		t.Fatalf("expected 3 events, got %d", len(m.Events()))
	}
}

func TestMemoryRecorderEventsIsCopy(t *testing.T) {
	m := NewMemoryRecorder()
	m.Record(Event{Name: "a"})
	events := m.Events()
	events[0].Name = "mutated"
	if m.Events()[0].Name != "a" {
		t.Fatalf("Events must return a copy")
	}
}

func TestAsyncRecorderDelivers(t *testing.T) {
	m := NewMemoryRecorder()
	a := NewAsyncRecorder(m, 8)
	for i := 0; i < 5; i++ {
		a.Record(Event{Name: "e", Value: 1})
	}
	deadline := time.After(time.Second)
	for {
		if m.Counts()["e"] == 5 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("events not delivered, got %v", m.Counts())
		case <-time.After(5 * time.Millisecond):
		}
	}
	a.Close()
	a.Record(Event{Name: "e"})
	if a.Dropped() != 0 {
		t.Fatalf("post-close record must be ignored, not counted dropped")
	}
}

func TestNoopRecorder(t *testing.T) {
	NoopRecorder{}.Record(Event{Name: "ignored"})
}
