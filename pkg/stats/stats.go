package stats

import "time"

// Event is one pipeline measurement: a detection outcome, a dropped call, a
// processed result batch. Tags identify the source, Value carries the count.
type Event struct {
	Name  string
	Time  time.Time
	Value float64
	Tags  map[string]string
}

type Recorder interface {
	Record(ev Event)
}

type NoopRecorder struct{}

func (NoopRecorder) Record(Event) {}
