package stats

import (
	"context"
	"io"
	"log/slog"
)

// JSONLRecorder writes one JSON line per event, suitable for offline analysis
// of detection quality.
type JSONLRecorder struct {
	logger *slog.Logger
}

func NewJSONLRecorder(w io.Writer) *JSONLRecorder {
	if w == nil {
		w = io.Discard
	}
	return &JSONLRecorder{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

func (r *JSONLRecorder) Record(ev Event) {
	attrs := []slog.Attr{
		slog.String("name", ev.Name),
		slog.Time("time", ev.Time),
		slog.Float64("value", ev.Value),
	}
	for k, v := range ev.Tags {
		attrs = append(attrs, slog.String(k, v))
	}
	r.logger.LogAttrs(context.TODO(), slog.LevelInfo, "stats", attrs...)
}
