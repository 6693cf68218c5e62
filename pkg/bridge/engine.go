package bridge

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toolbridge/toolbridge/pkg/conversation"
	"github.com/toolbridge/toolbridge/pkg/detector"
	"github.com/toolbridge/toolbridge/pkg/formatter"
	"github.com/toolbridge/toolbridge/pkg/intent"
	"github.com/toolbridge/toolbridge/pkg/logging"
	"github.com/toolbridge/toolbridge/pkg/mapper"
	"github.com/toolbridge/toolbridge/pkg/redact"
	"github.com/toolbridge/toolbridge/pkg/results"
	"github.com/toolbridge/toolbridge/pkg/stats"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

// Engine wires the translation pipeline behind one façade: free text in,
// protocol-shaped completions out, tool results folded back. All work is
// synchronous and allocation-local, so one Engine serves any number of
// conversations concurrently.
type Engine struct {
	cfg       Config
	detector  *detector.Detector
	formatter *formatter.Formatter
	results   *results.Processor
	stats     stats.Recorder
	log       *slog.Logger
}

func NewEngine(cfg Config) *Engine {
	base := slog.Default()
	redact.SetEnabled(cfg.Privacy.RedactPII)

	parser := intent.NewParser(nil, logging.NewComponentLogger(base, "intent"))
	toolMapper := mapper.New(logging.NewComponentLogger(base, "mapper"))
	det := detector.New(detector.Config{
		ConfidenceThreshold: cfg.Detector.ConfidenceThreshold,
		MaxToolCalls:        cfg.Detector.MaxToolCalls,
		IDPrefix:            cfg.Detector.IDPrefix,
	}, parser, toolMapper, logging.NewComponentLogger(base, "detector"))

	return &Engine{
		cfg:      cfg,
		detector: det,
		formatter: formatter.New(formatter.Config{
			MinFragmentSize: cfg.Formatter.MinFragmentSize,
		}, logging.NewComponentLogger(base, "formatter")),
		results: results.New(results.Config{
			ValidateIDs:        cfg.Results.ValidateIDs,
			IncludeErrorDetail: cfg.Results.IncludeErrorDetail,
			MaxContentLength:   cfg.Results.MaxContentLength,
		}, logging.NewComponentLogger(base, "results")),
		stats: stats.NoopRecorder{},
		log:   logging.NewComponentLogger(base, "bridge"),
	}
}

// SetStats installs a pipeline event recorder. Nil restores the noop.
func (e *Engine) SetStats(rec stats.Recorder) {
	if rec == nil {
		rec = stats.NoopRecorder{}
	}
	e.stats = rec
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Detect runs text through the parse → gate → map pipeline.
func (e *Engine) Detect(text string, tools []wire.Tool) detector.Detection {
	det := e.detector.Detect(text, tools)
	e.log.Debug("detect",
		"needs_tools", det.NeedsTools,
		"calls", len(det.ToolCalls),
		"reasoning", det.Reasoning,
		"text", redact.Text(text),
	)
	name := "detection_no_tools"
	if det.NeedsTools {
		name = "detection_tool_calls"
	}
	e.stats.Record(stats.Event{
		Name:  name,
		Time:  time.Now(),
		Value: float64(len(det.ToolCalls)),
	})
	return det
}

// Complete translates model text into one atomic chat completion.
func (e *Engine) Complete(model, text string, tools []wire.Tool) (wire.ChatCompletion, detector.Detection, formatter.Diagnostics) {
	det := e.Detect(text, tools)
	choice, diags := e.formatter.Atomic(det.OriginalResponse, det.ToolCalls)
	completion := wire.ChatCompletion{
		ID:      NewCompletionID(),
		Object:  wire.ObjectCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []wire.Choice{choice},
	}
	return completion, det, diags
}

// CompleteStream translates model text into the ordered chunk sequence.
func (e *Engine) CompleteStream(model, text string, tools []wire.Tool) ([]wire.Chunk, detector.Detection, formatter.Diagnostics) {
	det := e.Detect(text, tools)
	meta := formatter.StreamMeta{
		ID:      NewCompletionID(),
		Model:   model,
		Created: time.Now().Unix(),
	}
	chunks, diags := e.formatter.Stream(meta, det.OriginalResponse, det.ToolCalls)
	return chunks, det, diags
}

// ProcessResults normalizes externally executed tool results against the
// calls that requested them.
func (e *Engine) ProcessResults(toolResults []results.ToolResult, originalCalls []wire.ToolCall) results.Outcome {
	out := e.results.Process(toolResults, originalCalls)
	e.stats.Record(stats.Event{
		Name:  "results_processed",
		Time:  time.Now(),
		Value: float64(out.Summary.Emitted),
		Tags: map[string]string{
			"failed":  strconv.Itoa(out.Summary.Failed),
			"skipped": strconv.Itoa(out.Summary.Skipped),
			"missing": strconv.Itoa(out.Summary.Missing),
		},
	})
	return out
}

// NewConversation opens a tracked conversation.
func (e *Engine) NewConversation(systemPrompt string) conversation.Context {
	return conversation.New(systemPrompt)
}

// HistoryLimit is the configured message window for model-visible history.
func (e *Engine) HistoryLimit() int {
	return e.cfg.Conversation.MaxHistory
}

// NewCompletionID mints a completion identifier in the protocol's format.
func NewCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
