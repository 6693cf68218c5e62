package results

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/toolbridge/toolbridge/pkg/errorsx"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

const (
	DefaultMaxContentLength = 50000

	genericFailureMessage = "Tool execution failed"
	truncationMarker      = "... [truncated]"
)

type Config struct {
	ValidateIDs        bool
	IncludeErrorDetail bool
	MaxContentLength   int
}

func DefaultConfig() Config {
	return Config{
		ValidateIDs:        true,
		IncludeErrorDetail: true,
		MaxContentLength:   DefaultMaxContentLength,
	}
}

// ToolResult is an externally executed tool outcome supplied by the host.
type ToolResult struct {
	ToolCallID string
	Success    bool
	Output     any
	Error      string
}

type ResultError struct {
	ToolCallID string
	Reason     errorsx.ReasonCode
	Message    string
}

type Summary struct {
	Received int
	Emitted  int
	Failed   int
	Skipped  int
	Missing  int
}

// Outcome accumulates per-result errors instead of failing: one malformed
// result never blocks processing of the remainder.
type Outcome struct {
	ToolMessages []wire.Message
	Errors       []ResultError
	Summary      Summary
}

// Processor validates and normalizes externally supplied tool results into
// conversation messages.
type Processor struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = DefaultMaxContentLength
	}
	return &Processor{cfg: cfg, log: logger}
}

// Process builds a tool message per result. Unknown ids are recorded and
// skipped; original calls with no result are reported as missing, never
// fabricated.
func (p *Processor) Process(toolResults []ToolResult, originalCalls []wire.ToolCall) Outcome {
	known := make(map[string]bool, len(originalCalls))
	for _, call := range originalCalls {
		known[call.ID] = true
	}

	out := Outcome{Summary: Summary{Received: len(toolResults)}}
	resolved := make(map[string]bool, len(toolResults))
	for _, r := range toolResults {
		if p.cfg.ValidateIDs && !known[r.ToolCallID] {
			p.log.Warn("result_unknown_id", "tool_call_id", r.ToolCallID)
			out.Errors = append(out.Errors, ResultError{
				ToolCallID: r.ToolCallID,
				Reason:     errorsx.ReasonResultUnknownID,
				Message:    fmt.Sprintf("result for unknown call id %q", r.ToolCallID),
			})
			out.Summary.Skipped++
			continue
		}
		if !r.Success {
			out.Summary.Failed++
		}
		out.ToolMessages = append(out.ToolMessages, wire.Message{
			Role:       wire.RoleTool,
			ToolCallID: r.ToolCallID,
			Content:    wire.String(p.truncate(p.content(r))),
		})
		resolved[r.ToolCallID] = true
		out.Summary.Emitted++
	}

	for _, call := range originalCalls {
		if resolved[call.ID] {
			continue
		}
		out.Errors = append(out.Errors, ResultError{
			ToolCallID: call.ID,
			Reason:     errorsx.ReasonResultMissing,
			Message:    fmt.Sprintf("no result received for call id %q", call.ID),
		})
		out.Summary.Missing++
	}
	return out
}

func (p *Processor) content(r ToolResult) string {
	if !r.Success {
		if p.cfg.IncludeErrorDetail && r.Error != "" {
			return r.Error
		}
		return genericFailureMessage
	}
	return serialize(r.Output)
}

// serialize passes primitives through as strings and pretty-prints
// structures; a marshal failure falls back to string coercion.
func serialize(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool, int, int32, int64, float32, float64, json.Number:
		return fmt.Sprintf("%v", val)
	default:
		b, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// truncate cuts deterministically at the configured offset.
func (p *Processor) truncate(content string) string {
	if len(content) <= p.cfg.MaxContentLength {
		return content
	}
	return content[:p.cfg.MaxContentLength] + truncationMarker
}
