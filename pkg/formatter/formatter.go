package formatter

import (
	"encoding/json"
	"log/slog"

	"github.com/toolbridge/toolbridge/pkg/wire"
)

// DefaultMinFragmentSize is the floor for streamed argument fragments.
const DefaultMinFragmentSize = 10

type Config struct {
	MinFragmentSize int
}

func (c Config) withDefaults() Config {
	if c.MinFragmentSize <= 0 {
		c.MinFragmentSize = DefaultMinFragmentSize
	}
	return c
}

// DroppedCall records a call excluded from wire output and why.
type DroppedCall struct {
	Call   wire.ToolCall
	Errors []string
}

// Diagnostics reports calls that failed structural validation. Invalid calls
// never reach wire output but are never silently discarded either.
type Diagnostics struct {
	Dropped []DroppedCall
}

// StreamMeta identifies the completion a chunk sequence belongs to.
type StreamMeta struct {
	ID      string
	Model   string
	Created int64
}

// Formatter renders generated calls as atomic choice objects or ordered
// streaming chunk sequences.
type Formatter struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Formatter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{cfg: cfg.withDefaults(), log: logger}
}

// Atomic renders one choice object. With at least one valid call the message
// content is forced to null and finish_reason is "tool_calls"; otherwise the
// plain text is returned with finish_reason "stop".
func (f *Formatter) Atomic(text string, calls []wire.ToolCall) (wire.Choice, Diagnostics) {
	valid, diags := f.filterValid(calls)
	if len(valid) > 0 {
		return wire.Choice{
			Message: wire.Message{
				Role:      wire.RoleAssistant,
				Content:   nil,
				ToolCalls: valid,
			},
			FinishReason: wire.FinishToolCalls,
		}, diags
	}
	return wire.Choice{
		Message: wire.Message{
			Role:    wire.RoleAssistant,
			Content: wire.String(text),
		},
		FinishReason: wire.FinishStop,
	}, diags
}

// Stream renders the ordered chunk sequence: a role declaration, then per
// call an open chunk followed by argument fragments, then one terminating
// chunk. Concatenating the fragments for a call id reproduces its arguments
// string byte for byte.
func (f *Formatter) Stream(meta StreamMeta, text string, calls []wire.ToolCall) ([]wire.Chunk, Diagnostics) {
	valid, diags := f.filterValid(calls)

	var chunks []wire.Chunk
	chunks = append(chunks, f.chunk(meta, wire.ChunkChoice{
		Delta: wire.Delta{Role: wire.RoleAssistant},
	}))

	finish := wire.FinishStop
	if len(valid) > 0 {
		finish = wire.FinishToolCalls
		for i, call := range valid {
			chunks = append(chunks, f.chunk(meta, wire.ChunkChoice{
				Delta: wire.Delta{ToolCalls: []wire.ToolCallDelta{{
					Index:    i,
					ID:       call.ID,
					Type:     call.Type,
					Function: &wire.FunctionCallDelta{Name: call.Function.Name},
				}}},
			}))
			for _, frag := range splitFragments(call.Function.Arguments, f.cfg.MinFragmentSize) {
				chunks = append(chunks, f.chunk(meta, wire.ChunkChoice{
					Delta: wire.Delta{ToolCalls: []wire.ToolCallDelta{{
						Index:    i,
						Function: &wire.FunctionCallDelta{Arguments: frag},
					}}},
				}))
			}
		}
	} else {
		for _, frag := range splitFragments(text, f.cfg.MinFragmentSize) {
			piece := frag
			chunks = append(chunks, f.chunk(meta, wire.ChunkChoice{
				Delta: wire.Delta{Content: &piece},
			}))
		}
	}

	chunks = append(chunks, f.chunk(meta, wire.ChunkChoice{
		Delta:        wire.Delta{},
		FinishReason: &finish,
	}))
	return chunks, diags
}

func (f *Formatter) chunk(meta StreamMeta, choice wire.ChunkChoice) wire.Chunk {
	return wire.Chunk{
		ID:      meta.ID,
		Object:  wire.ObjectChunk,
		Created: meta.Created,
		Model:   meta.Model,
		Choices: []wire.ChunkChoice{choice},
	}
}

func (f *Formatter) filterValid(calls []wire.ToolCall) ([]wire.ToolCall, Diagnostics) {
	var valid []wire.ToolCall
	var diags Diagnostics
	for _, call := range calls {
		if errs := ValidateToolCall(call); len(errs) > 0 {
			f.log.Warn("format_drop_call", "id", call.ID, "function", call.Function.Name, "errors", errs)
			diags.Dropped = append(diags.Dropped, DroppedCall{Call: call, Errors: errs})
			continue
		}
		valid = append(valid, call)
	}
	return valid, diags
}

// ValidateToolCall runs the structural checks required before emission.
func ValidateToolCall(call wire.ToolCall) []string {
	var errs []string
	if call.ID == "" {
		errs = append(errs, "empty call id")
	}
	if call.Type != wire.ToolTypeFunction {
		errs = append(errs, "type must be \"function\"")
	}
	if call.Function.Name == "" {
		errs = append(errs, "empty function name")
	}
	if !json.Valid([]byte(call.Function.Arguments)) {
		errs = append(errs, "arguments are not valid JSON")
	}
	return errs
}

// splitFragments partitions s into pieces of size max(minSize, len/3).
// The pieces always reassemble to s exactly.
func splitFragments(s string, minSize int) []string {
	if s == "" {
		return []string{""}
	}
	size := len(s) / 3
	if size < minSize {
		size = minSize
	}
	var out []string
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[start:end])
	}
	return out
}
