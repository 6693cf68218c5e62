package results

import (
	"strings"
	"testing"

	"github.com/toolbridge/toolbridge/pkg/errorsx"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

func originalCall(id string) wire.ToolCall {
	return wire.ToolCall{
		ID:       id,
		Type:     wire.ToolTypeFunction,
		Function: wire.FunctionCall{Name: "read_file", Arguments: "{}"},
	}
}

func TestSuccessResultBecomesToolMessage(t *testing.T) {
	p := New(DefaultConfig(), nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: true, Output: "file contents"}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	if len(out.ToolMessages) != 1 {
		t.Fatalf("expected 1 tool message, got %d", len(out.ToolMessages))
	}
	msg := out.ToolMessages[0]
	if msg.Role != wire.RoleTool || msg.ToolCallID != "call_1" {
		t.Fatalf("unexpected message shape: %+v", msg)
	}
	if *msg.Content != "file contents" {
		t.Fatalf("primitive output must pass through, got %q", *msg.Content)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
}

func TestUnknownIDRecordedAndSkipped(t *testing.T) {
	p := New(DefaultConfig(), nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_ghost", Success: true, Output: "x"}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	if len(out.ToolMessages) != 0 {
		t.Fatalf("no message may be emitted for an unknown id")
	}
	foundUnknown := false
	for _, e := range out.Errors {
		if e.Reason == errorsx.ReasonResultUnknownID && e.ToolCallID == "call_ghost" {
			foundUnknown = true
		}
	}
	if !foundUnknown {
		t.Fatalf("unknown id must be reported, got %v", out.Errors)
	}
	if out.Summary.Skipped != 1 {
		t.Fatalf("expected skipped=1, got %d", out.Summary.Skipped)
	}
}

func TestMissingResultReportedNeverFabricated(t *testing.T) {
	p := New(DefaultConfig(), nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: true, Output: "ok"}},
		[]wire.ToolCall{originalCall("call_1"), originalCall("call_2")},
	)
	if len(out.ToolMessages) != 1 {
		t.Fatalf("expected only the received result to produce a message")
	}
	found := false
	for _, e := range out.Errors {
		if e.Reason == errorsx.ReasonResultMissing && e.ToolCallID == "call_2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing result for call_2 must appear in errors, got %v", out.Errors)
	}
	if out.Summary.Missing != 1 {
		t.Fatalf("expected missing=1, got %d", out.Summary.Missing)
	}
}

func TestFailureUsesErrorDetail(t *testing.T) {
	p := New(DefaultConfig(), nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: false, Error: "permission denied"}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	if *out.ToolMessages[0].Content != "permission denied" {
		t.Fatalf("expected error detail, got %q", *out.ToolMessages[0].Content)
	}
	if out.Summary.Failed != 1 {
		t.Fatalf("expected failed=1")
	}
}

func TestFailureGenericWhenDetailDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeErrorDetail = false
	p := New(cfg, nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: false, Error: "secret internals"}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	if *out.ToolMessages[0].Content != "Tool execution failed" {
		t.Fatalf("expected generic failure message, got %q", *out.ToolMessages[0].Content)
	}
}

func TestStructuredOutputPrettyPrinted(t *testing.T) {
	p := New(DefaultConfig(), nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: true, Output: map[string]any{"count": 2}}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	content := *out.ToolMessages[0].Content
	if !strings.Contains(content, "\"count\": 2") {
		t.Fatalf("expected pretty-printed JSON, got %q", content)
	}
}

func TestUnserializableOutputCoerced(t *testing.T) {
	p := New(DefaultConfig(), nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: true, Output: map[string]any{"fn": func() {}}}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	if len(out.ToolMessages) != 1 {
		t.Fatalf("serialization failure must not drop the message")
	}
	if *out.ToolMessages[0].Content == "" {
		t.Fatalf("expected coerced string content")
	}
}

func TestTruncationDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContentLength = 20
	p := New(cfg, nil)
	long := strings.Repeat("abcde", 100)
	first := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: true, Output: long}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	second := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: true, Output: long}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	a, b := *first.ToolMessages[0].Content, *second.ToolMessages[0].Content
	if a != b {
		t.Fatalf("truncation must be deterministic")
	}
	if !strings.HasSuffix(a, "... [truncated]") {
		t.Fatalf("expected truncation marker, got %q", a)
	}
	if !strings.HasPrefix(a, long[:20]) {
		t.Fatalf("expected cut at configured offset")
	}
}

func TestNilOutputSerializesAsNull(t *testing.T) {
	p := New(DefaultConfig(), nil)
	out := p.Process(
		[]ToolResult{{ToolCallID: "call_1", Success: true, Output: nil}},
		[]wire.ToolCall{originalCall("call_1")},
	)
	if *out.ToolMessages[0].Content != "null" {
		t.Fatalf("expected null, got %q", *out.ToolMessages[0].Content)
	}
}
