package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/toolbridge/toolbridge/pkg/bridge"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingGenerator struct{ err error }

func (g failingGenerator) Generate(ctx context.Context, messages []wire.Message) (string, error) {
	return "", g.err
}

func newTestServer(gen Generator) *Server {
	cfg := bridge.DefaultConfig()
	s := New(cfg.Server, bridge.NewEngine(cfg), gen)
	s.SetRetry(RetryConfig{MaxAttempts: 1, Sleep: func(time.Duration) {}})
	return s
}

func postCompletions(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func requestBody(tools []wire.Tool, stream bool) map[string]any {
	return map[string]any{
		"model": "test-model",
		"messages": []map[string]any{
			{"role": "user", "content": "please read config.json"},
		},
		"tools":  tools,
		"stream": stream,
	}
}

func readFileTool() wire.Tool {
	return wire.Tool{
		Type: wire.ToolTypeFunction,
		Function: wire.FunctionDef{
			Name:        "read_file",
			Description: "Read the contents of a file",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string"},
				},
			},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(StaticGenerator{Text: "hi"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestChatCompletionAtomicToolCall(t *testing.T) {
	s := newTestServer(StaticGenerator{Text: "I'll read the file config.json"})
	w := postCompletions(t, s, requestBody([]wire.Tool{readFileTool()}, false))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var completion wire.ChatCompletion
	if err := json.Unmarshal(w.Body.Bytes(), &completion); err != nil {
		t.Fatalf("decode completion: %v", err)
	}
	choice := completion.Choices[0]
	if choice.FinishReason != wire.FinishToolCalls {
		t.Fatalf("expected finish_reason tool_calls, got %s", choice.FinishReason)
	}
	if choice.Message.Content != nil {
		t.Fatalf("content must be null when tool calls are present")
	}
	if len(choice.Message.ToolCalls) != 1 || choice.Message.ToolCalls[0].Function.Name != "read_file" {
		t.Fatalf("unexpected tool calls: %+v", choice.Message.ToolCalls)
	}
}

func TestChatCompletionPlainText(t *testing.T) {
	s := newTestServer(StaticGenerator{Text: "Nothing to do here."})
	w := postCompletions(t, s, requestBody([]wire.Tool{readFileTool()}, false))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var completion wire.ChatCompletion
	if err := json.Unmarshal(w.Body.Bytes(), &completion); err != nil {
		t.Fatalf("decode completion: %v", err)
	}
	choice := completion.Choices[0]
	if choice.FinishReason != wire.FinishStop {
		t.Fatalf("expected stop, got %s", choice.FinishReason)
	}
	if choice.Message.Content == nil || *choice.Message.Content != "Nothing to do here." {
		t.Fatalf("upstream text must pass through")
	}
}

func TestChatCompletionStreamSSE(t *testing.T) {
	s := newTestServer(StaticGenerator{Text: "I'll read the file config.json"})
	w := postCompletions(t, s, requestBody([]wire.Tool{readFileTool()}, true))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected SSE content type, got %s", ct)
	}

	var args strings.Builder
	sawDone := false
	sawFinish := false
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			sawDone = true
			continue
		}
		var chunk wire.Chunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Fatalf("chunk not valid JSON: %v (%s)", err, payload)
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != nil && *choice.FinishReason == wire.FinishToolCalls {
			sawFinish = true
		}
		for _, tc := range choice.Delta.ToolCalls {
			if tc.ID == "" && tc.Function != nil {
				args.WriteString(tc.Function.Arguments)
			}
		}
	}
	if !sawDone {
		t.Fatalf("stream must end with the [DONE] sentinel")
	}
	if !sawFinish {
		t.Fatalf("stream must carry finish_reason tool_calls")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(args.String()), &decoded); err != nil {
		t.Fatalf("reassembled arguments not valid JSON: %v (%q)", err, args.String())
	}
	if decoded["path"] != "config.json" {
		t.Fatalf("unexpected arguments: %v", decoded)
	}
}

func TestEmptyMessagesRejected(t *testing.T) {
	s := newTestServer(StaticGenerator{Text: "x"})
	w := postCompletions(t, s, map[string]any{"model": "m", "messages": []any{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMalformedToolRejected(t *testing.T) {
	s := newTestServer(StaticGenerator{Text: "x"})
	body := requestBody([]wire.Tool{{Type: "function", Function: wire.FunctionDef{Name: ""}}}, false)
	w := postCompletions(t, s, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a nameless tool, got %d", w.Code)
	}
}

func TestUpstreamFailureReturns502(t *testing.T) {
	s := newTestServer(failingGenerator{err: errors.New("model offline")})
	w := postCompletions(t, s, requestBody(nil, false))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "UPSTREAM_FAILED" {
		t.Fatalf("unexpected error code %s", resp.Code)
	}
}
