package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/toolbridge/toolbridge/pkg/bridge"
	"github.com/toolbridge/toolbridge/pkg/logging"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

// Server exposes the translation pipeline behind an OpenAI-compatible API.
// It holds no per-conversation state; callers send full message history per
// request, as the protocol prescribes.
type Server struct {
	cfg     bridge.ServerConfig
	engine  *bridge.Engine
	gen     Generator
	retry   RetryConfig
	breaker *Breaker
	log     *slog.Logger
}

func New(cfg bridge.ServerConfig, engine *bridge.Engine, gen Generator) *Server {
	return &Server{
		cfg:     cfg,
		engine:  engine,
		gen:     gen,
		breaker: NewBreaker(0, 0),
		log:     logging.NewComponentLogger(slog.Default(), "server"),
	}
}

// SetRetry overrides the upstream retry policy.
func (s *Server) SetRetry(cfg RetryConfig) {
	s.retry = cfg
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.GET("/health", s.handleHealth)
	r.POST("/v1/chat/completions", s.handleChatCompletions)
	return r
}

func (s *Server) Run() error {
	s.log.Info("server_listen", "addr", s.cfg.Addr, "model", s.cfg.Model)
	return s.Router().Run(s.cfg.Addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type chatCompletionRequest struct {
	Model    string         `json:"model"`
	Messages []wire.Message `json:"messages"`
	Tools    []wire.Tool    `json:"tools,omitempty"`
	Stream   bool           `json:"stream,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleChatCompletions(c *gin.Context) {
	var req chatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "messages must not be empty", Code: "INVALID_REQUEST"})
		return
	}
	for _, tool := range req.Tools {
		if tool.Type != wire.ToolTypeFunction || tool.Function.Name == "" {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "tools must be function tools with a name", Code: "INVALID_TOOL"})
			return
		}
	}
	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}

	if !s.breaker.Allow() {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "upstream temporarily unavailable", Code: "UPSTREAM_OPEN"})
		return
	}
	text, err := retryGenerate(c.Request.Context(), s.retry, func(ctx context.Context) (string, error) {
		return s.gen.Generate(ctx, req.Messages)
	})
	if err != nil {
		s.breaker.OnError()
		s.log.Error("upstream_generate_failed", "error", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "UPSTREAM_FAILED"})
		return
	}
	s.breaker.OnSuccess()

	if req.Stream {
		s.streamResponse(c, model, text, req.Tools)
		return
	}

	completion, det, diags := s.engine.Complete(model, text, req.Tools)
	if len(diags.Dropped) > 0 {
		s.log.Warn("dropped_invalid_calls", "count", len(diags.Dropped))
	}
	s.log.Info("chat_completion",
		"model", model,
		"needs_tools", det.NeedsTools,
		"calls", len(det.ToolCalls),
	)
	c.JSON(http.StatusOK, completion)
}

// streamResponse writes the chunk sequence as server-sent events, closed by
// the [DONE] sentinel.
func (s *Server) streamResponse(c *gin.Context, model, text string, tools []wire.Tool) {
	chunks, det, diags := s.engine.CompleteStream(model, text, tools)
	if len(diags.Dropped) > 0 {
		s.log.Warn("dropped_invalid_calls", "count", len(diags.Dropped))
	}
	s.log.Info("chat_completion_stream",
		"model", model,
		"needs_tools", det.NeedsTools,
		"chunks", len(chunks),
	)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	for _, chunk := range chunks {
		payload, err := json.Marshal(chunk)
		if err != nil {
			s.log.Error("chunk_marshal_failed", "error", err)
			break
		}
		if _, err := c.Writer.WriteString("data: " + string(payload) + "\n\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = c.Writer.WriteString("data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
