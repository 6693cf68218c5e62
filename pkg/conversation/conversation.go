package conversation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toolbridge/toolbridge/pkg/wire"
)

// Step kinds recorded in the audit trail.
const (
	StepUserMessage        = "user_message"
	StepAssistantToolCalls = "assistant_tool_calls"
	StepToolResults        = "tool_results"
	StepAssistantResponse  = "assistant_response"
)

type Step struct {
	Kind string
	At   time.Time
	Note string
}

type Metadata struct {
	ConversationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	TotalSteps     int
	ToolCallCycles int
}

// State tracks the per-call lifecycle. Pending and Completed never share an
// id, and AwaitingResults holds exactly when Pending is non-empty.
type State struct {
	Pending         map[string]wire.ToolCall
	Completed       map[string]string
	AwaitingResults bool
}

// Context is an immutable snapshot of one conversation: an ordered audit
// trail, the flat model-visible history, and the tool call state. Every
// mutator returns a new Context with deep-cloned internals, so earlier
// snapshots stay valid and independently inspectable.
type Context struct {
	Steps    []Step
	Messages []wire.Message
	State    State
	Meta     Metadata
}

// New creates a conversation, optionally seeded with a system prompt.
func New(systemPrompt string) Context {
	now := time.Now()
	c := Context{
		State: State{
			Pending:   map[string]wire.ToolCall{},
			Completed: map[string]string{},
		},
		Meta: Metadata{
			ConversationID: "conv_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	if systemPrompt != "" {
		c.Messages = []wire.Message{{Role: wire.RoleSystem, Content: wire.String(systemPrompt)}}
	}
	return c
}

// AddUserMessage appends a user turn.
func (c Context) AddUserMessage(text string) Context {
	next := c.clone()
	next.Messages = append(next.Messages, wire.Message{Role: wire.RoleUser, Content: wire.String(text)})
	next.record(StepUserMessage, text)
	return next
}

// AddAssistantToolCalls appends an assistant message carrying tool calls and
// marks each call pending.
func (c Context) AddAssistantToolCalls(calls []wire.ToolCall) Context {
	next := c.clone()
	cloned := cloneCalls(calls)
	next.Messages = append(next.Messages, wire.Message{
		Role:      wire.RoleAssistant,
		Content:   nil,
		ToolCalls: cloned,
	})
	for _, call := range cloned {
		next.State.Pending[call.ID] = call
	}
	next.State.AwaitingResults = len(next.State.Pending) > 0
	next.record(StepAssistantToolCalls, "")
	return next
}

// AddToolResults folds tool messages back into history, moving each matching
// call from pending to completed. Messages whose id was never proposed are
// ignored so the state invariant holds. The cycle counter increments once
// per round trip, however many individual results it resolves.
func (c Context) AddToolResults(messages []wire.Message) Context {
	next := c.clone()
	for _, msg := range messages {
		if _, ok := next.State.Pending[msg.ToolCallID]; !ok {
			continue
		}
		delete(next.State.Pending, msg.ToolCallID)
		content := ""
		if msg.Content != nil {
			content = *msg.Content
		}
		next.State.Completed[msg.ToolCallID] = content
		next.Messages = append(next.Messages, msg)
	}
	next.State.AwaitingResults = len(next.State.Pending) > 0
	next.Meta.ToolCallCycles++
	next.record(StepToolResults, "")
	return next
}

// AddFinalResponse appends the assistant's closing text and flushes any
// still-pending calls, resetting for the next round.
func (c Context) AddFinalResponse(text string) Context {
	next := c.clone()
	next.Messages = append(next.Messages, wire.Message{Role: wire.RoleAssistant, Content: wire.String(text)})
	next.State.Pending = map[string]wire.ToolCall{}
	next.State.AwaitingResults = false
	next.record(StepAssistantResponse, text)
	return next
}

// MessagesForModel returns the windowed history: when the message count
// exceeds the limit, all system messages are retained plus the most recent
// non-system messages that fit, in original relative order. A limit of zero
// or less means no windowing.
func (c Context) MessagesForModel(limit int) []wire.Message {
	if limit <= 0 || len(c.Messages) <= limit {
		return cloneMessages(c.Messages)
	}
	systemCount := 0
	for _, m := range c.Messages {
		if m.Role == wire.RoleSystem {
			systemCount++
		}
	}
	budget := limit - systemCount
	if budget < 0 {
		budget = 0
	}
	keepFrom := len(c.Messages)
	seen := 0
	for i := len(c.Messages) - 1; i >= 0 && seen < budget; i-- {
		if c.Messages[i].Role != wire.RoleSystem {
			keepFrom = i
			seen++
		}
	}
	var out []wire.Message
	for i, m := range c.Messages {
		if m.Role == wire.RoleSystem || (i >= keepFrom && m.Role != wire.RoleSystem) {
			out = append(out, cloneMessage(m))
		}
	}
	return out
}

func (c *Context) record(kind, note string) {
	now := time.Now()
	c.Steps = append(c.Steps, Step{Kind: kind, At: now, Note: note})
	c.Meta.TotalSteps++
	c.Meta.UpdatedAt = now
}

// clone deep-copies everything a mutator may touch. Honoring this is what
// makes snapshots safe to share across goroutines without locking.
func (c Context) clone() Context {
	next := c
	next.Steps = make([]Step, len(c.Steps), len(c.Steps)+1)
	copy(next.Steps, c.Steps)
	next.Messages = cloneMessages(c.Messages)
	next.State.Pending = make(map[string]wire.ToolCall, len(c.State.Pending))
	for k, v := range c.State.Pending {
		next.State.Pending[k] = v
	}
	next.State.Completed = make(map[string]string, len(c.State.Completed))
	for k, v := range c.State.Completed {
		next.State.Completed[k] = v
	}
	return next
}

func cloneMessages(in []wire.Message) []wire.Message {
	if in == nil {
		return nil
	}
	out := make([]wire.Message, len(in), len(in)+1)
	for i, m := range in {
		out[i] = cloneMessage(m)
	}
	return out
}

func cloneMessage(m wire.Message) wire.Message {
	if m.Content != nil {
		m.Content = wire.String(*m.Content)
	}
	m.ToolCalls = cloneCalls(m.ToolCalls)
	return m
}

func cloneCalls(in []wire.ToolCall) []wire.ToolCall {
	if in == nil {
		return nil
	}
	out := make([]wire.ToolCall, len(in))
	copy(out, in)
	return out
}
