package server

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/toolbridge/toolbridge/pkg/bridge"
	"github.com/toolbridge/toolbridge/pkg/configutil"
	"github.com/toolbridge/toolbridge/pkg/errorsx"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

// Generator produces free-form model text for a message history. The actual
// model invocation lives outside this core; anything that can turn messages
// into text satisfies it.
type Generator interface {
	Generate(ctx context.Context, messages []wire.Message) (string, error)
}

// CommandGenerator shells out to a text-only model CLI: the rendered
// transcript goes to stdin, the reply comes back on stdout.
type CommandGenerator struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func (g CommandGenerator) Generate(ctx context.Context, messages []wire.Message) (string, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, g.Command, g.Args...)
	cmd.Stdin = strings.NewReader(RenderTranscript(messages))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errorsx.Wrap(fmt.Errorf("%s: %w (%s)", g.Command, err, strings.TrimSpace(stderr.String())), errorsx.ReasonUpstreamGenerate)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// StaticGenerator returns a fixed reply. Useful for development and tests.
type StaticGenerator struct {
	Text string
}

func (g StaticGenerator) Generate(ctx context.Context, messages []wire.Message) (string, error) {
	return g.Text, nil
}

// RenderTranscript flattens history into the plain-text prompt the upstream
// CLI expects. Tool results are labeled so the model can use them.
func RenderTranscript(messages []wire.Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := ""
		if m.Content != nil {
			content = *m.Content
		}
		switch m.Role {
		case wire.RoleTool:
			fmt.Fprintf(&b, "tool result (%s): %s\n", m.ToolCallID, content)
		default:
			if content == "" && len(m.ToolCalls) > 0 {
				names := make([]string, 0, len(m.ToolCalls))
				for _, c := range m.ToolCalls {
					names = append(names, c.Function.Name)
				}
				fmt.Fprintf(&b, "%s: [requested tools: %s]\n", m.Role, strings.Join(names, ", "))
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", m.Role, content)
		}
	}
	return b.String()
}

type commandSettings struct {
	Command   string   `mapstructure:"command"`
	Args      []string `mapstructure:"args"`
	TimeoutMS int      `mapstructure:"timeout_ms"`
}

// NewGenerator builds the configured upstream provider.
func NewGenerator(cfg bridge.UpstreamConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "command":
		if err := configutil.Validate(cfg.Settings, configutil.Schema{
			Required: []string{"command"},
			Optional: []string{"args", "timeout_ms"},
		}); err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("upstream settings: %w", err), errorsx.ReasonConfigLoad)
		}
		var s commandSettings
		if err := configutil.Decode(cfg.Settings, &s); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonConfigLoad)
		}
		return CommandGenerator{
			Command: s.Command,
			Args:    s.Args,
			Timeout: time.Duration(s.TimeoutMS) * time.Millisecond,
		}, nil
	case "static":
		var s struct {
			Text string `mapstructure:"text"`
		}
		if err := configutil.Decode(cfg.Settings, &s); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonConfigLoad)
		}
		return StaticGenerator{Text: s.Text}, nil
	default:
		return nil, errorsx.Newf(errorsx.ReasonConfigLoad, "unknown upstream provider %q", cfg.Provider)
	}
}
