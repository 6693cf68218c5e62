package detector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/toolbridge/toolbridge/pkg/intent"
	"github.com/toolbridge/toolbridge/pkg/mapper"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

const (
	DefaultConfidenceThreshold = 0.7
	DefaultMaxToolCalls        = 5
	DefaultIDPrefix            = "call_"
)

// Config holds the detector tunables. Supplied once at construction and
// never mutated afterwards.
type Config struct {
	ConfidenceThreshold float64
	MaxToolCalls        int
	IDPrefix            string
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = DefaultMaxToolCalls
	}
	if c.IDPrefix == "" {
		c.IDPrefix = DefaultIDPrefix
	}
	return c
}

// Detection is the outcome of running model text through the
// parse → gate → map pipeline.
type Detection struct {
	NeedsTools       bool
	ToolCalls        []wire.ToolCall
	Reasoning        string
	OriginalResponse string
}

// Phrases that explicitly decline tool use short-circuit detection
// regardless of parsed confidence.
var noToolPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bno tools?\s+(?:are\s+)?(?:needed|required|necessary)\b`),
	regexp.MustCompile(`(?i)\b(?:don't|do not|won't|will not)\s+need\s+(?:any\s+|to use\s+)?tools?\b`),
	regexp.MustCompile(`(?i)\bwithout\s+(?:using\s+)?(?:any\s+)?tools?\b`),
	regexp.MustCompile(`(?i)\bI can answer\s+(?:this|that)\s+directly\b`),
}

type Detector struct {
	cfg    Config
	parser *intent.Parser
	mapper *mapper.Mapper
	log    *slog.Logger
}

func New(cfg Config, parser *intent.Parser, m *mapper.Mapper, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = intent.NewParser(nil, logger)
	}
	if m == nil {
		m = mapper.New(logger)
	}
	return &Detector{cfg: cfg.withDefaults(), parser: parser, mapper: m, log: logger}
}

func (d *Detector) Config() Config {
	return d.cfg
}

// Detect decides whether responseText implies tool use against the supplied
// tool list. Deterministic for fixed inputs apart from call id randomness.
func (d *Detector) Detect(responseText string, tools []wire.Tool) Detection {
	out := Detection{OriginalResponse: responseText}

	if DeclinesTools(responseText) {
		out.Reasoning = "response explicitly declines tool use"
		return out
	}

	it := d.parser.Parse(responseText)
	if it.Confidence < d.cfg.ConfidenceThreshold {
		out.Reasoning = fmt.Sprintf("confidence %.2f below threshold %.2f", it.Confidence, d.cfg.ConfidenceThreshold)
		return out
	}

	proposals := d.mapper.MapToTools(it, tools, d.cfg.MaxToolCalls)
	if len(proposals) == 0 {
		out.Reasoning = fmt.Sprintf("intent %q matched no available tool", it.Action)
		return out
	}

	for _, prop := range proposals {
		args, err := json.Marshal(prop.Arguments)
		if err != nil {
			d.log.Warn("call_generate_skip", "function", prop.FunctionName, "error", err)
			continue
		}
		out.ToolCalls = append(out.ToolCalls, wire.ToolCall{
			ID:   NewCallID(d.cfg.IDPrefix),
			Type: wire.ToolTypeFunction,
			Function: wire.FunctionCall{
				Name:      prop.FunctionName,
				Arguments: string(args),
			},
		})
	}
	if len(out.ToolCalls) == 0 {
		out.Reasoning = "all proposed calls failed argument serialization"
		return out
	}
	out.NeedsTools = true
	out.Reasoning = fmt.Sprintf("intent %q at confidence %.2f mapped to %d tool call(s)", it.Action, it.Confidence, len(out.ToolCalls))
	return out
}

// DeclinesTools reports whether the text contains an explicit
// "no tools needed" phrasing.
func DeclinesTools(text string) bool {
	for _, re := range noToolPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// NewCallID returns prefix plus 32 hex chars, globally unique within a
// conversation. Uniqueness is the only contract; the randomness is not
// security relevant.
func NewCallID(prefix string) string {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
