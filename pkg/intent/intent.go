package intent

import (
	"log/slog"
	"strings"
)

type OperationType string

const (
	OpRead    OperationType = "read"
	OpWrite   OperationType = "write"
	OpSearch  OperationType = "search"
	OpExecute OperationType = "execute"
	OpAnalyze OperationType = "analyze"
	OpUnknown OperationType = "unknown"
)

// Intent is the parser's hypothesis about what action a piece of free text
// is requesting. Values are created per Parse call and never mutated.
type Intent struct {
	Action      string
	Parameters  map[string]string
	Confidence  float64
	Operation   OperationType
	TriggerText string
}

// FallbackAction is returned when no rule matches or input is empty.
const FallbackAction = "provide_information"

const fallbackConfidence = 0.1

// Parser classifies free text against an ordered rule table. The first
// matching rule wins; rule order is a tunable heuristic, not semantics.
type Parser struct {
	rules []Rule
	log   *slog.Logger
}

func NewParser(rules []Rule, logger *slog.Logger) *Parser {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{rules: rules, log: logger}
}

// Rules returns the table in evaluation order.
func (p *Parser) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// Parse never fails: on no match or extractor error it returns the
// low-confidence fallback intent.
func (p *Parser) Parse(text string) Intent {
	if strings.TrimSpace(text) == "" {
		return fallback("")
	}
	for _, rule := range p.rules {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		params, err := rule.Extract(m)
		if err != nil {
			p.log.Debug("intent_extract_skip", "rule", rule.Name, "error", err)
			continue
		}
		if params == nil {
			params = map[string]string{}
		}
		span := m[0]
		return Intent{
			Action:      rule.Action,
			Parameters:  params,
			Confidence:  adjustConfidence(rule.BaseConfidence, text, span),
			Operation:   rule.Operation,
			TriggerText: span,
		}
	}
	return fallback("")
}

func fallback(trigger string) Intent {
	return Intent{
		Action:      FallbackAction,
		Parameters:  map[string]string{},
		Confidence:  fallbackConfidence,
		Operation:   OpUnknown,
		TriggerText: trigger,
	}
}

var imperativeCues = []string{"I'll", "Let me", "I need to", "I will"}

// adjustConfidence applies the fixed post-match adjustments and clamps to [0,1].
func adjustConfidence(base float64, full, span string) float64 {
	conf := base
	for _, cue := range imperativeCues {
		if strings.Contains(full, cue) {
			conf += 0.1
			break
		}
	}
	if fileTokenRe.MatchString(full) {
		conf += 0.05
	}
	if quotedRe.MatchString(full) {
		conf += 0.05
	}
	if len(full) < 50 {
		conf -= 0.2
	}
	if strings.Contains(span, "?") {
		conf -= 0.3
	}
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
