package mapper

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/toolbridge/toolbridge/pkg/configutil"
	"github.com/toolbridge/toolbridge/pkg/errorsx"
	"github.com/toolbridge/toolbridge/pkg/intent"
	"github.com/toolbridge/toolbridge/pkg/wire"
)

const (
	nameMatchConfidence = 0.9
	keywordConfidence   = 0.2
	keywordCap          = 0.7
	minMatchConfidence  = 0.3
)

// Strategy scores tools for one operation type. NameKeywords match against
// the tool name (strong signal), DescKeywords against its description.
type Strategy struct {
	Name         string
	Operation    intent.OperationType
	Priority     int
	NameKeywords []string
	DescKeywords []string
}

// Proposal is a synthesized call candidate, before id assignment.
type Proposal struct {
	FunctionName     string
	Arguments        map[string]any
	Confidence       float64
	ValidationErrors []string
}

// ParameterSchema is the typed view of a tool's JSON-Schema parameters block.
type ParameterSchema struct {
	Type       string              `mapstructure:"type"`
	Properties map[string]Property `mapstructure:"properties"`
	Required   []string            `mapstructure:"required"`
}

type Property struct {
	Type        string `mapstructure:"type"`
	Description string `mapstructure:"description"`
}

// Mapper matches intents against caller tool schemas and synthesizes
// call arguments. One bad tool schema never blocks the batch.
type Mapper struct {
	strategies map[intent.OperationType][]Strategy
	aliases    map[string][]string
	log        *slog.Logger
}

func New(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	grouped := make(map[intent.OperationType][]Strategy)
	for _, s := range DefaultStrategies() {
		grouped[s.Operation] = append(grouped[s.Operation], s)
	}
	for op := range grouped {
		list := grouped[op]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })
		grouped[op] = list
	}
	return &Mapper{
		strategies: grouped,
		aliases:    defaultAliases(),
		log:        logger,
	}
}

// MapToTools generates at most maxCalls proposals for the intent, processing
// strategies in descending priority and matching tools highest-confidence
// first. Tools scoring at or below the cutoff are excluded.
func (m *Mapper) MapToTools(it intent.Intent, tools []wire.Tool, maxCalls int) []Proposal {
	if len(tools) == 0 || maxCalls <= 0 {
		return nil
	}
	var out []Proposal
	used := make(map[string]bool)
	for _, strat := range m.strategies[it.Operation] {
		for _, cand := range scoreTools(strat, tools) {
			if len(out) >= maxCalls {
				return out
			}
			name := cand.tool.Function.Name
			if used[name] {
				continue
			}
			args, err := m.synthesize(it, cand.tool)
			if err != nil {
				m.log.Warn("tool_map_skip", "tool", name, "strategy", strat.Name, "error", err)
				continue
			}
			used[name] = true
			out = append(out, Proposal{
				FunctionName: name,
				Arguments:    args,
				Confidence:   cand.confidence,
			})
		}
	}
	return out
}

type scoredTool struct {
	tool       wire.Tool
	confidence float64
	index      int
}

// scoreTools returns tools above the match cutoff, highest confidence first.
// Ties keep declaration order.
func scoreTools(strat Strategy, tools []wire.Tool) []scoredTool {
	var matched []scoredTool
	for i, t := range tools {
		conf := scoreTool(strat, t)
		if conf <= minMatchConfidence {
			continue
		}
		matched = append(matched, scoredTool{tool: t, confidence: conf, index: i})
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].confidence != matched[j].confidence {
			return matched[i].confidence > matched[j].confidence
		}
		return matched[i].index < matched[j].index
	})
	return matched
}

func scoreTool(strat Strategy, tool wire.Tool) float64 {
	name := strings.ToLower(tool.Function.Name)
	for _, kw := range strat.NameKeywords {
		if strings.Contains(name, kw) {
			return nameMatchConfidence
		}
	}
	desc := strings.ToLower(tool.Function.Description)
	if desc == "" {
		return 0
	}
	conf := 0.0
	for _, kw := range strat.DescKeywords {
		if strings.Contains(desc, kw) {
			conf += keywordConfidence
		}
	}
	if conf > keywordCap {
		conf = keywordCap
	}
	return conf
}

// synthesize builds call arguments by direct schema key lookup, falling back
// to the alias table; unmapped intent parameters pass through unchanged.
func (m *Mapper) synthesize(it intent.Intent, tool wire.Tool) (map[string]any, error) {
	var schema ParameterSchema
	if len(tool.Function.Parameters) > 0 {
		if err := configutil.Decode(tool.Function.Parameters, &schema); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonArgSynthesis)
		}
	}
	args := make(map[string]any, len(it.Parameters))
	for k, v := range it.Parameters {
		args[m.resolveKey(k, schema)] = v
	}
	return args, nil
}

func (m *Mapper) resolveKey(key string, schema ParameterSchema) string {
	if len(schema.Properties) == 0 {
		return key
	}
	if _, ok := schema.Properties[key]; ok {
		return key
	}
	for _, alias := range m.aliases[key] {
		if _, ok := schema.Properties[alias]; ok {
			return alias
		}
	}
	return key
}
