package intent

import (
	"errors"
	"regexp"
	"strings"
)

// Rule is one entry of the ranked classification table: a pattern, the
// operation it implies, a base confidence, and an extractor that turns the
// regex submatches into intent parameters. Extractor errors are not fatal;
// evaluation continues with the next rule.
type Rule struct {
	Name           string
	Pattern        *regexp.Regexp
	Operation      OperationType
	Action         string
	BaseConfidence float64
	Extract        func(match []string) (map[string]string, error)
}

var (
	fileTokenRe = regexp.MustCompile(`\b(?:[A-Za-z0-9_\-]+[/\\])*[A-Za-z0-9_\-]+\.[A-Za-z0-9]{1,8}\b`)
	quotedRe    = regexp.MustCompile("\"[^\"]+\"|'[^']+'|`[^`]+`")
)

// DefaultRules returns the table in evaluation order. Earlier rules win on
// overlap; ordering is deliberately data so it can be tested and tuned.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:           "read_file",
			Pattern:        regexp.MustCompile(`(?i)\b(?:read|open|view|show|display|load|cat)\b[^.!?]*?((?:[A-Za-z0-9_\-]+[/\\])*[A-Za-z0-9_\-]+\.[A-Za-z0-9]{1,8})\b`),
			Operation:      OpRead,
			Action:         "read_file",
			BaseConfidence: 0.8,
			Extract:        captureAs("path"),
		},
		{
			Name:           "write_file",
			Pattern:        regexp.MustCompile(`(?i)\b(?:write|save|create|update|edit|modify)\b[^.!?]*?((?:[A-Za-z0-9_\-]+[/\\])*[A-Za-z0-9_\-]+\.[A-Za-z0-9]{1,8})\b`),
			Operation:      OpWrite,
			Action:         "write_file",
			BaseConfidence: 0.8,
			Extract: func(m []string) (map[string]string, error) {
				params, err := captureAs("path")(m)
				if err != nil {
					return nil, err
				}
				if q := quotedRe.FindString(m[0]); q != "" {
					params["content"] = trimQuotes(q)
				}
				return params, nil
			},
		},
		{
			Name:           "list_directory",
			Pattern:        regexp.MustCompile(`(?i)\b(?:list|ls)\b[^.!?]*?\b(?:files?|director(?:y|ies)|folders?|dir)\b(?:[^.!?]*?\b(?:in|under|of)\s+([A-Za-z0-9_\-./\\]+))?`),
			Operation:      OpRead,
			Action:         "list_directory",
			BaseConfidence: 0.7,
			Extract: func(m []string) (map[string]string, error) {
				params := map[string]string{}
				if len(m) > 1 && m[1] != "" {
					params["path"] = m[1]
				}
				return params, nil
			},
		},
		{
			Name:           "search_content",
			Pattern:        regexp.MustCompile(`(?i)\b(?:search|find|locate|grep|look(?:ing)?\s+for)\b\s+(?:for\s+)?(.+?)(?:[.!?]|$)`),
			Operation:      OpSearch,
			Action:         "search_content",
			BaseConfidence: 0.7,
			Extract: func(m []string) (map[string]string, error) {
				q := strings.TrimSpace(m[1])
				if q == "" {
					return nil, errors.New("empty search query")
				}
				return map[string]string{"query": trimQuotes(q)}, nil
			},
		},
		{
			Name:           "execute_command",
			Pattern:        regexp.MustCompile(`(?i)\b(?:run|execute|launch|invoke)\b\s+(?:the\s+)?(?:command\s+|script\s+)?(.+?)(?:[.!?]|$)`),
			Operation:      OpExecute,
			Action:         "execute_command",
			BaseConfidence: 0.75,
			Extract: func(m []string) (map[string]string, error) {
				cmd := strings.TrimSpace(trimQuotes(strings.TrimSpace(m[1])))
				if cmd == "" {
					return nil, errors.New("empty command")
				}
				return map[string]string{"command": cmd}, nil
			},
		},
		{
			Name:           "analyze_content",
			Pattern:        regexp.MustCompile(`(?i)\b(?:analy[sz]e|examine|inspect|review|audit)\b\s+(?:the\s+)?(.+?)(?:[.!?]|$)`),
			Operation:      OpAnalyze,
			Action:         "analyze_content",
			BaseConfidence: 0.7,
			Extract: func(m []string) (map[string]string, error) {
				target := strings.TrimSpace(m[1])
				if target == "" {
					return nil, errors.New("empty analysis target")
				}
				return map[string]string{"target": trimQuotes(target)}, nil
			},
		},
	}
}

// captureAs maps the first capture group to a single named parameter.
func captureAs(key string) func([]string) (map[string]string, error) {
	return func(m []string) (map[string]string, error) {
		if len(m) < 2 || m[1] == "" {
			return nil, errors.New("no capture in matched span")
		}
		return map[string]string{key: m[1]}, nil
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
