package mapper

import "github.com/toolbridge/toolbridge/pkg/intent"

// DefaultStrategies covers the five known operation types. Read carries a
// lower-priority fallback with broader description keywords so generic
// file tools still match when nothing name-matches.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:         "read_primary",
			Operation:    intent.OpRead,
			Priority:     10,
			NameKeywords: []string{"read", "get", "fetch", "load", "open", "view", "cat", "list"},
			DescKeywords: []string{"read", "file", "content", "open", "view", "display", "fetch"},
		},
		{
			Name:         "read_fallback",
			Operation:    intent.OpRead,
			Priority:     5,
			DescKeywords: []string{"access", "retrieve", "show", "directory", "path"},
		},
		{
			Name:         "write",
			Operation:    intent.OpWrite,
			Priority:     10,
			NameKeywords: []string{"write", "save", "create", "update", "edit", "put", "set"},
			DescKeywords: []string{"write", "save", "file", "create", "update", "modify", "edit"},
		},
		{
			Name:         "search",
			Operation:    intent.OpSearch,
			Priority:     10,
			NameKeywords: []string{"search", "find", "grep", "query", "locate", "lookup"},
			DescKeywords: []string{"search", "find", "query", "match", "locate", "pattern"},
		},
		{
			Name:         "execute",
			Operation:    intent.OpExecute,
			Priority:     10,
			NameKeywords: []string{"run", "exec", "launch", "invoke", "shell", "command"},
			DescKeywords: []string{"run", "execute", "command", "shell", "script", "process"},
		},
		{
			Name:         "analyze",
			Operation:    intent.OpAnalyze,
			Priority:     10,
			NameKeywords: []string{"analyze", "analyse", "inspect", "review", "check", "lint", "scan"},
			DescKeywords: []string{"analyze", "inspect", "review", "check", "quality", "metrics"},
		},
	}
}

// defaultAliases maps common intent parameter names onto schema property
// names when direct lookup misses.
func defaultAliases() map[string][]string {
	return map[string][]string{
		"path":    {"file", "filename", "filepath", "file_path", "target", "location"},
		"query":   {"search", "term", "pattern", "text", "q"},
		"command": {"cmd", "script", "shell", "input"},
		"content": {"text", "data", "body", "value"},
		"target":  {"path", "file", "subject", "input"},
	}
}
