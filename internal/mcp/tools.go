package mcp

// ToolDefinition describes one entry of the tools/list catalogue in MCP
// wire form.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Tools returns the full six-tool catalogue served by tools/list. The stdio
// bridge declares the same catalogue, so this slice is the single source of
// truth for the tool surface. Callers must not mutate it.
func Tools() []ToolDefinition {
	return toolCatalogue
}

var toolCatalogue = []ToolDefinition{
	{
		Name:        "mnemosyne_bootstrap",
		Description: "Return startup context",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit_pinned":   map[string]any{"type": "integer"},
				"limit_recent":   map[string]any{"type": "integer"},
				"workspace_hint": map[string]any{"type": "string"},
				"mode": map[string]any{
					"type": "string",
					"enum": []string{"thin", "hybrid", "full"},
				},
				"max_tokens":       map[string]any{"type": "integer"},
				"max_items":        map[string]any{"type": "integer"},
				"include_sessions": map[string]any{"type": "boolean"},
			},
		},
	},
	{
		Name:        "mnemosyne_write",
		Description: "Store memory (deduplicates by kind+title)",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"kind":            map[string]any{"type": "string"},
				"title":           map[string]any{"type": "string"},
				"content":         map[string]any{"type": "string"},
				"tags_json":       map[string]any{"type": "string"},
				"pinned":          map[string]any{"type": "boolean"},
				"content_compact": map[string]any{"type": "string"},
				"workspace_hint":  map[string]any{"type": "string"},
				"importance":      map[string]any{"type": "integer"},
				"source":          map[string]any{"type": "string"},
			},
			"required": []string{"kind", "title", "content"},
		},
	},
	{
		Name:        "mnemosyne_read",
		Description: "Read a single memory item by id",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string"},
				"prefer": map[string]any{
					"type": "string",
					"enum": []string{"full", "compact"},
				},
			},
			"required": []string{"id"},
		},
	},
	{
		Name:        "mnemosyne_search",
		Description: "Search memory",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer"},
				"prefer": map[string]any{
					"type": "string",
					"enum": []string{"compact", "full"},
				},
				"snippet_chars": map[string]any{"type": "integer"},
			},
			"required": []string{"query"},
		},
	},
	{
		Name:        "mnemosyne_commit_session",
		Description: "Commit session",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workspace_hint":  map[string]any{"type": "string"},
				"summary":         map[string]any{"type": "string"},
				"decisions_json":  map[string]any{"type": "string"},
				"next_steps_json": map[string]any{"type": "string"},
			},
			"required": []string{"workspace_hint", "summary"},
		},
	},
	{
		Name:        "mnemosyne_last_session",
		Description: "Get most recent session logs for a workspace",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workspace_hint": map[string]any{"type": "string"},
				"limit":          map[string]any{"type": "integer"},
			},
		},
	},
}
