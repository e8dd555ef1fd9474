package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ritzau/siteflow/pkg/logging"
	"github.com/ritzau/siteflow/pkg/model"
)

// Adapter turns a free-text application description (and optionally a
// long-form document) into a normalized site-flow graph. Every failure mode
// of the collaborator (transport errors, prose-wrapped or fenced output,
// schema-invalid JSON) degrades to the deterministic fallback; Generate
// never returns an error to the editing session.
type Adapter struct {
	client Client
}

// NewAdapter creates a generation adapter. A nil client means no
// collaborator is configured and every request resolves to the fallback.
func NewAdapter(client Client) *Adapter {
	return &Adapter{client: client}
}

// Generate produces a valid, normalized, non-empty graph for the given
// inputs. The collaborator call is the only suspension point in the engine.
func (a *Adapter) Generate(ctx context.Context, description, document string) model.Graph {
	if a.client == nil {
		return Fallback(description)
	}

	prompt := buildPrompt(description, document)
	text, err := a.client.Complete(ctx, prompt)
	if err != nil {
		logging.Warn("generation request failed, using fallback", "error", err)
		return Fallback(description)
	}

	raw, ok := extractJSON(text)
	if !ok {
		logging.Warn("no JSON object in generation response, using fallback", "responseLen", len(text))
		return Fallback(description)
	}

	var g model.Graph
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		logging.Warn("generation response failed to parse, using fallback", "error", err)
		return Fallback(description)
	}
	if len(g.Nodes) == 0 {
		logging.Warn("generation response had no nodes, using fallback")
		return Fallback(description)
	}

	normalized, err := model.Normalize(&g)
	if err != nil {
		logging.Warn("generated graph failed normalization, using fallback", "error", err)
		return Fallback(description)
	}
	logging.Info("generated site flow",
		"nodes", len(normalized.Nodes),
		"connections", len(normalized.Connections))
	return normalized
}

// buildPrompt combines the free-text inputs with a strict output-shape
// instruction.
func buildPrompt(description, document string) string {
	var b strings.Builder
	b.WriteString("You are mapping an application idea into a site flow: the set of screens or pages and the navigation between them.\n\n")
	fmt.Fprintf(&b, "Application description:\n%s\n\n", description)
	if document != "" {
		fmt.Fprintf(&b, "Supporting document:\n%s\n\n", document)
	}
	b.WriteString(`Respond with exactly one JSON object and nothing else, shaped as:
{
  "nodes": [{"id": "string", "name": "string", "description": "string", "level": 0}],
  "connections": [{"from": "nodeId", "to": "nodeId"}]
}
Levels start at 0 for the entry screen and increase with navigation depth.
Every connection must reference node ids present in "nodes".`)
	return b.String()
}

// extractJSON pulls the first balanced JSON object out of the response,
// tolerating surrounding prose and Markdown code fences.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
