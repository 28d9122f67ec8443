// Package attribution appends source citations to a generated reply
// when the tenant has turned that on. Grounded on
// original_source/apps/bot/services/attribution_handler.py's
// AttributionHandler: the same inline/endnote styles, the same
// per-origin citation wording, and the same dedupe-by-identity rule
// before citing.
package attribution

import (
	"strconv"
	"strings"

	agentcontext "github.com/conversagent/core/ai/context"
)

// Style selects how citations are rendered.
type Style string

const (
	StyleInline  Style = "inline"
	StyleEndnote Style = "endnote"
)

// Add appends source citations to reply in the given style, provided
// enabled is true and sources is non-empty. It is a pure function: the
// caller (ai/orchestrator) decides enabled from
// store.AgentConfiguration.EnableSourceAttribution.
func Add(reply string, sources []agentcontext.RAGSource, style Style, enabled bool) string {
	if !enabled || len(sources) == 0 {
		return reply
	}
	if style == StyleInline {
		return addInline(reply, sources)
	}
	return addEndnote(reply, sources)
}

// addInline appends one short parenthetical naming which kinds of
// source backed the reply, without enumerating each one.
func addInline(reply string, sources []agentcontext.RAGSource) string {
	seen := map[string]bool{}
	var parts []string
	for _, s := range sources {
		label := originLabel(s.Origin)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		return reply
	}
	return reply + " (based on " + strings.Join(parts, ", ") + ")"
}

// addEndnote appends a numbered "Sources:" block, one line per
// deduplicated source.
func addEndnote(reply string, sources []agentcontext.RAGSource) string {
	unique := dedupe(sources)
	if len(unique) == 0 {
		return reply
	}
	var b strings.Builder
	b.WriteString(reply)
	b.WriteString("\n\n---\nSources:\n")
	for i, s := range unique {
		b.WriteString(formatCitation(s, i+1))
		if i < len(unique)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// formatCitation renders one numbered citation; wording varies by
// origin the way the original's per-type formatters do.
func formatCitation(s agentcontext.RAGSource, index int) string {
	n := "[" + strconv.Itoa(index) + "] "
	switch s.Origin {
	case "document":
		return n + orDefault(s.Title, "Document")
	case "database":
		return n + "Our Catalog"
	case "internet":
		return n + orDefault(s.Title, "External Source")
	default:
		return n + "Unknown source"
	}
}

func originLabel(origin string) string {
	switch origin {
	case "document":
		return "our documentation"
	case "database":
		return "our catalog"
	case "internet":
		return "external sources"
	default:
		return ""
	}
}

// dedupe removes sources that share an origin+title identity,
// preserving first-seen order, mirroring _deduplicate_sources.
func dedupe(sources []agentcontext.RAGSource) []agentcontext.RAGSource {
	seen := map[string]bool{}
	unique := make([]agentcontext.RAGSource, 0, len(sources))
	for _, s := range sources {
		key := s.Origin + ":" + s.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, s)
	}
	return unique
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
