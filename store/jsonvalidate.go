package store

import (
	"encoding/json"
	"fmt"
)

const (
	maxJSONNestingDepth = 10
	maxJSONSerialized   = 100 * 1024 // 100KB
)

// ValidateJSONColumn enforces the size/shape constraints for a JSON-valued
// column: max nesting depth 10, max serialised size 100KB. The drivers
// call it for AgentConfiguration.PersonaTraits and KnowledgeEntry.Metadata;
// Conversation.Metadata, ScheduledMessage.TemplateContext and
// MessageCampaign.Variants are stored without this check.
func ValidateJSONColumn(v any) error {
	if v == nil {
		return nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json column: %w", err)
	}
	if len(encoded) > maxJSONSerialized {
		return fmt.Errorf("json column exceeds %d bytes (got %d)", maxJSONSerialized, len(encoded))
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return fmt.Errorf("json column: %w", err)
	}
	if depth := jsonDepth(decoded, 0); depth > maxJSONNestingDepth {
		return fmt.Errorf("json column exceeds max nesting depth %d (got %d)", maxJSONNestingDepth, depth)
	}
	return nil
}

func jsonDepth(v any, current int) int {
	switch t := v.(type) {
	case map[string]any:
		max := current
		for _, child := range t {
			if d := jsonDepth(child, current+1); d > max {
				max = d
			}
		}
		return max
	case []any:
		max := current
		for _, child := range t {
			if d := jsonDepth(child, current+1); d > max {
				max = d
			}
		}
		return max
	default:
		return current
	}
}
