package scheduler

import (
	"fmt"
	"strings"
)

// Render substitutes {{key}} placeholders in template with the
// corresponding value from context, falling back to fallback when
// template is empty. Matches the teacher's plain placeholder-
// substitution style used for campaign/reminder bodies rather than
// pulling in a full templating engine for a single-pass substitution.
func Render(template string, context map[string]any, fallback string) (string, error) {
	if template == "" {
		return fallback, nil
	}
	out := template
	for key, value := range context {
		placeholder := "{{" + key + "}}"
		out = strings.ReplaceAll(out, placeholder, fmt.Sprint(value))
	}
	if strings.Contains(out, "{{") && strings.Contains(out, "}}") {
		return "", fmt.Errorf("unresolved placeholder in template")
	}
	return out, nil
}
