// Package prompt assembles the system and user prompts sent to the LLM
// provider and performs permissive JSON extraction from replies.
// Grounded on ai/router/service.go's parseLLMResponse (permissive
// parsing) and on the persona/scenario composition implied by
// store.AgentConfiguration.
package prompt

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Persona carries the AgentConfiguration fields that shape the system
// prompt's tone and boundaries.
type Persona struct {
	DisplayName             string
	Tone                    string
	Traits                  map[string]string
	BehaviouralRestrictions []string
	RequiredDisclaimers     []string
	MaxReplyLength          int
	ConfidenceThreshold     float64
	AgentCanDo              string
	AgentCannotDo           string
	LanguageLock            string // non-empty forces a single reply language
}

// BuildSystemPrompt composes the scenario base template with the persona
// overlay: name, tone, traits, restrictions, disclaimers, length
// guidance, confidence-based handoff hint, can/cannot-do lists.
func BuildSystemPrompt(scenario string, p Persona) string {
	var b strings.Builder
	b.WriteString(scenario)
	b.WriteString("\n\nYou are ")
	b.WriteString(orDefault(p.DisplayName, "the assistant"))
	b.WriteString(", speaking in a ")
	b.WriteString(orDefault(p.Tone, "professional"))
	b.WriteString(" tone.\n")

	if len(p.Traits) > 0 {
		b.WriteString("Personality traits: ")
		first := true
		for trait, value := range p.Traits {
			if !first {
				b.WriteString(", ")
			}
			b.WriteString(trait + "=" + value)
			first = false
		}
		b.WriteString("\n")
	}

	if len(p.BehaviouralRestrictions) > 0 {
		b.WriteString("You must never: " + strings.Join(p.BehaviouralRestrictions, "; ") + "\n")
	}
	if len(p.RequiredDisclaimers) > 0 {
		b.WriteString("Always include these disclaimers when relevant: " + strings.Join(p.RequiredDisclaimers, "; ") + "\n")
	}
	if p.MaxReplyLength > 0 {
		b.WriteString("Keep replies under approximately " + itoa(p.MaxReplyLength) + " characters.\n")
	}
	if p.ConfidenceThreshold > 0 {
		b.WriteString("If you are not confident in an answer, say so plainly rather than guessing; low-confidence replies may be escalated to a human.\n")
	}
	if p.AgentCanDo != "" {
		b.WriteString("You can: " + p.AgentCanDo + "\n")
	}
	if p.AgentCannotDo != "" {
		b.WriteString("You cannot: " + p.AgentCannotDo + "\n")
	}
	if p.LanguageLock != "" {
		b.WriteString("Respond only in " + p.LanguageLock + ", regardless of any other language present in the context.\n")
	}
	return b.String()
}

// UserPromptSections holds each block a user prompt composes from, so
// callers can omit empty sections without string surgery.
type UserPromptSections struct {
	Summary           string
	KeyFacts          []string
	RecentTurns       []string // alternating customer/bot, oldest first
	Knowledge         []KnowledgeSnippet
	CatalogSlice      string
	CustomerHistory   string
	RAGSection        string
	SuggestionSection string
	RecoveredQuestion string // an earlier question the customer is now pointing out went unanswered
	CurrentMessage    string
}

// KnowledgeSnippet is one retrieved knowledge entry rendered with its
// similarity score, per spec.md §4.9.
type KnowledgeSnippet struct {
	Title      string
	Content    string
	Similarity float64
}

// BuildUserPrompt concatenates the sections that are non-empty, in a
// fixed order: summary, key facts, recent turns, knowledge (with
// scores), catalog slice, customer history, RAG, suggestions, a
// recovered unanswered question, current message last so it is the
// most recent thing the model reads.
func BuildUserPrompt(s UserPromptSections) string {
	var b strings.Builder
	writeSection(&b, "Conversation summary", s.Summary)
	if len(s.KeyFacts) > 0 {
		writeSection(&b, "Known facts", "- "+strings.Join(s.KeyFacts, "\n- "))
	}
	if len(s.RecentTurns) > 0 {
		writeSection(&b, "Recent conversation", strings.Join(s.RecentTurns, "\n"))
	}
	if len(s.Knowledge) > 0 {
		var kb strings.Builder
		for _, k := range s.Knowledge {
			kb.WriteString("- [" + formatScore(k.Similarity) + "] " + k.Title + ": " + k.Content + "\n")
		}
		writeSection(&b, "Relevant knowledge", kb.String())
	}
	writeSection(&b, "Catalog", s.CatalogSlice)
	writeSection(&b, "Customer history", s.CustomerHistory)
	writeSection(&b, "Additional retrieved context", s.RAGSection)
	writeSection(&b, "Suggestions you may offer", s.SuggestionSection)
	if s.RecoveredQuestion != "" {
		writeSection(&b, "Unanswered question the customer is now calling out", s.RecoveredQuestion)
	}
	writeSection(&b, "Current customer message", s.CurrentMessage)
	return strings.TrimSpace(b.String())
}

func writeSection(b *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	b.WriteString("## " + title + "\n" + body + "\n\n")
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON permissively extracts a JSON object from raw: a bare JSON
// object, the first fenced code block, or the first balanced {...}
// substring, per spec.md §4.9. Returns "" if none is found.
func ExtractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed
	}
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

var uncertaintyPhrases = []string{
	"i'm not sure", "i am not sure", "i don't know", "i do not know",
	"not certain", "unclear to me",
}

// ConfidenceInput carries the signals Confidence combines, per spec.md
// §4.9.
type ConfidenceInput struct {
	UsedKnowledge         bool
	Reply                 string
	AverageKnowledgeScore float64
}

// Confidence computes a reply's local confidence score: base 0.8, -0.1 if
// no knowledge was used, -0.2 if an uncertainty phrase is present, +0.1
// if average knowledge similarity exceeds 0.8; clamped to [0,1].
func Confidence(in ConfidenceInput) float64 {
	score := 0.8
	if !in.UsedKnowledge {
		score -= 0.1
	}
	lower := strings.ToLower(in.Reply)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			score -= 0.2
			break
		}
	}
	if in.UsedKnowledge && in.AverageKnowledgeScore > 0.8 {
		score += 0.1
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
