// Package richmessage turns a plain-text reply plus context into a
// structured card/list/button message where the conversation supports
// it, per spec.md §4.12. Grounded on
// plugin/chat_apps/types.go's OutgoingMessage shape, generalised from a
// single-type payload into the card/list/button variants this spec
// needs, validated against an injected channel-specific limit checker
// before being handed to channels.ChatChannel.
package richmessage

import (
	"strings"

	agentcontext "github.com/conversagent/core/ai/context"
)

// Shape identifies which structured form a message takes.
type Shape string

const (
	ShapeText    Shape = "text"
	ShapeCard    Shape = "card"
	ShapeList    Shape = "list"
	ShapeButtons Shape = "buttons"
)

// Card is a single catalog item rendered as a rich card.
type Card struct {
	Title    string
	Subtitle string
	ImageURL string
}

// ListItem is one row in a ShapeList message.
type ListItem struct {
	Title    string
	Subtitle string
}

// Button is one quick-reply option in a ShapeButtons message.
type Button struct {
	Label   string
	Payload string
}

// Message is the structured reply the rich-message builder produces.
// Text is always populated (it is the fallback shown alongside or
// instead of the structured body).
type Message struct {
	Shape         Shape
	Text          string
	Card          *Card
	List          []ListItem
	Buttons       []Button
	FallbackShape Shape  // non-empty when a validation failure forced a downgrade
	FallbackNote  string
}

// Limits is the channel-specific format validator injected by the
// caller (e.g. a WhatsApp channel adapter); spec.md §4.12 requires
// these limits to be enforced, not hard-coded, so a different channel
// can supply its own.
type Limits interface {
	MaxButtons() int
	MaxListRows() int
	MaxTitleLength() int
	MaxBodyLength() int
}

var suggestionKeywords = []string{
	"you might also like", "you may also like", "recommend", "pair well",
	"goes well with", "also consider",
}

// Build inspects reply and ctx for a richer shape: a single or few
// catalog items become a card or list, a yes/no-ending reply becomes a
// two-button message, and suggestion-keyword replies become cards/lists
// from ctx.Suggestions. It enforces limits and falls back to
// ShapeText, recording why, on any violation.
func Build(reply string, ctx *agentcontext.AgentContext, limits Limits) Message {
	candidate := buildCandidate(reply, ctx)
	if candidate.Shape == ShapeText {
		return candidate
	}
	if violation := validate(candidate, limits); violation != "" {
		return Message{Shape: ShapeText, Text: reply, FallbackShape: candidate.Shape, FallbackNote: violation}
	}
	return candidate
}

func buildCandidate(reply string, ctx *agentcontext.AgentContext) Message {
	trimmed := strings.TrimSpace(reply)

	if endsWithYesNoQuestion(trimmed) {
		return Message{
			Shape: ShapeButtons,
			Text:  reply,
			Buttons: []Button{
				{Label: "Yes", Payload: "yes"},
				{Label: "No", Payload: "no"},
			},
		}
	}

	if usesSuggestionKeyword(trimmed) && len(ctx.Suggestions) > 0 {
		return suggestionsToMessage(reply, ctx.Suggestions)
	}

	if len(ctx.Products) == 1 && len(ctx.Services) == 0 {
		p := ctx.Products[0]
		return Message{Shape: ShapeCard, Text: reply, Card: &Card{Title: p.Name, Subtitle: p.Description}}
	}
	if len(ctx.Products) > 1 {
		items := make([]ListItem, 0, len(ctx.Products))
		for _, p := range ctx.Products {
			items = append(items, ListItem{Title: p.Name, Subtitle: p.Description})
		}
		return Message{Shape: ShapeList, Text: reply, List: items}
	}
	if len(ctx.Services) == 1 && len(ctx.Products) == 0 {
		s := ctx.Services[0]
		return Message{Shape: ShapeCard, Text: reply, Card: &Card{Title: s.Name, Subtitle: s.Description}}
	}
	if len(ctx.Services) > 1 {
		items := make([]ListItem, 0, len(ctx.Services))
		for _, s := range ctx.Services {
			items = append(items, ListItem{Title: s.Name, Subtitle: s.Description})
		}
		return Message{Shape: ShapeList, Text: reply, List: items}
	}

	return Message{Shape: ShapeText, Text: reply}
}

func suggestionsToMessage(reply string, suggestions []agentcontext.Suggestion) Message {
	if len(suggestions) == 1 {
		s := suggestions[0]
		return Message{Shape: ShapeCard, Text: reply, Card: &Card{Title: s.Label, Subtitle: s.Why}}
	}
	items := make([]ListItem, 0, len(suggestions))
	for _, s := range suggestions {
		items = append(items, ListItem{Title: s.Label, Subtitle: s.Why})
	}
	return Message{Shape: ShapeList, Text: reply, List: items}
}

func endsWithYesNoQuestion(reply string) bool {
	if !strings.HasSuffix(reply, "?") {
		return false
	}
	lower := strings.ToLower(reply)
	yesNoStarters := []string{"would you like", "do you want", "shall i", "is that", "should i", "can i"}
	for _, s := range yesNoStarters {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func usesSuggestionKeyword(reply string) bool {
	lower := strings.ToLower(reply)
	for _, k := range suggestionKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// validate returns a non-empty reason when candidate violates limits.
func validate(candidate Message, limits Limits) string {
	if limits == nil {
		return ""
	}
	switch candidate.Shape {
	case ShapeButtons:
		if len(candidate.Buttons) > limits.MaxButtons() {
			return "button count exceeds channel limit"
		}
	case ShapeList:
		if len(candidate.List) > limits.MaxListRows() {
			return "list row count exceeds channel limit"
		}
		for _, item := range candidate.List {
			if len(item.Title) > limits.MaxTitleLength() {
				return "list item title exceeds channel limit"
			}
		}
	case ShapeCard:
		if candidate.Card != nil {
			if len(candidate.Card.Title) > limits.MaxTitleLength() {
				return "card title exceeds channel limit"
			}
			if len(candidate.Card.Subtitle) > limits.MaxBodyLength() {
				return "card subtitle exceeds channel limit"
			}
		}
	}
	return ""
}
