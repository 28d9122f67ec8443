// Package intent extracts one or more customer intents per conversational
// turn. It is grounded on ai/routing/rule_matcher.go's pre-compiled-regex,
// closed-vocabulary design for the terse-message cue detection, and on
// ai/router/service.go's permissive LLM-JSON parsing for the detector
// call itself (delegated to ai/prompt.ExtractJSON).
package intent

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/conversagent/core/ai/cache"
	"github.com/conversagent/core/ai/prompt"
)

// Name is a recognised intent drawn from the closed vocabulary in
// spec.md's glossary. Anything else collapses to Other.
type Name string

const (
	Greeting             Name = "GREETING"
	BrowseProducts       Name = "BROWSE_PRODUCTS"
	ProductDetails       Name = "PRODUCT_DETAILS"
	PriceCheck           Name = "PRICE_CHECK"
	StockCheck           Name = "STOCK_CHECK"
	AddToCart            Name = "ADD_TO_CART"
	CheckoutLink         Name = "CHECKOUT_LINK"
	BrowseServices       Name = "BROWSE_SERVICES"
	ServiceDetails       Name = "SERVICE_DETAILS"
	CheckAvailability    Name = "CHECK_AVAILABILITY"
	BookAppointment      Name = "BOOK_APPOINTMENT"
	RescheduleAppointment Name = "RESCHEDULE_APPOINTMENT"
	CancelAppointment    Name = "CANCEL_APPOINTMENT"
	OptInPromotions      Name = "OPT_IN_PROMOTIONS"
	OptOutPromotions     Name = "OPT_OUT_PROMOTIONS"
	StopAll              Name = "STOP_ALL"
	StartAll             Name = "START_ALL"
	HumanHandoff         Name = "HUMAN_HANDOFF"
	Other                Name = "OTHER"
)

var vocabulary = map[Name]bool{
	Greeting: true, BrowseProducts: true, ProductDetails: true, PriceCheck: true,
	StockCheck: true, AddToCart: true, CheckoutLink: true, BrowseServices: true,
	ServiceDetails: true, CheckAvailability: true, BookAppointment: true,
	RescheduleAppointment: true, CancelAppointment: true, OptInPromotions: true,
	OptOutPromotions: true, StopAll: true, StartAll: true, HumanHandoff: true,
	Other: true,
}

// Category groups intents for priority scoring per spec.md §4.7.
type Category string

const (
	CategoryUrgent        Category = "urgent"
	CategoryTransactional Category = "transactional"
	CategoryInformational Category = "informational"
	CategoryBrowsing      Category = "browsing"
	CategorySupport       Category = "support"
)

var categoryBase = map[Category]int{
	CategoryUrgent:        100,
	CategoryTransactional: 80,
	CategoryInformational: 60,
	CategorySupport:       50,
	CategoryBrowsing:      40,
}

var nameCategory = map[Name]Category{
	HumanHandoff:          CategoryUrgent,
	CancelAppointment:     CategoryUrgent,
	CheckoutLink:          CategoryTransactional,
	AddToCart:             CategoryTransactional,
	BookAppointment:       CategoryTransactional,
	RescheduleAppointment: CategoryTransactional,
	OptInPromotions:       CategoryTransactional,
	OptOutPromotions:      CategoryTransactional,
	StopAll:               CategoryTransactional,
	StartAll:              CategoryTransactional,
	PriceCheck:            CategoryInformational,
	StockCheck:            CategoryInformational,
	ProductDetails:        CategoryInformational,
	ServiceDetails:        CategoryInformational,
	CheckAvailability:     CategoryInformational,
	BrowseProducts:        CategoryBrowsing,
	BrowseServices:        CategoryBrowsing,
	Greeting:              CategorySupport,
	Other:                 CategorySupport,
}

func categoryOf(n Name) Category {
	if c, ok := nameCategory[n]; ok {
		return c
	}
	return CategorySupport
}

// Intent is a single detected customer goal with its slots and reasoning.
type Intent struct {
	Name       Name              `json:"name"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots"`
	Reasoning  string            `json:"reasoning"`

	Category Category `json:"-"`
	Priority int      `json:"-"`
}

// normalize clamps confidence, collapses unknown names to Other/support,
// and computes the priority score: category base + floor(confidence*20).
func normalize(in Intent) Intent {
	if in.Confidence < 0 {
		in.Confidence = 0
	}
	if in.Confidence > 1 {
		in.Confidence = 1
	}
	if !vocabulary[in.Name] {
		in.Name = Other
	}
	in.Category = categoryOf(in.Name)
	in.Priority = categoryBase[in.Category] + int(in.Confidence*20)
	return in
}

// LLM is the minimal chat surface the detector needs; satisfied by
// ai/llmclient.Service.Chat.
type LLM interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ContextCues carries the terse-message disambiguation inputs spec.md
// §4.7 requires the detector to use: the last referenced product/service
// and whether the prior outbound message asked a closed (yes/no) question.
type ContextCues struct {
	LastProductViewed string
	LastServiceViewed string
	PriorAskedClosedQuestion bool
}

var terseMessages = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true,
	"no": true, "nope": true, "that one": true, "how much": true, "how much?": true,
}

// IsTerse reports whether message is one of the closed-form acknowledgements
// spec.md names as requiring context-aware inference.
func IsTerse(message string) bool {
	return terseMessages[strings.ToLower(strings.TrimSpace(message))]
}

// Detector calls the LLM with a strict JSON schema prompt and parses the
// resulting intent list.
type Detector struct {
	llm   LLM
	cache *cache.SemanticCache // optional; nil calls the LLM on every message
}

func NewDetector(llm LLM) *Detector {
	return &Detector{llm: llm}
}

// WithCache enables semantic caching of detection results: a message
// whose text exactly matches, or whose embedding is similar enough to,
// a previously classified message skips the LLM call and reuses its
// intents. Terse messages are never cached, since their correct
// classification depends on ContextCues the cache key doesn't carry.
func (d *Detector) WithCache(c *cache.SemanticCache) *Detector {
	d.cache = c
	return d
}

const systemPrompt = `You are an intent classifier for a conversational commerce assistant.
Given the customer's message, return a strict JSON object:
{"intents": [{"name": "<INTENT>", "confidence": <0..1>, "slots": {...}, "reasoning": "..."}]}
Valid intent names: GREETING, BROWSE_PRODUCTS, PRODUCT_DETAILS, PRICE_CHECK, STOCK_CHECK,
ADD_TO_CART, CHECKOUT_LINK, BROWSE_SERVICES, SERVICE_DETAILS, CHECK_AVAILABILITY,
BOOK_APPOINTMENT, RESCHEDULE_APPOINTMENT, CANCEL_APPOINTMENT, OPT_IN_PROMOTIONS,
OPT_OUT_PROMOTIONS, STOP_ALL, START_ALL, HUMAN_HANDOFF, OTHER.
Return one or more intents, most relevant first. Respond with JSON only.`

// Detect extracts, categorises, and priority-sorts every intent in
// message. When cues indicate a terse follow-up ("yes", "that one", ...)
// they are folded into the prompt so the detector's confidence does not
// regress more than 0.1 versus the same input without cues (spec.md
// §4.7's observable contract).
func (d *Detector) Detect(ctx context.Context, message string, cues ContextCues) ([]Intent, error) {
	cacheable := d.cache != nil && !IsTerse(message)
	if cacheable {
		if data, found := d.cache.GetCachedValue(ctx, message); found {
			var intents []Intent
			if err := json.Unmarshal(data, &intents); err == nil {
				for i := range intents {
					intents[i] = normalize(intents[i])
				}
				return intents, nil
			}
		}
	}

	user := buildUserPrompt(message, cues)

	raw, err := d.llm.Chat(ctx, systemPrompt, user)
	if err != nil {
		return nil, errors.Wrap(err, "intent detection llm call failed")
	}

	intents, err := parseIntents(raw)
	if err != nil || len(intents) == 0 {
		return []Intent{}, nil
	}

	for i := range intents {
		intents[i] = normalize(intents[i])
	}
	sort.SliceStable(intents, func(i, j int) bool {
		if intents[i].Priority != intents[j].Priority {
			return intents[i].Priority > intents[j].Priority
		}
		return intents[i].Confidence > intents[j].Confidence
	})

	if cacheable {
		if data, err := json.Marshal(intents); err == nil {
			_ = d.cache.SetCachedValue(ctx, message, data)
		}
	}
	return intents, nil
}

func buildUserPrompt(message string, cues ContextCues) string {
	var b strings.Builder
	b.WriteString("Customer message: ")
	b.WriteString(message)
	if IsTerse(message) {
		b.WriteString("\n\nThis message is terse/ambiguous. Use these conversational cues:")
		if cues.LastProductViewed != "" {
			b.WriteString("\nLast product viewed: " + cues.LastProductViewed)
		}
		if cues.LastServiceViewed != "" {
			b.WriteString("\nLast service viewed: " + cues.LastServiceViewed)
		}
		if cues.PriorAskedClosedQuestion {
			b.WriteString("\nThe assistant's previous message asked a yes/no question.")
		}
	}
	return b.String()
}

// parseIntents permissively extracts a JSON object from raw (delegated
// to ai/prompt.ExtractJSON) and decodes its "intents" array, matching
// spec.md §4.9's permissive JSON extraction contract.
func parseIntents(raw string) ([]Intent, error) {
	candidate := prompt.ExtractJSON(raw)
	if candidate == "" {
		return nil, errors.New("no JSON object found in response")
	}
	var payload struct {
		Intents []Intent `json:"intents"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode intents JSON")
	}
	return payload.Intents, nil
}
