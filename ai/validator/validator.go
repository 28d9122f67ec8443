// Package validator checks a prospective reply's factual claims against
// the assembled AgentContext before it is sent, per spec.md §4.10.
// Claim extraction uses pre-compiled regular expressions, grounded on
// ai/routing/rule_matcher.go's pre-compiled-regex idiom.
package validator

import (
	"regexp"
	"strconv"
	"strings"

	agentcontext "github.com/conversagent/core/ai/context"
	"github.com/conversagent/core/ai/fuzzymatch"
)

// wordMatchThreshold is how close a reply word must be to a
// significant word of a claimed name/descriptor, via fuzzymatch, to
// count as a hit when the exact substring check misses — tolerating a
// single typo in an otherwise-matching word.
const wordMatchThreshold = 0.8

// ClaimKind identifies which of spec.md §4.10's four claim shapes
// matched.
type ClaimKind string

const (
	ClaimPrice        ClaimKind = "price"
	ClaimAvailability ClaimKind = "availability"
	ClaimFeature      ClaimKind = "feature"
	ClaimExistence    ClaimKind = "existence"
)

// Claim is one statement extracted from a reply.
type Claim struct {
	Kind  ClaimKind
	Text  string
	Value string // the numeric price, descriptor, or referenced item text
}

var (
	pricePattern        = regexp.MustCompile(`(?i)(?:[$€£¥]|\b(?:usd|eur|gbp)\b)\s*([0-9]+(?:[.,][0-9]{1,2})?)`)
	availabilityPattern = regexp.MustCompile(`(?i)\b(in stock|out of stock|available|unavailable|\w+\s+\d+\s+in stock)\b`)
	featurePattern      = regexp.MustCompile(`(?i)\b(?:has|have|includes?|comes with|features?)\s+([a-z0-9 ,'-]+)`)
	existencePattern    = regexp.MustCompile(`(?i)\bwe\s+(?:have|offer|sell)\s+([a-z0-9 ,'-]+)`)
)

// ExtractClaims returns every claim found in reply, in order of
// appearance, deduplicated by (kind, text).
func ExtractClaims(reply string) []Claim {
	var claims []Claim
	seen := make(map[string]bool)
	add := func(k ClaimKind, text, value string) {
		key := string(k) + "|" + text
		if seen[key] {
			return
		}
		seen[key] = true
		claims = append(claims, Claim{Kind: k, Text: text, Value: strings.TrimSpace(value)})
	}

	for _, m := range pricePattern.FindAllStringSubmatch(reply, -1) {
		add(ClaimPrice, m[0], m[1])
	}
	for _, m := range availabilityPattern.FindAllStringSubmatch(reply, -1) {
		add(ClaimAvailability, m[0], m[1])
	}
	for _, m := range featurePattern.FindAllStringSubmatch(reply, -1) {
		add(ClaimFeature, m[0], m[1])
	}
	for _, m := range existencePattern.FindAllStringSubmatch(reply, -1) {
		add(ClaimExistence, m[0], m[1])
	}
	return claims
}

// Result is the outcome of validating one reply.
type Result struct {
	Pass             bool
	UnverifiedClaims []Claim
}

const priceTolerance = 0.01

// Validate checks every claim in reply against ctx. A reply with no
// claims passes trivially. The first claim that cannot be grounded
// fails the whole reply, but every unverified claim is collected so
// the caller can decide whether to strip the offending sentence or
// escalate to handoff, per spec.md §4.10.
func Validate(reply string, ctx *agentcontext.AgentContext) Result {
	claims := ExtractClaims(reply)
	if len(claims) == 0 {
		return Result{Pass: true}
	}

	var unverified []Claim
	for _, c := range claims {
		if !verify(c, reply, ctx) {
			unverified = append(unverified, c)
		}
	}
	return Result{Pass: len(unverified) == 0, UnverifiedClaims: unverified}
}

func verify(c Claim, reply string, ctx *agentcontext.AgentContext) bool {
	switch c.Kind {
	case ClaimPrice:
		return verifyPrice(c, reply, ctx)
	case ClaimAvailability:
		return verifyAvailability(c, reply, ctx)
	case ClaimFeature:
		return verifyFeature(c, ctx)
	case ClaimExistence:
		return verifyExistence(c, ctx)
	default:
		return true
	}
}

func parsePrice(raw string) (float64, bool) {
	normalized := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// verifyPrice requires the referenced item (found by title match
// against the surrounding reply text) to have a price within ±0.01 of
// the claimed value.
func verifyPrice(c Claim, reply string, ctx *agentcontext.AgentContext) bool {
	claimed, ok := parsePrice(c.Value)
	if !ok {
		return false
	}
	for _, p := range ctx.Products {
		if referencesItem(reply, p.Name) && withinTolerance(p.Price, claimed) {
			return true
		}
	}
	for _, s := range ctx.Services {
		if referencesItem(reply, s.Name) && withinTolerance(s.Price, claimed) {
			return true
		}
	}
	return false
}

func withinTolerance(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= priceTolerance
}

func verifyAvailability(c Claim, reply string, ctx *agentcontext.AgentContext) bool {
	lower := strings.ToLower(c.Value)
	claimsInStock := strings.Contains(lower, "in stock") || lower == "available"
	for _, p := range ctx.Products {
		if !referencesItem(reply, p.Name) {
			continue
		}
		return p.InStock == claimsInStock
	}
	return false
}

func verifyFeature(c Claim, ctx *agentcontext.AgentContext) bool {
	return descriptorOverlaps(c.Value, ctx)
}

func verifyExistence(c Claim, ctx *agentcontext.AgentContext) bool {
	return len(ctx.Products) > 0 || len(ctx.Services) > 0
}

// referencesItem reports whether reply mentions name in full, or at
// least half of its significant (len > 2) words appear in reply.
func referencesItem(reply, name string) bool {
	lowerReply := strings.ToLower(reply)
	lowerName := strings.ToLower(name)
	if lowerName == "" {
		return false
	}
	if strings.Contains(lowerReply, lowerName) {
		return true
	}
	words := significantWords(lowerName)
	if len(words) == 0 {
		return false
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(lowerReply, w) || fuzzymatch.ContainsSimilarWord(lowerReply, w, wordMatchThreshold) {
			hits++
		}
	}
	return hits*2 >= len(words)
}

// descriptorOverlaps reports whether descriptor substring-matches, or
// at least half its significant words overlap with, any product or
// service description in ctx.
func descriptorOverlaps(descriptor string, ctx *agentcontext.AgentContext) bool {
	lowerDescriptor := strings.ToLower(descriptor)
	check := func(description string) bool {
		lowerDesc := strings.ToLower(description)
		if lowerDesc == "" {
			return false
		}
		if strings.Contains(lowerDesc, lowerDescriptor) || strings.Contains(lowerDescriptor, lowerDesc) {
			return true
		}
		words := significantWords(lowerDescriptor)
		if len(words) == 0 {
			return false
		}
		hits := 0
		for _, w := range words {
			if strings.Contains(lowerDesc, w) || fuzzymatch.ContainsSimilarWord(lowerDesc, w, wordMatchThreshold) {
				hits++
			}
		}
		return hits*2 >= len(words)
	}
	for _, p := range ctx.Products {
		if check(p.Description) {
			return true
		}
	}
	for _, s := range ctx.Services {
		if check(s.Description) {
			return true
		}
	}
	return false
}

func significantWords(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
