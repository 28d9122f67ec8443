// Package fuzzymatch provides Levenshtein-ratio string similarity for
// matching misspelled or informal customer wording against catalog
// items and against the model's own claims. Grounded on
// original_source/apps/bot/services/fuzzy_matcher_service.py's
// FuzzyMatcherService: Go has no equivalent of Python's
// difflib.SequenceMatcher, so similarity here is computed from edit
// distance (github.com/xrash/smetrics, the string-metrics library
// already present in the retrieval pack) rather than
// Ratcliff-Obershelp, which the original used — a different algorithm
// computing the same kind of [0,1] ratio.
package fuzzymatch

import (
	"regexp"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/conversagent/core/store"
)

// Similarity thresholds, carried over from the original's
// DEFAULT_THRESHOLD / HIGH_CONFIDENCE_THRESHOLD / LOW_CONFIDENCE_THRESHOLD.
const (
	DefaultThreshold      = 0.7
	HighConfidenceThreshold = 0.85
	LowConfidenceThreshold  = 0.6
)

// commonAbbreviations expands informal catalog vocabulary the same way
// the original's COMMON_ABBREVIATIONS map does.
var commonAbbreviations = map[string]string{
	"tshirt":   "t-shirt",
	"t shirt":  "t-shirt",
	"tee":      "t-shirt",
	"hoodie":   "hooded sweatshirt",
	"sweater":  "sweatshirt",
	"pants":    "trousers",
	"jeans":    "denim pants",
	"sneakers": "athletic shoes",
	"trainers": "athletic shoes",
	"runners":  "running shoes",
}

var nonWordChars = regexp.MustCompile(`[^a-z0-9\s\-]`)
var extraSpace = regexp.MustCompile(`\s+`)

// normalize lowercases, strips everything but letters/digits/spaces/
// hyphens, and collapses whitespace, matching _normalize_text.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordChars.ReplaceAllString(s, "")
	s = extraSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// expandAbbreviations replaces whole-word occurrences of known informal
// names with their catalog-facing equivalent.
func expandAbbreviations(s string) string {
	for abbrev, full := range commonAbbreviations {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(abbrev) + `\b`)
		s = pattern.ReplaceAllString(s, full)
	}
	return s
}

// Similarity returns a Levenshtein-ratio similarity score in [0,1]
// between two (already-normalized or raw) strings: 1 - distance /
// the longer string's length. Either string empty yields 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	score := 1 - float64(dist)/float64(maxLen)
	if score < 0 {
		score = 0
	}
	return score
}

// titleDescriptionScore mirrors _calculate_string_similarity: title
// similarity with a substring boost to 0.85, description similarity
// with a substring boost to 0.75 weighted at 0.8, the higher of the two
// wins.
func titleDescriptionScore(query, title, description string) float64 {
	queryNorm := normalize(query)
	titleNorm := normalize(title)

	titleScore := Similarity(queryNorm, titleNorm)
	if strings.Contains(titleNorm, queryNorm) || strings.Contains(queryNorm, titleNorm) {
		titleScore = maxFloat(titleScore, 0.85)
	}

	var descScore float64
	if description != "" {
		descNorm := normalize(description)
		descScore = Similarity(queryNorm, descNorm)
		if strings.Contains(descNorm, queryNorm) {
			descScore = maxFloat(descScore, 0.75)
		}
	}

	return maxFloat(titleScore, descScore*0.8)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ProductMatch pairs a product with its match confidence.
type ProductMatch struct {
	Product    *store.Product
	Confidence float64
}

// MatchProducts scores every product against query (after abbreviation
// expansion), keeps those at or above threshold, and returns them
// sorted by descending confidence, capped at limit. An exact
// (normalized) title containment boosts confidence to at least 0.95,
// matching the original's exact-match boost.
func MatchProducts(query string, products []*store.Product, threshold float64, limit int) []ProductMatch {
	expanded := expandAbbreviations(normalize(query))
	var matches []ProductMatch
	for _, p := range products {
		confidence := titleDescriptionScore(expanded, p.Name, p.Description)
		if strings.Contains(strings.ToLower(p.Name), normalize(query)) {
			confidence = maxFloat(confidence, 0.95)
		}
		if confidence >= threshold {
			matches = append(matches, ProductMatch{Product: p, Confidence: confidence})
		}
	}
	sortMatches(len(matches), func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence }, func(i, j int) { matches[i], matches[j] = matches[j], matches[i] })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ServiceMatch pairs a service with its match confidence.
type ServiceMatch struct {
	Service    *store.Service
	Confidence float64
}

// MatchServices is MatchProducts' counterpart for services.
func MatchServices(query string, services []*store.Service, threshold float64, limit int) []ServiceMatch {
	expanded := expandAbbreviations(normalize(query))
	var matches []ServiceMatch
	for _, s := range services {
		confidence := titleDescriptionScore(expanded, s.Name, s.Description)
		if strings.Contains(strings.ToLower(s.Name), normalize(query)) {
			confidence = maxFloat(confidence, 0.95)
		}
		if confidence >= threshold {
			matches = append(matches, ServiceMatch{Service: s, Confidence: confidence})
		}
	}
	sortMatches(len(matches), func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence }, func(i, j int) { matches[i], matches[j] = matches[j], matches[i] })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// sortMatches is a tiny insertion sort so MatchProducts/MatchServices
// don't need to pull in sort.Slice twice with near-identical closures;
// result sets are catalog-page sized, not large.
func sortMatches(n int, less func(i, j int) bool, swap func(i, j int)) {
	for i := 1; i < n; i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			swap(j, j-1)
		}
	}
}

// CorrectSpelling replaces each word of text that doesn't already
// appear in vocabulary (case-insensitive) with its closest vocabulary
// match, provided that match's similarity is at least threshold;
// otherwise the original word is kept. Mirrors correct_spelling.
func CorrectSpelling(text string, vocabulary []string, threshold float64) string {
	words := strings.Fields(normalize(text))
	corrected := make([]string, len(words))
	for i, word := range words {
		if inVocabulary(word, vocabulary) {
			corrected[i] = word
			continue
		}
		best, bestScore := "", 0.0
		for _, v := range vocabulary {
			score := Similarity(word, strings.ToLower(v))
			if score > bestScore && score >= threshold {
				bestScore = score
				best = v
			}
		}
		if best != "" {
			corrected[i] = best
		} else {
			corrected[i] = word
		}
	}
	return strings.Join(corrected, " ")
}

func inVocabulary(word string, vocabulary []string) bool {
	for _, v := range vocabulary {
		if strings.EqualFold(word, v) {
			return true
		}
	}
	return false
}

// ConfidenceLevel buckets a score into "high"/"medium"/"low", matching
// get_confidence_level.
func ConfidenceLevel(score float64) string {
	switch {
	case score >= HighConfidenceThreshold:
		return "high"
	case score >= LowConfidenceThreshold:
		return "medium"
	default:
		return "low"
	}
}

// ShouldConfirmCorrection reports whether a match's confidence is low
// enough that the customer should be asked to confirm it rather than
// having it applied silently.
func ShouldConfirmCorrection(score float64) bool {
	return score < HighConfidenceThreshold
}

// ContainsSimilarWord reports whether any whitespace-delimited word in
// haystack is at or above threshold similarity to needle, used as a
// typo-tolerant backstop where an exact substring check would
// otherwise reject a claim over a single misspelled word.
func ContainsSimilarWord(haystack, needle string, threshold float64) bool {
	needle = strings.ToLower(needle)
	for _, word := range strings.Fields(strings.ToLower(haystack)) {
		if Similarity(word, needle) >= threshold {
			return true
		}
	}
	return false
}
