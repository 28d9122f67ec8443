package fuzzymatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/store"
)

func TestSimilarity_IdenticalIsOne(t *testing.T) {
	require.Equal(t, 1.0, Similarity("blue shirt", "blue shirt"))
}

func TestSimilarity_EmptyIsZero(t *testing.T) {
	require.Equal(t, 0.0, Similarity("", "blue shirt"))
	require.Equal(t, 0.0, Similarity("blue shirt", ""))
}

func TestSimilarity_CloseTypoScoresHigh(t *testing.T) {
	got := Similarity("blu shrt", "blue shirt")
	require.Greater(t, got, 0.7)
	require.Less(t, got, 1.0)
}

func TestMatchProducts_FiltersByThresholdAndSorts(t *testing.T) {
	products := []*store.Product{
		{Name: "Blue Shirt", Description: "A comfortable cotton shirt"},
		{Name: "Red Hat", Description: "A baseball cap"},
		{Name: "Blue Shrt", Description: "Slight typo of the same product"},
	}
	matches := MatchProducts("blue shirt", products, DefaultThreshold, 5)

	require.Len(t, matches, 2)
	require.Equal(t, "Blue Shirt", matches[0].Product.Name)
	require.GreaterOrEqual(t, matches[0].Confidence, matches[1].Confidence)
}

func TestMatchProducts_ExactSubstringBoosts(t *testing.T) {
	products := []*store.Product{{Name: "Blue Shirt XL", Description: ""}}
	matches := MatchProducts("blue shirt", products, DefaultThreshold, 5)

	require.Len(t, matches, 1)
	require.GreaterOrEqual(t, matches[0].Confidence, 0.95)
}

func TestMatchProducts_RespectsLimit(t *testing.T) {
	products := []*store.Product{
		{Name: "Blue Shirt"}, {Name: "Blue Shirt 2"}, {Name: "Blue Shirt 3"},
	}
	matches := MatchProducts("blue shirt", products, 0.3, 2)
	require.Len(t, matches, 2)
}

func TestMatchServices_Basic(t *testing.T) {
	services := []*store.Service{
		{Name: "Haircut", Description: "A basic haircut"},
		{Name: "Manicure", Description: "Nail care"},
	}
	matches := MatchServices("haircut", services, DefaultThreshold, 5)
	require.Len(t, matches, 1)
	require.Equal(t, "Haircut", matches[0].Service.Name)
}

func TestCorrectSpelling_CorrectsMisspelledWord(t *testing.T) {
	vocabulary := []string{"shirt", "trousers", "jacket"}
	got := CorrectSpelling("i want a shrt", vocabulary, 0.7)
	require.Equal(t, "i want a shirt", got)
}

func TestCorrectSpelling_LeavesUnmatchedWordAlone(t *testing.T) {
	vocabulary := []string{"shirt", "trousers"}
	got := CorrectSpelling("completely unrelated phrase", vocabulary, 0.9)
	require.Equal(t, "completely unrelated phrase", got)
}

func TestConfidenceLevel(t *testing.T) {
	require.Equal(t, "high", ConfidenceLevel(0.9))
	require.Equal(t, "medium", ConfidenceLevel(0.65))
	require.Equal(t, "low", ConfidenceLevel(0.3))
}

func TestShouldConfirmCorrection(t *testing.T) {
	require.True(t, ShouldConfirmCorrection(0.7))
	require.False(t, ShouldConfirmCorrection(0.9))
}

func TestContainsSimilarWord(t *testing.T) {
	require.True(t, ContainsSimilarWord("the blu shirt is nice", "blue", 0.7))
	require.False(t, ContainsSimilarWord("completely different text", "blue", 0.7))
}
