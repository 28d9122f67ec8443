package attribution

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	agentcontext "github.com/conversagent/core/ai/context"
)

func TestAdd_DisabledReturnsReplyUnchanged(t *testing.T) {
	sources := []agentcontext.RAGSource{{Origin: "database", Title: "Catalog"}}
	got := Add("here you go", sources, StyleEndnote, false)
	require.Equal(t, "here you go", got)
}

func TestAdd_NoSourcesReturnsReplyUnchanged(t *testing.T) {
	got := Add("here you go", nil, StyleEndnote, true)
	require.Equal(t, "here you go", got)
}

func TestAdd_Inline_GroupsByOriginOnce(t *testing.T) {
	sources := []agentcontext.RAGSource{
		{Origin: "database", Title: "Blue Shirt"},
		{Origin: "database", Title: "Red Shirt"},
		{Origin: "document", Title: "Return Policy"},
	}
	got := Add("We have that in stock.", sources, StyleInline, true)
	require.Equal(t, "We have that in stock. (based on our catalog, our documentation)", got)
}

func TestAdd_Endnote_NumbersAndDedupes(t *testing.T) {
	sources := []agentcontext.RAGSource{
		{Origin: "database", Title: "Blue Shirt"},
		{Origin: "database", Title: "Blue Shirt"},
		{Origin: "document", Title: "Return Policy"},
		{Origin: "internet", Title: "Shipping FAQ"},
	}
	got := Add("We have that in stock.", sources, StyleEndnote, true)

	require.True(t, strings.HasPrefix(got, "We have that in stock.\n\n---\nSources:\n"))
	require.Contains(t, got, "[1] Our Catalog")
	require.Contains(t, got, "[2] Return Policy")
	require.Contains(t, got, "[3] Shipping FAQ")
	require.Equal(t, 1, strings.Count(got, "Our Catalog"))
}

func TestAdd_Endnote_UnknownOriginFallsBack(t *testing.T) {
	sources := []agentcontext.RAGSource{{Origin: "mystery", Title: "???"}}
	got := Add("answer", sources, StyleEndnote, true)
	require.Contains(t, got, "[1] Unknown source")
}
