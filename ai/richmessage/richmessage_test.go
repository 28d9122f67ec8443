package richmessage

import (
	"testing"

	"github.com/stretchr/testify/require"

	agentcontext "github.com/conversagent/core/ai/context"
	"github.com/conversagent/core/store"
)

type fakeLimits struct {
	buttons, rows, title, body int
}

func (f fakeLimits) MaxButtons() int     { return f.buttons }
func (f fakeLimits) MaxListRows() int    { return f.rows }
func (f fakeLimits) MaxTitleLength() int { return f.title }
func (f fakeLimits) MaxBodyLength() int  { return f.body }

var generousLimits = fakeLimits{buttons: 5, rows: 10, title: 100, body: 500}

func TestBuild_SingleProductBecomesCard(t *testing.T) {
	ctx := &agentcontext.AgentContext{Products: []*store.Product{{Name: "Widget", Description: "a widget"}}}
	msg := Build("Here's the Widget.", ctx, generousLimits)
	require.Equal(t, ShapeCard, msg.Shape)
	require.Equal(t, "Widget", msg.Card.Title)
}

func TestBuild_MultipleProductsBecomeList(t *testing.T) {
	ctx := &agentcontext.AgentContext{Products: []*store.Product{{Name: "A"}, {Name: "B"}}}
	msg := Build("Here are some options.", ctx, generousLimits)
	require.Equal(t, ShapeList, msg.Shape)
	require.Len(t, msg.List, 2)
}

func TestBuild_YesNoQuestionBecomesButtons(t *testing.T) {
	msg := Build("Would you like to book this appointment?", &agentcontext.AgentContext{}, generousLimits)
	require.Equal(t, ShapeButtons, msg.Shape)
	require.Len(t, msg.Buttons, 2)
}

func TestBuild_SuggestionKeywordUsesSuggestions(t *testing.T) {
	ctx := &agentcontext.AgentContext{Suggestions: []agentcontext.Suggestion{
		{Kind: "product", Label: "Accessory", Why: "pairs well"},
	}}
	msg := Build("This might pair well with your order.", ctx, generousLimits)
	require.Equal(t, ShapeCard, msg.Shape)
	require.Equal(t, "Accessory", msg.Card.Title)
}

func TestBuild_PlainReplyStaysText(t *testing.T) {
	msg := Build("Thanks for your message.", &agentcontext.AgentContext{}, generousLimits)
	require.Equal(t, ShapeText, msg.Shape)
}

func TestBuild_ExceedsLimitFallsBackToText(t *testing.T) {
	ctx := &agentcontext.AgentContext{Products: []*store.Product{{Name: "A"}, {Name: "B"}, {Name: "C"}}}
	strict := fakeLimits{buttons: 5, rows: 2, title: 100, body: 500}
	msg := Build("Here are some options.", ctx, strict)
	require.Equal(t, ShapeText, msg.Shape)
	require.Equal(t, ShapeList, msg.FallbackShape)
	require.NotEmpty(t, msg.FallbackNote)
}
