package channels

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/richmessage"
)

func TestFromRichMessage_Buttons(t *testing.T) {
	msg := richmessage.Message{
		Shape:   richmessage.ShapeButtons,
		Text:    "Would you like to proceed?",
		Buttons: []richmessage.Button{{Label: "Yes", Payload: "yes"}, {Label: "No", Payload: "no"}},
	}
	payload := FromRichMessage(msg, "1555000111")
	require.Equal(t, PayloadButton, payload.Kind)
	require.Len(t, payload.Buttons, 2)
}

func TestFromRichMessage_List(t *testing.T) {
	msg := richmessage.Message{
		Shape: richmessage.ShapeList,
		Text:  "Here are a few options",
		List:  []richmessage.ListItem{{Title: "A"}, {Title: "B"}},
	}
	payload := FromRichMessage(msg, "1555000111")
	require.Equal(t, PayloadList, payload.Kind)
	require.Len(t, payload.Sections[0].Rows, 2)
}

func TestFromRichMessage_Card(t *testing.T) {
	msg := richmessage.Message{
		Shape: richmessage.ShapeCard,
		Text:  "Check this out",
		Card:  &richmessage.Card{Title: "Blue Shirt", Subtitle: "$29.99", ImageURL: "https://example.com/a.jpg"},
	}
	payload := FromRichMessage(msg, "1555000111")
	require.Equal(t, PayloadCard, payload.Kind)
	require.Equal(t, "Blue Shirt", payload.CardTitle)
}

func TestFromRichMessage_PlainText(t *testing.T) {
	msg := richmessage.Message{Shape: richmessage.ShapeText, Text: "thanks!"}
	payload := FromRichMessage(msg, "1555000111")
	require.Equal(t, PayloadText, payload.Kind)
	require.Equal(t, "thanks!", payload.Text)
}
