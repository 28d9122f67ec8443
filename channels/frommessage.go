package channels

import "github.com/conversagent/core/ai/richmessage"

// FromRichMessage converts ai/richmessage's channel-agnostic structured
// reply into the OutboundPayload a ChatChannel actually sends, per
// spec.md §6's text/button/list/media-card payload variants.
func FromRichMessage(msg richmessage.Message, to string) OutboundPayload {
	payload := OutboundPayload{To: to, Text: msg.Text}

	switch msg.Shape {
	case richmessage.ShapeButtons:
		payload.Kind = PayloadButton
		for _, b := range msg.Buttons {
			payload.Buttons = append(payload.Buttons, ButtonOption{Label: b.Label, Payload: b.Payload})
		}
	case richmessage.ShapeList:
		payload.Kind = PayloadList
		rows := make([]ListRow, 0, len(msg.List))
		for _, item := range msg.List {
			rows = append(rows, ListRow{Title: item.Title, Subtitle: item.Subtitle})
		}
		payload.Sections = []ListSection{{Rows: rows}}
	case richmessage.ShapeCard:
		payload.Kind = PayloadCard
		if msg.Card != nil {
			payload.CardTitle = msg.Card.Title
			payload.CardCaption = msg.Card.Subtitle
			payload.MediaURL = msg.Card.ImageURL
		}
	default:
		payload.Kind = PayloadText
	}

	return payload
}
