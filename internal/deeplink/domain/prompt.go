package domain

import (
	"encoding/json"
	"strconv"
)

// ButtonKind distinguishes reply buttons from link buttons.
type ButtonKind string

const (
	ButtonReply ButtonKind = "reply"
	ButtonURL   ButtonKind = "url"
)

// Prompt is the first message sent to a user after bootstrap: either a
// TextPrompt or an InteractivePrompt.
type Prompt interface {
	isPrompt()
}

// TextPrompt is a plain text message.
type TextPrompt struct {
	Text string `json:"text"`
}

func (TextPrompt) isPrompt() {}

// MarshalJSON adds the type tag.
func (p TextPrompt) MarshalJSON() ([]byte, error) {
	type plain TextPrompt
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{"text", plain(p)})
}

// Button is an option on an interactive prompt.
type Button struct {
	Kind    ButtonKind `json:"kind"`
	Title   string     `json:"title"`
	Payload string     `json:"payload,omitempty"`
	URL     string     `json:"url,omitempty"`
}

// InteractivePrompt is a message with buttons.
type InteractivePrompt struct {
	Header  string   `json:"header,omitempty"`
	Body    string   `json:"body"`
	Buttons []Button `json:"buttons"`
}

func (InteractivePrompt) isPrompt() {}

// MarshalJSON adds the type tag.
func (p InteractivePrompt) MarshalJSON() ([]byte, error) {
	type plain InteractivePrompt
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{"interactive", plain(p)})
}

// OutboundMessage is a prompt rendered for the messaging channel.
type OutboundMessage struct {
	Type    string           `json:"type"`
	To      string           `json:"to"`
	Text    string           `json:"text,omitempty"`
	Header  string           `json:"header,omitempty"`
	Body    string           `json:"body,omitempty"`
	Buttons []OutboundButton `json:"buttons,omitempty"`
}

// OutboundButton is a rendered button. Reply buttons carry the id echoed back
// by the channel when tapped.
type OutboundButton struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// RenderOutbound converts a prompt into the outbound message for recipient to.
func RenderOutbound(to string, prompt Prompt) OutboundMessage {
	switch p := prompt.(type) {
	case TextPrompt:
		return OutboundMessage{Type: "text", To: to, Text: p.Text}
	case InteractivePrompt:
		buttons := make([]OutboundButton, 0, len(p.Buttons))
		for i, button := range p.Buttons {
			if button.Kind == ButtonURL {
				buttons = append(buttons, OutboundButton{Type: "url", Title: button.Title, URL: button.URL})
				continue
			}
			id := button.Payload
			if id == "" {
				id = "deeplink_option_" + strconv.Itoa(i+1)
			}
			buttons = append(buttons, OutboundButton{Type: "reply", ID: id, Title: button.Title})
		}
		return OutboundMessage{
			Type:    "buttons",
			To:      to,
			Header:  p.Header,
			Body:    p.Body,
			Buttons: buttons,
		}
	default:
		return OutboundMessage{Type: "text", To: to}
	}
}
