package domain

import (
	"encoding/json"
	"fmt"
)

// Stages a conversation can be left in after bootstrap.
const (
	StageAwaitingCertificate = "awaiting_certificate"
	StageInvitePending       = "invite_pending"
	StageConfirmAmount       = "confirm_amount"
	StageCollectAmount       = "collect_amount"
)

// DefaultCurrency is assumed when a generate_qr payload names none.
const DefaultCurrency = "RWF"

// FlowState is the initial conversation state for a flow. Serialized with a
// "flow" tag so the chat runtime can dispatch on it.
type FlowState interface {
	Flow() Flow
	isFlowState()
}

// InsuranceAttachState waits for the user to upload a certificate.
type InsuranceAttachState struct {
	Stage     string `json:"stage"`
	RequestID string `json:"request_id"`
	Note      string `json:"note,omitempty"`
}

func (InsuranceAttachState) Flow() Flow   { return FlowInsuranceAttach }
func (InsuranceAttachState) isFlowState() {}

// MarshalJSON adds the flow tag.
func (s InsuranceAttachState) MarshalJSON() ([]byte, error) {
	type plain InsuranceAttachState
	return json.Marshal(struct {
		Flow Flow `json:"flow"`
		plain
	}{s.Flow(), plain(s)})
}

// BasketOpenState waits for the user to accept the basket invitation.
type BasketOpenState struct {
	Stage      string `json:"stage"`
	BasketID   string `json:"basket_id"`
	InviteCode string `json:"invite_code,omitempty"`
}

func (BasketOpenState) Flow() Flow   { return FlowBasketOpen }
func (BasketOpenState) isFlowState() {}

// MarshalJSON adds the flow tag.
func (s BasketOpenState) MarshalJSON() ([]byte, error) {
	type plain BasketOpenState
	return json.Marshal(struct {
		Flow Flow `json:"flow"`
		plain
	}{s.Flow(), plain(s)})
}

// GenerateQRState either confirms a pre-filled amount or asks for one.
type GenerateQRState struct {
	Stage     string `json:"stage"`
	Amount    *int64 `json:"amount,omitempty"`
	Currency  string `json:"currency"`
	Reference string `json:"reference,omitempty"`
}

func (GenerateQRState) Flow() Flow   { return FlowGenerateQR }
func (GenerateQRState) isFlowState() {}

// MarshalJSON adds the flow tag.
func (s GenerateQRState) MarshalJSON() ([]byte, error) {
	type plain GenerateQRState
	return json.Marshal(struct {
		Flow Flow `json:"flow"`
		plain
	}{s.Flow(), plain(s)})
}

// BuildBootstrap returns the initial state and first prompt for a validated
// payload. It is pure: no I/O, no clock.
func BuildBootstrap(payload FlowPayload) (FlowState, Prompt) {
	switch p := payload.(type) {
	case InsuranceAttachPayload:
		return buildInsuranceAttach(p)
	case BasketOpenPayload:
		return buildBasketOpen(p)
	case GenerateQRPayload:
		return buildGenerateQR(p)
	default:
		// FlowPayload is closed; reaching this means a payload type was added
		// without a builder.
		panic(fmt.Sprintf("deeplink: no bootstrap builder for %T", payload))
	}
}

func buildInsuranceAttach(p InsuranceAttachPayload) (FlowState, Prompt) {
	state := InsuranceAttachState{
		Stage:     StageAwaitingCertificate,
		RequestID: p.RequestID,
		Note:      p.Note,
	}
	prompt := TextPrompt{
		Text: fmt.Sprintf(
			"Please send a photo or PDF of your insurance certificate for request %s.",
			p.RequestID,
		),
	}
	return state, prompt
}

func buildBasketOpen(p BasketOpenPayload) (FlowState, Prompt) {
	state := BasketOpenState{
		Stage:      StageInvitePending,
		BasketID:   p.BasketID,
		InviteCode: p.InviteCode,
	}

	body := fmt.Sprintf("You have been invited to join basket %s.", p.BasketID)
	if p.InviteCode != "" {
		body += fmt.Sprintf(" Invite code: %s.", p.InviteCode)
	}

	prompt := InteractivePrompt{
		Header: "Savings basket",
		Body:   body,
		Buttons: []Button{
			{Kind: ButtonReply, Title: "Join basket", Payload: "basket_join::" + p.BasketID},
			{Kind: ButtonReply, Title: "View details"},
		},
	}
	return state, prompt
}

func buildGenerateQR(p GenerateQRPayload) (FlowState, Prompt) {
	currency := p.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	state := GenerateQRState{
		Amount:    p.Amount,
		Currency:  currency,
		Reference: p.Reference,
	}

	if p.Amount == nil {
		state.Stage = StageCollectAmount
		return state, TextPrompt{
			Text: fmt.Sprintf("How much would you like to receive? Reply with the amount in %s.", currency),
		}
	}

	state.Stage = StageConfirmAmount
	prompt := InteractivePrompt{
		Header: "Payment QR",
		Body:   fmt.Sprintf("Generate a payment QR code for %d %s?", *p.Amount, currency),
		Buttons: []Button{
			{Kind: ButtonReply, Title: "Generate QR", Payload: "qr_generate"},
			{Kind: ButtonReply, Title: "Change amount", Payload: "qr_change_amount"},
		},
	}
	return state, prompt
}
