// Package domain defines the deep-link capability token model: flows and their
// payload schemas, signed claims, persisted token records, audit events, the
// chat session written at bootstrap and the first prompt sent to the user.
package domain

import "fmt"

// Flow names a deep-link use case. The set is closed; adding a flow means adding
// a constant here, a payload type in payload.go and an arm in BuildBootstrap.
type Flow string

const (
	// FlowInsuranceAttach lets a user attach an insurance certificate to a request.
	FlowInsuranceAttach Flow = "insurance_attach"

	// FlowBasketOpen opens a shared savings basket.
	FlowBasketOpen Flow = "basket_open"

	// FlowGenerateQR generates a payment QR code.
	FlowGenerateQR Flow = "generate_qr"
)

// Flows lists every known flow in a stable order.
var Flows = []Flow{FlowInsuranceAttach, FlowBasketOpen, FlowGenerateQR}

// ParseFlow converts a raw string into a Flow, rejecting unknown values.
func ParseFlow(raw string) (Flow, error) {
	for _, flow := range Flows {
		if string(flow) == raw {
			return flow, nil
		}
	}
	return "", fmt.Errorf("unknown flow %q", raw)
}

// NextStepHint is the copy shown on the browser landing page after a
// successful resolve.
func (f Flow) NextStepHint() string {
	switch f {
	case FlowInsuranceAttach:
		return "Open WhatsApp and send a photo or PDF of your insurance certificate."
	case FlowBasketOpen:
		return "Open WhatsApp to view the basket and accept the invitation."
	case FlowGenerateQR:
		return "Open WhatsApp to confirm the amount and receive your payment QR code."
	default:
		return "Open WhatsApp to continue."
	}
}

// FlagKey is the feature-flag key gating the flow.
func (f Flow) FlagKey() string {
	return "deeplinks." + string(f)
}
