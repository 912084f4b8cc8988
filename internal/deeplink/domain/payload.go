package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"

	validation "github.com/jellydator/validation"

	customValidation "github.com/easymo/deeplinks/internal/validation"
)

// NonceKey is the payload key reserved for the issuance nonce.
const NonceKey = "nonce"

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// FlowPayload is the flow-specific body of a deep link. The implementations
// below are the only ones; the unexported method keeps the set closed.
type FlowPayload interface {
	// Flow returns the flow this payload belongs to.
	Flow() Flow
	// Validate checks the payload against the flow schema.
	Validate() error
	// Fields returns the payload as a JSON-compatible map for persistence.
	Fields() map[string]any

	isFlowPayload()
}

// InsuranceAttachPayload identifies the insurance request a certificate is attached to.
type InsuranceAttachPayload struct {
	RequestID string `json:"request_id"`
	Note      string `json:"note,omitempty"`
}

func (InsuranceAttachPayload) Flow() Flow     { return FlowInsuranceAttach }
func (InsuranceAttachPayload) isFlowPayload() {}

// Validate checks the insurance_attach schema.
func (p InsuranceAttachPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.RequestID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(3, 128),
		),
		validation.Field(&p.Note, validation.Length(0, 500)),
	)
}

// Fields returns the persisted representation.
func (p InsuranceAttachPayload) Fields() map[string]any {
	fields := map[string]any{"request_id": p.RequestID}
	if p.Note != "" {
		fields["note"] = p.Note
	}
	return fields
}

// BasketOpenPayload identifies the shared savings basket to open.
type BasketOpenPayload struct {
	BasketID   string `json:"basket_id"`
	InviteCode string `json:"invite_code,omitempty"`
}

func (BasketOpenPayload) Flow() Flow     { return FlowBasketOpen }
func (BasketOpenPayload) isFlowPayload() {}

// Validate checks the basket_open schema.
func (p BasketOpenPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.BasketID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 128),
		),
		validation.Field(&p.InviteCode, validation.Length(0, 64)),
	)
}

// Fields returns the persisted representation.
func (p BasketOpenPayload) Fields() map[string]any {
	fields := map[string]any{"basket_id": p.BasketID}
	if p.InviteCode != "" {
		fields["invite_code"] = p.InviteCode
	}
	return fields
}

// GenerateQRPayload optionally pre-fills the QR amount.
type GenerateQRPayload struct {
	Amount    *int64 `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Reference string `json:"reference,omitempty"`
}

func (GenerateQRPayload) Flow() Flow     { return FlowGenerateQR }
func (GenerateQRPayload) isFlowPayload() {}

// Validate checks the generate_qr schema.
func (p GenerateQRPayload) Validate() error {
	positive := validation.NewError("validation_positive_integer", "must be a positive integer")

	return validation.ValidateStruct(&p,
		validation.Field(&p.Amount,
			validation.NilOrNotEmpty.ErrorObject(positive),
			validation.Min(int64(1)).ErrorObject(positive),
		),
		validation.Field(&p.Currency, validation.Match(currencyRegex).Error("must be a 3-letter ISO code")),
		validation.Field(&p.Reference, validation.Length(0, 64)),
	)
}

// Fields returns the persisted representation.
func (p GenerateQRPayload) Fields() map[string]any {
	fields := map[string]any{}
	if p.Amount != nil {
		fields["amount"] = *p.Amount
	}
	if p.Currency != "" {
		fields["currency"] = p.Currency
	}
	if p.Reference != "" {
		fields["reference"] = p.Reference
	}
	return fields
}

// DecodePayload parses raw JSON into the payload type registered for flow and
// validates it. Schema failures are returned as validation.Errors keyed by field.
func DecodePayload(flow Flow, raw json.RawMessage) (FlowPayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, validation.Errors{"payload": validation.NewError("validation_object", "must be a JSON object")}
	}
	if _, reserved := keys[NonceKey]; reserved {
		return nil, validation.Errors{NonceKey: validation.NewError("validation_reserved", "is reserved")}
	}

	var payload FlowPayload
	switch flow {
	case FlowInsuranceAttach:
		var p InsuranceAttachPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, typeErrors(err)
		}
		payload = p
	case FlowBasketOpen:
		var p BasketOpenPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, typeErrors(err)
		}
		payload = p
	case FlowGenerateQR:
		var p GenerateQRPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, typeErrors(err)
		}
		payload = p
	default:
		return nil, validation.Errors{"flow": validation.NewError("validation_flow", "is not a supported flow")}
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

// PayloadFromFields rebuilds a typed payload from a stored record payload.
// The nonce key is ignored.
func PayloadFromFields(flow Flow, fields map[string]any) (FlowPayload, error) {
	stripped := StripNonce(fields)
	raw, err := json.Marshal(stripped)
	if err != nil {
		return nil, err
	}
	return DecodePayload(flow, raw)
}

// StripNonce returns a copy of fields without the nonce key.
func StripNonce(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if key == NonceKey {
			continue
		}
		out[key] = value
	}
	return out
}

// typeErrors converts a JSON type mismatch into a field-level validation error.
func typeErrors(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		message := "has an invalid type"
		if typeErr.Field == "amount" {
			message = "must be a positive integer"
		}
		return validation.Errors{typeErr.Field: validation.NewError("validation_type", message)}
	}
	return validation.Errors{"payload": validation.NewError("validation_object", "must be a JSON object")}
}
