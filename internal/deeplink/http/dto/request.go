// Package dto provides data transfer objects for the deep-link HTTP endpoints.
package dto

import (
	"encoding/json"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	customValidation "github.com/easymo/deeplinks/internal/validation"
)

func flowValues() []any {
	values := make([]any, 0, len(domain.Flows))
	for _, flow := range domain.Flows {
		values = append(values, string(flow))
	}
	return values
}

// IssueRequest contains the parameters for issuing a deep link.
type IssueRequest struct {
	Flow       string          `json:"flow"`
	Payload    json.RawMessage `json:"payload"`
	MSISDNE164 *string         `json:"msisdn_e164"`
	TTLMinutes *int            `json:"ttl_minutes"`
	MultiUse   bool            `json:"multi_use"`
	CreatedBy  *string         `json:"created_by"`
}

// Validate checks the request envelope. The flow payload itself is validated
// against its flow schema by the use case.
func (r *IssueRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Flow,
			validation.Required,
			validation.In(flowValues()...).Error("must be one of insurance_attach, basket_open, generate_qr"),
		),
		validation.Field(&r.MSISDNE164, validation.NilOrNotEmpty, customValidation.E164),
		validation.Field(&r.TTLMinutes,
			validation.NilOrNotEmpty.Error("must be a positive integer"),
			validation.Min(1).Error("must be a positive integer"),
		),
		validation.Field(&r.CreatedBy,
			validation.NilOrNotEmpty,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
	)
}

// ToInput converts the request into use case input.
func (r *IssueRequest) ToInput() *domain.IssueInput {
	return &domain.IssueInput{
		Flow:       domain.Flow(r.Flow),
		Payload:    r.Payload,
		MSISDN:     r.MSISDNE164,
		TTLMinutes: r.TTLMinutes,
		MultiUse:   r.MultiUse,
		CreatedBy:  r.CreatedBy,
	}
}

// BootstrapRequest contains the parameters for activating a deep link in chat.
type BootstrapRequest struct {
	Token      string `json:"token"`
	UserMSISDN string `json:"user_msisdn"`
}

// Validate checks the bootstrap request. The phone number is normalized by
// the use case, so only presence is checked here.
func (r *BootstrapRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required, customValidation.NoWhitespace),
		validation.Field(&r.UserMSISDN, validation.Required, validation.Length(1, 32)),
	)
}

// ResolveQuery carries the token passed as ?t= on the landing page.
type ResolveQuery struct {
	Token string `json:"t"`
}

// Validate checks the resolve query.
func (q *ResolveQuery) Validate() error {
	q.Token = strings.TrimSpace(q.Token)
	return validation.ValidateStruct(q,
		validation.Field(&q.Token, validation.Required.Error("query parameter t is required")),
	)
}
