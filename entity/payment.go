package entity

import (
	"encoding/json"
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
)

const TokenAgreementUnscheduled = "unscheduled"

// CreatePaymentRequest is the body of POST /api/v4/payments/oneoff.
type CreatePaymentRequest struct {
	ApiUsername    string      `json:"api_username"`
	AccountName    string      `json:"account_name"`
	Amount         json.Number `json:"amount"`
	Label          string      `json:"label"`
	CurrencyCode   string      `json:"currency_code"`
	CountryCode    string      `json:"country_code"`
	OrderReference string      `json:"order_reference"`
	Nonce          string      `json:"nonce"`
	MobilePayment  bool        `json:"mobile_payment"`
	CustomerUrl    string      `json:"customer_url"`
	CustomerIp     string      `json:"customer_ip,omitempty"`
	CustomerEmail  string      `json:"customer_email,omitempty"`
	// Timestamp in yyyy-MM-dd'T'HH:mm:ss'Z', UTC
	Timestamp string `json:"timestamp"`
	// token request flags, set together for MIT token collection
	RequestToken       bool   `json:"request_token,omitempty"`
	TokenConsentAgreed bool   `json:"token_consent_agreed,omitempty"`
	TokenAgreement     string `json:"token_agreement,omitempty"`
}

// PaymentParams describes a one-off payment.
type PaymentParams struct {
	Amount         decimal.Decimal
	Label          string
	CurrencyCode   string
	CountryCode    string
	OrderReference string
	Nonce          string
	Timestamp      string
	CustomerEmail  string
	CustomerIp     string
	RequestToken   bool
}

// IsMinorUnitAmount reports whether the amount fits in two decimal places, so the gateway and
// the wallet sheet show the value the caller asked for.
func IsMinorUnitAmount(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}

// NewCreatePaymentRequest is the only place where the token request flags are set, so a token
// request always carries amount 0, consent and the unscheduled agreement.
func NewCreatePaymentRequest(credentials *Credentials, params PaymentParams) (*CreatePaymentRequest, error) {
	if credentials == nil {
		return nil, ErrModeMismatch
	}
	if params.Amount.IsNegative() {
		return nil, NewError(CodeInvalidAmount, "amount must not be negative", nil)
	}
	if params.RequestToken && !params.Amount.IsZero() {
		return nil, NewError(CodeInvalidAmount, "token request amount must be zero", nil)
	}
	if !params.RequestToken && params.Amount.IsZero() {
		return nil, NewError(CodeInvalidAmount, "payment amount must be greater than zero", nil)
	}
	if !IsMinorUnitAmount(params.Amount) {
		return nil, NewError(CodeInvalidAmount, "amount has more than two decimal places", nil)
	}
	if strings.TrimSpace(params.OrderReference) == "" {
		return nil, NewError(CodeInvalidRequest, "order reference is required", nil)
	}
	request := &CreatePaymentRequest{
		ApiUsername:    credentials.ApiUsername,
		AccountName:    credentials.AccountName,
		Amount:         json.Number(params.Amount.StringFixed(2)),
		Label:          params.Label,
		CurrencyCode:   params.CurrencyCode,
		CountryCode:    params.CountryCode,
		OrderReference: params.OrderReference,
		Nonce:          params.Nonce,
		MobilePayment:  true,
		CustomerUrl:    credentials.CustomerUrl,
		CustomerIp:     params.CustomerIp,
		CustomerEmail:  params.CustomerEmail,
		Timestamp:      params.Timestamp,
	}
	if params.RequestToken {
		request.RequestToken = true
		request.TokenConsentAgreed = true
		request.TokenAgreement = TokenAgreementUnscheduled
	}
	return request, nil
}

// PaymentIntent is the gateway response to payment creation.
type PaymentIntent struct {
	PaymentReference            string          `json:"payment_reference"`
	MobileAccessToken           string          `json:"mobile_access_token"`
	Currency                    string          `json:"currency"`
	DescriptorCountry           string          `json:"descriptor_country"`
	GooglePayMerchantIdentifier string          `json:"googlepay_merchant_identifier"`
	AccountName                 string          `json:"account_name"`
	OrderReference              string          `json:"order_reference"`
	InitialAmount               decimal.Decimal `json:"initial_amount"`
	StandingAmount              decimal.Decimal `json:"standing_amount"`
	PaymentState                string          `json:"payment_state"`
}

// ProcessPaymentRequest is the body of POST /api/v4/google_pay/payment_data. The wallet token
// fields keep the wallet provider's camelCase names.
type ProcessPaymentRequest struct {
	PaymentReference       string                 `json:"payment_reference"`
	TokenConsentAgreed     bool                   `json:"token_consent_agreed"`
	Signature              string                 `json:"signature"`
	IntermediateSigningKey IntermediateSigningKey `json:"intermediateSigningKey"`
	ProtocolVersion        string                 `json:"protocolVersion"`
	SignedMessage          string                 `json:"signedMessage"`
}

// SettlementResult is the gateway response to a processed wallet token.
type SettlementResult struct {
	State            string `json:"state"`
	PaymentReference string `json:"payment_reference,omitempty"`
	OrderReference   string `json:"order_reference,omitempty"`
}

// PaymentDetails is returned by GET /api/v4/payments/{payment_reference}.
type PaymentDetails struct {
	PaymentReference string          `json:"payment_reference"`
	PaymentState     string          `json:"payment_state"`
	OrderReference   string          `json:"order_reference,omitempty"`
	TraceId          string          `json:"trace_id,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	AccountName      string          `json:"account_name,omitempty"`
	InitialAmount    decimal.Decimal `json:"initial_amount"`
	StandingAmount   decimal.Decimal `json:"standing_amount"`
	CardDetails      *CardDetails    `json:"cc_details,omitempty"`
}

// CardDetails holds the card-on-file token used for later merchant initiated transactions.
type CardDetails struct {
	Token          string     `json:"token,omitempty"`
	LastFourDigits string     `json:"last_four_digits,omitempty"`
	Month          ExpiryPart `json:"month,omitempty"`
	Year           ExpiryPart `json:"year,omitempty"`
}

// ExpiryPart is a card expiry month or year. The gateway sends it either as a number or as a
// zero-padded string.
type ExpiryPart string

func (p *ExpiryPart) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*p = ExpiryPart(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("card expiry: %w", err)
	}
	*p = ExpiryPart(number)
	return nil
}

func (c *CardDetails) IsEmpty() bool {
	return c == nil || (c.Token == "" && c.LastFourDigits == "" && c.Month == "" && c.Year == "")
}
