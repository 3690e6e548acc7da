package entity

// IntermediateSigningKey is part of the Google Pay ECv2 token.
type IntermediateSigningKey struct {
	SignedKey  string   `json:"signedKey"`
	Signatures []string `json:"signatures"`
}

// WalletToken is the encrypted payload found at paymentMethodData.tokenizationData.token.
// It only lives for one payment flow.
type WalletToken struct {
	Signature              string                 `json:"signature"`
	IntermediateSigningKey IntermediateSigningKey `json:"intermediateSigningKey"`
	ProtocolVersion        string                 `json:"protocolVersion"`
	SignedMessage          string                 `json:"signedMessage"`
}

// GooglePayTokenData is handed to the caller when the token is processed outside this library.
// Its shape matches the payment_data request so a backend can forward it as is.
type GooglePayTokenData struct {
	PaymentReference       string                 `json:"payment_reference"`
	MobileAccessToken      string                 `json:"mobile_access_token"`
	TokenConsentAgreed     bool                   `json:"token_consent_agreed"`
	Signature              string                 `json:"signature"`
	IntermediateSigningKey IntermediateSigningKey `json:"intermediateSigningKey"`
	ProtocolVersion        string                 `json:"protocolVersion"`
	SignedMessage          string                 `json:"signedMessage"`
}

func NewTokenData(intent *PaymentIntent, token *WalletToken, consent bool) *GooglePayTokenData {
	return &GooglePayTokenData{
		PaymentReference:   intent.PaymentReference,
		MobileAccessToken:  intent.MobileAccessToken,
		TokenConsentAgreed: consent,
		Signature:          token.Signature,
		IntermediateSigningKey: IntermediateSigningKey{
			SignedKey:  token.IntermediateSigningKey.SignedKey,
			Signatures: copyStrings(token.IntermediateSigningKey.Signatures),
		},
		ProtocolVersion: token.ProtocolVersion,
		SignedMessage:   token.SignedMessage,
	}
}

// ProcessPaymentRequest addresses the token to a payment created by the gateway.
func (t *WalletToken) ProcessPaymentRequest(paymentReference string, consent bool) *ProcessPaymentRequest {
	return &ProcessPaymentRequest{
		PaymentReference:   paymentReference,
		TokenConsentAgreed: consent,
		Signature:          t.Signature,
		IntermediateSigningKey: IntermediateSigningKey{
			SignedKey:  t.IntermediateSigningKey.SignedKey,
			Signatures: copyStrings(t.IntermediateSigningKey.Signatures),
		},
		ProtocolVersion: t.ProtocolVersion,
		SignedMessage:   t.SignedMessage,
	}
}
