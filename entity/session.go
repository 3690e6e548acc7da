package entity

// SessionInfo addresses a Google Pay tokenization request. EpMerchantId and AcqBrandingDomain are
// only filled when the session was opened against the gateway.
type SessionInfo struct {
	MerchantIdentifier string `json:"googlepay_merchant_identifier"`
	EpMerchantId       string `json:"googlepay_ep_merchant_id"`
	GatewayMerchantId  string `json:"googlepay_gateway_merchant_id"`
	MerchantName       string `json:"merchant_name"`
	GatewayId          string `json:"google_pay_gateway_id"`
	AcqBrandingDomain  string `json:"acq_branding_domain_igw"`
}

// OpenSessionRequest is the body of POST /api/v4/google_pay/open_session.
type OpenSessionRequest struct {
	ApiUsername string `json:"api_username"`
	AccountName string `json:"account_name"`
}

// GooglePaySessionData is supplied by the caller's backend in backend mode.
type GooglePaySessionData struct {
	MerchantId        string `json:"merchant_id"`
	MerchantName      string `json:"merchant_name"`
	GatewayId         string `json:"gateway_id"`
	GatewayMerchantId string `json:"gateway_merchant_id"`
}

func (d *GooglePaySessionData) SessionInfo() *SessionInfo {
	return &SessionInfo{
		MerchantIdentifier: d.MerchantId,
		GatewayMerchantId:  d.GatewayMerchantId,
		MerchantName:       d.MerchantName,
		GatewayId:          d.GatewayId,
	}
}

// GooglePayBackendData carries a payment created by the caller's backend.
type GooglePayBackendData struct {
	PaymentReference  string `json:"payment_reference"`
	MobileAccessToken string `json:"mobile_access_token"`
	// Amount is a decimal string, e.g. "10.00"
	Amount       string `json:"amount"`
	Label        string `json:"label"`
	CurrencyCode string `json:"currency_code"`
	CountryCode  string `json:"country_code"`
}

// PaymentIntent builds the minimal intent needed to address the wallet token to this payment.
func (d *GooglePayBackendData) PaymentIntent() *PaymentIntent {
	return &PaymentIntent{
		PaymentReference:  d.PaymentReference,
		MobileAccessToken: d.MobileAccessToken,
		Currency:          d.CurrencyCode,
		DescriptorCountry: d.CountryCode,
	}
}
