package internal

import (
	"github.com/shopspring/decimal"
	"strings"
)

const (
	apiVersion      = 2
	apiVersionMinor = 0

	priceStatusFinal     = "FINAL"
	priceStatusEstimated = "ESTIMATED"
)

// WalletRequest is everything PaymentDataRequest needs to address one payment sheet.
type WalletRequest struct {
	CardNetworks      []string
	AuthMethods       []string
	GatewayId         string
	GatewayMerchantId string
	MerchantId        string
	MerchantName      string
	CurrencyCode      string
	CountryCode       string
	Amount            decimal.Decimal
	Label             string
	// TokenRequest switches to a zero amount ESTIMATED request
	TokenRequest bool
}

func baseRequest() map[string]interface{} {
	return map[string]interface{}{
		"apiVersion":      apiVersion,
		"apiVersionMinor": apiVersionMinor,
	}
}

func baseCardPaymentMethod(cardNetworks, authMethods []string) map[string]interface{} {
	return map[string]interface{}{
		"type": "CARD",
		"parameters": map[string]interface{}{
			"allowedAuthMethods":  authMethods,
			"allowedCardNetworks": cardNetworks,
		},
	}
}

// IsReadyToPayRequest asks whether the device can pay with any of the allowed cards.
func IsReadyToPayRequest(cardNetworks, authMethods []string) map[string]interface{} {
	request := baseRequest()
	request["allowedPaymentMethods"] = []interface{}{baseCardPaymentMethod(cardNetworks, authMethods)}
	return request
}

// CardPaymentMethod adds the gateway tokenization specification to the card descriptor.
func CardPaymentMethod(cardNetworks, authMethods []string, gatewayId, gatewayMerchantId string) map[string]interface{} {
	method := baseCardPaymentMethod(cardNetworks, authMethods)
	method["tokenizationSpecification"] = map[string]interface{}{
		"type": "PAYMENT_GATEWAY",
		"parameters": map[string]interface{}{
			"gateway":           strings.ToLower(gatewayId),
			"gatewayMerchantId": strings.ToLower(gatewayMerchantId),
		},
	}
	return method
}

// PaymentDataRequest builds the full request for the payment sheet.
func PaymentDataRequest(r WalletRequest) map[string]interface{} {
	transactionInfo := map[string]interface{}{
		"currencyCode": r.CurrencyCode,
	}
	if r.TokenRequest {
		transactionInfo["totalPrice"] = "0"
		transactionInfo["totalPriceStatus"] = priceStatusEstimated
	} else {
		transactionInfo["totalPrice"] = r.Amount.StringFixed(2)
		transactionInfo["totalPriceStatus"] = priceStatusFinal
	}
	if r.CountryCode != "" {
		transactionInfo["countryCode"] = r.CountryCode
	}
	if r.Label != "" {
		transactionInfo["totalPriceLabel"] = r.Label
	}

	merchantInfo := map[string]interface{}{
		"merchantName": r.MerchantName,
	}
	if r.MerchantId != "" {
		merchantInfo["merchantId"] = strings.ToLower(r.MerchantId)
	}

	request := baseRequest()
	request["allowedPaymentMethods"] = []interface{}{
		CardPaymentMethod(r.CardNetworks, r.AuthMethods, r.GatewayId, r.GatewayMerchantId),
	}
	request["transactionInfo"] = transactionInfo
	request["merchantInfo"] = merchantInfo
	return request
}
