package internal

import (
	"encoding/json"
	"gpaylink/entity"
	"strings"
)

const tokenPath = "paymentMethodData.tokenizationData.token"

// ParseWalletToken extracts the gateway token from the wallet's payment data. The token itself is
// a JSON string inside the payment data; every one of its fields is required.
func ParseWalletToken(paymentData string) (*entity.WalletToken, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(paymentData), &data); err != nil {
		return nil, entity.NewError(entity.CodeInvalidPaymentData, "parse payment data", err)
	}

	raw := data
	for _, key := range []string{"paymentMethodData", "tokenizationData"} {
		next, ok := raw[key].(map[string]interface{})
		if !ok {
			return nil, entity.MissingFieldError(tokenPath)
		}
		raw = next
	}
	tokenJson, ok := raw["token"].(string)
	if !ok || strings.TrimSpace(tokenJson) == "" {
		return nil, entity.MissingFieldError(tokenPath)
	}

	var token map[string]interface{}
	if err := json.Unmarshal([]byte(tokenJson), &token); err != nil {
		return nil, entity.NewError(entity.CodeInvalidPaymentData, "parse payment token", err)
	}

	signature, err := requiredString(token, "signature", "signature")
	if err != nil {
		return nil, err
	}
	signingKey, ok := token["intermediateSigningKey"].(map[string]interface{})
	if !ok {
		return nil, entity.MissingFieldError("intermediateSigningKey")
	}
	signedKey, err := requiredString(signingKey, "signedKey", "intermediateSigningKey.signedKey")
	if err != nil {
		return nil, err
	}
	signatures, err := requiredStrings(signingKey, "signatures", "intermediateSigningKey.signatures")
	if err != nil {
		return nil, err
	}
	protocolVersion, err := requiredString(token, "protocolVersion", "protocolVersion")
	if err != nil {
		return nil, err
	}
	signedMessage, err := requiredString(token, "signedMessage", "signedMessage")
	if err != nil {
		return nil, err
	}

	return &entity.WalletToken{
		Signature: signature,
		IntermediateSigningKey: entity.IntermediateSigningKey{
			SignedKey:  signedKey,
			Signatures: signatures,
		},
		ProtocolVersion: protocolVersion,
		SignedMessage:   signedMessage,
	}, nil
}

func requiredString(object map[string]interface{}, key, field string) (string, error) {
	value, ok := object[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", entity.MissingFieldError(field)
	}
	return value, nil
}

func requiredStrings(object map[string]interface{}, key, field string) ([]string, error) {
	values, ok := object[key].([]interface{})
	if !ok || len(values) == 0 {
		return nil, entity.MissingFieldError(field)
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		text, ok := value.(string)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, entity.MissingFieldError(field)
		}
		out = append(out, text)
	}
	return out, nil
}
