package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"gpaylink/entity"
	"net/http"
	"strings"
)

const maxErrorBodyLength = 500

// errorShape pulls code and message out of one known error envelope.
type errorShape func(body map[string]interface{}) (code, message string, ok bool)

// errorShapes are tried in order; the raw body is the fallback.
var errorShapes = []errorShape{
	nestedErrorShape,
	flatErrorShape,
	messageErrorShape,
}

// parseGatewayError never fails: it accepts {error:{code,message}}, {error_code,error_message},
// {message} or any other body.
func parseGatewayError(status int, body []byte) *entity.GatewayError {
	gatewayError := &entity.GatewayError{StatusCode: status}

	var parsed map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err == nil && parsed != nil {
		for _, shape := range errorShapes {
			if code, message, ok := shape(parsed); ok {
				gatewayError.Code = code
				gatewayError.Message = message
				return gatewayError
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyLength {
		text = text[:maxErrorBodyLength]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	gatewayError.Message = text
	return gatewayError
}

func nestedErrorShape(body map[string]interface{}) (string, string, bool) {
	nested, ok := body["error"].(map[string]interface{})
	if !ok {
		return "", "", false
	}
	code := stringValue(nested["code"])
	message := stringValue(nested["message"])
	if code == "" && message == "" {
		return "", "", false
	}
	return code, message, true
}

func flatErrorShape(body map[string]interface{}) (string, string, bool) {
	code := stringValue(body["error_code"])
	message := stringValue(body["error_message"])
	if code == "" && message == "" {
		return "", "", false
	}
	return code, message, true
}

func messageErrorShape(body map[string]interface{}) (string, string, bool) {
	message := stringValue(body["message"])
	if message == "" {
		return "", "", false
	}
	return "", message, true
}

func stringValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
