package internal

import (
	"crypto/subtle"
	"gitee.com/golang-module/dongle"
)

const signatureHeader = "X-Signature"

// Signer signs bridge payloads with HMAC-SHA256, encoded with Base64.
type Signer struct {
	secret string
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: secret}
}

// Enabled is false when no shared secret is configured.
func (s *Signer) Enabled() bool {
	return s != nil && s.secret != ""
}

func (s *Signer) Sign(payload []byte) string {
	return dongle.Encrypt.FromBytes(payload).ByHmacSha256(s.secret).ToBase64String()
}

func (s *Signer) Verify(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := s.Sign(payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
