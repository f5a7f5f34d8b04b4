package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Signature computes the base64 HMAC-SHA256 digest LINE sends in the
// x-line-signature header for a raw webhook body.
func Signature(rawBody []byte, channelSecret string) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time. A missing
// secret or signature always fails.
func VerifySignature(rawBody []byte, signature, channelSecret string) bool {
	if channelSecret == "" || signature == "" {
		return false
	}
	expected := Signature(rawBody, channelSecret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
