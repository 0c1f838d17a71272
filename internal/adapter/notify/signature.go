package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HeaderSignature carries the HMAC-SHA256 of the message value.
const HeaderSignature = "signature"

// SignEvent returns the lowercase hex HMAC-SHA256 of payload under key.
func SignEvent(key, payload []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyEvent reports whether signature matches payload under key.
// Comparison is constant time.
func VerifyEvent(key, payload []byte, signature string) bool {
	return hmac.Equal([]byte(SignEvent(key, payload)), []byte(signature))
}
