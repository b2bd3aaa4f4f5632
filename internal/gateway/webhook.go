package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// SignatureHeader carries the hex HMAC of the raw callback body.
const SignatureHeader = "X-Signature"

// ErrInvalidSignature is returned for callbacks that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Callback is a parsed provider notification.
type Callback struct {
	TransactionID string
	Reference     string
	Status        string
	PaymentID     uint
	Payload       map[string]any
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the signature in constant time. An empty secret
// accepts only when allowUnsigned is true.
func VerifySignature(secret string, body []byte, signature string, allowUnsigned bool) error {
	if secret == "" {
		if allowUnsigned {
			return nil
		}
		return ErrInvalidSignature
	}
	expected := Sign(secret, body)
	got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(signature, "sha256=")))
	if !hmac.Equal([]byte(expected), []byte(got)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseCallback reads the callback body. Fields may sit under "data" or at
// the root.
func ParseCallback(body []byte) (*Callback, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	data := nested(payload, "data")
	if data == nil {
		data = payload
	}

	cb := &Callback{
		TransactionID: lookup(data, "transactionId", "transaction_id", "id", "referenceId"),
		Reference:     lookup(data, "referenceId", "reference", "ref", "externalreference"),
		Status:        NormalizeStatus(lookup(data, "status", "transactionstatus", "transactionStatus")),
		Payload:       payload,
	}

	for _, key := range []string{"additionalProperties", "metadata"} {
		meta := nested(data, key)
		if meta == nil {
			meta = nested(payload, key)
		}
		if meta == nil {
			continue
		}
		if id, err := strconv.ParseUint(lookup(meta, "payment_id"), 10, 64); err == nil {
			cb.PaymentID = uint(id)
			break
		}
	}

	if cb.TransactionID == "" && cb.Reference == "" && cb.PaymentID == 0 {
		return nil, errors.New("callback carries no transaction identifier")
	}
	return cb, nil
}
