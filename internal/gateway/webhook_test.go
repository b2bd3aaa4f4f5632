package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"referenceId":"RENT-1-1","status":"success"}`)
	sig := Sign("s3cret", body)

	assert.NoError(t, VerifySignature("s3cret", body, sig, false))
	assert.NoError(t, VerifySignature("s3cret", body, "sha256="+sig, false))
	assert.ErrorIs(t, VerifySignature("s3cret", body, "deadbeef", false), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("s3cret", []byte(`{}`), sig, false), ErrInvalidSignature)

	assert.NoError(t, VerifySignature("", body, "", true))
	assert.ErrorIs(t, VerifySignature("", body, "", false), ErrInvalidSignature)
}

func TestParseCallback_DataEnvelope(t *testing.T) {
	cb, err := ParseCallback([]byte(`{
		"data": {
			"transactionId": "AZ-9",
			"referenceId": "RENT-12-1700000000",
			"status": "SUCCESS",
			"additionalProperties": {"payment_id": 12}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "AZ-9", cb.TransactionID)
	assert.Equal(t, "RENT-12-1700000000", cb.Reference)
	assert.Equal(t, StatusSuccessful, cb.Status)
	assert.Equal(t, uint(12), cb.PaymentID)
}

func TestParseCallback_RootFields(t *testing.T) {
	cb, err := ParseCallback([]byte(`{"transaction_id":"AZ-3","reference":"BOOK-3-1","status":"failed","metadata":{"payment_id":"3"}}`))
	require.NoError(t, err)
	assert.Equal(t, "AZ-3", cb.TransactionID)
	assert.Equal(t, "BOOK-3-1", cb.Reference)
	assert.Equal(t, StatusFailed, cb.Status)
	assert.Equal(t, uint(3), cb.PaymentID)
}

func TestParseCallback_Rejects(t *testing.T) {
	_, err := ParseCallback([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseCallback([]byte(`{"status":"success"}`))
	assert.Error(t, err)
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"0712345678":     "+255712345678",
		"+255712345678":  "+255712345678",
		"255712345678":   "+255712345678",
		"712 345 678":    "+255712345678",
		"0712-345-678":   "+255712345678",
		"":               "",
		"+1 415 5550100": "+14155550100",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestNewReference(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "RENT-12-1700000000", NewReference("rent", 12, at))
}
