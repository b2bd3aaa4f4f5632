// Package gateway talks to the mobile-money aggregator that settles
// gateway payments.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/shopspring/decimal"
)

// Normalized verification statuses
const (
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
	StatusPending    = "pending"
)

// Provider names
const (
	ProviderAzamPay = "azampay"
	ProviderSandbox = "sandbox"
)

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// InitiateRequest describes a checkout.
type InitiateRequest struct {
	PaymentID   uint
	Reference   string
	Amount      decimal.Decimal
	Phone       string
	Network     string
	Method      string
	CallbackURL string
	Metadata    map[string]string
}

// InitiateResult is what the provider hands back for a checkout.
type InitiateResult struct {
	PaymentLink   string
	Reference     string
	TransactionID string
	Request       map[string]any
	Response      map[string]any
}

// VerifyResult is the provider's view of a transaction.
type VerifyResult struct {
	Status        string
	TransactionID string
	Response      map[string]any
}

// Provider is the capability the payment services depend on.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Error is a provider-side failure.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// NewProvider builds the provider selected by configuration.
func NewProvider(cfg config.PaymentConfig, cache TokenCache) Provider {
	if cfg.Provider == ProviderSandbox {
		return NewSandbox(cfg.BaseURL)
	}
	return NewAzamPay(cfg, cache)
}

// NewReference builds a unique merchant reference such as RENT-12-1735689600.
func NewReference(prefix string, id uint, at time.Time) string {
	return fmt.Sprintf("%s-%d-%d", strings.ToUpper(prefix), id, at.Unix())
}

// NormalizeStatus maps provider wording onto the three normalized statuses.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful", "completed", "paid":
		return StatusSuccessful
	case "failed", "failure", "error", "cancelled", "canceled":
		return StatusFailed
	default:
		return StatusPending
	}
}

// NormalizePhone turns local Tanzanian numbers into +255 form.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+"):
		return p
	case strings.HasPrefix(p, "0"):
		return "+255" + p[1:]
	case strings.HasPrefix(p, "255") && len(p) > 9:
		return "+" + p
	default:
		return "+255" + p
	}
}

// lookup returns the first non-empty string among keys in m.
func lookup(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return decimal.NewFromFloat(t).String()
		case bool:
			return fmt.Sprint(t)
		}
	}
	return ""
}

// nested returns m[key] as an object, or nil.
func nested(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}
