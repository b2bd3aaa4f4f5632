package gateway

import (
	"context"
	"strings"
	"sync"
)

// Sandbox is a deterministic in-process provider. Checkouts succeed with a
// transaction id derived from the reference, and verification reports
// successful unless a status was set with Settle.
type Sandbox struct {
	baseURL  string
	mu       sync.Mutex
	statuses map[string]string
}

// NewSandbox creates a sandbox provider
func NewSandbox(baseURL string) *Sandbox {
	return &Sandbox{baseURL: strings.TrimRight(baseURL, "/"), statuses: make(map[string]string)}
}

func (s *Sandbox) Name() string { return ProviderSandbox }

func (s *Sandbox) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	txID := "SBX-" + req.Reference
	body := map[string]any{
		"referenceId": req.Reference,
		"amount":      req.Amount.StringFixed(2),
		"phone":       NormalizePhone(req.Phone),
	}
	return &InitiateResult{
		PaymentLink:   s.baseURL + "/sandbox/checkout/" + req.Reference,
		Reference:     req.Reference,
		TransactionID: txID,
		Request:       body,
		Response:      map[string]any{"success": true, "transactionId": txID},
	}, nil
}

func (s *Sandbox) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	s.mu.Lock()
	status, ok := s.statuses[reference]
	s.mu.Unlock()
	if !ok {
		status = StatusSuccessful
	}
	return &VerifyResult{
		Status:        status,
		TransactionID: "SBX-" + reference,
		Response:      map[string]any{"status": status},
	}, nil
}

// Settle fixes the status Verify reports for reference.
func (s *Sandbox) Settle(reference, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[reference] = status
}
