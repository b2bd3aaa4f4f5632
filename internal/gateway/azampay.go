package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/go-resty/resty/v2"
)

const (
	tokenPath       = "/api/v1/Token/GetToken"
	mnoCheckoutPath = "/api/v1/azampay/mno/checkout"
	bankCheckout    = "/api/v1/bank/checkout"
	queryPath       = "/api/v1/Transaction/Query"

	tokenTTL   = time.Hour
	tokenKey   = "gateway:azampay:token"
	apiTimeout = 30 * time.Second
)

// AzamPay is the AzamPay checkout client.
type AzamPay struct {
	httpClient *resty.Client
	cfg        config.PaymentConfig
	tokens     TokenCache
}

// NewAzamPay creates an AzamPay client against cfg.BaseURL.
func NewAzamPay(cfg config.PaymentConfig, tokens TokenCache) *AzamPay {
	if tokens == nil {
		tokens = NewMemoryTokenCache()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(apiTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AzamPay{httpClient: client, cfg: cfg, tokens: tokens}
}

func (a *AzamPay) Name() string { return ProviderAzamPay }

func (a *AzamPay) configured() bool {
	return a.cfg.ClientID != "" && a.cfg.ClientSecret != "" && a.cfg.AppName != ""
}

// token returns a cached access token or fetches a new one.
func (a *AzamPay) token(ctx context.Context) (string, error) {
	if tok, ok := a.tokens.Get(ctx, tokenKey); ok {
		return tok, nil
	}

	body := map[string]any{
		"appName":      a.cfg.AppName,
		"clientId":     a.cfg.ClientID,
		"clientSecret": a.cfg.ClientSecret,
		"grantType":    "client_credentials",
	}
	out, status, err := a.post(ctx, tokenPath, "", body)
	if err != nil {
		return "", err
	}
	if status >= http.StatusBadRequest {
		return "", &Error{Op: "token", StatusCode: status, Message: errorMessage(out)}
	}

	data := nested(out, "data")
	tok := lookup(data, "accessToken", "access_token")
	if tok == "" {
		tok = lookup(out, "accessToken", "access_token")
	}
	if tok == "" {
		return "", &Error{Op: "token", Message: "response carried no access token"}
	}

	a.tokens.Set(ctx, tokenKey, tok, tokenTTL)
	return tok, nil
}

// Initiate starts an MNO or bank checkout.
func (a *AzamPay) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if !a.configured() {
		return nil, ErrNotConfigured
	}
	tok, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	additional := map[string]any{"payment_id": req.PaymentID}
	for k, v := range req.Metadata {
		additional[k] = v
	}
	body := map[string]any{
		"vendorName":           a.cfg.AppName,
		"amount":               req.Amount.StringFixed(2),
		"currency":             "TZS",
		"customerPhoneNumber":  NormalizePhone(req.Phone),
		"referenceId":          req.Reference,
		"redirectUrl":          req.CallbackURL,
		"cancelUrl":            req.CallbackURL,
		"additionalProperties": additional,
	}
	if req.Network != "" {
		body["provider"] = req.Network
	}

	path := mnoCheckoutPath
	if req.Method == models.PaymentMethodBankTransfer {
		path = bankCheckout
	}

	logger.Info("Initiating gateway checkout",
		"provider", ProviderAzamPay,
		"reference", req.Reference,
		"payment_id", req.PaymentID,
	)

	out, status, err := a.post(ctx, path, tok, body)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest || !succeeded(out) {
		logger.Warn("Gateway checkout rejected", "reference", req.Reference, "status", status)
		return nil, &Error{Op: "checkout", StatusCode: status, Message: errorMessage(out)}
	}

	data := nested(out, "data")
	if data == nil {
		data = map[string]any{}
	}
	link := lookup(data, "redirectUrl", "paymentUrl")
	if link == "" {
		link = lookup(out, "redirectUrl", "paymentUrl")
	}
	txID := lookup(data, "transactionId", "id")
	if txID == "" {
		txID = lookup(out, "transactionId", "id")
	}
	if txID == "" {
		txID = req.Reference
	}

	return &InitiateResult{
		PaymentLink:   link,
		Reference:     req.Reference,
		TransactionID: txID,
		Request:       copyPayload(body),
		Response:      out,
	}, nil
}

// Verify queries the transaction by merchant reference.
func (a *AzamPay) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if !a.configured() {
		return nil, ErrNotConfigured
	}
	tok, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	out, status, err := a.post(ctx, queryPath, tok, map[string]any{"referenceId": reference})
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &Error{Op: "verify", StatusCode: status, Message: errorMessage(out)}
	}

	data := nested(out, "data")
	if data == nil {
		data = out
	}
	raw := lookup(data, "status", "transactionStatus")
	if raw == "" {
		raw = lookup(out, "status", "transactionStatus")
	}

	return &VerifyResult{
		Status:        NormalizeStatus(raw),
		TransactionID: lookup(data, "transactionId", "id"),
		Response:      out,
	}, nil
}

func (a *AzamPay) post(ctx context.Context, path, token string, body any) (map[string]any, int, error) {
	r := a.httpClient.R().
		SetContext(ctx).
		SetBody(body)
	if a.cfg.APIKey != "" {
		r.SetHeader("X-API-Key", a.cfg.APIKey)
	}
	if token != "" {
		r.SetAuthToken(token)
	}

	resp, err := r.Post(path)
	if err != nil {
		logger.Error("Gateway request failed", "path", path, "error", err)
		return nil, 0, fmt.Errorf("gateway request %s: %w", path, err)
	}

	out := map[string]any{}
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			out = map[string]any{"raw": string(resp.Body())}
		}
	}
	return out, resp.StatusCode(), nil
}

func succeeded(out map[string]any) bool {
	if ok, _ := out["success"].(bool); ok {
		return true
	}
	return strings.EqualFold(lookup(out, "status"), "success")
}

func errorMessage(out map[string]any) string {
	if msg := lookup(out, "message", "msg", "error"); msg != "" {
		return msg
	}
	return "unexpected gateway response"
}

// copyPayload returns a shallow copy of body.
func copyPayload(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	return out
}
