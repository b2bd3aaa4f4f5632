package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/gateway"
	"github.com/Intruder289/maishaap-backend-sub002/internal/metrics"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"gorm.io/datatypes"
)

// Webhook outcomes
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

// GatewayService drives gateway checkouts for ledger payments and folds
// verification results and callbacks back into the ledger.
type GatewayService struct {
	tx           repository.TxManager
	payments     repository.PaymentRepository
	transactions repository.TransactionRepository
	users        repository.UserRepository
	provider     gateway.Provider
	ledger       *PaymentService
	cfg          config.PaymentConfig
	now          func() time.Time
}

func NewGatewayService(repos *repository.Repositories, provider gateway.Provider, ledger *PaymentService, cfg config.PaymentConfig) *GatewayService {
	return &GatewayService{
		tx:           repos.Tx,
		payments:     repos.Payment,
		transactions: repos.Transaction,
		users:        repos.User,
		provider:     provider,
		ledger:       ledger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CheckoutInput optionally overrides the network, and for staff the phone,
// to charge.
type CheckoutInput struct {
	Phone   string `json:"phone"`
	Network string `json:"network"`
}

// Checkout is returned to the caller after a successful initiation.
type Checkout struct {
	PaymentID     uint   `json:"payment_id"`
	PaymentLink   string `json:"payment_link"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
}

// Verification is the ledger view after polling the gateway.
type Verification struct {
	PaymentID         uint   `json:"payment_id"`
	PaymentStatus     string `json:"payment_status"`
	TransactionStatus string `json:"transaction_status"`
	Reference         string `json:"reference"`
	Changed           bool   `json:"changed"`
}

type WebhookResult struct {
	Status    string `json:"status"`
	PaymentID uint   `json:"payment_id,omitempty"`
}

func referencePrefix(p *models.Payment) string {
	target, _ := p.Target()
	switch target.Kind {
	case models.TargetBooking:
		return "BOOK"
	case models.TargetVisit:
		return "VISIT"
	default:
		return "RENT"
	}
}

// contactPhone picks the number to charge: staff charge the booking's
// customer, everyone else their own profile phone. Only staff may name
// another number.
func (s *GatewayService) contactPhone(ctx context.Context, p *models.Payment, input CheckoutInput, actor models.Viewer) (string, error) {
	var phone string
	if actor.IsStaff() {
		if override := gateway.NormalizePhone(input.Phone); override != "" {
			return override, nil
		}
		if p.Booking != nil {
			phone = p.Booking.Customer.Phone
		} else if p.TenantID != nil {
			if tenant, err := s.users.FindByID(ctx, *p.TenantID); err == nil {
				phone = tenant.Phone
			}
		}
	} else {
		user, err := s.users.FindByID(ctx, actor.UserID)
		if err != nil {
			return "", notFound(err)
		}
		phone = user.Phone
	}
	phone = gateway.NormalizePhone(phone)
	if phone == "" {
		return "", ErrMissingContact
	}
	return phone, nil
}

// Initiate starts a gateway checkout for a pending payment. The attempt row
// is written before the provider is called, so a timeout leaves it
// initiated for a later verify to resolve.
func (s *GatewayService) Initiate(ctx context.Context, paymentID uint, input CheckoutInput, actor models.Viewer) (*Checkout, error) {
	payment, err := s.ledger.Get(ctx, paymentID, actor)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, invalid("payment", "payment is %s", payment.Status)
	}
	if payment.PaymentMethod == models.PaymentMethodCash {
		return nil, invalid("payment_method", "cash payments are not settled through the gateway")
	}
	if actor.IsStaff() && payment.Booking == nil && payment.BookingID != nil {
		if full, err := s.payments.FindByID(ctx, payment.ID); err == nil {
			payment = full
		}
	}

	phone, err := s.contactPhone(ctx, payment, input, actor)
	if err != nil {
		return nil, err
	}
	network := strings.ToUpper(input.Network)
	if network == "" {
		network = payment.MobileMoneyProvider
	}

	now := s.now()
	txn := &models.PaymentTransaction{
		PaymentID: payment.ID,
		Provider:  s.provider.Name(),
		Reference: gateway.NewReference(referencePrefix(payment), payment.ID, now),
		Status:    models.TransactionStatusInitiated,
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, err
	}

	metadata := map[string]string{"payment_id": strconv.FormatUint(uint64(payment.ID), 10)}
	if payment.RentInvoiceID != nil {
		metadata["invoice_id"] = strconv.FormatUint(uint64(*payment.RentInvoiceID), 10)
	}
	if payment.TenantID != nil {
		metadata["tenant_id"] = strconv.FormatUint(uint64(*payment.TenantID), 10)
	}

	result, err := s.provider.Initiate(ctx, gateway.InitiateRequest{
		PaymentID:   payment.ID,
		Reference:   txn.Reference,
		Amount:      payment.Amount,
		Phone:       phone,
		Network:     network,
		Method:      payment.PaymentMethod,
		CallbackURL: s.cfg.WebhookURL,
		Metadata:    metadata,
	})
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(s.provider.Name(), "initiate", "error").Inc()
		s.recordInitiateFailure(ctx, txn, err)
		logger.Error("gateway initiation failed", "payment_id", payment.ID, "reference", txn.Reference, "error", err)
		return nil, &GatewayError{Provider: s.provider.Name(), Op: "initiate", Err: err}
	}
	metrics.GatewayCalls.WithLabelValues(s.provider.Name(), "initiate", "ok").Inc()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		txn.GatewayTransactionID = result.TransactionID
		txn.RequestPayload = toJSON(result.Request)
		txn.ResponsePayload = toJSON(result.Response)
		if err := s.transactions.Update(ctx, txn); err != nil {
			return err
		}

		locked, err := s.payments.FindByIDForUpdate(ctx, payment.ID)
		if err != nil {
			return err
		}
		transactionID := result.TransactionID
		locked.TransactionID = &transactionID
		locked.Provider = s.provider.Name()
		if locked.ReferenceNumber == nil {
			reference := txn.Reference
			locked.ReferenceNumber = &reference
		}
		if network != "" && locked.MobileMoneyProvider == "" {
			locked.MobileMoneyProvider = network
		}
		return s.payments.Update(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("gateway checkout initiated", "payment_id", payment.ID, "reference", txn.Reference, "transaction_id", result.TransactionID)
	return &Checkout{
		PaymentID:     payment.ID,
		PaymentLink:   result.PaymentLink,
		Reference:     txn.Reference,
		TransactionID: result.TransactionID,
		Provider:      s.provider.Name(),
	}, nil
}

// recordInitiateFailure marks a rejected attempt failed. Timeouts and
// cancellations leave it initiated.
func (s *GatewayService) recordInitiateFailure(ctx context.Context, txn *models.PaymentTransaction, cause error) {
	txn.ErrorMessage = cause.Error()
	var providerErr *gateway.Error
	if errors.As(cause, &providerErr) || errors.Is(cause, gateway.ErrNotConfigured) {
		if _, err := statemachine.NewTransactionFSM(txn).Apply(ctx, models.TransactionStatusFailed, s.now()); err != nil {
			logger.Warn("failed to mark transaction failed", "reference", txn.Reference, "error", err)
		}
	}
	if err := s.transactions.Update(context.WithoutCancel(ctx), txn); err != nil {
		logger.Error("failed to record gateway failure", "reference", txn.Reference, "error", err)
	}
}

// InitiateVisitPayment opens the visit payment for a house and starts its
// checkout in one call.
func (s *GatewayService) InitiateVisitPayment(ctx context.Context, propertyID uint, input CheckoutInput, actor models.Viewer) (*Checkout, error) {
	_, payment, err := s.ledger.CreateVisitPayment(ctx, propertyID, actor)
	if err != nil {
		return nil, err
	}
	return s.Initiate(ctx, payment.ID, input, actor)
}

// Verify polls the gateway for the payment's latest attempt.
func (s *GatewayService) Verify(ctx context.Context, paymentID uint, actor models.Viewer) (*Verification, error) {
	payment, err := s.ledger.Get(ctx, paymentID, actor)
	if err != nil {
		return nil, err
	}
	txn, err := s.transactions.FindLatestForPayment(ctx, payment.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, invalid("payment", "payment has no gateway transaction")
		}
		return nil, err
	}

	if txn.IsFinal() {
		return &Verification{
			PaymentID:         payment.ID,
			PaymentStatus:     payment.Status,
			TransactionStatus: txn.Status,
			Reference:         txn.Reference,
		}, nil
	}

	result, err := s.provider.Verify(ctx, txn.Reference)
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(s.provider.Name(), "verify", "error").Inc()
		return nil, &GatewayError{Provider: s.provider.Name(), Op: "verify", Err: err}
	}
	metrics.GatewayCalls.WithLabelValues(s.provider.Name(), "verify", "ok").Inc()

	settled, changed, err := s.settle(ctx, txn.ID, result.Status, result.TransactionID, toJSON(result.Response), false)
	if err != nil {
		return nil, err
	}
	return &Verification{
		PaymentID:         settled.payment.ID,
		PaymentStatus:     settled.payment.Status,
		TransactionStatus: settled.txn.Status,
		Reference:         settled.txn.Reference,
		Changed:           changed,
	}, nil
}

// allowUnsigned accepts callbacks without a signature only when no secret
// is configured against a sandbox.
func (s *GatewayService) allowUnsigned() bool {
	return s.cfg.Provider == gateway.ProviderSandbox || (s.cfg.Sandbox && s.cfg.WebhookSecret == "")
}

// HandleWebhook ingests a provider callback. Replays and unknown references
// are acknowledged without side effects.
func (s *GatewayService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if err := gateway.VerifySignature(s.cfg.WebhookSecret, body, signature, s.allowUnsigned()); err != nil {
		metrics.WebhooksReceived.WithLabelValues("rejected").Inc()
		logger.Warn("webhook signature rejected")
		return nil, err
	}
	cb, err := gateway.ParseCallback(body)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("malformed").Inc()
		return nil, invalid("body", "malformed callback: %v", err)
	}

	txn, err := s.matchCallback(ctx, cb)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.WebhooksReceived.WithLabelValues(WebhookIgnored).Inc()
			logger.Warn("webhook for unknown transaction ignored", "transaction_id", cb.TransactionID, "reference", cb.Reference)
			return &WebhookResult{Status: WebhookIgnored}, nil
		}
		return nil, err
	}

	settled, changed, err := s.settle(ctx, txn.ID, cb.Status, cb.TransactionID, toJSON(cb.Payload), true)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("error").Inc()
		return nil, err
	}
	status := WebhookProcessed
	if !changed {
		status = WebhookDuplicate
	}
	metrics.WebhooksReceived.WithLabelValues(status).Inc()
	logger.Info("webhook processed", "reference", settled.txn.Reference, "transaction_status", settled.txn.Status,
		"payment_status", settled.payment.Status, "outcome", status)
	return &WebhookResult{Status: status, PaymentID: settled.payment.ID}, nil
}

func (s *GatewayService) matchCallback(ctx context.Context, cb *gateway.Callback) (*models.PaymentTransaction, error) {
	if cb.TransactionID != "" {
		txn, err := s.transactions.FindByGatewayID(ctx, cb.TransactionID)
		if err == nil || !repository.IsNotFound(err) {
			return txn, err
		}
	}
	if cb.Reference != "" {
		txn, err := s.transactions.FindByReference(ctx, cb.Reference)
		if err == nil || !repository.IsNotFound(err) {
			return txn, err
		}
	}
	if cb.PaymentID != 0 {
		return s.transactions.FindLatestForPayment(ctx, cb.PaymentID)
	}
	return nil, repository.ErrRecordNotFound
}

type settlement struct {
	txn     *models.PaymentTransaction
	payment *models.Payment
}

func transactionStatus(status string) string {
	switch status {
	case gateway.StatusSuccessful:
		return models.TransactionStatusSuccessful
	case gateway.StatusFailed:
		return models.TransactionStatusFailed
	default:
		return models.TransactionStatusProcessing
	}
}

// settle advances the attempt and its payment under their row locks.
// Transitions only move forward, so a replay changes nothing.
func (s *GatewayService) settle(ctx context.Context, txnID uint, status, gatewayID string, payload datatypes.JSON, callback bool) (*settlement, bool, error) {
	out := &settlement{}
	changed := false
	paymentChanged := false
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		txn, err := s.transactions.FindByIDForUpdate(ctx, txnID)
		if err != nil {
			return err
		}
		payment, err := s.payments.FindByIDForUpdate(ctx, txn.PaymentID)
		if err != nil {
			return err
		}
		out.txn, out.payment = txn, payment

		changed, err = statemachine.NewTransactionFSM(txn).Apply(ctx, transactionStatus(status), s.now())
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if txn.GatewayTransactionID == "" && gatewayID != "" {
			txn.GatewayTransactionID = gatewayID
		}
		if callback {
			txn.CallbackPayload = payload
		} else {
			txn.ResponsePayload = payload
		}
		if err := s.transactions.Update(ctx, txn); err != nil {
			return err
		}

		if payment.Status != models.PaymentStatusPending {
			return nil
		}
		reason := fmt.Sprintf("gateway %s (%s)", txn.Status, txn.Reference)
		switch txn.Status {
		case models.TransactionStatusSuccessful:
			payment.ProcessorResponse = payload
			paymentChanged = true
			return s.ledger.ChangeStatus(ctx, payment, (*statemachine.PaymentFSM).Complete, SystemViewer, reason)
		case models.TransactionStatusFailed:
			payment.ProcessorResponse = payload
			paymentChanged = true
			return s.ledger.ChangeStatus(ctx, payment, (*statemachine.PaymentFSM).Fail, SystemViewer, reason)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if paymentChanged {
		metrics.PaymentsRecorded.WithLabelValues(out.payment.PaymentType, out.payment.Status).Inc()
		s.ledger.notifyPaymentOutcome(out.payment)
	}
	return out, changed, nil
}

func toJSON(v map[string]any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
