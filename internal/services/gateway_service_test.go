package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/gateway"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayFixture(t *testing.T, cfg config.PaymentConfig) (*memStore, *GatewayService, *models.Payment) {
	t.Helper()
	store := newMemStore(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	ledger, _ := newLedger(store)
	seedInvoice(t, store, "1000", "800")

	invoiceID := uint(1)
	payment, err := ledger.RecordRentPayment(context.Background(), RentPaymentInput{
		RentInvoiceID:       &invoiceID,
		Amount:              amount("200"),
		PaymentMethod:       models.PaymentMethodMobileMoney,
		MobileMoneyProvider: "airtel",
	}, staffViewer)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, payment.Status)

	svc := NewGatewayService(store.repos(), gateway.NewSandbox("https://api.example.com"), ledger, cfg)
	svc.now = store.now
	return store, svc, payment
}

func callbackBody(t *testing.T, checkout *Checkout, status string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"transactionId": checkout.TransactionID,
		"referenceId":   checkout.Reference,
		"status":        status,
	})
	require.NoError(t, err)
	return body
}

func TestGatewayService_WebhookIsIdempotent(t *testing.T) {
	store, svc, payment := newGatewayFixture(t, config.PaymentConfig{Provider: gateway.ProviderSandbox})
	ctx := context.Background()

	checkout, err := svc.Initiate(ctx, payment.ID, CheckoutInput{Phone: "0712 345 678"}, staffViewer)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/sandbox/checkout/"+checkout.Reference, checkout.PaymentLink)
	assert.Equal(t, "SBX-"+checkout.Reference, checkout.TransactionID)

	txn, err := store.transactions.FindByReference(ctx, checkout.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusInitiated, txn.Status)
	pending, err := store.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, pending.Status)

	body := callbackBody(t, checkout, "success")
	first, err := svc.HandleWebhook(ctx, body, "")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, first.Status)
	assert.Equal(t, payment.ID, first.PaymentID)

	settled, err := store.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, settled.Status)
	require.NotNil(t, settled.PaidDate)
	assert.Equal(t, models.Day(store.clock), *settled.PaidDate)
	txn, err = store.transactions.FindByReference(ctx, checkout.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccessful, txn.Status)

	invoice, err := store.invoices.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)

	payments, transactions := store.payments.count(), store.transactions.count()
	audits, _ := store.payments.FindAudits(ctx, payment.ID)

	second, err := svc.HandleWebhook(ctx, body, "")
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, second.Status)

	again, err := store.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, settled, again)
	assert.Equal(t, payments, store.payments.count())
	assert.Equal(t, transactions, store.transactions.count())
	auditsAfter, _ := store.payments.FindAudits(ctx, payment.ID)
	assert.Len(t, auditsAfter, len(audits))
}

func TestGatewayService_WebhookUnknownReferenceIgnored(t *testing.T) {
	_, svc, _ := newGatewayFixture(t, config.PaymentConfig{Provider: gateway.ProviderSandbox})

	result, err := svc.HandleWebhook(context.Background(), []byte(`{"referenceId":"RENT-999-1","status":"success"}`), "")
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, result.Status)
}

func TestGatewayService_WebhookSignature(t *testing.T) {
	store, svc, payment := newGatewayFixture(t, config.PaymentConfig{Provider: gateway.ProviderAzamPay, WebhookSecret: "hook-secret"})
	ctx := context.Background()

	// A sandbox provider still backs the service; only the config decides
	// whether callbacks must be signed.
	checkout, err := svc.Initiate(ctx, payment.ID, CheckoutInput{Phone: "+255712345678"}, staffViewer)
	require.NoError(t, err)
	body := callbackBody(t, checkout, "failed")

	_, err = svc.HandleWebhook(ctx, body, "")
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
	_, err = svc.HandleWebhook(ctx, body, gateway.Sign("wrong", body))
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)

	result, err := svc.HandleWebhook(ctx, body, "sha256="+gateway.Sign("hook-secret", body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, result.Status)

	failed, err := store.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)
	assert.Nil(t, failed.PaidDate)
}

func TestGatewayService_InitiateRejectsSettledPayment(t *testing.T) {
	store, svc, payment := newGatewayFixture(t, config.PaymentConfig{Provider: gateway.ProviderSandbox})

	_, err := svc.Initiate(context.Background(), 1, CheckoutInput{Phone: "0712345678"}, staffViewer)
	assert.ErrorIs(t, err, ErrValidation, "the seeded cash payment is already completed")
	assert.Zero(t, store.transactions.count())

	_, err = svc.Initiate(context.Background(), payment.ID, CheckoutInput{}, staffViewer)
	assert.ErrorIs(t, err, ErrMissingContact)
}

func TestGatewayService_VerifySettlesFromProvider(t *testing.T) {
	store, svc, payment := newGatewayFixture(t, config.PaymentConfig{Provider: gateway.ProviderSandbox})
	ctx := context.Background()

	_, err := svc.Verify(ctx, payment.ID, staffViewer)
	assert.ErrorIs(t, err, ErrValidation, "no attempt yet")

	_, err = svc.Initiate(ctx, payment.ID, CheckoutInput{Phone: "0712345678"}, staffViewer)
	require.NoError(t, err)

	v, err := svc.Verify(ctx, payment.ID, staffViewer)
	require.NoError(t, err)
	assert.True(t, v.Changed)
	assert.Equal(t, models.PaymentStatusCompleted, v.PaymentStatus)
	assert.Equal(t, models.TransactionStatusSuccessful, v.TransactionStatus)

	v, err = svc.Verify(ctx, payment.ID, staffViewer)
	require.NoError(t, err)
	assert.False(t, v.Changed)

	invoice, _ := store.invoices.FindByID(ctx, 1)
	assert.True(t, amount("1000").Equal(invoice.AmountPaid))
}

func TestGatewayService_ContactPhone(t *testing.T) {
	_, svc, _ := newGatewayFixture(t, config.PaymentConfig{Provider: gateway.ProviderSandbox})
	svc.users = &mockUserRepo{mockFindByID: func(ctx context.Context, id uint) (*models.User, error) {
		switch id {
		case 9:
			return &models.User{ID: 9, Phone: "0754 000 111"}, nil
		case 12:
			return &models.User{ID: 12}, nil
		}
		return nil, repository.ErrRecordNotFound
	}}

	bookingID, tenantID := uint(4), uint(9)
	bookingPayment := &models.Payment{
		BookingID: &bookingID,
		Booking:   &models.Booking{ID: 4, Customer: models.Customer{Phone: "0712 345 678"}},
	}
	rentPayment := &models.Payment{TenantID: &tenantID}
	tenant := models.Viewer{UserID: 9, Role: models.RoleTenant}

	tests := []struct {
		name    string
		payment *models.Payment
		input   CheckoutInput
		actor   models.Viewer
		want    string
		err     error
	}{
		{name: "staff charge the booking's customer", payment: bookingPayment, actor: staffViewer, want: "0712 345 678"},
		{name: "staff may name another number", payment: bookingPayment, input: CheckoutInput{Phone: "0688 999 000"}, actor: staffViewer, want: "0688 999 000"},
		{name: "staff charge the tenant on rent", payment: rentPayment, actor: staffViewer, want: "0754 000 111"},
		{name: "tenant uses the profile phone", payment: rentPayment, actor: tenant, want: "0754 000 111"},
		{name: "tenant cannot redirect the charge", payment: rentPayment, input: CheckoutInput{Phone: "0688 999 000"}, actor: tenant, want: "0754 000 111"},
		{name: "tenant without a phone", payment: rentPayment, input: CheckoutInput{Phone: "0688 999 000"}, actor: models.Viewer{UserID: 12, Role: models.RoleTenant}, err: ErrMissingContact},
		{name: "unknown user", payment: rentPayment, actor: models.Viewer{UserID: 77, Role: models.RoleOwner}, err: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := svc.contactPhone(context.Background(), tt.payment, tt.input, tt.actor)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, gateway.NormalizePhone(tt.want), phone)
		})
	}
}
