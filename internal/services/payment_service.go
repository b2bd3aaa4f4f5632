package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/events"
	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/metrics"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/Intruder289/maishaap-backend-sub002/internal/storage"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

// PaymentService records inbound money against bookings, rent invoices,
// leases and visits. Balance checks run under the target's row lock.
type PaymentService struct {
	tx            repository.TxManager
	payments      repository.PaymentRepository
	bookings      repository.BookingRepository
	invoices      repository.InvoiceRepository
	leases        repository.LeaseRepository
	visits        repository.VisitRepository
	properties    repository.PropertyRepository
	notifications *NotificationService
	auditSvc      *AuditService
	storage       *storage.LocalStorage
	bus           *events.Bus
	worker        *jobs.Worker
	now           func() time.Time
}

func NewPaymentService(
	repos *repository.Repositories,
	notifications *NotificationService,
	auditSvc *AuditService,
	store *storage.LocalStorage,
	bus *events.Bus,
	worker *jobs.Worker,
) *PaymentService {
	return &PaymentService{
		tx:            repos.Tx,
		payments:      repos.Payment,
		bookings:      repos.Booking,
		invoices:      repos.Invoice,
		leases:        repos.Lease,
		visits:        repos.Visit,
		properties:    repos.Property,
		notifications: notifications,
		auditSvc:      auditSvc,
		storage:       store,
		bus:           bus,
		worker:        worker,
		now:           time.Now,
	}
}

// BookingPaymentInput records money against a booking.
type BookingPaymentInput struct {
	Amount              decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod       string          `json:"payment_method" binding:"required"`
	PaymentType         string          `json:"payment_type"`
	MobileMoneyProvider string          `json:"mobile_money_provider"`
	ReferenceNumber     *string         `json:"reference_number"`
	Notes               string          `json:"notes"`
}

// RentPaymentInput records rent against exactly one of an invoice or a
// lease.
type RentPaymentInput struct {
	RentInvoiceID       *uint           `json:"rent_invoice"`
	LeaseID             *uint           `json:"lease"`
	Amount              decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod       string          `json:"payment_method" binding:"required"`
	MobileMoneyProvider string          `json:"mobile_money_provider"`
	ReferenceNumber     *string         `json:"reference_number"`
	Notes               string          `json:"notes"`
}

// MarkPaidInput settles an invoice by hand. Amount defaults to the balance.
type MarkPaidInput struct {
	Amount          *decimal.Decimal `json:"amount"`
	PaymentMethod   string           `json:"payment_method"`
	ReferenceNumber *string          `json:"reference_number"`
}

// VisitAccess is what a prospective renter sees for a house listing.
type VisitAccess struct {
	PropertyID uint     `json:"property_id"`
	Status     string   `json:"status"`
	Unlocked   bool     `json:"unlocked"`
	PaymentID  *uint    `json:"payment_id,omitempty"`
	OwnerName  string   `json:"owner_name,omitempty"`
	OwnerPhone string   `json:"owner_phone,omitempty"`
	OwnerEmail string   `json:"owner_email,omitempty"`
	Address    string   `json:"address,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

func validatePayment(amount decimal.Decimal, method, provider string) error {
	if !amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if !models.ValidPaymentMethod(method) {
		return invalid("payment_method", "unknown payment method %q", method)
	}
	if provider != "" && !models.ValidMobileMoneyProvider(strings.ToUpper(provider)) {
		return invalid("mobile_money_provider", "must be one of %s", strings.Join(models.MobileMoneyProviders, ", "))
	}
	return nil
}

// settle marks cash as received today; every other method waits for the
// gateway or an operator.
func (s *PaymentService) settle(p *models.Payment, complete bool) {
	if complete || p.PaymentMethod == models.PaymentMethodCash {
		today := models.Day(s.now())
		p.Status = models.PaymentStatusCompleted
		p.PaidDate = &today
		return
	}
	p.Status = models.PaymentStatusPending
	p.PaidDate = nil
}

// insert writes the row, its first audit entry and the PaymentSaved event.
func (s *PaymentService) insert(ctx context.Context, p *models.Payment, actor models.Viewer, reason string) error {
	if _, err := p.Target(); err != nil {
		return invalid("target", "%v", err)
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return err
	}
	if err := s.payments.CreateAudit(ctx, &models.PaymentAudit{
		PaymentID: p.ID,
		NewStatus: p.Status,
		ActorID:   actorID(actor),
		Reason:    reason,
	}); err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, events.PaymentSaved{Payment: p}); err != nil {
		return err
	}
	return s.auditSvc.Record(ctx, actor, models.AuditPayment, "Payment", p.ID,
		fmt.Sprintf("%s %s %s (%s)", p.PaymentType, money.Format(p.Amount), p.PaymentMethod, p.Status))
}

// ChangeStatus moves a payment through its state machine, leaving an audit
// row and republishing it so the projections follow.
func (s *PaymentService) ChangeStatus(ctx context.Context, p *models.Payment, apply func(*statemachine.PaymentFSM, context.Context) error, actor models.Viewer, reason string) error {
	previous := p.Status
	if err := apply(statemachine.NewPaymentFSM(p), ctx); err != nil {
		return err
	}
	if p.Status == models.PaymentStatusCompleted && p.PaidDate == nil {
		today := models.Day(s.now())
		p.PaidDate = &today
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return err
	}
	if err := s.payments.CreateAudit(ctx, &models.PaymentAudit{
		PaymentID: p.ID,
		OldStatus: previous,
		NewStatus: p.Status,
		ActorID:   actorID(actor),
		Reason:    reason,
	}); err != nil {
		return err
	}
	return s.bus.Publish(ctx, events.PaymentSaved{Payment: p, PreviousStatus: previous})
}

func (s *PaymentService) observe(p *models.Payment, err error, paymentType string) {
	if err != nil {
		var over *OverpaymentError
		if errors.As(err, &over) {
			metrics.PaymentsRejected.WithLabelValues(paymentType).Inc()
		}
		return
	}
	metrics.PaymentsRecorded.WithLabelValues(p.PaymentType, p.Status).Inc()
	logger.Info("payment recorded", "payment_id", p.ID, "type", p.PaymentType, "amount", p.Amount.StringFixed(2), "status", p.Status)
}

// RecordBookingPayment takes money against a booking. Pending payments
// hold headroom so two unsettled payments cannot jointly overshoot.
func (s *PaymentService) RecordBookingPayment(ctx context.Context, bookingID uint, input BookingPaymentInput, actor models.Viewer) (*models.Booking, *models.Payment, error) {
	if err := validatePayment(input.Amount, input.PaymentMethod, input.MobileMoneyProvider); err != nil {
		return nil, nil, err
	}
	paymentType := input.PaymentType
	if paymentType == "" {
		paymentType = models.PaymentTypeBooking
	}
	if paymentType != models.PaymentTypeBooking && paymentType != models.PaymentTypeDeposit {
		return nil, nil, invalid("payment_type", "must be booking or deposit")
	}

	var booking *models.Booking
	var payment *models.Payment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return notFound(err)
		}
		if !canViewBooking(locked, actor) {
			return ErrNotFound
		}
		if locked.BookingStatus == models.BookingStatusCancelled || locked.BookingStatus == models.BookingStatusNoShow {
			return invalid("booking", "cannot take payments for a %s booking", locked.BookingStatus)
		}

		amount := money.Round(input.Amount)
		total := locked.CalculatedTotal()
		completed, err := s.payments.SumForBooking(ctx, locked.ID, models.PaymentStatusCompleted)
		if err != nil {
			return err
		}
		pending, err := s.payments.SumForBooking(ctx, locked.ID, models.PaymentStatusPending)
		if err != nil {
			return err
		}
		if err := checkHeadroom(total, completed, pending, amount); err != nil {
			return err
		}

		payment = &models.Payment{
			PaymentType:         paymentType,
			Amount:              amount,
			PaymentMethod:       input.PaymentMethod,
			MobileMoneyProvider: strings.ToUpper(input.MobileMoneyProvider),
			ReferenceNumber:     input.ReferenceNumber,
			RecordedByID:        actorID(actor),
			Notes:               input.Notes,
		}
		payment.SetTarget(models.BookingTarget(locked.ID))
		if actor.Role == models.RoleTenant {
			payment.TenantID = actorID(actor)
		}
		s.settle(payment, false)

		if err := s.insert(ctx, payment, actor, "recorded against booking "+locked.BookingReference); err != nil {
			return err
		}
		booking, err = s.bookings.FindByID(ctx, locked.ID)
		return err
	})
	s.observe(payment, err, paymentType)
	if err != nil {
		return nil, nil, err
	}
	return booking, payment, nil
}

// checkHeadroom applies the three balance rules: nothing once fully paid,
// never more than the unpaid remainder, and never past the total once
// pending payments are counted.
func checkHeadroom(total, completed, pending, amount decimal.Decimal) error {
	if completed.GreaterThanOrEqual(total) {
		return &OverpaymentError{Allowed: decimal.Zero, Requested: amount}
	}
	remaining := money.Round(total.Sub(completed))
	if money.Exceeds(amount, remaining) {
		return &OverpaymentError{Allowed: remaining, Requested: amount}
	}
	if money.Exceeds(completed.Add(pending).Add(amount), total) {
		return &OverpaymentError{
			Allowed:   money.Max(money.Round(remaining.Sub(pending)), decimal.Zero),
			Requested: amount,
			Pending:   pending,
		}
	}
	return nil
}

// RecordRentPayment takes rent against an invoice or a lease.
func (s *PaymentService) RecordRentPayment(ctx context.Context, input RentPaymentInput, actor models.Viewer) (*models.Payment, error) {
	return s.recordRent(ctx, input, actor, false)
}

func (s *PaymentService) recordRent(ctx context.Context, input RentPaymentInput, actor models.Viewer, complete bool) (*models.Payment, error) {
	if (input.RentInvoiceID == nil) == (input.LeaseID == nil) {
		return nil, invalid("rent_invoice", "exactly one of rent_invoice or lease is required")
	}
	if err := validatePayment(input.Amount, input.PaymentMethod, input.MobileMoneyProvider); err != nil {
		return nil, err
	}

	amount := money.Round(input.Amount)
	payment := &models.Payment{
		PaymentType:         models.PaymentTypeRent,
		Amount:              amount,
		PaymentMethod:       input.PaymentMethod,
		MobileMoneyProvider: strings.ToUpper(input.MobileMoneyProvider),
		ReferenceNumber:     input.ReferenceNumber,
		RecordedByID:        actorID(actor),
		Notes:               input.Notes,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if input.RentInvoiceID != nil {
			invoice, err := s.invoices.FindByIDForUpdate(ctx, *input.RentInvoiceID)
			if err != nil {
				return notFound(err)
			}
			lease, err := s.leases.FindByID(ctx, invoice.LeaseID)
			if err != nil {
				return notFound(err)
			}
			if !canViewLease(lease, actor) {
				return ErrNotFound
			}
			if invoice.Status == models.InvoiceStatusCancelled {
				return invalid("rent_invoice", "invoice %s is cancelled", invoice.InvoiceNumber)
			}

			completed, err := s.payments.SumForInvoice(ctx, invoice.ID, models.PaymentStatusCompleted, 0)
			if err != nil {
				return err
			}
			pending, err := s.payments.SumForInvoice(ctx, invoice.ID, models.PaymentStatusPending, 0)
			if err != nil {
				return err
			}
			if err := checkHeadroom(invoice.TotalAmount, completed, pending, amount); err != nil {
				return err
			}

			payment.SetTarget(models.InvoiceTarget(invoice.ID))
			leaseID, tenantID := invoice.LeaseID, invoice.TenantID
			payment.LeaseID = &leaseID
			payment.TenantID = &tenantID
		} else {
			lease, err := s.leases.FindByIDForUpdate(ctx, *input.LeaseID)
			if err != nil {
				return notFound(err)
			}
			if !canViewLease(lease, actor) {
				return ErrNotFound
			}
			if lease.Status != models.LeaseStatusActive {
				return invalid("lease", "lease is %s", lease.Status)
			}
			if err := s.checkCoveringInvoice(ctx, lease, amount); err != nil {
				return err
			}
			payment.SetTarget(models.LeaseTarget(lease.ID))
			tenantID := lease.TenantID
			payment.TenantID = &tenantID
		}

		s.settle(payment, complete)
		return s.insert(ctx, payment, actor, "rent payment")
	})
	s.observe(payment, err, models.PaymentTypeRent)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// checkCoveringInvoice holds a lease payment to the balance of the invoice
// it will be linked to. A month without an invoice is bounded by the rent
// the issued invoice will carry.
func (s *PaymentService) checkCoveringInvoice(ctx context.Context, lease *models.Lease, amount decimal.Decimal) error {
	covering, err := s.invoices.FindCovering(ctx, lease.ID, models.Day(s.now()))
	if repository.IsNotFound(err) {
		return checkHeadroom(money.Round(lease.RentAmount), decimal.Zero, decimal.Zero, amount)
	}
	if err != nil {
		return err
	}
	invoice, err := s.invoices.FindByIDForUpdate(ctx, covering.ID)
	if err != nil {
		return err
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return nil
	}
	completed, err := s.payments.SumForInvoice(ctx, invoice.ID, models.PaymentStatusCompleted, 0)
	if err != nil {
		return err
	}
	pending, err := s.payments.SumForInvoice(ctx, invoice.ID, models.PaymentStatusPending, 0)
	if err != nil {
		return err
	}
	return checkHeadroom(invoice.TotalAmount, completed, pending, amount)
}

// MarkInvoicePaid records a completed payment for the invoice balance, or
// the given amount. Staff and the property owner only.
func (s *PaymentService) MarkInvoicePaid(ctx context.Context, invoiceID uint, input MarkPaidInput, actor models.Viewer) (*models.RentInvoice, *models.Payment, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	if !canManageProperty(&invoice.Lease.Property, actor) {
		return nil, nil, ErrPermissionDenied
	}

	amount := invoice.BalanceDue()
	if input.Amount != nil {
		amount = *input.Amount
	}
	method := input.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCash
	}

	payment, err := s.recordRent(ctx, RentPaymentInput{
		RentInvoiceID:   &invoice.ID,
		Amount:          amount,
		PaymentMethod:   method,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           "marked paid",
	}, actor, true)
	if err != nil {
		return nil, nil, err
	}
	invoice, err = s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	return invoice, payment, nil
}

// Refund reverses a completed payment. The original row is marked refunded
// and a refund row carrying the same links is written for the audit trail.
func (s *PaymentService) Refund(ctx context.Context, paymentID uint, reason string, actor models.Viewer) (*models.Payment, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(reason) == "" {
		reason = "refund"
	}

	var refund *models.Payment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		original, err := s.payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return notFound(err)
		}
		if original.PaymentType == models.PaymentTypeRefund {
			return invalid("payment", "a refund cannot be refunded")
		}
		if err := s.ChangeStatus(ctx, original, (*statemachine.PaymentFSM).Refund, actor, reason); err != nil {
			return err
		}

		today := models.Day(s.now())
		originalID := original.ID
		refund = &models.Payment{
			PaymentType:     models.PaymentTypeRefund,
			BookingID:       original.BookingID,
			RentInvoiceID:   original.RentInvoiceID,
			LeaseID:         original.LeaseID,
			PropertyVisitID: original.PropertyVisitID,
			TenantID:        original.TenantID,
			Amount:          original.Amount,
			PaymentMethod:   original.PaymentMethod,
			Status:          models.PaymentStatusCompleted,
			PaidDate:        &today,
			RecordedByID:    actorID(actor),
			RefundOfID:      &originalID,
			Notes:           reason,
		}
		if err := s.payments.Create(ctx, refund); err != nil {
			return err
		}
		if err := s.payments.CreateAudit(ctx, &models.PaymentAudit{
			PaymentID: refund.ID,
			NewStatus: refund.Status,
			ActorID:   actorID(actor),
			Reason:    reason,
		}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditRefund, "Payment", original.ID,
			fmt.Sprintf("refunded %s: %s", money.Format(original.Amount), reason))
	})
	if err != nil {
		return nil, err
	}
	metrics.PaymentsRecorded.WithLabelValues(models.PaymentTypeRefund, refund.Status).Inc()
	return refund, nil
}

// UploadReceipt attaches a scanned receipt to a cash payment.
func (s *PaymentService) UploadReceipt(ctx context.Context, paymentID uint, r io.Reader, filename, contentType string, actor models.Viewer) (*models.Payment, error) {
	if s.storage == nil {
		return nil, errors.New("receipt storage is not configured")
	}
	if !storage.IsValidReceiptType(contentType) {
		return nil, invalid("file", "receipts must be PDF, JPEG or PNG")
	}
	payment, err := s.Get(ctx, paymentID, actor)
	if err != nil {
		return nil, err
	}
	if payment.PaymentMethod != models.PaymentMethodCash {
		return nil, invalid("payment", "receipts are only kept for cash payments")
	}
	if !actor.IsStaff() && (payment.RecordedByID == nil || *payment.RecordedByID != actor.UserID) {
		return nil, ErrPermissionDenied
	}

	path, err := s.storage.Save(r, filename, "receipts", s.now())
	if err != nil {
		return nil, err
	}
	previous := payment.ReceiptPath
	payment.ReceiptPath = &path
	if err := s.payments.Update(ctx, payment); err != nil {
		s.storage.Delete(path)
		return nil, err
	}
	if previous != nil {
		if err := s.storage.Delete(*previous); err != nil {
			logger.Warn("failed to remove replaced receipt", "payment_id", payment.ID, "error", err)
		}
	}
	return payment, nil
}

// OpenReceipt returns the stored receipt of a payment the viewer can see.
func (s *PaymentService) OpenReceipt(ctx context.Context, paymentID uint, viewer models.Viewer) (io.ReadCloser, error) {
	payment, err := s.Get(ctx, paymentID, viewer)
	if err != nil {
		return nil, err
	}
	if payment.ReceiptPath == nil || s.storage == nil {
		return nil, ErrNotFound
	}
	return s.storage.Open(*payment.ReceiptPath)
}

// CreateVisitPayment opens, or reopens after a failure, the one-time visit
// payment for a house listing. The gateway call is made by the caller.
func (s *PaymentService) CreateVisitPayment(ctx context.Context, propertyID uint, actor models.Viewer) (*models.PropertyVisitPayment, *models.Payment, error) {
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	if !property.IsHouse() || property.VisitCost == nil || !property.VisitCost.IsPositive() {
		return nil, nil, invalid("property_id", "this listing does not take visit payments")
	}
	if !property.IsActive || !property.IsApproved {
		return nil, nil, ErrNotFound
	}

	var visit *models.PropertyVisitPayment
	var payment *models.Payment
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.visits.FindByPropertyAndUser(ctx, propertyID, actor.UserID)
		switch {
		case err == nil:
			visit = existing
		case repository.IsNotFound(err):
			visit = &models.PropertyVisitPayment{
				PropertyID: propertyID,
				UserID:     actor.UserID,
				Amount:     money.Round(*property.VisitCost),
				Status:     models.VisitStatusPending,
			}
			if err := s.visits.Create(ctx, visit); err != nil {
				if repository.IsDuplicateKey(err) {
					return ErrDuplicate
				}
				return err
			}
		default:
			return err
		}

		if visit.Status == models.VisitStatusCompleted {
			return invalid("property_id", "visit already paid")
		}
		if visit.Status == models.VisitStatusPending && visit.PaymentID != nil {
			payment, err = s.payments.FindByIDForUpdate(ctx, *visit.PaymentID)
			if err == nil && payment.Status == models.PaymentStatusPending {
				return nil
			}
			if err != nil && !repository.IsNotFound(err) {
				return err
			}
		}

		payment = &models.Payment{
			PaymentType:   models.PaymentTypeVisit,
			Amount:        visit.Amount,
			PaymentMethod: models.PaymentMethodMobileMoney,
			TenantID:      actorID(actor),
			RecordedByID:  actorID(actor),
		}
		payment.SetTarget(models.VisitTarget(visit.ID))
		s.settle(payment, false)
		if err := s.insert(ctx, payment, actor, "visit payment for "+property.Title); err != nil {
			return err
		}
		visit.Status = models.VisitStatusPending
		visit.PaymentID = &payment.ID
		return s.visits.Update(ctx, visit)
	})
	if err != nil {
		return nil, nil, err
	}
	return visit, payment, nil
}

// VisitStatus reports whether the viewer has unlocked the owner's details.
// Staff and the owner always see them.
func (s *PaymentService) VisitStatus(ctx context.Context, propertyID uint, viewer models.Viewer) (*VisitAccess, error) {
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canViewProperty(property, viewer) {
		return nil, ErrNotFound
	}

	access := &VisitAccess{PropertyID: propertyID, Status: "none"}
	if canManageProperty(property, viewer) {
		access.Status = models.VisitStatusCompleted
		access.Unlocked = true
	} else {
		visit, err := s.visits.FindByPropertyAndUser(ctx, propertyID, viewer.UserID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		if visit != nil {
			access.Status = visit.Status
			access.Unlocked = visit.Unlocked()
			access.PaymentID = visit.PaymentID
		}
	}

	if access.Unlocked {
		access.OwnerName = property.Owner.FullName()
		access.OwnerPhone = property.Owner.Phone
		access.OwnerEmail = property.Owner.Email
		access.Address = property.Address
		access.Latitude = property.Latitude
		access.Longitude = property.Longitude
	}
	return access, nil
}

func (s *PaymentService) List(ctx context.Context, viewer models.Viewer, query *repository.ListQuery) ([]models.Payment, int64, error) {
	return s.payments.List(ctx, repository.PaymentVisibility(viewer), query)
}

// Get returns a payment inside the viewer's visibility scope.
func (s *PaymentService) Get(ctx context.Context, id uint, viewer models.Viewer) (*models.Payment, error) {
	if viewer.IsStaff() {
		payment, err := s.payments.FindByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		return payment, nil
	}
	query := repository.NewListQuery()
	query.PerPage = 1
	query.Filters["id"] = strconv.FormatUint(uint64(id), 10)
	payments, _, err := s.payments.List(ctx, repository.PaymentVisibility(viewer), query)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ErrNotFound
	}
	return &payments[0], nil
}

func (s *PaymentService) Audits(ctx context.Context, id uint, viewer models.Viewer) ([]models.PaymentAudit, error) {
	if _, err := s.Get(ctx, id, viewer); err != nil {
		return nil, err
	}
	return s.payments.FindAudits(ctx, id)
}

// notifyPaymentOutcome tells the payer how a gateway payment ended.
func (s *PaymentService) notifyPaymentOutcome(p *models.Payment) {
	if p.TenantID == nil || s.notifications == nil {
		return
	}
	userID := *p.TenantID
	title, notifType := "Payment received", models.NotificationTypePaymentReceived
	if p.Status != models.PaymentStatusCompleted {
		title, notifType = "Payment failed", models.NotificationTypePaymentFailed
	}
	message := fmt.Sprintf("Your %s payment of %s is %s.", p.PaymentType, money.Format(p.Amount), p.Status)
	background(s.worker, func(ctx context.Context) error {
		_, err := s.notifications.NotifyUser(ctx, userID, title, message, notifType)
		return err
	})
}
