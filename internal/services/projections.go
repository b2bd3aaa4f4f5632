package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/events"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

// Projector keeps derived state in step with the ledger and bookings:
// booking and invoice balances, visit unlocks, room status and property
// status. Every handler runs inside the publisher's transaction.
type Projector struct {
	bookings   repository.BookingRepository
	properties repository.PropertyRepository
	rooms      repository.RoomRepository
	payments   repository.PaymentRepository
	invoices   repository.InvoiceRepository
	leases     repository.LeaseRepository
	visits     repository.VisitRepository
	now        func() time.Time
}

func NewProjector(repos *repository.Repositories, now func() time.Time) *Projector {
	if now == nil {
		now = time.Now
	}
	return &Projector{
		bookings:   repos.Booking,
		properties: repos.Property,
		rooms:      repos.Room,
		payments:   repos.Payment,
		invoices:   repos.Invoice,
		leases:     repos.Lease,
		visits:     repos.Visit,
		now:        now,
	}
}

// Register subscribes the projections. Order matters: a lease payment is
// linked to its invoice before the invoice balance is recomputed.
func (p *Projector) Register(bus *events.Bus) {
	events.On(bus, "ledger.lease_link", p.linkLeasePayment)
	events.On(bus, "ledger.invoice", p.projectInvoice)
	events.On(bus, "ledger.booking", p.projectBooking)
	events.On(bus, "ledger.visit", p.projectVisit)

	events.On(bus, "rooms.sync", func(ctx context.Context, e events.BookingSaved) error {
		b := e.Booking
		if e.PreviousRoom != nil && (!b.HasRoom() || *e.PreviousRoom != *b.RoomNumber) {
			if _, err := p.SyncRoom(ctx, b.PropertyID, *e.PreviousRoom); err != nil {
				return err
			}
		}
		if !b.HasRoom() {
			return nil
		}
		_, err := p.SyncRoom(ctx, b.PropertyID, *b.RoomNumber)
		return err
	})
	events.On(bus, "property.refresh", func(ctx context.Context, e events.BookingSaved) error {
		_, err := p.RefreshProperty(ctx, e.Booking.PropertyID)
		return err
	})

	events.On(bus, "rooms.sync", func(ctx context.Context, e events.BookingDeleted) error {
		if e.RoomNumber == nil || *e.RoomNumber == "" {
			return nil
		}
		_, err := p.SyncRoom(ctx, e.PropertyID, *e.RoomNumber)
		return err
	})
	events.On(bus, "property.refresh", func(ctx context.Context, e events.BookingDeleted) error {
		_, err := p.RefreshProperty(ctx, e.PropertyID)
		return err
	})

	events.On(bus, "property.refresh", func(ctx context.Context, e events.LeaseSaved) error {
		_, err := p.RefreshProperty(ctx, e.Lease.PropertyID)
		return err
	})
}

// linkLeasePayment attaches a completed lease payment to the invoice
// covering its paid date, issuing one when the month has none yet.
func (p *Projector) linkLeasePayment(ctx context.Context, e events.PaymentSaved) error {
	pay := e.Payment
	if pay.LeaseID == nil || pay.RentInvoiceID != nil || pay.Status != models.PaymentStatusCompleted || pay.PaymentType == models.PaymentTypeRefund {
		return nil
	}

	lease, err := p.leases.FindByIDForUpdate(ctx, *pay.LeaseID)
	if err != nil {
		return fmt.Errorf("lock lease %d: %w", *pay.LeaseID, err)
	}
	day := p.now()
	if pay.PaidDate != nil {
		day = *pay.PaidDate
	}

	invoice, err := p.invoices.FindCovering(ctx, lease.ID, day)
	if err == nil {
		invoice, err = p.invoices.FindByIDForUpdate(ctx, invoice.ID)
	} else if repository.IsNotFound(err) {
		start, end := models.MonthRange(day.Year(), day.Month())
		invoice, err = issueInvoice(ctx, p.invoices, lease, start, end, models.InvoiceStatusSent, p.now())
	}
	if err != nil {
		return fmt.Errorf("invoice for lease %d: %w", lease.ID, err)
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		logger.Warn("lease payment left unlinked, covering invoice is cancelled", "payment_id", pay.ID, "invoice_id", invoice.ID)
		return nil
	}

	// A completed payment that would overshoot the invoice stays on the lease.
	completed, err := p.payments.SumForInvoice(ctx, invoice.ID, models.PaymentStatusCompleted, pay.ID)
	if err != nil {
		return err
	}
	if err := checkHeadroom(invoice.TotalAmount, completed, decimal.Zero, pay.Amount); err != nil {
		logger.Warn("lease payment left unlinked", "payment_id", pay.ID, "invoice_id", invoice.ID, "error", err)
		return nil
	}

	pay.RentInvoiceID = &invoice.ID
	if pay.TenantID == nil {
		tenantID := lease.TenantID
		pay.TenantID = &tenantID
	}
	return p.payments.Update(ctx, pay)
}

func (p *Projector) projectInvoice(ctx context.Context, e events.PaymentSaved) error {
	if e.Payment.RentInvoiceID == nil {
		return nil
	}
	invoice, err := p.invoices.FindByIDForUpdate(ctx, *e.Payment.RentInvoiceID)
	if err != nil {
		return fmt.Errorf("lock invoice %d: %w", *e.Payment.RentInvoiceID, err)
	}
	paid, err := p.payments.SumForInvoice(ctx, invoice.ID, models.PaymentStatusCompleted, 0)
	if err != nil {
		return err
	}
	invoice.AmountPaid = money.Round(paid)
	invoice.ApplyStatus(p.now())
	return p.invoices.Update(ctx, invoice)
}

func (p *Projector) projectBooking(ctx context.Context, e events.PaymentSaved) error {
	if e.Payment.BookingID == nil {
		return nil
	}
	booking, err := p.bookings.FindByIDForUpdate(ctx, *e.Payment.BookingID)
	if err != nil {
		return fmt.Errorf("lock booking %d: %w", *e.Payment.BookingID, err)
	}
	paid, err := p.payments.SumForBooking(ctx, booking.ID, models.PaymentStatusCompleted)
	if err != nil {
		return err
	}
	booking.PaidAmount = money.Round(paid)
	booking.ApplyPaymentStatus(booking.CalculatedTotal())
	return p.bookings.Update(ctx, booking)
}

func (p *Projector) projectVisit(ctx context.Context, e events.PaymentSaved) error {
	pay := e.Payment
	if pay.PropertyVisitID == nil || pay.PaymentType == models.PaymentTypeRefund {
		return nil
	}
	visit, err := p.visits.FindByID(ctx, *pay.PropertyVisitID)
	if err != nil {
		return fmt.Errorf("load visit %d: %w", *pay.PropertyVisitID, err)
	}

	switch pay.Status {
	case models.PaymentStatusCompleted:
		if visit.Status == models.VisitStatusCompleted {
			return nil
		}
		now := p.now()
		visit.Status = models.VisitStatusCompleted
		visit.PaidAt = &now
	case models.PaymentStatusFailed, models.PaymentStatusCancelled:
		if visit.Status == models.VisitStatusCompleted {
			return nil
		}
		visit.Status = models.VisitStatusFailed
	case models.PaymentStatusRefunded:
		// Only the payment that unlocked the visit can lock it again.
		if visit.PaymentID == nil || *visit.PaymentID != pay.ID {
			return nil
		}
		visit.Status = models.VisitStatusPending
		visit.PaidAt = nil
		return p.visits.Update(ctx, visit)
	default:
		return nil
	}
	id := pay.ID
	visit.PaymentID = &id
	return p.visits.Update(ctx, visit)
}

// SyncRoom recomputes one room's status from its active booking today. A
// booking may name a room that is not in the inventory; that is not an
// error.
func (p *Projector) SyncRoom(ctx context.Context, propertyID uint, number string) (bool, error) {
	room, err := p.rooms.FindByNumberForUpdate(ctx, propertyID, number)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	changed, err := p.projectRoom(ctx, room)
	if err != nil || !changed {
		return false, err
	}
	if err := p.rooms.Update(ctx, room); err != nil {
		return false, err
	}
	logger.Debug("room status projected", "property_id", propertyID, "room", number, "status", room.Status)
	return true, nil
}

// projectRoom applies the projection to room in memory.
func (p *Projector) projectRoom(ctx context.Context, room *models.Room) (bool, error) {
	active, err := p.bookings.FindActiveForRoom(ctx, room.PropertyID, room.RoomNumber, p.now())
	if err != nil {
		return false, err
	}
	var activeID *uint
	if active != nil {
		id := active.ID
		activeID = &id
	}
	return room.ProjectStatus(activeID), nil
}

// RefreshProperty toggles the property between available and rented from
// its current bookings and leases.
func (p *Projector) RefreshProperty(ctx context.Context, propertyID uint) (bool, error) {
	property, err := p.properties.FindByIDForUpdate(ctx, propertyID)
	if err != nil {
		return false, fmt.Errorf("lock property %d: %w", propertyID, err)
	}
	busy, err := p.properties.HasActivity(ctx, propertyID, p.now())
	if err != nil {
		return false, err
	}
	next := models.StatusFromActivity(property.Status, busy)
	if next == property.Status {
		return false, nil
	}
	if err := p.properties.UpdateStatus(ctx, propertyID, next); err != nil {
		return false, err
	}
	return true, nil
}
