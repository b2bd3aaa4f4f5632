package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/events"
	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/metrics"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
)

const referenceAttempts = 5

// BookingService owns the booking lifecycle: creation with conflict
// detection, edits, state transitions and the expiration sweep.
type BookingService struct {
	tx            repository.TxManager
	bookings      repository.BookingRepository
	properties    repository.PropertyRepository
	rooms         repository.RoomRepository
	payments      repository.PaymentRepository
	users         repository.UserRepository
	customers     *CustomerService
	notifications *NotificationService
	email         *EmailService
	auditSvc      *AuditService
	bus           *events.Bus
	worker        *jobs.Worker
	now           func() time.Time
}

func NewBookingService(
	repos *repository.Repositories,
	customers *CustomerService,
	notifications *NotificationService,
	email *EmailService,
	auditSvc *AuditService,
	bus *events.Bus,
	worker *jobs.Worker,
) *BookingService {
	return &BookingService{
		tx:            repos.Tx,
		bookings:      repos.Booking,
		properties:    repos.Property,
		rooms:         repos.Room,
		payments:      repos.Payment,
		users:         repos.User,
		customers:     customers,
		notifications: notifications,
		email:         email,
		auditSvc:      auditSvc,
		bus:           bus,
		worker:        worker,
		now:           time.Now,
	}
}

// BookingInput is the create-booking payload.
type BookingInput struct {
	PropertyID      uint    `json:"property_id" binding:"required"`
	CustomerID      uint    `json:"customer_id"`
	CheckInDate     string  `json:"check_in_date" binding:"required"`
	CheckOutDate    string  `json:"check_out_date" binding:"required"`
	NumberOfGuests  int     `json:"number_of_guests"`
	RoomNumber      *string `json:"room_number"`
	SpecialRequests string  `json:"special_requests"`
}

// BookingUpdateInput holds the fields editable while a booking is pending.
type BookingUpdateInput struct {
	CheckInDate     *string `json:"check_in_date"`
	CheckOutDate    *string `json:"check_out_date"`
	NumberOfGuests  *int    `json:"number_of_guests"`
	SpecialRequests *string `json:"special_requests"`
}

// ExpireResult summarizes an expiration sweep.
type ExpireResult struct {
	Checked int    `json:"checked"`
	Expired int    `json:"expired"`
	Failed  int    `json:"failed"`
	IDs     []uint `json:"ids"`
	DryRun  bool   `json:"dry_run"`
}

func canViewBooking(b *models.Booking, viewer models.Viewer) bool {
	switch {
	case viewer.IsStaff():
		return true
	case viewer.Role == models.RoleOwner:
		return b.Property.OwnerID == viewer.UserID
	case viewer.Role == models.RoleTenant:
		if b.CreatedByID != nil && *b.CreatedByID == viewer.UserID {
			return true
		}
		return viewer.Email != "" && strings.EqualFold(b.Customer.Email, viewer.Email)
	}
	return false
}

// canActOnBooking: staff and the property owner may run any action, the
// guest may only cancel.
func canActOnBooking(b *models.Booking, viewer models.Viewer, action string) bool {
	if viewer.IsStaff() || (viewer.Role == models.RoleOwner && b.Property.OwnerID == viewer.UserID) {
		return true
	}
	return action == statemachine.ActionCancel && canViewBooking(b, viewer)
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := models.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("check_in_date", "must be YYYY-MM-DD")
	}
	out, err := models.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("check_out_date", "must be YYYY-MM-DD")
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, invalid("check_out_date", "must be after check_in_date")
	}
	return in, out, nil
}

func normalizeRoom(room *string) *string {
	if room == nil {
		return nil
	}
	r := strings.TrimSpace(*room)
	if r == "" {
		return nil
	}
	return &r
}

func (s *BookingService) List(ctx context.Context, viewer models.Viewer, query *repository.ListQuery) ([]models.Booking, int64, error) {
	return s.bookings.List(ctx, repository.BookingVisibility(viewer), query)
}

func (s *BookingService) Get(ctx context.Context, id uint, viewer models.Viewer) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !canViewBooking(booking, viewer) {
		return nil, ErrNotFound
	}
	return booking, nil
}

// Create books a property, or a room of it, for [check_in, check_out).
// The property row lock serializes the overlap check and the insert.
func (s *BookingService) Create(ctx context.Context, input BookingInput, actor models.Viewer) (*models.Booking, error) {
	in, out, err := parseStay(input.CheckInDate, input.CheckOutDate)
	if err != nil {
		return nil, err
	}
	if input.NumberOfGuests < 1 {
		return nil, invalid("number_of_guests", "must be at least 1")
	}
	customer, err := s.resolveCustomer(ctx, input.CustomerID, actor)
	if err != nil {
		return nil, err
	}
	roomNumber := normalizeRoom(input.RoomNumber)

	var booking *models.Booking
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		property, err := s.properties.FindByIDForUpdate(ctx, input.PropertyID)
		if err != nil {
			return notFound(err)
		}
		if !property.IsBookable() {
			return invalid("property_id", "property is not open for bookings")
		}
		if err := s.checkRoom(ctx, property, roomNumber, input.NumberOfGuests); err != nil {
			return err
		}

		overlap, err := s.bookings.HasOverlap(ctx, property.ID, roomNumber, in, out, 0)
		if err != nil {
			return err
		}
		if overlap {
			return &ConflictError{PropertyID: property.ID, RoomNumber: roomNumber}
		}

		reference, err := s.newReference(ctx, property.PropertyType)
		if err != nil {
			return err
		}

		booking = &models.Booking{
			BookingReference: reference,
			PropertyID:       property.ID,
			CustomerID:       customer.ID,
			CreatedByID:      actorID(actor),
			CheckInDate:      in,
			CheckOutDate:     out,
			NumberOfGuests:   input.NumberOfGuests,
			RoomNumber:       roomNumber,
			TotalAmount:      models.CalculateBookingTotal(property.RentPeriod, in, out, property.RentAmount),
			BookingStatus:    models.BookingStatusPending,
			PaymentStatus:    models.BookingPaymentPending,
			SpecialRequests:  input.SpecialRequests,
		}
		if property.DepositAmount != nil {
			booking.DepositAmount = *property.DepositAmount
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}
		booking.Property = *property
		booking.Customer = *customer

		if err := s.bus.Publish(ctx, events.BookingSaved{Booking: booking}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditCreate, "Booking", booking.ID,
			fmt.Sprintf("%s %s to %s", booking.BookingReference, input.CheckInDate, input.CheckOutDate))
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	logger.Info("booking created", "booking_id", booking.ID, "reference", booking.BookingReference, "property_id", booking.PropertyID)

	ownerID := booking.Property.OwnerID
	title := fmt.Sprintf("New booking %s", booking.BookingReference)
	message := fmt.Sprintf("%s booked %s from %s to %s.", customer.FullName(), booking.Property.Title,
		input.CheckInDate, input.CheckOutDate)
	background(s.worker, func(ctx context.Context) error {
		_, err := s.notifications.NotifyUser(ctx, ownerID, title, message, models.NotificationTypeBookingCreated)
		return err
	})
	return booking, nil
}

// resolveCustomer: staff book for any customer, everyone else books for
// the customer record behind their own email.
func (s *BookingService) resolveCustomer(ctx context.Context, customerID uint, actor models.Viewer) (*models.Customer, error) {
	if actor.IsStaff() {
		if customerID == 0 {
			return nil, invalid("customer_id", "is required")
		}
		customer, err := s.customers.FindByID(ctx, customerID, actor)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("customer_id", "customer %d does not exist", customerID)
			}
			return nil, err
		}
		return customer, nil
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err)
	}
	customer, err := s.customers.ForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if customerID != 0 && customerID != customer.ID {
		return nil, ErrPermissionDenied
	}
	return customer, nil
}

func (s *BookingService) checkRoom(ctx context.Context, property *models.Property, roomNumber *string, guests int) error {
	if !property.HasRooms() {
		if roomNumber != nil {
			return invalid("room_number", "%s properties are booked without rooms", property.PropertyType)
		}
		return nil
	}
	if roomNumber == nil {
		return invalid("room_number", "is required for %s bookings", property.PropertyType)
	}
	room, err := s.rooms.FindByNumber(ctx, property.ID, *roomNumber)
	if repository.IsNotFound(err) {
		return invalid("room_number", "room %s does not exist", *roomNumber)
	}
	if err != nil {
		return err
	}
	if !room.IsActive || models.IsManualStatus(room.Status) {
		return invalid("room_number", "room %s is not available (%s)", room.RoomNumber, room.Status)
	}
	if room.Capacity > 0 && guests > room.Capacity {
		return invalid("number_of_guests", "room %s sleeps at most %d", room.RoomNumber, room.Capacity)
	}
	return nil
}

func (s *BookingService) newReference(ctx context.Context, propertyType string) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		reference := models.NewBookingReference(propertyType)
		_, err := s.bookings.FindByReference(ctx, reference)
		if repository.IsNotFound(err) {
			return reference, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not generate a unique booking reference")
}

// Update edits a pending booking. New dates re-run the conflict check and
// reprice the stay.
func (s *BookingService) Update(ctx context.Context, id uint, input BookingUpdateInput, actor models.Viewer) (*models.Booking, error) {
	var booking *models.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !canViewBooking(booking, actor) {
			return ErrNotFound
		}
		if booking.BookingStatus != models.BookingStatusPending {
			return invalid("booking_status", "only pending bookings can be edited")
		}

		if input.NumberOfGuests != nil {
			if *input.NumberOfGuests < 1 {
				return invalid("number_of_guests", "must be at least 1")
			}
			booking.NumberOfGuests = *input.NumberOfGuests
		}
		if input.SpecialRequests != nil {
			booking.SpecialRequests = *input.SpecialRequests
		}

		if input.CheckInDate != nil || input.CheckOutDate != nil {
			checkIn := booking.CheckInDate.Format(models.DateLayout)
			checkOut := booking.CheckOutDate.Format(models.DateLayout)
			if input.CheckInDate != nil {
				checkIn = *input.CheckInDate
			}
			if input.CheckOutDate != nil {
				checkOut = *input.CheckOutDate
			}
			in, out, err := parseStay(checkIn, checkOut)
			if err != nil {
				return err
			}
			if _, err := s.properties.FindByIDForUpdate(ctx, booking.PropertyID); err != nil {
				return err
			}
			overlap, err := s.bookings.HasOverlap(ctx, booking.PropertyID, booking.RoomNumber, in, out, booking.ID)
			if err != nil {
				return err
			}
			if overlap {
				return &ConflictError{PropertyID: booking.PropertyID, RoomNumber: booking.RoomNumber}
			}
			booking.CheckInDate, booking.CheckOutDate = in, out
			booking.TotalAmount = booking.CalculatedTotal()
			booking.ApplyPaymentStatus(booking.TotalAmount)
		}
		if booking.HasRoom() && input.NumberOfGuests != nil {
			room, err := s.rooms.FindByNumber(ctx, booking.PropertyID, *booking.RoomNumber)
			if err == nil && room.Capacity > 0 && booking.NumberOfGuests > room.Capacity {
				return invalid("number_of_guests", "room %s sleeps at most %d", room.RoomNumber, room.Capacity)
			}
		}

		if err := s.bookings.Update(ctx, booking); err != nil {
			return err
		}
		if err := s.bus.Publish(ctx, events.BookingSaved{Booking: booking}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditUpdate, "Booking", booking.ID, booking.BookingReference)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

var transitionAudit = map[string]string{
	statemachine.ActionConfirm:  models.AuditConfirm,
	statemachine.ActionCheckIn:  models.AuditCheckIn,
	statemachine.ActionCheckOut: models.AuditCheckOut,
	statemachine.ActionCancel:   models.AuditCancel,
	statemachine.ActionNoShow:   models.AuditNoShow,
}

// Transition applies a state-machine action. reason is kept on cancel.
func (s *BookingService) Transition(ctx context.Context, id uint, action, reason string, actor models.Viewer) (*models.Booking, error) {
	auditAction, ok := transitionAudit[action]
	if !ok {
		return nil, invalid("action", "unknown booking action %q", action)
	}

	var booking *models.Booking
	var from string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !canViewBooking(booking, actor) {
			return ErrNotFound
		}
		if !canActOnBooking(booking, actor, action) {
			return ErrPermissionDenied
		}

		from = booking.BookingStatus
		machine := statemachine.NewBookingFSMAt(booking, s.now)
		if action == statemachine.ActionCancel {
			err = machine.Cancel(ctx, reason)
		} else {
			err = machine.Fire(ctx, action)
		}
		if err != nil {
			return err
		}

		if err := s.bookings.Update(ctx, booking); err != nil {
			return err
		}
		if err := s.bus.Publish(ctx, events.BookingSaved{Booking: booking}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, auditAction, "Booking", booking.ID,
			fmt.Sprintf("%s: %s -> %s", booking.BookingReference, from, booking.BookingStatus))
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(action).Inc()
	logger.Info("booking transitioned", "booking_id", booking.ID, "from", from, "to", booking.BookingStatus)
	s.notifyGuest(booking, action)
	return booking, nil
}

func (s *BookingService) notifyGuest(booking *models.Booking, action string) {
	var title, notifType string
	switch action {
	case statemachine.ActionConfirm:
		title, notifType = "Booking confirmed", models.NotificationTypeBookingConfirmed
	case statemachine.ActionCancel:
		title, notifType = "Booking cancelled", models.NotificationTypeBookingCancelled
	default:
		return
	}

	snapshot := *booking
	message := fmt.Sprintf("Your booking %s at %s is now %s.", snapshot.BookingReference, snapshot.Property.Title, snapshot.BookingStatus)
	background(s.worker, func(ctx context.Context) error {
		_, err := s.notifications.NotifyEmail(ctx, snapshot.Customer.Email, title, message, notifType)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	if action == statemachine.ActionConfirm && s.email != nil && s.email.Configured() {
		background(s.worker, func(ctx context.Context) error {
			return s.email.SendBookingConfirmed(ctx, &snapshot)
		})
	}
}

// RecomputeTotal reprices the stay from the property's current rate.
func (s *BookingService) RecomputeTotal(ctx context.Context, id uint, actor models.Viewer) (*models.Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	var booking *models.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		previous := booking.TotalAmount
		booking.TotalAmount = booking.CalculatedTotal()
		booking.ApplyPaymentStatus(booking.TotalAmount)
		if err := s.bookings.Update(ctx, booking); err != nil {
			return err
		}
		if err := s.bus.Publish(ctx, events.BookingSaved{Booking: booking}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditUpdate, "Booking", booking.ID,
			fmt.Sprintf("total %s -> %s", previous.StringFixed(2), booking.TotalAmount.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Delete removes a booking that never took money. Staff only.
func (s *BookingService) Delete(ctx context.Context, id uint, actor models.Viewer) error {
	if !actor.IsStaff() {
		return ErrPermissionDenied
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		payments, err := s.payments.FindByBooking(ctx, id)
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return invalid("booking", "booking has payments; cancel it instead")
		}
		if err := s.bookings.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.bus.Publish(ctx, events.BookingDeleted{
			BookingID:  booking.ID,
			PropertyID: booking.PropertyID,
			RoomNumber: booking.RoomNumber,
		}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditDelete, "Booking", booking.ID, "deleted "+booking.BookingReference)
	})
}

// ExpireSweep cancels unpaid bookings past their property's expiration
// window. Each booking is re-checked under its own lock and transaction;
// failures are logged and skipped so the next run can retry them.
func (s *BookingService) ExpireSweep(ctx context.Context, dryRun bool) (*ExpireResult, error) {
	candidates, err := s.bookings.FindExpirationCandidates(ctx)
	if err != nil {
		return nil, err
	}

	result := &ExpireResult{DryRun: dryRun, IDs: []uint{}}
	now := s.now()
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++
		if !candidate.IsExpired(now, candidate.Property.BookingExpirationHours) {
			continue
		}
		if dryRun {
			result.Expired++
			result.IDs = append(result.IDs, candidate.ID)
			continue
		}

		expired, err := s.expireOne(ctx, candidate.ID, now)
		if err != nil {
			result.Failed++
			logger.Error("failed to expire booking", "booking_id", candidate.ID, "error", err)
			continue
		}
		if expired {
			result.Expired++
			result.IDs = append(result.IDs, candidate.ID)
			metrics.BookingsExpired.Inc()
		}
	}
	return result, nil
}

func (s *BookingService) expireOne(ctx context.Context, id uint, now time.Time) (bool, error) {
	var booking *models.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		hours := booking.Property.BookingExpirationHours
		if !booking.MayCancel() || !booking.IsExpired(now, hours) {
			booking = nil
			return nil
		}

		reason := fmt.Sprintf("Automatically cancelled: payment not received within %d hours", hours)
		if err := statemachine.NewBookingFSMAt(booking, func() time.Time { return now }).Cancel(ctx, reason); err != nil {
			return err
		}
		if err := s.bookings.Update(ctx, booking); err != nil {
			return err
		}
		if err := s.bus.Publish(ctx, events.BookingSaved{Booking: booking}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, SystemViewer, models.AuditExpire, "Booking", booking.ID, reason)
	})
	if err != nil || booking == nil {
		return false, err
	}

	snapshot := *booking
	background(s.worker, func(ctx context.Context) error {
		_, err := s.notifications.NotifyEmail(ctx, snapshot.Customer.Email, "Booking expired",
			snapshot.CancellationReason, models.NotificationTypeBookingExpired)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	return true, nil
}

// background runs job on the worker after the caller's transaction has
// committed. Without a worker the job is dropped.
func background(worker *jobs.Worker, job jobs.Job) {
	if worker == nil {
		return
	}
	worker.EnqueueAsync(job)
}
