package repository

import (
	"context"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// BookingRepository defines the interface for booking data access
type BookingRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error)
	FindByReference(ctx context.Context, reference string) (*models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Booking, int64, error)
	HasOverlap(ctx context.Context, propertyID uint, roomNumber *string, checkIn, checkOut time.Time, excludeID uint) (bool, error)
	FindExpirationCandidates(ctx context.Context) ([]models.Booking, error)
	FindActiveForRoom(ctx context.Context, propertyID uint, roomNumber string, day time.Time) (*models.Booking, error)
	FindForReminders(ctx context.Context, propertyID uint) ([]models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := dbFrom(ctx, r.db).
		Preload("Property").
		Preload("Customer").
		First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row for the rest of the transaction.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	db := dbFrom(ctx, r.db)
	if err := forUpdate(db).First(&booking, id).Error; err != nil {
		return nil, err
	}
	if err := db.First(&booking.Property, booking.PropertyID).Error; err != nil {
		return nil, err
	}
	if err := db.First(&booking.Customer, booking.CustomerID).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	err := dbFrom(ctx, r.db).
		Preload("Property").
		Preload("Customer").
		Where("booking_reference = ?", reference).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return dbFrom(ctx, r.db).Omit("Property", "Customer", "CreatedBy").Create(booking).Error
}

func (r *bookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	return dbFrom(ctx, r.db).Omit("Property", "Customer", "CreatedBy").Save(booking).Error
}

func (r *bookingRepository) Delete(ctx context.Context, id uint) error {
	return dbFrom(ctx, r.db).Delete(&models.Booking{}, id).Error
}

func (r *bookingRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Booking, int64, error) {
	var bookings []models.Booking
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.Booking{}).Scopes(scope)

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("bookings.booking_reference ILIKE ? OR bookings.customer_id IN (SELECT id FROM customers WHERE first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)",
			search, search, search, search)
	}
	if status := query.Filter("status"); status != "" {
		db = db.Where("bookings.booking_status = ?", status)
	}
	if ps := query.Filter("payment_status"); ps != "" {
		db = db.Where("bookings.payment_status = ?", ps)
	}
	if property := query.Filter("property"); property != "" {
		db = db.Where("bookings.property_id = ?", property)
	}
	if customer := query.Filter("customer"); customer != "" {
		db = db.Where("bookings.customer_id = ?", customer)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"check_in_date":  "bookings.check_in_date",
		"check_out_date": "bookings.check_out_date",
		"total_amount":   "bookings.total_amount",
		"created_at":     "bookings.created_at",
	}, "bookings.created_at DESC")

	err := applyPage(db, query).
		Preload("Property").
		Preload("Customer").
		Find(&bookings).Error
	return bookings, total, err
}

// HasOverlap reports whether an active booking on the property intersects
// [checkIn, checkOut). With a room number the check is limited to that room.
func (r *bookingRepository) HasOverlap(ctx context.Context, propertyID uint, roomNumber *string, checkIn, checkOut time.Time, excludeID uint) (bool, error) {
	var count int64
	db := dbFrom(ctx, r.db).Model(&models.Booking{}).
		Where("property_id = ? AND booking_status IN ?", propertyID, models.ActiveBookingStatuses).
		Where("check_in_date < ? AND check_out_date > ?", models.Day(checkOut), models.Day(checkIn))
	if roomNumber != nil && *roomNumber != "" {
		db = db.Where("room_number = ?", *roomNumber)
	}
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

// FindExpirationCandidates returns unpaid pending or confirmed bookings on
// properties with a non-zero expiration window. The caller applies the
// time predicate.
func (r *bookingRepository) FindExpirationCandidates(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	err := dbFrom(ctx, r.db).
		Joins("Property").
		Where("bookings.payment_status = ?", models.BookingPaymentPending).
		Where("bookings.booking_status IN ?", []string{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Where(`"Property".booking_expiration_hours > 0`).
		Order("bookings.created_at").
		Find(&bookings).Error
	return bookings, err
}

// FindActiveForRoom returns the active booking holding the room on day, or
// nil when the room is free.
func (r *bookingRepository) FindActiveForRoom(ctx context.Context, propertyID uint, roomNumber string, day time.Time) (*models.Booking, error) {
	var bookings []models.Booking
	err := dbFrom(ctx, r.db).
		Where("property_id = ? AND room_number = ? AND booking_status IN ? AND check_out_date > ?",
			propertyID, roomNumber, models.ActiveBookingStatuses, models.Day(day)).
		Order("check_in_date").
		Limit(1).
		Find(&bookings).Error
	if err != nil || len(bookings) == 0 {
		return nil, err
	}
	return &bookings[0], nil
}

// FindForReminders returns confirmed or checked-in bookings on a property
// that still owe money.
func (r *bookingRepository) FindForReminders(ctx context.Context, propertyID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := dbFrom(ctx, r.db).
		Preload("Property").
		Preload("Customer").
		Where("property_id = ?", propertyID).
		Where("booking_status IN ?", []string{models.BookingStatusConfirmed, models.BookingStatusCheckedIn}).
		Where("payment_status IN ?", []string{models.BookingPaymentPending, models.BookingPaymentPartial}).
		Order("id").
		Find(&bookings).Error
	return bookings, err
}
