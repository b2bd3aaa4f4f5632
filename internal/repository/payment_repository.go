package repository

import (
	"context"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for ledger payment data access
type PaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindByBooking(ctx context.Context, bookingID uint) ([]models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Payment, int64, error)
	SumForBooking(ctx context.Context, bookingID uint, status string) (decimal.Decimal, error)
	SumForInvoice(ctx context.Context, invoiceID uint, status string, excludeID uint) (decimal.Decimal, error)
	CreateAudit(ctx context.Context, audit *models.PaymentAudit) error
	FindAudits(ctx context.Context, paymentID uint) ([]models.PaymentAudit, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := dbFrom(ctx, r.db).
		Preload("Booking").
		Preload("Booking.Customer").
		Preload("RentInvoice").
		Preload("Lease").
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByIDForUpdate locks the payment row without associations.
func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := forUpdate(dbFrom(ctx, r.db)).First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := dbFrom(ctx, r.db).Where("transaction_id = ?", transactionID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByBooking(ctx context.Context, bookingID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := dbFrom(ctx, r.db).Where("booking_id = ?", bookingID).Order("created_at").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return dbFrom(ctx, r.db).Omit("Booking", "RentInvoice", "Lease").Create(payment).Error
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return dbFrom(ctx, r.db).Omit("Booking", "RentInvoice", "Lease").Save(payment).Error
}

func (r *paymentRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.Payment{}).Scopes(scope)

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("payments.transaction_id ILIKE ? OR payments.reference_number ILIKE ?", search, search)
	}
	if id := query.Filter("id"); id != "" {
		db = db.Where("payments.id = ?", id)
	}
	if status := query.Filter("status"); status != "" {
		db = db.Where("payments.status = ?", status)
	}
	if t := query.Filter("payment_type"); t != "" {
		db = db.Where("payments.payment_type = ?", t)
	}
	if m := query.Filter("payment_method"); m != "" {
		db = db.Where("payments.payment_method = ?", m)
	}
	if b := query.Filter("booking"); b != "" {
		db = db.Where("payments.booking_id = ?", b)
	}
	if inv := query.Filter("rent_invoice"); inv != "" {
		db = db.Where("payments.rent_invoice_id = ?", inv)
	}
	if lease := query.Filter("lease"); lease != "" {
		db = db.Where("payments.lease_id = ?", lease)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"amount":     "payments.amount",
		"paid_date":  "payments.paid_date",
		"created_at": "payments.created_at",
	}, "payments.created_at DESC")

	err := applyPage(db, query).Find(&payments).Error
	return payments, total, err
}

// SumForBooking totals non-refund payments on a booking with the given status.
func (r *paymentRepository) SumForBooking(ctx context.Context, bookingID uint, status string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := dbFrom(ctx, r.db).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("booking_id = ? AND status = ? AND payment_type <> ?", bookingID, status, models.PaymentTypeRefund).
		Row().Scan(&sum)
	return sum, err
}

// SumForInvoice totals non-refund payments on an invoice with the given
// status, leaving out excludeID.
func (r *paymentRepository) SumForInvoice(ctx context.Context, invoiceID uint, status string, excludeID uint) (decimal.Decimal, error) {
	var sum decimal.Decimal
	db := dbFrom(ctx, r.db).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("rent_invoice_id = ? AND status = ? AND payment_type <> ?", invoiceID, status, models.PaymentTypeRefund)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Row().Scan(&sum)
	return sum, err
}

func (r *paymentRepository) CreateAudit(ctx context.Context, audit *models.PaymentAudit) error {
	return dbFrom(ctx, r.db).Create(audit).Error
}

func (r *paymentRepository) FindAudits(ctx context.Context, paymentID uint) ([]models.PaymentAudit, error) {
	var audits []models.PaymentAudit
	err := dbFrom(ctx, r.db).Where("payment_id = ?", paymentID).Order("created_at, id").Find(&audits).Error
	return audits, err
}
