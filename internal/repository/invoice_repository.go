package repository

import (
	"context"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// InvoiceRepository defines the interface for rent invoice data access
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uint) (*models.RentInvoice, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.RentInvoice, error)
	FindByLeaseAndPeriod(ctx context.Context, leaseID uint, start, end time.Time) (*models.RentInvoice, error)
	FindCovering(ctx context.Context, leaseID uint, day time.Time) (*models.RentInvoice, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, invoice *models.RentInvoice) error
	Update(ctx context.Context, invoice *models.RentInvoice) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.RentInvoice, int64, error)
	FindLateFeeCandidates(ctx context.Context, day time.Time) ([]models.RentInvoice, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uint) (*models.RentInvoice, error) {
	var invoice models.RentInvoice
	err := dbFrom(ctx, r.db).
		Preload("Lease").
		Preload("Lease.Property").
		Preload("Tenant").
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate locks the invoice row. Payment validation and insert
// run under this lock.
func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.RentInvoice, error) {
	var invoice models.RentInvoice
	db := dbFrom(ctx, r.db)
	if err := forUpdate(db).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	if err := db.First(&invoice.Lease, invoice.LeaseID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByLeaseAndPeriod(ctx context.Context, leaseID uint, start, end time.Time) (*models.RentInvoice, error) {
	var invoice models.RentInvoice
	err := dbFrom(ctx, r.db).
		Where("lease_id = ? AND period_start = ? AND period_end = ?", leaseID, models.Day(start), models.Day(end)).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindCovering returns the lease's invoice whose period contains day.
func (r *invoiceRepository) FindCovering(ctx context.Context, leaseID uint, day time.Time) (*models.RentInvoice, error) {
	var invoice models.RentInvoice
	d := models.Day(day)
	err := dbFrom(ctx, r.db).
		Where("lease_id = ? AND period_start <= ? AND period_end >= ?", leaseID, d, d).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&models.RentInvoice{}).Where("invoice_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.RentInvoice) error {
	return dbFrom(ctx, r.db).Omit("Lease", "Tenant").Create(invoice).Error
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *models.RentInvoice) error {
	return dbFrom(ctx, r.db).Omit("Lease", "Tenant").Save(invoice).Error
}

func (r *invoiceRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.RentInvoice, int64, error) {
	var invoices []models.RentInvoice
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.RentInvoice{}).Scopes(scope)

	if query.Search != "" {
		db = db.Where("rent_invoices.invoice_number ILIKE ?", "%"+query.Search+"%")
	}
	if status := query.Filter("status"); status != "" {
		db = db.Where("rent_invoices.status = ?", status)
	}
	if lease := query.Filter("lease"); lease != "" {
		db = db.Where("rent_invoices.lease_id = ?", lease)
	}
	if tenant := query.Filter("tenant"); tenant != "" {
		db = db.Where("rent_invoices.tenant_id = ?", tenant)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"due_date":     "rent_invoices.due_date",
		"invoice_date": "rent_invoices.invoice_date",
		"total_amount": "rent_invoices.total_amount",
		"created_at":   "rent_invoices.created_at",
	}, "rent_invoices.due_date DESC")

	err := applyPage(db, query).Preload("Lease").Find(&invoices).Error
	return invoices, total, err
}

// FindLateFeeCandidates returns sent or overdue invoices past due on day
// with an outstanding balance.
func (r *invoiceRepository) FindLateFeeCandidates(ctx context.Context, day time.Time) ([]models.RentInvoice, error) {
	var invoices []models.RentInvoice
	err := dbFrom(ctx, r.db).
		Preload("Lease").
		Preload("Lease.LateFeeConfig").
		Where("due_date < ? AND status IN ? AND total_amount > amount_paid",
			models.Day(day), []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}).
		Order("due_date, id").
		Find(&invoices).Error
	return invoices, err
}
