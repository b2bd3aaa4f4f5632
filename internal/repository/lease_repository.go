package repository

import (
	"context"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaseRepository defines the interface for lease data access
type LeaseRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Lease, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Lease, error)
	Create(ctx context.Context, lease *models.Lease) error
	Update(ctx context.Context, lease *models.Lease) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Lease, int64, error)
	FindActiveOverlapping(ctx context.Context, start, end time.Time) ([]models.Lease, error)
	FindLateFeeConfig(ctx context.Context, leaseID uint) (*models.LateFeeConfig, error)
	SaveLateFeeConfig(ctx context.Context, cfg *models.LateFeeConfig) error
}

type leaseRepository struct {
	db *gorm.DB
}

// NewLeaseRepository creates a new lease repository
func NewLeaseRepository(db *gorm.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

func (r *leaseRepository) FindByID(ctx context.Context, id uint) (*models.Lease, error) {
	var lease models.Lease
	err := dbFrom(ctx, r.db).
		Preload("Property").
		Preload("Tenant").
		Preload("LateFeeConfig").
		First(&lease, id).Error
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Lease, error) {
	var lease models.Lease
	db := dbFrom(ctx, r.db)
	if err := forUpdate(db).First(&lease, id).Error; err != nil {
		return nil, err
	}
	if err := db.First(&lease.Property, lease.PropertyID).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) Create(ctx context.Context, lease *models.Lease) error {
	return dbFrom(ctx, r.db).Omit("Property", "Tenant", "LateFeeConfig").Create(lease).Error
}

func (r *leaseRepository) Update(ctx context.Context, lease *models.Lease) error {
	return dbFrom(ctx, r.db).Omit("Property", "Tenant", "LateFeeConfig").Save(lease).Error
}

func (r *leaseRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Lease, int64, error) {
	var leases []models.Lease
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.Lease{}).Scopes(scope)

	if status := query.Filter("status"); status != "" {
		db = db.Where("leases.status = ?", status)
	}
	if property := query.Filter("property"); property != "" {
		db = db.Where("leases.property_id = ?", property)
	}
	if tenant := query.Filter("tenant"); tenant != "" {
		db = db.Where("leases.tenant_id = ?", tenant)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"start_date": "leases.start_date",
		"end_date":   "leases.end_date",
		"created_at": "leases.created_at",
	}, "leases.created_at DESC")

	err := applyPage(db, query).Preload("Property").Find(&leases).Error
	return leases, total, err
}

// FindActiveOverlapping returns active leases whose term touches [start, end].
func (r *leaseRepository) FindActiveOverlapping(ctx context.Context, start, end time.Time) ([]models.Lease, error) {
	var leases []models.Lease
	err := dbFrom(ctx, r.db).
		Where("status = ? AND start_date <= ? AND end_date >= ?", models.LeaseStatusActive, models.Day(end), models.Day(start)).
		Order("id").
		Find(&leases).Error
	return leases, err
}

func (r *leaseRepository) FindLateFeeConfig(ctx context.Context, leaseID uint) (*models.LateFeeConfig, error) {
	var cfg models.LateFeeConfig
	err := dbFrom(ctx, r.db).Where("lease_id = ?", leaseID).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveLateFeeConfig upserts the lease's single late fee configuration.
func (r *leaseRepository) SaveLateFeeConfig(ctx context.Context, cfg *models.LateFeeConfig) error {
	return dbFrom(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lease_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fee_type", "amount", "grace_period_days", "max_late_fee", "is_active", "updated_at"}),
	}).Create(cfg).Error
}
