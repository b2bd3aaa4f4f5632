package repository

import (
	"context"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit log data access
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return dbFrom(ctx, r.db).Omit("User").Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.AuditLog{})
	if entity := query.Filter("entity"); entity != "" {
		db = db.Where("entity = ?", entity)
	}
	if id := query.Filter("entity_id"); id != "" {
		db = db.Where("entity_id = ?", id)
	}
	if action := query.Filter("action"); action != "" {
		db = db.Where("action = ?", action)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := applyPage(db.Order("created_at DESC"), query).Preload("User").Find(&logs).Error
	return logs, total, err
}
