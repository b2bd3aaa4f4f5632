package services

import (
	"context"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
)

type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an audit entry. userID is nil for scheduled jobs.
func (s *AuditService) Log(ctx context.Context, userID *uint, action, entity string, entityID uint, details, ip, userAgent string) error {
	logEntry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	return s.repo.Create(ctx, logEntry)
}

// Record is Log for service-internal events without request metadata.
func (s *AuditService) Record(ctx context.Context, actor models.Viewer, action, entity string, entityID uint, details string) error {
	return s.Log(ctx, actorID(actor), action, entity, entityID, details, "", "")
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, query)
}

// actorID is nil for the system viewer used by jobs.
func actorID(v models.Viewer) *uint {
	if v.UserID == 0 {
		return nil
	}
	id := v.UserID
	return &id
}

// SystemViewer acts for scheduled jobs and gateway callbacks.
var SystemViewer = models.Viewer{Role: models.RoleStaff}
