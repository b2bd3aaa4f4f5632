package services

import (
	"context"
	"fmt"

	"github.com/Intruder289/maishaap-backend-sub002/internal/events"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/shopspring/decimal"
)

type LeaseService struct {
	tx         repository.TxManager
	leases     repository.LeaseRepository
	properties repository.PropertyRepository
	users      repository.UserRepository
	bus        *events.Bus
	auditSvc   *AuditService
}

func NewLeaseService(repos *repository.Repositories, bus *events.Bus, auditSvc *AuditService) *LeaseService {
	return &LeaseService{
		tx:         repos.Tx,
		leases:     repos.Lease,
		properties: repos.Property,
		users:      repos.User,
		bus:        bus,
		auditSvc:   auditSvc,
	}
}

// LeaseInput creates a lease.
type LeaseInput struct {
	PropertyID uint            `json:"property_id" binding:"required"`
	TenantID   uint            `json:"tenant_id" binding:"required"`
	StartDate  string          `json:"start_date" binding:"required"`
	EndDate    string          `json:"end_date" binding:"required"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Status     string          `json:"status"`
}

// LeaseUpdateInput holds the editable lease fields.
type LeaseUpdateInput struct {
	Status     *string          `json:"status"`
	EndDate    *string          `json:"end_date"`
	RentAmount *decimal.Decimal `json:"rent_amount"`
}

func canViewLease(l *models.Lease, viewer models.Viewer) bool {
	return canManageProperty(&l.Property, viewer) || (viewer.Role == models.RoleTenant && l.TenantID == viewer.UserID)
}

func (s *LeaseService) List(ctx context.Context, viewer models.Viewer, query *repository.ListQuery) ([]models.Lease, int64, error) {
	return s.leases.List(ctx, repository.LeaseVisibility(viewer), query)
}

func (s *LeaseService) Get(ctx context.Context, id uint, viewer models.Viewer) (*models.Lease, error) {
	lease, err := s.leases.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !canViewLease(lease, viewer) {
		return nil, ErrNotFound
	}
	return lease, nil
}

func (s *LeaseService) Create(ctx context.Context, input LeaseInput, actor models.Viewer) (*models.Lease, error) {
	property, err := s.properties.FindByID(ctx, input.PropertyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canManageProperty(property, actor) {
		return nil, ErrPermissionDenied
	}
	tenant, err := s.users.FindByID(ctx, input.TenantID)
	if err != nil {
		return nil, invalid("tenant_id", "user %d does not exist", input.TenantID)
	}
	if tenant.Role != models.RoleTenant {
		return nil, invalid("tenant_id", "user %d is not a tenant", input.TenantID)
	}

	start, err := models.ParseDate(input.StartDate)
	if err != nil {
		return nil, invalid("start_date", "must be YYYY-MM-DD")
	}
	end, err := models.ParseDate(input.EndDate)
	if err != nil {
		return nil, invalid("end_date", "must be YYYY-MM-DD")
	}
	if !end.After(start) {
		return nil, invalid("end_date", "must be after start_date")
	}

	rent := input.RentAmount
	if rent.IsZero() {
		rent = property.RentAmount
	}
	if !rent.IsPositive() {
		return nil, invalid("rent_amount", "must be greater than zero")
	}
	status := input.Status
	if status == "" {
		status = models.LeaseStatusPending
	}
	if !models.ValidLeaseStatus(status) {
		return nil, invalid("status", "unknown lease status %q", status)
	}

	lease := &models.Lease{
		PropertyID: property.ID,
		TenantID:   tenant.ID,
		StartDate:  start,
		EndDate:    end,
		RentAmount: rent,
		Status:     status,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.leases.Create(ctx, lease); err != nil {
			return err
		}
		if err := s.bus.Publish(ctx, events.LeaseSaved{Lease: lease}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditCreate, "Lease", lease.ID,
			fmt.Sprintf("lease for %s, tenant %s", property.Title, tenant.Email))
	})
	if err != nil {
		return nil, err
	}
	lease.Property = *property
	lease.Tenant = *tenant
	return lease, nil
}

func (s *LeaseService) Update(ctx context.Context, id uint, input LeaseUpdateInput, actor models.Viewer) (*models.Lease, error) {
	var lease *models.Lease
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		lease, err = s.leases.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !canManageProperty(&lease.Property, actor) {
			return ErrPermissionDenied
		}

		if input.Status != nil {
			if !models.ValidLeaseStatus(*input.Status) {
				return invalid("status", "unknown lease status %q", *input.Status)
			}
			lease.Status = *input.Status
		}
		if input.EndDate != nil {
			end, err := models.ParseDate(*input.EndDate)
			if err != nil {
				return invalid("end_date", "must be YYYY-MM-DD")
			}
			if !end.After(lease.StartDate) {
				return invalid("end_date", "must be after start_date")
			}
			lease.EndDate = end
		}
		if input.RentAmount != nil {
			if !input.RentAmount.IsPositive() {
				return invalid("rent_amount", "must be greater than zero")
			}
			lease.RentAmount = *input.RentAmount
		}

		if err := s.leases.Update(ctx, lease); err != nil {
			return err
		}
		if err := s.bus.Publish(ctx, events.LeaseSaved{Lease: lease}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditUpdate, "Lease", lease.ID, "status "+lease.Status)
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}
