package services

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
)

// CustomerService manages the booking-side customer registry
type CustomerService struct {
	repo     repository.CustomerRepository
	auditSvc *AuditService
}

func NewCustomerService(repo repository.CustomerRepository, auditSvc *AuditService) *CustomerService {
	return &CustomerService{repo: repo, auditSvc: auditSvc}
}

// CustomerInput creates or edits a customer.
type CustomerInput struct {
	FirstName        string `json:"first_name" binding:"required"`
	LastName         string `json:"last_name"`
	Email            string `json:"email" binding:"required"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	IDNumber         string `json:"id_number"`
	EmergencyContact string `json:"emergency_contact"`
}

func (s *CustomerService) List(ctx context.Context, viewer models.Viewer, query *repository.ListQuery) ([]models.Customer, int64, error) {
	return s.repo.List(ctx, repository.CustomerVisibility(viewer), query)
}

// FindByID returns the customer if the viewer may see it.
func (s *CustomerService) FindByID(ctx context.Context, id uint, viewer models.Viewer) (*models.Customer, error) {
	if viewer.IsStaff() {
		customer, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		return customer, nil
	}

	query := repository.NewListQuery()
	query.PerPage = 1
	query.Filters["id"] = strconv.FormatUint(uint64(id), 10)
	customers, _, err := s.repo.List(ctx, repository.CustomerVisibility(viewer), query)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, ErrNotFound
	}
	return &customers[0], nil
}

func (s *CustomerService) Create(ctx context.Context, input CustomerInput, actor models.Viewer) (*models.Customer, error) {
	if !actor.IsStaff() && !strings.EqualFold(strings.TrimSpace(input.Email), actor.Email) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, invalid("first_name", "is required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, invalid("email", "is not a valid address")
	}

	customer := &models.Customer{
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		Email:            input.Email,
		Phone:            strings.TrimSpace(input.Phone),
		Address:          input.Address,
		IDNumber:         input.IDNumber,
		EmergencyContact: input.EmergencyContact,
		IsActive:         true,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, invalid("email", "a customer with this email already exists")
		}
		return nil, err
	}
	if err := s.auditSvc.Record(ctx, actor, models.AuditCreate, "Customer", customer.ID, customer.Email); err != nil {
		return nil, err
	}
	return customer, nil
}

// ForUser returns the customer record keyed by the user's email, creating
// it from the profile on first use.
func (s *CustomerService) ForUser(ctx context.Context, user *models.User) (*models.Customer, error) {
	customer, err := s.repo.FindByEmail(ctx, user.Email)
	if err == nil {
		return customer, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	firstName := user.FirstName
	if firstName == "" {
		firstName = strings.SplitN(user.Email, "@", 2)[0]
	}
	customer = &models.Customer{
		FirstName: firstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}
