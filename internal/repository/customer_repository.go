package repository

import (
	"context"
	"strings"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := dbFrom(ctx, r.db).First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := dbFrom(ctx, r.db).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	if err := dbFrom(ctx, r.db).Create(customer).Error; err != nil {
		if isDuplicateKeyError(err, "") {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *customerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return dbFrom(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Customer, int64, error) {
	var customers []models.Customer
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.Customer{}).Scopes(scope)

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("customers.first_name ILIKE ? OR customers.last_name ILIKE ? OR customers.email ILIKE ? OR customers.phone ILIKE ?",
			search, search, search, search)
	}
	if id := query.Filter("id"); id != "" {
		db = db.Where("customers.id = ?", id)
	}
	if active := query.Filter("is_active"); active != "" {
		db = db.Where("customers.is_active = ?", active == "true")
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"first_name": "customers.first_name",
		"last_name":  "customers.last_name",
		"email":      "customers.email",
		"created_at": "customers.created_at",
	}, "customers.created_at DESC")

	err := applyPage(db, query).Find(&customers).Error
	return customers, total, err
}
