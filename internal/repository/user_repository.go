package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// ErrEmailTaken is returned when a user or customer email already exists
var ErrEmailTaken = errors.New("email already registered")

// UserRepository defines the interface for user data access
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, query *ListQuery) ([]models.User, int64, error)
	FindStaff(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := dbFrom(ctx, r.db).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := dbFrom(ctx, r.db).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := dbFrom(ctx, r.db).Create(user).Error; err != nil {
		if isDuplicateKeyError(err, "idx_users_email") || isDuplicateKeyError(err, "users_email_key") {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return dbFrom(ctx, r.db).Save(user).Error
}

func (r *userRepository) List(ctx context.Context, query *ListQuery) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.User{})

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?",
			search, search, search, search)
	}

	if role := query.Filter("role"); role != "" {
		db = db.Where("role = ?", role)
	}

	if status := query.Filter("status"); status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"email":      "email",
		"first_name": "first_name",
		"role":       "role",
		"created_at": "created_at",
	}, "created_at DESC")

	err := applyPage(db, query).Find(&users).Error
	return users, total, err
}

// FindStaff returns active staff and admin accounts
func (r *userRepository) FindStaff(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := dbFrom(ctx, r.db).
		Where("role IN ? AND status = ?", []string{models.RoleStaff, models.RoleAdmin}, models.StatusActive).
		Find(&users).Error
	return users, err
}
