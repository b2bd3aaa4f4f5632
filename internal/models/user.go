package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents an account that can act on the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Role         string    `gorm:"size:20;default:tenant;index" json:"role"`
	Status       string    `gorm:"size:20;default:active" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook for setting defaults
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleTenant
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// IsStaff returns true for staff and admin accounts
func (u *User) IsStaff() bool {
	return IsStaffRole(u.Role)
}

// IsOwner returns true if user owns properties
func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}

// IsActive returns true if user status is active
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// DisplayName is the first name, falling back to the email.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// FullName joins first and last names
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Role constants
const (
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
	RoleTenant = "tenant"
)

// IsStaffRole treats admin as staff.
func IsStaffRole(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}

// ValidRole reports whether role is one the system knows.
func ValidRole(role string) bool {
	switch role {
	case RoleStaff, RoleAdmin, RoleOwner, RoleTenant:
		return true
	}
	return false
}

// Status constants
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Viewer is the acting identity used to scope reads.
type Viewer struct {
	UserID uint
	Email  string
	Role   string
}

// IsStaff reports whether the viewer sees everything.
func (v Viewer) IsStaff() bool {
	return IsStaffRole(v.Role)
}

// UserResponse is the JSON response format for users
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
