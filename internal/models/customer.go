package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer is the booking-side record of a guest or tenant
type Customer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	FirstName        string    `gorm:"size:100;not null" json:"first_name"`
	LastName         string    `gorm:"size:100" json:"last_name"`
	Email            string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone            string    `gorm:"size:20" json:"phone"`
	Address          string    `gorm:"size:255" json:"address,omitempty"`
	IDNumber         string    `gorm:"size:50" json:"id_number,omitempty"`
	EmergencyContact string    `gorm:"size:150" json:"emergency_contact,omitempty"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return nil
}

// FullName joins first and last names
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// DisplayName is used in reminder greetings.
func (c *Customer) DisplayName() string {
	if c.FirstName != "" {
		return c.FirstName
	}
	return c.Email
}
