package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Property is a rentable listing: a house, hotel, lodge or venue
type Property struct {
	ID                     uint               `gorm:"primaryKey" json:"id"`
	OwnerID                uint               `gorm:"not null;index" json:"owner_id"`
	Title                  string             `gorm:"size:200;not null" json:"title"`
	Description            string             `gorm:"type:text" json:"description"`
	PropertyType           string             `gorm:"size:20;not null;index" json:"property_type"`
	Status                 string             `gorm:"size:30;default:available;index" json:"status"`
	IsActive               bool               `gorm:"default:false" json:"is_active"`
	IsApproved             bool               `gorm:"default:false" json:"is_approved"`
	ApprovedByID           *uint              `json:"approved_by_id"`
	ApprovedAt             *time.Time         `json:"approved_at"`
	RentAmount             decimal.Decimal    `gorm:"type:numeric(12,2);not null;default:0" json:"rent_amount"`
	RentPeriod             string             `gorm:"size:10;not null;default:month" json:"rent_period"`
	VisitCost              *decimal.Decimal   `gorm:"type:numeric(12,2)" json:"visit_cost,omitempty"`
	DepositAmount          *decimal.Decimal   `gorm:"type:numeric(12,2)" json:"deposit_amount,omitempty"`
	BookingExpirationHours int                `gorm:"not null;default:12" json:"booking_expiration_hours"`
	TotalRooms             int                `gorm:"default:0" json:"total_rooms"`
	RoomTypes              datatypes.JSONMap  `json:"room_types,omitempty"`
	Capacity               int                `gorm:"default:0" json:"capacity"`
	Region                 string             `gorm:"size:100" json:"region"`
	Address                string             `gorm:"size:255" json:"-"`
	Latitude               *float64           `json:"-"`
	Longitude              *float64           `json:"-"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`

	// Associations
	Owner User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Rooms []Room `gorm:"foreignKey:PropertyID" json:"rooms,omitempty"`
}

// TableName specifies the table name for Property
func (Property) TableName() string {
	return "properties"
}

// Property type constants
const (
	PropertyTypeHouse = "house"
	PropertyTypeHotel = "hotel"
	PropertyTypeLodge = "lodge"
	PropertyTypeVenue = "venue"
)

// Property status constants
const (
	PropertyStatusAvailable        = "available"
	PropertyStatusRented           = "rented"
	PropertyStatusUnderMaintenance = "under_maintenance"
	PropertyStatusUnavailable      = "unavailable"
)

// Rent period constants
const (
	RentPeriodDay   = "day"
	RentPeriodWeek  = "week"
	RentPeriodMonth = "month"
	RentPeriodYear  = "year"
)

// ValidPropertyType reports whether t is a known property type.
func ValidPropertyType(t string) bool {
	switch t {
	case PropertyTypeHouse, PropertyTypeHotel, PropertyTypeLodge, PropertyTypeVenue:
		return true
	}
	return false
}

// ValidRentPeriod reports whether p is a known rent period.
func ValidRentPeriod(p string) bool {
	switch p {
	case RentPeriodDay, RentPeriodWeek, RentPeriodMonth, RentPeriodYear:
		return true
	}
	return false
}

// BeforeCreate hook for setting defaults
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = PropertyStatusAvailable
	}
	if p.RentPeriod == "" {
		p.RentPeriod = RentPeriodMonth
	}
	return nil
}

// HasRooms is true for property types that keep a room inventory.
func (p *Property) HasRooms() bool {
	return p.PropertyType == PropertyTypeHotel || p.PropertyType == PropertyTypeLodge
}

// IsHouse reports whether the property is a house.
func (p *Property) IsHouse() bool {
	return p.PropertyType == PropertyTypeHouse
}

// IsBookable returns true when the property accepts new bookings
func (p *Property) IsBookable() bool {
	return p.IsActive && p.IsApproved && p.Status != PropertyStatusUnavailable
}

// ApproveBy marks the property approved and active.
func (p *Property) ApproveBy(userID uint, at time.Time) {
	p.IsApproved = true
	p.IsActive = true
	p.ApprovedByID = &userID
	p.ApprovedAt = &at
}

// StatusFromActivity projects the property status from whether it currently
// has occupying bookings or leases. It only toggles between available and
// rented; manual statuses are preserved.
func StatusFromActivity(current string, hasActivity bool) string {
	switch current {
	case PropertyStatusAvailable, PropertyStatusRented:
		if hasActivity {
			return PropertyStatusRented
		}
		return PropertyStatusAvailable
	}
	return current
}

// PropertyResponse is the JSON response format for properties
type PropertyResponse struct {
	ID                     uint             `json:"id"`
	OwnerID                uint             `json:"owner_id"`
	Title                  string           `json:"title"`
	Description            string           `json:"description"`
	PropertyType           string           `json:"property_type"`
	Status                 string           `json:"status"`
	IsActive               bool             `json:"is_active"`
	IsApproved             bool             `json:"is_approved"`
	RentAmount             decimal.Decimal  `json:"rent_amount"`
	RentPeriod             string           `json:"rent_period"`
	VisitCost              *decimal.Decimal `json:"visit_cost,omitempty"`
	DepositAmount          *decimal.Decimal `json:"deposit_amount,omitempty"`
	BookingExpirationHours int              `json:"booking_expiration_hours"`
	TotalRooms             int              `json:"total_rooms,omitempty"`
	RoomTypes              map[string]any   `json:"room_types,omitempty"`
	Capacity               int              `json:"capacity,omitempty"`
	Region                 string           `json:"region"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// ToResponse converts Property to PropertyResponse
func (p *Property) ToResponse() PropertyResponse {
	return PropertyResponse{
		ID:                     p.ID,
		OwnerID:                p.OwnerID,
		Title:                  p.Title,
		Description:            p.Description,
		PropertyType:           p.PropertyType,
		Status:                 p.Status,
		IsActive:               p.IsActive,
		IsApproved:             p.IsApproved,
		RentAmount:             p.RentAmount,
		RentPeriod:             p.RentPeriod,
		VisitCost:              p.VisitCost,
		DepositAmount:          p.DepositAmount,
		BookingExpirationHours: p.BookingExpirationHours,
		TotalRooms:             p.TotalRooms,
		RoomTypes:              p.RoomTypes,
		Capacity:               p.Capacity,
		Region:                 p.Region,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}
