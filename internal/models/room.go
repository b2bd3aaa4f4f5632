package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room is a bookable unit inside a hotel or lodge
type Room struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PropertyID       uint            `gorm:"not null;uniqueIndex:idx_rooms_property_number" json:"property_id"`
	RoomNumber       string          `gorm:"size:20;not null;uniqueIndex:idx_rooms_property_number" json:"room_number"`
	RoomType         string          `gorm:"size:50" json:"room_type"`
	FloorNumber      *int            `json:"floor_number"`
	Capacity         int             `gorm:"default:1" json:"capacity"`
	BaseRate         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"base_rate"`
	Status           string          `gorm:"size:20;default:available;index" json:"status"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	CurrentBookingID *uint           `json:"current_booking_id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Property Property `gorm:"foreignKey:PropertyID" json:"-"`
}

// TableName specifies the table name for Room
func (Room) TableName() string {
	return "rooms"
}

// Room status constants
const (
	RoomStatusAvailable   = "available"
	RoomStatusOccupied    = "occupied"
	RoomStatusMaintenance = "maintenance"
	RoomStatusOutOfOrder  = "out_of_order"
)

// IsManualStatus reports whether s was set by an operator and must survive
// booking-driven recomputation.
func IsManualStatus(s string) bool {
	return s == RoomStatusMaintenance || s == RoomStatusOutOfOrder
}

// ValidRoomStatus reports whether s is a known room status.
func ValidRoomStatus(s string) bool {
	switch s {
	case RoomStatusAvailable, RoomStatusOccupied, RoomStatusMaintenance, RoomStatusOutOfOrder:
		return true
	}
	return false
}

// ProjectStatus derives the room status from booking activity. activeBookingID
// is nil when no active booking references the room.
func (r *Room) ProjectStatus(activeBookingID *uint) (changed bool) {
	if IsManualStatus(r.Status) {
		return false
	}
	next := RoomStatusAvailable
	if activeBookingID != nil {
		next = RoomStatusOccupied
	}
	changed = next != r.Status || !sameID(r.CurrentBookingID, activeBookingID)
	r.Status = next
	r.CurrentBookingID = activeBookingID
	return changed
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
