package models

import "time"

const (
	NotificationTypeBookingCreated   = "booking_created"
	NotificationTypeBookingConfirmed = "booking_confirmed"
	NotificationTypeBookingCancelled = "booking_cancelled"
	NotificationTypeBookingExpired   = "booking_expired"
	NotificationTypePaymentReceived  = "payment_received"
	NotificationTypePaymentFailed    = "payment_failed"
	NotificationTypeRentReminder     = "rent_reminder"
	NotificationTypeRentEscalation   = "rent_escalation"
	NotificationTypeSystemError      = "system_error"
)

// Notification is an in-app message shown to a user. Reminders sent on the
// push channel land here too.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Type      string     `gorm:"column:notification_type;size:40;index" json:"notification_type"`
	ReadAt    *time.Time `gorm:"index:idx_notifications_user_read,priority:2" json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) IsRead() bool { return n.ReadAt != nil }

// MarkAsRead stamps the first read; later calls keep the original time.
func (n *Notification) MarkAsRead(at time.Time) {
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
}

type NotificationResponse struct {
	ID        uint       `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"notification_type"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.IsRead(),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// RefreshToken is an opaque session token exchanged for a new access token.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Token     string     `gorm:"size:128;uniqueIndex" json:"-"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

// IsExpired reports whether the token is past its expiry at now. Tokens
// without an expiry never lapse.
func (r *RefreshToken) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
