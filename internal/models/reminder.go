package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReminderSettings configures rent reminders for one property
type ReminderSettings struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	PropertyID              uint      `gorm:"not null;uniqueIndex" json:"property_id"`
	DaysBeforeDue           int       `gorm:"not null;default:7" json:"days_before_due"`
	OverdueReminderInterval int       `gorm:"not null;default:3" json:"overdue_reminder_interval"`
	MaxOverdueReminders     int       `gorm:"not null;default:5" json:"max_overdue_reminders"`
	EmailEnabled            bool      `gorm:"default:true" json:"email_enabled"`
	SMSEnabled              bool      `gorm:"column:sms_enabled;default:false" json:"sms_enabled"`
	PushEnabled             bool      `gorm:"default:false" json:"push_enabled"`
	GracePeriodDays         int       `gorm:"not null;default:5" json:"grace_period_days"`
	AutoEscalateEnabled     bool      `gorm:"default:true" json:"auto_escalate_enabled"`
	EscalationEmail         string    `gorm:"size:254" json:"escalation_email"`
	CustomEmailTemplateID   *uint     `json:"custom_email_template_id"`
	CustomSMSTemplateID     *uint     `gorm:"column:custom_sms_template_id" json:"custom_sms_template_id"`
	IsActive                bool      `gorm:"default:true" json:"is_active"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// TableName specifies the table name for ReminderSettings
func (ReminderSettings) TableName() string {
	return "reminder_settings"
}

// DefaultReminderSettings returns the settings a property starts with.
func DefaultReminderSettings(propertyID uint) *ReminderSettings {
	return &ReminderSettings{
		PropertyID:              propertyID,
		DaysBeforeDue:           7,
		OverdueReminderInterval: 3,
		MaxOverdueReminders:     5,
		EmailEnabled:            true,
		GracePeriodDays:         5,
		AutoEscalateEnabled:     true,
		IsActive:                true,
	}
}

// ChannelEnabled reports whether a delivery channel is switched on.
func (s *ReminderSettings) ChannelEnabled(channel string) bool {
	switch channel {
	case ReminderTypeEmail:
		return s.EmailEnabled
	case ReminderTypeSMS:
		return s.SMSEnabled
	case ReminderTypePush:
		return s.PushEnabled
	}
	return false
}

// Reminder channel constants
const (
	ReminderTypeEmail = "email"
	ReminderTypeSMS   = "sms"
	ReminderTypePush  = "push"
)

// ReminderChannels lists every channel in delivery order.
var ReminderChannels = []string{ReminderTypeEmail, ReminderTypeSMS, ReminderTypePush}

// ValidReminderType reports whether t is a known channel.
func ValidReminderType(t string) bool {
	return t == ReminderTypeEmail || t == ReminderTypeSMS || t == ReminderTypePush
}

// Template categories
const (
	CategoryUpcoming    = "upcoming"
	CategoryOverdue1    = "overdue_1"
	CategoryOverdue2    = "overdue_2"
	CategoryOverdue3    = "overdue_3"
	CategoryFinalNotice = "final_notice"
	CategoryEscalation  = "escalation"
)

// ValidTemplateCategory reports whether c is a known category.
func ValidTemplateCategory(c string) bool {
	switch c {
	case CategoryUpcoming, CategoryOverdue1, CategoryOverdue2, CategoryOverdue3, CategoryFinalNotice, CategoryEscalation:
		return true
	}
	return false
}

// CategoryForDaysUntilDue maps days until due to a template category.
func CategoryForDaysUntilDue(days int) string {
	switch {
	case days > 0:
		return CategoryUpcoming
	case days >= -7:
		return CategoryOverdue1
	case days >= -14:
		return CategoryOverdue2
	default:
		return CategoryFinalNotice
	}
}

// ReminderTemplate is a reusable message body with {{name}} placeholders
type ReminderTemplate struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	TemplateType string    `gorm:"size:10;not null;uniqueIndex:idx_default_template,where:is_default = true" json:"template_type"`
	Category     string    `gorm:"size:20;not null;uniqueIndex:idx_default_template,where:is_default = true" json:"category"`
	Subject      string    `gorm:"size:200" json:"subject"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	IsDefault    bool      `gorm:"default:false" json:"is_default"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedByID  *uint     `json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for ReminderTemplate
func (ReminderTemplate) TableName() string {
	return "reminder_templates"
}

// Reminder is one scheduled or delivered message about a booking's rent
type Reminder struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	BookingID         uint       `gorm:"not null;index;uniqueIndex:idx_reminder_booking_sequence" json:"booking_id"`
	CustomerID        uint       `gorm:"not null;index" json:"customer_id"`
	PropertyID        uint       `gorm:"not null;index" json:"property_id"`
	TemplateID        *uint      `json:"template_id"`
	ReminderType      string     `gorm:"size:10;not null" json:"reminder_type"`
	Category          string     `gorm:"size:20" json:"category"`
	Recipient         string     `gorm:"size:254" json:"recipient"`
	ScheduledDate     time.Time  `gorm:"index" json:"scheduled_date"`
	DueDate           time.Time  `gorm:"type:date" json:"due_date"`
	DaysBeforeDue     int        `json:"days_before_due"`
	Subject           string     `gorm:"size:200" json:"subject"`
	MessageContent    string     `gorm:"type:text" json:"message_content"`
	ReminderSequence  int        `gorm:"not null;uniqueIndex:idx_reminder_booking_sequence" json:"reminder_sequence"`
	IsOverdue         bool       `gorm:"index" json:"is_overdue"`
	IsEscalation      bool       `gorm:"default:false" json:"is_escalation"`
	ReminderStatus    string     `gorm:"size:20;default:scheduled;index" json:"reminder_status"`
	SentAt            *time.Time `json:"sent_at"`
	DeliveryStatus    string     `gorm:"size:20" json:"delivery_status,omitempty"`
	DeliveryReference string     `gorm:"size:100" json:"delivery_reference,omitempty"`
	ErrorMessage      string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Booking  Booking  `gorm:"foreignKey:BookingID" json:"-"`
	Customer Customer `gorm:"foreignKey:CustomerID" json:"-"`
	Property Property `gorm:"foreignKey:PropertyID" json:"-"`
}

// TableName specifies the table name for Reminder
func (Reminder) TableName() string {
	return "reminders"
}

// Reminder status constants
const (
	ReminderStatusScheduled = "scheduled"
	ReminderStatusSent      = "sent"
	ReminderStatusFailed    = "failed"
	ReminderStatusCancelled = "cancelled"
)

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ReminderStatus == "" {
		r.ReminderStatus = ReminderStatusScheduled
	}
	return nil
}

// MaySend returns true if the reminder can still be delivered
func (r *Reminder) MaySend() bool {
	return r.ReminderStatus == ReminderStatusScheduled || r.ReminderStatus == ReminderStatusFailed
}

// MayCancel returns true if the reminder can be cancelled
func (r *Reminder) MayCancel() bool {
	return r.ReminderStatus == ReminderStatusScheduled || r.ReminderStatus == ReminderStatusFailed
}

// DefaultReminderSubject is used when a template has no subject.
func DefaultReminderSubject(propertyTitle string, overdue bool) string {
	if overdue {
		return "Overdue Rent Reminder - " + propertyTitle
	}
	return "Rent Payment Reminder - " + propertyTitle
}

// ReminderLog is an append-only audit entry for a reminder
type ReminderLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ReminderID  uint           `gorm:"not null;index" json:"reminder_id"`
	Action      string         `gorm:"size:30;not null" json:"action"`
	Description string         `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for ReminderLog
func (ReminderLog) TableName() string {
	return "reminder_logs"
}

// Reminder log actions
const (
	ReminderActionCreated         = "created"
	ReminderActionScheduled       = "scheduled"
	ReminderActionSent            = "sent"
	ReminderActionFailed          = "failed"
	ReminderActionCancelled       = "cancelled"
	ReminderActionEscalated       = "escalated"
	ReminderActionPaymentReceived = "payment_received"
	ReminderActionTenantResponse  = "tenant_response"
)

// ReminderSchedule controls when a property's reminder run is due
type ReminderSchedule struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PropertyID   uint       `gorm:"not null;uniqueIndex" json:"property_id"`
	Frequency    string     `gorm:"size:10;not null;default:daily" json:"frequency"`
	SendTime     string     `gorm:"size:5;not null;default:'09:00'" json:"send_time"`
	Timezone     string     `gorm:"size:50;not null;default:'Africa/Dar_es_Salaam'" json:"timezone"`
	IntervalDays int        `gorm:"default:1" json:"interval_days"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastRun      *time.Time `json:"last_run"`
	NextRun      *time.Time `gorm:"index" json:"next_run"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for ReminderSchedule
func (ReminderSchedule) TableName() string {
	return "reminder_schedules"
}

// Schedule frequencies
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyCustom  = "custom"
)

// DefaultReminderSchedule is a daily 09:00 East Africa run.
func DefaultReminderSchedule(propertyID uint) *ReminderSchedule {
	return &ReminderSchedule{
		PropertyID:   propertyID,
		Frequency:    FrequencyDaily,
		SendTime:     "09:00",
		Timezone:     "Africa/Dar_es_Salaam",
		IntervalDays: 1,
		IsActive:     true,
	}
}

// IsDue reports whether the schedule should run at now.
func (s *ReminderSchedule) IsDue(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.NextRun == nil || !now.Before(*s.NextRun)
}

// Location is the schedule's timezone, UTC when it does not load.
func (s *ReminderSchedule) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CalculateNextRun returns the next send time after from, in the
// schedule's timezone.
func (s *ReminderSchedule) CalculateNextRun(from time.Time) time.Time {
	loc := s.Location()
	hour, minute := 9, 0
	if t, err := time.Parse("15:04", s.SendTime); err == nil {
		hour, minute = t.Hour(), t.Minute()
	}
	local := from.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)

	step := func(t time.Time) time.Time {
		switch s.Frequency {
		case FrequencyWeekly:
			return t.AddDate(0, 0, 7)
		case FrequencyMonthly:
			return AddMonths(t, 1)
		case FrequencyCustom:
			days := s.IntervalDays
			if days < 1 {
				days = 1
			}
			return t.AddDate(0, 0, days)
		default:
			return t.AddDate(0, 0, 1)
		}
	}
	if !next.After(local) {
		next = step(next)
	}
	return next
}

// MarkRun stamps last/next run.
func (s *ReminderSchedule) MarkRun(at time.Time) {
	s.LastRun = &at
	next := s.CalculateNextRun(at)
	s.NextRun = &next
}
