package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`               // nil for scheduled jobs
	Action    string    `gorm:"size:50;not null" json:"action"`     // CREATE, CONFIRM, CANCEL, PAYMENT, ...
	Entity    string    `gorm:"size:50;not null" json:"entity"`     // Booking, Payment, RentInvoice, Reminder
	EntityID  uint      `gorm:"index" json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`

	// Associations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditCreate   = "CREATE"
	AuditUpdate   = "UPDATE"
	AuditDelete   = "DELETE"
	AuditConfirm  = "CONFIRM"
	AuditCheckIn  = "CHECK_IN"
	AuditCheckOut = "CHECK_OUT"
	AuditCancel   = "CANCEL"
	AuditNoShow   = "NO_SHOW"
	AuditExpire   = "EXPIRE"
	AuditPayment  = "PAYMENT"
	AuditRefund   = "REFUND"
	AuditGenerate = "GENERATE"
	AuditLateFee  = "LATE_FEE"
	AuditSend     = "SEND"
	AuditApprove  = "APPROVE"
	AuditLogin    = "LOGIN"
	AuditRunJob   = "RUN_JOB"
)
