package handlers

import (
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Customer     *CustomerHandler
	Property     *PropertyHandler
	Booking      *BookingHandler
	Payment      *PaymentHandler
	Rent         *RentHandler
	Reminder     *ReminderHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
	Job          *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, ping Pinger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(ping),
		Auth:         NewAuthHandler(svcs.Auth),
		User:         NewUserHandler(svcs.User),
		Customer:     NewCustomerHandler(svcs.Customer),
		Property:     NewPropertyHandler(svcs.Property, svcs.Payment, svcs.Gateway),
		Booking:      NewBookingHandler(svcs.Booking),
		Payment:      NewPaymentHandler(svcs.Payment, svcs.Gateway),
		Rent:         NewRentHandler(svcs.Invoice, svcs.Lease, svcs.Payment),
		Reminder:     NewReminderHandler(svcs.Reminder),
		Notification: NewNotificationHandler(svcs.Notification),
		Audit:        NewAuditHandler(svcs.Audit),
		Job:          NewJobHandler(svcs.Job),
	}
}
