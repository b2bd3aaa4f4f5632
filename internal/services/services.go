package services

import (
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/events"
	"github.com/Intruder289/maishaap-backend-sub002/internal/gateway"
	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/storage"
	"github.com/go-redis/redis/v8"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	User         *UserService
	Customer     *CustomerService
	Property     *PropertyService
	Lease        *LeaseService
	Booking      *BookingService
	Payment      *PaymentService
	Gateway      *GatewayService
	Invoice      *InvoiceService
	Reminder     *ReminderService
	Notification *NotificationService
	Audit        *AuditService
	Email        *EmailService
	Job          *JobService
	Bus          *events.Bus
}

// NewServices wires every service. redisClient may be nil, in which case
// job locks and gateway tokens stay in process memory.
func NewServices(repos *repository.Repositories, worker *jobs.Worker, store *storage.LocalStorage, cfg *config.Config, redisClient *redis.Client) *Services {
	bus := events.NewBus()
	projector := NewProjector(repos, time.Now)
	projector.Register(bus)

	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	emailSvc := NewEmailService(cfg)
	auditSvc := NewAuditService(repos.Audit)
	customerSvc := NewCustomerService(repos.Customer, auditSvc)

	var (
		tokens gateway.TokenCache = gateway.NewMemoryTokenCache()
		locker jobs.Locker        = jobs.NewLocalLocker()
	)
	if redisClient != nil {
		tokens = gateway.NewRedisTokenCache(redisClient)
		locker = jobs.NewRedisLocker(redisClient)
	}

	propertySvc := NewPropertyService(repos, projector, auditSvc)
	bookingSvc := NewBookingService(repos, customerSvc, notificationSvc, emailSvc, auditSvc, bus, worker)
	paymentSvc := NewPaymentService(repos, notificationSvc, auditSvc, store, bus, worker)
	invoiceSvc := NewInvoiceService(repos, emailSvc, auditSvc, worker)
	reminderSvc := NewReminderService(repos, []Channel{
		NewEmailChannel(emailSvc),
		NewSMSChannel(cfg.SMS),
		NewPushChannel(repos.User, notificationSvc),
	}, auditSvc).WithStaffAlerts(notificationSvc)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:         NewUserService(repos.User, worker, emailSvc, auditSvc),
		Customer:     customerSvc,
		Property:     propertySvc,
		Lease:        NewLeaseService(repos, bus, auditSvc),
		Booking:      bookingSvc,
		Payment:      paymentSvc,
		Gateway:      NewGatewayService(repos, gateway.NewProvider(cfg.Payment, tokens), paymentSvc, cfg.Payment),
		Invoice:      invoiceSvc,
		Reminder:     reminderSvc,
		Notification: notificationSvc,
		Audit:        auditSvc,
		Email:        emailSvc,
		Job:          NewJobService(jobs.NewRunner(locker), worker, bookingSvc, invoiceSvc, reminderSvc, propertySvc, auditSvc).WithStaffAlerts(notificationSvc),
		Bus:          bus,
	}
}
