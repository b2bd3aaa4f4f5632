package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Tx           TxManager
	User         UserRepository
	Property     PropertyRepository
	Room         RoomRepository
	Customer     CustomerRepository
	Booking      BookingRepository
	Lease        LeaseRepository
	Invoice      InvoiceRepository
	Payment      PaymentRepository
	Transaction  TransactionRepository
	Visit        VisitRepository
	Reminder     ReminderRepository
	Notification NotificationRepository
	RefreshToken RefreshTokenRepository
	Audit        AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tx:           NewTxManager(db),
		User:         NewUserRepository(db),
		Property:     NewPropertyRepository(db),
		Room:         NewRoomRepository(db),
		Customer:     NewCustomerRepository(db),
		Booking:      NewBookingRepository(db),
		Lease:        NewLeaseRepository(db),
		Invoice:      NewInvoiceRepository(db),
		Payment:      NewPaymentRepository(db),
		Transaction:  NewTransactionRepository(db),
		Visit:        NewVisitRepository(db),
		Reminder:     NewReminderRepository(db),
		Notification: NewNotificationRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
		Audit:        NewAuditRepository(db),
	}
}
