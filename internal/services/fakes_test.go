package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/shopspring/decimal"
)

// In-memory repositories shared by the service tests. Each store hands out
// copies so services see the same isolation a database gives them.

type memTxKey struct{}

// memTx serializes transactions the way row locks would; nested calls join
// the outer one.
type memTx struct {
	mu sync.Mutex
}

func (m *memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}

type memProperties struct {
	repository.PropertyRepository
	mu    sync.Mutex
	items map[uint]models.Property
	busy  map[uint]bool
}

func (m *memProperties) get(id uint) (models.Property, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	return p, ok
}

func (m *memProperties) FindByID(ctx context.Context, id uint) (*models.Property, error) {
	p, ok := m.get(id)
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &p, nil
}

func (m *memProperties) FindByIDForUpdate(ctx context.Context, id uint) (*models.Property, error) {
	return m.FindByID(ctx, id)
}

func (m *memProperties) UpdateStatus(ctx context.Context, id uint, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.items[id]
	p.Status = status
	m.items[id] = p
	return nil
}

func (m *memProperties) HasActivity(ctx context.Context, id uint, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy[id], nil
}

func (m *memProperties) ListHouses(ctx context.Context, propertyID *uint) ([]models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Property
	for _, p := range m.items {
		if !p.IsHouse() || (propertyID != nil && p.ID != *propertyID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memProperties) ListWithRooms(ctx context.Context, propertyID *uint) ([]models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Property
	for _, p := range m.items {
		if !p.HasRooms() || (propertyID != nil && p.ID != *propertyID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memCustomers struct {
	repository.CustomerRepository
	items map[uint]models.Customer
}

func (m *memCustomers) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &c, nil
}

type memRooms struct {
	repository.RoomRepository
	mu    sync.Mutex
	items []models.Room
}

func (m *memRooms) find(propertyID uint, number string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.PropertyID == propertyID && r.RoomNumber == number {
			room := r
			return &room, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memRooms) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			room := r
			return &room, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memRooms) FindByProperty(ctx context.Context, propertyID uint) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Room
	for _, r := range m.items {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRooms) FindByNumber(ctx context.Context, propertyID uint, number string) (*models.Room, error) {
	return m.find(propertyID, number)
}

func (m *memRooms) FindByNumberForUpdate(ctx context.Context, propertyID uint, number string) (*models.Room, error) {
	return m.find(propertyID, number)
}

func (m *memRooms) Update(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == room.ID {
			m.items[i] = *room
		}
	}
	return nil
}

type memBookings struct {
	repository.BookingRepository
	mu         sync.Mutex
	nextID     uint
	items      map[uint]models.Booking
	properties *memProperties
	customers  *memCustomers
	now        func() time.Time
}

func (m *memBookings) hydrate(b models.Booking) *models.Booking {
	if p, ok := m.properties.get(b.PropertyID); ok {
		b.Property = p
	}
	if c, ok := m.customers.items[b.CustomerID]; ok {
		b.Customer = c
	}
	return &b
}

func (m *memBookings) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	m.mu.Lock()
	b, ok := m.items[id]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return m.hydrate(b), nil
}

func (m *memBookings) FindByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	return m.FindByID(ctx, id)
}

func (m *memBookings) FindByReference(ctx context.Context, reference string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.items {
		if b.BookingReference == reference {
			return m.hydrate(b), nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memBookings) Create(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	booking.ID = m.nextID
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = m.now()
	}
	stored := *booking
	stored.Property, stored.Customer = models.Property{}, models.Customer{}
	m.items[booking.ID] = stored
	return nil
}

func (m *memBookings) Update(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *booking
	stored.Property, stored.Customer = models.Property{}, models.Customer{}
	m.items[booking.ID] = stored
	return nil
}

func (m *memBookings) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memBookings) HasOverlap(ctx context.Context, propertyID uint, roomNumber *string, checkIn, checkOut time.Time, excludeID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.items {
		if b.ID == excludeID || b.PropertyID != propertyID || b.BookingStatus == models.BookingStatusCancelled {
			continue
		}
		if roomNumber != nil && (b.RoomNumber == nil || *b.RoomNumber != *roomNumber) {
			continue
		}
		if b.Overlaps(checkIn, checkOut) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBookings) FindExpirationCandidates(ctx context.Context) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.items {
		if b.BookingStatus == models.BookingStatusPending {
			out = append(out, *m.hydrate(b))
		}
	}
	return out, nil
}

func (m *memBookings) FindActiveForRoom(ctx context.Context, propertyID uint, roomNumber string, day time.Time) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := models.Day(day)
	for _, b := range m.items {
		if b.PropertyID != propertyID || b.RoomNumber == nil || *b.RoomNumber != roomNumber {
			continue
		}
		if b.BookingStatus != models.BookingStatusConfirmed && b.BookingStatus != models.BookingStatusCheckedIn {
			continue
		}
		if !d.Before(b.CheckInDate) && d.Before(b.CheckOutDate) {
			return m.hydrate(b), nil
		}
	}
	return nil, nil
}

func (m *memBookings) FindForReminders(ctx context.Context, propertyID uint) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.items {
		if b.PropertyID == propertyID && b.BookingStatus != models.BookingStatusCancelled && b.PaymentStatus != models.BookingPaymentPaid {
			out = append(out, *m.hydrate(b))
		}
	}
	return out, nil
}

type memPayments struct {
	repository.PaymentRepository
	mu     sync.Mutex
	nextID uint
	items  map[uint]models.Payment
	audits []models.PaymentAudit
}

func (m *memPayments) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &p, nil
}

func (m *memPayments) FindByIDForUpdate(ctx context.Context, id uint) (*models.Payment, error) {
	return m.FindByID(ctx, id)
}

func (m *memPayments) FindByBooking(ctx context.Context, bookingID uint) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.items {
		if p.BookingID != nil && *p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayments) Create(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	payment.ID = m.nextID
	m.items[payment.ID] = *payment
	return nil
}

func (m *memPayments) Update(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[payment.ID] = *payment
	return nil
}

func (m *memPayments) sum(match func(models.Payment) bool) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, p := range m.items {
		if match(p) {
			total = total.Add(p.Amount)
		}
	}
	return total
}

func (m *memPayments) SumForBooking(ctx context.Context, bookingID uint, status string) (decimal.Decimal, error) {
	return m.sum(func(p models.Payment) bool {
		return p.BookingID != nil && *p.BookingID == bookingID && p.Status == status && p.PaymentType != models.PaymentTypeRefund
	}), nil
}

func (m *memPayments) SumForInvoice(ctx context.Context, invoiceID uint, status string, excludeID uint) (decimal.Decimal, error) {
	return m.sum(func(p models.Payment) bool {
		return p.ID != excludeID && p.RentInvoiceID != nil && *p.RentInvoiceID == invoiceID && p.Status == status && p.PaymentType != models.PaymentTypeRefund
	}), nil
}

func (m *memPayments) CreateAudit(ctx context.Context, audit *models.PaymentAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	audit.ID = uint(len(m.audits) + 1)
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *memPayments) FindAudits(ctx context.Context, paymentID uint) ([]models.PaymentAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentAudit
	for _, a := range m.audits {
		if a.PaymentID == paymentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memPayments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memInvoices struct {
	repository.InvoiceRepository
	mu    sync.Mutex
	items map[uint]models.RentInvoice
}

func (m *memInvoices) FindByID(ctx context.Context, id uint) (*models.RentInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &inv, nil
}

func (m *memInvoices) FindByIDForUpdate(ctx context.Context, id uint) (*models.RentInvoice, error) {
	return m.FindByID(ctx, id)
}

func (m *memInvoices) Update(ctx context.Context, invoice *models.RentInvoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[invoice.ID] = *invoice
	return nil
}

func (m *memInvoices) FindByLeaseAndPeriod(ctx context.Context, leaseID uint, start, end time.Time) (*models.RentInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.items {
		if inv.LeaseID == leaseID && inv.PeriodStart.Equal(models.Day(start)) && inv.PeriodEnd.Equal(models.Day(end)) {
			return &inv, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memInvoices) FindCovering(ctx context.Context, leaseID uint, day time.Time) (*models.RentInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := models.Day(day)
	for _, inv := range m.items {
		if inv.LeaseID == leaseID && !inv.PeriodStart.After(d) && !inv.PeriodEnd.Before(d) {
			return &inv, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memInvoices) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.items {
		if inv.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInvoices) Create(ctx context.Context, invoice *models.RentInvoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice.ID = uint(len(m.items) + 1)
	for {
		if _, taken := m.items[invoice.ID]; !taken {
			break
		}
		invoice.ID++
	}
	m.items[invoice.ID] = *invoice
	return nil
}

func (m *memInvoices) FindLateFeeCandidates(ctx context.Context, day time.Time) ([]models.RentInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RentInvoice
	for _, inv := range m.items {
		open := inv.Status == models.InvoiceStatusSent || inv.Status == models.InvoiceStatusOverdue
		if open && inv.DueDate.Before(models.Day(day)) && inv.TotalAmount.GreaterThan(inv.AmountPaid) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memLeases struct {
	repository.LeaseRepository
	items map[uint]models.Lease
}

func (m *memLeases) FindByID(ctx context.Context, id uint) (*models.Lease, error) {
	l, ok := m.items[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &l, nil
}

func (m *memLeases) FindByIDForUpdate(ctx context.Context, id uint) (*models.Lease, error) {
	return m.FindByID(ctx, id)
}

func (m *memLeases) FindActiveOverlapping(ctx context.Context, start, end time.Time) ([]models.Lease, error) {
	var out []models.Lease
	for _, l := range m.items {
		if l.Status == models.LeaseStatusActive && !l.StartDate.After(end) && !l.EndDate.Before(start) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTransactions struct {
	repository.TransactionRepository
	mu     sync.Mutex
	nextID uint
	items  map[uint]models.PaymentTransaction
}

func (m *memTransactions) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	txn.ID = m.nextID
	if txn.Status == "" {
		txn.Status = models.TransactionStatusInitiated
	}
	m.items[txn.ID] = *txn
	return nil
}

func (m *memTransactions) Update(ctx context.Context, txn *models.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[txn.ID] = *txn
	return nil
}

func (m *memTransactions) first(match func(models.PaymentTransaction) bool) (*models.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.PaymentTransaction
	for _, t := range m.items {
		if match(t) && (found == nil || t.ID > found.ID) {
			txn := t
			found = &txn
		}
	}
	if found == nil {
		return nil, repository.ErrRecordNotFound
	}
	return found, nil
}

func (m *memTransactions) FindByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	return m.first(func(t models.PaymentTransaction) bool { return t.Reference == reference })
}

func (m *memTransactions) FindByGatewayID(ctx context.Context, gatewayID string) (*models.PaymentTransaction, error) {
	return m.first(func(t models.PaymentTransaction) bool { return t.GatewayTransactionID == gatewayID })
}

func (m *memTransactions) FindLatestForPayment(ctx context.Context, paymentID uint) (*models.PaymentTransaction, error) {
	return m.first(func(t models.PaymentTransaction) bool { return t.PaymentID == paymentID })
}

func (m *memTransactions) FindByIDForUpdate(ctx context.Context, id uint) (*models.PaymentTransaction, error) {
	return m.first(func(t models.PaymentTransaction) bool { return t.ID == id })
}

func (m *memTransactions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memVisits struct {
	repository.VisitRepository
	mu    sync.Mutex
	items map[uint]models.PropertyVisitPayment
}

func (m *memVisits) FindByID(ctx context.Context, id uint) (*models.PropertyVisitPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &v, nil
}

func (m *memVisits) FindByPropertyAndUser(ctx context.Context, propertyID, userID uint) (*models.PropertyVisitPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.items {
		if v.PropertyID == propertyID && v.UserID == userID {
			return &v, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memVisits) Create(ctx context.Context, visit *models.PropertyVisitPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	visit.ID = uint(len(m.items) + 1)
	m.items[visit.ID] = *visit
	return nil
}

func (m *memVisits) Update(ctx context.Context, visit *models.PropertyVisitPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[visit.ID] = *visit
	return nil
}

type memReminders struct {
	repository.ReminderRepository
	mu        sync.Mutex
	settings  map[uint]models.ReminderSettings
	schedules map[uint]models.ReminderSchedule
	templates []models.ReminderTemplate
	items     []models.Reminder
	logs      []models.ReminderLog

	properties *memProperties
	customers  *memCustomers
}

func (m *memReminders) FindSettings(ctx context.Context, propertyID uint) (*models.ReminderSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[propertyID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &s, nil
}

func (m *memReminders) SaveSettings(ctx context.Context, settings *models.ReminderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settings.PropertyID] = *settings
	return nil
}

func (m *memReminders) FindSchedule(ctx context.Context, propertyID uint) (*models.ReminderSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[propertyID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &s, nil
}

func (m *memReminders) SaveSchedule(ctx context.Context, schedule *models.ReminderSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[schedule.PropertyID] = *schedule
	return nil
}

func (m *memReminders) FindTemplate(ctx context.Context, id uint) (*models.ReminderTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.ID == id {
			tmpl := t
			return &tmpl, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memReminders) FindDefaultTemplate(ctx context.Context, templateType, category string) (*models.ReminderTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.TemplateType == templateType && t.Category == category && t.IsDefault && t.IsActive {
			tmpl := t
			return &tmpl, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *memReminders) CreateTemplate(ctx context.Context, tmpl *models.ReminderTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tmpl.ID = uint(len(m.templates) + 1)
	m.templates = append(m.templates, *tmpl)
	return nil
}

func (m *memReminders) ClearDefault(ctx context.Context, templateType, category string, exceptID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.templates {
		t := &m.templates[i]
		if t.ID != exceptID && t.TemplateType == templateType && t.Category == category {
			t.IsDefault = false
		}
	}
	return nil
}

func (m *memReminders) Create(ctx context.Context, reminder *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reminder.ID = uint(len(m.items) + 1)
	if reminder.ReminderStatus == "" {
		reminder.ReminderStatus = models.ReminderStatusScheduled
	}
	m.items = append(m.items, *reminder)
	return nil
}

func (m *memReminders) FindByID(ctx context.Context, id uint) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == 0 || int(id) > len(m.items) {
		return nil, repository.ErrRecordNotFound
	}
	r := m.items[id-1]
	if p, ok := m.properties.get(r.PropertyID); ok {
		r.Property = p
	}
	if c, ok := m.customers.items[r.CustomerID]; ok {
		r.Customer = c
	}
	return &r, nil
}

func (m *memReminders) Update(ctx context.Context, reminder *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[reminder.ID-1] = *reminder
	return nil
}

func (m *memReminders) MaxSequence(ctx context.Context, bookingID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := 0
	for _, r := range m.items {
		if r.BookingID == bookingID && r.ReminderSequence > seq {
			seq = r.ReminderSequence
		}
	}
	return seq, nil
}

func (m *memReminders) ExistsForDay(ctx context.Context, bookingID uint, reminderType string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, end := models.DayBounds(day)
	for _, r := range m.items {
		if r.BookingID == bookingID && r.ReminderType == reminderType && !r.IsEscalation &&
			r.ReminderStatus != models.ReminderStatusCancelled && !r.ScheduledDate.Before(start) && r.ScheduledDate.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memReminders) CountOverdue(ctx context.Context, bookingID uint, reminderType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.items {
		if r.BookingID == bookingID && r.ReminderType == reminderType && r.IsOverdue && !r.IsEscalation &&
			r.ReminderStatus != models.ReminderStatusCancelled {
			n++
		}
	}
	return n, nil
}

func (m *memReminders) HasEscalation(ctx context.Context, bookingID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.BookingID == bookingID && r.IsEscalation && r.ReminderStatus != models.ReminderStatusFailed {
			return true, nil
		}
	}
	return false, nil
}

func (m *memReminders) CreateLog(ctx context.Context, log *models.ReminderLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uint(len(m.logs) + 1)
	m.logs = append(m.logs, *log)
	return nil
}

type memAudit struct {
	repository.AuditRepository
	mu      sync.Mutex
	entries []models.AuditLog
}

func (m *memAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// recordingChannel captures deliveries instead of sending them.
type recordingChannel struct {
	name       string
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(ctx context.Context, d Delivery) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.deliveries = append(c.deliveries, d)
	return "ref-" + d.Recipient, nil
}

type memStore struct {
	clock        time.Time
	tx           *memTx
	properties   *memProperties
	customers    *memCustomers
	rooms        *memRooms
	bookings     *memBookings
	payments     *memPayments
	invoices     *memInvoices
	leases       *memLeases
	transactions *memTransactions
	visits       *memVisits
	reminders    *memReminders
	audit        *memAudit
}

func newMemStore(clock time.Time) *memStore {
	s := &memStore{
		clock:        clock,
		tx:           &memTx{},
		properties:   &memProperties{items: map[uint]models.Property{}, busy: map[uint]bool{}},
		customers:    &memCustomers{items: map[uint]models.Customer{}},
		rooms:        &memRooms{},
		payments:     &memPayments{items: map[uint]models.Payment{}},
		invoices:     &memInvoices{items: map[uint]models.RentInvoice{}},
		leases:       &memLeases{items: map[uint]models.Lease{}},
		transactions: &memTransactions{items: map[uint]models.PaymentTransaction{}},
		visits:       &memVisits{items: map[uint]models.PropertyVisitPayment{}},
		reminders: &memReminders{
			settings:  map[uint]models.ReminderSettings{},
			schedules: map[uint]models.ReminderSchedule{},
		},
		audit: &memAudit{},
	}
	s.reminders.properties, s.reminders.customers = s.properties, s.customers
	s.bookings = &memBookings{
		items:      map[uint]models.Booking{},
		properties: s.properties,
		customers:  s.customers,
		now:        s.now,
	}
	return s
}

func (s *memStore) now() time.Time { return s.clock }

func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Tx:          s.tx,
		User:        &mockUserRepo{},
		Property:    s.properties,
		Customer:    s.customers,
		Room:        s.rooms,
		Booking:     s.bookings,
		Payment:     s.payments,
		Invoice:     s.invoices,
		Lease:       s.leases,
		Transaction: s.transactions,
		Visit:       s.visits,
		Reminder:    s.reminders,
		Audit:       s.audit,
	}
}
