package repository

import (
	"context"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// ReminderRepository defines the interface for reminder data access,
// including per-property settings, schedules, templates and logs
type ReminderRepository interface {
	// Settings
	FindSettings(ctx context.Context, propertyID uint) (*models.ReminderSettings, error)
	SaveSettings(ctx context.Context, settings *models.ReminderSettings) error

	// Schedules
	FindSchedule(ctx context.Context, propertyID uint) (*models.ReminderSchedule, error)
	SaveSchedule(ctx context.Context, schedule *models.ReminderSchedule) error

	// Templates
	FindTemplate(ctx context.Context, id uint) (*models.ReminderTemplate, error)
	FindDefaultTemplate(ctx context.Context, templateType, category string) (*models.ReminderTemplate, error)
	ListTemplates(ctx context.Context, query *ListQuery) ([]models.ReminderTemplate, error)
	CreateTemplate(ctx context.Context, tmpl *models.ReminderTemplate) error
	UpdateTemplate(ctx context.Context, tmpl *models.ReminderTemplate) error
	DeleteTemplate(ctx context.Context, id uint) error
	ClearDefault(ctx context.Context, templateType, category string, exceptID uint) error

	// Reminders
	FindByID(ctx context.Context, id uint) (*models.Reminder, error)
	Create(ctx context.Context, reminder *models.Reminder) error
	Update(ctx context.Context, reminder *models.Reminder) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Reminder, int64, error)
	MaxSequence(ctx context.Context, bookingID uint) (int, error)
	ExistsForDay(ctx context.Context, bookingID uint, reminderType string, day time.Time) (bool, error)
	CountOverdue(ctx context.Context, bookingID uint, reminderType string) (int64, error)
	HasEscalation(ctx context.Context, bookingID uint) (bool, error)

	// Logs
	CreateLog(ctx context.Context, log *models.ReminderLog) error
	FindLogs(ctx context.Context, reminderID uint) ([]models.ReminderLog, error)
}

type reminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) FindSettings(ctx context.Context, propertyID uint) (*models.ReminderSettings, error) {
	var settings models.ReminderSettings
	err := dbFrom(ctx, r.db).Where("property_id = ?", propertyID).First(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *reminderRepository) SaveSettings(ctx context.Context, settings *models.ReminderSettings) error {
	return dbFrom(ctx, r.db).Save(settings).Error
}

func (r *reminderRepository) FindSchedule(ctx context.Context, propertyID uint) (*models.ReminderSchedule, error) {
	var schedule models.ReminderSchedule
	err := dbFrom(ctx, r.db).Where("property_id = ?", propertyID).First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *reminderRepository) SaveSchedule(ctx context.Context, schedule *models.ReminderSchedule) error {
	return dbFrom(ctx, r.db).Save(schedule).Error
}

func (r *reminderRepository) FindTemplate(ctx context.Context, id uint) (*models.ReminderTemplate, error) {
	var tmpl models.ReminderTemplate
	err := dbFrom(ctx, r.db).First(&tmpl, id).Error
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// FindDefaultTemplate returns the active default template for a channel
// and category.
func (r *reminderRepository) FindDefaultTemplate(ctx context.Context, templateType, category string) (*models.ReminderTemplate, error) {
	var tmpl models.ReminderTemplate
	err := dbFrom(ctx, r.db).
		Where("template_type = ? AND category = ? AND is_default AND is_active", templateType, category).
		First(&tmpl).Error
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *reminderRepository) ListTemplates(ctx context.Context, query *ListQuery) ([]models.ReminderTemplate, error) {
	var templates []models.ReminderTemplate
	db := dbFrom(ctx, r.db)
	if t := query.Filter("template_type"); t != "" {
		db = db.Where("template_type = ?", t)
	}
	if c := query.Filter("category"); c != "" {
		db = db.Where("category = ?", c)
	}
	if active := query.Filter("is_active"); active != "" {
		db = db.Where("is_active = ?", active == "true")
	}
	err := db.Order("template_type, category, id").Find(&templates).Error
	return templates, err
}

func (r *reminderRepository) CreateTemplate(ctx context.Context, tmpl *models.ReminderTemplate) error {
	return dbFrom(ctx, r.db).Create(tmpl).Error
}

func (r *reminderRepository) UpdateTemplate(ctx context.Context, tmpl *models.ReminderTemplate) error {
	return dbFrom(ctx, r.db).Save(tmpl).Error
}

func (r *reminderRepository) DeleteTemplate(ctx context.Context, id uint) error {
	return dbFrom(ctx, r.db).Delete(&models.ReminderTemplate{}, id).Error
}

// ClearDefault unsets is_default on every other template of the pair.
func (r *reminderRepository) ClearDefault(ctx context.Context, templateType, category string, exceptID uint) error {
	return dbFrom(ctx, r.db).
		Model(&models.ReminderTemplate{}).
		Where("template_type = ? AND category = ? AND is_default AND id <> ?", templateType, category, exceptID).
		Update("is_default", false).Error
}

func (r *reminderRepository) FindByID(ctx context.Context, id uint) (*models.Reminder, error) {
	var reminder models.Reminder
	err := dbFrom(ctx, r.db).
		Preload("Booking").
		Preload("Customer").
		Preload("Property").
		First(&reminder, id).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *reminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return dbFrom(ctx, r.db).Omit("Booking", "Customer", "Property").Create(reminder).Error
}

func (r *reminderRepository) Update(ctx context.Context, reminder *models.Reminder) error {
	return dbFrom(ctx, r.db).Omit("Booking", "Customer", "Property").Save(reminder).Error
}

func (r *reminderRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Reminder, int64, error) {
	var reminders []models.Reminder
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.Reminder{}).Scopes(scope)

	if status := query.Filter("status"); status != "" {
		db = db.Where("reminders.reminder_status = ?", status)
	}
	if t := query.Filter("reminder_type"); t != "" {
		db = db.Where("reminders.reminder_type = ?", t)
	}
	if b := query.Filter("booking"); b != "" {
		db = db.Where("reminders.booking_id = ?", b)
	}
	if p := query.Filter("property"); p != "" {
		db = db.Where("reminders.property_id = ?", p)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"scheduled_date": "reminders.scheduled_date",
		"due_date":       "reminders.due_date",
		"created_at":     "reminders.created_at",
	}, "reminders.scheduled_date DESC")

	err := applyPage(db, query).Find(&reminders).Error
	return reminders, total, err
}

func (r *reminderRepository) MaxSequence(ctx context.Context, bookingID uint) (int, error) {
	var seq int
	err := dbFrom(ctx, r.db).
		Model(&models.Reminder{}).
		Select("COALESCE(MAX(reminder_sequence), 0)").
		Where("booking_id = ?", bookingID).
		Row().Scan(&seq)
	return seq, err
}

// ExistsForDay reports whether a non-cancelled reminder of the channel was
// already created for the booking on day. The day is the calendar date in
// day's location, so callers pass the property's local time.
func (r *reminderRepository) ExistsForDay(ctx context.Context, bookingID uint, reminderType string, day time.Time) (bool, error) {
	var count int64
	start, end := models.DayBounds(day)
	err := dbFrom(ctx, r.db).
		Model(&models.Reminder{}).
		Where("booking_id = ? AND reminder_type = ? AND reminder_status <> ?", bookingID, reminderType, models.ReminderStatusCancelled).
		Where("scheduled_date >= ? AND scheduled_date < ?", start.UTC(), end.UTC()).
		Where("NOT is_escalation").
		Count(&count).Error
	return count > 0, err
}

// CountOverdue counts the booking's overdue reminders on a channel,
// escalations excluded.
func (r *reminderRepository) CountOverdue(ctx context.Context, bookingID uint, reminderType string) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).
		Model(&models.Reminder{}).
		Where("booking_id = ? AND reminder_type = ? AND is_overdue AND NOT is_escalation AND reminder_status <> ?",
			bookingID, reminderType, models.ReminderStatusCancelled).
		Count(&count).Error
	return count, err
}

// HasEscalation ignores failed escalations so the next run retries them.
func (r *reminderRepository) HasEscalation(ctx context.Context, bookingID uint) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).
		Model(&models.Reminder{}).
		Where("booking_id = ? AND is_escalation AND reminder_status <> ?", bookingID, models.ReminderStatusFailed).
		Count(&count).Error
	return count > 0, err
}

func (r *reminderRepository) CreateLog(ctx context.Context, log *models.ReminderLog) error {
	return dbFrom(ctx, r.db).Create(log).Error
}

func (r *reminderRepository) FindLogs(ctx context.Context, reminderID uint) ([]models.ReminderLog, error) {
	var logs []models.ReminderLog
	err := dbFrom(ctx, r.db).Where("reminder_id = ?", reminderID).Order("created_at, id").Find(&logs).Error
	return logs, err
}
