package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/metrics"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"gorm.io/datatypes"
)

const (
	reminderDateLayout = "January 02, 2006"

	// reminderDueOffset places a booking's rent due date after check-in.
	reminderDueOffset = 30

	reasonNoTemplate = "no_template"
	defaultPayMethod = "mobile money or cash"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// placeholderKeys are the only names a reminder template may reference.
var placeholderKeys = map[string]bool{
	"tenant_name":       true,
	"property_title":    true,
	"due_date":          true,
	"amount":            true,
	"days_overdue":      true,
	"late_fee":          true,
	"total_amount":      true,
	"payment_method":    true,
	"booking_reference": true,
}

// ValidatePlaceholders rejects content that references unknown names.
func ValidatePlaceholders(content string) error {
	var unknown []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		if !placeholderKeys[m[1]] {
			unknown = append(unknown, "{{"+m[1]+"}}")
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown placeholders: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// RenderPlaceholders substitutes {{name}} with values[name].
func RenderPlaceholders(content string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := values[key]; ok {
			return v
		}
		return match
	})
}

// ReminderDueDate is when rent on a booking falls due.
func ReminderDueDate(b *models.Booking) time.Time {
	return models.Day(b.CheckInDate).AddDate(0, 0, reminderDueOffset)
}

// ReminderDecision is the outcome of the send rule for one booking and day.
type ReminderDecision struct {
	Send         bool
	Overdue      bool
	DaysUntilDue int
	Category     string
}

// DecideReminder applies the send rule: an upcoming reminder exactly
// days_before_due ahead, then an overdue one every interval days from the
// due date on.
func DecideReminder(b *models.Booking, settings *models.ReminderSettings, today time.Time) ReminderDecision {
	days := models.DaysBetween(today, ReminderDueDate(b))
	d := ReminderDecision{DaysUntilDue: days, Category: models.CategoryForDaysUntilDue(days)}
	if b.PaymentStatus == models.BookingPaymentPaid {
		return d
	}
	switch {
	case days > 0:
		d.Send = days == settings.DaysBeforeDue
	default:
		interval := settings.OverdueReminderInterval
		if interval < 1 {
			interval = 1
		}
		d.Overdue = true
		d.Send = (-days)%interval == 0
	}
	return d
}

type ReminderService struct {
	tx         repository.TxManager
	reminders  repository.ReminderRepository
	bookings   repository.BookingRepository
	properties repository.PropertyRepository
	channels   map[string]Channel
	auditSvc   *AuditService
	alerts     StaffAlerter
	now        func() time.Time
}

func NewReminderService(repos *repository.Repositories, channels []Channel, auditSvc *AuditService) *ReminderService {
	byName := make(map[string]Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &ReminderService{
		tx:         repos.Tx,
		reminders:  repos.Reminder,
		bookings:   repos.Booking,
		properties: repos.Property,
		channels:   byName,
		auditSvc:   auditSvc,
		now:        time.Now,
	}
}

// RunOptions narrows a reminder run.
type RunOptions struct {
	ReminderType string
	PropertyID   *uint
	DryRun       bool
	Force        bool
}

// PlannedReminder is one delivery a run made, or would make in dry-run.
type PlannedReminder struct {
	ReminderID   uint   `json:"reminder_id,omitempty"`
	BookingID    uint   `json:"booking_id"`
	Reference    string `json:"booking_reference"`
	Channel      string `json:"channel"`
	Category     string `json:"category"`
	Recipient    string `json:"recipient"`
	DaysUntilDue int    `json:"days_until_due"`
	Escalation   bool   `json:"escalation"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

type ReminderRunResult struct {
	Properties        int               `json:"properties"`
	PropertiesSkipped int               `json:"properties_skipped"`
	Bookings          int               `json:"bookings"`
	Sent              int               `json:"sent"`
	Failed            int               `json:"failed"`
	Skipped           int               `json:"skipped"`
	Escalated         int               `json:"escalated"`
	DryRun            bool              `json:"dry_run"`
	Reminders         []PlannedReminder `json:"reminders"`
}

func (r *ReminderRunResult) add(p PlannedReminder) {
	r.Reminders = append(r.Reminders, p)
	switch p.Status {
	case models.ReminderStatusSent:
		r.Sent++
	case models.ReminderStatusFailed:
		r.Failed++
	}
	if p.Escalation {
		r.Escalated++
	}
}

// Run evaluates every unpaid booking on house properties and delivers the
// reminders that fall due today.
func (s *ReminderService) Run(ctx context.Context, opts RunOptions) (*ReminderRunResult, error) {
	if opts.ReminderType != "" && !models.ValidReminderType(opts.ReminderType) {
		return nil, invalid("reminder_type", "must be email, sms or push")
	}

	properties, err := s.properties.ListHouses(ctx, opts.PropertyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &ReminderRunResult{DryRun: opts.DryRun, Reminders: []PlannedReminder{}}
	for i := range properties {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		property := &properties[i]

		settings, err := s.settingsFor(ctx, property.ID, !opts.DryRun)
		if err != nil {
			logger.Error("failed to load reminder settings", "property_id", property.ID, "error", err)
			result.PropertiesSkipped++
			continue
		}
		schedule, err := s.scheduleFor(ctx, property.ID, !opts.DryRun)
		if err != nil {
			logger.Error("failed to load reminder schedule", "property_id", property.ID, "error", err)
			result.PropertiesSkipped++
			continue
		}
		if !settings.IsActive || (!opts.Force && !schedule.IsDue(now)) {
			result.PropertiesSkipped++
			continue
		}
		result.Properties++
		local := now.In(schedule.Location())

		bookings, err := s.bookings.FindForReminders(ctx, property.ID)
		if err != nil {
			return result, err
		}
		for j := range bookings {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Bookings++
			s.processBooking(ctx, &bookings[j], property, settings, opts, local, result)
		}

		if !opts.DryRun {
			schedule.MarkRun(now)
			if err := s.reminders.SaveSchedule(ctx, schedule); err != nil {
				logger.Error("failed to save reminder schedule", "property_id", property.ID, "error", err)
			}
		}
	}

	logger.Info("reminder run finished",
		"properties", result.Properties, "bookings", result.Bookings, "sent", result.Sent,
		"failed", result.Failed, "skipped", result.Skipped, "escalated", result.Escalated, "dry_run", opts.DryRun)
	return result, nil
}

func (s *ReminderService) channelsFor(settings *models.ReminderSettings, only string) []string {
	if only != "" {
		if settings.ChannelEnabled(only) {
			return []string{only}
		}
		return nil
	}
	var out []string
	for _, c := range models.ReminderChannels {
		if settings.ChannelEnabled(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *ReminderService) processBooking(ctx context.Context, booking *models.Booking, property *models.Property, settings *models.ReminderSettings, opts RunOptions, local time.Time, result *ReminderRunResult) {
	decision := DecideReminder(booking, settings, models.Day(local))
	if !decision.Send {
		return
	}
	booking.Property = *property

	exhausted := false
	for _, channel := range s.channelsFor(settings, opts.ReminderType) {
		if !opts.Force {
			exists, err := s.reminders.ExistsForDay(ctx, booking.ID, channel, local)
			if err != nil {
				logger.Error("reminder idempotency check failed", "booking_id", booking.ID, "error", err)
				continue
			}
			if exists {
				result.Skipped++
				continue
			}
		}
		if decision.Overdue {
			sent, err := s.reminders.CountOverdue(ctx, booking.ID, channel)
			if err != nil {
				logger.Error("failed to count overdue reminders", "booking_id", booking.ID, "error", err)
				continue
			}
			if int(sent) >= settings.MaxOverdueReminders {
				exhausted = true
				result.Skipped++
				continue
			}
		}

		planned := PlannedReminder{
			BookingID:    booking.ID,
			Reference:    booking.BookingReference,
			Channel:      channel,
			Category:     decision.Category,
			Recipient:    recipientFor(channel, &booking.Customer),
			DaysUntilDue: decision.DaysUntilDue,
			Status:       models.ReminderStatusScheduled,
		}
		if opts.DryRun {
			logger.Info("reminder planned", "booking_id", booking.ID, "channel", channel, "category", decision.Category, "recipient", planned.Recipient)
			result.add(planned)
			continue
		}
		result.add(s.deliverNew(ctx, booking, settings, decision, planned, false))
	}

	if exhausted && settings.AutoEscalateEnabled {
		s.escalate(ctx, booking, settings, decision, opts.DryRun, result)
	}
}

// escalate sends the single final notice for a booking to the escalation
// mailbox once its overdue reminders are used up.
func (s *ReminderService) escalate(ctx context.Context, booking *models.Booking, settings *models.ReminderSettings, decision ReminderDecision, dryRun bool, result *ReminderRunResult) {
	if settings.EscalationEmail == "" {
		logger.Warn("escalation skipped, no escalation email", "property_id", booking.PropertyID, "booking_id", booking.ID)
		return
	}
	done, err := s.reminders.HasEscalation(ctx, booking.ID)
	if err != nil {
		logger.Error("failed to check escalation", "booking_id", booking.ID, "error", err)
		return
	}
	if done {
		return
	}

	planned := PlannedReminder{
		BookingID:    booking.ID,
		Reference:    booking.BookingReference,
		Channel:      models.ReminderTypeEmail,
		Category:     models.CategoryFinalNotice,
		Recipient:    settings.EscalationEmail,
		DaysUntilDue: decision.DaysUntilDue,
		Escalation:   true,
		Status:       models.ReminderStatusScheduled,
	}
	if dryRun {
		result.add(planned)
		return
	}
	decision.Category = models.CategoryFinalNotice
	planned = s.deliverNew(ctx, booking, settings, decision, planned, true)
	result.add(planned)

	if s.alerts != nil && planned.Status == models.ReminderStatusSent {
		msg := fmt.Sprintf("Booking %s is %d days overdue; final notice sent to %s", booking.BookingReference, -decision.DaysUntilDue, settings.EscalationEmail)
		if err := s.alerts.NotifyStaff(ctx, "Rent escalated", msg, models.NotificationTypeRentEscalation); err != nil {
			logger.Warn("failed to alert staff of escalation", "booking_id", booking.ID, "error", err)
		}
	}
}

// WithStaffAlerts makes escalations raise a staff notification as well.
func (s *ReminderService) WithStaffAlerts(alerts StaffAlerter) *ReminderService {
	s.alerts = alerts
	return s
}

func recipientFor(channel string, c *models.Customer) string {
	if channel == models.ReminderTypeSMS {
		return c.Phone
	}
	return c.Email
}

func renderValues(b *models.Booking, decision ReminderDecision) map[string]string {
	overdue := 0
	if decision.DaysUntilDue < 0 {
		overdue = -decision.DaysUntilDue
	}
	return map[string]string{
		"tenant_name":       b.Customer.DisplayName(),
		"property_title":    b.Property.Title,
		"due_date":          ReminderDueDate(b).Format(reminderDateLayout),
		"amount":            money.Format(b.RemainingAmount()),
		"days_overdue":      strconv.Itoa(overdue),
		"late_fee":          money.Format(money.FromInt(0)),
		"total_amount":      money.Format(b.CalculatedTotal()),
		"payment_method":    defaultPayMethod,
		"booking_reference": b.BookingReference,
	}
}

// resolveTemplate prefers the property's custom template for the channel,
// then the active default for the category.
func (s *ReminderService) resolveTemplate(ctx context.Context, settings *models.ReminderSettings, channel string, categories ...string) (*models.ReminderTemplate, error) {
	var customID *uint
	switch channel {
	case models.ReminderTypeEmail:
		customID = settings.CustomEmailTemplateID
	case models.ReminderTypeSMS:
		customID = settings.CustomSMSTemplateID
	}
	if customID != nil {
		tmpl, err := s.reminders.FindTemplate(ctx, *customID)
		if err == nil && tmpl.IsActive && tmpl.TemplateType == channel {
			return tmpl, nil
		}
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
	}
	for _, category := range categories {
		tmpl, err := s.reminders.FindDefaultTemplate(ctx, channel, category)
		if err == nil {
			return tmpl, nil
		}
		if !repository.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrTemplateMissing
}

// deliverNew writes the reminder with the next sequence number, then hands
// it to the channel. Delivery problems end up on the row, never as errors.
func (s *ReminderService) deliverNew(ctx context.Context, booking *models.Booking, settings *models.ReminderSettings, decision ReminderDecision, planned PlannedReminder, escalation bool) PlannedReminder {
	categories := []string{decision.Category}
	if escalation {
		categories = []string{models.CategoryEscalation, models.CategoryFinalNotice}
	}
	tmpl, tmplErr := s.resolveTemplate(ctx, settings, planned.Channel, categories...)
	if tmplErr != nil && !errors.Is(tmplErr, ErrTemplateMissing) {
		planned.Status = models.ReminderStatusFailed
		planned.Error = tmplErr.Error()
		logger.Error("failed to resolve reminder template", "booking_id", booking.ID, "error", tmplErr)
		return planned
	}

	reminder := &models.Reminder{
		BookingID:     booking.ID,
		CustomerID:    booking.CustomerID,
		PropertyID:    booking.PropertyID,
		ReminderType:  planned.Channel,
		Category:      decision.Category,
		Recipient:     planned.Recipient,
		ScheduledDate: s.now(),
		DueDate:       ReminderDueDate(booking),
		DaysBeforeDue: decision.DaysUntilDue,
		IsOverdue:     decision.Overdue,
		IsEscalation:  escalation,
	}
	if tmpl != nil {
		values := renderValues(booking, decision)
		reminder.TemplateID = &tmpl.ID
		reminder.MessageContent = RenderPlaceholders(tmpl.Content, values)
		reminder.Subject = RenderPlaceholders(tmpl.Subject, values)
	}
	if reminder.Subject == "" {
		reminder.Subject = models.DefaultReminderSubject(booking.Property.Title, decision.Overdue)
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.bookings.FindByIDForUpdate(ctx, booking.ID); err != nil {
			return err
		}
		seq, err := s.reminders.MaxSequence(ctx, booking.ID)
		if err != nil {
			return err
		}
		reminder.ReminderSequence = seq + 1
		if err := s.reminders.Create(ctx, reminder); err != nil {
			return err
		}
		if err := s.log(ctx, reminder.ID, models.ReminderActionCreated, fmt.Sprintf("%s %s reminder #%d", reminder.Category, reminder.ReminderType, reminder.ReminderSequence), nil); err != nil {
			return err
		}
		if escalation {
			return s.log(ctx, reminder.ID, models.ReminderActionEscalated, "final notice sent to "+reminder.Recipient, nil)
		}
		return nil
	})
	if err != nil {
		planned.Status = models.ReminderStatusFailed
		planned.Error = err.Error()
		logger.Error("failed to create reminder", "booking_id", booking.ID, "channel", planned.Channel, "error", err)
		return planned
	}
	planned.ReminderID = reminder.ID

	if tmpl == nil {
		s.fail(ctx, reminder, reasonNoTemplate)
	} else {
		s.dispatch(ctx, reminder)
	}
	planned.Status = reminder.ReminderStatus
	planned.Error = reminder.ErrorMessage
	return planned
}

// dispatch hands a reminder to its channel and records the outcome.
func (s *ReminderService) dispatch(ctx context.Context, reminder *models.Reminder) {
	channel, ok := s.channels[reminder.ReminderType]
	if !ok {
		s.fail(ctx, reminder, reminder.ReminderType+"_not_configured")
		return
	}
	ref, err := channel.Deliver(ctx, Delivery{
		Recipient: reminder.Recipient,
		Subject:   reminder.Subject,
		Content:   reminder.MessageContent,
	})
	if err != nil {
		s.fail(ctx, reminder, err.Error())
		return
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := statemachine.NewReminderFSM(reminder).MarkSent(ctx, s.now(), ref); err != nil {
			return err
		}
		if err := s.reminders.Update(ctx, reminder); err != nil {
			return err
		}
		return s.log(ctx, reminder.ID, models.ReminderActionSent, "delivered to "+reminder.Recipient, map[string]any{"delivery_reference": ref})
	})
	if err != nil {
		logger.Error("failed to record reminder delivery", "reminder_id", reminder.ID, "error", err)
		return
	}
	metrics.RemindersSent.WithLabelValues(reminder.ReminderType, models.ReminderStatusSent).Inc()
	if s.auditSvc != nil {
		if err := s.auditSvc.Record(ctx, SystemViewer, models.AuditSend, "Reminder", reminder.ID, reminder.Category+" via "+reminder.ReminderType); err != nil {
			logger.Warn("failed to audit reminder", "reminder_id", reminder.ID, "error", err)
		}
	}
}

func (s *ReminderService) fail(ctx context.Context, reminder *models.Reminder, reason string) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := statemachine.NewReminderFSM(reminder).MarkFailed(ctx, reason); err != nil {
			return err
		}
		if err := s.reminders.Update(ctx, reminder); err != nil {
			return err
		}
		return s.log(ctx, reminder.ID, models.ReminderActionFailed, reason, nil)
	})
	if err != nil {
		logger.Error("failed to record reminder failure", "reminder_id", reminder.ID, "error", err)
	}
	metrics.RemindersSent.WithLabelValues(reminder.ReminderType, models.ReminderStatusFailed).Inc()
	logger.Warn("reminder delivery failed", "reminder_id", reminder.ID, "channel", reminder.ReminderType, "reason", reason)
}

func (s *ReminderService) log(ctx context.Context, reminderID uint, action, description string, meta map[string]any) error {
	entry := &models.ReminderLog{ReminderID: reminderID, Action: action, Description: description}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = datatypes.JSON(b)
		}
	}
	return s.reminders.CreateLog(ctx, entry)
}

func (s *ReminderService) settingsFor(ctx context.Context, propertyID uint, persist bool) (*models.ReminderSettings, error) {
	settings, err := s.reminders.FindSettings(ctx, propertyID)
	if err == nil {
		return settings, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	settings = models.DefaultReminderSettings(propertyID)
	if persist {
		if err := s.reminders.SaveSettings(ctx, settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

func (s *ReminderService) scheduleFor(ctx context.Context, propertyID uint, persist bool) (*models.ReminderSchedule, error) {
	schedule, err := s.reminders.FindSchedule(ctx, propertyID)
	if err == nil {
		return schedule, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	schedule = models.DefaultReminderSchedule(propertyID)
	if persist {
		if err := s.reminders.SaveSchedule(ctx, schedule); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

// Reminders

func (s *ReminderService) List(ctx context.Context, viewer models.Viewer, query *repository.ListQuery) ([]models.Reminder, int64, error) {
	return s.reminders.List(ctx, repository.ReminderVisibility(viewer), query)
}

func canViewReminder(r *models.Reminder, viewer models.Viewer) bool {
	if canManageProperty(&r.Property, viewer) {
		return true
	}
	return viewer.Role == models.RoleTenant && strings.EqualFold(r.Customer.Email, viewer.Email)
}

func (s *ReminderService) Get(ctx context.Context, id uint, viewer models.Viewer) (*models.Reminder, error) {
	reminder, err := s.reminders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !canViewReminder(reminder, viewer) {
		return nil, ErrNotFound
	}
	return reminder, nil
}

func (s *ReminderService) Logs(ctx context.Context, id uint, viewer models.Viewer) ([]models.ReminderLog, error) {
	if _, err := s.Get(ctx, id, viewer); err != nil {
		return nil, err
	}
	return s.reminders.FindLogs(ctx, id)
}

// Send delivers a scheduled or failed reminder now.
func (s *ReminderService) Send(ctx context.Context, id uint, actor models.Viewer) (*models.Reminder, error) {
	reminder, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(&reminder.Property, actor) {
		return nil, ErrPermissionDenied
	}
	if !reminder.MaySend() {
		return nil, &TransitionError{Entity: "reminder", From: reminder.ReminderStatus, Action: "send"}
	}
	if strings.TrimSpace(reminder.MessageContent) == "" {
		s.fail(ctx, reminder, reasonNoTemplate)
		return reminder, nil
	}
	s.dispatch(ctx, reminder)
	return reminder, nil
}

// Cancel stops a scheduled or failed reminder.
func (s *ReminderService) Cancel(ctx context.Context, id uint, actor models.Viewer) (*models.Reminder, error) {
	reminder, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(&reminder.Property, actor) {
		return nil, ErrPermissionDenied
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := statemachine.NewReminderFSM(reminder).Cancel(ctx); err != nil {
			return err
		}
		if err := s.reminders.Update(ctx, reminder); err != nil {
			return err
		}
		return s.log(ctx, reminder.ID, models.ReminderActionCancelled, "cancelled by user "+strconv.FormatUint(uint64(actor.UserID), 10), nil)
	})
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// Settings

// ReminderSettingsInput carries the editable settings; nil fields keep
// their current value.
type ReminderSettingsInput struct {
	DaysBeforeDue           *int    `json:"days_before_due"`
	OverdueReminderInterval *int    `json:"overdue_reminder_interval"`
	MaxOverdueReminders     *int    `json:"max_overdue_reminders"`
	EmailEnabled            *bool   `json:"email_enabled"`
	SMSEnabled              *bool   `json:"sms_enabled"`
	PushEnabled             *bool   `json:"push_enabled"`
	GracePeriodDays         *int    `json:"grace_period_days"`
	AutoEscalateEnabled     *bool   `json:"auto_escalate_enabled"`
	EscalationEmail         *string `json:"escalation_email"`
	CustomEmailTemplateID   *uint   `json:"custom_email_template_id"`
	CustomSMSTemplateID     *uint   `json:"custom_sms_template_id"`
	IsActive                *bool   `json:"is_active"`
}

func (s *ReminderService) propertyFor(ctx context.Context, propertyID uint, actor models.Viewer) (*models.Property, error) {
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canManageProperty(property, actor) {
		return nil, ErrPermissionDenied
	}
	return property, nil
}

// Settings returns the property's settings, creating the defaults on first
// use.
func (s *ReminderService) Settings(ctx context.Context, propertyID uint, actor models.Viewer) (*models.ReminderSettings, error) {
	if _, err := s.propertyFor(ctx, propertyID, actor); err != nil {
		return nil, err
	}
	return s.settingsFor(ctx, propertyID, true)
}

func (s *ReminderService) UpdateSettings(ctx context.Context, propertyID uint, input ReminderSettingsInput, actor models.Viewer) (*models.ReminderSettings, error) {
	settings, err := s.Settings(ctx, propertyID, actor)
	if err != nil {
		return nil, err
	}

	positive := func(field string, v *int, dst *int, min int) error {
		if v == nil {
			return nil
		}
		if *v < min {
			return invalid(field, "must be at least %d", min)
		}
		*dst = *v
		return nil
	}
	if err := positive("days_before_due", input.DaysBeforeDue, &settings.DaysBeforeDue, 1); err != nil {
		return nil, err
	}
	if err := positive("overdue_reminder_interval", input.OverdueReminderInterval, &settings.OverdueReminderInterval, 1); err != nil {
		return nil, err
	}
	if err := positive("max_overdue_reminders", input.MaxOverdueReminders, &settings.MaxOverdueReminders, 0); err != nil {
		return nil, err
	}
	if err := positive("grace_period_days", input.GracePeriodDays, &settings.GracePeriodDays, 0); err != nil {
		return nil, err
	}
	setBool := func(v *bool, dst *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setBool(input.EmailEnabled, &settings.EmailEnabled)
	setBool(input.SMSEnabled, &settings.SMSEnabled)
	setBool(input.PushEnabled, &settings.PushEnabled)
	setBool(input.AutoEscalateEnabled, &settings.AutoEscalateEnabled)
	setBool(input.IsActive, &settings.IsActive)
	if input.EscalationEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*input.EscalationEmail))
		if email != "" && !strings.Contains(email, "@") {
			return nil, invalid("escalation_email", "must be a valid email address")
		}
		settings.EscalationEmail = email
	}
	for _, custom := range []struct {
		id      *uint
		channel string
		dst     **uint
	}{
		{input.CustomEmailTemplateID, models.ReminderTypeEmail, &settings.CustomEmailTemplateID},
		{input.CustomSMSTemplateID, models.ReminderTypeSMS, &settings.CustomSMSTemplateID},
	} {
		if custom.id == nil {
			continue
		}
		if *custom.id == 0 {
			*custom.dst = nil
			continue
		}
		tmpl, err := s.reminders.FindTemplate(ctx, *custom.id)
		if err != nil {
			return nil, invalid("custom_"+custom.channel+"_template_id", "template %d does not exist", *custom.id)
		}
		if tmpl.TemplateType != custom.channel {
			return nil, invalid("custom_"+custom.channel+"_template_id", "template %d is not a %s template", tmpl.ID, custom.channel)
		}
		id := tmpl.ID
		*custom.dst = &id
	}

	if err := s.reminders.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Templates

type ReminderTemplateInput struct {
	Name         *string `json:"name"`
	TemplateType *string `json:"template_type"`
	Category     *string `json:"category"`
	Subject      *string `json:"subject"`
	Content      *string `json:"content"`
	IsDefault    *bool   `json:"is_default"`
	IsActive     *bool   `json:"is_active"`
}

func (s *ReminderService) ListTemplates(ctx context.Context, query *repository.ListQuery) ([]models.ReminderTemplate, error) {
	return s.reminders.ListTemplates(ctx, query)
}

func (s *ReminderService) GetTemplate(ctx context.Context, id uint) (*models.ReminderTemplate, error) {
	tmpl, err := s.reminders.FindTemplate(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return tmpl, nil
}

func applyTemplateInput(tmpl *models.ReminderTemplate, input ReminderTemplateInput) error {
	if input.Name != nil {
		tmpl.Name = strings.TrimSpace(*input.Name)
	}
	if input.TemplateType != nil {
		tmpl.TemplateType = *input.TemplateType
	}
	if input.Category != nil {
		tmpl.Category = *input.Category
	}
	if input.Subject != nil {
		tmpl.Subject = *input.Subject
	}
	if input.Content != nil {
		tmpl.Content = *input.Content
	}
	if input.IsDefault != nil {
		tmpl.IsDefault = *input.IsDefault
	}
	if input.IsActive != nil {
		tmpl.IsActive = *input.IsActive
	}

	if tmpl.Name == "" {
		return invalid("name", "is required")
	}
	if !models.ValidReminderType(tmpl.TemplateType) {
		return invalid("template_type", "must be email, sms or push")
	}
	if !models.ValidTemplateCategory(tmpl.Category) {
		return invalid("category", "unknown category %q", tmpl.Category)
	}
	if strings.TrimSpace(tmpl.Content) == "" {
		return invalid("content", "is required")
	}
	if tmpl.TemplateType != models.ReminderTypeEmail {
		tmpl.Subject = ""
	}
	if err := ValidatePlaceholders(tmpl.Subject); err != nil {
		return invalid("subject", "%v", err)
	}
	if err := ValidatePlaceholders(tmpl.Content); err != nil {
		return invalid("content", "%v", err)
	}
	return nil
}

// saveTemplate keeps at most one default per type and category.
func (s *ReminderService) saveTemplate(ctx context.Context, tmpl *models.ReminderTemplate, create bool) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if create {
			err = s.reminders.CreateTemplate(ctx, tmpl)
		} else {
			err = s.reminders.UpdateTemplate(ctx, tmpl)
		}
		if err != nil {
			return err
		}
		if tmpl.IsDefault {
			return s.reminders.ClearDefault(ctx, tmpl.TemplateType, tmpl.Category, tmpl.ID)
		}
		return nil
	})
}

func (s *ReminderService) CreateTemplate(ctx context.Context, input ReminderTemplateInput, actor models.Viewer) (*models.ReminderTemplate, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	tmpl := &models.ReminderTemplate{IsActive: true, CreatedByID: actorID(actor)}
	if err := applyTemplateInput(tmpl, input); err != nil {
		return nil, err
	}
	if err := s.saveTemplate(ctx, tmpl, true); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (s *ReminderService) UpdateTemplate(ctx context.Context, id uint, input ReminderTemplateInput, actor models.Viewer) (*models.ReminderTemplate, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyTemplateInput(tmpl, input); err != nil {
		return nil, err
	}
	if err := s.saveTemplate(ctx, tmpl, false); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (s *ReminderService) DeleteTemplate(ctx context.Context, id uint, actor models.Viewer) error {
	if !actor.IsStaff() {
		return ErrPermissionDenied
	}
	if _, err := s.GetTemplate(ctx, id); err != nil {
		return err
	}
	return s.reminders.DeleteTemplate(ctx, id)
}

var defaultTemplates = []models.ReminderTemplate{
	{
		Name:         "Upcoming rent (email)",
		TemplateType: models.ReminderTypeEmail,
		Category:     models.CategoryUpcoming,
		Subject:      "Rent Payment Reminder - {{property_title}}",
		Content: "Dear {{tenant_name}},\n\nThis is a friendly reminder that your rent of {{amount}} for {{property_title}} " +
			"is due on {{due_date}}.\n\nYou can pay by {{payment_method}}. Please quote {{booking_reference}}.\n\nThank you.",
	},
	{
		Name:         "First overdue notice (email)",
		TemplateType: models.ReminderTypeEmail,
		Category:     models.CategoryOverdue1,
		Subject:      "Overdue Rent Reminder - {{property_title}}",
		Content: "Dear {{tenant_name}},\n\nYour rent of {{amount}} for {{property_title}} was due on {{due_date}} " +
			"and is now {{days_overdue}} days overdue.\n\nPlease settle the balance as soon as possible, quoting {{booking_reference}}.",
	},
	{
		Name:         "Final notice (email)",
		TemplateType: models.ReminderTypeEmail,
		Category:     models.CategoryFinalNotice,
		Subject:      "Final Notice - {{property_title}}",
		Content: "Dear {{tenant_name}},\n\nDespite previous reminders, rent of {{amount}} for {{property_title}} " +
			"remains unpaid {{days_overdue}} days after {{due_date}}.\n\nThis is a final notice for booking {{booking_reference}}.",
	},
	{
		Name:         "Upcoming rent (sms)",
		TemplateType: models.ReminderTypeSMS,
		Category:     models.CategoryUpcoming,
		Content:      "Hi {{tenant_name}}, rent of {{amount}} for {{property_title}} is due {{due_date}}. Ref {{booking_reference}}.",
	},
}

// SeedDefaultTemplates installs the stock templates for any type and
// category that has no default yet.
func (s *ReminderService) SeedDefaultTemplates(ctx context.Context, dryRun bool) (int, error) {
	created := 0
	for _, tmpl := range defaultTemplates {
		_, err := s.reminders.FindDefaultTemplate(ctx, tmpl.TemplateType, tmpl.Category)
		if err == nil {
			continue
		}
		if !repository.IsNotFound(err) {
			return created, err
		}
		created++
		if dryRun {
			continue
		}
		t := tmpl
		t.IsDefault = true
		t.IsActive = true
		if err := s.saveTemplate(ctx, &t, true); err != nil {
			return created - 1, err
		}
		logger.Info("reminder template created", "type", t.TemplateType, "category", t.Category)
	}
	return created, nil
}
