package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/shopspring/decimal"
)

// Job entry points
const (
	JobCancelExpiredBookings   = "cancel_expired_bookings"
	JobGenerateRentInvoices    = "generate_rent_invoices"
	JobApplyLateFees           = "apply_late_fees"
	JobSendRentReminders       = "send_rent_reminders"
	JobSyncRoomStatus          = "sync_room_status"
	JobCreateReminderTemplates = "create_reminder_templates"
)

// JobParams carries the union of every entry point's flags. Each job reads
// only the fields it understands.
type JobParams struct {
	DryRun       bool             `json:"dry_run"`
	Force        bool             `json:"force"`
	Month        int              `json:"month"`
	Year         int              `json:"year"`
	MaxLateFee   *decimal.Decimal `json:"max_late_fee"`
	GracePeriod  *int             `json:"grace_period"`
	ReminderType string           `json:"reminder_type"`
	PropertyID   *uint            `json:"property_id"`
}

// TemplateSeedResult reports the create_reminder_templates job.
type TemplateSeedResult struct {
	Created int  `json:"created"`
	DryRun  bool `json:"dry_run"`
}

// JobService exposes the periodic entry points to the CLI and the API.
type JobService struct {
	runner     *jobs.Runner
	worker     *jobs.Worker
	bookings   *BookingService
	invoices   *InvoiceService
	reminders  *ReminderService
	properties *PropertyService
	auditSvc   *AuditService
	alerts     StaffAlerter
}

func NewJobService(runner *jobs.Runner, worker *jobs.Worker, bookings *BookingService, invoices *InvoiceService, reminders *ReminderService, properties *PropertyService, auditSvc *AuditService) *JobService {
	return &JobService{
		runner:     runner,
		worker:     worker,
		bookings:   bookings,
		invoices:   invoices,
		reminders:  reminders,
		properties: properties,
		auditSvc:   auditSvc,
	}
}

// JobNames lists every entry point in name order.
func JobNames() []string {
	names := []string{
		JobCancelExpiredBookings,
		JobGenerateRentInvoices,
		JobApplyLateFees,
		JobSendRentReminders,
		JobSyncRoomStatus,
		JobCreateReminderTemplates,
	}
	sort.Strings(names)
	return names
}

func (s *JobService) task(name string, p JobParams) (jobs.Task, error) {
	switch name {
	case JobCancelExpiredBookings:
		return func(ctx context.Context) (any, error) {
			return s.bookings.ExpireSweep(ctx, p.DryRun)
		}, nil
	case JobGenerateRentInvoices:
		if p.Month != 0 && (p.Month < 1 || p.Month > 12) {
			return nil, invalid("month", "must be between 1 and 12")
		}
		return func(ctx context.Context) (any, error) {
			return s.invoices.GenerateMonthly(ctx, GenerateOptions{Month: p.Month, Year: p.Year, Force: p.Force, DryRun: p.DryRun})
		}, nil
	case JobApplyLateFees:
		if p.MaxLateFee != nil && p.MaxLateFee.IsNegative() {
			return nil, invalid("max_late_fee", "must not be negative")
		}
		if p.GracePeriod != nil && *p.GracePeriod < 0 {
			return nil, invalid("grace_period", "must not be negative")
		}
		return func(ctx context.Context) (any, error) {
			return s.invoices.ApplyLateFees(ctx, LateFeeOptions{DryRun: p.DryRun, MaxLateFee: p.MaxLateFee, GracePeriod: p.GracePeriod})
		}, nil
	case JobSendRentReminders:
		if p.ReminderType != "" && !models.ValidReminderType(p.ReminderType) {
			return nil, invalid("reminder_type", "must be one of email, sms, push")
		}
		return func(ctx context.Context) (any, error) {
			return s.reminders.Run(ctx, RunOptions{ReminderType: p.ReminderType, PropertyID: p.PropertyID, DryRun: p.DryRun, Force: p.Force})
		}, nil
	case JobSyncRoomStatus:
		return func(ctx context.Context) (any, error) {
			return s.properties.SyncRooms(ctx, p.PropertyID, p.DryRun)
		}, nil
	case JobCreateReminderTemplates:
		return func(ctx context.Context) (any, error) {
			created, err := s.reminders.SeedDefaultTemplates(ctx, p.DryRun)
			if err != nil {
				return nil, err
			}
			return &TemplateSeedResult{Created: created, DryRun: p.DryRun}, nil
		}, nil
	}
	return nil, invalid("job", "unknown job %q", name)
}

// Execute runs the named job in the caller's goroutine under the job lock.
func (s *JobService) Execute(ctx context.Context, name string, params JobParams) (any, error) {
	task, err := s.task(name, params)
	if err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, name, task)
}

// RunAsync queues the named job on the worker and returns immediately.
func (s *JobService) RunAsync(ctx context.Context, name string, params JobParams, actor models.Viewer) error {
	task, err := s.task(name, params)
	if err != nil {
		return err
	}
	if s.worker == nil {
		return fmt.Errorf("job worker is not running")
	}
	if err := s.auditSvc.Record(ctx, actor, models.AuditRunJob, "Job", 0, name); err != nil {
		return err
	}
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		_, err := s.runner.Run(ctx, name, task)
		if errors.Is(err, jobs.ErrLocked) {
			return nil
		}
		if err != nil && s.alerts != nil {
			if alertErr := s.alerts.NotifyStaff(ctx, "Job failed", fmt.Sprintf("%s: %v", name, err), models.NotificationTypeSystemError); alertErr != nil {
				logger.Warn("failed to alert staff of job failure", "job", name, "error", alertErr)
			}
		}
		return err
	})
	return nil
}

// WithStaffAlerts makes failed background runs raise a staff notification.
func (s *JobService) WithStaffAlerts(alerts StaffAlerter) *JobService {
	s.alerts = alerts
	return s
}

// JobStats is the payload of GET /jobs/stats.
type JobStats struct {
	Worker jobs.WorkerStats `json:"worker"`
	Runs   []jobs.RunRecord `json:"runs"`
}

func (s *JobService) Stats() *JobStats {
	stats := &JobStats{Runs: s.runner.History()}
	if s.worker != nil {
		stats.Worker = s.worker.GetStats()
	}
	return stats
}
