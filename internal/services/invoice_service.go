package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/metrics"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

const invoiceNumberAttempts = 5

type InvoiceService struct {
	tx       repository.TxManager
	invoices repository.InvoiceRepository
	leases   repository.LeaseRepository
	email    *EmailService
	auditSvc *AuditService
	worker   *jobs.Worker
	now      func() time.Time
}

func NewInvoiceService(repos *repository.Repositories, email *EmailService, auditSvc *AuditService, worker *jobs.Worker) *InvoiceService {
	return &InvoiceService{
		tx:       repos.Tx,
		invoices: repos.Invoice,
		leases:   repos.Lease,
		email:    email,
		auditSvc: auditSvc,
		worker:   worker,
		now:      time.Now,
	}
}

// GenerateOptions drives a monthly invoice run. Zero Month or Year means
// next month.
type GenerateOptions struct {
	Month  int
	Year   int
	Force  bool
	DryRun bool
}

type GenerateResult struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Leases      int    `json:"leases"`
	Created     int    `json:"created"`
	Updated     int    `json:"updated"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	DryRun      bool   `json:"dry_run"`
}

// LateFeeOptions overrides the per-lease configuration for one sweep.
type LateFeeOptions struct {
	DryRun      bool
	MaxLateFee  *decimal.Decimal
	GracePeriod *int
}

type LateFeeResult struct {
	Checked int    `json:"checked"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	IDs     []uint `json:"ids"`
	DryRun  bool   `json:"dry_run"`
}

// LateFeeConfigInput replaces a lease's late fee configuration.
type LateFeeConfigInput struct {
	FeeType         string           `json:"fee_type" binding:"required"`
	Amount          decimal.Decimal  `json:"amount" binding:"required"`
	GracePeriodDays *int             `json:"grace_period_days"`
	MaxLateFee      *decimal.Decimal `json:"max_late_fee"`
	IsActive        *bool            `json:"is_active"`
}

// issueInvoice creates the invoice for one lease and month, due on day 5.
func issueInvoice(ctx context.Context, repo repository.InvoiceRepository, lease *models.Lease, start, end time.Time, status string, now time.Time) (*models.RentInvoice, error) {
	number, err := newInvoiceNumber(ctx, repo, now)
	if err != nil {
		return nil, err
	}
	invoice := &models.RentInvoice{
		LeaseID:       lease.ID,
		TenantID:      lease.TenantID,
		InvoiceNumber: number,
		InvoiceDate:   models.Day(now),
		DueDate:       start.AddDate(0, 0, models.InvoiceDueDay-1),
		PeriodStart:   start,
		PeriodEnd:     end,
		BaseRent:      money.Round(lease.RentAmount),
		Status:        status,
	}
	invoice.Recalculate()
	if err := repo.Create(ctx, invoice); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return invoice, nil
}

func newInvoiceNumber(ctx context.Context, repo repository.InvoiceRepository, at time.Time) (string, error) {
	for i := 0; i < invoiceNumberAttempts; i++ {
		number := models.NewInvoiceNumber(at)
		exists, err := repo.InvoiceNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique invoice number after %d attempts", invoiceNumberAttempts)
}

func (s *InvoiceService) List(ctx context.Context, viewer models.Viewer, query *repository.ListQuery) ([]models.RentInvoice, int64, error) {
	return s.invoices.List(ctx, repository.InvoiceVisibility(viewer), query)
}

func (s *InvoiceService) Get(ctx context.Context, id uint, viewer models.Viewer) (*models.RentInvoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !canViewLease(&invoice.Lease, viewer) {
		return nil, ErrNotFound
	}
	return invoice, nil
}

// Today is the calendar day used for overdue figures in responses.
func (s *InvoiceService) Today() time.Time {
	return models.Day(s.now())
}

// GenerateMonthly issues one invoice per active lease overlapping the month.
// Existing invoices are left alone unless Force is set, in which case their
// amounts and due date are refreshed. Cancelled invoices are never touched
// and a refresh may not drop the total below what has been paid.
func (s *InvoiceService) GenerateMonthly(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	now := s.now()
	year, month := opts.Year, time.Month(opts.Month)
	if opts.Month == 0 || opts.Year == 0 {
		next := models.AddMonths(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), 1)
		if opts.Year == 0 {
			year = next.Year()
		}
		if opts.Month == 0 {
			month = next.Month()
		}
	}
	if month < time.January || month > time.December {
		return nil, invalid("month", "must be between 1 and 12")
	}
	start, end := models.MonthRange(year, month)

	leases, err := s.leases.FindActiveOverlapping(ctx, start, end)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{
		PeriodStart: start.Format(models.DateLayout),
		PeriodEnd:   end.Format(models.DateLayout),
		DryRun:      opts.DryRun,
	}
	for i := range leases {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		lease := &leases[i]
		result.Leases++

		outcome, err := s.generateOne(ctx, lease, start, end, opts, now)
		if err != nil {
			result.Failed++
			logger.Error("failed to generate invoice", "lease_id", lease.ID, "period", result.PeriodStart, "error", err)
			continue
		}
		switch outcome {
		case "created":
			result.Created++
			if !opts.DryRun {
				metrics.InvoicesGenerated.Inc()
			}
		case "updated":
			result.Updated++
		default:
			result.Skipped++
		}
	}

	logger.Info("monthly invoices generated",
		"period", result.PeriodStart, "leases", result.Leases, "created", result.Created,
		"updated", result.Updated, "skipped", result.Skipped, "failed", result.Failed, "dry_run", opts.DryRun)
	return result, nil
}

func (s *InvoiceService) generateOne(ctx context.Context, lease *models.Lease, start, end time.Time, opts GenerateOptions, now time.Time) (string, error) {
	outcome := "skipped"
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.invoices.FindByLeaseAndPeriod(ctx, lease.ID, start, end)
		if err != nil && !repository.IsNotFound(err) {
			return err
		}

		if err != nil {
			outcome = "created"
			if opts.DryRun {
				return nil
			}
			invoice, err := issueInvoice(ctx, s.invoices, lease, start, end, models.InvoiceStatusDraft, now)
			if err != nil {
				return err
			}
			return s.auditSvc.Record(ctx, SystemViewer, models.AuditGenerate, "RentInvoice", invoice.ID,
				fmt.Sprintf("%s for lease %d, %s", invoice.InvoiceNumber, lease.ID, money.Format(invoice.TotalAmount)))
		}

		if !opts.Force || existing.Status == models.InvoiceStatusCancelled {
			return nil
		}
		invoice := existing
		if !opts.DryRun {
			if invoice, err = s.invoices.FindByIDForUpdate(ctx, existing.ID); err != nil {
				return err
			}
		}
		invoice.BaseRent = money.Round(lease.RentAmount)
		invoice.DueDate = start.AddDate(0, 0, models.InvoiceDueDay-1)
		invoice.Recalculate()
		if invoice.TotalAmount.LessThan(invoice.AmountPaid) {
			return invalid("total_amount", "invoice %s would total %s, below the %s already paid",
				invoice.InvoiceNumber, money.Format(invoice.TotalAmount), money.Format(invoice.AmountPaid))
		}
		outcome = "updated"
		if opts.DryRun {
			return nil
		}
		invoice.ApplyStatus(now)
		return s.invoices.Update(ctx, invoice)
	})
	return outcome, err
}

// Send issues a draft invoice to its tenant.
func (s *InvoiceService) Send(ctx context.Context, id uint, actor models.Viewer) (*models.RentInvoice, error) {
	var invoice *models.RentInvoice
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.invoices.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		lease, err := s.leases.FindByID(ctx, locked.LeaseID)
		if err != nil {
			return err
		}
		if !canManageProperty(&lease.Property, actor) {
			return ErrPermissionDenied
		}
		if locked.Status != models.InvoiceStatusDraft {
			return &TransitionError{Entity: "invoice", From: locked.Status, Action: "send"}
		}
		locked.Status = models.InvoiceStatusSent
		locked.ApplyStatus(s.now())
		if err := s.invoices.Update(ctx, locked); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditSend, "RentInvoice", locked.ID, locked.InvoiceNumber)
	})
	if err != nil {
		return nil, err
	}

	invoice, err = s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.email != nil && invoice.Tenant.Email != "" {
		issued := *invoice
		background(s.worker, func(ctx context.Context) error {
			return s.email.SendInvoiceIssued(ctx, &issued)
		})
	}
	return invoice, nil
}

func (s *InvoiceService) leaseFor(ctx context.Context, leaseID uint, actor models.Viewer) (*models.Lease, error) {
	lease, err := s.leases.FindByID(ctx, leaseID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canManageProperty(&lease.Property, actor) {
		if canViewLease(lease, actor) {
			return nil, ErrPermissionDenied
		}
		return nil, ErrNotFound
	}
	return lease, nil
}

// LateFeeConfig returns the lease's late fee configuration.
func (s *InvoiceService) LateFeeConfig(ctx context.Context, leaseID uint, actor models.Viewer) (*models.LateFeeConfig, error) {
	if _, err := s.leaseFor(ctx, leaseID, actor); err != nil {
		return nil, err
	}
	cfg, err := s.leases.FindLateFeeConfig(ctx, leaseID)
	if err != nil {
		return nil, notFound(err)
	}
	return cfg, nil
}

// SaveLateFeeConfig creates or replaces the lease's late fee configuration.
func (s *InvoiceService) SaveLateFeeConfig(ctx context.Context, leaseID uint, input LateFeeConfigInput, actor models.Viewer) (*models.LateFeeConfig, error) {
	if _, err := s.leaseFor(ctx, leaseID, actor); err != nil {
		return nil, err
	}
	if !models.ValidLateFeeType(input.FeeType) {
		return nil, invalid("fee_type", "must be fixed, percentage or daily")
	}
	if input.Amount.IsNegative() {
		return nil, invalid("amount", "must not be negative")
	}
	if input.FeeType == models.LateFeePercentage && input.Amount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, invalid("amount", "percentage cannot exceed 100")
	}
	if input.MaxLateFee != nil && input.MaxLateFee.IsNegative() {
		return nil, invalid("max_late_fee", "must not be negative")
	}

	cfg, err := s.leases.FindLateFeeConfig(ctx, leaseID)
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, err
		}
		cfg = &models.LateFeeConfig{LeaseID: leaseID, GracePeriodDays: 5, IsActive: true}
	}
	cfg.FeeType = input.FeeType
	cfg.Amount = money.Round(input.Amount)
	cfg.MaxLateFee = input.MaxLateFee
	if input.GracePeriodDays != nil {
		if *input.GracePeriodDays < 0 {
			return nil, invalid("grace_period_days", "must not be negative")
		}
		cfg.GracePeriodDays = *input.GracePeriodDays
	}
	if input.IsActive != nil {
		cfg.IsActive = *input.IsActive
	}
	if err := s.leases.SaveLateFeeConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyLateFees accrues late fees on past-due invoices. The fee on an
// invoice only ever grows.
func (s *InvoiceService) ApplyLateFees(ctx context.Context, opts LateFeeOptions) (*LateFeeResult, error) {
	if opts.GracePeriod != nil && *opts.GracePeriod < 0 {
		return nil, invalid("grace_period", "must not be negative")
	}
	if opts.MaxLateFee != nil && opts.MaxLateFee.IsNegative() {
		return nil, invalid("max_late_fee", "must not be negative")
	}

	today := models.Day(s.now())
	candidates, err := s.invoices.FindLateFeeCandidates(ctx, today)
	if err != nil {
		return nil, err
	}

	result := &LateFeeResult{DryRun: opts.DryRun, IDs: []uint{}}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		fee, ok := requiredLateFee(&candidate, today, opts)
		if !ok {
			result.Skipped++
			continue
		}
		if opts.DryRun {
			result.Applied++
			result.IDs = append(result.IDs, candidate.ID)
			continue
		}

		applied, err := s.applyLateFee(ctx, candidate.ID, fee, today)
		if err != nil {
			result.Failed++
			logger.Error("failed to apply late fee", "invoice_id", candidate.ID, "error", err)
			continue
		}
		if applied {
			result.Applied++
			result.IDs = append(result.IDs, candidate.ID)
			metrics.LateFeesApplied.Inc()
		} else {
			result.Skipped++
		}
	}

	logger.Info("late fees applied", "checked", result.Checked, "applied", result.Applied,
		"skipped", result.Skipped, "failed", result.Failed, "dry_run", opts.DryRun)
	return result, nil
}

// requiredLateFee computes the fee an invoice should carry today, and
// whether that raises the fee or the status.
func requiredLateFee(invoice *models.RentInvoice, today time.Time, opts LateFeeOptions) (decimal.Decimal, bool) {
	cfg := invoice.Lease.LateFeeConfig
	if cfg == nil || !cfg.IsActive {
		return decimal.Zero, false
	}
	grace := cfg.GracePeriodDays
	if opts.GracePeriod != nil {
		grace = *opts.GracePeriod
	}
	if opts.MaxLateFee != nil {
		// The sweep's ceiling replaces the lease's own maximum.
		override := *cfg
		override.MaxLateFee = opts.MaxLateFee
		cfg = &override
	}
	fee := cfg.Calculate(invoice.BaseRent, invoice.DaysOverdue(today), grace)
	if opts.MaxLateFee != nil {
		fee = money.Min(fee, *opts.MaxLateFee)
	}
	fee = money.Max(fee, invoice.LateFee)
	if fee.Equal(invoice.LateFee) && invoice.Status == models.InvoiceStatusOverdue {
		return fee, false
	}
	return fee, true
}

func (s *InvoiceService) applyLateFee(ctx context.Context, id uint, fee decimal.Decimal, today time.Time) (bool, error) {
	applied := false
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if invoice.Status != models.InvoiceStatusSent && invoice.Status != models.InvoiceStatusOverdue {
			return nil
		}
		if !invoice.BalanceDue().IsPositive() {
			return nil
		}

		previous := invoice.LateFee
		invoice.LateFee = money.Max(previous, fee)
		invoice.Recalculate()
		invoice.Status = models.InvoiceStatusOverdue
		if err := s.invoices.Update(ctx, invoice); err != nil {
			return err
		}
		applied = true
		if invoice.LateFee.Equal(previous) {
			return nil
		}
		return s.auditSvc.Record(ctx, SystemViewer, models.AuditLateFee, "RentInvoice", invoice.ID,
			fmt.Sprintf("late fee %s -> %s", money.Format(previous), money.Format(invoice.LateFee)))
	})
	return applied, err
}
