// Command jobs runs the periodic maintenance jobs once. An external
// scheduler (cron, Kubernetes CronJob) decides when.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/database"
	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/Intruder289/maishaap-backend-sub002/internal/storage"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
)

const (
	exitOK            = 0
	exitFailure       = 1
	exitMisconfigured = 2
)

// executeFunc runs one named job and returns its result.
type executeFunc func(ctx context.Context, name string, params services.JobParams) (any, error)

// app carries what the sub-commands need. open is replaced in tests.
type app struct {
	stdout io.Writer
	open   func(ctx context.Context) (executeFunc, func(), error)
}

// usageError marks bad flags so they exit as misconfiguration.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	a := &app{stdout: os.Stdout, open: bootstrap}
	root := newRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if code == exitFailure {
		sentry.CaptureException(err)
		sentry.Flush(5 * time.Second)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(code)
}

// exitCode maps a command error onto the process exit status.
func exitCode(err error) int {
	var (
		cfgErr   *config.ConfigurationError
		usage    *usageError
		validErr *services.ValidationError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr), errors.As(err, &usage), errors.As(err, &validErr), errors.Is(err, services.ErrValidation):
		return exitMisconfigured
	default:
		return exitFailure
	}
}

// bootstrap wires the same stack the API uses, logging to stderr so the
// per-row report on stdout stays clean.
func bootstrap(ctx context.Context) (executeFunc, func(), error) {
	cfg := config.Load()
	logger.SetupWriter(cfg.Environment, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Environment}); err != nil {
			logger.Warn("Sentry initialization failed", "error", err)
		}
	}

	db, err := database.Connect(cfg.DatabaseURL, false)
	if err != nil {
		return nil, nil, err
	}
	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}

	worker := jobs.NewWorker(cfg.WorkerConcurrency)
	svcs := services.NewServices(repository.NewRepositories(db), worker, store, cfg, redisClient)

	cleanup := func() {
		// Let queued emails and notifications finish before exiting.
		worker.Shutdown()
		if redisClient != nil {
			redisClient.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return svcs.Job.Execute, cleanup, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "jobs",
		Short:         "Run a periodic maintenance job once",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(
		cancelExpiredCmd(a),
		generateInvoicesCmd(a),
		applyLateFeesCmd(a),
		sendRemindersCmd(a),
		syncRoomsCmd(a),
		createTemplatesCmd(a),
	)
	return root
}

// run executes a job and prints its report.
func (a *app) run(cmd *cobra.Command, name string, params services.JobParams) error {
	ctx := cmd.Context()
	execute, cleanup, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	result, err := execute(ctx, name, params)
	if errors.Is(err, jobs.ErrLocked) {
		fmt.Fprintf(a.stdout, "%s: another run holds the lock, skipped\n", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	report(a.stdout, name, result)
	logger.Info("job finished", "job", name, "elapsed", time.Since(start).String())
	return nil
}

func cancelExpiredCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   services.JobCancelExpiredBookings,
		Short: "Cancel pending bookings whose payment window has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, services.JobCancelExpiredBookings, services.JobParams{DryRun: dryRun})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

func generateInvoicesCmd(a *app) *cobra.Command {
	var (
		month, year   int
		force, dryRun bool
	)
	cmd := &cobra.Command{
		Use:   services.JobGenerateRentInvoices,
		Short: "Issue the monthly rent invoice of every active lease",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, services.JobGenerateRentInvoices, services.JobParams{
				Month: month, Year: year, Force: force, DryRun: dryRun,
			})
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().BoolVar(&force, "force", false, "rebuild draft invoices that already exist")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

func applyLateFeesCmd(a *app) *cobra.Command {
	var (
		dryRun      bool
		maxLateFee  string
		gracePeriod int
	)
	cmd := &cobra.Command{
		Use:   services.JobApplyLateFees,
		Short: "Add late fees to overdue rent invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := services.JobParams{DryRun: dryRun}
			if cmd.Flags().Changed("max-late-fee") {
				fee, err := decimal.NewFromString(maxLateFee)
				if err != nil {
					return &usageError{err: fmt.Errorf("--max-late-fee: %w", err)}
				}
				params.MaxLateFee = &fee
			}
			if cmd.Flags().Changed("grace-period") {
				params.GracePeriod = &gracePeriod
			}
			return a.run(cmd, services.JobApplyLateFees, params)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	cmd.Flags().StringVar(&maxLateFee, "max-late-fee", "", "maximum fee per invoice, replacing the lease setting")
	cmd.Flags().IntVar(&gracePeriod, "grace-period", 0, "days after due before a fee applies")
	return cmd
}

func sendRemindersCmd(a *app) *cobra.Command {
	var (
		reminderType  string
		propertyID    uint
		dryRun, force bool
	)
	cmd := &cobra.Command{
		Use:   services.JobSendRentReminders,
		Short: "Send the rent reminders due today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reminderType != "" && !models.ValidReminderType(reminderType) {
				return &usageError{err: fmt.Errorf("--reminder-type must be email, sms or push")}
			}
			params := services.JobParams{ReminderType: reminderType, DryRun: dryRun, Force: force}
			if cmd.Flags().Changed("property-id") {
				params.PropertyID = &propertyID
			}
			return a.run(cmd, services.JobSendRentReminders, params)
		},
	}
	cmd.Flags().StringVar(&reminderType, "reminder-type", "", "only this channel: email, sms or push")
	cmd.Flags().UintVar(&propertyID, "property-id", 0, "only this property")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without sending")
	cmd.Flags().BoolVar(&force, "force", false, "ignore the property schedule and same-day runs")
	return cmd
}

func syncRoomsCmd(a *app) *cobra.Command {
	var (
		propertyID uint
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   services.JobSyncRoomStatus,
		Short: "Recompute room status from bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := services.JobParams{DryRun: dryRun}
			if cmd.Flags().Changed("property-id") {
				params.PropertyID = &propertyID
			}
			return a.run(cmd, services.JobSyncRoomStatus, params)
		},
	}
	cmd.Flags().UintVar(&propertyID, "property-id", 0, "only this property")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

func createTemplatesCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   services.JobCreateReminderTemplates,
		Short: "Seed the default reminder templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, services.JobCreateReminderTemplates, services.JobParams{DryRun: dryRun})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}
