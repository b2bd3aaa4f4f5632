package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	pkgLogger "github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/go-redis/redis/v8"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to the PostgreSQL database. SQL is
// logged at info level when verbose is set; slow queries always warn.
func Connect(databaseURL string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if verbose {
		logLevel = logger.Info
	}

	gormLogger := pkgLogger.NewGormLogger(
		logLevel,
		200*time.Millisecond,
	)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.RefreshToken{},
		&models.Customer{},
		&models.Property{},
		&models.Room{},
		&models.Booking{},
		&models.Lease{},
		&models.RentInvoice{},
		&models.LateFeeConfig{},
		&models.Payment{},
		&models.PaymentAudit{},
		&models.PaymentTransaction{},
		&models.PropertyVisitPayment{},
		&models.ReminderTemplate{},
		&models.ReminderSettings{},
		&models.ReminderSchedule{},
		&models.Reminder{},
		&models.ReminderLog{},
		&models.Notification{},
		&models.AuditLog{},
	}
}

// AutoMigrate creates or extends the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Ping reports whether the database answers within ctx.
func Ping(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// ConnectRedis opens the optional redis client. An empty URL returns nil,
// nil and callers fall back to in-process locks and caches.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
