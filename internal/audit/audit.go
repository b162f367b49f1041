// Package audit records administrative actions in the admin_audit_log table.
//
// The log is written through gorm rather than the pgx repositories: it is an
// append-only side table whose schema gorm owns via AutoMigrate.
package audit

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Actions recorded by the admin API.
const (
	ActionCustomerUpdate    = "customer.update"
	ActionCustomerDelete    = "customer.delete"
	ActionOrderStatusUpdate = "order.status_update"
	ActionOrderDelete       = "order.delete"
)

// Limits for List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Entry is one recorded admin action.
type Entry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Actor      string    `gorm:"size:255;not null;index" json:"actor"`
	Action     string    `gorm:"size:64;not null" json:"action"`
	TargetType string    `gorm:"size:32;not null" json:"targetType"`
	TargetID   int64     `gorm:"not null" json:"targetId"`
	Detail     string    `gorm:"size:255" json:"detail,omitempty"`
	IPAddress  string    `gorm:"size:64" json:"ipAddress"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

// TableName implements gorm's tabler interface.
func (Entry) TableName() string { return "admin_audit_log" }

// Open connects gorm to PostgreSQL, logging slow queries and errors through lg.
func Open(databaseURL string, lg *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.New(zap.NewStdLog(lg.Named("gorm")), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open gorm")
	}
	return db, nil
}

// Log reads and writes audit entries.
type Log struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a Log over db.
func New(db *gorm.DB) *Log {
	return &Log{db: db, now: time.Now}
}

// Migrate creates or updates the audit table.
func (l *Log) Migrate(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return errors.Wrap(err, "migrate audit log")
	}
	return nil
}

// Record appends an entry. CreatedAt is set when zero.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}
	if err := l.db.WithContext(ctx).Create(&e).Error; err != nil {
		return errors.Wrapf(err, "record %s", e.Action)
	}
	return nil
}

// List returns up to limit entries, newest first. Non-positive limits use
// DefaultListLimit; limits above MaxListLimit are clamped.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	var entries []Entry
	err := l.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "list audit log")
	}
	return entries, nil
}

// Ping checks the underlying connection.
func (l *Log) Ping(ctx context.Context) error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return errors.Wrap(err, "audit db handle")
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (l *Log) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return errors.Wrap(err, "audit db handle")
	}
	return sqlDB.Close()
}
