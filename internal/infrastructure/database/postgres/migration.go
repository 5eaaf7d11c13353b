// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("🔄 Running database auto-migrations...")

	models := []interface{}{
		&membership.Membership{},
		&analytics.Event{},
	}

	for _, model := range models {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("✅ Database auto-migrations completed successfully")
	return nil
}

var indexes = []string{
	// Membership indexes
	"CREATE INDEX IF NOT EXISTS idx_memberships_customer_expiration ON memberships(customer_id, expiration_date DESC)",
	"CREATE INDEX IF NOT EXISTS idx_memberships_status_expiration ON memberships(status, expiration_date)",

	// Analytics event indexes
	"CREATE INDEX IF NOT EXISTS idx_analytics_events_customer_type ON membership_analytics_events(customer_id, type, timestamp)",
	"CREATE INDEX IF NOT EXISTS idx_analytics_events_type_timestamp ON membership_analytics_events(type, timestamp)",
	"CREATE INDEX IF NOT EXISTS idx_analytics_events_data ON membership_analytics_events USING GIN (data)",
}

// CreateIndexes creates additional indexes for the report queries
func (m *Migration) CreateIndexes() error {
	m.log.Info("🔄 Creating additional database indexes...")

	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	m.log.Info("✅ Database indexes created successfully")
	return nil
}

// SeedInitialData creates a demo membership for local development
func (m *Migration) SeedInitialData(ctx context.Context, plan membership.Plan) error {
	repo := membership.NewGormRepository(m.db)

	_, err := repo.FindByCustomerID(ctx, "demo-customer")
	if err == nil {
		return nil
	}
	if !errors.Is(err, membership.ErrMembershipNotFound) {
		return err
	}

	now := time.Now().UTC()
	demo := &membership.Membership{
		ID:             "00000000-0000-0000-0000-000000000001",
		CustomerID:     "demo-customer",
		Status:         membership.StatusActive,
		StartDate:      now,
		ExpirationDate: now.Add(plan.Term),
		PaymentStatus:  membership.PaymentPaid,
		Benefits:       plan.Benefits(),
	}
	if err := repo.Save(ctx, demo); err != nil {
		return fmt.Errorf("failed to seed demo membership: %w", err)
	}

	m.log.WithField("customer_id", demo.CustomerID).Info("🌱 Seeded demo membership")
	return nil
}

// GetTableInfo logs row counts of the service tables
func (m *Migration) GetTableInfo() map[string]int64 {
	counts := make(map[string]int64)
	for _, table := range []string{"memberships", "membership_analytics_events"} {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			m.log.WithError(err).WithField("table", table).Warn("Failed to count table rows")
			continue
		}
		counts[table] = count
		m.log.WithFields(logrus.Fields{"table": table, "rows": count}).Info("📊 Table info")
	}
	return counts
}
