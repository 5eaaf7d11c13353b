// Package app wires configuration, infrastructure and domain services
// together for the server and the operator CLI.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/domain/cart"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"github.com/your-org/storefront-membership/internal/infrastructure/commerce"
	"github.com/your-org/storefront-membership/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-membership/internal/infrastructure/database/redis"
	httpserver "github.com/your-org/storefront-membership/internal/interfaces/http"
	"github.com/your-org/storefront-membership/internal/interfaces/http/routes"
	"github.com/your-org/storefront-membership/internal/pkg/auth"
	"github.com/your-org/storefront-membership/internal/pkg/email"
	"github.com/your-org/storefront-membership/internal/pkg/metrics"
	"github.com/your-org/storefront-membership/internal/pkg/pdf"
)

// App holds every long-lived dependency of the service
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	DB      *postgres.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics

	JWT        *auth.JWTManager
	Email      *email.EmailService
	PDF        *pdf.Service
	Membership *membership.Service
	Analytics  *analytics.Service
	Cart       *cart.Service
}

// New connects to postgres and redis and builds the domain services
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		return nil, err
	}

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	services, err := loadServiceMap(cfg)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Redis:   redisClient,
		Metrics: metrics.New(cfg.Metrics.Namespace),
		JWT:     auth.NewJWTManager(cfg.JWT),
		Email:   email.NewEmailService(cfg, log.WithField("component", "email")),
		PDF:     pdf.NewService(cfg),
	}

	repo := membership.NewCachedRepository(
		membership.NewGormRepository(db.GetDB()),
		redisClient.GetClient(),
		cfg.Membership.CacheTTL,
		log.WithField("component", "membership_cache"),
	)
	validator := membership.NewValidator(cfg.Membership.RenewalWindow)

	a.Analytics = analytics.NewService(
		analytics.NewGormStore(db.GetDB()),
		analytics.NewSink(cfg.Analytics, redisClient.GetClient()),
		repo,
		cfg,
		a.Metrics,
		log.WithField("component", "analytics"),
	)

	a.Membership = membership.NewService(
		repo,
		membership.PlanFromConfig(cfg),
		validator,
		a.Analytics,
		a.Email,
		log.WithField("component", "membership"),
	)

	aggregator := cart.NewAggregator(cart.AggregatorConfig{
		Memberships:          repo,
		Services:             services,
		Validator:            validator,
		StandardDeliveryCost: cfg.Membership.StandardDeliveryCost,
		DefaultCurrency:      cfg.Commerce.DefaultCurrency,
		Metrics:              a.Metrics,
		Logger:               log.WithField("component", "benefits"),
	})

	a.Cart = cart.NewService(
		commerce.NewClient(cfg.Commerce, log.WithField("component", "commerce")),
		aggregator,
		a.Analytics,
		log.WithField("component", "cart"),
	)

	return a, nil
}

// Server builds the HTTP server
func (a *App) Server() *httpserver.Server {
	deps := routes.Dependencies{
		JWT:        a.JWT,
		Membership: a.Membership,
		Cart:       a.Cart,
		Analytics:  a.Analytics,
		Renderer:   a.PDF,
		Logger:     a.Log,
	}
	checks := map[string]httpserver.HealthChecker{
		"database": a.DB,
		"redis":    a.Redis,
	}
	return httpserver.NewServer(a.Config, deps, checks, a.Redis.GetClient(), a.Metrics, a.Log)
}

// Migrate runs schema migrations, and seeds demo data when seed is set
func (a *App) Migrate(ctx context.Context, seed bool) error {
	migration := postgres.NewMigration(a.DB.GetDB(), a.Log)

	if err := migration.RunAutoMigrations(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		a.Log.WithError(err).Warn("Index creation failed")
	}

	if seed {
		if err := migration.SeedInitialData(ctx, membership.PlanFromConfig(a.Config)); err != nil {
			a.Log.WithError(err).Warn("Data seeding failed")
		}
		for table, rows := range migration.GetTableInfo() {
			a.Log.WithFields(logrus.Fields{"table": table, "rows": rows}).Info("Table info")
		}
	}
	return nil
}

// Close waits for in-flight analytics forwarding and closes connections
func (a *App) Close() {
	a.Analytics.Flush()
	if err := a.Redis.Close(); err != nil {
		a.Log.WithError(err).Warn("Failed to close redis")
	}
	if err := a.DB.Close(); err != nil {
		a.Log.WithError(err).Warn("Failed to close database")
	}
}

func loadServiceMap(cfg *config.Config) (membership.ServiceMap, error) {
	if cfg.Membership.ServiceMapFile == "" {
		return membership.DefaultServiceMap(), nil
	}
	services, err := membership.LoadServiceMap(cfg.Membership.ServiceMapFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load service map: %w", err)
	}
	return services, nil
}
