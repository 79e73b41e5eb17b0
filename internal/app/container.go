// Package app assembles the repositories and services shared by the HTTP server and the sweep CLI.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/repository"
	"github.com/noah-isme/campus-lab-api/internal/service"
	"github.com/noah-isme/campus-lab-api/pkg/cache"
	"github.com/noah-isme/campus-lab-api/pkg/config"
	"github.com/noah-isme/campus-lab-api/pkg/database"
	"github.com/noah-isme/campus-lab-api/pkg/export"
	"github.com/noah-isme/campus-lab-api/pkg/jobs"
)

// Container holds the wired application graph.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Campuses *repository.CampusRepository
	Queue    *jobs.Queue
	Metrics  *service.MetricsService

	Auth          *service.AuthService
	Audit         *service.AuditService
	Incidents     *service.IncidentService
	Maintenance   *service.MaintenanceService
	Equipment     *service.EquipmentService
	Notifications *service.NotificationService
	Automation    *service.AutomationService
}

// New connects to Postgres and Redis and builds every service. The notifier queue is created but not started.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: redisClient}
	c.wire()
	return c, nil
}

func (c *Container) wire() {
	cfg, logger := c.Config, c.Logger
	validate := validator.New()
	tx := repository.NewTransactor(c.DB)

	users := repository.NewUserRepository(c.DB)
	c.Campuses = repository.NewCampusRepository(c.DB)
	equipment := repository.NewEquipmentRepository(c.DB)
	incidents := repository.NewIncidentRepository(c.DB)
	maintenance := repository.NewMaintenanceRepository(c.DB)
	notifications := repository.NewNotificationRepository(c.DB)
	audits := repository.NewAuditRepository(c.DB)

	c.Metrics = service.NewMetricsService()

	var cacheSvc *service.CacheService
	if c.Redis != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(c.Redis), c.Metrics, cfg.Cache.TTL, logger, cfg.Cache.Enabled)
	}

	notifier := service.NewNotifier(cfg.Notifier, logger)
	c.Queue = jobs.NewQueue("notifier", service.NewDispatchHandler(notifier, c.Metrics, logger), jobs.QueueConfig{
		Workers:    cfg.Notifier.Workers,
		BufferSize: cfg.Notifier.BufferSize,
		MaxRetries: cfg.Notifier.MaxRetries,
		RetryDelay: cfg.Notifier.RetryDelay,
		Logger:     logger,
	})

	c.Auth = service.NewAuthService(users, tx, validate, logger, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	c.Audit = service.NewAuditService(audits, logger, export.NewCSVExporter(), export.NewPDFExporter())
	c.Incidents = service.NewIncidentService(incidents, c.Campuses, equipment, c.Audit, tx, c.Metrics, validate, logger)
	c.Maintenance = service.NewMaintenanceService(maintenance, incidents, equipment, c.Audit, tx, c.Metrics, validate, logger)
	c.Equipment = service.NewEquipmentService(equipment, c.Audit, tx, c.Metrics, logger)
	c.Notifications = service.NewNotificationService(notifications, cacheSvc, logger)
	c.Automation = service.NewAutomationService(service.AutomationDeps{
		Notifications: notifications,
		Equipment:     equipment,
		Incidents:     incidents,
		Maintenance:   maintenance,
		Campuses:      c.Campuses,
		Tx:            tx,
		Queue:         c.Queue,
		Cache:         cacheSvc,
		Metrics:       c.Metrics,
		Logger:        logger,
	})
}

// Close releases the database and Redis connections.
func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
