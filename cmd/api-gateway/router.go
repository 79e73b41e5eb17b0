package main

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/campus-lab-api/internal/app"
	"github.com/noah-isme/campus-lab-api/internal/handler"
	"github.com/noah-isme/campus-lab-api/internal/middleware"
	"github.com/noah-isme/campus-lab-api/pkg/config"
	"github.com/noah-isme/campus-lab-api/pkg/database"
	"github.com/noah-isme/campus-lab-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-lab-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-lab-api/pkg/middleware/requestid"
)

func newRouter(c *app.Container) *gin.Engine {
	cfg, logr := c.Config, c.Logger

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, cfg.Automation.SecretHeader))
	r.Use(middleware.Metrics(c.Metrics))

	checks := map[string]handler.Pinger{
		"postgres": func(ctx context.Context) error { return database.Ping(ctx, c.DB) },
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(c.Metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(c.Auth, logr)
	incidentHandler := handler.NewIncidentHandler(c.Incidents, logr)
	maintenanceHandler := handler.NewMaintenanceHandler(c.Maintenance, logr)
	equipmentHandler := handler.NewEquipmentHandler(c.Equipment, logr)
	notificationHandler := handler.NewNotificationHandler(c.Notifications, logr)
	auditHandler := handler.NewAuditHandler(c.Audit, logr)
	automationHandler := handler.NewAutomationHandler(c.Automation, logr)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(c.Auth), authHandler.Logout)

	automation := api.Group("/automation", middleware.AutomationSecret(cfg.Automation))
	automation.POST("/warranty-check", automationHandler.WarrantyCheck)
	automation.POST("/incident-escalation", automationHandler.IncidentEscalation)
	automation.POST("/maintenance-overdue", automationHandler.MaintenanceOverdue)

	secured := api.Group("", middleware.JWT(c.Auth))
	managers := middleware.RequireRoles(middleware.ManagerRoles...)
	labStaff := middleware.RequireRoles(middleware.LabStaffRoles...)

	incidents := secured.Group("/incidents")
	incidents.GET("", incidentHandler.List)
	incidents.POST("", incidentHandler.Create)
	incidents.GET("/:id", incidentHandler.Get)
	incidents.PATCH("/:id/status", incidentHandler.Transition)
	incidents.DELETE("/:id", managers, incidentHandler.Delete)
	incidents.POST("/:id/restore", managers, incidentHandler.Restore)

	maintenance := secured.Group("/maintenance")
	maintenance.GET("", maintenanceHandler.List)
	maintenance.POST("", labStaff, maintenanceHandler.Create)
	maintenance.GET("/:id", maintenanceHandler.Get)
	maintenance.PATCH("/:id/status", maintenanceHandler.Transition)
	maintenance.DELETE("/:id", managers, maintenanceHandler.Delete)
	maintenance.POST("/:id/restore", managers, maintenanceHandler.Restore)

	equipment := secured.Group("/equipment")
	equipment.GET("", equipmentHandler.List)
	equipment.GET("/:id", equipmentHandler.Get)
	equipment.PATCH("/:id/status", labStaff, equipmentHandler.UpdateStatus)

	notifications := secured.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.PATCH("/:id/read", notificationHandler.MarkRead)

	audit := secured.Group("/audit-logs", labStaff)
	audit.GET("", auditHandler.List)
	audit.GET("/export", auditHandler.Export)

	return r
}
