package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/physiokit/portal-api/config"
	"github.com/physiokit/portal-api/internal/email"
	"github.com/physiokit/portal-api/internal/handler"
	accesshandler "github.com/physiokit/portal-api/internal/handler/access"
	authhandler "github.com/physiokit/portal-api/internal/handler/auth"
	clinichandler "github.com/physiokit/portal-api/internal/handler/clinic"
	patienthandler "github.com/physiokit/portal-api/internal/handler/patient"
	"github.com/physiokit/portal-api/internal/middleware"
	"github.com/physiokit/portal-api/internal/repository/postgres"
	"github.com/physiokit/portal-api/internal/router"
	accesssvc "github.com/physiokit/portal-api/internal/service/access"
	"github.com/physiokit/portal-api/internal/service/audit"
	authsvc "github.com/physiokit/portal-api/internal/service/auth"
	clinicsvc "github.com/physiokit/portal-api/internal/service/clinic"
	patientsvc "github.com/physiokit/portal-api/internal/service/patient"
	"github.com/physiokit/portal-api/pkg/auth"
	"github.com/physiokit/portal-api/pkg/logger"
	"github.com/physiokit/portal-api/pkg/messaging/redis"
	"github.com/physiokit/portal-api/pkg/metrics"
	"github.com/physiokit/portal-api/pkg/security"
	"github.com/physiokit/portal-api/pkg/worker"
)

func main() {
	log := logger.NewLogger(&logger.Config{
		Level:  logger.InfoLevel,
		Output: os.Stdout,
	})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("portal", "api")
	middleware.RegisterCustomValidators()

	patientRepo := postgres.NewPatientRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	adminRepo := postgres.NewAdminUserRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditor := audit.NewService(auditRepo, log)

	var notifier accesssvc.Notifier = email.Noop{}
	if cfg.SMTP.Host != "" {
		notifier = email.NewSMTPService(cfg.SMTP, log)
	}

	accessService := accesssvc.NewService(patientRepo, outboxRepo, auditor, notifier, m, log, accesssvc.Config{
		ReportCacheTTL: cfg.Access.ReportCacheTTL,
	})
	patientService := patientsvc.NewService(patientRepo, auditor)
	clinicService := clinicsvc.NewService(clinicRepo, planRepo)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authService := authsvc.NewService(adminRepo, jwtService, security.NewBcryptHasher(0))

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authService),
		authhandler.NewHandler(authService),
		accesshandler.NewHandler(accessService),
		patienthandler.NewHandler(patientService),
		clinichandler.NewHandler(clinicService),
		handler.NewHealthHandler(db),
		router.Config{
			RateLimitRPS: cfg.Server.RateLimitRPS,
			RateBurst:    cfg.Server.RateBurst,
			CORSConfig: middleware.CORSConfig{
				AllowOrigins:     []string{"*"},
				AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
				AllowCredentials: true,
				MaxAge:           300,
			},
			Timeout: 30 * time.Second,
		},
	)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The in-process outbox drain keeps events flowing even when the
	// dedicated worker is not deployed.
	if cfg.Redis.URL != "" {
		broker, err := redis.NewBroker(redis.Config{URL: cfg.Redis.URL}, log)
		if err != nil {
			log.Fatal(err, "failed to connect to redis")
		}
		processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{}, log, m)
		go processor.Start(ctx)
	} else {
		log.Warn("redis url not configured, outbox events will not be published")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "forced shutdown")
	}
	log.Info("server stopped")
}
