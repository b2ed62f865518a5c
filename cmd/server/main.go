package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"checkpoint/internal/attendance"
	attendancehandler "checkpoint/internal/attendance/handler"
	"checkpoint/internal/dailycode"
	"checkpoint/internal/platform/config"
	"checkpoint/internal/platform/httpserver"
	"checkpoint/internal/platform/logger"
	"checkpoint/internal/platform/metrics"
	platformpg "checkpoint/internal/platform/postgres"
	"checkpoint/internal/privacy"
	"checkpoint/internal/retention"
	httptransport "checkpoint/internal/transport/http"
	"checkpoint/migrations"
	"checkpoint/pkg/platform/tx"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := platformpg.Open(cfg.DatabaseURL, migrations.FS)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()

	auditStore := privacy.NewPostgresStore(db)
	publisher := privacy.NewPublisher(cfg.AuditBuffer, privacy.WithPublisherLogger(log), privacy.WithFailureCounter(m))
	auditWorker := privacy.NewWorker(auditStore, publisher, log)
	guard := privacy.NewGuard(cfg.Privacy, privacy.WithLogger(log), privacy.WithPublisher(publisher))

	codes := dailycode.NewService(dailycode.NewPostgresStore(db), dailycode.WithLogger(log))
	recorder := attendance.NewService(
		codes,
		attendance.NewPostgresStore(db),
		tx.NewSQLRunner(db),
		guard,
		attendance.NewPostgresAssignments(db),
		attendance.WithLogger(log),
		attendance.WithMetrics(m),
	)
	scheduler := retention.NewScheduler(auditStore, cfg.RetentionDays,
		retention.WithInterval(cfg.RetentionInterval),
		retention.WithLogger(log),
		retention.WithMetrics(m),
		retention.WithPublisher(publisher),
	)

	h := attendancehandler.New(codes, recorder, log)
	router := httptransport.NewRouter(h, []byte(cfg.JWTSigningKey), cfg.TrackingEnabled, log)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return auditWorker.Run(ctx) })
	group.Go(func() error { return scheduler.Run(ctx) })
	group.Go(func() error {
		log.Info("starting checkpoint", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
