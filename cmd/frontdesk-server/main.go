package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/config"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/service"
	sqlitestore "github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store/sqlite"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/httpapi"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/logger"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/metrics"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/photo"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	purgeOnce := flag.Bool("purge-once", false, "run one retention purge and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "frontdesk-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *purgeOnce); err != nil {
		log.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger, purgeOnce bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env}, log)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer conn.Close()

	gw := db.NewGateway(conn, log)
	defer gw.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			return fmt.Errorf("seed dev data: %w", err)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	retention := service.NewRetentionJob(sqlitestore.NewRetentionStore(gw), gw, service.RetentionConfig{
		RetentionYears: cfg.RetentionYears,
		IntervalHours:  cfg.RetentionIntervalHours,
	}, m, log.Named("retention"))

	if purgeOnce {
		res := retention.RunOnce(ctx)
		if res.Err != "" {
			return errors.New(res.Err)
		}
		return nil
	}

	photos, uploadDir, err := photoStore(cfg)
	if err != nil {
		return err
	}

	// Services
	visits := service.NewVisitService(sqlitestore.NewVisitorStore(gw), gw, photos, m, log.Named("visits"))
	roster := service.NewRosterService(sqlitestore.NewRosterStore(gw, log), photos, log.Named("roster"))

	if cfg.AdminPassword == "" {
		log.Warn("FRONTDESK_ADMIN_PASSWORD is not set; ban, unban and admin routes will reject every request")
	}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         log.Named("http"),
		Addr:           cfg.HTTPAddr,
		CORSOrigins:    cfg.CORSOrigins,
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Visits:         visits,
		Roster:         roster,
		Retention:      retention,
		Audit:          gw,
		AdminGate:      service.NewAdminGate(cfg.AdminPassword),
		HistoryGate:    service.NewAdminGate(cfg.HistoryPassword),
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
		Health:         gw.Ping,
	})

	if cfg.RetentionYears > 0 {
		retention.Start(ctx)
		defer retention.Stop()
	} else {
		log.Warn("data retention purge disabled")
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// photoStore returns the configured photo backend and, for the local
// backend, the directory to serve under /uploads.
func photoStore(cfg config.Config) (photo.Store, string, error) {
	if cfg.PhotoBackend == "s3" {
		s, err := photo.NewS3Store(photo.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
			MaxBytes:  cfg.MaxUploadBytes(),
		})
		if err != nil {
			return nil, "", fmt.Errorf("s3 photo store: %w", err)
		}
		return s, "", nil
	}

	s, err := photo.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL+"/uploads", cfg.MaxUploadBytes())
	if err != nil {
		return nil, "", fmt.Errorf("local photo store: %w", err)
	}
	return s, s.Dir(), nil
}
