package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/config"
	httpapi "github.com/tbourn/go-interview-backend/internal/http"
	"github.com/tbourn/go-interview-backend/internal/observability"
	"github.com/tbourn/go-interview-backend/internal/repo"
)

const (
	shutdownTimeout     = 15 * time.Second
	idempotencyPurgeJob = "@hourly"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the interview scoring worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply schema migrations before serving")
}

func serve(parent context.Context, cfg config.Config) error {
	logger := cmdLogger("serve")
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)
	if migrateOnStart {
		if err := repo.AutoMigrate(db); err != nil {
			return err
		}
	}

	model, err := newInterviewer(ctx, cfg.AI)
	if err != nil {
		return err
	}

	svc := httpapi.NewServices(db, model, cfg)
	if err := svc.Worker.Start(ctx); err != nil {
		return err
	}
	defer svc.Worker.Stop()

	purge, err := startIdempotencyPurge(db)
	if err != nil {
		return err
	}
	defer func() { <-purge.Stop().Done() }()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, svc, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           httpapi.LiftStreamWriteDeadline(r, cfg.APIBasePath),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("api_base", cfg.APIBasePath).
			Str("version", version).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(sctx)
	// replies outlive their requests and must land before the database closes
	if werr := svc.Streams.Wait(sctx); werr != nil {
		logger.Warn().Err(werr).Msg("in-flight replies not drained")
	}
	return err
}

// startIdempotencyPurge drops expired replay records on a schedule.
func startIdempotencyPurge(db *gorm.DB) (*cron.Cron, error) {
	logger := cmdLogger("idempotency_purge")
	c := cron.New()
	_, err := c.AddFunc(idempotencyPurgeJob, func() {
		n, err := repo.PurgeExpiredIdempotency(context.Background(), db, time.Now().UTC())
		if err != nil {
			logger.Warn().Err(err).Msg("purge expired idempotency records")
			return
		}
		if n > 0 {
			logger.Info().Int64("deleted", n).Msg("purged expired idempotency records")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
