package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/core/api"
	"github.com/solatis/promokeeper/internal/core/auth"
	"github.com/solatis/promokeeper/internal/core/config"
	"github.com/solatis/promokeeper/internal/core/db"
	"github.com/solatis/promokeeper/internal/core/metrics"
	"github.com/solatis/promokeeper/internal/core/server"
	"github.com/solatis/promokeeper/internal/core/tracing"
	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC promotion API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().Int("metrics-port", 9090, "Prometheus /metrics port (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	cfg := e.cfg

	if cmd.Flags().Changed("host") {
		cfg.API.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.API.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("metrics-port") {
		cfg.API.MetricsPort, _ = cmd.Flags().GetInt("metrics-port")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	queries, closeDB, err := e.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	secrets, err := config.HMACSecrets()
	if err != nil {
		return errors.Wrap(err, "failed to load HMAC secrets")
	}
	if len(secrets) == 0 {
		return errors.Wrap(auth.ErrNoSecrets, "set PK_HMAC_SECRET environment variable")
	}

	cat, err := e.openCatalog()
	if err != nil {
		return err
	}

	audit, err := api.NewAuditLog(filepath.Join(cfg.API.DataDir, "audit"), e.log)
	if err != nil {
		return errors.Wrap(err, "failed to open audit log")
	}

	tp := tracing.Disabled()
	if cfg.Tracing.Enabled {
		tp, err = tracing.New(cfg.Tracing.ServiceName, Version, os.Stdout)
		if err != nil {
			return err
		}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			e.log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	m := metrics.New()
	promotions := db.NewPromotionRepository(queries, "")
	repos := func(tenantID string) promotion.Repository { return promotions.ForTenant(tenantID) }
	authenticator := auth.NewAuthenticator(secrets, db.NewAPIKeyStore(queries), e.log)

	service, err := api.NewPromotionService(ctx, repos, cat,
		api.WithLogger(e.log),
		api.WithMetrics(m),
		api.WithAuditLog(audit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create service")
	}

	grpcServer, err := server.NewGRPCServer(&cfg.API, service, authenticator,
		server.WithLogger(e.log),
		server.WithMetrics(m),
		server.WithTracer(tp.Tracer()),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	e.log.Info().
		Str("version", Version).
		Str("host", cfg.API.Host).
		Int("port", cfg.API.Port).
		Int("metrics_port", cfg.API.MetricsPort).
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("starting promotion API")

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		e.log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		return grpcServer.Shutdown(ctx)
	}
}
