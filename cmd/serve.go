package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logicsquare/konect-query-gateway/internal/logging"
	"github.com/logicsquare/konect-query-gateway/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Register the schema catalog and serve the query API over HTTP",
	Long: `Connect to MongoDB, register every schema in the catalog, and serve the
query API until interrupted.

Endpoints:
  POST /api/query    execute a query against a registered schema
  GET  /api/schemas  list registered schemas and load failures
  GET  /api/health   liveness and registry state`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveDemo bool

func init() {
	serveCmd.Flags().BoolVar(&serveDemo, "demo", false, "Serve from an in-memory store seeded with sample data instead of MongoDB")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var gw *gateway

	var err error

	if serveDemo {
		gw, err = newGatewayWithStore(ctx, newDemoStore())
	} else {
		gw, err = newGateway(ctx)
	}

	if err != nil {
		return err
	}
	defer gw.Close(context.Background())

	logger := logging.GetLogger()

	// Register schemas up front so load failures surface in the startup log
	// instead of on the first query
	gw.registry.EnsureLoaded(ctx)

	srv := server.New(gw.cfg.Server.Addr, gw.engine, gw.registry, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(gw))
	defer cancel()

	if err := srv.Stop(); err != nil {
		logger.ErrorWithErr("HTTP shutdown did not complete cleanly", err)
	}

	return gw.Close(shutdownCtx)
}

func shutdownTimeout(gw *gateway) time.Duration {
	d, err := time.ParseDuration(gw.cfg.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}

	return d
}
