package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/labrasa/salesdash/internal/llm"
	"github.com/labrasa/salesdash/internal/metrics"
	"github.com/labrasa/salesdash/internal/oraculo"
	"github.com/labrasa/salesdash/internal/server"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dashboard server",
	Long: `Start the HTTP server which provides:
- Dashboard report endpoints filtered by date range and channel
- The Oráculo chat grounded in the filtered data
- On-demand ETL runs via POST /api/sync
- Prometheus metrics on /metrics`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("🍔 salesdash starting...")

	fmt.Println("📝 Loading configuration...")
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🔌 Opening %s store...\n", cfg.Store.Backend)
	st, closer, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	var healthCheck func(context.Context) error
	if hc, ok := closer.(interface{ HealthCheck(context.Context) error }); ok {
		healthCheck = hc.HealthCheck
	}

	fmt.Println("🗺️  Loading geocode cache...")
	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("   %d postal codes cached\n", resolver.Cache().Len())

	rec := metrics.New()

	src, err := sourceFor(cfg, "")
	if err != nil {
		return fmt.Errorf("failed to configure source: %w", err)
	}
	runner, err := newRunner(cfg, src, st, resolver, rec)
	if err != nil {
		return err
	}

	fmt.Printf("🔮 Oráculo using %s...\n", cfg.LLM.Generator.Provider)
	generator, err := llm.NewGenerator(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	fmt.Println("⚙️  Setting up server...")
	srv := server.NewServer(server.Options{
		Store:       st,
		Locator:     resolver.Cache(),
		Oraculo:     oraculo.New(generator, rec),
		Syncer:      runner,
		Metrics:     rec,
		HealthCheck: healthCheck,
		Location:    cfg.Normalize.Location(),
	})

	fmt.Printf("🌐 Starting server on %s...\n", cfg.Server.Addr)
	if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	fmt.Println("👋 Server stopped")
	return nil
}
