package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/labrasa/salesdash/internal/metrics"
	"github.com/labrasa/salesdash/internal/pipeline"
	"github.com/labrasa/salesdash/internal/store"
	"github.com/spf13/cobra"
)

var (
	syncFile   string
	syncDryRun bool
	skipGeo    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the ETL once: export, normalize, geocode, store",
	Long: `Fetch the latest Saipos export (or read --file), normalize it and append
the orders that are not stored yet to the valid and cancelled tabs.

The command tells "already up to date" apart from a failed run and exits
non-zero when the export or the store could not be reached.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncFile, "file", "", "Read this export instead of the configured source")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Normalize and report without writing")
	syncCmd.Flags().BoolVar(&skipGeo, "skip-geocode", false, "Do not refresh the postal code cache")
}

func runSync(cmd *cobra.Command, args []string) error {
	fmt.Println("🔄 Starting sync...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := sourceFor(cfg, syncFile)
	if err != nil {
		return fmt.Errorf("failed to configure source: %w", err)
	}

	st, closer, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Println("❌ Could not reach the store")
		return err
	}
	defer closer.Close()

	runner, err := newRunner(cfg, src, st, nil, metrics.New())
	if err != nil {
		return err
	}
	runner.DryRun = syncDryRun
	if !skipGeo {
		if runner.Geocoder, err = newResolver(cfg); err != nil {
			return err
		}
	}

	fmt.Printf("📥 Fetching export from %s...\n", src.Name())
	report, err := runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		fmt.Println("⏳ Another sync is already running, try again later")
		return err
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		fmt.Println("❌ Could not obtain the sales export")
		return err
	case errors.Is(err, pipeline.ErrStoreUnavailable):
		fmt.Println("❌ Could not update the store")
		return err
	case err != nil:
		fmt.Println("❌ Sync failed")
		return err
	}

	s := report.Stats
	fmt.Printf("🧹 Normalized %d rows: %d valid, %d cancelled\n", s.Rows, s.Valid, s.Cancelled)
	if s.Dropped() > 0 {
		fmt.Printf("   ⚠️  Dropped %d rows: %d malformed, %d future, %d duplicate ids, %d unrecognized flag\n",
			s.Dropped(), s.Malformed, s.Future, s.DuplicateIDs, s.UnrecognizedFlag)
		for flag, n := range s.UnrecognizedFlags {
			fmt.Printf("      flag %q: %d rows\n", flag, n)
		}
	}

	if report.DryRun {
		fmt.Println("🧪 Dry run, nothing was written")
		return nil
	}

	if report.Geocode != nil {
		fmt.Printf("🗺️  Geocoded %d of %d new postal codes\n", report.Geocode.Resolved, report.Geocode.Requested)
	}
	printSyncResult(report.Valid)
	printSyncResult(report.Cancelled)

	if report.Outcome() == pipeline.OutcomeUpToDate {
		fmt.Println("✅ Already up to date, no new orders")
	} else {
		fmt.Printf("✅ Sync complete: %d new rows in %s\n", report.Appended(), report.Duration)
	}
	return nil
}

func printSyncResult(res *store.SyncResult) {
	if res == nil {
		return
	}
	fmt.Printf("   📄 %s: %d stored, %d incoming, %d appended", res.Tab, res.Existing, res.Incoming, res.Appended)
	if res.Updated > 0 {
		fmt.Printf(", %d updated", res.Updated)
	}
	if res.Bootstrapped {
		fmt.Print(" (tab created)")
	}
	fmt.Println()
}
