package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var geocodeFile string

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Build or refresh the postal code cache",
	Long: `Collect the postal codes of the valid orders in an export, look up the
ones missing from the cache on BrasilAPI and append the results to the
cache file. Codes that fail are skipped and retried on the next run.`,
	RunE: runGeocode,
}

func init() {
	rootCmd.AddCommand(geocodeCmd)

	geocodeCmd.Flags().StringVar(&geocodeFile, "file", "", "Export file (default: the configured source)")
}

func runGeocode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("🗺️  Cache %s holds %d postal codes\n", resolver.Cache().Path(), resolver.Cache().Len())

	src, err := sourceFor(cfg, geocodeFile)
	if err != nil {
		return fmt.Errorf("failed to configure source: %w", err)
	}

	ctx := context.Background()
	fmt.Printf("📥 Reading export from %s...\n", src.Name())
	table, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}

	norm, err := newNormalizer(cfg)
	if err != nil {
		return err
	}
	result, err := norm.Normalize(table)
	if err != nil {
		return fmt.Errorf("failed to normalize export: %w", err)
	}

	fmt.Printf("🔎 Looking up postal codes with %d workers...\n", cfg.Geocode.Workers)
	res, err := resolver.Refresh(ctx, result.Valid)
	if err != nil {
		return fmt.Errorf("failed to update geocode cache: %w", err)
	}

	if res.Requested == 0 {
		fmt.Println("✅ Every postal code is already cached")
		return nil
	}
	fmt.Printf("✅ Resolved %d of %d postal codes (%d failed), cache now holds %d\n",
		res.Resolved, res.Requested, res.Failed, resolver.Cache().Len())
	return nil
}
