package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/money"
	"github.com/spf13/cobra"
)

var (
	normalizeFile string
	previewRows   int
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Preview how an export is normalized, without writing",
	Long: `Read a Saipos export, run the normalizer and print the row accounting
plus the first normalized orders. Nothing is written to the store.`,
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringVar(&normalizeFile, "file", "", "Export file (default: the configured source)")
	normalizeCmd.Flags().IntVar(&previewRows, "rows", 5, "Number of normalized orders to show")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src, err := sourceFor(cfg, normalizeFile)
	if err != nil {
		return fmt.Errorf("failed to configure source: %w", err)
	}

	fmt.Printf("📥 Reading export from %s...\n", src.Name())
	table, err := src.Fetch(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	fmt.Printf("   %d rows, columns: %s\n", table.Len(), strings.Join(table.Columns, ", "))

	norm, err := newNormalizer(cfg)
	if err != nil {
		return err
	}
	result, err := norm.Normalize(table)
	if err != nil {
		return fmt.Errorf("failed to normalize export: %w", err)
	}

	s := result.Stats
	fmt.Printf("🧹 %d valid, %d cancelled, %d malformed, %d future, %d duplicate ids, %d unrecognized flag\n",
		s.Valid, s.Cancelled, s.Malformed, s.Future, s.DuplicateIDs, s.UnrecognizedFlag)

	printOrders("✅ Valid orders", result.Valid)
	printOrders("🚫 Cancelled orders", result.Cancelled)
	return nil
}

func printOrders(title string, orders []models.Order) {
	fmt.Printf("\n%s (%d)\n", title, len(orders))
	if len(orders) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Pedido\tData\tHora\tDia\tCanal\tTipo\tCEP\tTotal")
	for i, o := range orders {
		if i >= previewRows {
			break
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			o.OrderID, o.Date, o.Hour, o.Weekday, o.Channel, o.ChannelType, o.PostalCode, money.Format(o.Total))
	}
	w.Flush()
}
