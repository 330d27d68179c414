package cmd

import (
	"context"
	"fmt"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/store"
	"github.com/spf13/cobra"
)

var sampleRows int

var checkCmd = &cobra.Command{
	Use:   "check-store",
	Short: "Read both store tabs and show what is stored",
	Long: `Read the valid and cancelled tabs, print their row counts and columns,
and show a sample of the raw sale timestamps exactly as stored. This helps
spot timezone drift and header mismatches in the backing sheet.`,
	RunE: checkStore,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().IntVar(&sampleRows, "sample", 5, "Number of raw timestamps to show per tab")
}

func checkStore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, closer, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	fmt.Printf("🔍 Checking %s store (mode %s)...\n", st.Backend().Name(), st.Mode())
	for _, t := range []store.Table{store.TableValid, store.TableCancelled} {
		tbl, err := st.ReadAll(ctx, t)
		if err != nil {
			return err
		}

		fmt.Printf("\n📄 %s (%s): %d rows\n", st.Tab(t), t, tbl.Len())
		if tbl.Len() == 0 && len(tbl.Columns) == 0 {
			fmt.Println("   (tab is empty)")
			continue
		}

		var missing []string
		for _, col := range models.OrderColumns {
			if !tbl.Has(col) {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			fmt.Printf("   ⚠️  Missing columns: %v\n", missing)
		}

		idx := tbl.Index()
		for i, row := range tbl.Rows {
			if i >= sampleRows {
				break
			}
			fmt.Printf("   %s  %s = %q\n", idx.Get(row, models.ColOrderID), models.ColSaleTime, idx.Get(row, models.ColSaleTime))
		}

		orders, err := st.ReadOrders(ctx, t)
		if err != nil {
			return err
		}
		if skipped := tbl.Len() - len(orders); skipped > 0 {
			fmt.Printf("   ⚠️  %d rows could not be decoded\n", skipped)
		}
	}

	return nil
}
