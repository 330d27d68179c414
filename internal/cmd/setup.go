package cmd

import (
	"context"
	"fmt"

	"github.com/labrasa/salesdash/internal/database"
	"github.com/spf13/cobra"
)

var dropFirst bool

var setupCmd = &cobra.Command{
	Use:   "setup-store",
	Short: "Prepare the store tabs",
	Long: `Create the valid and cancelled tabs with the canonical header when they
are empty. With the mysql backend the sheet_rows table is created first,
and --drop-first removes it before starting over.`,
	RunE: setupStore,
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop the mysql store table before creating it")
}

func setupStore(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Setting up store...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if dropFirst {
		if cfg.Store.Backend != "mysql" {
			return fmt.Errorf("--drop-first only applies to the mysql backend")
		}
		db, err := database.NewConnection(&cfg.Store)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		fmt.Println("🗑️  Dropping store table...")
		err = db.DropSchema(ctx)
		db.Close()
		if err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	st, closer, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	created, err := st.Init(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize tabs: %w", err)
	}
	for _, t := range created {
		fmt.Printf("   📋 Created header in %q\n", st.Tab(t))
	}
	if len(created) == 0 {
		fmt.Println("   Tabs already initialized")
	}

	fmt.Println("✅ Store setup complete!")
	return nil
}
