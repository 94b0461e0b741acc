package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/yourusername/geo-accounts/internal/storage"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and load the country reference data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if file == "" {
				file = cfg.SeedFile
			}
			return seedCountries(cmd.Context(), db, file, logger)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with countries (defaults to SEED_FILE or the built-in list)")
	return cmd
}

// seedCountries は国マスタを投入します。既に存在する国は変更しません。
func seedCountries(ctx context.Context, db *sqlx.DB, path string, logger *slog.Logger) error {
	list, err := storage.LoadSeed(path)
	if err != nil {
		return fmt.Errorf("load country seed: %w", err)
	}
	inserted, err := storage.NewCountryStore(db).Seed(ctx, list)
	if err != nil {
		return fmt.Errorf("seed countries: %w", err)
	}
	logger.Info("country seed applied", "source", seedSource(path), "total", len(list), "inserted", inserted)
	return nil
}

func seedSource(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}
