package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"geoquiz-service/internal/dataset"
	pgloader "geoquiz-service/internal/infra/postgres"
)

// NewSeedCmd loads a dataset document into the countries table.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert countries from a JSON dataset into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "dataset JSON to load (default: embedded dataset)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, logger, closer, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
		return err
	}

	data := dataset.EmbeddedJSON()
	if file != "" {
		if data, err = os.ReadFile(file); err != nil {
			return fmt.Errorf("read dataset: %w", err)
		}
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	n, err := pgloader.Seed(ctx, pool, data, logger)
	if err != nil {
		return err
	}
	logger.Info().Int("countries", n).Msg("dataset seeded")
	return nil
}
