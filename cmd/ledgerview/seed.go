package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ledgerview/internal/amqp"
	"ledgerview/internal/backend"
	"ledgerview/internal/cli"
	"ledgerview/internal/seed"
	"ledgerview/internal/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load companies and documents from a YAML file into SQLite",
	Long: `Import a seed file into the SQLite backend.

When AMQP_URL is set every imported document is announced, so running
servers reload the lists that show it.`,
	Example: `  DATA_BACKEND=sqlite ledgerview seed --file data/seed.yaml`,
	Args:    cobra.NoArgs,
	RunE:    runSeed,
}

func init() {
	seedCmd.Flags().String("file", "", "seed file (defaults to SEED_FILE)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.DataBackend != backend.SQLiteBackend.String() {
		return fmt.Errorf("seeding requires DATA_BACKEND=%s, got %q", backend.SQLiteBackend, cfg.DataBackend)
	}
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = cfg.SeedFile
	}

	data, err := seed.Load(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	res, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	var publisher services.Publisher
	if cfg.EventsEnabled() {
		bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer bus.Close()
		publisher = bus
	}
	svc := services.NewRecordService(res.Store, nil, publisher)

	for _, t := range data.Tenants {
		if err := res.Store.SaveTenant(ctx, t); err != nil {
			return fmt.Errorf("save company %s: %w", t.ID, err)
		}
	}
	for _, r := range data.Records {
		if _, err := svc.Create(ctx, r); err != nil {
			return fmt.Errorf("import %s %s: %w", r.Kind, r.Number, err)
		}
	}

	logger.Info("Seed imported", "file", path, "tenants", len(data.Tenants), "records", len(data.Records))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d companies and %d documents\n", len(data.Tenants), len(data.Records))
	return nil
}
