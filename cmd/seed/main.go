package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrodash/backend/internal/infrastructure/config"
	"github.com/agrodash/backend/internal/infrastructure/logger"
	"github.com/agrodash/backend/internal/infrastructure/persistence"
	"github.com/agrodash/backend/internal/infrastructure/persistence/seed"
)

type seedFlags struct {
	orgID    string
	logLevel string
	dryRun   bool
	opts     seed.Options
}

// summary is printed by --dry-run and logged after a real insert
type summary struct {
	OrganizationID string            `json:"organization_id"`
	Harvests       []string          `json:"harvests"`
	Instruments    int               `json:"instruments"`
	LineItems      int               `json:"line_items"`
	Assets         int               `json:"assets"`
	Scenarios      map[string]string `json:"scenarios"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := seed.DefaultOptions()
	f := &seedFlags{}

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Generate one organization's projection inputs",
		Long:         "Generates harvests, debt instruments, cash flow line items and scenarios for one organization and inserts them into the configured database.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.orgID, "org", "", "Organization ID to seed (random when empty)")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Print the generated dataset summary as JSON without touching the database")
	flags.Uint64Var(&f.opts.Seed, "seed", 0, "Random seed, 0 for a random one")
	flags.IntVar(&f.opts.FirstYear, "first-year", defaults.FirstYear, "Start year of the first harvest")
	flags.IntVar(&f.opts.Harvests, "harvests", defaults.Harvests, "Number of harvests")
	flags.IntVar(&f.opts.Creditors, "creditors", defaults.Creditors, "Number of distinct creditors")
	flags.IntVar(&f.opts.Instruments, "instruments", defaults.Instruments, "Number of debt instruments")
	flags.IntVar(&f.opts.LineItems, "line-items", defaults.LineItems, "Number of cash flow line items")
	flags.IntVar(&f.opts.Scenarios, "scenarios", defaults.Scenarios, "Number of scenarios")
	flags.Float64Var(&f.opts.ForeignShare, "usd-share", defaults.ForeignShare, "Share of USD instruments and revenues")

	return cmd
}

func run(ctx context.Context, out io.Writer, f *seedFlags) error {
	org := uuid.New()
	if f.orgID != "" {
		parsed, err := uuid.Parse(f.orgID)
		if err != nil {
			return fmt.Errorf("invalid organization id %q: %w", f.orgID, err)
		}
		org = parsed
	}

	data := seed.Generate(org, f.opts)
	sum := summarize(data)
	if f.dryRun {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	log, err := logger.New(&logger.Config{
		Level:      f.logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
		Service:    "agrodash-seed",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := data.Insert(ctx, db.DB); err != nil {
		return fmt.Errorf("failed to seed organization: %w", err)
	}

	fields := []zap.Field{
		zap.String("organization_id", sum.OrganizationID),
		zap.Int("harvests", len(sum.Harvests)),
		zap.Int("instruments", sum.Instruments),
		zap.Int("line_items", sum.LineItems),
	}
	for name, id := range sum.Scenarios {
		fields = append(fields, zap.String("scenario_"+name, id))
	}
	log.Info("Seeded organization", fields...)
	return nil
}

func summarize(data *seed.Dataset) summary {
	sum := summary{
		OrganizationID: data.OrganizationID.String(),
		Harvests:       make([]string, 0, len(data.Harvests)),
		Instruments:    len(data.Instruments),
		LineItems:      len(data.LineItems),
		Assets:         len(data.Assets),
		Scenarios:      make(map[string]string, len(data.Scenarios)),
	}
	for _, h := range data.Harvests {
		sum.Harvests = append(sum.Harvests, h.Name)
	}
	for _, s := range data.Scenarios {
		sum.Scenarios[s.Name] = s.ID.String()
	}
	return sum
}
