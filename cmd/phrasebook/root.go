package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/japaniel/phrasebook/pkg/artifact"
	"github.com/japaniel/phrasebook/pkg/config"
	"github.com/japaniel/phrasebook/pkg/schema"
	"github.com/japaniel/phrasebook/pkg/store"
)

// app carries what every subcommand needs once the root pre-run has loaded
// configuration.
type app struct {
	envFiles []string
	cfg      config.Config
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "phrasebook",
		Short: "Sentence practice store",
		Long: `Phrasebook stores practice sentences with their translations and audio,
serves them over HTTP and scores spoken attempts against them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFiles...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg
			a.log = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "env files to load (default .env)")

	root.AddCommand(
		a.serveCmd(),
		a.migrateCmd(),
		a.scoreCmd(),
		a.extractCmd(),
	)
	return root
}

// openStore opens the configured database and brings its schema up to date.
// The caller closes the returned driver.
func (a *app) openStore(ctx context.Context) (store.Driver, error) {
	driver, err := store.Open(ctx, a.cfg.Database, a.log)
	if err != nil {
		return nil, err
	}
	b := &schema.Bootstrapper{Driver: driver, Logger: a.log, Workers: a.cfg.MigrationWorkers}
	if err := b.Run(ctx); err != nil {
		driver.Close()
		return nil, fmt.Errorf("bootstrapping schema: %w", err)
	}
	return driver, nil
}

func (a *app) artifactStore() (artifact.Store, error) {
	c := a.cfg.Artifacts
	switch c.Backend {
	case config.ArtifactsSupabase:
		return artifact.NewSupabaseStore(c.SupabaseURL, c.SupabaseKey, c.Bucket), nil
	default:
		return artifact.NewDiskStore(c.Dir, c.URLPrefix)
	}
}
