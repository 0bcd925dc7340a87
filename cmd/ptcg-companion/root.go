package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/PTCG-Companion/internal/config"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	DataDir    string
	Debug      bool
	Format     string // "json" | "text"

	cfg    *config.Config
	logger *slog.Logger
}

// validFormats defines the allowed output formats.
var validFormats = []string{"text", "json"}

// newRootCommand creates the root command for the companion CLI.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ptcg-companion",
		Short: "PTCG Companion - Pokémon TCG card catalog and deck organizer",
		Long: `Browse a local Pokémon Trading Card Game catalog, search it with
free-text or advanced filters, and keep decks, watch lists and saved searches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return opts.load(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.ptcg-companion/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory holding the stores (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newSearchCommand(opts))
	cmd.AddCommand(newListCommand(opts, deckKind))
	cmd.AddCommand(newListCommand(opts, watchListKind))
	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newPremadeCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// load reads the config file and installs the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.DataDir != "" {
		cfg.Storage.DataDir = o.DataDir
	}
	if o.Debug {
		cfg.App.DebugMode = true
	}

	level := slog.LevelInfo
	if cfg.App.DebugMode {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	o.cfg = cfg
	return nil
}

// open builds a companion for one command run. The caller closes it.
func (o *rootOptions) open(progress func(migration.Progress)) (*companion, error) {
	return newCompanion(o.cfg, o.logger, progress)
}

func (o *rootOptions) wantJSON() bool {
	return o.Format == "json"
}
