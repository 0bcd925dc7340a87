package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/PTCG-Companion/internal/config"
	"github.com/ramonehamilton/PTCG-Companion/internal/version"
)

// newPremadeCommand creates the premade command.
func newPremadeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "premade",
		Short: "List the bundled premade decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(nil)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			svc, err := app.search(cmd.Context())
			if err != nil {
				return err
			}
			decks, err := svc.PremadeDecks(cmd.Context())
			if err != nil {
				return err
			}
			if opts.wantJSON() {
				return writeJSON(cmd.OutOrStdout(), decks)
			}
			displayPremadeDecks(cmd.OutOrStdout(), decks)
			return nil
		},
	}
}

// newConfigCommand creates the config command tree.
func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			if !force && fileExists(path) {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.wantJSON() {
				return writeJSON(cmd.OutOrStdout(), opts.cfg)
			}
			data, err := toml.Marshal(opts.cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}

// newVersionCommand creates the version command.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ptcg-companion %s\n", version.GetVersion())
			return nil
		},
	}
}
