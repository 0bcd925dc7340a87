package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
)

// newInitCommand creates the init command.
func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade both stores",
		Long: `Bring the reference and user stores to the current schema version,
reseeding the bundled catalog where needed. Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			last := -1
			progress := func(p migration.Progress) {
				pct := int(p.Fraction() * 100)
				if pct == last {
					return
				}
				last = pct
				fmt.Fprintf(out, "%s: %s %3d%%\n", p.Store, p.Step, pct)
			}

			app, err := opts.open(progress)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			ctx := cmd.Context()
			for _, name := range []string{opts.cfg.Storage.ReferenceStore, opts.cfg.Storage.UserStore} {
				last = -1
				db, err := app.coord.EnsureReady(ctx, name)
				if err != nil {
					fmt.Fprintf(out, "%s: not ready\n", name)
					return err
				}
				version, err := db.Version(ctx)
				if err != nil {
					return fmt.Errorf("failed to read version of %s: %w", name, err)
				}
				fmt.Fprintf(out, "%s: ready (version %d, %s)\n", name, version, db.Path())
			}
			return nil
		},
	}
}
