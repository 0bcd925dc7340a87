package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/query"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/repository"
)

// newQueryCommand creates the saved query command tree.
func newQueryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Manage saved searches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved searches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, repo, err := openSavedQueries(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			queries, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if opts.wantJSON() {
				return writeJSON(cmd.OutOrStdout(), queries)
			}
			displaySavedQueries(cmd.OutOrStdout(), queries)
			return nil
		},
	})

	var page, pageSize int
	run := &cobra.Command{
		Use:   "run <id|name>",
		Short: "Replay a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("page must be at least 1")
			}
			ctx := cmd.Context()
			app, repo, err := openSavedQueries(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			saved, err := findSavedQuery(ctx, repo, args[0])
			if err != nil {
				return err
			}
			params, err := query.FromSaved(saved)
			if err != nil {
				return err
			}
			return executeSearch(cmd, opts, app, params, page-1, pageSize)
		},
	}
	run.Flags().IntVar(&page, "page", 1, "page number")
	run.Flags().IntVar(&pageSize, "page-size", 0, "results per page (default from config)")
	cmd.AddCommand(run)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid saved query id %q", args[0])
			}
			app, repo, err := openSavedQueries(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := repo.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted saved query %d\n", id)
			return nil
		},
	})

	return cmd
}

func openSavedQueries(ctx context.Context, opts *rootOptions) (*companion, repository.SavedQueryRepository, error) {
	app, err := opts.open(nil)
	if err != nil {
		return nil, nil, err
	}
	repo, err := app.savedQueries(ctx)
	if err != nil {
		_ = app.Close()
		return nil, nil, err
	}
	return app, repo, nil
}

// findSavedQuery resolves a numeric id first, then a name.
func findSavedQuery(ctx context.Context, repo repository.SavedQueryRepository, ref string) (*models.SavedQuery, error) {
	var (
		saved *models.SavedQuery
		err   error
	)
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		saved, err = repo.GetByID(ctx, id)
	}
	if err == nil && saved == nil {
		saved, err = repo.GetByName(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("saved query %q: %w", ref, repository.ErrNotFound)
	}
	return saved, nil
}
