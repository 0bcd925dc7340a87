package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/query"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/repository"
)

// listKind selects decks or watch lists. Both take the same verbs.
type listKind int

const (
	deckKind listKind = iota
	watchListKind
)

func (k listKind) command() string {
	if k == watchListKind {
		return "watchlist"
	}
	return "deck"
}

func (k listKind) noun() string {
	if k == watchListKind {
		return "watch list"
	}
	return "deck"
}

func (k listKind) title() string {
	if k == watchListKind {
		return "Watch list"
	}
	return "Deck"
}

// newListCommand creates the deck or watchlist command tree.
func newListCommand(opts *rootOptions, kind listKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.command(),
		Short: fmt.Sprintf("Manage %ss", kind.noun()),
	}

	// withRepo opens the stores and hands fn the repository for kind.
	withRepo := func(fn func(ctx context.Context, app *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(nil)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			repo, err := app.cardLists(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return fn(cmd.Context(), app, repo, cmd, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: fmt.Sprintf("Create an empty %s", kind.noun()),
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(func(ctx context.Context, _ *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			list, err := repo.Create(ctx, args[0])
			if err != nil {
				return err
			}
			return printList(cmd, opts, list, fmt.Sprintf("Created %s %q: %s", kind.noun(), list.Name, list.ID))
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss, most recently modified first", kind.noun()),
		Args:  cobra.NoArgs,
		RunE: withRepo(func(ctx context.Context, _ *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			lists, err := repo.List(ctx)
			if err != nil {
				return err
			}
			if opts.wantJSON() {
				return writeJSON(cmd.OutOrStdout(), lists)
			}
			displayCardLists(cmd.OutOrStdout(), kind, lists)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: fmt.Sprintf("Show a %s with its cards", kind.noun()),
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(func(ctx context.Context, app *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			list, err := getList(ctx, repo, kind, args[0])
			if err != nil {
				return err
			}
			if opts.wantJSON() {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			ids := make([]string, 0, len(list.Cards))
			for _, c := range list.Cards {
				ids = append(ids, c.CardID)
			}
			svc, err := app.search(ctx)
			if err != nil {
				return err
			}
			cards, err := svc.Cards(ctx, ids)
			if err != nil {
				return err
			}
			displayCardList(cmd.OutOrStdout(), kind, list, cards)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: fmt.Sprintf("Rename a %s", kind.noun()),
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(func(ctx context.Context, _ *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			if err := repo.Rename(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s %s to %q\n", kind.noun(), args[0], args[1])
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <card-id>",
		Short: fmt.Sprintf("Add one copy of a card to a %s", kind.noun()),
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(func(ctx context.Context, app *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			card, err := lookupCard(ctx, app, args[1])
			if err != nil {
				return err
			}
			list, err := repo.AddCard(ctx, args[0], card.CardID, card.ImgLarge)
			if err != nil {
				return err
			}
			return printList(cmd, opts, list, fmt.Sprintf("Added %s to %q (%d cards)", card.Name, list.Name, list.TotalCards()))
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id> <card-id>",
		Short: fmt.Sprintf("Remove one copy of a card from a %s", kind.noun()),
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(func(ctx context.Context, _ *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			list, err := repo.RemoveCard(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printList(cmd, opts, list, fmt.Sprintf("Removed %s from %q (%d cards)", args[1], list.Name, list.TotalCards()))
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "thumbnail <id> <card-id>",
		Short: fmt.Sprintf("Use a card's image as the %s thumbnail", kind.noun()),
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(func(ctx context.Context, app *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			card, err := lookupCard(ctx, app, args[1])
			if err != nil {
				return err
			}
			if err := repo.SetThumbnail(ctx, args[0], card.ImgLarge); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Thumbnail set to %s\n", card.ImgLarge)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", kind.noun()),
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(func(ctx context.Context, _ *companion, repo repository.CardListRepository, cmd *cobra.Command, args []string) error {
			if err := repo.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind.noun(), args[0])
			return nil
		}),
	})

	return cmd
}

func getList(ctx context.Context, repo repository.CardListRepository, kind listKind, id string) (*models.CardList, error) {
	list, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("%s %q: %w", kind.noun(), id, repository.ErrNotFound)
	}
	return list, nil
}

// lookupCard hydrates a single catalog card.
func lookupCard(ctx context.Context, app *companion, cardID string) (query.CardSummary, error) {
	svc, err := app.search(ctx)
	if err != nil {
		return query.CardSummary{}, err
	}
	cards, err := svc.Cards(ctx, []string{cardID})
	if err != nil {
		return query.CardSummary{}, err
	}
	if len(cards) == 0 {
		return query.CardSummary{}, fmt.Errorf("card %q is not in the catalog", cardID)
	}
	return cards[0], nil
}

func printList(cmd *cobra.Command, opts *rootOptions, list *models.CardList, message string) error {
	if opts.wantJSON() {
		return writeJSON(cmd.OutOrStdout(), list)
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)
	return nil
}
