package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/query"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

// searchOptions holds flags for the search command.
type searchOptions struct {
	*rootOptions

	Text     string
	Advanced query.AdvancedParams
	HP       int
	Retreat  int
	Page     int
	PageSize int
	Save     string
}

// newSearchCommand creates the search command.
func newSearchCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &searchOptions{rootOptions: rootOpts}
	adv := &opts.Advanced

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the card catalog",
		Long: `Search the card catalog.

With --text the free search runs: the card name contains the text. Otherwise
every advanced flag that is set narrows the result. Multi-value flags match
any of their values.

Example:
  ptcg-companion search --supertype Pokémon --hp 100 --hp-op ">=" --dedupe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("hp") {
				adv.CardHP = &opts.HP
			}
			if cmd.Flags().Changed("retreat") {
				adv.CardRetreatCost = &opts.Retreat
			}
			return runSearch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Text, "text", "", "free search: card name contains")
	f.StringVar(&adv.CardName, "name", "", "card name contains")
	f.StringSliceVar(&adv.CardSupertype, "supertype", nil, "supertypes (Pokémon, Trainer, Energy)")
	f.StringSliceVar(&adv.CardSubtypes, "subtype", nil, "subtypes (Basic, Stage 1, Supporter, ...)")
	f.StringSliceVar(&adv.CardTypes, "type", nil, "energy types (Lightning, Fire, ...)")
	f.IntVar(&opts.HP, "hp", 0, "hit points")
	f.StringVar(&adv.CardHPOperator, "hp-op", "=", "hit point comparison (=, >=, <=)")
	f.IntVar(&opts.Retreat, "retreat", 0, "converted retreat cost")
	f.StringVar(&adv.CardRetreatCostOperator, "retreat-op", "=", "retreat cost comparison (=, >=, <=)")
	f.StringSliceVar(&adv.CardSets, "set", nil, "set ids")
	f.StringSliceVar(&adv.CardRegulationMarks, "mark", nil, "regulation marks")
	f.StringVar(&adv.CardRules, "rules", "", "rules text contains")
	f.StringVar(&adv.CardAbilityName, "ability", "", "ability name contains")
	f.StringVar(&adv.CardAttackName, "attack", "", "attack name contains")
	f.StringSliceVar(&adv.CardAttackCost, "attack-cost", nil, "energy types in an attack cost")
	f.StringVar(&adv.CardEvolvesTo, "evolves-to", "", "evolves into this card")
	f.BoolVar(&adv.HasAbility, "has-ability", false, "only cards with an ability")
	f.BoolVar(&adv.Dedupe, "dedupe", false, "collapse reprints")
	f.IntVar(&opts.Page, "page", 1, "page number")
	f.IntVar(&opts.PageSize, "page-size", 0, "results per page (default from config)")
	f.StringVar(&opts.Save, "save", "", "save the search under this name")

	return cmd
}

func (o *searchOptions) params() query.Params {
	if o.Text != "" {
		return query.FreeParams{Text: o.Text}
	}
	return o.Advanced
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	if opts.Page < 1 {
		return fmt.Errorf("page must be at least 1")
	}

	app, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	ctx := cmd.Context()
	params := opts.params()

	if opts.Save != "" {
		if err := saveSearch(ctx, app, opts.Save, params); err != nil {
			return err
		}
		opts.logger.Info("Saved search", "name", opts.Save)
	}

	return executeSearch(cmd, opts.rootOptions, app, params, opts.Page-1, opts.PageSize)
}

// executeSearch runs params and prints the page. On failure the empty result
// is still printed before the error is returned.
func executeSearch(cmd *cobra.Command, opts *rootOptions, app *companion, params query.Params, page, pageSize int) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	svc, err := app.search(ctx)
	var result *query.Result
	if err == nil {
		result, err = svc.SearchParams(ctx, params, page, pageSize)
		stats := svc.Metrics().Stats()
		opts.logger.Debug("Search metrics",
			"query_ms", stats.QueryLatency.Mean,
			"hydrate_ms", stats.HydrateLatency.Mean,
			"collapsed", stats.Collapsed)
	}
	if err != nil {
		result = &query.Result{IDs: []string{}, Cards: []query.CardSummary{}}
	}

	if opts.wantJSON() {
		if jsonErr := writeJSON(out, result); jsonErr != nil {
			return jsonErr
		}
	} else {
		displaySearchResult(out, result)
	}
	return err
}

func saveSearch(ctx context.Context, app *companion, name string, params query.Params) error {
	formType, raw, err := query.Encode(params)
	if err != nil {
		return err
	}
	repo, err := app.savedQueries(ctx)
	if err != nil {
		return err
	}
	return repo.Create(ctx, &models.SavedQuery{Name: name, FormType: formType, Params: raw})
}
