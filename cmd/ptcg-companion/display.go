package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/query"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// displaySearchResult prints one page of search results.
func displaySearchResult(w io.Writer, result *query.Result) {
	if result == nil || len(result.Cards) == 0 {
		fmt.Fprintln(w, "No cards found.")
		return
	}

	fmt.Fprintf(w, "Page %d of %d (%d cards)\n", result.Page+1, result.Pages(), result.Total)
	fmt.Fprintln(w, strings.Repeat("=", 40))
	for _, c := range result.Cards {
		displayCardLine(w, c, 0)
	}
}

func displayCardLine(w io.Writer, c query.CardSummary, count int) {
	if count > 0 {
		fmt.Fprintf(w, "  %2dx ", count)
	} else {
		fmt.Fprint(w, "  ")
	}
	fmt.Fprintf(w, "%-14s %-28s %-9s", c.CardID, c.Name, c.Supertype)
	if c.HP != nil {
		fmt.Fprintf(w, " HP %-4d", *c.HP)
	} else {
		fmt.Fprint(w, "        ")
	}
	fmt.Fprintf(w, " %s #%s\n", c.SetName, c.Number)
}

// displayCardLists prints a deck or watch list overview.
func displayCardLists(w io.Writer, kind listKind, lists []*models.CardList) {
	if len(lists) == 0 {
		fmt.Fprintf(w, "No %ss found.\n", kind.noun())
		return
	}

	title := kind.title() + "s"
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	for i, l := range lists {
		fmt.Fprintf(w, "%d. %s (%d cards) %s", i+1, l.Name, l.TotalCards(), l.ID)
		fmt.Fprintf(w, " modified %s\n", l.ModifiedAt.Local().Format("2006-01-02 15:04"))
	}
}

// displayCardList prints one list with hydrated card rows. Cards missing from
// the catalog are listed by id.
func displayCardList(w io.Writer, kind listKind, list *models.CardList, cards []query.CardSummary) {
	fmt.Fprintf(w, "%s: %s\n", kind.title(), list.Name)
	fmt.Fprintf(w, "ID: %s\n", list.ID)
	if list.Thumbnail != nil {
		fmt.Fprintf(w, "Thumbnail: %s\n", *list.Thumbnail)
	}
	fmt.Fprintf(w, "Cards: %d\n\n", list.TotalCards())

	byID := make(map[string]query.CardSummary, len(cards))
	for _, c := range cards {
		byID[c.CardID] = c
	}
	for _, entry := range list.Cards {
		if c, ok := byID[entry.CardID]; ok {
			displayCardLine(w, c, entry.Count)
			continue
		}
		fmt.Fprintf(w, "  %2dx %s (not in catalog)\n", entry.Count, entry.CardID)
	}
}

// displaySavedQueries prints saved searches.
func displaySavedQueries(w io.Writer, queries []*models.SavedQuery) {
	if len(queries) == 0 {
		fmt.Fprintln(w, "No saved queries found.")
		return
	}
	for _, q := range queries {
		fmt.Fprintf(w, "%4d  %-24s %-8s %s\n", q.ID, q.Name, q.FormType, string(q.Params))
	}
}

// displayPremadeDecks prints the bundled decks.
func displayPremadeDecks(w io.Writer, decks []models.PremadeDeck) {
	if len(decks) == 0 {
		fmt.Fprintln(w, "No premade decks found.")
		return
	}
	for _, d := range decks {
		total := 0
		for _, c := range d.Cards {
			total += c.Count
		}
		fmt.Fprintf(w, "%s (%d cards)\n", d.Name, total)
		for _, c := range d.Cards {
			fmt.Fprintf(w, "  %2dx %s\n", c.Count, c.CardID)
		}
	}
}
