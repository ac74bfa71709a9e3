package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/domain"
	"github.com/pbaille/divino/internal/navigation"
	"github.com/pbaille/divino/internal/ranking"
)

// printState renders whatever screen the session landed on. A screen
// carrying an error message is reported as a failed command.
func printState(cmd *cobra.Command, state navigation.Context, c *cellar.Cellar, mode ranking.SortMode) error {
	out := cmd.OutOrStdout()

	switch state.Screen {
	case navigation.ScreenDetail:
		if state.Selected != nil {
			printWine(out, *state.Selected, c.Contains(*state.Selected))
		}
	case navigation.ScreenResults:
		if len(state.Results) == 0 {
			fmt.Fprintln(out, "Nessun vino riconosciuto.")
			break
		}
		res := ranking.Rank(state.Results, mode, c.Contains)
		for _, row := range res.Rows {
			printRow(out, row, res.BadgeLabel)
		}
	}

	if state.Error != "" {
		return errors.New(state.Error)
	}
	return nil
}

func printRow(w io.Writer, row ranking.Row, badgeLabel string) {
	mark := " "
	if row.InCellar {
		mark = "♥"
	}
	fmt.Fprintf(w, "%s %-40s %-24s %s  %s\n",
		mark,
		truncate(row.Wine.Name, 40),
		truncate(row.Wine.Winery, 24),
		stars(row.Wine.Rating),
		row.Wine.PriceEstimate,
	)
	if row.Badge {
		fmt.Fprintf(w, "  [%s]\n", badgeLabel)
	}
}

func printWine(w io.Writer, wine domain.Wine, inCellar bool) {
	fmt.Fprintf(w, "%s\n", wine.Name)
	fmt.Fprintf(w, "%s · %s\n", wine.Winery, joinNonEmpty(", ", wine.Region, wine.Country))
	fmt.Fprintf(w, "%s %s  %s", wine.Type.Label(), wine.Year, stars(wine.Rating))
	if wine.ReviewCount != nil {
		fmt.Fprintf(w, " (%d recensioni)", *wine.ReviewCount)
	}
	fmt.Fprintln(w)
	if inCellar {
		fmt.Fprintln(w, "♥ In cantina")
	}

	fmt.Fprintf(w, "\nPrezzo medio: %s\n", orDash(wine.PriceEstimate))
	if cmp, ok := domain.CompareMenuPrice(wine); ok {
		fmt.Fprintf(w, "Al ristorante: %.0f € (%+d%%)\n", cmp.MenuPrice, cmp.DiffPercent)
	}

	if wine.Description != "" {
		fmt.Fprintf(w, "\n%s\n", wine.Description)
	}

	t := wine.Taste.Resolved()
	fmt.Fprintf(w, "\nCorpo %3.0f  Tannini %3.0f  Dolcezza %3.0f  Acidità %3.0f\n", t.Body, t.Tannins, t.Sweetness, t.Acidity)

	if len(wine.Grapes) > 0 {
		fmt.Fprintf(w, "Vitigni: %s\n", strings.Join(wine.Grapes, ", "))
	}
	if len(wine.FoodPairing) > 0 {
		fmt.Fprintf(w, "Abbinamenti: %s\n", strings.Join(wine.FoodPairing, ", "))
	}
	fmt.Fprintf(w, "Acquista: %s\n", domain.PurchaseURL(wine))
}

func stars(rating float64) string {
	if rating <= 0 {
		return "  -  "
	}
	return fmt.Sprintf("★ %.1f", rating)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
