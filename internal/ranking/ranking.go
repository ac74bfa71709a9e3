// Package ranking orders a batch of wines for the results screen and decides
// which row, if any, earns the top badge.
package ranking

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/pbaille/divino/internal/domain"
)

// SortMode selects the ranking strategy.
type SortMode string

const (
	// SortValue ranks by rating per unit of price, best deal first.
	SortValue SortMode = "value"
	// SortRating ranks by rating, best first.
	SortRating SortMode = "rating"
	// SortOriginal keeps the model's order.
	SortOriginal SortMode = "original"
)

// DefaultSortMode is the mode the results screen opens with.
const DefaultSortMode = SortValue

// ParseSortMode parses a sort mode; the empty string means DefaultSortMode.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultSortMode, nil
	case SortValue:
		return SortValue, nil
	case SortRating:
		return SortRating, nil
	case SortOriginal:
		return SortOriginal, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// BadgeLabel is the text shown on the top row for the mode, empty for SortOriginal.
func (m SortMode) BadgeLabel() string {
	switch m {
	case SortValue:
		return "MIGLIOR AFFARE"
	case SortRating:
		return "MIGLIOR VOTO"
	default:
		return ""
	}
}

// Sort returns a new slice ordered by mode. The sort is stable: wines with
// equal keys keep their input order. Wines missing the metric the mode
// needs go last.
func Sort(wines []domain.Wine, mode SortMode) []domain.Wine {
	sorted := slices.Clone(wines)
	switch mode {
	case SortRating:
		slices.SortStableFunc(sorted, byRating)
	case SortValue:
		slices.SortStableFunc(sorted, byValue)
	}
	return sorted
}

// byRating puts rated wines first, highest rating first.
func byRating(a, b domain.Wine) int {
	ra, rb := rated(a), rated(b)
	switch {
	case ra && rb:
		return cmp.Compare(b.Rating, a.Rating)
	case ra:
		return -1
	case rb:
		return 1
	default:
		return 0
	}
}

// byValue puts wines with a value score first, highest score first.
func byValue(a, b domain.Wine) int {
	sa, oka := domain.ValueScore(a)
	sb, okb := domain.ValueScore(b)
	switch {
	case oka && okb:
		return cmp.Compare(sb, sa)
	case oka:
		return -1
	case okb:
		return 1
	default:
		return 0
	}
}

func rated(w domain.Wine) bool {
	return w.Rating > 0
}

// Qualifies reports whether w carries the metric mode ranks on.
func Qualifies(w domain.Wine, mode SortMode) bool {
	switch mode {
	case SortRating:
		return rated(w)
	case SortValue:
		_, ok := domain.ValueScore(w)
		return ok
	default:
		return false
	}
}

// Badge reports whether the first wine of an already sorted batch earns
// the badge. A wine that only leads because nothing else qualifies does not.
func Badge(sorted []domain.Wine, mode SortMode) bool {
	if len(sorted) == 0 || mode == SortOriginal {
		return false
	}
	return Qualifies(sorted[0], mode)
}

// Row is one ranked wine with its display flags.
type Row struct {
	Wine     domain.Wine `json:"wine"`
	Badge    bool        `json:"badge"`
	InCellar bool        `json:"in_cellar"`
}

// Result is a ranked batch ready for the results screen.
type Result struct {
	Mode       SortMode `json:"mode"`
	BadgeLabel string   `json:"badge_label,omitempty"`
	Rows       []Row    `json:"rows"`
}

// Rank sorts wines by mode and decorates each row. inCellar may be nil.
func Rank(wines []domain.Wine, mode SortMode, inCellar func(domain.Wine) bool) Result {
	sorted := Sort(wines, mode)
	badge := Badge(sorted, mode)

	res := Result{Mode: mode, Rows: make([]Row, len(sorted))}
	if badge {
		res.BadgeLabel = mode.BadgeLabel()
	}
	for i, w := range sorted {
		res.Rows[i] = Row{Wine: w, Badge: badge && i == 0}
		if inCellar != nil {
			res.Rows[i].InCellar = inCellar(w)
		}
	}
	return res
}
