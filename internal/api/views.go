package api

import (
	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/domain"
	"github.com/pbaille/divino/internal/navigation"
	"github.com/pbaille/divino/internal/ranking"
)

// WineView is a wine with everything the detail card derives from it.
type WineView struct {
	domain.Wine
	TypeLabel       string                  `json:"type_label"`
	TasteResolved   domain.ResolvedTaste    `json:"taste_resolved"`
	InCellar        bool                    `json:"in_cellar"`
	PriceComparison *domain.PriceComparison `json:"price_comparison,omitempty"`
	PurchaseURL     string                  `json:"purchase_url"`
}

// ResultRow is one line of the ranked result list.
type ResultRow struct {
	WineView
	Badge bool `json:"badge"`
}

// ResultsView is the ranked result list.
type ResultsView struct {
	Sort       ranking.SortMode `json:"sort"`
	BadgeLabel string           `json:"badge_label,omitempty"`
	Rows       []ResultRow      `json:"rows"`
}

// SessionView is what the front end renders for a session.
type SessionView struct {
	ID        string              `json:"id"`
	Screen    navigation.Screen   `json:"screen"`
	Loading   bool                `json:"loading"`
	Pending   navigation.Request  `json:"pending,omitempty"`
	Error     string              `json:"error,omitempty"`
	CanGoBack bool                `json:"can_go_back"`
	Stack     []navigation.Screen `json:"stack"`
	Results   ResultsView         `json:"results"`
	Selected  *WineView           `json:"selected,omitempty"`
	Cellar    []WineView          `json:"cellar,omitempty"`
	Recent    []string            `json:"recent"`
}

func newWineView(w domain.Wine, c *cellar.Cellar) WineView {
	v := WineView{
		Wine:          w,
		TypeLabel:     w.Type.Label(),
		TasteResolved: w.Taste.Resolved(),
		InCellar:      c.Contains(w),
		PurchaseURL:   domain.PurchaseURL(w),
	}
	if cmp, ok := domain.CompareMenuPrice(w); ok {
		v.PriceComparison = &cmp
	}
	return v
}

func newSessionView(sid string, nc navigation.Context, c *cellar.Cellar, mode ranking.SortMode) SessionView {
	ranked := ranking.Rank(nc.Results, mode, c.Contains)

	view := SessionView{
		ID:        sid,
		Screen:    nc.Screen,
		Loading:   nc.Loading,
		Pending:   nc.Pending,
		Error:     nc.Error,
		CanGoBack: nc.CanGoBack(),
		Stack:     nc.Stack,
		Results: ResultsView{
			Sort:       ranked.Mode,
			BadgeLabel: ranked.BadgeLabel,
			Rows:       make([]ResultRow, len(ranked.Rows)),
		},
		Recent: nc.Recent,
	}
	for i, row := range ranked.Rows {
		view.Results.Rows[i] = ResultRow{WineView: newWineView(row.Wine, c), Badge: row.Badge}
	}
	if nc.Selected != nil {
		sel := newWineView(*nc.Selected, c)
		view.Selected = &sel
	}
	if nc.Screen == navigation.ScreenCellar {
		view.Cellar = cellarViews(c)
	}
	return view
}

func cellarViews(c *cellar.Cellar) []WineView {
	wines := c.Newest()
	views := make([]WineView, len(wines))
	for i, w := range wines {
		views[i] = newWineView(w, c)
	}
	return views
}
