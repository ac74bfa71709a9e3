package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/divino/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func names(wines []domain.Wine) []string {
	out := make([]string, len(wines))
	for i, w := range wines {
		out[i] = w.Name
	}
	return out
}

func batch() []domain.Wine {
	return []domain.Wine{
		{ID: "1", Name: "unrated", PriceEstimate: "5"},
		{ID: "2", Name: "pricey", Rating: 4.8, PriceEstimate: "90-110"},
		{ID: "3", Name: "bargain", Rating: 4.0, MenuPrice: ptr(12.0)},
		{ID: "4", Name: "unpriced", Rating: 4.9, PriceEstimate: "n/d"},
		{ID: "5", Name: "mid", Rating: 4.0, PriceEstimate: "€ 20-30"},
	}
}

func TestParseSortMode(t *testing.T) {
	mode, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, SortValue, mode)

	mode, err = ParseSortMode("Rating")
	require.NoError(t, err)
	assert.Equal(t, SortRating, mode)

	_, err = ParseSortMode("price")
	assert.Error(t, err)
}

func TestSort_Original_IsIdentity(t *testing.T) {
	in := batch()
	assert.Equal(t, in, Sort(in, SortOriginal))
}

func TestSort_Rating(t *testing.T) {
	got := Sort(batch(), SortRating)
	assert.Equal(t, []string{"unpriced", "pricey", "bargain", "mid", "unrated"}, names(got))
}

func TestSort_Value(t *testing.T) {
	got := Sort(batch(), SortValue)
	// bargain 4/12, mid 4/25, pricey 4.8/100; unrated and unpriced last in input order.
	assert.Equal(t, []string{"bargain", "mid", "pricey", "unrated", "unpriced"}, names(got))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := batch()
	_ = Sort(in, SortRating)
	assert.Equal(t, batch(), in)
}

func TestSort_Stable(t *testing.T) {
	tied := []domain.Wine{
		{ID: "a", Name: "a", Rating: 4, PriceEstimate: "20"},
		{ID: "b", Name: "b", Rating: 4, PriceEstimate: "20"},
		{ID: "c", Name: "c"},
		{ID: "d", Name: "d", Rating: 4, PriceEstimate: "20"},
		{ID: "e", Name: "e"},
	}

	for _, mode := range []SortMode{SortValue, SortRating, SortOriginal} {
		t.Run(string(mode), func(t *testing.T) {
			got := names(Sort(tied, mode))
			if mode == SortOriginal {
				assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
				return
			}
			assert.Equal(t, []string{"a", "b", "d", "c", "e"}, got)
		})
	}
}

func TestSort_ValueScenario(t *testing.T) {
	chianti := domain.Wine{
		ID:            "chianti",
		Name:          "Chianti Classico Gran Selezione",
		Winery:        "Marchesi Antinori",
		Rating:        94.0 / 20, // 94/100 on the canonical 5-star scale
		PriceEstimate: "45-55 €",
	}
	unrated := domain.Wine{ID: "cheap", Name: "Vino da tavola", MenuPrice: ptr(3.0)}

	got := Sort([]domain.Wine{unrated, chianti}, SortValue)
	assert.Equal(t, "chianti", got[0].ID)
	assert.Equal(t, "cheap", got[1].ID)
	assert.True(t, Badge(got, SortValue))
}

func TestBadge(t *testing.T) {
	assert.True(t, Badge(Sort(batch(), SortValue), SortValue))
	assert.True(t, Badge(Sort(batch(), SortRating), SortRating))
	assert.False(t, Badge(batch(), SortOriginal))
	assert.False(t, Badge(nil, SortValue))

	onlyUnrated := []domain.Wine{{Name: "x", PriceEstimate: "10"}, {Name: "y"}}
	assert.False(t, Badge(Sort(onlyUnrated, SortRating), SortRating))
	assert.False(t, Badge(Sort(onlyUnrated, SortValue), SortValue))

	ratedNoPrice := []domain.Wine{{Name: "x", Rating: 4.5}}
	assert.True(t, Badge(ratedNoPrice, SortRating))
	assert.False(t, Badge(ratedNoPrice, SortValue))
}

func TestRank(t *testing.T) {
	inCellar := func(w domain.Wine) bool { return w.Name == "mid" }

	res := Rank(batch(), SortValue, inCellar)
	require.Len(t, res.Rows, 5)
	assert.Equal(t, "MIGLIOR AFFARE", res.BadgeLabel)
	assert.True(t, res.Rows[0].Badge)
	assert.False(t, res.Rows[1].Badge)
	assert.True(t, res.Rows[1].InCellar)

	res = Rank(batch(), SortOriginal, nil)
	assert.Empty(t, res.BadgeLabel)
	for _, row := range res.Rows {
		assert.False(t, row.Badge)
		assert.False(t, row.InCellar)
	}
}
