package sommelier

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/divino/internal/domain"
	"github.com/pbaille/divino/internal/validation"
)

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{-3, 0},
		{4.2, 4.2},
		{5, 5},
		{94, 4.7},
		{100, 5},
		{5.5, 0.28},
		{250, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeRating(tt.in), 1e-9, "rating %v", tt.in)
	}
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{`45`, 45, true},
		{`45.5`, 45.5, true},
		{`"45"`, 45, true},
		{`"45,50"`, 45.5, true},
		{`"€ 38"`, 38, true},
		{`"0"`, 0, true},
		{`null`, 0, false},
		{`"n/d"`, 0, false},
		{`true`, 0, false},
		{`{"v": 1}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var f flexFloat
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &f))
			assert.Equal(t, tt.wantOK, f.ok)
			assert.Equal(t, tt.want, f.v)
		})
	}
}

func TestFlexStrings(t *testing.T) {
	var s flexStrings
	require.NoError(t, json.Unmarshal([]byte(`["Nebbiolo", 12, "", null]`), &s))
	assert.Equal(t, flexStrings{"Nebbiolo", "12"}, s)

	require.NoError(t, json.Unmarshal([]byte(`"Merlot, Cabernet Franc"`), &s))
	assert.Equal(t, flexStrings{"Merlot", "Cabernet Franc"}, s)

	require.NoError(t, json.Unmarshal([]byte(`{"a": 1}`), &s))
	assert.Empty(t, s)
}

func TestWineTypeAliases(t *testing.T) {
	for _, raw := range []string{"Rosso", "RED", "red wine"} {
		batch, err := decodeBatch(`[{"name": "x", "type": "` + raw + `"}]`)
		require.NoError(t, err)
		assert.Equal(t, domain.WineRed, batch[0].toWine().Type, raw)
	}

	batch, err := decodeBatch(`[{"name": "x", "type": "orange natural"}]`)
	require.NoError(t, err)
	assert.Equal(t, domain.WineOther, batch[0].toWine().Type)
}

func TestDecodeBatch_Shapes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"array", `[{"name":"a"},{"name":"b"}]`, 2},
		{"fenced", "```json\n[{\"name\":\"a\"}]\n```", 1},
		{"wrapped", `{"wines":[{"name":"a"},{"name":"b"},{"name":"c"}]}`, 3},
		{"single object", `{"name":"a","winery":"b"}`, 1},
		{"empty", "  ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := decodeBatch(tt.text)
			require.NoError(t, err)
			assert.Len(t, batch, tt.want)
		})
	}

	_, err := decodeBatch("Ecco i vini: ...")
	assert.Error(t, err)
}

func TestToWine_Aliases(t *testing.T) {
	batch, err := decodeBatch(`[{
		"name": "Brunello di Montalcino",
		"producerOrWinery": "Biondi-Santi",
		"vintageYear": "2016",
		"style": "red",
		"averageRating": "4,6",
		"reviewCount": -4,
		"marketPrice": "€ 150",
		"detectedPrice": 0,
		"menuPrice": "210",
		"expertOpinion": "Austero.",
		"tasteProfile": {"structure": 90, "tannins": 85, "sweetness": -5, "acidity": "70"}
	}]`)
	require.NoError(t, err)

	w := batch[0].toWine()
	assert.Equal(t, "Biondi-Santi", w.Winery)
	assert.Equal(t, "2016", w.Year)
	assert.Equal(t, domain.WineRed, w.Type)
	assert.InDelta(t, 4.6, w.Rating, 1e-9)
	assert.Nil(t, w.ReviewCount)
	assert.Equal(t, "€ 150", w.PriceEstimate)
	require.NotNil(t, w.MenuPrice)
	assert.Equal(t, 210.0, *w.MenuPrice)
	assert.Equal(t, "Austero.", w.Description)

	taste := w.Taste.Resolved()
	assert.Equal(t, domain.ResolvedTaste{Body: 90, Tannins: 85, Sweetness: 0, Acidity: 70}, taste)
}

func TestNormalizer_KeepsWineWithAbsurdReviewCount(t *testing.T) {
	n := &normalizer{
		ids:       newIDTracker(),
		validator: validation.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	batch, err := decodeBatch(`[
		{"name":"Barolo","winery":"Fontanafredda","reviewCount":1e20,"averageRating":4.2},
		{"name":"Soave","winery":"Pieropan","reviewCount":"3.000.000.000.000"},
		{"name":"Etna Rosso","winery":"Benanti","reviewCount":"1.250"}
	]`)
	require.NoError(t, err)

	wines := n.normalize("test", batch)
	require.Len(t, wines, 3)
	assert.Nil(t, wines[0].ReviewCount)
	assert.InDelta(t, 4.2, wines[0].Rating, 1e-9)
	assert.Nil(t, wines[1].ReviewCount)
	require.NotNil(t, wines[2].ReviewCount)
	assert.Equal(t, 1250, *wines[2].ReviewCount)
}

func TestToWine_NoTaste(t *testing.T) {
	batch, err := decodeBatch(`[{"name": "x", "tasteProfile": {}}]`)
	require.NoError(t, err)
	w := batch[0].toWine()
	assert.Nil(t, w.Taste)
	assert.Equal(t, domain.ResolvedTaste{Body: 50, Tannins: 50, Sweetness: 10, Acidity: 50}, w.Taste.Resolved())
}

func TestIDTracker(t *testing.T) {
	ids := newIDTracker()

	assert.Equal(t, "wine-a", ids.claim("wine-a"))
	again := ids.claim("wine-a")
	assert.NotEqual(t, "wine-a", again)
	assert.Regexp(t, `^wine-[0-9a-f-]{36}$`, again)

	assert.NotEqual(t, "wine-b", ids.claim("wine-b", "wine-b"))
	assert.NotEmpty(t, ids.claim(""))
}

func TestNormalizer_StampsAndValidates(t *testing.T) {
	n := &normalizer{
		ids:       newIDTracker(),
		validator: validation.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	batch, err := decodeBatch(`[{"id":"dup","name":"A"},{"id":"dup","name":"B"},{"name":""},{"name":"C","qualityRating":"88"}]`)
	require.NoError(t, err)

	wines := n.normalize("test", batch)
	require.Len(t, wines, 3)
	assert.Equal(t, "dup", wines[0].ID)
	assert.NotEqual(t, "dup", wines[1].ID)
	assert.NotEmpty(t, wines[2].ID)
	assert.InDelta(t, 4.4, wines[2].Rating, 1e-9)
}
