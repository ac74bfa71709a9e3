package sommelier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/divino/internal/domain"
	domainerrors "github.com/pbaille/divino/internal/errors"
	"github.com/pbaille/divino/internal/fetcher"
)

const testKey = "test-key"

type recordedRequest struct {
	Model string
	Key   string
	Body  generateRequest
}

// fakeGemini answers generateContent calls with canned responses
type fakeGemini struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	reply    any
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req generateRequest
	_ = json.Unmarshal(body, &req)

	model := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1beta/models/"), ":generateContent")

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Model: model, Key: r.Header.Get(apiKeyHeader), Body: req})
	status, reply := f.status, f.reply
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if s, ok := reply.(string); ok {
		_, _ = w.Write([]byte(s))
		return
	}
	_ = json.NewEncoder(w).Encode(reply)
}

func (f *fakeGemini) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func textReply(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
}

func errorReply(code int, status, message string) map[string]any {
	return map[string]any{"error": map[string]any{"code": code, "status": status, "message": message}}
}

func newTestSommelier(t *testing.T, fake *fakeGemini) *Sommelier {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(Options{
		APIKey:  testKey,
		BaseURL: srv.URL,
		Fetcher: fetcher.New(fetcher.WithPrivateHosts()),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return s
}

const chiantiJSON = "```json\n" + `[{
  "id": "model-1",
  "name": "Chianti Classico Gran Selezione",
  "producer": "Marchesi Antinori",
  "region": "Toscana",
  "vintage": 2019,
  "styleOrType": "Rosso",
  "qualityRating": 94,
  "reviewCount": "1.850",
  "marketPriceEstimate": "45-55 €",
  "detectedOrMenuPrice": null,
  "grapes": "Sangiovese, Cabernet Sauvignon",
  "foodPairing": ["Bistecca", "", "Pecorino"],
  "tasteProfile": {"bold": "80", "tannic": 140, "sweet": null},
  "highlights": {"oak": "rovere"}
}]` + "\n```"

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestIdentifyFromText(t *testing.T) {
	fake := &fakeGemini{reply: textReply(chiantiJSON)}
	s := newTestSommelier(t, fake)

	wines, err := s.IdentifyFromText(context.Background(), "  chianti gran selezione ")
	require.NoError(t, err)
	require.Len(t, wines, 1)

	w := wines[0]
	assert.Equal(t, "model-1", w.ID)
	assert.Equal(t, "Chianti Classico Gran Selezione", w.Name)
	assert.Equal(t, "Marchesi Antinori", w.Winery)
	assert.Equal(t, "2019", w.Year)
	assert.Equal(t, domain.WineRed, w.Type)
	assert.Equal(t, "Rosso", w.Style)
	assert.InDelta(t, 4.7, w.Rating, 1e-9)
	assert.Equal(t, "45-55 €", w.PriceEstimate)
	assert.Nil(t, w.MenuPrice)
	assert.Equal(t, []string{"Sangiovese", "Cabernet Sauvignon"}, w.Grapes)
	assert.Equal(t, []string{"Bistecca", "Pecorino"}, w.FoodPairing)
	assert.Equal(t, "rovere", w.Highlights.Wood)
	require.NotNil(t, w.Taste)
	assert.Equal(t, 80.0, *w.Taste.Body)
	assert.Equal(t, 100.0, *w.Taste.Tannins)
	assert.Nil(t, w.Taste.Sweetness)
	assert.Nil(t, w.Taste.Acidity)

	req := fake.last(t)
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	assert.Equal(t, testKey, req.Key)
	require.NotNil(t, req.Body.GenerationConfig)
	assert.Equal(t, jsonMimeType, req.Body.GenerationConfig.ResponseMimeType)
	require.NotNil(t, req.Body.GenerationConfig.ResponseSchema)
	assert.Equal(t, "ARRAY", req.Body.GenerationConfig.ResponseSchema.Type)
	assert.Contains(t, req.Body.Contents[0].Parts[0].Text, `"chianti gran selezione"`)
}

func TestIdentifyFromText_EmptyQuery(t *testing.T) {
	s := newTestSommelier(t, &fakeGemini{})
	_, err := s.IdentifyFromText(context.Background(), "   ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestIdentifyFromText_ZeroMatches(t *testing.T) {
	s := newTestSommelier(t, &fakeGemini{reply: textReply("[]")})
	wines, err := s.IdentifyFromText(context.Background(), "vino inesistente")
	require.NoError(t, err)
	assert.Empty(t, wines)
}

func TestIdentifyFromText_DropsNamelessRecords(t *testing.T) {
	reply := textReply(`[{"name": "  ", "type": "red"}, {"name": "Soave Classico", "type": "Bianco"}]`)
	s := newTestSommelier(t, &fakeGemini{reply: reply})

	wines, err := s.IdentifyFromText(context.Background(), "soave")
	require.NoError(t, err)
	require.Len(t, wines, 1)
	assert.Equal(t, "Soave Classico", wines[0].Name)
	assert.Equal(t, domain.WineWhite, wines[0].Type)
}

func TestIdentifyFromText_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		reply     any
		wantQuota bool
	}{
		{"server error", http.StatusInternalServerError, errorReply(500, "INTERNAL", "boom"), false},
		{"unparsable answer", http.StatusOK, textReply("Non so di che vino si tratti."), false},
		{"broken json", http.StatusOK, textReply(`[{"name": `), false},
		{"no candidates", http.StatusOK, map[string]any{"candidates": []any{}}, false},
		{"html body", http.StatusBadGateway, "<html>bad gateway</html>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSommelier(t, &fakeGemini{status: tt.status, reply: tt.reply})
			wines, err := s.IdentifyFromText(context.Background(), "barolo")
			require.Error(t, err)
			assert.Nil(t, wines)
			assert.ErrorIs(t, err, domainerrors.ErrRequestFailed)
			assert.False(t, domainerrors.IsQuota(err))
		})
	}
}

func TestQuotaServesSampleCatalog(t *testing.T) {
	quotaReplies := []struct {
		name   string
		status int
		reply  any
	}{
		{"429", http.StatusTooManyRequests, errorReply(429, "RESOURCE_EXHAUSTED", "Resource has been exhausted")},
		{"status only", http.StatusForbidden, errorReply(403, "RESOURCE_EXHAUSTED", "exhausted")},
		{"message only", http.StatusBadRequest, errorReply(400, "FAILED_PRECONDITION", "You exceeded your current quota")},
	}
	for _, tt := range quotaReplies {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSommelier(t, &fakeGemini{status: tt.status, reply: tt.reply})

			wines, err := s.IdentifyFromText(context.Background(), "barolo")
			require.NoError(t, err)
			assert.Len(t, wines, len(sampleCatalog))

			wines, err = s.IdentifyFromImage(context.Background(), []byte{0xff, 0xd8, 0xff}, "image/jpeg", domain.ScanBottle)
			require.NoError(t, err)
			assert.NotEmpty(t, wines)
		})
	}
}

func TestSampleCatalog_FreshIDs(t *testing.T) {
	s := newTestSommelier(t, &fakeGemini{status: http.StatusTooManyRequests, reply: errorReply(429, "RESOURCE_EXHAUSTED", "quota")})

	first, err := s.IdentifyFromText(context.Background(), "a")
	require.NoError(t, err)
	second, err := s.IdentifyFromText(context.Background(), "b")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, w := range append(first, second...) {
		assert.True(t, strings.HasPrefix(w.ID, "wine-"))
		assert.False(t, seen[w.ID], "duplicate id %s", w.ID)
		seen[w.ID] = true
	}

	// Copies must not share mutable state with the catalog.
	*first[0].Taste.Body = 1
	first[0].Grapes[0] = "changed"
	assert.NotEqual(t, 1.0, *sampleCatalog[0].Taste.Body)
	assert.NotEqual(t, "changed", sampleCatalog[0].Grapes[0])
}

func TestIdentifyFromImage(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake")
	fake := &fakeGemini{reply: textReply(`[{"name":"A","type":"red"},{"name":"B","type":"white"}]`)}
	s := newTestSommelier(t, fake)

	wines, err := s.IdentifyFromImage(context.Background(), image, "", domain.ScanMenu)
	require.NoError(t, err)
	assert.Len(t, wines, 2)

	parts := fake.last(t).Body.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MimeType)
	assert.Equal(t, image, parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "menu di vini")
	assert.Contains(t, parts[1].Text, "menuPrice")
}

func TestIdentifyFromImage_WallIsCapped(t *testing.T) {
	var items []string
	for i := 0; i < 14; i++ {
		items = append(items, `{"name":"Vino `+string(rune('A'+i))+`","type":"red"}`)
	}
	fake := &fakeGemini{reply: textReply("[" + strings.Join(items, ",") + "]")}
	s := newTestSommelier(t, fake)

	wines, err := s.IdentifyFromImage(context.Background(), []byte("img"), "image/jpeg", domain.ScanWall)
	require.NoError(t, err)
	assert.Len(t, wines, MaxWallBottles)
	assert.Contains(t, fake.last(t).Body.Contents[0].Parts[1].Text, "fino a 10")
}

func TestIdentifyFromImage_Empty(t *testing.T) {
	s := newTestSommelier(t, &fakeGemini{})
	_, err := s.IdentifyFromImage(context.Background(), nil, "image/jpeg", domain.ScanBottle)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestIdentifyFromMenuURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><ul><li>Soave Classico Pieropan € 32</li></ul></body></html>`))
	}))
	defer page.Close()

	fake := &fakeGemini{reply: textReply(`[{"name":"Soave Classico","winery":"Pieropan","type":"Bianco","menuPrice":"32","priceEstimate":"15-18 €"}]`)}
	s := newTestSommelier(t, fake)

	wines, err := s.IdentifyFromMenuURL(context.Background(), page.URL)
	require.NoError(t, err)
	require.Len(t, wines, 1)
	require.NotNil(t, wines[0].MenuPrice)
	assert.Equal(t, 32.0, *wines[0].MenuPrice)
	assert.Contains(t, fake.last(t).Body.Contents[0].Parts[0].Text, "Soave Classico Pieropan € 32")
}

func TestIdentifyFromMenuURL_FetchFails(t *testing.T) {
	page := httptest.NewServer(http.NotFoundHandler())
	defer page.Close()

	fake := &fakeGemini{}
	s := newTestSommelier(t, fake)

	_, err := s.IdentifyFromMenuURL(context.Background(), page.URL)
	assert.ErrorIs(t, err, domainerrors.ErrRequestFailed)
	assert.Empty(t, fake.requests)
}

func TestFindSimilar_NeverReusesReference(t *testing.T) {
	ref := domain.Wine{ID: "wine-ref", Name: "Barolo", Winery: "Fontanafredda", Type: domain.WineRed}
	reply := textReply(`[
		{"id":"wine-ref","name":"Barbaresco","winery":"Produttori del Barbaresco","type":"red"},
		{"name":"barolo","winery":"FONTANAFREDDA","type":"red"},
		{"id":"wine-x","name":"Langhe Nebbiolo","winery":"G.D. Vajra","type":"red"}
	]`)
	fake := &fakeGemini{reply: reply}
	s := newTestSommelier(t, fake)

	wines, err := s.FindSimilar(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, wines, 2)
	assert.Equal(t, "Barbaresco", wines[0].Name)
	assert.NotEqual(t, "wine-ref", wines[0].ID)
	assert.Equal(t, "wine-x", wines[1].ID)
	assert.Contains(t, fake.last(t).Body.Contents[0].Parts[0].Text, "Fontanafredda")
}

func TestFindSimilar_QuotaExcludesReference(t *testing.T) {
	s := newTestSommelier(t, &fakeGemini{status: http.StatusTooManyRequests, reply: errorReply(429, "RESOURCE_EXHAUSTED", "quota")})
	ref := domain.Wine{ID: "wine-ref", Name: "Barolo", Winery: "Altro produttore"}

	wines, err := s.FindSimilar(context.Background(), ref)
	require.NoError(t, err)
	assert.Len(t, wines, len(sampleCatalog)-1)
	for _, w := range wines {
		assert.NotEqual(t, "Barolo", w.Name)
		assert.NotEqual(t, ref.ID, w.ID)
	}
}

func TestGenerateBottleImage(t *testing.T) {
	png := []byte("\x89PNG-bytes")
	reply := map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{
			map[string]any{"text": "Ecco la bottiglia"},
			map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": png}},
		}}}},
	}
	fake := &fakeGemini{reply: reply}
	s := newTestSommelier(t, fake)

	uri, ok := s.GenerateBottleImage(context.Background(), domain.Wine{ID: "w1", Name: "Barolo", Type: domain.WineRed})
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,iVBORy1ieXRlcw==", uri)

	req := fake.last(t)
	assert.Equal(t, "gemini-2.5-flash-image", req.Model)
	assert.Equal(t, []string{modalityImage}, req.Body.GenerationConfig.ResponseModalities)
}

func TestGenerateBottleImage_FailuresAreAbsent(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  any
	}{
		{"quota", http.StatusTooManyRequests, errorReply(429, "RESOURCE_EXHAUSTED", "quota")},
		{"error", http.StatusInternalServerError, errorReply(500, "INTERNAL", "boom")},
		{"text only", http.StatusOK, textReply("niente immagine")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSommelier(t, &fakeGemini{status: tt.status, reply: tt.reply})
			uri, ok := s.GenerateBottleImage(context.Background(), domain.Wine{ID: "w1", Name: "Barolo"})
			assert.False(t, ok)
			assert.Empty(t, uri)
		})
	}
}

func TestAsk(t *testing.T) {
	fake := &fakeGemini{reply: textReply("Servitelo a 18 gradi.")}
	s := newTestSommelier(t, fake)

	w := domain.Wine{ID: "w1", Name: "Barolo", Winery: "Fontanafredda", Rating: 4.1}
	answer := s.Ask(context.Background(), w, "A che temperatura?")
	assert.Equal(t, "Servitelo a 18 gradi.", answer)

	prompt := fake.last(t).Body.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Fontanafredda")
	assert.Contains(t, prompt, "4.1/5")
	assert.Contains(t, prompt, "A che temperatura?")
	assert.Nil(t, fake.last(t).Body.GenerationConfig)
}

func TestAsk_DegradesToApology(t *testing.T) {
	w := domain.Wine{ID: "w1", Name: "Barolo"}

	s := newTestSommelier(t, &fakeGemini{status: http.StatusInternalServerError, reply: errorReply(500, "INTERNAL", "boom")})
	assert.Equal(t, ApologyMessage, s.Ask(context.Background(), w, "Domanda?"))

	s = newTestSommelier(t, &fakeGemini{status: http.StatusTooManyRequests, reply: errorReply(429, "RESOURCE_EXHAUSTED", "quota")})
	assert.Equal(t, QuotaMessage, s.Ask(context.Background(), w, "Domanda?"))

	s = newTestSommelier(t, &fakeGemini{reply: textReply("  ")})
	assert.Equal(t, ApologyMessage, s.Ask(context.Background(), w, "Domanda?"))
}

func TestCallAPI_HonorsContext(t *testing.T) {
	s := newTestSommelier(t, &fakeGemini{reply: textReply("[]")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.IdentifyFromText(ctx, "barolo")
	assert.ErrorIs(t, err, domainerrors.ErrRequestFailed)
	assert.ErrorIs(t, err, context.Canceled)
}
