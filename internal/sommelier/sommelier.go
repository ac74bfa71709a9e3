// Package sommelier is the boundary to the generative model. It builds
// prompts and response schemas, calls Gemini, and normalizes the loosely
// typed answers into domain.Wine records or chat replies.
package sommelier

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pbaille/divino/internal/config"
	"github.com/pbaille/divino/internal/domain"
	domainerrors "github.com/pbaille/divino/internal/errors"
	"github.com/pbaille/divino/internal/fetcher"
	"github.com/pbaille/divino/internal/ratelimit"
	"github.com/pbaille/divino/internal/validation"
)

// Chat replies used when the model cannot answer.
const (
	ApologyMessage = "Mi dispiace, al momento non riesco a rispondere. Riprova tra poco."
	QuotaMessage   = "Il sommelier è molto richiesto in questo momento. Riprova tra qualche minuto."
)

// Operation names used in errors and logs.
const (
	opScan    = "identify from image"
	opMenuURL = "identify from menu page"
	opSearch  = "identify from text"
	opSimilar = "find similar"
	opImage   = "generate bottle image"
	opAsk     = "ask"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Options configures a Sommelier. Zero values get sensible defaults.
type Options struct {
	APIKey     string
	Model      string
	ImageModel string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Limiter throttles outbound calls per model; nil means unlimited.
	Limiter   *ratelimit.KeyedRateLimiter
	Fetcher   *fetcher.Fetcher
	Validator *validation.Validator
	Logger    *slog.Logger
}

// Sommelier talks to the Gemini API
type Sommelier struct {
	apiKey     string
	model      string
	imageModel string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	fetcher    *fetcher.Fetcher
	logger     *slog.Logger
	ids        *idTracker
	normalizer *normalizer
}

// New creates a Sommelier. The API key is required.
func New(opts Options) (*Sommelier, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "gemini-2.5-flash-image"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetcher.New()
	}
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "sommelier")

	ids := newIDTracker()
	return &Sommelier{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		imageModel: opts.ImageModel,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		fetcher:    opts.Fetcher,
		logger:     logger,
		ids:        ids,
		normalizer: &normalizer{ids: ids, validator: opts.Validator, logger: logger},
	}, nil
}

// NewFromConfig creates a Sommelier from the gemini configuration section
func NewFromConfig(cfg config.GeminiConfig, logger *slog.Logger) (*Sommelier, error) {
	return New(Options{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		ImageModel: cfg.ImageModel,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Limiter:    ratelimit.New(cfg.RPS, cfg.Burst),
		Logger:     logger,
	})
}

// IdentifyFromImage recognizes the wines in a photo. mode shapes the
// instructions: one bottle, a menu with prices, or a wall of bottles.
func (s *Sommelier) IdentifyFromImage(ctx context.Context, image []byte, mimeType string, mode domain.ScanMode) ([]domain.Wine, error) {
	if len(image) == 0 {
		return nil, domainerrors.Validation("image is empty")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	parts := []part{
		{InlineData: &blob{MimeType: mimeType, Data: image}},
		{Text: buildScanPrompt(mode)},
	}
	wines, err := s.identify(ctx, opScan, parts)
	if err != nil {
		return s.degrade(opScan, err)
	}
	if mode == domain.ScanWall && len(wines) > MaxWallBottles {
		wines = wines[:MaxWallBottles]
	}
	return wines, nil
}

// IdentifyFromMenuURL downloads a restaurant wine list and extracts its wines
// with their menu prices.
func (s *Sommelier) IdentifyFromMenuURL(ctx context.Context, rawURL string) ([]domain.Wine, error) {
	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, domainerrors.RequestFailed(opMenuURL, err)
	}

	wines, err := s.identify(ctx, opMenuURL, []part{{Text: buildMenuTextPrompt(page)}})
	if err != nil {
		return s.degrade(opMenuURL, err)
	}
	return wines, nil
}

// IdentifyFromText looks wines up by name or style. Zero matches is not an error.
func (s *Sommelier) IdentifyFromText(ctx context.Context, query string) ([]domain.Wine, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainerrors.Validation("query is empty")
	}

	wines, err := s.identify(ctx, opSearch, []part{{Text: buildSearchPrompt(query)}})
	if err != nil {
		return s.degrade(opSearch, err)
	}
	return wines, nil
}

// FindSimilar suggests 3 to 5 alternatives to ref. The reference itself is
// filtered out and its id is never reused.
func (s *Sommelier) FindSimilar(ctx context.Context, ref domain.Wine) ([]domain.Wine, error) {
	wines, err := s.identify(ctx, opSimilar, []part{{Text: buildSimilarPrompt(ref)}}, ref.ID)
	if err != nil {
		if domainerrors.IsQuota(err) {
			s.logger.Warn("model quota exceeded, serving sample catalog", "op", opSimilar, "error", err)
			return s.fallbackCatalog(ref), nil
		}
		return nil, err
	}

	similar := wines[:0]
	for _, w := range wines {
		if !domain.SameWine(w, ref) {
			similar = append(similar, w)
		}
	}
	return similar, nil
}

// GenerateBottleImage renders a picture of the bottle and returns it as a
// data URI. It is best effort: any failure yields ok == false.
func (s *Sommelier) GenerateBottleImage(ctx context.Context, w domain.Wine) (string, bool) {
	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: buildImagePrompt(w)}}}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{modalityImage}},
	}

	resp, err := s.callAPI(ctx, opImage, s.imageModel, req)
	if err != nil {
		if domainerrors.IsQuota(err) {
			s.logger.Warn("image quota exceeded, keeping placeholder", "wine_id", w.ID, "error", err)
		} else {
			s.logger.Warn("image generation failed", "wine_id", w.ID, "error", err)
		}
		return "", false
	}

	img, ok := resp.image()
	if !ok {
		s.logger.Warn("image generation returned no image", "wine_id", w.ID)
		return "", false
	}
	return "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), true
}

// Ask answers a free-text question about w. Failures return an apology
// instead of an error.
func (s *Sommelier) Ask(ctx context.Context, w domain.Wine, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return ApologyMessage
	}

	req := generateRequest{
		Contents:          []content{{Role: "user", Parts: []part{{Text: buildAskPrompt(w, question)}}}},
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
	}
	resp, err := s.callAPI(ctx, opAsk, s.model, req)
	if err != nil {
		if domainerrors.IsQuota(err) {
			s.logger.Warn("chat quota exceeded", "wine_id", w.ID, "error", err)
			return QuotaMessage
		}
		s.logger.Error("chat failed", "wine_id", w.ID, "error", err)
		return ApologyMessage
	}

	answer := resp.text()
	if answer == "" {
		return ApologyMessage
	}
	return answer
}

// identify runs a structured request and normalizes the answer
func (s *Sommelier) identify(ctx context.Context, op string, parts []part, excludeIDs ...string) ([]domain.Wine, error) {
	req := generateRequest{
		Contents:          []content{{Role: "user", Parts: parts}},
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: jsonMimeType,
			ResponseSchema:   wineListSchema,
		},
	}

	resp, err := s.callAPI(ctx, op, s.model, req)
	if err != nil {
		return nil, err
	}

	batch, err := decodeBatch(resp.text())
	if err != nil {
		return nil, domainerrors.RequestFailed(op, err)
	}
	return s.normalizer.normalize(op, batch, excludeIDs...), nil
}

// degrade serves the sample catalog on quota errors and passes anything else through
func (s *Sommelier) degrade(op string, err error) ([]domain.Wine, error) {
	if domainerrors.IsQuota(err) {
		s.logger.Warn("model quota exceeded, serving sample catalog", "op", op, "error", err)
		return s.fallbackCatalog(), nil
	}
	return nil, err
}
