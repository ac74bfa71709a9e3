package sommelier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pbaille/divino/internal/domain"
	"github.com/pbaille/divino/internal/id"
	"github.com/pbaille/divino/internal/validation"
)

// flexFloat accepts a JSON number, a numeric string ("45", "45,50", "€ 45")
// or null. Anything else leaves it unset.
type flexFloat struct {
	v  float64
	ok bool
}

var firstNumber = regexp.MustCompile(`-?\d+(?:[.,]\d+)*`)

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		f.v, f.ok = parseNumber(s)
		return nil
	}
	if v, err := strconv.ParseFloat(string(data), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		f.v, f.ok = v, true
	}
	return nil
}

func parseNumber(s string) (float64, bool) {
	tok := firstNumber.FindString(s)
	if tok == "" {
		return 0, false
	}
	return domain.ParseDecimal(tok)
}

// flexString accepts a JSON string or a scalar; objects and arrays leave it empty.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = flexString(strings.TrimSpace(v))
		}
	case '{', '[', 'n':
	default:
		*s = flexString(data)
	}
	return nil
}

// flexStrings accepts an array of scalars or a single comma separated string.
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	*s = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	var items []flexString
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
	case '"':
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return nil
		}
		for _, p := range strings.Split(one, ",") {
			items = append(items, flexString(strings.TrimSpace(p)))
		}
	}
	for _, it := range items {
		if it != "" {
			*s = append(*s, string(it))
		}
	}
	return nil
}

// first returns the first non-empty value
func first[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

func firstFloat(vals ...flexFloat) flexFloat {
	for _, v := range vals {
		if v.ok {
			return v
		}
	}
	return flexFloat{}
}

type rawTaste struct {
	Bold      flexFloat `json:"bold"`
	Body      flexFloat `json:"body"`
	Structure flexFloat `json:"structure"`
	Tannic    flexFloat `json:"tannic"`
	Tannins   flexFloat `json:"tannins"`
	Sweet     flexFloat `json:"sweet"`
	Sweetness flexFloat `json:"sweetness"`
	Acidic    flexFloat `json:"acidic"`
	Acidity   flexFloat `json:"acidity"`
}

type rawHighlights struct {
	Wood  flexString `json:"wood"`
	Oak   flexString `json:"oak"`
	Fruit flexString `json:"fruit"`
	Earth flexString `json:"earth"`
}

// rawWine is a model answer before normalization. Field names differ
// between prompt versions, so every known alias is accepted.
type rawWine struct {
	ID                  flexString     `json:"id"`
	Name                flexString     `json:"name"`
	Winery              flexString     `json:"winery"`
	Producer            flexString     `json:"producer"`
	ProducerOrWinery    flexString     `json:"producerOrWinery"`
	Region              flexString     `json:"region"`
	Country             flexString     `json:"country"`
	Year                flexString     `json:"year"`
	Vintage             flexString     `json:"vintage"`
	VintageYear         flexString     `json:"vintageYear"`
	Type                flexString     `json:"type"`
	Style               flexString     `json:"style"`
	StyleOrType         flexString     `json:"styleOrType"`
	AverageRating       flexFloat      `json:"averageRating"`
	QualityRating       flexFloat      `json:"qualityRating"`
	Score               flexFloat      `json:"score"`
	ReviewCount         flexFloat      `json:"reviewCount"`
	PriceEstimate       flexString     `json:"priceEstimate"`
	MarketPriceEstimate flexString     `json:"marketPriceEstimate"`
	MarketPrice         flexString     `json:"marketPrice"`
	MenuPrice           flexFloat      `json:"menuPrice"`
	DetectedPrice       flexFloat      `json:"detectedPrice"`
	DetectedOrMenuPrice flexFloat      `json:"detectedOrMenuPrice"`
	Description         flexString     `json:"description"`
	ExpertOpinion       flexString     `json:"expertOpinion"`
	TastingNotes        flexString     `json:"tastingNotes"`
	FoodPairing         flexStrings    `json:"foodPairing"`
	Grapes              flexStrings    `json:"grapes"`
	AlcoholContent      flexString     `json:"alcoholContent"`
	TasteProfile        *rawTaste      `json:"tasteProfile"`
	Highlights          *rawHighlights `json:"highlights"`
}

// decodeBatch parses a model answer into raw records. It accepts a bare
// array, a {"wines": [...]} wrapper or a single object.
func decodeBatch(text string) ([]rawWine, error) {
	text = stripFences(text)
	if text == "" {
		return nil, nil
	}

	switch text[0] {
	case '[':
		var batch []rawWine
		if err := json.Unmarshal([]byte(text), &batch); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return batch, nil
	case '{':
		var wrapped struct {
			Wines *[]rawWine `json:"wines"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Wines != nil {
			return *wrapped.Wines, nil
		}
		var one rawWine
		if err := json.Unmarshal([]byte(text), &one); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return []rawWine{one}, nil
	default:
		return nil, fmt.Errorf("parse json: unexpected answer %.40q", text)
	}
}

// NormalizeRating converts a model rating onto the 0-5 star scale.
// Values above 5 are read as 100-point scores. Out of range values are absent (0).
func NormalizeRating(v float64) float64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v <= 5:
		return math.Round(v*100) / 100
	case v <= 100:
		return math.Round(v/20*100) / 100
	default:
		return 0
	}
}

func axis(vals ...flexFloat) *float64 {
	f := firstFloat(vals...)
	if !f.ok {
		return nil
	}
	v := domain.ClampAxis(f.v)
	return &v
}

func (r rawTaste) profile() *domain.TasteProfile {
	t := &domain.TasteProfile{
		Body:      axis(r.Bold, r.Body, r.Structure),
		Tannins:   axis(r.Tannic, r.Tannins),
		Sweetness: axis(r.Sweet, r.Sweetness),
		Acidity:   axis(r.Acidic, r.Acidity),
	}
	if t.Empty() {
		return nil
	}
	return t
}

// toWine maps the aliases onto a Wine without an id
func (r rawWine) toWine() domain.Wine {
	typeText := string(first(r.Type, r.StyleOrType, r.Style))
	w := domain.Wine{
		Name:           string(r.Name),
		Winery:         string(first(r.Winery, r.ProducerOrWinery, r.Producer)),
		Region:         string(r.Region),
		Country:        string(r.Country),
		Year:           string(first(r.Year, r.Vintage, r.VintageYear)),
		Type:           domain.ParseWineType(typeText),
		Style:          typeText,
		Rating:         NormalizeRating(firstFloat(r.AverageRating, r.QualityRating, r.Score).v),
		PriceEstimate:  string(first(r.PriceEstimate, r.MarketPriceEstimate, r.MarketPrice)),
		AlcoholContent: string(r.AlcoholContent),
		Description:    string(first(r.Description, r.ExpertOpinion)),
		TastingNotes:   string(r.TastingNotes),
		FoodPairing:    []string(r.FoodPairing),
		Grapes:         []string(r.Grapes),
	}

	// Counts that cannot be a real number of reviews are absent.
	if rc := r.ReviewCount; rc.ok && rc.v >= 0 && rc.v <= math.MaxInt32 {
		n := int(math.Round(rc.v))
		w.ReviewCount = &n
	}
	if mp := firstFloat(r.MenuPrice, r.DetectedPrice, r.DetectedOrMenuPrice); mp.ok && mp.v > 0 {
		v := mp.v
		w.MenuPrice = &v
	}
	if r.TasteProfile != nil {
		w.Taste = r.TasteProfile.profile()
	}
	if h := r.Highlights; h != nil {
		w.Highlights = domain.Highlights{
			Wood:  string(first(h.Wood, h.Oak)),
			Fruit: string(h.Fruit),
			Earth: string(h.Earth),
		}
	}
	return w
}

// idTracker remembers every wine id handed out by this process
type idTracker struct {
	mu     sync.Mutex
	issued map[string]struct{}
}

func newIDTracker() *idTracker {
	return &idTracker{issued: make(map[string]struct{})}
}

// claim keeps suggested when it is new and not excluded, otherwise stamps a fresh id
func (t *idTracker) claim(suggested string, exclude ...string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if suggested != "" && !t.seen(suggested, exclude) {
		t.issued[suggested] = struct{}{}
		return suggested
	}
	for {
		fresh := id.NewWineID()
		if !t.seen(fresh, exclude) {
			t.issued[fresh] = struct{}{}
			return fresh
		}
	}
}

func (t *idTracker) seen(candidate string, exclude []string) bool {
	if _, ok := t.issued[candidate]; ok {
		return true
	}
	for _, ex := range exclude {
		if ex == candidate {
			return true
		}
	}
	return false
}

// normalizer turns raw model records into validated wines
type normalizer struct {
	ids       *idTracker
	validator *validation.Validator
	logger    *slog.Logger
}

// normalize validates each record and stamps its id. Records that fail
// validation, such as those without a name, are dropped.
func (n *normalizer) normalize(op string, batch []rawWine, excludeIDs ...string) []domain.Wine {
	wines := make([]domain.Wine, 0, len(batch))
	for i, raw := range batch {
		w := raw.toWine()
		// Placeholder so validation only judges the model's fields.
		w.ID = "pending"
		if err := n.validator.Validate(w); err != nil {
			n.logger.Warn("dropping invalid wine record", "op", op, "index", i, "error", err)
			continue
		}
		w.ID = n.ids.claim(string(raw.ID), excludeIDs...)
		wines = append(wines, w)
	}
	return wines
}
