package domain

import (
	"fmt"
	"strings"

	"github.com/pbaille/divino/internal/normalize"
)

// WineType is the closed set of wine categories
type WineType string

const (
	WineRed       WineType = "red"
	WineWhite     WineType = "white"
	WineRose      WineType = "rose"
	WineSparkling WineType = "sparkling"
	WineDessert   WineType = "dessert"
	WineOther     WineType = "other"
)

// Label returns the Italian display name used by the front end
func (t WineType) Label() string {
	switch t {
	case WineRed:
		return "Rosso"
	case WineWhite:
		return "Bianco"
	case WineRose:
		return "Rosato"
	case WineSparkling:
		return "Bollicine"
	case WineDessert:
		return "Dessert"
	default:
		return "Altro"
	}
}

// Keywords match whole words only. Matching is ordered: the first category
// whose keywords occur wins, so "red sparkling" stays red.
var wineTypeKeywords = []struct {
	typ      WineType
	keywords []string
}{
	{WineRed, []string{"red", "rosso", "rossi", "rouge", "tinto"}},
	{WineWhite, []string{"white", "bianco", "bianchi", "blanc", "blancs", "blanco"}},
	{WineRose, []string{"rose", "rosato", "rosati", "rosado", "cerasuolo"}},
	{WineSparkling, []string{"sparkling", "champagne", "prosecco", "bollicine", "spumante", "spumanti", "franciacorta", "cava", "cremant", "sekt", "espumoso"}},
	{WineDessert, []string{"dessert", "port", "sherry", "dolce", "passito", "sauternes", "vin santo", "tokaji", "moscato"}},
}

// ParseWineType maps a free-form style string onto a WineType.
// Matching is case and accent insensitive; anything unrecognized is WineOther.
func ParseWineType(s string) WineType {
	words := normalize.Words(s)
	if len(words) == 0 {
		return WineOther
	}
	for _, kw := range wineTypeKeywords {
		if normalize.ContainsAnyWord(words, kw.keywords...) {
			return kw.typ
		}
	}
	return WineOther
}

// ScanMode tells the model what kind of photo it is looking at
type ScanMode string

const (
	ScanBottle ScanMode = "bottle"
	ScanMenu   ScanMode = "menu"
	ScanWall   ScanMode = "wall"
)

// ParseScanMode parses a scan mode, defaulting the empty string to ScanBottle
func ParseScanMode(s string) (ScanMode, error) {
	switch ScanMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScanBottle:
		return ScanBottle, nil
	case ScanMenu:
		return ScanMenu, nil
	case ScanWall:
		return ScanWall, nil
	default:
		return "", fmt.Errorf("unknown scan mode %q", s)
	}
}

// Highlights are short flavor tags shown on the detail screen
type Highlights struct {
	Wood  string `json:"wood,omitempty"`
	Fruit string `json:"fruit,omitempty"`
	Earth string `json:"earth,omitempty"`
}

// Wine is the normalized record produced by the sommelier gateway.
// Rating is always on the 0-5 star scale.
type Wine struct {
	ID             string        `json:"id" validate:"required"`
	Name           string        `json:"name" validate:"required"`
	Winery         string        `json:"winery"`
	Region         string        `json:"region"`
	Country        string        `json:"country"`
	Year           string        `json:"year,omitempty"`
	Type           WineType      `json:"type" validate:"oneof=red white rose sparkling dessert other"`
	Style          string        `json:"style,omitempty"`
	Rating         float64       `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount    *int          `json:"review_count,omitempty" validate:"omitempty,gte=0"`
	PriceEstimate  string        `json:"price_estimate"`
	MenuPrice      *float64      `json:"menu_price,omitempty" validate:"omitempty,gt=0"`
	AlcoholContent string        `json:"alcohol_content,omitempty"`
	Taste          *TasteProfile `json:"taste,omitempty"`
	Highlights     Highlights    `json:"highlights"`
	Description    string        `json:"description"`
	TastingNotes   string        `json:"tasting_notes,omitempty"`
	FoodPairing    []string      `json:"food_pairing"`
	Grapes         []string      `json:"grapes"`
	ImageURI       string        `json:"image_uri,omitempty"`
}

// Key is the cellar identity of a wine: folded name and winery
func (w Wine) Key() string {
	return normalize.Fold(w.Name) + "\x00" + normalize.Fold(w.Winery)
}

// SameWine reports whether two records describe the same bottle for the cellar
func SameWine(a, b Wine) bool {
	return a.Key() == b.Key()
}
