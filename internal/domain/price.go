package domain

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var numberToken = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ParseDecimal reads one number written with Italian or English
// separators. When both "." and "," occur the last one is the decimal
// mark ("1.250,00" and "1,250.00" are 1250). A repeated separator groups
// thousands ("1.250.000"), as does a lone dot before exactly three digits
// ("1.250"). A lone comma is always decimal ("10,5").
func ParseDecimal(tok string) (float64, bool) {
	neg := strings.HasPrefix(tok, "-")
	tok = strings.TrimPrefix(tok, "-")

	lastDot, lastComma := strings.LastIndex(tok, "."), strings.LastIndex(tok, ",")
	intPart, frac := tok, ""
	switch {
	case lastDot >= 0 && lastComma >= 0:
		mark := max(lastDot, lastComma)
		intPart, frac = tok[:mark], tok[mark+1:]
	case strings.Count(tok, ".") > 1 || strings.Count(tok, ",") > 1:
	case lastComma >= 0:
		intPart, frac = tok[:lastComma], tok[lastComma+1:]
	case lastDot >= 0 && len(tok)-lastDot-1 == 3 && !strings.HasPrefix(tok, "0"):
	case lastDot >= 0:
		intPart, frac = tok[:lastDot], tok[lastDot+1:]
	}

	digits := strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if frac != "" {
		digits += "." + frac
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// ParseAveragePrice returns the mean of every number found in a free-form
// price string ("€ 10-12" -> 11, "€10,50" -> 10.5, "€ 1.250,00" -> 1250).
// It returns 0 when the string holds no number.
func ParseAveragePrice(text string) float64 {
	tokens := numberToken.FindAllString(text, -1)
	var sum float64
	var n int
	for _, tok := range tokens {
		v, ok := ParseDecimal(tok)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// NumericPrice returns the price used for comparisons: the menu price when
// present, otherwise the average of the market estimate.
func NumericPrice(w Wine) (float64, bool) {
	if w.MenuPrice != nil && usable(*w.MenuPrice) {
		return *w.MenuPrice, true
	}
	if p := ParseAveragePrice(w.PriceEstimate); usable(p) {
		return p, true
	}
	return 0, false
}

// IsPriced reports whether the wine can take part in price comparisons
func IsPriced(w Wine) bool {
	_, ok := NumericPrice(w)
	return ok
}

// ValueScore is rating divided by price. It is only defined when both are
// positive and finite, and is used for ranking only.
func ValueScore(w Wine) (float64, bool) {
	if !usable(w.Rating) {
		return 0, false
	}
	price, ok := NumericPrice(w)
	if !ok {
		return 0, false
	}
	score := w.Rating / price
	if !usable(score) {
		return 0, false
	}
	return score, true
}

// PriceComparison compares a menu price with the market estimate
type PriceComparison struct {
	MenuPrice   float64 `json:"menu_price"`
	MarketPrice float64 `json:"market_price"`
	// DiffPercent is (menu - market) / market, rounded to a whole percent.
	DiffPercent int  `json:"diff_percent"`
	Markup      bool `json:"markup"`
}

// CompareMenuPrice reports how far the menu price sits from the market
// estimate. It needs both a menu price and a parseable estimate.
func CompareMenuPrice(w Wine) (PriceComparison, bool) {
	if w.MenuPrice == nil || !usable(*w.MenuPrice) {
		return PriceComparison{}, false
	}
	market := ParseAveragePrice(w.PriceEstimate)
	if !usable(market) {
		return PriceComparison{}, false
	}
	diff := *w.MenuPrice - market
	return PriceComparison{
		MenuPrice:   *w.MenuPrice,
		MarketPrice: market,
		DiffPercent: int(math.Round(diff / market * 100)),
		Markup:      diff > 0,
	}, true
}

const purchaseSearchURL = "https://www.google.com/search"

// PurchaseURL builds a web search link for buying the wine
func PurchaseURL(w Wine) string {
	parts := []string{"acquistare"}
	for _, p := range []string{w.Name, w.Winery, w.Year} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, "miglior prezzo")
	return purchaseSearchURL + "?" + url.Values{"q": {strings.Join(parts, " ")}}.Encode()
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
