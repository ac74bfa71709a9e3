package domain

import "math"

// Defaults applied to taste axes the model did not supply
const (
	NeutralAxis      = 50.0
	NeutralSweetness = 10.0
)

// TasteProfile holds the four 0-100 taste axes. A nil axis is unknown.
type TasteProfile struct {
	Body      *float64 `json:"body,omitempty"`
	Tannins   *float64 `json:"tannins,omitempty"`
	Sweetness *float64 `json:"sweetness,omitempty"`
	Acidity   *float64 `json:"acidity,omitempty"`
}

// ResolvedTaste is a TasteProfile ready for rendering
type ResolvedTaste struct {
	Body      float64 `json:"body"`
	Tannins   float64 `json:"tannins"`
	Sweetness float64 `json:"sweetness"`
	Acidity   float64 `json:"acidity"`
}

// Resolved fills missing axes with neutral values and clamps every axis to [0,100].
// It is safe to call on a nil profile.
func (t *TasteProfile) Resolved() ResolvedTaste {
	if t == nil {
		t = &TasteProfile{}
	}
	return ResolvedTaste{
		Body:      axisOr(t.Body, NeutralAxis),
		Tannins:   axisOr(t.Tannins, NeutralAxis),
		Sweetness: axisOr(t.Sweetness, NeutralSweetness),
		Acidity:   axisOr(t.Acidity, NeutralAxis),
	}
}

// Empty reports whether no axis is known
func (t *TasteProfile) Empty() bool {
	return t == nil || (t.Body == nil && t.Tannins == nil && t.Sweetness == nil && t.Acidity == nil)
}

// ClampAxis limits v to [0,100]
func ClampAxis(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func axisOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return ClampAxis(*v)
}
