package sommelier

import (
	"slices"

	"github.com/pbaille/divino/internal/domain"
	"github.com/pbaille/divino/internal/normalize"
)

func ptr[T any](v T) *T { return &v }

// sampleCatalog is served when the model is out of quota so the rest of
// the app stays usable. Ids are stamped on every copy.
var sampleCatalog = []domain.Wine{
	{
		Name:          "Chianti Classico Gran Selezione",
		Winery:        "Marchesi Antinori",
		Region:        "Toscana",
		Country:       "Italia",
		Year:          "2019",
		Type:          domain.WineRed,
		Style:         "Rosso",
		Rating:        4.7,
		ReviewCount:   ptr(1850),
		PriceEstimate: "45-55 €",
		Taste: &domain.TasteProfile{
			Body: ptr(75.0), Tannins: ptr(70.0), Sweetness: ptr(5.0), Acidity: ptr(65.0),
		},
		Highlights:     domain.Highlights{Wood: "rovere", Fruit: "ciliegia matura", Earth: "tabacco"},
		Description:    "Sangiovese elegante e profondo, con frutto rosso maturo, spezie dolci e un tannino fine che accompagna un lungo finale.",
		FoodPairing:    []string{"Bistecca alla fiorentina", "Pappardelle al cinghiale", "Pecorino stagionato"},
		Grapes:         []string{"Sangiovese"},
		AlcoholContent: "14%",
	},
	{
		Name:          "Barolo",
		Winery:        "Fontanafredda",
		Region:        "Piemonte",
		Country:       "Italia",
		Year:          "2018",
		Type:          domain.WineRed,
		Style:         "Rosso",
		Rating:        4.1,
		ReviewCount:   ptr(3200),
		PriceEstimate: "30-38 €",
		Taste: &domain.TasteProfile{
			Body: ptr(70.0), Tannins: ptr(80.0), Sweetness: ptr(5.0), Acidity: ptr(70.0),
		},
		Highlights:     domain.Highlights{Wood: "liquirizia", Fruit: "amarena", Earth: "catrame"},
		Description:    "Nebbiolo austero e classico: rosa appassita, catrame e frutto scuro, con tannini decisi e grande potenziale di invecchiamento.",
		FoodPairing:    []string{"Brasato al Barolo", "Tajarin al tartufo", "Castelmagno"},
		Grapes:         []string{"Nebbiolo"},
		AlcoholContent: "14%",
	},
	{
		Name:          "Franciacorta Cuvée Prestige",
		Winery:        "Ca' del Bosco",
		Region:        "Lombardia",
		Country:       "Italia",
		Year:          "NV",
		Type:          domain.WineSparkling,
		Style:         "Bollicine",
		Rating:        4.2,
		ReviewCount:   ptr(5400),
		PriceEstimate: "30-35 €",
		Taste: &domain.TasteProfile{
			Body: ptr(45.0), Tannins: ptr(10.0), Sweetness: ptr(10.0), Acidity: ptr(75.0),
		},
		Highlights:     domain.Highlights{Wood: "crosta di pane", Fruit: "mela gialla", Earth: "gesso"},
		Description:    "Perlage fine e cremoso, note di agrumi, frutta bianca e lievito; fresco, sapido e di grande equilibrio.",
		FoodPairing:    []string{"Crudi di mare", "Risotto alla milanese", "Frittura di pesce"},
		Grapes:         []string{"Chardonnay", "Pinot Nero", "Pinot Bianco"},
		AlcoholContent: "12.5%",
	},
	{
		Name:          "Vermentino di Gallura Superiore",
		Winery:        "Capichera",
		Region:        "Sardegna",
		Country:       "Italia",
		Year:          "2022",
		Type:          domain.WineWhite,
		Style:         "Bianco",
		Rating:        4.3,
		ReviewCount:   ptr(640),
		PriceEstimate: "35-45 €",
		Taste: &domain.TasteProfile{
			Body: ptr(55.0), Tannins: ptr(5.0), Sweetness: ptr(8.0), Acidity: ptr(60.0),
		},
		Highlights:     domain.Highlights{Fruit: "pesca bianca", Earth: "macchia mediterranea"},
		Description:    "Bianco mediterraneo intenso e salino, con frutta gialla, erbe aromatiche e un finale ammandorlato.",
		FoodPairing:    []string{"Spaghetti alla bottarga", "Pesce al forno", "Fregola con arselle"},
		Grapes:         []string{"Vermentino"},
		AlcoholContent: "13.5%",
	},
	{
		Name:          "Primitivo di Manduria",
		Winery:        "Feudi di San Marzano",
		Region:        "Puglia",
		Country:       "Italia",
		Year:          "2021",
		Type:          domain.WineRed,
		Style:         "Rosso",
		Rating:        3.9,
		ReviewCount:   ptr(12000),
		PriceEstimate: "12-15 €",
		Taste: &domain.TasteProfile{
			Body: ptr(80.0), Tannins: ptr(55.0), Sweetness: ptr(20.0), Acidity: ptr(45.0),
		},
		Highlights:     domain.Highlights{Wood: "vaniglia", Fruit: "prugna", Earth: "cacao"},
		Description:    "Rosso caldo e avvolgente, ricco di frutta scura matura e spezie dolci, morbido e generoso.",
		FoodPairing:    []string{"Orecchiette al ragù", "Agnello alla brace", "Formaggi stagionati"},
		Grapes:         []string{"Primitivo"},
		AlcoholContent: "14.5%",
	},
}

// fallbackCatalog returns a copy of the sample catalog with fresh ids,
// leaving out every wine named like one of exclude.
func (s *Sommelier) fallbackCatalog(exclude ...domain.Wine) []domain.Wine {
	var excludeIDs []string
	for _, ex := range exclude {
		excludeIDs = append(excludeIDs, ex.ID)
	}

	wines := make([]domain.Wine, 0, len(sampleCatalog))
	for _, w := range sampleCatalog {
		if slices.ContainsFunc(exclude, func(ex domain.Wine) bool { return normalize.Fold(ex.Name) == normalize.Fold(w.Name) }) {
			continue
		}
		w.Taste = cloneTaste(w.Taste)
		w.FoodPairing = slices.Clone(w.FoodPairing)
		w.Grapes = slices.Clone(w.Grapes)
		w.ReviewCount = ptr(*w.ReviewCount)
		w.ID = s.ids.claim("", excludeIDs...)
		wines = append(wines, w)
	}
	return wines
}

func cloneTaste(t *domain.TasteProfile) *domain.TasteProfile {
	if t == nil {
		return nil
	}
	c := *t
	for _, axis := range []**float64{&c.Body, &c.Tannins, &c.Sweetness, &c.Acidity} {
		if *axis != nil {
			*axis = ptr(**axis)
		}
	}
	return &c
}
