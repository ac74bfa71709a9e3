package sommelier

import (
	"fmt"
	"strings"

	"github.com/pbaille/divino/internal/domain"
)

const systemInstruction = "Sei un sommelier di classe mondiale. Fornisci dati accurati e in italiano."

// MaxWallBottles caps how many bottles a wall photo may yield
const MaxWallBottles = 10

// schema is the subset of the OpenAPI schema object Gemini accepts
type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

func str(desc string) *schema    { return &schema{Type: "STRING", Description: desc} }
func number(desc string) *schema { return &schema{Type: "NUMBER", Description: desc} }

var wineListSchema = &schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"name":           str("Nome completo del vino"),
			"winery":         str("Nome della cantina/produttore"),
			"region":         str("Regione (es. Toscana, Piemonte, Napa Valley)"),
			"country":        str("Paese di origine"),
			"year":           str("Annata se visibile, altrimenti 'NV'"),
			"type":           str("Rosso, Bianco, Rosato, Bollicine, ecc."),
			"averageRating":  number("Valutazione stimata su 5.0 basata su Vivino o critica generale"),
			"reviewCount":    {Type: "INTEGER", Description: "Numero stimato di recensioni"},
			"priceEstimate":  str("Prezzo medio di vendita in ENOTECA/RETAIL stimato (es. €20-€30). NON usare il prezzo del menu qui."),
			"menuPrice":      {Type: "NUMBER", Nullable: true, Description: "Il prezzo esatto visualizzato sul menu per questo vino, se presente. Solo il numero (es. 45). Se non visibile, null."},
			"description":    str("Una breve descrizione da sommelier del carattere del vino (max 50 parole) in ITALIANO"),
			"tastingNotes":   str("Note di degustazione: profumi e sapori principali in ITALIANO"),
			"grapes":         {Type: "ARRAY", Items: &schema{Type: "STRING"}, Description: "Lista dei vitigni utilizzati"},
			"foodPairing":    {Type: "ARRAY", Items: &schema{Type: "STRING"}, Description: "Lista di 3 abbinamenti gastronomici in ITALIANO"},
			"alcoholContent": str("Gradazione alcolica stimata"),
			"highlights": {
				Type: "OBJECT",
				Properties: map[string]*schema{
					"wood":  str("Nota legnosa dominante (es. rovere, vaniglia)"),
					"fruit": str("Nota fruttata dominante (es. ciliegia, mela verde)"),
					"earth": str("Nota terrosa o minerale dominante (es. tabacco, grafite)"),
				},
			},
			"tasteProfile": {
				Type: "OBJECT",
				Properties: map[string]*schema{
					"bold":   number("Scala 0-100: Da Leggero a Corposo"),
					"tannic": number("Scala 0-100: Da Morbido a Tannico"),
					"sweet":  number("Scala 0-100: Da Secco a Dolce"),
					"acidic": number("Scala 0-100: Da Morbido a Acido"),
				},
				Required: []string{"bold", "tannic", "sweet", "acidic"},
			},
		},
		Required: []string{"name", "winery", "region", "country", "type", "description", "grapes", "tasteProfile"},
	},
}

// scanContext tells the model what kind of photo it is looking at
func scanContext(mode domain.ScanMode) string {
	switch mode {
	case domain.ScanMenu:
		return "Questo è un menu di vini. Elenca tutti i vini trovati."
	case domain.ScanWall:
		return fmt.Sprintf("Questa è una parete di vini. Elenca le bottiglie più evidenti/leggibili (fino a %d).", MaxWallBottles)
	default:
		return "Questa è una singola bottiglia di vino. Identificala con precisione."
	}
}

const priceRules = `ISTRUZIONI PREZZI:
1. Se si tratta di un MENU, estrai il prezzo scritto accanto al vino e inseriscilo nel campo 'menuPrice'.
2. Per il campo 'priceEstimate', inserisci SEMPRE il prezzo di mercato medio (prezzo da scaffale/enoteca), NON il prezzo del ristorante.`

func buildScanPrompt(mode domain.ScanMode) string {
	var sb strings.Builder

	sb.WriteString("Sei un esperto Sommelier italiano e un database di vini basato sull'IA.\n")
	sb.WriteString("Analizza l'immagine fornita. Potrebbe essere la foto di una singola bottiglia, un menu di vini o una parete piena di bottiglie.\n\n")
	sb.WriteString(scanContext(mode))
	sb.WriteString("\n\n")
	sb.WriteString(priceRules)
	sb.WriteString("\n\n")
	sb.WriteString(`Identifica i vini visibili. Se è un menu, estrai le voci. Se è una bottiglia o una parete, identifica le etichette.
Per ogni vino identificato, fornisci informazioni dettagliate come se fossi l'app 'Vivino'.
Deduci il profilo gustativo (corpo, tannini, dolcezza, acidità) basandoti sul vitigno e sulla regione.

Rispondi rigorosamente in formato JSON. Assicurati che TUTTI i testi (descrizioni, abbinamenti, ecc.) siano in ITALIANO.`)

	return sb.String()
}

func buildMenuTextPrompt(page string) string {
	var sb strings.Builder

	sb.WriteString("Sei un esperto Sommelier italiano e un database di vini basato sull'IA.\n")
	sb.WriteString("Il testo seguente è stato estratto dalla pagina web di un ristorante. ")
	sb.WriteString(scanContext(domain.ScanMenu))
	sb.WriteString(" Ignora piatti, orari e contatti.\n\n")
	sb.WriteString("Testo della pagina:\n")
	sb.WriteString(page)
	sb.WriteString("\n\n")
	sb.WriteString(priceRules)
	sb.WriteString("\n\n")
	sb.WriteString("Per ogni vino fornisci informazioni dettagliate come se fossi l'app 'Vivino'. ")
	sb.WriteString("Rispondi rigorosamente in formato JSON, con tutti i testi in ITALIANO.")

	return sb.String()
}

func buildSearchPrompt(query string) string {
	return fmt.Sprintf(`Cerca il vino chiamato: %q.
Fornisci informazioni dettagliate per questo vino specifico come se fossi l'app 'Vivino'.
Deduci il profilo gustativo. Restituisci un array JSON con questo unico vino (o più se ambiguo).
Se nessun vino corrisponde, restituisci un array vuoto.
Tutti i testi devono essere in ITALIANO.`, query)
}

func buildSimilarPrompt(ref domain.Wine) string {
	var sb strings.Builder

	sb.WriteString("Suggerisci da 3 a 5 vini stilisticamente simili a questo vino, ")
	sb.WriteString("preferendo alternative con un rapporto qualità/prezzo uguale o migliore.\n\n")
	sb.WriteString("Vino di riferimento:\n")
	writeWineFacts(&sb, ref)
	sb.WriteString("\nNon includere il vino di riferimento. ")
	sb.WriteString("Rispondi rigorosamente in formato JSON, con tutti i testi in ITALIANO.")

	return sb.String()
}

func buildAskPrompt(w domain.Wine, question string) string {
	var sb strings.Builder

	sb.WriteString("Sei un sommelier esperto e cordiale. Rispondi in ITALIANO, in modo conciso (massimo 120 parole), ")
	sb.WriteString("alla domanda dell'utente su questo vino. Basati sui dati seguenti; se non lo sai, dillo.\n\n")
	writeWineFacts(&sb, w)
	sb.WriteString("\nDomanda: ")
	sb.WriteString(question)

	return sb.String()
}

func buildImagePrompt(w domain.Wine) string {
	label := strings.TrimSpace(strings.Join([]string{w.Name, w.Winery, w.Year}, " "))
	return fmt.Sprintf("Fotografia professionale di una bottiglia di vino %s con etichetta elegante \"%s\", "+
		"su sfondo scuro neutro, luce da studio, alta qualità, senza testo aggiuntivo.",
		strings.ToLower(w.Type.Label()), label)
}

// writeWineFacts lists the known fields of w, one per line
func writeWineFacts(sb *strings.Builder, w domain.Wine) {
	line := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			sb.WriteString("- ")
			sb.WriteString(label)
			sb.WriteString(": ")
			sb.WriteString(value)
			sb.WriteString("\n")
		}
	}

	line("Nome", w.Name)
	line("Cantina", w.Winery)
	line("Regione", w.Region)
	line("Paese", w.Country)
	line("Annata", w.Year)
	line("Tipologia", w.Type.Label())
	line("Vitigni", strings.Join(w.Grapes, ", "))
	if w.Rating > 0 {
		line("Valutazione", fmt.Sprintf("%.1f/5", w.Rating))
	}
	line("Prezzo di mercato", w.PriceEstimate)
	if w.MenuPrice != nil {
		line("Prezzo al ristorante", fmt.Sprintf("€%.2f", *w.MenuPrice))
	}
	line("Gradazione", w.AlcoholContent)
	line("Descrizione", w.Description)
	line("Abbinamenti", strings.Join(w.FoodPairing, ", "))
}
