package navigation

import domainerrors "github.com/pbaille/divino/internal/errors"

// User-facing messages shown in the error banner.
const (
	MsgScanFailed    = "Impossibile analizzare l'immagine. Assicurati che sia chiara e riprova."
	MsgMenuFailed    = "Impossibile leggere la carta dei vini da questo indirizzo."
	MsgNotFound      = "Nessun vino trovato con questo nome."
	MsgSearchFailed  = "Ricerca fallita."
	MsgSimilarFailed = "Impossibile trovare vini simili. Riprova."
	MsgNoSimilar     = "Nessun vino simile trovato."
	MsgCellarFailed  = "Impossibile aggiornare la cantina. Riprova."
)

// LoadingMessages are cycled by the front end while a request is pending.
var LoadingMessages = []string{
	"Analisi dell'immagine in corso...",
	"Identificazione delle etichette e delle annate...",
	"Consultazione del database dei sommelier...",
	"Creazione delle note di degustazione...",
}

// failureMessage picks the banner for a failed request. Zero matches get
// their own message rather than a generic failure.
func failureMessage(r Request, err error) string {
	if domainerrors.Is(err, domainerrors.ErrNoResults) {
		if r == RequestSimilar {
			return MsgNoSimilar
		}
		return MsgNotFound
	}
	switch r {
	case RequestScan:
		return MsgScanFailed
	case RequestMenu:
		return MsgMenuFailed
	case RequestSimilar:
		return MsgSimilarFailed
	default:
		return MsgSearchFailed
	}
}
