package navigation

import "github.com/pbaille/divino/internal/domain"

// Intent is something the user or a finished request asks of the state
// machine. The set is closed: only this package defines intents.
type Intent interface {
	intent()
}

// StartScan begins a photo scan from HOME.
type StartScan struct{ Mode domain.ScanMode }

// StartMenuImport begins reading a restaurant wine list from a URL, from HOME.
type StartMenuImport struct{ URL string }

// StartSearch begins a text search from HOME.
type StartSearch struct{ Query string }

// StartSimilar asks for alternatives to the selected wine, from DETAIL.
type StartSimilar struct{}

// ResultsReceived completes the pending request with its wines.
type ResultsReceived struct{ Wines []domain.Wine }

// RequestFailed completes the pending request with an error.
type RequestFailed struct{ Err error }

// SelectWine opens the detail of a wine from RESULTS or CELLAR.
type SelectWine struct{ Wine domain.Wine }

// Back returns to the previous screen.
type Back struct{}

// GoHome is the navbar Home button.
type GoHome struct{}

// GoCellar is the navbar Cellar button.
type GoCellar struct{}

// DismissError closes the error banner.
type DismissError struct{}

// ShowError raises the error banner outside a pending request.
type ShowError struct{ Message string }

// RequestImage records a bottle image request and issues its token.
type RequestImage struct{ WineID string }

// ImageGenerated delivers a bottle image for the request with Token.
type ImageGenerated struct {
	WineID string
	Token  uint64
	URI    string
}

func (StartScan) intent()       {}
func (StartMenuImport) intent() {}
func (StartSearch) intent()     {}
func (StartSimilar) intent()    {}
func (ResultsReceived) intent() {}
func (RequestFailed) intent()   {}
func (SelectWine) intent()      {}
func (Back) intent()            {}
func (GoHome) intent()          {}
func (GoCellar) intent()        {}
func (DismissError) intent()    {}
func (ShowError) intent()       {}
func (RequestImage) intent()    {}
func (ImageGenerated) intent()  {}
