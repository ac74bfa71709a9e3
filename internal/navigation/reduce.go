package navigation

import (
	"slices"
	"strings"

	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/domain"
	domainerrors "github.com/pbaille/divino/internal/errors"
)

// Reduce returns the state that follows c once in is applied. Intents that
// make no sense in the current state leave it unchanged, and while a
// request is pending only its completion, error dismissal and image
// deliveries get through.
func Reduce(c Context, in Intent) Context {
	if c.Loading && !allowedWhileLoading(in) {
		return c
	}

	switch in := in.(type) {
	case StartScan:
		if c.Screen != ScreenHome {
			return c
		}
		return c.start(ScreenScanning, RequestScan)

	case StartMenuImport:
		if c.Screen != ScreenHome || strings.TrimSpace(in.URL) == "" {
			return c
		}
		return c.start(ScreenScanning, RequestMenu)

	case StartSearch:
		query := strings.TrimSpace(in.Query)
		if c.Screen != ScreenHome || query == "" {
			return c
		}
		c = c.start(ScreenHome, RequestSearch)
		c.Recent = cellar.AddRecent(c.Recent, query)
		return c

	case StartSimilar:
		if c.Screen != ScreenDetail || c.Selected == nil {
			return c
		}
		return c.start(ScreenDetail, RequestSimilar)

	case ResultsReceived:
		return c.complete(in.Wines)

	case RequestFailed:
		return c.fail(in.Err)

	case SelectWine:
		if c.Screen != ScreenResults && c.Screen != ScreenCellar {
			return c
		}
		c = c.push(c.Screen)
		w := in.Wine
		c.Selected = &w
		c.Screen = ScreenDetail
		return c

	case Back:
		return c.back()

	case GoHome:
		return c.home()

	case GoCellar:
		c.Screen = ScreenCellar
		c.Selected = nil
		c.Stack = []Screen{ScreenHome}
		return c

	case DismissError:
		c.Error = ""
		return c

	case ShowError:
		c.Error = in.Message
		return c

	case RequestImage:
		if _, ok := c.FindWine(in.WineID); !ok {
			return c
		}
		tok, _ := c.ImageToken(in.WineID)
		return c.withImageToken(in.WineID, tok+1)

	case ImageGenerated:
		return c.applyImage(in)
	}

	return c
}

func allowedWhileLoading(in Intent) bool {
	switch in.(type) {
	case DismissError, ResultsReceived, RequestFailed, ImageGenerated:
		return true
	default:
		return false
	}
}

func (c Context) start(screen Screen, r Request) Context {
	c.Screen = screen
	c.Loading = true
	c.Pending = r
	c.Error = ""
	return c
}

func (c Context) done() Context {
	c.Loading = false
	c.Pending = RequestNone
	return c
}

func (c Context) complete(wines []domain.Wine) Context {
	pending := c.Pending
	if pending == RequestNone {
		return c
	}
	// An empty scan shows an empty list; a search or similar with no
	// match is reported as such.
	if len(wines) == 0 && (pending == RequestSearch || pending == RequestSimilar) {
		return c.fail(domainerrors.ErrNoResults)
	}
	c = c.done()

	c.Results = slices.Clone(wines)
	if len(wines) == 1 && pending != RequestSimilar {
		w := wines[0]
		c.Selected = &w
		c.Screen = ScreenDetail
		c.Stack = []Screen{ScreenHome, ScreenResults}
		return c
	}
	c.Selected = nil
	c.Screen = ScreenResults
	c.Stack = []Screen{ScreenHome}
	return c
}

func (c Context) fail(err error) Context {
	pending := c.Pending
	if pending == RequestNone {
		return c
	}
	c = c.done()
	if pending == RequestSimilar {
		c.Screen = ScreenDetail
	} else {
		c = c.home()
	}
	c.Error = failureMessage(pending, err)
	return c
}

func (c Context) back() Context {
	if c.Screen == ScreenHome {
		return c
	}
	if c.Screen == ScreenDetail {
		c.Selected = nil
	}
	c, target := c.pop()
	if target == ScreenHome {
		return c.home()
	}
	c.Screen = target
	return c
}

func (c Context) home() Context {
	c.Screen = ScreenHome
	c.Results = nil
	c.Selected = nil
	c.Stack = nil
	return c
}

func (c Context) applyImage(in ImageGenerated) Context {
	tok, ok := c.ImageToken(in.WineID)
	if !ok || tok != in.Token || in.URI == "" {
		return c
	}
	if _, present := c.FindWine(in.WineID); !present {
		return c
	}

	if i := slices.IndexFunc(c.Results, func(w domain.Wine) bool { return w.ID == in.WineID }); i >= 0 {
		c.Results = slices.Clone(c.Results)
		c.Results[i].ImageURI = in.URI
	}
	if c.Selected != nil && c.Selected.ID == in.WineID {
		w := *c.Selected
		w.ImageURI = in.URI
		c.Selected = &w
	}
	return c
}
