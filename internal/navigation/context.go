// Package navigation is the view state machine of DiVino. A Context value
// describes what the user is looking at; Reduce derives the next Context
// from an Intent without side effects, and Session runs the intents that
// need the sommelier or the cellar.
package navigation

import (
	"slices"

	"github.com/pbaille/divino/internal/domain"
)

// Screen is one of the views of the app
type Screen string

const (
	ScreenHome     Screen = "HOME"
	ScreenScanning Screen = "SCANNING"
	ScreenResults  Screen = "RESULTS"
	ScreenDetail   Screen = "DETAIL"
	ScreenCellar   Screen = "CELLAR"
)

// Request identifies the slow operation a Context is waiting for
type Request string

const (
	RequestNone    Request = ""
	RequestScan    Request = "scan"
	RequestMenu    Request = "menu"
	RequestSearch  Request = "search"
	RequestSimilar Request = "similar"
)

// MaxStack bounds the back stack; the oldest entry is dropped past it.
const MaxStack = 16

// Context is the full navigation state. It is a value: Reduce never
// modifies the Context it receives, nor the slices it shares.
type Context struct {
	Screen   Screen        `json:"screen"`
	Results  []domain.Wine `json:"results"`
	Selected *domain.Wine  `json:"selected,omitempty"`
	Loading  bool          `json:"loading"`
	Pending  Request       `json:"pending,omitempty"`
	Error    string        `json:"error,omitempty"`
	Stack    []Screen      `json:"stack"`
	Recent   []string      `json:"recent"`

	imageTokens map[string]uint64
}

// Initial returns the starting state with the given recent searches
func Initial(recent []string) Context {
	return Context{Screen: ScreenHome, Recent: slices.Clone(recent)}
}

// ImageToken returns the latest image request token for a wine id
func (c Context) ImageToken(wineID string) (uint64, bool) {
	tok, ok := c.imageTokens[wineID]
	return tok, ok
}

// FindWine looks up a wine shown on screen: the selection or a result
func (c Context) FindWine(wineID string) (domain.Wine, bool) {
	if c.Selected != nil && c.Selected.ID == wineID {
		return *c.Selected, true
	}
	for _, w := range c.Results {
		if w.ID == wineID {
			return w, true
		}
	}
	return domain.Wine{}, false
}

// CanGoBack reports whether Back has somewhere to go
func (c Context) CanGoBack() bool {
	return c.Screen != ScreenHome
}

func (c Context) push(s Screen) Context {
	stack := append(slices.Clone(c.Stack), s)
	if len(stack) > MaxStack {
		stack = stack[len(stack)-MaxStack:]
	}
	c.Stack = stack
	return c
}

func (c Context) pop() (Context, Screen) {
	if len(c.Stack) == 0 {
		return c, ScreenHome
	}
	top := c.Stack[len(c.Stack)-1]
	c.Stack = slices.Clone(c.Stack[:len(c.Stack)-1])
	return c, top
}

func (c Context) withImageToken(wineID string, tok uint64) Context {
	tokens := make(map[string]uint64, len(c.imageTokens)+1)
	for k, v := range c.imageTokens {
		tokens[k] = v
	}
	tokens[wineID] = tok
	c.imageTokens = tokens
	return c
}
