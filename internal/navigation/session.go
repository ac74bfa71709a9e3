package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/domain"
	domainerrors "github.com/pbaille/divino/internal/errors"
)

// Sommelier is the model gateway a Session drives.
type Sommelier interface {
	IdentifyFromImage(ctx context.Context, image []byte, mimeType string, mode domain.ScanMode) ([]domain.Wine, error)
	IdentifyFromMenuURL(ctx context.Context, rawURL string) ([]domain.Wine, error)
	IdentifyFromText(ctx context.Context, query string) ([]domain.Wine, error)
	FindSimilar(ctx context.Context, ref domain.Wine) ([]domain.Wine, error)
	GenerateBottleImage(ctx context.Context, w domain.Wine) (string, bool)
	Ask(ctx context.Context, w domain.Wine, question string) string
}

var errInterrupted = errors.New("request interrupted")

// Session owns the navigation state of one user and handles their intents.
// Model failures never escape as errors: they end up in Context.Error.
// Returned errors mean the intent itself was refused.
type Session struct {
	id      string
	gateway Sommelier
	cellar  *cellar.Cellar
	recent  *cellar.Recent
	logger  *slog.Logger

	mu    sync.Mutex
	state Context
}

// NewSession creates a session on the HOME screen
func NewSession(id string, gateway Sommelier, c *cellar.Cellar, r *cellar.Recent, logger *slog.Logger) *Session {
	return &Session{
		id:      id,
		gateway: gateway,
		cellar:  c,
		recent:  r,
		logger:  logger.With("session_id", id),
		state:   Initial(r.List()),
	}
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Cellar returns the collection this session toggles favorites in
func (s *Session) Cellar() *cellar.Cellar { return s.cellar }

// State returns the current navigation state
func (s *Session) State() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// apply reduces the state under the lock
func (s *Session) apply(in Intent) Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, in)
	return s.state
}

// begin applies a start intent, refusing it when a request is already
// pending or the current screen does not accept it.
func (s *Session) begin(in Intent) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return s.state, domainerrors.ErrBusy
	}
	next := Reduce(s.state, in)
	if !next.Loading {
		return s.state, domainerrors.Validation(fmt.Sprintf("action not available on %s", s.state.Screen))
	}
	s.state = next
	return next, nil
}

// run starts a request and always completes it, even if call panics, so
// the loading flag can never stick.
func (s *Session) run(ctx context.Context, start Intent, call func(context.Context, Context) ([]domain.Wine, error)) (final Context, err error) {
	started, err := s.begin(start)
	if err != nil {
		return started, err
	}

	var completion Intent = RequestFailed{Err: errInterrupted}
	defer func() {
		final = s.apply(completion)
	}()

	wines, callErr := call(ctx, started)
	if callErr != nil {
		s.logger.Error("request failed", "request", started.Pending, "error", callErr)
		completion = RequestFailed{Err: callErr}
		return
	}
	s.logger.Debug("request completed", "request", started.Pending, "wines", len(wines))
	completion = ResultsReceived{Wines: wines}
	return
}

// Scan identifies the wines in a photo
func (s *Session) Scan(ctx context.Context, image []byte, mimeType string, mode domain.ScanMode) (Context, error) {
	if len(image) == 0 {
		return s.State(), domainerrors.Validation("image is empty")
	}
	return s.run(ctx, StartScan{Mode: mode}, func(ctx context.Context, _ Context) ([]domain.Wine, error) {
		return s.gateway.IdentifyFromImage(ctx, image, mimeType, mode)
	})
}

// ImportMenu reads a restaurant wine list from a web page
func (s *Session) ImportMenu(ctx context.Context, rawURL string) (Context, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return s.State(), domainerrors.Validation("url is empty")
	}
	return s.run(ctx, StartMenuImport{URL: rawURL}, func(ctx context.Context, _ Context) ([]domain.Wine, error) {
		return s.gateway.IdentifyFromMenuURL(ctx, rawURL)
	})
}

// Search looks wines up by name. The query is remembered in the recent searches.
func (s *Session) Search(ctx context.Context, query string) (Context, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.State(), domainerrors.Validation("query is empty")
	}
	return s.run(ctx, StartSearch{Query: query}, func(ctx context.Context, _ Context) ([]domain.Wine, error) {
		if _, err := s.recent.Push(ctx, query); err != nil {
			s.logger.Warn("failed to persist recent search", "error", err)
		}
		return s.gateway.IdentifyFromText(ctx, query)
	})
}

// Similar replaces the results with alternatives to the selected wine
func (s *Session) Similar(ctx context.Context) (Context, error) {
	return s.run(ctx, StartSimilar{}, func(ctx context.Context, started Context) ([]domain.Wine, error) {
		return s.gateway.FindSimilar(ctx, *started.Selected)
	})
}

// Select opens the detail of a wine from the results or the cellar
func (s *Session) Select(wineID string) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return s.state, domainerrors.ErrBusy
	}

	var (
		w     domain.Wine
		found bool
	)
	switch s.state.Screen {
	case ScreenResults:
		w, found = s.state.FindWine(wineID)
	case ScreenCellar:
		w, found = s.cellar.Find(wineID)
	default:
		return s.state, domainerrors.Validation(fmt.Sprintf("action not available on %s", s.state.Screen))
	}
	if !found {
		return s.state, domainerrors.NotFoundf("wine %s not found", wineID)
	}

	s.state = Reduce(s.state, SelectWine{Wine: w})
	return s.state, nil
}

// Back returns to the previous screen
func (s *Session) Back() (Context, error) { return s.navigate(Back{}) }

// Home is the navbar Home button
func (s *Session) Home() (Context, error) { return s.navigate(GoHome{}) }

// ShowCellar is the navbar Cellar button
func (s *Session) ShowCellar() (Context, error) { return s.navigate(GoCellar{}) }

// DismissError closes the error banner; it works while loading too
func (s *Session) DismissError() Context { return s.apply(DismissError{}) }

func (s *Session) navigate(in Intent) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return s.state, domainerrors.ErrBusy
	}
	s.state = Reduce(s.state, in)
	return s.state, nil
}

// ToggleFavorite adds the wine to the cellar or removes it. wineID may be
// empty to toggle the selected wine. It reports the new membership.
func (s *Session) ToggleFavorite(ctx context.Context, wineID string) (bool, error) {
	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return false, domainerrors.ErrBusy
	}
	w, found := s.resolve(wineID)
	s.mu.Unlock()
	if !found {
		return false, domainerrors.NotFoundf("wine %s not found", wineID)
	}

	if _, err := s.cellar.Toggle(ctx, w); err != nil {
		s.logger.Error("cellar toggle failed", "wine_id", w.ID, "error", err)
		s.apply(ShowError{Message: MsgCellarFailed})
		return s.cellar.Contains(w), err
	}
	return s.cellar.Contains(w), nil
}

// resolve finds a wine on screen or in the cellar; call with s.mu held
func (s *Session) resolve(wineID string) (domain.Wine, bool) {
	if wineID == "" {
		if s.state.Selected == nil {
			return domain.Wine{}, false
		}
		return *s.state.Selected, true
	}
	if w, ok := s.state.FindWine(wineID); ok {
		return w, true
	}
	return s.cellar.Find(wineID)
}

// Ask sends a question about the selected wine to the sommelier chat
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domainerrors.Validation("question is empty")
	}

	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return "", domainerrors.ErrBusy
	}
	selected := s.state.Selected
	s.mu.Unlock()
	if selected == nil {
		return "", domainerrors.Validation("no wine selected")
	}

	return s.gateway.Ask(ctx, *selected, question), nil
}

// GenerateImage fetches a bottle picture for a wine on screen. Each wine
// is attempted at most once; a result that arrives after the wine left the
// screen, or after a newer request, is discarded.
func (s *Session) GenerateImage(ctx context.Context, wineID string) (Context, error) {
	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return s.State(), domainerrors.ErrBusy
	}
	w, found := s.state.FindWine(wineID)
	if !found {
		state := s.state
		s.mu.Unlock()
		return state, domainerrors.NotFoundf("wine %s not found", wineID)
	}
	if _, requested := s.state.ImageToken(wineID); requested || w.ImageURI != "" {
		state := s.state
		s.mu.Unlock()
		return state, nil
	}
	s.state = Reduce(s.state, RequestImage{WineID: wineID})
	token, _ := s.state.ImageToken(wineID)
	s.mu.Unlock()

	uri, ok := s.gateway.GenerateBottleImage(ctx, w)
	if !ok {
		return s.State(), nil
	}
	return s.apply(ImageGenerated{WineID: wineID, Token: token, URI: uri}), nil
}
