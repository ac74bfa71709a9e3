package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/id"
	"github.com/pbaille/divino/internal/navigation"
)

type liveSession struct {
	sess     *navigation.Session
	lastSeen time.Time
}

// Registry holds the live navigation sessions, one per front-end tab.
type Registry struct {
	gateway navigation.Sommelier
	cellar  *cellar.Cellar
	recent  *cellar.Recent
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewRegistry creates an empty registry. All sessions share the cellar
// and the recent searches.
func NewRegistry(gateway navigation.Sommelier, c *cellar.Cellar, r *cellar.Recent, logger *slog.Logger) *Registry {
	return &Registry{
		gateway:  gateway,
		cellar:   c,
		recent:   r,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*liveSession),
	}
}

// Create starts a new session on the HOME screen
func (reg *Registry) Create() (*navigation.Session, error) {
	sid, err := id.NewSessionID()
	if err != nil {
		return nil, err
	}
	sess := navigation.NewSession(sid, reg.gateway, reg.cellar, reg.recent, reg.logger)

	reg.mu.Lock()
	reg.sessions[sid] = &liveSession{sess: sess, lastSeen: reg.now()}
	reg.mu.Unlock()
	return sess, nil
}

// Get returns a session by id and marks it as active
func (reg *Registry) Get(sid string) (*navigation.Session, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	live, ok := reg.sessions[sid]
	if !ok {
		return nil, false
	}
	live.lastSeen = reg.now()
	return live.sess, true
}

// Delete ends a session
func (reg *Registry) Delete(sid string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.sessions[sid]; !ok {
		return false
	}
	delete(reg.sessions, sid)
	return true
}

// EvictIdle ends the sessions not used for longer than maxIdle and returns
// their ids. A session waiting on the model is never evicted.
func (reg *Registry) EvictIdle(maxIdle time.Duration) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cutoff := reg.now().Add(-maxIdle)
	var evicted []string
	for sid, live := range reg.sessions {
		if live.lastSeen.After(cutoff) || live.sess.State().Loading {
			continue
		}
		delete(reg.sessions, sid)
		evicted = append(evicted, sid)
	}
	return evicted
}

// Len returns the number of live sessions
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}
