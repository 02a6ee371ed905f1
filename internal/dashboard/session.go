package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/copilot"
	"github.com/KaramelBytes/titanic-analytics/internal/correlation"
	"github.com/KaramelBytes/titanic-analytics/internal/table"
)

const (
	sessionName  = "titanic"
	keyID        = "sid"
	keyHideIntro = "hide_intro"
	// idle states are dropped after this long
	stateTTL = 24 * time.Hour
)

// state is one browser's dashboard. mu serialises requests from the same
// session; it is held for the whole request, including the widget's
// Navigate callback.
type state struct {
	mu       sync.Mutex
	id       string
	view     string
	browser  *table.Browser
	widget   *copilot.Widget
	hovered  *correlation.Selection
	lastSeen time.Time

	// last slices seen by any view, fed to the local responder
	info    *api.DatasetInfo
	summary api.Summary
	rates   *api.SurvivalRates
	model   *api.RegressionResult
}

func (st *state) stats() copilot.Stats {
	return copilot.StatsFrom(st.info, st.summary, st.rates, st.model)
}

type registry struct {
	mu     sync.Mutex
	now    func() time.Time
	states map[string]*state
}

func newRegistry(now func() time.Time) *registry {
	return &registry{now: now, states: map[string]*state{}}
}

// get returns the state for id, creating it with build when absent.
func (r *registry) get(id string, build func(*state)) *state {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if st, ok := r.states[id]; ok {
		st.lastSeen = now
		return st
	}
	r.pruneLocked(now)
	st := &state{id: id, view: copilot.ViewDashboard, lastSeen: now}
	build(st)
	r.states[id] = st
	return st
}

// prune drops states idle for longer than stateTTL and reports how many.
func (r *registry) prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked(r.now())
}

func (r *registry) pruneLocked(now time.Time) int {
	n := 0
	for k, st := range r.states {
		if now.Sub(st.lastSeen) > stateTTL {
			delete(r.states, k)
			n++
		}
	}
	return n
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// session resolves the caller's state, issuing a new session id cookie when
// the request has none. A cookie that fails to decode starts a fresh session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*state, bool) {
	sess, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		s.logger.Debug("discarding unreadable session cookie", "error", err)
	}
	id, _ := sess.Values[keyID].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values[keyID] = id
		if err := sess.Save(r, w); err != nil {
			s.logger.Warn("failed to save session", "error", err)
		}
	}
	hide, _ := sess.Values[keyHideIntro].(bool)
	return s.states.get(id, s.newState), hide
}

func (s *Server) newState(st *state) {
	st.browser = table.NewBrowser(s.src, s.pageSize, s.logger.With("session", st.id))
	st.widget = copilot.NewWidget(copilot.Options{
		Assistant: s.src,
		Timeouts:  s.timeouts,
		// called with st.mu held
		Stats:    st.stats,
		Navigate: func(view string) { st.view = view },
		OnFilter: func(f copilot.Filter) {
			st.browser.SetColumnFilter(table.ColumnFilter{Column: f.Column, Value: f.Value})
		},
		Now:    s.now,
		Logger: s.logger.With("session", st.id),
		View:   st.view,
	})
}

// dismissIntro stores the "don't show again" flag in the session cookie.
func (s *Server) dismissIntro(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.sessionStore.Get(r, sessionName)
	sess.Values[keyHideIntro] = true
	return sess.Save(r, w)
}
