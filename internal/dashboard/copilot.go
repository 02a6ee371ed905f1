package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/KaramelBytes/titanic-analytics/internal/copilot"
)

// copilotHandler runs fn against the caller's widget. htmx requests get the
// widget fragment back; plain form posts are redirected to the active view,
// which may have changed if fn navigated.
func (s *Server) copilotHandler(fn func(context.Context, *state, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, _ := s.session(w, r)
		st.mu.Lock()
		defer st.mu.Unlock()

		ctx := r.Context()
		st.widget.Tick(ctx, s.now())
		fn(ctx, st, r)

		if r.Header.Get("HX-Request") == "true" {
			data := pageData{View: st.view, Views: copilot.Views, Copilot: st.widget.Snapshot()}
			if d, ok := st.widget.NextDeadline(); ok {
				data.Refresh = refreshAfter(d.Sub(s.now()))
				data.RefreshURL = viewPath(st.view)
			}
			s.render(w, http.StatusOK, "copilot", data)
			return
		}
		http.Redirect(w, r, viewPath(st.view), http.StatusSeeOther)
	}
}

func (s *Server) sendQuestion(ctx context.Context, st *state, r *http.Request) {
	_, err := st.widget.Send(ctx, r.FormValue("question"))
	if err != nil && !errors.Is(err, copilot.ErrEmptyQuestion) {
		s.logger.Warn("question not sent", "error", err)
	}
}

func (s *Server) triggerAction(ctx context.Context, st *state, r *http.Request) {
	// unknown descriptors are logged by the widget and otherwise ignored
	_ = st.widget.Trigger(ctx, r.FormValue("action"))
}
