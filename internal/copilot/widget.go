package copilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/logging"
)

// State is the widget's visibility.
type State int

const (
	Closed State = iota
	Expanded
	Minimized
)

func (s State) String() string {
	switch s {
	case Expanded:
		return "expanded"
	case Minimized:
		return "minimized"
	}
	return "closed"
}

const (
	// PulseDuration is how long a navigation shortcut keeps the widget
	// minimized before it restores itself.
	PulseDuration = 500 * time.Millisecond
	// AskDelay is the pause between a canned question being queued and sent.
	AskDelay = 100 * time.Millisecond
)

var (
	ErrEmptyQuestion = errors.New("copilot: empty question")
	ErrBusy          = errors.New("copilot: a reply is already pending")
)

const (
	welcomeConnected = "👋 **Welcome to Titanic Analytics!**\n\nI'm your AI Copilot. I can help you:\n• Navigate through the app\n• Explain features and data\n• Analyze survival patterns\n• Make predictions\n• Answer your questions\n\n**Status:** ✅ Connected to backend\n\nWhat would you like to explore today?"
	welcomeDegraded  = "⚠️ **Connection Issue**\n\nI cannot connect to the backend server. Please ensure:\n1. Flask server is running on port 5000\n2. CORS is properly configured\n3. No firewall is blocking the connection\n\n**Temporary Mode:** Using fallback responses only.\n\nYou can still ask about Titanic data!"
	connectionOK     = "✅ **Connection Test Successful!**\n\nBackend is responding correctly."
	connectionFailed = "❌ **Connection Test Failed**\n\nError: %s\n\nPlease ensure:\n1. Flask server is running\n2. Port 5000 is not blocked\n3. Check browser console for details"
)

// Options wires a Widget to its backend and host.
type Options struct {
	Assistant api.Assistant
	// Timeouts bound each call class; zero values leave ctx as given.
	Timeouts api.Timeouts
	// Stats feeds the local responder; nil uses DefaultStats.
	Stats func() Stats
	// Navigate is told after the widget switched to a new view.
	Navigate func(view string)
	// OnFilter receives filter shortcuts before the widget moves to the data view.
	OnFilter func(Filter)
	Now      func() time.Time
	Logger   *slog.Logger
	View     string
}

// Widget is the assistant's state machine. Methods are safe for concurrent
// use; no lock is held across backend calls.
type Widget struct {
	opts   Options
	log    *Log
	tour   Tour
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	view          string
	degraded      bool
	connErr       string
	actions       []QuickAction
	actionsOrigin Origin
	ctxGen        uint64
	busy          bool
	pulseUntil    time.Time
	pendingAsk    string
	askAt         time.Time
}

// NewWidget builds a closed widget from opts, filling in defaults.
func NewWidget(opts Options) *Widget {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Stats == nil {
		opts.Stats = DefaultStats
	}
	view := opts.View
	if _, ok := LookupView(view); !ok {
		view = ViewDashboard
	}
	return &Widget{
		opts:    opts,
		log:     NewLog(opts.Now),
		logger:  logging.OrDiscard(opts.Logger),
		view:    view,
		actions: FallbackActions(view),
		// nothing fetched yet
		actionsOrigin: Fallback,
	}
}

// Log exposes the chat history.
func (w *Widget) Log() *Log { return w.log }

// State returns whether the widget is closed, minimized or expanded.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Open shows the widget. From Closed it checks connectivity, greets on an
// empty log and loads context for the current view; from Minimized it
// behaves like Expand.
func (w *Widget) Open(ctx context.Context) {
	w.mu.Lock()
	prev := w.state
	if prev == Expanded {
		w.mu.Unlock()
		return
	}
	w.state = Expanded
	w.pulseUntil = time.Time{}
	w.mu.Unlock()
	w.onExpanded(ctx)
}

// Expand restores a minimized widget, keeping its log.
func (w *Widget) Expand(ctx context.Context) {
	w.mu.Lock()
	if w.state != Minimized {
		w.mu.Unlock()
		return
	}
	w.state = Expanded
	w.pulseUntil = time.Time{}
	w.mu.Unlock()
	w.onExpanded(ctx)
}

// Minimize hides the panel, keeping the log, and dismisses an open tour.
func (w *Widget) Minimize() {
	w.mu.Lock()
	if w.state == Expanded {
		w.state = Minimized
		w.pulseUntil = time.Time{}
	}
	w.mu.Unlock()
	w.tour.Close()
}

// Close hides the widget and dismisses any tour and queued transitions.
func (w *Widget) Close() {
	w.mu.Lock()
	w.state = Closed
	w.pulseUntil = time.Time{}
	w.pendingAsk = ""
	w.mu.Unlock()
	w.tour.Close()
}

func (w *Widget) onExpanded(ctx context.Context) {
	ok := w.checkHealth(ctx)
	if w.log.Len() == 0 {
		content, typ := welcomeConnected, TypeWelcome
		if !ok {
			content, typ = welcomeDegraded, TypeError
		}
		w.log.Append(Message{Role: RoleAssistant, Content: content, Type: typ})
	}
	w.refresh(ctx, true)
}

func (w *Widget) checkHealth(ctx context.Context) bool {
	hctx, cancel := withTimeout(ctx, w.opts.Timeouts.Health)
	defer cancel()
	_, err := w.opts.Assistant.Health(hctx)
	w.setHealth(err)
	return err == nil
}

func (w *Widget) setHealth(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.Warn("assistant health check failed", "error", err)
		w.degraded, w.connErr = true, err.Error()
		return
	}
	w.degraded, w.connErr = false, ""
}

// SetView records the active dashboard view. While expanded the backend is
// told about the change and quick actions are reloaded.
func (w *Widget) SetView(ctx context.Context, view string) {
	w.mu.Lock()
	w.view = view
	expanded := w.state == Expanded
	w.mu.Unlock()
	if expanded {
		w.refresh(ctx, true)
	}
}

// View is the dashboard view the copilot is tracking.
func (w *Widget) View() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// refresh reloads quick actions, and the backend context when setContext
// is set. Results from a superseded refresh are dropped.
func (w *Widget) refresh(ctx context.Context, setContext bool) {
	w.mu.Lock()
	w.ctxGen++
	gen, view := w.ctxGen, w.view
	w.mu.Unlock()

	if setContext {
		cctx, cancel := withTimeout(ctx, w.opts.Timeouts.Context)
		if err := w.opts.Assistant.SetContext(cctx, view); err != nil {
			w.logger.Warn("context update failed", "view", view, "error", err)
		}
		cancel()
	}
	actions, origin := FallbackLoader[[]QuickAction]{
		Name: "quick-actions",
		Fetch: func(ctx context.Context) ([]QuickAction, error) {
			a, err := w.opts.Assistant.QuickActions(ctx, view)
			if err == nil && len(a) == 0 {
				err = fmt.Errorf("no quick actions for %q", view)
			}
			return a, err
		},
		Static:  func() []QuickAction { return FallbackActions(view) },
		Timeout: w.opts.Timeouts.Context,
		Logger:  w.logger,
	}.Load(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.ctxGen {
		return
	}
	w.actions, w.actionsOrigin = actions, origin
}

// Send appends the user's question, asks the backend and appends the
// answer. Any backend failure, timeout or malformed reply is answered by the
// local responder instead; only an empty question or a send already in
// flight is an error.
func (w *Widget) Send(ctx context.Context, question string) (Message, error) {
	if strings.TrimSpace(question) == "" {
		return Message{}, ErrEmptyQuestion
	}
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return Message{}, ErrBusy
	}
	w.busy = true
	view := w.view
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
	}()

	w.log.Append(Message{Role: RoleUser, Content: question})

	cctx, cancel := withTimeout(ctx, w.opts.Timeouts.Chat)
	raw, err := w.opts.Assistant.Chat(cctx, question, view)
	cancel()
	var reply Reply
	if err == nil {
		reply, err = ParseReply(raw)
	}
	if err != nil {
		w.logger.Warn("chat failed, answering locally", "error", err)
		if api.IsUnavailable(err) {
			w.mu.Lock()
			w.degraded, w.connErr = true, err.Error()
			w.mu.Unlock()
		}
		reply = Respond(question, view, w.opts.Stats())
	}
	msg := w.log.Append(Message{
		Role:        RoleAssistant,
		Content:     reply.Text,
		Type:        reply.Type,
		Suggestions: reply.Suggestions,
	})
	w.refresh(ctx, false)
	return msg, nil
}

// Trigger parses and runs a quick-action descriptor.
func (w *Widget) Trigger(ctx context.Context, descriptor string) error {
	a, err := ParseAction(descriptor)
	if err != nil {
		w.logger.Warn("ignoring quick action", "action", descriptor, "error", err)
		return err
	}
	w.Dispatch(ctx, a)
	return nil
}

// Dispatch runs a parsed action. Navigation pulses the widget (minimized
// for PulseDuration); a canned question is sent AskDelay later. Both are
// completed by Tick.
func (w *Widget) Dispatch(ctx context.Context, a Action) {
	switch a := a.(type) {
	case Navigate:
		w.pulseTo(ctx, a.View)
	case Ask:
		w.mu.Lock()
		w.pendingAsk = a.Question
		w.askAt = w.opts.Now().Add(AskDelay)
		w.mu.Unlock()
	case Filter:
		if w.opts.OnFilter != nil {
			w.opts.OnFilter(a)
		}
		w.pulseTo(ctx, ViewData)
	case Command:
		switch a.Name {
		case CmdStartTour:
			w.StartTour(ctx)
		case CmdOpenChat:
			w.Open(ctx)
		case CmdTestConnection:
			w.TestConnection(ctx)
		case CmdOpenPredictor:
			w.pulseTo(ctx, ViewRegression)
		case CmdFocusSearch:
			w.pulseTo(ctx, ViewData)
		}
	}
}

func (w *Widget) pulseTo(ctx context.Context, view string) {
	w.mu.Lock()
	if w.state == Expanded {
		w.state = Minimized
		w.pulseUntil = w.opts.Now().Add(PulseDuration)
	}
	w.mu.Unlock()
	w.goTo(ctx, view)
}

func (w *Widget) goTo(ctx context.Context, view string) {
	w.SetView(ctx, view)
	if w.opts.Navigate != nil {
		w.opts.Navigate(view)
	}
}

// Tick fires every timed transition due at now and reports whether any
// fired: the post-navigation restore and a queued canned question.
func (w *Widget) Tick(ctx context.Context, now time.Time) bool {
	w.mu.Lock()
	restore := w.state == Minimized && !w.pulseUntil.IsZero() && !now.Before(w.pulseUntil)
	if restore {
		w.state = Expanded
		w.pulseUntil = time.Time{}
	}
	var ask string
	if w.pendingAsk != "" && !now.Before(w.askAt) {
		ask, w.pendingAsk = w.pendingAsk, ""
	}
	w.mu.Unlock()

	if restore {
		w.onExpanded(ctx)
	}
	if ask != "" {
		if _, err := w.Send(ctx, ask); err != nil {
			w.logger.Warn("queued question dropped", "question", ask, "error", err)
		}
	}
	return restore || ask != ""
}

// NextDeadline is the earliest pending timed transition.
func (w *Widget) NextDeadline() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var next time.Time
	if !w.pulseUntil.IsZero() {
		next = w.pulseUntil
	}
	if w.pendingAsk != "" && (next.IsZero() || w.askAt.Before(next)) {
		next = w.askAt
	}
	return next, !next.IsZero()
}

// TestConnection probes both health endpoints and reports the outcome in
// the chat log.
func (w *Widget) TestConnection(ctx context.Context) Message {
	hctx, cancel := withTimeout(ctx, w.opts.Timeouts.Health)
	err := w.opts.Assistant.Ping(hctx)
	cancel()
	if err == nil {
		hctx, cancel = withTimeout(ctx, w.opts.Timeouts.Health)
		_, err = w.opts.Assistant.Health(hctx)
		cancel()
	}
	w.setHealth(err)
	if err != nil {
		return w.log.Append(Message{Role: RoleAssistant, Content: fmt.Sprintf(connectionFailed, err), Type: TypeError})
	}
	return w.log.Append(Message{Role: RoleAssistant, Content: connectionOK, Type: TypeSuccess})
}

// StartTour loads the quick tour, or the built-in one, and opens it.
func (w *Widget) StartTour(ctx context.Context) Origin {
	steps, origin := FallbackLoader[[]api.TourStep]{
		Name:    "tour",
		Fetch:   func(ctx context.Context) ([]api.TourStep, error) { return w.opts.Assistant.Tour(ctx, "quick") },
		Static:  FallbackTour,
		Timeout: w.opts.Timeouts.Health,
		Logger:  w.logger,
	}.Load(ctx)
	if len(steps) == 0 {
		w.logger.Warn("tour has no steps, using built-in tour")
		steps, origin = FallbackTour(), Fallback
	}
	w.tour.Start(steps)
	return origin
}

// TourNext advances the tour, moving to the next step's view; at the last
// step it ends the tour.
func (w *Widget) TourNext(ctx context.Context) {
	if view, done := w.tour.Next(); !done && view != "" {
		w.goTo(ctx, view)
	}
}

// TourPrev steps back; it does nothing at the first step.
func (w *Widget) TourPrev(ctx context.Context) {
	if view, ok := w.tour.Prev(); ok && view != "" {
		w.goTo(ctx, view)
	}
}

// TourClose dismisses the tour, e.g. on an outside click.
func (w *Widget) TourClose() { w.tour.Close() }

// Snapshot is everything needed to render the widget.
type Snapshot struct {
	State         State
	View          string
	Degraded      bool
	ConnError     string
	Messages      []Message
	Actions       []QuickAction
	ActionsOrigin Origin
	Tour          TourView
	Busy          bool
	PendingAsk    string
}

// Snapshot copies the current state for rendering.
func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	s := Snapshot{
		State:         w.state,
		View:          w.view,
		Degraded:      w.degraded,
		ConnError:     w.connErr,
		Actions:       append([]QuickAction(nil), w.actions...),
		ActionsOrigin: w.actionsOrigin,
		Busy:          w.busy,
		PendingAsk:    w.pendingAsk,
	}
	w.mu.Unlock()
	s.Messages = w.log.Messages()
	s.Tour = w.tour.View()
	return s
}

// Status is the banner text under the header.
func (s Snapshot) Status() string {
	if s.Degraded {
		return "⚠️ Backend connection issue"
	}
	return "✅ Connected to backend"
}

// Placeholder is the chat input hint.
func (s Snapshot) Placeholder() string {
	if s.Degraded {
		return "Fallback mode - Ask about Titanic data"
	}
	return "Ask about navigation, features, or data..."
}

// Pending is the text shown while a reply is awaited.
func (s Snapshot) Pending() string {
	if s.Degraded {
		return "Using fallback mode..."
	}
	return "Thinking..."
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
