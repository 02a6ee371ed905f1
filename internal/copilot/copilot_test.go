package copilot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdown(t *testing.T) {
	blocks := ParseMarkdown("**Title** here\n\n• one **b**\n2. two\nplain")
	require.Len(t, blocks, 5)
	assert.Equal(t, BlockParagraph, blocks[0].Kind)
	assert.Equal(t, []Span{{Text: "Title", Bold: true}, {Text: " here"}}, blocks[0].Spans)
	assert.Equal(t, BlockBreak, blocks[1].Kind)
	assert.Equal(t, BlockBullet, blocks[2].Kind)
	assert.Equal(t, []Span{{Text: "one "}, {Text: "b", Bold: true}}, blocks[2].Spans)
	assert.Equal(t, BlockNumbered, blocks[3].Kind)
	assert.Equal(t, "2", blocks[3].Number)
	assert.Equal(t, BlockParagraph, blocks[4].Kind)
	assert.Nil(t, ParseMarkdown(""))
}

func TestHTMLEscapes(t *testing.T) {
	got := string(HTML("**<b>x</b>**\n• <script>"))
	assert.Contains(t, got, "<strong>&lt;b&gt;x&lt;/b&gt;</strong>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.NotContains(t, got, "<script>")

	assert.Equal(t, "Model Accuracy: 84.3%", Plain("**Model Accuracy:** 84.3%"))
	assert.Contains(t, Terminal("• item\n1. first"), "item")
}

func TestRespondKeywordGroups(t *testing.T) {
	st := DefaultStats()
	cases := []struct {
		q, typ, want string
	}{
		{"What is the model ACCURACY?", "model_info", "**Model Accuracy:** 84.3%"},
		{"overall survival please", "statistics", "That's **342 survivors** out of 891 total passengers."},
		{"female survival?", "statistics", "**Female Survival Rate:** 74.2%\n**Male Survival Rate:** 18.9%"},
		{"Show survival by class", "statistics", "• **Third Class:** 24.2%"},
		{"what was the average age", "statistics", "**29.7 years**"},
		{"help", "navigation", "**You're in the analysis section!**"},
		{"What can you do", "navigation", "I can help you with:"},
		{"tell me a joke", TypeFallback, "• Overall survival: 38.4%"},
	}
	for _, c := range cases {
		r := Respond(c.q, "analysis", st)
		assert.Equal(t, c.typ, r.Type, c.q)
		assert.Contains(t, r.Text, c.want, c.q)
	}
	// earlier groups win
	assert.Equal(t, "model_info", Respond("model overall survival", "", st).Type)
}

func TestStatsFromLiveData(t *testing.T) {
	var summary api.Summary
	require.NoError(t, json.Unmarshal([]byte(`{"Survived":{"mean":0.3838},"Age":{"mean":29.699}}`), &summary))
	var rates api.SurvivalRates
	require.NoError(t, json.Unmarshal([]byte(`{"by_sex":{"female":0.742,"male":0.189},"by_class":{"1.0":0.6296}}`), &rates))
	st := StatsFrom(&api.DatasetInfo{Shape: []int{891, 12}}, summary, &rates, &api.RegressionResult{
		Performance: api.ModelPerformance{Accuracy: 0.8212, ModelType: "Logistic Regression"},
	})
	assert.Equal(t, 38.4, st.OverallSurvival)
	assert.Equal(t, 29.7, st.AverageAge)
	assert.Equal(t, 63.0, st.FirstClassSurvival)
	assert.Equal(t, 82.1, st.ModelAccuracy)
	assert.Equal(t, "Logistic Regression", st.ModelType)
	assert.Contains(t, Respond("class survival", "", st).Text, "**First Class:** 63%")
}

func TestParseReplyShapes(t *testing.T) {
	r, err := ParseReply([]byte(`{"response": "plain text", "type": "help", "suggestions": [{"text": "Go", "type": "navigation", "action": "navigate:data"}, {"text": "bad"}]}`))
	require.NoError(t, err)
	assert.Equal(t, Reply{Text: "plain text", Type: "help", Suggestions: []Suggestion{{"Go", "navigation", "navigate:data"}}}, r)

	r, err = ParseReply([]byte(`{"response": "{\"response\": \"inner\", \"type\": \"statistics\"}"}`))
	require.NoError(t, err)
	assert.Equal(t, "inner", r.Text)
	assert.Equal(t, "statistics", r.Type)

	r, err = ParseReply([]byte(`{"response": {"response": "nested", "type": "analysis"}}`))
	require.NoError(t, err)
	assert.Equal(t, Reply{Text: "nested", Type: "analysis"}, r)

	r, err = ParseReply([]byte(`{"response": {"answer": 1}, "type": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"answer": 1}`, r.Text)
	assert.Equal(t, "x", r.Type)

	r, err = ParseReply([]byte(`{"response": "{not json"}`))
	require.NoError(t, err)
	assert.Equal(t, "{not json", r.Text)
	assert.Equal(t, TypeText, r.Type)

	r, err = ParseReply([]byte(`{"response": 42}`))
	require.NoError(t, err)
	assert.Equal(t, "42", r.Text)

	for _, bad := range []string{`{}`, `{"response": null}`, `{"response": ""}`, `{"response": [1]}`, `"str"`, `nope`} {
		_, err := ParseReply([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedReply, bad)
	}
}

func TestParseAction(t *testing.T) {
	cases := map[string]Action{
		"navigate:analysis":              Navigate{View: "analysis"},
		"ask:What is the model accuracy": Ask{Question: "What is the model accuracy"},
		"ask:Ratio: women vs men":        Ask{Question: "Ratio: women vs men"},
		"filter:pclass:1":                Filter{Column: "pclass", Value: "1"},
		"start_tour":                     Command{Name: CmdStartTour},
		" test_connection ":              Command{Name: CmdTestConnection},
	}
	for in, want := range cases {
		got, err := ParseAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"navigate:moon", "ask:", "filter:pclass", "dance", ""} {
		_, err := ParseAction(bad)
		assert.Error(t, err, bad)
	}
	for _, v := range Views {
		for _, qa := range FallbackActions(v.ID) {
			_, err := ParseAction(qa.Action)
			assert.NoError(t, err, qa.Action)
		}
	}
	assert.Equal(t, FallbackActions(ViewDashboard), FallbackActions("nowhere"))
}

func TestFallbackLoader(t *testing.T) {
	static := func() []string { return []string{"static"} }
	l := FallbackLoader[[]string]{
		Fetch:  func(context.Context) ([]string, error) { return []string{"remote"}, nil },
		Static: static,
	}
	v, o := l.Load(context.Background())
	assert.Equal(t, []string{"remote"}, v)
	assert.Equal(t, Remote, o)

	l.Fetch = func(ctx context.Context) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	l.Timeout = 5 * time.Millisecond
	v, o = l.Load(context.Background())
	assert.Equal(t, []string{"static"}, v)
	assert.Equal(t, Fallback, o)
	assert.Equal(t, "fallback", o.String())
}

func TestTourCursor(t *testing.T) {
	var tour Tour
	assert.False(t, tour.Start(nil))
	require.True(t, tour.Start(FallbackTour()))

	_, ok := tour.Prev()
	assert.False(t, ok, "prev is disabled at the first step")
	assert.False(t, tour.View().HasPrev)

	for i, want := range []string{ViewAnalysis, ViewRegression, ViewData} {
		view, done := tour.Next()
		require.False(t, done)
		assert.Equal(t, want, view)
		assert.Equal(t, i+1, tour.View().Index)
	}
	assert.True(t, tour.View().IsLast)

	view, ok := tour.Prev()
	require.True(t, ok)
	assert.Equal(t, ViewRegression, view)
	tour.Next()

	_, done := tour.Next()
	assert.True(t, done, "next at the last step ends the tour")
	assert.False(t, tour.Open())
	assert.Equal(t, TourView{}, tour.View())

	require.True(t, tour.Start(FallbackTour()))
	assert.Equal(t, 0, tour.View().Index, "restart begins at the first step")
}

// fakeAssistant scripts the assistant backend.
type fakeAssistant struct {
	healthErr  error
	pingErr    error
	chatErr    error
	chatBody   string
	tourErr    error
	tourEmpty  bool
	actionsErr error

	contexts  []string
	questions []string
}

func (f *fakeAssistant) Ping(context.Context) error { return f.pingErr }

func (f *fakeAssistant) Health(context.Context) (*api.Health, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &api.Health{Status: "active"}, nil
}

func (f *fakeAssistant) SetContext(_ context.Context, view string) error {
	f.contexts = append(f.contexts, view)
	return nil
}

func (f *fakeAssistant) QuickActions(_ context.Context, view string) ([]api.QuickAction, error) {
	if f.actionsErr != nil {
		return nil, f.actionsErr
	}
	return []api.QuickAction{{Icon: "🧭", Label: "Remote " + view, Action: "navigate:data"}}, nil
}

func (f *fakeAssistant) Chat(_ context.Context, q, _ string) (json.RawMessage, error) {
	f.questions = append(f.questions, q)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return json.RawMessage(f.chatBody), nil
}

func (f *fakeAssistant) Tour(context.Context, string) ([]api.TourStep, error) {
	if f.tourErr != nil {
		return nil, f.tourErr
	}
	if f.tourEmpty {
		return nil, nil
	}
	return []api.TourStep{{Step: 1, Section: ViewData, Title: "Only"}}, nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newWidget(fa *fakeAssistant) (*Widget, *clock, *[]string) {
	c := &clock{t: time.Date(2024, 4, 15, 2, 20, 0, 0, time.UTC)}
	var navs []string
	w := NewWidget(Options{
		Assistant: fa,
		Now:       c.Now,
		Navigate:  func(v string) { navs = append(navs, v) },
	})
	return w, c, &navs
}

var unreachable = &api.UnreachableError{Host: "localhost:5000", Err: errors.New("connection refused")}

func TestOpenGreetsOnce(t *testing.T) {
	fa := &fakeAssistant{}
	w, _, _ := newWidget(fa)
	ctx := context.Background()

	w.Open(ctx)
	assert.Equal(t, Expanded, w.State())
	msgs := w.Log().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeWelcome, msgs[0].Type)
	assert.Contains(t, msgs[0].Content, "✅ Connected to backend")
	assert.Equal(t, []string{ViewDashboard}, fa.contexts)
	snap := w.Snapshot()
	assert.Equal(t, Remote, snap.ActionsOrigin)
	assert.Equal(t, "Remote dashboard", snap.Actions[0].Label)

	w.Minimize()
	assert.Equal(t, Minimized, w.State())
	w.Expand(ctx)
	w.Close()
	w.Open(ctx)
	assert.Equal(t, 1, w.Log().Len(), "the log survives minimize, expand and close")
}

func TestOpenDegraded(t *testing.T) {
	fa := &fakeAssistant{healthErr: unreachable, actionsErr: unreachable}
	w, _, _ := newWidget(fa)
	w.Open(context.Background())

	msgs := w.Log().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeError, msgs[0].Type)
	assert.Contains(t, msgs[0].Content, "**Temporary Mode:** Using fallback responses only.")

	snap := w.Snapshot()
	assert.True(t, snap.Degraded)
	assert.Equal(t, "⚠️ Backend connection issue", snap.Status())
	assert.Equal(t, FallbackActions(ViewDashboard), snap.Actions)
	assert.Equal(t, Fallback, snap.ActionsOrigin)
}

func TestSendUsesRemoteReply(t *testing.T) {
	fa := &fakeAssistant{chatBody: `{"response": "Women first.", "type": "analysis", "suggestions": [{"text": "More", "action": "ask:more"}]}`}
	w, _, _ := newWidget(fa)
	w.Open(context.Background())

	msg, err := w.Send(context.Background(), "Who survived?")
	require.NoError(t, err)
	assert.Equal(t, "Women first.", msg.Content)
	assert.Equal(t, "analysis", msg.Type)
	assert.Len(t, msg.Suggestions, 1)

	msgs := w.Log().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "Who survived?", msgs[1].Content)
	assert.NotEqual(t, msgs[1].ID, msgs[2].ID)

	_, err = w.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestSendFallsBackWhenUnreachable(t *testing.T) {
	fa := &fakeAssistant{chatErr: unreachable}
	w, _, _ := newWidget(fa)
	w.Open(context.Background())

	msg, err := w.Send(context.Background(), "What is the overall survival rate?")
	require.NoError(t, err)
	want := Respond("What is the overall survival rate?", ViewDashboard, DefaultStats())
	assert.Equal(t, want.Text, msg.Content)
	assert.Equal(t, "statistics", msg.Type)
	assert.True(t, w.Snapshot().Degraded)
}

func TestSendFallsBackOnTimeout(t *testing.T) {
	fa := &fakeAssistant{chatErr: context.DeadlineExceeded}
	w, _, _ := newWidget(fa)
	msg, err := w.Send(context.Background(), "model accuracy?")
	require.NoError(t, err)
	assert.Equal(t, "model_info", msg.Type)
}

func TestSendFallsBackOnMalformedReply(t *testing.T) {
	fa := &fakeAssistant{chatBody: `{"answer": "no response field"}`}
	w, _, _ := newWidget(fa)
	w.Open(context.Background())
	msg, err := w.Send(context.Background(), "female survival")
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "**Female Survival Rate:** 74.2%")
	assert.False(t, w.Snapshot().Degraded, "a malformed body is not a connectivity problem")
}

func TestNavigatePulse(t *testing.T) {
	fa := &fakeAssistant{}
	w, c, navs := newWidget(fa)
	ctx := context.Background()
	w.Open(ctx)

	require.NoError(t, w.Trigger(ctx, "navigate:analysis"))
	assert.Equal(t, Minimized, w.State())
	assert.Equal(t, []string{ViewAnalysis}, *navs)
	assert.Equal(t, ViewAnalysis, w.View())
	deadline, ok := w.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, c.t.Add(PulseDuration), deadline)

	assert.False(t, w.Tick(ctx, c.t.Add(PulseDuration-time.Millisecond)))
	assert.Equal(t, Minimized, w.State())

	assert.True(t, w.Tick(ctx, c.t.Add(PulseDuration)))
	assert.Equal(t, Expanded, w.State())
	assert.Equal(t, ViewAnalysis, fa.contexts[len(fa.contexts)-1], "restoring refreshes the new view's context")
	_, ok = w.NextDeadline()
	assert.False(t, ok)
}

func TestManualMinimizeCancelsPulse(t *testing.T) {
	w, c, _ := newWidget(&fakeAssistant{})
	ctx := context.Background()
	w.Open(ctx)
	require.NoError(t, w.Trigger(ctx, "open_predictor"))
	assert.Equal(t, ViewRegression, w.View())
	w.Expand(ctx)
	w.Minimize()
	w.Tick(ctx, c.t.Add(time.Second))
	assert.Equal(t, Minimized, w.State())
}

func TestAskIsSentAfterDelay(t *testing.T) {
	fa := &fakeAssistant{chatErr: unreachable}
	w, c, _ := newWidget(fa)
	ctx := context.Background()
	w.Open(ctx)

	require.NoError(t, w.Trigger(ctx, "ask:What is the model accuracy"))
	assert.Equal(t, "What is the model accuracy", w.Snapshot().PendingAsk)
	assert.False(t, w.Tick(ctx, c.t.Add(AskDelay/2)))
	assert.Empty(t, fa.questions)

	assert.True(t, w.Tick(ctx, c.t.Add(AskDelay)))
	assert.Equal(t, []string{"What is the model accuracy"}, fa.questions)
	last, _ := w.Log().Last()
	assert.Equal(t, "model_info", last.Type)
	assert.Empty(t, w.Snapshot().PendingAsk)
}

func TestFilterAction(t *testing.T) {
	var got Filter
	w := NewWidget(Options{Assistant: &fakeAssistant{}, OnFilter: func(f Filter) { got = f }})
	require.NoError(t, w.Trigger(context.Background(), "filter:pclass:1"))
	assert.Equal(t, Filter{Column: "pclass", Value: "1"}, got)
	assert.Equal(t, ViewData, w.View())
	assert.Error(t, w.Trigger(context.Background(), "explode"))
}

func TestTestConnection(t *testing.T) {
	fa := &fakeAssistant{}
	w, _, _ := newWidget(fa)
	ctx := context.Background()

	msg := w.TestConnection(ctx)
	assert.Equal(t, TypeSuccess, msg.Type)
	assert.Equal(t, "✅ **Connection Test Successful!**\n\nBackend is responding correctly.", msg.Content)

	fa.pingErr = unreachable
	msg = w.TestConnection(ctx)
	assert.Equal(t, TypeError, msg.Type)
	assert.True(t, strings.HasPrefix(msg.Content, "❌ **Connection Test Failed**\n\nError: "))
	assert.Contains(t, msg.Content, "connection refused")
	assert.True(t, w.Snapshot().Degraded)

	fa.pingErr = nil
	require.NoError(t, w.Trigger(ctx, CmdTestConnection))
	assert.False(t, w.Snapshot().Degraded)
}

func TestWidgetEmptyTourUsesBuiltIn(t *testing.T) {
	fa := &fakeAssistant{tourEmpty: true}
	w, _, _ := newWidget(fa)
	ctx := context.Background()
	w.Open(ctx)

	assert.Equal(t, Fallback, w.StartTour(ctx))
	tv := w.Snapshot().Tour
	require.True(t, tv.Open)
	assert.Equal(t, 4, tv.Total)
	assert.Equal(t, "Dashboard Overview", tv.Step.Title)
}

func TestWidgetTour(t *testing.T) {
	fa := &fakeAssistant{tourErr: unreachable}
	w, _, navs := newWidget(fa)
	ctx := context.Background()
	w.Open(ctx)

	assert.Equal(t, Fallback, w.StartTour(ctx))
	tv := w.Snapshot().Tour
	require.True(t, tv.Open)
	assert.Equal(t, 4, tv.Total)

	w.TourPrev(ctx)
	assert.Empty(t, *navs)
	w.TourNext(ctx)
	assert.Equal(t, []string{ViewAnalysis}, *navs)

	w.Minimize()
	assert.False(t, w.Snapshot().Tour.Open, "minimizing dismisses the tour")

	fa.tourErr = nil
	w.Expand(ctx)
	assert.Equal(t, Remote, w.StartTour(ctx))
	assert.Equal(t, 1, w.Snapshot().Tour.Total)
	w.TourNext(ctx)
	assert.False(t, w.Snapshot().Tour.Open, "next on a single-step tour ends it")

	w.StartTour(ctx)
	w.Close()
	assert.Equal(t, Closed, w.State())
	assert.False(t, w.Snapshot().Tour.Open)
}

func TestSetViewOnlyRefreshesWhenExpanded(t *testing.T) {
	fa := &fakeAssistant{}
	w, _, _ := newWidget(fa)
	ctx := context.Background()

	w.SetView(ctx, ViewData)
	assert.Empty(t, fa.contexts, "closed widget stays quiet")

	w.Open(ctx)
	assert.Equal(t, []string{ViewData}, fa.contexts)
	w.SetView(ctx, ViewAnalysis)
	assert.Equal(t, []string{ViewData, ViewAnalysis}, fa.contexts)

	w.Minimize()
	w.SetView(ctx, ViewRegression)
	assert.Len(t, fa.contexts, 2)
}
