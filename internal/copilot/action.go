package copilot

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// Dashboard views the assistant can navigate between.
const (
	ViewDashboard  = "dashboard"
	ViewAnalysis   = "analysis"
	ViewRegression = "regression"
	ViewData       = "data"
)

// ViewInfo describes one navigation entry.
type ViewInfo struct {
	ID       string
	Icon     string
	Label    string
	Subtitle string
}

// Views lists the dashboard views in navigation order.
var Views = []ViewInfo{
	{ViewDashboard, "📊", "Dashboard", "Overview & Metrics"},
	{ViewAnalysis, "📈", "Analysis", "Feature Analysis"},
	{ViewRegression, "🤖", "ML Insights", "AI Predictions"},
	{ViewData, "📋", "Data Explorer", "Raw Data"},
}

// LookupView returns the entry for id.
func LookupView(id string) (ViewInfo, bool) {
	for _, v := range Views {
		if v.ID == id {
			return v, true
		}
	}
	return ViewInfo{}, false
}

// SectionIcon is the glyph used for a view in the tour.
func SectionIcon(view string) string {
	if v, ok := LookupView(view); ok {
		return v.Icon
	}
	return "⚡"
}

// Widget-local commands.
const (
	CmdStartTour      = "start_tour"
	CmdOpenChat       = "open_chat"
	CmdTestConnection = "test_connection"
	CmdOpenPredictor  = "open_predictor"
	CmdFocusSearch    = "focus_search"
)

// Action is a parsed quick-action descriptor.
type Action interface {
	action()
	String() string
}

type Navigate struct{ View string }

type Ask struct{ Question string }

type Filter struct{ Column, Value string }

type Command struct{ Name string }

func (Navigate) action() {}
func (Ask) action()      {}
func (Filter) action()   {}
func (Command) action()  {}

func (a Navigate) String() string { return "navigate:" + a.View }
func (a Ask) String() string      { return "ask:" + a.Question }
func (a Filter) String() string   { return "filter:" + a.Column + ":" + a.Value }
func (a Command) String() string  { return a.Name }

var commands = map[string]bool{
	CmdStartTour: true, CmdOpenChat: true, CmdTestConnection: true,
	CmdOpenPredictor: true, CmdFocusSearch: true,
}

// ParseAction decodes a descriptor such as "navigate:analysis",
// "ask:What is the model accuracy", "filter:pclass:1" or "start_tour".
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	kind, rest, hasArg := strings.Cut(s, ":")
	switch {
	case kind == "navigate" && hasArg:
		if _, ok := LookupView(rest); !ok {
			return nil, fmt.Errorf("unknown view %q", rest)
		}
		return Navigate{View: rest}, nil
	case kind == "ask" && hasArg:
		if q := strings.TrimSpace(rest); q != "" {
			return Ask{Question: q}, nil
		}
	case kind == "filter" && hasArg:
		col, val, ok := strings.Cut(rest, ":")
		if ok && col != "" {
			return Filter{Column: col, Value: val}, nil
		}
	case !hasArg && commands[s]:
		return Command{Name: s}, nil
	}
	return nil, fmt.Errorf("unrecognised action %q", s)
}

// QuickAction is one shortcut button.
type QuickAction = api.QuickAction

var fallbackActions = map[string][]QuickAction{
	ViewDashboard: {
		{Icon: "📊", Label: "View Stats", Action: "ask:Show survival statistics"},
		{Icon: "📈", Label: "Go to Analysis", Action: "navigate:analysis"},
		{Icon: "🤖", Label: "Try Prediction", Action: "navigate:regression"},
		{Icon: "🔍", Label: "Explore Data", Action: "navigate:data"},
	},
	ViewAnalysis: {
		{Icon: "🔥", Label: "Explain Heatmap", Action: "ask:What does the heatmap show"},
		{Icon: "👥", Label: "Class Analysis", Action: "ask:Show survival by class"},
		{Icon: "⚡", Label: "Quick Predict", Action: "ask:Predict for female in 1st class"},
		{Icon: "🏠", Label: "Back to Dashboard", Action: "navigate:dashboard"},
	},
	ViewRegression: {
		{Icon: "🎯", Label: "Make Prediction", Action: CmdOpenPredictor},
		{Icon: "📊", Label: "View Accuracy", Action: "ask:What is the model accuracy"},
		{Icon: "🔑", Label: "Key Factors", Action: "ask:What factors are most important"},
		{Icon: "📈", Label: "Go to Analysis", Action: "navigate:analysis"},
	},
	ViewData: {
		{Icon: "🔍", Label: "Search Passengers", Action: CmdFocusSearch},
		{Icon: "📋", Label: "Filter by Class", Action: "filter:pclass:1"},
		{Icon: "📊", Label: "Back to Stats", Action: "navigate:dashboard"},
		{Icon: "🤖", Label: "Ask AI", Action: CmdOpenChat},
	},
}

// FallbackActions is the static table for view; unknown views get the
// dashboard set.
func FallbackActions(view string) []QuickAction {
	a, ok := fallbackActions[view]
	if !ok {
		a = fallbackActions[ViewDashboard]
	}
	return append([]QuickAction(nil), a...)
}
