package copilot

import (
	"sync"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// FallbackTour is the four-step walkthrough used when the backend has none.
func FallbackTour() []api.TourStep {
	return []api.TourStep{
		{Step: 1, Section: ViewDashboard, Title: "Dashboard Overview",
			Description: "Start here to see key metrics, survival charts, and dataset insights at a glance."},
		{Step: 2, Section: ViewAnalysis, Title: "Feature Analysis",
			Description: "Explore correlations between features and analyze survival patterns by demographics."},
		{Step: 3, Section: ViewRegression, Title: "ML Predictions",
			Description: "Try survival predictions with our AI model and see feature importance."},
		{Step: 4, Section: ViewData, Title: "Data Explorer",
			Description: "Browse passenger records, filter data, and explore individual passenger details."},
	}
}

// Tour is a guided walkthrough with a cursor kept in [0, len-1].
type Tour struct {
	mu     sync.Mutex
	steps  []api.TourStep
	cursor int
	open   bool
}

// Start replaces the steps and opens at the first one. An empty list
// leaves the tour closed.
func (t *Tour) Start(steps []api.TourStep) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursor = 0
	if len(steps) == 0 {
		t.steps, t.open = nil, false
		return false
	}
	t.steps = append([]api.TourStep(nil), steps...)
	t.open = true
	return true
}

// Next advances and returns the view to navigate to. At the last step it
// closes the tour, resets the cursor and returns done=true.
func (t *Tour) Next() (view string, done bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return "", true
	}
	if t.cursor < len(t.steps)-1 {
		t.cursor++
		return t.steps[t.cursor].Section, false
	}
	t.open = false
	t.steps = nil
	t.cursor = 0
	return "", true
}

// Prev steps back; ok is false at the first step.
func (t *Tour) Prev() (view string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open || t.cursor == 0 {
		return "", false
	}
	t.cursor--
	return t.steps[t.cursor].Section, true
}

// Close dismisses the tour, keeping its steps and cursor.
func (t *Tour) Close() {
	t.mu.Lock()
	t.open = false
	t.mu.Unlock()
}

// TourView is a read-only snapshot for rendering.
type TourView struct {
	Open    bool
	Step    api.TourStep
	Index   int
	Total   int
	HasPrev bool
	IsLast  bool
}

// View describes the current step; it is zero while the tour is closed.
func (t *Tour) View() TourView {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open || len(t.steps) == 0 {
		return TourView{}
	}
	return TourView{
		Open:    true,
		Step:    t.steps[t.cursor],
		Index:   t.cursor,
		Total:   len(t.steps),
		HasPrev: t.cursor > 0,
		IsLast:  t.cursor == len(t.steps)-1,
	}
}

func (t *Tour) Open() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}
