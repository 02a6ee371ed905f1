package dashboard

import (
	"context"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/charts"
	"github.com/KaramelBytes/titanic-analytics/internal/copilot"
	"github.com/KaramelBytes/titanic-analytics/internal/correlation"
	"github.com/KaramelBytes/titanic-analytics/internal/mlresults"
	"github.com/KaramelBytes/titanic-analytics/internal/table"
)

const connectionError = "Unable to connect to the backend server. Please check if the service is running."

func (s *Server) setupRoutes(r chi.Router) {
	r.Get("/", s.handleDashboard)
	r.Get("/analysis", s.handleAnalysis)
	r.Get("/regression", s.handleRegression)
	r.Get("/data", s.handleData)
	r.Get("/data/export.{format}", s.handleExport)

	r.Get("/charts/survival/{key}.svg", s.handleSurvivalChart)
	r.Get("/charts/importance.svg", s.handleImportanceChart)

	r.Post("/intro/dismiss", s.handleDismissIntro)

	r.Route("/copilot", func(r chi.Router) {
		r.Post("/open", s.copilotHandler(func(ctx context.Context, st *state, _ *http.Request) { st.widget.Open(ctx) }))
		r.Post("/close", s.copilotHandler(func(_ context.Context, st *state, _ *http.Request) { st.widget.Close() }))
		r.Post("/minimize", s.copilotHandler(func(_ context.Context, st *state, _ *http.Request) { st.widget.Minimize() }))
		r.Post("/expand", s.copilotHandler(func(ctx context.Context, st *state, _ *http.Request) { st.widget.Expand(ctx) }))
		r.Post("/send", s.copilotHandler(s.sendQuestion))
		r.Post("/action", s.copilotHandler(s.triggerAction))
		r.Post("/test", s.copilotHandler(func(ctx context.Context, st *state, _ *http.Request) { st.widget.TestConnection(ctx) }))
		r.Post("/tour/start", s.copilotHandler(func(ctx context.Context, st *state, _ *http.Request) { st.widget.StartTour(ctx) }))
		r.Post("/tour/next", s.copilotHandler(func(ctx context.Context, st *state, _ *http.Request) { st.widget.TourNext(ctx) }))
		r.Post("/tour/prev", s.copilotHandler(func(ctx context.Context, st *state, _ *http.Request) { st.widget.TourPrev(ctx) }))
		r.Post("/tour/close", s.copilotHandler(func(_ context.Context, st *state, _ *http.Request) { st.widget.TourClose() }))
	})
}

// pageData is shared by every full-page template.
type pageData struct {
	View      string
	Views     []copilot.ViewInfo
	Info      *api.DatasetInfo
	ShowIntro bool
	Intro     template.HTML
	// Refresh is the meta refresh delay in seconds while a timed widget
	// transition is pending; zero means none.
	Refresh    int
	RefreshURL string
	Copilot    copilot.Snapshot
	Body       any
}

type errorData struct {
	Title   string
	Message string
	Retry   string
}

// page runs the steps shared by every view while holding the session lock:
// due widget transitions fire, the widget learns the active view and the
// dataset info is loaded. An info failure is the one fatal load and renders
// the retry page instead of the view.
func (s *Server) page(w http.ResponseWriter, r *http.Request, view string, load func(context.Context, *state, url.Values) any) {
	st, hideIntro := s.session(w, r)
	st.mu.Lock()
	defer st.mu.Unlock()

	ctx := r.Context()
	st.widget.Tick(ctx, s.now())
	if st.view != view || st.widget.View() != view {
		st.view = view
		st.widget.SetView(ctx, view)
	}

	info, err := s.src.Info(ctx)
	if err != nil {
		s.logger.Error("dataset info unavailable", "error", err)
		s.render(w, http.StatusBadGateway, "error.html", errorData{
			Title:   "Connection Error",
			Message: connectionError,
			Retry:   r.URL.RequestURI(),
		})
		return
	}
	st.info = info

	data := pageData{
		View:      view,
		Views:     copilot.Views,
		Info:      info,
		ShowIntro: view == copilot.ViewDashboard && !s.hideIntro && !hideIntro,
		Intro:     s.views.intro,
		Body:      load(ctx, st, r.URL.Query()),
	}
	data.Copilot = st.widget.Snapshot()
	if d, ok := st.widget.NextDeadline(); ok {
		data.Refresh = refreshAfter(d.Sub(s.now()))
		data.RefreshURL = viewPath(view)
	}
	s.render(w, http.StatusOK, view+".html", data)
}

func refreshAfter(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func viewPath(view string) string {
	if view == copilot.ViewDashboard || view == "" {
		return "/"
	}
	return "/" + view
}

// fetch loads one view slice on g. A failure is logged and leaves dst at its
// zero value; the view then shows an empty panel.
func fetch[T any](s *Server, g *errgroup.Group, ctx context.Context, name string, dst *T, get func(context.Context) (T, error)) {
	g.Go(func() error {
		v, err := get(ctx)
		if err != nil {
			s.logger.Warn("view slice unavailable", "slice", name, "error", err)
			return nil
		}
		*dst = v
		return nil
	})
}

type dashboardBody struct {
	Cards    []charts.Card
	Series   []charts.Series
	Chart    string
	Selected charts.Series
	Insights []charts.Insight
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, copilot.ViewDashboard, func(ctx context.Context, st *state, q url.Values) any {
		var (
			summary api.Summary
			rates   *api.SurvivalRates
			g       errgroup.Group
		)
		fetch(s, &g, ctx, "summary", &summary, s.src.Summary)
		fetch(s, &g, ctx, "survival_rates", &rates, s.src.SurvivalRates)
		_ = g.Wait()
		if summary != nil {
			st.summary = summary
		}
		if rates != nil {
			st.rates = rates
		}

		body := dashboardBody{
			Cards:    charts.SummaryCards(summary),
			Series:   charts.SurvivalSeries(rates),
			Chart:    chartKey(q.Get("chart")),
			Insights: charts.Insights(rates),
		}
		for _, sr := range body.Series {
			if sr.Key == body.Chart {
				body.Selected = sr
			}
		}
		return body
	})
}

func chartKey(k string) string {
	if charts.ValidKey(k) {
		return k
	}
	return charts.ByClass
}

type analysisBody struct {
	Features  []string
	Grid      [][]correlation.Cell
	Legend    []correlation.LegendEntry
	Selection correlation.Selection
	Selected  bool
	Strongest []correlation.Pair
	Drivers   []correlation.Pair
	Analysis  []mlresults.FeatureCard
	Series    []charts.Series
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, copilot.ViewAnalysis, func(ctx context.Context, st *state, q url.Values) any {
		var (
			corr  api.CorrelationMatrix
			fa    api.FeatureAnalysis
			rates *api.SurvivalRates
			g     errgroup.Group
		)
		fetch(s, &g, ctx, "correlation", &corr, s.src.Correlation)
		fetch(s, &g, ctx, "feature_analysis", &fa, s.src.FeatureAnalysis)
		fetch(s, &g, ctx, "survival_rates", &rates, s.src.SurvivalRates)
		_ = g.Wait()
		if rates != nil {
			st.rates = rates
		}

		m := correlation.New(corr)
		in := correlation.NewInspector(m)
		if st.hovered != nil {
			in.Hover(st.hovered.Row, st.hovered.Col)
		}
		if row, col := q.Get("row"), q.Get("col"); row != "" && col != "" {
			in.Hover(row, col)
		}
		sel, ok := in.Selected()
		if ok {
			st.hovered = &sel
		}
		return analysisBody{
			Features:  m.Features(),
			Grid:      m.Grid(),
			Legend:    correlation.Legend(),
			Selection: sel,
			Selected:  ok,
			Strongest: m.StrongestPairs(5),
			Drivers:   m.Against("Survived"),
			Analysis:  mlresults.AnalysisCards(fa),
			Series:    charts.SurvivalSeries(rates),
		}
	})
}

type regressionBody struct {
	Tab            string
	Tabs           []string
	Loaded         bool
	Model          api.ModelPerformance
	Metrics        []mlresults.Metric
	Interpretation string
	Features       []mlresults.Feature
	Positive       []mlresults.Feature
	Negative       []mlresults.Feature
	Predictions    []mlresults.Card
	Analysis       []mlresults.FeatureCard
}

func (s *Server) handleRegression(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, copilot.ViewRegression, func(ctx context.Context, st *state, q url.Values) any {
		var (
			res *api.RegressionResult
			fa  api.FeatureAnalysis
			g   errgroup.Group
		)
		fetch(s, &g, ctx, "regression", &res, s.src.Regression)
		fetch(s, &g, ctx, "feature_analysis", &fa, s.src.FeatureAnalysis)
		_ = g.Wait()

		tab := q.Get("tab")
		if !mlresults.ValidTab(tab) {
			tab = mlresults.Tabs[0]
		}
		body := regressionBody{Tab: tab, Tabs: mlresults.Tabs, Analysis: mlresults.AnalysisCards(fa)}
		if res == nil {
			return body
		}
		st.model = res
		body.Loaded = true
		body.Model = res.Performance
		body.Metrics = mlresults.Performance(res.Performance)
		body.Interpretation = mlresults.Interpretation(res.Performance)
		body.Features = mlresults.TopFeatures(res.FeatureImportance, mlresults.DefaultTopN)
		body.Positive, body.Negative = mlresults.Influences(body.Features, 3)
		body.Predictions = mlresults.Cards(res.SamplePredictions)
		return body
	})
}

type header struct {
	Name      string
	Indicator string
	Link      string
}

type dataBody struct {
	Loaded     bool
	Columns    []string
	Headers    []header
	Rows       []api.Record
	Filter     string
	Column     table.ColumnFilter
	Sort       table.SortState
	Pagination table.Pagination
	Window     []table.PageButton
	Stats      table.PageStats
	Expanded   api.Record
	HasExpand  bool
}

// query rebuilds the data view's URL with page and the current sort and
// filter, plus any extra parameters.
func (d dataBody) query(page int, extra ...string) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if d.Sort.Active() {
		q.Set("sort", d.Sort.Column)
		q.Set("dir", d.Sort.Direction.String())
	}
	if d.Filter != "" {
		q.Set("q", d.Filter)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	return "/data?" + q.Encode()
}

// PageLink goes to page, keeping sort and filter.
func (d dataBody) PageLink(page int) string { return d.query(page) }

// ExpandLink toggles the detail panel for the row with id.
func (d dataBody) ExpandLink(id string) string {
	if d.HasExpand && table.PassengerID(d.Expanded) == id {
		id = ""
	}
	return d.query(d.Pagination.Page, "expand", id)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, copilot.ViewData, func(ctx context.Context, st *state, q url.Values) any {
		b := st.browser
		if q.Has("sort") {
			b.SetSort(table.SortState{Column: q.Get("sort"), Direction: table.ParseDirection(q.Get("dir"))})
		}
		if q.Has("q") {
			b.SetFilter(q.Get("q"))
		}
		if q.Has("clear") {
			b.SetColumnFilter(table.ColumnFilter{})
		}
		pg := b.Pagination()
		page := pg.Page
		if n, err := strconv.Atoi(q.Get("page")); err == nil {
			page = n
		}
		if !b.Loaded() {
			// failures are logged by the browser and keep the previous page
			_ = b.Load(ctx, page)
		} else if page = pg.Clamp(page); page != pg.Page {
			_ = b.Load(ctx, page)
		}
		if q.Has("expand") {
			b.Collapse()
			if id := q.Get("expand"); id != "" {
				b.ToggleExpand(id)
			}
		}

		pg = b.Pagination()
		body := dataBody{
			Loaded:     b.Loaded(),
			Columns:    b.Columns(),
			Rows:       b.View(),
			Filter:     b.FilterText(),
			Column:     b.ColumnFilter(),
			Sort:       b.Sort(),
			Pagination: pg,
			Window:     pg.Window(),
			Stats:      b.Stats(),
		}
		body.Expanded, body.HasExpand = b.Expanded()
		for _, c := range body.Columns {
			next := body.Sort.Toggle(c)
			body.Headers = append(body.Headers, header{
				Name:      c,
				Indicator: body.Sort.Indicator(c),
				Link:      body.query(pg.Page, "sort", next.Column, "dir", next.Direction.String()),
			})
		}
		return body
	})
}

// handleExport downloads the rows currently shown in the data view.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := table.ExportFormatFor("passengers." + chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	st, _ := s.session(w, r)
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.browser.Loaded() {
		http.Error(w, "no data loaded", http.StatusConflict)
		return
	}
	ctype := "text/csv; charset=utf-8"
	if format == "xlsx" {
		ctype = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", `attachment; filename="passengers.`+format+`"`)
	if err := table.Export(w, format, st.browser.Columns(), st.browser.View()); err != nil {
		s.logger.Error("export failed", "format", format, "error", err)
	}
}

func (s *Server) handleDismissIntro(w http.ResponseWriter, r *http.Request) {
	if err := s.dismissIntro(w, r); err != nil {
		s.logger.Warn("failed to save intro preference", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
