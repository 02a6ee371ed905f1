package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/logging"
	"golang.org/x/sync/errgroup"
)

// ErrStale is returned by Load when a newer load started before this one
// finished; its response was dropped.
var ErrStale = errors.New("stale page response discarded")

// PageSource is the subset of the backend the browser reads from.
type PageSource interface {
	Page(ctx context.Context, page, perPage int) (*api.DataPage, error)
	Count(ctx context.Context) (int, error)
}

// Browser holds one loaded page of passenger records along with the local
// sort, filter and expanded-row state applied on top of it.
type Browser struct {
	src    PageSource
	logger *slog.Logger

	mu       sync.Mutex
	gen      uint64
	loading  bool
	loaded   bool
	rows     []api.Record
	pg       Pagination
	sort     SortState
	filter   string
	column   ColumnFilter
	expanded *api.Record
}

// NewBrowser returns an empty browser reading pageSize records at a time.
func NewBrowser(src PageSource, pageSize int, logger *slog.Logger) *Browser {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Browser{
		src:    src,
		logger: logging.OrDiscard(logger),
		pg:     Pagination{Page: 1, PageSize: pageSize},
	}
}

// Load fetches page and the total record count. Only the most recent call
// may replace the snapshot: an older call that finishes late returns
// ErrStale and changes nothing. A failed fetch keeps the previous page.
// A page beyond the last one is clamped once the total is known, and a
// successful load collapses any expanded row.
func (b *Browser) Load(ctx context.Context, page int) error {
	want, err := b.load(ctx, page)
	if err != nil || want == 0 {
		return err
	}
	// first load past the end: the total is known now, fetch the last page
	_, err = b.load(ctx, want)
	return err
}

// load performs one fetch. When the fetched page lies beyond the total it
// reports the clamped page instead of committing.
func (b *Browser) load(ctx context.Context, page int) (int, error) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.loading = true
	size := b.pg.PageSize
	if b.pg.Total > 0 {
		page = b.pg.Clamp(page)
	} else if page < 1 {
		page = 1
	}
	b.mu.Unlock()

	var (
		data  *api.DataPage
		total = -1
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := b.src.Page(gctx, page, size)
		if err != nil {
			return fmt.Errorf("load page %d: %w", page, err)
		}
		data = p
		return nil
	})
	g.Go(func() error {
		// the count only refines the total; its failure is not fatal
		n, err := b.src.Count(gctx)
		if err != nil {
			b.logger.Warn("record count unavailable", "err", err)
			return nil
		}
		total = n
		return nil
	})
	err := g.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return 0, ErrStale
	}
	b.loading = false
	if err != nil {
		b.logger.Warn("data page unavailable", "page", page, "err", err)
		return 0, err
	}
	pg := Pagination{Page: page, PageSize: size, Total: data.TotalRecords}
	if total >= 0 {
		pg.Total = total
	}
	if want := pg.Clamp(page); want != page {
		b.logger.Debug("requested page out of range", "page", page, "last", want)
		return want, nil
	}
	b.rows = data.Data
	b.loaded = true
	b.pg = pg
	b.expanded = nil
	return 0, nil
}

// Loading reports whether the most recent Load is still in flight.
func (b *Browser) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Loaded reports whether any page has been loaded successfully.
func (b *Browser) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Pagination returns the current page position.
func (b *Browser) Pagination() Pagination {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pg
}

// Sort returns the active sort state.
func (b *Browser) Sort() SortState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sort
}

// ToggleSort applies a header click on col.
func (b *Browser) ToggleSort(col string) SortState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sort = b.sort.Toggle(col)
	return b.sort
}

// SetSort replaces the sort state outright (e.g. from a URL).
func (b *Browser) SetSort(s SortState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sort = s
}

// SetFilter sets the free-text search applied to the loaded page.
func (b *Browser) SetFilter(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = text
}

// SetColumnFilter narrows the view to one column value; a zero value clears it.
func (b *Browser) SetColumnFilter(c ColumnFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.column = c
}

// ColumnFilter returns the active column match, if any.
func (b *Browser) ColumnFilter() ColumnFilter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.column
}

// FilterText returns the current free-text search.
func (b *Browser) FilterText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// ToggleExpand expands the loaded row whose PassengerId renders as id, or
// collapses it when it is already expanded. It reports whether a row is
// expanded afterwards.
func (b *Browser) ToggleExpand(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.expanded != nil && passengerID(*b.expanded) == id {
		b.expanded = nil
		return false
	}
	for i := range b.rows {
		if passengerID(b.rows[i]) == id {
			r := b.rows[i]
			b.expanded = &r
			return true
		}
	}
	return b.expanded != nil
}

// Collapse closes the expanded detail panel.
func (b *Browser) Collapse() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expanded = nil
}

// Expanded returns the record shown in the detail panel, if any.
func (b *Browser) Expanded() (api.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.expanded == nil {
		return api.Record{}, false
	}
	return *b.expanded, true
}

// Rows returns the loaded page in backend order.
func (b *Browser) Rows() []api.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rows
}

// View returns the loaded page sorted, then filtered.
func (b *Browser) View() []api.Record {
	b.mu.Lock()
	rows, s, f, c := b.rows, b.sort, b.filter, b.column
	b.mu.Unlock()
	return c.Apply(Filter(Sort(rows, s), f))
}

// Columns are taken from the first loaded record.
func (b *Browser) Columns() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rows) == 0 {
		return nil
	}
	return b.rows[0].Columns()
}

// Stats summarises the loaded page.
func (b *Browser) Stats() PageStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ComputePageStats(b.rows, b.pg.Total)
}

// PassengerID returns the row key used for expansion.
func PassengerID(r api.Record) string { return passengerID(r) }

func passengerID(r api.Record) string {
	v, ok := r.Get("PassengerId")
	if !ok {
		return ""
	}
	return Stringify(v)
}
