package table

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePages struct {
	total int
	// gates lets a test hold a specific page's response until released
	mu       sync.Mutex
	gates    map[int]chan struct{}
	failPage map[int]bool
	countErr error
}

func newFakePages(total int) *fakePages {
	return &fakePages{total: total, gates: map[int]chan struct{}{}, failPage: map[int]bool{}}
}

func (f *fakePages) hold(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[page] = ch
	return ch
}

func (f *fakePages) Page(ctx context.Context, page, perPage int) (*api.DataPage, error) {
	f.mu.Lock()
	gate := f.gates[page]
	fail := f.failPage[page]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, &api.ServerError{APIError: &api.APIError{StatusCode: 500, Path: "/data"}}
	}
	var rows []api.Record
	for i := (page-1)*perPage + 1; i <= min(page*perPage, f.total); i++ {
		rows = append(rows, rec("PassengerId", float64(i), "Name", fmt.Sprintf("Passenger %d", i), "Survived", float64(i%2), "Age", float64(20+i)))
	}
	return &api.DataPage{Data: rows, TotalRecords: f.total, Page: page, PerPage: perPage}, nil
}

func (f *fakePages) Count(ctx context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.total, nil
}

func TestBrowserLoadAndView(t *testing.T) {
	b := NewBrowser(newFakePages(25), 10, nil)
	require.NoError(t, b.Load(context.Background(), 3))

	pg := b.Pagination()
	assert.Equal(t, 3, pg.Page)
	assert.Equal(t, 3, pg.Pages())
	assert.Equal(t, []string{"21", "22", "23", "24", "25"}, ids(b.View()))
	assert.Equal(t, []string{"PassengerId", "Name", "Survived", "Age"}, b.Columns())

	b.ToggleSort("Age")
	b.ToggleSort("Age")
	assert.Equal(t, []string{"25", "24", "23", "22", "21"}, ids(b.View()))

	b.SetFilter("passenger 22")
	assert.Equal(t, []string{"22"}, ids(b.View()))
	assert.Len(t, b.Rows(), 5, "filtering never touches the loaded page")
}

func TestBrowserClampsAfterTotalKnown(t *testing.T) {
	b := NewBrowser(newFakePages(25), 10, nil)
	require.NoError(t, b.Load(context.Background(), 1))
	require.NoError(t, b.Load(context.Background(), 7))
	assert.Equal(t, 3, b.Pagination().Page)
}

func TestBrowserClampsOnFirstLoad(t *testing.T) {
	b := NewBrowser(newFakePages(25), 10, nil)
	require.NoError(t, b.Load(context.Background(), 99))

	pg := b.Pagination()
	assert.Equal(t, 3, pg.Page)
	assert.Equal(t, 3, pg.Pages())
	assert.False(t, pg.HasNext())
	assert.Equal(t, "Showing 21-25 of 25 passengers", pg.Label())
	assert.Equal(t, []string{"21", "22", "23", "24", "25"}, ids(b.View()))
}

func TestBrowserLoadCollapsesExpandedRow(t *testing.T) {
	b := NewBrowser(newFakePages(25), 10, nil)
	require.NoError(t, b.Load(context.Background(), 1))
	require.True(t, b.ToggleExpand("3"))

	require.NoError(t, b.Load(context.Background(), 2))
	_, ok := b.Expanded()
	assert.False(t, ok, "a new page starts collapsed")
}

func TestBrowserDiscardsStaleResponse(t *testing.T) {
	src := newFakePages(25)
	b := NewBrowser(src, 10, nil)
	release := src.hold(2)

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = b.Load(context.Background(), 2)
	}()

	// wait until the slow load has taken its generation
	require.Eventually(t, func() bool { return b.Loading() }, time.Second, time.Millisecond)
	require.NoError(t, b.Load(context.Background(), 3))
	close(release)
	wg.Wait()

	assert.True(t, errors.Is(slowErr, ErrStale))
	assert.Equal(t, 3, b.Pagination().Page)
	assert.Equal(t, "21", PassengerID(b.View()[0]))
}

func TestBrowserKeepsPageOnFailure(t *testing.T) {
	src := newFakePages(25)
	b := NewBrowser(src, 10, nil)
	require.NoError(t, b.Load(context.Background(), 1))

	src.failPage[2] = true
	err := b.Load(context.Background(), 2)
	require.Error(t, err)
	assert.True(t, api.IsUnavailable(err))
	assert.Equal(t, 1, b.Pagination().Page)
	assert.Equal(t, "1", PassengerID(b.Rows()[0]))
	assert.False(t, b.Loading())
}

func TestBrowserCountFailureIsNotFatal(t *testing.T) {
	src := newFakePages(25)
	src.countErr = errors.New("boom")
	b := NewBrowser(src, 10, nil)
	require.NoError(t, b.Load(context.Background(), 1))
	assert.Equal(t, 25, b.Pagination().Total, "falls back to the page's own total")
}

func TestToggleExpand(t *testing.T) {
	b := NewBrowser(newFakePages(25), 10, nil)
	require.NoError(t, b.Load(context.Background(), 1))

	assert.True(t, b.ToggleExpand("3"))
	r, ok := b.Expanded()
	require.True(t, ok)
	assert.Equal(t, "3", PassengerID(r))

	assert.True(t, b.ToggleExpand("4"), "another row replaces the detail")
	r, _ = b.Expanded()
	assert.Equal(t, "4", PassengerID(r))

	assert.False(t, b.ToggleExpand("4"), "same row collapses")
	_, ok = b.Expanded()
	assert.False(t, ok)
}
