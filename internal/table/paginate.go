package table

import "fmt"

// DefaultPageSize matches what the backend assumes when per_page is omitted.
const DefaultPageSize = 10

// Pagination tracks a 1-based page over Total records.
type Pagination struct {
	Page     int
	PageSize int
	Total    int
}

// Pages is ceil(Total/PageSize), never less than zero.
func (p Pagination) Pages() int {
	size := p.size()
	if p.Total <= 0 {
		return 0
	}
	return (p.Total + size - 1) / size
}

func (p Pagination) size() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// Clamp bounds page to [1, Pages()]. With no records every page clamps to 1.
func (p Pagination) Clamp(page int) int {
	if n := p.Pages(); page > n {
		page = n
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Goto moves to page, clamped to the valid range.
func (p Pagination) Goto(page int) Pagination {
	p.Page = p.Clamp(page)
	return p
}

func (p Pagination) Prev() Pagination { return p.Goto(p.Page - 1) }

func (p Pagination) Next() Pagination { return p.Goto(p.Page + 1) }

func (p Pagination) HasPrev() bool { return p.Page > 1 }

func (p Pagination) HasNext() bool { return p.Page < p.Pages() }

// Range returns the 1-based record numbers shown on the current page, e.g.
// page 3 of 25 records by 10 is 21..25. Both are zero when there are no records.
func (p Pagination) Range() (first, last int) {
	if p.Total <= 0 {
		return 0, 0
	}
	page := p.Clamp(p.Page)
	size := p.size()
	first = (page-1)*size + 1
	last = min(page*size, p.Total)
	return first, last
}

// Label is the "Showing a-b of n passengers" caption.
func (p Pagination) Label() string {
	first, last := p.Range()
	return fmt.Sprintf("Showing %d-%d of %d passengers", first, last, p.Total)
}

// PageButton is one entry of the page selector: a numbered page or a gap.
type PageButton struct {
	Page     int
	Current  bool
	Ellipsis bool
}

// Window lists the page selector entries: the first and last pages, the
// current page and its neighbours, with a gap marker where pages are skipped.
func (p Pagination) Window() []PageButton {
	n := p.Pages()
	if n <= 1 {
		return nil
	}
	cur := p.Clamp(p.Page)
	var out []PageButton
	for page := 1; page <= n; page++ {
		switch {
		case page == 1 || page == n || (page >= cur-1 && page <= cur+1):
			out = append(out, PageButton{Page: page, Current: page == cur})
		case page == cur-2 || page == cur+2:
			out = append(out, PageButton{Page: page, Ellipsis: true})
		}
	}
	return out
}
