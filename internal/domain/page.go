package domain

// PaginationParams carries page/limit values from the HTTP layer to the list
// endpoint. Page is 1-indexed. Limit is capped at 100 by NewPaginationParams.
type PaginationParams struct {
	// Page is the current page number, starting at 1.
	Page int
	// Limit is the maximum number of items to return.
	Limit int
}

// NewPaginationParams builds a PaginationParams from optional HTTP query params.
// Nil pointers fall back to sane defaults (page=1, limit=20).
// The limit is capped at 100 to keep responses small.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: 20}
	if page != nil && *page >= 1 {
		p.Page = *page
	}
	if limit != nil && *limit >= 1 {
		p.Limit = *limit
		if p.Limit > 100 {
			p.Limit = 100
		}
	}
	return p
}

// Offset returns the zero-based index of the first item on the page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Window returns the [start, end) bounds of the page within a list of total
// items. Pages past the end yield an empty window; the page number is compared
// against the page count before multiplying so huge pages cannot overflow.
func (p PaginationParams) Window(total int) (start, end int) {
	if p.Page < 1 || p.Limit < 1 {
		return total, total
	}
	pages := total / p.Limit
	if total%p.Limit != 0 {
		pages++
	}
	if p.Page-1 >= pages {
		return total, total
	}
	start = p.Offset()
	end = start + min(p.Limit, total-start)
	return start, end
}
