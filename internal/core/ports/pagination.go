package ports

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a normalised 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page and limit to sane bounds.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Page: page, Limit: limit}
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

// PageResult is a page of items plus the totals needed for pagination links.
type PageResult[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewPageResult fills in TotalPages.
func NewPageResult[T any](items []T, total int64, p Page) *PageResult[T] {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	if items == nil {
		items = []T{}
	}
	return &PageResult[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
