// internal/store/page.go
package store

const (
	DefaultPage    = 1
	DefaultPerPage = 100
	MaxPerPage     = 500
)

// Page selects a window of a listing.
type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// Normalize fills defaults and clamps the page size.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Limit() int {
	return p.Normalize().PerPage
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// Window applies p to an already sorted slice.
func Window[T any](items []T, p Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
