package utils

// PageParams describes one page of a keyless offset scan
type PageParams struct {
	Page  int
	Limit int
}

// DefaultPageLimit is used when a caller asks for a non-positive page size
const DefaultPageLimit = 100

// NewPageParams normalizes page and limit
func NewPageParams(page, limit int) PageParams {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return PageParams{Page: page, Limit: limit}
}

// Offset returns the SQL offset
func (p PageParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Next returns the following page
func (p PageParams) Next() PageParams {
	return PageParams{Page: p.Page + 1, Limit: p.Limit}
}

// IsLast reports whether a page that returned n rows was the final one
func (p PageParams) IsLast(n int) bool {
	return n < p.Limit
}
