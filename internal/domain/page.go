package domain

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page into valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}

type PageResult[T any] struct {
	Items  []T
	Total  int
	Number int
	Size   int
}

func (r PageResult[T]) Pages() int {
	if r.Size <= 0 {
		return 0
	}
	return (r.Total + r.Size - 1) / r.Size
}
