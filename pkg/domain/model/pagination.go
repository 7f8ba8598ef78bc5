package model

const DefaultPageLimit = 5

type Page struct {
	Number int
	Limit  int
}

// NewPage clamps the page number and limit to at least 1.
func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Skip() int64 {
	return int64((p.Number - 1) * p.Limit)
}

type Paginated[T any] struct {
	Items       []T   `json:"docs"`
	CurrentPage int   `json:"currentPage"`
	TotalCount  int64 `json:"count"`
	PageCount   int64 `json:"numOfPages"`
}

func NewPaginated[T any](items []T, page Page, total int64) *Paginated[T] {
	if items == nil {
		items = []T{}
	}
	limit := int64(page.Limit)
	return &Paginated[T]{
		Items:       items,
		CurrentPage: page.Number,
		TotalCount:  total,
		PageCount:   (total + limit - 1) / limit,
	}
}
