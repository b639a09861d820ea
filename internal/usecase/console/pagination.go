package console

type Page[T any] struct {
	Items       []T
	Page        int
	PerPage     int
	Total       int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

// Paginate slices items for the 1-based page. Non-positive arguments fall
// back to the defaults and perPage is capped at MaxPerPage.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	start := total
	if page <= totalPages {
		start = (page - 1) * perPage
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return Page[T]{
		Items:       items[start:end],
		Page:        page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

func (p Page[T]) NextPage() int { return p.Page + 1 }
func (p Page[T]) PrevPage() int { return p.Page - 1 }
