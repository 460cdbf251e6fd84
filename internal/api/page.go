package api

// Page is a window over a server-side list.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// HasPrev reports whether an earlier window exists.
func (p Page[T]) HasPrev() bool {
	return p.Offset > 0
}

// HasNext reports whether a later window exists.
func (p Page[T]) HasNext() bool {
	return p.Offset+p.Limit < p.Total
}

// Range describes the 1-based span shown, e.g. "51-100 of 230".
func (p Page[T]) Range() (first, last int) {
	if len(p.Items) == 0 {
		return 0, 0
	}
	return p.Offset + 1, p.Offset + len(p.Items)
}
