package services

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// normalizePage makes page 1-based and clamps limit to [1, MaxPageSize];
// a non-positive limit means DefaultPageSize.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return page, limit
}
