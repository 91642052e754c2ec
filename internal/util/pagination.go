package util

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	from = (page - 1) * size
	return from, size
}

// Window clamps raw skip/limit query values.
func Window(skip, limit int) (from, size int) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return skip, limit
}
