package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any paged query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Offset int
	Limit  int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizeLimitMax behaves like NormalizeLimit with a caller-supplied cap,
// used by feeds whose ceiling is configured rather than fixed.
func NormalizeLimitMax(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// NormalizeOffset clamps negative offsets to zero.
func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// Normalize applies both offset and limit rules.
func Normalize(p Params) Params {
	return Params{
		Offset: NormalizeOffset(p.Offset),
		Limit:  NormalizeLimit(p.Limit),
	}
}
