package utils

const pageDefault = 1
const pageSizeDefault = 20
const pageSizeMax = 100

// GetPaginationParams normalizes a page/limit pair into an offset and limit.
// Non-positive values fall back to defaults and the limit is capped.
func GetPaginationParams(page int, limit int) (int, int) {
	finalPage, finalLimit := NormalizePage(page, limit)
	return (finalPage - 1) * finalLimit, finalLimit
}

// NormalizePage returns the effective page and limit used for a listing,
// applying defaults (page 1, limit 20) and the limit cap.
func NormalizePage(page int, limit int) (int, int) {
	finalPage := pageDefault
	finalLimit := pageSizeDefault

	if page >= 1 {
		finalPage = page
	}
	if limit >= 1 {
		finalLimit = min(limit, pageSizeMax)
	}

	return finalPage, finalLimit
}

// TotalPages computes the page count for a total row count and limit.
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
