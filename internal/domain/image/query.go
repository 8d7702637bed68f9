package image

import (
	"sort"
	"strings"
)

const (
	// DefaultPageSize is used when the client omits or botches the limit
	DefaultPageSize = 12
	// MaxPageSize caps the page size
	MaxPageSize = 50
)

// Pagination describes one page of a listing
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalImages int  `json:"totalImages"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// ClampPage normalizes a page number
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampLimit normalizes a page size
func ClampLimit(limit int) int {
	if limit < 1 || limit > MaxPageSize {
		return DefaultPageSize
	}
	return limit
}

// Tokenize lowercases a query and splits it into non-empty whitespace-
// separated search terms
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// sortNewestFirst orders records by upload date descending. The sort is
// stable so records with equal timestamps keep their insertion order.
func sortNewestFirst(records []*ImageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadDate.After(records[j].UploadDate)
	})
}

// paginate slices one page out of a sorted record list. A page past the end
// yields an empty slice, not an error.
func paginate(records []*ImageRecord, page, limit int) ([]*ImageRecord, Pagination) {
	page = ClampPage(page)
	limit = ClampLimit(limit)
	total := len(records)

	// Huge page numbers can wrap the offset arithmetic negative.
	start := (page - 1) * limit
	if start < 0 || start > total {
		start = total
	}
	end := start + limit
	if end < start || end > total {
		end = total
	}

	totalPages := (total + limit - 1) / limit

	return records[start:end], Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalImages: total,
		HasNext:     end < total,
		HasPrev:     page > 1,
	}
}
