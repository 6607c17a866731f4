// Package dashboard derives what a responsible sees on the problems page:
// the filtered, paginated subset of their records and its rendered form.
//
// Everything here is synchronous and free of I/O. Records handed to this
// package must already be restricted to the viewer.
package dashboard

import (
	"strings"

	"github.com/emanueledman/fixa-admin/internal/models"
)

// DefaultPageSize is the number of cards shown per page.
const DefaultPageSize = 6

// Filter holds the user-controlled predicates. Zero values match everything.
type Filter struct {
	Search  string         `json:"search"`
	Status  models.Status  `json:"status"`
	Urgency models.Urgency `json:"urgency"`
}

// IsZero reports whether no predicate is active.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && f.Status == "" && f.Urgency == ""
}

// Matches reports whether p satisfies every active predicate.
func (f Filter) Matches(p models.Problem) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Status != "" && f.Status.Normalize() != p.Status.Normalize() {
		return false
	}
	if f.Urgency != "" && f.Urgency.Normalize() != p.Urgency.Normalize() {
		return false
	}
	return true
}

// Derive returns the records matching f in their original order.
// The input slice is never modified.
func Derive(all []models.Problem, f Filter) []models.Problem {
	out := make([]models.Problem, 0, len(all))
	for _, p := range all {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Page is one page of derived records.
type Page struct {
	Items  []models.Problem `json:"items"`
	Number int              `json:"page"`
	Size   int              `json:"pageSize"`
	Total  int              `json:"total"`
	Pages  int              `json:"pages"`
}

// Empty reports whether nothing matched.
func (p Page) Empty() bool { return p.Total == 0 }

// PageCount is ceil(total/size), zero when total is zero.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ClampPage keeps page within [1, PageCount] (1 when there is nothing to show).
func ClampPage(page, total, size int) int {
	pages := PageCount(total, size)
	if page < 1 || pages == 0 {
		return 1
	}
	if page > pages {
		return pages
	}
	return page
}

// Paginate slices matches to the requested page after clamping it.
func Paginate(matches []models.Problem, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(matches)
	n := ClampPage(page, total, size)

	start := (n - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	items := []models.Problem{}
	if start < end {
		items = matches[start:end]
	}

	return Page{
		Items:  items,
		Number: n,
		Size:   size,
		Total:  total,
		Pages:  PageCount(total, size),
	}
}
