package identity

import (
	"sort"
	"strings"
)

// Page filters, orders and slices a collection by its name field.
//
// Filtering is a case-insensitive substring match on the name; a blank
// filter matches everything. Items are ordered by name ascending. Total
// counts the filtered set before slicing. A negative start is treated as
// zero; a negative count takes everything remaining. Start, count and
// filter are echoed from the request.
func Page[T any](items []T, nameOf func(T) string, filter string, start, count int) QueryResult[T] {
	res := QueryResult[T]{
		Start:  start,
		Count:  count,
		Filter: filter,
		Items:  []T{},
	}

	matched := make([]T, 0, len(items))
	needle := strings.ToLower(strings.TrimSpace(filter))
	for _, it := range items {
		if needle == "" || strings.Contains(strings.ToLower(nameOf(it)), needle) {
			matched = append(matched, it)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return nameOf(matched[i]) < nameOf(matched[j])
	})
	res.Total = len(matched)

	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return res
	}
	end := len(matched)
	if count >= 0 && start+count < end {
		end = start + count
	}
	res.Items = matched[start:end]
	return res
}
