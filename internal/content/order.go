package content

import (
	"math"
	"sort"
	"strings"
)

// SortItems orders items by SortOrder ascending (missing sorts last), then
// by title, then by id. The sort is stable so equal items keep store order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := sortKey(items[i]), sortKey(items[j])
		if a != b {
			return a < b
		}
		ta, tb := strings.ToLower(items[i].Title), strings.ToLower(items[j].Title)
		if ta != tb {
			return ta < tb
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ID < items[j].ID
	})
}

func sortKey(it Item) float64 {
	if it.SortOrder == nil {
		return math.Inf(1)
	}
	return *it.SortOrder
}

// FindSummary returns the first item (in list order) whose slug, id or link
// tail matches slug. When two items share a slug the earlier one wins.
func FindSummary(items []Item, slug string) *Item {
	if strings.TrimSpace(slug) == "" || IsNested(slug) {
		return nil
	}
	want := CanonicalSlug(slug)
	for i := range items {
		it := items[i]
		if it.Slug == want ||
			(it.ID != "" && CanonicalSlug(it.ID) == want) ||
			(it.Link != "" && CanonicalSlug(LinkTail(it.Link)) == want) {
			return &it
		}
	}
	return nil
}

// Neighbors are the items either side of the current one in a sorted list.
type Neighbors struct {
	Previous *Item `json:"previous,omitempty"`
	Next     *Item `json:"next,omitempty"`
}

// BuildNeighborLinks locates current in ordered and returns its neighbours.
// Unknown or nil current yields no neighbours.
func BuildNeighborLinks(current *Item, ordered []Item) Neighbors {
	if current == nil {
		return Neighbors{}
	}
	index := -1
	for i := range ordered {
		if ordered[i].ID == current.ID && ordered[i].Key == current.Key {
			index = i
			break
		}
	}
	if index == -1 {
		return Neighbors{}
	}

	var nb Neighbors
	if index > 0 {
		prev := ordered[index-1]
		nb.Previous = &prev
	}
	if index < len(ordered)-1 {
		next := ordered[index+1]
		nb.Next = &next
	}
	return nb
}
