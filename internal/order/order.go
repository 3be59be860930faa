// Package order assigns and repairs checklist item sort keys.
//
// Splits insert items at the midpoint of their neighbors' keys, so keys
// drift fractional between saves. A full-list rewrite renumbers them back
// to the gapless integer sequence 0..n-1.
package order

import (
	"sort"

	"github.com/jmilloy/notewall/internal/models"
)

// Normalize returns a copy of items with Order reassigned to 0..n-1 by
// stable sort on the current Order. Ties keep their original array position.
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(items []models.ChecklistItem) []models.ChecklistItem {
	out := make([]models.ChecklistItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	for i := range out {
		out[i].Order = float64(i)
	}
	return out
}

// Resequence is the merge-path variant of Normalize: colliding keys are
// broken by checked state (unchecked sorts first, matching the display
// convention), then by original array position.
func Resequence(items []models.ChecklistItem) []models.ChecklistItem {
	idx := make(map[string]int, len(items))
	for i, it := range items {
		idx[it.ID] = i
	}
	out := make([]models.ChecklistItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if out[i].Checked != out[j].Checked {
			return !out[i].Checked
		}
		return idx[out[i].ID] < idx[out[j].ID]
	})
	for i := range out {
		out[i].Order = float64(i)
	}
	return out
}

// Midpoint returns a key strictly between prev and next. The caller is
// responsible for passing prev < next; a split after the last item passes
// next = prev + 1.
func Midpoint(prev, next float64) float64 {
	return prev + (next-prev)/2
}

// IsNormalized reports whether items already carry the gapless integer
// sequence 0..n-1 in ascending array order.
func IsNormalized(items []models.ChecklistItem) bool {
	for i, it := range items {
		if it.Order != float64(i) {
			return false
		}
	}
	return true
}
