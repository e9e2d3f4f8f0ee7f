// Package assignment maps receipt items to the person who pays for them.
package assignment

import (
	"sort"

	"github.com/annafiu/twabillsplitter/internal/models"
)

// Map holds item ID -> person ID. Each item has at most one person; an item
// without an entry is unassigned.
type Map map[string]string

// Assign sets or overwrites the person for an item.
func (m Map) Assign(itemID, personID string) {
	m[itemID] = personID
}

// Unassign removes the mapping for one item, if any.
func (m Map) Unassign(itemID string) {
	delete(m, itemID)
}

// UnassignAllFor removes every mapping pointing at personID.
func (m Map) UnassignAllFor(personID string) {
	for itemID, p := range m {
		if p == personID {
			delete(m, itemID)
		}
	}
}

// PersonFor returns the person assigned to itemID.
func (m Map) PersonFor(itemID string) (string, bool) {
	personID, ok := m[itemID]
	return personID, ok
}

// IsComplete reports whether every item in items has a mapping.
func (m Map) IsComplete(items []models.ReceiptItem) bool {
	for _, item := range items {
		if _, ok := m[item.ID]; !ok {
			return false
		}
	}
	return true
}

// PersonIDs returns the distinct person IDs that appear as values, sorted.
func (m Map) PersonIDs() []string {
	seen := make(map[string]bool, len(m))
	ids := make([]string, 0, len(m))
	for _, personID := range m {
		if !seen[personID] {
			seen[personID] = true
			ids = append(ids, personID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy. A nil map clones to an empty map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
