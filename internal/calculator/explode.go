package calculator

import (
	"fmt"
	"math"

	"github.com/annafiu/twabillsplitter/internal/models"
)

// Explode expands every multi-quantity line into single-unit items so each
// unit can be assigned to a different person.
//
// "2x Nasi Goreng" priced 50000 becomes "Nasi Goreng (1/2)" and
// "Nasi Goreng (2/2)" priced 25000 each, with IDs "<id>-1" and "<id>-2".
// A derived ID already used by another line is skipped for the next free suffix.
// Lines with quantity 1 pass through unchanged, so exploding twice is a no-op.
// A quantity below 1 counts as 1 and a non-finite price counts as 0.
func Explode(items []models.ReceiptItem) []models.ReceiptItem {
	taken := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Quantity <= 1 {
			taken[item.ID] = true
		}
	}

	exploded := make([]models.ReceiptItem, 0, len(items))
	for _, item := range items {
		if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			item.Price = 0
		}
		if item.Quantity <= 1 {
			item.Quantity = 1
			exploded = append(exploded, item)
			continue
		}

		n := item.Quantity
		unitPrice := item.Price / float64(n)
		suffix := 0
		for k := 1; k <= n; k++ {
			id := ""
			for id == "" || taken[id] {
				suffix++
				id = fmt.Sprintf("%s-%d", item.ID, suffix)
			}
			taken[id] = true
			exploded = append(exploded, models.ReceiptItem{
				ID:       id,
				Name:     fmt.Sprintf("%s (%d/%d)", item.Name, k, n),
				Price:    unitPrice,
				Quantity: 1,
			})
		}
	}
	return exploded
}

// IsExploded reports whether every item already has quantity 1.
func IsExploded(items []models.ReceiptItem) bool {
	for _, item := range items {
		if item.Quantity != 1 {
			return false
		}
	}
	return true
}
