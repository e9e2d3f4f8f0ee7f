package calculator

import (
	"github.com/annafiu/twabillsplitter/internal/assignment"
	"github.com/annafiu/twabillsplitter/internal/models"
)

// EffectiveSubtotal returns the denominator for proportional shares: the sum
// of all item prices, falling back to the receipt subtotal, then to 1.
// The final fallback only guards against division by zero.
func EffectiveSubtotal(receipt models.Receipt) float64 {
	if sum := receipt.ItemsTotal(); sum != 0 {
		return sum
	}
	if receipt.Subtotal != 0 {
		return receipt.Subtotal
	}
	return 1
}

// Allocate computes how much each active person owes.
//
// Algorithm:
//   - effective_subtotal = sum of all item prices (see EffectiveSubtotal)
//   - active people = distinct person IDs in assignments
//   - fee_per_person = (delivery_fee + service_fee) / active_count
//   - per person: discount and tax are proportional to
//     person_subtotal / effective_subtotal; total = subtotal - discount + tax + fee
//
// Results follow the order of people; people without items are left out.
// Unassigned items stay in the denominator and are reported separately, so
// their cost is not recovered from anyone. Nothing is rounded.
func Allocate(receipt models.Receipt, people []models.Person, assignments assignment.Map) models.Allocation {
	effectiveSubtotal := EffectiveSubtotal(receipt)

	activeIDs := assignments.PersonIDs()
	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}

	var feePerPerson float64
	if len(activeIDs) > 0 {
		feePerPerson = receipt.Fees() / float64(len(activeIDs))
	}

	allocation := models.Allocation{
		Results:           []models.PersonResult{},
		EffectiveSubtotal: effectiveSubtotal,
		FeePerPerson:      feePerPerson,
	}

	// Group items by assigned person
	itemsByPerson := make(map[string][]models.ReceiptItem)
	for _, item := range receipt.Items {
		personID, ok := assignments.PersonFor(item.ID)
		if !ok {
			allocation.UnassignedItems = append(allocation.UnassignedItems, item)
			allocation.UnassignedAmount += item.Price
			continue
		}
		itemsByPerson[personID] = append(itemsByPerson[personID], item)
	}

	seen := make(map[string]bool, len(people))
	for _, person := range people {
		if !active[person.ID] || seen[person.ID] {
			continue
		}
		seen[person.ID] = true

		items := itemsByPerson[person.ID]
		var subtotal float64
		for _, item := range items {
			subtotal += item.Price
		}

		share := subtotal / effectiveSubtotal
		result := models.PersonResult{
			Person:   person,
			Items:    items,
			Subtotal: subtotal,
			Discount: share * receipt.TotalDiscount,
			Tax:      share * receipt.Tax,
			Fee:      feePerPerson,
		}
		result.Total = result.Subtotal - result.Discount + result.Tax + result.Fee

		allocation.Results = append(allocation.Results, result)
		allocation.TotalCalculated += result.Total
	}

	return allocation
}
