package models

// PersonResult represents one person's calculated share of a receipt.
// This is the output of the allocation engine and is never stored.
type PersonResult struct {
	Person Person `json:"person"`

	// Items are the items assigned to this person.
	Items []ReceiptItem `json:"items"`

	// Subtotal is the sum of this person's item prices.
	Subtotal float64 `json:"subtotal"`

	// Discount is this person's proportional share of the total discount.
	// Calculated as: subtotal / effective_subtotal × total_discount
	Discount float64 `json:"discount"`

	// Tax is this person's proportional share of the tax.
	// Calculated as: subtotal / effective_subtotal × tax
	Tax float64 `json:"tax"`

	// Fee is this person's equal share of delivery and service fees.
	Fee float64 `json:"fee"`

	// Total is subtotal - discount + tax + fee.
	Total float64 `json:"total"`
}

// Allocation is the full breakdown of a receipt across the active people.
type Allocation struct {
	// Results has one entry per active person, in people order.
	Results []PersonResult `json:"results"`

	// TotalCalculated is the sum of all person totals. It is a check value and
	// may differ from Receipt.GrandTotal when items are unassigned or the
	// subtotal guard was used.
	TotalCalculated float64 `json:"totalCalculated"`

	// EffectiveSubtotal is the denominator used for proportional shares.
	EffectiveSubtotal float64 `json:"effectiveSubtotal"`

	// FeePerPerson is the equal share of fees for each active person.
	FeePerPerson float64 `json:"feePerPerson"`

	// UnassignedItems are items without a person. Their price is part of
	// EffectiveSubtotal but lands in nobody's subtotal.
	UnassignedItems []ReceiptItem `json:"unassignedItems,omitempty"`

	// UnassignedAmount is the sum of UnassignedItems prices.
	UnassignedAmount float64 `json:"unassignedAmount"`
}
