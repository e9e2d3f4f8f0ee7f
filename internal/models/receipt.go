package models

import "math"

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	// ID is the unique identifier for the item (UUID format, or
	// "<parent id>-<k>" for exploded units).
	ID string `json:"id"`

	// Name is the item name as printed on the receipt (e.g., "Nasi Goreng").
	Name string `json:"name"`

	// Price is the total price of the line: unit price × Quantity.
	// After explosion Quantity is 1 and Price is the unit price.
	Price float64 `json:"price"`

	// Quantity is the number of units on the line (>= 1).
	Quantity int `json:"quantity"`
}

// Receipt represents the structured data read from a delivery receipt.
// It starts as a best-effort draft from the extraction model and becomes
// verified after the user corrects it.
type Receipt struct {
	MerchantName string `json:"merchantName"`

	// Date is free text, exactly as printed or as the user typed it.
	Date string `json:"date"`

	Items []ReceiptItem `json:"items"`

	// Subtotal is the receipt's own subtotal. It is not forced to equal the
	// item sum; see SubtotalMismatch.
	Subtotal float64 `json:"subtotal"`

	// TotalDiscount is the magnitude of all discounts (non-negative).
	TotalDiscount float64 `json:"totalDiscount"`

	DeliveryFee float64 `json:"deliveryFee"`
	ServiceFee  float64 `json:"serviceFee"`

	// Tax is a nominal amount, never a rate, once verified.
	Tax float64 `json:"tax"`
}

// ItemsTotal returns the sum of all item prices.
func (r Receipt) ItemsTotal() float64 {
	var sum float64
	for _, item := range r.Items {
		sum += item.Price
	}
	return sum
}

// Fees returns the charges that are split equally between active people.
func (r Receipt) Fees() float64 {
	return r.DeliveryFee + r.ServiceFee
}

// GrandTotal returns what the receipt says was paid, from its own header.
func (r Receipt) GrandTotal() float64 {
	return r.Subtotal - r.TotalDiscount + r.Tax + r.DeliveryFee + r.ServiceFee
}

// SubtotalMismatch returns ItemsTotal - Subtotal when the two differ by more
// than tolerance, and 0 otherwise.
func (r Receipt) SubtotalMismatch(tolerance float64) float64 {
	diff := r.ItemsTotal() - r.Subtotal
	if math.Abs(diff) <= tolerance {
		return 0
	}
	return diff
}

// Clone returns a deep copy of the receipt.
func (r Receipt) Clone() Receipt {
	out := r
	if r.Items != nil {
		out.Items = make([]ReceiptItem, len(r.Items))
		copy(out.Items, r.Items)
	}
	return out
}

// FindItem returns the index of the item with the given ID, or -1.
func (r Receipt) FindItem(itemID string) int {
	for i, item := range r.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}
