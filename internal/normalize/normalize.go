// Package normalize repairs unit-scale mistakes in an extracted receipt draft.
//
// Vision models often read "45.000" as 45 (dropping the thousands group) or
// return the tax as a rate. The rules here are heuristics driven entirely by
// Thresholds, run once on the raw extraction result and never on verified
// data. Every rule that fires is reported as a Correction.
package normalize

import (
	"errors"
	"math"
	"strings"

	"github.com/annafiu/twabillsplitter/internal/models"
)

// Rule names reported in corrections and metrics.
const (
	RuleNonFinite        = "non_finite"
	RuleNegativeDiscount = "negative_discount"
	RuleQuantity         = "quantity"
	RuleItemsScaled      = "items_scaled"
	RuleHeaderScaled     = "header_scaled"
	RuleReceiptScaled    = "receipt_scaled"
	RuleTaxRate          = "tax_rate"
	RuleTaxPercent       = "tax_percent"
)

// Thresholds configure the heuristics. A zero ceiling disables its rule.
type Thresholds struct {
	// ScaleFactor is the suspected unit error (1000 for a dropped "000").
	ScaleFactor float64 `mapstructure:"scale_factor" json:"scaleFactor"`

	// ScaleTolerance is the relative tolerance when comparing the item sum
	// to the subtotal after scaling.
	ScaleTolerance float64 `mapstructure:"scale_tolerance" json:"scaleTolerance"`

	// SmallAmountCeiling: when every non-zero amount is below it, the whole
	// receipt is assumed to be off by ScaleFactor.
	SmallAmountCeiling float64 `mapstructure:"small_amount_ceiling" json:"smallAmountCeiling"`

	// FractionalTaxCeiling: a tax strictly between 0 and this value is a rate.
	FractionalTaxCeiling float64 `mapstructure:"fractional_tax_ceiling" json:"fractionalTaxCeiling"`

	// PercentTaxCeiling: a tax between 1 and this value, on a base of at
	// least PercentTaxMinBase, is a percentage.
	PercentTaxCeiling float64 `mapstructure:"percent_tax_ceiling" json:"percentTaxCeiling"`
	PercentTaxMinBase float64 `mapstructure:"percent_tax_min_base" json:"percentTaxMinBase"`
}

// DefaultThresholds returns thresholds tuned for Rupiah delivery receipts.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ScaleFactor:          1000,
		ScaleTolerance:       0.01,
		SmallAmountCeiling:   1000,
		FractionalTaxCeiling: 1,
		PercentTaxCeiling:    100,
		PercentTaxMinBase:    10000,
	}
}

// Validate checks that the thresholds are usable.
func (t Thresholds) Validate() error {
	var errs []error
	if t.ScaleFactor <= 1 {
		errs = append(errs, errors.New("scale_factor must be greater than 1"))
	}
	if t.ScaleTolerance < 0 || t.ScaleTolerance >= 1 {
		errs = append(errs, errors.New("scale_tolerance must be in [0, 1)"))
	}
	if t.SmallAmountCeiling < 0 {
		errs = append(errs, errors.New("small_amount_ceiling cannot be negative"))
	}
	if t.FractionalTaxCeiling < 0 || t.FractionalTaxCeiling > 1 {
		errs = append(errs, errors.New("fractional_tax_ceiling must be in [0, 1]"))
	}
	if t.PercentTaxCeiling < 0 || t.PercentTaxMinBase < 0 {
		errs = append(errs, errors.New("percent tax thresholds cannot be negative"))
	}
	return errors.Join(errs...)
}

// Correction records one rule firing on one field.
type Correction struct {
	Rule  string  `json:"rule"`
	Field string  `json:"field"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

// Apply returns a corrected copy of the receipt and the corrections made.
// The input is not modified.
func Apply(receipt models.Receipt, t Thresholds) (models.Receipt, []Correction) {
	n := &normalizer{t: t, r: receipt.Clone()}
	n.sanitize()

	// Decide before scaling, or a rate like 0.11 would be scaled to 110.
	taxIsRate := t.FractionalTaxCeiling > 0 && n.r.Tax > 0 && n.r.Tax < t.FractionalTaxCeiling

	n.scaleItemsOrHeader(taxIsRate)
	n.scaleSmallReceipt(taxIsRate)

	if taxIsRate {
		n.taxFromRate()
	} else {
		n.taxFromPercent()
	}
	return n.r, n.corrections
}

type normalizer struct {
	t           Thresholds
	r           models.Receipt
	corrections []Correction
}

func (n *normalizer) record(rule, field string, from, to float64) {
	n.corrections = append(n.corrections, Correction{Rule: rule, Field: field, From: from, To: to})
}

func (n *normalizer) sanitize() {
	n.r.MerchantName = strings.TrimSpace(n.r.MerchantName)
	n.r.Date = strings.TrimSpace(n.r.Date)

	for _, f := range n.headerFields(true) {
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			n.record(RuleNonFinite, f.name, 0, 0)
			*f.value = 0
		}
	}
	if n.r.TotalDiscount < 0 {
		n.record(RuleNegativeDiscount, "totalDiscount", n.r.TotalDiscount, -n.r.TotalDiscount)
		n.r.TotalDiscount = -n.r.TotalDiscount
	}

	for i := range n.r.Items {
		item := &n.r.Items[i]
		item.Name = strings.TrimSpace(item.Name)
		if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			n.record(RuleNonFinite, "items["+item.Name+"].price", 0, 0)
			item.Price = 0
		}
		if item.Quantity < 1 {
			n.record(RuleQuantity, "items["+item.Name+"].quantity", float64(item.Quantity), 1)
			item.Quantity = 1
		}
	}
}

// scaleItemsOrHeader fixes the case where only one side of
// "sum of items == subtotal" lost its thousands.
func (n *normalizer) scaleItemsOrHeader(taxIsRate bool) {
	itemSum := n.r.ItemsTotal()
	if itemSum <= 0 || n.r.Subtotal <= 0 {
		return
	}
	f := n.t.ScaleFactor

	switch {
	case n.approx(itemSum*f, n.r.Subtotal):
		n.record(RuleItemsScaled, "items", itemSum, itemSum*f)
		n.scaleItems()
	case n.approx(itemSum, n.r.Subtotal*f):
		for _, field := range n.headerFields(!taxIsRate) {
			if *field.value != 0 {
				n.record(RuleHeaderScaled, field.name, *field.value, *field.value*f)
				*field.value *= f
			}
		}
	}
}

// scaleSmallReceipt fixes a receipt where every amount lost its thousands.
func (n *normalizer) scaleSmallReceipt(taxIsRate bool) {
	if n.t.SmallAmountCeiling <= 0 {
		return
	}
	var largest float64
	for _, item := range n.r.Items {
		largest = math.Max(largest, math.Abs(item.Price))
	}
	for _, field := range n.headerFields(!taxIsRate) {
		largest = math.Max(largest, math.Abs(*field.value))
	}
	if largest == 0 || largest >= n.t.SmallAmountCeiling {
		return
	}

	f := n.t.ScaleFactor
	n.record(RuleReceiptScaled, "receipt", largest, largest*f)
	n.scaleItems()
	for _, field := range n.headerFields(!taxIsRate) {
		*field.value *= f
	}
}

func (n *normalizer) taxFromRate() {
	base := n.taxBase()
	rate := n.r.Tax
	n.r.Tax = rate * base
	n.record(RuleTaxRate, "tax", rate, n.r.Tax)
}

func (n *normalizer) taxFromPercent() {
	t := n.t
	tax := n.r.Tax
	if t.PercentTaxCeiling <= 0 || tax < 1 || tax > t.PercentTaxCeiling {
		return
	}
	base := n.taxBase()
	if base < t.PercentTaxMinBase {
		return
	}
	n.r.Tax = base * tax / 100
	n.record(RuleTaxPercent, "tax", tax, n.r.Tax)
}

func (n *normalizer) taxBase() float64 {
	if n.r.Subtotal > 0 {
		return n.r.Subtotal
	}
	return n.r.ItemsTotal()
}

func (n *normalizer) scaleItems() {
	for i := range n.r.Items {
		n.r.Items[i].Price *= n.t.ScaleFactor
	}
}

func (n *normalizer) approx(a, b float64) bool {
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= n.t.ScaleTolerance*scale
}

type headerField struct {
	name  string
	value *float64
}

func (n *normalizer) headerFields(withTax bool) []headerField {
	fields := []headerField{
		{"subtotal", &n.r.Subtotal},
		{"totalDiscount", &n.r.TotalDiscount},
		{"deliveryFee", &n.r.DeliveryFee},
		{"serviceFee", &n.r.ServiceFee},
	}
	if withTax {
		fields = append(fields, headerField{"tax", &n.r.Tax})
	}
	return fields
}
