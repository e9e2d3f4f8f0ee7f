package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annafiu/twabillsplitter/internal/models"
)

func receipt(items []float64, subtotal, discount, delivery, service, tax float64) models.Receipt {
	r := models.Receipt{
		MerchantName:  "Kopi Kenangan",
		Subtotal:      subtotal,
		TotalDiscount: discount,
		DeliveryFee:   delivery,
		ServiceFee:    service,
		Tax:           tax,
	}
	for i, price := range items {
		r.Items = append(r.Items, models.ReceiptItem{
			ID:       string(rune('a' + i)),
			Name:     "Item",
			Price:    price,
			Quantity: 1,
		})
	}
	return r
}

func prices(r models.Receipt) []float64 {
	out := make([]float64, len(r.Items))
	for i, item := range r.Items {
		out[i] = item.Price
	}
	return out
}

func rules(cs []Correction) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Rule
	}
	return out
}

func TestApply_CleanReceiptUntouched(t *testing.T) {
	in := receipt([]float64{12000, 8000}, 20000, 2000, 4000, 1000, 2000)

	out, corrections := Apply(in, DefaultThresholds())

	assert.Empty(t, corrections)
	assert.Equal(t, in, out)
}

func TestApply_ItemsMissingThousands(t *testing.T) {
	in := receipt([]float64{12, 8}, 20000, 2000, 4000, 0, 2000)

	out, corrections := Apply(in, DefaultThresholds())

	assert.Equal(t, []float64{12000, 8000}, prices(out))
	assert.Equal(t, 20000.0, out.Subtotal)
	assert.Equal(t, []string{RuleItemsScaled}, rules(corrections))
}

func TestApply_HeaderMissingThousands(t *testing.T) {
	in := receipt([]float64{12000, 8000}, 20, 2, 4, 0, 2)

	out, corrections := Apply(in, DefaultThresholds())

	assert.Equal(t, 20000.0, out.Subtotal)
	assert.Equal(t, 2000.0, out.TotalDiscount)
	assert.Equal(t, 4000.0, out.DeliveryFee)
	assert.Equal(t, 0.0, out.ServiceFee)
	assert.Equal(t, 2000.0, out.Tax)
	for _, c := range corrections {
		assert.Equal(t, RuleHeaderScaled, c.Rule)
	}
	assert.Len(t, corrections, 4)
}

func TestApply_WholeReceiptMissingThousands(t *testing.T) {
	in := receipt([]float64{12, 8}, 20, 2, 4, 0, 2)

	out, corrections := Apply(in, DefaultThresholds())

	assert.Equal(t, []float64{12000, 8000}, prices(out))
	assert.Equal(t, 20000.0, out.Subtotal)
	assert.Equal(t, 2000.0, out.TotalDiscount)
	assert.Equal(t, 4000.0, out.DeliveryFee)
	assert.Equal(t, 2000.0, out.Tax)
	assert.Equal(t, []string{RuleReceiptScaled}, rules(corrections))
}

func TestApply_TaxAsFractionalRate(t *testing.T) {
	in := receipt([]float64{50000}, 50000, 0, 0, 0, 0.11)

	out, corrections := Apply(in, DefaultThresholds())

	assert.InDelta(t, 5500, out.Tax, 0.001)
	assert.Equal(t, []string{RuleTaxRate}, rules(corrections))
}

func TestApply_TaxRateOnSmallReceipt(t *testing.T) {
	in := receipt([]float64{45}, 45, 0, 0, 0, 0.1)

	out, corrections := Apply(in, DefaultThresholds())

	assert.Equal(t, 45000.0, out.Subtotal)
	assert.InDelta(t, 4500, out.Tax, 0.001)
	assert.Equal(t, []string{RuleReceiptScaled, RuleTaxRate}, rules(corrections))
}

func TestApply_TaxAsPercent(t *testing.T) {
	in := receipt([]float64{50000}, 50000, 0, 0, 0, 10)

	out, corrections := Apply(in, DefaultThresholds())

	assert.InDelta(t, 5000, out.Tax, 0.001)
	assert.Equal(t, []string{RuleTaxPercent}, rules(corrections))
}

func TestApply_SmallNominalTaxOnSmallBaseIsKept(t *testing.T) {
	in := receipt([]float64{5000}, 5000, 0, 0, 0, 50)

	out, corrections := Apply(in, DefaultThresholds())

	assert.Equal(t, 50.0, out.Tax)
	assert.Empty(t, corrections)
}

func TestApply_Sanitize(t *testing.T) {
	in := receipt([]float64{10000, math.NaN()}, 10000, -5000, math.Inf(1), 0, 0)
	in.Items[0].Quantity = 0
	in.MerchantName = "  Bakmi GM "

	out, corrections := Apply(in, DefaultThresholds())

	assert.Equal(t, "Bakmi GM", out.MerchantName)
	assert.Equal(t, 5000.0, out.TotalDiscount)
	assert.Equal(t, 0.0, out.DeliveryFee)
	assert.Equal(t, 1, out.Items[0].Quantity)
	assert.Equal(t, 0.0, out.Items[1].Price)
	assert.ElementsMatch(t,
		[]string{RuleNonFinite, RuleNegativeDiscount, RuleNonFinite, RuleQuantity},
		rules(corrections))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := receipt([]float64{12, 8}, 20000, 0, 0, 0, 0)

	_, _ = Apply(in, DefaultThresholds())

	assert.Equal(t, []float64{12, 8}, prices(in))
}

func TestApply_DisabledRules(t *testing.T) {
	th := DefaultThresholds()
	th.SmallAmountCeiling = 0
	th.FractionalTaxCeiling = 0
	th.PercentTaxCeiling = 0

	in := receipt([]float64{12, 8}, 20, 0, 0, 0, 0.5)
	out, corrections := Apply(in, th)

	assert.Empty(t, corrections)
	assert.Equal(t, in, out)
}

func TestApply_EmptyReceipt(t *testing.T) {
	out, corrections := Apply(models.Receipt{}, DefaultThresholds())

	assert.Empty(t, corrections)
	assert.Empty(t, out.Items)
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.ScaleFactor = 1
	bad.ScaleTolerance = 2
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scale_factor")
	assert.Contains(t, err.Error(), "scale_tolerance")
}
