// Package summary renders the plain-text breakdown users paste into chat.
package summary

import (
	"strings"

	"github.com/annafiu/twabillsplitter/internal/currency"
	"github.com/annafiu/twabillsplitter/internal/models"
)

// Text renders merchant, date, one line per person and the total, e.g.
//
//	Sate Khas Senayan (12 Jan 2025)
//	- Andi: Rp12.000
//	- Budi: Rp16.500
//	Total: Rp28.500
//
// Amounts are rounded to whole rupiah for display only.
func Text(receipt models.Receipt, allocation models.Allocation) string {
	var b strings.Builder

	merchant := strings.TrimSpace(receipt.MerchantName)
	if merchant == "" {
		merchant = "Struk"
	}
	b.WriteString(merchant)
	if date := strings.TrimSpace(receipt.Date); date != "" {
		b.WriteString(" (" + date + ")")
	}
	b.WriteByte('\n')

	for _, r := range allocation.Results {
		b.WriteString("- " + r.Person.Name + ": " + currency.FormatRupiah(r.Total) + "\n")
	}
	if allocation.UnassignedAmount != 0 {
		b.WriteString("Belum dibagi: " + currency.FormatRupiah(allocation.UnassignedAmount) + "\n")
	}
	b.WriteString("Total: " + currency.FormatRupiah(allocation.TotalCalculated))
	return b.String()
}
