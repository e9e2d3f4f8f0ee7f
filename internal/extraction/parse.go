package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/annafiu/twabillsplitter/internal/currency"
	"github.com/annafiu/twabillsplitter/internal/models"
)

// StripCodeFence removes a surrounding markdown code fence such as
// ```json ... ``` from s.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string ("json", "JSON", ...).
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// amount accepts a JSON number, a numeric string in either notation, or null.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amount(parseAmountString(s))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	*a = amount(f)
	return nil
}

// parseAmountString reads "45000", "45000.5" and "45.000,50" alike. A plain
// machine number is tried first so "12.5" stays 12.5.
func parseAmountString(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.Count(s, ".") <= 1 && !looksGrouped(s) {
		return f
	}
	return currency.Parse(s)
}

// looksGrouped reports a single dot followed by exactly three digits, which
// in receipts means thousands ("45.000"), not a fraction.
func looksGrouped(s string) bool {
	_, frac, ok := strings.Cut(s, ".")
	return ok && len(frac) == 3
}

// count accepts a JSON integer, float, numeric string, or null.
type count int

func (c *count) UnmarshalJSON(data []byte) error {
	var a amount
	if err := a.UnmarshalJSON(data); err != nil {
		return err
	}
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		*c = 0
		return nil
	}
	*c = count(math.Round(f))
	return nil
}

type draftItem struct {
	Name     string `json:"name"`
	Price    amount `json:"price"`
	Quantity count  `json:"quantity"`
}

type draftReceipt struct {
	MerchantName  string      `json:"merchantName"`
	Date          string      `json:"date"`
	Items         []draftItem `json:"items"`
	Subtotal      amount      `json:"subtotal"`
	TotalDiscount amount      `json:"totalDiscount"`
	DeliveryFee   amount      `json:"deliveryFee"`
	ServiceFee    amount      `json:"serviceFee"`
	Tax           amount      `json:"tax"`
}

// ParseReceipt decodes the model's answer into a draft receipt. Missing
// fields are zero. Item IDs are left empty.
func ParseReceipt(text string) (models.Receipt, error) {
	body := StripCodeFence(text)
	if body == "" {
		return models.Receipt{}, ErrEmptyResponse
	}
	if !json.Valid([]byte(body)) {
		// Some answers wrap the object in prose.
		extracted, ok := extractJSON(body)
		if !ok {
			return models.Receipt{}, ErrNoJSON
		}
		body = extracted
	}

	var draft draftReceipt
	if err := json.Unmarshal([]byte(body), &draft); err != nil {
		return models.Receipt{}, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	receipt := models.Receipt{
		MerchantName:  draft.MerchantName,
		Date:          draft.Date,
		Subtotal:      float64(draft.Subtotal),
		TotalDiscount: float64(draft.TotalDiscount),
		DeliveryFee:   float64(draft.DeliveryFee),
		ServiceFee:    float64(draft.ServiceFee),
		Tax:           float64(draft.Tax),
		Items:         make([]models.ReceiptItem, 0, len(draft.Items)),
	}
	for _, item := range draft.Items {
		receipt.Items = append(receipt.Items, models.ReceiptItem{
			Name:     item.Name,
			Price:    float64(item.Price),
			Quantity: int(item.Quantity),
		})
	}
	return receipt, nil
}

// extractJSON returns the outermost {...} span of s if it is valid JSON.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}
