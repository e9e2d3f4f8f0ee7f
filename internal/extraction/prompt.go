package extraction

// Prompt is sent with every receipt image.
const Prompt = `You are reading a food delivery receipt (GoFood, GrabFood, ShopeeFood or similar).
Extract exactly these eight fields and answer with a single JSON object only:

1. merchantName: the restaurant or store name.
2. date: the order date exactly as printed.
3. items: every ordered line with name, price and quantity.
   price is the TOTAL price printed for the line (unit price x quantity).
4. subtotal: the subtotal before discounts, fees and tax.
5. totalDiscount: the sum of all discounts and promos as a POSITIVE number.
6. deliveryFee: the delivery or shipping fee (ongkos kirim).
7. serviceFee: service, packaging, order or application fees combined.
8. tax: the tax amount in currency (PB1/PPN), not a percentage.

Number format rules (Indonesian Rupiah):
- A dot (.) is a THOUSANDS separator: "45.000" means 45000.
- A comma (,) is a DECIMAL separator: "12.500,50" means 12500.50.
- Never round numbers and never drop trailing zeros.
- Use 0 for any amount that is not printed on the receipt.

Output JSON only. No markdown, no explanations.`

// ResponseSchema constrains the model output. All eight fields are required.
var ResponseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"merchantName": map[string]any{"type": "STRING"},
		"date":         map[string]any{"type": "STRING"},
		"items": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"name":     map[string]any{"type": "STRING"},
					"price":    map[string]any{"type": "NUMBER"},
					"quantity": map[string]any{"type": "INTEGER"},
				},
				"required": []string{"name", "price", "quantity"},
			},
		},
		"subtotal":      map[string]any{"type": "NUMBER"},
		"totalDiscount": map[string]any{"type": "NUMBER"},
		"deliveryFee":   map[string]any{"type": "NUMBER"},
		"serviceFee":    map[string]any{"type": "NUMBER"},
		"tax":           map[string]any{"type": "NUMBER"},
	},
	"required": []string{
		"merchantName", "date", "items", "subtotal",
		"totalDiscount", "deliveryFee", "serviceFee", "tax",
	},
}
