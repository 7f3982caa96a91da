// Package receipt defines the validated domain model for an extracted
// restaurant receipt and the coercion rules for building it from loosely
// structured model output.
package receipt

// LineItem is one priced position on a receipt.
type LineItem struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// ParsedReceipt is the validated result of extracting a receipt from text.
//
// DetectedTotal is independent of the sum of item prices: service charges,
// discounts and rounding make the two legitimately disagree, so both are
// carried and neither is reconciled against the other.
type ParsedReceipt struct {
	Items         []LineItem `json:"items"`
	DetectedTotal int        `json:"detected_total"`
}

// ItemsTotal returns the sum of the item prices.
func (r ParsedReceipt) ItemsTotal() int {
	total := 0
	for _, item := range r.Items {
		total += item.Price
	}
	return total
}

// Empty returns an empty but valid receipt.
func Empty() ParsedReceipt {
	return ParsedReceipt{Items: []LineItem{}}
}
