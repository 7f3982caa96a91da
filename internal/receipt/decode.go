package receipt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeItems validates and coerces a model response of the shape
// {"items": [{"name": ..., "price": ...}]} into sanitized line items.
// An empty or absent list is valid and yields an empty slice.
func DecodeItems(data []byte) ([]LineItem, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &MalformedError{Message: "response is not a JSON object", Cause: err}
	}

	rawItems, exists := payload["items"]
	if !exists {
		return nil, &MalformedError{Field: "items", Message: "required field is missing"}
	}
	if rawItems == nil {
		return []LineItem{}, nil
	}

	list, ok := rawItems.([]any)
	if !ok {
		return nil, &MalformedError{Field: "items", Message: "field is not a list"}
	}

	items := make([]LineItem, 0, len(list))
	for i, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, &MalformedError{
				Field:   fmt.Sprintf("items[%d]", i),
				Message: "entry is not an object",
			}
		}

		rawName, exists := entry["name"]
		if !exists {
			return nil, &MalformedError{
				Field:   fmt.Sprintf("items[%d].name", i),
				Message: "required field is missing",
			}
		}
		name, ok := rawName.(string)
		if !ok {
			return nil, &MalformedError{
				Field:   fmt.Sprintf("items[%d].name", i),
				Message: "field is not a string",
			}
		}
		name = SanitizeName(name)
		if name == "" {
			return nil, &MalformedError{
				Field:   fmt.Sprintf("items[%d].name", i),
				Message: "name is empty after sanitization",
			}
		}

		rawPrice, exists := entry["price"]
		if !exists {
			return nil, &MalformedError{
				Field:   fmt.Sprintf("items[%d].price", i),
				Message: "required field is missing",
			}
		}
		price, err := CoerceAmount(rawPrice)
		if err != nil {
			return nil, &MalformedError{
				Field:   fmt.Sprintf("items[%d].price", i),
				Message: "cannot coerce to a non-negative integer",
				Cause:   err,
			}
		}

		items = append(items, LineItem{Name: name, Price: price})
	}

	return items, nil
}

// DecodeTotal validates and coerces a model response of the shape
// {"total_amount": ...} into a non-negative integer.
func DecodeTotal(data []byte) (int, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, &MalformedError{Message: "response is not a JSON object", Cause: err}
	}

	rawTotal, exists := payload["total_amount"]
	if !exists {
		return 0, &MalformedError{Field: "total_amount", Message: "required field is missing"}
	}

	total, err := CoerceAmount(rawTotal)
	if err != nil {
		return 0, &MalformedError{
			Field:   "total_amount",
			Message: "cannot coerce to a non-negative integer",
			Cause:   err,
		}
	}

	return total, nil
}

// CoerceAmount converts a decoded JSON value into a non-negative integer
// amount. Floating values and numeric-looking strings (comma or dot as the
// decimal separator) round half away from zero; anything else is an error.
func CoerceAmount(value any) (int, error) {
	var amount float64

	switch v := value.(type) {
	case float64:
		amount = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		amount = parsed
	case string:
		normalized := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		parsed, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric string %q: %w", v, err)
		}
		amount = parsed
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}

	if amount < 0 {
		return 0, fmt.Errorf("amount %v is negative", amount)
	}

	return int(math.Round(amount)), nil
}
