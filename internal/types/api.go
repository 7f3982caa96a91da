// Package types provides the request and response shapes of the HTTP API.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mikhail/check-split/internal/receipt"
	"github.com/mikhail/check-split/internal/splitting"
)

// PreprocessResponse is the result of uploading a receipt image.
// When the image yields no text or is not a restaurant check, Items is empty
// and TotalAmountDetected is zero, but ExtractedText still reflects whatever
// the OCR step produced.
type PreprocessResponse struct {
	Items               []receipt.LineItem `json:"items"`
	IsRestaurant        bool               `json:"is_restaurant"`
	ExtractedText       string             `json:"extracted_text"`
	TotalAmountDetected int                `json:"total_amount_detected"`
}

// CalculateSplitRequest is the payload of a split calculation request.
type CalculateSplitRequest struct {
	ExtractedText   string         `json:"extracted_text" validate:"required"`
	NumPeople       int            `json:"num_people" validate:"required,min=1"`
	TeaMoney        string         `json:"tea_money"`
	ItemAssignments AssignmentList `json:"item_assignments"`
}

// Validate validates the CalculateSplitRequest using the validator.
func (r *CalculateSplitRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Gratuity parses the tea_money field into a non-negative integer amount.
// Both comma and dot are accepted as the decimal separator; fractional
// amounts round to the nearest integer. An empty field means zero.
func (r *CalculateSplitRequest) Gratuity() (int, error) {
	raw := strings.TrimSpace(r.TeaMoney)
	if raw == "" {
		return 0, nil
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tea_money value %q", r.TeaMoney)
	}
	if amount < 0 {
		return 0, fmt.Errorf("tea_money cannot be negative")
	}

	return int(math.Round(amount)), nil
}

// AssignmentList decodes a JSON object mapping person names to item lists
// while preserving the order in which the names appear. Plain map decoding
// would lose that order, and it drives both the output ordering and the
// rounding tie-break.
type AssignmentList []splitting.Assignment

// UnmarshalJSON decodes the object token stream in document order.
func (a *AssignmentList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("item_assignments must be a JSON object")
	}

	var list AssignmentList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in item_assignments", keyTok)
		}

		var items []string
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("items for %q must be a list of strings: %w", name, err)
		}

		list = append(list, splitting.Assignment{Name: name, Items: items})
	}

	*a = list
	return nil
}

// MarshalJSON re-encodes the list as a JSON object in list order.
func (a AssignmentList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, assignment := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(assignment.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		items, err := json.Marshal(assignment.Items)
		if err != nil {
			return nil, err
		}
		buf.Write(items)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ShareBreakdown carries one person's amounts under the four strategies,
// using the historical field names the front end expects.
type ShareBreakdown struct {
	Equally                               int `json:"equally"`
	WhoMoreEatThenMorePay                 int `json:"who_more_eat_then_more_pay"`
	WhoMoreCostThenMorePay                int `json:"who_more_cost_then_more_pay"`
	ProportionalDivisionByTheCostOfOrders int `json:"proportional_division_by_the_cost_of_orders"`
}

// PersonSharesItem is one entry of the peoples_list response field.
type PersonSharesItem struct {
	Name   string         `json:"name"`
	Shares ShareBreakdown `json:"shares"`
}

// CalculateSplitResponse is the result of a split calculation.
type CalculateSplitResponse struct {
	PeoplesList []PersonSharesItem `json:"peoples_list"`
}

// NewCalculateSplitResponse maps a computed split result onto the wire shape.
func NewCalculateSplitResponse(result *splitting.Result) CalculateSplitResponse {
	people := make([]PersonSharesItem, 0, len(result.People))
	for _, p := range result.People {
		people = append(people, PersonSharesItem{
			Name: p.Name,
			Shares: ShareBreakdown{
				Equally:                               p.Shares.Equally,
				WhoMoreEatThenMorePay:                 p.Shares.ByItemCount,
				WhoMoreCostThenMorePay:                p.Shares.ByItemCost,
				ProportionalDivisionByTheCostOfOrders: p.Shares.Proportional,
			},
		})
	}
	return CalculateSplitResponse{PeoplesList: people}
}
