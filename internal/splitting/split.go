// Package splitting computes bill allocations across people. The
// computation is pure integer-and-weights arithmetic with no external
// calls, so results are fully deterministic.
package splitting

import (
	"fmt"
	"math"

	"github.com/mikhail/check-split/internal/receipt"
)

// Assignment names a person and the receipt items they consumed.
// The slice order of assignments is significant: it fixes the output order
// and the direction in which rounding remainders are handed out.
type Assignment struct {
	Name  string
	Items []string
}

// Shares holds one person's allocation under each strategy.
type Shares struct {
	Equally      int
	ByItemCount  int
	ByItemCost   int
	Proportional int
}

// PersonShare pairs a person with their computed shares.
type PersonShare struct {
	Name   string
	Shares Shares
}

// Result is the full allocation for one bill.
type Result struct {
	People     []PersonShare
	GrandTotal int
}

// Compute allocates a bill across numPeople using four strategies:
//
//   - Equally: the grand total divided evenly.
//   - ByItemCount: proportional to how many items each person was assigned,
//     items shared by several people counting fractionally.
//   - ByItemCost: proportional to the cost of each person's assigned items,
//     shared items splitting their price across assignees.
//   - Proportional: proportional to order cost; computed like ByItemCost and
//     kept as a separate output field for interface compatibility.
//
// The grand total is max(detected total, sum of item prices) plus gratuity;
// the caller supplies a gratuity already resolved against any service charge
// present on the receipt itself. Strategies with no usable assignments
// degenerate to the equal split.
//
// Rounding rule: each proportional share is floored, then the leftover units
// are handed out one each to people in listing order. Every strategy column
// therefore sums exactly to the grand total.
func Compute(rcpt receipt.ParsedReceipt, numPeople, gratuity int, assignments []Assignment) (*Result, error) {
	if numPeople < 1 {
		return nil, &InvalidInputError{Message: "number of people must be at least 1"}
	}
	if gratuity < 0 {
		return nil, &InvalidInputError{Message: "gratuity cannot be negative"}
	}
	if len(assignments) > numPeople {
		return nil, &InvalidInputError{
			Message: fmt.Sprintf("%d people named in assignments but only %d people requested", len(assignments), numPeople),
		}
	}

	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if a.Name == "" {
			return nil, &InvalidInputError{Message: "assignment with empty person name"}
		}
		if seen[a.Name] {
			return nil, &InvalidInputError{Message: fmt.Sprintf("person %q assigned more than once", a.Name)}
		}
		seen[a.Name] = true
	}

	grandTotal := rcpt.DetectedTotal
	if itemsTotal := rcpt.ItemsTotal(); itemsTotal > grandTotal {
		grandTotal = itemsTotal
	}
	grandTotal += gratuity

	names := make([]string, 0, numPeople)
	for _, a := range assignments {
		names = append(names, a.Name)
	}
	for n := len(names) + 1; n <= numPeople; n++ {
		names = append(names, fmt.Sprintf("Person %d", n))
	}

	countWeights, costWeights := itemWeights(rcpt, numPeople, assignments)

	equally := distribute(grandTotal, make([]float64, numPeople))
	byCount := distribute(grandTotal, countWeights)
	byCost := distribute(grandTotal, costWeights)
	proportional := distribute(grandTotal, costWeights)

	people := make([]PersonShare, numPeople)
	for i, name := range names {
		people[i] = PersonShare{
			Name: name,
			Shares: Shares{
				Equally:      equally[i],
				ByItemCount:  byCount[i],
				ByItemCost:   byCost[i],
				Proportional: proportional[i],
			},
		}
	}

	return &Result{People: people, GrandTotal: grandTotal}, nil
}

// itemWeights computes each person's count and cost weights. An item shared
// by k assignees contributes 1/k to each of their count weights and price/k
// to each of their cost weights. Items assigned to nobody contribute to no
// weight; their cost is still part of the grand total and is covered
// through the proportional scaling.
func itemWeights(rcpt receipt.ParsedReceipt, numPeople int, assignments []Assignment) (counts, costs []float64) {
	counts = make([]float64, numPeople)
	costs = make([]float64, numPeople)

	assigned := make([]map[string]bool, len(assignments))
	for i, a := range assignments {
		assigned[i] = make(map[string]bool, len(a.Items))
		for _, item := range a.Items {
			assigned[i][item] = true
		}
	}

	for _, item := range rcpt.Items {
		var assignees []int
		for i := range assignments {
			if assigned[i][item.Name] {
				assignees = append(assignees, i)
			}
		}
		if len(assignees) == 0 {
			continue
		}
		fraction := 1.0 / float64(len(assignees))
		for _, i := range assignees {
			counts[i] += fraction
			costs[i] += float64(item.Price) * fraction
		}
	}

	return counts, costs
}

// distribute splits total proportionally to weights. A zero weight sum
// (including the all-zero weights of the equal strategy) means an even
// split. Floored shares are topped up one unit at a time in listing order
// until the column sums to total.
func distribute(total int, weights []float64) []int {
	n := len(weights)
	shares := make([]int, n)

	var weightSum float64
	for _, w := range weights {
		weightSum += w
	}

	allocated := 0
	if weightSum == 0 {
		base := total / n
		for i := range shares {
			shares[i] = base
		}
		allocated = base * n
	} else {
		for i, w := range weights {
			// The epsilon keeps exact rational shares from flooring one
			// unit low due to float error.
			share := int(math.Floor(float64(total)*w/weightSum + 1e-9))
			shares[i] = share
			allocated += share
		}
	}

	for i := 0; allocated < total; i = (i + 1) % n {
		shares[i]++
		allocated++
	}
	for i := n - 1; allocated > total; i = (i - 1 + n) % n {
		if shares[i] > 0 {
			shares[i]--
			allocated--
		}
	}

	return shares
}
