// internal/events/consolidate.go
package events

import (
	"eventrental/internal/apperr"
)

// ConsolidatedItem is one reservation after merging duplicate requests.
type ConsolidatedItem struct {
	Source   Source
	Quantity int
}

// Consolidate validates the requested items and merges those with the same
// source key by summing quantities. Output keeps first-seen order.
func Consolidate(inputs []LineItemInput) ([]ConsolidatedItem, error) {
	index := make(map[string]int, len(inputs))
	out := make([]ConsolidatedItem, 0, len(inputs))

	for _, in := range inputs {
		src, err := in.Source()
		if err != nil {
			return nil, err
		}
		if in.Quantity <= 0 {
			return nil, apperr.BadRequest("Item quantity must be positive, got %d", in.Quantity)
		}

		key := src.Key()
		if i, ok := index[key]; ok {
			out[i].Quantity += in.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, ConsolidatedItem{Source: src, Quantity: in.Quantity})
	}
	return out, nil
}
