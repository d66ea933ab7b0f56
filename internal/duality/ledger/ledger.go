// Package ledger records every Hope change made while resolving one roll.
//
// The ledger never clamps intermediate values: components accumulate and
// the bound [0, capacity] is applied once when the final value is read.
package ledger

import (
	"strconv"
	"strings"
)

// DefaultCapacity is used when the stored capacity is missing or not positive.
const DefaultCapacity = 6

// Kind is the direction of a component.
type Kind int

const (
	Gain Kind = iota + 1
	Consume
)

// Component is one labelled change.
type Component struct {
	Kind   Kind
	Amount int
	Label  string
}

// Hope tracks the Hope changes of a single resolution.
type Hope struct {
	original   int
	capacity   int
	components []Component
}

// New returns a ledger starting from original (floored at 0).
func New(original, capacity int) *Hope {
	if original < 0 {
		original = 0
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hope{original: original, capacity: capacity}
}

// Add records a component. Non-positive amounts are ignored.
func (h *Hope) Add(kind Kind, amount int, label string) {
	if amount <= 0 {
		return
	}
	h.components = append(h.components, Component{Kind: kind, Amount: amount, Label: label})
}

// Original returns the starting value.
func (h *Hope) Original() int { return h.original }

// Capacity returns the effective cap.
func (h *Hope) Capacity() int { return h.capacity }

// Components returns a copy of the recorded components.
func (h *Hope) Components() []Component {
	return append([]Component(nil), h.components...)
}

// Consumed returns the total consumed so far.
func (h *Hope) Consumed() int {
	total := 0
	for _, c := range h.components {
		if c.Kind == Consume {
			total += c.Amount
		}
	}
	return total
}

// Final returns clamp(original + gains - consumes, 0, capacity).
func (h *Hope) Final() int {
	v := h.original
	for _, c := range h.components {
		switch c.Kind {
		case Gain:
			v += c.Amount
		case Consume:
			v -= c.Amount
		}
	}
	if v < 0 {
		return 0
	}
	if v > h.capacity {
		return h.capacity
	}
	return v
}

// HasChange reports whether any component was recorded.
func (h *Hope) HasChange() bool { return len(h.components) > 0 }

// NetChange returns Final() minus the original value.
func (h *Hope) NetChange() int { return h.Final() - h.original }

// Calculation renders the ledger as "3+1(hope result)-1(stealth)".
func (h *Hope) Calculation() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(h.original))
	for _, c := range h.components {
		if c.Kind == Gain {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(c.Amount))
		b.WriteByte('(')
		b.WriteString(c.Label)
		b.WriteByte(')')
	}
	return b.String()
}
