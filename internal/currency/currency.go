// Package currency handles money made of physical item denominations.
//
// A player's funds are the items they hold of each accepted class, weighted
// by the denomination value. Payments are planned greedily from the largest
// denomination down; if the exact amount cannot be assembled the smallest
// remaining coin that covers the rest is taken and change is paid back.
package currency

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrInvalidValue      = errors.New("denomination value must be positive")
	ErrDuplicate         = errors.New("duplicate denomination")
)

// Denomination is one currency item class and the amount a single unit is worth.
type Denomination struct {
	ClassName string `yaml:"class_name" json:"className"`
	Value     int64  `yaml:"value" json:"value"`
}

// Set is an immutable group of denominations, ordered by value descending.
type Set struct {
	denoms []Denomination
	index  map[string]int64
}

// NewSet validates and orders denominations.
func NewSet(denoms []Denomination) (*Set, error) {
	s := &Set{
		denoms: slices.Clone(denoms),
		index:  make(map[string]int64, len(denoms)),
	}
	for _, d := range denoms {
		if d.Value <= 0 {
			return nil, fmt.Errorf("%s: %w", d.ClassName, ErrInvalidValue)
		}
		if _, ok := s.index[d.ClassName]; ok {
			return nil, fmt.Errorf("%s: %w", d.ClassName, ErrDuplicate)
		}
		s.index[d.ClassName] = d.Value
	}
	slices.SortStableFunc(s.denoms, func(a, b Denomination) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return s, nil
}

// Subset returns the denominations named by classNames.
func (s *Set) Subset(classNames []string) (*Set, error) {
	out := make([]Denomination, 0, len(classNames))
	for _, name := range classNames {
		v, ok := s.index[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrUnknownCurrency)
		}
		out = append(out, Denomination{ClassName: name, Value: v})
	}
	return NewSet(out)
}

// Denominations returns a copy, largest value first.
func (s *Set) Denominations() []Denomination { return slices.Clone(s.denoms) }

// Len returns the number of denominations.
func (s *Set) Len() int { return len(s.denoms) }

// Accepts reports whether className is part of the set.
func (s *Set) Accepts(className string) bool {
	_, ok := s.index[className]
	return ok
}

// Value returns the unit value of className.
func (s *Set) Value(className string) (int64, bool) {
	v, ok := s.index[className]
	return v, ok
}

// Total sums holdings across the set. Classes outside the set are ignored.
func (s *Set) Total(holdings map[string]int64) int64 {
	var total int64
	for _, d := range s.denoms {
		if n := holdings[d.ClassName]; n > 0 {
			total += n * d.Value
		}
	}
	return total
}

// Breakdown splits amount into denominations, largest first. The remainder
// is the part smaller than the smallest denomination.
func (s *Set) Breakdown(amount int64) (units map[string]int64, remainder int64) {
	units = make(map[string]int64)
	remainder = max(amount, 0)
	for _, d := range s.denoms {
		if n := remainder / d.Value; n > 0 {
			units[d.ClassName] = n
			remainder -= n * d.Value
		}
	}
	return units, remainder
}

// Plan describes how a payment is settled: units taken from the payer and
// change handed back.
type Plan struct {
	Amount int64
	Take   map[string]int64
	Change map[string]int64
	// Unpaid is change that no denomination can represent.
	Unpaid int64
}

// Paid returns the value of the taken units.
func (p Plan) Paid(s *Set) int64 { return s.Total(p.Take) }

// PlanPayment plans a payment of amount out of holdings.
func (s *Set) PlanPayment(holdings map[string]int64, amount int64) (Plan, error) {
	plan := Plan{
		Amount: amount,
		Take:   make(map[string]int64),
		Change: make(map[string]int64),
	}
	if amount <= 0 {
		return plan, nil
	}
	if total := s.Total(holdings); total < amount {
		return plan, fmt.Errorf("need %d, have %d: %w", amount, total, ErrInsufficientFunds)
	}

	remaining := amount
	for _, d := range s.denoms {
		have := holdings[d.ClassName]
		if have <= 0 {
			continue
		}
		n := min(have, remaining/d.Value)
		if n > 0 {
			plan.Take[d.ClassName] = n
			remaining -= n * d.Value
		}
	}
	if remaining == 0 {
		return plan, nil
	}

	// Every denomination with units left is worth more than what remains.
	for i := len(s.denoms) - 1; i >= 0; i-- {
		d := s.denoms[i]
		if holdings[d.ClassName]-plan.Take[d.ClassName] > 0 {
			plan.Take[d.ClassName]++
			plan.Change, plan.Unpaid = s.Breakdown(d.Value - remaining)
			return plan, nil
		}
	}

	return plan, fmt.Errorf("need %d more: %w", remaining, ErrInsufficientFunds)
}
