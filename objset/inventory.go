// Package objset implements the serial-number inventory and the
// index-based intrusive list that spec.md §9 calls for in place of the
// original's pointer-linked nodes: "each list is an array of slots with
// free-list reuse; list membership is a (list_id, slot_index) pair."
package objset

import "fmt"

// Number is a per-class serial number, unique within its class and
// monotonically non-decreasing in assignment order (spec.md §8).
type Number uint32

// Numbered is implemented by every object an Inventory tracks. Embed
// Serial to get it for free, mirroring how cytosim's Inventoried base
// class is embedded in every Object subtype.
type Numbered interface {
	Number() Number
	SetNumber(Number)
}

// Serial gives an embedding type a stable serial number.
type Serial struct {
	number Number
}

// Number returns the object's serial number, or 0 if never assigned.
func (s *Serial) Number() Number { return s.number }

// SetNumber is called only by Inventory.Assign/Unassign.
func (s *Serial) SetNumber(n Number) { s.number = n }

// Inventory assigns and remembers serial numbers for objects of one
// class, mirroring base/inventory.h: O(1) assign, unassign, and lookup
// by number, plus traversal in ascending serial-number order (All).
type Inventory[T Numbered] struct {
	byNumber map[Number]T
	next     Number
}

// NewInventory returns an empty Inventory.
func NewInventory[T Numbered]() *Inventory[T] {
	return &Inventory[T]{byNumber: make(map[Number]T)}
}

// Assign records obj and gives it a fresh serial number if it does not
// already have one.
func (inv *Inventory[T]) Assign(obj T) Number {
	if n := obj.Number(); n != 0 {
		if _, ok := inv.byNumber[n]; ok {
			return n
		}
	}
	inv.next++
	n := inv.next
	obj.SetNumber(n)
	inv.byNumber[n] = obj
	return n
}

// Unassign forgets obj and releases its serial number. The number is
// never reused except by Reassign.
func (inv *Inventory[T]) Unassign(obj T) {
	delete(inv.byNumber, obj.Number())
	obj.SetNumber(0)
}

// Find returns the object with the given serial number, and whether it
// was present.
func (inv *Inventory[T]) Find(n Number) (T, bool) {
	obj, ok := inv.byNumber[n]
	return obj, ok
}

// Count returns the number of tracked objects.
func (inv *Inventory[T]) Count() int { return len(inv.byNumber) }

// Reassign repacks serial numbers consecutively starting at 1, in the
// current map iteration order made deterministic by sorting on the old
// number. Mirrors Inventory::reassign(); no other package in this module
// calls it (trace writes serial numbers as they are).
func (inv *Inventory[T]) Reassign() {
	olds := make([]Number, 0, len(inv.byNumber))
	for n := range inv.byNumber {
		olds = append(olds, n)
	}
	sortNumbers(olds)
	fresh := make(map[Number]T, len(olds))
	inv.next = 0
	for _, n := range olds {
		obj := inv.byNumber[n]
		inv.next++
		obj.SetNumber(inv.next)
		fresh[inv.next] = obj
	}
	inv.byNumber = fresh
}

// All returns every tracked object in ascending serial-number order.
func (inv *Inventory[T]) All() []T {
	olds := make([]Number, 0, len(inv.byNumber))
	for n := range inv.byNumber {
		olds = append(olds, n)
	}
	sortNumbers(olds)
	out := make([]T, len(olds))
	for i, n := range olds {
		out[i] = inv.byNumber[n]
	}
	return out
}

func sortNumbers(s []Number) {
	// insertion sort: inventories are small (thousands, not millions) and
	// this keeps the package dependency-free.
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func (n Number) String() string { return fmt.Sprintf("#%d", uint32(n)) }
