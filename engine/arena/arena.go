// Package arena provides the fixed-capacity slot allocators every runtime entity lives in.
//
// Pools are monotonic: slots are handed out in creation order and never reclaimed
// individually. Only Clear (bulk teardown) resets a pool, after which every handle issued
// before the Clear is stale. Stale handles are only caught by the bound check, so callers
// must not keep handles across a Clear.
package arena

import "fmt"

// Handle is an index into a pool. A handle is valid iff 0 <= index < allocated count
// of the pool that issued it.
type Handle int32

// InvalidHandle is returned whenever an allocation fails or a reference is unset.
const InvalidHandle Handle = -1

// Valid reports whether the handle holds a non-negative index. It does not check the
// handle against any pool; use Slots.Contains for that.
//
// Returns:
//   - bool: true if h >= 0
func (h Handle) Valid() bool {
	return h >= 0
}

// Index returns the handle as an int for slice indexing.
//
// Returns:
//   - int: the slot index
func (h Handle) Index() int {
	return int(h)
}

func (h Handle) String() string {
	if !h.Valid() {
		return "none"
	}
	return fmt.Sprintf("#%d", int32(h))
}

// Slots is a monotonic slot counter with a fixed capacity. It is embedded by pools that
// keep their own storage layout (structure-of-arrays pools, for example).
type Slots struct {
	name     string
	capacity int
	count    int
}

// NewSlots creates a slot counter for a pool with the given name and capacity.
//
// Parameters:
//   - name: the pool name used in diagnostics
//   - capacity: the maximum number of slots (negative values are treated as 0)
//
// Returns:
//   - Slots: the counter
func NewSlots(name string, capacity int) Slots {
	return Slots{name: name, capacity: max(capacity, 0)}
}

// Next reserves the next slot. When the pool is full it returns InvalidHandle and an error
// wrapping ErrAllocationExhausted; the allocated count is left unchanged.
//
// Returns:
//   - Handle: the reserved slot or InvalidHandle
//   - error: ErrAllocationExhausted when full
func (s *Slots) Next() (Handle, error) {
	if s.count >= s.capacity {
		return InvalidHandle, fmt.Errorf("%s pool (capacity %d): %w", s.name, s.capacity, ErrAllocationExhausted)
	}
	h := Handle(s.count)
	s.count++
	return h, nil
}

// Contains reports whether h addresses an allocated slot.
//
// Parameters:
//   - h: the handle to test
//
// Returns:
//   - bool: true if 0 <= h < Len()
func (s *Slots) Contains(h Handle) bool {
	return h >= 0 && int(h) < s.count
}

// Check raises a ContractViolation when h does not address an allocated slot.
//
// Parameters:
//   - h: the handle being dereferenced
func (s *Slots) Check(h Handle) {
	Require(s.Contains(h), "%s handle %s out of range [0,%d)", s.name, h, s.count)
}

// Len returns the number of allocated slots.
func (s *Slots) Len() int { return s.count }

// Cap returns the fixed capacity.
func (s *Slots) Cap() int { return s.capacity }

// Name returns the pool name.
func (s *Slots) Name() string { return s.name }

// Reset releases every slot at once.
func (s *Slots) Reset() { s.count = 0 }

// Pool is a fixed-capacity array of T addressed by Handle. The backing array is allocated
// once at construction and never resized, so pointers returned by Get stay valid until Clear.
type Pool[T any] struct {
	Slots
	items []T
}

// NewPool creates a pool with room for capacity items.
//
// Parameters:
//   - name: the pool name used in diagnostics
//   - capacity: the fixed number of slots
//
// Returns:
//   - *Pool[T]: the empty pool
func NewPool[T any](name string, capacity int) *Pool[T] {
	s := NewSlots(name, capacity)
	return &Pool[T]{
		Slots: s,
		items: make([]T, s.capacity),
	}
}

// Alloc reserves a zeroed slot and returns its handle and a pointer to it.
//
// Returns:
//   - Handle: the new handle or InvalidHandle when full
//   - *T: the slot, or nil when full
//   - error: ErrAllocationExhausted when full
func (p *Pool[T]) Alloc() (Handle, *T, error) {
	h, err := p.Next()
	if err != nil {
		return InvalidHandle, nil, err
	}
	var zero T
	p.items[h] = zero
	return h, &p.items[h], nil
}

// Get returns a pointer to the slot addressed by h. Dereferencing an unallocated handle is
// a contract violation.
//
// Parameters:
//   - h: the handle to resolve
//
// Returns:
//   - *T: the slot
func (p *Pool[T]) Get(h Handle) *T {
	p.Check(h)
	return &p.items[h]
}

// All returns the allocated prefix of the backing array. The slice aliases pool storage.
//
// Returns:
//   - []T: the allocated items in handle order
func (p *Pool[T]) All() []T {
	return p.items[:p.count]
}

// Clear zeroes and releases every slot. Handles issued before Clear become stale.
func (p *Pool[T]) Clear() {
	clear(p.items[:p.count])
	p.Reset()
}
