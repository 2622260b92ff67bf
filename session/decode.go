package session

import (
	"reflect"
	"sync"

	"github.com/graphwire/graphwire/kerr"
)

type decodeSlot struct {
	value reflect.Value
	ready bool
}

// Decode is the per-call ordered slot vector reconstructed objects are
// written into. A slot is allocated (empty) before its payload is decoded,
// which is the single device that lets cyclic children resolve a
// back-reference to an object still under construction (spec §9).
type Decode struct {
	slots    []decodeSlot
	consumed int64
	ceiling  int64
}

func newDecode() *Decode {
	return &Decode{}
}

// Reset clears the slot vector and (re-)establishes the allocation
// ceiling for reuse from the pool. ceiling <= 0 means unbounded.
func (d *Decode) Reset(ceiling int64) {
	d.slots = d.slots[:0]
	d.consumed = 0
	d.ceiling = ceiling
}

// Allocate appends a fresh, empty slot and returns its index. The slot
// must be written via Set before any nested decode may observe it.
func (d *Decode) Allocate() int {
	d.slots = append(d.slots, decodeSlot{})
	return len(d.slots) - 1
}

// Set writes the payload into a previously allocated slot.
func (d *Decode) Set(index int, v reflect.Value) {
	d.slots[index] = decodeSlot{value: v, ready: true}
}

// Ready reports whether the slot at index has been written yet.
func (d *Decode) Ready(index int) bool {
	if index < 0 || index >= len(d.slots) {
		return false
	}
	return d.slots[index].ready
}

// Get returns the object at index. It fails with a bad-index malformed
// error if index is out of range, or cyclic-before-init if the slot was
// allocated but never written (spec §4.x, §7).
func (d *Decode) Get(index int) (reflect.Value, error) {
	if index < 0 || index >= len(d.slots) {
		return reflect.Value{}, kerr.Malformed(-1, "back-reference index %d exceeds slot count %d", index, len(d.slots))
	}
	s := d.slots[index]
	if !s.ready {
		return reflect.Value{}, kerr.CyclicBeforeInit(index)
	}
	return s.value, nil
}

// Count returns the number of allocated slots. After a top-level decode
// completes, this must equal the encode side's identity Count (spec §3
// invariant ii).
func (d *Decode) Count() int { return len(d.slots) }

// ConsumeBytes advances the running allocation-approximation total and
// fails with quota-exceeded if it now surpasses the configured ceiling.
// The check is monotonic: raising the ceiling never turns a passing
// decode into a failing one and vice versa (spec §8 "quota monotonicity").
func (d *Decode) ConsumeBytes(n int64) error {
	d.consumed += n
	if d.ceiling > 0 && d.consumed > d.ceiling {
		return kerr.QuotaExceeded(d.consumed, d.ceiling)
	}
	return nil
}

var decodePool = sync.Pool{New: func() any { return newDecode() }}

// GetDecode borrows a Decode session from the pool, reset with the given
// allocation ceiling.
func GetDecode(ceiling int64) *Decode {
	d := decodePool.Get().(*Decode)
	d.Reset(ceiling)
	return d
}

// PutDecode returns d to the pool. Must be called exactly once per
// GetDecode, even on failure paths.
func PutDecode(d *Decode) {
	decodePool.Put(d)
}
