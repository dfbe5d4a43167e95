package shared

import "sync"

// Busy is a saturating in-flight counter shared by network operations.
//
// The indicator is active whenever at least one operation holds it.
type Busy struct {
	mu       sync.Mutex
	count    int
	onChange func(active bool)
}

// NewBusy returns an idle indicator. onChange, when set, fires on every idle/active edge.
func NewBusy(onChange func(active bool)) *Busy {
	return &Busy{onChange: onChange}
}

// Begin marks one operation as in flight and returns its release function.
//
// Releasing more than once has no further effect.
func (b *Busy) Begin() (done func()) {
	if b == nil {
		return func() {}
	}

	b.mu.Lock()
	b.count++
	edge := b.count == 1
	b.mu.Unlock()
	if edge {
		b.notify(true)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.count > 0 {
				b.count--
			}
			edge := b.count == 0
			b.mu.Unlock()
			if edge {
				b.notify(false)
			}
		})
	}
}

// Active reports whether any operation is in flight.
func (b *Busy) Active() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count > 0
}

func (b *Busy) notify(active bool) {
	if b.onChange != nil {
		b.onChange(active)
	}
}
