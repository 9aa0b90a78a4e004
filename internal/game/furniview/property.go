package furniview

// Property is an observable value. Subscribers run synchronously whenever the
// value changes; setting an equal value notifies no one.
type Property[T comparable] struct {
	value T
	subs  []func(T)
}

// Get returns the current value.
func (p *Property[T]) Get() T { return p.value }

// Subscribe appends fn to the change subscribers.
func (p *Property[T]) Subscribe(fn func(T)) {
	p.subs = append(p.subs, fn)
}

func (p *Property[T]) set(v T) bool {
	if v == p.value {
		return false
	}
	p.value = v
	for _, fn := range p.subs {
		fn(v)
	}
	return true
}
