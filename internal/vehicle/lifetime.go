package vehicle

import "sync/atomic"

// Lifetime tracks which generation of the controlled vehicle currently exists.
// Generation 0 means no vehicle.
type Lifetime struct {
	current atomic.Uint64
	next    atomic.Uint64
}

func NewLifetime() *Lifetime {
	return &Lifetime{}
}

// Spawn starts a new generation, invalidating handles from earlier ones.
func (l *Lifetime) Spawn() Handle {
	gen := l.next.Add(1)
	l.current.Store(gen)
	return Handle{gen: gen, owner: l}
}

func (l *Lifetime) Destroy() {
	l.current.Store(0)
}

func (l *Lifetime) Current() Handle {
	return Handle{gen: l.current.Load(), owner: l}
}

func (l *Lifetime) Alive() bool {
	return l.current.Load() != 0
}

// Handle is a weak reference to one vehicle generation. It is cheap to copy
// and safe to check from any goroutine.
type Handle struct {
	gen   uint64
	owner *Lifetime
}

func (h Handle) Generation() uint64 {
	return h.gen
}

func (h Handle) Alive() bool {
	if h.owner == nil || h.gen == 0 {
		return false
	}
	return h.owner.current.Load() == h.gen
}
