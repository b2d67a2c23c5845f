package lock

import "sync/atomic"

// Reclaimer is notified when a registered object's reference count
// drops to zero while it is marked obsolete, so the manager can reap
// it. It is supplied by whatever owns the map the object lives in
// (manager.Manager for partitions and devices).
type Reclaimer interface {
	Reclaim(id int32)
}

// Registrant is anything the Registrar can hold a reference to: an id
// for reclaim bookkeeping, and an obsolete flag the registrar consults
// when its count reaches zero.
type Registrant interface {
	GetID() int32
	IsObsolete() bool
}

// Registrar is a reference count on a Registrant. Acquire returns one;
// Release drops it. When the count reaches zero and the registrant is
// marked obsolete, the configured Reclaimer is invoked so the manager
// can delete it. Locking and registration are orthogonal: holding a
// lock on an object does not by itself hold a reference to it.
type Registrar struct {
	target    Registrant
	reclaimer Reclaimer
	count     int64
}

// NewRegistrar creates a Registrar over target with an initial
// reference count of zero; every accessor must call Acquire.
func NewRegistrar(target Registrant, reclaimer Reclaimer) *Registrar {
	return &Registrar{target: target, reclaimer: reclaimer}
}

// Acquire increments the reference count and returns a Handle whose
// Release must be called exactly once.
func (r *Registrar) Acquire() *Handle {
	atomic.AddInt64(&r.count, 1)
	return &Handle{registrar: r}
}

// Count returns the current reference count, for diagnostics and tests.
func (r *Registrar) Count() int64 {
	return atomic.LoadInt64(&r.count)
}

func (r *Registrar) release() {
	n := atomic.AddInt64(&r.count, -1)
	if n < 0 {
		panic("lock: Registrar released more times than acquired")
	}
	if n == 0 && r.target.IsObsolete() && r.reclaimer != nil {
		r.reclaimer.Reclaim(r.target.GetID())
	}
}

// Handle is a single scoped reference acquired from a Registrar.
// Release drops the reference on its first call; later calls on the
// same Handle do nothing, so one Handle never releases twice.
type Handle struct {
	registrar *Registrar
	released  bool
}

// Release drops the reference this handle represents.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.registrar.release()
}
