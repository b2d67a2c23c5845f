package partition

import (
	"sync/atomic"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

// Partition is a node in the partition tree (spec C2/C3). The Kind tag
// replaces the source's KPartition/KPhysicalPartition/KShadowPartition
// inheritance chain: every field that only makes sense for one variant
// is documented as such below, but lives on the one shared struct.
type Partition struct {
	ID   int32
	Kind Kind

	// DeviceID is the id of the owning DiskDevice root; weak, resolved
	// through the manager's id map rather than a strong pointer, per
	// the redesign note on cyclic references.
	DeviceID int32

	// Parent is the owning back-reference; nil for a device root. It
	// is conceptually weak (spec §9) but kept as a direct pointer here
	// since both ends live in the same address space and the manager
	// remains the sole authority over deletion via lock.Registrar.
	Parent   *Partition
	Children []*Partition

	Offset      int64
	Size        int64
	ContentSize int64
	BlockSize   int32
	Index       int

	Status Status
	Flags  Flags

	Name, Type, Parameters                         string
	ContentName, ContentType, ContentParameters    string

	// DiskSystemID is the owning content disk system, -1 if none.
	DiskSystemID int32

	Cookie        any
	ContentCookie any

	VolumeID    int32
	MountCookie any

	ChangeFlags   ChangeFlags
	ChangeCounter int64

	obsolete bool
	refCount int64

	// OriginID is only meaningful for Kind == KindShadow: the
	// physical partition this shadow was cloned from, weak by id.
	OriginID int32
}

// New returns a Partition of the given kind with sane zero values
// (no disk system, empty name/type, counter at zero).
func New(id int32, kind Kind) *Partition {
	return &Partition{
		ID:           id,
		Kind:         kind,
		DiskSystemID: -1,
		VolumeID:     -1,
		OriginID:     -1,
		Status:       StatusUninitialized,
	}
}

// GetID satisfies lock.Registrant.
func (p *Partition) GetID() int32 { return p.ID }

// IsObsolete satisfies lock.Registrant.
func (p *Partition) IsObsolete() bool { return p.obsolete }

// MarkObsolete flags the partition for deferred deletion (invariant 9):
// actual removal happens only once its reference count reaches zero.
func (p *Partition) MarkObsolete() { p.obsolete = true }

// RefCount returns the current reference count, for diagnostics.
func (p *Partition) RefCount() int64 { return atomic.LoadInt64(&p.refCount) }

// Acquire increments the reference count.
func (p *Partition) Acquire() { atomic.AddInt64(&p.refCount, 1) }

// Release decrements the reference count and reports whether the
// partition is now both obsolete and unreferenced (deletable).
func (p *Partition) Release() bool {
	n := atomic.AddInt64(&p.refCount, -1)
	if n < 0 {
		panic("partition: Release called more times than Acquire")
	}
	return n == 0 && p.obsolete
}

// Changed bumps the change counter, ORs the given bits into
// ChangeFlags, and propagates ChangeChildren upward so every ancestor
// knows a descendant moved (spec §4.2's "propagates descendant-changed
// upward").
func (p *Partition) Changed(flags ChangeFlags) {
	p.ChangeCounter++
	p.ChangeFlags |= flags

	for anc := p.Parent; anc != nil; anc = anc.Parent {
		if anc.ChangeFlags.Has(ChangeChildren) {
			break
		}
		anc.ChangeFlags |= ChangeChildren
	}
}

// CheckCounter validates a caller-presented change counter against the
// live value (invariant 7 / spec §4.8's optimistic concurrency rule).
func (p *Partition) CheckCounter(counter int64) error {
	if counter != p.ChangeCounter {
		return ddmerrors.New(ddmerrors.BadValue,
			"stale change counter for partition %d: have %d, got %d", p.ID, p.ChangeCounter, counter)
	}
	return nil
}

// Busy reports whether the partition is marked busy or has a busy
// descendant.
func (p *Partition) Busy() bool {
	return p.Flags.Has(FlagBusy) || p.Flags.Has(FlagDescendantBusy)
}

// SetBusy sets or clears FlagBusy on p and FlagDescendantBusy on every
// ancestor (invariant 5).
func (p *Partition) SetBusy(busy bool) {
	if busy == p.Flags.Has(FlagBusy) {
		return
	}
	if busy {
		p.Flags |= FlagBusy
	} else {
		p.Flags &^= FlagBusy
	}
	for anc := p.Parent; anc != nil; anc = anc.Parent {
		if busy {
			anc.Flags |= FlagDescendantBusy
			continue
		}
		if !anyChildBusy(anc) {
			anc.Flags &^= FlagDescendantBusy
		}
	}
}

func anyChildBusy(p *Partition) bool {
	for _, c := range p.Children {
		if c.Flags.Has(FlagBusy) || c.Flags.Has(FlagDescendantBusy) {
			return true
		}
	}
	return false
}

// HasContent reports whether the partition carries content recognised
// by a disk system (invariant 4, the "xor children" role).
func (p *Partition) HasContent() bool {
	return p.DiskSystemID != -1
}
