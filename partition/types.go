// Package partition implements the partition tree data model (spec
// components C2/C3): the Partition node type shared by physical and
// shadow trees, its invariants, and the operations that mutate it
// while keeping change-tracking and devfs naming consistent.
package partition

// Kind distinguishes a node's role instead of a class hierarchy: the
// same Partition struct backs both variants, carrying only the fields
// relevant to its Kind.
type Kind int

const (
	// KindPhysical is a partition that corresponds to on-disk reality.
	KindPhysical Kind = iota
	// KindShadow is a staging twin used to compose edits.
	KindShadow
)

func (k Kind) String() string {
	if k == KindShadow {
		return "shadow"
	}
	return "physical"
}

// Status is a partition's scan/content state.
type Status int

const (
	StatusUninitialized Status = iota
	StatusPartiallyScanned
	StatusValid
	StatusCorrupt
	StatusUnrecognized
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusPartiallyScanned:
		return "partially-scanned"
	case StatusValid:
		return "valid"
	case StatusCorrupt:
		return "corrupt"
	case StatusUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// Flags is the partition attribute bitset (spec §3).
type Flags uint32

const (
	FlagBusy Flags = 1 << iota
	FlagDescendantBusy
	FlagReadOnly
	FlagMounted
	FlagFileSystem
	FlagPartitioningSystem
	FlagIsDevice
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// ChangeFlags records which attributes moved since the last commit
// (spec §3, §4.5); ShadowPartition uses the clear bits to decide
// whether to keep mirroring its physical origin.
type ChangeFlags uint32

const (
	ChangeOffset ChangeFlags = 1 << iota
	ChangeSize
	ChangeContentSize
	ChangeBlockSize
	ChangeName
	ChangeType
	ChangeParameters
	ChangeContentName
	ChangeContentType
	ChangeContentParameters
	ChangeStatus
	ChangeFlagsBit
	ChangeInitialization
	ChangeChildren
	ChangeVolume
	ChangeMedia
	ChangeRenamePending
)

func (c ChangeFlags) Has(bit ChangeFlags) bool { return c&bit != 0 }

// VisitResult controls descendant traversal: VisitContinue keeps
// visiting, VisitStop terminates the walk at the current node.
type VisitResult int

const (
	VisitContinue VisitResult = iota
	VisitStop
)

// Visitor is called for every descendant in pre-order, with an
// optional post-order callback invoked on the way back up.
type Visitor struct {
	Pre  func(p *Partition) VisitResult
	Post func(p *Partition)
}
