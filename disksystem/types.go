// Package disksystem defines the pluggable DiskSystem module contract
// (spec component C5): identify/scan/validate/execute operations over
// a fixed capability set, plus the refcounted module registry the
// manager consults during rescans.
package disksystem

import (
	"context"

	"github.com/diskdevmgr/ddm/partition"
)

// Operation names one editable aspect a DiskSystem may support,
// validate, and execute. It replaces the source's one-function-pointer-
// per-aspect module record with a single dispatch axis, matching the
// "polymorphic over the capability set" description in spec §4.4.
type Operation int

const (
	OpResize Operation = iota
	OpResizeChild
	OpMove
	OpMoveChild
	OpSetName
	OpSetContentName
	OpSetType
	OpSetParameters
	OpSetContentParameters
	OpCreateChild
	OpDeleteChild
	OpInitialize
	OpInitializeChild
	OpDefragment
	OpRepair
)

func (o Operation) String() string {
	names := [...]string{
		"resize", "resize_child", "move", "move_child",
		"set_name", "set_content_name", "set_type",
		"set_parameters", "set_content_parameters",
		"create_child", "delete_child", "initialize", "initialize_child",
		"defragment", "repair",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "unknown"
}

// Params is the generic parameter bag passed to Validate/Execute; only
// the fields relevant to the given Operation are interpreted, mirroring
// how each `validate_*`/write entrypoint in spec §4.4/§6.1 has its own
// narrow argument list in the source.
type Params struct {
	Offset     int64
	Size       int64
	ChildIndex int

	Name              string
	Type              string
	Parameters        string
	ContentName       string
	ContentParameters string

	CheckOnly bool

	// NewID is the id a create_child executor must assign to the
	// physical child it creates. It is always the id already held by
	// the shadow node the CreateChild job was generated from, so the
	// Initialize/Set* jobs that follow in the same queue — which carry
	// that same id as their target — resolve against the right node.
	NewID int32
}

// PartitionableSpace is a contiguous free region where a new child
// could be placed (glossary: "Partitionable space").
type PartitionableSpace struct {
	Offset int64
	Size   int64
}

// JobContext is the narrow slice of job-progress reporting a plugin
// needs during Execute; defined here (rather than imported from job)
// to keep disksystem free of a dependency on the job engine.
type JobContext interface {
	Progress(fraction float64)
	Logf(format string, args ...interface{})

	// AllocateID mints a fresh partition id from the manager's global
	// counter, for CreateChild executors that need to hand a new
	// physical node an id before attaching it to the tree.
	AllocateID() int32
}

// DiskSystem is the module contract every partitioning-system or
// file-system plugin implements (spec §4.4, §6.1).
type DiskSystem interface {
	// Name is the module path (spec's DiskSystem.name), PrettyName the
	// human label.
	Name() string
	PrettyName() string
	IsFileSystem() bool

	// Identify returns a priority in [-1, 1] (-1 = no match, higher is
	// better) and an opaque cookie to be handed back to Scan.
	Identify(ctx context.Context, p *partition.Partition, devicePath string) (priority float64, cookie any, err error)
	// Scan populates p's children using the cookie Identify returned.
	// allocateID mints fresh partition ids from the manager's global
	// counter, so newly discovered children never collide with ids
	// assigned elsewhere in the tree.
	Scan(ctx context.Context, p *partition.Partition, cookie any, allocateID func() int32) error

	FreeIdentifyCookie(cookie any)
	FreeCookie(p *partition.Partition)
	FreeContentCookie(p *partition.Partition)

	// Supports reports whether op is implemented, and whether it may
	// run while the partition is mounted.
	Supports(op Operation) (supported bool, whileMounted bool)
	IsSubSystemFor(p *partition.Partition) bool

	// Validate may clamp/snap params to the nearest admissible value;
	// callers compare input vs. output when exactness matters.
	Validate(ctx context.Context, op Operation, p *partition.Partition, params *Params) error
	// Execute performs the write; it must re-validate params against
	// the current state rather than trust a prior Validate call (spec
	// §4.4's ordering rule).
	Execute(ctx context.Context, op Operation, p *partition.Partition, params *Params, jc JobContext) error

	// ShadowPartitionChanged is called against a shadow node's content
	// disk system immediately after an edit has been applied, so the
	// plugin can rescue implicit side effects a bare attribute change
	// would otherwise miss (moving a partition moves its content along;
	// shrinking one shrinks its content size). Unlike Validate/Execute
	// this never touches real media: p is always a KindShadow node.
	ShadowPartitionChanged(ctx context.Context, op Operation, p *partition.Partition) error

	GetNextSupportedType(cookie *int) (typ string, ok bool)
	GetTypeForContentType(contentType string) (typ string, ok bool)

	// GetPartitionableSpaces returns implemented=false when the plugin
	// does not provide one, so the manager falls back to its generic
	// gap-scan algorithm (spec §6.1).
	GetPartitionableSpaces(p *partition.Partition) (spaces []PartitionableSpace, implemented bool, err error)
}
