// Package job implements the job engine (spec component C8): it
// compares a committed shadow tree against the live physical tree to
// generate an ordered JobQueue, then executes that queue on a worker
// goroutine with pause/cancel/reverse support.
package job

import "fmt"

// Type names one of the fourteen job kinds a queue can run. Generate
// emits all of them except TypeDefragment, TypeRepair and
// TypeScanPartition.
type Type int

const (
	TypeResize Type = iota
	TypeMove
	TypeCreateChild
	TypeDeleteChild
	TypeSetName
	TypeSetContentName
	TypeSetType
	TypeSetParameters
	TypeSetContentParameters
	TypeInitialize
	TypeUninitialize
	TypeDefragment
	TypeRepair
	TypeScanPartition
)

func (t Type) String() string {
	names := [...]string{
		"resize", "move", "create_child", "delete_child",
		"set_name", "set_content_name", "set_type", "set_parameters",
		"set_content_parameters", "initialize", "uninitialize",
		"defragment", "repair", "scan_partition",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// Status is a job's lifecycle state within its queue.
type Status int

const (
	StatusPending Status = iota
	StatusScheduled
	StatusInProgress
	StatusSucceeded
	StatusFailed
	StatusCanceled
)

func (s Status) String() string {
	names := [...]string{
		"pending", "scheduled", "in_progress", "succeeded", "failed", "canceled",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// InterruptProperties declares what the worker may do to a job that is
// currently active when cancel is requested.
type InterruptProperties struct {
	CanCancel       bool
	ReverseOnCancel bool
}

// Job is one unit of work in a generated queue.
type Job struct {
	Kind        Type
	PartitionID int32
	ScopeID     int32
	Description string

	ErrorMessage string

	TaskCount      int
	CompletedCount int
	Progress       float64

	Interrupt InterruptProperties
	Status    Status

	// ContentOnly distinguishes a TypeResize job the queue runs as
	// OpResize (true) from one it runs as OpResizeChild (false); both
	// are dispatched to the resized node's own disk system, not its
	// parent's — see scenario 2's "Resize content of p1" vs "Resize
	// p1" pair.
	ContentOnly bool

	Name, PartType, Parameters, ContentName, ContentParameters string
	Offset, Size                                               int64

	// CheckOnly distinguishes a verify-only TypeRepair job from one
	// that may write a fix.
	CheckOnly bool

	// MoveContentIDs lists descendant partition ids whose content must
	// be relocated along with a Move job's bytes.
	MoveContentIDs []int32

	// reversed is set by the worker once a job's inverse has succeeded
	// during a reverse-on-cancel pass.
	reversed bool
}

func (j *Job) String() string {
	return fmt.Sprintf("%s(partition=%d, scope=%d): %s", j.Kind, j.PartitionID, j.ScopeID, j.Description)
}
