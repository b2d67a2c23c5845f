// Package boundary implements the in-process "syscall" surface (spec
// component C9): one Go method per entrypoint group of the wire table
// in §6.2, wrapping manager.Manager and disksystem.Registry so a
// transport layer (cmd/ddmd/httpapi's gorilla/mux handlers, ddmctl,
// ddmtop) never reaches into the manager package directly.
//
// The wire table's roughly fifteen near-identical supports_*/
// validate_*/mutator triplets — one per editable aspect — collapse
// here into a handful of methods parameterized by disksystem.Operation
// instead of one Go method per aspect: the C ABI needed a flat
// function-pointer table because it has no sum type to dispatch on,
// but disksystem.Operation already is one, and Apply/ValidateEdit
// already take it as an argument.
package boundary

import (
	"fmt"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/job"
	"github.com/diskdevmgr/ddm/manager"
	"github.com/diskdevmgr/ddm/partition"
	"github.com/diskdevmgr/ddm/shadow"
)

// API is the boundary-facing wrapper around a single process-wide
// Manager and the disk-system Registry it shares with it.
type API struct {
	mgr      *manager.Manager
	registry *disksystem.Registry
}

// New returns an API bound to mgr and registry. registry must be the
// same one mgr was constructed with.
func New(mgr *manager.Manager, registry *disksystem.Registry) *API {
	return &API{mgr: mgr, registry: registry}
}

// ---- device enumeration & lookup ----

// DeviceCookie is the enumeration cursor returned by NewDeviceCookie
// and threaded through successive GetNextDiskDeviceID calls (spec's
// get_next_disk_device_id).
type DeviceCookie struct {
	ids []int32
	pos int
}

// NewDeviceCookie starts a fresh device enumeration over a stable
// snapshot of currently registered device ids.
func (a *API) NewDeviceCookie() *DeviceCookie {
	return &DeviceCookie{ids: a.mgr.DeviceIDs()}
}

// GetNextDiskDeviceID returns the next device id in cookie's
// enumeration, or ok=false once exhausted.
func (a *API) GetNextDiskDeviceID(cookie *DeviceCookie) (id int32, ok bool) {
	if cookie.pos >= len(cookie.ids) {
		return 0, false
	}
	id = cookie.ids[cookie.pos]
	cookie.pos++
	return id, true
}

// FindDiskDevice resolves a device's path to its id (spec's
// find_disk_device).
func (a *API) FindDiskDevice(path string) (int32, error) {
	return a.mgr.FindDeviceByPath(path)
}

// FindPartition resolves a devfs-equivalent path to the partition
// published under it (spec's find_partition).
func (a *API) FindPartition(path string) (int32, error) {
	id, ok := a.mgr.DevfsPath(path)
	if !ok {
		return 0, ddmerrors.New(ddmerrors.NotFound, "no partition published at %q", path)
	}
	return id, nil
}

// GetDiskDeviceData returns a mutation-safe snapshot of deviceID's
// tree (spec's get_disk_device_data): the physical tree, or its
// in-progress shadow when wantShadow is true. deviceOnly trims the
// snapshot down to the root record alone, without descendants.
func (a *API) GetDiskDeviceData(deviceID int32, deviceOnly, wantShadow bool) (*partition.Partition, error) {
	root, err := a.mgr.PartitionTree(deviceID, wantShadow)
	if err != nil {
		return nil, err
	}
	if deviceOnly {
		root.Children = nil
	}
	return root, nil
}

// GetPartitionableSpaces returns partitionID's free regions (spec's
// get_partitionable_spaces).
func (a *API) GetPartitionableSpaces(partitionID int32, counter int64) ([]disksystem.PartitionableSpace, error) {
	return a.mgr.PartitionableSpaces(partitionID, counter)
}

// ---- disk-system info ----

// DiskSystemInfo is the read-only description returned by the
// get_{next,}_disk_system_info/find_disk_system family.
type DiskSystemInfo struct {
	ID           int32
	Name         string
	PrettyName   string
	IsFileSystem bool
}

func (a *API) describe(id int32) (DiskSystemInfo, error) {
	sys, err := a.registry.Get(id)
	if err != nil {
		return DiskSystemInfo{}, err
	}
	return DiskSystemInfo{ID: id, Name: sys.Name(), PrettyName: sys.PrettyName(), IsFileSystem: sys.IsFileSystem()}, nil
}

// DiskSystemCookie is the enumeration cursor for
// GetNextDiskSystemInfo.
type DiskSystemCookie struct {
	ids []int32
	pos int
}

// NewDiskSystemCookie starts a fresh disk-system enumeration.
func (a *API) NewDiskSystemCookie() *DiskSystemCookie {
	return &DiskSystemCookie{ids: a.registry.List()}
}

// GetNextDiskSystemInfo returns the next registered disk system's
// info, or ok=false once exhausted.
func (a *API) GetNextDiskSystemInfo(cookie *DiskSystemCookie) (info DiskSystemInfo, ok bool, err error) {
	if cookie.pos >= len(cookie.ids) {
		return DiskSystemInfo{}, false, nil
	}
	id := cookie.ids[cookie.pos]
	cookie.pos++
	info, err = a.describe(id)
	return info, err == nil, err
}

// FindDiskSystem resolves a disk system by its registered Name.
func (a *API) FindDiskSystem(name string) (DiskSystemInfo, error) {
	id, err := a.registry.FindByName(name)
	if err != nil {
		return DiskSystemInfo{}, err
	}
	return a.describe(id)
}

// ---- supports_* / get_next_supported_type / get_type_for_content_type ----

// Supports reports whether partitionID's bound disk system implements
// op, and whether op may run while the partition is mounted. A
// partition with no disk system bound reports supported=false.
func (a *API) Supports(partitionID int32, op disksystem.Operation) (supported, whileMounted bool, err error) {
	p, err := a.mgr.Partition(partitionID)
	if err != nil {
		return false, false, err
	}
	if p.DiskSystemID == -1 {
		return false, false, nil
	}
	sys, err := a.registry.Get(p.DiskSystemID)
	if err != nil {
		return false, false, err
	}
	supported, whileMounted = sys.Supports(op)
	return supported, whileMounted, nil
}

// GetNextSupportedPartitionType enumerates the partition types
// partitionID's disk system can create a child as.
func (a *API) GetNextSupportedPartitionType(partitionID int32, cookie *int) (typ string, ok bool, err error) {
	p, err := a.mgr.Partition(partitionID)
	if err != nil {
		return "", false, err
	}
	if p.DiskSystemID == -1 {
		return "", false, nil
	}
	sys, err := a.registry.Get(p.DiskSystemID)
	if err != nil {
		return "", false, err
	}
	typ, ok = sys.GetNextSupportedType(cookie)
	return typ, ok, nil
}

// GetPartitionTypeForContentType asks diskSystemID what structural
// partition type it expects for a child carrying contentType.
func (a *API) GetPartitionTypeForContentType(diskSystemID int32, contentType string) (typ string, ok bool, err error) {
	sys, err := a.registry.Get(diskSystemID)
	if err != nil {
		return "", false, err
	}
	typ, ok = sys.GetTypeForContentType(contentType)
	return typ, ok, nil
}

// ---- shadow lifecycle ----

// PrepareDiskDeviceModifications starts a new shadow team against
// deviceID.
func (a *API) PrepareDiskDeviceModifications(deviceID int32) (teamID int64, err error) {
	return a.mgr.PrepareModifications(deviceID)
}

// CommitDiskDeviceModifications hands teamID's shadow tree to the job
// engine and starts execution; progress is reported through sink (a
// nil sink discards it, and the HTTP daemon passes nil).
func (a *API) CommitDiskDeviceModifications(deviceID int32, teamID int64, sink job.ProgressSink) error {
	return a.mgr.CommitModifications(deviceID, teamID, sink)
}

// CancelDiskDeviceModifications discards teamID's shadow tree.
func (a *API) CancelDiskDeviceModifications(teamID int64) error {
	return a.mgr.CancelModifications(teamID)
}

// IsDiskDeviceModified reports whether deviceID currently hosts an
// in-progress shadow.
func (a *API) IsDiskDeviceModified(deviceID int32) (bool, error) {
	return a.mgr.IsDeviceModified(deviceID)
}

// ---- validators & typed mutators ----

// ValidateEdit asks the disk system responsible for op whether params
// are admissible against nodeID, without touching the shadow (spec's
// validate_* family). The disk system may clamp params in place.
func (a *API) ValidateEdit(teamID int64, nodeID int32, op disksystem.Operation, params *disksystem.Params) error {
	return a.mgr.ValidateEdit(teamID, nodeID, op, params)
}

// ApplyEdit is the generic typed-mutator entrypoint every named
// convenience method below builds on: it runs mutate against nodeID
// within team teamID after checking counter.
func (a *API) ApplyEdit(teamID int64, nodeID int32, counter int64, op disksystem.Operation, mutate shadow.Mutator) error {
	return a.mgr.ApplyEdit(teamID, nodeID, counter, op, mutate)
}

// SetPartitionName stages a rename of nodeID.
func (a *API) SetPartitionName(teamID int64, nodeID int32, counter int64, name string) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpSetName, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.Name = name
		return partition.ChangeName, nil
	})
}

// SetPartitionType stages a retyping of nodeID.
func (a *API) SetPartitionType(teamID int64, nodeID int32, counter int64, typ string) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpSetType, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.Type = typ
		return partition.ChangeType, nil
	})
}

// SetPartitionParameters stages a structural-parameter change.
func (a *API) SetPartitionParameters(teamID int64, nodeID int32, counter int64, params string) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpSetParameters, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.Parameters = params
		return partition.ChangeParameters, nil
	})
}

// SetContentName stages a rename of nodeID's content (e.g. a
// filesystem label).
func (a *API) SetContentName(teamID int64, nodeID int32, counter int64, name string) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpSetContentName, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.ContentName = name
		return partition.ChangeContentName, nil
	})
}

// SetContentParameters stages a content-parameter change.
func (a *API) SetContentParameters(teamID int64, nodeID int32, counter int64, params string) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpSetContentParameters, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.ContentParameters = params
		return partition.ChangeContentParameters, nil
	})
}

// ResizePartition stages a size change of nodeID's own structural
// extent; resizing nodeID's content instead is ResizeContent.
func (a *API) ResizePartition(teamID int64, nodeID int32, counter int64, size int64) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpResizeChild, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.Size = size
		return partition.ChangeSize, nil
	})
}

// ResizeContent stages a size change of nodeID's content only, leaving
// its structural extent untouched (job.Generate's "resize content of
// p to N" half of a shrink pair).
func (a *API) ResizeContent(teamID int64, nodeID int32, counter int64, size int64) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpResize, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.ContentSize = size
		return partition.ChangeContentSize, nil
	})
}

// MovePartition stages an offset change of nodeID.
func (a *API) MovePartition(teamID int64, nodeID int32, counter int64, offset int64) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpMove, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.Offset = offset
		return partition.ChangeOffset, nil
	})
}

// CreateChildPartition stages a new child of parentID, returning the
// shadow id assigned to it so later edits in the same team (a rename,
// an initialize) can address it before commit — it has no physical
// counterpart yet.
func (a *API) CreateChildPartition(teamID int64, parentID int32, counter int64, offset, size int64, typ, parameters string) (childID int32, err error) {
	err = a.ApplyEdit(teamID, parentID, counter, disksystem.OpCreateChild, func(p *partition.Partition) (partition.ChangeFlags, error) {
		child := partition.New(a.mgr.AllocatePartitionID(), partition.KindShadow)
		child.OriginID = -1
		child.Offset, child.Size = offset, size
		child.Type, child.Parameters = typ, parameters
		if err := p.AddChild(child, -1); err != nil {
			return 0, err
		}
		childID = child.ID
		return partition.ChangeChildren, nil
	})
	return childID, err
}

// DeletePartition stages removal of the child at childIndex under
// parentID (spec's delete_partition acts on the parent, since removal
// is recorded as a structural change to its children).
func (a *API) DeletePartition(teamID int64, parentID int32, counter int64, childIndex int) error {
	return a.ApplyEdit(teamID, parentID, counter, disksystem.OpDeleteChild, func(p *partition.Partition) (partition.ChangeFlags, error) {
		if _, err := p.RemoveChildAt(childIndex); err != nil {
			return 0, err
		}
		return partition.ChangeChildren, nil
	})
}

// InitializePartition stages formatting nodeID with content type typ
// (spec's initialize_partition); its content disk system is bound by
// job generation and execution, not here, since the module hasn't run
// identify against real media yet.
func (a *API) InitializePartition(teamID int64, nodeID int32, counter int64, contentType, contentName, contentParameters string) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpInitialize, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.ContentType = contentType
		p.ContentName = contentName
		p.ContentParameters = contentParameters
		return partition.ChangeContentType | partition.ChangeInitialization, nil
	})
}

// UninitializePartition stages wiping nodeID's content back to an
// empty, uninitialized state.
func (a *API) UninitializePartition(teamID int64, nodeID int32, counter int64) error {
	return a.ApplyEdit(teamID, nodeID, counter, disksystem.OpInitialize, func(p *partition.Partition) (partition.ChangeFlags, error) {
		p.UninitializeContents()
		return 0, nil
	})
}

// ---- ad-hoc jobs (no tracked attribute for the shadow diff to find) ----

// DefragmentPartition submits a one-job queue defragmenting
// partitionID's content in place.
func (a *API) DefragmentPartition(deviceID, partitionID int32, sink job.ProgressSink) (queueID int64, err error) {
	j := &job.Job{
		Kind:        job.TypeDefragment,
		PartitionID: partitionID,
		Description: fmt.Sprintf("defragment %d", partitionID),
		Interrupt:   job.InterruptProperties{CanCancel: true},
	}
	return a.mgr.RunImmediateJob(deviceID, j, sink)
}

// RepairPartition submits a one-job queue checking (or fixing, when
// checkOnly is false) partitionID's content.
func (a *API) RepairPartition(deviceID, partitionID int32, checkOnly bool, sink job.ProgressSink) (queueID int64, err error) {
	j := &job.Job{
		Kind:        job.TypeRepair,
		PartitionID: partitionID,
		CheckOnly:   checkOnly,
		Description: fmt.Sprintf("repair %d (check_only=%v)", partitionID, checkOnly),
		Interrupt:   job.InterruptProperties{CanCancel: true},
	}
	return a.mgr.RunImmediateJob(deviceID, j, sink)
}

// ---- job introspection ----

// GetDiskDeviceJobInfo returns the job list of the queue started by
// CommitDiskDeviceModifications or an ad-hoc RunImmediateJob call,
// identified by the same id (team id, or the id RunImmediateJob
// returned).
func (a *API) GetDiskDeviceJobInfo(queueID int64) ([]*job.Job, error) {
	q, err := a.mgr.Queue(queueID)
	if err != nil {
		return nil, err
	}
	return q.Jobs(), nil
}

// GetDiskDeviceJobProgressInfo reports the queue's overall status.
func (a *API) GetDiskDeviceJobProgressInfo(queueID int64) (job.QueueStatus, error) {
	q, err := a.mgr.Queue(queueID)
	if err != nil {
		return 0, err
	}
	return q.Status(), nil
}

// PauseDiskDeviceJob asks the queue's worker to stop after the
// currently active job completes.
func (a *API) PauseDiskDeviceJob(queueID int64) error {
	q, err := a.mgr.Queue(queueID)
	if err != nil {
		return err
	}
	q.Pause()
	return nil
}

// ContinueDiskDeviceJob releases a previously paused queue.
func (a *API) ContinueDiskDeviceJob(queueID int64) error {
	q, err := a.mgr.Queue(queueID)
	if err != nil {
		return err
	}
	q.Continue()
	return nil
}

// CancelDiskDeviceJob requests cancellation of queueID, optionally
// reversing already-succeeded jobs.
func (a *API) CancelDiskDeviceJob(queueID int64, reverse bool) error {
	q, err := a.mgr.Queue(queueID)
	if err != nil {
		return err
	}
	return q.Cancel(reverse)
}

// ---- file-backed devices ----

// RegisterFileDevice registers a file-backed disk image as a device.
func (a *API) RegisterFileDevice(path string) (int32, error) {
	return a.mgr.RegisterFileDevice(path)
}

// UnregisterFileDevice unregisters a previously registered file-backed
// device.
func (a *API) UnregisterFileDevice(id int32) error {
	return a.mgr.UnregisterFileDevice(id)
}

// ---- devfs publication (not in the wire table, but needed by every
// transport that wants to react to a republish) ----

// PublishDevice (re)publishes device id's tree to the devfs-equivalent
// namespace.
func (a *API) PublishDevice(id int32) error { return a.mgr.PublishDevice(id) }

// UnpublishDevice removes device id's devfs entries.
func (a *API) UnpublishDevice(id int32) error { return a.mgr.UnpublishDevice(id) }

// RepublishDevice recomputes device id's devfs paths after a sibling
// reindex.
func (a *API) RepublishDevice(id int32) error { return a.mgr.RepublishDevice(id) }

// CreateDiskDevice registers path as a new device, scanning it
// immediately.
func (a *API) CreateDiskDevice(path string) (id int32, created bool, err error) {
	return a.mgr.CreateDevice(path)
}

// DeleteDiskDevice unregisters device id.
func (a *API) DeleteDiskDevice(id int32) error { return a.mgr.DeleteDevice(id) }
