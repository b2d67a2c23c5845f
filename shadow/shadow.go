// Package shadow implements the staging mechanism a team uses to
// compose a batch of partition edits before committing them to the job
// engine (spec component C7): prepare/cancel/commit of a device's
// shadow tree, and the per-edit validate-then-apply-then-bump-counter
// flow every syscall in §6 follows.
package shadow

import (
	"context"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/device"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

// Team owns the shadow tree staged against a single device. A device
// hosts at most one shadow at a time (device.ShadowTeamID), and only
// the owning team may submit edits against it.
type Team struct {
	ID     int64
	Device *device.DiskDevice
	Root   *partition.Partition
}

// Prepare requires the caller to already hold device's write lock and
// that no shadow currently exists for it; it clones the device's
// entire physical tree into a ShadowPartition mirror owned by teamID,
// with every node's change_flags empty.
func Prepare(dev *device.DiskDevice, teamID int64, nextID func() int32) (*Team, error) {
	if dev.HasShadow() {
		return nil, ddmerrors.New(ddmerrors.Busy, "device %d already has a shadow in progress", dev.ID)
	}

	root := dev.Clone(nextID, true)
	dev.ShadowTeamID = teamID

	return &Team{ID: teamID, Device: dev, Root: root}, nil
}

// Cancel discards team's shadow tree without touching the physical
// tree, marking every shadow node obsolete and releasing the device's
// shadow slot.
func Cancel(team *Team) error {
	if err := team.own(); err != nil {
		return err
	}

	team.Root.VisitEachDescendant(partition.Visitor{
		Post: func(n *partition.Partition) {
			n.MarkObsolete()
		},
	})
	team.Device.ShadowTeamID = -1

	return nil
}

// Commit hands team's shadow tree over for job generation. The caller
// is responsible for invoking Finish once the resulting job queue has
// been scheduled successfully — the shadow is consumed either way, so
// a generation failure still requires Finish before the team can
// prepare again.
func Commit(team *Team) (*partition.Partition, error) {
	if err := team.own(); err != nil {
		return nil, err
	}
	return team.Root, nil
}

// Finish releases team's claim on the device's shadow slot, whether or
// not job generation from Commit's tree ultimately succeeded.
func Finish(team *Team) error {
	if err := team.own(); err != nil {
		return err
	}
	team.Device.ShadowTeamID = -1
	return nil
}

// Resolve locates a node within the shadow tree addressable by either
// its own shadow id (a node created earlier in this same team, which
// has no physical counterpart) or the physical origin id it mirrors —
// callers otherwise have no way to name a node they only know by its
// pre-edit physical id, since Clone gives every shadow node a fresh id
// of its own (spec §4.2's create_shadow_partition). Exported so the
// boundary layer can resolve a node for validate_* calls, which act on
// the shadow but outside Apply's own edit flow.
func (t *Team) Resolve(id int32) *partition.Partition {
	if n := t.Root.Find(id); n != nil {
		return n
	}

	var found *partition.Partition
	t.Root.VisitEachDescendant(partition.Visitor{Pre: func(n *partition.Partition) partition.VisitResult {
		if n.OriginID == id {
			found = n
			return partition.VisitStop
		}
		return partition.VisitContinue
	}})
	return found
}

func (t *Team) own() error {
	if t.Device.ShadowTeamID != t.ID {
		return ddmerrors.New(ddmerrors.BadValue, "team %d does not own device %d's shadow", t.ID, t.Device.ID)
	}
	return nil
}

// Invalidate discards team's shadow unconditionally — used by the
// media-change path (spec §9: a device losing its media immediately
// cancels any in-flight shadow rather than waiting on the owning
// team). Unlike Cancel, it does not error if ownership already looks
// inconsistent, since the device tree itself is about to be reset.
func Invalidate(team *Team) {
	team.Root.VisitEachDescendant(partition.Visitor{
		Post: func(n *partition.Partition) {
			n.MarkObsolete()
		},
	})
	team.Device.ShadowTeamID = -1
}

// Mutator computes the change produced by one edit syscall against a
// located shadow node, returning the ChangeFlags bits the edit sets.
// It must not mutate node until it is certain to succeed: a returned
// error leaves node untouched, per §7's "validation errors ... do not
// modify the shadow" rule.
type Mutator func(node *partition.Partition) (partition.ChangeFlags, error)

// Apply locates the shadow node named by nodeID within team's tree,
// checks its presented change counter, runs mutate, bumps the node's
// counter and change_flags, and — if the node carries content — calls
// ShadowPartitionChanged on its disk system so the plugin can rescue
// any implicit side effect (move/resize propagating to content). A
// ShadowPartitionChanged failure is logged but does not roll back the
// edit: its purpose is best-effort side-effect bookkeeping, not
// validation (validation already happened via the disk system's
// Validate call before Apply is ever invoked).
func Apply(ctx context.Context, team *Team, registry *disksystem.Registry, nodeID int32, counter int64, op disksystem.Operation, mutate Mutator) error {
	if err := team.own(); err != nil {
		return err
	}

	node := team.Resolve(nodeID)
	if node == nil {
		return ddmerrors.New(ddmerrors.NotFound, "no shadow partition with id %d", nodeID)
	}
	if err := node.CheckCounter(counter); err != nil {
		return err
	}

	flags, err := mutate(node)
	if err != nil {
		return err
	}
	node.Changed(flags)

	if node.DiskSystemID != -1 {
		sys, err := registry.Get(node.DiskSystemID)
		if err != nil {
			ddmlog.Warning("shadow: disk system %d vanished for partition %d: %v", node.DiskSystemID, node.ID, err)
			return nil
		}
		if err := sys.ShadowPartitionChanged(ctx, op, node); err != nil {
			ddmlog.Warning("shadow: %s rescue failed for partition %d: %v", op, node.ID, err)
		}
	}

	return nil
}
