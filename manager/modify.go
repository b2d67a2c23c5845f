package manager

import (
	"context"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/device"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/job"
	"github.com/diskdevmgr/ddm/partition"
	"github.com/diskdevmgr/ddm/shadow"
)

// PrepareModifications starts a new shadow team against device id
// (spec §6.2's prepare_disk_device_modifications), refusing Busy if
// one is already in progress.
func (m *Manager) PrepareModifications(deviceID int32) (teamID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := m.deviceLocked(deviceID)
	if err != nil {
		return 0, err
	}

	owner := m.newOwner()
	dev.Lock.WriteLock(owner)
	defer dev.Lock.WriteUnlock()

	teamID = m.nextTeamID.Add(1)
	team, err := shadow.Prepare(dev, teamID, func() int32 { return m.AllocatePartitionID() })
	if err != nil {
		return 0, err
	}

	m.teams[teamID] = team
	return teamID, nil
}

// CancelModifications discards team teamID's shadow tree without
// touching the physical tree.
func (m *Manager) CancelModifications(teamID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	team, ok := m.teams[teamID]
	if !ok {
		return ddmerrors.New(ddmerrors.NotFound, "no shadow team %d", teamID)
	}

	owner := m.newOwner()
	team.Device.Lock.WriteLock(owner)
	defer team.Device.Lock.WriteUnlock()

	if err := shadow.Cancel(team); err != nil {
		return err
	}
	delete(m.teams, teamID)
	return nil
}

// ApplyEdit locates the shadow node named by nodeID within team
// teamID's tree, checks its presented change counter, runs mutate,
// and dispatches ShadowPartitionChanged to its content disk system —
// the boundary layer's single chokepoint for every typed mutator in
// spec §6.2 (set_partition_name, resize_partition, ...).
func (m *Manager) ApplyEdit(teamID int64, nodeID int32, counter int64, op disksystem.Operation, mutate shadow.Mutator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	team, ok := m.teams[teamID]
	if !ok {
		return ddmerrors.New(ddmerrors.NotFound, "no shadow team %d", teamID)
	}

	owner := m.newOwner()
	team.Device.Lock.WriteLock(owner)
	defer team.Device.Lock.WriteUnlock()

	return shadow.Apply(context.Background(), team, m.registry, nodeID, counter, op, mutate)
}

// ValidateEdit resolves nodeID within team teamID's shadow tree and
// asks the disk system responsible for op to check params, read-
// locking the device for the duration (spec §4.8's validate_* family:
// "mutates only the out-parameters", never the shadow itself). For
// OpInitialize — the one op whose target has no disk system bound yet
// — the system is looked up by params.Type instead of node.DiskSystemID,
// mirroring job.Queue.initialize's same resolution rule.
func (m *Manager) ValidateEdit(teamID int64, nodeID int32, op disksystem.Operation, params *disksystem.Params) error {
	m.mu.Lock()
	team, ok := m.teams[teamID]
	m.mu.Unlock()
	if !ok {
		return ddmerrors.New(ddmerrors.NotFound, "no shadow team %d", teamID)
	}

	owner := m.newOwner()
	team.Device.Lock.ReadLock(owner)
	defer team.Device.Lock.ReadUnlock()

	node := team.Resolve(nodeID)
	if node == nil {
		return ddmerrors.New(ddmerrors.NotFound, "no shadow partition with id %d", nodeID)
	}

	var sysID int32
	if op == disksystem.OpInitialize {
		id, err := m.registry.FindByName(params.Type)
		if err != nil {
			return err
		}
		sysID = id
	} else {
		if node.DiskSystemID == -1 {
			return ddmerrors.New(ddmerrors.NotAllowed, "partition %d has no disk system bound for %s", nodeID, op)
		}
		sysID = node.DiskSystemID
	}

	sys, err := m.registry.Get(sysID)
	if err != nil {
		return err
	}
	return sys.Validate(context.Background(), op, node, params)
}

// RunImmediateJob submits a single ad-hoc job against device deviceID
// without going through the shadow diff pipeline — defragment_partition
// and repair_partition have no tracked attribute for job.Generate to
// compare against, so they run as a one-job queue directly (spec
// §6.2). Refuses Busy while the device is busy.
func (m *Manager) RunImmediateJob(deviceID int32, j *job.Job, sink job.ProgressSink) (queueID int64, err error) {
	m.mu.Lock()
	dev, err := m.deviceLocked(deviceID)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.mu.Unlock()

	if dev.Busy() {
		return 0, ddmerrors.New(ddmerrors.Busy, "device %d is busy", deviceID)
	}

	queueID = m.nextTeamID.Add(1)
	resolver := &managerResolver{dev: dev}
	queue := job.NewQueue([]*job.Job{j}, m.registry, resolver, sink, m.AllocatePartitionID)

	m.mu.Lock()
	m.queues[queueID] = queue
	m.mu.Unlock()

	queue.Execute(context.Background())

	go func() {
		queue.Wait()
		m.mu.Lock()
		m.reconcilePartitionsLocked(dev)
		m.mu.Unlock()
	}()

	return queueID, nil
}

// CommitModifications hands team teamID's shadow tree to the job
// engine: it generates the ordered job list under the device's write
// lock (for a consistent physical-vs-shadow comparison), then starts
// execution with the device UNLOCKED (spec §4.4's write-operation rule)
// before a background goroutine waits for completion and reconciles
// the manager's partition map. The shadow is consumed by Commit either
// way, per shadow.Finish's contract, even if generation fails.
func (m *Manager) CommitModifications(deviceID int32, teamID int64, sink job.ProgressSink) error {
	m.mu.Lock()

	dev, err := m.deviceLocked(deviceID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	team, ok := m.teams[teamID]
	if !ok {
		m.mu.Unlock()
		return ddmerrors.New(ddmerrors.NotFound, "no shadow team %d", teamID)
	}
	if team.Device != dev {
		m.mu.Unlock()
		return ddmerrors.New(ddmerrors.BadValue, "team %d does not belong to device %d", teamID, deviceID)
	}

	owner := m.newOwner()
	dev.Lock.WriteLock(owner)

	root, err := shadow.Commit(team)
	if err != nil {
		dev.Lock.WriteUnlock()
		m.mu.Unlock()
		return err
	}

	jobs, genErr := job.Generate(dev.Partition, root)

	if finishErr := shadow.Finish(team); finishErr != nil {
		ddmlog.Warning("manager: finishing team %d after commit failed: %v", teamID, finishErr)
	}
	delete(m.teams, teamID)

	if genErr != nil {
		dev.Lock.WriteUnlock()
		m.mu.Unlock()
		return genErr
	}

	resolver := &managerResolver{dev: dev}
	queue := job.NewQueue(jobs, m.registry, resolver, sink, m.AllocatePartitionID)
	m.queues[teamID] = queue

	dev.Lock.WriteUnlock()
	m.mu.Unlock()

	queue.Execute(context.Background())

	go func() {
		queue.Wait()
		m.mu.Lock()
		m.reconcilePartitionsLocked(dev)
		m.mu.Unlock()
		ddmlog.Info("manager: job queue for device %d finished: %s", dev.ID, queue.Status())
	}()

	return nil
}

// Queue returns the job queue started by CommitModifications for the
// given team id, if it is still tracked.
func (m *Manager) Queue(teamID int64) (*job.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[teamID]
	if !ok {
		return nil, ddmerrors.New(ddmerrors.NotFound, "no job queue for team %d", teamID)
	}
	return q, nil
}

// managerResolver adapts a single device's live tree to job.Resolver,
// so the job engine stays independent of the manager package.
type managerResolver struct {
	dev *device.DiskDevice
}

func (r *managerResolver) Resolve(id int32) (*partition.Partition, error) {
	n := r.dev.Partition.Find(id)
	if n == nil {
		return nil, ddmerrors.New(ddmerrors.NotFound, "no partition %d on device %d", id, r.dev.ID)
	}
	return n, nil
}

func (r *managerResolver) ParentOf(id int32) (*partition.Partition, error) {
	n, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	if n.Parent == nil {
		return nil, ddmerrors.New(ddmerrors.NotFound, "partition %d has no parent", id)
	}
	return n.Parent, nil
}
