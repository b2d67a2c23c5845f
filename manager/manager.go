// Package manager implements DiskDeviceManager (spec component C6):
// the singleton that owns every device's container maps, drives
// scanning and the devfs-equivalent namespace, and wires the shadow
// and job-engine packages together for the boundary API.
//
// The source's single recursive lock guarding `devices`, `partitions`,
// `disk_systems`, and `obsolete_partitions` becomes a plain
// `sync.Mutex` held for the full duration of each exported method —
// Go has no recursive mutex, so reentrancy is avoided by structuring
// every public entrypoint as one lock/unlock span with unexported
// `*Locked` helpers that assume it is already held, rather than
// attempting self-nesting. Per-device ownership tokens for the
// embedded lock.RWLock are minted from an atomic counter independent
// of this mutex, since a device's write lock may need to be held
// (during scanning) for longer than is prudent to also hold the
// container-map mutex; the two still nest Manager-then-Device in
// every call path, preserving spec §5's lock order.
package manager

import (
	"sync"
	"sync/atomic"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/device"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/job"
	"github.com/diskdevmgr/ddm/notify"
	"github.com/diskdevmgr/ddm/partition"
	"github.com/diskdevmgr/ddm/shadow"
)

// Manager is the process-wide owner of every known device, partition,
// disk system, shadow team, and in-flight job queue.
type Manager struct {
	mu sync.Mutex

	ownerSeq        atomic.Uint64
	nextPartitionID atomic.Int32
	nextTeamID      atomic.Int64

	devices    map[int32]*device.DiskDevice
	partitions map[int32]*partition.Partition
	pathIndex  map[string]int32

	// devfs is the in-memory stand-in for the kernel's /dev/disk
	// namespace (SPEC_FULL.md §6.4's documented adaptation): path to
	// the owning partition's id.
	devfs map[string]int32

	teams  map[int64]*shadow.Team
	queues map[int64]*job.Queue

	registry *disksystem.Registry
	bus      *notify.Bus

	stateDir string
}

// New returns an empty Manager. registry should already have every
// disk-system plugin this process ships registered — spec's dynamic
// `rescan_disk_systems()` module-directory walk has no Go analogue
// (there is no equivalent of loading a `.so` module contract a fixed
// interface was compiled against), so plugins are wired in at process
// start via registry.Register and RescanDiskSystems only re-triggers
// the identify/scan pass against the devices already known.
func New(stateDir string, registry *disksystem.Registry, bus *notify.Bus) *Manager {
	return &Manager{
		devices:    make(map[int32]*device.DiskDevice),
		partitions: make(map[int32]*partition.Partition),
		pathIndex:  make(map[string]int32),
		devfs:      make(map[string]int32),
		teams:      make(map[int64]*shadow.Team),
		queues:     make(map[int64]*job.Queue),
		registry:   registry,
		bus:        bus,
		stateDir:   stateDir,
	}
}

func (m *Manager) newOwner() uint64 {
	return m.ownerSeq.Add(1)
}

// AllocatePartitionID mints a fresh id from the manager's global
// counter; it is safe to call without holding mu, so it also serves as
// the job.Queue's JobContext.AllocateID backing function.
func (m *Manager) AllocatePartitionID() int32 {
	return m.nextPartitionID.Add(1)
}

func (m *Manager) deviceLocked(id int32) (*device.DiskDevice, error) {
	dev, ok := m.devices[id]
	if !ok {
		return nil, ddmerrors.New(ddmerrors.NotFound, "no device with id %d", id)
	}
	return dev, nil
}

func (m *Manager) partitionLocked(id int32) (*partition.Partition, error) {
	p, ok := m.partitions[id]
	if !ok {
		return nil, ddmerrors.New(ddmerrors.NotFound, "no partition with id %d", id)
	}
	return p, nil
}

// Device returns the device registered under id.
func (m *Manager) Device(id int32) (*device.DiskDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceLocked(id)
}

// Partition returns the live partition (physical tree only) registered
// under id, from whichever device owns it.
func (m *Manager) Partition(id int32) (*partition.Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.partitionLocked(id)
}

// FindDeviceByPath returns the device registered under path, the
// boundary layer's find_disk_device.
func (m *Manager) FindDeviceByPath(path string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.pathIndex[path]
	if !ok {
		return 0, ddmerrors.New(ddmerrors.NotFound, "no device registered at %q", path)
	}
	return id, nil
}

// DeviceIDs returns every currently registered device id.
func (m *Manager) DeviceIDs() []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int32, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	return ids
}

// reconcilePartitionsLocked rebuilds m.partitions for dev's current
// subtree and prunes entries for ids that no longer exist under it —
// needed because disk-system Execute calls (job.Queue) and scan
// mutate dev.Partition's tree directly, without going through the
// manager's container maps.
func (m *Manager) reconcilePartitionsLocked(dev *device.DiskDevice) {
	live := make(map[int32]bool)
	dev.Partition.VisitEachDescendant(partition.Visitor{Pre: func(p *partition.Partition) partition.VisitResult {
		m.partitions[p.ID] = p
		live[p.ID] = true
		return partition.VisitContinue
	}})

	for id, p := range m.partitions {
		if p.DeviceID == dev.ID && !live[id] {
			m.releaseDiskSystem(p.DiskSystemID)
			delete(m.partitions, id)
		}
	}
}

// CreateDevice opens path, registers a new DiskDevice, performs its
// initial scan, publishes it to the devfs-equivalent namespace, and
// fires device-added — idempotent on path (spec §4.7).
func (m *Manager) CreateDevice(path string) (id int32, created bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.pathIndex[path]; ok {
		return id, false, nil
	}

	id = m.AllocatePartitionID()
	dev := device.New(id, path)
	if err := dev.SetTo(path); err != nil {
		return 0, false, err
	}

	owner := m.newOwner()
	dev.Lock.WriteLock(owner)
	if err := m.scanPartitionLocked(dev, dev.Partition); err != nil {
		ddmlog.Warning("manager: initial scan of device %d (%s) failed: %v", id, path, err)
	}
	dev.Lock.WriteUnlock()

	m.devices[id] = dev
	m.pathIndex[path] = id
	m.reconcilePartitionsLocked(dev)
	m.publishTreeLocked(dev)

	ddmlog.Info("manager: created device %d at %s", id, path)
	if m.bus != nil {
		m.bus.Publish(notify.Event{Kind: notify.DeviceAdded, DeviceID: id})
	}

	return id, true, nil
}

// DeleteDevice unpublishes, obsoletes, and forgets the device
// registered under id. Refuses with Busy while the device or any
// descendant is busy, or while a shadow is in progress.
func (m *Manager) DeleteDevice(id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := m.deviceLocked(id)
	if err != nil {
		return err
	}
	if dev.Busy() {
		return ddmerrors.New(ddmerrors.Busy, "device %d is busy", id)
	}
	if dev.HasShadow() {
		return ddmerrors.New(ddmerrors.Busy, "device %d has modifications in progress", id)
	}

	owner := m.newOwner()
	dev.Lock.WriteLock(owner)
	m.unpublishTreeLocked(dev)
	dev.Partition.VisitEachDescendant(partition.Visitor{Post: func(p *partition.Partition) {
		p.MarkObsolete()
		m.releaseDiskSystem(p.DiskSystemID)
		delete(m.partitions, p.ID)
	}})
	dev.Lock.WriteUnlock()

	_ = dev.Close()
	delete(m.devices, id)
	delete(m.pathIndex, dev.Path)

	ddmlog.Info("manager: deleted device %d", id)
	if m.bus != nil {
		m.bus.Publish(notify.Event{Kind: notify.DeviceRemoved, DeviceID: id})
	}

	return nil
}

// CreateFileDevice registers a file-backed disk image as a device
// (spec's "ventilator for file-backed disk images"), normalizing path
// and returning the existing id if already registered.
func (m *Manager) CreateFileDevice(path string) (id int32, created bool, err error) {
	clean := normalizeFilePath(path)

	id, created, err = m.CreateDevice(clean)
	if err != nil {
		return 0, false, err
	}
	if created {
		m.mu.Lock()
		if dev, ok := m.devices[id]; ok {
			dev.FileBacked = true
			dev.BackingFile = clean
		}
		m.mu.Unlock()
	}
	return id, created, nil
}

// RegisterFileDevice is the boundary-facing name for CreateFileDevice
// (spec §6.2's register_file_device).
func (m *Manager) RegisterFileDevice(path string) (int32, error) {
	id, _, err := m.CreateFileDevice(path)
	return id, err
}

// UnregisterFileDevice is the boundary-facing name for DeleteDevice
// (spec §6.2's unregister_file_device).
func (m *Manager) UnregisterFileDevice(id int32) error {
	return m.DeleteDevice(id)
}

// IsDeviceModified reports whether device id currently hosts an
// in-progress shadow (spec §6.2's is_disk_device_modified).
func (m *Manager) IsDeviceModified(id int32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := m.deviceLocked(id)
	if err != nil {
		return false, err
	}
	return dev.HasShadow(), nil
}
