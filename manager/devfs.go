package manager

import (
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/device"
	"github.com/diskdevmgr/ddm/partition"
)

// publishTreeLocked records every node of dev's current tree into the
// devfs-equivalent namespace under its naming-contract path
// (partition.Partition.Path). Callers must hold mu.
func (m *Manager) publishTreeLocked(dev *device.DiskDevice) {
	dev.Partition.VisitEachDescendant(partition.Visitor{Pre: func(p *partition.Partition) partition.VisitResult {
		path := p.Path(dev.Path)
		if existing, ok := m.devfs[path]; ok && existing != p.ID {
			ddmlog.Warning("manager: devfs path %q already claimed by partition %d, reassigning to %d", path, existing, p.ID)
		}
		m.devfs[path] = p.ID
		return partition.VisitContinue
	}})
}

// unpublishTreeLocked removes every devfs entry belonging to dev's
// tree. Callers must hold mu.
func (m *Manager) unpublishTreeLocked(dev *device.DiskDevice) {
	for path, id := range m.devfs {
		if dev.Partition.Find(id) != nil {
			delete(m.devfs, path)
		}
	}
}

// PublishDevice (re)publishes every node of device id's tree to the
// devfs-equivalent namespace.
func (m *Manager) PublishDevice(id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := m.deviceLocked(id)
	if err != nil {
		return err
	}
	m.publishTreeLocked(dev)
	return nil
}

// UnpublishDevice removes every devfs entry belonging to device id.
func (m *Manager) UnpublishDevice(id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := m.deviceLocked(id)
	if err != nil {
		return err
	}
	m.unpublishTreeLocked(dev)
	return nil
}

// RepublishDevice recomputes device id's devfs paths after a sibling
// reindex and replaces the stale entries (spec §4.2's republish_device,
// §6.4's naming contract). A real devfs backing could fail this
// rename per-entry; this in-memory table cannot, but the call is kept
// idempotent and side-effect-total to preserve that contract for a
// future real implementation — per the open-question decision that a
// failed rename is logged and the affected node flagged rather than
// rolled back (spec.md §9).
func (m *Manager) RepublishDevice(id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := m.deviceLocked(id)
	if err != nil {
		return err
	}
	m.unpublishTreeLocked(dev)
	m.publishTreeLocked(dev)
	return nil
}

// DevfsPath returns the partition id published under path, if any.
func (m *Manager) DevfsPath(path string) (int32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.devfs[path]
	return id, ok
}
