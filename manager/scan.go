package manager

import (
	"context"

	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/device"
	"github.com/diskdevmgr/ddm/partition"
)

// RescanDiskSystems re-runs the identify/scan pass over every known,
// non-busy device's tree. The source's module-directory walk has no
// Go counterpart (disk-system plugins are registered once at process
// start, see New's doc comment); this is the part of
// `rescan_disk_systems()` that still applies once plugins are fixed.
func (m *Manager) RescanDiskSystems() {
	m.mu.Lock()
	devs := make([]*device.DiskDevice, 0, len(m.devices))
	for _, dev := range m.devices {
		devs = append(devs, dev)
	}
	m.mu.Unlock()

	for _, dev := range devs {
		if dev.Busy() {
			continue
		}

		owner := m.newOwner()
		dev.Lock.WriteLock(owner)
		err := m.scanPartitionLocked(dev, dev.Partition)
		dev.Lock.WriteUnlock()
		if err != nil {
			ddmlog.Warning("manager: rescan of device %d failed: %v", dev.ID, err)
		}

		m.mu.Lock()
		m.reconcilePartitionsLocked(dev)
		m.publishTreeLocked(dev)
		m.mu.Unlock()
	}
}

// releaseDiskSystem drops a partition's prior reference on id, if any,
// so the registry's load count stays balanced: a partition that stops
// being recognized by a disk system, is reassigned to a different one,
// or is pruned from the tree entirely releases its hold on id first.
// Safe to call with any combination of dev.Lock/m.mu held, since it
// only takes the registry's own internal mutex.
func (m *Manager) releaseDiskSystem(id int32) {
	if id == -1 {
		return
	}
	if err := m.registry.Unload(id); err != nil {
		ddmlog.Warning("manager: unload of disk system %d failed: %v", id, err)
	}
}

// scanPartitionLocked re-identifies p's content (spec §4.7's
// scan_partition): every registered disk system is asked to identify
// p, the best-priority winner scans it, and losing cookies are freed.
// Callers must already hold dev.Lock for writing.
func (m *Manager) scanPartitionLocked(dev *device.DiskDevice, p *partition.Partition) error {
	ctx := context.Background()

	var winner int32 = -1
	var winnerCookie any
	var winnerPriority float64 = -1

	for _, id := range m.registry.List() {
		sys, err := m.registry.Get(id)
		if err != nil {
			continue
		}

		priority, cookie, err := sys.Identify(ctx, p, dev.Path)
		if err != nil {
			ddmlog.Warning("manager: %s.identify failed for partition %d: %v", sys.Name(), p.ID, err)
			continue
		}
		if priority <= winnerPriority {
			sys.FreeIdentifyCookie(cookie)
			continue
		}

		if winner != -1 {
			if prevSys, err := m.registry.Get(winner); err == nil {
				prevSys.FreeIdentifyCookie(winnerCookie)
			}
		}
		winner, winnerCookie, winnerPriority = id, cookie, priority
	}

	oldID := p.DiskSystemID

	if winner == -1 {
		m.releaseDiskSystem(oldID)
		p.DiskSystemID = -1
		p.Status = partition.StatusUnrecognized
		return nil
	}

	sys, err := m.registry.Get(winner)
	if err != nil {
		return err
	}

	if err := sys.Scan(ctx, p, winnerCookie, m.AllocatePartitionID); err != nil {
		sys.FreeIdentifyCookie(winnerCookie)
		p.Status = partition.StatusCorrupt
		return err
	}

	if winner != oldID {
		m.releaseDiskSystem(oldID)
		if err := m.registry.Load(winner); err != nil {
			ddmlog.Warning("manager: load of disk system %d failed: %v", winner, err)
		}
	}

	p.DiskSystemID = winner
	p.Status = partition.StatusValid

	for _, child := range p.Children {
		if err := m.scanPartitionLocked(dev, child); err != nil {
			ddmlog.Warning("manager: scan of child partition %d failed: %v", child.ID, err)
		}
	}

	return nil
}
