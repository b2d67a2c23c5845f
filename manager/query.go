package manager

import (
	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/partition"
	"github.com/diskdevmgr/ddm/shadow"
)

// PartitionTree returns a deep, mutation-safe snapshot of device id's
// tree: the physical tree by default, or its in-progress shadow when
// wantShadow is true (spec §6.3's get_disk_device_data). The device is
// only read-locked for the duration of the copy, per spec §4.8's "for
// every query the manager register-locks the target".
func (m *Manager) PartitionTree(id int32, wantShadow bool) (*partition.Partition, error) {
	m.mu.Lock()
	dev, err := m.deviceLocked(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	var team *shadow.Team
	if wantShadow {
		if !dev.HasShadow() {
			m.mu.Unlock()
			return nil, ddmerrors.New(ddmerrors.NotFound, "device %d has no shadow in progress", id)
		}
		team = m.teams[dev.ShadowTeamID]
	}
	m.mu.Unlock()

	owner := m.newOwner()
	dev.Lock.ReadLock(owner)
	defer dev.Lock.ReadUnlock()

	root := dev.Partition
	if team != nil {
		root = team.Root
	}
	return root.Copy(), nil
}
