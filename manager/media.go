package manager

import (
	"context"
	"os"
	"time"

	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/device"
	"github.com/diskdevmgr/ddm/notify"
	"github.com/diskdevmgr/ddm/partition"
	"github.com/diskdevmgr/ddm/shadow"
)

// RunMediaChecker drives the media_checker_daemon loop (spec §4.7)
// until ctx is canceled: every interval it probes every non-busy
// device's media status and reacts to a presence transition. Callers
// run it in its own goroutine (`go m.RunMediaChecker(ctx, time.Second)`
// from cmd/ddmd, mirroring `progress.Loop`'s ticker-driven shape).
func (m *Manager) RunMediaChecker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkMediaOnce(ctx)
		}
	}
}

func (m *Manager) checkMediaOnce(ctx context.Context) {
	m.mu.Lock()
	devs := make([]*device.DiskDevice, 0, len(m.devices))
	for _, dev := range m.devices {
		if !dev.Busy() {
			devs = append(devs, dev)
		}
	}
	m.mu.Unlock()

	for _, dev := range devs {
		changed, err := dev.UpdateMediaStatusIfNeeded(func() (bool, error) {
			return probeMediaPresence(dev.Path)
		})
		if err != nil {
			ddmlog.Warning("manager: media probe for device %d failed: %v", dev.ID, err)
			continue
		}
		if !changed {
			continue
		}

		m.onMediaChanged(ctx, dev)
	}
}

func probeMediaPresence(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// onMediaChanged implements the media-changed reaction: mark busy,
// uninitialize the root's contents, flag the root with ChangeMedia so
// a shadow mirroring it can tell the reset was media-driven rather
// than an ordinary edit, rescan, unmark busy, invalidate any in-flight
// shadow immediately (no ShadowPartitionChanged notification path is
// involved, since the device's whole tree is being reset under it),
// then fire device-media-changed.
func (m *Manager) onMediaChanged(ctx context.Context, dev *device.DiskDevice) {
	owner := m.newOwner()
	dev.Lock.WriteLock(owner)
	dev.SetBusy(true)
	oldID := dev.Partition.DiskSystemID
	dev.Partition.UninitializeContents()
	m.releaseDiskSystem(oldID)
	dev.Partition.Changed(partition.ChangeMedia)
	if err := m.scanPartitionLocked(dev, dev.Partition); err != nil {
		ddmlog.Warning("manager: post-media-change rescan of device %d failed: %v", dev.ID, err)
	}
	dev.SetBusy(false)
	dev.Lock.WriteUnlock()

	m.mu.Lock()
	m.reconcilePartitionsLocked(dev)
	if dev.HasShadow() {
		if team, ok := m.teams[dev.ShadowTeamID]; ok {
			shadow.Invalidate(team)
			delete(m.teams, team.ID)
		} else {
			dev.ShadowTeamID = -1
		}
	}
	m.mu.Unlock()

	ddmlog.Info("manager: media change on device %d", dev.ID)
	if m.bus != nil {
		m.bus.Publish(notify.Event{Kind: notify.DeviceMediaChanged, DeviceID: dev.ID})
	}
}
