package manager

import (
	"context"
	"os"
	"testing"

	"github.com/diskdevmgr/ddm/device"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/notify"
	"github.com/diskdevmgr/ddm/partition"
)

func TestCheckMediaOnceReactsToMediaLoss(t *testing.T) {
	bus := notify.NewBus()
	m := New("", disksystem.NewRegistry(), bus)
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	sub := bus.Subscribe(4)
	defer sub.Close()

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	m.checkMediaOnce(context.Background())

	dev, err := m.Device(devID)
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	if dev.MediaStatus != device.MediaNone {
		t.Fatalf("MediaStatus = %v, want MediaNone", dev.MediaStatus)
	}

	select {
	case ev := <-sub.Events():
		if ev.Kind != notify.DeviceMediaChanged || ev.DeviceID != devID {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected a device-media-changed event")
	}

	root, err := m.Partition(devID)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if root.ChangeFlags&partition.ChangeMedia == 0 {
		t.Fatalf("ChangeFlags = %v, want ChangeMedia set after an eject", root.ChangeFlags)
	}
}

func TestCheckMediaOnceSkipsBusyDevices(t *testing.T) {
	m := newTestManager()
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	dev, err := m.Device(devID)
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	dev.SetBusy(true)

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	m.checkMediaOnce(context.Background())

	if dev.MediaStatus == device.MediaNone {
		t.Fatal("media-checker should skip a busy device entirely")
	}
}
