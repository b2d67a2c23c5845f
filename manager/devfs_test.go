package manager

import (
	"testing"

	"github.com/diskdevmgr/ddm/disksystem"
)

func TestPublishDevicePublishesRootUnderDevicePath(t *testing.T) {
	m := newTestManager()
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	id, ok := m.DevfsPath(path)
	if !ok || id != devID {
		t.Fatalf("DevfsPath(%q) = (%d, %v), want (%d, true)", path, id, ok, devID)
	}

	if err := m.UnpublishDevice(devID); err != nil {
		t.Fatalf("UnpublishDevice: %v", err)
	}
	if _, ok := m.DevfsPath(path); ok {
		t.Fatal("expected devfs entry gone after UnpublishDevice")
	}

	if err := m.PublishDevice(devID); err != nil {
		t.Fatalf("PublishDevice: %v", err)
	}
	if _, ok := m.DevfsPath(path); !ok {
		t.Fatal("expected devfs entry restored after PublishDevice")
	}
}

func TestRepublishDeviceKeepsRootPublished(t *testing.T) {
	registry := disksystem.NewRegistry()
	m := New("", registry, nil)
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	if err := m.RepublishDevice(devID); err != nil {
		t.Fatalf("RepublishDevice: %v", err)
	}
	if _, ok := m.DevfsPath(path); !ok {
		t.Fatal("expected root still published after RepublishDevice")
	}
}
