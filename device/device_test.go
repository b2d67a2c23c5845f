package device

import (
	"os"
	"testing"
)

func TestSetToOpensExistingPath(t *testing.T) {
	f, err := os.CreateTemp("", "ddm-device-test")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()
	_ = f.Close()

	d := New(1, "")
	if err := d.SetTo(f.Name()); err != nil {
		t.Fatalf("SetTo: %v", err)
	}
	if d.MediaStatus != MediaOK {
		t.Errorf("MediaStatus = %v, want MediaOK", d.MediaStatus)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestSetToMissingPathReportsNotFound(t *testing.T) {
	d := New(1, "")
	err := d.SetTo("/no/such/device/path")
	if err == nil {
		t.Fatal("expected error for missing device path")
	}
	if d.MediaStatus != MediaNone {
		t.Errorf("MediaStatus = %v, want MediaNone", d.MediaStatus)
	}
}

func TestUpdateMediaStatusIfNeededDetectsChange(t *testing.T) {
	d := New(1, "")
	d.MediaStatus = MediaOK

	changed, err := d.UpdateMediaStatusIfNeeded(func() (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("UpdateMediaStatusIfNeeded: %v", err)
	}
	if !changed || d.MediaStatus != MediaNone {
		t.Fatalf("expected transition to MediaNone, got changed=%v status=%v", changed, d.MediaStatus)
	}

	changed, err = d.UpdateMediaStatusIfNeeded(func() (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("UpdateMediaStatusIfNeeded: %v", err)
	}
	if changed {
		t.Fatal("expected no change when status is stable")
	}
}

func TestHasShadow(t *testing.T) {
	d := New(1, "/dev/disk/ata/0/raw")
	if d.HasShadow() {
		t.Fatal("new device should not have a shadow")
	}
	d.ShadowTeamID = 42
	if !d.HasShadow() {
		t.Fatal("expected HasShadow() true after setting ShadowTeamID")
	}
}
