package boundary

import (
	"os"
	"testing"
	"time"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/job"
	"github.com/diskdevmgr/ddm/manager"
	"github.com/diskdevmgr/ddm/partition"
)

func tempDevicePath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "ddm-boundary-test")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	_ = f.Close()
	t.Cleanup(func() { _ = os.Remove(f.Name()) })
	return f.Name()
}

// newTestAPI registers one "testfs" stub that identifies only a device
// root, supports OpCreateChild (constructing a valid child) and
// OpInitialize (marking it valid), and returns the API alongside the
// device id and the stub itself for assertions.
func newTestAPI(t *testing.T) (api *API, deviceID int32, sys *stubSystem, path string) {
	t.Helper()

	registry := disksystem.NewRegistry()
	sys = &stubSystem{
		name: "testfs",
		identifyFn: func(p *partition.Partition) float64 {
			if p.Parent == nil {
				return 1
			}
			return -1
		},
		executeFn: func(op disksystem.Operation, p *partition.Partition, params *disksystem.Params) error {
			switch op {
			case disksystem.OpCreateChild:
				child := partition.New(params.NewID, partition.KindPhysical)
				child.Offset, child.Size = params.Offset, params.Size
				child.Type = params.Type
				child.Parameters = params.Parameters
				return p.AddChild(child, -1)
			case disksystem.OpInitialize:
				p.Status = partition.StatusValid
				return nil
			}
			return nil
		},
	}
	registry.Register(sys)

	mgr := manager.New(os.TempDir(), registry, nil)
	api = New(mgr, registry)

	path = tempDevicePath(t)
	deviceID, _, err := api.CreateDiskDevice(path)
	if err != nil {
		t.Fatalf("CreateDiskDevice: %v", err)
	}
	return api, deviceID, sys, path
}

func waitForQueue(t *testing.T, api *API, queueID int64) []*job.Job {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		jobs, err := api.GetDiskDeviceJobInfo(queueID)
		if err != nil {
			t.Fatalf("GetDiskDeviceJobInfo: %v", err)
		}
		status, err := api.GetDiskDeviceJobProgressInfo(queueID)
		if err != nil {
			t.Fatalf("GetDiskDeviceJobProgressInfo: %v", err)
		}
		if status == job.QueueSucceeded || status == job.QueueFailed {
			return jobs
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("queue did not reach a terminal state in time")
	return nil
}

func TestFindDiskDeviceAndDeleteRoundTrip(t *testing.T) {
	api, deviceID, _, path := newTestAPI(t)

	data, err := api.GetDiskDeviceData(deviceID, false, false)
	if err != nil {
		t.Fatalf("GetDiskDeviceData: %v", err)
	}
	if data.ID != deviceID {
		t.Fatalf("GetDiskDeviceData root id = %d, want %d", data.ID, deviceID)
	}

	if err := api.DeleteDiskDevice(deviceID); err != nil {
		t.Fatalf("DeleteDiskDevice: %v", err)
	}
	if _, err := api.FindDiskDevice(path); ddmerrors.KindOf(err) != ddmerrors.NotFound {
		t.Fatalf("FindDiskDevice after delete: got %v, want NotFound", err)
	}
}

func TestCreateChildPartitionAndCommitExecutesJobs(t *testing.T) {
	api, deviceID, sys, _ := newTestAPI(t)

	teamID, err := api.PrepareDiskDeviceModifications(deviceID)
	if err != nil {
		t.Fatalf("PrepareDiskDeviceModifications: %v", err)
	}

	childID, err := api.CreateChildPartition(teamID, deviceID, 0, 0, 4096, "testpart", "")
	if err != nil {
		t.Fatalf("CreateChildPartition: %v", err)
	}
	if err := api.SetContentName(teamID, childID, 1, "data"); err != nil {
		t.Fatalf("SetContentName: %v", err)
	}

	if err := api.CommitDiskDeviceModifications(deviceID, teamID, nil); err != nil {
		t.Fatalf("CommitDiskDeviceModifications: %v", err)
	}

	jobs := waitForQueue(t, api, teamID)
	if len(jobs) == 0 {
		t.Fatal("expected at least one generated job")
	}

	if len(sys.executed) == 0 {
		t.Fatal("expected the disk system to have executed at least one operation")
	}

	modified, err := api.IsDiskDeviceModified(deviceID)
	if err != nil {
		t.Fatalf("IsDiskDeviceModified: %v", err)
	}
	if modified {
		t.Fatal("device should no longer be modified after a successful commit")
	}
}

func TestApplyEditRejectsStaleCounter(t *testing.T) {
	api, deviceID, _, _ := newTestAPI(t)

	teamID, err := api.PrepareDiskDeviceModifications(deviceID)
	if err != nil {
		t.Fatalf("PrepareDiskDeviceModifications: %v", err)
	}

	if err := api.SetPartitionName(teamID, deviceID, 99, "renamed"); ddmerrors.KindOf(err) != ddmerrors.BadValue {
		t.Fatalf("SetPartitionName with stale counter: got %v, want BadValue", err)
	}
}

func TestCancelModificationsDiscardsChanges(t *testing.T) {
	api, deviceID, _, _ := newTestAPI(t)

	teamID, err := api.PrepareDiskDeviceModifications(deviceID)
	if err != nil {
		t.Fatalf("PrepareDiskDeviceModifications: %v", err)
	}
	if _, err := api.CreateChildPartition(teamID, deviceID, 0, 0, 4096, "testpart", ""); err != nil {
		t.Fatalf("CreateChildPartition: %v", err)
	}
	if err := api.CancelDiskDeviceModifications(teamID); err != nil {
		t.Fatalf("CancelDiskDeviceModifications: %v", err)
	}

	data, err := api.GetDiskDeviceData(deviceID, false, false)
	if err != nil {
		t.Fatalf("GetDiskDeviceData: %v", err)
	}
	if len(data.Children) != 0 {
		t.Fatalf("physical tree should be untouched by a canceled shadow, got %d children", len(data.Children))
	}

	if _, err := api.GetDiskDeviceData(deviceID, false, true); ddmerrors.KindOf(err) != ddmerrors.NotFound {
		t.Fatalf("GetDiskDeviceData(shadow) after cancel: got %v, want NotFound", err)
	}
}

func TestGetPartitionableSpacesGenericGapScan(t *testing.T) {
	api, deviceID, _, _ := newTestAPI(t)

	data, err := api.GetDiskDeviceData(deviceID, false, false)
	if err != nil {
		t.Fatalf("GetDiskDeviceData: %v", err)
	}

	spaces, err := api.GetPartitionableSpaces(deviceID, data.ChangeCounter)
	if err != nil {
		t.Fatalf("GetPartitionableSpaces: %v", err)
	}
	if len(spaces) != 1 || spaces[0].Offset != data.Offset || spaces[0].Size != data.Size {
		t.Fatalf("GetPartitionableSpaces on an empty root = %+v, want one space spanning the whole device", spaces)
	}

	if _, err := api.GetPartitionableSpaces(deviceID, data.ChangeCounter+1); ddmerrors.KindOf(err) != ddmerrors.BadValue {
		t.Fatalf("GetPartitionableSpaces with stale counter: got %v, want BadValue", err)
	}
}

func TestFindDiskSystemAndSupports(t *testing.T) {
	api, deviceID, _, _ := newTestAPI(t)

	info, err := api.FindDiskSystem("testfs")
	if err != nil {
		t.Fatalf("FindDiskSystem: %v", err)
	}
	if info.Name != "testfs" {
		t.Fatalf("FindDiskSystem.Name = %q, want testfs", info.Name)
	}

	supported, _, err := api.Supports(deviceID, disksystem.OpCreateChild)
	if err != nil {
		t.Fatalf("Supports: %v", err)
	}
	if !supported {
		t.Fatal("expected the root's bound disk system to support create_child")
	}
}

func TestDeviceCookieEnumeratesEveryDevice(t *testing.T) {
	api, deviceID, _, _ := newTestAPI(t)

	cookie := api.NewDeviceCookie()
	var seen []int32
	for {
		id, ok := api.GetNextDiskDeviceID(cookie)
		if !ok {
			break
		}
		seen = append(seen, id)
	}

	if len(seen) != 1 || seen[0] != deviceID {
		t.Fatalf("device enumeration = %v, want [%d]", seen, deviceID)
	}
}

func TestRegisterAndUnregisterFileDevice(t *testing.T) {
	api, _, _, _ := newTestAPI(t)
	path := tempDevicePath(t)

	id, err := api.RegisterFileDevice(path)
	if err != nil {
		t.Fatalf("RegisterFileDevice: %v", err)
	}
	if err := api.UnregisterFileDevice(id); err != nil {
		t.Fatalf("UnregisterFileDevice: %v", err)
	}
}

func TestDefragmentPartitionRunsImmediateJob(t *testing.T) {
	api, deviceID, sys, _ := newTestAPI(t)

	queueID, err := api.DefragmentPartition(deviceID, deviceID, nil)
	if err != nil {
		t.Fatalf("DefragmentPartition: %v", err)
	}

	waitForQueue(t, api, queueID)

	found := false
	for _, op := range sys.executed {
		if op == disksystem.OpDefragment {
			found = true
		}
	}
	if !found {
		t.Fatal("expected OpDefragment to have been executed")
	}
}
