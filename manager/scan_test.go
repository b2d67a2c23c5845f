package manager

import (
	"testing"

	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

func TestCreateDeviceScansChildrenViaBestPriorityIdentify(t *testing.T) {
	registry := disksystem.NewRegistry()

	isRoot := func(p *partition.Partition) bool { return p.Parent == nil }

	loserScanned := false
	loser := &stubSystem{
		name: "loser",
		identifyFn: func(p *partition.Partition) float64 {
			if !isRoot(p) {
				return -1
			}
			return 0.1
		},
		scanFn: func(p *partition.Partition, allocateID func() int32) error {
			loserScanned = true
			return nil
		},
	}
	winner := &stubSystem{
		name: "winner",
		identifyFn: func(p *partition.Partition) float64 {
			if !isRoot(p) {
				return -1
			}
			return 0.9
		},
		scanFn: func(p *partition.Partition, allocateID func() int32) error {
			a := partition.New(allocateID(), partition.KindPhysical)
			a.Offset, a.Size = 0, 512
			b := partition.New(allocateID(), partition.KindPhysical)
			b.Offset, b.Size = 512, 512
			if err := p.AddChild(a, -1); err != nil {
				return err
			}
			return p.AddChild(b, -1)
		},
	}
	registry.Register(loser)
	winnerID := registry.Register(winner)

	m := New("", registry, nil)
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	root, err := m.Partition(devID)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if root.DiskSystemID != winnerID {
		t.Fatalf("root.DiskSystemID = %d, want %d (the higher-priority identify)", root.DiskSystemID, winnerID)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 scanned children, got %d", len(root.Children))
	}

	for _, childID := range []int32{root.Children[0].ID, root.Children[1].ID} {
		if _, err := m.Partition(childID); err != nil {
			t.Errorf("child %d not reconciled into manager's partition map: %v", childID, err)
		}
	}

	if loserScanned {
		t.Errorf("loser disk system should never have been scanned")
	}
}

func TestRescanDiskSystemsSkipsBusyDevices(t *testing.T) {
	registry := disksystem.NewRegistry()
	scans := 0
	sys := &stubSystem{
		name: "sys",
		identifyFn: func(p *partition.Partition) float64 {
			if p.Parent != nil {
				return -1
			}
			return 1
		},
		scanFn: func(p *partition.Partition, allocateID func() int32) error {
			scans++
			return nil
		},
	}
	registry.Register(sys)

	m := New("", registry, nil)
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	afterCreate := scans
	if afterCreate == 0 {
		t.Fatal("expected the initial scan during CreateDevice to run")
	}

	dev, err := m.Device(devID)
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	dev.SetBusy(true)

	m.RescanDiskSystems()
	if scans != afterCreate {
		t.Fatal("RescanDiskSystems should not touch a busy device")
	}

	dev.SetBusy(false)
	m.RescanDiskSystems()
	if scans != afterCreate+1 {
		t.Fatalf("expected exactly one more scan after unbusy, got %d more", scans-afterCreate)
	}
}

func TestRescanDoesNotInflateLoadCounterOnSameWinner(t *testing.T) {
	registry := disksystem.NewRegistry()
	sys := &stubSystem{
		name: "sys",
		identifyFn: func(p *partition.Partition) float64 {
			if p.Parent != nil {
				return -1
			}
			return 1
		},
	}
	sysID := registry.Register(sys)

	m := New("", registry, nil)
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	if got := registry.LoadCount(sysID); got != 1 {
		t.Fatalf("LoadCount after initial scan = %d, want 1", got)
	}

	m.RescanDiskSystems()
	m.RescanDiskSystems()
	if got := registry.LoadCount(sysID); got != 1 {
		t.Fatalf("LoadCount after repeated rescans = %d, want 1 (same winner each time)", got)
	}

	if err := m.DeleteDevice(devID); err != nil {
		t.Fatalf("DeleteDevice: %v", err)
	}
	if got := registry.LoadCount(sysID); got != 0 {
		t.Fatalf("LoadCount after DeleteDevice = %d, want 0", got)
	}
}

func TestRescanUnloadsPreviousSystemWhenWinnerChanges(t *testing.T) {
	registry := disksystem.NewRegistry()

	preferA := true
	a := &stubSystem{
		name: "a",
		identifyFn: func(p *partition.Partition) float64 {
			if p.Parent != nil {
				return -1
			}
			if preferA {
				return 1
			}
			return 0.1
		},
	}
	b := &stubSystem{
		name: "b",
		identifyFn: func(p *partition.Partition) float64 {
			if p.Parent != nil {
				return -1
			}
			if preferA {
				return 0.1
			}
			return 1
		},
	}
	aID := registry.Register(a)
	bID := registry.Register(b)

	m := New("", registry, nil)
	path := tempDevicePath(t)

	devID, _, err := m.CreateDevice(path)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	root, err := m.Partition(devID)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if root.DiskSystemID != aID {
		t.Fatalf("root.DiskSystemID = %d, want %d", root.DiskSystemID, aID)
	}
	if got := registry.LoadCount(aID); got != 1 {
		t.Fatalf("LoadCount(a) = %d, want 1", got)
	}

	preferA = false
	m.RescanDiskSystems()

	root, err = m.Partition(devID)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if root.DiskSystemID != bID {
		t.Fatalf("root.DiskSystemID = %d, want %d after rebind", root.DiskSystemID, bID)
	}
	if got := registry.LoadCount(aID); got != 0 {
		t.Fatalf("LoadCount(a) after rebind = %d, want 0 (released)", got)
	}
	if got := registry.LoadCount(bID); got != 1 {
		t.Fatalf("LoadCount(b) after rebind = %d, want 1", got)
	}
}
