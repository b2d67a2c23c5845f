package job

import (
	"context"
	"testing"
	"time"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

type treeResolver struct {
	root *partition.Partition
}

func (r *treeResolver) Resolve(id int32) (*partition.Partition, error) {
	if n := r.root.Find(id); n != nil {
		return n, nil
	}
	return nil, ddmerrors.New(ddmerrors.NotFound, "no partition %d", id)
}

func (r *treeResolver) ParentOf(id int32) (*partition.Partition, error) {
	n, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	if n.Parent == nil {
		return nil, ddmerrors.New(ddmerrors.NotFound, "partition %d has no parent", id)
	}
	return n.Parent, nil
}

type recordingSystem struct {
	executed []disksystem.Operation
	fail     bool
}

func (r *recordingSystem) Name() string       { return "recording" }
func (r *recordingSystem) PrettyName() string { return "recording" }
func (r *recordingSystem) IsFileSystem() bool { return false }
func (r *recordingSystem) Identify(ctx context.Context, p *partition.Partition, devicePath string) (float64, any, error) {
	return 0, nil, nil
}
func (r *recordingSystem) Scan(ctx context.Context, p *partition.Partition, cookie any, allocateID func() int32) error {
	return nil
}
func (r *recordingSystem) FreeIdentifyCookie(cookie any)            {}
func (r *recordingSystem) FreeCookie(p *partition.Partition)        {}
func (r *recordingSystem) FreeContentCookie(p *partition.Partition) {}
func (r *recordingSystem) Supports(op disksystem.Operation) (bool, bool) {
	return true, false
}
func (r *recordingSystem) IsSubSystemFor(p *partition.Partition) bool { return false }
func (r *recordingSystem) Validate(ctx context.Context, op disksystem.Operation, p *partition.Partition, params *disksystem.Params) error {
	return nil
}
func (r *recordingSystem) Execute(ctx context.Context, op disksystem.Operation, p *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	r.executed = append(r.executed, op)
	if r.fail {
		return ddmerrors.New(ddmerrors.JobFailed, "simulated failure")
	}
	jc.Progress(1)
	return nil
}
func (r *recordingSystem) ShadowPartitionChanged(ctx context.Context, op disksystem.Operation, p *partition.Partition) error {
	return nil
}
func (r *recordingSystem) GetNextSupportedType(cookie *int) (string, bool) { return "", false }
func (r *recordingSystem) GetTypeForContentType(contentType string) (string, bool) {
	return "", false
}
func (r *recordingSystem) GetPartitionableSpaces(p *partition.Partition) ([]disksystem.PartitionableSpace, bool, error) {
	return nil, false, nil
}

func waitFor(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queue to finish")
	}
}

func TestQueueExecutesJobAndSucceeds(t *testing.T) {
	root := partition.New(1, partition.KindPhysical)
	child := partition.New(2, partition.KindPhysical)
	child.Offset, child.Size = 0, 100
	_ = root.AddChild(child, -1)

	registry := disksystem.NewRegistry()
	sys := &recordingSystem{}
	child.DiskSystemID = registry.Register(sys)

	jobs := []*Job{
		{Kind: TypeSetContentName, PartitionID: child.ID, ContentName: "data", Interrupt: InterruptProperties{CanCancel: true}},
	}
	q := NewQueue(jobs, registry, &treeResolver{root: root}, nil, nil)

	done := make(chan struct{})
	go func() { q.Wait(); close(done) }()

	q.Execute(context.Background())
	waitFor(t, done)

	if q.Status() != QueueSucceeded {
		t.Fatalf("status = %v, want QueueSucceeded", q.Status())
	}
	if jobs[0].Status != StatusSucceeded {
		t.Fatalf("job status = %v, want StatusSucceeded", jobs[0].Status)
	}
	if len(sys.executed) != 1 || sys.executed[0] != disksystem.OpSetContentName {
		t.Fatalf("executed ops = %v", sys.executed)
	}
}

func TestQueueFailureMarksRemainingJobsFailed(t *testing.T) {
	root := partition.New(1, partition.KindPhysical)
	child := partition.New(2, partition.KindPhysical)
	_ = root.AddChild(child, -1)

	registry := disksystem.NewRegistry()
	sys := &recordingSystem{fail: true}
	child.DiskSystemID = registry.Register(sys)

	jobs := []*Job{
		{Kind: TypeSetContentName, PartitionID: child.ID, ContentName: "a"},
		{Kind: TypeSetContentParameters, PartitionID: child.ID, ContentParameters: "b"},
	}
	q := NewQueue(jobs, registry, &treeResolver{root: root}, nil, nil)

	done := make(chan struct{})
	go func() { q.Wait(); close(done) }()

	q.Execute(context.Background())
	waitFor(t, done)

	if q.Status() != QueueFailed {
		t.Fatalf("status = %v, want QueueFailed", q.Status())
	}
	if jobs[0].Status != StatusFailed {
		t.Fatalf("first job status = %v, want StatusFailed", jobs[0].Status)
	}
	if jobs[1].Status != StatusFailed {
		t.Fatalf("second job status = %v, want StatusFailed (aborted)", jobs[1].Status)
	}
}

func TestQueueUninitializeReleasesDiskSystemLoad(t *testing.T) {
	root := partition.New(1, partition.KindPhysical)
	child := partition.New(2, partition.KindPhysical)
	_ = root.AddChild(child, -1)

	registry := disksystem.NewRegistry()
	sysID := registry.Register(&recordingSystem{})
	if err := registry.Load(sysID); err != nil {
		t.Fatalf("Load: %v", err)
	}
	child.DiskSystemID = sysID

	jobs := []*Job{
		{Kind: TypeUninitialize, PartitionID: child.ID, Interrupt: InterruptProperties{CanCancel: true}},
	}
	q := NewQueue(jobs, registry, &treeResolver{root: root}, nil, nil)

	done := make(chan struct{})
	go func() { q.Wait(); close(done) }()

	q.Execute(context.Background())
	waitFor(t, done)

	if q.Status() != QueueSucceeded {
		t.Fatalf("status = %v, want QueueSucceeded", q.Status())
	}
	if child.DiskSystemID != -1 {
		t.Fatalf("child.DiskSystemID = %d, want -1 after uninitialize", child.DiskSystemID)
	}
	if got := registry.LoadCount(sysID); got != 0 {
		t.Fatalf("LoadCount after uninitialize = %d, want 0", got)
	}
}

func TestQueueCancelRefusedWhenActiveJobForbidsIt(t *testing.T) {
	root := partition.New(1, partition.KindPhysical)
	child := partition.New(2, partition.KindPhysical)
	_ = root.AddChild(child, -1)

	registry := disksystem.NewRegistry()
	child.DiskSystemID = registry.Register(&recordingSystem{})

	jobs := []*Job{
		{Kind: TypeUninitialize, PartitionID: child.ID, Interrupt: InterruptProperties{CanCancel: false}},
	}
	q := NewQueue(jobs, registry, &treeResolver{root: root}, nil, nil)
	q.mu.Lock()
	q.active = 0
	q.mu.Unlock()

	if err := q.Cancel(false); !ddmerrors.Is(err, ddmerrors.BadValue) {
		t.Fatalf("Cancel on non-cancelable job = %v, want BadValue", err)
	}
}

func TestQueueCancelReverseRefusedWhenNotReversible(t *testing.T) {
	root := partition.New(1, partition.KindPhysical)
	child := partition.New(2, partition.KindPhysical)
	_ = root.AddChild(child, -1)

	registry := disksystem.NewRegistry()
	child.DiskSystemID = registry.Register(&recordingSystem{})

	jobs := []*Job{
		{Kind: TypeUninitialize, PartitionID: child.ID, Interrupt: InterruptProperties{CanCancel: true, ReverseOnCancel: false}},
	}
	q := NewQueue(jobs, registry, &treeResolver{root: root}, nil, nil)
	q.mu.Lock()
	q.active = 0
	q.mu.Unlock()

	if err := q.Cancel(true); !ddmerrors.Is(err, ddmerrors.BadValue) {
		t.Fatalf("Cancel(reverse) on non-reversible job = %v, want BadValue", err)
	}
}
