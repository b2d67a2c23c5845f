package job

import (
	"context"
	"sync"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

// QueueStatus is the overall state of a JobQueue.
type QueueStatus int

const (
	QueueIdle QueueStatus = iota
	QueueExecuting
	QueueSucceeded
	QueueFailed
	QueueCanceled
	QueueFailedReverse
)

func (s QueueStatus) String() string {
	names := [...]string{"idle", "executing", "succeeded", "failed", "canceled", "failed_reverse"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Resolver looks a partition up by id within the manager's live tree,
// letting the queue stay independent of the manager package.
type Resolver interface {
	Resolve(id int32) (*partition.Partition, error)
	ParentOf(id int32) (*partition.Partition, error)
}

// ProgressSink receives per-job progress events. NewQueue substitutes a
// discarding sink for nil; nothing forwards these events to notify.
type ProgressSink interface {
	JobStarted(j *Job)
	JobProgress(j *Job, fraction float64)
	JobFinished(j *Job)
}

type nopSink struct{}

func (nopSink) JobStarted(*Job)            {}
func (nopSink) JobProgress(*Job, float64)  {}
func (nopSink) JobFinished(*Job)           {}

// Queue runs a generated job list against the live tree on a single
// worker goroutine (spec §4.6: "one worker thread per job queue").
type Queue struct {
	mu   sync.Mutex
	jobs []*Job

	registry *disksystem.Registry
	resolve  Resolver
	sink     ProgressSink

	status QueueStatus
	active int

	pauseRequested bool
	pauseCh        chan struct{}
	cancelRequested bool
	cancelReverse   bool

	allocateID func() int32
	idSeq      int32

	started chan struct{}
	done    chan struct{}
}

// NewQueue wraps jobs for execution against resolve/registry. sink may
// be nil, in which case progress events are discarded. allocateID may
// be nil, in which case the queue mints locally-scoped ids starting
// from a high offset — fine for tests, but a real manager always
// supplies its own global counter so CreateChild results get ids that
// don't collide with the live tree.
func NewQueue(jobs []*Job, registry *disksystem.Registry, resolve Resolver, sink ProgressSink, allocateID func() int32) *Queue {
	if sink == nil {
		sink = nopSink{}
	}
	q := &Queue{
		jobs:       jobs,
		registry:   registry,
		resolve:    resolve,
		sink:       sink,
		allocateID: allocateID,
		idSeq:      1 << 24,
		started:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	if q.allocateID == nil {
		q.allocateID = q.localAllocateID
	}
	return q
}

func (q *Queue) localAllocateID() int32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.idSeq++
	return q.idSeq
}

// Jobs returns the queue's job list, for status reporting.
func (q *Queue) Jobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Job(nil), q.jobs...)
}

// Status reports the queue's current overall state.
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// Execute marks every job scheduled, starts the worker goroutine, and
// blocks only until that goroutine has begun its loop — not until the
// jobs finish (spec: "release the synchronisation semaphore that
// execute() waits on").
func (q *Queue) Execute(ctx context.Context) {
	q.mu.Lock()
	for _, j := range q.jobs {
		j.Status = StatusScheduled
	}
	q.status = QueueExecuting
	q.mu.Unlock()

	go q.run(ctx)
	<-q.started
}

// Wait blocks until the worker goroutine has finished the queue
// (successfully, by failure, or by cancellation).
func (q *Queue) Wait() {
	<-q.done
}

func (q *Queue) run(ctx context.Context) {
	close(q.started)
	defer close(q.done)

	for i, j := range q.jobs {
		q.mu.Lock()
		q.active = i
		cancel := q.cancelRequested
		reverse := q.cancelReverse
		q.mu.Unlock()

		if cancel {
			q.cancelRemaining(i, reverse)
			return
		}

		j.Status = StatusInProgress
		q.sink.JobStarted(j)

		if err := q.execJob(ctx, j); err != nil {
			j.Status = StatusFailed
			j.ErrorMessage = err.Error()
			q.sink.JobFinished(j)
			q.failRemaining(i + 1)
			q.mu.Lock()
			q.status = QueueFailed
			q.mu.Unlock()
			return
		}

		j.Status = StatusSucceeded
		j.Progress = 1
		q.sink.JobFinished(j)

		q.mu.Lock()
		if q.pauseRequested {
			ch := q.pauseCh
			q.mu.Unlock()
			<-ch
		} else {
			q.mu.Unlock()
		}
	}

	q.mu.Lock()
	q.status = QueueSucceeded
	q.mu.Unlock()
}

func (q *Queue) failRemaining(from int) {
	for _, j := range q.jobs[from:] {
		j.Status = StatusFailed
		j.ErrorMessage = "aborted: a preceding job in this queue failed"
	}
}

func (q *Queue) cancelRemaining(from int, reverse bool) {
	for _, j := range q.jobs[from:] {
		j.Status = StatusCanceled
	}

	if !reverse {
		q.mu.Lock()
		q.status = QueueCanceled
		q.mu.Unlock()
		return
	}

	for i := from - 1; i >= 0; i-- {
		j := q.jobs[i]
		if j.Status != StatusSucceeded {
			continue
		}
		if err := q.reverseJob(j); err != nil {
			ddmlog.Warning("job: reverse of %s failed: %v", j, err)
			j.ErrorMessage = err.Error()
			q.mu.Lock()
			q.status = QueueFailedReverse
			q.mu.Unlock()
			return
		}
		j.reversed = true
		j.Status = StatusCanceled
	}

	q.mu.Lock()
	q.status = QueueCanceled
	q.mu.Unlock()
}

// Pause asks the worker to stop after the currently active job
// completes; the worker blocks until Continue is called.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pauseRequested = true
	q.pauseCh = make(chan struct{})
}

// Continue releases a paused worker.
func (q *Queue) Continue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pauseRequested {
		q.pauseRequested = false
		close(q.pauseCh)
	}
}

// Cancel requests cancellation, optionally with reverse-on-cancel of
// already-succeeded jobs. It is refused with BadValue when the
// currently active job's InterruptProperties forbid the requested
// action (spec scenario 5).
func (q *Queue) Cancel(reverse bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active >= len(q.jobs) {
		return ddmerrors.New(ddmerrors.BadValue, "queue has no active job to cancel")
	}
	active := q.jobs[q.active]
	if !active.Interrupt.CanCancel {
		return ddmerrors.New(ddmerrors.BadValue, "active job %s does not permit cancellation", active)
	}
	if reverse && !active.Interrupt.ReverseOnCancel {
		return ddmerrors.New(ddmerrors.BadValue, "active job %s does not permit reverse-on-cancel", active)
	}

	q.cancelRequested = true
	q.cancelReverse = reverse
	return nil
}

func (q *Queue) execJob(ctx context.Context, j *Job) error {
	node, err := q.resolve.Resolve(j.PartitionID)
	if err != nil && j.Kind != TypeCreateChild {
		return err
	}

	jc := &jobContext{queue: q, job: j}

	switch j.Kind {
	case TypeDeleteChild:
		parent, err := q.resolve.ParentOf(j.PartitionID)
		if err != nil {
			return err
		}
		return q.dispatch(ctx, parent, disksystem.OpDeleteChild, &disksystem.Params{ChildIndex: node.Index}, jc)

	case TypeCreateChild:
		parent, err := q.resolve.Resolve(j.ScopeID)
		if err != nil {
			return err
		}
		return q.dispatch(ctx, parent, disksystem.OpCreateChild, &disksystem.Params{
			Offset: j.Offset, Size: j.Size, Type: j.PartType, Parameters: j.Parameters, NewID: j.PartitionID,
		}, jc)

	case TypeResize:
		op := disksystem.OpResizeChild
		target := node
		if j.ContentOnly {
			op = disksystem.OpResize
		}
		return q.dispatch(ctx, target, op, &disksystem.Params{Offset: j.Offset, Size: j.Size}, jc)

	case TypeMove:
		parent, err := q.resolve.ParentOf(j.PartitionID)
		if err != nil {
			return err
		}
		return q.dispatch(ctx, parent, disksystem.OpMoveChild, &disksystem.Params{ChildIndex: node.Index, Offset: j.Offset}, jc)

	case TypeSetName:
		parent, err := q.resolve.ParentOf(j.PartitionID)
		if err != nil {
			return err
		}
		return q.dispatch(ctx, parent, disksystem.OpSetName, &disksystem.Params{ChildIndex: node.Index, Name: j.Name}, jc)

	case TypeSetType:
		parent, err := q.resolve.ParentOf(j.PartitionID)
		if err != nil {
			return err
		}
		return q.dispatch(ctx, parent, disksystem.OpSetType, &disksystem.Params{ChildIndex: node.Index, Type: j.PartType}, jc)

	case TypeSetParameters:
		parent, err := q.resolve.ParentOf(j.PartitionID)
		if err != nil {
			return err
		}
		return q.dispatch(ctx, parent, disksystem.OpSetParameters, &disksystem.Params{ChildIndex: node.Index, Parameters: j.Parameters}, jc)

	case TypeSetContentName:
		return q.dispatch(ctx, node, disksystem.OpSetContentName, &disksystem.Params{Name: j.Name, ContentName: j.ContentName}, jc)

	case TypeSetContentParameters:
		return q.dispatch(ctx, node, disksystem.OpSetContentParameters, &disksystem.Params{ContentParameters: j.ContentParameters}, jc)

	case TypeInitialize:
		return q.initialize(ctx, node, j, jc)

	case TypeUninitialize:
		oldID := node.DiskSystemID
		node.UninitializeContents()
		if oldID != -1 {
			if err := q.registry.Unload(oldID); err != nil {
				ddmlog.Warning("job: unload of disk system %d after uninitialize of partition %d failed: %v", oldID, node.ID, err)
			}
		}
		return nil

	case TypeDefragment:
		return q.dispatch(ctx, node, disksystem.OpDefragment, &disksystem.Params{}, jc)

	case TypeRepair:
		return q.dispatch(ctx, node, disksystem.OpRepair, &disksystem.Params{CheckOnly: j.CheckOnly}, jc)

	case TypeScanPartition:
		return nil

	default:
		return ddmerrors.New(ddmerrors.BadValue, "unknown job kind %v", j.Kind)
	}
}

// initialize binds node's content disk system by content-type name
// rather than by node.DiskSystemID: unlike every other write op,
// Initialize runs before a disk system is bound (node.DiskSystemID is
// -1 until this call succeeds), so the target module is looked up by
// the type string the shadow edit requested and recorded on success.
func (q *Queue) initialize(ctx context.Context, node *partition.Partition, j *Job, jc disksystem.JobContext) error {
	sysID, err := q.registry.FindByName(j.PartType)
	if err != nil {
		return err
	}
	sys, err := q.registry.Get(sysID)
	if err != nil {
		return err
	}
	if err := sys.Execute(ctx, disksystem.OpInitialize, node, &disksystem.Params{Type: j.PartType, Parameters: j.Parameters}, jc); err != nil {
		return err
	}
	node.DiskSystemID = sysID
	return nil
}

func (q *Queue) dispatch(ctx context.Context, node *partition.Partition, op disksystem.Operation, params *disksystem.Params, jc disksystem.JobContext) error {
	if node.DiskSystemID == -1 {
		return ddmerrors.New(ddmerrors.NotAllowed, "partition %d has no disk system bound for %s", node.ID, op)
	}
	sys, err := q.registry.Get(node.DiskSystemID)
	if err != nil {
		return err
	}
	return sys.Execute(ctx, op, node, params, jc)
}

// reverseJob performs the best-effort inverse of an already-succeeded
// job. A job whose InterruptProperties.ReverseOnCancel is false is
// refused with Reversed, which makes cancelRemaining stop the reverse
// pass and mark the queue QueueFailedReverse.
func (q *Queue) reverseJob(j *Job) error {
	if !j.Interrupt.ReverseOnCancel {
		return ddmerrors.New(ddmerrors.Reversed, "job %s is not invertible", j)
	}

	node, err := q.resolve.Resolve(j.PartitionID)
	if err != nil {
		return err
	}
	jc := &jobContext{queue: q, job: j}

	switch j.Kind {
	case TypeMove:
		parent, err := q.resolve.ParentOf(j.PartitionID)
		if err != nil {
			return err
		}
		return q.dispatch(context.Background(), parent, disksystem.OpMoveChild, &disksystem.Params{ChildIndex: node.Index, Offset: node.Offset}, jc)
	case TypeResize:
		op := disksystem.OpResizeChild
		if j.ContentOnly {
			op = disksystem.OpResize
		}
		return q.dispatch(context.Background(), node, op, &disksystem.Params{Offset: node.Offset, Size: node.Size}, jc)
	case TypeCreateChild:
		parent, err := q.resolve.ParentOf(j.PartitionID)
		if err != nil {
			return err
		}
		return q.dispatch(context.Background(), parent, disksystem.OpDeleteChild, &disksystem.Params{ChildIndex: node.Index}, jc)
	default:
		return ddmerrors.New(ddmerrors.Reversed, "job %s has no defined inverse", j)
	}
}

// jobContext adapts a Job's progress fields to disksystem.JobContext.
type jobContext struct {
	queue *Queue
	job   *Job
}

func (jc *jobContext) Progress(fraction float64) {
	jc.job.Progress = fraction
	jc.queue.sink.JobProgress(jc.job, fraction)
}

func (jc *jobContext) Logf(format string, args ...interface{}) {
	ddmlog.Debug("job %s: "+format, append([]interface{}{jc.job}, args...)...)
}

func (jc *jobContext) AllocateID() int32 {
	return jc.queue.allocateID()
}
