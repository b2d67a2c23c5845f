package job

import (
	"fmt"
	"sort"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/partition"
)

// childPair links a surviving physical child to its shadow
// counterpart, matched by the shadow's OriginID.
type childPair struct {
	Physical *partition.Partition
	Shadow   *partition.Partition
}

// matchChildren partitions shadowParent's children against
// physicalParent's: survivors have a physical counterpart (matched by
// OriginID), newChildren have none (OriginID == -1), and deleted holds
// physical children with no surviving shadow counterpart.
func matchChildren(physicalParent, shadowParent *partition.Partition) (survivors []childPair, newChildren, deleted []*partition.Partition) {
	shadowByOrigin := make(map[int32]*partition.Partition, len(shadowParent.Children))
	for _, s := range shadowParent.Children {
		if s.OriginID == -1 {
			newChildren = append(newChildren, s)
			continue
		}
		shadowByOrigin[s.OriginID] = s
	}

	for _, p := range physicalParent.Children {
		if s, ok := shadowByOrigin[p.ID]; ok {
			survivors = append(survivors, childPair{Physical: p, Shadow: s})
			continue
		}
		deleted = append(deleted, p)
	}

	return survivors, newChildren, deleted
}

// collectPairs walks the surviving tree from (physical, shadow)
// downward, including the root pair itself, in pre-order.
func collectPairs(physical, shadow *partition.Partition) []childPair {
	pairs := []childPair{{Physical: physical, Shadow: shadow}}
	survivors, _, _ := matchChildren(physical, shadow)
	for _, pr := range survivors {
		pairs = append(pairs, collectPairs(pr.Physical, pr.Shadow)...)
	}
	return pairs
}

// Generate compares physical (the live device tree) against shadow
// (the committed staging tree sharing node identity via OriginID) and
// produces the ordered job list described by the seven-step generation
// algorithm. It fails only when step 4's placement pass cannot realize
// the requested arrangement.
func Generate(physical, shadow *partition.Partition) ([]*Job, error) {
	var jobs []*Job

	jobs = append(jobs, generateDeletions(physical, shadow)...)
	jobs = append(jobs, generateUninitializes(physical, shadow)...)
	jobs = append(jobs, generateResizes(physical, shadow)...)

	moveJobs, err := generateMoves(physical, shadow)
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, moveJobs...)

	jobs = append(jobs, generateCreates(physical, shadow)...)
	jobs = append(jobs, generateSets(physical, shadow)...)

	return jobs, nil
}

// step 1: DeleteChild, post-order (leaves first).
func generateDeletions(physicalParent, shadowParent *partition.Partition) []*Job {
	survivors, _, deleted := matchChildren(physicalParent, shadowParent)

	var jobs []*Job
	for _, pr := range survivors {
		jobs = append(jobs, generateDeletions(pr.Physical, pr.Shadow)...)
	}
	for _, d := range deleted {
		jobs = append(jobs, deleteSubtreePostOrder(physicalParent, d)...)
	}
	return jobs
}

func deleteSubtreePostOrder(parent, node *partition.Partition) []*Job {
	var jobs []*Job
	for _, c := range node.Children {
		jobs = append(jobs, deleteSubtreePostOrder(node, c)...)
	}
	jobs = append(jobs, &Job{
		Kind:        TypeDeleteChild,
		PartitionID: node.ID,
		ScopeID:     parent.ID,
		Description: fmt.Sprintf("delete child %d from %d", node.ID, parent.ID),
		Interrupt:   InterruptProperties{CanCancel: true, ReverseOnCancel: false},
	})
	return jobs
}

// step 2: Uninitialize wherever the shadow's change_flags mark
// initialization as changed.
func generateUninitializes(physical, shadow *partition.Partition) []*Job {
	var jobs []*Job
	for _, pr := range collectPairs(physical, shadow) {
		if pr.Shadow.ChangeFlags.Has(partition.ChangeInitialization) {
			jobs = append(jobs, &Job{
				Kind:        TypeUninitialize,
				PartitionID: pr.Physical.ID,
				Description: fmt.Sprintf("uninitialize %d", pr.Physical.ID),
				Interrupt:   InterruptProperties{CanCancel: false, ReverseOnCancel: false},
			})
		}
	}
	return jobs
}

// step 3: recursive grow/shrink Resize ordering. Growing emits Resize
// before recursing into children (make room first); shrinking recurses
// first (vacate children before shrinking the container).
func generateResizes(physical, shadow *partition.Partition) []*Job {
	var jobs []*Job

	sizeChanged := shadow.Size != physical.Size
	contentChanged := shadow.ContentSize != physical.ContentSize
	grow := shadow.Size > physical.Size

	if grow && contentChanged {
		jobs = append(jobs, resizeJob(physical, shadow, true))
	}
	if grow && sizeChanged {
		jobs = append(jobs, resizeJob(physical, shadow, false))
	}

	survivors, _, _ := matchChildren(physical, shadow)
	for _, pr := range survivors {
		jobs = append(jobs, generateResizes(pr.Physical, pr.Shadow)...)
	}

	if !grow && contentChanged {
		jobs = append(jobs, resizeJob(physical, shadow, true))
	}
	if !grow && sizeChanged {
		jobs = append(jobs, resizeJob(physical, shadow, false))
	}

	return jobs
}

func resizeJob(physical, shadow *partition.Partition, contentOnly bool) *Job {
	desc := fmt.Sprintf("resize %d to %d", physical.ID, shadow.Size)
	size := shadow.Size
	if contentOnly {
		desc = fmt.Sprintf("resize content of %d to %d", physical.ID, shadow.ContentSize)
		size = shadow.ContentSize
	}
	return &Job{
		Kind:        TypeResize,
		PartitionID: physical.ID,
		Description: desc,
		ContentOnly: contentOnly,
		Offset:      shadow.Offset,
		Size:        size,
		Interrupt:   InterruptProperties{CanCancel: true, ReverseOnCancel: true},
	}
}

// step 4: per-parent move placement, then recurse into survivors.
func generateMoves(physical, shadow *partition.Partition) ([]*Job, error) {
	survivors, _, _ := matchChildren(physical, shadow)

	jobs, err := generateMovesForParent(physical, survivors)
	if err != nil {
		return nil, err
	}

	for _, pr := range survivors {
		childJobs, err := generateMoves(pr.Physical, pr.Shadow)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, childJobs...)
	}

	return jobs, nil
}

type moveEntry struct {
	pair   childPair
	pos    int64
	target int64
	size   int64
	moved  bool
}

// generateMovesForParent implements the placement pass within one
// parent: sort surviving children by current position, then
// iteratively move whichever side (back toward the start, or forth
// toward the end) has fewer remaining candidates, breaking ties by
// moving back first. A pass that moves nothing means the requested
// arrangement cannot be realized without a free staging area.
func generateMovesForParent(parent *partition.Partition, survivors []childPair) ([]*Job, error) {
	var entries []*moveEntry
	for _, pr := range survivors {
		if pr.Physical.Offset != pr.Shadow.Offset {
			entries = append(entries, &moveEntry{
				pair: pr, pos: pr.Physical.Offset, target: pr.Shadow.Offset, size: pr.Physical.Size,
			})
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	var jobs []*Job
	remaining := len(entries)

	for remaining > 0 {
		var back, forth []*moveEntry

		for i, e := range entries {
			if e.moved {
				continue
			}
			switch {
			case e.target < e.pos:
				prevEnd := parent.Offset
				if i > 0 {
					prevEnd = entryEnd(entries[i-1])
				}
				if e.target >= prevEnd {
					back = append(back, e)
				}
			case e.target > e.pos:
				nextStart := parent.Offset + parent.Size
				if i+1 < len(entries) {
					nextStart = entries[i+1].pos
				}
				if e.target+e.size <= nextStart {
					forth = append(forth, e)
				}
			}
		}

		if len(back) == 0 && len(forth) == 0 {
			return nil, ddmerrors.New(ddmerrors.BadValue,
				"cannot realize requested arrangement of children under partition %d", parent.ID)
		}

		var chosen []*moveEntry
		if len(forth) == 0 || (len(back) > 0 && len(back) <= len(forth)) {
			chosen = back
		} else {
			chosen = forth
		}

		for _, e := range chosen {
			jobs = append(jobs, &Job{
				Kind:           TypeMove,
				PartitionID:    e.pair.Physical.ID,
				ScopeID:        parent.ID,
				Description:    fmt.Sprintf("move partition %d from %d to %d", e.pair.Physical.ID, e.pos, e.target),
				Offset:         e.target,
				Interrupt:      InterruptProperties{CanCancel: true, ReverseOnCancel: true},
				MoveContentIDs: descendantsWithContent(e.pair.Physical),
			})
			e.moved = true
			remaining--
		}
	}

	return jobs, nil
}

func entryEnd(e *moveEntry) int64 {
	if e.moved {
		return e.target + e.size
	}
	return e.pos + e.size
}

// descendantsWithContent collects every strict descendant of node that
// carries recognised content, approximating "disk systems that report
// a non-identity move" with "has content to move at all".
func descendantsWithContent(node *partition.Partition) []int32 {
	var ids []int32
	for _, c := range node.Children {
		c.VisitEachDescendant(partition.Visitor{Pre: func(n *partition.Partition) partition.VisitResult {
			if n.HasContent() {
				ids = append(ids, n.ID)
			}
			return partition.VisitContinue
		}})
	}
	return ids
}

// step 5: CreateChild, Initialize, and per-attribute Set* jobs for
// shadow children with no physical counterpart.
func generateCreates(physical, shadow *partition.Partition) []*Job {
	var jobs []*Job

	survivors, newChildren, _ := matchChildren(physical, shadow)

	for _, s := range newChildren {
		jobs = append(jobs, &Job{
			Kind:        TypeCreateChild,
			PartitionID: s.ID,
			ScopeID:     physical.ID,
			Description: fmt.Sprintf("create child at offset %d size %d under %d", s.Offset, s.Size, physical.ID),
			Offset:      s.Offset,
			Size:        s.Size,
			PartType:    s.Type,
			Parameters:  s.Parameters,
			Interrupt:   InterruptProperties{CanCancel: true, ReverseOnCancel: true},
		})
		jobs = append(jobs, &Job{
			Kind:        TypeInitialize,
			PartitionID: s.ID,
			Description: fmt.Sprintf("initialize %d as %s", s.ID, s.ContentType),
			PartType:    s.ContentType,
			Parameters:  s.ContentParameters,
			Interrupt:   InterruptProperties{CanCancel: true, ReverseOnCancel: false},
		})
		if s.Name != "" {
			jobs = append(jobs, &Job{Kind: TypeSetName, PartitionID: s.ID, ScopeID: physical.ID, Name: s.Name,
				Description: fmt.Sprintf("set name of %d to %q", s.ID, s.Name)})
		}
		if s.ContentName != "" {
			jobs = append(jobs, &Job{Kind: TypeSetContentName, PartitionID: s.ID, ContentName: s.ContentName,
				Description: fmt.Sprintf("set content name of %d to %q", s.ID, s.ContentName)})
		}
	}

	for _, pr := range survivors {
		jobs = append(jobs, generateCreates(pr.Physical, pr.Shadow)...)
	}

	return jobs
}

// step 6: Set* jobs for surviving children whose attribute bits (other
// than offset/size, already covered by steps 3-4) changed.
func generateSets(physical, shadow *partition.Partition) []*Job {
	var jobs []*Job

	for _, pr := range collectPairs(physical, shadow) {
		flags := pr.Shadow.ChangeFlags

		if flags.Has(partition.ChangeName) {
			jobs = append(jobs, &Job{Kind: TypeSetName, PartitionID: pr.Physical.ID, Name: pr.Shadow.Name,
				Description: fmt.Sprintf("set name of %d to %q", pr.Physical.ID, pr.Shadow.Name)})
		}
		if flags.Has(partition.ChangeType) {
			jobs = append(jobs, &Job{Kind: TypeSetType, PartitionID: pr.Physical.ID, PartType: pr.Shadow.Type,
				Description: fmt.Sprintf("set type of %d to %q", pr.Physical.ID, pr.Shadow.Type)})
		}
		if flags.Has(partition.ChangeParameters) {
			jobs = append(jobs, &Job{Kind: TypeSetParameters, PartitionID: pr.Physical.ID, Parameters: pr.Shadow.Parameters,
				Description: fmt.Sprintf("set parameters of %d", pr.Physical.ID)})
		}
		if flags.Has(partition.ChangeContentName) {
			jobs = append(jobs, &Job{Kind: TypeSetContentName, PartitionID: pr.Physical.ID, ContentName: pr.Shadow.ContentName,
				Description: fmt.Sprintf("set content name of %d to %q", pr.Physical.ID, pr.Shadow.ContentName)})
		}
		if flags.Has(partition.ChangeContentParameters) {
			jobs = append(jobs, &Job{Kind: TypeSetContentParameters, PartitionID: pr.Physical.ID, ContentParameters: pr.Shadow.ContentParameters,
				Description: fmt.Sprintf("set content parameters of %d", pr.Physical.ID)})
		}
	}

	return jobs
}
