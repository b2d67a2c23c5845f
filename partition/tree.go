package partition

import (
	"sort"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

// AddChild inserts child at index (append if index < 0 or index ==
// len(Children)), fixes up sibling indices, sets child.Parent and
// child.DeviceID, and marks the change. The children are then re-sorted
// by Offset and renumbered, so the final position follows the offset,
// not index. Fails BadValue on a nil child or an out-of-range index
// (spec §4.2).
func (p *Partition) AddChild(child *Partition, index int) error {
	if child == nil {
		return ddmerrors.New(ddmerrors.BadValue, "add_child: nil child")
	}
	if index < 0 {
		index = len(p.Children)
	}
	if index > len(p.Children) {
		return ddmerrors.New(ddmerrors.BadValue, "add_child: index %d out of range (len=%d)", index, len(p.Children))
	}

	p.Children = append(p.Children, nil)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = child

	child.Parent = p
	child.DeviceID = p.DeviceID

	p.reindex()
	p.Changed(ChangeChildren)

	return nil
}

// RemoveChildAt removes and returns the child at index, marking the
// removed node obsolete; its descendants are not marked (the caller is
// responsible for unpublishing
// devfs entries and freeing disk-system cookies before or after, per
// the order documented in spec §4.2).
func (p *Partition) RemoveChildAt(index int) (*Partition, error) {
	if index < 0 || index >= len(p.Children) {
		return nil, ddmerrors.New(ddmerrors.BadValue, "remove_child: index %d out of range", index)
	}

	removed := p.Children[index]
	p.Children = append(p.Children[:index], p.Children[index+1:]...)

	removed.Parent = nil
	removed.MarkObsolete()

	p.reindex()
	p.Changed(ChangeChildren)

	return removed, nil
}

// RemoveChild removes child by identity, returning BadValue if it is
// not a direct child of p.
func (p *Partition) RemoveChild(child *Partition) error {
	for i, c := range p.Children {
		if c == child {
			_, err := p.RemoveChildAt(i)
			return err
		}
	}
	return ddmerrors.New(ddmerrors.BadValue, "remove_child: partition %d is not a child of %d", child.ID, p.ID)
}

func (p *Partition) reindex() {
	sort.Slice(p.Children, func(i, j int) bool {
		return p.Children[i].Offset < p.Children[j].Offset
	})
	for i, c := range p.Children {
		c.Index = i
	}
}

// CheckSiblingOrder verifies invariant 2/3: children are offset-sorted,
// non-overlapping, and contained within the parent's byte range.
func (p *Partition) CheckSiblingOrder() error {
	var prevEnd int64 = -1
	for i, c := range p.Children {
		if c.Offset < p.Offset || c.Offset+c.Size > p.Offset+p.Size {
			return ddmerrors.New(ddmerrors.BadValue,
				"partition %d out of parent %d bounds", c.ID, p.ID)
		}
		if c.Offset < prevEnd {
			return ddmerrors.New(ddmerrors.BadValue,
				"partition %d overlaps its preceding sibling", c.ID)
		}
		if c.Index != i {
			return ddmerrors.New(ddmerrors.BadValue,
				"partition %d has index %d, want %d", c.ID, c.Index, i)
		}
		prevEnd = c.Offset + c.Size
	}
	return nil
}

// VisitEachDescendant walks p's subtree in pre-order (p included),
// calling v.Pre on entry and v.Post (if set) on exit. The first Pre
// call returning VisitStop halts the walk immediately and that result
// propagates back to the caller.
func (p *Partition) VisitEachDescendant(v Visitor) VisitResult {
	if v.Pre != nil {
		if r := v.Pre(p); r == VisitStop {
			return VisitStop
		}
	}

	for _, c := range p.Children {
		if r := c.VisitEachDescendant(v); r == VisitStop {
			return VisitStop
		}
	}

	if v.Post != nil {
		v.Post(p)
	}

	return VisitContinue
}

// Find returns the descendant (including p itself) whose id matches,
// or nil.
func (p *Partition) Find(id int32) *Partition {
	var found *Partition
	p.VisitEachDescendant(Visitor{Pre: func(n *Partition) VisitResult {
		if n.ID == id {
			found = n
			return VisitStop
		}
		return VisitContinue
	}})
	return found
}

// Copy deep-copies the subtree rooted at p verbatim, preserving every
// id and Kind — unlike Clone, which always mints fresh ids for a
// shadow staging tree. Copy is for handing back a point-in-time,
// mutation-safe snapshot across the boundary API (spec §6.3's
// get_disk_device_data), where the caller addresses nodes by the same
// ids it already knows.
func (p *Partition) Copy() *Partition {
	cp := &Partition{
		ID: p.ID, Kind: p.Kind, DeviceID: p.DeviceID,
		Offset: p.Offset, Size: p.Size, ContentSize: p.ContentSize,
		BlockSize: p.BlockSize, Index: p.Index,
		Status: p.Status, Flags: p.Flags,
		Name: p.Name, Type: p.Type, Parameters: p.Parameters,
		ContentName: p.ContentName, ContentType: p.ContentType, ContentParameters: p.ContentParameters,
		DiskSystemID:  p.DiskSystemID,
		VolumeID:      p.VolumeID,
		ChangeFlags:   p.ChangeFlags,
		ChangeCounter: p.ChangeCounter,
		OriginID:      p.OriginID,
	}
	for _, c := range p.Children {
		child := c.Copy()
		child.Parent = cp
		cp.Children = append(cp.Children, child)
	}
	return cp
}

// Clone deep-copies the subtree rooted at p, assigning fresh ids via
// nextID and, when asShadow is true, producing KindShadow nodes whose
// OriginID points back at the corresponding physical node — the basis
// for PhysicalPartition.create_shadow_partition (spec §4.2).
func (p *Partition) Clone(nextID func() int32, asShadow bool) *Partition {
	kind := p.Kind
	origin := p.OriginID
	if asShadow {
		kind = KindShadow
		origin = p.ID
	}

	clone := &Partition{
		ID:                  nextID(),
		Kind:                kind,
		DeviceID:            p.DeviceID,
		Offset:              p.Offset,
		Size:                p.Size,
		ContentSize:         p.ContentSize,
		BlockSize:           p.BlockSize,
		Index:               p.Index,
		Status:              p.Status,
		Flags:               p.Flags,
		Name:                p.Name,
		Type:                p.Type,
		Parameters:          p.Parameters,
		ContentName:         p.ContentName,
		ContentType:         p.ContentType,
		ContentParameters:   p.ContentParameters,
		DiskSystemID:        p.DiskSystemID,
		VolumeID:            p.VolumeID,
		OriginID:            origin,
	}

	for _, c := range p.Children {
		child := c.Clone(nextID, asShadow)
		child.Parent = clone
		clone.Children = append(clone.Children, child)
	}

	return clone
}
