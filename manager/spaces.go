package manager

import (
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

// genericPartitionableSpaces computes free regions directly under p by
// scanning its offset-sorted children for gaps — the manager's
// fallback when p's disk system does not implement
// GetPartitionableSpaces (spec §6.1).
func genericPartitionableSpaces(p *partition.Partition) []disksystem.PartitionableSpace {
	var spaces []disksystem.PartitionableSpace

	cursor := p.Offset
	for _, c := range p.Children {
		if c.Offset > cursor {
			spaces = append(spaces, disksystem.PartitionableSpace{Offset: cursor, Size: c.Offset - cursor})
		}
		cursor = c.Offset + c.Size
	}

	if end := p.Offset + p.Size; cursor < end {
		spaces = append(spaces, disksystem.PartitionableSpace{Offset: cursor, Size: end - cursor})
	}

	return spaces
}

// PartitionableSpaces returns partitionID's free regions (spec's
// get_partitionable_spaces), delegating to the owning disk system when
// it implements one, otherwise falling back to a generic sorted-
// children gap scan. Refuses BadValue on a stale change_counter, since
// a caller's size/offset math is only sound against the tree it last
// observed.
func (m *Manager) PartitionableSpaces(partitionID int32, counter int64) ([]disksystem.PartitionableSpace, error) {
	m.mu.Lock()
	p, err := m.partitionLocked(partitionID)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := p.CheckCounter(counter); err != nil {
		return nil, err
	}

	if p.DiskSystemID != -1 {
		sys, err := m.registry.Get(p.DiskSystemID)
		if err != nil {
			return nil, err
		}
		if spaces, implemented, err := sys.GetPartitionableSpaces(p); err != nil {
			return nil, err
		} else if implemented {
			return spaces, nil
		}
	}

	return genericPartitionableSpaces(p), nil
}
