package disksystem

import "github.com/diskdevmgr/ddm/partition"

// GenericPartitionableSpaces computes free gaps within p from its
// sorted children, for use when a DiskSystem's GetPartitionableSpaces
// returns implemented=false (spec §6.1: "the manager computes it via a
// generic algorithm"). Children are assumed already offset-sorted, the
// invariant partition.CheckSiblingOrder enforces.
func GenericPartitionableSpaces(p *partition.Partition) []PartitionableSpace {
	var spaces []PartitionableSpace

	cursor := p.Offset
	end := p.Offset + p.Size

	for _, c := range p.Children {
		if c.Offset > cursor {
			spaces = append(spaces, PartitionableSpace{Offset: cursor, Size: c.Offset - cursor})
		}
		cursor = c.Offset + c.Size
	}

	if cursor < end {
		spaces = append(spaces, PartitionableSpace{Offset: cursor, Size: end - cursor})
	}

	return spaces
}
