package job

import (
	"testing"

	"github.com/diskdevmgr/ddm/partition"
)

func cloneAsShadow(t *testing.T, root *partition.Partition, nextID *int32) *partition.Partition {
	t.Helper()
	return root.Clone(func() int32 {
		*nextID++
		return *nextID
	}, true)
}

func buildPhysicalTree() *partition.Partition {
	root := partition.New(1, partition.KindPhysical)
	root.Offset, root.Size = 0, 1000

	c1 := partition.New(2, partition.KindPhysical)
	c1.Offset, c1.Size = 0, 400
	c2 := partition.New(3, partition.KindPhysical)
	c2.Offset, c2.Size = 400, 300

	_ = root.AddChild(c1, -1)
	_ = root.AddChild(c2, -1)

	return root
}

func TestGenerateEmitsNothingWhenShadowMatchesPhysical(t *testing.T) {
	physical := buildPhysicalTree()
	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)

	jobs, err := Generate(physical, shadow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs for an unmodified shadow, got %v", jobs)
	}
}

func TestGenerateDeleteChildPostOrder(t *testing.T) {
	physical := buildPhysicalTree()
	grandchild := partition.New(4, partition.KindPhysical)
	grandchild.Offset, grandchild.Size = 0, 100
	_ = physical.Children[0].AddChild(grandchild, -1)

	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)
	// drop the first child (and its grandchild) from the shadow
	shadow.Children = shadow.Children[1:]

	jobs, err := Generate(physical, shadow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var deletes []*Job
	for _, j := range jobs {
		if j.Kind == TypeDeleteChild {
			deletes = append(deletes, j)
		}
	}
	if len(deletes) != 2 {
		t.Fatalf("expected 2 delete jobs, got %d: %v", len(deletes), deletes)
	}
	if deletes[0].PartitionID != grandchild.ID {
		t.Fatalf("expected grandchild (%d) deleted before its parent, got order %v", grandchild.ID, deletes)
	}
	if deletes[1].PartitionID != physical.Children[0].ID {
		t.Fatalf("expected parent deleted second, got %v", deletes)
	}
}

func TestGenerateShrinkResizesContentBeforeStructure(t *testing.T) {
	physical := buildPhysicalTree()
	leaf := physical.Children[0]
	leaf.ContentSize = 400

	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)
	shadowLeaf := shadow.Children[0]
	shadowLeaf.Size = 250
	shadowLeaf.ContentSize = 250

	jobs, err := Generate(physical, shadow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var resizes []*Job
	for _, j := range jobs {
		if j.Kind == TypeResize && j.PartitionID == leaf.ID {
			resizes = append(resizes, j)
		}
	}
	if len(resizes) != 2 {
		t.Fatalf("expected 2 resize jobs, got %d: %v", len(resizes), resizes)
	}
	if !resizes[0].ContentOnly || resizes[1].ContentOnly {
		t.Fatalf("expected content resize before structural resize on shrink, got %v", resizes)
	}
}

func TestGenerateGrowResizesStructureBeforeContent(t *testing.T) {
	physical := buildPhysicalTree()
	leaf := physical.Children[1]
	leaf.ContentSize = 300

	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)
	shadowLeaf := shadow.Children[1]
	shadowLeaf.Size = 500
	shadowLeaf.ContentSize = 500

	jobs, err := Generate(physical, shadow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var resizes []*Job
	for _, j := range jobs {
		if j.Kind == TypeResize && j.PartitionID == leaf.ID {
			resizes = append(resizes, j)
		}
	}
	if len(resizes) != 2 {
		t.Fatalf("expected 2 resize jobs, got %d: %v", len(resizes), resizes)
	}
	if resizes[0].ContentOnly || !resizes[1].ContentOnly {
		t.Fatalf("expected structural resize before content resize on grow, got %v", resizes)
	}
}

func TestGenerateCreateChildThenInitializeThenSets(t *testing.T) {
	physical := buildPhysicalTree()
	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)

	newChild := partition.New(999, partition.KindShadow)
	newChild.OriginID = -1
	newChild.Offset, newChild.Size = 700, 200
	newChild.Type = "ext4"
	newChild.ContentType = "ext4"
	newChild.Name = "data"
	_ = shadow.AddChild(newChild, -1)

	jobs, err := Generate(physical, shadow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var kinds []Type
	for _, j := range jobs {
		if j.PartitionID == newChild.ID || j.ScopeID == physical.ID && j.Kind == TypeCreateChild {
			kinds = append(kinds, j.Kind)
		}
	}
	if len(kinds) < 3 {
		t.Fatalf("expected at least create/initialize/set jobs, got %v", kinds)
	}
	if kinds[0] != TypeCreateChild || kinds[1] != TypeInitialize {
		t.Fatalf("expected CreateChild then Initialize first, got %v", kinds)
	}
}

func TestGenerateSetNameOnChangedAttribute(t *testing.T) {
	physical := buildPhysicalTree()
	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)

	target := shadow.Children[0]
	target.Name = "renamed"
	target.Changed(partition.ChangeName)

	jobs, err := Generate(physical, shadow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	found := false
	for _, j := range jobs {
		if j.Kind == TypeSetName && j.PartitionID == physical.Children[0].ID && j.Name == "renamed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SetName job for the renamed child, got %v", jobs)
	}
}

func TestGenerateMoveUnrealizableArrangementFails(t *testing.T) {
	physical := buildPhysicalTree()
	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)

	// Swap both children's positions without shrinking either: neither
	// can move without overlapping the other's current occupied range.
	shadow.Children[0].Offset = 400
	shadow.Children[1].Offset = 0

	if _, err := Generate(physical, shadow); err == nil {
		t.Fatal("expected Generate to fail on an unrealizable swap")
	}
}

func TestGenerateMoveSimpleShift(t *testing.T) {
	physical := buildPhysicalTree()
	// open a gap after c1 by shrinking it first in both trees (so the
	// move step alone is exercised): c2 moves left to fill the gap.
	physical.Children[0].Size = 200
	physical.Children[1].Offset = 200

	nextID := int32(100)
	shadow := cloneAsShadow(t, physical, &nextID)
	shadow.Children[1].Offset = 200 // unchanged; sanity baseline

	// Now stage an actual move: shift c2 further left to directly abut
	// c1's current end, which is already its physical position, so
	// instead shrink c1 further in the shadow and move c2 into the gap.
	shadow.Children[0].Size = 100
	shadow.Children[1].Offset = 100

	jobs, err := Generate(physical, shadow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var moved bool
	for _, j := range jobs {
		if j.Kind == TypeMove && j.PartitionID == physical.Children[1].ID {
			moved = true
			if j.Offset != 100 {
				t.Fatalf("move target = %d, want 100", j.Offset)
			}
		}
	}
	if !moved {
		t.Fatalf("expected a move job for c2, got %v", jobs)
	}
}
