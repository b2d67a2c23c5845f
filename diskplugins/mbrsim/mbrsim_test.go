package mbrsim

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

type fakeJobContext struct {
	nextID   int32
	progress []float64
}

func (f *fakeJobContext) Progress(fraction float64)               { f.progress = append(f.progress, fraction) }
func (f *fakeJobContext) Logf(format string, args ...interface{}) {}
func (f *fakeJobContext) AllocateID() int32                       { f.nextID++; return f.nextID }

func writeMBRImage(t *testing.T, entries [][2]uint32) string {
	t.Helper()
	buf := make([]byte, sectorSize)
	for i, e := range entries {
		row := buf[tableOffset+i*entrySize : tableOffset+(i+1)*entrySize]
		row[4] = 131 // type byte
		binary.LittleEndian.PutUint32(row[8:12], e[0])
		binary.LittleEndian.PutUint32(row[12:16], e[1])
	}
	buf[signatureByte0] = 0x55
	buf[signatureByte1] = 0xAA

	path := filepath.Join(t.TempDir(), "disk.img")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestIdentifyMatchesSignatureAndParsesEntries(t *testing.T) {
	path := writeMBRImage(t, [][2]uint32{{1, 100}, {200, 50}})

	s := New()
	priority, ck, err := s.Identify(context.Background(), partition.New(1, partition.KindPhysical), path)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if priority < 0 {
		t.Fatalf("priority = %v, want a match", priority)
	}
	c, ok := ck.(*cookie)
	if !ok {
		t.Fatalf("cookie has wrong type: %T", ck)
	}
	if c.entries[0].empty() || c.entries[0].start != 1 || c.entries[0].count != 100 {
		t.Fatalf("entry0 = %+v", c.entries[0])
	}
	if !c.entries[2].empty() {
		t.Fatalf("entry2 should be empty, got %+v", c.entries[2])
	}
}

func TestIdentifyRejectsMissingSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := os.WriteFile(path, make([]byte, sectorSize), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := New()
	priority, _, err := s.Identify(context.Background(), partition.New(1, partition.KindPhysical), path)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if priority >= 0 {
		t.Fatalf("priority = %v, want no match", priority)
	}
}

func TestScanAttachesOneChildPerEntryOnly(t *testing.T) {
	path := writeMBRImage(t, [][2]uint32{{1, 100}, {200, 50}})
	s := New()
	root := partition.New(1, partition.KindPhysical)

	_, ck, err := s.Identify(context.Background(), root, path)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	next := int32(10)
	allocate := func() int32 { next++; return next }
	if err := s.Scan(context.Background(), root, ck, allocate); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	if root.Children[0].Offset != sectorSize || root.Children[0].Size != 100*sectorSize {
		t.Fatalf("child0 = %+v", root.Children[0])
	}
	for _, c := range root.Children {
		if len(c.Children) != 0 {
			t.Fatalf("Scan must not recurse past immediate children, got %+v", c.Children)
		}
	}
}

func TestExecuteCreateChildAppendsNode(t *testing.T) {
	s := New()
	parent := partition.New(1, partition.KindPhysical)
	jc := &fakeJobContext{}

	params := &disksystem.Params{Offset: 1000, Size: 2000, Type: "mbrsim-type-131", NewID: 42}
	if err := s.Execute(context.Background(), disksystem.OpCreateChild, parent, params, jc); err != nil {
		t.Fatalf("Execute create_child: %v", err)
	}

	if len(parent.Children) != 1 || parent.Children[0].ID != 42 {
		t.Fatalf("children = %+v", parent.Children)
	}
	if len(jc.progress) == 0 || jc.progress[len(jc.progress)-1] != 1 {
		t.Fatalf("progress not reported complete: %v", jc.progress)
	}
}

func TestExecuteDeleteChildRemovesByIndex(t *testing.T) {
	s := New()
	parent := partition.New(1, partition.KindPhysical)
	_ = parent.AddChild(partition.New(2, partition.KindPhysical), -1)
	_ = parent.AddChild(partition.New(3, partition.KindPhysical), -1)

	if err := s.Execute(context.Background(), disksystem.OpDeleteChild, parent, &disksystem.Params{ChildIndex: 0}, &fakeJobContext{}); err != nil {
		t.Fatalf("Execute delete_child: %v", err)
	}
	if len(parent.Children) != 1 || parent.Children[0].ID != 3 {
		t.Fatalf("children = %+v", parent.Children)
	}
}

func TestExecuteSetNameTargetsChildByIndex(t *testing.T) {
	s := New()
	parent := partition.New(1, partition.KindPhysical)
	_ = parent.AddChild(partition.New(2, partition.KindPhysical), -1)

	if err := s.Execute(context.Background(), disksystem.OpSetName, parent, &disksystem.Params{ChildIndex: 0, Name: "root"}, &fakeJobContext{}); err != nil {
		t.Fatalf("Execute set_name: %v", err)
	}
	if parent.Children[0].Name != "root" {
		t.Fatalf("name = %q", parent.Children[0].Name)
	}
}

func TestSupportsStructuralOpsOnly(t *testing.T) {
	s := New()
	if supported, _ := s.Supports(disksystem.OpCreateChild); !supported {
		t.Fatalf("expected OpCreateChild supported")
	}
	if supported, _ := s.Supports(disksystem.OpResize); supported {
		t.Fatalf("expected OpResize unsupported (content-level, owned by a filesystem plugin)")
	}
}
