package disksystem

import (
	"context"
	"testing"

	"github.com/diskdevmgr/ddm/partition"
)

type fakeSystem struct {
	name string
}

func (f *fakeSystem) Name() string       { return f.name }
func (f *fakeSystem) PrettyName() string { return f.name }
func (f *fakeSystem) IsFileSystem() bool { return false }

func (f *fakeSystem) Identify(ctx context.Context, p *partition.Partition, devicePath string) (float64, any, error) {
	return 0.5, nil, nil
}
func (f *fakeSystem) Scan(ctx context.Context, p *partition.Partition, cookie any, allocateID func() int32) error {
	return nil
}
func (f *fakeSystem) FreeIdentifyCookie(cookie any)                                      {}
func (f *fakeSystem) FreeCookie(p *partition.Partition)                                  {}
func (f *fakeSystem) FreeContentCookie(p *partition.Partition)                           {}
func (f *fakeSystem) Supports(op Operation) (bool, bool)                                 { return true, false }
func (f *fakeSystem) IsSubSystemFor(p *partition.Partition) bool                         { return false }
func (f *fakeSystem) Validate(ctx context.Context, op Operation, p *partition.Partition, params *Params) error {
	return nil
}
func (f *fakeSystem) Execute(ctx context.Context, op Operation, p *partition.Partition, params *Params, jc JobContext) error {
	return nil
}
func (f *fakeSystem) ShadowPartitionChanged(ctx context.Context, op Operation, p *partition.Partition) error {
	return nil
}
func (f *fakeSystem) GetNextSupportedType(cookie *int) (string, bool) { return "", false }
func (f *fakeSystem) GetTypeForContentType(contentType string) (string, bool) {
	return "", false
}
func (f *fakeSystem) GetPartitionableSpaces(p *partition.Partition) ([]PartitionableSpace, bool, error) {
	return nil, false, nil
}

func TestRegisterIsIdempotentByName(t *testing.T) {
	r := NewRegistry()
	id1 := r.Register(&fakeSystem{name: "mbr"})
	id2 := r.Register(&fakeSystem{name: "mbr"})

	if id1 != id2 {
		t.Fatalf("re-registering same name produced different ids: %d, %d", id1, id2)
	}

	id3 := r.Register(&fakeSystem{name: "gpt"})
	if id3 == id1 {
		t.Fatal("distinct names should get distinct ids")
	}
}

func TestLoadUnloadNesting(t *testing.T) {
	r := NewRegistry()
	id := r.Register(&fakeSystem{name: "fat32"})

	if err := r.Load(id); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := r.Load(id); err != nil {
		t.Fatalf("Load (nested): %v", err)
	}
	if r.LoadCount(id) != 2 {
		t.Fatalf("LoadCount = %d, want 2", r.LoadCount(id))
	}

	if err := r.Unload(id); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if r.LoadCount(id) != 1 {
		t.Fatalf("LoadCount after one unload = %d, want 1", r.LoadCount(id))
	}

	if err := r.Unload(id); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if err := r.Unload(id); err == nil {
		t.Fatal("expected error unloading an already-unloaded system")
	}
}

func TestFindByNameAndGet(t *testing.T) {
	r := NewRegistry()
	id := r.Register(&fakeSystem{name: "ext4"})

	found, err := r.FindByName("ext4")
	if err != nil || found != id {
		t.Fatalf("FindByName = %d, %v; want %d, nil", found, err, id)
	}

	if _, err := r.FindByName("no-such-system"); err == nil {
		t.Fatal("expected NotFound for unregistered name")
	}

	sys, err := r.Get(id)
	if err != nil || sys.Name() != "ext4" {
		t.Fatalf("Get(%d) = %v, %v", id, sys, err)
	}

	if _, err := r.Get(999); err == nil {
		t.Fatal("expected NotFound for unknown id")
	}
}

func TestGenericPartitionableSpaces(t *testing.T) {
	dev := partition.New(1, partition.KindPhysical)
	dev.Offset, dev.Size = 0, 1000

	c0 := partition.New(2, partition.KindPhysical)
	c0.Offset, c0.Size = 100, 200
	c1 := partition.New(3, partition.KindPhysical)
	c1.Offset, c1.Size = 500, 100

	_ = dev.AddChild(c0, -1)
	_ = dev.AddChild(c1, -1)

	spaces := GenericPartitionableSpaces(dev)
	want := []PartitionableSpace{
		{Offset: 0, Size: 100},
		{Offset: 300, Size: 200},
		{Offset: 600, Size: 400},
	}

	if len(spaces) != len(want) {
		t.Fatalf("spaces = %v, want %v", spaces, want)
	}
	for i := range want {
		if spaces[i] != want[i] {
			t.Errorf("spaces[%d] = %v, want %v", i, spaces[i], want[i])
		}
	}
}
