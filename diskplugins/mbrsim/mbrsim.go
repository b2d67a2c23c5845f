// Package mbrsim is a reference partitioning-system disksystem.DiskSystem:
// it identifies a 4-entry MBR-shaped byte layout, scans one physical
// child per occupied table entry, and edits the table either against
// the in-memory model alone or, with DDM_REAL_EXEC=1, through a real
// sfdisk/parted invocation (SPEC_FULL.md §6.1's "reference plugin").
// It is named after the classic boot-sector layout it mimics but makes
// no claim to implement MBR correctly: entries are fixed-size and the
// on-disk format exists only to give Identify something real to read.
package mbrsim

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/diskdevmgr/ddm/cmdutil"
	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

const (
	sectorSize     = 512
	tableOffset    = 446
	entrySize      = 16
	entryCount     = 4
	signatureByte0 = 510
	signatureByte1 = 511
)

// entry is one 16-byte MBR-shaped table row: status, type, start
// sector, sector count. Real CHS geometry fields are not modeled.
type entry struct {
	status byte
	typ    byte
	start  uint32
	count  uint32
}

func (e entry) empty() bool { return e.typ == 0 }

// cookie is what Identify hands to Scan: the parsed table, so Scan
// never has to reopen the device.
type cookie struct {
	entries [entryCount]entry
}

// System implements disksystem.DiskSystem for the mbrsim table format.
type System struct{}

func New() *System { return &System{} }

func (s *System) Name() string       { return "mbrsim" }
func (s *System) PrettyName() string { return "Simulated MBR Partition Table" }
func (s *System) IsFileSystem() bool { return false }

// Identify reads the first sector of devicePath and checks for the
// 0x55 0xAA boot signature. Reads are always real regardless of
// cmdutil.RealExecEnabled(): only destructive writes are gated.
func (s *System) Identify(ctx context.Context, p *partition.Partition, devicePath string) (float64, any, error) {
	f, err := os.Open(p.Path(devicePath))
	if err != nil {
		return -1, nil, nil
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sectorSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return -1, nil, nil
	}
	if buf[signatureByte0] != 0x55 || buf[signatureByte1] != 0xAA {
		return -1, nil, nil
	}

	var c cookie
	for i := 0; i < entryCount; i++ {
		row := buf[tableOffset+i*entrySize : tableOffset+(i+1)*entrySize]
		c.entries[i] = entry{
			status: row[0],
			typ:    row[4],
			start:  binary.LittleEndian.Uint32(row[8:12]),
			count:  binary.LittleEndian.Uint32(row[12:16]),
		}
	}
	return 0.5, &c, nil
}

// Scan attaches one physical child per occupied table entry. It never
// recurses past its immediate children; the manager's rescan walk is
// what descends into grandchildren once Scan returns.
func (s *System) Scan(ctx context.Context, p *partition.Partition, ck any, allocateID func() int32) error {
	c, ok := ck.(*cookie)
	if !ok || c == nil {
		return ddmerrors.New(ddmerrors.BadValue, "mbrsim: scan called without an identify cookie")
	}

	for _, e := range c.entries {
		if e.empty() {
			continue
		}
		child := partition.New(allocateID(), partition.KindPhysical)
		child.Offset = int64(e.start) * sectorSize
		child.Size = int64(e.count) * sectorSize
		child.BlockSize = sectorSize
		child.Type = fmt.Sprintf("mbrsim-type-%d", e.typ)
		if err := p.AddChild(child, -1); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) FreeIdentifyCookie(cookie any)            {}
func (s *System) FreeCookie(p *partition.Partition)        {}
func (s *System) FreeContentCookie(p *partition.Partition) {}

// Supports reports the structural table edits mbrsim owns: creating,
// deleting, moving, and retyping a child, plus setting a child's name
// and generic parameters. Content-level operations (resize, defragment,
// initialize, ...) belong to whatever file-system plugin is bound to
// the child itself.
func (s *System) Supports(op disksystem.Operation) (supported bool, whileMounted bool) {
	switch op {
	case disksystem.OpCreateChild, disksystem.OpDeleteChild,
		disksystem.OpMoveChild, disksystem.OpMove,
		disksystem.OpSetType, disksystem.OpSetName, disksystem.OpSetParameters:
		return true, false
	default:
		return false, false
	}
}

func (s *System) IsSubSystemFor(p *partition.Partition) bool { return false }

// Validate snaps Offset/Size to the sector size mbrsim's table rows
// are quantized to; Execute re-validates the same way rather than
// trusting this call, per the module contract's ordering rule.
func (s *System) Validate(ctx context.Context, op disksystem.Operation, p *partition.Partition, params *disksystem.Params) error {
	switch op {
	case disksystem.OpCreateChild, disksystem.OpMoveChild, disksystem.OpMove:
		params.Offset = snapToSector(params.Offset)
		params.Size = snapToSector(params.Size)
	}
	return nil
}

func snapToSector(v int64) int64 {
	return (v / sectorSize) * sectorSize
}

// Execute performs the write. p is the parent container for every
// operation here except OpMove, which targets p directly.
func (s *System) Execute(ctx context.Context, op disksystem.Operation, p *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	switch op {
	case disksystem.OpCreateChild:
		return s.execCreateChild(ctx, p, params, jc)
	case disksystem.OpDeleteChild:
		return s.execDeleteChild(ctx, p, params, jc)
	case disksystem.OpMoveChild:
		return s.execMoveChild(ctx, p, params, jc)
	case disksystem.OpMove:
		return s.execMove(ctx, p, params, jc)
	case disksystem.OpSetType:
		return s.execSetType(ctx, p, params, jc)
	case disksystem.OpSetName:
		return s.execSetName(ctx, p, params, jc)
	case disksystem.OpSetParameters:
		return s.execSetParameters(ctx, p, params, jc)
	default:
		return ddmerrors.New(ddmerrors.BadValue, "mbrsim: unsupported operation %s", op)
	}
}

func (s *System) execCreateChild(ctx context.Context, parent *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	child := partition.New(params.NewID, partition.KindPhysical)
	child.Offset = snapToSector(params.Offset)
	child.Size = snapToSector(params.Size)
	child.BlockSize = sectorSize
	child.Type = params.Type
	child.Parameters = params.Parameters
	if err := parent.AddChild(child, -1); err != nil {
		return err
	}
	jc.Progress(0.5)

	if cmdutil.RealExecEnabled() {
		if err := cmdutil.RunAndLog(ctx, "parted", "--script", devicePathOf(parent),
			"mkpart", "primary", fmt.Sprintf("%dB", child.Offset), fmt.Sprintf("%dB", child.Offset+child.Size)); err != nil {
			return err
		}
	}
	jc.Progress(1)
	return nil
}

func (s *System) execDeleteChild(ctx context.Context, parent *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	if params.ChildIndex < 0 || params.ChildIndex >= len(parent.Children) {
		return ddmerrors.New(ddmerrors.BadValue, "mbrsim: delete_child index %d out of range", params.ChildIndex)
	}
	number := params.ChildIndex + 1
	devicePath := devicePathOf(parent)

	if _, err := parent.RemoveChildAt(params.ChildIndex); err != nil {
		return err
	}
	jc.Progress(0.5)

	if cmdutil.RealExecEnabled() {
		if err := cmdutil.RunAndLog(ctx, "parted", "--script", devicePath, "rm", fmt.Sprintf("%d", number)); err != nil {
			return err
		}
	}
	jc.Progress(1)
	return nil
}

func (s *System) execMoveChild(ctx context.Context, parent *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	if params.ChildIndex < 0 || params.ChildIndex >= len(parent.Children) {
		return ddmerrors.New(ddmerrors.BadValue, "mbrsim: move_child index %d out of range", params.ChildIndex)
	}
	child := parent.Children[params.ChildIndex]
	child.Offset = snapToSector(params.Offset)
	jc.Progress(1)
	return s.maybeRunSfdisk(ctx, parent)
}

func (s *System) execMove(ctx context.Context, node *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	node.Offset = snapToSector(params.Offset)
	jc.Progress(1)
	return s.maybeRunSfdisk(ctx, node)
}

func (s *System) execSetType(ctx context.Context, parent *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	if params.ChildIndex < 0 || params.ChildIndex >= len(parent.Children) {
		return ddmerrors.New(ddmerrors.BadValue, "mbrsim: set_type index %d out of range", params.ChildIndex)
	}
	parent.Children[params.ChildIndex].Type = params.Type
	jc.Progress(1)
	return s.maybeRunSfdisk(ctx, parent)
}

func (s *System) execSetName(ctx context.Context, parent *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	if params.ChildIndex < 0 || params.ChildIndex >= len(parent.Children) {
		return ddmerrors.New(ddmerrors.BadValue, "mbrsim: set_name index %d out of range", params.ChildIndex)
	}
	parent.Children[params.ChildIndex].Name = params.Name
	jc.Progress(1)
	return nil
}

func (s *System) execSetParameters(ctx context.Context, parent *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	if params.ChildIndex < 0 || params.ChildIndex >= len(parent.Children) {
		return ddmerrors.New(ddmerrors.BadValue, "mbrsim: set_parameters index %d out of range", params.ChildIndex)
	}
	parent.Children[params.ChildIndex].Parameters = params.Parameters
	jc.Progress(1)
	return nil
}

func (s *System) maybeRunSfdisk(ctx context.Context, p *partition.Partition) error {
	if !cmdutil.RealExecEnabled() {
		return nil
	}
	return cmdutil.RunAndLog(ctx, "sfdisk", devicePathOf(p))
}

// devicePathOf resolves the raw device node a table edit shells out
// against. mbrsim only ever binds to a device root, so Offset 0 is
// the whole-disk node itself.
func devicePathOf(p *partition.Partition) string {
	for p.Parent != nil {
		p = p.Parent
	}
	return fmt.Sprintf("/dev/ddm/device-%d", p.DeviceID)
}

func (s *System) ShadowPartitionChanged(ctx context.Context, op disksystem.Operation, p *partition.Partition) error {
	return nil
}

func (s *System) GetNextSupportedType(cookie *int) (typ string, ok bool) {
	types := []string{"mbrsim-type-131", "mbrsim-type-7", "mbrsim-type-12"}
	if *cookie >= len(types) {
		return "", false
	}
	typ = types[*cookie]
	*cookie++
	return typ, true
}

func (s *System) GetTypeForContentType(contentType string) (typ string, ok bool) {
	switch contentType {
	case "ext4", "ext3", "ext2":
		return "mbrsim-type-131", true
	case "fat32", "vfat":
		return "mbrsim-type-12", true
	default:
		return "", false
	}
}

// GetPartitionableSpaces defers to the manager's generic gap-scan
// algorithm; mbrsim has no layout-specific free-space rule to add.
func (s *System) GetPartitionableSpaces(p *partition.Partition) ([]disksystem.PartitionableSpace, bool, error) {
	return nil, false, nil
}
