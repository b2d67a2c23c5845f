// Package extsim is a reference file-system disksystem.DiskSystem: it
// identifies an ext-like superblock magic and owns the content-level
// operations (resize, defragment, repair, initialize) on whatever node
// it is bound to, shelling out to mkfs.ext4 via cmdutil when
// DDM_REAL_EXEC=1 is set (SPEC_FULL.md §6.1's "reference plugin"). It
// makes no claim to implement ext4 correctly: only the magic number
// and superblock size field are modeled.
package extsim

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
	superblockOffset = 1024
	magicOffset      = 0x38 // bytes into the superblock
	magicValue       = 0xEF53
	blockCountOffset = 0x04
)

// System implements disksystem.DiskSystem for the extsim filesystem.
type System struct{}

func New() *System { return &System{} }

func (s *System) Name() string       { return "extsim" }
func (s *System) PrettyName() string { return "Simulated ext-like Filesystem" }
func (s *System) IsFileSystem() bool { return true }

// Identify reads the superblock region at byte 1024 of the target's
// own published path and checks the 0xEF53 magic, the same way a real
// ext2/3/4 probe would. Reads are always real regardless of
// cmdutil.RealExecEnabled(): only destructive writes are gated.
func (s *System) Identify(ctx context.Context, p *partition.Partition, devicePath string) (float64, any, error) {
	f, err := os.Open(p.Path(devicePath))
	if err != nil {
		return -1, nil, nil
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 1024)
	if _, err := f.ReadAt(buf, superblockOffset); err != nil {
		return -1, nil, nil
	}
	if binary.LittleEndian.Uint16(buf[magicOffset:magicOffset+2]) != magicValue {
		return -1, nil, nil
	}

	blockCount := binary.LittleEndian.Uint32(buf[blockCountOffset : blockCountOffset+4])
	return 0.5, blockCount, nil
}

// Scan marks the content as valid; extsim has no children of its own
// (a filesystem is a leaf, not a container).
func (s *System) Scan(ctx context.Context, p *partition.Partition, cookie any, allocateID func() int32) error {
	p.ContentType = "extsim"
	if count, ok := cookie.(uint32); ok {
		p.ContentSize = int64(count) * int64(p.BlockSize)
	}
	return nil
}

func (s *System) FreeIdentifyCookie(cookie any)            {}
func (s *System) FreeCookie(p *partition.Partition)        {}
func (s *System) FreeContentCookie(p *partition.Partition) {}

// Supports reports the content-level operations extsim owns: resizing
// itself (with or without moving the partition boundary), defragment,
// repair, and formatting. Structural table edits belong to whatever
// partitioning-system plugin owns the parent.
func (s *System) Supports(op disksystem.Operation) (supported bool, whileMounted bool) {
	switch op {
	case disksystem.OpResize, disksystem.OpResizeChild:
		return true, false
	case disksystem.OpDefragment:
		return true, true
	case disksystem.OpRepair, disksystem.OpInitialize:
		return true, false
	case disksystem.OpSetContentName, disksystem.OpSetContentParameters:
		return true, true
	default:
		return false, false
	}
}

func (s *System) IsSubSystemFor(p *partition.Partition) bool { return false }

// Validate clamps a shrink request to the content already in use; ext
// filesystems cannot be resized smaller than their live data.
func (s *System) Validate(ctx context.Context, op disksystem.Operation, p *partition.Partition, params *disksystem.Params) error {
	switch op {
	case disksystem.OpResize, disksystem.OpResizeChild:
		if params.Size < p.ContentSize {
			params.Size = p.ContentSize
		}
	}
	return nil
}

// Execute performs the write; node is the target partition directly
// for every operation extsim supports (none of them route through a
// parent+ChildIndex pair).
func (s *System) Execute(ctx context.Context, op disksystem.Operation, node *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	switch op {
	case disksystem.OpInitialize:
		return s.execInitialize(ctx, node, params, jc)
	case disksystem.OpResize, disksystem.OpResizeChild:
		return s.execResize(ctx, node, params, jc)
	case disksystem.OpDefragment:
		return s.execDefragment(ctx, node, jc)
	case disksystem.OpRepair:
		return s.execRepair(ctx, node, params, jc)
	case disksystem.OpSetContentName:
		node.ContentName = params.ContentName
		jc.Progress(1)
		return nil
	case disksystem.OpSetContentParameters:
		node.ContentParameters = params.ContentParameters
		jc.Progress(1)
		return nil
	default:
		return ddmerrors.New(ddmerrors.BadValue, "extsim: unsupported operation %s", op)
	}
}

func (s *System) execInitialize(ctx context.Context, node *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	node.ContentType = "extsim"
	node.ContentParameters = params.Parameters
	node.ContentSize = node.Size
	node.Status = partition.StatusValid
	jc.Progress(0.5)

	if cmdutil.RealExecEnabled() {
		args := []string{"mkfs.ext4", "-F"}
		if params.Name != "" {
			args = append(args, "-L", params.Name)
		}
		args = append(args, devicePathOf(node))
		if err := cmdutil.RunAndLog(ctx, args...); err != nil {
			return err
		}
	}
	jc.Progress(1)
	return nil
}

func (s *System) execResize(ctx context.Context, node *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	if params.Size < node.ContentSize {
		return ddmerrors.New(ddmerrors.BadValue, "extsim: cannot shrink below live content size")
	}
	node.Size = params.Size
	node.ContentSize = params.Size
	jc.Progress(0.5)

	if cmdutil.RealExecEnabled() {
		if err := cmdutil.RunAndLog(ctx, "resize2fs", devicePathOf(node), fmt.Sprintf("%dK", params.Size/1024)); err != nil {
			return err
		}
	}
	jc.Progress(1)
	return nil
}

func (s *System) execDefragment(ctx context.Context, node *partition.Partition, jc disksystem.JobContext) error {
	jc.Progress(0.5)
	if cmdutil.RealExecEnabled() {
		if err := cmdutil.RunAndLog(ctx, "e4defrag", devicePathOf(node)); err != nil {
			return err
		}
	}
	jc.Progress(1)
	return nil
}

func (s *System) execRepair(ctx context.Context, node *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	jc.Progress(0.5)
	if cmdutil.RealExecEnabled() {
		args := []string{"e2fsck", "-f"}
		if !params.CheckOnly {
			args = append(args, "-y")
		} else {
			args = append(args, "-n")
		}
		args = append(args, devicePathOf(node))
		if err := cmdutil.RunAndLog(ctx, args...); err != nil {
			return err
		}
	}
	node.Status = partition.StatusValid
	jc.Progress(1)
	return nil
}

func devicePathOf(p *partition.Partition) string {
	return fmt.Sprintf("/dev/ddm/device-%d/%d", p.DeviceID, p.Index)
}

// ShadowPartitionChanged clamps ContentSize down to Size when a move or
// resize leaves the shadow node smaller than its content; a grow leaves
// ContentSize unchanged.
func (s *System) ShadowPartitionChanged(ctx context.Context, op disksystem.Operation, p *partition.Partition) error {
	switch op {
	case disksystem.OpResize, disksystem.OpResizeChild, disksystem.OpMove, disksystem.OpMoveChild:
		if p.ContentSize > p.Size {
			p.ContentSize = p.Size
		}
	}
	return nil
}

func (s *System) GetNextSupportedType(cookie *int) (typ string, ok bool) {
	if *cookie > 0 {
		return "", false
	}
	*cookie++
	return "extsim", true
}

func (s *System) GetTypeForContentType(contentType string) (typ string, ok bool) {
	if contentType == "extsim" {
		return "extsim", true
	}
	return "", false
}

func (s *System) GetPartitionableSpaces(p *partition.Partition) ([]disksystem.PartitionableSpace, bool, error) {
	return nil, false, nil
}
