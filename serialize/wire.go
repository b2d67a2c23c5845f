package serialize

import (
	"bytes"
	"encoding/binary"

	"github.com/diskdevmgr/ddm/partition"
)

// Writer builds the bump-allocated, relocatable buffer get_disk_device_data
// hands back to user space (spec §6.3): the device record, then every
// partition record in pre-order, then the per-node child-offset arrays,
// then every distinct string interned exactly once. Every field that
// holds an offset into the buffer rather than a plain value is recorded
// in the returned relocation table, so a copy-out step can rebase the
// whole buffer to wherever the caller's memory actually starts without
// walking the tree again.
//
// Record layouts are written field-by-field with encoding/binary rather
// than through unsafe struct casts, so there is no hidden compiler
// padding to account for: a record's size is exactly the sum of its
// field widths below.
type Writer struct{}

const (
	deviceRecordSize    = 4 + 4 + 4    // ID, RootOffset, PathOffset
	partitionRecordSize = 4 + 4 + 4 + 4 + 4 + 4 + // ID, DeviceID, Kind, Status, Flags, ChangeFlags
		8 + 8 + 8 + // Offset, Size, ContentSize
		4 + 4 + 4 + 4 + // BlockSize, Index, DiskSystemID, VolumeID
		8 + 4 + // ChangeCounter, OriginID
		4 + 4 + 4 + 4 + 4 + 4 + // Name/Type/Parameters/ContentName/ContentType/ContentParameters offsets
		4 + 4 // ChildrenOffset, ChildCount
)

// Write serializes root (and devicePath, the owning device's registered
// path) into a freshly allocated buffer and returns it alongside the
// relocation table: the list of byte offsets within the buffer whose
// 4-byte little-endian value is itself a buffer-relative offset (0
// meaning null) rather than ordinary data.
func (w *Writer) Write(deviceID int32, devicePath string, root *partition.Partition) (data []byte, relocs []int32, err error) {
	nodes := preOrder(root)

	childArrayBase := int32(deviceRecordSize + len(nodes)*partitionRecordSize)
	childArrayOffset := make([]int32, len(nodes))
	cursor := childArrayBase
	for i, n := range nodes {
		childArrayOffset[i] = cursor
		cursor += int32(len(n.Children) * 4)
	}
	stringBase := cursor

	nodeIndex := make(map[*partition.Partition]int, len(nodes))
	for i, n := range nodes {
		nodeIndex[n] = i
	}

	intern := map[string]int32{}
	var strBuf bytes.Buffer
	next := stringBase
	internString := func(s string) int32 {
		if s == "" {
			return 0
		}
		if off, ok := intern[s]; ok {
			return off
		}
		off := next
		strBuf.WriteString(s)
		strBuf.WriteByte(0)
		next += int32(len(s)) + 1
		intern[s] = off
		return off
	}

	pathOff := internString(devicePath)
	type interned struct {
		name, typ, params, contentName, contentType, contentParams int32
	}
	fields := make([]interned, len(nodes))
	for i, n := range nodes {
		fields[i] = interned{
			name:          internString(n.Name),
			typ:           internString(n.Type),
			params:        internString(n.Parameters),
			contentName:   internString(n.ContentName),
			contentType:   internString(n.ContentType),
			contentParams: internString(n.ContentParameters),
		}
	}

	buf := make([]byte, int(next))
	copy(buf[stringBase:], strBuf.Bytes())

	putU32 := func(off int32, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	putI32 := func(off int32, v int32) { putU32(off, uint32(v)) }
	putI64 := func(off int32, v int64) { binary.LittleEndian.PutUint64(buf[off:], uint64(v)) }
	pointer := func(off int32, v int32) {
		putI32(off, v)
		if v != 0 {
			relocs = append(relocs, off)
		}
	}

	rootOff := int32(deviceRecordSize)
	putI32(0, deviceID)
	pointer(4, rootOff)
	pointer(8, pathOff)

	for i, n := range nodes {
		ro := int32(deviceRecordSize + i*partitionRecordSize)
		cur := ro
		write4 := func() int32 { o := cur; cur += 4; return o }
		write8 := func() int32 { o := cur; cur += 8; return o }

		putI32(write4(), n.ID)
		putI32(write4(), n.DeviceID)
		putI32(write4(), int32(n.Kind))
		putI32(write4(), int32(n.Status))
		putU32(write4(), uint32(n.Flags))
		putU32(write4(), uint32(n.ChangeFlags))
		putI64(write8(), n.Offset)
		putI64(write8(), n.Size)
		putI64(write8(), n.ContentSize)
		putI32(write4(), n.BlockSize)
		putI32(write4(), int32(n.Index))
		putI32(write4(), n.DiskSystemID)
		putI32(write4(), n.VolumeID)
		putI64(write8(), n.ChangeCounter)
		putI32(write4(), n.OriginID)

		pointer(write4(), fields[i].name)
		pointer(write4(), fields[i].typ)
		pointer(write4(), fields[i].params)
		pointer(write4(), fields[i].contentName)
		pointer(write4(), fields[i].contentType)
		pointer(write4(), fields[i].contentParams)

		childOff := int32(0)
		if len(n.Children) > 0 {
			childOff = childArrayOffset[i]
		}
		pointer(write4(), childOff)
		putI32(write4(), int32(len(n.Children)))

		for j, c := range n.Children {
			slot := childArrayOffset[i] + int32(j*4)
			pointer(slot, int32(deviceRecordSize+nodeIndex[c]*partitionRecordSize))
		}
	}

	return buf, relocs, nil
}

// preOrder flattens root's tree into a pre-order slice, matching
// §6.3's record ordering.
func preOrder(root *partition.Partition) []*partition.Partition {
	if root == nil {
		return nil
	}
	nodes := []*partition.Partition{root}
	for _, c := range root.Children {
		nodes = append(nodes, preOrder(c)...)
	}
	return nodes
}
