package serialize

import (
	"encoding/binary"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/partition"
)

// Reader parses a buffer produced by Writer.Write back into a detached
// partition tree, the inverse half of the §6.3 round-trip invariant
// (I7): the buffer is self-describing (every pointer field is an
// offset into the same buffer), so Reader needs nothing but the bytes
// themselves.
type Reader struct{}

// Read parses data and returns the device id, its registered path, and
// the reconstructed partition tree rooted at RootOffset.
func (r *Reader) Read(data []byte) (deviceID int32, devicePath string, root *partition.Partition, err error) {
	if len(data) < deviceRecordSize {
		return 0, "", nil, ddmerrors.New(ddmerrors.BadValue, "buffer too small for device record")
	}
	getU32 := func(off int32) uint32 { return binary.LittleEndian.Uint32(data[off:]) }
	getI32 := func(off int32) int32 { return int32(getU32(off)) }
	getI64 := func(off int32) int64 { return int64(binary.LittleEndian.Uint64(data[off:])) }
	readString := func(off int32) string {
		if off == 0 {
			return ""
		}
		end := int(off)
		for end < len(data) && data[end] != 0 {
			end++
		}
		return string(data[off:end])
	}

	deviceID = getI32(0)
	rootOff := getI32(4)
	devicePath = readString(getI32(8))
	if rootOff == 0 {
		return deviceID, devicePath, nil, nil
	}

	var build func(off int32, parent *partition.Partition) (*partition.Partition, error)
	build = func(off int32, parent *partition.Partition) (*partition.Partition, error) {
		if int(off)+partitionRecordSize > len(data) {
			return nil, ddmerrors.New(ddmerrors.BadValue, "partition record at %d out of range", off)
		}
		cur := off
		read4 := func() int32 { o := cur; cur += 4; return o }
		read8 := func() int32 { o := cur; cur += 8; return o }

		id := getI32(read4())
		deviceID := getI32(read4())
		kind := partition.Kind(getI32(read4()))
		status := partition.Status(getI32(read4()))
		flags := partition.Flags(getU32(read4()))
		changeFlags := partition.ChangeFlags(getU32(read4()))
		offset := getI64(read8())
		size := getI64(read8())
		contentSize := getI64(read8())
		blockSize := getI32(read4())
		index := getI32(read4())
		diskSystemID := getI32(read4())
		volumeID := getI32(read4())
		changeCounter := getI64(read8())
		originID := getI32(read4())

		nameOff := getI32(read4())
		typeOff := getI32(read4())
		paramsOff := getI32(read4())
		contentNameOff := getI32(read4())
		contentTypeOff := getI32(read4())
		contentParamsOff := getI32(read4())

		childrenOff := getI32(read4())
		childCount := int(getI32(read4()))

		p := partition.New(id, kind)
		p.Parent = parent
		p.DeviceID = deviceID
		p.Status = status
		p.Flags = flags
		p.ChangeFlags = changeFlags
		p.Offset = offset
		p.Size = size
		p.ContentSize = contentSize
		p.BlockSize = blockSize
		p.Index = int(index)
		p.DiskSystemID = diskSystemID
		p.VolumeID = volumeID
		p.ChangeCounter = changeCounter
		p.OriginID = originID
		p.Name = readString(nameOff)
		p.Type = readString(typeOff)
		p.Parameters = readString(paramsOff)
		p.ContentName = readString(contentNameOff)
		p.ContentType = readString(contentTypeOff)
		p.ContentParameters = readString(contentParamsOff)

		for i := 0; i < childCount; i++ {
			slot := childrenOff + int32(i*4)
			childOff := getI32(slot)
			child, err := build(childOff, p)
			if err != nil {
				return nil, err
			}
			p.Children = append(p.Children, child)
		}
		return p, nil
	}

	root, err = build(rootOff, nil)
	if err != nil {
		return 0, "", nil, err
	}
	return deviceID, devicePath, root, nil
}
