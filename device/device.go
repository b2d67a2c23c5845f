// Package device implements DiskDevice (spec component C4): the root
// partition of a device, extended with its on-disk path, open file
// descriptor, media status, geometry, and per-device RW-lock.
package device

import (
	"os"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/lock"
	"github.com/diskdevmgr/ddm/partition"
)

// MediaStatus is the last-observed media presence/health of a device.
type MediaStatus int

const (
	MediaUnknown MediaStatus = iota
	MediaOK
	MediaChanged
	MediaNone
)

// Geometry mirrors the fields B_GET_GEOMETRY would report: sector
// size, sectors per track, cylinder/head counts, and the media
// capability bits derived from them.
type Geometry struct {
	BytesPerSector  int64
	SectorsPerTrack int64
	Cylinders       int64
	Heads           int64

	Removable bool
	ReadOnly  bool
	WriteOnce bool
	HasMedia  bool
}

// DiskDevice is the root Partition of a device plus device-only state.
// It embeds *partition.Partition so device methods and partition tree
// operations share one identifier and change-tracking surface.
type DiskDevice struct {
	*partition.Partition

	Path string
	file *os.File

	MediaStatus MediaStatus
	Geometry    Geometry

	Lock *lock.RWLock

	// ShadowTeamID is the owner of this device's shadow tree, -1 when
	// no shadow is in progress (spec §4.5: "a device can host at most
	// one shadow at a time").
	ShadowTeamID int64

	FileBacked     bool
	BackingFile    string
}

// New constructs a DiskDevice whose root Partition carries id and
// Kind=KindPhysical.
func New(id int32, devPath string) *DiskDevice {
	root := partition.New(id, partition.KindPhysical)
	root.DeviceID = id
	root.Flags |= partition.FlagIsDevice

	return &DiskDevice{
		Partition:    root,
		Path:         devPath,
		Lock:         lock.NewRWLock(),
		ShadowTeamID: -1,
	}
}

// SetTo opens path read-only and treats a successful open as media
// present (MediaOK, Geometry.HasMedia). It makes no geometry query:
// Geometry keeps whatever values it already holds, and FlagReadOnly is
// set only when Geometry.ReadOnly is already true. When the open fails,
// MediaStatus becomes MediaNone and a NotFound error is returned.
func (d *DiskDevice) SetTo(path string) error {
	d.Path = path

	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		d.MediaStatus = MediaNone
		return ddmerrors.WrapKind(ddmerrors.NotFound, err)
	}
	d.file = f

	d.MediaStatus = MediaOK
	d.Geometry.HasMedia = true

	if d.Geometry.ReadOnly {
		d.Flags |= partition.FlagReadOnly
	}

	return nil
}

// UpdateMediaStatusIfNeeded re-probes media presence, returning true
// if the status changed since the last check (spec §4.3's periodic
// poll driving the manager's media-checker daemon).
func (d *DiskDevice) UpdateMediaStatusIfNeeded(probe func() (present bool, err error)) (changed bool, err error) {
	present, err := probe()
	if err != nil {
		return false, ddmerrors.Wrap(err)
	}

	prev := d.MediaStatus
	switch {
	case present && prev != MediaOK:
		d.MediaStatus = MediaOK
		changed = prev != MediaUnknown
	case !present && prev != MediaNone:
		d.MediaStatus = MediaNone
		changed = true
	}

	return changed, nil
}

// Close releases the device's open file descriptor, if any.
func (d *DiskDevice) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// HasShadow reports whether a shadow tree currently exists for this
// device.
func (d *DiskDevice) HasShadow() bool {
	return d.ShadowTeamID != -1
}
