// Package serialize implements the wire encodings for a partition tree
// snapshot (spec §6.3): the bump-allocator/relocation-table buffer
// format the in-process "syscall" boundary uses for parity with a
// userland mirror library, plus the plain JSON and YAML views the
// HTTP daemon and its clients use in practice.
package serialize

import (
	"encoding/json"

	"github.com/diskdevmgr/ddm/partition"
)

// Node is a JSON-safe view of a partition.Partition: every field
// worth exposing across the boundary, but never Parent (a back-edge
// that would make encoding/json recurse forever re-walking the same
// subtree) or Cookie/ContentCookie (opaque, disk-system-private values
// that are frequently not JSON-marshalable at all).
type Node struct {
	ID       int32  `json:"id"`
	Kind     string `json:"kind"`
	DeviceID int32  `json:"device_id"`

	Offset      int64 `json:"offset"`
	Size        int64 `json:"size"`
	ContentSize int64 `json:"content_size"`
	BlockSize   int32 `json:"block_size"`
	Index       int   `json:"index"`

	Status string `json:"status"`
	Flags  uint32 `json:"flags"`

	Name              string `json:"name"`
	Type              string `json:"type"`
	Parameters        string `json:"parameters,omitempty"`
	ContentName       string `json:"content_name,omitempty"`
	ContentType       string `json:"content_type,omitempty"`
	ContentParameters string `json:"content_parameters,omitempty"`

	DiskSystemID int32 `json:"disk_system_id"`
	VolumeID     int32 `json:"volume_id"`

	ChangeFlags   uint32 `json:"change_flags"`
	ChangeCounter int64  `json:"change_counter"`

	OriginID int32 `json:"origin_id,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// ToNode converts p and its descendants into a JSON-safe tree,
// dropping exactly the fields Node's doc comment names.
func ToNode(p *partition.Partition) *Node {
	if p == nil {
		return nil
	}
	n := &Node{
		ID:                p.ID,
		Kind:              p.Kind.String(),
		DeviceID:          p.DeviceID,
		Offset:            p.Offset,
		Size:              p.Size,
		ContentSize:       p.ContentSize,
		BlockSize:         p.BlockSize,
		Index:             p.Index,
		Status:            p.Status.String(),
		Flags:             uint32(p.Flags),
		Name:              p.Name,
		Type:              p.Type,
		Parameters:        p.Parameters,
		ContentName:       p.ContentName,
		ContentType:       p.ContentType,
		ContentParameters: p.ContentParameters,
		DiskSystemID:      p.DiskSystemID,
		VolumeID:          p.VolumeID,
		ChangeFlags:       uint32(p.ChangeFlags),
		ChangeCounter:     p.ChangeCounter,
		OriginID:          p.OriginID,
	}
	for _, c := range p.Children {
		n.Children = append(n.Children, ToNode(c))
	}
	return n
}

// ToJSON marshals p's tree via ToNode.
func ToJSON(p *partition.Partition) ([]byte, error) {
	return json.Marshal(ToNode(p))
}

// FromJSON parses a Node tree and reconstructs it as a detached
// partition.Partition tree (no Parent of the root, Parent wired for
// every descendant). The result carries Kind/Status as whatever
// physical/shadow and scan-state strings decode to; callers that care
// about strict round-tripping should compare against ToNode's output
// rather than the original tree, since Cookie-bearing fields are lost.
func FromJSON(data []byte) (*partition.Partition, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return fromNode(&n, nil), nil
}

func fromNode(n *Node, parent *partition.Partition) *partition.Partition {
	if n == nil {
		return nil
	}
	kind := partition.KindPhysical
	if n.Kind == "shadow" {
		kind = partition.KindShadow
	}
	p := partition.New(n.ID, kind)
	p.Parent = parent
	p.DeviceID = n.DeviceID
	p.Offset = n.Offset
	p.Size = n.Size
	p.ContentSize = n.ContentSize
	p.BlockSize = n.BlockSize
	p.Index = n.Index
	p.Status = statusFromString(n.Status)
	p.Flags = partition.Flags(n.Flags)
	p.Name = n.Name
	p.Type = n.Type
	p.Parameters = n.Parameters
	p.ContentName = n.ContentName
	p.ContentType = n.ContentType
	p.ContentParameters = n.ContentParameters
	p.DiskSystemID = n.DiskSystemID
	p.VolumeID = n.VolumeID
	p.ChangeFlags = partition.ChangeFlags(n.ChangeFlags)
	p.ChangeCounter = n.ChangeCounter
	p.OriginID = n.OriginID

	for _, c := range n.Children {
		p.Children = append(p.Children, fromNode(c, p))
	}
	return p
}

func statusFromString(s string) partition.Status {
	switch s {
	case "uninitialized":
		return partition.StatusUninitialized
	case "partially-scanned":
		return partition.StatusPartiallyScanned
	case "valid":
		return partition.StatusValid
	case "corrupt":
		return partition.StatusCorrupt
	case "unrecognized":
		return partition.StatusUnrecognized
	default:
		return partition.StatusUninitialized
	}
}
