package serialize

import (
	"gopkg.in/yaml.v2"

	"github.com/diskdevmgr/ddm/partition"
)

// LayoutNode is the persisted, user-set half of a partition: the
// fields a person chose (a friendly Name, a content type and its
// parameters) rather than the fields a rescan always rediscovers
// (Offset, Size, Status, ...). Keyed by Index rather than Name, since
// a freshly scanned partition may not have a Name yet at all.
type LayoutNode struct {
	Index             int           `yaml:"index"`
	Name              string        `yaml:"name,omitempty,flow"`
	Type              string        `yaml:"type,omitempty,flow"`
	Parameters        string        `yaml:"parameters,omitempty,flow"`
	ContentName       string        `yaml:"content_name,omitempty,flow"`
	ContentType       string        `yaml:"content_type,omitempty,flow"`
	ContentParameters string        `yaml:"content_parameters,omitempty,flow"`
	Children          []*LayoutNode `yaml:"children,omitempty,flow"`
}

// LayoutDevice is one disk device's persisted layout, identified by
// its registered path (the teacher's `clr-installer.yaml` keys its own
// `targetMedia` list the same way, by device name).
type LayoutDevice struct {
	Path string      `yaml:"path"`
	Root *LayoutNode `yaml:"root,omitempty,flow"`
}

// Layout is the top-level persisted document, the DDM analogue of the
// teacher's `targetMedia []*storage.BlockDevice` list in clr-installer.yaml.
type Layout struct {
	Devices []*LayoutDevice `yaml:"devices,omitempty,flow"`
}

// ToLayoutNode extracts p's user-set fields (and its descendants') into
// a persistable LayoutNode tree.
func ToLayoutNode(p *partition.Partition) *LayoutNode {
	if p == nil {
		return nil
	}
	n := &LayoutNode{
		Index:             p.Index,
		Name:              p.Name,
		Type:              p.Type,
		Parameters:        p.Parameters,
		ContentName:       p.ContentName,
		ContentType:       p.ContentType,
		ContentParameters: p.ContentParameters,
	}
	for _, c := range p.Children {
		n.Children = append(n.Children, ToLayoutNode(c))
	}
	return n
}

// MarshalLayout renders l as YAML, matching the teacher's
// `clr-installer.yaml` persistence format.
func MarshalLayout(l *Layout) ([]byte, error) {
	return yaml.Marshal(l)
}

// UnmarshalLayout parses a previously persisted Layout document.
func UnmarshalLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ApplyLayout re-applies a persisted layout's user-set fields onto a
// freshly rescanned tree rooted at root, matching nodes by Index the
// way the teacher's updateBlockDevices matches by Name: a rescan always
// rebuilds Offset/Size/Status from the media itself, but a user's
// chosen Name or content parameters must survive the rescan that
// discovers the same partition again under a new id.
func ApplyLayout(root *partition.Partition, saved *LayoutNode) {
	if root == nil || saved == nil {
		return
	}
	applyLayoutNode(root, saved)
}

func applyLayoutNode(p *partition.Partition, saved *LayoutNode) {
	if p.Index != saved.Index {
		return
	}
	if saved.Name != "" {
		p.Name = saved.Name
	}
	if saved.Type != "" {
		p.Type = saved.Type
	}
	if saved.Parameters != "" {
		p.Parameters = saved.Parameters
	}
	if saved.ContentName != "" {
		p.ContentName = saved.ContentName
	}
	if saved.ContentType != "" {
		p.ContentType = saved.ContentType
	}
	if saved.ContentParameters != "" {
		p.ContentParameters = saved.ContentParameters
	}
	for _, c := range p.Children {
		for _, savedChild := range saved.Children {
			if c.Index == savedChild.Index {
				applyLayoutNode(c, savedChild)
				break
			}
		}
	}
}
