package partition

import "fmt"

// Path computes the devfs-equivalent path for p given the owning
// device's published path (spec §6.4): "raw" for the root device; the
// decimal sibling index for a direct child of the root, replacing the
// "raw" leaf; "<parent-name>_<index>" for deeper levels. This naming
// contract must be bit-exact since clients rely on it to locate a
// partition's published node.
func (p *Partition) Path(devicePath string) string {
	if p.Parent == nil {
		return devicePath
	}

	if p.Parent.Parent == nil {
		// direct child of the root: replace the trailing "raw" with
		// our sibling index.
		return replaceRawLeaf(devicePath, p.Index)
	}

	return fmt.Sprintf("%s_%d", p.Parent.Path(devicePath), p.Index)
}

func replaceRawLeaf(devicePath string, index int) string {
	const rawLeaf = "/raw"
	if len(devicePath) >= len(rawLeaf) && devicePath[len(devicePath)-len(rawLeaf):] == rawLeaf {
		return fmt.Sprintf("%s/%d", devicePath[:len(devicePath)-len(rawLeaf)], index)
	}
	return fmt.Sprintf("%s/%d", devicePath, index)
}
