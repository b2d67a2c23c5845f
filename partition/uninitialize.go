package partition

// UninitializeContents tears down p's content deterministically
// (invariant 8, spec §3/§4.2): clears its disk system, children,
// content size, and status, recording exactly which attributes moved
// in ChangeFlags so a ShadowPartition mirroring this node can tell
// whether it already diverged. Calling it twice is a no-op beyond the
// change counter, matching the idempotence law in spec §8.
func (p *Partition) UninitializeContents() {
	var flags ChangeFlags

	if p.DiskSystemID != -1 {
		p.DiskSystemID = -1
		flags |= ChangeContentType
	}
	if len(p.Children) > 0 {
		for _, c := range p.Children {
			c.Parent = nil
			c.MarkObsolete()
		}
		p.Children = nil
		flags |= ChangeChildren
	}
	if p.ContentSize != 0 {
		p.ContentSize = 0
		flags |= ChangeContentSize
	}
	if p.ContentName != "" {
		p.ContentName = ""
		flags |= ChangeContentName
	}
	if p.ContentParameters != "" {
		p.ContentParameters = ""
		flags |= ChangeContentParameters
	}
	if p.VolumeID != -1 {
		p.VolumeID = -1
		p.MountCookie = nil
		p.Flags &^= FlagMounted
		flags |= ChangeVolume
	}
	if p.Status != StatusUninitialized {
		p.Status = StatusUninitialized
		flags |= ChangeStatus
	}

	flags |= ChangeInitialization
	p.Changed(flags)
}
