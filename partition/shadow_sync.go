package partition

// SyncFromOrigin propagates a physical partition's current attribute
// values into a shadow, but only for attributes whose corresponding
// ChangeFlags bit is clear on the shadow — i.e. where the shadow has
// not already diverged from its origin (invariant I6, spec §4.2's
// ShadowPartition listener rule). It does not touch ChangeCounter: the
// shadow's own counter tracks edits made against the shadow itself,
// not mirrored updates.
func (s *Partition) SyncFromOrigin(origin *Partition) {
	if s.Kind != KindShadow {
		return
	}

	if !s.ChangeFlags.Has(ChangeOffset) {
		s.Offset = origin.Offset
	}
	if !s.ChangeFlags.Has(ChangeSize) {
		s.Size = origin.Size
	}
	if !s.ChangeFlags.Has(ChangeName) {
		s.Name = origin.Name
	}
	if !s.ChangeFlags.Has(ChangeType) {
		s.Type = origin.Type
	}
	if !s.ChangeFlags.Has(ChangeParameters) {
		s.Parameters = origin.Parameters
	}
	if !s.ChangeFlags.Has(ChangeFlagsBit) {
		s.Flags = origin.Flags
	}
}
