package document

// AcceptAll resolves every tracked change in favor of the edit: deleted runs
// are removed, inserted runs become plain text, and threads anchored to the
// removed revisions are dropped. The result is the document a reviewer would
// get by accepting each change individually.
func (d *Document) AcceptAll() {
	gone := make(map[int]bool)
	for _, b := range d.Blocks {
		kept := b.Runs[:0]
		changed := false
		for i := range b.Runs {
			r := b.Runs[i]
			if r.Rev != nil {
				if r.Rev.Kind == Deleted {
					gone[r.Rev.ID] = true
					changed = true
					continue
				}
				r.Rev = nil
				changed = true
			}
			kept = append(kept, r)
		}
		b.Runs = kept
		if changed {
			b.MarkDirty()
		}
	}
	d.dropThreads(gone)
}

// RejectAll resolves every tracked change against the edit: inserted runs are
// removed and deleted runs are restored to plain text, reconstructing the
// pre-edit document. Threads anchored to the discarded revisions are dropped.
func (d *Document) RejectAll() {
	gone := make(map[int]bool)
	for _, b := range d.Blocks {
		kept := b.Runs[:0]
		changed := false
		for i := range b.Runs {
			r := b.Runs[i]
			if r.Rev != nil {
				gone[r.Rev.ID] = true
				changed = true
				if r.Rev.Kind == Inserted {
					continue
				}
				r.Rev = nil
			}
			kept = append(kept, r)
		}
		b.Runs = kept
		if changed {
			b.MarkDirty()
		}
	}
	d.dropThreads(gone)
}

func (d *Document) dropThreads(gone map[int]bool) {
	if len(gone) == 0 {
		return
	}
	kept := d.Threads[:0]
	for _, t := range d.Threads {
		if !gone[t.Anchor] {
			kept = append(kept, t)
		}
	}
	d.Threads = kept
}
