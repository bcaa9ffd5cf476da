package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Save writes the package to disk, applying every pending model mutation.
func (f *File) Save(name string) error {
	out, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating output document: %w", err)
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("writing output document: %w", err)
	}
	return nil
}

// Write serializes the package to w. Parts the model never touched are
// emitted exactly as they were read.
func (f *File) Write(w io.Writer) error {
	if err := f.sync(); err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, name := range f.order {
		entry, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		if _, err := entry.Write(f.parts[name]); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing document archive: %w", err)
	}
	return nil
}

// sync pushes model state back into the package parts: dirty paragraphs are
// rebuilt from their runs, new media and relationships are registered, and
// the comments part is written. sync is idempotent, so Save and Write can be
// called repeatedly with model mutations in between.
func (f *File) sync() error {
	te, err := f.contentTypes()
	if err != nil {
		return err
	}
	rels := make(map[string]*relEditor)
	mediaNames := f.placeMedia(te)

	rb := &rebuilder{file: f, nextDocPr: 1000}
	touched := make(map[string]bool)
	for _, b := range f.doc.Blocks {
		if !b.Dirty() {
			continue
		}
		p, ok := f.paras[b.ID]
		if !ok {
			continue
		}
		home := f.homes[b.ID]
		for i := range b.Runs {
			img := b.Runs[i].Image
			if img == nil || img.Media < 0 || img.RelID != "" {
				continue
			}
			name, ok := mediaNames[img.Media]
			if !ok {
				return fmt.Errorf("image run references unknown media %d", img.Media)
			}
			re, err := f.relsFor(home, rels)
			if err != nil {
				return err
			}
			img.RelID = re.add(relTypeImage, relTarget(home, name))
		}
		if err := rb.rebuild(p, b); err != nil {
			return fmt.Errorf("rebuilding paragraph %d: %w", b.ID, err)
		}
		touched[home] = true
	}

	if err := f.writeComments(te, rels); err != nil {
		return err
	}

	for name := range touched {
		out, err := f.trees[name].WriteToBytes()
		if err != nil {
			return fmt.Errorf("serializing %s: %w", name, err)
		}
		f.setPart(name, out)
	}
	for _, re := range rels {
		if !re.dirty {
			continue
		}
		out, err := re.tree.WriteToBytes()
		if err != nil {
			return fmt.Errorf("serializing %s: %w", re.name, err)
		}
		f.setPart(re.name, out)
	}
	if te.dirty {
		out, err := te.tree.WriteToBytes()
		if err != nil {
			return fmt.Errorf("serializing content types: %w", err)
		}
		f.setPart("[Content_Types].xml", out)
	}
	return nil
}

// relTarget computes a relationship target for a media part relative to the
// part that references it.
func relTarget(from, to string) string {
	dir, _ := path.Split(from)
	return strings.TrimPrefix(to, dir)
}
