package revise

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	// Raster decoders for placeholder substitution. GIF/JPEG/PNG come from
	// the standard library; BMP, TIFF and WebP from golang.org/x/image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tsawler/redline/document"
	"github.com/tsawler/redline/match"
)

// emuPerMM converts millimetres to English Metric Units (914400 EMU/inch).
const emuPerMM = 36000

// ErrImageDecode reports image bytes that are not a decodable raster format.
var ErrImageDecode = errors.New("image decode failed")

// ErrBadSize reports a size constraint that cannot produce a visible image.
var ErrBadSize = errors.New("invalid image size")

// SizeConstraint bounds the rendered size of a substituted image in
// millimetres. HeightMM of zero preserves the aspect ratio of the decoded
// image at the given width.
type SizeConstraint struct {
	WidthMM  float64
	HeightMM float64
}

// SubstituteImage replaces the spanned placeholder text with an embedded
// image, tracked exactly like a text replace: the placeholder runs are marked
// deleted and an image-bearing run is inserted after them, so the
// substitution can be accepted or rejected in review. The image bytes are
// decoded before any mutation; undecodable bytes fail the operation and
// leave the document untouched.
func SubstituteImage(doc *document.Document, span match.Span, data []byte, size SizeConstraint, author string, date time.Time) (del, ins *document.RevisionTag, err error) {
	if size.WidthMM <= 0 {
		return nil, nil, fmt.Errorf("%w: width must be positive", ErrBadSize)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	b, err := validate(doc, span)
	if err != nil {
		return nil, nil, err
	}

	width := int64(size.WidthMM * emuPerMM)
	var height int64
	if size.HeightMM > 0 {
		height = int64(size.HeightMM * emuPerMM)
	} else {
		// Preserve aspect ratio from the decoded pixel bounds.
		height = int64(float64(width) * float64(cfg.Height) / float64(cfg.Width))
	}

	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	media := doc.AddMedia(data, ext)

	first, last := isolate(b, span)
	del = doc.NewRevision(document.Deleted, author, date)
	for i := first; i <= last; i++ {
		if b.Runs[i].Live() {
			b.Runs[i].Rev = del
		}
	}

	ins = doc.NewRevision(document.Inserted, author, date)
	b.InsertRuns(last+1, document.Run{
		Props: b.Runs[first].Props,
		Rev:   ins,
		Link:  b.Runs[first].Link,
		Image: &document.Image{
			Media:  media,
			Name:   span.Text,
			Width:  width,
			Height: height,
		},
	})
	return del, ins, nil
}
