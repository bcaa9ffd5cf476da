package document

// Media is an embedded binary resource (an image) pending serialization into
// the package's media directory.
type Media struct {
	Bytes []byte
	Ext   string // file extension without dot, e.g. "png"
}

// AddMedia registers an embedded resource and returns its index, which image
// runs reference until the serializer assigns package-level names and
// relationship IDs.
func (d *Document) AddMedia(data []byte, ext string) int {
	d.MediaParts = append(d.MediaParts, &Media{Bytes: data, Ext: ext})
	return len(d.MediaParts) - 1
}
