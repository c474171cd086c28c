package domain

import "image"

// ImageKey identifies a cached photo. The same reference at two widths is
// two entries since the provider does the resampling.
type ImageKey struct {
	Ref   string
	Width int
}

// ImageBlob is a downloaded and decoded photo.
type ImageBlob struct {
	Ref         string
	Width       int
	ContentType string
	Format      string
	Data        []byte
	Image       image.Image
}

// Key returns the cache key for the blob.
func (b ImageBlob) Key() ImageKey {
	return ImageKey{Ref: b.Ref, Width: b.Width}
}

// Dimensions returns the decoded pixel size.
func (b ImageBlob) Dimensions() (width, height int) {
	if b.Image == nil {
		return 0, 0
	}
	r := b.Image.Bounds()
	return r.Dx(), r.Dy()
}
