// Package preview renders the local thumbnail shown while the backend is
// still working on a photo.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rahul4469/photo-studio/internal/models"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxEdge bounds the longer side of a thumbnail.
	MaxEdge = 480
	// Quality is the JPEG quality of thumbnails.
	Quality = 80
	// ContentType is what Thumbnail produces.
	ContentType = "image/jpeg"
	// MaxPixels caps the canvas a photo may declare before it is decoded.
	MaxPixels = 50_000_000
)

// Thumbnail decodes a photo in any supported format, honors its EXIF
// orientation, fits it into MaxEdge x MaxEdge and encodes it as JPEG.
// Undecodable input, or a canvas above MaxPixels, returns a models.FileError
// without decoding pixel data.
func Thumbnail(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, models.FileError{Issue: fmt.Sprintf("cannot decode image: %v", err)}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, models.FileError{Issue: fmt.Sprintf("image is %dx%d, over the %d pixel preview limit", cfg.Width, cfg.Height, MaxPixels)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, models.FileError{Issue: fmt.Sprintf("cannot decode image: %v", err)}
	}
	return encode(img)
}

func encode(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > MaxEdge || b.Dy() > MaxEdge {
		img = imaging.Fit(img, MaxEdge, MaxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
