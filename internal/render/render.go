// Package render turns a decoded source image into sized JPEG renditions:
// EXIF orientation applied first, then a bounding-box downscale per size
// class, then JPEG encoding at the configured quality.
package render

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// Extends image.Decode with webp sources.
	_ "golang.org/x/image/webp"

	"darkroom/internal/fileutil"
	"darkroom/internal/services"
)

// supportedExtensions are the source formats the decoder handles. Files
// with other extensions are ignored during gallery discovery.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".jpe":  true,
	".png":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".webp": true,
}

// IsSupportedFile reports whether the filename has a decodable image
// extension.
func IsSupportedFile(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Open decodes a source image from disk. Orientation is not applied here;
// callers pass the EXIF orientation to Orient explicitly.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrImage, "render", "open", "decode image", err)
	}
	return img, nil
}

// Orient normalizes an image to upright display per its EXIF orientation
// tag (1 through 8). Unknown values pass the image through unchanged.
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipH(imaging.Rotate180(img))
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Fit scales the image down to fit within a maxEdge square, preserving
// aspect ratio. Images already inside the box are returned at their
// original dimensions; nothing is ever upscaled.
func Fit(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxEdge && bounds.Dy() <= maxEdge {
		return img
	}
	return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
}

// EncodeJPEG encodes the image as a baseline JPEG at the given quality
// and returns the bytes, so callers can encrypt before anything touches
// disk.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, services.Wrap(services.ErrImage, "render", "encode", "encode jpeg", err)
	}
	return buf.Bytes(), nil
}

// WriteRendition writes rendition bytes to their final path atomically.
func WriteRendition(path string, data []byte) error {
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrImage, "render", "write", "write rendition", err)
	}
	return nil
}
