// Package records defines the persisted data model: one JSON record per
// image, one consolidated record per gallery, and one site-wide index.
//
// The JSON files are the interface consumed by the template renderer and
// the deploy sync, and the source of truth between runs; field names and
// the output layout must stay stable across runs for unchanged images.
package records

// EXIFTimestampLayout is the capture-time format used everywhere a
// timestamp is persisted: real EXIF values arrive in this layout and
// synthesized fallbacks are formatted to match, so lexicographic order is
// chronological order.
const EXIFTimestampLayout = "2006:01:02 15:04:05"

// FieldDateTimeOriginal is the EXIF map key carrying the capture timestamp.
const FieldDateTimeOriginal = "DateTimeOriginal"

// ImageRecord is the persisted metadata of one source image.
type ImageRecord struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	// URL is the canonical detail-page path for the image.
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Caption string   `json:"caption"`
	Tags    []string `json:"tags"`
	// Lat and Lon are decimal degrees, negative for south/west; nil when
	// the image carries no usable GPS block.
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
	// EXIF maps allow-listed field names to formatted values.
	EXIF map[string]string `json:"exif"`
	// Paths maps size-class names to site-relative rendition paths.
	Paths map[string]string `json:"paths"`
}

// CaptureTime returns the formatted capture timestamp, empty if absent.
func (r ImageRecord) CaptureTime() string {
	return r.EXIF[FieldDateTimeOriginal]
}

// CoverRecord is the reduced image record embedded in a gallery record.
type CoverRecord struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	Title    string            `json:"title"`
	Caption  string            `json:"caption"`
	Paths    map[string]string `json:"paths"`
}

// Cover projects an image record down to its cover embedding.
func (r ImageRecord) Cover() *CoverRecord {
	return &CoverRecord{
		ID:       r.ID,
		Filename: r.Filename,
		Title:    r.Title,
		Caption:  r.Caption,
		Paths:    r.Paths,
	}
}

// GalleryRecord is the consolidated record of one gallery directory.
type GalleryRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	DisplayDate string   `json:"display_date"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
	Encrypted   bool     `json:"encrypted"`
	// Unlisted is forced true for encrypted galleries regardless of the
	// descriptor.
	Unlisted bool `json:"unlisted"`
	// PrivateGalleryID is empty, or the 16-hex token derived from the
	// gallery id and password.
	PrivateGalleryID string `json:"private_gallery_id"`
	// PrivateGalleryIDHash lets the server verify a client-supplied token
	// without storing the password.
	PrivateGalleryIDHash string         `json:"private_gallery_id_hash"`
	Cover                *CoverRecord   `json:"cover"`
	Images               []ImageRecord  `json:"images"`
	LastUpdated          string         `json:"last_updated"`
}

// SiteIndex is the site-wide gallery index, recomputed in full each run.
type SiteIndex struct {
	LastUpdated string          `json:"last_updated"`
	Galleries   []GalleryRecord `json:"galleries"`
}
