// Package identity derives the deterministic identifiers the whole pipeline
// hangs off: image IDs, private gallery tokens, and token hashes.
//
// All functions are pure digests of their inputs, so identity is stable
// across runs. Truncation trades uniqueness for short URL-safe tokens;
// acceptable at gallery scale. Renaming a source file changes its identity
// and the old record becomes an orphan.
package identity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// imageIDLen is the hex length of regular image identifiers.
	imageIDLen = 12
	// encryptedIDLen is the hex length of identifiers inside encrypted
	// galleries; longer to reduce collision risk where content is gated.
	encryptedIDLen = 16
)

// ImageID returns the identifier of an image in a regular gallery: the
// first 12 hex characters of md5("{galleryID}:{filename}").
func ImageID(galleryID, filename string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s", galleryID, filename)))
	return hex.EncodeToString(sum[:])[:imageIDLen]
}

// EncryptedImageID returns the identifier of an image in an encrypted
// gallery: the first 16 hex characters of sha256("{galleryID}:{filename}").
func EncryptedImageID(galleryID, filename string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", galleryID, filename)))
	return hex.EncodeToString(sum[:])[:encryptedIDLen]
}

// ForGallery returns the image identifier appropriate for the gallery's
// encryption setting.
func ForGallery(galleryID, filename string, encrypted bool) string {
	if encrypted {
		return EncryptedImageID(galleryID, filename)
	}
	return ImageID(galleryID, filename)
}

// PrivateGalleryToken returns the opaque token gating a password-protected
// gallery: the first 16 hex characters of sha256("{galleryID}:{password}").
// The token doubles as the input to rendition-key derivation, so it must
// match what clients derive from the password.
func PrivateGalleryToken(galleryID, password string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", galleryID, password)))
	return hex.EncodeToString(sum[:])[:encryptedIDLen]
}

// TokenHash returns the full sha256 hex digest of a private gallery token.
// Stored so the server can verify a client-supplied token without retaining
// the password or the plaintext token.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
