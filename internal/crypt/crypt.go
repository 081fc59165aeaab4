// Package crypt encrypts renditions for private galleries.
//
// Key and IV are deterministic digests of the gallery password and image ID,
// so a client holding the password can re-derive both and decrypt statelessly:
//
//	token = sha256(galleryID + ":" + password)[:16 hex]
//	key   = sha256(token)            (32 bytes, AES-256)
//	iv    = sha256(imageID)[:16]
//
// No salt is stored and the IV does not travel with the ciphertext. The
// cipher is AES-CBC with PKCS#7 padding over the resized JPEG bytes of each
// size class.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"darkroom/internal/identity"
)

// Params derives the encryption key and IV for one rendition set.
func Params(galleryID, imageID, password string) (key, iv []byte) {
	token := identity.PrivateGalleryToken(galleryID, password)
	keySum := sha256.Sum256([]byte(token))
	ivSum := sha256.Sum256([]byte(imageID))
	return keySum[:], ivSum[:aes.BlockSize]
}

// Encrypt returns the AES-CBC ciphertext of plain under key/iv. The output
// is raw ciphertext only; the IV is re-derivable by any holder of the image
// ID and is never prepended.
func Encrypt(plain, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), block.BlockSize())
	}
	padded := pad(plain, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt. It exists for verification and tooling; the
// production decrypt path lives client-side.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), block.BlockSize())
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, errors.New("ciphertext length is not a multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return unpad(out, block.BlockSize())
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
