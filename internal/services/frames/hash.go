package frames

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cespare/xxhash/v2"
	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Checksum returns the xxhash64 of data as 16 hex digits
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// PerceptualHash decodes data and returns its 64-bit pHash
func PerceptualHash(data []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode frame: %w", err)
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("failed to hash frame: %w", err)
	}
	return hash.GetHash(), nil
}

// HashDistance is the Hamming distance between two perceptual hashes
func HashDistance(a, b uint64) int {
	distance, err := goimagehash.NewImageHash(a, goimagehash.PHash).
		Distance(goimagehash.NewImageHash(b, goimagehash.PHash))
	if err != nil {
		return 64
	}
	return distance
}
