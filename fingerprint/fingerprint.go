// Package fingerprint computes the content identifier that the Felina server assigns to an
// uploaded image, so tests can predict image ids without asking the server.
//
// The identifier is a coarse content summary rather than a full-file digest: 100 bytes are
// sampled at evenly spaced offsets, their decimal values are concatenated, and the resulting
// string is hashed with MD5. Two files with equal content always get the same identifier,
// whatever their names.
//
// The server steps through the content with a floating-point stride of len/100. For lengths
// that are a multiple of 100 that visits exactly the offsets used here, so the ids agree.
// For other lengths the accumulated stride can round differently or take a 101st sample, and
// the ids may differ. Test images should have a length that is a multiple of 100 when the
// listed ids are compared with the server's.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"strconv"
)

// Samples is the number of byte positions that contribute to a fingerprint.
const Samples = 100

// Fingerprint returns the 32-character lowercase hex identifier of the given content.
//
// Sample i is taken at offset floor(i*len/100). Offsets are not deduplicated, so content
// shorter than 100 bytes contributes some bytes more than once. Empty content samples
// nothing and yields the MD5 of the empty string.
func Fingerprint(data []byte) string {
	n := len(data)
	buf := make([]byte, 0, Samples*3)
	if n > 0 {
		for i := 0; i < Samples; i++ {
			buf = strconv.AppendUint(buf, uint64(data[i*n/Samples]), 10)
		}
	}
	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}

// File reads the whole file and returns its fingerprint.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Fingerprint(data), nil
}
