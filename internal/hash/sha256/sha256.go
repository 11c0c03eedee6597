// Package sha256 provides SHA-256 hashing utilities.
package sha256

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hasher digests ordered field lists with SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// HashFields digests an ordered list of fields. Each field is prefixed with its
// byte length so that ("ab","c") and ("a","bc") never collide.
func (h *Hasher) HashFields(fields ...string) string {
	return hex.EncodeToString(FieldDigest(fields...))
}

// FieldDigest returns the raw length-prefixed SHA-256 digest of fields.
func FieldDigest(fields ...string) []byte {
	d := sha256.New()
	var prefix [8]byte
	for _, f := range fields {
		binary.BigEndian.PutUint64(prefix[:], uint64(len(f)))
		_, _ = d.Write(prefix[:])
		_, _ = d.Write([]byte(f))
	}
	return d.Sum(nil)
}
