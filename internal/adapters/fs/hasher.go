package fs

import (
	"crypto/md5"  //nolint:gosec // Legacy digest kept for lookups only
	"crypto/sha1" //nolint:gosec // Legacy digest kept for lookups only
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/zerr"
)

// Hasher computes content digests of files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashFile reads path once and returns its SHA-256, SHA-1 and MD5 digests and size.
func (h *Hasher) HashFile(path string) (domain.ContentHashes, int64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return domain.ContentHashes{}, 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	return h.HashReader(f)
}

// HashReader digests everything readable from r.
func (h *Hasher) HashReader(r io.Reader) (domain.ContentHashes, int64, error) {
	s256 := sha256.New()
	s1 := sha1.New() //nolint:gosec // Legacy digest kept for lookups only
	m5 := md5.New()  //nolint:gosec // Legacy digest kept for lookups only

	n, err := io.Copy(io.MultiWriter(s256, s1, m5), r)
	if err != nil {
		return domain.ContentHashes{}, 0, zerr.Wrap(err, "failed to hash file content")
	}

	return domain.ContentHashes{
		SHA256: hex.EncodeToString(s256.Sum(nil)),
		SHA1:   hex.EncodeToString(s1.Sum(nil)),
		MD5:    hex.EncodeToString(m5.Sum(nil)),
	}, n, nil
}
