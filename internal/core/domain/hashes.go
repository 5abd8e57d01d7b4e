package domain

import "strings"

// ContentHashes holds the content digests of a file.
// SHA256 is the strong hash and the primary identity key. SHA1 and MD5 are legacy
// digests kept for lookups only.
type ContentHashes struct {
	SHA256 string `json:"sha256"`
	SHA1   string `json:"sha1,omitempty"`
	MD5    string `json:"md5,omitempty"`
}

// Normalize returns the hashes in lowercase hex with surrounding whitespace removed.
func (h ContentHashes) Normalize() ContentHashes {
	return ContentHashes{
		SHA256: normalizeHex(h.SHA256),
		SHA1:   normalizeHex(h.SHA1),
		MD5:    normalizeHex(h.MD5),
	}
}

// HasStrong reports whether a usable strong hash is present.
func (h ContentHashes) HasStrong() bool {
	return ValidSHA256(h.SHA256)
}

// fillMissing copies legacy digests from o that are absent in h.
func (h *ContentHashes) fillMissing(o ContentHashes) {
	if h.SHA1 == "" {
		h.SHA1 = o.SHA1
	}
	if h.MD5 == "" {
		h.MD5 = o.MD5
	}
}

// ValidSHA256 reports whether s is a 64 character hex digest.
func ValidSHA256(s string) bool {
	return isHex(s, 64)
}

func normalizeHex(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
