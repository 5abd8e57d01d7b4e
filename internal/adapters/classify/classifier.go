// Package classify assigns coarse file types from leading magic bytes.
package classify

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultCacheSize bounds the number of remembered classifications.
const DefaultCacheSize = 4096

// headerSize covers the tar magic at offset 257.
const headerSize = 512

var _ ports.Classifier = (*Classifier)(nil)

// Classifier sniffs the first bytes of a file. Results are cached by path, size and
// modification time so files seen by repeated scans are read once.
type Classifier struct {
	cache *lru.Cache[string, domain.FileType]
}

// New creates a Classifier remembering up to size results.
func New(size int) (*Classifier, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, domain.FileType](size)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create classification cache")
	}
	return &Classifier{cache: cache}, nil
}

// Classify returns the file type of file.
func (c *Classifier) Classify(ctx context.Context, file domain.FileRef) (domain.FileType, error) {
	if err := ctx.Err(); err != nil {
		return domain.FileTypeUnknown, err
	}

	info, err := os.Stat(file.Path)
	if err != nil {
		return domain.FileTypeUnknown, zerr.With(zerr.Wrap(err, "failed to stat file"), "path", file.Path)
	}
	key := file.Path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	if ft, ok := c.cache.Get(key); ok {
		return ft, nil
	}

	header, err := readHeader(file.Path)
	if err != nil {
		return domain.FileTypeUnknown, err
	}
	ft := Sniff(header, file.Name())
	c.cache.Add(key, ft)
	return ft, nil
}

func readHeader(p string) ([]byte, error) {
	f, err := os.Open(p) //nolint:gosec // Path comes from the scan inputs
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open file"), "path", p)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, zerr.With(zerr.Wrap(err, "failed to read file header"), "path", p)
	}
	return buf[:n], nil
}

var (
	magicELF     = []byte{0x7f, 'E', 'L', 'F'}
	magicMZ      = []byte{'M', 'Z'}
	magicOLE     = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	magicRPM     = []byte{0xed, 0xab, 0xee, 0xdb}
	magicZIP     = []byte{'P', 'K', 0x03, 0x04}
	magicGZIP    = []byte{0x1f, 0x8b}
	magicCafe    = []byte{0xca, 0xfe, 0xba, 0xbe}
	magicShebang = []byte{'#', '!'}
	magicUstar   = []byte("ustar")
	machOMagics  = [][]byte{
		{0xfe, 0xed, 0xfa, 0xce},
		{0xfe, 0xed, 0xfa, 0xcf},
		{0xce, 0xfa, 0xed, 0xfe},
		{0xcf, 0xfa, 0xed, 0xfe},
	}
)

// Sniff classifies a file from its header. The name disambiguates OLE compound
// documents, which are reported as MSI when the name carries an .msi extension.
func Sniff(header []byte, name string) domain.FileType {
	switch {
	case bytes.HasPrefix(header, magicELF):
		return domain.FileTypeELF
	case bytes.HasPrefix(header, magicMZ):
		return domain.FileTypePE
	case bytes.HasPrefix(header, magicOLE):
		if strings.EqualFold(path.Ext(name), ".msi") {
			return domain.FileTypeMSI
		}
		return domain.FileTypeOLE
	case bytes.HasPrefix(header, magicRPM):
		return domain.FileTypeRPM
	case bytes.HasPrefix(header, magicZIP):
		return domain.FileTypeZIP
	case bytes.HasPrefix(header, magicGZIP):
		return domain.FileTypeGZIP
	case bytes.HasPrefix(header, magicCafe):
		// Java class files and Mach-O fat binaries share this magic. Class files
		// carry a major version of at least 45 where fat headers carry a small
		// architecture count.
		if len(header) >= 8 && binary.BigEndian.Uint16(header[6:8]) >= 45 {
			return domain.FileTypeJavaClass
		}
		return domain.FileTypeMachO
	case bytes.HasPrefix(header, magicShebang):
		return domain.FileTypeScript
	}
	for _, m := range machOMagics {
		if bytes.HasPrefix(header, m) {
			return domain.FileTypeMachO
		}
	}
	if len(header) >= 262 && bytes.Equal(header[257:262], magicUstar) {
		return domain.FileTypeTAR
	}
	return domain.FileTypeUnknown
}
