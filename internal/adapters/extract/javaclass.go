package extract

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	classMagic     = 0xcafebabe
	mainDescriptor = "([Ljava/lang/String;)V"
	// majorVersionOffset maps class file major versions to Java releases (52 is Java 8).
	majorVersionOffset = 44
)

var errMalformedClass = errors.New("malformed class file")

var _ ports.Capability = (*JavaClassCapability)(nil)

// JavaClassCapability reads the constant pool and hierarchy of compiled Java classes.
type JavaClassCapability struct{}

// NewJavaClassCapability creates a JavaClassCapability.
func NewJavaClassCapability() *JavaClassCapability { return &JavaClassCapability{} }

// Name implements ports.Capability.
func (c *JavaClassCapability) Name() string { return JavaClassName }

// Priority implements ports.Capability.
func (c *JavaClassCapability) Priority() int { return 40 }

// Applies implements ports.Capability.
func (c *JavaClassCapability) Applies(_ domain.FileRef, ft domain.FileType) bool {
	return ft == domain.FileTypeJavaClass
}

// Extract implements ports.Capability.
func (c *JavaClassCapability) Extract(ctx context.Context, file domain.FileRef, _ domain.FileType) (*domain.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read class file"), "path", file.Path)
	}
	cls, err := parseClass(data)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse class file"), "path", file.Path)
	}

	rec := &domain.ExtractionRecord{FileType: domain.FileTypeJavaClass}
	rec.Attributes.Product = strings.ReplaceAll(cls.name, "/", ".")
	rec.Attributes.Extensions = map[string]string{
		"java.class":  rec.Attributes.Product,
		"java.major":  strconv.Itoa(int(cls.major)),
		"java.target": strconv.Itoa(int(cls.major) - majorVersionOffset),
	}
	if cls.hasMain {
		rec.Attributes.EntryPoints = []string{rec.Attributes.Product + ".main"}
	}

	root := classRoot(file.Target(), cls.name)
	for _, ref := range append([]string{cls.super}, cls.interfaces...) {
		if ref == "" || strings.HasPrefix(ref, "java/") || strings.HasPrefix(ref, "javax/") {
			continue
		}
		rec.Dependencies = domain.AppendDependencies(rec.Dependencies, domain.DependencyRef{
			Name:        path.Base(ref) + ".class",
			SearchPaths: []string{path.Join(root, path.Dir(ref))},
		})
	}
	return rec, nil
}

// classRoot strips the package directories of name from the install path, leaving
// the class path root the class was loaded from.
func classRoot(target, name string) string {
	dir := path.Dir(target)
	pkg := path.Dir(name)
	if pkg == "." {
		return dir
	}
	if trimmed, ok := strings.CutSuffix(dir, "/"+pkg); ok {
		if trimmed == "" {
			return "/"
		}
		return trimmed
	}
	return dir
}

type classInfo struct {
	major      uint16
	name       string
	super      string
	interfaces []string
	hasMain    bool
}

type classReader struct {
	data []byte
	off  int
}

func (r *classReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *classReader) u2() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *classReader) u4() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// constant pool tags
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag   byte
	utf8  string
	index uint16
}

func parseClass(data []byte) (*classInfo, error) {
	r := &classReader{data: data}
	magic, err := r.u4()
	if err != nil || magic != classMagic {
		return nil, errMalformedClass
	}
	if _, err := r.u2(); err != nil {
		return nil, errMalformedClass
	}
	major, err := r.u2()
	if err != nil {
		return nil, errMalformedClass
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}
	className := func(idx uint16) string {
		if int(idx) >= len(pool) || pool[idx].tag != tagClass {
			return ""
		}
		nameIdx := pool[idx].index
		if int(nameIdx) >= len(pool) || pool[nameIdx].tag != tagUtf8 {
			return ""
		}
		return pool[nameIdx].utf8
	}
	utf8 := func(idx uint16) string {
		if int(idx) >= len(pool) || pool[idx].tag != tagUtf8 {
			return ""
		}
		return pool[idx].utf8
	}

	info := &classInfo{major: major}
	// access flags
	if _, err := r.u2(); err != nil {
		return nil, errMalformedClass
	}
	this, err := r.u2()
	if err != nil {
		return nil, errMalformedClass
	}
	super, err := r.u2()
	if err != nil {
		return nil, errMalformedClass
	}
	info.name = className(this)
	if info.name == "" {
		return nil, errMalformedClass
	}
	info.super = className(super)

	count, err := r.u2()
	if err != nil {
		return nil, errMalformedClass
	}
	for range count {
		idx, err := r.u2()
		if err != nil {
			return nil, errMalformedClass
		}
		if n := className(idx); n != "" {
			info.interfaces = append(info.interfaces, n)
		}
	}

	// fields
	if err := skipMembers(r, nil); err != nil {
		return nil, err
	}
	// methods
	err = skipMembers(r, func(name, desc uint16) {
		if utf8(name) == "main" && utf8(desc) == mainDescriptor {
			info.hasMain = true
		}
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func readConstantPool(r *classReader) ([]constant, error) {
	count, err := r.u2()
	if err != nil {
		return nil, errMalformedClass
	}
	pool := make([]constant, count)
	for i := 1; i < int(count); i++ {
		tagByte, err := r.bytes(1)
		if err != nil {
			return nil, errMalformedClass
		}
		idx := i
		c := constant{tag: tagByte[0]}
		switch c.tag {
		case tagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, errMalformedClass
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, errMalformedClass
			}
			c.utf8 = string(b)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			if c.index, err = r.u2(); err != nil {
				return nil, errMalformedClass
			}
		case tagMethodHandle:
			if _, err := r.bytes(3); err != nil {
				return nil, errMalformedClass
			}
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			if _, err := r.bytes(4); err != nil {
				return nil, errMalformedClass
			}
		case tagLong, tagDouble:
			if _, err := r.bytes(8); err != nil {
				return nil, errMalformedClass
			}
			// Eight-byte constants occupy two slots.
			i++
		default:
			return nil, zerr.With(zerr.Wrap(errMalformedClass, "unknown constant pool tag"), "tag", int(c.tag))
		}
		pool[idx] = c
	}
	return pool, nil
}

func skipMembers(r *classReader, visit func(name, desc uint16)) error {
	count, err := r.u2()
	if err != nil {
		return errMalformedClass
	}
	for range count {
		header, err := r.bytes(6)
		if err != nil {
			return errMalformedClass
		}
		if visit != nil {
			visit(binary.BigEndian.Uint16(header[2:4]), binary.BigEndian.Uint16(header[4:6]))
		}
		attrs, err := r.u2()
		if err != nil {
			return errMalformedClass
		}
		for range attrs {
			if _, err := r.bytes(2); err != nil {
				return errMalformedClass
			}
			n, err := r.u4()
			if err != nil {
				return errMalformedClass
			}
			if _, err := r.bytes(int(n)); err != nil {
				return errMalformedClass
			}
		}
	}
	return nil
}
