// Package key implements the keyed archive pair: a directory-only KEY
// file listing (name, type, data-archive id, in-archive index) tuples,
// and one or more data archives (BIF, or its LZMA1-compressed variant
// BZF) that store the actual payload bytes.
//
// The KEY file is memory-mapped only while it is parsed; each data
// archive stays mapped for the archive's lifetime. Reads are
// boundary-checked via internal/binutil and a failure to open one data
// archive is fatal only for the identities stored in it, not for the
// archive as a whole.
package key

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/aurora-toolkit/core/internal/binutil"
	"github.com/aurora-toolkit/core/internal/xlog"
	"github.com/aurora-toolkit/core/resref"
)

const (
	keyHeaderSize    = 64
	fileTableOffset0 = 64 // file-table offset is always 64
	fileTableEntrySz = 12 // archive size, filename offset, filename length
	keyTableEntrySz  = 16 + 2 + 4
	bifHeaderSize    = 20
	bifEntrySize     = 16
	payloadAlignment = 4
)

const (
	keySignature = "KEY "
	keyVersion   = "V1  "
	bifSignature = "BIFFV1  "
	bzfSignature = "BZF V1  "
)

// dataArchiveKind distinguishes BIF from BZF.
type dataArchiveKind int

const (
	kindBIF dataArchiveKind = iota
	kindBZF
)

// entry is what the KEY table resolves an identity to.
type entry struct {
	id               resref.Identity
	dataArchiveIndex uint32
	inArchiveIndex   uint32
}

// dataArchive is one open BIF or BZF file.
type dataArchive struct {
	kind       dataArchiveKind
	path       string
	data       mmap.MMap
	f          *os.File
	resources  []bifResource // indexed by in-archive index
}

type bifResource struct {
	offset           uint32
	uncompressedSize uint32
	typeID           uint16
}

// Options configures Open.
type Options struct {
	// Logger receives warnings about data archives that fail to open;
	// such failures are fatal only for resources stored in them.
	Logger *xlog.Helper
}

// Archive is an open KEY file plus its resolved data archives.
type Archive struct {
	entries      []entry
	byIdentity   map[string]int // Identity.Key() -> index into entries
	dataArchives []*dataArchive
	logger       *xlog.Helper
}

// Open parses keyPath and opens every data archive it references. A
// data archive that fails to open is logged and skipped; only lookups
// for resources stored in it will fail (ErrDataArchiveMissing).
func Open(keyPath string, opts *Options) (*Archive, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = xlog.Default()
	}

	f, err := os.Open(keyPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer data.Unmap()

	return parseKey(data, keyPath, logger)
}

func parseKey(data []byte, keyPath string, logger *xlog.Helper) (*Archive, error) {
	if len(data) < keyHeaderSize {
		return nil, ErrInvalidSignature
	}
	if string(data[0:4]) != keySignature {
		return nil, ErrInvalidSignature
	}
	if string(data[4:8]) != keyVersion {
		return nil, ErrInvalidVersion
	}

	dataArchiveCount, _ := binutil.Uint32(data, 8)
	resourceCount, _ := binutil.Uint32(data, 12)
	fileTableOffset, _ := binutil.Uint32(data, 16)
	keyTableOffset, _ := binutil.Uint32(data, 20)

	archive := &Archive{
		byIdentity: make(map[string]int, resourceCount),
		logger:     logger,
	}

	dir := dirOf(keyPath)
	for i := uint32(0); i < dataArchiveCount; i++ {
		rowOff := fileTableOffset + i*fileTableEntrySz
		_, err := binutil.Uint32(data, rowOff) // archive size, informational
		if err != nil {
			return nil, err
		}
		filenameOffset, err := binutil.Uint32(data, rowOff+4)
		if err != nil {
			return nil, err
		}
		filenameLength, err := binutil.Uint32(data, rowOff+8)
		if err != nil {
			return nil, err
		}
		nameBytes, err := binutil.BytesAt(data, filenameOffset, filenameLength)
		if err != nil {
			return nil, err
		}
		name := trimNul(string(nameBytes))

		da, err := openDataArchive(joinPath(dir, name))
		if err != nil {
			logger.Warnf("key: could not open data archive %q: %v", name, err)
			archive.dataArchives = append(archive.dataArchives, nil)
			continue
		}
		archive.dataArchives = append(archive.dataArchives, da)
	}

	for i := uint32(0); i < resourceCount; i++ {
		rowOff := keyTableOffset + i*keyTableEntrySz
		nameBytes, err := binutil.BytesAt(data, rowOff, 16)
		if err != nil {
			return nil, err
		}
		typeID, err := binutil.Uint16(data, rowOff+16)
		if err != nil {
			return nil, err
		}
		packedID, err := binutil.Uint32(data, rowOff+18)
		if err != nil {
			return nil, err
		}

		rtype, _ := resref.TypeByID(typeID)
		id := resref.Identity{Name: trimNul(string(nameBytes)), Type: rtype}

		e := entry{
			id:               id,
			dataArchiveIndex: packedID >> 20,
			inArchiveIndex:   packedID & 0xFFFFF,
		}

		key := id.Key()
		if _, dup := archive.byIdentity[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, key)
		}
		archive.byIdentity[key] = len(archive.entries)
		archive.entries = append(archive.entries, e)
	}

	// Resolve each data archive's own variable resource table now that
	// we know where every archive lives.
	for _, da := range archive.dataArchives {
		if da == nil {
			continue
		}
		if err := da.parseResourceTable(); err != nil {
			logger.Warnf("key: failed to parse data archive %q: %v", da.path, err)
		}
	}

	return archive, nil
}

// Get returns the decompressed bytes of the resource named by id.
func (a *Archive) Get(id resref.Identity) ([]byte, error) {
	idx, ok := a.byIdentity[id.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}
	e := a.entries[idx]
	if int(e.dataArchiveIndex) >= len(a.dataArchives) || a.dataArchives[e.dataArchiveIndex] == nil {
		return nil, fmt.Errorf("%w: %s", ErrDataArchiveMissing, id)
	}
	da := a.dataArchives[e.dataArchiveIndex]
	if int(e.inArchiveIndex) >= len(da.resources) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}
	res := da.resources[e.inArchiveIndex]

	switch da.kind {
	case kindBIF:
		return binutil.BytesAt(da.data, res.offset, res.uncompressedSize)
	case kindBZF:
		return decompressBZFPayload(da.data, res.offset, res.uncompressedSize)
	}
	return nil, ErrResourceNotFound
}

// Identities returns every identity the KEY table lists, in table
// order (the archive's insertion / on-disk order).
func (a *Archive) Identities() []resref.Identity {
	out := make([]resref.Identity, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.id
	}
	return out
}

// Close releases every open data archive's memory mapping and handle.
func (a *Archive) Close() error {
	var firstErr error
	for _, da := range a.dataArchives {
		if da == nil {
			continue
		}
		if err := da.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (da *dataArchive) close() error {
	if da.data != nil {
		_ = da.data.Unmap()
	}
	if da.f != nil {
		return da.f.Close()
	}
	return nil
}

func openDataArchive(path string) (*dataArchive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	if len(data) < bifHeaderSize {
		data.Unmap()
		f.Close()
		return nil, ErrInvalidSignature
	}
	sig := string(data[0:8])
	var kind dataArchiveKind
	switch sig {
	case bifSignature:
		kind = kindBIF
	case bzfSignature:
		kind = kindBZF
	default:
		data.Unmap()
		f.Close()
		return nil, ErrInvalidSignature
	}

	return &dataArchive{kind: kind, path: path, data: data, f: f}, nil
}

func (da *dataArchive) parseResourceTable() error {
	varCount, err := binutil.Uint32(da.data, 8)
	if err != nil {
		return err
	}
	tableOffset, err := binutil.Uint32(da.data, 16)
	if err != nil {
		return err
	}

	da.resources = make([]bifResource, varCount)
	for i := uint32(0); i < varCount; i++ {
		rowOff := tableOffset + i*bifEntrySize
		offset, err := binutil.Uint32(da.data, rowOff+4)
		if err != nil {
			return err
		}
		size, err := binutil.Uint32(da.data, rowOff+8)
		if err != nil {
			return err
		}
		typeID, err := binutil.Uint32(da.data, rowOff+12)
		if err != nil {
			return err
		}
		da.resources[i] = bifResource{offset: offset, uncompressedSize: size, typeID: uint16(typeID)}
	}
	return nil
}

func trimNul(s string) string {
	if i := indexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}

func joinPath(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return dir + "/" + name
}

