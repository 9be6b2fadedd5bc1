// Package erf implements the ERF/MOD/SAV/RIM capsule formats: single-file
// containers that hold an unordered set of resources addressed by
// identity rather than by path, used for modules and save games.
//
// A capsule is opened by mmap like key.Archive and indexed as an
// ordered record list plus an identity-keyed map, so iteration
// preserves on-disk order while lookups stay constant-time.
package erf

import (
	"crypto/sha256"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/aurora-toolkit/core/internal/binutil"
	"github.com/aurora-toolkit/core/internal/xlog"
	"github.com/aurora-toolkit/core/resref"
)

// Kind distinguishes the four capsule signatures (ERF, MOD and SAV
// share one layout; RIM has its own).
type Kind int

const (
	KindERF Kind = iota
	KindMOD
	KindSAV
	KindRIM
)

func (k Kind) String() string {
	switch k {
	case KindERF:
		return "ERF"
	case KindMOD:
		return "MOD"
	case KindSAV:
		return "SAV"
	case KindRIM:
		return "RIM"
	default:
		return "unknown"
	}
}

const (
	erfHeaderSize  = 160
	erfVersion     = "V1.0"
	erfKeyEntrySz  = 16 + 4 + 2 + 2 // resref + res id + type + unused
	erfResEntrySz  = 4 + 4          // offset, size

	rimHeaderSize = 120
	rimVersion    = "V1.0"
	rimEntrySz    = 16 + 2 + 2 + 4 + 4 + 4 // resref, type, unused, resID, offset, size
)

// Record is one resource's position within an open capsule.
type Record struct {
	ID     resref.Identity
	Offset uint32
	Size   uint32
}

// Capsule is an in-memory directory over an ERF/MOD/SAV/RIM file, plus
// any pending in-memory edits staged by Set/Remove. Open reads the
// directory and mmaps the file for Get; Write always re-serializes
// the whole capsule rather than patching the old file in place.
type Capsule struct {
	kind    Kind
	records []*Record
	index   map[string]int // Identity.Key() -> index into records

	// pending holds bytes staged via Set that are not yet backed by
	// the open file (new or replaced resources); absent entries fall
	// through to the mmap via their Record's Offset/Size.
	pending map[string][]byte

	data   mmap.MMap
	f      *os.File
	logger *xlog.Helper
}

// Options configures Open.
type Options struct {
	Logger *xlog.Helper
}

// New returns an empty in-memory capsule of the given kind, ready to
// be populated with Set and persisted with Write. Unlike Open, it has
// no backing file.
func New(kind Kind) *Capsule {
	return &Capsule{
		kind:    kind,
		index:   make(map[string]int),
		pending: make(map[string][]byte),
	}
}

// Open parses the capsule directory at path and mmaps its resource
// data for later Get calls.
func Open(path string, opts *Options) (*Capsule, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = xlog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	c, err := parseCapsule(data)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	c.data = data
	c.f = f
	c.logger = logger
	c.pending = make(map[string][]byte)
	return c, nil
}

func parseCapsule(data []byte) (*Capsule, error) {
	if len(data) < 8 {
		return nil, ErrInvalidSignature
	}
	sig := string(data[0:4])
	ver := string(data[4:8])

	switch sig {
	case "ERF ":
		if ver != erfVersion {
			return nil, fmt.Errorf("%w: erf version %q", ErrInvalidSignature, ver)
		}
		return parseERF(data, KindERF)
	case "MOD ":
		if ver != erfVersion {
			return nil, fmt.Errorf("%w: mod version %q", ErrInvalidSignature, ver)
		}
		return parseERF(data, KindMOD)
	case "SAV ":
		if ver != erfVersion {
			return nil, fmt.Errorf("%w: sav version %q", ErrInvalidSignature, ver)
		}
		return parseERF(data, KindSAV)
	case "RIM ":
		if ver != rimVersion {
			return nil, fmt.Errorf("%w: rim version %q", ErrInvalidSignature, ver)
		}
		return parseRIM(data)
	default:
		return nil, ErrInvalidSignature
	}
}

func parseERF(data []byte, kind Kind) (*Capsule, error) {
	entryCount, err := binutil.Uint32(data, 8)
	if err != nil {
		return nil, err
	}
	keyListOffset, err := binutil.Uint32(data, 64)
	if err != nil {
		return nil, err
	}
	resourceListOffset, err := binutil.Uint32(data, 68)
	if err != nil {
		return nil, err
	}

	c := &Capsule{kind: kind, index: make(map[string]int, entryCount)}

	for i := uint32(0); i < entryCount; i++ {
		keyOff := keyListOffset + i*erfKeyEntrySz
		nameBytes, err := binutil.BytesAt(data, keyOff, 16)
		if err != nil {
			return nil, err
		}
		typeID, err := binutil.Uint16(data, keyOff+20)
		if err != nil {
			return nil, err
		}

		resOff := resourceListOffset + i*erfResEntrySz
		offset, err := binutil.Uint32(data, resOff)
		if err != nil {
			return nil, err
		}
		size, err := binutil.Uint32(data, resOff+4)
		if err != nil {
			return nil, err
		}

		rtype, _ := resref.TypeByID(typeID)
		id := resref.Identity{Name: trimNul(string(nameBytes)), Type: rtype}

		if err := c.append(id, offset, size); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseRIM(data []byte) (*Capsule, error) {
	entryCount, err := binutil.Uint32(data, 16)
	if err != nil {
		return nil, err
	}
	tableOffset, err := binutil.Uint32(data, 20)
	if err != nil {
		return nil, err
	}

	c := &Capsule{kind: KindRIM, index: make(map[string]int, entryCount)}

	for i := uint32(0); i < entryCount; i++ {
		rowOff := tableOffset + i*rimEntrySz
		nameBytes, err := binutil.BytesAt(data, rowOff, 16)
		if err != nil {
			return nil, err
		}
		typeID, err := binutil.Uint16(data, rowOff+16)
		if err != nil {
			return nil, err
		}
		offset, err := binutil.Uint32(data, rowOff+24)
		if err != nil {
			return nil, err
		}
		size, err := binutil.Uint32(data, rowOff+28)
		if err != nil {
			return nil, err
		}

		rtype, _ := resref.TypeByID(typeID)
		id := resref.Identity{Name: trimNul(string(nameBytes)), Type: rtype}

		if err := c.append(id, offset, size); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Capsule) append(id resref.Identity, offset, size uint32) error {
	key := id.Key()
	if _, dup := c.index[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, key)
	}
	c.index[key] = len(c.records)
	c.records = append(c.records, &Record{ID: id, Offset: offset, Size: size})
	return nil
}

// Kind reports which of ERF/MOD/SAV/RIM this capsule was opened as.
func (c *Capsule) Kind() Kind { return c.kind }

// Get returns the bytes of the resource named by id, preferring a
// pending in-memory edit staged by Set over the backing file.
func (c *Capsule) Get(id resref.Identity) ([]byte, error) {
	key := id.Key()
	if data, ok := c.pending[key]; ok {
		return data, nil
	}
	idx, ok := c.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}
	rec := c.records[idx]
	if c.data == nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}
	return binutil.BytesAt(c.data, rec.Offset, rec.Size)
}

// Entry is one (identity, offset, size) triple yielded by Iter. Offset
// and Size are only meaningful for resources backed by the open file;
// resources staged via Set report Offset==0, Size==len(bytes staged).
type Entry struct {
	ID     resref.Identity
	Offset uint32
	Size   uint32
}

// Iter returns every resource currently in the capsule, in directory
// order followed by any newly Set resources. Set always keeps the
// index and record list in sync, so every pending edit is reachable
// through a record here.
func (c *Capsule) Iter() []Entry {
	out := make([]Entry, 0, len(c.records))
	for _, rec := range c.records {
		if data, ok := c.pending[rec.ID.Key()]; ok {
			out = append(out, Entry{ID: rec.ID, Size: uint32(len(data))})
			continue
		}
		out = append(out, Entry{ID: rec.ID, Offset: rec.Offset, Size: rec.Size})
	}
	return out
}

// Set stages data as the content for id, replacing any existing entry
// of the same identity. The change is only durable once Write is
// called.
func (c *Capsule) Set(id resref.Identity, data []byte) {
	key := id.Key()
	if c.pending == nil {
		c.pending = make(map[string][]byte)
	}
	if _, exists := c.index[key]; !exists {
		c.index[key] = len(c.records)
		c.records = append(c.records, &Record{ID: id})
	}
	c.pending[key] = data
}

// Remove drops id from the capsule, reporting whether it was present.
func (c *Capsule) Remove(id resref.Identity) bool {
	key := id.Key()
	idx, ok := c.index[key]
	if !ok {
		return false
	}
	delete(c.pending, key)
	delete(c.index, key)
	c.records = append(c.records[:idx], c.records[idx+1:]...)
	for i := idx; i < len(c.records); i++ {
		c.index[c.records[i].ID.Key()] = i
	}
	return true
}

// ConvertTo returns a new in-memory capsule of the given kind holding
// the same resources. The source capsule is left untouched; call
// Write on the result to persist it.
func (c *Capsule) ConvertTo(kind Kind) (*Capsule, error) {
	out := &Capsule{
		kind:    kind,
		index:   make(map[string]int, len(c.records)),
		pending: make(map[string][]byte, len(c.records)),
	}
	for _, e := range c.Iter() {
		data, err := c.Get(e.ID)
		if err != nil {
			return nil, err
		}
		out.Set(e.ID, data)
	}
	return out, nil
}

// Equal reports whether two capsules hold the same set of identities
// with identical content, regardless of on-disk ordering or kind.
func (c *Capsule) Equal(other *Capsule) bool {
	if other == nil {
		return false
	}
	a, b := c.Iter(), other.Iter()
	if len(a) != len(b) {
		return false
	}
	hashes := make(map[string][32]byte, len(a))
	for _, e := range a {
		data, err := c.Get(e.ID)
		if err != nil {
			return false
		}
		hashes[e.ID.Key()] = sha256.Sum256(data)
	}
	for _, e := range b {
		data, err := other.Get(e.ID)
		if err != nil {
			return false
		}
		want, ok := hashes[e.ID.Key()]
		if !ok || want != sha256.Sum256(data) {
			return false
		}
	}
	return true
}

// Close releases the capsule's memory mapping and file handle.
func (c *Capsule) Close() error {
	if c.data != nil {
		_ = c.data.Unmap()
	}
	if c.f != nil {
		return c.f.Close()
	}
	return nil
}

func trimNul(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i]
		}
	}
	return s
}
