// Package resource defines the resource record shared by every
// archive kind (key, erf) and by the installation lookup layer:
// an identity, a source descriptor, and a lazy payload locator that
// caches a content hash once bytes have actually been read.
//
// A record separates "what identifies this" from "how do I fetch the
// bytes"; the bytes themselves are never retained beyond the call
// that produced them, only their hash.
package resource

import (
	"crypto/sha256"
	"fmt"

	"github.com/aurora-toolkit/core/resref"
)

// SourceKind distinguishes how a record's bytes are physically stored.
type SourceKind int

const (
	// SourceFile is a raw file on a filesystem (override directories).
	SourceFile SourceKind = iota
	// SourceCapsule is an offset+size span inside an ERF/RIM file.
	SourceCapsule
	// SourceKeyed is an offset+size span inside a BIF/BZF data archive,
	// reached indirectly through a KEY file's table.
	SourceKeyed
)

// Locator describes where a record's bytes physically live.
type Locator struct {
	Kind SourceKind

	// Valid when Kind == SourceFile.
	Path string

	// Valid when Kind == SourceCapsule or Kind == SourceKeyed.
	Container string
	Offset    uint32
	Size      uint32

	// Valid when Kind == SourceKeyed: the data-archive index the KEY
	// table's packed id pointed at.
	DataArchiveIndex uint32
}

// Reader produces the bytes a Locator points at. Archive
// implementations supply one bound to their own open file handle(s).
type Reader interface {
	ReadAt(loc Locator) ([]byte, error)
}

// Record is a (identity, source-descriptor, payload-locator) triple.
// It is constructed without reading bytes; Bytes() fetches them
// on demand through the owning Reader and remembers only their
// content hash, never the bytes themselves, so the archive can be
// asked for the same resource many times without retaining memory
// proportional to everything it has ever served.
type Record struct {
	ID     resref.Identity
	Loc    Locator
	reader Reader

	hashed bool
	hash   [32]byte
}

// NewRecord constructs a Record; no I/O happens until Bytes is called.
func NewRecord(id resref.Identity, loc Locator, reader Reader) *Record {
	return &Record{ID: id, Loc: loc, reader: reader}
}

// Bytes reads the record's payload. It does not cache the bytes
// themselves (ownership passes to the caller per the concurrency
// model), only the sha256 content hash, computed the first time Bytes
// is called so later equality checks avoid re-reading.
func (r *Record) Bytes() ([]byte, error) {
	data, err := r.reader.ReadAt(r.Loc)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", r.ID, err)
	}
	if !r.hashed {
		r.hash = sha256.Sum256(data)
		r.hashed = true
	}
	return data, nil
}

// ContentHash returns the cached sha256 of the record's bytes,
// reading them once if they have not been read yet.
func (r *Record) ContentHash() ([32]byte, error) {
	if r.hashed {
		return r.hash, nil
	}
	if _, err := r.Bytes(); err != nil {
		return [32]byte{}, err
	}
	return r.hash, nil
}

// Equal compares two records by content hash when both are available
// without error, falling back to identity equality otherwise, per the
// data model's "Equality is defined by content hash when bytes are
// available, otherwise by identity" rule.
func (r *Record) Equal(other *Record) bool {
	h1, err1 := r.ContentHash()
	h2, err2 := other.ContentHash()
	if err1 == nil && err2 == nil {
		return h1 == h2
	}
	return r.ID.Equal(other.ID)
}
