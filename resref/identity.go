package resref

import (
	"errors"
	"path/filepath"
	"strings"
)

// MaxNameLength is the maximum ASCII length of a resource name.
const MaxNameLength = 16

// Errors returned by this package.
var (
	// ErrNameTooLong is returned in strict mode when a name exceeds
	// MaxNameLength ASCII characters.
	ErrNameTooLong = errors.New("resref: name exceeds 16 ASCII characters")

	// ErrNameNotASCII is returned when a name contains a non-ASCII byte.
	ErrNameNotASCII = errors.New("resref: name is not ASCII")

	// ErrNameWhitespace is returned when a name has leading or trailing
	// whitespace.
	ErrNameWhitespace = errors.New("resref: name has leading or trailing whitespace")

	// ErrInvalidType is returned in strict mode for the invalid-type
	// marker (an extension with no known ResType).
	ErrInvalidType = errors.New("resref: unknown resource type")

	// ErrEmptyName is returned when a name is empty after stripping.
	ErrEmptyName = errors.New("resref: empty name")
)

// Identity is the canonical (name, type) pair naming a resource.
// Identities compare case-insensitively; Name is stored exactly as
// parsed so String/Identify round-trip on case, but Equal and map
// lookups always fold case.
type Identity struct {
	Name string
	Type ResType
}

// String returns the canonical lowercase form: lowercase(name) + "." +
// lowercase(extension).
func (id Identity) String() string {
	ext := strings.ToLower(id.Type.Extension)
	if ext == "" {
		return strings.ToLower(id.Name)
	}
	return strings.ToLower(id.Name) + "." + ext
}

// Key returns the case-folded string used for map lookups and hashing;
// identical to String() but named separately so callers reading the
// lookup-table code don't confuse it with a display string.
func (id Identity) Key() string { return id.String() }

// Equal reports whether two identities name the same resource,
// case-insensitively.
func (id Identity) Equal(other Identity) bool {
	return id.Key() == other.Key()
}

// Identify parses a filename or path into an Identity following the
// rightmost-dot-first rule: starting from the rightmost dot and moving
// left, try each (name, ext) split and look ext up in the extension
// table; the first match wins. If no dot position matches a known
// extension, the stem before the last dot becomes the name and the
// final extension string becomes an unknown ResType (Invalid with that
// Extension set), so multi-dot names like "foo.bar.uti" parse as
// (name="foo.bar", type=UTI) rather than (name="foo", type="bar.uti").
func Identify(nameOrPath string) (Identity, error) {
	base := filepath.Base(nameOrPath)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return Identity{}, ErrEmptyName
	}

	dots := dotPositions(base)
	for _, i := range dots {
		name := base[:i]
		ext := strings.ToLower(base[i+1:])
		if t, ok := TypeByExtension(ext); ok {
			return Identity{Name: name, Type: t}, nil
		}
	}

	// No dot position matched a known extension: fall back to stem +
	// final extension, marked unknown.
	last := strings.LastIndexByte(base, '.')
	if last < 0 {
		return Identity{Name: base, Type: Invalid}, nil
	}
	unknown := ResType{Extension: strings.ToLower(base[last+1:]), name: "unknown"}
	return Identity{Name: base[:last], Type: unknown}, nil
}

// dotPositions returns the indices of every '.' in s, ordered from the
// rightmost to the leftmost, matching the "starting from the rightmost
// dot and moving left" rule.
func dotPositions(s string) []int {
	var positions []int
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			positions = append(positions, i)
		}
	}
	return positions
}

// Validate checks id against the invariants from the data model: ASCII
// name, at most MaxNameLength characters, no leading/trailing
// whitespace. In strict mode it additionally rejects the empty name
// and the invalid-type marker. In loose mode it truncates an
// over-length name to MaxNameLength instead of failing.
func Validate(id Identity, strict bool) (Identity, error) {
	name := id.Name
	if name == "" {
		if strict {
			return id, ErrEmptyName
		}
	}
	if strings.TrimSpace(name) != name {
		return id, ErrNameWhitespace
	}
	if !isASCII(name) {
		return id, ErrNameNotASCII
	}
	if len(name) > MaxNameLength {
		if strict {
			return id, ErrNameTooLong
		}
		id.Name = name[:MaxNameLength]
	}
	if strict && id.Type.Extension != "" {
		if _, ok := TypeByID(id.Type.ID); !ok && id.Type.ID != Invalid.ID {
			return id, ErrInvalidType
		}
	}
	return id, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
