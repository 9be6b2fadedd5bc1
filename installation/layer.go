// Package installation merges override directories, capsule sets, and
// keyed archives into a single priority-ordered resource lookup
// namespace.
//
// Layers are independent: each directory or archive making up an
// installation is opened on its own, and a capsule or keyed archive
// that fails to open is logged and skipped rather than aborting the
// whole scan.
package installation

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/aurora-toolkit/core/core"
	"github.com/aurora-toolkit/core/erf"
	"github.com/aurora-toolkit/core/internal/xlog"
	"github.com/aurora-toolkit/core/key"
	"github.com/aurora-toolkit/core/resref"
)

// layer is one priority tier of the installation's lookup namespace.
type layer interface {
	// lookup returns the bytes for id if this layer has it.
	lookup(id resref.Identity) ([]byte, bool, error)
	// identities lists every identity this layer holds, in the
	// layer's own insertion order, marking any entry shadowed by a
	// later source within the same layer (e.g. a second module
	// redefining a resource the first one also carries).
	identities() []shadowedIdentity
	// name identifies the layer for diagnostics.
	name() string
}

// shadowedIdentity is one identity as seen by a layer's own internal
// shadowing, independent of cross-layer priority.
type shadowedIdentity struct {
	ID       resref.Identity
	Shadowed bool
}

// overrideLayer reads loose files directly from a directory, the
// highest-priority and only ad-hoc-editable layer.
type overrideLayer struct {
	dir     string
	entries map[string]string // Identity.Key() -> filename
	order   []resref.Identity
}

func newOverrideLayer(dir string) (*overrideLayer, error) {
	l := &overrideLayer{dir: dir, entries: make(map[string]string)}
	if err := l.scan(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *overrideLayer) scan() error {
	l.entries = make(map[string]string)
	l.order = nil

	infos, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		id, err := resref.Identify(info.Name())
		if err != nil {
			continue
		}
		key := id.Key()
		if _, dup := l.entries[key]; !dup {
			l.order = append(l.order, id)
		}
		l.entries[key] = info.Name()
	}
	return nil
}

func (l *overrideLayer) lookup(id resref.Identity) ([]byte, bool, error) {
	name, ok := l.entries[id.Key()]
	if !ok {
		return nil, false, nil
	}
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (l *overrideLayer) identities() []shadowedIdentity {
	out := make([]shadowedIdentity, len(l.order))
	for i, id := range l.order {
		out[i] = shadowedIdentity{ID: id}
	}
	return out
}
func (l *overrideLayer) name() string { return "override:" + l.dir }

// capsuleLayer indexes a set of opened ERF/RIM capsules (modules,
// lips, rims, or texturepacks), searched in the order they were
// opened — later capsules shadow earlier ones for the same identity,
// matching the "later-added sources shadow earlier ones" rule. Every
// sighting of an identity is retained in order for Enumerate, with all
// but the last marked shadowed; lookup always resolves to the last.
type capsuleLayer struct {
	label    string
	capsules []*erf.Capsule
	index    map[string]int // Identity.Key() -> index into capsules, last writer wins
	order    []resref.Identity
	lastSeen map[string]int // Identity.Key() -> position in order of its last sighting
}

func newCapsuleLayer(label string, paths []string, logger *xlog.Helper) (*capsuleLayer, error) {
	l := &capsuleLayer{label: label, index: make(map[string]int), lastSeen: make(map[string]int)}
	for _, path := range paths {
		c, err := erf.Open(path, &erf.Options{Logger: logger})
		if err != nil {
			logger.Warnf("installation: skipping capsule %q: %v", path, err)
			continue
		}
		idx := len(l.capsules)
		l.capsules = append(l.capsules, c)
		for _, e := range c.Iter() {
			key := e.ID.Key()
			l.index[key] = idx
			l.lastSeen[key] = len(l.order)
			l.order = append(l.order, e.ID)
		}
	}
	return l, nil
}

func (l *capsuleLayer) lookup(id resref.Identity) ([]byte, bool, error) {
	idx, ok := l.index[id.Key()]
	if !ok {
		return nil, false, nil
	}
	data, err := l.capsules[idx].Get(id)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (l *capsuleLayer) identities() []shadowedIdentity {
	out := make([]shadowedIdentity, len(l.order))
	for i, id := range l.order {
		out[i] = shadowedIdentity{ID: id, Shadowed: l.lastSeen[id.Key()] != i}
	}
	return out
}
func (l *capsuleLayer) name() string { return l.label }

func (l *capsuleLayer) close() {
	for _, c := range l.capsules {
		_ = c.Close()
	}
}

// keyedLayer wraps a single chitin.key-style keyed archive. Keyed
// archives are treated as immutable for the installation's lifetime,
// so Reload never rescans this layer.
type keyedLayer struct {
	archive *key.Archive
}

func newKeyedLayer(path string, logger *xlog.Helper) (*keyedLayer, error) {
	a, err := key.Open(path, &key.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return &keyedLayer{archive: a}, nil
}

func (l *keyedLayer) lookup(id resref.Identity) ([]byte, bool, error) {
	data, err := l.archive.Get(id)
	if err != nil {
		return nil, false, nil
	}
	return data, true, nil
}

func (l *keyedLayer) identities() []shadowedIdentity {
	ids := l.archive.Identities()
	out := make([]shadowedIdentity, len(ids))
	for i, id := range ids {
		out[i] = shadowedIdentity{ID: id}
	}
	return out
}
func (l *keyedLayer) name() string { return "keyed:chitin.key" }

func (l *keyedLayer) close() error { return l.archive.Close() }

// Installation is the merged, priority-ordered lookup namespace over
// one installation root: override > modules > lips > rims >
// texturepacks > keyed archives.
type Installation struct {
	ctx    *core.Context
	root   string
	logger *xlog.Helper

	override *overrideLayer
	layers   []layer // modules, lips, rims, texturepacks, keyed-archives in priority order
}

// New scans root and opens every layer it recognises. A capsule or the
// keyed archive that cannot be opened is logged and skipped rather
// than failing New outright; an override directory that exists but
// cannot be read makes New fail.
func New(ctx *core.Context, root string) (*Installation, error) {
	logger := ctx.Logger
	if logger == nil {
		logger = xlog.Default()
	}

	inst := &Installation{ctx: ctx, root: root, logger: logger}

	override, err := newOverrideLayer(filepath.Join(root, "override"))
	if err != nil {
		return nil, err
	}
	inst.override = override

	modules, err := newCapsuleLayer("modules", globCapsules(filepath.Join(root, "modules")), logger)
	if err != nil {
		return nil, err
	}
	lips, err := newCapsuleLayer("lips", globCapsules(filepath.Join(root, "lips")), logger)
	if err != nil {
		return nil, err
	}
	rims, err := newCapsuleLayer("rims", globCapsules(filepath.Join(root, "rims")), logger)
	if err != nil {
		return nil, err
	}
	texturepacks, err := newCapsuleLayer("texturepacks", globCapsules(filepath.Join(root, "texturepacks")), logger)
	if err != nil {
		return nil, err
	}
	inst.layers = []layer{modules, lips, rims, texturepacks}

	chitin := filepath.Join(root, "chitin.key")
	if _, statErr := os.Stat(chitin); statErr == nil {
		keyed, err := newKeyedLayer(chitin, logger)
		if err != nil {
			logger.Warnf("installation: failed to open %q: %v", chitin, err)
		} else {
			inst.layers = append(inst.layers, keyed)
		}
	}

	return inst, nil
}

// globCapsules returns every ERF/MOD/SAV/RIM file directly under dir, in
// a stable, deterministic order (lexical by basename).
func globCapsules(dir string) []string {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		switch ext {
		case ".erf", ".mod", ".sav", ".rim":
			paths = append(paths, filepath.Join(dir, info.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

// Record is one resolved hit against the installation's namespace.
type Record struct {
	ID   resref.Identity
	Data []byte
	// Layer names the source layer the data was read from.
	Layer string
}

// Resource scans layers in priority order and returns the first hit.
func (inst *Installation) Resource(id resref.Identity) (*Record, error) {
	if data, ok, err := inst.override.lookup(id); err != nil {
		return nil, err
	} else if ok {
		return &Record{ID: id, Data: data, Layer: inst.override.name()}, nil
	}

	for _, l := range inst.layers {
		data, ok, err := l.lookup(id)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Record{ID: id, Data: data, Layer: l.name()}, nil
		}
	}
	return nil, ErrResourceNotFound
}

// Resources returns every hit across all layers in priority order,
// including shadowed copies the caller would not see via Resource.
func (inst *Installation) Resources(id resref.Identity) []*Record {
	var out []*Record
	if data, ok, _ := inst.override.lookup(id); ok {
		out = append(out, &Record{ID: id, Data: data, Layer: inst.override.name()})
	}
	for _, l := range inst.layers {
		data, ok, err := l.lookup(id)
		if err != nil || !ok {
			continue
		}
		out = append(out, &Record{ID: id, Data: data, Layer: l.name()})
	}
	return out
}

// Enumerate yields every sighting of an identity of the given resource
// type across all layers in priority order. Duplicates are not
// skipped: each copy is returned, and every copy except the one
// Resource would return is marked Shadowed.
func (inst *Installation) Enumerate(t resref.ResType) []EnumeratedRecord {
	// seen is keyed by the identity's xxhash rather than its string
	// form: across a large installation this set is scanned once per
	// layer per call, and a non-cryptographic fixed-width hash avoids
	// rehashing the canonical string on every membership check. This
	// index only decides the Shadowed flag; content-hash equality stays on sha256
	// (resource.Record).
	seen := make(map[uint64]bool)
	var out []EnumeratedRecord

	allLayers := append([]layer{inst.override}, inst.layers...)
	for _, l := range allLayers {
		var layerSeen []uint64
		for _, si := range l.identities() {
			if si.ID.Type.ID != t.ID {
				continue
			}
			h := xxhash.Sum64String(si.ID.Key())
			shadowed := si.Shadowed || seen[h]
			layerSeen = append(layerSeen, h)
			out = append(out, EnumeratedRecord{ID: si.ID, Layer: l.name(), Shadowed: shadowed})
		}
		// Only a higher-priority layer shadows; copies within this layer
		// are already marked by the layer's own identities().
		for _, h := range layerSeen {
			seen[h] = true
		}
	}
	return out
}

// EnumeratedRecord is one entry yielded by Enumerate.
type EnumeratedRecord struct {
	ID       resref.Identity
	Layer    string
	Shadowed bool
}

// Reload rescans the mutable layers (override and modules); keyed
// archives are immutable for the installation's lifetime and are left
// untouched.
func (inst *Installation) Reload() error {
	if err := inst.override.scan(); err != nil {
		return err
	}
	for _, l := range inst.layers {
		if modules, ok := l.(*capsuleLayer); ok && modules.label == "modules" {
			modules.close()
			rescanned, err := newCapsuleLayer("modules", globCapsules(filepath.Join(inst.root, "modules")), inst.logger)
			if err != nil {
				return err
			}
			*modules = *rescanned
		}
	}
	return nil
}

// Close releases every capsule and archive handle the installation
// opened.
func (inst *Installation) Close() error {
	var firstErr error
	for _, l := range inst.layers {
		switch t := l.(type) {
		case *capsuleLayer:
			t.close()
		case *keyedLayer:
			if err := t.close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
