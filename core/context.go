// Package core defines the Context threaded through every operation of
// the toolkit in place of process-wide globals (install path, temp
// dir). No package in this module keeps module-level mutable state;
// callers construct a Context once and pass it explicitly.
package core

import "github.com/aurora-toolkit/core/internal/xlog"

// Generation selects one of the two supported engine releases. The
// source format represents some fields inconsistently across
// generations (see design notes); callers must pick one explicitly
// rather than have it inferred.
type Generation int

const (
	// GenerationUnknown is returned by detection heuristics when no
	// generation scores higher than the other.
	GenerationUnknown Generation = iota
	// GenerationOne is the first supported engine generation.
	GenerationOne
	// GenerationTwo is the second supported engine generation.
	GenerationTwo
)

func (g Generation) String() string {
	switch g {
	case GenerationOne:
		return "generation-1"
	case GenerationTwo:
		return "generation-2"
	default:
		return "unknown"
	}
}

// Context carries the ambient configuration every operation needs:
// install root, a scratch directory for temporary files, a logger, and
// a shared string table (TLK-equivalent) used to resolve localized
// strings referenced by generic records outside this core's scope.
type Context struct {
	InstallRoot string
	TempRoot    string
	Generation  Generation
	Logger      *xlog.Helper
	StringTable StringTable
}

// StringTable is the minimal surface the core needs from the external
// TLK string table component; the core never parses TLK files itself.
type StringTable interface {
	String(strRef int32) (string, bool)
}

// New builds a Context whose Logger is always xlog.Default(); use
// WithLogger to replace it.
func New(installRoot, tempRoot string, gen Generation) *Context {
	return &Context{
		InstallRoot: installRoot,
		TempRoot:    tempRoot,
		Generation:  gen,
		Logger:      xlog.Default(),
	}
}

// WithLogger returns a shallow copy of ctx using logger.
func (ctx *Context) WithLogger(logger *xlog.Helper) *Context {
	cp := *ctx
	cp.Logger = logger
	return &cp
}
