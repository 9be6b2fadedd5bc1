// Package mdl implements the binary model walker and rewriter for the
// engine's MDL (node graph) + MDX (vertex-attribute stream) container
// pair.
//
// The node tree is a set of sub-structures selected by a flag/type
// field read from a fixed offset, walked node-by-node with
// boundary-checked reads through internal/binutil, the same readers
// key and erf share.
//
// Every inter-node reference stored in the file is an absolute file
// offset *minus* the 12-byte prelude (4 zero bytes + 4-byte MDL size +
// 4-byte MDX size); bodyOffset/fileOffset convert
// between the two throughout this package.
package mdl

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/aurora-toolkit/core/internal/binutil"
	"github.com/aurora-toolkit/core/internal/xlog"
)

// preludeSize is the fixed header before the model body: 4 reserved
// zero bytes, the MDL body size, and the MDX size.
const preludeSize = 12

// Model header layout (relative to the start of the body, i.e. file
// offset preludeSize+). The engine reads the root-node offset at
// header byte 168; the surrounding fields follow the geometry/model
// header shape and are kept self-consistent by this package's own
// reader and writer.
const (
	headerFuncPtr1Off    = 0
	headerFuncPtr2Off    = 4
	headerNameOff        = 8
	headerNameLen        = 32
	headerSupermodelOff  = 40
	headerSupermodelLen  = 32
	rootNodeOffsetOff    = 168
	nodeCountOff         = 172
	modelHeaderSize      = 192
)

// Header is the fixed-layout model header at the start of the MDL
// body.
type Header struct {
	Name           string
	SupermodelName string
	RootNodeOffset uint32 // body-relative; see bodyOffset/fileOffset
	NodeCount      uint32
}

// File is an open MDL/MDX pair, memory-mapped for in-place rewriting.
type File struct {
	mdlPath, mdxPath string
	mdl, mdx         mmap.MMap
	mdlFile, mdxFile *os.File
	Header           Header
	logger           *xlog.Helper
}

// Options configures Open.
type Options struct {
	// Logger receives non-fatal structural warnings encountered while
	// walking (e.g. a node flag claims a sub-header the buffer can't
	// hold).
	Logger *xlog.Helper

	// ReadOnly opens both files without write access; mutating
	// operations (RenameTextures, Flip, Transform, ...) then fail.
	ReadOnly bool
}

// Open memory-maps mdlPath and mdxPath and parses the model header.
func Open(mdlPath, mdxPath string, opts *Options) (*File, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = xlog.Default()
	}

	mode := mmap.RDWR
	flag := os.O_RDWR
	if opts.ReadOnly {
		mode = mmap.RDONLY
		flag = os.O_RDONLY
	}

	mdlFile, err := os.OpenFile(mdlPath, flag, 0)
	if err != nil {
		return nil, err
	}
	mdlData, err := mmap.Map(mdlFile, mode, 0)
	if err != nil {
		mdlFile.Close()
		return nil, err
	}

	mdxFile, err := os.OpenFile(mdxPath, flag, 0)
	if err != nil {
		mdlData.Unmap()
		mdlFile.Close()
		return nil, err
	}
	mdxData, err := mmap.Map(mdxFile, mode, 0)
	if err != nil {
		mdxFile.Close()
		mdlData.Unmap()
		mdlFile.Close()
		return nil, err
	}

	f := &File{
		mdlPath: mdlPath, mdxPath: mdxPath,
		mdl: mdlData, mdx: mdxData,
		mdlFile: mdlFile, mdxFile: mdxFile,
		logger: logger,
	}
	if err := f.parseHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) parseHeader() error {
	if len(f.mdl) < preludeSize {
		return ErrInvalidSignature
	}
	if f.mdl[0] != 0 || f.mdl[1] != 0 || f.mdl[2] != 0 || f.mdl[3] != 0 {
		return ErrInvalidSignature
	}
	body := f.mdl[preludeSize:]
	if uint64(len(body)) < uint64(modelHeaderSize) {
		return ErrOffsetOutOfBounds
	}

	name, err := binutil.FixedASCII(body, headerNameOff, headerNameLen)
	if err != nil {
		return err
	}
	super, err := binutil.FixedASCII(body, headerSupermodelOff, headerSupermodelLen)
	if err != nil {
		return err
	}
	root, err := binutil.Uint32(body, rootNodeOffsetOff)
	if err != nil {
		return err
	}
	nodeCount, err := binutil.Uint32(body, nodeCountOff)
	if err != nil {
		return err
	}

	f.Header = Header{Name: name, SupermodelName: super, RootNodeOffset: root, NodeCount: nodeCount}
	return nil
}

// body returns the MDL buffer past the 12-byte prelude.
func (f *File) body() []byte { return f.mdl[preludeSize:] }

// bodyOffset converts an absolute file offset into the file to its
// body-relative (stored) form.
func bodyOffset(fileOff uint32) uint32 { return fileOff - preludeSize }

// fileOffset converts a stored body-relative offset into an absolute
// file offset.
func fileOffset(bodyOff uint32) uint32 { return bodyOff + preludeSize }

// Close unmaps and closes both files, flushing any in-place writes
// made by a mutating operation.
func (f *File) Close() error {
	var firstErr error
	if f.mdl != nil {
		if err := f.mdl.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := f.mdl.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if f.mdlFile != nil {
		if err := f.mdlFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if f.mdx != nil {
		if err := f.mdx.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := f.mdx.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if f.mdxFile != nil {
		if err := f.mdxFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
