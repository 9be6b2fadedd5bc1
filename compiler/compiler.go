// Package compiler turns an NSS translation unit into a serialized NCS
// bytecode program: resolve includes, build the global/routine symbol
// table, lower the AST through an Emitter, and run the two named
// optimiser passes. Each stage mutates shared state and can fail
// independently, so a caller gets the earliest error with its source
// position rather than a cascade.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aurora-toolkit/core/core"
	"github.com/aurora-toolkit/core/ncs"
	"github.com/aurora-toolkit/core/nss"
	"github.com/aurora-toolkit/core/nss/ast"
	"github.com/aurora-toolkit/core/resref"
)

// Compiler holds everything a Compile call needs beyond the source
// text itself: the ambient Context (logger, generation), a library of
// in-memory includes keyed by resref identity (e.g. the contents of an
// installation's nwscript.nss and shared headers), and a fallback list
// of directories to search for #include targets not found there.
type Compiler struct {
	Context     *core.Context
	Library     map[resref.Identity][]byte
	IncludeDirs []string
}

// Compile parses source, resolves and merges every #include
// transitively, lowers the merged translation unit, runs the
// optimiser passes, and returns the resulting Program. name is used
// only for diagnostics (it never affects codegen).
func (c *Compiler) Compile(source []byte, name string) (*ncs.Program, error) {
	file, err := c.parse(source, name)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{name: true}
	if err := c.resolveIncludes(file, seen); err != nil {
		return nil, err
	}

	e := newEmitter()
	lw := newLowerer(e)
	if err := lw.lowerFile(file); err != nil {
		return nil, err
	}

	prog := e.prog
	prog = RemoveNOP(prog)
	prog = DeadCodeAfterReturn(prog)
	return prog, nil
}

// CompileFile reads path relative to ctx's install root (or as given,
// if absolute), appending its directory to IncludeDirs' search scope, and
// compiles it the same way Compile does.
func (c *Compiler) CompileFile(ctx *core.Context, path string) (*ncs.Program, error) {
	full := path
	if !filepath.IsAbs(full) && ctx != nil && ctx.InstallRoot != "" {
		full = filepath.Join(ctx.InstallRoot, path)
	}
	source, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("compiler: read %s: %w", path, err)
	}
	dir := filepath.Dir(full)
	dirs := append(append([]string{}, c.IncludeDirs...), dir)
	cc := &Compiler{Context: ctx, Library: c.Library, IncludeDirs: dirs}
	return cc.Compile(source, filepath.Base(path))
}

func (c *Compiler) parse(source []byte, name string) (*ast.File, error) {
	lex, err := nss.NewLexer(source, nil)
	if err != nil {
		return nil, fmt.Errorf("compiler: %s: %w", name, err)
	}
	tokens, err := lex.Tokenize()
	if err != nil {
		return nil, fmt.Errorf("compiler: %s: %w", name, err)
	}
	p := nss.NewParser(tokens)
	file, err := p.ParseFile()
	if err != nil {
		return nil, fmt.Errorf("compiler: %s: %w", name, err)
	}
	return file, nil
}

// resolveIncludes walks file.Includes, parsing each target (from the
// library map first, then IncludeDirs) and merging its Structs,
// Functions, and Globals into file, recursing into its own includes.
// seen guards against cyclic or duplicate includes re-merging the same
// unit twice.
func (c *Compiler) resolveIncludes(file *ast.File, seen map[string]bool) error {
	for _, inc := range file.Includes {
		if seen[inc.Path] {
			continue
		}
		seen[inc.Path] = true

		source, err := c.findInclude(inc.Path)
		if err != nil {
			return &CompileError{Line: inc.Pos(), Lexeme: inc.Path, Err: ErrIncludeNotFound}
		}

		included, err := c.parse(source, inc.Path)
		if err != nil {
			return err
		}
		if err := c.resolveIncludes(included, seen); err != nil {
			return err
		}

		file.Structs = append(file.Structs, included.Structs...)
		file.Globals = append(file.Globals, included.Globals...)
		file.Functions = append(file.Functions, included.Functions...)
	}
	return nil
}

func (c *Compiler) findInclude(path string) ([]byte, error) {
	id, err := resref.Identify(path)
	if err == nil {
		if src, ok := c.Library[id]; ok {
			return src, nil
		}
	}
	name := path
	if filepath.Ext(name) == "" {
		name += ".nss"
	}
	for _, dir := range c.IncludeDirs {
		candidate := filepath.Join(dir, name)
		if src, err := os.ReadFile(candidate); err == nil {
			return src, nil
		}
	}
	return nil, ErrIncludeNotFound
}
