package resref

import (
	"os"
	"path/filepath"
	"strings"
)

// FileSystemProbe lists the entries of a directory; CanonicalizePath
// uses it for every directory listing, while its first check that the
// joined path already exists still calls os.Stat directly.
// os.ReadDir satisfies a trivial adapter (see DirProbe).
type FileSystemProbe interface {
	ReadDir(path string) ([]string, error)
}

// DirProbe is the default FileSystemProbe backed by the host
// filesystem.
type DirProbe struct{}

// ReadDir implements FileSystemProbe using os.ReadDir.
func (DirProbe) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// CanonicalizePath resolves relative against root: case-insensitive
// matching only kicks in when the
// concatenation of root and relative does not already exist verbatim.
// In that situation each path segment of relative is replaced, in
// order, by the best case-insensitive match among its siblings in the
// filesystem, scored by the number of characters whose case matches;
// ties are broken by directory order (first hit wins). When a segment
// has no case-insensitive match at all, the original segment is kept
// so that a downstream open still fails with a clear "not found"
// rather than silently resolving to the wrong file.
func CanonicalizePath(root, relative string, fs FileSystemProbe) (string, error) {
	joined := filepath.Join(root, relative)
	if _, err := os.Stat(joined); err == nil {
		return joined, nil
	}

	segments := strings.Split(filepath.ToSlash(relative), "/")
	current := root
	for _, seg := range segments {
		if seg == "" || seg == "." {
			continue
		}
		siblings, err := fs.ReadDir(current)
		if err != nil {
			// Can't probe: keep the segment as given and let the
			// caller's eventual open surface "file not found".
			current = filepath.Join(current, seg)
			continue
		}
		best := seg
		bestScore := -1
		for _, sib := range siblings {
			if !strings.EqualFold(sib, seg) {
				continue
			}
			score := caseMatchScore(sib, seg)
			if score > bestScore {
				bestScore = score
				best = sib
			}
		}
		current = filepath.Join(current, best)
	}
	return current, nil
}

// caseMatchScore counts the positions at which a and b share the same
// byte (not merely the same letter folded), used to break ties among
// multiple case-insensitively-equal siblings.
func caseMatchScore(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	score := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			score++
		}
	}
	return score
}
