package installation

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aurora-toolkit/core/core"
)

// Confidence reports how decisive a heuristic's verdict was.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceHigh
)

// marker pairs a glob (relative to an installation root) with the
// generation it's evidence for. Markers are game-specific executables
// or data directories that only exist in one generation's layout.
type marker struct {
	glob       string
	generation core.Generation
	weight     int
}

var markers = []marker{
	{glob: "swkotor.exe", generation: core.GenerationOne, weight: 3},
	{glob: "swkotor2.exe", generation: core.GenerationTwo, weight: 3},
	{glob: "streamwaves", generation: core.GenerationOne, weight: 1},
	{glob: "streamvoice", generation: core.GenerationTwo, weight: 1},
	{glob: "data/player*.bif", generation: core.GenerationOne, weight: 1},
	{glob: "modules/*_s.rim", generation: core.GenerationTwo, weight: 2},
}

// DetectGeneration scores root against a table of marker paths known
// to be generation-specific and returns the best-scoring generation,
// or GenerationUnknown with ConfidenceNone when no marker matched.
func DetectGeneration(root string) (core.Generation, Confidence) {
	scores := map[core.Generation]int{}

	for _, m := range markers {
		matches, err := doublestar.Glob(os.DirFS(root), m.glob)
		if err != nil || len(matches) == 0 {
			continue
		}
		scores[m.generation] += m.weight
	}

	best := core.GenerationUnknown
	bestScore := 0
	tie := false
	for gen, score := range scores {
		switch {
		case score > bestScore:
			best, bestScore, tie = gen, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}

	switch {
	case bestScore == 0:
		return core.GenerationUnknown, ConfidenceNone
	case tie:
		return core.GenerationUnknown, ConfidenceLow
	case bestScore >= 3:
		return best, ConfidenceHigh
	default:
		return best, ConfidenceLow
	}
}
