package schema

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Detector infers which processor schema applies to an unlabeled file from
// its header row and filename.
type Detector struct {
	registry  *Registry
	threshold float64
}

// NewDetector creates a detector with the given confidence threshold. A
// header-based guess below the threshold is discarded.
func NewDetector(registry *Registry, threshold float64) *Detector {
	return &Detector{registry: registry, threshold: threshold}
}

// Detect returns the best-matching processor name and its confidence.
//
// Header scoring: for each schema, score = |headers ∩ signature| /
// |signature|, keeping the best score above the threshold. A case-insensitive
// processor-name fragment in the filename overrides the header guess
// unconditionally: an explicit hint beats inference.
func (d *Detector) Detect(headers []string, fileName string) (string, float64, error) {
	var bestName string
	var bestScore float64

	headerSet := make(map[string]bool, len(headers))
	for _, h := range headers {
		headerSet[normalizeHeader(h)] = true
	}

	for _, s := range d.registry.All() {
		matched := 0
		for _, col := range s.Signature {
			if headerSet[normalizeHeader(col)] {
				matched++
			}
		}
		score := float64(matched) / float64(len(s.Signature))
		if score > bestScore {
			bestScore = score
			bestName = s.Name
		}
	}

	if hint := d.filenameHint(fileName); hint != "" {
		if bestName != "" && bestName != hint {
			zap.L().Info("schema: filename hint overrides header detection",
				zap.String("file", fileName),
				zap.String("hint", hint),
				zap.String("header_guess", bestName),
				zap.Float64("header_score", bestScore),
			)
		}
		return hint, 1.0, nil
	}

	if bestName == "" || bestScore <= d.threshold {
		return "", 0, eris.Wrapf(ErrUnknownProcessor,
			"schema: detect %s: best guess %q scored %.2f (threshold %.2f)",
			fileName, bestName, bestScore, d.threshold)
	}

	return bestName, bestScore, nil
}

// filenameHint returns the registered processor whose name appears as a
// substring of the filename. When several names match, the longest wins
// (ties alphabetically) so the result does not depend on registry order.
func (d *Detector) filenameHint(fileName string) string {
	lower := strings.ToLower(fileName)
	names := d.registry.Names()
	sort.Strings(names)

	var hint string
	for _, name := range names {
		if strings.Contains(lower, strings.ToLower(name)) && len(name) > len(hint) {
			hint = name
		}
	}
	return hint
}

// normalizeHeader lowercases, trims, and collapses interior whitespace.
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}
