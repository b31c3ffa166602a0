package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// SourceKind is the role a target source plays in binding.
type SourceKind uint8

// Source kinds.
const (
	// SourceOther is not parsed: non C/C++ files and vendored code.
	SourceOther SourceKind = iota
	// SourceUnit is a translation unit handed to the front-end.
	SourceUnit
	// SourceInclusion is a header whose declarations are kept when a unit
	// includes it.
	SourceInclusion
)

var unitExts = map[string]bool{
	".cpp": true,
	".cc":  true,
	".cxx": true,
}

// ClassifySource decides the role of path. rel is the project-relative path
// used for vendor detection.
func ClassifySource(path, rel string) SourceKind {
	if enry.IsVendor(filepath.ToSlash(rel)) {
		return SourceOther
	}

	ext := strings.ToLower(filepath.Ext(path))
	if unitExts[ext] {
		return SourceUnit
	}

	if ext == ".h" {
		return SourceInclusion
	}

	switch lang, _ := enry.GetLanguageByExtension(path); lang {
	case "C", "C++":
		return SourceInclusion
	default:
		return SourceOther
	}
}

// splitSources separates translation units from inclusion sources, keeping
// order and dropping what the matcher rejects.
func splitSources(paths []string, root string, m *Matcher) (units, inclusions []string) {
	for _, p := range paths {
		rel := relPath(root, p)
		if !m.Match(rel) {
			continue
		}

		switch ClassifySource(p, rel) {
		case SourceUnit:
			units = append(units, p)
		case SourceInclusion:
			inclusions = append(inclusions, p)
		case SourceOther:
		}
	}

	return units, inclusions
}

// relPath returns p relative to root, or p itself when it lies outside.
func relPath(root, p string) string {
	if root == "" {
		return filepath.ToSlash(p)
	}

	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(p)
	}

	return filepath.ToSlash(rel)
}
