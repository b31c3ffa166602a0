package ast

import (
	"context"
	"fmt"
	"strings"
)

// Severity orders diagnostics the way compilers do.
type Severity uint8

// Diagnostic severities.
const (
	SeverityIgnored Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
	SeverityFatal
)

var severityNames = [...]string{"ignored", "note", "warning", "error", "fatal"}

// String returns the lowercase severity name.
func (s Severity) String() string {
	if int(s) >= len(severityNames) {
		return "unknown"
	}

	return severityNames[s]
}

// Diagnostic is a front-end message attached to a translation unit.
type Diagnostic struct {
	Message  string   `json:"message"`
	Location Location `json:"location"`
	Severity Severity `json:"severity"`
}

// String formats the diagnostic like a compiler would.
func (d Diagnostic) String() string {
	if d.Location.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}

	return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// Worst returns the highest severity present, or SeverityIgnored.
func (ds Diagnostics) Worst() Severity {
	worst := SeverityIgnored
	for _, d := range ds {
		worst = max(worst, d.Severity)
	}

	return worst
}

// AtLeast returns diagnostics with severity >= min, in order.
func (ds Diagnostics) AtLeast(minSeverity Severity) Diagnostics {
	var out Diagnostics

	for _, d := range ds {
		if d.Severity >= minSeverity {
			out = append(out, d)
		}
	}

	return out
}

// String joins all diagnostics one per line.
func (ds Diagnostics) String() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}

	return strings.Join(lines, "\n")
}

// TranslationUnit is the result of parsing one file.
type TranslationUnit struct {
	Cursor      Cursor
	Spelling    string
	Diagnostics Diagnostics
}

// ParseOptions tunes a single parse.
type ParseOptions struct {
	// DetailedPreprocessing exposes inclusion directives and macro
	// definitions as cursors.
	DetailedPreprocessing bool
}

// Session is one front-end parse context. A Session must not be shared
// between goroutines; callers open one per file task and close it after.
type Session interface {
	Parse(ctx context.Context, file string, args []string, opts ParseOptions) (*TranslationUnit, error)
	Close() error
}

// Frontend creates sessions.
type Frontend interface {
	Name() string
	NewSession() (Session, error)
}
