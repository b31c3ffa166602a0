package clangjson

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

var diagLine = regexp.MustCompile(`^(.*?):(\d+):(\d+): (fatal error|error|warning|note): (.*)$`)

var severities = map[string]ast.Severity{
	"note":        ast.SeverityNote,
	"warning":     ast.SeverityWarning,
	"error":       ast.SeverityError,
	"fatal error": ast.SeverityFatal,
}

// parseDiagnostics reads clang's human-readable diagnostics from stderr.
// Caret and source-excerpt lines are ignored.
func parseDiagnostics(stderr []byte) ast.Diagnostics {
	var out ast.Diagnostics

	sc := bufio.NewScanner(bytes.NewReader(stderr))
	for sc.Scan() {
		m := diagLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}

		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])

		out = append(out, ast.Diagnostic{
			Message:  m[5],
			Location: ast.Location{File: m[1], Line: line, Column: col},
			Severity: severities[m[4]],
		})
	}

	return out
}
