package output

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	sourceExtension = ".cpp"
	dirPerm         = 0o755
	filePerm        = 0o644
)

// ErrStale is returned by Check when a module on disk differs from the
// regenerated source.
var ErrStale = errors.New("bindings are out of date")

// Writer places one <module>.cpp file per module in Dir.
type Writer struct {
	Dir    string
	Logger *slog.Logger
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{Dir: dir, Logger: logger}
}

// Path returns the file a module is written to.
func (w *Writer) Path(module string) string {
	return filepath.Join(w.Dir, module+sourceExtension)
}

// Write stores source for module. The file is replaced through a rename so
// readers never see a partial module. It reports whether the content changed.
func (w *Writer) Write(module, source string) (bool, error) {
	path := w.Path(module)

	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, []byte(source)) {
		w.Logger.Debug("module unchanged", "module", module, "path", path)

		return false, nil
	}

	if err := os.MkdirAll(w.Dir, dirPerm); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.Dir, "."+module+"-*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()

		return false, fmt.Errorf("write %s: %w", path, err)
	}

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()

		return false, fmt.Errorf("chmod %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("replace %s: %w", path, err)
	}

	w.Logger.Info("module written", "module", module, "path", path, "bytes", len(source))

	return true, nil
}

// Check compares the module on disk with source. On mismatch it returns a
// line diff and ErrStale. A missing file counts as empty.
func (w *Writer) Check(module, source string) (string, error) {
	path := w.Path(module)

	old, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	if string(old) == source {
		return "", nil
	}

	return LineDiff(path, string(old), source), fmt.Errorf("%w: %s", ErrStale, path)
}

// LineDiff renders a line-level diff of two texts: removed lines are
// prefixed with "-", added lines with "+", and unchanged runs are elided.
func LineDiff(name, from, to string) string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var b strings.Builder

	fmt.Fprintf(&b, "--- %s\n+++ %s (regenerated)\n", name, name)

	for _, d := range diffs {
		prefix := ""

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
			continue
		}

		for line := range strings.SplitSeq(strings.TrimSuffix(d.Text, "\n"), "\n") {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}
