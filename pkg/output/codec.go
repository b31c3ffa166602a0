// Package output writes generated binding modules and tree dumps to disk.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	lz4Extension  = ".lz4"
)

const defaultIndent = "  "

// ErrUnknownFormat is returned for dump formats without a codec.
var ErrUnknownFormat = errors.New("unknown dump format")

// Codec defines how a dump is serialized and deserialized.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	// Extension returns the file extension, e.g. ".json" or ".json.lz4".
	Extension() string
}

// JSONCodec encodes with goccy/go-json.
type JSONCodec struct {
	// Indent is the indentation string. Empty means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with two-space indentation.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.
func (c *JSONCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if c.Indent != "" {
		enc.SetIndent("", c.Indent)
	}

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *JSONCodec) Extension() string { return jsonExtension }

// YAMLCodec encodes with yaml.v3.
type YAMLCodec struct{}

// Encode implements Codec.
func (YAMLCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(len(defaultIndent))

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (YAMLCodec) Decode(r io.Reader, v any) error {
	if err := yaml.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (YAMLCodec) Extension() string { return yamlExtension }

// LZ4Codec compresses the output of an inner codec with the LZ4 frame format.
type LZ4Codec struct {
	Inner Codec
}

// Encode implements Codec.
func (c LZ4Codec) Encode(w io.Writer, v any) error {
	zw := lz4.NewWriter(w)

	if err := c.Inner.Encode(zw, v); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c LZ4Codec) Decode(r io.Reader, v any) error {
	return c.Inner.Decode(lz4.NewReader(r), v)
}

// Extension implements Codec.
func (c LZ4Codec) Extension() string { return c.Inner.Extension() + lz4Extension }

// CodecFor returns the codec of a format name: "json", "yaml", or either
// with a "+lz4" suffix.
func CodecFor(format string) (Codec, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(format), "+lz4")

	var c Codec

	switch base {
	case "json":
		c = NewJSONCodec()
	case "yaml", "yml":
		c = YAMLCodec{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if compressed {
		c = LZ4Codec{Inner: c}
	}

	return c, nil
}

// CodecForPath picks a codec from the file name: tree.yaml, tree.json.lz4,
// and so on. Unknown extensions fall back to fallback.
func CodecForPath(path, fallback string) (Codec, error) {
	name := strings.ToLower(filepath.Base(path))
	name, compressed := strings.CutSuffix(name, lz4Extension)

	format := fallback

	switch filepath.Ext(name) {
	case jsonExtension:
		format = "json"
	case yamlExtension, ".yml":
		format = "yaml"
	}

	if compressed {
		format += "+lz4"
	}

	return CodecFor(format)
}

// Encode writes v to w, or to path when path is not "-" or empty.
func Encode(w io.Writer, path string, codec Codec, v any) error {
	if path == "" || path == "-" {
		return codec.Encode(w, v)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}

	if err := codec.Encode(file, v); err != nil {
		file.Close()

		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

// Decode reads v from path.
func Decode(path string, codec Codec, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dump file: %w", err)
	}
	defer file.Close()

	if err := codec.Decode(file, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}
