// Package codec reads and writes values in the byte formats the command
// line accepts: JSON, JSON with comments, YAML and CBOR, optionally
// compressed with zstd or lz4.
//
// Data files are read as plain data. Template files additionally turn
// $-markers ({"$sym": "name"}, {"$opt": ...}, {"$trans": ...}) into
// placeholders. Values that still hold placeholders are written with
// markers, so a partially formatted template can be read back.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/Neumenon/regular/regular"
)

// Format names a byte format.
type Format string

const (
	JSON  Format = "json"
	JSONC Format = "jsonc"
	YAML  Format = "yaml"
	CBOR  Format = "cbor"
)

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON, nil
	case "jsonc":
		return JSONC, nil
	case "yaml", "yml":
		return YAML, nil
	case "cbor":
		return CBOR, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, jsonc, yaml or cbor)", name)
}

// FormatFromPath picks the format from a file extension, looking through
// a trailing .zst or .lz4 compression suffix.
func FormatFromPath(path string) (Format, error) {
	base := path
	if _, ok := compressionFromPath(base); ok {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" {
		return "", fmt.Errorf("%s: no file extension to pick a format from", path)
	}
	return ParseFormat(ext)
}

// EncodeOpts configures Encode.
type EncodeOpts struct {
	// Pretty indents JSON output. YAML is always block style and CBOR has
	// no layout.
	Pretty bool
}

// Decode reads data in format f. Markers are not interpreted.
func Decode(data []byte, f Format) (*regular.Value, error) {
	switch f {
	case JSON:
		return regular.FromJSON(data)
	case JSONC:
		return regular.FromJSON(jsonc.ToJSON(data))
	case YAML:
		return decodeYAML(data)
	case CBOR:
		return decodeCBOR(data)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// DecodeTemplate reads a template in format f, resolving named transforms
// through funcs (nil means regular.DefaultFuncs).
func DecodeTemplate(data []byte, f Format, funcs regular.Funcs) (*regular.Value, error) {
	v, err := Decode(data, f)
	if err != nil {
		return nil, err
	}
	t, err := regular.DecodeMarkers(v, funcs)
	if err != nil {
		return nil, fmt.Errorf("template markers: %w", err)
	}
	return t, nil
}

// Encode writes v in format f. Placeholders are written as markers.
func Encode(v *regular.Value, f Format, opts EncodeOpts) ([]byte, error) {
	if regular.HasPlaceholder(v) {
		enc, err := regular.EncodeMarkers(v)
		if err != nil {
			return nil, err
		}
		v = enc
	}

	switch f {
	case JSON, JSONC:
		out, err := regular.ToJSON(v)
		if err != nil {
			return nil, err
		}
		if opts.Pretty {
			var buf bytes.Buffer
			if err := json.Indent(&buf, out, "", "  "); err != nil {
				return nil, err
			}
			out = buf.Bytes()
		}
		return append(out, '\n'), nil
	case YAML:
		return encodeYAML(v)
	case CBOR:
		return encodeCBOR(v)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// EncodeBindings writes binding sets as a list of maps with sorted keys.
func EncodeBindings(sets []regular.Bindings, f Format, opts EncodeOpts) ([]byte, error) {
	items := make([]*regular.Value, len(sets))
	for i, b := range sets {
		items[i] = b.ToValue()
	}
	return Encode(regular.List(items...), f, opts)
}

// DecodeBindings reads binding sets written by EncodeBindings. A single
// map is read as one binding set.
func DecodeBindings(data []byte, f Format) ([]regular.Bindings, error) {
	v, err := Decode(data, f)
	if err != nil {
		return nil, err
	}
	if v.Kind() == regular.KindMap {
		v = regular.List(v)
	}
	items, err := v.AsList()
	if err != nil {
		return nil, fmt.Errorf("bindings: %w", err)
	}
	sets := make([]regular.Bindings, len(items))
	for i, item := range items {
		b, err := regular.BindingsFromValue(item)
		if err != nil {
			return nil, fmt.Errorf("bindings[%d]: %w", i, err)
		}
		sets[i] = b
	}
	return sets, nil
}
