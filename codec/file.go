package codec

import (
	"fmt"
	"os"

	"github.com/Neumenon/regular/regular"
)

func readFile(path string) ([]byte, Format, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	data, err := Decompress(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return data, f, nil
}

// ReadFile reads a data file. The format comes from the extension and
// compression from the content.
func ReadFile(path string) (*regular.Value, error) {
	data, f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ReadTemplateFile reads a template file with $-markers.
func ReadTemplateFile(path string, funcs regular.Funcs) (*regular.Value, error) {
	data, f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	v, err := DecodeTemplate(data, f, funcs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ReadBindingsFile reads binding sets written by EncodeBindings.
func ReadBindingsFile(path string) ([]regular.Bindings, error) {
	data, f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	sets, err := DecodeBindings(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sets, nil
}

// WriteFile writes v to path, compressing when the name ends in .zst or
// .lz4.
func WriteFile(path string, v *regular.Value, opts EncodeOpts) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(v, f, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if c, ok := compressionFromPath(path); ok {
		if data, err = Compress(data, c); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
