package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MarshalNoEscapeIndent encodes v with two-space indentation and without HTML escaping,
// so product names with accents or ampersands stay readable in diffs.
func MarshalNoEscapeIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFileAtomic rewrites path with the indented JSON encoding of v.
// The document is written to a sibling temp file and renamed over the target,
// so readers never observe a half-written document.
func WriteFileAtomic(path string, v any) error {
	b, err := MarshalNoEscapeIndent(v)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// IsBlank reports whether raw holds nothing but whitespace.
func IsBlank(raw []byte) bool {
	return len(bytes.TrimSpace(raw)) == 0
}

// StartsWith reports whether the first non-space byte of raw is c.
func StartsWith(raw []byte, c byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == c
}
