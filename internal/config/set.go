package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/schoolctl/internal/errors"
)

// Set writes key=value into the YAML file at path, creating it if needed.
// The value is parsed as a YAML scalar, so "3" is stored as a number and
// "true" as a boolean. The file is left untouched when the result would not
// load.
func Set(path, key, value string) error {
	if path == "" {
		path = DefaultPath()
	}
	if !IsKnown(key) {
		return unknownKeyError(key)
	}

	original, err := os.ReadFile(path)
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read "+path, err)
	}

	doc := map[string]any{}
	if len(original) > 0 {
		if err := yaml.Unmarshal(original, &doc); err != nil {
			return errors.NewFileUnmarshalError(path, "YAML", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	var scalar any
	if err := yaml.Unmarshal([]byte(value), &scalar); err != nil || scalar == nil || isCollection(scalar) {
		scalar = value
	}
	setNested(doc, strings.Split(key, "."), scalar)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return err
	}

	if _, err := Load(path); err != nil {
		if original != nil {
			_ = writeFile(path, original)
		} else {
			_ = os.Remove(path)
		}
		return errors.Wrap(errors.ErrCodeConfigWriteKey, fmt.Sprintf("refusing to set %s=%s", key, value), err)
	}
	return nil
}

func isCollection(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// setNested assigns value at the dotted path, replacing non-map intermediates
func setNested(doc map[string]any, parts []string, value any) {
	for _, p := range parts[:len(parts)-1] {
		next, ok := doc[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			doc[p] = next
		}
		doc = next
	}
	doc[parts[len(parts)-1]] = value
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}
	return nil
}
