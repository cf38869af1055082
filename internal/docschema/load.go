package docschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes one or more YAML documents, each describing a model, and
// validates them.
func Parse(data []byte) ([]*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var models []*Model
	for {
		m := new(Model)
		if err := dec.Decode(m); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode model: %w", err)
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// LoadFile reads and parses a model file.
func LoadFile(path string) ([]*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	models, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return models, nil
}

// LoadFiles loads every file in order and rejects duplicate model names.
func LoadFiles(paths ...string) ([]*Model, error) {
	var all []*Model
	seen := make(map[string]string)
	for _, p := range paths {
		models, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		for _, m := range models {
			if prev, ok := seen[m.Name]; ok {
				return nil, fmt.Errorf("%w: model %s defined in both %s and %s", ErrInvalidModel, m.Name, prev, p)
			}
			seen[m.Name] = p
		}
		all = append(all, models...)
	}
	return all, nil
}
