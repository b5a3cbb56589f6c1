package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadCollection reads a metadata collection from a JSON or YAML file.
// The file holds a list of records; records are not validated here.
func LoadCollection(path string) ([]*CodeMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata collection %s: %w", path, err)
	}
	return ParseCollection(data, filepath.Ext(path))
}

// ParseCollection decodes a collection; ext selects the format (".yaml"/".yml"
// for YAML, anything else JSON).
func ParseCollection(data []byte, ext string) ([]*CodeMetadata, error) {
	var records []*CodeMetadata

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse yaml collection: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse json collection: %w", err)
		}
	}

	// A null entry would otherwise panic in the loader
	filtered := records[:0]
	for _, r := range records {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// SaveCollection writes records as indented JSON, creating parent directories
func SaveCollection(path string, records []*CodeMetadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata collection: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata collection %s: %w", path, err)
	}
	return nil
}
