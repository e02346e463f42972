package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequest loads a request from a YAML or JSON file into the provided
// struct. A path of "-" reads stdin.
func LoadRequest(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRequest(data, path, v)
}

// ParseRequest parses request data based on file extension or content.
// YAML keys follow the JSON field names of v.
func ParseRequest(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return parseYAML(data, v)
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		return nil
	default:
		if err := json.Unmarshal(data, v); err == nil {
			return nil
		}
		if err := parseYAML(data, v); err != nil {
			return fmt.Errorf("failed to parse input (tried JSON and YAML)")
		}
		return nil
	}
}

// parseYAML decodes YAML into a generic value and re-encodes it as JSON,
// so v's json tags apply.
func parseYAML(data []byte, v any) error {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	j, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := json.Unmarshal(j, v); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}
