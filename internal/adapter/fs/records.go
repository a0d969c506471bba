package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"semsearch/internal/domain"
)

// recordFile is the wrapped layout, the same shape the add-users endpoint
// accepts.
type recordFile struct {
	Users []domain.RecordInput `json:"users" yaml:"users"`
}

// LoadRecords reads a JSON or YAML file holding either a list of records
// or an object with a "users" list.
func LoadRecords(path string) ([]domain.RecordInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []domain.RecordInput
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		records, err = decodeJSON(data)
	case ".yaml", ".yml":
		records, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported record file %s: expected .json, .yaml or .yml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// LoadAll concatenates the records of every path in order.
func LoadAll(paths []string) ([]domain.RecordInput, error) {
	var all []domain.RecordInput
	for _, p := range paths {
		records, err := LoadRecords(p)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func decodeJSON(data []byte) ([]domain.RecordInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var records []domain.RecordInput
		err := json.Unmarshal(data, &records)
		return records, err
	}
	var f recordFile
	err := json.Unmarshal(data, &f)
	return f.Users, err
}

func decodeYAML(data []byte) ([]domain.RecordInput, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var records []domain.RecordInput
		err := root.Decode(&records)
		return records, err
	}
	var f recordFile
	err := root.Decode(&f)
	return f.Users, err
}
