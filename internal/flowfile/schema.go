// Package flowfile reads approval flow definitions from YAML or JSON files.
package flowfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexanderramin/signoff/internal/domain"
	"gopkg.in/yaml.v3"
)

// FlowFile is the top-level structure of a flow definition file.
type FlowFile struct {
	Code        string       `yaml:"code" json:"code"`
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	TaskType    string       `yaml:"task_type" json:"task_type"`
	Nodes       []NodeImport `yaml:"nodes" json:"nodes"`
}

// NodeImport defines one approval step. Order may be omitted on every node,
// in which case file position decides.
type NodeImport struct {
	Order        int             `yaml:"order,omitempty" json:"order,omitempty"`
	Name         string          `yaml:"name" json:"name"`
	Policy       string          `yaml:"policy" json:"policy"`
	Approvers    ApproversImport `yaml:"approvers" json:"approvers"`
	TimeoutHours *int            `yaml:"timeout_hours,omitempty" json:"timeout_hours,omitempty"`
}

// ApproversImport names either users or roles, never both.
type ApproversImport struct {
	Users []string `yaml:"users,omitempty" json:"users,omitempty"`
	Roles []string `yaml:"roles,omitempty" json:"roles,omitempty"`
}

// Load reads a flow file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func Load(path string) (*FlowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var f FlowFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, invalid(err, "parsing flow file %s: %v", path, err)
		}
		return &f, nil
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML flow definition. Unknown keys are rejected.
func Parse(data []byte) (*FlowFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.Validation("parsing flow file: empty document")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f FlowFile
	if err := dec.Decode(&f); err != nil {
		return nil, invalid(err, "parsing flow file: %v", err)
	}
	return &f, nil
}

func invalid(cause error, format string, args ...any) error {
	return &domain.Error{Kind: domain.KindValidation, Message: fmt.Sprintf(format, args...), Err: cause}
}
