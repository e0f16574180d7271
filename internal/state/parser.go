package state

import (
	"encoding/json"
	"fmt"
)

// TerraformState represents a state artifact as read through the engine's
// read-state interface. The orchestrator never mutates these bytes; this
// structure exists only for read-side projection and verification.
type TerraformState struct {
	Version          int                    `json:"version"`
	TerraformVersion string                 `json:"terraform_version"`
	Serial           int                    `json:"serial"`
	Lineage          string                 `json:"lineage"`
	Outputs          map[string]OutputValue `json:"outputs,omitempty"`
	Resources        []Resource             `json:"resources"`
}

// Resource represents a resource in the state
type Resource struct {
	Module    string     `json:"module,omitempty"`
	Mode      string     `json:"mode"`
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Provider  string     `json:"provider"`
	Instances []Instance `json:"instances"`
}

// Instance represents an instance of a resource
type Instance struct {
	SchemaVersion int                    `json:"schema_version"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
	IndexKey      interface{}            `json:"index_key,omitempty"`
	Dependencies  []string               `json:"dependencies,omitempty"`
}

// OutputValue represents an output value in the state
type OutputValue struct {
	Value     interface{} `json:"value"`
	Type      interface{} `json:"type,omitempty"`
	Sensitive bool        `json:"sensitive,omitempty"`
}

// Address returns the resource address as the engine renders it
func (r *Resource) Address() string {
	addr := fmt.Sprintf("%s.%s", r.Type, r.Name)
	if r.Mode == "data" {
		addr = "data." + addr
	}
	if r.Module != "" {
		addr = r.Module + "." + addr
	}
	return addr
}

// Parse decodes raw state bytes
func Parse(data []byte) (*TerraformState, error) {
	var st TerraformState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if st.Version != 0 && st.Version != 3 && st.Version != 4 {
		return nil, fmt.Errorf("unsupported state version: %d", st.Version)
	}
	return &st, nil
}

// ResourceCount counts managed and data resource instances
func (s *TerraformState) ResourceCount() int {
	count := 0
	for _, r := range s.Resources {
		if len(r.Instances) == 0 {
			count++
			continue
		}
		count += len(r.Instances)
	}
	return count
}

// IsEmpty reports whether the state tracks no resources
func (s *TerraformState) IsEmpty() bool {
	return len(s.Resources) == 0
}
