package state

import (
	"context"
	"encoding/json"

	tfjson "github.com/hashicorp/terraform-json"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/engine"
	"github.com/catherinevee/stateops/internal/environment"
)

// Inspector provides read-only projections over phase state. No mutation,
// no locking: read consistency is whatever the backend already provides.
type Inspector struct {
	engine engine.Engine
}

// NewInspector creates a state inspector
func NewInspector(eng engine.Engine) *Inspector {
	return &Inspector{engine: eng}
}

// Summary is the `show` projection for one phase
type Summary struct {
	Phase         string `json:"phase,omitempty"`
	StateVersion  int    `json:"state_version"`
	EngineVersion string `json:"engine_version"`
	Serial        int    `json:"serial"`
	Lineage       string `json:"lineage"`
	ResourceCount int    `json:"resource_count"`
	OutputCount   int    `json:"output_count"`
}

// ResourceEntry is one row of the `list` projection
type ResourceEntry struct {
	Phase    string `json:"phase,omitempty"`
	Address  string `json:"address"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Detail is the `inspect` projection: full state detail for one phase
type Detail struct {
	Summary   Summary                `json:"summary"`
	Outputs   map[string]OutputValue `json:"outputs,omitempty"`
	Resources []Resource             `json:"resources"`
}

// Show produces the summary projection for one phase
func (i *Inspector) Show(ctx context.Context, target environment.PhaseTarget) (*Summary, error) {
	st, err := i.pull(ctx, target)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Phase:         target.Phase,
		StateVersion:  st.Version,
		EngineVersion: st.TerraformVersion,
		Serial:        st.Serial,
		Lineage:       st.Lineage,
		ResourceCount: st.ResourceCount(),
		OutputCount:   len(st.Outputs),
	}, nil
}

// List produces the flat resource listing for one phase, decoded from the
// engine's structured show output
func (i *Inspector) List(ctx context.Context, target environment.PhaseTarget) ([]ResourceEntry, error) {
	raw, err := i.engine.ShowJSON(ctx, target.Dir)
	if err != nil {
		return nil, err
	}

	var shown tfjson.State
	if err := json.Unmarshal(raw, &shown); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeEngine, "failed to decode engine state output")
	}

	var entries []ResourceEntry
	if shown.Values != nil && shown.Values.RootModule != nil {
		entries = collectResources(target.Phase, shown.Values.RootModule, entries)
	}
	return entries, nil
}

func collectResources(phase string, module *tfjson.StateModule, entries []ResourceEntry) []ResourceEntry {
	for _, res := range module.Resources {
		entries = append(entries, ResourceEntry{
			Phase:    phase,
			Address:  res.Address,
			Type:     res.Type,
			Name:     res.Name,
			Provider: res.ProviderName,
		})
	}
	for _, child := range module.ChildModules {
		entries = collectResources(phase, child, entries)
	}
	return entries
}

// Inspect produces the full-detail projection for one phase, including
// outputs and lineage
func (i *Inspector) Inspect(ctx context.Context, target environment.PhaseTarget) (*Detail, error) {
	st, err := i.pull(ctx, target)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Summary: Summary{
			Phase:         target.Phase,
			StateVersion:  st.Version,
			EngineVersion: st.TerraformVersion,
			Serial:        st.Serial,
			Lineage:       st.Lineage,
			ResourceCount: st.ResourceCount(),
			OutputCount:   len(st.Outputs),
		},
		Outputs:   st.Outputs,
		Resources: st.Resources,
	}, nil
}

func (i *Inspector) pull(ctx context.Context, target environment.PhaseTarget) (*TerraformState, error) {
	raw, err := i.engine.StatePull(ctx, target.Dir)
	if err != nil {
		return nil, err
	}
	st, err := Parse(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeEngine, "engine returned unparseable state")
	}
	return st, nil
}
