package backend

import (
	"fmt"
	"strings"

	"github.com/catherinevee/stateops/internal/apperrors"
)

// Descriptor addresses one phase's durable state in the object store.
// Built deterministically from the environment and phase names: identical
// inputs always produce identical descriptors.
type Descriptor struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint,omitempty"`
}

// BuildDescriptor derives the canonical descriptor for an environment/phase
// pair. Pure function, no I/O. Phase is empty for legacy layouts.
func BuildDescriptor(env, phase, region, endpoint string) (*Descriptor, error) {
	if err := checkNameSafe("environment", env); err != nil {
		return nil, err
	}
	if phase != "" {
		if err := checkNameSafe("phase", phase); err != nil {
			return nil, err
		}
	}
	if region == "" {
		return nil, apperrors.NewValidationError("region cannot be empty")
	}

	key := fmt.Sprintf("%s/state", env)
	if phase != "" {
		key = fmt.Sprintf("%s/%s/state", env, phase)
	}

	return &Descriptor{
		Bucket:   fmt.Sprintf("state-%s", env),
		Key:      key,
		Region:   region,
		Endpoint: endpoint,
	}, nil
}

// checkNameSafe rejects names that would inject extra levels into the
// storage key namespace
func checkNameSafe(kind, name string) error {
	if name == "" {
		return apperrors.NewValidationError("%s name cannot be empty", kind)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return apperrors.NewValidationError("%s name %q contains path separator characters", kind, name)
	}
	return nil
}
