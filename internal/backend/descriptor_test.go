package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/stateops/internal/apperrors"
)

func TestBuildDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		phase      string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			name:       "phased key",
			env:        "dev",
			phase:      "infra",
			wantBucket: "state-dev",
			wantKey:    "dev/infra/state",
		},
		{
			name:       "legacy key without phase",
			env:        "prod",
			wantBucket: "state-prod",
			wantKey:    "prod/state",
		},
		{
			name:    "environment with slash rejected",
			env:     "dev/evil",
			phase:   "infra",
			wantErr: true,
		},
		{
			name:    "phase with slash rejected",
			env:     "dev",
			phase:   "infra/../other",
			wantErr: true,
		},
		{
			name:    "phase with backslash rejected",
			env:     "dev",
			phase:   "infra\\x",
			wantErr: true,
		},
		{
			name:    "empty environment rejected",
			env:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := BuildDescriptor(tt.env, tt.phase, "fr-par", "")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, desc.Bucket)
			assert.Equal(t, tt.wantKey, desc.Key)
			assert.Equal(t, "fr-par", desc.Region)
		})
	}
}

func TestBuildDescriptorDeterministic(t *testing.T) {
	first, err := BuildDescriptor("staging", "coder", "us-east-1", "https://s3.example.com")
	require.NoError(t, err)
	second, err := BuildDescriptor("staging", "coder", "us-east-1", "https://s3.example.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildDescriptorRequiresRegion(t *testing.T) {
	_, err := BuildDescriptor("dev", "infra", "", "")
	require.Error(t, err)
}
