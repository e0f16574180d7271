package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/stateops/internal/engine/enginetest"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/state"
)

const pulledState = `{
  "version": 4,
  "terraform_version": "1.7.5",
  "serial": 3,
  "lineage": "lin-1",
  "outputs": {"url": {"value": "https://example.com"}},
  "resources": [
    {"mode": "managed", "type": "aws_s3_bucket", "name": "state",
     "provider": "aws", "instances": [{"schema_version": 0}]}
  ]
}`

const shownState = `{
  "format_version": "1.0",
  "terraform_version": "1.7.5",
  "values": {
    "root_module": {
      "resources": [
        {"address": "aws_s3_bucket.state", "mode": "managed", "type": "aws_s3_bucket",
         "name": "state", "provider_name": "registry.terraform.io/hashicorp/aws", "schema_version": 0, "values": {}}
      ],
      "child_modules": [
        {"address": "module.dns",
         "resources": [
           {"address": "module.dns.aws_route53_record.app", "mode": "managed", "type": "aws_route53_record",
            "name": "app", "provider_name": "registry.terraform.io/hashicorp/aws", "schema_version": 0, "values": {}}
         ]}
      ]
    }
  }
}`

func TestInspectorShow(t *testing.T) {
	fake := &enginetest.Fake{
		StatePullFunc: func(ctx context.Context, dir string) ([]byte, error) {
			return []byte(pulledState), nil
		},
	}
	inspector := state.NewInspector(fake)

	summary, err := inspector.Show(context.Background(), environment.PhaseTarget{Phase: "infra", Dir: "/env/dev/infra"})
	require.NoError(t, err)

	assert.Equal(t, "infra", summary.Phase)
	assert.Equal(t, 3, summary.Serial)
	assert.Equal(t, "lin-1", summary.Lineage)
	assert.Equal(t, 1, summary.ResourceCount)
	assert.Equal(t, 1, summary.OutputCount)
	assert.Equal(t, "1.7.5", summary.EngineVersion)
}

func TestInspectorList(t *testing.T) {
	fake := &enginetest.Fake{
		ShowJSONFunc: func(ctx context.Context, dir string) ([]byte, error) {
			return []byte(shownState), nil
		},
	}
	inspector := state.NewInspector(fake)

	entries, err := inspector.List(context.Background(), environment.PhaseTarget{Phase: "infra", Dir: "/env/dev/infra"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "aws_s3_bucket.state", entries[0].Address)
	assert.Equal(t, "module.dns.aws_route53_record.app", entries[1].Address)
	assert.Equal(t, "infra", entries[0].Phase)
}

func TestInspectorInspect(t *testing.T) {
	fake := &enginetest.Fake{
		StatePullFunc: func(ctx context.Context, dir string) ([]byte, error) {
			return []byte(pulledState), nil
		},
	}
	inspector := state.NewInspector(fake)

	detail, err := inspector.Inspect(context.Background(), environment.PhaseTarget{Phase: "coder", Dir: "/env/dev/coder"})
	require.NoError(t, err)

	assert.Equal(t, "coder", detail.Summary.Phase)
	assert.Len(t, detail.Resources, 1)
	assert.Contains(t, detail.Outputs, "url")
}

func TestInspectorPullFailure(t *testing.T) {
	fake := &enginetest.Fake{
		StatePullFunc: func(ctx context.Context, dir string) ([]byte, error) {
			return nil, errors.New("backend unreachable")
		},
	}
	inspector := state.NewInspector(fake)

	_, err := inspector.Show(context.Background(), environment.PhaseTarget{Dir: "/env/dev"})
	assert.Error(t, err)
}
