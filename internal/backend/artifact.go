package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// ArtifactFileName is the backend declaration file the provisioning engine
// picks up inside each phase directory
const ArtifactFileName = "backend.tf"

// RenderArtifact produces the backend declaration in the engine's native
// syntax. Output is deterministic for a given descriptor, so re-running
// setup rewrites an identical file.
func RenderArtifact(desc *Descriptor) []byte {
	f := hclwrite.NewEmptyFile()

	tfBlock := f.Body().AppendNewBlock("terraform", nil)
	beBody := tfBlock.Body().AppendNewBlock("backend", []string{"s3"}).Body()

	beBody.SetAttributeValue("bucket", cty.StringVal(desc.Bucket))
	beBody.SetAttributeValue("key", cty.StringVal(desc.Key))
	beBody.SetAttributeValue("region", cty.StringVal(desc.Region))

	if desc.Endpoint != "" {
		beBody.SetAttributeValue("endpoints", cty.ObjectVal(map[string]cty.Value{
			"s3": cty.StringVal(desc.Endpoint),
		}))
		// S3-compatible services do not speak the AWS control-plane APIs
		beBody.SetAttributeValue("skip_credentials_validation", cty.True)
		beBody.SetAttributeValue("skip_region_validation", cty.True)
		beBody.SetAttributeValue("skip_requesting_account_id", cty.True)
	}

	return f.Bytes()
}

// WriteArtifact writes the backend declaration into the phase directory
func WriteArtifact(dir string, desc *Descriptor) (string, error) {
	path := filepath.Join(dir, ArtifactFileName)
	if err := os.WriteFile(path, RenderArtifact(desc), 0644); err != nil {
		return "", fmt.Errorf("failed to write backend artifact: %w", err)
	}
	return path, nil
}
