package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/imamik/wsdeploy/internal/platform/s3"
	"github.com/imamik/wsdeploy/internal/util/labels"
)

func sampleDeployment() *Deployment {
	return &Deployment{
		APIVersion: APIVersion,
		Workspace:  "analytics",
		Cloud:      "azure",
		Template:   TemplateRef{Name: "azure-standard", Source: "builtin:azure-standard"},
		Tags:       []labels.Tag{{Key: "managed-by", Value: "wsdeploy"}, {Key: "team", Value: "data"}},
		Auth:       map[string]string{"databricks_auth_mode": "profile", "databricks_profile": "wsdeploy-abcd1234"},
		Variables: map[string]any{
			"workspace_name":      "analytics",
			"create_new_vnet":     true,
			"azure_client_secret": "s3cr3t",
		},
		CreatedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Sensitive: []string{"azure_client_secret", "databricks_client_secret"},
		Files:     map[string][]byte{"variables.tf": []byte(`variable "workspace_name" {}`)},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	d := sampleDeployment()

	files, err := Render(d)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	var summary map[string]any
	require.NoError(t, yaml.Unmarshal(files["deployment.yaml"], &summary))
	assert.Equal(t, APIVersion, summary["apiVersion"])
	vars := summary["variables"].(map[string]any)
	assert.Equal(t, Redacted, vars["azure_client_secret"])
	assert.NotContains(t, vars, "databricks_client_secret", "absent sensitive variables stay absent")
	assert.NotContains(t, string(files["deployment.yaml"]), "s3cr3t")

	var tfvars map[string]any
	require.NoError(t, json.Unmarshal(files["terraform.tfvars.json"], &tfvars))
	assert.Equal(t, "s3cr3t", tfvars["azure_client_secret"])
	assert.Equal(t, true, tfvars["create_new_vnet"])
	assert.Equal(t, map[string]any{"managed-by": "wsdeploy", "team": "data"}, tfvars["tags"])

	assert.Equal(t, "s3cr3t", d.Variables["azure_client_secret"], "the deployment itself is not modified")
}

func TestRender_NoWorkspace(t *testing.T) {
	t.Parallel()
	_, err := Render(&Deployment{})
	assert.ErrorIs(t, err, ErrNoWorkspace)
}

func TestWrite_Local(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	written, err := NewWriter().Write(context.Background(), sampleDeployment(), dir)
	require.NoError(t, err)

	base := filepath.Join(dir, "analytics")
	assert.Equal(t, []string{
		filepath.Join(base, "deployment.yaml"),
		filepath.Join(base, "terraform.tfvars.json"),
		filepath.Join(base, "variables.tf"),
	}, written)

	info, err := os.Stat(filepath.Join(base, "terraform.tfvars.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string
	fail    bool
}

func (f *fakeUploader) PutObject(_ context.Context, bucket, key, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("access denied")
	}
	f.objects[bucket+"/"+key] = contentType + ":" + string(data[:min(len(data), 8)])
	return nil
}

func TestWrite_S3(t *testing.T) {
	t.Parallel()
	up := &fakeUploader{objects: map[string]string{}}
	var gotOpts s3.Options
	w := NewWriter(
		WithS3Options(s3.Options{Region: "eu-west-1", Profile: "dev"}),
		WithUploader(func(_ context.Context, opts s3.Options) (Uploader, error) {
			gotOpts = opts
			return up, nil
		}),
	)

	written, err := w.Write(context.Background(), sampleDeployment(), "s3://handoffs/team-a/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://handoffs/team-a/analytics/deployment.yaml",
		"s3://handoffs/team-a/analytics/terraform.tfvars.json",
		"s3://handoffs/team-a/analytics/variables.tf",
	}, written)
	assert.Equal(t, "dev", gotOpts.Profile)
	assert.Contains(t, up.objects["handoffs/team-a/analytics/terraform.tfvars.json"], "application/json:")
	assert.Contains(t, up.objects["handoffs/team-a/analytics/deployment.yaml"], "application/yaml:")
}

func TestWrite_S3Failure(t *testing.T) {
	t.Parallel()
	w := NewWriter(WithUploader(func(context.Context, s3.Options) (Uploader, error) {
		return &fakeUploader{objects: map[string]string{}, fail: true}, nil
	}))
	written, err := w.Write(context.Background(), sampleDeployment(), "s3://handoffs")
	assert.Error(t, err)
	assert.Empty(t, written)

	w = NewWriter(WithUploader(func(context.Context, s3.Options) (Uploader, error) {
		return nil, errors.New("no credentials")
	}))
	_, err = w.Write(context.Background(), sampleDeployment(), "s3://handoffs")
	assert.EqualError(t, err, "no credentials")
}

func TestSummary_DoesNotAlias(t *testing.T) {
	t.Parallel()
	d := sampleDeployment()
	s := d.Summary()
	s.Tags[0].Value = "changed"
	s.Auth["x"] = "y"
	assert.Equal(t, "wsdeploy", d.Tags[0].Value)
	assert.NotContains(t, d.Auth, "x")
}
