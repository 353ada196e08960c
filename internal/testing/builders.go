package testing

import (
	"maps"
	"slices"
	"time"

	"github.com/imamik/wsdeploy/internal/handoff"
	"github.com/imamik/wsdeploy/internal/util/labels"
)

// DeploymentBuilder provides a fluent interface for constructing test deployments.
// Each method returns a new builder (immutable) for chaining.
type DeploymentBuilder struct {
	d handoff.Deployment
}

// NewDeploymentBuilder creates a new DeploymentBuilder with sensible defaults.
func NewDeploymentBuilder() *DeploymentBuilder {
	return &DeploymentBuilder{
		d: handoff.Deployment{
			APIVersion: handoff.APIVersion,
			Workspace:  "analytics",
			Cloud:      "aws",
			Template:   handoff.TemplateRef{Name: "aws-standard", Source: "builtin:aws-standard"},
			Auth:       map[string]string{"aws_profile": "dev"},
			Variables: map[string]any{
				"workspace_name": "analytics",
				"region":         "us-east-1",
			},
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

// WithWorkspace sets the workspace name and its variable.
func (b *DeploymentBuilder) WithWorkspace(name string) *DeploymentBuilder {
	nb := b.clone()
	nb.d.Workspace = name
	nb.d.Variables["workspace_name"] = name
	return nb
}

// WithTemplate sets the cloud and template.
func (b *DeploymentBuilder) WithTemplate(cloud, name, source string) *DeploymentBuilder {
	nb := b.clone()
	nb.d.Cloud = cloud
	nb.d.Template = handoff.TemplateRef{Name: name, Source: source}
	return nb
}

// WithVariable sets one variable.
func (b *DeploymentBuilder) WithVariable(name string, value any) *DeploymentBuilder {
	nb := b.clone()
	nb.d.Variables[name] = value
	return nb
}

// WithSecret sets a variable that summaries redact.
func (b *DeploymentBuilder) WithSecret(name, value string) *DeploymentBuilder {
	nb := b.WithVariable(name, value)
	nb.d.Sensitive = append(nb.d.Sensitive, name)
	return nb
}

// WithAuth records how a provider was authenticated.
func (b *DeploymentBuilder) WithAuth(key, value string) *DeploymentBuilder {
	nb := b.clone()
	nb.d.Auth[key] = value
	return nb
}

// WithTag appends a tag.
func (b *DeploymentBuilder) WithTag(key, value string) *DeploymentBuilder {
	nb := b.clone()
	nb.d.Tags = append(nb.d.Tags, labels.Tag{Key: key, Value: value})
	return nb
}

// WithFile adds a template file.
func (b *DeploymentBuilder) WithFile(name string, data []byte) *DeploymentBuilder {
	nb := b.clone()
	if nb.d.Files == nil {
		nb.d.Files = map[string][]byte{}
	}
	nb.d.Files[name] = data
	return nb
}

// Build returns the constructed deployment.
func (b *DeploymentBuilder) Build() *handoff.Deployment {
	return b.clone().deployment()
}

func (b *DeploymentBuilder) deployment() *handoff.Deployment {
	d := b.d
	return &d
}

// clone creates a deep copy of the builder.
func (b *DeploymentBuilder) clone() *DeploymentBuilder {
	d := b.d
	d.Tags = slices.Clone(b.d.Tags)
	d.Sensitive = slices.Clone(b.d.Sensitive)
	d.Auth = maps.Clone(b.d.Auth)
	d.Variables = maps.Clone(b.d.Variables)
	d.Files = maps.Clone(b.d.Files)
	return &DeploymentBuilder{d: d}
}
