package handoff

import (
	"maps"
	"slices"
	"time"

	"github.com/imamik/wsdeploy/internal/util/labels"
)

// APIVersion versions the deployment document.
const APIVersion = "wsdeploy.io/v1"

// Redacted replaces sensitive values in deployment.yaml.
const Redacted = "(sensitive)"

// TemplateRef names the template a deployment was built from.
type TemplateRef struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Deployment is the configuration handed to the provisioning engine.
type Deployment struct {
	APIVersion string       `json:"apiVersion"`
	Workspace  string       `json:"workspace"`
	Cloud      string       `json:"cloud"`
	Template   TemplateRef  `json:"template"`
	Tags       []labels.Tag `json:"tags,omitempty"`

	// Auth records how each provider was authenticated: modes, profile
	// names and account ids, never secrets.
	Auth      map[string]string `json:"auth,omitempty"`
	Variables map[string]any    `json:"variables"`
	CreatedAt time.Time         `json:"createdAt"`

	// Sensitive names the variables redacted in the summary.
	Sensitive []string          `json:"-"`
	// Files are the template files keyed by name.
	Files     map[string][]byte `json:"-"`
}

// Summary returns a copy with sensitive variables redacted.
func (d *Deployment) Summary() *Deployment {
	out := *d
	out.Variables = maps.Clone(d.Variables)
	for _, name := range d.Sensitive {
		if _, ok := out.Variables[name]; ok {
			out.Variables[name] = Redacted
		}
	}
	out.Tags = slices.Clone(d.Tags)
	out.Auth = maps.Clone(d.Auth)
	return &out
}

// Tfvars returns the variables for terraform.tfvars.json, tags merged in as a map.
func (d *Deployment) Tfvars() map[string]any {
	vars := maps.Clone(d.Variables)
	if vars == nil {
		vars = map[string]any{}
	}
	if len(d.Tags) > 0 {
		vars["tags"] = labels.Map(d.Tags)
	}
	return vars
}
