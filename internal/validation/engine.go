package validation

import (
	"errors"
	"sort"
	"strings"

	"github.com/imamik/wsdeploy/internal/auth"
	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/util/labels"
)

// Field names with fixed meaning.
const (
	FieldWorkspaceName         = "workspace_name"
	FieldPrefix                = "prefix"
	FieldAdminUser             = "admin_user"
	FieldCIDR                  = "cidr"
	FieldSubnetPublicCIDR      = "subnet_public_cidr"
	FieldSubnetPrivateCIDR     = "subnet_private_cidr"
	FieldResourceGroupName     = "resource_group_name"
	FieldVNetResourceGroupName = "vnet_resource_group_name"
	TagsField                  = "tags"
)

// AlwaysRequired fields are required whenever the template declares them,
// defaults notwithstanding.
var AlwaysRequired = []string{FieldWorkspaceName, FieldAdminUser}

// NameFields are checked with ValidateName.
var NameFields = []string{FieldWorkspaceName, FieldPrefix}

// NetworkRule pairs the fields of a new network with those of an existing
// one under a toggle. The inactive side is hidden; the active side and
// Shared are required.
type NetworkRule struct {
	Toggle   string
	New      []string
	Existing []string
	Shared   []string
}

// NetworkRules are the network toggles of the built-in templates.
var NetworkRules = []NetworkRule{
	{
		Toggle:   "create_new_vnet",
		New:      []string{FieldCIDR},
		Existing: []string{"vnet_name", FieldVNetResourceGroupName},
		Shared:   []string{FieldSubnetPublicCIDR, FieldSubnetPrivateCIDR},
	},
	{
		Toggle:   "create_new_vpc",
		New:      []string{FieldCIDR, FieldSubnetPublicCIDR, FieldSubnetPrivateCIDR},
		Existing: []string{"existing_vpc_id", "existing_subnet_ids", "existing_security_group_id"},
	},
}

// Result is the outcome of one evaluation. Field lists follow template order.
type Result struct {
	// Visible are the fields the form shows.
	Visible []string
	// Hidden are the fields of the inactive network side.
	Hidden []string
	// Required are the fields that must be non-empty.
	Required []string
	// Missing are the required fields without a value.
	Missing []string
	// Errors holds format errors by field.
	Errors map[string]error
}

// Valid reports whether nothing is missing and no field is malformed.
func (r Result) Valid() bool {
	return len(r.Missing) == 0 && len(r.Errors) == 0
}

// IsHidden reports whether name is hidden.
func (r Result) IsHidden(name string) bool {
	return contains(r.Hidden, name)
}

// IsRequired reports whether name is required.
func (r Result) IsRequired(name string) bool {
	return contains(r.Required, name)
}

// FieldErrors returns every missing and malformed field as a *FieldError,
// missing fields first.
func (r Result) FieldErrors() []*FieldError {
	out := make([]*FieldError, 0, len(r.Missing)+len(r.Errors))
	for _, name := range r.Missing {
		out = append(out, &FieldError{Field: name, Err: ErrMissing})
	}
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, &FieldError{Field: name, Err: r.Errors[name]})
	}
	return out
}

// Err joins FieldErrors, nil when valid.
func (r Result) Err() error {
	var errs []error
	for _, fe := range r.FieldErrors() {
		errs = append(errs, fe)
	}
	return errors.Join(errs...)
}

// Engine evaluates form values against the variables of one template.
type Engine struct {
	vars      []template.Variable
	declared  map[string]template.Variable
	rules     []NetworkRule
	always    []string
	collected map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithAlwaysRequired replaces the always-required fields.
func WithAlwaysRequired(names ...string) Option {
	return func(e *Engine) {
		e.always = names
	}
}

// WithNetworkRules replaces the network rules.
func WithNetworkRules(rules ...NetworkRule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithCollected replaces the fields collected outside the form.
func WithCollected(names ...string) Option {
	return func(e *Engine) {
		e.collected = make(map[string]bool, len(names))
		for _, n := range names {
			e.collected[n] = true
		}
	}
}

// New creates an Engine for vars. Credential fields collected by the auth
// screens are excluded from the form unless WithCollected says otherwise.
func New(vars []template.Variable, opts ...Option) *Engine {
	e := &Engine{
		vars:     vars,
		declared: make(map[string]template.Variable, len(vars)),
		rules:    NetworkRules,
		always:   AlwaysRequired,
	}
	for _, v := range vars {
		e.declared[v.Name] = v
	}
	collected := make([]string, 0, len(auth.CollectedFields))
	for _, f := range auth.CollectedFields {
		collected = append(collected, string(f))
	}
	WithCollected(collected...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Variables returns the template variables.
func (e *Engine) Variables() []template.Variable {
	return e.vars
}

// Toggles returns the names of the declared network toggles.
func (e *Engine) Toggles() []string {
	var out []string
	for _, r := range e.rules {
		if e.declares(r.Toggle) {
			out = append(out, r.Toggle)
		}
	}
	return out
}

// Collected reports whether name is collected outside the form.
func (e *Engine) Collected(name string) bool {
	return e.collected[name]
}

func (e *Engine) declares(name string) bool {
	_, ok := e.declared[name]
	return ok
}

// Evaluate computes the field sets and format errors for values and toggles.
func (e *Engine) Evaluate(values Values, toggles Toggles) Result {
	hidden := map[string]bool{}
	conditional := map[string]bool{}
	toggleNames := map[string]bool{}
	for _, r := range e.rules {
		if !e.declares(r.Toggle) {
			continue
		}
		toggleNames[r.Toggle] = true
		active, inactive := r.New, r.Existing
		if !toggles.Enabled(r.Toggle) {
			active, inactive = r.Existing, r.New
		}
		for _, n := range inactive {
			hidden[n] = true
		}
		for _, n := range append(append([]string(nil), active...), r.Shared...) {
			conditional[n] = true
		}
	}
	// A field active under one rule stays visible.
	for n := range conditional {
		delete(hidden, n)
	}

	always := map[string]bool{}
	for _, n := range e.always {
		always[n] = true
	}

	network := ""
	if e.declares(FieldCIDR) && !hidden[FieldCIDR] {
		network = values.String(FieldCIDR)
	}

	res := Result{Errors: map[string]error{}}
	for _, v := range e.vars {
		name := v.Name
		if e.collected[name] || toggleNames[name] {
			continue
		}
		if hidden[name] {
			res.Hidden = append(res.Hidden, name)
			continue
		}
		res.Visible = append(res.Visible, name)

		if v.Required() || always[name] || conditional[name] {
			res.Required = append(res.Required, name)
			if IsEmpty(values[name]) {
				res.Missing = append(res.Missing, name)
				continue
			}
		}
		if err := checkFormat(name, values[name], network); err != nil {
			res.Errors[name] = err
		}
	}
	return res
}

// checkFormat validates a non-empty value. Subnets must lie within network
// when it is a valid CIDR.
func checkFormat(name string, value any, network string) error {
	if IsEmpty(value) {
		return nil
	}
	switch {
	case contains(NameFields, name):
		s, _ := value.(string)
		return ValidateName(strings.TrimSpace(s))
	case name == TagsField:
		if tags, ok := value.([]labels.Tag); ok {
			return labels.Validate(tags)
		}
	case isCIDRList(name):
		for _, c := range stringList(value) {
			if err := ValidateCIDR(c); err != nil {
				return err
			}
		}
	case isCIDR(name):
		s, _ := value.(string)
		if err := ValidateCIDR(s); err != nil {
			return err
		}
		if isSubnetOf(name) && ValidateCIDR(network) == nil {
			if !cidrContains(network, strings.TrimSpace(s)) {
				return errCIDRNotInParent
			}
		}
	}
	return nil
}

func isCIDR(name string) bool {
	return name == FieldCIDR || strings.HasSuffix(name, "_cidr")
}

func isCIDRList(name string) bool {
	return strings.HasSuffix(name, "_cidrs")
}

// isSubnetOf reports whether name is a subnet of the network CIDR.
func isSubnetOf(name string) bool {
	return strings.HasPrefix(name, "subnet_")
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
