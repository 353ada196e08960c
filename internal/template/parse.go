package template

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the shape of a variable value.
type Kind string

// Kinds.
const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindMap    Kind = "map"
	KindAny    Kind = "any"
)

// Variable is a declared template input.
type Variable struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description,omitempty"`
	// Default is the decoded default value, nil when there is none.
	Default    any  `json:"default,omitempty"`
	HasDefault bool `json:"has_default"`
	Sensitive  bool `json:"sensitive,omitempty"`
}

// Required reports whether the variable has no default. A null default
// counts as none.
func (v Variable) Required() bool {
	return !v.HasDefault || v.Default == nil
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "terraform"},
	},
}

var variableSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "default"},
		{Name: "description"},
		{Name: "sensitive"},
		{Name: "nullable"},
	},
}

var terraformSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "required_providers"},
	},
}

// parsedFile is what one .tf file contributes to a template.
type parsedFile struct {
	variables []Variable
	providers []string
}

// ParseVariables returns the variables declared in src, in order.
func ParseVariables(filename string, src []byte) ([]Variable, error) {
	pf, err := parseFile(hclparse.NewParser(), filename, src)
	if err != nil {
		return nil, err
	}
	return pf.variables, nil
}

func parseFile(p *hclparse.Parser, filename string, src []byte) (*parsedFile, error) {
	file, diags := p.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}
	content, _, diags := file.Body.PartialContent(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}

	pf := &parsedFile{}
	for _, block := range content.Blocks {
		switch block.Type {
		case "variable":
			v, err := decodeVariable(block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filename, err)
			}
			pf.variables = append(pf.variables, v)
		case "terraform":
			providers, diags := decodeProviders(block)
			if diags.HasErrors() {
				return nil, fmt.Errorf("%s: %w", filename, diags)
			}
			pf.providers = append(pf.providers, providers...)
		}
	}
	return pf, nil
}

func decodeVariable(block *hcl.Block) (Variable, error) {
	v := Variable{Name: block.Labels[0], Kind: KindAny}
	content, _, diags := block.Body.PartialContent(variableSchema)
	if diags.HasErrors() {
		return v, fmt.Errorf("variable %q: %w", v.Name, diags)
	}

	if attr, ok := content.Attributes["type"]; ok {
		v.Kind = kindOf(attr.Expr)
	}
	if attr, ok := content.Attributes["default"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return v, fmt.Errorf("variable %q default: %w", v.Name, diags)
		}
		v.HasDefault = true
		v.Default = goValue(val)
		if v.Kind == KindAny && v.Default != nil {
			v.Kind = kindOfValue(val.Type())
		}
	}
	if attr, ok := content.Attributes["description"]; ok {
		val, diags := attr.Expr.Value(nil)
		if !diags.HasErrors() && val.Type() == cty.String && !val.IsNull() {
			v.Description = val.AsString()
		}
	}
	if attr, ok := content.Attributes["sensitive"]; ok {
		val, diags := attr.Expr.Value(nil)
		if !diags.HasErrors() && val.Type() == cty.Bool && !val.IsNull() {
			v.Sensitive = val.True()
		}
	}
	return v, nil
}

func decodeProviders(block *hcl.Block) ([]string, hcl.Diagnostics) {
	content, _, diags := block.Body.PartialContent(terraformSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	var names []string
	for _, rp := range content.Blocks {
		attrs, diags := rp.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, diags
		}
		for name := range attrs {
			names = append(names, name)
		}
	}
	return names, nil
}

// kindOf maps a type constraint expression such as string or list(string).
func kindOf(expr hcl.Expression) Kind {
	switch hcl.ExprAsKeyword(expr) {
	case "string":
		return KindString
	case "number":
		return KindNumber
	case "bool":
		return KindBool
	case "any":
		return KindAny
	}
	call, diags := hcl.ExprCall(expr)
	if diags.HasErrors() {
		return KindAny
	}
	switch call.Name {
	case "list", "set", "tuple":
		return KindList
	case "map", "object":
		return KindMap
	}
	return KindAny
}

func kindOfValue(t cty.Type) Kind {
	switch {
	case t == cty.String:
		return KindString
	case t == cty.Number:
		return KindNumber
	case t == cty.Bool:
		return KindBool
	case t.IsListType(), t.IsSetType(), t.IsTupleType():
		return KindList
	case t.IsMapType(), t.IsObjectType():
		return KindMap
	}
	return KindAny
}

// goValue converts a known cty value to string, int64, float64, bool,
// []any or map[string]any.
func goValue(v cty.Value) any {
	if v.IsNull() || !v.IsWhollyKnown() {
		return nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString()
	case t == cty.Number:
		return number(v.AsBigFloat())
	case t == cty.Bool:
		return v.True()
	case t.IsListType(), t.IsSetType(), t.IsTupleType():
		out := []any{}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, goValue(ev))
		}
		return out
	case t.IsMapType(), t.IsObjectType():
		out := map[string]any{}
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = goValue(ev)
		}
		return out
	}
	return nil
}

func number(f *big.Float) any {
	if f.IsInt() {
		if i, acc := f.Int64(); acc == big.Exact {
			return i
		}
	}
	out, _ := f.Float64()
	return out
}
