package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/util/labels"
	"github.com/imamik/wsdeploy/internal/validation"
)

// ErrInvalidValues is returned by Validate when the values do not pass.
var ErrInvalidValues = errors.New("values are invalid")

// readFile reads the values file - can be replaced in tests.
var readFile = os.ReadFile

// Validate checks a values file against the variables of a template
// without prompting. Values override the template defaults; network
// toggles are read from the values too.
func Validate(_ context.Context, opts Options, templateName, valuesPath string) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	catalog, err := s.catalog()
	if err != nil {
		return err
	}
	t, err := catalog.Get(templateName)
	if err != nil {
		return err
	}

	input, err := readValues(valuesPath)
	if err != nil {
		return err
	}

	engine := validation.New(t.Variables)
	values, toggles := engine.Defaults()
	var unknown []string
	for _, name := range sortedKeys(input) {
		v := input[name]
		switch {
		case !t.Declares(name):
			unknown = append(unknown, name)
		case isToggle(engine, name):
			toggles[name] = validation.ToggleOf(v)
		case name == validation.TagsField:
			values[name] = tagsOf(v)
		default:
			engine.SetValue(values, name, v)
		}
	}

	res := engine.Evaluate(values, toggles)
	printValidation(t, res, unknown)
	if !res.Valid() {
		return fmt.Errorf("%w: %d missing, %d malformed", ErrInvalidValues, len(res.Missing), len(res.Errors))
	}
	return nil
}

func readValues(path string) (map[string]any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse values %s: %w", path, err)
	}
	return values, nil
}

func isToggle(e *validation.Engine, name string) bool {
	for _, t := range e.Toggles() {
		if t == name {
			return true
		}
	}
	return false
}

// tagsOf converts a tags mapping to a tag list ordered by key.
func tagsOf(v any) []labels.Tag {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	tags := make([]labels.Tag, 0, len(m))
	for _, k := range sortedKeys(m) {
		tags = append(tags, labels.Tag{Key: k, Value: fmt.Sprint(m[k])})
	}
	return tags
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printValidation(t *template.Template, res validation.Result, unknown []string) {
	fmt.Printf("Template: %s (%s, %s)\n", t.Name, t.Cloud, t.Source())
	fmt.Println()

	fmt.Printf("  Required: %d\n", len(res.Required))
	if len(res.Hidden) > 0 {
		fmt.Printf("  Hidden:   %v\n", res.Hidden)
	}
	for _, fe := range res.FieldErrors() {
		fmt.Printf("  %v\n", fe)
	}
	for _, name := range unknown {
		fmt.Printf("  %s: ignored, not declared by the template\n", name)
	}
	fmt.Println()

	if res.Valid() {
		fmt.Println("Values are valid.")
	} else {
		fmt.Println("Values are invalid.")
	}
}
