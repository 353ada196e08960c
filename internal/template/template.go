package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed templates
var builtinFS embed.FS

const builtinRoot = "templates"

// Cloud is the cloud a template deploys to.
type Cloud string

// Clouds.
const (
	CloudAWS   Cloud = "aws"
	CloudAzure Cloud = "azure"
)

// providerClouds maps terraform provider names to clouds.
var providerClouds = map[string]Cloud{
	"aws":     CloudAWS,
	"azurerm": CloudAzure,
}

var (
	// ErrNotFound is returned for an unknown template name.
	ErrNotFound = errors.New("template not found")
	// ErrUnknownCloud is returned for a template that requires neither the aws nor the azurerm provider.
	ErrUnknownCloud = errors.New("template does not target a supported cloud")
)

// Template is a Terraform root module with its declared variables.
type Template struct {
	Name      string
	Cloud     Cloud
	Builtin   bool
	Variables []Variable

	fsys   fs.FS
	dir    string
	source string
}

// Lookup returns the variable named name.
func (t *Template) Lookup(name string) (Variable, bool) {
	for _, v := range t.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Declares reports whether the template has a variable named name.
func (t *Template) Declares(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Source describes where the template came from.
func (t *Template) Source() string {
	if t.Builtin {
		return "builtin:" + t.Name
	}
	return t.source
}

// Files returns the .tf files of the template keyed by file name.
func (t *Template) Files() (map[string][]byte, error) {
	entries, err := fs.ReadDir(t.fsys, t.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", t.Name, err)
	}
	files := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tf") {
			continue
		}
		data, err := fs.ReadFile(t.fsys, path.Join(t.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", t.Name, err)
		}
		files[e.Name()] = data
	}
	return files, nil
}

// Load reads the template in dir of fsys. The template is named after the directory.
func Load(fsys fs.FS, dir string) (*Template, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	t := &Template{Name: path.Base(dir), fsys: fsys, dir: dir}
	parser := hclparse.NewParser()
	clouds := map[Cloud]bool{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tf") {
			continue
		}
		name := path.Join(dir, e.Name())
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		pf, err := parseFile(parser, name, src)
		if err != nil {
			return nil, err
		}
		t.Variables = append(t.Variables, pf.variables...)
		for _, p := range pf.providers {
			if c, ok := providerClouds[p]; ok {
				clouds[c] = true
			}
		}
	}

	switch len(clouds) {
	case 1:
		for c := range clouds {
			t.Cloud = c
		}
	case 0:
		return nil, fmt.Errorf("%s: %w", t.Name, ErrUnknownCloud)
	default:
		return nil, fmt.Errorf("%s: %w: requires providers of more than one cloud", t.Name, ErrUnknownCloud)
	}
	return t, nil
}

// Catalog is the set of available templates.
type Catalog struct {
	templates []*Template
}

// LoadCatalog returns the built-in templates plus every subdirectory of dir
// holding a variables.tf. A directory template replaces a built-in template
// of the same name. An empty dir yields the built-in templates only.
func LoadCatalog(dir string) (*Catalog, error) {
	c := &Catalog{}

	entries, err := fs.ReadDir(builtinFS, builtinRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in templates: %w", err)
	}
	for _, e := range entries {
		t, err := Load(builtinFS, path.Join(builtinRoot, e.Name()))
		if err != nil {
			return nil, err
		}
		t.Builtin = true
		c.add(t)
	}

	if dir == "" {
		return c, nil
	}
	dirFS := os.DirFS(dir)
	entries, err = fs.ReadDir(dirFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(dirFS, path.Join(e.Name(), "variables.tf")); err != nil {
			continue
		}
		t, err := Load(dirFS, e.Name())
		if err != nil {
			return nil, err
		}
		t.source = filepath.Join(dir, e.Name())
		c.add(t)
	}
	return c, nil
}

func (c *Catalog) add(t *Template) {
	for i, existing := range c.templates {
		if existing.Name == t.Name {
			c.templates[i] = t
			return
		}
	}
	c.templates = append(c.templates, t)
	sort.Slice(c.templates, func(i, j int) bool {
		return c.templates[i].Name < c.templates[j].Name
	})
}

// Get returns the template named name.
func (c *Catalog) Get(name string) (*Template, error) {
	for _, t := range c.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ForCloud returns the templates of cloud, sorted by name.
func (c *Catalog) ForCloud(cloud Cloud) []*Template {
	var out []*Template
	for _, t := range c.templates {
		if t.Cloud == cloud {
			out = append(out, t)
		}
	}
	return out
}

// All returns every template, sorted by name.
func (c *Catalog) All() []*Template {
	return append([]*Template(nil), c.templates...)
}
