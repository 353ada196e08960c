package labels

import (
	"errors"
	"fmt"
	"strings"
)

// Standard tag keys.
const (
	// KeyManagedBy identifies the management system
	KeyManagedBy = "managed-by"

	// KeyWorkspace identifies which workspace a resource belongs to
	KeyWorkspace = "workspace"
)

// ManagedByWsdeploy is the value of KeyManagedBy.
const ManagedByWsdeploy = "wsdeploy"

// Tag is one resource tag.
type Tag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

var (
	// ErrEmptyKey is returned for a tag without key.
	ErrEmptyKey = errors.New("tag key must not be empty")
	// ErrDuplicateKey is returned when two tags share a key.
	ErrDuplicateKey = errors.New("duplicate tag key")
)

// TagBuilder provides a fluent interface for building an ordered tag list.
type TagBuilder struct {
	tags []Tag
}

// NewTagBuilder creates a builder with the default tags of workspace pre-set.
func NewTagBuilder(workspace string) *TagBuilder {
	tb := &TagBuilder{}
	tb.Set(KeyManagedBy, ManagedByWsdeploy)
	if workspace != "" {
		tb.Set(KeyWorkspace, workspace)
	}
	return tb
}

// Set adds a tag or replaces the value of an existing key in place.
func (tb *TagBuilder) Set(key, value string) *TagBuilder {
	for i := range tb.tags {
		if tb.tags[i].Key == key {
			tb.tags[i].Value = value
			return tb
		}
	}
	tb.tags = append(tb.tags, Tag{Key: key, Value: value})
	return tb
}

// Merge sets every tag of extra in order.
func (tb *TagBuilder) Merge(extra []Tag) *TagBuilder {
	for _, t := range extra {
		tb.Set(t.Key, t.Value)
	}
	return tb
}

// Build returns a copy of the tag list.
func (tb *TagBuilder) Build() []Tag {
	out := make([]Tag, len(tb.tags))
	copy(out, tb.tags)
	return out
}

// Map returns the tags as a map, the shape terraform variables expect.
func Map(tags []Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.Key] = t.Value
	}
	return m
}

// Validate reports empty and duplicate keys.
func Validate(tags []Tag) error {
	seen := make(map[string]bool, len(tags))
	var errs []error
	for i, t := range tags {
		key := strings.TrimSpace(t.Key)
		if key == "" {
			errs = append(errs, fmt.Errorf("tag %d: %w", i+1, ErrEmptyKey))
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateKey, key))
			continue
		}
		seen[key] = true
	}
	return errors.Join(errs...)
}
