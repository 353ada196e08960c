// Package labels builds the tag list attached to every resource of a
// deployed workspace.
//
// Tags are ordered key/value pairs. Every deployment carries the default
// managed-by and workspace tags; user tags with the same key replace them.
package labels
