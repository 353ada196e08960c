// Package template provides the catalog of workspace templates and the
// declared variables of each.
//
// A template is a Terraform root module. Its variables are read from the
// `variable` blocks of its .tf files and its cloud from the providers named
// in `required_providers`. Two templates are built into the binary; more
// are picked up from a templates directory, one subdirectory per template.
package template
