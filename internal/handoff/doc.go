// Package handoff writes an assembled deployment for the provisioning engine.
//
// A hand-off is a directory holding the template's Terraform files,
// terraform.tfvars.json with every variable, and deployment.yaml, a
// human-readable summary with sensitive values redacted. The directory is
// written locally or uploaded below an s3:// prefix.
package handoff
