// Package s3 uploads hand-off documents to Amazon S3.
//
// Targets are written as s3://bucket/prefix. The client authenticates with
// the AWS profile or static keys chosen in the wizard, falling back to the
// default credential chain.
package s3
