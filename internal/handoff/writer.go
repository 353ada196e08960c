package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-logr/logr"
	"sigs.k8s.io/yaml"

	"github.com/imamik/wsdeploy/internal/platform/s3"
	"github.com/imamik/wsdeploy/internal/util/naming"
)

// ErrNoWorkspace is returned for a deployment without workspace name.
var ErrNoWorkspace = errors.New("deployment has no workspace name")

// Uploader stores objects in S3.
type Uploader interface {
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
}

// Writer writes hand-offs.
type Writer struct {
	logger    logr.Logger
	s3Options s3.Options
	uploader  func(ctx context.Context, opts s3.Options) (Uploader, error)
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(w *Writer) {
		w.logger = l
	}
}

// WithS3Options sets the credentials for s3:// targets.
func WithS3Options(opts s3.Options) Option {
	return func(w *Writer) {
		w.s3Options = opts
	}
}

// WithUploader replaces the S3 client factory.
func WithUploader(f func(ctx context.Context, opts s3.Options) (Uploader, error)) Option {
	return func(w *Writer) {
		w.uploader = f
	}
}

// NewWriter creates a Writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		logger:   logr.Discard(),
		uploader: newS3Uploader,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func newS3Uploader(ctx context.Context, opts s3.Options) (Uploader, error) {
	return s3.NewClient(ctx, opts)
}

// Write renders d and stores it below target, a directory or an s3:// URI.
// It returns the written paths or object URIs.
func Write(ctx context.Context, d *Deployment, target string) ([]string, error) {
	return NewWriter().Write(ctx, d, target)
}

// Write renders d and stores it below target, a directory or an s3:// URI.
// It returns the written paths or object URIs in name order.
func (w *Writer) Write(ctx context.Context, d *Deployment, target string) ([]string, error) {
	files, err := Render(d)
	if err != nil {
		return nil, err
	}
	if s3.IsURI(target) {
		return w.upload(ctx, d.Workspace, files, target)
	}
	return w.writeLocal(d.Workspace, files, target)
}

// Render returns the hand-off files of d keyed by name.
func Render(d *Deployment) (map[string][]byte, error) {
	if d.Workspace == "" {
		return nil, ErrNoWorkspace
	}
	summary, err := yaml.Marshal(d.Summary())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment: %w", err)
	}
	tfvars, err := json.MarshalIndent(d.Tfvars(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	files := make(map[string][]byte, len(d.Files)+2)
	for name, data := range d.Files {
		files[name] = data
	}
	files[naming.DeploymentFile] = summary
	files[naming.TfvarsFile] = append(tfvars, '\n')
	return files, nil
}

func (w *Writer) writeLocal(workspace string, files map[string][]byte, outputDir string) ([]string, error) {
	dir := naming.DeploymentDir(outputDir, workspace)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var written []string
	for _, name := range sortedNames(files) {
		path := filepath.Join(dir, name)
		// tfvars may hold secrets.
		if err := os.WriteFile(path, files[name], 0o600); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		w.logger.V(1).Info("wrote hand-off file", "path", path)
		written = append(written, path)
	}
	return written, nil
}

func (w *Writer) upload(ctx context.Context, workspace string, files map[string][]byte, target string) ([]string, error) {
	bucket, prefix, err := s3.ParseURI(target)
	if err != nil {
		return nil, err
	}
	client, err := w.uploader(ctx, w.s3Options)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, name := range sortedNames(files) {
		key := naming.ObjectKey(prefix, workspace, name)
		if err := client.PutObject(ctx, bucket, key, contentType(name), files[name]); err != nil {
			return written, fmt.Errorf("failed to upload %s: %w", name, err)
		}
		uri := s3.Scheme + bucket + "/" + key
		w.logger.V(1).Info("uploaded hand-off file", "uri", uri)
		written = append(written, uri)
	}
	return written, nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".yaml":
		return "application/yaml"
	}
	return "text/plain"
}

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
