// Package handlers implements the business logic for CLI commands.
//
// Each handler loads the settings, builds the provider bridges and drives
// the internal packages. Collaborators are held in package-level factory
// variables so tests can replace them.
package handlers

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"

	"github.com/imamik/wsdeploy/internal/config"
	"github.com/imamik/wsdeploy/internal/metrics"
	awsplatform "github.com/imamik/wsdeploy/internal/platform/aws"
	azureplatform "github.com/imamik/wsdeploy/internal/platform/azure"
	dbplatform "github.com/imamik/wsdeploy/internal/platform/databricks"
	"github.com/imamik/wsdeploy/internal/platform/exec"
	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/wizard"
)

// Options are the global flags shared by all commands.
type Options struct {
	// ConfigPath is the settings file, empty for ~/.wsdeploy/config.yaml.
	ConfigPath string
	// Verbosity is the log level: 1 traces bridge calls, 2 every poll attempt.
	Verbosity int
	// MetricsFile receives the metrics in text format when the command ends.
	MetricsFile string
}

// Factory function variables shared by the handlers - can be replaced in tests.
var (
	// logOutput receives log lines.
	logOutput io.Writer = os.Stderr

	// loadSettings reads the settings file.
	loadSettings = config.Load

	// loadCatalog loads the built-in and configured templates.
	loadCatalog = template.LoadCatalog

	// newBridges builds the provider bridges from the settings.
	newBridges = defaultBridges

	// writeMetrics exports the metrics registry.
	writeMetrics = metrics.WriteTextfile

	// isInteractive reports whether the wizard can prompt the user.
	isInteractive = isInteractiveTTY
)

// session is the state common to one command run.
type session struct {
	cfg         *config.Config
	logger      logr.Logger
	metricsFile string
}

func openSession(opts Options) (*session, error) {
	logger := newLogger(logOutput, opts.Verbosity)

	cfg, err := loadSettings(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	logger.V(1).Info("settings loaded", "templatesDir", cfg.TemplatesDir, "strictPermissions", cfg.Permissions.Strict)

	return &session{cfg: cfg, logger: logger, metricsFile: opts.MetricsFile}, nil
}

// close exports the metrics if requested. A failed export is logged, it
// never changes the outcome of the command.
func (s *session) close() {
	if s.metricsFile == "" {
		return
	}
	if err := writeMetrics(s.metricsFile); err != nil {
		s.logger.Error(err, "failed to write metrics", "path", s.metricsFile)
		return
	}
	s.logger.V(1).Info("metrics written", "path", s.metricsFile)
}

func (s *session) bridges() wizard.Bridges {
	return newBridges(s.cfg, s.logger)
}

func (s *session) catalog() (*template.Catalog, error) {
	catalog, err := loadCatalog(s.cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return catalog, nil
}

// newLogger returns a logger writing one line per entry to w.
func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func defaultBridges(cfg *config.Config, logger logr.Logger) wizard.Bridges {
	runner := func(provider string) exec.Runner {
		return exec.New(provider, exec.WithLogger(logger.WithName(provider)))
	}
	return wizard.Bridges{
		AWS: awsplatform.NewBridge(runner("aws"),
			awsplatform.WithRegion(cfg.AWS.Region),
			awsplatform.WithLogger(logger.WithName("aws")),
		),
		Azure: azureplatform.NewBridge(runner("azure"),
			azureplatform.WithEndpoints(cfg.Azure.ManagementEndpoint, cfg.Azure.AuthorityHost),
			azureplatform.WithLogger(logger.WithName("azure")),
		),
		Databricks: dbplatform.NewBridge(runner("databricks"),
			dbplatform.WithConfigFile(cfg.Databricks.ConfigFile),
			dbplatform.WithAccountsHost(cfg.Databricks.AccountsHost),
			dbplatform.WithLogger(logger.WithName("databricks")),
		),
	}
}

func isInteractiveTTY() bool {
	return (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
}
