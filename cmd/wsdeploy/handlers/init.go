package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/auth"
	"github.com/imamik/wsdeploy/internal/handoff"
	"github.com/imamik/wsdeploy/internal/platform/s3"
	"github.com/imamik/wsdeploy/internal/wizard"
)

// ErrNotInteractive is returned by Init without a terminal to prompt on.
var ErrNotInteractive = errors.New("wsdeploy init needs an interactive terminal; use 'wsdeploy validate' in scripts")

// step is what the user asked for on a screen.
type step int

const (
	stepNext step = iota
	stepBack
)

// Factory function variables for init - can be replaced in tests.
var (
	// newMachine creates the wizard state machine.
	newMachine = wizard.New

	// runScreen shows the form of the current screen.
	runScreen = func(ctx context.Context, ui *formUI) (step, error) {
		return ui.run(ctx)
	}
)

// Init runs the interactive deployment wizard and writes the deployment
// below output, or the configured output directory when output is empty.
func Init(ctx context.Context, opts Options, output string) error {
	if !isInteractive() {
		return ErrNotInteractive
	}

	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	catalog, err := s.catalog()
	if err != nil {
		return err
	}

	target := output
	if target == "" {
		target = s.cfg.OutputDir
	}

	pub := &handoffPublisher{logger: s.logger, region: s.cfg.AWS.Region}
	m := newMachine(catalog, s.bridges(),
		wizard.WithLogger(s.logger.WithName("wizard")),
		wizard.WithAuthOptions(s.cfg.AuthOptions(s.logger.WithName("auth"))...),
		wizard.WithPublisher(pub, target),
	)
	pub.creds = m.Credentials

	m.Start(ctx)
	defer m.Close()

	ui := &formUI{
		m:      m,
		budget: time.Duration(s.cfg.Poll.MaxAttempts) * s.cfg.Poll.Interval,
	}

	printWelcome()

	for m.Screen() != wizard.ScreenDone {
		ui.screen = m.Screen()
		next, err := runScreen(ctx, ui)
		if err != nil {
			return fmt.Errorf("wizard canceled: %w", err)
		}

		if next == stepBack {
			m.GoBack()
			continue
		}
		if err := m.Next(ctx); err != nil {
			if errors.Is(err, wizard.ErrFinished) {
				break
			}
			printGateError(err)
		}
	}

	printInitSuccess(m.Written())
	return nil
}

// handoffPublisher writes the deployment, uploading to S3 with the AWS
// credentials collected by the wizard.
type handoffPublisher struct {
	logger logr.Logger
	region string
	creds  func() auth.Credentials
}

func (p *handoffPublisher) Write(ctx context.Context, d *handoff.Deployment, target string) ([]string, error) {
	var creds auth.Credentials
	if p.creds != nil {
		creds = p.creds()
	}
	w := handoff.NewWriter(
		handoff.WithLogger(p.logger.WithName("handoff")),
		handoff.WithS3Options(s3OptionsFrom(p.region, creds)),
	)
	return w.Write(ctx, d, target)
}

// s3OptionsFrom selects the S3 credentials: access keys when entered, the
// chosen profile otherwise.
func s3OptionsFrom(region string, creds auth.Credentials) s3.Options {
	return s3.Options{
		Region:          region,
		Profile:         creds.Get(auth.FieldAWSProfile),
		AccessKeyID:     creds.Get(auth.FieldAWSAccessKeyID),
		SecretAccessKey: creds.Get(auth.FieldAWSSecretAccessKey),
		SessionToken:    creds.Get(auth.FieldAWSSessionToken),
	}
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Println()
	fmt.Println("wsdeploy - Databricks workspace deployment")
	fmt.Println("==========================================")
	fmt.Println()
	fmt.Println("This wizard signs you in to your cloud and to the Databricks account,")
	fmt.Println("collects the template variables and writes the deployment for Terraform.")
	fmt.Println()
}

// printGateError explains why the wizard stays on the current screen.
func printGateError(err error) {
	fmt.Println()
	fmt.Printf("  %v\n", err)
	fmt.Println()
}

// printInitSuccess prints the written files and next steps.
func printInitSuccess(written []string) {
	fmt.Println()
	fmt.Println("Deployment written!")
	fmt.Println()
	for _, path := range written {
		fmt.Printf("  %s\n", path)
	}
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Println("  1. Review deployment.yaml")
	fmt.Println()
	fmt.Println("  2. Provision the workspace:")
	fmt.Println("     terraform init && terraform apply -var-file=terraform.tfvars.json")
	fmt.Println()
}
