package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/auth"
	"github.com/imamik/wsdeploy/internal/platform/exec"
)

// DefaultRegion is used when neither the profile nor the settings name one.
const DefaultRegion = "us-east-1"

// Bridge talks to the aws CLI and the AWS APIs.
type Bridge struct {
	runner exec.Runner
	region string
	logger logr.Logger

	requiredActions []string
	configFiles     []string
	credsFiles      []string
	loadOptions     []func(*config.LoadOptions) error
	stsOptions      []func(*sts.Options)
	iamOptions      []func(*iam.Options)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRegion sets the region for API calls of profiles without one.
func WithRegion(region string) Option {
	return func(b *Bridge) {
		if region != "" {
			b.region = region
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithRequiredActions replaces the IAM actions probed by CheckPermissions.
func WithRequiredActions(actions ...string) Option {
	return func(b *Bridge) {
		b.requiredActions = actions
	}
}

// WithSharedFiles replaces the shared config and credentials file locations.
func WithSharedFiles(configFiles, credentialsFiles []string) Option {
	return func(b *Bridge) {
		b.configFiles = configFiles
		b.credsFiles = credentialsFiles
	}
}

// WithLoadOptions appends options used when loading SDK config.
func WithLoadOptions(opts ...func(*config.LoadOptions) error) Option {
	return func(b *Bridge) {
		b.loadOptions = append(b.loadOptions, opts...)
	}
}

// WithSTSOptions appends STS client options.
func WithSTSOptions(opts ...func(*sts.Options)) Option {
	return func(b *Bridge) {
		b.stsOptions = append(b.stsOptions, opts...)
	}
}

// WithIAMOptions appends IAM client options.
func WithIAMOptions(opts ...func(*iam.Options)) Option {
	return func(b *Bridge) {
		b.iamOptions = append(b.iamOptions, opts...)
	}
}

// NewBridge creates a Bridge running CLI commands through runner.
func NewBridge(runner exec.Runner, opts ...Option) *Bridge {
	b := &Bridge{
		runner:          runner,
		region:          DefaultRegion,
		logger:          logr.Discard(),
		requiredActions: RequiredActions,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ListProfiles returns the configured CLI profiles with region and SSO
// metadata from the shared config files.
func (b *Bridge) ListProfiles(ctx context.Context) ([]auth.Profile, error) {
	out, err := b.runner.Run(ctx, "aws", "configure", "list-profiles")
	if err != nil {
		return nil, auth.NewProviderError(auth.AWS, "list profiles", err)
	}

	var profiles []auth.Profile
	for _, line := range strings.Split(string(out), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		p := auth.Profile{Name: name, Provider: auth.AWS}
		shared, err := config.LoadSharedConfigProfile(ctx, name, func(o *config.LoadSharedConfigOptions) {
			if len(b.configFiles) > 0 {
				o.ConfigFiles = b.configFiles
			}
			if len(b.credsFiles) > 0 {
				o.CredentialsFiles = b.credsFiles
			}
		})
		if err != nil {
			b.logger.V(1).Info("profile metadata unavailable", "profile", name, "error", err.Error())
		} else {
			p.Region = shared.Region
			p.SSO = shared.SSOStartURL != "" || shared.SSOSessionName != ""
			p.AccountID = shared.SSOAccountID
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Identity resolves profile with STS GetCallerIdentity.
func (b *Bridge) Identity(ctx context.Context, profile string) (*auth.Identity, error) {
	cfg, err := b.configFor(ctx, auth.Credentials{auth.FieldAWSProfile: profile})
	if err != nil {
		return nil, auth.NewProviderError(auth.AWS, "load profile", err)
	}
	id, err := b.callerIdentity(ctx, cfg)
	if err != nil {
		return nil, auth.NewProviderError(auth.AWS, "get caller identity", err)
	}
	return id, nil
}

func (b *Bridge) callerIdentity(ctx context.Context, cfg aws.Config) (*auth.Identity, error) {
	out, err := sts.NewFromConfig(cfg, b.stsOptions...).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, err
	}
	return &auth.Identity{
		Provider:  auth.AWS,
		Principal: aws.ToString(out.UserId),
		AccountID: aws.ToString(out.Account),
		ARN:       aws.ToString(out.Arn),
	}, nil
}

// SSOLogin starts `aws sso login` for profile. It returns once the CLI is
// running; the login completes in the browser.
func (b *Bridge) SSOLogin(ctx context.Context, profile string) error {
	if profile == "" {
		return errors.New("aws sso login: no profile selected")
	}
	return b.runner.Start(ctx, "aws", "sso", "login", "--profile", profile)
}

// configFor loads SDK config for the profile or static keys in creds.
func (b *Bridge) configFor(ctx context.Context, creds auth.Credentials) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	switch {
	case creds.Has(auth.FieldAWSAccessKeyID):
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.Get(auth.FieldAWSAccessKeyID),
			creds.Get(auth.FieldAWSSecretAccessKey),
			creds.Get(auth.FieldAWSSessionToken),
		)))
	case creds.Has(auth.FieldAWSProfile):
		opts = append(opts, config.WithSharedConfigProfile(creds.Get(auth.FieldAWSProfile)))
	}
	if len(b.configFiles) > 0 {
		opts = append(opts, config.WithSharedConfigFiles(b.configFiles))
	}
	if len(b.credsFiles) > 0 {
		opts = append(opts, config.WithSharedCredentialsFiles(b.credsFiles))
	}
	opts = append(opts, b.loadOptions...)

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = b.region
	}
	return cfg, nil
}
