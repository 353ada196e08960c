package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/auth"
	awsauth "github.com/imamik/wsdeploy/internal/auth/aws"
	azureauth "github.com/imamik/wsdeploy/internal/auth/azure"
	dbauth "github.com/imamik/wsdeploy/internal/auth/databricks"
	"github.com/imamik/wsdeploy/internal/handoff"
	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/util/labels"
	"github.com/imamik/wsdeploy/internal/util/prerequisites"
	"github.com/imamik/wsdeploy/internal/validation"
)

var (
	// ErrGate wraps every error that keeps Next from advancing.
	ErrGate = errors.New("cannot continue")
	// ErrFinished is returned by Next on the last screen.
	ErrFinished = errors.New("wizard finished")
	// ErrNoCloud is returned when a step needs a cloud and none is selected.
	ErrNoCloud = errors.New("select a cloud")
	// ErrNoTemplate is returned when a step needs a template and none is selected.
	ErrNoTemplate = errors.New("select a template")
	// ErrCloudMismatch is returned for a template of another cloud.
	ErrCloudMismatch = errors.New("template targets another cloud")
	// ErrUnknownToggle is returned by SetToggle for a name the template does not toggle on.
	ErrUnknownToggle = errors.New("unknown toggle")
)

// Bridges are the provider tooling the orchestrators talk to.
type Bridges struct {
	AWS        awsauth.Bridge
	Azure      azureauth.Bridge
	Databricks dbauth.Bridge
}

// Publisher hands the finished deployment to the provisioning engine.
type Publisher interface {
	Write(ctx context.Context, d *handoff.Deployment, target string) ([]string, error)
}

// PrerequisiteFunc checks the tools a cloud needs.
type PrerequisiteFunc func(ctx context.Context, cloud template.Cloud) *prerequisites.CheckResults

func checkTools(ctx context.Context, cloud template.Cloud) *prerequisites.CheckResults {
	return prerequisites.Check(ctx, prerequisites.ToolsFor(string(cloud)), false)
}

// cloudOrchestrator is what the cloud credentials screen needs from the
// AWS and Azure orchestrators.
type cloudOrchestrator interface {
	auth.Orchestrator
	CheckPermissions(ctx context.Context, creds auth.Credentials) auth.PermissionCheck
	PermissionsFor(creds auth.Credentials) *auth.PermissionCheck
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger of the machine and its orchestrators.
func WithLogger(l logr.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithAuthOptions passes options to every orchestrator.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(m *Machine) {
		m.authOpts = append(m.authOpts, opts...)
	}
}

// WithPrerequisites replaces the PATH check run on the prerequisites screen.
func WithPrerequisites(f PrerequisiteFunc) Option {
	return func(m *Machine) {
		m.prereq = f
	}
}

// WithPublisher sets where the review screen writes the deployment.
// target is a directory or an s3:// URL.
func WithPublisher(p Publisher, target string) Option {
	return func(m *Machine) {
		m.publisher = p
		m.target = target
	}
}

// WithClock sets the clock stamping the deployment.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// Machine is the wizard state machine. It owns the credentials record;
// orchestrators write to it through a setter.
//
// mu is never held while calling into an orchestrator, since orchestrators
// call back into the setter.
type Machine struct {
	catalog   *template.Catalog
	logger    logr.Logger
	authOpts  []auth.Option
	prereq    PrerequisiteFunc
	publisher Publisher
	target    string
	now       func() time.Time

	aws        *awsauth.Orchestrator
	azure      *azureauth.Orchestrator
	databricks *dbauth.Orchestrator

	mu        sync.Mutex
	root      context.Context
	screen    Screen
	history   []Screen
	creds     auth.Credentials
	cloud     template.Cloud
	tmpl      *template.Template
	engine    *validation.Engine
	values    validation.Values
	toggles   validation.Toggles
	tags      []labels.Tag
	prereqs   *prerequisites.CheckResults
	submitted map[Screen]bool
	written   []string
}

// New creates a machine on the welcome screen.
func New(catalog *template.Catalog, bridges Bridges, opts ...Option) *Machine {
	m := &Machine{
		catalog:   catalog,
		logger:    logr.Discard(),
		prereq:    checkTools,
		publisher: handoff.NewWriter(),
		target:    ".",
		now:       time.Now,
		root:      context.Background(),
		creds:     auth.Credentials{},
		submitted: map[Screen]bool{},
	}
	for _, opt := range opts {
		opt(m)
	}

	authOpts := append([]auth.Option{auth.WithLogger(m.logger)}, m.authOpts...)
	m.aws = awsauth.New(bridges.AWS, m.setCredential, authOpts...)
	m.azure = azureauth.New(bridges.Azure, m.setCredential, authOpts...)
	m.databricks = dbauth.New(bridges.Databricks, m.setCredential, authOpts...)
	return m
}

func (m *Machine) setCredential(f auth.Field, v string) {
	m.mu.Lock()
	m.creds.Set(f, v)
	m.mu.Unlock()
}

// Start sets the context orchestrators are attached to while their screen
// is active. Canceling it stops every pending login.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	m.root = ctx
	m.mu.Unlock()
}

// Close detaches every orchestrator.
func (m *Machine) Close() {
	m.aws.Detach()
	m.azure.Detach()
	m.databricks.Detach()
}

// Screen returns the active screen.
func (m *Machine) Screen() Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen
}

// History returns the screens GoBack would return to, oldest first.
func (m *Machine) History() []Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// AWS returns the AWS orchestrator.
func (m *Machine) AWS() *awsauth.Orchestrator { return m.aws }

// Azure returns the Azure orchestrator.
func (m *Machine) Azure() *azureauth.Orchestrator { return m.azure }

// Databricks returns the Databricks orchestrator.
func (m *Machine) Databricks() *dbauth.Orchestrator { return m.databricks }

// Next validates the active screen and moves to the following one.
// A failed gate leaves the screen unchanged and returns an error wrapping ErrGate.
func (m *Machine) Next(ctx context.Context) error {
	m.mu.Lock()
	cur := m.screen
	m.submitted[cur] = true
	m.mu.Unlock()

	if cur == ScreenDone {
		return ErrFinished
	}
	if err := m.gate(ctx, cur); err != nil {
		m.logger.V(1).Info("screen gate closed", "screen", cur.String(), "error", err.Error())
		return fmt.Errorf("%w: %s: %w", ErrGate, cur, err)
	}

	next := cur.next()
	m.mu.Lock()
	m.history = append(m.history, cur)
	m.screen = next
	m.mu.Unlock()

	m.logger.V(1).Info("screen changed", "from", cur.String(), "to", next.String())
	m.leave(cur)
	m.enter(ctx, next)
	return nil
}

// GoBack returns to the previous screen. It reports false on the first
// screen and after the deployment was written.
func (m *Machine) GoBack() bool {
	m.mu.Lock()
	cur := m.screen
	if cur == ScreenDone || len(m.history) == 0 {
		m.mu.Unlock()
		return false
	}
	prev := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.screen = prev
	ctx := m.root
	m.mu.Unlock()

	m.logger.V(1).Info("screen changed", "from", cur.String(), "to", prev.String(), "back", true)
	m.leave(cur)
	m.enter(ctx, prev)
	return true
}

// Submitted reports whether Next was attempted on s. Forms show field
// errors only after the first attempt.
func (m *Machine) Submitted(s Screen) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted[s]
}

func (m *Machine) gate(ctx context.Context, s Screen) error {
	switch s {
	case ScreenCloud:
		if m.Cloud() == "" {
			return ErrNoCloud
		}
	case ScreenPrerequisites:
		// A failed check is rerun so that tools installed meanwhile count.
		res := m.Prerequisites()
		if res == nil || res.HasErrors() {
			res = m.runPrerequisites(ctx)
		}
		return res.Error()
	case ScreenCloudCredentials:
		return m.gateCloudCredentials(ctx)
	case ScreenDatabricksCredentials:
		return m.databricks.Ready(m.Credentials())
	case ScreenTemplate:
		if m.Template() == nil {
			return ErrNoTemplate
		}
	case ScreenConfigure:
		if m.Template() == nil {
			return ErrNoTemplate
		}
		return m.Evaluate().Err()
	case ScreenTags:
		return labels.Validate(m.Tags())
	case ScreenReview:
		return m.publish(ctx)
	}
	return nil
}

func (m *Machine) gateCloudCredentials(ctx context.Context) error {
	o, err := m.cloudOrchestrator()
	if err != nil {
		return err
	}
	creds := m.Credentials()
	if err := o.Ready(creds); err != nil {
		return err
	}
	check := o.PermissionsFor(creds)
	if check == nil {
		res := o.CheckPermissions(ctx, creds)
		check = &res
	}
	return auth.RequirePermissions(*check)
}

func (m *Machine) cloudOrchestrator() (cloudOrchestrator, error) {
	switch m.Cloud() {
	case template.CloudAWS:
		return m.aws, nil
	case template.CloudAzure:
		return m.azure, nil
	}
	return nil, ErrNoCloud
}

// enter attaches the orchestrator of a credentials screen and loads fresh
// provider state. Profiles are never reused across visits.
func (m *Machine) enter(ctx context.Context, s Screen) {
	switch s {
	case ScreenPrerequisites:
		m.runPrerequisites(ctx)
	case ScreenCloudCredentials:
		switch m.Cloud() {
		case template.CloudAWS:
			m.aws.Attach(m.rootContext())
			m.aws.LoadProfiles(ctx)
		case template.CloudAzure:
			m.azure.Attach(m.rootContext())
			m.loadAzure(ctx)
		}
	case ScreenDatabricksCredentials:
		m.databricks.Attach(m.rootContext())
		m.databricks.LoadProfiles(ctx)
	}
}

// leave detaches the orchestrator of a credentials screen so that a pending
// login no longer reports back.
func (m *Machine) leave(s Screen) {
	switch s {
	case ScreenCloudCredentials:
		m.aws.Detach()
		m.azure.Detach()
	case ScreenDatabricksCredentials:
		m.databricks.Detach()
	}
}

// loadAzure resolves the session and selects the subscription already in
// the credentials record, else the session's default.
func (m *Machine) loadAzure(ctx context.Context) {
	acct := m.azure.LoadAccount(ctx)
	if acct == nil {
		return
	}
	subs := m.azure.LoadSubscriptions(ctx)
	creds := m.Credentials()
	id := creds.Get(auth.FieldAzureSubscriptionID)
	if id == "" {
		id = acct.SubscriptionID
	}
	if !m.azure.HandleSubscriptionChange(ctx, id, subs, creds) {
		m.logger.V(1).Info("subscription not visible to the session", "subscription", id)
	}
}

func (m *Machine) rootContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root
}

func (m *Machine) runPrerequisites(ctx context.Context) *prerequisites.CheckResults {
	res := m.prereq(ctx, m.Cloud())
	m.mu.Lock()
	m.prereqs = res
	m.mu.Unlock()
	return res
}

// Prerequisites returns the last tool check, nil before the prerequisites screen.
func (m *Machine) Prerequisites() *prerequisites.CheckResults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prereqs
}

// Cloud returns the selected cloud.
func (m *Machine) Cloud() template.Cloud {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cloud
}

// SelectCloud selects the target cloud. Switching clouds drops the
// credentials of the previous cloud, the prerequisite results and a
// template of the previous cloud.
func (m *Machine) SelectCloud(c template.Cloud) error {
	var provider auth.Provider
	switch c {
	case template.CloudAWS:
		provider = auth.Azure
	case template.CloudAzure:
		provider = auth.AWS
	default:
		return fmt.Errorf("%w: %q", template.ErrUnknownCloud, c)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cloud == c {
		return nil
	}
	prev := m.cloud
	m.cloud = c
	m.prereqs = nil
	m.creds.Delete(auth.FieldsOf(provider)...)
	if m.tmpl != nil && m.tmpl.Cloud != c {
		m.clearTemplateLocked()
	}
	m.logger.V(1).Info("cloud selected", "cloud", string(c), "previous", string(prev))
	return nil
}

// Templates returns the catalog templates of the selected cloud.
func (m *Machine) Templates() []*template.Template {
	cloud := m.Cloud()
	if cloud == "" {
		return nil
	}
	return m.catalog.ForCloud(cloud)
}

// Template returns the selected template.
func (m *Machine) Template() *template.Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tmpl
}

// SelectTemplate selects a template of the current cloud and resets the
// form to its defaults. Reselecting the current template keeps the form.
func (m *Machine) SelectTemplate(name string) error {
	t, err := m.catalog.Get(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cloud == "" {
		return ErrNoCloud
	}
	if t.Cloud != m.cloud {
		return fmt.Errorf("%w: %s is for %s", ErrCloudMismatch, t.Name, t.Cloud)
	}
	if m.tmpl != nil && m.tmpl.Name == t.Name {
		return nil
	}

	m.tmpl = t
	m.engine = validation.New(t.Variables)
	m.values, m.toggles = m.engine.Defaults()
	m.tags = labels.NewTagBuilder(m.values.String(validation.FieldWorkspaceName)).Merge(m.tags).Build()
	delete(m.submitted, ScreenConfigure)
	return nil
}

func (m *Machine) clearTemplateLocked() {
	m.tmpl = nil
	m.engine = nil
	m.values = nil
	m.toggles = nil
	delete(m.submitted, ScreenConfigure)
}

// Values returns a copy of the form values.
func (m *Machine) Values() validation.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values.Clone()
}

// Toggles returns a copy of the toggle states.
func (m *Machine) Toggles() validation.Toggles {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(validation.Toggles, len(m.toggles))
	for k, v := range m.toggles {
		out[k] = v
	}
	return out
}

// SetValue sets a form value and synchronizes the fields that follow it.
// Changing the workspace name also updates the workspace tag while it
// still carries the previous name.
func (m *Machine) SetValue(name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return ErrNoTemplate
	}
	prev := m.values.String(validation.FieldWorkspaceName)
	m.engine.SetValue(m.values, name, value)
	if name == validation.FieldWorkspaceName {
		m.syncWorkspaceTagLocked(prev, m.values.String(name))
	}
	return nil
}

func (m *Machine) syncWorkspaceTagLocked(prev, cur string) {
	for i := range m.tags {
		if m.tags[i].Key != labels.KeyWorkspace {
			continue
		}
		if m.tags[i].Value == prev {
			m.tags[i].Value = cur
		}
		return
	}
	if cur != "" {
		m.tags = append(m.tags, labels.Tag{Key: labels.KeyWorkspace, Value: cur})
	}
}

// SetToggle sets a network toggle.
func (m *Machine) SetToggle(name string, t validation.Toggle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return ErrNoTemplate
	}
	if !slices.Contains(m.engine.Toggles(), name) {
		return fmt.Errorf("%w: %s", ErrUnknownToggle, name)
	}
	m.toggles[name] = t
	return nil
}

// Evaluate validates the form. It is side-effect free.
func (m *Machine) Evaluate() validation.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return validation.Result{}
	}
	return m.engine.Evaluate(m.values, m.toggles)
}

// Tags returns a copy of the tag list.
func (m *Machine) Tags() []labels.Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tags)
}

// AddTag appends a tag. Empty and duplicate keys are reported by the tags gate.
func (m *Machine) AddTag(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = append(m.tags, labels.Tag{Key: key, Value: value})
}

// SetTag replaces the tag at index i.
func (m *Machine) SetTag(i int, key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.tags) {
		return false
	}
	m.tags[i] = labels.Tag{Key: key, Value: value}
	return true
}

// RemoveTag removes the tag at index i.
func (m *Machine) RemoveTag(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.tags) {
		return false
	}
	m.tags = slices.Delete(m.tags, i, i+1)
	return true
}

// Credentials returns a copy of the credentials record.
func (m *Machine) Credentials() auth.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.Clone()
}

// SetCredential writes a credentials field entered on a form.
func (m *Machine) SetCredential(f auth.Field, v string) {
	m.setCredential(f, v)
}

// Written returns the paths or URLs the deployment was written to.
func (m *Machine) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.written)
}

// Deployment assembles the deployment from the current state. Only variables
// the template declares and the form shows are included.
func (m *Machine) Deployment() (*handoff.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tmpl == nil || m.engine == nil {
		return nil, ErrNoTemplate
	}
	t := m.tmpl
	res := m.engine.Evaluate(m.values, m.toggles)

	vars := map[string]any{}
	for name, v := range m.values {
		if res.IsHidden(name) || validation.IsEmpty(v) || !t.Declares(name) {
			continue
		}
		vars[name] = v
	}
	for name, tg := range m.toggles {
		vars[name] = tg.Enabled()
	}
	for name, v := range m.creds.Variables() {
		if t.Declares(name) {
			vars[name] = v
		}
	}

	var sensitive []string
	for _, v := range t.Variables {
		if v.Sensitive {
			sensitive = append(sensitive, v.Name)
		}
	}
	authRefs := map[string]string{}
	for _, f := range m.creds.Fields() {
		if f.Sensitive() {
			if t.Declares(string(f)) && !slices.Contains(sensitive, string(f)) {
				sensitive = append(sensitive, string(f))
			}
			continue
		}
		authRefs[string(f)] = m.creds.Get(f)
	}
	sort.Strings(sensitive)

	files, err := t.Files()
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", t.Name, err)
	}

	return &handoff.Deployment{
		APIVersion: handoff.APIVersion,
		Workspace:  m.values.String(validation.FieldWorkspaceName),
		Cloud:      string(t.Cloud),
		Template:   handoff.TemplateRef{Name: t.Name, Source: t.Source()},
		Tags:       slices.Clone(m.tags),
		Auth:       authRefs,
		Variables:  vars,
		CreatedAt:  m.now().UTC(),
		Sensitive:  sensitive,
		Files:      files,
	}, nil
}

func (m *Machine) publish(ctx context.Context) error {
	d, err := m.Deployment()
	if err != nil {
		return err
	}
	written, err := m.publisher.Write(ctx, d, m.target)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.written = written
	m.mu.Unlock()
	m.logger.Info("deployment written", "workspace", d.Workspace, "files", len(written))
	return nil
}
