package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/imamik/wsdeploy/internal/auth"
	awsauth "github.com/imamik/wsdeploy/internal/auth/aws"
	azureauth "github.com/imamik/wsdeploy/internal/auth/azure"
	dbauth "github.com/imamik/wsdeploy/internal/auth/databricks"
	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/ui/tui"
	"github.com/imamik/wsdeploy/internal/util/labels"
	"github.com/imamik/wsdeploy/internal/util/naming"
	"github.com/imamik/wsdeploy/internal/validation"
	"github.com/imamik/wsdeploy/internal/wizard"
)

// runWait shows the wait screen of a browser login - can be replaced in tests.
var runWait = tui.RunWait

// formUI renders the wizard screens as huh forms and applies the answers
// to the machine.
type formUI struct {
	m      *wizard.Machine
	screen wizard.Screen
	// budget is how long a login poll runs before it times out.
	budget time.Duration
}

func (ui *formUI) run(ctx context.Context) (step, error) {
	switch ui.screen {
	case wizard.ScreenWelcome:
		return ui.welcome(ctx)
	case wizard.ScreenCloud:
		return ui.cloud(ctx)
	case wizard.ScreenPrerequisites:
		return ui.prerequisites(ctx)
	case wizard.ScreenCloudCredentials:
		if ui.m.Cloud() == template.CloudAzure {
			return ui.azureCredentials(ctx)
		}
		return ui.awsCredentials(ctx)
	case wizard.ScreenDatabricksCredentials:
		return ui.databricksCredentials(ctx)
	case wizard.ScreenTemplate:
		return ui.template(ctx)
	case wizard.ScreenConfigure:
		return ui.configure(ctx)
	case wizard.ScreenTags:
		return ui.tags(ctx)
	case wizard.ScreenReview:
		return ui.review(ctx)
	}
	return stepNext, nil
}

func runForm(ctx context.Context, groups ...*huh.Group) error {
	return huh.NewForm(groups...).RunWithContext(ctx)
}

// navigate asks whether to continue or go back.
func navigate(ctx context.Context, affirmative string) (step, error) {
	next := true
	err := runForm(ctx, huh.NewGroup(
		huh.NewConfirm().
			Title("Continue?").
			Affirmative(affirmative).
			Negative("Back").
			Value(&next),
	))
	if err != nil {
		return stepNext, err
	}
	if next {
		return stepNext, nil
	}
	return stepBack, nil
}

func printOrchestratorError(o auth.Orchestrator) {
	if msg := o.Err(); msg != "" {
		fmt.Printf("  ! %s\n\n", msg)
	}
}

// wait shows the wait screen until the login delivers its outcome.
func (ui *formUI) wait(ctx context.Context, title, hint string, done <-chan error) {
	err := runWait(ctx, tui.NewWaitModel(title, hint, ui.budget), done)
	switch {
	case err == nil:
		fmt.Println("  Login complete.")
	case errors.Is(err, tui.ErrCanceled):
		fmt.Println("  Stopped waiting. A login finished later is still picked up.")
	default:
		fmt.Printf("  Login failed: %v\n", err)
	}
	fmt.Println()
}

func (ui *formUI) welcome(ctx context.Context) (step, error) {
	err := runForm(ctx, huh.NewGroup(
		huh.NewNote().
			Title("Welcome").
			Description("You will need access to an AWS account or an Azure subscription\n" +
				"and to the Databricks account console."),
	))
	return stepNext, err
}

func (ui *formUI) cloud(ctx context.Context) (step, error) {
	cloud := ui.m.Cloud()
	if cloud == "" {
		cloud = template.CloudAWS
	}
	next := true
	err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[template.Cloud]().
			Title("Cloud").
			Description("Where the workspace and its network run").
			Options(
				huh.NewOption("Amazon Web Services", template.CloudAWS),
				huh.NewOption("Microsoft Azure", template.CloudAzure),
			).
			Value(&cloud),
		huh.NewConfirm().
			Title("Continue?").
			Affirmative("Next").
			Negative("Back").
			Value(&next),
	))
	if err != nil {
		return stepNext, err
	}
	if !next {
		return stepBack, nil
	}
	return stepNext, ui.m.SelectCloud(cloud)
}

func (ui *formUI) prerequisites(ctx context.Context) (step, error) {
	if res := ui.m.Prerequisites(); res != nil {
		fmt.Print(tui.RenderTools(res))
		fmt.Println()
	}
	return navigate(ctx, "Next")
}

func (ui *formUI) awsCredentials(ctx context.Context) (step, error) {
	o := ui.m.AWS()
	printOrchestratorError(o)

	profiles := o.Profiles()
	mode := o.Mode()
	if len(profiles) > 0 {
		err := runForm(ctx, huh.NewGroup(
			huh.NewSelect[awsauth.AuthMode]().
				Title("AWS credentials").
				Options(
					huh.NewOption("CLI profile", awsauth.ModeProfile),
					huh.NewOption("Access keys", awsauth.ModeKeys),
				).
				Value(&mode),
		))
		if err != nil {
			return stepNext, err
		}
		if mode != o.Mode() {
			o.SetMode(mode)
		}
	}

	if mode == awsauth.ModeProfile {
		if err := ui.awsProfile(ctx, o, profiles); err != nil {
			return stepNext, err
		}
	} else if err := ui.awsKeys(ctx); err != nil {
		return stepNext, err
	}
	return navigate(ctx, "Next")
}

func (ui *formUI) awsProfile(ctx context.Context, o *awsauth.Orchestrator, profiles []auth.Profile) error {
	name := o.Profile()
	if name == "" {
		name = profiles[0].Name
	}
	options := make([]huh.Option[string], 0, len(profiles))
	for _, p := range profiles {
		label := p.Name
		if p.SSO {
			label += " (SSO)"
		}
		if p.Region != "" {
			label += " - " + p.Region
		}
		options = append(options, huh.NewOption(label, p.Name))
	}
	if err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[string]().
			Title("AWS profile").
			Options(options...).
			Value(&name),
	)); err != nil {
		return err
	}

	o.SelectProfile(name)
	if id := o.CheckIdentity(ctx, name); id != nil {
		fmt.Printf("  Signed in as %s (account %s)\n\n", id.Principal, id.AccountID)
		return nil
	}

	p, _ := auth.FindProfile(profiles, name)
	if !p.SSO {
		printOrchestratorError(o)
		return nil
	}
	login := true
	if err := runForm(ctx, huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Profile %s has no valid session. Sign in with AWS SSO?", name)).
			Value(&login),
	)); err != nil {
		return err
	}
	if login {
		done := o.HandleSSOLogin(ctx, name)
		ui.wait(ctx, "AWS SSO login for "+name, "Complete the login in your browser.", done)
	}
	return nil
}

func (ui *formUI) awsKeys(ctx context.Context) error {
	creds := ui.m.Credentials()
	keyID := creds.Get(auth.FieldAWSAccessKeyID)
	secret := creds.Get(auth.FieldAWSSecretAccessKey)
	token := creds.Get(auth.FieldAWSSessionToken)

	if err := runForm(ctx, huh.NewGroup(
		huh.NewInput().
			Title("Access key ID").
			Value(&keyID),
		huh.NewInput().
			Title("Secret access key").
			EchoMode(huh.EchoModePassword).
			Value(&secret),
		huh.NewInput().
			Title("Session token (optional)").
			EchoMode(huh.EchoModePassword).
			Value(&token),
	)); err != nil {
		return err
	}

	ui.m.SetCredential(auth.FieldAWSAccessKeyID, strings.TrimSpace(keyID))
	ui.m.SetCredential(auth.FieldAWSSecretAccessKey, strings.TrimSpace(secret))
	ui.m.SetCredential(auth.FieldAWSSessionToken, strings.TrimSpace(token))
	return nil
}

func (ui *formUI) azureCredentials(ctx context.Context) (step, error) {
	o := ui.m.Azure()
	printOrchestratorError(o)

	mode := o.Mode()
	if err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[azureauth.AuthMode]().
			Title("Azure credentials").
			Options(
				huh.NewOption("Azure CLI session", azureauth.ModeCLI),
				huh.NewOption("Service principal", azureauth.ModeServicePrincipal),
			).
			Value(&mode),
	)); err != nil {
		return stepNext, err
	}
	if mode != o.Mode() {
		o.SetMode(mode)
	}

	var err error
	if mode == azureauth.ModeServicePrincipal {
		err = ui.azureServicePrincipal(ctx, o)
	} else {
		err = ui.azureSession(ctx, o)
	}
	if err != nil {
		return stepNext, err
	}
	return navigate(ctx, "Next")
}

func (ui *formUI) azureSession(ctx context.Context, o *azureauth.Orchestrator) error {
	if o.Account() == nil {
		login := true
		if err := runForm(ctx, huh.NewGroup(
			huh.NewConfirm().
				Title("No Azure CLI session found. Run 'az login' now?").
				Value(&login),
		)); err != nil {
			return err
		}
		if !login {
			return nil
		}
		fmt.Println("  Waiting for 'az login' to finish in your browser...")
		if err := o.HandleLogin(ctx, ui.m.Credentials()); err != nil {
			printOrchestratorError(o)
			return nil
		}
	}

	acct := o.Account()
	subs := o.Subscriptions()
	if acct == nil || len(subs) == 0 {
		return nil
	}
	fmt.Printf("  Signed in as %s\n\n", acct.User)

	selected := ui.m.Credentials().Get(auth.FieldAzureSubscriptionID)
	if selected == "" {
		selected = acct.SubscriptionID
	}
	options := make([]huh.Option[string], 0, len(subs))
	for _, s := range subs {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", s.Name, s.ID), s.ID))
	}
	if err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Subscription").
			Options(options...).
			Value(&selected),
	)); err != nil {
		return err
	}
	o.HandleSubscriptionChange(ctx, selected, subs, ui.m.Credentials())
	return nil
}

func (ui *formUI) azureServicePrincipal(ctx context.Context, o *azureauth.Orchestrator) error {
	creds := ui.m.Credentials()
	tenant := creds.Get(auth.FieldAzureTenantID)
	subscription := creds.Get(auth.FieldAzureSubscriptionID)
	clientID := creds.Get(auth.FieldAzureClientID)
	secret := creds.Get(auth.FieldAzureClientSecret)

	if err := runForm(ctx, huh.NewGroup(
		huh.NewInput().Title("Tenant ID").Value(&tenant),
		huh.NewInput().Title("Subscription ID").Value(&subscription),
		huh.NewInput().Title("Client ID").Value(&clientID),
		huh.NewInput().Title("Client secret").EchoMode(huh.EchoModePassword).Value(&secret),
	)); err != nil {
		return err
	}

	ui.m.SetCredential(auth.FieldAzureTenantID, strings.TrimSpace(tenant))
	ui.m.SetCredential(auth.FieldAzureSubscriptionID, strings.TrimSpace(subscription))
	ui.m.SetCredential(auth.FieldAzureClientID, strings.TrimSpace(clientID))
	ui.m.SetCredential(auth.FieldAzureClientSecret, strings.TrimSpace(secret))

	if sub := strings.TrimSpace(subscription); sub != "" {
		o.LoadResourceGroups(ctx, sub, ui.m.Credentials())
	}
	return nil
}

// Databricks credential actions.
const (
	dbExisting    = "existing"
	dbOAuth       = "oauth"
	dbAddProfile  = "add-profile"
	dbCredentials = "credentials"
)

func (ui *formUI) databricksCredentials(ctx context.Context) (step, error) {
	o := ui.m.Databricks()
	printOrchestratorError(o)

	profiles := o.Profiles()
	var options []huh.Option[string]
	action := dbOAuth
	if len(profiles) > 0 {
		options = append(options, huh.NewOption("Use an existing CLI profile", dbExisting))
		action = dbExisting
	}
	options = append(options,
		huh.NewOption("Sign in with the browser (creates a profile)", dbOAuth),
		huh.NewOption("Save a service principal as a profile", dbAddProfile),
		huh.NewOption("Enter service principal credentials", dbCredentials),
	)
	if o.Mode() == dbauth.ModeCredentials {
		action = dbCredentials
	}

	if err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Databricks account").
			Options(options...).
			Value(&action),
	)); err != nil {
		return stepNext, err
	}

	var err error
	switch action {
	case dbExisting:
		err = ui.databricksProfile(ctx, o, profiles)
	case dbOAuth:
		err = ui.databricksOAuth(ctx, o)
	case dbAddProfile:
		err = ui.databricksAddProfile(ctx, o)
	case dbCredentials:
		err = ui.databricksServicePrincipal(ctx, o)
	}
	if err != nil {
		return stepNext, err
	}
	return navigate(ctx, "Next")
}

func (ui *formUI) databricksProfile(ctx context.Context, o *dbauth.Orchestrator, profiles []auth.Profile) error {
	name := o.Selected()
	if name == "" {
		name = profiles[0].Name
	}
	options := make([]huh.Option[string], 0, len(profiles))
	for _, p := range profiles {
		label := p.Name
		if p.AccountID != "" {
			label += " - account " + p.AccountID
		}
		if !p.Authenticated() {
			label += " (no credentials)"
		}
		options = append(options, huh.NewOption(label, p.Name))
	}
	if err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Databricks profile").
			Options(options...).
			Value(&name),
	)); err != nil {
		return err
	}
	o.HandleProfileChange(name)
	return nil
}

func (ui *formUI) databricksOAuth(ctx context.Context, o *dbauth.Orchestrator) error {
	o.OpenLoginForm()
	accountID := ui.m.Credentials().Get(auth.FieldDatabricksAccountID)
	if err := runForm(ctx, huh.NewGroup(
		huh.NewInput().
			Title("Databricks account ID").
			Description("Shown in the account console under your user menu").
			Value(&accountID).
			Validate(required("account ID")),
	)); err != nil {
		return err
	}

	accountID = strings.TrimSpace(accountID)
	done := o.HandleOAuthLogin(ctx, accountID, nil)
	ui.wait(ctx, "Databricks login for account "+accountID, "Complete the login in your browser.", done)
	return nil
}

func (ui *formUI) databricksAddProfile(ctx context.Context, o *dbauth.Orchestrator) error {
	o.OpenAddProfileForm()
	name := naming.ServicePrincipalProfile("wsdeploy")
	sp := dbauth.ServicePrincipal{AccountID: ui.m.Credentials().Get(auth.FieldDatabricksAccountID)}
	if err := runForm(ctx, huh.NewGroup(
		huh.NewInput().Title("Profile name").Value(&name).Validate(required("profile name")),
		huh.NewInput().Title("Databricks account ID").Value(&sp.AccountID).Validate(required("account ID")),
		huh.NewInput().Title("Client ID").Value(&sp.ClientID).Validate(required("client ID")),
		huh.NewInput().Title("Client secret").EchoMode(huh.EchoModePassword).Value(&sp.ClientSecret).Validate(required("client secret")),
	)); err != nil {
		return err
	}
	if err := o.HandleAddSPProfile(ctx, strings.TrimSpace(name), sp); err != nil {
		printOrchestratorError(o)
	}
	return nil
}

func (ui *formUI) databricksServicePrincipal(ctx context.Context, o *dbauth.Orchestrator) error {
	if o.Mode() != dbauth.ModeCredentials {
		o.SetMode(dbauth.ModeCredentials)
	}
	creds := ui.m.Credentials()
	accountID := creds.Get(auth.FieldDatabricksAccountID)
	clientID := creds.Get(auth.FieldDatabricksClientID)
	secret := creds.Get(auth.FieldDatabricksClientSecret)
	if err := runForm(ctx, huh.NewGroup(
		huh.NewInput().Title("Databricks account ID").Value(&accountID),
		huh.NewInput().Title("Client ID").Value(&clientID),
		huh.NewInput().Title("Client secret").EchoMode(huh.EchoModePassword).Value(&secret),
	)); err != nil {
		return err
	}
	ui.m.SetCredential(auth.FieldDatabricksAccountID, strings.TrimSpace(accountID))
	ui.m.SetCredential(auth.FieldDatabricksClientID, strings.TrimSpace(clientID))
	ui.m.SetCredential(auth.FieldDatabricksClientSecret, strings.TrimSpace(secret))
	return nil
}

func (ui *formUI) template(ctx context.Context) (step, error) {
	templates := ui.m.Templates()
	if len(templates) == 0 {
		fmt.Printf("  No templates for %s. Add one below templates_dir in the settings.\n\n", ui.m.Cloud())
		return navigate(ctx, "Next")
	}

	name := templates[0].Name
	if t := ui.m.Template(); t != nil {
		name = t.Name
	}
	options := make([]huh.Option[string], 0, len(templates))
	for _, t := range templates {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", t.Name, t.Source()), t.Name))
	}
	next := true
	if err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Template").
			Description("The Terraform configuration the workspace is deployed with").
			Options(options...).
			Value(&name),
		huh.NewConfirm().
			Title("Continue?").
			Affirmative("Next").
			Negative("Back").
			Value(&next),
	)); err != nil {
		return stepNext, err
	}
	if !next {
		return stepBack, nil
	}
	return stepNext, ui.m.SelectTemplate(name)
}

// fieldInput is the text form of one variable.
type fieldInput struct {
	v       template.Variable
	initial string
	text    string
}

func (ui *formUI) configure(ctx context.Context) (step, error) {
	t := ui.m.Template()
	if t == nil {
		return navigate(ctx, "Next")
	}

	if err := ui.configureToggles(ctx, t); err != nil {
		return stepNext, err
	}

	res := ui.m.Evaluate()
	values := ui.m.Values()
	var inputs []*fieldInput
	var fields []huh.Field
	for _, name := range res.Visible {
		v, ok := t.Lookup(name)
		if !ok || name == validation.TagsField || v.Kind == template.KindMap {
			continue
		}
		in := &fieldInput{v: v, initial: formatValue(values[name])}
		in.text = in.initial
		inputs = append(inputs, in)

		title := name
		if res.IsRequired(name) {
			title += " *"
		}
		input := huh.NewInput().
			Title(title).
			Description(v.Description).
			Value(&in.text).
			Validate(in.validate)
		if v.Sensitive {
			input = input.EchoMode(huh.EchoModePassword)
		}
		if name == validation.FieldResourceGroupName || name == validation.FieldVNetResourceGroupName {
			input = input.Suggestions(ui.resourceGroupNames())
		}
		fields = append(fields, input)
	}
	if len(fields) > 0 {
		if err := runForm(ctx, huh.NewGroup(fields...).Title(t.Name)); err != nil {
			return stepNext, err
		}
	}

	// Unchanged fields are skipped so values derived while earlier fields
	// were applied survive.
	for _, in := range inputs {
		if in.text == in.initial {
			continue
		}
		value, err := parseValue(in.v.Kind, in.text)
		if err != nil {
			return stepNext, err
		}
		if err := ui.m.SetValue(in.v.Name, value); err != nil {
			return stepNext, err
		}
	}

	if res := ui.m.Evaluate(); !res.Valid() {
		fmt.Printf("  %v\n\n", res.Err())
	}
	return navigate(ctx, "Next")
}

func (ui *formUI) configureToggles(ctx context.Context, t *template.Template) error {
	current := ui.m.Toggles()
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	slices.Sort(names)
	if len(names) == 0 {
		return nil
	}

	enabled := make([]bool, len(names))
	fields := make([]huh.Field, len(names))
	for i, name := range names {
		enabled[i] = current[name].Enabled()
		title := name
		if v, ok := t.Lookup(name); ok && v.Description != "" {
			title = v.Description
		}
		fields[i] = huh.NewConfirm().Title(title).Value(&enabled[i])
	}
	if err := runForm(ctx, huh.NewGroup(fields...)); err != nil {
		return err
	}
	for i, name := range names {
		state := validation.Off
		if enabled[i] {
			state = validation.On
		}
		if err := ui.m.SetToggle(name, state); err != nil {
			return err
		}
	}
	return nil
}

func (ui *formUI) resourceGroupNames() []string {
	if ui.m.Cloud() != template.CloudAzure {
		return nil
	}
	groups := ui.m.Azure().ResourceGroups()
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}

func (in *fieldInput) validate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := parseValue(in.v.Kind, s); err != nil {
		return err
	}
	if slices.Contains(validation.NameFields, in.v.Name) {
		return validation.ValidateName(s)
	}
	if strings.HasSuffix(in.v.Name, "cidr") {
		return validation.ValidateCIDR(s)
	}
	return nil
}

// Tag screen actions.
const (
	tagsContinue = "continue"
	tagsAdd      = "add"
	tagsEdit     = "edit"
	tagsRemove   = "remove"
	tagsBack     = "back"
)

func (ui *formUI) tags(ctx context.Context) (step, error) {
	for {
		tags := ui.m.Tags()
		fmt.Println("  Tags")
		for _, t := range tags {
			fmt.Printf("    %s = %s\n", t.Key, t.Value)
		}
		fmt.Println()

		action := tagsContinue
		options := []huh.Option[string]{
			huh.NewOption("Continue", tagsContinue),
			huh.NewOption("Add a tag", tagsAdd),
		}
		if len(tags) > 0 {
			options = append(options,
				huh.NewOption("Edit a tag", tagsEdit),
				huh.NewOption("Remove a tag", tagsRemove),
			)
		}
		options = append(options, huh.NewOption("Back", tagsBack))
		if err := runForm(ctx, huh.NewGroup(
			huh.NewSelect[string]().Title("Tags").Options(options...).Value(&action),
		)); err != nil {
			return stepNext, err
		}

		switch action {
		case tagsContinue:
			return stepNext, nil
		case tagsBack:
			return stepBack, nil
		case tagsAdd:
			var key, value string
			if err := runForm(ctx, huh.NewGroup(
				huh.NewInput().Title("Key").Value(&key).Validate(required("key")),
				huh.NewInput().Title("Value").Value(&value),
			)); err != nil {
				return stepNext, err
			}
			ui.m.AddTag(strings.TrimSpace(key), strings.TrimSpace(value))
		case tagsEdit, tagsRemove:
			i, err := pickTag(ctx, tags)
			if err != nil {
				return stepNext, err
			}
			if action == tagsRemove {
				ui.m.RemoveTag(i)
				continue
			}
			key, value := tags[i].Key, tags[i].Value
			if err := runForm(ctx, huh.NewGroup(
				huh.NewInput().Title("Key").Value(&key).Validate(required("key")),
				huh.NewInput().Title("Value").Value(&value),
			)); err != nil {
				return stepNext, err
			}
			ui.m.SetTag(i, strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}
}

func (ui *formUI) review(ctx context.Context) (step, error) {
	d, err := ui.m.Deployment()
	if err != nil {
		fmt.Printf("  %v\n\n", err)
		return navigate(ctx, "Next")
	}
	fmt.Print(tui.RenderReview(d))
	fmt.Println()
	return navigate(ctx, "Write deployment")
}

func pickTag(ctx context.Context, tags []labels.Tag) (int, error) {
	i := 0
	options := make([]huh.Option[int], len(tags))
	for j, t := range tags {
		options[j] = huh.NewOption(fmt.Sprintf("%s = %s", t.Key, t.Value), j)
	}
	err := runForm(ctx, huh.NewGroup(
		huh.NewSelect[int]().Title("Tag").Options(options...).Value(&i),
	))
	return i, err
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

// formatValue renders a form value as input text.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// parseValue converts input text to a value of kind. Blank text is nil.
func parseValue(kind template.Kind, text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	switch kind {
	case template.KindNumber:
		if n, err := strconv.Atoi(text); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", text)
		}
		return f, nil
	case template.KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%q is not true or false", text)
		}
		return b, nil
	case template.KindList:
		var items []string
		for _, item := range strings.Split(text, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	}
	return text, nil
}
