package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/imamik/wsdeploy/internal/auth"
	azureauth "github.com/imamik/wsdeploy/internal/auth/azure"
	"github.com/imamik/wsdeploy/internal/util/async"
)

// discovered collects what Profiles found per provider.
type discovered struct {
	mu            sync.Mutex
	aws           []auth.Profile
	databricks    []auth.Profile
	azure         *azureauth.Account
	subscriptions []azureauth.Subscription
}

// Profiles lists the AWS and Databricks CLI profiles and the Azure CLI
// session. The providers are queried concurrently; a failing provider is
// reported and does not hide the others.
func Profiles(ctx context.Context, opts Options) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	b := s.bridges()
	var d discovered
	tasks := []async.Task{
		{Name: "aws", Func: func(ctx context.Context) error {
			profiles, err := b.AWS.ListProfiles(ctx)
			d.mu.Lock()
			d.aws = profiles
			d.mu.Unlock()
			return err
		}},
		{Name: "azure", Func: func(ctx context.Context) error {
			acct, err := b.Azure.Account(ctx)
			if err != nil {
				return err
			}
			subs, err := b.Azure.Subscriptions(ctx)
			d.mu.Lock()
			d.azure, d.subscriptions = acct, subs
			d.mu.Unlock()
			return err
		}},
		{Name: "databricks", Func: func(ctx context.Context) error {
			profiles, err := b.Databricks.ListProfiles(ctx)
			d.mu.Lock()
			d.databricks = profiles
			d.mu.Unlock()
			return err
		}},
	}

	runErr := async.RunParallel(ctx, tasks)
	if runErr != nil {
		s.logger.V(1).Info("profile discovery incomplete", "failed", async.Failed(runErr))
	}

	printProfiles("AWS profiles", d.aws)
	printAzure(d.azure, d.subscriptions)
	printProfiles("Databricks profiles", d.databricks)

	if failed := async.Failed(runErr); len(failed) > 0 {
		fmt.Printf("Could not query: %s\n", strings.Join(failed, ", "))
		fmt.Printf("  %v\n", runErr)
	}
	return nil
}

func printProfiles(title string, profiles []auth.Profile) {
	fmt.Println(title)
	fmt.Println(strings.Repeat("-", len(title)))
	if len(profiles) == 0 {
		fmt.Println("  (none)")
		fmt.Println()
		return
	}
	for _, p := range profiles {
		var details []string
		if p.AccountID != "" {
			details = append(details, "account "+p.AccountID)
		}
		if p.Region != "" {
			details = append(details, p.Region)
		}
		if p.SSO {
			details = append(details, "sso")
		}
		if p.Provider == auth.Databricks && !p.Authenticated() {
			details = append(details, "no credentials")
		}
		if len(details) > 0 {
			fmt.Printf("  %-20s %s\n", p.Name, strings.Join(details, ", "))
		} else {
			fmt.Printf("  %s\n", p.Name)
		}
	}
	fmt.Println()
}

func printAzure(acct *azureauth.Account, subs []azureauth.Subscription) {
	fmt.Println("Azure session")
	fmt.Println("-------------")
	if acct == nil {
		fmt.Println("  (not signed in, run 'az login')")
		fmt.Println()
		return
	}
	fmt.Printf("  %s (tenant %s)\n", acct.User, acct.TenantID)
	for _, sub := range subs {
		marker := " "
		if sub.IsDefault {
			marker = "*"
		}
		fmt.Printf("  %s %-20s %s\n", marker, sub.Name, sub.ID)
	}
	fmt.Println()
}
