package wizard

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/wsdeploy/internal/auth"
	"github.com/imamik/wsdeploy/internal/handoff"
	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/util/naming"
)

var _ = Describe("Machine", func() {
	var (
		ctx     context.Context
		catalog *template.Catalog
		f       *fixture
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		catalog, err = template.LoadCatalog("")
		Expect(err).NotTo(HaveOccurred())
		f = newFixture()
	})

	nextTo := func(m *Machine, s Screen) {
		for m.Screen() < s {
			Expect(m.Next(ctx)).To(Succeed(), "leaving %s", m.Screen())
		}
		Expect(m.Screen()).To(Equal(s))
	}

	Context("deploying to Azure with a new virtual network", func() {
		var (
			m      *Machine
			outDir string
		)

		BeforeEach(func() {
			outDir = GinkgoT().TempDir()
			m = New(catalog, Bridges{AWS: f.aws, Azure: f.azure, Databricks: f.databricks},
				WithPrerequisites(toolsFound),
				WithPublisher(handoff.NewWriter(), outDir),
			)
			DeferCleanup(m.Close)

			nextTo(m, ScreenCloud)
			Expect(m.SelectCloud(template.CloudAzure)).To(Succeed())
			nextTo(m, ScreenCloudCredentials)
		})

		It("selects the session's default subscription and derives the tenant", func() {
			creds := m.Credentials()
			Expect(creds.Get(auth.FieldAzureSubscriptionID)).To(Equal("sub-1"))
			Expect(creds.Get(auth.FieldAzureTenantID)).To(Equal("tenant-1"))
			Expect(m.Azure().ResourceGroups()).To(HaveLen(1))
		})

		It("requires the network fields and hides the existing network", func() {
			nextTo(m, ScreenDatabricksCredentials)
			Expect(m.Databricks().HandleProfileChange("acct")).To(BeTrue())
			nextTo(m, ScreenTemplate)
			Expect(m.SelectTemplate("azure-standard")).To(Succeed())
			nextTo(m, ScreenConfigure)

			res := m.Evaluate()
			Expect(res.Required).To(ContainElements("admin_user", "cidr", "subnet_public_cidr", "subnet_private_cidr"))
			Expect(res.Required).NotTo(ContainElement("vnet_name"))
			Expect(res.IsHidden("vnet_name")).To(BeTrue())
			Expect(res.Valid()).To(BeFalse())

			err := m.Next(ctx)
			Expect(err).To(MatchError(ErrGate))
			Expect(m.Submitted(ScreenConfigure)).To(BeTrue())

			Expect(m.SetValue("workspace_name", "analytics")).To(Succeed())
			Expect(m.SetValue("prefix", "ana")).To(Succeed())
			Expect(m.SetValue("admin_user", "alice@example.com")).To(Succeed())
			Expect(m.SetValue("resource_group_name", "rg-dev")).To(Succeed())
			Expect(m.Evaluate().Valid()).To(BeFalse(), "cidr is still empty")

			Expect(m.SetValue("cidr", "10.20.0.0/16")).To(Succeed())
			Expect(m.Evaluate().Valid()).To(BeTrue())
		})

		It("writes the deployment for terraform", func() {
			nextTo(m, ScreenDatabricksCredentials)
			Expect(m.Databricks().HandleProfileChange("acct")).To(BeTrue())
			nextTo(m, ScreenTemplate)
			Expect(m.SelectTemplate("azure-standard")).To(Succeed())
			for name, v := range map[string]any{
				"workspace_name":      "analytics",
				"prefix":              "ana",
				"admin_user":          "alice@example.com",
				"resource_group_name": "rg-dev",
				"cidr":                "10.20.0.0/16",
			} {
				Expect(m.SetValue(name, v)).To(Succeed())
			}
			m.AddTag("team", "data")
			nextTo(m, ScreenDone)

			dir := naming.DeploymentDir(outDir, "analytics")
			Expect(m.Written()).To(ContainElements(
				filepath.Join(dir, naming.DeploymentFile),
				filepath.Join(dir, naming.TfvarsFile),
				filepath.Join(dir, "variables.tf"),
			))

			tfvars, err := os.ReadFile(filepath.Join(dir, naming.TfvarsFile))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(tfvars)).To(ContainSubstring(`"subscription_id": "sub-1"`))
			Expect(string(tfvars)).To(ContainSubstring(`"subnet_private_cidr": "10.20.64.0/18"`))
			Expect(string(tfvars)).To(ContainSubstring(`"team": "data"`))
			Expect(string(tfvars)).NotTo(ContainSubstring("vnet_resource_group_name"))

			summary, err := os.ReadFile(filepath.Join(dir, naming.DeploymentFile))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(summary)).To(ContainSubstring("apiVersion: " + handoff.APIVersion))
			Expect(string(summary)).To(ContainSubstring("builtin:azure-standard"))
		})
	})

	Context("when the permission probe cannot run", func() {
		probeFailure := errors.New("dial tcp: lookup iam.amazonaws.com: no such host")

		reachCredentials := func(m *Machine) {
			nextTo(m, ScreenCloud)
			Expect(m.SelectCloud(template.CloudAWS)).To(Succeed())
			nextTo(m, ScreenCloudCredentials)
			m.AWS().SelectProfile("dev")
			Expect(m.AWS().CheckIdentity(ctx, "dev")).NotTo(BeNil())
		}

		It("passes with a warning by default", func() {
			f.aws.checkErr = probeFailure
			m := f.machine(catalog)
			reachCredentials(m)

			Expect(m.Next(ctx)).To(Succeed())
			Expect(m.Screen()).To(Equal(ScreenDatabricksCredentials))

			check := m.AWS().Permissions()
			Expect(check).NotTo(BeNil())
			Expect(check.HasAllPermissions).To(BeTrue())
			Expect(check.IsWarning).To(BeTrue())
			Expect(check.Message).NotTo(BeEmpty())
		})

		It("blocks when permissions are strict", func() {
			f.aws.checkErr = probeFailure
			m := f.machine(catalog, WithAuthOptions(auth.WithPolicy(auth.FailClosed)))
			reachCredentials(m)

			err := m.Next(ctx)
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
			Expect(err.Error()).To(ContainSubstring("no such host"))
			Expect(m.Screen()).To(Equal(ScreenCloudCredentials))
		})
	})

	Context("going back to a credentials screen", func() {
		It("reloads profiles instead of reusing the previous snapshot", func() {
			m := f.machine(catalog)
			nextTo(m, ScreenCloud)
			Expect(m.SelectCloud(template.CloudAWS)).To(Succeed())
			nextTo(m, ScreenCloudCredentials)
			Expect(m.AWS().Profiles()).To(HaveLen(1))

			f.aws.mu.Lock()
			f.aws.profiles = append(f.aws.profiles, auth.Profile{Name: "prod", Provider: auth.AWS})
			f.aws.mu.Unlock()

			Expect(m.GoBack()).To(BeTrue())
			nextTo(m, ScreenCloudCredentials)
			Expect(auth.ProfileNames(m.AWS().Profiles())).To(ConsistOf("dev", "prod"))
		})
	})
})
