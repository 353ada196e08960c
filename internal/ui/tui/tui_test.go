package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/wsdeploy/internal/handoff"
	wstesting "github.com/imamik/wsdeploy/internal/testing"
	"github.com/imamik/wsdeploy/internal/util/prerequisites"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3661 * time.Second, "1h1m"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRemaining(t *testing.T) {
	if got := remaining(10*time.Second, time.Minute); got != 50*time.Second {
		t.Errorf("remaining = %v, want 50s", got)
	}
	if got := remaining(2*time.Minute, time.Minute); got != 0 {
		t.Errorf("remaining past budget = %v, want 0", got)
	}
}

func TestCurrentSpinner(t *testing.T) {
	if currentSpinner(0) != spinnerFrames[0] {
		t.Error("frame 0 should be the first spinner frame")
	}
	if currentSpinner(len(spinnerFrames)) != spinnerFrames[0] {
		t.Error("spinner should wrap around")
	}
	if currentSpinner(-1) != spinnerFrames[1] {
		t.Error("negative frames should not panic")
	}
}

func TestUpdate_Tick(t *testing.T) {
	m := NewWaitModel("AWS SSO login", "", time.Minute)
	next, cmd := m.Update(TickMsg{})
	if next.(Model).SpinnerFrame != 1 {
		t.Error("tick should advance the spinner")
	}
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
}

func TestUpdate_Outcomes(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		msg  tea.Msg
		want error
	}{
		{"done", DoneMsg{}, nil},
		{"error", ErrMsg{Err: boom}, boom},
		{"quit", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, ErrCanceled},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, ErrCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWaitModel("login", "", time.Minute)
			next, cmd := m.Update(tt.msg)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if got := next.(Model).Result(); !errors.Is(got, tt.want) {
				t.Errorf("Result() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdate_WindowSize(t *testing.T) {
	m := NewWaitModel("login", "", 0)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if next.(Model).Width != 60 {
		t.Error("window size should be recorded")
	}
}

func TestRenderWait(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewWaitModel("AWS SSO login for dev", "Complete the login in your browser.", time.Minute)
	m.StartTime = start
	m.now = func() time.Time { return start.Add(15 * time.Second) }

	out := m.View()
	for _, want := range []string{"AWS SSO login for dev", "Complete the login in your browser.", "45s left", "elapsed: 15s", "q: cancel"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}

	m.Done = true
	if !strings.Contains(m.View(), "completed") {
		t.Error("done view should say completed")
	}
}

func TestRenderWait_NoBudget(t *testing.T) {
	m := NewWaitModel("login", "", 0)
	if strings.Contains(m.View(), "left") {
		t.Error("no budget should render no progress bar")
	}
}

func TestRenderTools(t *testing.T) {
	results := &prerequisites.CheckResults{
		Results: []prerequisites.CheckResult{
			{Tool: prerequisites.Tool{Name: "terraform", Required: true}, Found: true, Path: "/usr/bin/terraform", Version: "Terraform v1.9.0"},
			{Tool: prerequisites.Tool{Name: "databricks", Required: true, InstallURL: "https://docs.databricks.com/dev-tools/cli/install.html"}},
		},
		Missing: []prerequisites.Tool{{Name: "databricks", Required: true, InstallURL: "https://docs.databricks.com/dev-tools/cli/install.html"}},
	}

	out := RenderTools(results)
	if !strings.Contains(out, checkMark) || !strings.Contains(out, "Terraform v1.9.0") {
		t.Errorf("found tool not rendered:\n%s", out)
	}
	if !strings.Contains(out, crossMark) || !strings.Contains(out, "not found, see https://docs.databricks.com") {
		t.Errorf("missing tool not rendered:\n%s", out)
	}
	if strings.Contains(out, "all required tools found") {
		t.Error("missing tool must not report success")
	}
}

func TestRenderReview(t *testing.T) {
	d := wstesting.NewDeploymentBuilder().
		WithVariable("region", "eu-west-1").
		WithSecret("client_secret", "s3cret").
		WithTag("team", "data").
		WithFile("main.tf", nil).
		Build()

	out := RenderReview(d)
	for _, want := range []string{"Review analytics", "aws-standard", "aws_profile", "eu-west-1", handoff.Redacted, "team = data", "main.tf"} {
		if !strings.Contains(out, want) {
			t.Errorf("review missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "s3cret") {
		t.Error("review must redact sensitive values")
	}
}
