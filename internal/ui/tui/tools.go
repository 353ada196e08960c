package tui

import (
	"fmt"
	"strings"

	"github.com/imamik/wsdeploy/internal/util/prerequisites"
)

// RenderTools renders a tool check as one line per tool and a verdict.
func RenderTools(results *prerequisites.CheckResults) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  Tools"))
	b.WriteString("\n")

	nameWidth := 0
	for _, r := range results.Results {
		nameWidth = max(nameWidth, len(r.Tool.Name))
	}

	for _, r := range results.Results {
		icon, style := statusIcon(r.Found, r.Tool.Required)
		line := fmt.Sprintf("  %s %-*s", style(icon), nameWidth, r.Tool.Name)
		switch {
		case r.Found && r.Version != "":
			line += "  " + dimStyle.Render(r.Version)
		case r.Found:
			line += "  " + dimStyle.Render(r.Path)
		default:
			line += "  " + dimStyle.Render("not found, see "+r.Tool.InstallURL)
		}
		if r.Tool.Description != "" {
			line += "  " + subtitleStyle.Render(r.Tool.Description)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if err := results.Error(); err != nil {
		b.WriteString(failedStyle.Render("  " + err.Error()))
	} else {
		b.WriteString(readyStyle.Render("  all required tools found"))
	}
	b.WriteString("\n")
	return b.String()
}
