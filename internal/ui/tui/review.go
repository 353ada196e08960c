package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/imamik/wsdeploy/internal/handoff"
)

// RenderReview renders the review screen for d with sensitive values redacted.
func RenderReview(d *handoff.Deployment) string {
	s := d.Summary()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Review " + s.Workspace))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("  %s  |  %s (%s)", s.Cloud, s.Template.Name, s.Template.Source)))
	b.WriteString("\n")

	writeSection(&b, "Authentication", s.Auth)

	vars := make(map[string]string, len(s.Variables))
	for k, v := range s.Variables {
		vars[k] = fmt.Sprint(v)
	}
	writeSection(&b, "Variables", vars)

	if len(s.Tags) > 0 {
		b.WriteString(sectionStyle.Render("  Tags"))
		b.WriteString("\n")
		for _, t := range s.Tags {
			fmt.Fprintf(&b, "    %s = %s\n", t.Key, t.Value)
		}
	}

	if len(d.Files) > 0 {
		b.WriteString(sectionStyle.Render("  Template files"))
		b.WriteString("\n")
		names := make([]string, 0, len(d.Files))
		for name := range d.Files {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			b.WriteString("    " + dimStyle.Render(name) + "\n")
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, title string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	b.WriteString(sectionStyle.Render("  " + title))
	b.WriteString("\n")

	keys := make([]string, 0, len(values))
	width := 0
	for k := range values {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := values[k]
		if v == handoff.Redacted {
			v = warningStyle.Render(v)
		}
		fmt.Fprintf(b, "    %-*s  %s\n", width, k, v)
	}
}
