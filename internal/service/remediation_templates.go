package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

// DefaultFixTemplates returns the section scaffolds spliced in by template fixes.
// Templates are text/template sources executed against fixTemplateData.
func DefaultFixTemplates() map[models.RemediationFixType]string {
	return map[models.RemediationFixType]string{
		models.AddMissingSection:     "## {{.Section}}\n\nAdd the {{.SectionLower}} for {{.Title}} here.",
		models.AddHeadings:           "# {{.Title}}",
		models.AddLearningObjectives: "## Learning Objectives\n\nBy the end of this lesson, learners will be able to:\n- Explain the key ideas of {{.Title}}\n- Apply them to a new situation",
		models.AlignObjectives:       "## Objective Alignment\n\n- Each learning objective is practised in at least one activity\n- Each learning objective is checked in the assessment",
		models.ExpandContent:         "## Further Explanation\n\nExpand on the key ideas of {{.Title}} with additional detail.",
		models.AddExamples:           "## Example\n\nFor example, consider how {{.Title}} applies in a familiar situation.",
		models.AddMissingTopics:      "## Related Topics\n\n- Prerequisite concepts\n- Common misconceptions\n- Extension ideas",
	}
}

// sectionPlacement overrides the default end placement for sections that belong up front.
var sectionPlacement = map[string]placement{
	"title":               placeTop,
	"overview":            placeAfterTitle,
	"learning objectives": placeAfterTitle,
	"objectives":          placeAfterTitle,
}

type fixTemplateData struct {
	Title        string
	Section      string
	SectionLower string
}

// parseFixTemplates compiles every non-blank source. Sources that fail to parse are left
// out of the result and reported together.
func parseFixTemplates(sources map[models.RemediationFixType]string) (map[models.RemediationFixType]*template.Template, error) {
	parsed := make(map[models.RemediationFixType]*template.Template, len(sources))
	var errs []error
	for fixType, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		tmpl, err := template.New(string(fixType)).Option("missingkey=error").Parse(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s template: %w", fixType, err))
			continue
		}
		parsed[fixType] = tmpl
	}
	return parsed, errors.Join(errs...)
}

// renderTemplateFix splices the fix's template into content. ok is false when the fix
// has nothing to add; a missing or broken template is a configuration error.
func renderTemplateFix(templates map[models.RemediationFixType]*template.Template, content models.GeneratedContent, issue models.ValidationIssue, fixType models.RemediationFixType, entry fixSpec) (string, bool, error) {
	tmpl, found := templates[fixType]
	if !found {
		return "", false, appErrors.Clone(appErrors.ErrMissingTemplate, fmt.Sprintf("no usable template configured for %s", fixType))
	}

	title := strings.TrimSpace(content.Title)
	if title == "" {
		title = "this topic"
	}
	place := entry.place
	section := ""
	switch fixType {
	case models.AddMissingSection:
		name, ok := missingSectionName(issue)
		if !ok || containsFold(content.Content, name) {
			return "", false, nil
		}
		section = name
		if p, ok := sectionPlacement[name]; ok {
			place = p
		}
	case models.AddHeadings:
		if len(headings(content.Content)) > 0 {
			return "", false, nil
		}
	}

	var buf bytes.Buffer
	data := fixTemplateData{Title: title, Section: titleCase(section), SectionLower: section}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", false, appErrors.Wrap(err, appErrors.ErrMissingTemplate.Code, appErrors.ErrMissingTemplate.Status, fmt.Sprintf("template for %s failed to render", fixType))
	}
	block := strings.TrimSpace(buf.String())
	if block == "" {
		return "", false, appErrors.Clone(appErrors.ErrMissingTemplate, fmt.Sprintf("template for %s rendered nothing", fixType))
	}

	firstLine := strings.TrimSpace(strings.SplitN(block, "\n", 2)[0])
	if fixType != models.AddMissingSection && firstLine != "" && containsFold(content.Content, firstLine) {
		return "", false, nil
	}
	return insertBlock(content.Content, block, place), true, nil
}

// insertBlock places block at the end of the last section, at the top, or right after a
// leading title heading.
func insertBlock(text, block string, place placement) string {
	trimmed := strings.Trim(text, "\n")
	if trimmed == "" {
		return block + "\n"
	}
	switch place {
	case placeTop:
		return block + "\n\n" + trimmed + "\n"
	case placeAfterTitle:
		lines := strings.SplitN(trimmed, "\n", 2)
		if !isHeadingLine(lines[0]) {
			return block + "\n\n" + trimmed + "\n"
		}
		rest := ""
		if len(lines) > 1 {
			rest = strings.TrimLeft(lines[1], "\n")
		}
		if rest == "" {
			return lines[0] + "\n\n" + block + "\n"
		}
		return lines[0] + "\n\n" + block + "\n\n" + rest + "\n"
	default:
		return trimmed + "\n\n" + block + "\n"
	}
}
