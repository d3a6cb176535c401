// Package assemble turns one unit declaration plus its referenced fragments
// into named section strings. Assembly resolves all structure; the renderer
// only formats. Nothing here is recursive: every section is one level of
// concatenation driven by the manifest.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/loom/internal/fragment"
	"github.com/kingrea/loom/manifest"
)

func isNotFound(err error) bool {
	return errors.Is(err, fragment.ErrNotFound)
}

// Section names one slot in the canonical document layout.
type Section string

const (
	SectionFrontmatter       Section = "frontmatterMetadata"
	SectionTitle             Section = "titleBlock"
	SectionRoleIntro         Section = "wrappedRoleIntro"
	SectionPreloadedSummary  Section = "preloadedContentSummary"
	SectionCriticalRequired  Section = "criticalRequirementsBlock"
	SectionCorePrompts       Section = "corePromptSetContent"
	SectionWorkflow          Section = "workflowBody"
	SectionSkillBodies       Section = "precompiledSkillBodies"
	SectionExamples          Section = "examplesBody"
	SectionOutputFormat      Section = "outputFormatBody"
	SectionEndingPrompts     Section = "endingPromptSetContent"
	SectionCriticalReminders Section = "criticalRemindersBlock"
	SectionClosingReminders  Section = "closingReminderLines"
)

// CanonicalOrder is the fixed emission order for every compiled unit.
var CanonicalOrder = []Section{
	SectionFrontmatter,
	SectionTitle,
	SectionRoleIntro,
	SectionPreloadedSummary,
	SectionCriticalRequired,
	SectionCorePrompts,
	SectionWorkflow,
	SectionSkillBodies,
	SectionExamples,
	SectionOutputFormat,
	SectionEndingPrompts,
	SectionCriticalReminders,
	SectionClosingReminders,
}

// ClosingReminderLines are appended to every unit regardless of manifest
// content. Keeping them out of the manifest makes the invariant universal.
const (
	ClosingReminderLine1 = "Re-read your critical requirements before declaring any task complete."
	ClosingReminderLine2 = "Never invent content for a skill or reference you have not loaded."
)

// entrySeparator joins fragments within a concatenated section.
const entrySeparator = "\n\n"

// SectionMap holds fully concatenated section strings keyed by section name.
type SectionMap map[Section]string

// FragmentReader is the slice of the fragment store assembly needs.
type FragmentReader interface {
	Read(path string) (string, error)
}

// Assembler builds section maps for units declared in a profile manifest.
type Assembler struct {
	store FragmentReader
}

// NewAssembler builds an assembler over the given fragment store.
func NewAssembler(store FragmentReader) *Assembler {
	return &Assembler{store: store}
}

// Assemble deterministically orders and concatenates fragment contents into
// the canonical sections for one unit.
func (a *Assembler) Assemble(unit manifest.UnitDefinition, man manifest.ProfileManifest) (SectionMap, error) {
	sections := SectionMap{
		SectionFrontmatter:      frontmatter(unit),
		SectionTitle:            "# " + unit.Title,
		SectionClosingReminders: ClosingReminderLine1 + "\n" + ClosingReminderLine2,
	}

	intro, err := a.readRole(unit, manifest.RoleIntro)
	if err != nil {
		return nil, err
	}
	sections[SectionRoleIntro] = wrapRoleIntro(intro)

	workflow, err := a.readRole(unit, manifest.RoleWorkflow)
	if err != nil {
		return nil, err
	}
	sections[SectionWorkflow] = heading("Workflow", workflow)

	if err := a.assembleOptionalRoles(unit, sections); err != nil {
		return nil, err
	}

	corePrompts, err := a.promptSetContent(unit.Name, unit.CorePrompts, man.CorePromptSets)
	if err != nil {
		return nil, err
	}
	sections[SectionCorePrompts] = corePrompts

	endingPrompts, err := a.promptSetContent(unit.Name, unit.EndingPrompts, man.EndingPromptSets)
	if err != nil {
		return nil, err
	}
	sections[SectionEndingPrompts] = endingPrompts

	skillBodies, err := a.skillBodies(unit)
	if err != nil {
		return nil, err
	}
	sections[SectionSkillBodies] = skillBodies

	if unit.OutputFormat != "" {
		format, err := a.store.Read(unit.OutputFormat)
		if err != nil {
			return nil, fmt.Errorf("assemble: unit %s: output format: %w", unit.Name, err)
		}
		sections[SectionOutputFormat] = heading("Output format", format)
	}

	summary, err := a.preloadedSummary(unit, man)
	if err != nil {
		return nil, err
	}
	sections[SectionPreloadedSummary] = summary

	return sections, nil
}

func (a *Assembler) readRole(unit manifest.UnitDefinition, role manifest.Role) (string, error) {
	path := unit.FragmentPath(role)
	content, err := a.store.Read(path)
	if err != nil {
		return "", fmt.Errorf("assemble: unit %s: %s: %w", unit.Name, role, err)
	}
	return strings.TrimSpace(content), nil
}

// assembleOptionalRoles fills the sections whose fragments may be absent.
// Validation already downgraded absence to a warning, so a missing fragment
// simply leaves the section empty here.
func (a *Assembler) assembleOptionalRoles(unit manifest.UnitDefinition, sections SectionMap) error {
	optional := []struct {
		role    manifest.Role
		section Section
		title   string
	}{
		{manifest.RoleCriticalRequirement, SectionCriticalRequired, "Critical requirements"},
		{manifest.RoleExample, SectionExamples, "Examples"},
		{manifest.RoleCriticalReminder, SectionCriticalReminders, "Critical reminders"},
	}
	for _, entry := range optional {
		content, err := a.readRole(unit, entry.role)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return err
		}
		sections[entry.section] = heading(entry.title, content)
	}
	return nil
}

func (a *Assembler) promptSetContent(unitName, key string, sets map[string]manifest.PromptSet) (string, error) {
	if key == "" {
		return "", nil
	}
	set, ok := sets[key]
	if !ok {
		return "", fmt.Errorf("assemble: unit %s: prompt set %q is not declared", unitName, key)
	}
	parts := make([]string, 0, len(set))
	for _, ref := range set {
		content, err := a.store.Read(ref)
		if err != nil {
			return "", fmt.Errorf("assemble: unit %s: prompt set %q: %w", unitName, key, err)
		}
		parts = append(parts, strings.TrimSpace(content))
	}
	return strings.Join(parts, entrySeparator), nil
}

func (a *Assembler) skillBodies(unit manifest.UnitDefinition) (string, error) {
	var parts []string
	for _, skill := range unit.Skills {
		if skill.Mode != manifest.ModePrecompiled {
			continue
		}
		body, err := a.store.Read(skill.Path)
		if err != nil {
			return "", fmt.Errorf("assemble: unit %s: skill %s: %w", unit.Name, skill.ID, err)
		}
		parts = append(parts, heading("Skill: "+skill.DisplayName(), strings.TrimSpace(body)))
	}
	return strings.Join(parts, entrySeparator), nil
}

// preloadedSummary derives the "what is already here" catalog from the same
// prompt set and skill assignment data used to build the embedded sections,
// so the summary cannot drift out of sync with what is actually embedded.
func (a *Assembler) preloadedSummary(unit manifest.UnitDefinition, man manifest.ProfileManifest) (string, error) {
	var lines []string
	if unit.CorePrompts != "" {
		set, ok := man.CorePromptSets[unit.CorePrompts]
		if !ok {
			return "", fmt.Errorf("assemble: unit %s: prompt set %q is not declared", unit.Name, unit.CorePrompts)
		}
		for _, ref := range set {
			lines = append(lines, preloadedLine(ref))
		}
	}
	for _, skill := range unit.Skills {
		switch skill.Mode {
		case manifest.ModePrecompiled:
			lines = append(lines, preloadedLine(skill.ID))
		case manifest.ModeDynamic:
			lines = append(lines, fmt.Sprintf("- %s: invoke on demand when needed.", skill.ID))
			lines = append(lines, "  "+skill.Usage)
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "## Preloaded content\n\n" + strings.Join(lines, "\n"), nil
}

func preloadedLine(id string) string {
	return fmt.Sprintf("- %s: already available in this document; do not re-fetch.", id)
}

func frontmatter(unit manifest.UnitDefinition) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "name: %s\n", unit.Name)
	if unit.Description != "" {
		fmt.Fprintf(&b, "description: %s\n", unit.Description)
	}
	if unit.Model != "" {
		fmt.Fprintf(&b, "model: %s\n", unit.Model)
	}
	if len(unit.Capabilities) > 0 {
		fmt.Fprintf(&b, "capabilities: %s\n", strings.Join(unit.Capabilities, ", "))
	}
	b.WriteString("---")
	return b.String()
}

func wrapRoleIntro(content string) string {
	return "<role>\n" + content + "\n</role>"
}

func heading(title, content string) string {
	if content == "" {
		return ""
	}
	return "## " + title + "\n\n" + content
}
