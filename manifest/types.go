// Package manifest defines the declarative profile manifest schema and its
// validation. A manifest describes, for one deployment profile, which units
// are compiled, which prompt sets and skills they embed, and which top-level
// instruction document the profile ships.
package manifest

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Role classifies a fragment by its purpose inside a compiled document.
type Role string

const (
	RoleIntro               Role = "role-intro"
	RoleWorkflow            Role = "workflow"
	RoleCriticalRequirement Role = "critical-requirement"
	RoleCriticalReminder    Role = "critical-reminder"
	RoleExample             Role = "example"
	RoleSkillBody           Role = "skill-body"
	RolePromptBody          Role = "prompt-body"
	RoleOutputFormat        Role = "output-format"
)

// RequiredUnitRoles are the per-unit fragments every unit must ship.
var RequiredUnitRoles = []Role{RoleIntro, RoleWorkflow}

// OptionalUnitRoles are per-unit fragments whose absence only warns.
var OptionalUnitRoles = []Role{RoleCriticalRequirement, RoleCriticalReminder, RoleExample}

// roleFileNames maps a role to its conventional file name under a unit's
// fragment directory.
var roleFileNames = map[Role]string{
	RoleIntro:               "role-intro.md",
	RoleWorkflow:            "workflow.md",
	RoleCriticalRequirement: "critical-requirements.md",
	RoleCriticalReminder:    "critical-reminders.md",
	RoleExample:             "examples.md",
}

// isPathComponent reports whether a name is safe to use as a single output
// path element. Unit names and skill ids become directory and file names
// under the output root, so anything that traverses must be rejected.
func isPathComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// Mode selects how a skill assignment is surfaced in a unit's document.
type Mode string

const (
	// ModePrecompiled embeds the skill body verbatim at compile time.
	ModePrecompiled Mode = "precompiled"
	// ModeDynamic catalogs the skill by name and usage hint only; the unit
	// fetches the body at use time.
	ModeDynamic Mode = "dynamic"
)

// SkillAssignment references one skill from a unit.
type SkillAssignment struct {
	ID          string `yaml:"id"`
	Path        string `yaml:"path,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Usage       string `yaml:"usage,omitempty"`
	Mode        Mode   `yaml:"mode"`
}

func (s SkillAssignment) normalized() SkillAssignment {
	return SkillAssignment{
		ID:          strings.TrimSpace(s.ID),
		Path:        strings.TrimSpace(s.Path),
		Name:        strings.TrimSpace(s.Name),
		Description: strings.TrimSpace(s.Description),
		Usage:       strings.TrimSpace(s.Usage),
		Mode:        Mode(strings.TrimSpace(string(s.Mode))),
	}
}

// DisplayName returns the human-facing skill name, falling back to the id.
func (s SkillAssignment) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return strings.TrimSpace(s.ID)
}

// Validate ensures the assignment is well-formed at the schema level.
// Cross-checks against the fragment store belong to the Validator.
func (s SkillAssignment) Validate() error {
	normalized := s.normalized()
	if normalized.ID == "" {
		return fmt.Errorf("manifest: skill id is required")
	}
	if !isPathComponent(normalized.ID) {
		return fmt.Errorf("manifest: skill %s: id must be a single path element", normalized.ID)
	}
	switch normalized.Mode {
	case ModePrecompiled, ModeDynamic:
	case "":
		return fmt.Errorf("manifest: skill %s: mode is required", normalized.ID)
	default:
		return fmt.Errorf("manifest: skill %s: unknown mode %q", normalized.ID, normalized.Mode)
	}
	if normalized.Mode == ModePrecompiled && normalized.Path == "" {
		return fmt.Errorf("manifest: skill %s: path is required for precompiled skills", normalized.ID)
	}
	return nil
}

// PromptSet is a named, ordered list of prompt-body fragment paths.
type PromptSet []string

func (p PromptSet) normalized() PromptSet {
	if len(p) == 0 {
		return nil
	}
	clone := make(PromptSet, 0, len(p))
	for _, ref := range p {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			clone = append(clone, trimmed)
		}
	}
	if len(clone) == 0 {
		return nil
	}
	return clone
}

// UnitDefinition declares one compilable output document.
type UnitDefinition struct {
	Name          string            `yaml:"-"`
	Title         string            `yaml:"title"`
	Description   string            `yaml:"description,omitempty"`
	Model         string            `yaml:"model,omitempty"`
	Capabilities  []string          `yaml:"capabilities,omitempty"`
	CorePrompts   string            `yaml:"core_prompts,omitempty"`
	EndingPrompts string            `yaml:"ending_prompts,omitempty"`
	OutputFormat  string            `yaml:"output_format,omitempty"`
	Fragments     map[Role]string   `yaml:"fragments,omitempty"`
	Skills        []SkillAssignment `yaml:"skills,omitempty"`
}

// Normalized returns a trimmed copy of the unit definition.
func (u UnitDefinition) Normalized() UnitDefinition {
	clone := UnitDefinition{
		Name:          strings.TrimSpace(u.Name),
		Title:         strings.TrimSpace(u.Title),
		Description:   strings.TrimSpace(u.Description),
		Model:         strings.TrimSpace(u.Model),
		CorePrompts:   strings.TrimSpace(u.CorePrompts),
		EndingPrompts: strings.TrimSpace(u.EndingPrompts),
		OutputFormat:  strings.TrimSpace(u.OutputFormat),
	}
	if len(u.Capabilities) > 0 {
		clone.Capabilities = make([]string, 0, len(u.Capabilities))
		for _, capability := range u.Capabilities {
			if trimmed := strings.TrimSpace(capability); trimmed != "" {
				clone.Capabilities = append(clone.Capabilities, trimmed)
			}
		}
	}
	if len(u.Fragments) > 0 {
		clone.Fragments = make(map[Role]string, len(u.Fragments))
		for role, ref := range u.Fragments {
			trimmedRole := Role(strings.TrimSpace(string(role)))
			trimmedRef := strings.TrimSpace(ref)
			if trimmedRole == "" || trimmedRef == "" {
				continue
			}
			clone.Fragments[trimmedRole] = trimmedRef
		}
	}
	if len(u.Skills) > 0 {
		clone.Skills = make([]SkillAssignment, len(u.Skills))
		for i, skill := range u.Skills {
			clone.Skills[i] = skill.normalized()
		}
	}
	return clone
}

// FragmentPath resolves the fragment path for a unit role, honoring any
// per-unit override before falling back to the units/<name>/<role>.md
// convention.
func (u UnitDefinition) FragmentPath(role Role) string {
	if override, ok := u.Fragments[role]; ok {
		return override
	}
	file, ok := roleFileNames[role]
	if !ok {
		return ""
	}
	return path.Join("units", u.Name, file)
}

// Validate ensures the unit definition is well-formed at the schema level.
func (u UnitDefinition) Validate() error {
	normalized := u.Normalized()
	if normalized.Name == "" {
		return fmt.Errorf("manifest: unit name is required")
	}
	if !isPathComponent(normalized.Name) {
		return fmt.Errorf("manifest: unit %s: name must be a single path element", normalized.Name)
	}
	if normalized.Title == "" {
		return fmt.Errorf("manifest: unit %s: title is required", normalized.Name)
	}
	for i, skill := range normalized.Skills {
		if err := skill.Validate(); err != nil {
			return fmt.Errorf("manifest: unit %s: skills[%d]: %w", normalized.Name, i, err)
		}
	}
	seen := make(map[string]struct{}, len(normalized.Skills))
	for i, skill := range normalized.Skills {
		if _, dup := seen[skill.ID]; dup {
			return fmt.Errorf("manifest: unit %s: skills[%d]: duplicate skill id %s", normalized.Name, i, skill.ID)
		}
		seen[skill.ID] = struct{}{}
	}
	return nil
}

// ProfileManifest is the root structure for one deployment profile.
type ProfileManifest struct {
	Profile          string                    `yaml:"profile"`
	Description      string                    `yaml:"description,omitempty"`
	Instructions     string                    `yaml:"instructions"`
	CorePromptSets   map[string]PromptSet      `yaml:"core_prompt_sets,omitempty"`
	EndingPromptSets map[string]PromptSet      `yaml:"ending_prompt_sets,omitempty"`
	Units            map[string]UnitDefinition `yaml:"units"`
}

// Normalized returns a trimmed copy with unit names filled in from map keys.
func (m ProfileManifest) Normalized() ProfileManifest {
	clone := ProfileManifest{
		Profile:      strings.TrimSpace(m.Profile),
		Description:  strings.TrimSpace(m.Description),
		Instructions: strings.TrimSpace(m.Instructions),
	}
	if len(m.CorePromptSets) > 0 {
		clone.CorePromptSets = normalizePromptSets(m.CorePromptSets)
	}
	if len(m.EndingPromptSets) > 0 {
		clone.EndingPromptSets = normalizePromptSets(m.EndingPromptSets)
	}
	if len(m.Units) > 0 {
		clone.Units = make(map[string]UnitDefinition, len(m.Units))
		for name, unit := range m.Units {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				continue
			}
			unit.Name = trimmed
			clone.Units[trimmed] = unit.Normalized()
		}
	}
	return clone
}

func normalizePromptSets(sets map[string]PromptSet) map[string]PromptSet {
	clone := make(map[string]PromptSet, len(sets))
	for key, set := range sets {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		clone[trimmed] = set.normalized()
	}
	return clone
}

// Validate ensures the manifest is well-formed at the schema level.
func (m ProfileManifest) Validate() error {
	normalized := m.Normalized()
	if normalized.Profile == "" {
		return fmt.Errorf("manifest: profile name is required")
	}
	if normalized.Instructions == "" {
		return fmt.Errorf("manifest: %s: instructions document is required", normalized.Profile)
	}
	if len(normalized.Units) == 0 {
		return fmt.Errorf("manifest: %s: at least one unit is required", normalized.Profile)
	}
	for name, unit := range normalized.Units {
		if err := unit.Validate(); err != nil {
			return fmt.Errorf("manifest: %s: unit %s: %w", normalized.Profile, name, err)
		}
	}
	return nil
}

// UnitNames returns unit names in deterministic (sorted) order.
func (m ProfileManifest) UnitNames() []string {
	names := make([]string, 0, len(m.Units))
	for name := range m.Units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
