package manifest

import (
	"fmt"
	"sort"
)

// FragmentChecker is the slice of the fragment store the validator needs.
type FragmentChecker interface {
	Exists(path string) bool
}

// Report aggregates validation findings across a whole manifest. Warnings
// never block compilation; errors always do.
type Report struct {
	Errors   []string
	Warnings []string
}

// IsValid reports whether compilation may proceed.
func (r Report) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator cross-checks every reference in a manifest against the fragment
// store before any composition proceeds.
type Validator struct {
	store FragmentChecker
}

// NewValidator builds a validator over the given fragment store.
func NewValidator(store FragmentChecker) *Validator {
	return &Validator{store: store}
}

// Validate walks every unit and aggregates all findings before returning.
// A single invalid unit fails the whole run at this stage: composition work
// is wasted effort if the manifest is structurally broken.
func (v *Validator) Validate(man ProfileManifest) Report {
	var report Report
	normalized := man.Normalized()

	if normalized.Instructions != "" && !v.store.Exists(normalized.Instructions) {
		report.errorf("profile %s: instructions document %s not found", normalized.Profile, normalized.Instructions)
	}

	precompiledPaths := make(map[string]string)
	for _, name := range normalized.UnitNames() {
		unit := normalized.Units[name]
		v.validatePromptSet(&report, name, "core", unit.CorePrompts, normalized.CorePromptSets)
		v.validatePromptSet(&report, name, "ending", unit.EndingPrompts, normalized.EndingPromptSets)
		v.validateUnitRoles(&report, name, unit)
		v.validateSkills(&report, name, unit, precompiledPaths)
		if unit.OutputFormat != "" && !v.store.Exists(unit.OutputFormat) {
			report.errorf("unit %s: output format %s not found", name, unit.OutputFormat)
		}
	}
	return report
}

func (v *Validator) validatePromptSet(report *Report, unit, kind, key string, sets map[string]PromptSet) {
	if key == "" {
		return
	}
	set, ok := sets[key]
	if !ok {
		report.errorf("unit %s: %s prompt set %q is not declared", unit, kind, key)
		return
	}
	for _, ref := range set {
		if !v.store.Exists(ref) {
			report.errorf("unit %s: %s prompt set %q: fragment %s not found", unit, kind, key, ref)
		}
	}
}

func (v *Validator) validateUnitRoles(report *Report, name string, unit UnitDefinition) {
	for _, role := range RequiredUnitRoles {
		if path := unit.FragmentPath(role); !v.store.Exists(path) {
			report.errorf("unit %s: required %s fragment %s not found", name, role, path)
		}
	}
	for _, role := range OptionalUnitRoles {
		if path := unit.FragmentPath(role); !v.store.Exists(path) {
			report.warnf("unit %s: optional %s fragment %s not found", name, role, path)
		}
	}
}

func (v *Validator) validateSkills(report *Report, name string, unit UnitDefinition, precompiledPaths map[string]string) {
	for _, skill := range unit.Skills {
		switch skill.Mode {
		case ModePrecompiled:
			if !v.store.Exists(skill.Path) {
				report.errorf("unit %s: precompiled skill %s: body %s not found", name, skill.ID, skill.Path)
			}
			if existing, ok := precompiledPaths[skill.ID]; ok && existing != skill.Path {
				report.errorf("unit %s: skill %s declared from conflicting paths %s and %s", name, skill.ID, existing, skill.Path)
			} else {
				precompiledPaths[skill.ID] = skill.Path
			}
		case ModeDynamic:
			// Dynamic skills may be compiled elsewhere or cataloged without
			// embeddable content, so a missing body only warns.
			if skill.Path == "" || !v.store.Exists(skill.Path) {
				report.warnf("unit %s: dynamic skill %s has no resolvable body", name, skill.ID)
			}
			if skill.Usage == "" {
				report.errorf("unit %s: dynamic skill %s: usage hint is required", name, skill.ID)
			}
		}
	}
}

// PrecompiledSkills returns every distinct precompiled skill reachable from
// any unit, sorted by id. Skills referenced by multiple units appear once.
func (m ProfileManifest) PrecompiledSkills() []SkillAssignment {
	byID := make(map[string]SkillAssignment)
	for _, unit := range m.Units {
		for _, skill := range unit.Skills {
			if skill.Mode != ModePrecompiled {
				continue
			}
			if _, ok := byID[skill.ID]; !ok {
				byID[skill.ID] = skill
			}
		}
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	skills := make([]SkillAssignment, 0, len(ids))
	for _, id := range ids {
		skills = append(skills, byID[id])
	}
	return skills
}
