// Package output persists compiled documents under the output root. The
// output tree is entirely derived from the current manifest: the unit and
// skill subtrees are reset before each run so no artifact from a previous
// manifest survives.
package output

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	unitsDir  = "units"
	skillsDir = "skills"

	// SkillFileName is the fixed file name for every compiled skill body.
	SkillFileName = "SKILL.md"
	// InstructionsFileName is the fixed top-level instruction document path.
	InstructionsFileName = "INSTRUCTIONS.md"
)

// Writer manages the output tree for one run.
type Writer struct {
	root string
}

// NewWriter builds a writer rooted at the given output directory.
func NewWriter(root string) *Writer {
	return &Writer{root: filepath.Clean(root)}
}

// Root returns the output root directory.
func (w *Writer) Root() string {
	return w.root
}

// Reset clears the unit and skill subtrees. This is a directory-level reset,
// not file-level diffing: a clean rebuild is the contract.
func (w *Writer) Reset() error {
	for _, dir := range []string{unitsDir, skillsDir} {
		target := filepath.Join(w.root, dir)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("output: reset %s: %w", target, err)
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("output: recreate %s: %w", target, err)
		}
	}
	return nil
}

// UnitPath returns the deterministic path for a compiled unit document.
func (w *Writer) UnitPath(unitName string) string {
	return filepath.Join(w.root, unitsDir, unitName+".md")
}

// SkillPath returns the deterministic path for a compiled skill document.
func (w *Writer) SkillPath(skillID string) string {
	return filepath.Join(w.root, skillsDir, skillID, SkillFileName)
}

// InstructionsPath returns the fixed top-level instruction document path.
func (w *Writer) InstructionsPath() string {
	return filepath.Join(w.root, InstructionsFileName)
}

// WriteUnit writes one rendered unit document and returns its path.
func (w *Writer) WriteUnit(unitName, text string) (string, error) {
	path := w.UnitPath(unitName)
	if err := writeFile(path, text); err != nil {
		return path, fmt.Errorf("output: unit %s: %w", unitName, err)
	}
	return path, nil
}

// WriteSkill writes one rendered skill document and returns its path.
func (w *Writer) WriteSkill(skillID, text string) (string, error) {
	path := w.SkillPath(skillID)
	if err := writeFile(path, text); err != nil {
		return path, fmt.Errorf("output: skill %s: %w", skillID, err)
	}
	return path, nil
}

// WriteInstructions copies the profile's top-level instruction content to
// its fixed output path.
func (w *Writer) WriteInstructions(content string) (string, error) {
	path := w.InstructionsPath()
	if err := writeFile(path, content); err != nil {
		return path, fmt.Errorf("output: instructions: %w", err)
	}
	return path, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
