package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/loom/internal/assemble"
	"github.com/kingrea/loom/internal/config"
	"github.com/kingrea/loom/internal/render"
)

const fixtureManifestYAML = `profile: staging
instructions: instructions.md
core_prompt_sets:
  core:
    - prompts/tone.md
units:
  alpha:
    title: Alpha Agent
    core_prompts: core
    skills:
      - id: docs
        mode: precompiled
        path: skills/docs.md
  beta:
    title: Beta Agent
    skills:
      - id: docs
        mode: precompiled
        path: skills/docs.md
`

// buildWorkspace lays out a minimal workspace with two units that share
// one precompiled skill.
func buildWorkspace(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"profiles/staging/manifest.yaml":               fixtureManifestYAML,
		"profiles/staging/instructions.md":             "Follow the staging playbook.\n",
		"profiles/staging/skills/docs.md":              "Look up the document before answering.\n",
		"profiles/staging/units/alpha/role-intro.md":   "You are alpha.\n",
		"profiles/staging/units/alpha/workflow.md":     "Alpha works the queue.\n",
		"profiles/staging/units/beta/role-intro.md":    "You are beta.\n",
		"profiles/staging/units/beta/workflow.md":      "Beta reviews alpha.\n",
		"system/prompts/tone.md":                       "Be concise.\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := config.Load(root)
	require.NoError(t, err)
	return cfg
}

func TestRunWritesAllArtifacts(t *testing.T) {
	cfg := buildWorkspace(t)
	report, err := New(cfg, nil).Run("staging")
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	require.NotEmpty(t, report.RunID)

	// One instructions document, one skill, two units.
	require.Len(t, report.Artifacts, 4)

	for _, path := range []string{
		filepath.Join(cfg.OutputRoot(), "INSTRUCTIONS.md"),
		filepath.Join(cfg.OutputRoot(), "skills", "docs", "SKILL.md"),
		filepath.Join(cfg.OutputRoot(), "units", "alpha.md"),
		filepath.Join(cfg.OutputRoot(), "units", "beta.md"),
	} {
		_, err := os.Stat(path)
		require.NoError(t, err, "expected artifact at %s", path)
	}
}

func TestRunEmbedsSharedSkillOnceAndInBothUnits(t *testing.T) {
	cfg := buildWorkspace(t)
	_, err := New(cfg, nil).Run("staging")
	require.NoError(t, err)

	skillEntries, err := os.ReadDir(filepath.Join(cfg.OutputRoot(), "skills"))
	require.NoError(t, err)
	require.Len(t, skillEntries, 1, "shared skill must compile to a single directory")

	for _, unit := range []string{"alpha", "beta"} {
		data, err := os.ReadFile(filepath.Join(cfg.OutputRoot(), "units", unit+".md"))
		require.NoError(t, err)
		require.Contains(t, string(data), "Look up the document before answering.",
			"unit %s must embed the shared skill body", unit)
	}
}

func TestRunUnitDocumentShape(t *testing.T) {
	cfg := buildWorkspace(t)
	_, err := New(cfg, nil).Run("staging")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.OutputRoot(), "units", "alpha.md"))
	require.NoError(t, err)
	text := string(data)

	require.True(t, strings.HasPrefix(text, "---\nname: alpha\n"))
	require.Contains(t, text, "<role>\nYou are alpha.\n</role>")
	require.Contains(t, text, "Be concise.")
	require.Contains(t, text, "## Workflow")
	require.True(t, strings.HasSuffix(text,
		assemble.ClosingReminderLine1+"\n"+assemble.ClosingReminderLine2+"\n"))
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := buildWorkspace(t)
	c := New(cfg, nil)

	_, err := c.Run("staging")
	require.NoError(t, err)
	first := readTree(t, cfg.OutputRoot())

	_, err = c.Run("staging")
	require.NoError(t, err)
	second := readTree(t, cfg.OutputRoot())

	require.Equal(t, first, second, "reruns against unchanged sources must be byte-identical")
}

func TestRunRemovesOrphansFromPreviousManifest(t *testing.T) {
	cfg := buildWorkspace(t)
	c := New(cfg, nil)
	_, err := c.Run("staging")
	require.NoError(t, err)

	// Drop the beta unit from the manifest and recompile.
	trimmed := fixtureManifestYAML[:strings.Index(fixtureManifestYAML, "  beta:")]
	require.NoError(t, os.WriteFile(cfg.ManifestPath("staging"), []byte(trimmed), 0o644))

	_, err = c.Run("staging")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cfg.OutputRoot(), "units", "beta.md"))
	require.True(t, os.IsNotExist(err), "beta.md is no longer declared and must be removed")
	_, err = os.Stat(filepath.Join(cfg.OutputRoot(), "units", "alpha.md"))
	require.NoError(t, err)
}

func TestRunValidationFailureWritesNothing(t *testing.T) {
	cfg := buildWorkspace(t)
	require.NoError(t, os.Remove(
		filepath.Join(cfg.ProfileDir("staging"), "units", "beta", "workflow.md")))

	report, err := New(cfg, nil).Run("staging")
	require.ErrorIs(t, err, ErrValidationFailed)
	require.False(t, report.Report.IsValid())
	require.Empty(t, report.Artifacts)

	_, statErr := os.Stat(cfg.OutputRoot())
	require.True(t, os.IsNotExist(statErr), "a failed validation must not touch the output tree")
}

// failingRenderer renders normally until it reaches the named unit, standing
// in for a fragment that turns unreadable between validation and write.
type failingRenderer struct {
	inner    *render.Renderer
	failUnit string
}

func (f failingRenderer) Render(sections assemble.SectionMap, unitName string) (string, error) {
	if unitName == f.failUnit {
		return "", fmt.Errorf("render: unit %s: content sink failed", unitName)
	}
	return f.inner.Render(sections, unitName)
}

func (f failingRenderer) RenderSkill(meta render.SkillMetadata, body string) (string, error) {
	return f.inner.RenderSkill(meta, body)
}

func TestRunFailureLeavesEarlierUnitsWritten(t *testing.T) {
	cfg := buildWorkspace(t)
	c := New(cfg, nil)
	c.renderer = failingRenderer{inner: render.NewRenderer(), failUnit: "beta"}

	report, err := c.Run("staging")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrValidationFailed)

	// alpha compiled before beta and stays on disk; beta was never written.
	_, statErr := os.Stat(filepath.Join(cfg.OutputRoot(), "units", "alpha.md"))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(cfg.OutputRoot(), "units", "beta.md"))
	require.True(t, os.IsNotExist(statErr))

	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, ArtifactUnit, failed[0].Kind)
	require.Equal(t, "beta", failed[0].Name)
	require.Error(t, failed[0].Err)
}

func TestRunRejectsTraversingSkillID(t *testing.T) {
	cfg := buildWorkspace(t)
	hostile := strings.ReplaceAll(fixtureManifestYAML, "id: docs", "id: ../../escaped")
	require.NoError(t, os.WriteFile(cfg.ManifestPath("staging"), []byte(hostile), 0o644))

	_, err := New(cfg, nil).Run("staging")
	require.Error(t, err)
	require.Contains(t, err.Error(), "single path element")

	// The hostile id never reaches the writer.
	_, statErr := os.Stat(cfg.OutputRoot())
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(cfg.Workspace, "escaped"))
	require.True(t, os.IsNotExist(statErr))
}

func TestRunMissingManifest(t *testing.T) {
	cfg := buildWorkspace(t)
	_, err := New(cfg, nil).Run("missing")
	require.Error(t, err)
}

func TestValidateDoesNotWrite(t *testing.T) {
	cfg := buildWorkspace(t)
	report, err := New(cfg, nil).Validate("staging")
	require.NoError(t, err)
	require.True(t, report.IsValid())

	_, statErr := os.Stat(cfg.OutputRoot())
	require.True(t, os.IsNotExist(statErr))
}

// readTree returns every file under root keyed by relative path.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		tree[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}
