// Package compiler orchestrates one compilation run: manifest loading,
// validation, per-unit assembly and rendering, and output writing.
package compiler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/loom/internal/assemble"
	"github.com/kingrea/loom/internal/config"
	"github.com/kingrea/loom/internal/fragment"
	"github.com/kingrea/loom/internal/output"
	"github.com/kingrea/loom/internal/render"
	"github.com/kingrea/loom/manifest"
)

// ErrValidationFailed marks a run stopped by manifest validation errors.
// Nothing has been written when this is returned.
var ErrValidationFailed = errors.New("manifest validation failed")

// ArtifactKind distinguishes the three output artifact families.
type ArtifactKind string

const (
	ArtifactUnit         ArtifactKind = "unit"
	ArtifactSkill        ArtifactKind = "skill"
	ArtifactInstructions ArtifactKind = "instructions"
)

// Artifact records the outcome for one written (or failed) output document.
type Artifact struct {
	Kind ArtifactKind
	Name string
	Path string
	Err  error
}

// CompiledDocument is one rendered document held in memory before writing.
// Its target path is derived later by the writer, which owns path layout.
type CompiledDocument struct {
	RenderedText string
	SourceUnit   string
}

// RunReport summarizes one compilation run.
type RunReport struct {
	RunID     string
	Profile   string
	Report    manifest.Report
	Artifacts []Artifact
}

// Failed returns the artifacts that could not be written.
func (r *RunReport) Failed() []Artifact {
	var failed []Artifact
	for _, artifact := range r.Artifacts {
		if artifact.Err != nil {
			failed = append(failed, artifact)
		}
	}
	return failed
}

// documentRenderer is the slice of the renderer the compiler drives.
type documentRenderer interface {
	Render(sections assemble.SectionMap, unitName string) (string, error)
	RenderSkill(meta render.SkillMetadata, body string) (string, error)
}

// Compiler runs profile compilations against one workspace.
type Compiler struct {
	cfg      *config.Config
	logger   *zap.Logger
	renderer documentRenderer
}

// New builds a compiler for the workspace described by cfg.
func New(cfg *config.Config, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{cfg: cfg, logger: logger, renderer: render.NewRenderer()}
}

// load parses the manifest and builds the fragment store for one profile.
// A manifest that cannot be parsed is a configuration error: the run halts
// before validation is even attempted.
func (c *Compiler) load(profileName string) (manifest.ProfileManifest, *fragment.Store, error) {
	file, err := manifest.LoadManifestFile(c.cfg.ManifestPath(profileName))
	if err != nil {
		return manifest.ProfileManifest{}, nil, err
	}
	store := fragment.NewStore(c.cfg.ProfileDir(profileName), c.cfg.SystemRoot())
	return file.Manifest, store, nil
}

// Validate loads and cross-checks one profile without writing anything.
func (c *Compiler) Validate(profileName string) (manifest.Report, error) {
	man, store, err := c.load(profileName)
	if err != nil {
		return manifest.Report{}, err
	}
	return manifest.NewValidator(store).Validate(man), nil
}

// Run compiles one profile. Validation is global and fail-fast: no writes
// happen when it reports errors. The write phase is not transactional
// across units; a failure compiling unit N aborts the remaining run but
// does not roll back documents already written for earlier units.
func (c *Compiler) Run(profileName string) (*RunReport, error) {
	report := &RunReport{
		RunID:   uuid.NewString(),
		Profile: profileName,
	}
	logger := c.logger.With(
		zap.String("run_id", report.RunID),
		zap.String("profile", profileName),
	)
	logger.Info("starting compilation run")

	man, store, err := c.load(profileName)
	if err != nil {
		return report, err
	}

	report.Report = manifest.NewValidator(store).Validate(man)
	for _, warning := range report.Report.Warnings {
		logger.Warn(warning)
	}
	if !report.Report.IsValid() {
		logger.Error("validation failed",
			zap.Int("errors", len(report.Report.Errors)),
			zap.Int("warnings", len(report.Report.Warnings)),
		)
		return report, ErrValidationFailed
	}

	writer := output.NewWriter(c.cfg.OutputRoot())
	if err := writer.Reset(); err != nil {
		return report, err
	}

	if err := c.writeInstructions(man, store, writer, report); err != nil {
		return report, err
	}
	if err := c.writeSkills(man, store, writer, report, logger); err != nil {
		return report, err
	}
	if err := c.writeUnits(man, store, writer, report, logger); err != nil {
		return report, err
	}

	logger.Info("compilation run complete", zap.Int("artifacts", len(report.Artifacts)))
	return report, nil
}

func (c *Compiler) writeInstructions(man manifest.ProfileManifest, store *fragment.Store, writer *output.Writer, report *RunReport) error {
	content, err := store.Read(man.Instructions)
	if err != nil {
		err = fmt.Errorf("compiler: instructions %s: %w", man.Instructions, err)
		report.Artifacts = append(report.Artifacts, Artifact{Kind: ArtifactInstructions, Name: man.Instructions, Err: err})
		return err
	}
	path, err := writer.WriteInstructions(content)
	report.Artifacts = append(report.Artifacts, Artifact{Kind: ArtifactInstructions, Name: man.Instructions, Path: path, Err: err})
	return err
}

// writeSkills compiles each distinct precompiled skill exactly once, no
// matter how many units reference it.
func (c *Compiler) writeSkills(man manifest.ProfileManifest, store *fragment.Store, writer *output.Writer, report *RunReport, logger *zap.Logger) error {
	for _, skill := range man.PrecompiledSkills() {
		body, err := store.Read(skill.Path)
		if err != nil {
			err = fmt.Errorf("compiler: skill %s: %w", skill.ID, err)
			report.Artifacts = append(report.Artifacts, Artifact{Kind: ArtifactSkill, Name: skill.ID, Err: err})
			return err
		}
		text, err := c.renderer.RenderSkill(render.SkillMetadata{
			ID:          skill.ID,
			Name:        skill.DisplayName(),
			Description: skill.Description,
		}, body)
		if err != nil {
			report.Artifacts = append(report.Artifacts, Artifact{Kind: ArtifactSkill, Name: skill.ID, Err: err})
			return err
		}
		path, err := writer.WriteSkill(skill.ID, text)
		report.Artifacts = append(report.Artifacts, Artifact{Kind: ArtifactSkill, Name: skill.ID, Path: path, Err: err})
		if err != nil {
			return err
		}
		logger.Debug("wrote skill", zap.String("skill", skill.ID), zap.String("path", path))
	}
	return nil
}

func (c *Compiler) writeUnits(man manifest.ProfileManifest, store *fragment.Store, writer *output.Writer, report *RunReport, logger *zap.Logger) error {
	assembler := assemble.NewAssembler(store)
	for _, name := range man.UnitNames() {
		unit := man.Units[name]
		doc, err := c.compileUnit(assembler, unit, man)
		if err != nil {
			report.Artifacts = append(report.Artifacts, Artifact{Kind: ArtifactUnit, Name: name, Err: err})
			return err
		}
		path, err := writer.WriteUnit(doc.SourceUnit, doc.RenderedText)
		report.Artifacts = append(report.Artifacts, Artifact{Kind: ArtifactUnit, Name: name, Path: path, Err: err})
		if err != nil {
			return err
		}
		logger.Debug("wrote unit", zap.String("unit", name), zap.String("path", path))
	}
	return nil
}

func (c *Compiler) compileUnit(assembler *assemble.Assembler, unit manifest.UnitDefinition, man manifest.ProfileManifest) (CompiledDocument, error) {
	sections, err := assembler.Assemble(unit, man)
	if err != nil {
		return CompiledDocument{}, err
	}
	text, err := c.renderer.Render(sections, unit.Name)
	if err != nil {
		return CompiledDocument{}, err
	}
	return CompiledDocument{RenderedText: text, SourceUnit: unit.Name}, nil
}
