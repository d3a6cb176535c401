// Package render turns assembled section maps into final document text.
// Rendering is deliberately dumb: variable interpolation and list iteration
// only. All nested content has already been flattened by the assembler, so
// no recursive resolution or cycle handling exists here.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/kingrea/loom/internal/assemble"
)

// SkillMetadata carries the interpolatable fields of one compiled skill.
type SkillMetadata struct {
	ID          string
	Name        string
	Description string
}

var unitTemplate = template.Must(template.New("unit").Parse(
	`{{- range $i, $section := . }}{{ if $i }}

{{ end }}{{ $section }}{{ end }}
`))

var skillTemplate = template.Must(template.New("skill").Parse(
	`---
name: {{ .Meta.Name }}
{{- if .Meta.Description }}
description: {{ .Meta.Description }}
{{- end }}
---

# Skill: {{ .Meta.Name }}

{{ .Body }}
`))

// Renderer substitutes assembled sections and unit metadata into the fixed
// document templates.
type Renderer struct{}

// NewRenderer builds a renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the final unit document. Sections are emitted in the
// canonical order with blank-line separation; empty sections are skipped so
// a unit without, say, examples carries no dangling heading. All metadata
// already lives inside the frontmatter section, so the template only needs
// the ordered section list.
func (r *Renderer) Render(sections assemble.SectionMap, unitName string) (string, error) {
	ordered := make([]string, 0, len(assemble.CanonicalOrder))
	for _, name := range assemble.CanonicalOrder {
		content := strings.TrimRight(sections[name], "\n")
		if content == "" {
			continue
		}
		ordered = append(ordered, content)
	}
	if len(ordered) == 0 {
		return "", fmt.Errorf("render: unit %s: no sections to render", unitName)
	}

	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, ordered); err != nil {
		return "", fmt.Errorf("render: unit %s: %w", unitName, err)
	}
	return buf.String(), nil
}

// RenderSkill produces a standalone skill document from its metadata and
// body content.
func (r *Renderer) RenderSkill(meta SkillMetadata, body string) (string, error) {
	if meta.Name == "" {
		meta.Name = meta.ID
	}
	var buf bytes.Buffer
	data := struct {
		Meta SkillMetadata
		Body string
	}{Meta: meta, Body: strings.TrimSpace(body)}
	if err := skillTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: skill %s: %w", meta.ID, err)
	}
	return buf.String(), nil
}
