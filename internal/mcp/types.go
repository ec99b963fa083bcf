// Package mcp exposes the study coach as Model Context Protocol tools.
package mcp

import "github.com/bull/syllabus-coach/internal/markdown"

// StudyPlanInput defines the input parameters for the study_plan tool.
type StudyPlanInput struct {
	// SyllabusID is the id returned by POST /upload.
	SyllabusID string `json:"syllabus_id" jsonschema:"the syllabus id returned by the upload endpoint"`
	// Heading is the topic to plan for.
	Heading string `json:"heading" jsonschema:"heading or topic from the syllabus to study"`
	// Minutes is the study budget; 60 when omitted.
	Minutes int `json:"minutes,omitempty" jsonschema:"study time budget in minutes (default 60)"`
	// RenderHTML also returns the answer as HTML with a heading outline.
	RenderHTML bool `json:"render_html,omitempty" jsonschema:"also return the answer rendered as HTML with its heading outline"`
}

// StudyPlanOutput contains the generated plan.
type StudyPlanOutput struct {
	// Found is false when the syllabus id is not registered.
	Found bool `json:"found"`
	// Answer is the model's study plan, verbatim.
	Answer string `json:"answer,omitempty"`
	// AnswerHTML is set when RenderHTML was requested.
	AnswerHTML string                 `json:"answer_html,omitempty"`
	Outline    []markdown.OutlineItem `json:"outline,omitempty"`
	// Message explains a not-found result.
	Message string `json:"message,omitempty"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the running coach.
type StatusOutput struct {
	SyllabiLoaded int      `json:"syllabi_loaded"`
	Model         string   `json:"model"`
	VectorStore   string   `json:"vector_store"`
	Collections   []string `json:"collections"`
}
