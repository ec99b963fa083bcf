package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/syllabus-coach/internal/coach"
	"github.com/bull/syllabus-coach/internal/markdown"
)

// makeStudyPlanHandler creates the study_plan tool handler.
// An unknown syllabus is a normal result with Found=false, not a tool error.
func makeStudyPlanHandler(c Coach, renderer *markdown.Renderer) func(
	context.Context, *mcp.CallToolRequest, StudyPlanInput,
) (*mcp.CallToolResult, StudyPlanOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StudyPlanInput) (
		*mcp.CallToolResult, StudyPlanOutput, error,
	) {
		minutes := input.Minutes
		if minutes == 0 {
			minutes = coach.DefaultMinutes
		}

		answer, err := c.Chat(ctx, coach.ChatRequest{
			SyllabusID: input.SyllabusID,
			Heading:    input.Heading,
			Minutes:    minutes,
		})
		if err != nil {
			if kind, ok := coach.KindOf(err); ok && kind == coach.KindUnknownSession {
				return nil, StudyPlanOutput{
					Found:   false,
					Message: err.Error(),
				}, nil
			}
			return nil, StudyPlanOutput{}, fmt.Errorf("study plan failed: %w", err)
		}

		out := StudyPlanOutput{Found: true, Answer: answer}
		if input.RenderHTML {
			rendered, err := renderer.Render(answer)
			if err != nil {
				return nil, StudyPlanOutput{}, fmt.Errorf("render answer: %w", err)
			}
			out.AnswerHTML = rendered.HTML
			out.Outline = rendered.Outline
		}
		return nil, out, nil
	}
}

// makeStatusHandler creates the coach_status tool handler.
// A vector store failure is reported in the output rather than failing the tool.
func makeStatusHandler(c Coach, collections Collections) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		health := c.Health()
		out := StatusOutput{
			SyllabiLoaded: health.SessionCount,
			Model:         health.ModelName,
			VectorStore:   "not configured",
			Collections:   []string{},
		}
		if collections == nil {
			return nil, out, nil
		}

		probe, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := collections.Health(probe); err != nil {
			out.VectorStore = "disconnected"
			return nil, out, nil
		}
		out.VectorStore = "connected"

		names, err := collections.ListCollections(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("failed to list collections: %w", err)
		}
		if names != nil {
			out.Collections = names
		}
		return nil, out, nil
	}
}
