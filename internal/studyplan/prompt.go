package studyplan

import (
	"fmt"
	"strings"

	"github.com/bull/syllabus-coach/internal/storage"
)

// RefusalPhrase is what the model is told to answer when the retrieved context
// does not cover the requested heading.
const RefusalPhrase = "I couldn't find that heading in the uploaded syllabus."

const systemTemplate = `You are a study coach. Use ONLY the provided context from the syllabus.
If the heading/topic is not found, say: "%s"

Answer format:
1) Core concepts (bullets)
2) Best study order (step-by-step)
3) Study plan for %d minutes
4) Key terms/subtopics
5) References (include page numbers if available)
`

const humanTemplate = `Heading/topic: %s
Minutes: %d

Context:
%s`

// SystemPrompt returns the study-coach instruction for a session of minutes.
func SystemPrompt(minutes int) string {
	return fmt.Sprintf(systemTemplate, RefusalPhrase, minutes)
}

// HumanPrompt returns the user message carrying the heading and the context.
func HumanPrompt(heading string, minutes int, contextText string) string {
	return fmt.Sprintf(humanTemplate, heading, minutes, contextText)
}

// FormatContext joins retrieved chunks in rank order, tagging each with its
// source page so the model can cite it.
func FormatContext(chunks []*storage.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c == nil || c.Chunk == nil {
			continue
		}
		text := strings.TrimSpace(c.Content)
		if c.Page > 0 {
			text = fmt.Sprintf("[Page %d] %s", c.Page, text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
