package studyplan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bull/syllabus-coach/internal/storage"
)

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(45)

	assert.Contains(t, prompt, "You are a study coach. Use ONLY the provided context from the syllabus.")
	assert.Contains(t, prompt, `say: "`+RefusalPhrase+`"`)
	assert.Contains(t, prompt, "3) Study plan for 45 minutes")
	assert.Contains(t, prompt, "5) References (include page numbers if available)")
}

func TestHumanPrompt(t *testing.T) {
	prompt := HumanPrompt("Dynamic Programming", 90, "[Page 3] memoization")

	assert.Equal(t, "Heading/topic: Dynamic Programming\nMinutes: 90\n\nContext:\n[Page 3] memoization", prompt)
}

func TestFormatContext(t *testing.T) {
	hits := []*storage.ScoredChunk{
		{Chunk: &storage.Chunk{Page: 7, Content: "  Graphs: BFS, DFS  "}, Score: 0.9},
		nil,
		{Chunk: &storage.Chunk{Content: "no page"}, Score: 0.5},
		{Chunk: &storage.Chunk{Page: 2, Content: "Sorting"}, Score: 0.4},
	}

	assert.Equal(t, "[Page 7] Graphs: BFS, DFS\n\nno page\n\n[Page 2] Sorting", FormatContext(hits))
	assert.Empty(t, FormatContext(nil))
}
