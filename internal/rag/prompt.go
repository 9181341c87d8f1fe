package rag

import (
	"fmt"
	"strings"

	"contract-review/internal/vectorstore"

	"github.com/tmc/langchaingo/llms"
)

// reviewPrompt assembles the grounded QA prompt from named fields instead of
// interpolating user-controlled text into a raw template string.
type reviewPrompt struct {
	System   string
	Context  string
	Question string
}

func (p reviewPrompt) Messages() []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, p.System),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Context:\n%s\n\nQuestion: %s", p.Context, p.Question)),
	}
}

// contextBlock concatenates the retrieved chunk texts in retrieval order.
func contextBlock(results []vectorstore.SearchResult) string {
	var b strings.Builder
	for _, res := range results {
		b.WriteString(res.Chunk.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
