package llm

import (
	"fmt"
	"strings"

	"github.com/zoonderkins/augment-lite/internal/store"
)

// AnswerSystemPrompt instructs citation-only answers for answer generation.
const AnswerSystemPrompt = "You answer based ONLY on the provided Evidence. " +
	"After each key conclusion, cite the source as [source:<file:line>]. " +
	"If the evidence is insufficient, say clearly that you don't know and " +
	"list the files or keywords that would be needed."

// AccumulatedSystemPrompt demands a sectioned answer per query aspect.
const AccumulatedSystemPrompt = "You answer based ONLY on the provided Evidence. " +
	"After each key conclusion, cite the source as [source:<file:line>]. " +
	"If evidence is insufficient for any aspect, clearly state what is missing. " +
	"Structure your answer with clear sections matching the query aspects."

// decomposeSystemPrompt asks for aspect sub-queries, one per line.
const decomposeSystemPrompt = "You decompose complex code analysis queries into specific sub-queries. " +
	"Each sub-query should target one specific aspect. " +
	"Return 3-5 sub-queries, one per line. No numbering or bullets."

// subagentPreviewLen is the per-candidate text preview length in the
// re-ranking prompt.
const subagentPreviewLen = 200

// SubagentFilterMessages builds the single re-ranking prompt listing every
// candidate with index, source, score, and a short preview.
func SubagentFilterMessages(query string, candidates []*store.Hit, maxResults int) []Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nCandidates:\n", query)
	for i, h := range candidates {
		preview := h.Text
		if len(preview) > subagentPreviewLen {
			preview = preview[:subagentPreviewLen]
		}
		fmt.Fprintf(&sb, "[%d] %s (score %.3f)\n%s\n\n", i, h.Source, h.Score, preview)
	}
	fmt.Fprintf(&sb,
		"Select the %d candidates most relevant to the query. "+
			"Reply with a comma-separated list of their indices only, best first.",
		maxResults)

	return []Message{
		{Role: "system", Content: "You rank code search results by relevance to a query. " +
			"Reply with indices only, no explanation."},
		{Role: "user", Content: sb.String()},
	}
}

// QueryExpansionMessages asks for a single short alternative phrasing given
// the original query and the sources found so far.
func QueryExpansionMessages(originalQuery string, topSources []string, iteration int) []Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original query: %s\n", originalQuery)
	fmt.Fprintf(&sb, "Iteration: %d\n", iteration)
	if len(topSources) > 0 {
		fmt.Fprintf(&sb, "Sources found so far:\n")
		for _, s := range topSources {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	sb.WriteString("\nSuggest one short alternative search phrasing that could surface " +
		"related code the current results miss. Reply with the phrasing only.")

	return []Message{
		{Role: "system", Content: "You expand code search queries with alternative terms. " +
			"Reply with a single short query, no explanation."},
		{Role: "user", Content: sb.String()},
	}
}

// DecomposeMessages asks for 3-5 aspect sub-queries.
func DecomposeMessages(query string) []Message {
	return []Message{
		{Role: "system", Content: decomposeSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Decompose this query into specific search terms:\n\n%s", query)},
	}
}
