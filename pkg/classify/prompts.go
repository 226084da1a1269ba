package classify

// The classifier backend is prompted to answer in a fixed two-token grammar.
// Anything outside the grammar is treated as a backend failure and routed to
// the deterministic fallback.

const classifyPromptTemplate = `You classify a user query for a conversational memory system.

Answer with exactly two tokens separated by a single space. No punctuation, no explanation.

First token:
CONVERSATIONAL if the query asks about the user's own prior conversation with the assistant.
GENERAL otherwise.

Second token:
CURRENT_SESSION if the query refers to the ongoing conversation.
CROSS_SESSION if the query refers to any past conversation or all history.

Query: {{.Query}}`

// ClassifyPromptTemplateData is the data passed to the classifier prompt template.
type ClassifyPromptTemplateData struct {
	Query string
}
