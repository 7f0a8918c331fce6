package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptQuestionCheck instructs the intent gate to answer yes or no.
	// This prompt has no placeholders.
	PromptQuestionCheck = "question_check"

	// PromptChatSystem grounds answers in retrieved document context.
	// The template expects a {{context}} placeholder.
	PromptChatSystem = "chat_system"

	// PromptChatSystemNoContext is used when retrieval was skipped or found nothing.
	// This prompt has no placeholders.
	PromptChatSystemNoContext = "chat_system_no_context"
)

// ContextPlaceholder is substituted with retrieved context in PromptChatSystem.
const ContextPlaceholder = "{{context}}"

// defaultPrompts are the built-in templates. File-backed stores seed their
// directory with these and services fall back to them.
var defaultPrompts = map[string]string{
	PromptQuestionCheck: `You decide whether a user message needs information from an uploaded document to be answered.
Answer "yes" if the message asks about the document, its contents, or anything that could be answered from it.
Answer "no" for greetings, small talk, or requests unrelated to the document.
Reply with a single word: yes or no.`,

	PromptChatSystem: `You are a helpful assistant answering questions about a document the user uploaded.
Use the following excerpts from the document to answer. If the excerpts do not contain the answer, say so.

Document excerpts:
{{context}}`,

	PromptChatSystemNoContext: `You are a helpful assistant for a user who has uploaded a document.
No document excerpts are relevant to this message. Respond conversationally and invite the user to ask about the document.`,
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// PromptNames lists every well-known prompt.
func PromptNames() []string {
	return []string{PromptQuestionCheck, PromptChatSystem, PromptChatSystemNoContext}
}
