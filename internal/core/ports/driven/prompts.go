package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return domain.ErrNotFound.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use text/template syntax.
const (
	// PromptAnswer answers a question from retrieved sources.
	// Fields: .Query, .Context.
	PromptAnswer = "answer"

	// PromptAnswerNoSources answers when nothing relevant was retrieved.
	// Fields: .Query.
	PromptAnswerNoSources = "answer_no_sources"

	// PromptSummary summarises one document.
	// Fields: .Name, .Content.
	PromptSummary = "summary"
)
