package driven

// PromptAnswer names the grounded-answer template. It takes two %s verbs:
// the numbered sources block, then the question.
const PromptAnswer = "answer"

// PromptStore loads prompt templates by name, typically from files the
// operator can edit.
type PromptStore interface {
	// Load returns an error when no template exists and no default applies.
	Load(name string) (string, error)

	// Reload drops cached templates.
	Reload()
}

// PromptStoreAware is implemented by services whose built-in prompts can be
// overridden after construction.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
