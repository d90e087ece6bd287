package driven

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int

	// Truncate returns the longest prefix of text within maxTokens tokens.
	Truncate(text string, maxTokens int) string
}
