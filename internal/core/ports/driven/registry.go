package driven

// ParserRegistry maps format identifiers to parser plugins.
// It is populated at startup and read-only afterwards.
type ParserRegistry interface {
	// Register adds a parser. Claiming an identifier that is already
	// registered returns domain.ErrDuplicateParser.
	Register(parser Parser) error

	// Resolve returns the parser for a format identifier.
	// Returns domain.ErrUnsupportedFormat when nothing matches.
	Resolve(format string) (Parser, error)

	// ResolveByID returns the parser with the given plugin ID.
	// Returns domain.ErrUnknownParser when nothing matches.
	ResolveByID(id string) (Parser, error)

	// ListSupportedFormats returns every registered identifier, sorted.
	ListSupportedFormats() []string

	// Plugins describes the registered parsers, sorted by ID.
	Plugins() []PluginInfo
}
