// Package parsers provides the ParserRegistry and wires the built-in parser
// plugins. Each plugin lives in its own subpackage and knows how to turn one
// family of formats into plain text.
//
// Plugins are registered at startup, after which the registry is frozen.
package parsers
