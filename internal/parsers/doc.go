// Package parsers provides implementations of the Parser interface for
// the supported source formats. Each parser knows how to extract
// ordered, locatable sections from one kind of file.
//
// Parsers are registered with the Registry at startup; the first parser
// whose Supports accepts a source wins.
package parsers
