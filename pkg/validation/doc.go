// Package validation holds the pure field parsers used to gate wizard step
// transitions. Every failure is a go-errors validation error carrying a text
// code and the offending field so frontends can re-prompt the right input.
package validation
