// Package render turns a completed order session into a document. NewContext
// derives the order numbers and fallbacks; Engine substitutes the token
// vocabulary into a document body in a single longest-match pass.
package render
