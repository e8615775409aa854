// Package console runs the order and settings wizards in a terminal for a
// single local user, using survey prompts.
package console
