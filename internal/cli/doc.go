// Package cli implements the orderwizard command line.
package cli
