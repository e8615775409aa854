// Package wizard sequences the multi-step order form. A Wizard checks access,
// collects and validates each step, then renders, dispatches and accounts for
// the finished order. Sessions live in a SessionStore that serialises every
// transition per user and expires idle entries.
package wizard
