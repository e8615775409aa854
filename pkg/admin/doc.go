// Package admin serves the JSON administration API: password login with
// bearer tokens, redeem code generation and listing, and access grants.
// Requests are validated against the embedded OpenAPI document before they
// reach a handler.
package admin
