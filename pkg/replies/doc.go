// Package replies renders the user-facing chat and terminal messages of the
// order wizard from pongo2 templates. The default templates are embedded;
// operators can override any of them with WithBaseDir.
package replies
