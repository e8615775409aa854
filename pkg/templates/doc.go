// Package templates holds the product template catalog: descriptors keyed by
// id with their capability sets, plus the HTML documents rendered for each.
// The bundled catalog is embedded; LoadFS accepts any fs.FS so deployments can
// ship their own.
package templates
