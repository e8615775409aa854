package templates

import (
	"embed"
	"io/fs"
)

//go:embed catalog/*.yaml
var embeddedCatalog embed.FS

//go:embed documents/*.html
var embeddedDocuments embed.FS

// CatalogFS returns the bundled template catalog.
func CatalogFS() fs.FS {
	return mustSub(embeddedCatalog, "catalog")
}

// DocumentsFS returns the bundled document bodies.
func DocumentsFS() fs.FS {
	return mustSub(embeddedDocuments, "documents")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		// embed guarantees the directory exists
		panic(err)
	}
	return sub
}
