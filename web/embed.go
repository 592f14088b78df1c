// Package web embeds the HTML templates and static assets served by the
// application.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates returns the view templates, rooted at the templates directory.
func Templates() fs.FS {
	return mustSub(templates, "templates")
}

// Static returns the static assets, rooted at the static directory.
func Static() fs.FS {
	return mustSub(static, "static")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
