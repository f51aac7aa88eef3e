package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

const templateExtension = ".gohtml"

var (
	//go:embed static
	embeddedStaticFiles embed.FS

	//go:embed templates
	embeddedTemplates embed.FS
)

// subFS roots the embedded tree at dir. The directories are embedded at
// compile time, so a failure here is a build defect.
func subFS(content embed.FS, dir string) http.FileSystem {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

// staticFS serves the files below static/ without the directory prefix.
func staticFS() http.FileSystem {
	return subFS(embeddedStaticFiles, "static")
}

// embeddedViews returns a template engine reading the compiled in
// templates. Names are relative to templates/, e.g. "layouts/base".
func embeddedViews() *html.Engine {
	return html.NewFileSystem(subFS(embeddedTemplates, "templates"), templateExtension)
}
