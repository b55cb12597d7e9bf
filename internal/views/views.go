// Package views embeds the HTML templates and static assets served by the web app.
package views

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Layout is the page shell every view renders inside.
const Layout = "layouts/base"

// NewEngine returns the template engine over the embedded templates.
// Set reload when templates should be re-read on every render.
func NewEngine(reload bool) *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.Reload(reload)
	engine.AddFuncMap(Funcs())
	return engine
}

// Static exposes the embedded static directory for the filesystem middleware.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			return t.Format("02 January 2006")
		},
		"liked": func(set map[uint]bool, id uint) bool {
			return set[id]
		},
		"nonempty": func(s string) bool {
			return strings.TrimSpace(s) != ""
		},
	}
}
