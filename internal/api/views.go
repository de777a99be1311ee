package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
	"github.com/jeovahfialho/papertrader/internal/service"
)

const layout = "layout"

//go:embed views/*.html
var viewsFS embed.FS

// NewViews builds the template engine over the embedded views.
func NewViews() *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("usd", service.FormatUSD)
	return engine
}
