package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
)

var pageTmpl *template.Template

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	pageTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// ResetTemplates drops the parsed templates; rendering fails until the next
// LoadTemplates.
func ResetTemplates() {
	pageTmpl = nil
}

// ResultData is what one pipeline run shows: at most one of Error, Warning or
// ChartSVG is set.
type ResultData struct {
	Params   string
	Error    string
	Warning  string
	ChartSVG template.HTML
	Rows     int
}

type PageData struct {
	Title  string
	Start  string
	End    string
	Result ResultData
}

func RenderPage(w io.Writer, data *PageData) error {
	if pageTmpl == nil {
		return errors.New("page template not loaded: call views.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "index.html", data)
}

// RenderResultPartial executes only the result fragment into w.
func RenderResultPartial(w io.Writer, data *ResultData) error {
	if pageTmpl == nil {
		return errors.New("page template not loaded: call views.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "partials/result.html", data)
}
