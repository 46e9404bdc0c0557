package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"

	"aqi-estimator/internal/modules/airquality/types"
)

var pageTmpl *template.Template

// loadTemplatesFromFS parses page templates from dir in fsys. Tests use it to
// simulate broken template sets.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pageTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads the embedded page templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type IndexData struct {
	Title          string
	MaxUploadBytes int64
	Recent         []types.Upload
}

type ResultData struct {
	Title      string
	ID         string
	Upload     *types.Upload
	ChartNames []string
}

func RenderIndex(w io.Writer, data *IndexData) error {
	if pageTmpl == nil {
		return errors.New("index template not loaded: call views.LoadTemplates during startup")
	}
	if data.Title == "" {
		data.Title = "Upload"
	}
	return pageTmpl.ExecuteTemplate(w, "index.html", data)
}

func RenderResult(w io.Writer, data *ResultData) error {
	if pageTmpl == nil {
		return errors.New("result template not loaded: call views.LoadTemplates during startup")
	}
	if data.Title == "" {
		data.Title = "Results"
	}
	return pageTmpl.ExecuteTemplate(w, "result.html", data)
}
