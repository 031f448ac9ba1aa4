package reporthtml

import (
	"bytes"
	htmltemplate "html/template"
	"io/fs"
	"os"
	"path/filepath"
	texttemplate "text/template"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/qubesos/g2g-report/pkg/report"
)

const (
	markdownTemplateName = "report.md.tmpl"
	htmlTemplateName     = "report.html.tmpl"
)

// ReportData is the payload both templates receive.
type ReportData struct {
	CurrentRelease string
	NextRelease    string
	Status         report.StatusTable
}

// Renderer writes the Markdown and HTML renderings of a status table. The
// templates come from an injected filesystem and are parsed once at
// construction; no file handles outlive it.
type Renderer struct {
	markdown  *texttemplate.Template
	html      *htmltemplate.Template
	outputDir string
}

func NewRenderer(templates fs.FS, outputDir string) (*Renderer, error) {
	markdown, err := texttemplate.ParseFS(templates, markdownTemplateName)
	if err != nil {
		return nil, errors.Wrap(err, "parsing markdown template")
	}

	html, err := htmltemplate.ParseFS(templates, htmlTemplateName)
	if err != nil {
		return nil, errors.Wrap(err, "parsing html template")
	}

	return &Renderer{
		markdown:  markdown,
		html:      html,
		outputDir: outputDir,
	}, nil
}

// Render writes index.md and index.html to the output directory. Both
// documents are rendered in memory first so a template failure never leaves
// a partial report behind.
func (r *Renderer) Render(table report.StatusTable, currentRelease, nextRelease string) error {
	data := ReportData{
		CurrentRelease: currentRelease,
		NextRelease:    nextRelease,
		Status:         table,
	}

	var markdown bytes.Buffer
	if err := r.markdown.ExecuteTemplate(&markdown, markdownTemplateName, data); err != nil {
		return errors.Wrap(err, "rendering markdown report")
	}

	var html bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, htmlTemplateName, data); err != nil {
		return errors.Wrap(err, "rendering html report")
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %s", r.outputDir)
	}

	for _, file := range []struct {
		name string
		body []byte
	}{
		{"index.md", markdown.Bytes()},
		{"index.html", html.Bytes()},
	} {
		path := filepath.Join(r.outputDir, file.name)
		if err := os.WriteFile(path, file.body, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		log.WithField("path", path).Info("wrote report")
	}

	return nil
}
