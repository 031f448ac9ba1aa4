package flags

import (
	"github.com/spf13/pflag"

	"github.com/qubesos/g2g-report/pkg/builderconf"
)

// ReportFlags holds the report generation options.
type ReportFlags struct {
	CurrentRelease string
	NextRelease    string
	OutputDir      string
	TemplateDir    string
	BuilderConfURL string
}

func NewReportFlags() *ReportFlags {
	return &ReportFlags{
		OutputDir:      "public",
		BuilderConfURL: builderconf.DefaultURLTemplate,
	}
}

func (f *ReportFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.CurrentRelease, "current-release", f.CurrentRelease, "Current Qubes OS release number (i.e. 4.2)")
	fs.StringVar(&f.NextRelease, "next-release", f.NextRelease, "Next Qubes OS release number (i.e. 4.3)")
	fs.StringVar(&f.OutputDir, "output-dir", f.OutputDir, "Directory the Markdown and HTML reports are written to")
	fs.StringVar(&f.TemplateDir, "template-dir", f.TemplateDir, "Directory holding report templates, overriding the embedded ones")
	fs.StringVar(&f.BuilderConfURL, "builder-conf-url", f.BuilderConfURL, "Builder configuration URL template, %s replaced by the release number")
}
