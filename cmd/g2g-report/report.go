package main

import (
	"io/fs"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qubesos/g2g-report/pkg/builderconf"
	"github.com/qubesos/g2g-report/pkg/flags"
	"github.com/qubesos/g2g-report/pkg/gitlab"
	"github.com/qubesos/g2g-report/pkg/html/reporthtml"
	"github.com/qubesos/g2g-report/pkg/report"
)

func NewReportCommand() *cobra.Command {
	gitlabFlags := flags.NewGitLabFlags()
	reportFlags := flags.NewReportFlags()

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Query GitLab pipelines and write the Markdown and HTML status reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := reportTemplates(reportFlags.TemplateDir)
			if err != nil {
				return err
			}
			renderer, err := reporthtml.NewRenderer(templates, reportFlags.OutputDir)
			if err != nil {
				return errors.WithMessage(err, "could not load report templates")
			}

			currentOverrides := branchOverrides(reportFlags.BuilderConfURL, reportFlags.CurrentRelease)
			nextOverrides := branchOverrides(reportFlags.BuilderConfURL, reportFlags.NextRelease)

			client := gitlab.NewClient(gitlabFlags.URL, gitlabFlags.Group,
				reportFlags.CurrentRelease, reportFlags.NextRelease,
				gitlabFlags.Token(), gitlabFlags.PageSize)

			log.Info("fetching components")
			projects, err := client.GroupProjects()
			if err != nil {
				return errors.WithMessage(err, "could not list group projects")
			}

			components := make([]*report.Component, 0, len(projects))
			for _, project := range projects {
				components = append(components, report.NewComponent(project))
			}

			aggregator := report.NewAggregator(client, gitlabFlags.URL, gitlabFlags.Group)
			table, err := aggregator.Aggregate(components,
				reportFlags.CurrentRelease, reportFlags.NextRelease,
				currentOverrides, nextOverrides)
			if err != nil {
				return errors.WithMessage(err, "could not aggregate pipeline status")
			}

			if err := renderer.Render(table, reportFlags.CurrentRelease, reportFlags.NextRelease); err != nil {
				return errors.WithMessage(err, "could not write report")
			}

			return nil
		},
	}

	gitlabFlags.BindFlags(cmd.Flags())
	reportFlags.BindFlags(cmd.Flags())
	cmd.MarkFlagRequired("current-release") //nolint:errcheck
	cmd.MarkFlagRequired("next-release")    //nolint:errcheck

	return cmd
}

// branchOverrides downgrades builder-configuration failures to a warning:
// the run continues with no overrides for that release.
func branchOverrides(urlTemplate, release string) map[string]string {
	overrides, err := builderconf.BranchOverrides(urlTemplate, release)
	if err != nil {
		log.WithError(err).WithField("release", release).
			Warning("builder configuration unavailable, continuing without branch overrides")
		return map[string]string{}
	}
	return overrides
}

func reportTemplates(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(templatesFS, "templates")
}
