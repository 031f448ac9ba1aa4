package report

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/qubesos/g2g-report/pkg/util"
)

// StageStatus is one rendered cell of the report: a link to the job details
// page, the status badge file name and the link title.
type StageStatus struct {
	URL   string
	Badge string
	Text  string
}

// ReleaseStatus summarizes one release track of one component for one
// distribution. A stage field is nil when no job was found for it; at least
// one is always set, otherwise the release entry is omitted entirely.
type ReleaseStatus struct {
	LastJobTime      string
	LastJobTimeDelta string

	Build   *StageStatus
	Install *StageStatus
	Repro   *StageStatus
}

// ComponentStatus is one row of a distribution's table. A release field is
// nil when no job matched that track.
type ComponentStatus struct {
	ShortName  string
	ProjectURL string

	CurrentRelease *ReleaseStatus
	NextRelease    *ReleaseStatus
}

// DistributionStatus groups the component rows of one target distribution.
type DistributionStatus struct {
	Name       string
	Components []ComponentStatus
}

// StatusTable is the final report structure, sorted by distribution name and
// within a distribution by component short name, so identical input data
// always renders identically.
type StatusTable []DistributionStatus

// Aggregator combines resolver output across all components and both release
// tracks into a StatusTable. It owns the structure while building it and
// hands it over complete; nothing is shared mid-flight.
type Aggregator struct {
	fetcher   BranchPipelineFetcher
	gitlabURL string
	group     string
	now       func() time.Time
}

func NewAggregator(fetcher BranchPipelineFetcher, gitlabURL, group string) *Aggregator {
	return &Aggregator{
		fetcher:   fetcher,
		gitlabURL: gitlabURL,
		group:     group,
		now:       time.Now,
	}
}

// Aggregate resolves both release tracks for every component and merges the
// results into the shared table keyed first by distribution. Overrides are
// looked up by component short name; a missing entry means no override.
func (a *Aggregator) Aggregate(components []*Component, currentRelease, nextRelease string, currentOverrides, nextOverrides map[string]string) (StatusTable, error) {
	byDistro := map[string]map[string]*ComponentStatus{}
	now := a.now()

	for _, component := range components {
		log.WithField("component", component.Name).Info("resolving build jobs")

		for _, track := range []ReleaseTrack{TrackCurrent, TrackNext} {
			releaseNumber, overrides := currentRelease, currentOverrides
			if track == TrackNext {
				releaseNumber, overrides = nextRelease, nextOverrides
			}

			resolved, err := component.ResolveJobs(a.fetcher, track, releaseNumber, overrides[component.ShortName()])
			if err != nil {
				return nil, err
			}

			for distro, stageJobs := range resolved {
				release := a.releaseStatus(stageJobs, now)
				if release == nil {
					continue
				}

				if byDistro[distro] == nil {
					byDistro[distro] = map[string]*ComponentStatus{}
				}
				entry := byDistro[distro][component.ShortName()]
				if entry == nil {
					entry = &ComponentStatus{
						ShortName:  component.ShortName(),
						ProjectURL: fmt.Sprintf("%s/%s/%s", a.gitlabURL, a.group, component.Name),
					}
					byDistro[distro][component.ShortName()] = entry
				}

				if track == TrackCurrent {
					entry.CurrentRelease = release
				} else {
					entry.NextRelease = release
				}
			}
		}
	}

	return sortTable(byDistro), nil
}

// releaseStatus builds one release entry from the resolved stage jobs. The
// timestamp summary uses the most recent creation time among the jobs, even
// when only a single stage is present.
func (a *Aggregator) releaseStatus(jobs StageJobs, now time.Time) *ReleaseStatus {
	if len(jobs) == 0 {
		return nil
	}

	status := &ReleaseStatus{}
	var latest time.Time
	for _, stage := range []JobStage{StageBuild, StageInstall, StageRepro} {
		job, ok := jobs[stage]
		if !ok {
			continue
		}
		if job.CreatedAt.After(latest) {
			latest = job.CreatedAt
		}

		entry := &StageStatus{
			URL:   a.gitlabURL + job.DetailsPath,
			Badge: fmt.Sprintf("%s_%s.svg", stage, job.Status),
			Text:  fmt.Sprintf("%s Status", stage.Label()),
		}
		switch stage {
		case StageBuild:
			status.Build = entry
		case StageInstall:
			status.Install = entry
		case StageRepro:
			status.Repro = entry
		}
	}

	status.LastJobTime = util.FormatAbsoluteTime(latest)
	status.LastJobTimeDelta = util.FormatRelativeTime(latest, now)
	return status
}

func sortTable(byDistro map[string]map[string]*ComponentStatus) StatusTable {
	distros := make([]string, 0, len(byDistro))
	for name := range byDistro {
		distros = append(distros, name)
	}
	sort.Strings(distros)

	table := make(StatusTable, 0, len(byDistro))
	for _, distro := range distros {
		rows := byDistro[distro]
		names := make([]string, 0, len(rows))
		for name := range rows {
			names = append(names, name)
		}
		sort.Strings(names)

		status := DistributionStatus{Name: distro, Components: make([]ComponentStatus, 0, len(rows))}
		for _, name := range names {
			status.Components = append(status.Components, *rows[name])
		}
		table = append(table, status)
	}

	return table
}
