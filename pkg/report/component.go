package report

import (
	"strings"

	"github.com/pkg/errors"

	v1 "github.com/qubesos/g2g-report/pkg/apis/gitlab/v1"
)

// componentPrefix is the project-name prefix shared by every component in
// the group.
const componentPrefix = "qubes-"

// ReleaseTrack selects which of the two tracked release lines a resolution
// targets. The values double as the release keys of the rendered report.
type ReleaseTrack string

const (
	TrackCurrent ReleaseTrack = "current_release"
	TrackNext    ReleaseTrack = "next_release"
)

// BranchPipelineFetcher looks up the latest pipeline of a branch that the
// group listing did not embed. Implemented by the gitlab client.
type BranchPipelineFetcher interface {
	BranchPipeline(fullPath, ref string) (v1.PipelineConnection, error)
}

// StageJobs holds at most one job per stage for a single distribution.
type StageJobs map[JobStage]Job

// Component is one buildable project of the CI group, constructed fresh from
// the project listing for the duration of a report run.
type Component struct {
	Name     string
	FullPath string
	WebURL   string

	current v1.PipelineConnection
	next    v1.PipelineConnection
	main    v1.PipelineConnection
}

func NewComponent(node v1.ProjectNode) *Component {
	return &Component{
		Name:     node.Name,
		FullPath: node.FullPath,
		WebURL:   node.WebURL,
		current:  node.Current,
		next:     node.Next,
		main:     node.Main,
	}
}

// ShortName strips the group prefix exactly once. Later occurrences of the
// prefix letters stay untouched, so "qubes-foo-qubes" becomes "foo-qubes".
func (c *Component) ShortName() string {
	return strings.TrimPrefix(c.Name, componentPrefix)
}

// ResolveJobs returns the component's classified jobs for one release track,
// grouped by distribution and stage. A branch override, when given, is used
// verbatim as the pipeline lookup key and resolved through the fetcher; a
// failed on-demand lookup is terminal. Without an override the current track
// reads the current release branch, and the next track reads the next release
// branch, falling back to main when that branch has no pipeline at all. An
// empty result is not an error.
func (c *Component) ResolveJobs(fetcher BranchPipelineFetcher, track ReleaseTrack, releaseNumber, branchOverride string) (map[string]StageJobs, error) {
	jobs, err := c.pipelineJobs(fetcher, track, branchOverride)
	if err != nil {
		return nil, err
	}
	return filterReleaseJobs(jobs, releaseNumber), nil
}

func (c *Component) pipelineJobs(fetcher BranchPipelineFetcher, track ReleaseTrack, branchOverride string) ([]v1.JobNode, error) {
	if branchOverride != "" {
		pipelines, err := fetcher.BranchPipeline(c.FullPath, branchOverride)
		if err != nil {
			return nil, errors.Wrapf(err, "looking up pipeline for branch %q of %s", branchOverride, c.Name)
		}
		return latestPipelineJobs(pipelines), nil
	}

	switch track {
	case TrackCurrent:
		return latestPipelineJobs(c.current), nil
	case TrackNext:
		if len(c.next.Nodes) > 0 {
			return latestPipelineJobs(c.next), nil
		}
		return latestPipelineJobs(c.main), nil
	default:
		return nil, errors.Errorf("unknown release track %q", track)
	}
}

// latestPipelineJobs reads the job list of the most recent pipeline; older
// runs are never inspected.
func latestPipelineJobs(pipelines v1.PipelineConnection) []v1.JobNode {
	if len(pipelines.Nodes) == 0 {
		return nil
	}
	return pipelines.Nodes[0].Jobs.Nodes
}

// filterReleaseJobs keeps jobs classified into a real stage whose release
// label equals the requested release number, grouped by distribution. When
// the CI reports duplicates for a (distribution, stage) pair the later one
// overwrites the earlier.
func filterReleaseJobs(nodes []v1.JobNode, releaseNumber string) map[string]StageJobs {
	distros := map[string]StageJobs{}
	for _, node := range nodes {
		job := ParseJob(node)
		if job.Stage == StageUnknown || job.Release != releaseNumber {
			continue
		}
		if distros[job.Distribution] == nil {
			distros[job.Distribution] = StageJobs{}
		}
		distros[job.Distribution][job.Stage] = job
	}
	return distros
}
