package report

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/qubesos/g2g-report/pkg/apis/gitlab/v1"
)

type fakeFetcher struct {
	pipelines map[string]v1.PipelineConnection
	requests  []string
	err       error
}

func (f *fakeFetcher) BranchPipeline(fullPath, ref string) (v1.PipelineConnection, error) {
	f.requests = append(f.requests, fullPath+"@"+ref)
	if f.err != nil {
		return v1.PipelineConnection{}, f.err
	}
	return f.pipelines[ref], nil
}

func pipelineWith(jobs ...v1.JobNode) v1.PipelineConnection {
	return v1.PipelineConnection{Nodes: []v1.PipelineNode{{Jobs: v1.JobConnection{Nodes: jobs}}}}
}

func jobNode(name, status string) v1.JobNode {
	return v1.JobNode{
		Name:           name,
		CreatedAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		DetailedStatus: v1.DetailedStatus{Text: status, DetailsPath: "/jobs/" + name},
	}
}

func TestShortName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"qubes-core-agent-linux", "core-agent-linux"},
		{"qubes-foo-qubes", "foo-qubes"},
		{"grub2", "grub2"},
		{"qubes-", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			component := NewComponent(v1.ProjectNode{Name: test.name})
			assert.Equal(t, test.expected, component.ShortName())
		})
	}
}

func TestResolveJobsCurrentRelease(t *testing.T) {
	component := NewComponent(v1.ProjectNode{
		Name: "qubes-core-agent-linux",
		Current: pipelineWith(
			jobNode("r4.2:build:fedora-40", "success"),
			jobNode("r4.2:install:fedora-40", "failed"),
			jobNode("r4.2:build:debian-12", "running"),
			jobNode("r4.3:build:fedora-40", "success"),
			jobNode("foo", "success"),
			jobNode("r4.2:deploy:fedora-40", "success"),
		),
	})

	resolved, err := component.ResolveJobs(&fakeFetcher{}, TrackCurrent, "4.2", "")
	require.NoError(t, err)

	require.Len(t, resolved, 2)
	require.Contains(t, resolved, "fedora-40")
	require.Contains(t, resolved, "debian-12")
	assert.Equal(t, StatusSuccess, resolved["fedora-40"][StageBuild].Status)
	assert.Equal(t, StatusFailure, resolved["fedora-40"][StageInstall].Status)
	assert.Equal(t, StatusUnknown, resolved["debian-12"][StageBuild].Status)
}

func TestResolveJobsNextFallsBackToMain(t *testing.T) {
	component := NewComponent(v1.ProjectNode{
		Name: "qubes-gui-daemon",
		Main: pipelineWith(jobNode("r4.3:build:fedora-40", "success")),
	})

	resolved, err := component.ResolveJobs(&fakeFetcher{}, TrackNext, "4.3", "")
	require.NoError(t, err)
	require.Contains(t, resolved, "fedora-40")
	assert.Equal(t, StatusSuccess, resolved["fedora-40"][StageBuild].Status)
}

func TestResolveJobsNextPrefersNextBranch(t *testing.T) {
	component := NewComponent(v1.ProjectNode{
		Name: "qubes-gui-daemon",
		Next: pipelineWith(jobNode("r4.3:build:fedora-40", "success")),
		Main: pipelineWith(jobNode("r4.3:build:debian-12", "success")),
	})

	resolved, err := component.ResolveJobs(&fakeFetcher{}, TrackNext, "4.3", "")
	require.NoError(t, err)
	assert.Contains(t, resolved, "fedora-40")
	assert.NotContains(t, resolved, "debian-12")
}

func TestResolveJobsNextEmptyPipelineDoesNotFallBack(t *testing.T) {
	// A pipeline that ran with zero matching jobs is still a pipeline: main
	// is only consulted when the next branch never ran at all.
	component := NewComponent(v1.ProjectNode{
		Name: "qubes-gui-daemon",
		Next: pipelineWith(),
		Main: pipelineWith(jobNode("r4.3:build:debian-12", "success")),
	})

	resolved, err := component.ResolveJobs(&fakeFetcher{}, TrackNext, "4.3", "")
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolveJobsNoPipelinesAnywhere(t *testing.T) {
	component := NewComponent(v1.ProjectNode{Name: "qubes-gui-daemon"})

	resolved, err := component.ResolveJobs(&fakeFetcher{}, TrackNext, "4.3", "")
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolveJobsBranchOverride(t *testing.T) {
	fetcher := &fakeFetcher{
		pipelines: map[string]v1.PipelineConnection{
			"feature-branch": pipelineWith(jobNode("r4.3:build:fedora-40", "success")),
		},
	}
	component := NewComponent(v1.ProjectNode{
		Name:     "qubes-gui-daemon",
		FullPath: "QubesOS/qubes-gui-daemon",
		// embedded branches would yield different results; the override wins
		Next: pipelineWith(jobNode("r4.3:build:debian-12", "failed")),
	})

	resolved, err := component.ResolveJobs(fetcher, TrackNext, "4.3", "feature-branch")
	require.NoError(t, err)
	assert.Equal(t, []string{"QubesOS/qubes-gui-daemon@feature-branch"}, fetcher.requests)
	require.Contains(t, resolved, "fedora-40")
	assert.NotContains(t, resolved, "debian-12")
}

func TestResolveJobsBranchOverrideFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("remote unavailable")}
	component := NewComponent(v1.ProjectNode{Name: "qubes-gui-daemon"})

	_, err := component.ResolveJobs(fetcher, TrackNext, "4.3", "feature-branch")
	assert.Error(t, err)
}

func TestResolveJobsDuplicateStageLastWins(t *testing.T) {
	first := jobNode("r4.2:build:fedora-40", "failed")
	second := jobNode("r4.2:build:fedora-40", "success")
	second.DetailedStatus.DetailsPath = "/jobs/later"

	component := NewComponent(v1.ProjectNode{
		Name:    "qubes-core-agent-linux",
		Current: pipelineWith(first, second),
	})

	resolved, err := component.ResolveJobs(&fakeFetcher{}, TrackCurrent, "4.2", "")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resolved["fedora-40"][StageBuild].Status)
	assert.Equal(t, "/jobs/later", resolved["fedora-40"][StageBuild].DetailsPath)
}

func TestResolveJobsOnlyLatestPipelineRead(t *testing.T) {
	component := NewComponent(v1.ProjectNode{
		Name: "qubes-core-agent-linux",
		Current: v1.PipelineConnection{Nodes: []v1.PipelineNode{
			{Jobs: v1.JobConnection{Nodes: []v1.JobNode{jobNode("r4.2:build:fedora-40", "success")}}},
			{Jobs: v1.JobConnection{Nodes: []v1.JobNode{jobNode("r4.2:build:debian-12", "success")}}},
		}},
	})

	resolved, err := component.ResolveJobs(&fakeFetcher{}, TrackCurrent, "4.2", "")
	require.NoError(t, err)
	assert.Contains(t, resolved, "fedora-40")
	assert.NotContains(t, resolved, "debian-12")
}
