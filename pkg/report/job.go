package report

import (
	"strings"
	"time"

	v1 "github.com/qubesos/g2g-report/pkg/apis/gitlab/v1"
)

// JobStage classifies what a CI job verifies. Job names encode the stage as
// the second colon-delimited segment, e.g. "r4.2:build:fedora-40".
type JobStage int

const (
	StageUnknown JobStage = iota
	StageBuild
	StageInstall
	StageRepro
)

func (s JobStage) String() string {
	switch s {
	case StageBuild:
		return "build"
	case StageInstall:
		return "install"
	case StageRepro:
		return "repro"
	default:
		return "unknown"
	}
}

// Label returns the human-readable form used in report link titles.
func (s JobStage) Label() string {
	switch s {
	case StageBuild:
		return "Build"
	case StageInstall:
		return "Install"
	case StageRepro:
		return "Repro"
	default:
		return "Unknown"
	}
}

// JobStatus is the report's view of a job result. The mapping from GitLab
// status text is total: values GitLab may add in the future land on
// StatusUnknown rather than failing.
type JobStatus int

const (
	StatusUnknown JobStatus = iota
	StatusSuccess
	StatusFailure
)

func (s JobStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// ParseStage maps the stage segment of a job name, case-insensitively.
// Anything outside build/install/repro is StageUnknown.
func ParseStage(segment string) JobStage {
	switch strings.ToLower(segment) {
	case "build":
		return StageBuild
	case "install":
		return StageInstall
	case "repro":
		return StageRepro
	default:
		return StageUnknown
	}
}

// ParseStatus maps GitLab status text to a JobStatus. In-flight states
// (created, pending, running, manual, scheduled, waiting_for_resource,
// preparing) and anything unrecognized map to StatusUnknown.
func ParseStatus(text string) JobStatus {
	switch strings.ToLower(text) {
	case "failed", "canceled", "skipped":
		return StatusFailure
	case "success", "passed":
		return StatusSuccess
	default:
		return StatusUnknown
	}
}

// Job is one classified CI job from a pipeline run.
type Job struct {
	Name         string
	Release      string
	Stage        JobStage
	Distribution string
	Status       JobStatus
	CreatedAt    time.Time
	DetailsPath  string
}

// ParseJob classifies a raw job record. Names are expected to have exactly
// three non-empty colon-delimited segments, "r<release>:<stage>:<distribution>";
// anything else keeps StageUnknown and an empty distribution, which excludes
// the job from aggregation. The release segment is still read when present,
// with a single leading "r" stripped.
func ParseJob(node v1.JobNode) Job {
	job := Job{
		Name:        node.Name,
		Stage:       StageUnknown,
		Status:      ParseStatus(node.DetailedStatus.Text),
		CreatedAt:   node.CreatedAt,
		DetailsPath: node.DetailedStatus.DetailsPath,
	}

	parts := strings.Split(node.Name, ":")
	job.Release = strings.TrimPrefix(parts[0], "r")

	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return job
	}

	job.Stage = ParseStage(parts[1])
	job.Distribution = parts[2]
	return job
}
