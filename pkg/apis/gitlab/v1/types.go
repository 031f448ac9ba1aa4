package v1

import "time"

// Typed records for the slice of the GitLab GraphQL schema the report reads.
// Responses are decoded into these immediately after the remote call returns;
// nothing downstream touches raw JSON.

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type DetailedStatus struct {
	Text        string `json:"text"`
	DetailsPath string `json:"detailsPath"`
}

type JobNode struct {
	Name           string         `json:"name"`
	CreatedAt      time.Time      `json:"createdAt"`
	DetailedStatus DetailedStatus `json:"detailedStatus"`
}

type JobConnection struct {
	Nodes []JobNode `json:"nodes"`
}

type PipelineNode struct {
	CreatedAt time.Time     `json:"createdAt"`
	Jobs      JobConnection `json:"jobs"`
}

type PipelineConnection struct {
	Nodes []PipelineNode `json:"nodes"`
}

// ProjectNode carries the latest pipeline for the three branch aliases the
// group query embeds: the current release branch, the next release branch
// and main.
type ProjectNode struct {
	Name     string             `json:"name"`
	FullPath string             `json:"fullPath"`
	WebURL   string             `json:"webUrl"`
	Current  PipelineConnection `json:"current"`
	Next     PipelineConnection `json:"next"`
	Main     PipelineConnection `json:"main"`
}

type ProjectConnection struct {
	PageInfo PageInfo      `json:"pageInfo"`
	Nodes    []ProjectNode `json:"nodes"`
}

// GroupProjectsData is the data payload of one page of the group listing.
type GroupProjectsData struct {
	Group struct {
		Projects ProjectConnection `json:"projects"`
	} `json:"group"`
}

// ProjectPipelinesData is the data payload of an on-demand single-branch
// pipeline lookup.
type ProjectPipelinesData struct {
	Project struct {
		Pipelines PipelineConnection `json:"pipelines"`
	} `json:"project"`
}
