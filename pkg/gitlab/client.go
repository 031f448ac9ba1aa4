package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	v1 "github.com/qubesos/g2g-report/pkg/apis/gitlab/v1"
)

// maximumPagination bounds the group listing loop in case the API never
// reports a final page.
const maximumPagination = 20

var pipelineFragmentTemplate = template.Must(template.New("pipelineFragment").Parse(`
        {{.Alias}}: pipelines(ref: "{{.Ref}}", first: 1) {
          nodes {
            createdAt
            jobs {
              nodes {
                name
                createdAt
                detailedStatus {
                  text
                  detailsPath
                }
              }
            }
          }
        }`))

var groupQueryTemplate = template.Must(template.New("groupQuery").Parse(`{
  group(fullPath: "{{.Group}}") {
    projects(first: {{.PageSize}}{{if .After}}, after: "{{.After}}"{{end}}) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        name
        fullPath
        webUrl{{.Pipelines}}
      }
    }
  }
}`))

var branchQueryTemplate = template.Must(template.New("branchQuery").Parse(`{
  project(fullPath: "{{.FullPath}}") { {{- .Pipeline}}
  }
}`))

// TransportError is a non-success HTTP response from the GitLab API.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gitlab API returned status %d: %s", e.StatusCode, e.Body)
}

// ProtocolError is a well-formed GraphQL response carrying an errors payload.
type ProtocolError struct {
	Messages []string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("gitlab API returned errors: %s", strings.Join(e.Messages, "; "))
}

// Client queries the GitLab GraphQL API for group projects and their
// pipelines. All calls are synchronous; any failure is terminal for the
// caller, there are no retries.
type Client struct {
	baseURL        string
	group          string
	currentRelease string
	nextRelease    string
	pageSize       int
	httpClient     *http.Client
}

// NewClient builds a client for one report run. An empty token means
// anonymous queries.
func NewClient(baseURL, group, currentRelease, nextRelease, token string, pageSize int) *Client {
	httpClient := http.DefaultClient
	if token != "" {
		httpClient = oauth2.NewClient(context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	return &Client{
		baseURL:        baseURL,
		group:          group,
		currentRelease: currentRelease,
		nextRelease:    nextRelease,
		pageSize:       pageSize,
		httpClient:     httpClient,
	}
}

// GroupProjects lists every project in the group, with the latest pipeline
// for the current, next and main branches embedded, following pagination
// cursors until the API reports no further page.
func (c *Client) GroupProjects() ([]v1.ProjectNode, error) {
	var projects []v1.ProjectNode

	after := ""
	for page := 0; page < maximumPagination; page++ {
		query, err := c.buildGroupQuery(after)
		if err != nil {
			return nil, err
		}

		var data v1.GroupProjectsData
		if err := c.query(query, &data); err != nil {
			return nil, err
		}
		projects = append(projects, data.Group.Projects.Nodes...)
		log.WithField("page", page).WithField("projects", len(projects)).Debug("fetched project page")

		if !data.Group.Projects.PageInfo.HasNextPage {
			break
		}
		after = data.Group.Projects.PageInfo.EndCursor
	}

	return projects, nil
}

// BranchPipeline looks up the latest pipeline of one branch of one project.
// Used when a builder-configuration override targets a branch the group
// listing did not embed.
func (c *Client) BranchPipeline(fullPath, ref string) (v1.PipelineConnection, error) {
	fragment, err := renderPipelineFragment("pipelines", ref)
	if err != nil {
		return v1.PipelineConnection{}, err
	}

	var buf bytes.Buffer
	err = branchQueryTemplate.Execute(&buf, struct {
		FullPath string
		Pipeline string
	}{FullPath: fullPath, Pipeline: fragment})
	if err != nil {
		return v1.PipelineConnection{}, errors.Wrap(err, "building branch pipeline query")
	}

	var data v1.ProjectPipelinesData
	if err := c.query(buf.String(), &data); err != nil {
		return v1.PipelineConnection{}, err
	}

	return data.Project.Pipelines, nil
}

func (c *Client) buildGroupQuery(after string) (string, error) {
	fragments := make([]string, 0, 3)
	for _, branch := range []struct{ alias, ref string }{
		{"current", "release" + c.currentRelease},
		{"next", "release" + c.nextRelease},
		{"main", "main"},
	} {
		fragment, err := renderPipelineFragment(branch.alias, branch.ref)
		if err != nil {
			return "", err
		}
		fragments = append(fragments, fragment)
	}

	var buf bytes.Buffer
	err := groupQueryTemplate.Execute(&buf, struct {
		Group     string
		PageSize  int
		After     string
		Pipelines string
	}{Group: c.group, PageSize: c.pageSize, After: after, Pipelines: strings.Join(fragments, "")})
	if err != nil {
		return "", errors.Wrap(err, "building group projects query")
	}

	return buf.String(), nil
}

func renderPipelineFragment(alias, ref string) (string, error) {
	var buf bytes.Buffer
	err := pipelineFragmentTemplate.Execute(&buf, struct{ Alias, Ref string }{Alias: alias, Ref: ref})
	if err != nil {
		return "", errors.Wrapf(err, "building pipeline fragment for ref %q", ref)
	}
	return buf.String(), nil
}

// query POSTs one GraphQL query and decodes the data payload into out.
func (c *Client) query(query string, out interface{}) error {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return errors.Wrap(err, "marshalling graphql query")
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/graphql", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "building graphql request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "querying gitlab API")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading gitlab API response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if errs := gjson.GetBytes(body, "errors"); errs.Exists() && len(errs.Array()) > 0 {
		messages := make([]string, 0)
		for _, message := range errs.Get("#.message").Array() {
			messages = append(messages, message.String())
		}
		if len(messages) == 0 {
			messages = append(messages, errs.Raw)
		}
		return &ProtocolError{Messages: messages}
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errors.Wrap(err, "unmarshalling graphql response")
	}

	return errors.Wrap(json.Unmarshal(envelope.Data, out), "unmarshalling graphql data")
}
