package flags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// GitLabFlags holds connection information for the GitLab instance hosting
// the component projects.
type GitLabFlags struct {
	URL      string
	Group    string
	PageSize int
}

func NewGitLabFlags() *GitLabFlags {
	return &GitLabFlags{
		URL:      "https://gitlab.com",
		Group:    "QubesOS",
		PageSize: 20,
	}
}

func (f *GitLabFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.URL, "gitlab", f.URL, "GitLab instance URL")
	fs.StringVar(&f.Group, "gitlab-group", f.Group, "GitLab group containing the component projects")
	fs.IntVar(&f.PageSize, "page-size", f.PageSize, "Number of projects fetched per GraphQL page")
}

// Token resolves the API token: the GITLAB_API_TOKEN environment variable,
// falling back to ~/.gitlab-token. An empty result means anonymous queries,
// which the API may or may not accept.
func (f *GitLabFlags) Token() string {
	if token := os.Getenv("GITLAB_API_TOKEN"); token != "" {
		return token
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(home, ".gitlab-token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
