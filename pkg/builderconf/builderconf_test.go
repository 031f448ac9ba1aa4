package builderconf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		document string
		expected map[string]string
	}{
		{
			name: "mixed scalar and mapping entries",
			document: `
components:
  - core-agent-linux
  - gui-daemon:
      branch: feature-gui
  - linux-kernel:
      branch: stable-6.6
      timeout: 3600
  - core-vchan-xen:
      maintainers:
        - someone
`,
			expected: map[string]string{
				"gui-daemon":   "feature-gui",
				"linux-kernel": "stable-6.6",
			},
		},
		{
			name: "entry with null settings",
			document: `
components:
  - core-agent-linux:
`,
			expected: map[string]string{},
		},
		{
			name:     "no components key",
			document: `git-url-prefix: https://github.com/QubesOS/qubes-`,
			expected: map[string]string{},
		},
		{
			name:     "empty document",
			document: "",
			expected: map[string]string{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			overrides, err := Parse([]byte(test.document))
			require.NoError(t, err)
			assert.Equal(t, test.expected, overrides)
		})
	}
}

func TestParseInvalidDocument(t *testing.T) {
	_, err := Parse([]byte("components: {not: [a, list"))
	assert.Error(t, err)
}

func TestParseMultiKeyEntry(t *testing.T) {
	_, err := Parse([]byte(`
components:
  - gui-daemon:
      branch: a
    gui-agent:
      branch: b
`))
	assert.Error(t, err)
}

func TestBranchOverrides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/builder-r4.2.yml", r.URL.Path)
		w.Write([]byte("components:\n  - gui-daemon:\n      branch: feature-gui\n")) //nolint:errcheck
	}))
	defer server.Close()

	overrides, err := BranchOverrides(server.URL+"/builder-r%s.yml", "4.2")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gui-daemon": "feature-gui"}, overrides)
}

func TestBranchOverridesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := BranchOverrides(server.URL+"/builder-r%s.yml", "4.2")
	assert.Error(t, err)
}
