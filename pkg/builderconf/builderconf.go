package builderconf

import (
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultURLTemplate is where the builder configuration for a release lives;
// %s is replaced by the release number.
const DefaultURLTemplate = "https://raw.githubusercontent.com/QubesOS/qubes-builderv2/main/example-configs/qubes-os-r%s.yml"

// componentEntry is one item of the builder configuration's components list.
// Entries are either a plain component name or a single-key mapping whose
// value may carry per-component settings, including a branch override:
//
//	components:
//	  - core-agent-linux
//	  - gui-daemon:
//	      branch: feature-branch
type componentEntry struct {
	Name   string
	Branch string
}

func (e *componentEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.Name)
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("component entry must be a single-key mapping, got %d keys", len(node.Content)/2)
		}
		if err := node.Content[0].Decode(&e.Name); err != nil {
			return err
		}
		// The value is null for "- name:" entries without settings.
		if node.Content[1].Kind != yaml.MappingNode {
			return nil
		}
		var settings struct {
			Branch string `yaml:"branch"`
		}
		if err := node.Content[1].Decode(&settings); err != nil {
			return err
		}
		e.Branch = settings.Branch
		return nil
	default:
		return fmt.Errorf("component entry must be a name or a single-key mapping")
	}
}

type builderConf struct {
	Components []componentEntry `yaml:"components"`
}

// BranchOverrides fetches the builder configuration for a release and returns
// the branch overrides it declares, keyed by component short name. Callers
// treat any error as "no overrides" and keep going.
func BranchOverrides(urlTemplate, release string) (map[string]string, error) {
	url := fmt.Sprintf(urlTemplate, release)

	resp, err := http.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching builder configuration from %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("builder configuration at %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading builder configuration")
	}

	return Parse(body)
}

// Parse extracts the branch overrides from a builder configuration document.
// Components without a branch key are left out.
func Parse(data []byte) (map[string]string, error) {
	var conf builderConf
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrap(err, "unmarshalling builder configuration")
	}

	overrides := map[string]string{}
	for _, entry := range conf.Components {
		if entry.Branch != "" {
			overrides[entry.Name] = entry.Branch
		}
	}
	return overrides, nil
}
