package railctl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the declarative project definition consumed by `railctl apply`.
type Manifest struct {
	APIURL      string       `yaml:"api_url"`
	ProjectID   string       `yaml:"project_id"`
	WorkspaceID string       `yaml:"workspace_id"`
	Environment string       `yaml:"environment"`
	Services    []ServiceDef `yaml:"services"`
}

type ServiceDef struct {
	Name              string            `yaml:"name"`
	Kind              string            `yaml:"kind"`
	DeployOrder       int               `yaml:"deploy_order"`
	PlatformServiceID string            `yaml:"platform_service_id"`
	Config            map[string]string `yaml:"config"`
	CustomDomain      string            `yaml:"custom_domain"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if m.ProjectID == "" {
		return nil, fmt.Errorf("manifest: project_id is required")
	}
	if m.WorkspaceID == "" {
		return nil, fmt.Errorf("manifest: workspace_id is required")
	}
	if len(m.Services) == 0 {
		return nil, fmt.Errorf("manifest: at least one service is required")
	}
	for i, s := range m.Services {
		if s.Name == "" {
			return nil, fmt.Errorf("manifest: services[%d]: name is required", i)
		}
		if s.Kind == "" {
			return nil, fmt.Errorf("manifest: service %q: kind is required", s.Name)
		}
	}
	return &m, nil
}
