package railctl

import (
	"encoding/json"
	"fmt"
)

type serviceInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	DeployOrder int    `json:"deploy_order"`
	Domain      string `json:"domain"`
}

// Apply reconciles the manifest's services against the registry: existing
// services (matched by name) are updated, the rest are created.
func Apply(client *Client, m *Manifest) error {
	existing, err := listServices(client, m.ProjectID)
	if err != nil {
		return err
	}
	byName := map[string]serviceInfo{}
	for _, svc := range existing {
		byName[svc.Name] = svc
	}

	for _, def := range m.Services {
		if svc, ok := byName[def.Name]; ok {
			fmt.Printf("Updating service %q (%s)...\n", def.Name, svc.ID)
			body := map[string]any{
				"kind":         def.Kind,
				"deploy_order": def.DeployOrder,
			}
			if def.PlatformServiceID != "" {
				body["platform_service_id"] = def.PlatformServiceID
			}
			if def.Config != nil {
				body["config"] = def.Config
			}
			if def.CustomDomain != "" {
				body["custom_domain"] = def.CustomDomain
			}
			if _, err := client.Patch("/api/v1/services/"+svc.ID, body); err != nil {
				return fmt.Errorf("update service %q: %w", def.Name, err)
			}
			continue
		}

		fmt.Printf("Creating service %q...\n", def.Name)
		body := map[string]any{
			"project_id":          m.ProjectID,
			"workspace_id":        m.WorkspaceID,
			"name":                def.Name,
			"kind":                def.Kind,
			"deploy_order":        def.DeployOrder,
			"platform_service_id": def.PlatformServiceID,
			"config":              def.Config,
			"custom_domain":       def.CustomDomain,
		}
		if _, err := client.Post("/api/v1/services", body); err != nil {
			return fmt.Errorf("create service %q: %w", def.Name, err)
		}
	}

	fmt.Printf("Applied %d service(s) to project %s\n", len(m.Services), m.ProjectID)
	return nil
}

func listServices(client *Client, projectID string) ([]serviceInfo, error) {
	resp, err := client.Get("/api/v1/projects/" + projectID + "/services")
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	var services []serviceInfo
	if err := json.Unmarshal(resp.Body, &services); err != nil {
		return nil, fmt.Errorf("parse services: %w", err)
	}
	return services, nil
}
