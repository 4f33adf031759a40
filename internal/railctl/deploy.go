package railctl

import (
	"encoding/json"
	"fmt"
)

type bulkResult struct {
	DeploymentID  string `json:"deployment_id"`
	OverallStatus string `json:"overall_status"`
	Services      []struct {
		ServiceName     string  `json:"service_name"`
		DeployOrder     int     `json:"deploy_order"`
		Status          string  `json:"status"`
		URL             string  `json:"url"`
		Error           string  `json:"error"`
		DurationSeconds float64 `json:"duration_seconds"`
	} `json:"services"`
}

// DeployAll triggers a dependency-ordered rollout and prints per-service
// outcomes. A non-success overall status is reported through the exit error.
func DeployAll(client *Client, projectID, environment string) error {
	resp, err := client.Post("/api/v1/projects/"+projectID+"/deploy", map[string]any{
		"environment": environment,
	})
	if err != nil {
		return err
	}

	var res bulkResult
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return fmt.Errorf("parse rollout result: %w", err)
	}

	for _, svc := range res.Services {
		line := fmt.Sprintf("[order %d] %-20s %s", svc.DeployOrder, svc.ServiceName, svc.Status)
		if svc.URL != "" {
			line += "  " + svc.URL
		}
		if svc.Error != "" {
			line += "  (" + svc.Error + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("Rollout %s: %s\n", res.DeploymentID, res.OverallStatus)

	if res.OverallStatus != "success" {
		return fmt.Errorf("rollout finished with status %s", res.OverallStatus)
	}
	return nil
}

// Status prints platform connectivity and the project's services.
func Status(client *Client, projectID string) error {
	resp, err := client.Get("/api/v1/platform/health")
	if err != nil {
		return err
	}
	var health struct {
		Connected bool   `json:"connected"`
		Username  string `json:"username"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &health); err != nil {
		return fmt.Errorf("parse health: %w", err)
	}
	if health.Connected {
		fmt.Printf("Platform: connected as %s\n", health.Username)
	} else {
		fmt.Printf("Platform: disconnected (%s)\n", health.Error)
	}

	if projectID == "" {
		return nil
	}

	services, err := listServices(client, projectID)
	if err != nil {
		return err
	}
	for _, svc := range services {
		line := fmt.Sprintf("[order %d] %-20s %-12s %s", svc.DeployOrder, svc.Name, svc.Status, svc.Kind)
		if svc.Domain != "" {
			line += "  " + svc.Domain
		}
		fmt.Println(line)
	}
	return nil
}
