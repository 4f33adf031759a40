// Package railapi talks to the Railway GraphQL API for the operations the
// CLI cannot perform, such as replaying a historical deployment.
package railapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/raildeploy/internal/deploy"
)

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "railapi").Logger(),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *Client) query(ctx context.Context, op, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &deploy.UpstreamError{Op: op, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &deploy.UpstreamError{Op: op, Detail: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode >= 400 {
		return &deploy.UpstreamError{Op: op, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return &deploy.UpstreamError{Op: op, Detail: fmt.Sprintf("parse response: %v", err)}
	}
	if len(gql.Errors) > 0 {
		msg := gql.Errors[0].Message
		if strings.Contains(strings.ToLower(msg), "already exists") {
			return &deploy.ConflictError{Message: msg}
		}
		return &deploy.UpstreamError{Op: op, Detail: msg}
	}

	if out != nil {
		if err := json.Unmarshal(gql.Data, out); err != nil {
			return &deploy.UpstreamError{Op: op, Detail: fmt.Sprintf("parse data: %v", err)}
		}
	}
	return nil
}

func (c *Client) RedeployDeployment(ctx context.Context, platformDeploymentID string) error {
	return c.query(ctx, "deploymentRedeploy",
		`mutation deploymentRedeploy($id: String!) { deploymentRedeploy(id: $id) { id } }`,
		map[string]any{"id": platformDeploymentID}, nil)
}

func (c *Client) ListDomains(ctx context.Context, platformServiceID string) ([]deploy.Domain, error) {
	var data struct {
		Domains struct {
			ServiceDomains []struct {
				ID     string `json:"id"`
				Domain string `json:"domain"`
			} `json:"serviceDomains"`
		} `json:"domains"`
	}
	err := c.query(ctx, "domains",
		`query domains($serviceId: String!) { domains(serviceId: $serviceId) { serviceDomains { id domain } } }`,
		map[string]any{"serviceId": platformServiceID}, &data)
	if err != nil {
		return nil, err
	}

	domains := make([]deploy.Domain, 0, len(data.Domains.ServiceDomains))
	for _, d := range data.Domains.ServiceDomains {
		domains = append(domains, deploy.Domain{ID: d.ID, ServiceID: platformServiceID, Name: d.Domain})
	}
	return domains, nil
}

func (c *Client) CreateDomain(ctx context.Context, platformServiceID string) (*deploy.Domain, error) {
	var data struct {
		ServiceDomainCreate struct {
			ID     string `json:"id"`
			Domain string `json:"domain"`
		} `json:"serviceDomainCreate"`
	}
	err := c.query(ctx, "serviceDomainCreate",
		`mutation serviceDomainCreate($serviceId: String!) { serviceDomainCreate(input: {serviceId: $serviceId}) { id domain } }`,
		map[string]any{"serviceId": platformServiceID}, &data)
	if err != nil {
		return nil, err
	}
	return &deploy.Domain{
		ID:        data.ServiceDomainCreate.ID,
		ServiceID: platformServiceID,
		Name:      data.ServiceDomainCreate.Domain,
	}, nil
}

func (c *Client) DeleteDomain(ctx context.Context, domainID string) error {
	return c.query(ctx, "serviceDomainDelete",
		`mutation serviceDomainDelete($id: String!) { serviceDomainDelete(id: $id) }`,
		map[string]any{"id": domainID}, nil)
}

func (c *Client) UpsertVariables(ctx context.Context, platformServiceID string, vars map[string]string) error {
	return c.query(ctx, "variableCollectionUpsert",
		`mutation variableCollectionUpsert($serviceId: String!, $variables: Json!) { variableCollectionUpsert(input: {serviceId: $serviceId, variables: $variables}) }`,
		map[string]any{"serviceId": platformServiceID, "variables": vars}, nil)
}
