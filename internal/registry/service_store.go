package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/raildeploy/internal/model"
)

const serviceColumns = `id, project_id, workspace_id, platform_service_id, name, kind, status,
	deploy_order, config, domain, custom_domain, created_at, updated_at`

// ServiceStore persists Service entities.
type ServiceStore struct {
	db DB
}

func NewServiceStore(db DB) *ServiceStore {
	return &ServiceStore{db: db}
}

func (s *ServiceStore) Create(ctx context.Context, svc *model.Service) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO services (`+serviceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		svc.ID, svc.ProjectID, svc.WorkspaceID, svc.PlatformServiceID, svc.Name, svc.Kind, svc.Status,
		svc.DeployOrder, svc.Config, svc.Domain, svc.CustomDomain, svc.CreatedAt, svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

func (s *ServiceStore) GetByID(ctx context.Context, id string) (*model.Service, error) {
	svc, err := scanService(s.db.QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	return svc, nil
}

func (s *ServiceStore) ListByProject(ctx context.Context, projectID string) ([]model.Service, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE project_id = $1 ORDER BY deploy_order, name`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list services for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

func (s *ServiceStore) Save(ctx context.Context, svc *model.Service) error {
	_, err := s.db.Exec(ctx,
		`UPDATE services
		 SET platform_service_id = $2, name = $3, kind = $4, status = $5, deploy_order = $6,
		     config = $7, domain = $8, custom_domain = $9, updated_at = now()
		 WHERE id = $1`,
		svc.ID, svc.PlatformServiceID, svc.Name, svc.Kind, svc.Status, svc.DeployOrder,
		svc.Config, svc.Domain, svc.CustomDomain,
	)
	if err != nil {
		return fmt.Errorf("update service %s: %w", svc.ID, err)
	}
	return nil
}

func scanService(row pgx.Row) (*model.Service, error) {
	var svc model.Service
	err := row.Scan(
		&svc.ID, &svc.ProjectID, &svc.WorkspaceID, &svc.PlatformServiceID, &svc.Name, &svc.Kind, &svc.Status,
		&svc.DeployOrder, &svc.Config, &svc.Domain, &svc.CustomDomain, &svc.CreatedAt, &svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}
