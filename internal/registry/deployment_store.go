package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/raildeploy/internal/model"
)

const deploymentColumns = `id, service_id, platform_deployment_id, status, trigger_kind, actor_id,
	started_at, completed_at, duration_seconds, url, error, metadata`

// DeploymentStore persists DeploymentRecord entities.
type DeploymentStore struct {
	db DB
}

func NewDeploymentStore(db DB) *DeploymentStore {
	return &DeploymentStore{db: db}
}

func (s *DeploymentStore) Create(ctx context.Context, rec *model.DeploymentRecord) error {
	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (`+deploymentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.ServiceID, rec.PlatformDeploymentID, rec.Status, rec.Trigger, rec.ActorID,
		rec.StartedAt, rec.CompletedAt, rec.DurationSeconds, rec.URL, rec.Error, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

func (s *DeploymentStore) GetByID(ctx context.Context, id string) (*model.DeploymentRecord, error) {
	rec, err := scanDeployment(s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	return rec, nil
}

func (s *DeploymentStore) Save(ctx context.Context, rec *model.DeploymentRecord) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $2, completed_at = $3, duration_seconds = $4, url = $5, error = $6
		 WHERE id = $1`,
		rec.ID, rec.Status, rec.CompletedAt, rec.DurationSeconds, rec.URL, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("update deployment %s: %w", rec.ID, err)
	}
	return nil
}

func (s *DeploymentStore) ListByService(ctx context.Context, serviceID string, limit int) ([]model.DeploymentRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE service_id = $1 ORDER BY started_at DESC LIMIT $2`,
		serviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list deployments for service %s: %w", serviceID, err)
	}
	defer rows.Close()

	var records []model.DeploymentRecord
	for rows.Next() {
		rec, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return records, nil
}

func scanDeployment(row pgx.Row) (*model.DeploymentRecord, error) {
	var rec model.DeploymentRecord
	err := row.Scan(
		&rec.ID, &rec.ServiceID, &rec.PlatformDeploymentID, &rec.Status, &rec.Trigger, &rec.ActorID,
		&rec.StartedAt, &rec.CompletedAt, &rec.DurationSeconds, &rec.URL, &rec.Error, &rec.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
