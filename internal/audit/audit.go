// Package audit records operational events to Postgres.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/raildeploy/internal/platform"
	"github.com/edvin/raildeploy/internal/registry"
)

// Store is an async audit log writer. Log enqueues; a background goroutine
// drains entries to Postgres so audit writes never block deployments.
type Store struct {
	db     registry.DB
	logger zerolog.Logger
	ch     chan entry
	done   chan struct{}
}

type entry struct {
	ID          string
	WorkspaceID string
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Metadata    map[string]any
	CreatedAt   time.Time
}

func NewStore(db registry.DB, logger zerolog.Logger) *Store {
	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "audit").Logger(),
		ch:     make(chan entry, 1024),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

// drain writes queued entries until the channel closes. Writes run outside
// any request context and are not cancelled by it.
func (s *Store) drain() {
	defer close(s.done)
	for e := range s.ch {
		metadata := e.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		_, err := s.db.Exec(
			context.Background(),
			`INSERT INTO audit_logs (id, workspace_id, actor_id, action, entity_type, entity_id, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.WorkspaceID, e.ActorID, e.Action, e.EntityType, e.EntityID, metadata, e.CreatedAt,
		)
		if err != nil {
			s.logger.Error().Err(err).Str("action", e.Action).Msg("failed to write audit log")
		}
	}
}

// Log enqueues an audit entry. When the buffer is full the entry is dropped
// and logged; a slow audit store must not stall a rollout.
func (s *Store) Log(ctx context.Context, workspaceID, actorID, action, entityType, entityID string, metadata map[string]any) error {
	e := entry{
		ID:          platform.NewID(),
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
	select {
	case s.ch <- e:
	default:
		s.logger.Warn().Str("action", action).Msg("audit buffer full, entry dropped")
	}
	return nil
}

// Close stops accepting entries and waits for the drain goroutine to flush.
func (s *Store) Close() {
	close(s.ch)
	<-s.done
}
