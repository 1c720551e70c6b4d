// Package sqlstore persists audit events in the audit_events table of the
// service database. Appends join the caller's transaction when one is
// carried on the context.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "issuehub/pkg/domain"
	audit "issuehub/pkg/platform/audit"
	"issuehub/pkg/platform/sqldb"
)

type Store struct {
	db *sqldb.DB
}

func New(db *sqldb.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	var actor any
	if !event.ActorID.IsNil() {
		actor = event.ActorID.String()
	}

	query := s.db.Rebind(`
		INSERT INTO audit_events (
			id, category, occurred_at, actor_id, action,
			subject, reason, request_id, ip, client
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Conn(ctx).ExecContext(ctx, query,
		uuid.NewString(),
		string(category),
		s.db.TimeArg(event.Timestamp),
		actor,
		event.Action,
		event.Subject,
		event.Reason,
		event.RequestID,
		event.IP,
		event.Client,
	)
	if err != nil {
		return sqldb.Classify("insert audit event", err)
	}
	return nil
}

func (s *Store) ListByActor(ctx context.Context, actorID id.UserID) ([]audit.Event, error) {
	query := s.db.Rebind(`
		SELECT category, occurred_at, actor_id, action, subject, reason, request_id, ip, client
		FROM audit_events
		WHERE actor_id = ?
		ORDER BY occurred_at, id
	`)
	rows, err := s.db.Conn(ctx).QueryContext(ctx, query, actorID.String())
	if err != nil {
		return nil, sqldb.Classify("list audit events", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			ev       audit.Event
			category string
			at       sqldb.Time
			actor    sql.NullString
		)
		if err := rows.Scan(&category, &at, &actor, &ev.Action, &ev.Subject, &ev.Reason, &ev.RequestID, &ev.IP, &ev.Client); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Category = audit.EventCategory(category)
		ev.Timestamp = at.Time
		if actor.Valid {
			parsed, err := id.ParseUserID(actor.String)
			if err != nil {
				return nil, fmt.Errorf("audit actor id: %w", err)
			}
			ev.ActorID = parsed
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
