package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"issuehub/internal/auth/models"
	id "issuehub/pkg/domain"
	"issuehub/pkg/platform/sentinel"
	"issuehub/pkg/platform/sqldb"
)

// SQLUserStore persists users in the users table.
type SQLUserStore struct {
	db *sqldb.DB
}

func NewSQL(db *sqldb.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

const userColumns = `id, username, email, password_hash, role, created_at`

func (s *SQLUserStore) Create(ctx context.Context, user *models.User) error {
	query := s.db.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.Conn(ctx).ExecContext(ctx, query,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		s.db.TimeArg(user.CreatedAt),
	)
	return sqldb.Classify("insert user", err)
}

func (s *SQLUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, "id", userID.String())
}

func (s *SQLUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email", email)
}

func (s *SQLUserStore) findOne(ctx context.Context, column, value string) (*models.User, error) {
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`)
	row := s.db.Conn(ctx).QueryRowContext(ctx, query, value)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, sqldb.Classify("find user by "+column, err)
	}
	return u, nil
}

// Summaries resolves the given IDs in one query.
func (s *SQLUserStore) Summaries(ctx context.Context, ids []id.UserID) (map[id.UserID]models.UserSummary, error) {
	out := make(map[id.UserID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	marks := make([]string, len(ids))
	for i, userID := range ids {
		args[i] = userID.String()
		marks[i] = "?"
	}
	query := s.db.Rebind(`SELECT id, username, email FROM users WHERE id IN (` + strings.Join(marks, ", ") + `)`)
	rows, err := s.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqldb.Classify("user summaries", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rawID string
			sum   models.UserSummary
		)
		if err := rows.Scan(&rawID, &sum.Username, &sum.Email); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		if sum.ID, err = id.ParseUserID(rawID); err != nil {
			return nil, fmt.Errorf("user summary id: %w", err)
		}
		out[sum.ID] = sum
	}
	return out, rows.Err()
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u       models.User
		rawID   string
		role    string
		created sqldb.Time
	)
	if err := row.Scan(&rawID, &u.Username, &u.Email, &u.PasswordHash, &role, &created); err != nil {
		return nil, err
	}
	parsed, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	u.ID = parsed
	u.Role = id.Role(role)
	u.CreatedAt = created.Time
	return &u, nil
}
