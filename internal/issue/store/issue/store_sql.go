package issue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	authmodels "issuehub/internal/auth/models"
	"issuehub/internal/issue/models"
	id "issuehub/pkg/domain"
	"issuehub/pkg/platform/sentinel"
	"issuehub/pkg/platform/sqldb"
)

// SQLIssueStore persists issues in the issues table and joins users on
// every read.
type SQLIssueStore struct {
	db *sqldb.DB
}

func NewSQL(db *sqldb.DB) *SQLIssueStore {
	return &SQLIssueStore{db: db}
}

const (
	issueColumns = `i.id, i.title, i.description, i.status, i.priority, i.severity, i.tags,
		i.created_by, i.assigned_to, i.due_date, i.created_at, i.updated_at`

	recordSelect = `SELECT ` + issueColumns + `, c.username, c.email, a.username, a.email
		FROM issues i
		LEFT JOIN users c ON c.id = i.created_by
		LEFT JOIN users a ON a.id = i.assigned_to`

	priorityRank = `CASE i.priority WHEN 'Low' THEN 0 WHEN 'Medium' THEN 1 WHEN 'High' THEN 2 WHEN 'Critical' THEN 3 ELSE -1 END`
)

func (s *SQLIssueStore) Create(ctx context.Context, issue *models.Issue) error {
	tags, err := encodeTags(issue.Tags)
	if err != nil {
		return err
	}
	query := s.db.Rebind(`INSERT INTO issues
		(id, title, description, status, priority, severity, tags, created_by, assigned_to, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.Conn(ctx).ExecContext(ctx, query,
		issue.ID.String(),
		issue.Title,
		issue.Description,
		string(issue.Status),
		string(issue.Priority),
		string(issue.Severity),
		tags,
		issue.CreatedBy.String(),
		nullUserID(issue.AssignedTo),
		s.db.NullTimeArg(issue.DueDate),
		s.db.TimeArg(issue.CreatedAt),
		s.db.TimeArg(issue.UpdatedAt),
	)
	return sqldb.Classify("insert issue", err)
}

func (s *SQLIssueStore) FindByID(ctx context.Context, issueID id.IssueID) (*models.Record, error) {
	row := s.db.Conn(ctx).QueryRowContext(ctx, s.db.Rebind(recordSelect+` WHERE i.id = ?`), issueID.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, sqldb.Classify("find issue", err)
	}
	return rec, nil
}

// Find renders filter and order into SQL and returns one page.
func (s *SQLIssueStore) Find(ctx context.Context, filter models.Filter, order models.Sort, page models.Page) ([]models.Record, error) {
	where, args := s.where(filter)
	query := recordSelect + where + s.orderBy(order) + ` LIMIT ? OFFSET ?`
	args = append(args, page.Size, page.Offset())

	rows, err := s.db.Conn(ctx).QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, sqldb.Classify("find issues", err)
	}
	defer rows.Close()

	out := make([]models.Record, 0, page.Size)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, sqldb.Classify("find issues", err)
	}
	return out, nil
}

func (s *SQLIssueStore) Count(ctx context.Context, filter models.Filter) (int, error) {
	where, args := s.where(filter)
	var n int
	err := s.db.Conn(ctx).QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM issues i`+where), args...).Scan(&n)
	if err != nil {
		return 0, sqldb.Classify("count issues", err)
	}
	return n, nil
}

// Update runs load, fn and save inside one transaction holding the row
// lock. An error from fn rolls back.
func (s *SQLIssueStore) Update(ctx context.Context, issueID id.IssueID, fn func(*models.Issue) error) (*models.Record, error) {
	var rec *models.Record
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		current, err := s.lock(ctx, issueID)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		tags, err := encodeTags(next.Tags)
		if err != nil {
			return err
		}
		query := s.db.Rebind(`UPDATE issues SET
			title = ?, description = ?, status = ?, priority = ?, severity = ?, tags = ?,
			assigned_to = ?, due_date = ?, updated_at = ?
			WHERE id = ?`)
		_, err = s.db.Conn(ctx).ExecContext(ctx, query,
			next.Title,
			next.Description,
			string(next.Status),
			string(next.Priority),
			string(next.Severity),
			tags,
			nullUserID(next.AssignedTo),
			s.db.NullTimeArg(next.DueDate),
			s.db.TimeArg(next.UpdatedAt),
			issueID.String(),
		)
		if err != nil {
			return sqldb.Classify("update issue", err)
		}
		rec, err = s.FindByID(ctx, issueID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the issue once guard accepts it, under the row lock.
func (s *SQLIssueStore) Delete(ctx context.Context, issueID id.IssueID, guard func(*models.Issue) error) error {
	return s.db.InTx(ctx, func(ctx context.Context) error {
		current, err := s.lock(ctx, issueID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}
		res, err := s.db.Conn(ctx).ExecContext(ctx, s.db.Rebind(`DELETE FROM issues WHERE id = ?`), issueID.String())
		if err != nil {
			return sqldb.Classify("delete issue", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

// Tally groups issues by status, priority and whether requester created
// them.
func (s *SQLIssueStore) Tally(ctx context.Context, requester id.UserID) ([]models.Tally, error) {
	query := s.db.Rebind(`SELECT i.status, i.priority, i.created_by = ? AS mine, COUNT(*)
		FROM issues i GROUP BY 1, 2, 3`)
	rows, err := s.db.Conn(ctx).QueryContext(ctx, query, requester.String())
	if err != nil {
		return nil, sqldb.Classify("tally issues", err)
	}
	defer rows.Close()

	var out []models.Tally
	for rows.Next() {
		var (
			t                models.Tally
			status, priority string
		)
		if err := rows.Scan(&status, &priority, &t.Mine, &t.Count); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		t.Status = models.Status(status)
		t.Priority = models.Priority(priority)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, sqldb.Classify("tally issues", err)
	}
	return out, nil
}

func (s *SQLIssueStore) lock(ctx context.Context, issueID id.IssueID) (*models.Issue, error) {
	query := s.db.Rebind(`SELECT ` + issueColumns + ` FROM issues i WHERE i.id = ?` + s.db.LockClause())
	row := s.db.Conn(ctx).QueryRowContext(ctx, query, issueID.String())
	var issue models.Issue
	dest := issueDest{issue: &issue}
	err := row.Scan(dest.targets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, sqldb.Classify("lock issue", err)
	}
	if err := dest.finish(); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *SQLIssueStore) where(f models.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, `i.status = ?`)
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		conds = append(conds, `i.priority = ?`)
		args = append(args, string(f.Priority))
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		conds = append(conds, `(`+s.db.Lower("i.title")+` LIKE ? ESCAPE '\' OR `+s.db.Lower("i.description")+` LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}

func (s *SQLIssueStore) orderBy(o models.Sort) string {
	var expr string
	switch o.Field {
	case models.SortUpdatedAt:
		expr = `i.updated_at`
	case models.SortTitle:
		expr = `i.title`
		if s.db.Dialect == sqldb.Postgres {
			expr = `i.title COLLATE "C"`
		}
	case models.SortPriority:
		expr = priorityRank
	default:
		expr = `i.created_at`
	}
	dir := ` DESC`
	if o.Order == models.SortAsc {
		dir = ` ASC`
	}
	return ` ORDER BY ` + expr + dir + `, i.id ASC`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func nullUserID(uid *id.UserID) any {
	if uid == nil {
		return nil
	}
	return uid.String()
}

type scanner interface {
	Scan(dest ...any) error
}

// issueDest holds the raw column values for one issue row.
type issueDest struct {
	issue                         *models.Issue
	rawID, rawCreatedBy           string
	status, priority, severity    string
	rawTags                       []byte
	assignedTo                    sql.NullString
	dueDate, createdAt, updatedAt sqldb.Time
}

func (d *issueDest) targets() []any {
	return []any{
		&d.rawID, &d.issue.Title, &d.issue.Description, &d.status, &d.priority, &d.severity, &d.rawTags,
		&d.rawCreatedBy, &d.assignedTo, &d.dueDate, &d.createdAt, &d.updatedAt,
	}
}

func (d *issueDest) finish() error {
	var err error
	if d.issue.ID, err = id.ParseIssueID(d.rawID); err != nil {
		return fmt.Errorf("issue id: %w", err)
	}
	if d.issue.CreatedBy, err = id.ParseUserID(d.rawCreatedBy); err != nil {
		return fmt.Errorf("issue creator: %w", err)
	}
	if d.assignedTo.Valid {
		uid, err := id.ParseUserID(d.assignedTo.String)
		if err != nil {
			return fmt.Errorf("issue assignee: %w", err)
		}
		d.issue.AssignedTo = &uid
	}
	d.issue.Tags = []string{}
	if len(d.rawTags) > 0 {
		if err := json.Unmarshal(d.rawTags, &d.issue.Tags); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
	}
	d.issue.Status = models.Status(d.status)
	d.issue.Priority = models.Priority(d.priority)
	d.issue.Severity = models.Severity(d.severity)
	d.issue.DueDate = d.dueDate.Ptr()
	d.issue.CreatedAt = d.createdAt.Time
	d.issue.UpdatedAt = d.updatedAt.Time
	return nil
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		issue         models.Issue
		cName, cEmail sql.NullString
		aName, aEmail sql.NullString
	)
	dest := issueDest{issue: &issue}
	if err := row.Scan(append(dest.targets(), &cName, &cEmail, &aName, &aEmail)...); err != nil {
		return nil, err
	}
	if err := dest.finish(); err != nil {
		return nil, err
	}
	rec := &models.Record{Issue: &issue}
	if cName.Valid {
		rec.Creator = &authmodels.UserSummary{ID: issue.CreatedBy, Username: cName.String, Email: cEmail.String}
	}
	if aName.Valid && issue.AssignedTo != nil {
		rec.Assignee = &authmodels.UserSummary{ID: *issue.AssignedTo, Username: aName.String, Email: aEmail.String}
	}
	return rec, nil
}
