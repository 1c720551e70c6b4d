package issue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	authmodels "issuehub/internal/auth/models"
	userstore "issuehub/internal/auth/store/user"
	"issuehub/internal/issue/models"
	"issuehub/internal/platform/database"
	id "issuehub/pkg/domain"
	"issuehub/pkg/platform/sentinel"
	"issuehub/pkg/platform/sqldb"
)

type issueStore interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, issueID id.IssueID) (*models.Record, error)
	Find(ctx context.Context, filter models.Filter, order models.Sort, page models.Page) ([]models.Record, error)
	Count(ctx context.Context, filter models.Filter) (int, error)
	Update(ctx context.Context, issueID id.IssueID, fn func(*models.Issue) error) (*models.Record, error)
	Delete(ctx context.Context, issueID id.IssueID, guard func(*models.Issue) error) error
	Tally(ctx context.Context, requester id.UserID) ([]models.Tally, error)
}

type userCreator interface {
	Create(ctx context.Context, user *authmodels.User) error
}

type backend struct {
	issues issueStore
	users  userCreator
}

// IssueStoreSuite runs the same query, join and concurrency checks against
// every backend.
type IssueStoreSuite struct {
	suite.Suite
	newBackend func(t *testing.T) backend
	store      issueStore
	users      userCreator
	alice      *authmodels.User
	bob        *authmodels.User
	base       time.Time
}

func TestInMemoryIssueStoreSuite(t *testing.T) {
	suite.Run(t, &IssueStoreSuite{newBackend: func(*testing.T) backend {
		users := userstore.New()
		return backend{issues: New(users), users: users}
	}})
}

func TestSQLiteIssueStoreSuite(t *testing.T) {
	suite.Run(t, &IssueStoreSuite{newBackend: func(t *testing.T) backend {
		ctx := context.Background()
		db, err := sqldb.Open(ctx, sqldb.SQLite, filepath.Join(t.TempDir(), "issues.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		if err := database.Migrate(ctx, db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return backend{issues: NewSQL(db), users: userstore.NewSQL(db)}
	}})
}

func (s *IssueStoreSuite) SetupTest() {
	b := s.newBackend(s.T())
	s.store, s.users = b.issues, b.users
	s.base = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	s.alice = s.createUser("alice")
	s.bob = s.createUser("bob")
}

func (s *IssueStoreSuite) createUser(name string) *authmodels.User {
	u := &authmodels.User{
		ID:           id.NewUserID(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "$2a$04$hash",
		Role:         id.RoleUser,
		CreatedAt:    s.base,
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *IssueStoreSuite) newIssue(title, description string, offset time.Duration) *models.Issue {
	at := s.base.Add(offset)
	return &models.Issue{
		ID:          id.NewIssueID(),
		Title:       title,
		Description: description,
		Status:      models.StatusOpen,
		Priority:    models.PriorityMedium,
		Severity:    models.SeverityMinor,
		Tags:        []string{},
		CreatedBy:   s.alice.ID,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func (s *IssueStoreSuite) seed(issues ...*models.Issue) {
	for _, issue := range issues {
		s.Require().NoError(s.store.Create(context.Background(), issue))
	}
}

func titles(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

var newestFirst = models.Sort{Field: models.SortCreatedAt, Order: models.SortDesc}

func (s *IssueStoreSuite) TestCreateAndFindByID() {
	ctx := context.Background()
	due := s.base.Add(72 * time.Hour)
	issue := s.newIssue("Login bug", "Cannot log in on Safari", 0)
	issue.Tags = []string{"ui", "safari"}
	issue.AssignedTo = &s.bob.ID
	issue.DueDate = &due
	s.seed(issue)

	s.Run("joins creator and assignee summaries", func() {
		rec, err := s.store.FindByID(ctx, issue.ID)
		s.Require().NoError(err)
		s.Equal(issue.Title, rec.Title)
		s.Equal([]string{"ui", "safari"}, rec.Tags)
		s.Require().NotNil(rec.Creator)
		s.Equal("alice", rec.Creator.Username)
		s.Equal("alice@example.com", rec.Creator.Email)
		s.Require().NotNil(rec.Assignee)
		s.Equal("bob", rec.Assignee.Username)
		s.Require().NotNil(rec.DueDate)
		s.True(due.Equal(*rec.DueDate))
		s.True(issue.CreatedAt.Equal(rec.CreatedAt))
	})

	s.Run("unknown id returns ErrNotFound", func() {
		_, err := s.store.FindByID(ctx, id.NewIssueID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate id conflicts", func() {
		s.Require().ErrorIs(s.store.Create(ctx, issue), sentinel.ErrConflict)
	})
}

func (s *IssueStoreSuite) TestFilterComposition() {
	ctx := context.Background()
	login := s.newIssue("Login bug", "Cannot log in on Safari", 0)
	crash := s.newIssue("Crash on save", "App closes", time.Minute)
	crash.Status = models.StatusInProgress
	crash.Priority = models.PriorityHigh
	literal := s.newIssue("Rate is 100% off", "under_score here", 2*time.Minute)
	accented := s.newIssue("Écran noir", "Plantage au démarrage", 3*time.Minute)
	accented.Priority = models.PriorityLow
	s.seed(login, crash, literal, accented)

	page := models.Page{Number: 1, Size: 10}
	tests := []struct {
		name   string
		filter models.Filter
		want   []string
	}{
		{"no filter", models.Filter{}, []string{"Écran noir", "Rate is 100% off", "Crash on save", "Login bug"}},
		{"search matches description only", models.Filter{Search: "safari"}, []string{"Login bug"}},
		{"search is case-insensitive on title", models.Filter{Search: "CRASH"}, []string{"Crash on save"}},
		{"status exact match", models.Filter{Status: models.StatusInProgress}, []string{"Crash on save"}},
		{"status and search combine with AND", models.Filter{Status: models.StatusOpen, Search: "crash"}, []string{}},
		{"priority filter", models.Filter{Priority: models.PriorityMedium}, []string{"Rate is 100% off", "Login bug"}},
		{"percent is literal", models.Filter{Search: "100%"}, []string{"Rate is 100% off"}},
		{"underscore is literal", models.Filter{Search: "n_b"}, []string{}},
		{"search folds non-ascii title", models.Filter{Search: "écran"}, []string{"Écran noir"}},
		{"search folds non-ascii term", models.Filter{Search: "DÉMARRAGE"}, []string{"Écran noir"}},
		{"underscore matches itself", models.Filter{Search: "under_score"}, []string{"Rate is 100% off"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.store.Find(ctx, tt.filter, newestFirst, page)
			s.Require().NoError(err)
			s.Equal(tt.want, titles(got))

			n, err := s.store.Count(ctx, tt.filter)
			s.Require().NoError(err)
			s.Equal(len(tt.want), n)
		})
	}
}

func (s *IssueStoreSuite) TestSorting() {
	ctx := context.Background()
	a := s.newIssue("bravo", "d", 0)
	a.Priority = models.PriorityCritical
	b := s.newIssue("alpha", "d", time.Minute)
	b.Priority = models.PriorityLow
	c := s.newIssue("Charlie", "d", 2*time.Minute)
	c.Priority = models.PriorityHigh
	c.UpdatedAt = s.base.Add(-time.Hour)
	s.seed(a, b, c)

	page := models.Page{Number: 1, Size: 10}
	tests := []struct {
		order models.Sort
		want  []string
	}{
		{models.Sort{Field: models.SortCreatedAt, Order: models.SortDesc}, []string{"Charlie", "alpha", "bravo"}},
		{models.Sort{Field: models.SortCreatedAt, Order: models.SortAsc}, []string{"bravo", "alpha", "Charlie"}},
		{models.Sort{Field: models.SortUpdatedAt, Order: models.SortAsc}, []string{"Charlie", "bravo", "alpha"}},
		{models.Sort{Field: models.SortTitle, Order: models.SortAsc}, []string{"Charlie", "alpha", "bravo"}},
		{models.Sort{Field: models.SortPriority, Order: models.SortDesc}, []string{"bravo", "Charlie", "alpha"}},
		{models.Sort{Field: models.SortPriority, Order: models.SortAsc}, []string{"alpha", "Charlie", "bravo"}},
	}
	for _, tt := range tests {
		s.Run(fmt.Sprintf("%s %s", tt.order.Field, tt.order.Order), func() {
			got, err := s.store.Find(ctx, models.Filter{}, tt.order, page)
			s.Require().NoError(err)
			s.Equal(tt.want, titles(got))
		})
	}
}

func (s *IssueStoreSuite) TestPagination() {
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		s.seed(s.newIssue(fmt.Sprintf("issue %02d", i), "d", time.Duration(i)*time.Minute))
	}

	second, err := s.store.Find(ctx, models.Filter{}, newestFirst, models.Page{Number: 2, Size: 10})
	s.Require().NoError(err)
	s.Equal([]string{"issue 01", "issue 00"}, titles(second))

	total, err := s.store.Count(ctx, models.Filter{})
	s.Require().NoError(err)
	s.Equal(2, models.NewPagination(models.Page{Number: 2, Size: 10}, total).Pages)

	past, err := s.store.Find(ctx, models.Filter{}, newestFirst, models.Page{Number: 5, Size: 10})
	s.Require().NoError(err)
	s.NotNil(past)
	s.Empty(past)
	for _, number := range []int{922337203685477583, math.MaxInt} {
		huge, err := s.store.Find(ctx, models.Filter{}, newestFirst, models.Page{Number: number, Size: 10})
		s.Require().NoError(err, "page %d", number)
		s.Empty(huge, "page %d", number)
	}
}

func (s *IssueStoreSuite) TestSameTimestampPagesAreStable() {
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		s.seed(s.newIssue(fmt.Sprintf("tie %d", i), "d", 0))
	}
	seen := map[id.IssueID]bool{}
	for n := 1; n <= 3; n++ {
		page, err := s.store.Find(ctx, models.Filter{}, newestFirst, models.Page{Number: n, Size: 3})
		s.Require().NoError(err)
		for _, r := range page {
			s.False(seen[r.ID], "issue %s returned twice", r.ID)
			seen[r.ID] = true
		}
	}
	s.Len(seen, 7)
}

func (s *IssueStoreSuite) TestUpdate() {
	ctx := context.Background()
	issue := s.newIssue("Login bug", "d", 0)
	issue.AssignedTo = &s.bob.ID
	s.seed(issue)
	later := s.base.Add(time.Hour)

	s.Run("applies the mutation and keeps immutable fields", func() {
		rec, err := s.store.Update(ctx, issue.ID, func(i *models.Issue) error {
			i.Status = models.StatusResolved
			i.AssignedTo = nil
			i.Tags = []string{"done"}
			i.CreatedBy = s.bob.ID
			i.UpdatedAt = later
			return nil
		})
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, rec.Status)
		s.Nil(rec.AssignedTo)
		s.Nil(rec.Assignee)
		s.Equal([]string{"done"}, rec.Tags)
		s.Equal(s.alice.ID, rec.CreatedBy)
		s.True(later.Equal(rec.UpdatedAt))
		s.True(issue.CreatedAt.Equal(rec.CreatedAt))

		again, err := s.store.FindByID(ctx, issue.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, again.Status)
	})

	s.Run("callback error leaves the record unchanged", func() {
		boom := errors.New("forbidden")
		_, err := s.store.Update(ctx, issue.ID, func(i *models.Issue) error {
			i.Title = "changed"
			return boom
		})
		s.Require().ErrorIs(err, boom)
		rec, err := s.store.FindByID(ctx, issue.ID)
		s.Require().NoError(err)
		s.Equal("Login bug", rec.Title)
	})

	s.Run("unknown id returns ErrNotFound", func() {
		_, err := s.store.Update(ctx, id.NewIssueID(), func(*models.Issue) error { return nil })
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *IssueStoreSuite) TestDelete() {
	ctx := context.Background()
	issue := s.newIssue("Login bug", "d", 0)
	s.seed(issue)

	s.Run("guard rejection keeps the record", func() {
		boom := errors.New("forbidden")
		s.Require().ErrorIs(s.store.Delete(ctx, issue.ID, func(*models.Issue) error { return boom }), boom)
		_, err := s.store.FindByID(ctx, issue.ID)
		s.Require().NoError(err)
	})

	s.Run("delete then get returns ErrNotFound", func() {
		s.Require().NoError(s.store.Delete(ctx, issue.ID, nil))
		_, err := s.store.FindByID(ctx, issue.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		s.Require().ErrorIs(s.store.Delete(ctx, issue.ID, nil), sentinel.ErrNotFound)
	})
}

func (s *IssueStoreSuite) TestDeleteRacingUpdate() {
	ctx := context.Background()
	for round := 0; round < 20; round++ {
		issue := s.newIssue(fmt.Sprintf("race %d", round), "d", 0)
		s.seed(issue)

		var (
			wg        sync.WaitGroup
			updateErr error
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, updateErr = s.store.Update(ctx, issue.ID, func(i *models.Issue) error {
				i.Title = "updated"
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			deleteErr = s.store.Delete(ctx, issue.ID, nil)
		}()
		wg.Wait()

		s.Require().NoError(deleteErr)
		if updateErr != nil {
			s.Require().ErrorIs(updateErr, sentinel.ErrNotFound)
		}
		_, err := s.store.FindByID(ctx, issue.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound, "update must not resurrect a deleted issue")
	}
}

func (s *IssueStoreSuite) TestTally() {
	ctx := context.Background()
	mine := s.newIssue("mine", "d", 0)
	mine.Priority = models.PriorityHigh
	theirs := s.newIssue("theirs", "d", time.Minute)
	theirs.CreatedBy = s.bob.ID
	closed := s.newIssue("closed", "d", 2*time.Minute)
	closed.Status = models.StatusClosed
	s.seed(mine, theirs, closed)

	tallies, err := s.store.Tally(ctx, s.alice.ID)
	s.Require().NoError(err)

	stats := models.Aggregator{}.Aggregate(ctx, tallies)
	s.Equal(3, stats.Total)
	s.Equal(2, stats.Mine)
	s.Equal(2, stats.ByStatus[models.StatusOpen])
	s.Equal(1, stats.ByStatus[models.StatusClosed])
	s.Equal(1, stats.ByPriority[models.PriorityHigh])
	s.Equal(2, stats.ByPriority[models.PriorityMedium])
}

func (s *IssueStoreSuite) TestReturnsCopies() {
	ctx := context.Background()
	issue := s.newIssue("Login bug", "d", 0)
	issue.Tags = []string{"ui"}
	s.seed(issue)
	issue.Title = "mutated after create"

	rec, err := s.store.FindByID(ctx, issue.ID)
	s.Require().NoError(err)
	s.Equal("Login bug", rec.Title)
	rec.Tags[0] = "mutated"

	again, err := s.store.FindByID(ctx, issue.ID)
	s.Require().NoError(err)
	s.Equal([]string{"ui"}, again.Tags)
}
