// Package issue stores issue records in memory or in a SQL database.
// Both stores join creator and assignee summaries on the read path and
// serialize read-modify-write cycles per record.
package issue

import (
	"context"
	"fmt"
	"sort"
	"sync"

	authmodels "issuehub/internal/auth/models"
	"issuehub/internal/issue/models"
	id "issuehub/pkg/domain"
	"issuehub/pkg/platform/sentinel"
)

// UserDirectory resolves user references for the read path.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []id.UserID) (map[id.UserID]authmodels.UserSummary, error)
}

// InMemoryIssueStore keeps issues in a map guarded by a RWMutex. Writers
// hold the lock across load, check and save so a Delete racing an Update
// on the same id resolves in lock order.
type InMemoryIssueStore struct {
	mu     sync.RWMutex
	issues map[id.IssueID]*models.Issue
	users  UserDirectory
}

func New(users UserDirectory) *InMemoryIssueStore {
	return &InMemoryIssueStore{
		issues: make(map[id.IssueID]*models.Issue),
		users:  users,
	}
}

func (s *InMemoryIssueStore) Create(_ context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[issue.ID]; ok {
		return fmt.Errorf("issue %s: %w", issue.ID, sentinel.ErrConflict)
	}
	s.issues[issue.ID] = issue.Clone()
	return nil
}

func (s *InMemoryIssueStore) FindByID(ctx context.Context, issueID id.IssueID) (*models.Record, error) {
	s.mu.RLock()
	issue, ok := s.issues[issueID]
	if ok {
		issue = issue.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	records, err := s.join(ctx, []*models.Issue{issue})
	if err != nil {
		return nil, err
	}
	return &records[0], nil
}

// Find returns one sorted page of the issues matching filter.
func (s *InMemoryIssueStore) Find(ctx context.Context, filter models.Filter, order models.Sort, page models.Page) ([]models.Record, error) {
	matched := s.matching(filter)
	sort.Slice(matched, func(i, j int) bool { return order.Less(matched[i], matched[j]) })
	return s.join(ctx, models.Window(matched, page))
}

func (s *InMemoryIssueStore) Count(_ context.Context, filter models.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, issue := range s.issues {
		if filter.Matches(issue) {
			n++
		}
	}
	return n, nil
}

// Update loads the issue, lets fn mutate a copy and saves it. An error
// from fn leaves the stored issue unchanged.
func (s *InMemoryIssueStore) Update(ctx context.Context, issueID id.IssueID, fn func(*models.Issue) error) (*models.Record, error) {
	s.mu.Lock()
	current, ok := s.issues[issueID]
	if !ok {
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next.ID = current.ID
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	s.issues[issueID] = next
	saved := next.Clone()
	s.mu.Unlock()

	records, err := s.join(ctx, []*models.Issue{saved})
	if err != nil {
		return nil, err
	}
	return &records[0], nil
}

// Delete removes the issue once guard accepts it.
func (s *InMemoryIssueStore) Delete(_ context.Context, issueID id.IssueID, guard func(*models.Issue) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.issues[issueID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if guard != nil {
		if err := guard(current.Clone()); err != nil {
			return err
		}
	}
	delete(s.issues, issueID)
	return nil
}

// Tally groups every issue by status, priority and whether requester
// created it.
func (s *InMemoryIssueStore) Tally(_ context.Context, requester id.UserID) ([]models.Tally, error) {
	s.mu.RLock()
	all := make([]*models.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		all = append(all, issue)
	}
	tallies := models.TallyIssues(all, requester)
	s.mu.RUnlock()
	return tallies, nil
}

func (s *InMemoryIssueStore) matching(filter models.Filter) []*models.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Issue, 0)
	for _, issue := range s.issues {
		if filter.Matches(issue) {
			out = append(out, issue.Clone())
		}
	}
	return out
}

func (s *InMemoryIssueStore) join(ctx context.Context, issues []*models.Issue) ([]models.Record, error) {
	records := make([]models.Record, len(issues))
	if len(issues) == 0 {
		return records, nil
	}
	ids := make([]id.UserID, 0, len(issues)*2)
	for _, issue := range issues {
		ids = append(ids, issue.CreatedBy)
		if issue.AssignedTo != nil {
			ids = append(ids, *issue.AssignedTo)
		}
	}
	var summaries map[id.UserID]authmodels.UserSummary
	if s.users != nil {
		var err error
		if summaries, err = s.users.Summaries(ctx, ids); err != nil {
			return nil, fmt.Errorf("resolve issue users: %w", err)
		}
	}
	for i, issue := range issues {
		records[i] = models.Record{Issue: issue}
		if sum, ok := summaries[issue.CreatedBy]; ok {
			records[i].Creator = &sum
		}
		if issue.AssignedTo != nil {
			if sum, ok := summaries[*issue.AssignedTo]; ok {
				records[i].Assignee = &sum
			}
		}
	}
	return records, nil
}
