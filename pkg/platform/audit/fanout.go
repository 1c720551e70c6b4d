package audit

import (
	"context"
	"errors"

	id "issuehub/pkg/domain"
)

// Fanout writes every event to each store in order. A failing store does
// not prevent the others from receiving the event.
type Fanout []Store

func (f Fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListByActor reads from the first store that supports listing.
func (f Fanout) ListByActor(ctx context.Context, actorID id.UserID) ([]Event, error) {
	for _, s := range f {
		if l, ok := s.(Lister); ok {
			return l.ListByActor(ctx, actorID)
		}
	}
	return nil, errors.New("no audit store supports listing")
}
