package presence

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidArgument = errors.New("presence: invalid argument")

// Repository is the persistence contract for presence records.
type Repository interface {
	// Upsert sets the user's last activity to at.
	Upsert(ctx context.Context, userID string, at time.Time) error
	// LastSeen returns the user's last activity; ok is false for unknown users.
	LastSeen(ctx context.Context, userID string) (at time.Time, ok bool, err error)
	// ListSince returns records with LastSeenAt >= since. A zero since returns every known user.
	ListSince(ctx context.Context, since time.Time) ([]Record, error)
}

// Service answers reachability questions. Presence is advisory: it is used
// for discovery and never as an access-control input.
type Service struct {
	repo   Repository
	window time.Duration
	policy Policy
	clock  func() time.Time
}

func NewService(repo Repository, window time.Duration, policy Policy) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	if policy == "" {
		policy = PolicyRecent
	}
	return &Service{repo: repo, window: window, policy: policy, clock: time.Now}
}

// Touch records activity for userID at the current time.
func (s *Service) Touch(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	if s.repo == nil {
		return errors.New("presence: repository not configured")
	}
	return s.repo.Upsert(ctx, userID, s.clock().UTC())
}

// ListReachable returns reachable users other than excluding, in no particular order.
func (s *Service) ListReachable(ctx context.Context, excluding string) ([]Record, error) {
	if s.repo == nil {
		return nil, errors.New("presence: repository not configured")
	}

	var since time.Time
	if s.policy == PolicyRecent {
		since = s.clock().UTC().Add(-s.window)
	}

	rows, err := s.repo.ListSince(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if r.UserID == excluding {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// IsReachable reports whether userID was active within the window. It always
// applies the window, whatever the listing policy.
func (s *Service) IsReachable(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrInvalidArgument
	}
	if s.repo == nil {
		return false, errors.New("presence: repository not configured")
	}
	at, ok, err := s.repo.LastSeen(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return s.clock().UTC().Sub(at) <= s.window, nil
}
