package calls

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidParticipants = errors.New("calls: caller and receiver must be two different users")
	ErrNotFound            = errors.New("calls: session not found")
	ErrUnauthorized        = errors.New("calls: requester is not a participant")
	// ErrAlreadyEnded is returned alongside the ended session; callers treat it as a no-op.
	ErrAlreadyEnded = errors.New("calls: session already ended")
)

// Repository is the persistence contract for call sessions.
//
// Sessions are never deleted, so no Delete method is provided.
type Repository interface {
	Insert(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	// MarkEnded moves a pending session to ended with a single conditional write.
	// transitioned is false when the session was already ended; the stored
	// session is returned either way.
	MarkEnded(ctx context.Context, id string, endedAt time.Time) (s Session, transitioned bool, err error)
	// ListByReceiver returns sessions for receiverID with the given status, newest first.
	ListByReceiver(ctx context.Context, receiverID string, status Status) ([]Session, error)
}

// Registry owns call session state and is the single source of truth for status.
//
// Create is intentionally neither deduplicated nor gated by presence: two
// concurrent calls between the same pair produce two pending sessions, and a
// pending session never expires on its own.
type Registry struct {
	repo  Repository
	clock func() time.Time
	newID func() string
}

func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, clock: time.Now, newID: uuid.NewString}
}

func (r *Registry) Create(ctx context.Context, callerID, receiverID string) (Session, error) {
	callerID = strings.TrimSpace(callerID)
	receiverID = strings.TrimSpace(receiverID)
	if callerID == "" || receiverID == "" || callerID == receiverID {
		return Session{}, ErrInvalidParticipants
	}
	if r.repo == nil {
		return Session{}, errors.New("calls: repository not configured")
	}

	s := Session{
		ID:         r.newID(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     StatusPending,
		CreatedAt:  r.clock().UTC(),
	}
	if err := r.repo.Insert(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (r *Registry) Get(ctx context.Context, id string) (Session, error) {
	if strings.TrimSpace(id) == "" {
		return Session{}, ErrNotFound
	}
	if r.repo == nil {
		return Session{}, errors.New("calls: repository not configured")
	}
	return r.repo.Get(ctx, id)
}

// End terminates a session on behalf of one of its participants.
// Ending an ended session returns the stored session with ErrAlreadyEnded.
func (r *Registry) End(ctx context.Context, id, requesterID string) (Session, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !s.IsParticipant(requesterID) {
		return Session{}, ErrUnauthorized
	}
	if s.IsEnded() {
		return s, ErrAlreadyEnded
	}

	ended, transitioned, err := r.repo.MarkEnded(ctx, id, r.clock().UTC())
	if err != nil {
		return Session{}, err
	}
	if !transitioned {
		// Lost the race against a concurrent End; both settle on ended.
		return ended, ErrAlreadyEnded
	}
	return ended, nil
}

// ListPendingFor returns pending sessions where userID is the receiver, newest first.
func (r *Registry) ListPendingFor(ctx context.Context, userID string) ([]Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidParticipants
	}
	if r.repo == nil {
		return nil, errors.New("calls: repository not configured")
	}
	return r.repo.ListByReceiver(ctx, userID, StatusPending)
}
