package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records signaling audit events. Callers should treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.CallID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) LogCallCreated(ctx context.Context, actorUserID, ip, callID, receiverID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeCallCreated,
		ActorUserID: actorUserID,
		IPAddress:   ip,
		CallID:      callID,
		Message:     "call created",
		Metadata:    metadataJSON(map[string]string{"receiver_id": receiverID}),
	})
}

func (s *Service) LogCallEnded(ctx context.Context, actorUserID, ip, callID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeCallEnded,
		ActorUserID: actorUserID,
		IPAddress:   ip,
		CallID:      callID,
		Message:     "call ended",
	})
}

func (s *Service) LogCredentialIssued(ctx context.Context, actorUserID, ip, callID string, expiresAt time.Time) error {
	return s.Append(ctx, Event{
		Type:        EventTypeCredentialIssued,
		ActorUserID: actorUserID,
		IPAddress:   ip,
		CallID:      callID,
		Message:     "join credential issued",
		Metadata:    metadataJSON(map[string]string{"expires_at": expiresAt.UTC().Format(time.RFC3339)}),
	})
}

// metadataJSON encodes flat string metadata. A map of strings always marshals.
func metadataJSON(fields map[string]string) string {
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}
