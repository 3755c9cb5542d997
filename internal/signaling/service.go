package signaling

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-signaling/internal/audit"
	"call-signaling/internal/auth"
	"call-signaling/internal/calls"
	"call-signaling/internal/media"
	"call-signaling/internal/notify"
	"call-signaling/internal/presence"
	"call-signaling/pkg/logger"
)

// Deps are the components Service composes. Notifier and Audit are optional.
type Deps struct {
	Registry *calls.Registry
	Presence *presence.Service
	Gateway  *media.Gateway
	Notifier notify.Notifier
	Audit    *audit.Service
}

type Options struct {
	// RequirePresence rejects CreateCall when the receiver is not reachable.
	// Off by default: presence is advisory.
	RequirePresence bool
	// LongPollMax caps the wait accepted by ListPending.
	LongPollMax time.Duration
}

// Service is the request-facing signaling surface. Every method takes the
// identity verified once by the transport layer and never trusts a user id
// supplied by the client. All returned errors are *Error.
type Service struct {
	deps  Deps
	opts  Options
	clock func() time.Time
}

func NewService(deps Deps, opts Options) *Service {
	if opts.LongPollMax <= 0 {
		opts.LongPollMax = 25 * time.Second
	}
	return &Service{deps: deps, opts: opts, clock: time.Now}
}

func (s *Service) requireIdentity(id auth.Identity) *Error {
	if !id.Valid(s.clock()) {
		return translate(auth.ErrUnauthenticated)
	}
	return nil
}

/* ===================== PRESENCE ===================== */

// Touch records activity for the caller. Failures are logged, never returned.
func (s *Service) Touch(ctx context.Context, id auth.Identity) {
	if s.deps.Presence == nil || id.UserID == "" {
		return
	}
	if err := s.deps.Presence.Touch(ctx, id.UserID); err != nil {
		logger.From(ctx).Warn("presence touch failed", "user_id", id.UserID, "err", err)
	}
}

func (s *Service) ListReachable(ctx context.Context, id auth.Identity) ([]presence.Record, error) {
	if err := s.requireIdentity(id); err != nil {
		return nil, err
	}
	out, err := s.deps.Presence.ListReachable(ctx, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "list reachable", err)
	}
	return out, nil
}

func (s *Service) IsReachable(ctx context.Context, id auth.Identity, userID string) (bool, error) {
	if err := s.requireIdentity(id); err != nil {
		return false, err
	}
	ok, err := s.deps.Presence.IsReachable(ctx, strings.TrimSpace(userID))
	if err != nil {
		return false, s.fail(ctx, "presence lookup", err)
	}
	return ok, nil
}

/* ===================== CALLS ===================== */

// CreateCall opens a pending session from the caller to receiverID.
func (s *Service) CreateCall(ctx context.Context, id auth.Identity, receiverID string) (calls.Session, error) {
	if err := s.requireIdentity(id); err != nil {
		return calls.Session{}, err
	}
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return calls.Session{}, newError(KindInvalidRequest, "receiverId is required", nil)
	}
	log := logger.From(ctx)

	if receiverID != id.UserID && s.deps.Presence != nil {
		reachable, err := s.deps.Presence.IsReachable(ctx, receiverID)
		switch {
		case err != nil:
			log.Warn("receiver presence lookup failed", "receiver_id", receiverID, "err", err)
		case !reachable && s.opts.RequirePresence:
			return calls.Session{}, newError(KindReceiverUnreachable, "this person is not online right now", nil)
		case !reachable:
			log.Info("calling unreachable receiver", "receiver_id", receiverID)
		}
	}

	sess, err := s.deps.Registry.Create(ctx, id.UserID, receiverID)
	if err != nil {
		return calls.Session{}, s.fail(ctx, "create call", err)
	}
	log.Info("call created", "call_id", sess.ID, "caller_id", sess.CallerID, "receiver_id", sess.ReceiverID)

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Publish(ctx, sess.ReceiverID, sess.ID); err != nil {
			log.Warn("incoming call notification failed", "call_id", sess.ID, "err", err)
		}
	}
	s.audit(ctx, func(a *audit.Service) error {
		return a.LogCallCreated(ctx, id.UserID, ClientIPFromContext(ctx), sess.ID, sess.ReceiverID)
	})
	return sess, nil
}

// GetCall returns a session the caller participates in.
func (s *Service) GetCall(ctx context.Context, id auth.Identity, sessionID string) (calls.Session, error) {
	if err := s.requireIdentity(id); err != nil {
		return calls.Session{}, err
	}
	sess, err := s.deps.Registry.Get(ctx, sessionID)
	if err != nil {
		return calls.Session{}, s.fail(ctx, "get call", err)
	}
	if !sess.IsParticipant(id.UserID) {
		return calls.Session{}, translate(calls.ErrUnauthorized)
	}
	return sess, nil
}

// EndCall terminates a session. Ending an ended session succeeds with the
// stored terminal state.
func (s *Service) EndCall(ctx context.Context, id auth.Identity, sessionID string) (calls.Session, error) {
	if err := s.requireIdentity(id); err != nil {
		return calls.Session{}, err
	}
	sess, err := s.deps.Registry.End(ctx, sessionID, id.UserID)
	if errors.Is(err, calls.ErrAlreadyEnded) {
		return sess, nil
	}
	if err != nil {
		return calls.Session{}, s.fail(ctx, "end call", err)
	}
	logger.From(ctx).Info("call ended", "call_id", sess.ID, "ended_by", id.UserID)
	s.audit(ctx, func(a *audit.Service) error {
		return a.LogCallEnded(ctx, id.UserID, ClientIPFromContext(ctx), sess.ID)
	})
	return sess, nil
}

// IssueJoinCredential mints media join credentials for a participant of a live session.
func (s *Service) IssueJoinCredential(ctx context.Context, id auth.Identity, sessionID string) (media.Credential, error) {
	if err := s.requireIdentity(id); err != nil {
		return media.Credential{}, err
	}
	cred, err := s.deps.Gateway.IssueJoinCredential(ctx, id, sessionID)
	if err != nil {
		return media.Credential{}, s.fail(ctx, "issue credential", err)
	}
	logger.From(ctx).Info("join credential issued", "call_id", cred.Room, "user_id", cred.Identity)
	s.audit(ctx, func(a *audit.Service) error {
		return a.LogCredentialIssued(ctx, id.UserID, ClientIPFromContext(ctx), cred.Room, cred.ExpiresAt)
	})
	return cred, nil
}

// PendingQuery is the incoming-call poll. Empty ReceiverID and Status default
// to the caller and "pending".
type PendingQuery struct {
	ReceiverID string
	Status     string
	Wait       time.Duration
}

// ListPending returns pending calls addressed to the caller, newest first.
// With Wait > 0 it blocks until a new call is announced or the wait elapses,
// then answers exactly like an immediate poll.
func (s *Service) ListPending(ctx context.Context, id auth.Identity, q PendingQuery) ([]calls.Session, error) {
	if err := s.requireIdentity(id); err != nil {
		return nil, err
	}
	receiverID := strings.TrimSpace(q.ReceiverID)
	if receiverID == "" {
		receiverID = id.UserID
	}
	if receiverID != id.UserID {
		return nil, newError(KindForbidden, "you can only list your own incoming calls", nil)
	}
	if q.Status != "" {
		st, ok := calls.ParseStatus(q.Status)
		if !ok || st != calls.StatusPending {
			return nil, newError(KindInvalidRequest, "only status=pending can be polled", nil)
		}
	}
	if q.Wait < 0 {
		return nil, newError(KindInvalidRequest, "wait must not be negative", nil)
	}

	if q.Wait == 0 || s.deps.Notifier == nil {
		return s.listPending(ctx, receiverID)
	}

	wait := q.Wait
	if wait > s.opts.LongPollMax {
		wait = s.opts.LongPollMax
	}
	// Subscribe before reading so a call created in between is not missed.
	sub, err := s.deps.Notifier.Subscribe(ctx, receiverID)
	if err != nil {
		logger.From(ctx).Warn("incoming call subscription failed, falling back to poll", "err", err)
		return s.listPending(ctx, receiverID)
	}
	defer sub.Close()

	out, err := s.listPending(ctx, receiverID)
	if err != nil || len(out) > 0 {
		return out, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if _, err := sub.Next(waitCtx); err != nil {
		// Timeout or client gone: answer with the (empty) snapshot.
		return out, nil
	}
	return s.listPending(ctx, receiverID)
}

func (s *Service) listPending(ctx context.Context, receiverID string) ([]calls.Session, error) {
	out, err := s.deps.Registry.ListPendingFor(ctx, receiverID)
	if err != nil {
		return nil, s.fail(ctx, "list pending", err)
	}
	return out, nil
}

/* ===================== INTERNAL ===================== */

// fail translates err and logs unexpected failures.
func (s *Service) fail(ctx context.Context, op string, err error) *Error {
	se := translate(err)
	switch se.Kind {
	case KindInternal:
		logger.From(ctx).Error(op+" failed", "err", err)
	case KindUpstreamUnavailable:
		logger.From(ctx).Warn(op+" upstream failure", "err", err)
	}
	return se
}

func (s *Service) audit(ctx context.Context, fn func(*audit.Service) error) {
	if s.deps.Audit == nil {
		return
	}
	if err := fn(s.deps.Audit); err != nil {
		logger.From(ctx).Warn("audit append failed", "err", err)
	}
}
