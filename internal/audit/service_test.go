package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestService_AppendRequiresTypeAndCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeCallEnded}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{CallID: "c"}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	now := time.Unix(1700000000, 0).UTC()
	svc.clock = func() time.Time { return now }

	if err := svc.LogCallCreated(context.Background(), "a", "1.2.3.4", "call-1", "b"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogCredentialIssued(context.Background(), "b", "", "call-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Type != EventTypeCallCreated || evs[0].IPAddress != "1.2.3.4" || evs[0].ID == "" {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
	if !evs[0].CreatedAt.Equal(now) {
		t.Fatalf("expected clock timestamp")
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(evs[0].Metadata), &meta); err != nil || meta["receiver_id"] != "b" {
		t.Fatalf("unexpected metadata %q: %v", evs[0].Metadata, err)
	}
	if evs[1].Type != EventTypeCredentialIssued || evs[1].ActorUserID != "b" {
		t.Fatalf("unexpected event: %+v", evs[1])
	}
}

func TestService_NilIsNotConfigured(t *testing.T) {
	var svc *Service
	if err := svc.LogCallEnded(context.Background(), "a", "", "call-1"); err == nil {
		t.Fatalf("expected error from nil service")
	}
}

func TestStreamValues(t *testing.T) {
	v := streamValues(Event{ID: "e1", Type: EventTypeCallEnded, CallID: "c1", CreatedAt: time.Unix(0, 0)})
	if v["type"] != "call_ended" || v["call_id"] != "c1" || v["created_at"] != "1970-01-01T00:00:00Z" {
		t.Fatalf("unexpected values: %v", v)
	}
}

func TestService_MetadataIsJSONForAnyReceiver(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	receiver := "bob\x01\"\\"
	if err := svc.LogCallCreated(context.Background(), "a", "", "call-1", receiver); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(repo.Events()[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata must be valid JSON: %v", err)
	}
	if meta["receiver_id"] != receiver {
		t.Fatalf("receiver not preserved: %q", meta["receiver_id"])
	}
}

func TestMemoryRepo_ByCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogCallCreated(ctx, "a", "", "call-1", "b")
	_ = svc.LogCallCreated(ctx, "a", "", "call-2", "c")
	_ = svc.LogCredentialIssued(ctx, "b", "", "call-1", time.Now().Add(time.Hour))
	_ = svc.LogCallEnded(ctx, "a", "", "call-1")

	got := repo.ByCall("call-1")
	want := []EventType{EventTypeCallCreated, EventTypeCredentialIssued, EventTypeCallEnded}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if n := len(repo.ByCall("missing")); n != 0 {
		t.Fatalf("expected no events for unknown call, got %d", n)
	}
}
