package presence

import (
	"context"
	"sort"
	"testing"
	"time"
)

func newTestService(policy Policy, now *time.Time) (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	svc := NewService(repo, 5*time.Minute, policy)
	svc.clock = func() time.Time { return *now }
	return svc, repo
}

func userIDs(rs []Record) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.UserID)
	}
	sort.Strings(out)
	return out
}

func TestTouch_IsLastWriteWins(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	svc, repo := newTestService(PolicyRecent, &now)
	ctx := context.Background()

	if err := svc.Touch(ctx, "a"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	now = now.Add(time.Minute)
	if err := svc.Touch(ctx, "a"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	at, ok, _ := repo.LastSeen(ctx, "a")
	if !ok || !at.Equal(now) {
		t.Fatalf("expected last seen %s, got %s (ok=%v)", now, at, ok)
	}
	rows, _ := repo.ListSince(ctx, time.Time{})
	if len(rows) != 1 {
		t.Fatalf("expected one record per user, got %d", len(rows))
	}
}

func TestTouch_RejectsEmptyUser(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(PolicyRecent, &now)
	if err := svc.Touch(context.Background(), ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestListReachable_RecentPolicyAppliesWindowAndExcludesCaller(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	now := base
	svc, repo := newTestService(PolicyRecent, &now)
	ctx := context.Background()

	_ = repo.Upsert(ctx, "me", base)
	_ = repo.Upsert(ctx, "fresh", base.Add(-time.Minute))
	_ = repo.Upsert(ctx, "edge", base.Add(-5*time.Minute))
	_ = repo.Upsert(ctx, "stale", base.Add(-6*time.Minute))

	rs, err := svc.ListReachable(ctx, "me")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := userIDs(rs)
	if len(got) != 2 || got[0] != "edge" || got[1] != "fresh" {
		t.Fatalf("unexpected reachable set: %v", got)
	}
}

func TestListReachable_AllPolicyIgnoresRecency(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	now := base
	svc, repo := newTestService(PolicyAll, &now)
	ctx := context.Background()

	_ = repo.Upsert(ctx, "me", base)
	_ = repo.Upsert(ctx, "stale", base.Add(-24*time.Hour))

	rs, err := svc.ListReachable(ctx, "me")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := userIDs(rs); len(got) != 1 || got[0] != "stale" {
		t.Fatalf("unexpected set: %v", got)
	}
}

func TestListReachable_EmptyIsNotAnError(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(PolicyRecent, &now)
	rs, err := svc.ListReachable(context.Background(), "me")
	if err != nil || len(rs) != 0 {
		t.Fatalf("expected empty set, got %v %v", rs, err)
	}
}

func TestIsReachable(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	now := base
	svc, _ := newTestService(PolicyAll, &now)
	ctx := context.Background()

	if ok, err := svc.IsReachable(ctx, "ghost"); err != nil || ok {
		t.Fatalf("unknown user must be unreachable, got %v %v", ok, err)
	}

	_ = svc.Touch(ctx, "b")
	now = base.Add(5 * time.Minute)
	if ok, _ := svc.IsReachable(ctx, "b"); !ok {
		t.Fatalf("expected reachable at window boundary")
	}
	now = base.Add(5*time.Minute + time.Second)
	if ok, _ := svc.IsReachable(ctx, "b"); ok {
		t.Fatalf("expected unreachable after window even with PolicyAll")
	}
}

func TestRedisHelpers(t *testing.T) {
	if minScore(time.Time{}) != "-inf" {
		t.Fatalf("zero since must select everything")
	}
	at := time.UnixMilli(1700000000123).UTC()
	if !scoreTime(float64(at.UnixMilli())).Equal(at) {
		t.Fatalf("score round trip lost precision")
	}
}
