package presence

import (
	"strings"
	"testing"
)

func TestPostgresQueries_UpsertIsLastWriteWins(t *testing.T) {
	q := strings.Join(strings.Fields(queryUpsertLastSeen), " ")
	want := "INSERT INTO profiles (user_id, last_seen) VALUES ($1, $2) ON CONFLICT (user_id) DO UPDATE SET last_seen = EXCLUDED.last_seen"
	if q != want {
		t.Fatalf("unexpected upsert:\n got %q\nwant %q", q, want)
	}
}

func TestPostgresQueries_ListSinceIsInclusive(t *testing.T) {
	if !strings.HasSuffix(queryListSince, "WHERE last_seen >= $1") {
		t.Fatalf("window boundary must be inclusive: %q", queryListSince)
	}
	if strings.Contains(queryListAll, "WHERE") {
		t.Fatalf("listing everyone must not filter: %q", queryListAll)
	}
	if !strings.Contains(queryLastSeen, "WHERE user_id = $1") {
		t.Fatalf("unexpected lookup: %q", queryLastSeen)
	}
}
