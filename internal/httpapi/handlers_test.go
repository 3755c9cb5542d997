package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"call-signaling/internal/audit"
	"call-signaling/internal/auth"
	"call-signaling/internal/calls"
	"call-signaling/internal/config"
	"call-signaling/internal/media"
	"call-signaling/internal/notify"
	"call-signaling/internal/presence"
	"call-signaling/internal/signaling"

	"github.com/gin-gonic/gin"
)

type testAPI struct {
	router   *gin.Engine
	verifier *auth.SecretVerifier
	provider *media.LiveKitProvider
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := auth.NewSecretVerifier(config.AuthConfig{JWTSecret: "test-secret"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	provider, err := media.NewLiveKitProvider(config.LiveKitConfig{URL: "wss://media.example", APIKey: "key", APISecret: "secret"})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	reg := calls.NewRegistry(calls.NewMemoryRepo())
	svc := signaling.NewService(signaling.Deps{
		Registry: reg,
		Presence: presence.NewService(presence.NewMemoryRepo(), 5*time.Minute, presence.PolicyRecent),
		Gateway:  media.NewGateway(reg, provider, time.Hour),
		Notifier: notify.NewMemoryNotifier(),
		Audit:    audit.NewService(audit.NewMemoryRepo()),
	}, signaling.Options{LongPollMax: 50 * time.Millisecond})

	r := gin.New()
	Handlers{Signaling: svc}.Register(r.Group(""), auth.RequireIdentity(verifier))
	return &testAPI{router: r, verifier: verifier, provider: provider}
}

func (a *testAPI) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		tok, err := a.verifier.Issue(time.Now(), user, time.Hour)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func TestCallFlow_OverHTTP(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/calls", "alice", gin.H{"receiverId": "bob"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", w.Code, w.Body.String())
	}
	sess := decode[calls.Session](t, w)
	if sess.CallerID != "alice" || sess.ReceiverID != "bob" || sess.Status != calls.StatusPending {
		t.Fatalf("unexpected session: %+v", sess)
	}

	w = api.do(t, http.MethodGet, "/calls?receiverId=bob&status=pending", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("poll: expected 200, got %d", w.Code)
	}
	if list := decode[[]calls.Session](t, w); len(list) != 1 || list[0].ID != sess.ID {
		t.Fatalf("unexpected poll result: %+v", list)
	}

	w = api.do(t, http.MethodPost, "/calls/"+sess.ID+"/credential", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("credential: expected 200, got %d %s", w.Code, w.Body.String())
	}
	cred := decode[media.Credential](t, w)
	if cred.Room != sess.ID || cred.ServerURL != "wss://media.example" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	grant, err := api.provider.Parse(cred.Token)
	if err != nil || grant.Identity != "bob" || grant.Room != sess.ID {
		t.Fatalf("credential token does not carry the grant: %+v %v", grant, err)
	}

	w = api.do(t, http.MethodPost, "/calls/"+sess.ID+"/end", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end: expected 200, got %d", w.Code)
	}
	if ended := decode[calls.Session](t, w); ended.Status != calls.StatusEnded {
		t.Fatalf("expected ended, got %s", ended.Status)
	}

	w = api.do(t, http.MethodPost, "/calls/"+sess.ID+"/credential", "bob", nil)
	if w.Code != http.StatusConflict || decode[errorBody](t, w).Kind != "session_ended" {
		t.Fatalf("expected 409 session_ended, got %d %s", w.Code, w.Body.String())
	}
}

func TestCalls_RequireBearer(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/calls", "", gin.H{"receiverId": "bob"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateCall_ErrorMapping(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/calls", "alice", gin.H{"receiverId": "alice"})
	if w.Code != http.StatusBadRequest || decode[errorBody](t, w).Kind != "invalid_participants" {
		t.Fatalf("expected 400 invalid_participants, got %d %s", w.Code, w.Body.String())
	}

	w = api.do(t, http.MethodPost, "/calls", "alice", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing receiver, got %d", w.Code)
	}
}

func TestGetCall_StrangerForbidden(t *testing.T) {
	api := newTestAPI(t)
	sess := decode[calls.Session](t, api.do(t, http.MethodPost, "/calls", "alice", gin.H{"receiverId": "bob"}))

	w := api.do(t, http.MethodGet, "/calls/"+sess.ID, "mallory", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	w = api.do(t, http.MethodPost, "/calls/"+sess.ID+"/credential", "mallory", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on credential, got %d", w.Code)
	}
	w = api.do(t, http.MethodGet, "/calls/nope", "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListCalls_Validation(t *testing.T) {
	api := newTestAPI(t)

	if w := api.do(t, http.MethodGet, "/calls?receiverId=bob", "alice", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another receiver, got %d", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/calls?status=ended", "alice", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for status filter, got %d", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/calls?wait=soon", "alice", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad wait, got %d", w.Code)
	}
	w := api.do(t, http.MethodGet, "/calls?wait=1", "alice", nil)
	if w.Code != http.StatusOK || len(decode[[]calls.Session](t, w)) != 0 {
		t.Fatalf("expected empty long-poll result, got %d %s", w.Code, w.Body.String())
	}
}

func TestPresence_Endpoints(t *testing.T) {
	api := newTestAPI(t)

	if w := api.do(t, http.MethodPost, "/presence/heartbeat", "bob", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w := api.do(t, http.MethodGet, "/presence/reachable", "alice", nil)
	body := decode[struct {
		Users []presence.Record `json:"users"`
	}](t, w)
	if len(body.Users) != 1 || body.Users[0].UserID != "bob" {
		t.Fatalf("expected bob reachable, got %+v", body.Users)
	}

	w = api.do(t, http.MethodGet, "/presence/carol", "alice", nil)
	got := decode[struct {
		UserID    string `json:"userId"`
		Reachable bool   `json:"reachable"`
	}](t, w)
	if got.UserID != "carol" || got.Reachable {
		t.Fatalf("expected carol unreachable, got %+v", got)
	}
}

func TestParseWait(t *testing.T) {
	cases := map[string]time.Duration{
		"":            0,
		"5":           5 * time.Second,
		"250ms":       250 * time.Millisecond,
		"10000000000": maxWaitSeconds * time.Second,
	}
	for in, want := range cases {
		got, err := parseWait(in)
		if err != nil || got != want {
			t.Fatalf("parseWait(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := parseWait("later"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListCalls_HugeWaitIsCapped(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/calls?wait=10000000000", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected huge wait to be capped, got %d %s", w.Code, w.Body.String())
	}
	if len(decode[[]calls.Session](t, w)) != 0 {
		t.Fatalf("expected empty result")
	}
}
