package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"call-signaling/internal/auth"
	"call-signaling/internal/signaling"
	"call-signaling/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call the signaling service, return JSON.
type Handlers struct {
	Signaling *signaling.Service
}

// --- Helpers ---

// identity returns the identity injected by auth.RequireIdentity and a
// request context carrying the client IP for audit records.
func (h Handlers) identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.FromContext(c.Request.Context())
	if err != nil {
		writeError(c, &signaling.Error{Kind: signaling.KindUnauthenticated, Message: "please sign in"})
		return auth.Identity{}, false
	}
	c.Request = c.Request.WithContext(signaling.WithClientIP(c.Request.Context(), c.ClientIP()))
	return id, true
}

func statusFor(kind signaling.Kind) int {
	switch kind {
	case signaling.KindUnauthenticated:
		return http.StatusUnauthorized
	case signaling.KindInvalidParticipants, signaling.KindInvalidRequest:
		return http.StatusBadRequest
	case signaling.KindSessionNotFound:
		return http.StatusNotFound
	case signaling.KindForbidden:
		return http.StatusForbidden
	case signaling.KindSessionEnded, signaling.KindReceiverUnreachable:
		return http.StatusConflict
	case signaling.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var se *signaling.Error
	if !errors.As(err, &se) {
		logger.FromGin(c).Error("unclassified handler error", "err", err)
		se = &signaling.Error{Kind: signaling.KindInternal, Message: "internal error"}
	}
	c.AbortWithStatusJSON(statusFor(se.Kind), gin.H{"error": se.Message, "kind": se.Kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": signaling.KindInvalidRequest})
}

// TouchPresence records activity for every authenticated request.
// Must run after auth.RequireIdentity.
func (h Handlers) TouchPresence(c *gin.Context) {
	if id, err := auth.FromContext(c.Request.Context()); err == nil {
		h.Signaling.Touch(c.Request.Context(), id)
	}
	c.Next()
}

// --- Calls ---

type createCallRequest struct {
	ReceiverID string `json:"receiverId"`
}

// CreateCall opens a pending call from the authenticated user.
func (h Handlers) CreateCall(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	sess, err := h.Signaling.CreateCall(c.Request.Context(), id, req.ReceiverID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h Handlers) GetCall(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	sess, err := h.Signaling.GetCall(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) EndCall(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	sess, err := h.Signaling.EndCall(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// IssueCredential returns media join credentials for a live call.
func (h Handlers) IssueCredential(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	cred, err := h.Signaling.IssueJoinCredential(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

// ListCalls is the incoming-call poll: GET /calls?receiverId=&status=pending[&wait=20s].
func (h Handlers) ListCalls(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	wait, err := parseWait(c.Query("wait"))
	if err != nil {
		badRequest(c, "wait must be a duration like 20s or a number of seconds")
		return
	}
	out, err := h.Signaling.ListPending(c.Request.Context(), id, signaling.PendingQuery{
		ReceiverID: c.Query("receiverId"),
		Status:     c.Query("status"),
		Wait:       wait,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// maxWaitSeconds bounds plain-second waits before conversion so huge values
// cannot overflow time.Duration. The service caps further at its long-poll limit.
const maxWaitSeconds = 3600

// parseWait accepts "20s" style durations or plain seconds.
func parseWait(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n > maxWaitSeconds {
			n = maxWaitSeconds
		}
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// --- Presence ---

func (h Handlers) Heartbeat(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	h.Signaling.Touch(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}

func (h Handlers) ListReachable(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	users, err := h.Signaling.ListReachable(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h Handlers) GetPresence(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	userID := c.Param("userId")
	reachable, err := h.Signaling.IsReachable(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "reachable": reachable})
}

// Register mounts the signaling routes on g. authMW must be auth.RequireIdentity.
func (h Handlers) Register(g *gin.RouterGroup, authMW gin.HandlerFunc) {
	g.Use(authMW, h.TouchPresence)

	calls := g.Group("/calls")
	{
		calls.POST("", h.CreateCall)
		calls.GET("", h.ListCalls)
		calls.GET("/:id", h.GetCall)
		calls.POST("/:id/end", h.EndCall)
		calls.POST("/:id/credential", h.IssueCredential)
	}

	presence := g.Group("/presence")
	{
		presence.POST("/heartbeat", h.Heartbeat)
		presence.GET("/reachable", h.ListReachable)
		presence.GET("/:userId", h.GetPresence)
	}
}
