package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
	"github.com/ersonp/influence-tracker/internal/domain/services"
)

const (
	heartbeatInterval = 25 * time.Second
	wsWriteWait       = 10 * time.Second
)

// UnlockInput is the body of POST /api/admin/unlock.
type UnlockInput struct {
	Password string `json:"password" binding:"required"`
}

// Env holds the use case handlers shared by the routes.
type Env struct {
	Archive *handlers.ArchiveHandler
	Submit  *handlers.SubmitHandler
	Admin   *handlers.AdminHandler
	Hub     *EventHub

	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

// ListEntries serves GET /api/entries?category=&q=.
func (e *Env) ListEntries(c *gin.Context) {
	result, err := e.Archive.HandleList(c.Request.Context(), c.Query("category"), c.Query("q"))
	if err != nil {
		e.fail(c, err, "Failed to fetch entries")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetEntry serves GET /api/entries/:id and counts the view.
func (e *Env) GetEntry(c *gin.Context) {
	detail, err := e.Archive.HandleShow(c.Request.Context(), c.Param("id"))
	if err != nil {
		e.fail(c, err, "Failed to fetch entry")
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListFeatured serves GET /api/featured.
func (e *Env) ListFeatured(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	entries, err := e.Archive.HandleFeatured(c.Request.Context(), limit)
	if err != nil {
		e.fail(c, err, "Failed to fetch entries")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ListCategories serves GET /api/categories.
func (e *Env) ListCategories(c *gin.Context) {
	cats, err := e.Archive.HandleCategories(c.Request.Context())
	if err != nil {
		e.fail(c, err, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, cats)
}

// ListTags serves GET /api/tags?limit=.
func (e *Env) ListTags(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	tags, err := e.Archive.HandleTrending(c.Request.Context(), limit)
	if err != nil {
		e.fail(c, err, "Failed to fetch tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// CreateSubmission serves POST /api/submissions.
func (e *Env) CreateSubmission(c *gin.Context) {
	var form handlers.SubmitForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	sub, err := e.Submit.Handle(c.Request.Context(), form)
	if err != nil {
		e.fail(c, err, "Failed to create submission")
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Unlock serves POST /api/admin/unlock.
func (e *Env) Unlock(c *gin.Context) {
	var input UnlockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	session, err := e.Admin.HandleUnlock(input.Password)
	if err != nil {
		e.fail(c, err, "Failed to unlock")
		return
	}
	c.JSON(http.StatusOK, session)
}

// Lock serves POST /api/admin/lock.
func (e *Env) Lock(c *gin.Context) {
	e.Admin.HandleLock(c.GetString(adminTokenKey))
	c.Status(http.StatusNoContent)
}

// ListQueue serves GET /api/admin/submissions.
func (e *Env) ListQueue(c *gin.Context) {
	result, err := e.Admin.HandleQueue(c.Request.Context(), c.GetString(adminTokenKey))
	if err != nil {
		e.fail(c, err, "Failed to fetch submissions")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Approve serves POST /api/admin/submissions/:id/approve.
func (e *Env) Approve(c *gin.Context) {
	result, err := e.Admin.HandleApprove(c.Request.Context(), c.GetString(adminTokenKey), c.Param("id"))
	if err != nil {
		e.fail(c, err, "Failed to approve submission")
		return
	}
	if result.Warning != "" {
		log.Printf("Submission %s: %s", result.SubmissionID, result.Warning)
	}
	c.JSON(http.StatusOK, result)
}

// Reject serves POST /api/admin/submissions/:id/reject.
func (e *Env) Reject(c *gin.Context) {
	result, err := e.Admin.HandleReject(c.Request.Context(), c.GetString(adminTokenKey), c.Param("id"))
	if err != nil {
		e.fail(c, err, "Failed to reject submission")
		return
	}
	if result.Warning != "" {
		log.Printf("Submission %s: %s", result.SubmissionID, result.Warning)
	}
	c.JSON(http.StatusOK, result)
}

// History serves GET /api/admin/history?action=&limit=.
func (e *Env) History(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	history, err := e.Admin.HandleHistory(c.Request.Context(), c.GetString(adminTokenKey), c.Query("action"), limit)
	if err != nil {
		e.fail(c, err, "Failed to fetch history")
		return
	}
	c.JSON(http.StatusOK, history)
}

// StreamEvents serves GET /api/events as server-sent events.
func (e *Env) StreamEvents(c *gin.Context) {
	events, unsubscribe := e.Hub.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(e.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Kind), ev)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		}
	}
}

// ServeWs serves GET /ws, pushing change events as JSON messages.
func (e *Env) ServeWs(c *gin.Context) {
	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := e.Hub.Subscribe()
	defer unsubscribe()

	// The reader only detects a closed connection; clients send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(e.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-heartbeat.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// fail maps domain errors to HTTP statuses. Unexpected errors are logged
// and reported as msg.
func (e *Env) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, handlers.ErrEmptyClaim), errors.Is(err, services.ErrEmptyClaim):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAdminDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("%s: %v", msg, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// queryLimit parses the optional limit parameter. It writes a 400 and
// returns false when the value is not a non-negative integer.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, false
	}
	return limit, true
}
