package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/audit"
	"github.com/questlogrpg/questlog/server/config"
	"github.com/questlogrpg/questlog/server/game/activity"
	mw "github.com/questlogrpg/questlog/server/middleware"
	"github.com/questlogrpg/questlog/server/model"
)

// ActivityHandler handles activity REST endpoints.
type ActivityHandler struct {
	acts  *activity.Service
	audit *audit.Service
	game  config.GameConfig
}

// NewActivityHandler creates a new ActivityHandler. auditSvc may be nil in tests.
func NewActivityHandler(acts *activity.Service, auditSvc *audit.Service, game config.GameConfig) *ActivityHandler {
	return &ActivityHandler{acts: acts, audit: auditSvc, game: game}
}

// parseDay accepts RFC3339 timestamps or bare YYYY-MM-DD dates.
func parseDay(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(model.DayFormat, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Timeline handles GET /api/activities?start_at=...&end_at=...
func (h *ActivityHandler) Timeline(c *gin.Context) {
	startAt, ok := parseDay(c.Query("start_at"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_at"})
		return
	}
	endAt, ok := parseDay(c.Query("end_at"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_at"})
		return
	}
	if endAt.Before(startAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_at is before start_at"})
		return
	}
	if maxDays := h.game.TimelineMaxDays; maxDays > 0 {
		if int(endAt.Sub(startAt).Hours()/24)+1 > maxDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date range too large"})
			return
		}
	}

	activities, err := h.acts.Timeline(c.Request.Context(), mw.GetAccountID(c), startAt, endAt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

type createActivityRequest struct {
	QuestID  string    `json:"quest_id"  binding:"required,uuid"`
	ClosedAt time.Time `json:"closed_at" binding:"required"`
}

// Create handles POST /api/activities.
func (h *ActivityHandler) Create(c *gin.Context) {
	var req createActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.acts.Create(c.Request.Context(), mw.GetAccountID(c), req.QuestID, req.ClosedAt)
	if err != nil {
		writeError(c, err)
		return
	}

	h.logActivity(c, "activity_create", a, "")
	c.JSON(http.StatusCreated, a)
}

// Complete handles POST /api/activities/:id/complete.
func (h *ActivityHandler) Complete(c *gin.Context) {
	a, err := h.acts.Complete(c.Request.Context(), mw.GetAccountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	h.logActivity(c, "activity_complete", a, "")
	c.JSON(http.StatusOK, a)
}

func (h *ActivityHandler) logActivity(c *gin.Context, action string, a *model.Activity, errMsg string) {
	if h.audit == nil {
		return
	}
	accountID := mw.GetAccountID(c)
	h.audit.Log(audit.Entry{
		TraceID:     mw.GetTraceID(c),
		AccountID:   &accountID,
		CharacterID: a.CharacterID,
		Action:      action,
		Response:    a,
		Error:       errMsg,
		IP:          c.ClientIP(),
	})
}
