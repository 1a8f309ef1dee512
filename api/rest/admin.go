package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/game/character"
	"github.com/questlogrpg/questlog/server/model"
	"github.com/questlogrpg/questlog/server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db     *gorm.DB
	chars  *character.Service
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, chars *character.Service, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, chars: chars, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var accounts, characters, quests, activities int64
	h.db.Model(&model.Account{}).Count(&accounts)
	h.db.Model(&model.Character{}).Count(&characters)
	h.db.Model(&model.Quest{}).Count(&quests)
	h.db.Model(&model.Activity{}).Count(&activities)

	c.JSON(http.StatusOK, gin.H{
		"accounts":        accounts,
		"characters":      characters,
		"quests":          quests,
		"activities":      activities,
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// BanAccount bans or unbans an account.
// POST /api/admin/accounts/:id/ban
func (h *AdminHandler) BanAccount(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	_ = c.ShouldBindJSON(&req)

	status := 1
	if req.Ban {
		status = 0
	}
	result := h.db.Model(&model.Account{}).Where("id = ?", accountID).Update("status", status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	h.logger.Info("account ban status changed",
		zap.Int64("account_id", accountID),
		zap.Bool("banned", req.Ban))
	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "status": status})
}

// RefreshRanking rebuilds the XP leaderboard from the DB.
// POST /api/admin/ranking/refresh
func (h *AdminHandler) RefreshRanking(c *gin.Context) {
	n, err := h.chars.RefreshRanking(c.Request.Context(), rankingTop)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// ListSchedulerTasks returns all registered periodic tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// If adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		if c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
