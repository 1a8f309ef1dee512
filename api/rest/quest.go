package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/game/character"
	"github.com/questlogrpg/questlog/server/game/quest"
	mw "github.com/questlogrpg/questlog/server/middleware"
	"github.com/questlogrpg/questlog/server/model"
)

// QuestHandler handles quest REST endpoints.
type QuestHandler struct {
	quests *quest.Service
	chars  *character.Service
}

// NewQuestHandler creates a new QuestHandler.
func NewQuestHandler(quests *quest.Service, chars *character.Service) *QuestHandler {
	return &QuestHandler{quests: quests, chars: chars}
}

func (h *QuestHandler) caller(c *gin.Context) (*model.Character, bool) {
	ch, err := h.chars.FindByAccountID(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return ch, true
}

type createQuestRequest struct {
	Title       string     `json:"title"       binding:"required,min=1,max=128"`
	Description string     `json:"description" binding:"max=1024"`
	Type        string     `json:"type"        binding:"required,oneof=HABIT TASK"`
	Frequency   string     `json:"frequency"   binding:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	Difficulty  string     `json:"difficulty"  binding:"required,oneof=TRIVIAL EASY MEDIUM HARD EPIC"`
	DueDate     *time.Time `json:"due_date"`
}

// Create handles POST /api/quests.
func (h *QuestHandler) Create(c *gin.Context) {
	ch, ok := h.caller(c)
	if !ok {
		return
	}

	var req createQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == model.QuestTypeHabit && req.Frequency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "habit quests require a frequency"})
		return
	}

	q, err := h.quests.Create(c.Request.Context(), ch, quest.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Frequency:   req.Frequency,
		Difficulty:  req.Difficulty,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// List handles GET /api/quests. With ?include_questline=true the shared
// questline quests are appended after the owned ones.
func (h *QuestHandler) List(c *gin.Context) {
	ch, ok := h.caller(c)
	if !ok {
		return
	}

	var (
		quests []model.Quest
		err    error
	)
	if c.Query("include_questline") == "true" {
		quests, err = h.quests.VisibleTo(c.Request.Context(), ch)
	} else {
		quests, err = h.quests.FindByCharacter(c.Request.Context(), ch)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

// Get handles GET /api/quests/:id.
func (h *QuestHandler) Get(c *gin.Context) {
	ch, ok := h.caller(c)
	if !ok {
		return
	}
	q, err := h.quests.FindByID(c.Request.Context(), c.Param("id"), ch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type updateQuestRequest struct {
	Title       *string    `json:"title"       binding:"omitempty,min=1,max=128"`
	Description *string    `json:"description" binding:"omitempty,max=1024"`
	Frequency   *string    `json:"frequency"   binding:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	Difficulty  *string    `json:"difficulty"  binding:"omitempty,oneof=TRIVIAL EASY MEDIUM HARD EPIC"`
	DueDate     *time.Time `json:"due_date"`
	IsPaused    *bool      `json:"is_paused"`
}

// Update handles PATCH /api/quests/:id.
func (h *QuestHandler) Update(c *gin.Context) {
	ch, ok := h.caller(c)
	if !ok {
		return
	}

	var req updateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := h.quests.Update(c.Request.Context(), c.Param("id"), ch, quest.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Frequency:   req.Frequency,
		Difficulty:  req.Difficulty,
		DueDate:     req.DueDate,
		IsPaused:    req.IsPaused,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Pause handles POST /api/quests/:id/pause.
func (h *QuestHandler) Pause(c *gin.Context) {
	h.setPaused(c, true)
}

// Unpause handles POST /api/quests/:id/unpause.
func (h *QuestHandler) Unpause(c *gin.Context) {
	h.setPaused(c, false)
}

func (h *QuestHandler) setPaused(c *gin.Context, paused bool) {
	ch, ok := h.caller(c)
	if !ok {
		return
	}
	q, err := h.quests.SetPaused(c.Request.Context(), c.Param("id"), ch, paused)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Delete handles DELETE /api/quests/:id.
func (h *QuestHandler) Delete(c *gin.Context) {
	ch, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.quests.Delete(c.Request.Context(), c.Param("id"), ch); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
