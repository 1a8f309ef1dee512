package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/game/character"
	mw "github.com/questlogrpg/questlog/server/middleware"
)

// CharacterHandler handles character REST endpoints.
type CharacterHandler struct {
	chars *character.Service
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(chars *character.Service) *CharacterHandler {
	return &CharacterHandler{chars: chars}
}

type createCharacterRequest struct {
	Name      string `json:"name"       binding:"required,min=1,max=32"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

// Create handles POST /api/characters.
func (h *CharacterHandler) Create(c *gin.Context) {
	accountID := mw.GetAccountID(c)

	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.chars.Create(c.Request.Context(), accountID, req.Name, req.AvatarURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// Me handles GET /api/characters/me.
func (h *CharacterHandler) Me(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	ch, err := h.chars.FindByAccountID(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Delete handles DELETE /api/characters/me.
func (h *CharacterHandler) Delete(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	ch, err := h.chars.FindByAccountID(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.chars.Delete(c.Request.Context(), ch); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
