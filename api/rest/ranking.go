package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/cache"
	"github.com/questlogrpg/questlog/server/game/character"
	"github.com/questlogrpg/questlog/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RankingHandler handles leaderboard REST endpoints.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{db: db, cache: c, logger: logger}
}

const rankingTop = 100

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank        int    `json:"rank"`
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	TotalXP     int64  `json:"total_xp"`
}

// TopXP returns the top characters sorted by total experience.
// GET /api/ranking/xp?limit=20
func (h *RankingHandler) TopXP(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}

	// Try the cached sorted set first.
	ctx := c.Request.Context()
	members, err := h.cache.ZRevRange(ctx, character.RankingKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for i, m := range members {
			score, _ := h.cache.ZScore(ctx, character.RankingKey, m)
			entries = append(entries, RankEntry{
				Rank:        i + 1,
				CharacterID: m,
				TotalXP:     int64(score),
			})
		}
		h.enrichNames(entries)
		c.JSON(http.StatusOK, gin.H{"ranking": entries})
		return
	}

	// Fall back to a DB query.
	var chars []model.Character
	h.db.Select("id, name, level, total_xp").
		Order("total_xp DESC").
		Limit(limit).
		Find(&chars)

	entries := make([]RankEntry, len(chars))
	for i, ch := range chars {
		entries[i] = RankEntry{
			Rank:        i + 1,
			CharacterID: ch.ID,
			Name:        ch.Name,
			Level:       ch.Level,
			TotalXP:     ch.TotalXP,
		}
		// Refresh cache entry.
		_ = h.cache.ZAdd(ctx, character.RankingKey, float64(ch.TotalXP), ch.ID)
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

func (h *RankingHandler) enrichNames(entries []RankEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.CharacterID
	}
	var chars []model.Character
	h.db.Select("id, name, level, total_xp").Where("id IN ?", ids).Find(&chars)
	byID := make(map[string]model.Character, len(chars))
	for _, ch := range chars {
		byID[ch.ID] = ch
	}
	for i := range entries {
		if ch, ok := byID[entries[i].CharacterID]; ok {
			entries[i].Name = ch.Name
			entries[i].Level = ch.Level
			entries[i].TotalXP = ch.TotalXP
		}
	}
}
