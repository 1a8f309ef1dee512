package model

import (
	"time"

	"gorm.io/datatypes"
)

// Character is the player-facing profile owned by an account.
// Each account owns at most one character.
type Character struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	AccountID       int64          `gorm:"uniqueIndex:idx_char_account;not null" json:"account_id"`
	Name            string         `gorm:"size:32;not null" json:"name"`
	AvatarURL       string         `gorm:"size:256" json:"avatar_url"`
	QuestlineKey    string         `gorm:"size:32;default:INITIAL" json:"questline_key"`
	Level           int            `gorm:"default:0" json:"level"`
	TotalXP         int64          `gorm:"default:0" json:"total_xp"`
	CurrentStreak   int            `gorm:"default:0" json:"current_streak"`
	LongestStreak   int            `gorm:"default:0" json:"longest_streak"`
	RankingPosition int            `gorm:"default:0" json:"ranking_position"`
	Badges          datatypes.JSON `json:"badges"` // ["EARLY_BIRD", ...]
	LastCompletedAt *time.Time     `json:"last_completed_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
