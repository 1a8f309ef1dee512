package model

import "time"

// QuestType distinguishes recurring habits from one-shot tasks.
type QuestType = string

const (
	QuestTypeHabit QuestType = "HABIT"
	QuestTypeTask  QuestType = "TASK"
)

// QuestFrequency is the recurrence pattern of a HABIT quest.
// The pattern is anchored to the quest's DueDate (UTC calendar components).
type QuestFrequency = string

const (
	FrequencyDaily   QuestFrequency = "DAILY"
	FrequencyWeekly  QuestFrequency = "WEEKLY"
	FrequencyMonthly QuestFrequency = "MONTHLY"
	FrequencyYearly  QuestFrequency = "YEARLY"
)

// QuestDifficulty maps to a fixed XP award per completed activity.
type QuestDifficulty = string

const (
	DifficultyTrivial QuestDifficulty = "TRIVIAL"
	DifficultyEasy    QuestDifficulty = "EASY"
	DifficultyMedium  QuestDifficulty = "MEDIUM"
	DifficultyHard    QuestDifficulty = "HARD"
	DifficultyEpic    QuestDifficulty = "EPIC"
)

// Quest is a task definition owned by a character.
// Questline quests have no owner (empty CharacterID) and a QuestlineKey;
// they are visible to every character.
type Quest struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	CharacterID  string          `gorm:"index:idx_quest_char;size:36" json:"character_id"`
	QuestlineKey string          `gorm:"index:idx_quest_questline;size:32" json:"questline_key,omitempty"`
	Title        string          `gorm:"size:128;not null" json:"title"`
	Description  string          `gorm:"size:1024" json:"description"`
	Type         QuestType       `gorm:"size:16;not null" json:"type"`
	Frequency    QuestFrequency  `gorm:"size:16" json:"frequency,omitempty"`
	Difficulty   QuestDifficulty `gorm:"size:16;not null" json:"difficulty"`
	DueDate      *time.Time      `json:"due_date"`
	IsPaused     bool            `gorm:"default:false" json:"is_paused"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Questline reports whether the quest is a shared questline quest.
func (q *Quest) Questline() bool {
	return q.CharacterID == "" && q.QuestlineKey != ""
}
