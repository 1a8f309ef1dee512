package model

import "time"

// ActivityStatus is the lifecycle state of an activity.
// PENDING is the sole initial state; COMPLETED and DELAYED are terminal.
type ActivityStatus = string

const (
	ActivityPending   ActivityStatus = "PENDING"
	ActivityCompleted ActivityStatus = "COMPLETED"
	ActivityDelayed   ActivityStatus = "DELAYED"
)

// DayFormat is the calendar-day key layout used for the per-day uniqueness
// constraint and for matching persisted activities during projection.
const DayFormat = "2006-01-02"

// Activity is one dated instance of a quest being due or done.
// At most one persisted activity exists per (quest, day); the composite
// unique index enforces it.
type Activity struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	CharacterID string         `gorm:"index:idx_activity_char;size:36;not null" json:"character_id"`
	QuestID     string         `gorm:"size:36;not null;uniqueIndex:idx_activity_quest_day" json:"quest_id"`
	Day         string         `gorm:"size:10;not null;uniqueIndex:idx_activity_quest_day" json:"day"`
	Status      ActivityStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	ClosedAt    time.Time      `gorm:"not null" json:"closed_at"`
	XPEarned    int64          `gorm:"default:0" json:"xp_earned"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// IsVirtual marks activities synthesized during projection.
	// Never persisted; exists only in response payloads.
	IsVirtual bool `gorm:"-" json:"is_virtual"`
}

// DayOf normalizes a timestamp to its UTC calendar-day key.
func DayOf(t time.Time) string {
	return t.UTC().Format(DayFormat)
}
