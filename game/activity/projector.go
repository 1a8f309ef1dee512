package activity

import (
	"time"

	"github.com/questlogrpg/questlog/server/game/recurrence"
	"github.com/questlogrpg/questlog/server/model"
)

// Project walks every calendar day in [start, end] and merges persisted
// activities with virtual ones synthesized from quest recurrence.
//
// Per (quest, day): a persisted activity is emitted as-is, regardless of
// pause state or recurrence. A paused quest with no record emits nothing.
// Otherwise the recurrence rule decides; matching days get a virtual
// PENDING activity that is never written to storage.
//
// Output order is days ascending, quests in input order, so the result is
// deterministic for a fixed input. newID supplies identifiers for virtual
// activities.
func Project(characterID string, start, end time.Time, quests []model.Quest, persisted []model.Activity, newID func() string) []model.Activity {
	type questDay struct {
		questID string
		day     string
	}
	byQuestDay := make(map[questDay]model.Activity, len(persisted))
	for _, a := range persisted {
		byQuestDay[questDay{a.QuestID, a.Day}] = a
	}

	result := make([]model.Activity, 0, len(persisted))
	for day := range recurrence.Days(start, end) {
		dayKey := day.Format(model.DayFormat)
		for i := range quests {
			q := &quests[i]

			if a, ok := byQuestDay[questDay{q.ID, dayKey}]; ok {
				a.IsVirtual = false
				result = append(result, a)
				continue
			}
			if q.IsPaused {
				continue
			}
			if !recurrence.IsActiveOn(q, day) {
				continue
			}

			result = append(result, model.Activity{
				ID:          newID(),
				CharacterID: characterID,
				QuestID:     q.ID,
				Day:         dayKey,
				Status:      model.ActivityPending,
				ClosedAt:    day,
				XPEarned:    0,
				CreatedAt:   day,
				UpdatedAt:   day,
				IsVirtual:   true,
			})
		}
	}
	return result
}
