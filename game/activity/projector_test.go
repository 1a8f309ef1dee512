package activity

import (
	"fmt"
	"testing"
	"time"

	"github.com/questlogrpg/questlog/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("virt-%d", n)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func habitDaily(id string) model.Quest {
	return model.Quest{
		ID:         id,
		Type:       model.QuestTypeHabit,
		Frequency:  model.FrequencyDaily,
		Difficulty: model.DifficultyEasy,
	}
}

func TestProject_VirtualFields(t *testing.T) {
	quests := []model.Quest{habitDaily("q1")}
	d := day(2026, 4, 10)

	got := Project("char-1", d, d, quests, nil, seqID())
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, "virt-1", a.ID)
	assert.Equal(t, "char-1", a.CharacterID)
	assert.Equal(t, "q1", a.QuestID)
	assert.Equal(t, "2026-04-10", a.Day)
	assert.Equal(t, model.ActivityPending, a.Status)
	assert.Equal(t, d, a.ClosedAt)
	assert.Equal(t, d, a.CreatedAt)
	assert.Equal(t, d, a.UpdatedAt)
	assert.Zero(t, a.XPEarned)
	assert.True(t, a.IsVirtual)
}

func TestProject_PersistedWinsOverVirtual(t *testing.T) {
	quests := []model.Quest{habitDaily("q1")}
	d := day(2026, 4, 10)
	persisted := []model.Activity{{
		ID:          "real-1",
		CharacterID: "char-1",
		QuestID:     "q1",
		Day:         "2026-04-10",
		Status:      model.ActivityCompleted,
		XPEarned:    10,
	}}

	got := Project("char-1", d, d, quests, persisted, seqID())
	require.Len(t, got, 1)
	assert.Equal(t, "real-1", got[0].ID)
	assert.Equal(t, model.ActivityCompleted, got[0].Status)
	assert.Equal(t, int64(10), got[0].XPEarned)
	assert.False(t, got[0].IsVirtual)
}

func TestProject_PausedQuestEmitsNothing(t *testing.T) {
	q := habitDaily("q1")
	q.IsPaused = true

	got := Project("char-1", day(2026, 4, 10), day(2026, 4, 12), []model.Quest{q}, nil, seqID())
	assert.Empty(t, got)
}

func TestProject_PausedQuestKeepsPersistedHistory(t *testing.T) {
	q := habitDaily("q1")
	q.IsPaused = true
	persisted := []model.Activity{{
		ID: "real-1", QuestID: "q1", CharacterID: "char-1",
		Day: "2026-04-11", Status: model.ActivityCompleted,
	}}

	got := Project("char-1", day(2026, 4, 10), day(2026, 4, 12), []model.Quest{q}, persisted, seqID())
	require.Len(t, got, 1)
	assert.Equal(t, "real-1", got[0].ID)
}

func TestProject_GapFreeDailyRange(t *testing.T) {
	quests := []model.Quest{habitDaily("q1")}

	got := Project("char-1", day(2026, 4, 1), day(2026, 4, 7), quests, nil, seqID())
	require.Len(t, got, 7)
	for i, a := range got {
		assert.Equal(t, day(2026, 4, 1+i).Format(model.DayFormat), a.Day)
	}
}

func TestProject_OrderDayThenQuestInput(t *testing.T) {
	// Quests deliberately not sorted by ID; output must follow input order.
	quests := []model.Quest{habitDaily("q-b"), habitDaily("q-a")}

	got := Project("char-1", day(2026, 4, 1), day(2026, 4, 2), quests, nil, seqID())
	require.Len(t, got, 4)
	assert.Equal(t, []string{"q-b", "q-a", "q-b", "q-a"},
		[]string{got[0].QuestID, got[1].QuestID, got[2].QuestID, got[3].QuestID})
	assert.Equal(t, "2026-04-01", got[0].Day)
	assert.Equal(t, "2026-04-01", got[1].Day)
	assert.Equal(t, "2026-04-02", got[2].Day)
	assert.Equal(t, "2026-04-02", got[3].Day)
}

func TestProject_WeeklyOnlyOnMatchingDays(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	due := day(2026, 3, 4)
	q := model.Quest{
		ID: "q1", Type: model.QuestTypeHabit,
		Frequency: model.FrequencyWeekly, DueDate: &due,
	}

	got := Project("char-1", day(2026, 3, 1), day(2026, 3, 14), []model.Quest{q}, nil, seqID())
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-04", got[0].Day)
	assert.Equal(t, "2026-03-11", got[1].Day)
}

func TestProject_TaskQuestNeverSynthesized(t *testing.T) {
	q := model.Quest{ID: "q1", Type: model.QuestTypeTask, Difficulty: model.DifficultyHard}
	got := Project("char-1", day(2026, 4, 1), day(2026, 4, 7), []model.Quest{q}, nil, seqID())
	assert.Empty(t, got)
}

func TestProject_Deterministic(t *testing.T) {
	quests := []model.Quest{habitDaily("q1"), habitDaily("q2")}
	persisted := []model.Activity{{
		ID: "real-1", QuestID: "q1", CharacterID: "char-1",
		Day: "2026-04-02", Status: model.ActivityDelayed,
	}}

	a := Project("char-1", day(2026, 4, 1), day(2026, 4, 3), quests, persisted, seqID())
	b := Project("char-1", day(2026, 4, 1), day(2026, 4, 3), quests, persisted, seqID())
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].QuestID, b[i].QuestID)
		assert.Equal(t, a[i].Day, b[i].Day)
		assert.Equal(t, a[i].Status, b[i].Status)
	}
}

func TestProject_EmptyInputs(t *testing.T) {
	got := Project("char-1", day(2026, 4, 1), day(2026, 4, 7), nil, nil, seqID())
	assert.Empty(t, got)
}
