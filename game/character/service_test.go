package character

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/questlogrpg/questlog/server/apperr"
	"github.com/questlogrpg/questlog/server/cache"
	"github.com/questlogrpg/questlog/server/model"
	"github.com/questlogrpg/questlog/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.SetupTestDB(t), nil, zap.NewNop())
}

func newTestServiceWithRanking(t *testing.T) (*Service, cache.Cache) {
	t.Helper()
	c := testutil.SetupTestCache(t)
	return NewService(testutil.SetupTestDB(t), c, zap.NewNop()), c
}

func TestCreate(t *testing.T) {
	svc := newTestService(t)

	ch, err := svc.Create(context.Background(), 1, "hero", "")
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, int64(1), ch.AccountID)
	assert.Equal(t, "INITIAL", ch.QuestlineKey)

	got, err := svc.FindByAccountID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, got.ID)
}

func TestCreate_SecondCharacterConflicts(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), 1, "hero", "")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, "villain", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestFindByAccountID_Missing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.FindByAccountID(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestServiceWithRanking(t)
	ch, err := svc.Create(context.Background(), 1, "hero", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ch))

	_, err = svc.FindByAccountID(context.Background(), 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddExperience(t *testing.T) {
	svc := newTestService(t)
	ch, err := svc.Create(context.Background(), 1, "hero", "")
	require.NoError(t, err)

	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AddExperience(context.Background(), ch, 25, now))

	got, err := svc.FindByID(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), got.TotalXP)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 1, got.LongestStreak)
	require.NotNil(t, got.LastCompletedAt)
}

func TestNextStreak(t *testing.T) {
	base := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name        string
		ch          model.Character
		completedAt time.Time
		wantCurrent int
		wantLongest int
	}{
		{
			name:        "first completion",
			ch:          model.Character{},
			completedAt: base,
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name: "same day keeps streak",
			ch: model.Character{
				CurrentStreak: 3, LongestStreak: 5,
				LastCompletedAt: ptr(base),
			},
			completedAt: base.Add(8 * time.Hour),
			wantCurrent: 3,
			wantLongest: 5,
		},
		{
			name: "next day extends streak",
			ch: model.Character{
				CurrentStreak: 3, LongestStreak: 3,
				LastCompletedAt: ptr(base),
			},
			completedAt: base.AddDate(0, 0, 1),
			wantCurrent: 4,
			wantLongest: 4,
		},
		{
			name: "gap resets streak",
			ch: model.Character{
				CurrentStreak: 9, LongestStreak: 9,
				LastCompletedAt: ptr(base),
			},
			completedAt: base.AddDate(0, 0, 3),
			wantCurrent: 1,
			wantLongest: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := nextStreak(&tt.ch, tt.completedAt)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantLongest, longest)
		})
	}
}

func TestGrantBadge(t *testing.T) {
	svc := newTestService(t)
	ch, err := svc.Create(context.Background(), 1, "hero", "")
	require.NoError(t, err)

	require.NoError(t, svc.GrantBadge(context.Background(), ch.ID, "WEEK_STREAK"))
	// Idempotent.
	require.NoError(t, svc.GrantBadge(context.Background(), ch.ID, "WEEK_STREAK"))
	require.NoError(t, svc.GrantBadge(context.Background(), ch.ID, "MONTH_STREAK"))

	got, err := svc.FindByID(context.Background(), ch.ID)
	require.NoError(t, err)

	var badges []string
	require.NoError(t, json.Unmarshal(got.Badges, &badges))
	assert.Equal(t, []string{"WEEK_STREAK", "MONTH_STREAK"}, badges)
}

func TestRefreshRanking(t *testing.T) {
	svc, c := newTestServiceWithRanking(t)

	now := time.Now().UTC()
	for i, name := range []string{"low", "mid", "top"} {
		ch, err := svc.Create(context.Background(), int64(i+1), name, "")
		require.NoError(t, err)
		require.NoError(t, svc.AddExperience(context.Background(), ch, int64((i+1)*100), now))
	}

	n, err := svc.RefreshRanking(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	members, err := c.ZRevRange(context.Background(), RankingKey, 0, -1)
	require.NoError(t, err)
	require.Len(t, members, 3)

	top, err := svc.FindByID(context.Background(), members[0])
	require.NoError(t, err)
	assert.Equal(t, "top", top.Name)
}

func TestRefreshRanking_NoCache(t *testing.T) {
	svc := newTestService(t)
	n, err := svc.RefreshRanking(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
