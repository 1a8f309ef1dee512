package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questlogrpg/questlog/server/apperr"
	dbutil "github.com/questlogrpg/questlog/server/db"
	"github.com/questlogrpg/questlog/server/game/character"
	"github.com/questlogrpg/questlog/server/game/quest"
	"github.com/questlogrpg/questlog/server/model"
	"github.com/questlogrpg/questlog/server/plugin/hook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the activity lifecycle: timeline projection, explicit
// creation, and completion with its XP side effect.
type Service struct {
	db     *gorm.DB
	chars  *character.Service
	quests *quest.Service
	logger *zap.Logger

	// Now and NewID are the time and identifier capabilities. Tests
	// override them to pin completion boundaries and virtual IDs.
	Now   func() time.Time
	NewID func() string

	// Hooks, when set, gets triggered after create and complete.
	Hooks *hook.HookCenter
}

// NewService creates an activity Service with real time and UUIDs.
func NewService(db *gorm.DB, chars *character.Service, quests *quest.Service, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		chars:  chars,
		quests: quests,
		logger: logger,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

// FindByID returns a persisted activity owned by the character.
// A missing activity and another character's activity are both NotFound,
// so callers cannot probe for foreign activity IDs.
func (svc *Service) FindByID(ctx context.Context, activityID string, ch *model.Character) (*model.Activity, error) {
	var a model.Activity
	err := svc.db.WithContext(ctx).Where("id = ?", activityID).First(&a).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("activity lookup failed")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || a.CharacterID != ch.ID {
		return nil, apperr.NotFound("activity not found").WithDetail("activity_id", activityID)
	}
	return &a, nil
}

// Timeline projects the character's gap-free activity timeline over the
// inclusive [startAt, endAt] day range: persisted activities merged with
// virtual ones derived from quest recurrence. Read-only; virtual
// activities are never stored.
func (svc *Service) Timeline(ctx context.Context, accountID int64, startAt, endAt time.Time) ([]model.Activity, error) {
	ch, err := svc.chars.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	quests, err := svc.quests.VisibleTo(ctx, ch)
	if err != nil {
		return nil, err
	}

	persisted, err := svc.findBetweenDates(ctx, ch.ID, startAt, endAt)
	if err != nil {
		return nil, err
	}

	return Project(ch.ID, startAt, endAt, quests, persisted, svc.NewID), nil
}

// findBetweenDates fetches the character's persisted activities whose day
// falls inside the inclusive range.
func (svc *Service) findBetweenDates(ctx context.Context, characterID string, startAt, endAt time.Time) ([]model.Activity, error) {
	var activities []model.Activity
	err := svc.db.WithContext(ctx).
		Where("character_id = ? AND day >= ? AND day <= ?",
			characterID, model.DayOf(startAt), model.DayOf(endAt)).
		Order("day").Find(&activities).Error
	if err != nil {
		return nil, apperr.Internal("activity range query failed")
	}
	return activities, nil
}

// Create persists a PENDING activity for one of the character's quests.
// XPEarned is fixed from the quest difficulty at creation time and never
// changes afterwards. A second activity for the same (quest, day) hits
// the unique index and surfaces as Conflict.
func (svc *Service) Create(ctx context.Context, accountID int64, questID string, closedAt time.Time) (*model.Activity, error) {
	ch, err := svc.chars.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	q, err := svc.quests.FindByID(ctx, questID, ch)
	if err != nil {
		return nil, err
	}

	now := svc.Now()
	a := &model.Activity{
		ID:          svc.NewID(),
		CharacterID: ch.ID,
		QuestID:     q.ID,
		Day:         model.DayOf(closedAt),
		Status:      model.ActivityPending,
		ClosedAt:    closedAt,
		XPEarned:    XPFor(q.Difficulty),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.db.WithContext(ctx).Create(a).Error; err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, apperr.Conflict("activity already exists for this quest and day").
				WithDetail("quest_id", q.ID).WithDetail("day", a.Day)
		}
		return nil, apperr.Internal("failed to persist activity")
	}

	if svc.Hooks != nil {
		_, _ = svc.Hooks.Trigger(ctx, hook.OnActivityCreate, a)
	}
	return a, nil
}

// Complete marks a PENDING activity COMPLETED when the deadline has not
// passed, DELAYED otherwise, and awards the activity's XP to the owning
// character. The status flip is a conditional update guarded on PENDING
// inside one transaction with the award, so a concurrent second
// completion loses the race, fails with Conflict, and awards nothing.
func (svc *Service) Complete(ctx context.Context, accountID int64, activityID string) (*model.Activity, error) {
	ch, err := svc.chars.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	a, err := svc.FindByID(ctx, activityID, ch)
	if err != nil {
		return nil, err
	}
	if a.Status != model.ActivityPending {
		return nil, apperr.Conflict("activity is already completed").
			WithDetail("activity_id", a.ID).WithDetail("status", a.Status)
	}

	now := svc.Now()
	status := model.ActivityDelayed
	if !a.ClosedAt.Before(now) { // closedAt >= now: still on time
		status = model.ActivityCompleted
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Activity{}).
			Where("id = ? AND status = ?", a.ID, model.ActivityPending).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": now,
			})
		if result.Error != nil {
			return apperr.Internal("failed to persist activity completion")
		}
		if result.RowsAffected == 0 {
			return apperr.Conflict("activity is already completed").
				WithDetail("activity_id", a.ID)
		}
		return svc.chars.AwardExperience(ctx, tx, ch, a.XPEarned, now)
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("activity completed",
		zap.String("activity_id", a.ID),
		zap.String("character_id", ch.ID),
		zap.String("status", status),
		zap.Int64("xp_earned", a.XPEarned))

	a.Status = status
	a.UpdatedAt = now

	if svc.Hooks != nil {
		_, _ = svc.Hooks.Trigger(ctx, hook.OnActivityComplete, a)
	}
	return a, nil
}
