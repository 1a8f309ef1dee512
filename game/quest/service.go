package quest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questlogrpg/questlog/server/apperr"
	"github.com/questlogrpg/questlog/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns quest definitions and their ownership rules.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a quest Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateInput holds the fields of a new quest.
type CreateInput struct {
	Title       string
	Description string
	Type        model.QuestType
	Frequency   model.QuestFrequency
	Difficulty  model.QuestDifficulty
	DueDate     *time.Time
}

// Create persists a new quest owned by the character.
func (svc *Service) Create(ctx context.Context, ch *model.Character, in CreateInput) (*model.Quest, error) {
	q := &model.Quest{
		ID:          uuid.NewString(),
		CharacterID: ch.ID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Frequency:   in.Frequency,
		Difficulty:  in.Difficulty,
		DueDate:     in.DueDate,
	}
	if err := svc.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, apperr.Internal("failed to persist quest")
	}
	return q, nil
}

// FindByID returns a quest the character may access: its own quests and
// shared questline quests. Anything else is Forbidden; a missing quest
// is NotFound.
func (svc *Service) FindByID(ctx context.Context, questID string, ch *model.Character) (*model.Quest, error) {
	var q model.Quest
	err := svc.db.WithContext(ctx).Where("id = ?", questID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("quest not found").WithDetail("quest_id", questID)
	}
	if err != nil {
		return nil, apperr.Internal("quest lookup failed")
	}
	if q.CharacterID != ch.ID && !q.Questline() {
		return nil, apperr.Forbidden("you are not allowed to access this quest")
	}
	return &q, nil
}

// FindByCharacter returns the quests owned by the character.
func (svc *Service) FindByCharacter(ctx context.Context, ch *model.Character) ([]model.Quest, error) {
	var quests []model.Quest
	err := svc.db.WithContext(ctx).Where("character_id = ?", ch.ID).
		Order("created_at").Find(&quests).Error
	if err != nil {
		return nil, apperr.Internal("quest list failed")
	}
	return quests, nil
}

// FindByQuestline returns the shared questline quests visible to every
// character.
func (svc *Service) FindByQuestline(ctx context.Context) ([]model.Quest, error) {
	var quests []model.Quest
	err := svc.db.WithContext(ctx).
		Where("character_id = ? AND questline_key <> ?", "", "").
		Order("created_at").Find(&quests).Error
	if err != nil {
		return nil, apperr.Internal("questline list failed")
	}
	return quests, nil
}

// VisibleTo returns every quest the character sees in its timeline:
// owned quests first, then questline quests, in stable order.
func (svc *Service) VisibleTo(ctx context.Context, ch *model.Character) ([]model.Quest, error) {
	owned, err := svc.FindByCharacter(ctx, ch)
	if err != nil {
		return nil, err
	}
	shared, err := svc.FindByQuestline(ctx)
	if err != nil {
		return nil, err
	}
	return append(owned, shared...), nil
}

// UpdateInput holds the mutable quest fields; nil pointers are left as-is.
type UpdateInput struct {
	Title       *string
	Description *string
	Frequency   *model.QuestFrequency
	Difficulty  *model.QuestDifficulty
	DueDate     *time.Time
	IsPaused    *bool
}

// Update patches an owned quest. Questline quests cannot be modified.
func (svc *Service) Update(ctx context.Context, questID string, ch *model.Character, in UpdateInput) (*model.Quest, error) {
	q, err := svc.FindByID(ctx, questID, ch)
	if err != nil {
		return nil, err
	}
	if q.Questline() {
		return nil, apperr.Forbidden("questline quests cannot be modified")
	}

	if in.Title != nil {
		q.Title = *in.Title
	}
	if in.Description != nil {
		q.Description = *in.Description
	}
	if in.Frequency != nil {
		q.Frequency = *in.Frequency
	}
	if in.Difficulty != nil {
		q.Difficulty = *in.Difficulty
	}
	if in.DueDate != nil {
		q.DueDate = in.DueDate
	}
	if in.IsPaused != nil {
		q.IsPaused = *in.IsPaused
	}

	if err := svc.db.WithContext(ctx).Save(q).Error; err != nil {
		return nil, apperr.Internal("failed to persist quest update")
	}
	return q, nil
}

// SetPaused flips the pause flag on an owned quest. Paused quests stop
// producing virtual activities but keep their persisted history visible.
func (svc *Service) SetPaused(ctx context.Context, questID string, ch *model.Character, paused bool) (*model.Quest, error) {
	return svc.Update(ctx, questID, ch, UpdateInput{IsPaused: &paused})
}

// Delete removes an owned quest. Persisted activities are kept as history.
func (svc *Service) Delete(ctx context.Context, questID string, ch *model.Character) error {
	q, err := svc.FindByID(ctx, questID, ch)
	if err != nil {
		return err
	}
	if q.Questline() {
		return apperr.Forbidden("questline quests cannot be deleted")
	}
	result := svc.db.WithContext(ctx).Where("id = ? AND character_id = ?", q.ID, ch.ID).
		Delete(&model.Quest{})
	if result.Error != nil {
		return apperr.Internal("failed to delete quest")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("quest not found").WithDetail("quest_id", questID)
	}
	svc.logger.Info("quest deleted",
		zap.String("quest_id", q.ID),
		zap.String("character_id", ch.ID))
	return nil
}
