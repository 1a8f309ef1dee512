package character

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questlogrpg/questlog/server/apperr"
	dbutil "github.com/questlogrpg/questlog/server/db"
	"github.com/questlogrpg/questlog/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RankingKey is the cache sorted-set holding character IDs scored by total XP.
const RankingKey = "ranking:xp"

// Ranking is the subset of the cache interface this service needs.
type Ranking interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, members ...string) error
}

// Service owns character profiles and experience accounting.
type Service struct {
	db      *gorm.DB
	ranking Ranking
	logger  *zap.Logger
}

// NewService creates a character Service. ranking may be nil when no
// leaderboard cache is wired (tests).
func NewService(db *gorm.DB, ranking Ranking, logger *zap.Logger) *Service {
	return &Service{db: db, ranking: ranking, logger: logger}
}

// FindByAccountID resolves the caller's character from the authenticated
// account. This is the single ownership-resolution path; character IDs
// are never treated as account IDs.
func (svc *Service) FindByAccountID(ctx context.Context, accountID int64) (*model.Character, error) {
	var ch model.Character
	err := svc.db.WithContext(ctx).Where("account_id = ?", accountID).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("character not found").WithDetail("account_id", accountID)
	}
	if err != nil {
		return nil, apperr.Internal("character lookup failed")
	}
	return &ch, nil
}

// FindByID returns a character by its ID.
func (svc *Service) FindByID(ctx context.Context, characterID string) (*model.Character, error) {
	var ch model.Character
	err := svc.db.WithContext(ctx).Where("id = ?", characterID).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("character not found").WithDetail("character_id", characterID)
	}
	if err != nil {
		return nil, apperr.Internal("character lookup failed")
	}
	return &ch, nil
}

// List returns all characters.
func (svc *Service) List(ctx context.Context) ([]model.Character, error) {
	var chars []model.Character
	if err := svc.db.WithContext(ctx).Find(&chars).Error; err != nil {
		return nil, apperr.Internal("character list failed")
	}
	return chars, nil
}

// Create makes the character for an account. Each account owns at most
// one; a second create fails with Conflict (backed by the unique index,
// so concurrent creates cannot slip through).
func (svc *Service) Create(ctx context.Context, accountID int64, name, avatarURL string) (*model.Character, error) {
	var existing model.Character
	err := svc.db.WithContext(ctx).Where("account_id = ?", accountID).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("account already has a character")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("character lookup failed")
	}

	ch := &model.Character{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Name:         name,
		AvatarURL:    avatarURL,
		QuestlineKey: "INITIAL",
		Badges:       datatypes.JSON([]byte("[]")),
	}
	if err := svc.db.WithContext(ctx).Create(ch).Error; err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, apperr.Conflict("account already has a character")
		}
		return nil, apperr.Internal("failed to persist character")
	}
	return ch, nil
}

// Delete removes the character and drops it from the leaderboard.
func (svc *Service) Delete(ctx context.Context, ch *model.Character) error {
	result := svc.db.WithContext(ctx).Where("id = ?", ch.ID).Delete(&model.Character{})
	if result.Error != nil {
		return apperr.Internal("failed to delete character")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("character not found").WithDetail("character_id", ch.ID)
	}
	if svc.ranking != nil {
		_ = svc.ranking.ZRem(ctx, RankingKey, ch.ID)
	}
	return nil
}

// AwardExperience adds amount XP to the character inside tx and updates
// the completion streak. The XP increment is applied in SQL so concurrent
// awards cannot lose updates. The leaderboard entry is refreshed outside
// the transaction, best effort.
func (svc *Service) AwardExperience(ctx context.Context, tx *gorm.DB, ch *model.Character, amount int64, completedAt time.Time) error {
	streak, longest := nextStreak(ch, completedAt)

	err := tx.WithContext(ctx).Model(&model.Character{}).Where("id = ?", ch.ID).
		Updates(map[string]interface{}{
			"total_xp":          gorm.Expr("total_xp + ?", amount),
			"current_streak":    streak,
			"longest_streak":    longest,
			"last_completed_at": completedAt,
		}).Error
	if err != nil {
		return apperr.Internal("failed to award experience")
	}

	if svc.ranking != nil {
		member := ch.ID
		_ = svc.ranking.ZAdd(ctx, RankingKey, float64(ch.TotalXP+amount), member)
	}
	svc.logger.Info("experience awarded",
		zap.String("character_id", ch.ID),
		zap.Int64("amount", amount),
		zap.Int("streak", streak))
	return nil
}

// AddExperience is AwardExperience against the service's own DB handle.
func (svc *Service) AddExperience(ctx context.Context, ch *model.Character, amount int64, completedAt time.Time) error {
	return svc.AwardExperience(ctx, svc.db, ch, amount, completedAt)
}

// nextStreak computes the streak counters after a completion at the given
// time: same day keeps the streak, the day after extends it, anything
// else restarts at 1.
func nextStreak(ch *model.Character, completedAt time.Time) (current, longest int) {
	current = 1
	if ch.LastCompletedAt != nil {
		last := ch.LastCompletedAt.UTC()
		day := completedAt.UTC()
		switch model.DayOf(day) {
		case model.DayOf(last):
			current = max(ch.CurrentStreak, 1)
		case model.DayOf(last.AddDate(0, 0, 1)):
			current = ch.CurrentStreak + 1
		}
	}
	longest = max(ch.LongestStreak, current)
	return current, longest
}

// GrantBadge appends a badge to the character's badge list. Granting a
// badge the character already holds is a no-op.
func (svc *Service) GrantBadge(ctx context.Context, characterID, badge string) error {
	ch, err := svc.FindByID(ctx, characterID)
	if err != nil {
		return err
	}

	var badges []string
	if len(ch.Badges) > 0 {
		_ = json.Unmarshal(ch.Badges, &badges)
	}
	for _, b := range badges {
		if b == badge {
			return nil
		}
	}
	badges = append(badges, badge)

	buf, _ := json.Marshal(badges)
	err = svc.db.WithContext(ctx).Model(&model.Character{}).Where("id = ?", ch.ID).
		Update("badges", datatypes.JSON(buf)).Error
	if err != nil {
		return apperr.Internal("failed to persist badge")
	}
	svc.logger.Info("badge granted",
		zap.String("character_id", ch.ID),
		zap.String("badge", badge))
	return nil
}

// RefreshRanking rebuilds the leaderboard sorted set from the DB.
// Called periodically by the scheduler.
func (svc *Service) RefreshRanking(ctx context.Context, top int) (int, error) {
	if svc.ranking == nil {
		return 0, nil
	}
	var chars []model.Character
	if err := svc.db.WithContext(ctx).Select("id, total_xp").
		Order("total_xp DESC").Limit(top).Find(&chars).Error; err != nil {
		return 0, apperr.Internal("ranking refresh query failed")
	}
	for _, ch := range chars {
		_ = svc.ranking.ZAdd(ctx, RankingKey, float64(ch.TotalXP), ch.ID)
	}
	return len(chars), nil
}
