package activity

import "github.com/questlogrpg/questlog/server/model"

// xpByDifficulty is the fixed XP award per difficulty tier, captured on
// the activity at creation time.
var xpByDifficulty = map[model.QuestDifficulty]int64{
	model.DifficultyTrivial: 5,
	model.DifficultyEasy:    10,
	model.DifficultyMedium:  20,
	model.DifficultyHard:    40,
	model.DifficultyEpic:    80,
}

// XPFor returns the experience award for a difficulty tier.
func XPFor(d model.QuestDifficulty) int64 {
	return xpByDifficulty[d]
}
