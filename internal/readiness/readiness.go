// Package readiness maintains the per-user rolling average of lesson quiz
// percentages.
package readiness

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Score is a user's readiness aggregate. Value is the mean of exactly
// QuizCount percentage observations.
type Score struct {
	Value     float64   `json:"score"`
	QuizCount int       `json:"quizCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Apply folds one percentage observation into s. The result is rounded to
// two decimals. Apply is not idempotent: each call counts one more quiz.
func Apply(s Score, percentage float64, now time.Time) Score {
	count := s.QuizCount + 1
	value := (s.Value*float64(s.QuizCount) + percentage) / float64(count)
	return Score{
		Value:     round2(value),
		QuizCount: count,
		UpdatedAt: now,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Repo reads and writes the aggregate row. Implementations are bound to a
// transaction and Load must lock the row against concurrent writers.
type Repo interface {
	LoadReadinessForUpdate(ctx context.Context, userID string) (Score, error)
	SaveReadiness(ctx context.Context, userID string, s Score) error
}

// Observe applies percentage to the user's aggregate through repo. The
// caller owns the transaction repo is bound to; the triggering attempt must
// be written in that same transaction.
func Observe(ctx context.Context, repo Repo, userID string, percentage float64, now time.Time) (Score, error) {
	if percentage < 0 || percentage > 100 || math.IsNaN(percentage) {
		return Score{}, fmt.Errorf("percentage out of range: %v", percentage)
	}

	cur, err := repo.LoadReadinessForUpdate(ctx, userID)
	if err != nil {
		return Score{}, fmt.Errorf("load readiness: %w", err)
	}
	next := Apply(cur, percentage, now)
	if err := repo.SaveReadiness(ctx, userID, next); err != nil {
		return Score{}, fmt.Errorf("save readiness: %w", err)
	}
	return next, nil
}
