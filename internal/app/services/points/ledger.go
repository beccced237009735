// Package points holds the point ledger and the level engine: the single
// source of truth for an identifier's accumulated points, mutated only
// through signed deltas, and the threshold table gating level advancement.
package points

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenpen-app/worry-service/internal/app/domain/user"
	"github.com/greenpen-app/worry-service/internal/app/metrics"
	"github.com/greenpen-app/worry-service/internal/app/storage"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

// Point deltas for every action in the economy. Removal of a reaction always
// reverses exactly the delta its addition applied.
const (
	LetterReward   = 5
	ColorCost      = 100
	CommentReward  = 2
	LikeReward     = 2
	DislikePenalty = 1
	EmpathyReward  = 3
)

// LevelThresholds is the point cost of reaching each level; index = level
// about to be reached. Advancement past the last entry is not possible.
var LevelThresholds = []int{0, 30, 70, 100, 150, 200, 300, 500, 700, 1000}

var (
	// ErrMaxLevel is a terminal outcome, not a failure: the user cannot
	// advance further.
	ErrMaxLevel = errors.New("already at maximum level")
	// ErrInsufficientPoints rejects an action whose point cost exceeds the
	// current balance.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// Ledger applies point deltas and level advancement against the user store.
type Ledger struct {
	users storage.UserStore
	log   *logger.Logger
}

// NewLedger constructs a point ledger.
func NewLedger(users storage.UserStore, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewDefault("points")
	}
	return &Ledger{users: users, log: log}
}

// Apply upserts the user and adds delta to the balance. A zero delta is a
// no-op. Balances may go negative transiently (a debit recorded before its
// matching credit).
func (l *Ledger) Apply(ctx context.Context, anonID string, delta int) error {
	if delta == 0 {
		return nil
	}
	u, err := l.users.AddPoints(ctx, anonID, delta)
	if err != nil {
		return fmt.Errorf("apply point delta: %w", err)
	}
	metrics.RecordPoints(delta)
	l.log.WithField("anon_id", anonID).
		WithField("delta", delta).
		WithField("balance", u.Point).
		Debug("point delta applied")
	return nil
}

// Balance returns the current point balance, zero when the user is unknown.
func (l *Ledger) Balance(ctx context.Context, anonID string) (int, error) {
	u, err := l.users.GetUser(ctx, anonID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return u.Point, nil
}

// Level returns the current level, zero when the user is unknown.
func (l *Ledger) Level(ctx context.Context, anonID string) (int, error) {
	u, err := l.users.GetUser(ctx, anonID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return u.Level, nil
}

// LevelUp advances the user one level, spending the threshold cost. The level
// increment and the point debit are a single atomic store mutation; on a
// concurrent advance the conditional update fails and the attempt is retried
// against fresh state.
func (l *Ledger) LevelUp(ctx context.Context, anonID string) (user.User, error) {
	for attempt := 0; attempt < 3; attempt++ {
		u, err := l.users.GetUser(ctx, anonID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				u = user.User{AnonID: anonID}
			} else {
				return user.User{}, err
			}
		}

		next := u.Level + 1
		if next >= len(LevelThresholds) {
			metrics.RecordLevelUp("max_level")
			return user.User{}, ErrMaxLevel
		}
		cost := LevelThresholds[next]
		if u.Point < cost {
			metrics.RecordLevelUp("insufficient_points")
			return user.User{}, ErrInsufficientPoints
		}

		updated, err := l.users.ApplyLevelUp(ctx, anonID, u.Level, cost)
		if err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return user.User{}, err
		}

		metrics.RecordLevelUp("ok")
		metrics.RecordPoints(-cost)
		l.log.WithField("anon_id", anonID).
			WithField("level", updated.Level).
			WithField("cost", cost).
			Info("level up")
		return updated, nil
	}
	return user.User{}, storage.ErrConflict
}
