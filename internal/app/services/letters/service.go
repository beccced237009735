// Package letters implements worry letter submission and the empathy toggle.
package letters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenpen-app/worry-service/internal/app/domain/letter"
	"github.com/greenpen-app/worry-service/internal/app/metrics"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/internal/app/services/reactions"
	"github.com/greenpen-app/worry-service/internal/app/storage"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

// SubmitCooldown is the minimum elapsed time between consecutive letters by
// the same identifier. Submitting exactly at the boundary is allowed.
const SubmitCooldown = 60 * time.Second

var (
	// ErrEmptyContent rejects a letter whose trimmed body is empty. Callers
	// treat it as a silent no-op rather than a hard failure.
	ErrEmptyContent = errors.New("empty letter content")
	// ErrRateLimited rejects a submission inside the cooldown window.
	ErrRateLimited = errors.New("submission rate limited")
)

// CooldownCache is an optional fast path for cooldown rejection. The letter
// store remains the source of truth; a cache miss or cache error always falls
// through to the store lookup.
type CooldownCache interface {
	Seen(ctx context.Context, anonID string) (bool, error)
	Mark(ctx context.Context, anonID string, ttl time.Duration) error
}

// Service manages letter submission, listing and the empathy toggle.
type Service struct {
	store    storage.LetterStore
	ledger   *points.Ledger
	empathy  *reactions.Engine
	cooldown CooldownCache
	now      func() time.Time
	log      *logger.Logger
}

// SubmitRequest carries a letter submission. The written date is assigned
// from server time; client-supplied timestamps are not trusted for the
// cooldown decision.
type SubmitRequest struct {
	AnonID     string
	Letter     string
	ColorIndex int
}

// New constructs a letter service.
func New(store storage.LetterStore, ledger *points.Ledger, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("letters")
	}
	return &Service{
		store:   store,
		ledger:  ledger,
		empathy: reactions.NewEngine(reactions.KindEmpathy, attentionOps{store}, ledger, points.EmpathyReward, -points.EmpathyReward, log),
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
	}
}

// WithCooldownCache attaches an optional cooldown cache. Call before serving.
func (s *Service) WithCooldownCache(cache CooldownCache) *Service {
	s.cooldown = cache
	return s
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit validates, rate-limits and persists a letter, crediting the author.
// A nonzero color index costs ColorCost points, debited before the insert.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (letter.Letter, error) {
	anonID := strings.TrimSpace(req.AnonID)
	if anonID == "" {
		return letter.Letter{}, fmt.Errorf("anonId is required")
	}
	if strings.TrimSpace(req.Letter) == "" {
		metrics.RecordSubmission("letter", "empty")
		return letter.Letter{}, ErrEmptyContent
	}

	now := s.now()
	limited, err := s.withinCooldown(ctx, anonID, now)
	if err != nil {
		return letter.Letter{}, err
	}
	if limited {
		metrics.RecordSubmission("letter", "rate_limited")
		return letter.Letter{}, ErrRateLimited
	}

	if req.ColorIndex != 0 {
		balance, err := s.ledger.Balance(ctx, anonID)
		if err != nil {
			return letter.Letter{}, err
		}
		if balance < points.ColorCost {
			metrics.RecordSubmission("letter", "insufficient_points")
			return letter.Letter{}, points.ErrInsufficientPoints
		}
		if err := s.ledger.Apply(ctx, anonID, -points.ColorCost); err != nil {
			return letter.Letter{}, err
		}
	}

	created, err := s.store.InsertLetter(ctx, letter.Letter{
		AnonID:      anonID,
		Letter:      req.Letter,
		WrittenDate: now,
		Attention:   []string{},
		ColorIndex:  req.ColorIndex,
	})
	if err != nil {
		return letter.Letter{}, fmt.Errorf("insert letter: %w", err)
	}

	if err := s.ledger.Apply(ctx, anonID, points.LetterReward); err != nil {
		s.log.WithError(err).WithField("anon_id", anonID).Error("letter reward not credited")
	}
	s.markCooldown(ctx, anonID)

	metrics.RecordSubmission("letter", "ok")
	s.log.WithField("anon_id", anonID).
		WithField("letter_id", created.ID).
		WithField("color_index", created.ColorIndex).
		Info("letter submitted")
	return created, nil
}

// List returns all letters, newest first.
func (s *Service) List(ctx context.Context) ([]letter.Letter, error) {
	return s.store.ListLetters(ctx)
}

// Get returns one letter.
func (s *Service) Get(ctx context.Context, id string) (letter.Letter, error) {
	return s.store.GetLetter(ctx, id)
}

// ToggleAttention flips the reactor's empathy on a letter, moving the empathy
// reward to or from the letter's author.
func (s *Service) ToggleAttention(ctx context.Context, letterID, reactorID string) (reactions.Result, error) {
	l, err := s.store.GetLetter(ctx, letterID)
	if err != nil {
		return reactions.Result{}, err
	}
	return s.empathy.Toggle(ctx, letterID, l.AnonID, reactorID)
}

// withinCooldown reports whether the author submitted less than SubmitCooldown
// ago. The cache only short-circuits rejections; absence falls through to the
// store-ordered lookup.
func (s *Service) withinCooldown(ctx context.Context, anonID string, now time.Time) (bool, error) {
	if s.cooldown != nil {
		seen, err := s.cooldown.Seen(ctx, anonID)
		if err != nil {
			s.log.WithError(err).Warn("cooldown cache lookup failed; falling back to store")
		} else if seen {
			return true, nil
		}
	}

	recent, err := s.store.MostRecentLetterByAuthor(ctx, anonID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return now.Sub(recent.WrittenDate) < SubmitCooldown, nil
}

func (s *Service) markCooldown(ctx context.Context, anonID string) {
	if s.cooldown == nil {
		return
	}
	if err := s.cooldown.Mark(ctx, anonID, SubmitCooldown); err != nil {
		s.log.WithError(err).Warn("cooldown cache mark failed")
	}
}

// attentionOps adapts the letter store's attention mutations to the toggle
// engine contract.
type attentionOps struct {
	store storage.LetterStore
}

func (o attentionOps) Add(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return o.store.AddAttention(ctx, targetID, reactorID)
}

func (o attentionOps) Remove(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return o.store.RemoveAttention(ctx, targetID, reactorID)
}
