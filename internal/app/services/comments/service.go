// Package comments implements comment submission and the like/dislike toggles.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenpen-app/worry-service/internal/app/domain/comment"
	"github.com/greenpen-app/worry-service/internal/app/metrics"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/internal/app/services/reactions"
	"github.com/greenpen-app/worry-service/internal/app/storage"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

// ErrEmptyContent rejects a comment whose trimmed text is empty. Callers
// treat it as a silent no-op rather than a hard failure.
var ErrEmptyContent = errors.New("empty comment content")

// Service manages comment submission, listing and reaction toggles.
type Service struct {
	store   storage.CommentStore
	ledger  *points.Ledger
	like    *reactions.Engine
	dislike *reactions.Engine
	now     func() time.Time
	log     *logger.Logger
}

// SubmitRequest carries a comment submission.
type SubmitRequest struct {
	WorryID       string
	AnonID        string
	CommentWriter string
	CommentTxt    string
}

// New constructs a comment service. A like moves LikeReward to the comment
// author in both directions; a dislike costs the author DislikePenalty on add
// and refunds it on removal.
func New(store storage.CommentStore, ledger *points.Ledger, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("comments")
	}
	return &Service{
		store:   store,
		ledger:  ledger,
		like:    reactions.NewEngine(reactions.KindLike, likeOps{store}, ledger, points.LikeReward, -points.LikeReward, log),
		dislike: reactions.NewEngine(reactions.KindDislike, dislikeOps{store}, ledger, -points.DislikePenalty, points.DislikePenalty, log),
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit validates and persists a comment, snapshotting the author's current
// level and crediting the comment reward.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (comment.Comment, error) {
	anonID := strings.TrimSpace(req.AnonID)
	if anonID == "" || strings.TrimSpace(req.WorryID) == "" {
		return comment.Comment{}, fmt.Errorf("worryId and anonId are required")
	}
	if strings.TrimSpace(req.CommentTxt) == "" {
		metrics.RecordSubmission("comment", "empty")
		return comment.Comment{}, ErrEmptyContent
	}

	level, err := s.ledger.Level(ctx, anonID)
	if err != nil {
		return comment.Comment{}, err
	}

	created, err := s.store.InsertComment(ctx, comment.Comment{
		WorryID:       req.WorryID,
		AnonID:        anonID,
		CommentWriter: req.CommentWriter,
		CommentTxt:    req.CommentTxt,
		CommentTime:   s.now(),
		Likes:         []string{},
		Dislikes:      []string{},
		Level:         level,
	})
	if err != nil {
		return comment.Comment{}, fmt.Errorf("insert comment: %w", err)
	}

	if err := s.ledger.Apply(ctx, anonID, points.CommentReward); err != nil {
		s.log.WithError(err).WithField("anon_id", anonID).Error("comment reward not credited")
	}

	metrics.RecordSubmission("comment", "ok")
	s.log.WithField("anon_id", anonID).
		WithField("comment_id", created.ID).
		WithField("worry_id", created.WorryID).
		Info("comment submitted")
	return created, nil
}

// ListByLetter returns a letter's comments, newest first.
func (s *Service) ListByLetter(ctx context.Context, worryID string) ([]comment.Comment, error) {
	return s.store.ListCommentsByLetter(ctx, worryID)
}

// ToggleLike flips the reactor's like on a comment.
func (s *Service) ToggleLike(ctx context.Context, commentID, reactorID string) (reactions.Result, error) {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return reactions.Result{}, err
	}
	return s.like.Toggle(ctx, commentID, c.AnonID, reactorID)
}

// ToggleDislike flips the reactor's dislike on a comment. A like and a
// dislike by the same reactor may coexist; the sets are independent.
func (s *Service) ToggleDislike(ctx context.Context, commentID, reactorID string) (reactions.Result, error) {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return reactions.Result{}, err
	}
	return s.dislike.Toggle(ctx, commentID, c.AnonID, reactorID)
}

// likeOps and dislikeOps adapt the comment store's set mutations to the
// toggle engine contract.
type likeOps struct {
	store storage.CommentStore
}

func (o likeOps) Add(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return o.store.AddLike(ctx, targetID, reactorID)
}

func (o likeOps) Remove(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return o.store.RemoveLike(ctx, targetID, reactorID)
}

type dislikeOps struct {
	store storage.CommentStore
}

func (o dislikeOps) Add(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return o.store.AddDislike(ctx, targetID, reactorID)
}

func (o dislikeOps) Remove(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return o.store.RemoveDislike(ctx, targetID, reactorID)
}
