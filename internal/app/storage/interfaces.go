package storage

import (
	"context"

	"github.com/greenpen-app/worry-service/internal/app/domain/comment"
	"github.com/greenpen-app/worry-service/internal/app/domain/letter"
	"github.com/greenpen-app/worry-service/internal/app/domain/user"
)

// UserStore persists user records and their point/level state.
type UserStore interface {
	// GetUser returns ErrNotFound when no record exists for the id.
	GetUser(ctx context.Context, anonID string) (user.User, error)
	// CreateUser inserts a new record and returns ErrAlreadyExists on a
	// duplicate id, including under concurrent registration races.
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	// AddPoints upserts the record and adds delta to the point balance,
	// creating the record with point=delta when absent. Balances are never
	// clamped; negative values are permitted.
	AddPoints(ctx context.Context, anonID string, delta int) (user.User, error)
	// ApplyLevelUp atomically increments the level by one and debits cost
	// points, conditioned on the stored level still being fromLevel. Returns
	// ErrConflict when the level moved concurrently and ErrNotFound when the
	// user does not exist.
	ApplyLevelUp(ctx context.Context, anonID string, fromLevel, cost int) (user.User, error)
}

// LetterStore persists worry letters and their empathy sets.
type LetterStore interface {
	InsertLetter(ctx context.Context, l letter.Letter) (letter.Letter, error)
	GetLetter(ctx context.Context, id string) (letter.Letter, error)
	// ListLetters returns all letters ordered by written date, newest first.
	ListLetters(ctx context.Context) ([]letter.Letter, error)
	// MostRecentLetterByAuthor returns ErrNotFound when the author has no
	// letters.
	MostRecentLetterByAuthor(ctx context.Context, anonID string) (letter.Letter, error)
	// AddAttention adds the reactor to the attention set only if absent.
	// Returns whether the set changed and the resulting membership.
	AddAttention(ctx context.Context, id, reactorID string) (bool, []string, error)
	// RemoveAttention removes the reactor from the attention set only if
	// present. Returns whether the set changed and the resulting membership.
	RemoveAttention(ctx context.Context, id, reactorID string) (bool, []string, error)
}

// CommentStore persists comments and their like/dislike sets. The Add/Remove
// pairs follow the same conditional contract as LetterStore's attention ops.
type CommentStore interface {
	InsertComment(ctx context.Context, c comment.Comment) (comment.Comment, error)
	GetComment(ctx context.Context, id string) (comment.Comment, error)
	// ListCommentsByLetter returns comments for a letter ordered by comment
	// time, newest first.
	ListCommentsByLetter(ctx context.Context, worryID string) ([]comment.Comment, error)

	AddLike(ctx context.Context, id, reactorID string) (bool, []string, error)
	RemoveLike(ctx context.Context, id, reactorID string) (bool, []string, error)
	AddDislike(ctx context.Context, id, reactorID string) (bool, []string, error)
	RemoveDislike(ctx context.Context, id, reactorID string) (bool, []string, error)
}
