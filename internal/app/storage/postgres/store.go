package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/greenpen-app/worry-service/internal/app/domain/comment"
	"github.com/greenpen-app/worry-service/internal/app/domain/letter"
	"github.com/greenpen-app/worry-service/internal/app/domain/user"
	"github.com/greenpen-app/worry-service/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL. Reaction sets
// are TEXT[] columns mutated with guarded array operations, so membership
// changes are decided by the database in a single statement and cannot
// double-apply under concurrent toggles.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.LetterStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, anonID string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT anon_id, point, level, created_at, updated_at
		FROM users
		WHERE anon_id = $1
	`, anonID)

	var u user.User
	if err := row.Scan(&u.AnonID, &u.Point, &u.Level, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (anon_id, point, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.AnonID, u.Point, u.Level, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, storage.ErrAlreadyExists
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) AddPoints(ctx context.Context, anonID string, delta int) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (anon_id, point, level, created_at, updated_at)
		VALUES ($1, $2, 0, now(), now())
		ON CONFLICT (anon_id)
		DO UPDATE SET point = users.point + EXCLUDED.point, updated_at = now()
		RETURNING anon_id, point, level, created_at, updated_at
	`, anonID, delta)

	var u user.User
	if err := row.Scan(&u.AnonID, &u.Point, &u.Level, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) ApplyLevelUp(ctx context.Context, anonID string, fromLevel, cost int) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET level = level + 1, point = point - $3, updated_at = now()
		WHERE anon_id = $1 AND level = $2
		RETURNING anon_id, point, level, created_at, updated_at
	`, anonID, fromLevel, cost)

	var u user.User
	if err := row.Scan(&u.AnonID, &u.Point, &u.Level, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := s.GetUser(ctx, anonID); getErr != nil {
				return user.User{}, getErr
			}
			return user.User{}, storage.ErrConflict
		}
		return user.User{}, err
	}
	return u, nil
}

// --- LetterStore ------------------------------------------------------------

func (s *Store) InsertLetter(ctx context.Context, l letter.Letter) (letter.Letter, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.WrittenDate.IsZero() {
		l.WrittenDate = time.Now().UTC()
	}
	if l.Attention == nil {
		l.Attention = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worry_letters (id, anon_id, letter, written_date, attention, color_index)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.ID, l.AnonID, l.Letter, l.WrittenDate, pq.Array(l.Attention), l.ColorIndex)
	if err != nil {
		return letter.Letter{}, err
	}
	return l, nil
}

func (s *Store) GetLetter(ctx context.Context, id string) (letter.Letter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, anon_id, letter, written_date, attention, color_index
		FROM worry_letters
		WHERE id = $1
	`, id)
	return scanLetter(row)
}

func (s *Store) ListLetters(ctx context.Context) ([]letter.Letter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, anon_id, letter, written_date, attention, color_index
		FROM worry_letters
		ORDER BY written_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []letter.Letter
	for rows.Next() {
		l, err := scanLetter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (s *Store) MostRecentLetterByAuthor(ctx context.Context, anonID string) (letter.Letter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, anon_id, letter, written_date, attention, color_index
		FROM worry_letters
		WHERE anon_id = $1
		ORDER BY written_date DESC
		LIMIT 1
	`, anonID)
	return scanLetter(row)
}

func (s *Store) AddAttention(ctx context.Context, id, reactorID string) (bool, []string, error) {
	return s.conditionalSetOp(ctx, `
		UPDATE worry_letters
		SET attention = array_append(attention, $2)
		WHERE id = $1 AND NOT ($2 = ANY(attention))
		RETURNING attention
	`, `SELECT attention FROM worry_letters WHERE id = $1`, id, reactorID)
}

func (s *Store) RemoveAttention(ctx context.Context, id, reactorID string) (bool, []string, error) {
	return s.conditionalSetOp(ctx, `
		UPDATE worry_letters
		SET attention = array_remove(attention, $2)
		WHERE id = $1 AND $2 = ANY(attention)
		RETURNING attention
	`, `SELECT attention FROM worry_letters WHERE id = $1`, id, reactorID)
}

// --- CommentStore -----------------------------------------------------------

func (s *Store) InsertComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CommentTime.IsZero() {
		c.CommentTime = time.Now().UTC()
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	if c.Dislikes == nil {
		c.Dislikes = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worry_comments (id, worry_id, anon_id, comment_writer, comment_txt, comment_time, likes, dislikes, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.WorryID, c.AnonID, c.CommentWriter, c.CommentTxt, c.CommentTime, pq.Array(c.Likes), pq.Array(c.Dislikes), c.Level)
	if err != nil {
		return comment.Comment{}, err
	}
	return c, nil
}

func (s *Store) GetComment(ctx context.Context, id string) (comment.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, worry_id, anon_id, comment_writer, comment_txt, comment_time, likes, dislikes, level
		FROM worry_comments
		WHERE id = $1
	`, id)
	return scanComment(row)
}

func (s *Store) ListCommentsByLetter(ctx context.Context, worryID string) ([]comment.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, worry_id, anon_id, comment_writer, comment_txt, comment_time, likes, dislikes, level
		FROM worry_comments
		WHERE worry_id = $1
		ORDER BY comment_time DESC
	`, worryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []comment.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) AddLike(ctx context.Context, id, reactorID string) (bool, []string, error) {
	return s.conditionalSetOp(ctx, `
		UPDATE worry_comments
		SET likes = array_append(likes, $2)
		WHERE id = $1 AND NOT ($2 = ANY(likes))
		RETURNING likes
	`, `SELECT likes FROM worry_comments WHERE id = $1`, id, reactorID)
}

func (s *Store) RemoveLike(ctx context.Context, id, reactorID string) (bool, []string, error) {
	return s.conditionalSetOp(ctx, `
		UPDATE worry_comments
		SET likes = array_remove(likes, $2)
		WHERE id = $1 AND $2 = ANY(likes)
		RETURNING likes
	`, `SELECT likes FROM worry_comments WHERE id = $1`, id, reactorID)
}

func (s *Store) AddDislike(ctx context.Context, id, reactorID string) (bool, []string, error) {
	return s.conditionalSetOp(ctx, `
		UPDATE worry_comments
		SET dislikes = array_append(dislikes, $2)
		WHERE id = $1 AND NOT ($2 = ANY(dislikes))
		RETURNING dislikes
	`, `SELECT dislikes FROM worry_comments WHERE id = $1`, id, reactorID)
}

func (s *Store) RemoveDislike(ctx context.Context, id, reactorID string) (bool, []string, error) {
	return s.conditionalSetOp(ctx, `
		UPDATE worry_comments
		SET dislikes = array_remove(dislikes, $2)
		WHERE id = $1 AND $2 = ANY(dislikes)
		RETURNING dislikes
	`, `SELECT dislikes FROM worry_comments WHERE id = $1`, id, reactorID)
}

// conditionalSetOp runs a guarded array mutation. When the guard does not
// match (the membership was already in the desired state), the follow-up
// select distinguishes "no change" from a missing row.
func (s *Store) conditionalSetOp(ctx context.Context, mutation, lookup, id, reactorID string) (bool, []string, error) {
	var set pq.StringArray
	err := s.db.QueryRowContext(ctx, mutation, id, reactorID).Scan(&set)
	if err == nil {
		return true, []string(set), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, nil, err
	}

	if err := s.db.QueryRowContext(ctx, lookup, id).Scan(&set); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, storage.ErrNotFound
		}
		return false, nil, err
	}
	return false, []string(set), nil
}

// helpers ---------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLetter(row rowScanner) (letter.Letter, error) {
	var (
		l         letter.Letter
		attention pq.StringArray
	)
	if err := row.Scan(&l.ID, &l.AnonID, &l.Letter, &l.WrittenDate, &attention, &l.ColorIndex); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return letter.Letter{}, storage.ErrNotFound
		}
		return letter.Letter{}, err
	}
	l.Attention = []string(attention)
	if l.Attention == nil {
		l.Attention = []string{}
	}
	return l, nil
}

func scanComment(row rowScanner) (comment.Comment, error) {
	var (
		c        comment.Comment
		likes    pq.StringArray
		dislikes pq.StringArray
	)
	if err := row.Scan(&c.ID, &c.WorryID, &c.AnonID, &c.CommentWriter, &c.CommentTxt, &c.CommentTime, &likes, &dislikes, &c.Level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return comment.Comment{}, storage.ErrNotFound
		}
		return comment.Comment{}, err
	}
	c.Likes = []string(likes)
	c.Dislikes = []string(dislikes)
	if c.Likes == nil {
		c.Likes = []string{}
	}
	if c.Dislikes == nil {
		c.Dislikes = []string{}
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
