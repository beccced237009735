package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenpen-app/worry-service/internal/app/domain/comment"
	"github.com/greenpen-app/worry-service/internal/app/domain/letter"
	"github.com/greenpen-app/worry-service/internal/app/domain/user"
	"github.com/greenpen-app/worry-service/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development. Every mutation runs under the write lock, so the conditional
// set operations are linearizable per target.
type Store struct {
	mu       sync.RWMutex
	users    map[string]user.User
	letters  map[string]letter.Letter
	comments map[string]comment.Comment
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.LetterStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]user.User),
		letters:  make(map[string]letter.Letter),
		comments: make(map[string]comment.Comment),
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) GetUser(_ context.Context, anonID string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[anonID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.AnonID]; exists {
		return user.User{}, storage.ErrAlreadyExists
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.AnonID] = u
	return u, nil
}

func (s *Store) AddPoints(_ context.Context, anonID string, delta int) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	u, ok := s.users[anonID]
	if !ok {
		u = user.User{AnonID: anonID, CreatedAt: now}
	}
	u.Point += delta
	u.UpdatedAt = now
	s.users[anonID] = u
	return u, nil
}

func (s *Store) ApplyLevelUp(_ context.Context, anonID string, fromLevel, cost int) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[anonID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	if u.Level != fromLevel {
		return user.User{}, storage.ErrConflict
	}
	u.Level++
	u.Point -= cost
	u.UpdatedAt = time.Now().UTC()
	s.users[anonID] = u
	return u, nil
}

// LetterStore implementation --------------------------------------------------

func (s *Store) InsertLetter(_ context.Context, l letter.Letter) (letter.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.WrittenDate.IsZero() {
		l.WrittenDate = time.Now().UTC()
	}
	l.Attention = cloneSet(l.Attention)

	s.letters[l.ID] = l
	return cloneLetter(l), nil
}

func (s *Store) GetLetter(_ context.Context, id string) (letter.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.letters[id]
	if !ok {
		return letter.Letter{}, storage.ErrNotFound
	}
	return cloneLetter(l), nil
}

func (s *Store) ListLetters(_ context.Context) ([]letter.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]letter.Letter, 0, len(s.letters))
	for _, l := range s.letters {
		result = append(result, cloneLetter(l))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WrittenDate.After(result[j].WrittenDate)
	})
	return result, nil
}

func (s *Store) MostRecentLetterByAuthor(_ context.Context, anonID string) (letter.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest letter.Letter
		found  bool
	)
	for _, l := range s.letters {
		if l.AnonID != anonID {
			continue
		}
		if !found || l.WrittenDate.After(latest.WrittenDate) {
			latest = l
			found = true
		}
	}
	if !found {
		return letter.Letter{}, storage.ErrNotFound
	}
	return cloneLetter(latest), nil
}

func (s *Store) AddAttention(_ context.Context, id, reactorID string) (bool, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.letters[id]
	if !ok {
		return false, nil, storage.ErrNotFound
	}
	if contains(l.Attention, reactorID) {
		return false, cloneSet(l.Attention), nil
	}
	l.Attention = append(cloneSet(l.Attention), reactorID)
	s.letters[id] = l
	return true, cloneSet(l.Attention), nil
}

func (s *Store) RemoveAttention(_ context.Context, id, reactorID string) (bool, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.letters[id]
	if !ok {
		return false, nil, storage.ErrNotFound
	}
	if !contains(l.Attention, reactorID) {
		return false, cloneSet(l.Attention), nil
	}
	l.Attention = remove(l.Attention, reactorID)
	s.letters[id] = l
	return true, cloneSet(l.Attention), nil
}

// CommentStore implementation -------------------------------------------------

func (s *Store) InsertComment(_ context.Context, c comment.Comment) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CommentTime.IsZero() {
		c.CommentTime = time.Now().UTC()
	}
	c.Likes = cloneSet(c.Likes)
	c.Dislikes = cloneSet(c.Dislikes)

	s.comments[c.ID] = c
	return cloneComment(c), nil
}

func (s *Store) GetComment(_ context.Context, id string) (comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return comment.Comment{}, storage.ErrNotFound
	}
	return cloneComment(c), nil
}

func (s *Store) ListCommentsByLetter(_ context.Context, worryID string) ([]comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]comment.Comment, 0)
	for _, c := range s.comments {
		if c.WorryID == worryID {
			result = append(result, cloneComment(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CommentTime.After(result[j].CommentTime)
	})
	return result, nil
}

func (s *Store) AddLike(_ context.Context, id, reactorID string) (bool, []string, error) {
	return s.mutateCommentSet(id, reactorID, likesField, true)
}

func (s *Store) RemoveLike(_ context.Context, id, reactorID string) (bool, []string, error) {
	return s.mutateCommentSet(id, reactorID, likesField, false)
}

func (s *Store) AddDislike(_ context.Context, id, reactorID string) (bool, []string, error) {
	return s.mutateCommentSet(id, reactorID, dislikesField, true)
}

func (s *Store) RemoveDislike(_ context.Context, id, reactorID string) (bool, []string, error) {
	return s.mutateCommentSet(id, reactorID, dislikesField, false)
}

type commentSetField int

const (
	likesField commentSetField = iota
	dislikesField
)

func (s *Store) mutateCommentSet(id, reactorID string, field commentSetField, add bool) (bool, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return false, nil, storage.ErrNotFound
	}

	set := c.Likes
	if field == dislikesField {
		set = c.Dislikes
	}

	changed := false
	if add {
		if !contains(set, reactorID) {
			set = append(cloneSet(set), reactorID)
			changed = true
		}
	} else {
		if contains(set, reactorID) {
			set = remove(set, reactorID)
			changed = true
		}
	}

	if field == dislikesField {
		c.Dislikes = set
	} else {
		c.Likes = set
	}
	s.comments[id] = c
	return changed, cloneSet(set), nil
}

// helpers ---------------------------------------------------------------------

func cloneSet(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func contains(set []string, member string) bool {
	for _, m := range set {
		if m == member {
			return true
		}
	}
	return false
}

func remove(set []string, member string) []string {
	out := make([]string, 0, len(set))
	for _, m := range set {
		if m != member {
			out = append(out, m)
		}
	}
	return out
}

func cloneLetter(l letter.Letter) letter.Letter {
	l.Attention = cloneSet(l.Attention)
	return l
}

func cloneComment(c comment.Comment) comment.Comment {
	c.Likes = cloneSet(c.Likes)
	c.Dislikes = cloneSet(c.Dislikes)
	return c
}
