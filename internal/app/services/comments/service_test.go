package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/greenpen-app/worry-service/internal/app/domain/user"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*Service, *points.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	ledger := points.NewLedger(store, nil)
	return New(store, ledger, nil), ledger, store
}

func TestSubmit_CreditsWriterAndSnapshotsLevel(t *testing.T) {
	svc, ledger, store := newFixture(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, user.User{AnonID: "alice", Point: 10, Level: 4}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	c, err := svc.Submit(ctx, SubmitRequest{
		WorryID:       "letter-1",
		AnonID:        "alice",
		CommentWriter: "quiet fox",
		CommentTxt:    "you are not alone",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated comment id")
	}
	if c.Level != 4 {
		t.Fatalf("expected level snapshot 4, got %d", c.Level)
	}
	if len(c.Likes) != 0 || len(c.Dislikes) != 0 {
		t.Fatalf("expected empty reaction sets, got likes=%v dislikes=%v", c.Likes, c.Dislikes)
	}

	balance, err := ledger.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10+points.CommentReward {
		t.Fatalf("expected %d points, got %d", 10+points.CommentReward, balance)
	}

	// A later level change does not rewrite the stored snapshot.
	if _, err := store.ApplyLevelUp(ctx, "alice", 4, 0); err != nil {
		t.Fatalf("level up: %v", err)
	}
	listed, err := svc.ListByLetter(ctx, "letter-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].Level != 4 {
		t.Fatalf("expected snapshot to stay at 4, got %+v", listed)
	}
}

func TestSubmit_EmptyContentIsRejected(t *testing.T) {
	svc, ledger, _ := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, SubmitRequest{WorryID: "letter-1", AnonID: "alice", CommentTxt: "  "}); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	balance, _ := ledger.Balance(ctx, "alice")
	if balance != 0 {
		t.Fatalf("expected no points credited, got %d", balance)
	}
}

func TestToggleLike_MovesRewardBothWays(t *testing.T) {
	svc, ledger, _ := newFixture(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, SubmitRequest{WorryID: "letter-1", AnonID: "author", CommentTxt: "hang in there"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	start, _ := ledger.Balance(ctx, "author")

	res, err := svc.ToggleLike(ctx, c.ID, "reader")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !res.Added || len(res.Members) != 1 {
		t.Fatalf("expected like added, got %+v", res)
	}
	balance, _ := ledger.Balance(ctx, "author")
	if balance != start+points.LikeReward {
		t.Fatalf("expected +%d, got delta %d", points.LikeReward, balance-start)
	}

	res, err = svc.ToggleLike(ctx, c.ID, "reader")
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if res.Added || len(res.Members) != 0 {
		t.Fatalf("expected like removed, got %+v", res)
	}
	balance, _ = ledger.Balance(ctx, "author")
	if balance != start {
		t.Fatalf("like toggle pair must be point-neutral, got delta %d", balance-start)
	}
}

func TestToggleDislike_CostsAuthorAndRefunds(t *testing.T) {
	svc, ledger, _ := newFixture(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, SubmitRequest{WorryID: "letter-1", AnonID: "author", CommentTxt: "unpopular take"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	start, _ := ledger.Balance(ctx, "author")

	if _, err := svc.ToggleDislike(ctx, c.ID, "reader"); err != nil {
		t.Fatalf("dislike: %v", err)
	}
	balance, _ := ledger.Balance(ctx, "author")
	if balance != start-points.DislikePenalty {
		t.Fatalf("expected -%d, got delta %d", points.DislikePenalty, balance-start)
	}

	if _, err := svc.ToggleDislike(ctx, c.ID, "reader"); err != nil {
		t.Fatalf("undislike: %v", err)
	}
	balance, _ = ledger.Balance(ctx, "author")
	if balance != start {
		t.Fatalf("dislike toggle pair must be point-neutral, got delta %d", balance-start)
	}
}

func TestLikeAndDislikeCoexist(t *testing.T) {
	svc, _, store := newFixture(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, SubmitRequest{WorryID: "letter-1", AnonID: "author", CommentTxt: "mixed feelings"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.ToggleLike(ctx, c.ID, "reader"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := svc.ToggleDislike(ctx, c.ID, "reader"); err != nil {
		t.Fatalf("dislike: %v", err)
	}

	got, err := store.GetComment(ctx, c.ID)
	if err != nil {
		t.Fatalf("get comment: %v", err)
	}
	if len(got.Likes) != 1 || len(got.Dislikes) != 1 {
		t.Fatalf("like and dislike sets are independent, got likes=%v dislikes=%v", got.Likes, got.Dislikes)
	}

	// Removing the like leaves the dislike untouched.
	if _, err := svc.ToggleLike(ctx, c.ID, "reader"); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	got, err = store.GetComment(ctx, c.ID)
	if err != nil {
		t.Fatalf("get comment: %v", err)
	}
	if len(got.Likes) != 0 || len(got.Dislikes) != 1 {
		t.Fatalf("expected dislike to survive, got likes=%v dislikes=%v", got.Likes, got.Dislikes)
	}
}
