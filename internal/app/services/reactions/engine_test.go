package reactions

import (
	"context"
	"strings"
	"testing"

	"github.com/greenpen-app/worry-service/internal/app/domain/letter"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/internal/app/storage/memory"
)

// flakySet reports no change from both Add and Remove for a number of rounds,
// simulating interleaved toggles stealing the conditional mutation.
type flakySet struct {
	noopRounds int
	calls      int
	inner      SetOps
}

func (f *flakySet) Add(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	if f.calls < f.noopRounds {
		f.calls++
		return false, nil, nil
	}
	return f.inner.Add(ctx, targetID, reactorID)
}

func (f *flakySet) Remove(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	if f.calls <= f.noopRounds {
		return false, nil, nil
	}
	return f.inner.Remove(ctx, targetID, reactorID)
}

func letterFixture() letter.Letter {
	return letter.Letter{AnonID: "author", Letter: "worry"}
}

type memorySet struct {
	store *memory.Store
}

func (m memorySet) Add(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return m.store.AddAttention(ctx, targetID, reactorID)
}

func (m memorySet) Remove(ctx context.Context, targetID, reactorID string) (bool, []string, error) {
	return m.store.RemoveAttention(ctx, targetID, reactorID)
}

func TestToggle_RetriesPastInterleavedNoop(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	l, err := store.InsertLetter(ctx, letterFixture())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	ledger := points.NewLedger(store, nil)
	set := &flakySet{noopRounds: 1, inner: memorySet{store}}
	engine := NewEngine(KindEmpathy, set, ledger, 3, -3, nil)

	res, err := engine.Toggle(ctx, l.ID, "author", "reader")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !res.Added {
		t.Fatalf("expected the retry to land the add, got %+v", res)
	}
}

func TestToggle_GivesUpUnderSustainedContention(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	l, err := store.InsertLetter(ctx, letterFixture())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	ledger := points.NewLedger(store, nil)
	set := &flakySet{noopRounds: 100, inner: memorySet{store}}
	engine := NewEngine(KindLike, set, ledger, 2, -2, nil)

	_, err = engine.Toggle(ctx, l.ID, "author", "reader")
	if err == nil || !strings.Contains(err.Error(), "contention") {
		t.Fatalf("expected contention error, got %v", err)
	}

	// The failed toggle must not have moved points.
	balance, _ := ledger.Balance(ctx, "author")
	if balance != 0 {
		t.Fatalf("expected no points applied, got %d", balance)
	}
}
