// Package reactions implements the toggle reaction engine: a bidirectional
// state machine over a membership set, instantiated for letter empathy and
// comment likes/dislikes. Each toggle is a single conditional store mutation,
// so repeated toggles by the same reactor alternate deterministically and
// concurrent identical toggles cannot double-apply point deltas.
package reactions

import (
	"context"
	"fmt"

	"github.com/greenpen-app/worry-service/internal/app/metrics"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

// Kind names a reaction instantiation.
type Kind string

const (
	KindEmpathy Kind = "empathy"
	KindLike    Kind = "like"
	KindDislike Kind = "dislike"
)

// SetOps is the pair of conditional membership operations a store exposes for
// one reaction set. Add reports whether the reactor was actually added (false
// when already present); Remove reports whether it was actually removed.
// Both return the resulting membership.
type SetOps interface {
	Add(ctx context.Context, targetID, reactorID string) (bool, []string, error)
	Remove(ctx context.Context, targetID, reactorID string) (bool, []string, error)
}

// Result reports the direction a toggle resolved to and the updated set.
type Result struct {
	Added   bool     `json:"added"`
	Members []string `json:"members"`
}

// Engine toggles membership and settles the author's point consequence.
type Engine struct {
	kind        Kind
	set         SetOps
	ledger      *points.Ledger
	addDelta    int
	removeDelta int
	log         *logger.Logger
}

// NewEngine constructs a toggle engine for one reaction kind. addDelta is
// applied to the target's author when the reactor joins the set, removeDelta
// when it leaves.
func NewEngine(kind Kind, set SetOps, ledger *points.Ledger, addDelta, removeDelta int, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("reactions")
	}
	return &Engine{
		kind:        kind,
		set:         set,
		ledger:      ledger,
		addDelta:    addDelta,
		removeDelta: removeDelta,
		log:         log,
	}
}

// Toggle flips the reactor's membership on the target. The point delta is
// applied to the author only when the membership actually changed, and never
// for self-reactions. The add-then-remove sequence relies on the store's
// conditional semantics: a concurrent toggle that wins the race leaves both
// conditional ops as no-ops here, so the bounded retry resolves the direction
// against fresh state instead of double-counting.
func (e *Engine) Toggle(ctx context.Context, targetID, authorID, reactorID string) (Result, error) {
	for attempt := 0; attempt < 3; attempt++ {
		added, members, err := e.set.Add(ctx, targetID, reactorID)
		if err != nil {
			return Result{}, fmt.Errorf("%s toggle: %w", e.kind, err)
		}
		if added {
			e.settle(ctx, authorID, reactorID, e.addDelta, true)
			return Result{Added: true, Members: members}, nil
		}

		removed, members, err := e.set.Remove(ctx, targetID, reactorID)
		if err != nil {
			return Result{}, fmt.Errorf("%s toggle: %w", e.kind, err)
		}
		if removed {
			e.settle(ctx, authorID, reactorID, e.removeDelta, false)
			return Result{Added: false, Members: members}, nil
		}
		// Neither op changed the set: another toggle interleaved. Retry.
	}
	return Result{}, fmt.Errorf("%s toggle: contention on target %s", e.kind, targetID)
}

func (e *Engine) settle(ctx context.Context, authorID, reactorID string, delta int, added bool) {
	metrics.RecordReaction(string(e.kind), added)
	if authorID == reactorID {
		return
	}
	if err := e.ledger.Apply(ctx, authorID, delta); err != nil {
		// The membership change is already durable; losing the delta is the
		// remaining gap, so it is logged loudly rather than rolled back.
		e.log.WithError(err).
			WithField("kind", string(e.kind)).
			WithField("author", authorID).
			Error("point settlement failed after membership change")
	}
}
