package differ

import (
	"context"

	"github.com/abhinav-TB/Build-Trace/internal/logger"
	"github.com/abhinav-TB/Build-Trace/internal/summary"
	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

// Engine compares two drawing snapshots and produces a structured
// change set. It is stateless and safe for concurrent use; the only
// non-pure step is the summary composition, which may consult an
// external generator through the composer.
type Engine struct {
	composer *summary.Composer
	log      logger.Logger
}

// NewEngine creates an Engine. A nil composer gets a rule-based one.
func NewEngine(composer *summary.Composer, log logger.Logger) *Engine {
	if composer == nil {
		composer = summary.NewComposer()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{composer: composer, log: log}
}

// Compute diffs version A against version B by object id. Objects
// without an id are excluded from comparison. Malformed records never
// cause an error; the engine only ever skips them.
//
// Duplicate ids within one snapshot resolve last-write-wins: the last
// occurrence supplies the object, the first occurrence its position in
// the output ordering.
func (e *Engine) Compute(ctx context.Context, a, b []types.DrawingObject) *types.ChangeSet {
	aIndex := buildIndex(a)
	bIndex := buildIndex(b)

	cs := &types.ChangeSet{
		Added:   []types.DrawingObject{},
		Removed: []types.DrawingObject{},
		Moved:   []types.MovedObject{},
	}

	// Added: in B but not in A, in B's iteration order.
	seen := make(map[string]bool, len(b))
	for i := range b {
		id := b[i].ID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, exists := aIndex[id]; !exists {
			cs.Added = append(cs.Added, *bIndex[id])
		}
	}

	// Removed and moved, in A's iteration order.
	seen = make(map[string]bool, len(a))
	for i := range a {
		id := a[i].ID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		objA := aIndex[id]
		objB, exists := bIndex[id]
		if !exists {
			cs.Removed = append(cs.Removed, *objA)
			continue
		}
		if coordEqual(objA.X, objB.X) && coordEqual(objA.Y, objB.Y) {
			continue
		}
		cs.Moved = append(cs.Moved, types.MovedObject{
			ID:   id,
			Type: objB.TypeOrDefault(),
			From: types.Position{X: objA.X, Y: objA.Y},
			To:   types.Position{X: objB.X, Y: objB.Y},
			Delta: types.Delta{
				X: coordValue(objB.X) - coordValue(objA.X),
				Y: coordValue(objB.Y) - coordValue(objA.Y),
			},
		})
	}

	cs.Stats = types.DiffStats{
		AddedCount:   len(cs.Added),
		RemovedCount: len(cs.Removed),
		MovedCount:   len(cs.Moved),
		TotalChanges: len(cs.Added) + len(cs.Removed) + len(cs.Moved),
	}
	cs.Summary = e.composer.Compose(ctx, cs.Added, cs.Removed, cs.Moved)

	return cs
}

// buildIndex maps objects by id, last occurrence winning.
func buildIndex(objects []types.DrawingObject) map[string]*types.DrawingObject {
	index := make(map[string]*types.DrawingObject, len(objects))
	for i := range objects {
		if objects[i].ID == "" {
			continue
		}
		index[objects[i].ID] = &objects[i]
	}
	return index
}

// coordEqual is presence-aware: two absent coordinates are equal, an
// absent one never equals a present one, present values compare exact.
// No tolerance is applied; coordinates are discrete units.
func coordEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// coordValue treats an absent coordinate as 0 for delta arithmetic.
func coordValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
