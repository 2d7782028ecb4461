package types

// Position is a possibly partial 2D coordinate. A nil axis means the
// source object carried no value for it.
type Position struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Delta is the displacement between two positions. Absent coordinates
// contribute zero, so a delta always has concrete components.
type Delta struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MovedObject records an object present in both snapshots whose
// position changed.
type MovedObject struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"`
	From  Position `json:"from"`
	To    Position `json:"to"`
	Delta Delta    `json:"delta"`
}

// DiffStats summarizes a change set by cardinality.
type DiffStats struct {
	AddedCount   int `json:"added_count"`
	RemovedCount int `json:"removed_count"`
	MovedCount   int `json:"moved_count"`
	TotalChanges int `json:"total_changes"`
}

// ChangeSet is the structured result of comparing two snapshots. An
// object id appears in at most one of the three sequences.
type ChangeSet struct {
	Added   []DrawingObject `json:"added"`
	Removed []DrawingObject `json:"removed"`
	Moved   []MovedObject   `json:"moved"`
	Summary string          `json:"summary"`
	Stats   DiffStats       `json:"stats"`
}

// Empty reports whether the change set contains no changes.
func (c *ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Moved) == 0
}
