package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

func f(v float64) *float64 { return &v }

func obj(id, typ string, x, y float64) types.DrawingObject {
	return types.DrawingObject{ID: id, Type: typ, X: f(x), Y: f(y)}
}

func moved(id, typ string, dx, dy float64) types.MovedObject {
	return types.MovedObject{ID: id, Type: typ, Delta: types.Delta{X: dx, Y: dy}}
}

func TestComposer_Empty(t *testing.T) {
	c := NewComposer()
	got := c.Compose(context.Background(), nil, nil, nil)
	if got != NoChanges {
		t.Errorf("expected %q, got %q", NoChanges, got)
	}
}

func TestComposer_SingleAdded(t *testing.T) {
	c := NewComposer()
	got := c.Compose(context.Background(), []types.DrawingObject{obj("D1", "door", 4, 2)}, nil, nil)
	want := "Door D1 added at (4,2)."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestComposer_SingleRemoved(t *testing.T) {
	c := NewComposer()
	got := c.Compose(context.Background(), nil, []types.DrawingObject{obj("W1", "wall", 0, 0)}, nil)
	want := "Wall W1 removed."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestComposer_SingleMoved(t *testing.T) {
	c := NewComposer()
	got := c.Compose(context.Background(), nil, nil, []types.MovedObject{moved("D1", "door", 2, 0)})
	want := "Door D1 moved 2 units east."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestComposer_GroupedCountsWithPluralization(t *testing.T) {
	c := NewComposer()
	added := []types.DrawingObject{
		obj("W1", "wall", 0, 0),
		obj("W2", "wall", 1, 1),
		obj("D1", "door", 2, 2),
	}
	got := c.Compose(context.Background(), added, nil, nil)
	want := "2 walls, 1 door added."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestComposer_MultipleMovedAggregatesOnly(t *testing.T) {
	c := NewComposer()
	ms := []types.MovedObject{
		moved("D1", "door", 1, 0),
		moved("D2", "door", 0, 1),
		moved("W1", "wall", -1, -1),
	}
	got := c.Compose(context.Background(), nil, nil, ms)
	want := "3 objects repositioned."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestComposer_ClauseOrderAndJoin(t *testing.T) {
	c := NewComposer()
	got := c.Compose(context.Background(),
		[]types.DrawingObject{obj("D1", "door", 4, 2)},
		[]types.DrawingObject{obj("W1", "wall", 0, 0)},
		[]types.MovedObject{moved("S1", "stair", 0, 3)},
	)
	want := "Wall W1 removed; Door D1 added at (4,2); Stair S1 moved 3 units north."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestComposer_UntypedObjectDefaults(t *testing.T) {
	c := NewComposer()
	got := c.Compose(context.Background(), nil, []types.DrawingObject{{ID: "X1"}}, nil)
	want := "Object X1 removed."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

type fakeGenerator struct {
	text  string
	err   error
	block time.Duration

	lastPrompt string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	if g.block > 0 {
		select {
		case <-time.After(g.block):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, g.err
}

func TestComposer_GeneratorSuccess(t *testing.T) {
	gen := &fakeGenerator{text: "The door moved east toward the lobby."}
	c := NewComposer(WithGenerator(gen))

	got := c.Compose(context.Background(), nil, nil, []types.MovedObject{moved("D1", "door", 2, 0)})
	if got != gen.text {
		t.Errorf("expected generator text, got %q", got)
	}
}

func TestComposer_GeneratorErrorFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("api unavailable")}
	c := NewComposer(WithGenerator(gen))

	got := c.Compose(context.Background(), nil, nil, []types.MovedObject{moved("D1", "door", 2, 0)})
	if got != "Door D1 moved 2 units east." {
		t.Errorf("expected rule-based fallback, got %q", got)
	}
}

func TestComposer_GeneratorEmptyFallsBack(t *testing.T) {
	gen := &fakeGenerator{text: "   \n"}
	c := NewComposer(WithGenerator(gen))

	got := c.Compose(context.Background(), nil, nil, []types.MovedObject{moved("D1", "door", 2, 0)})
	if got != "Door D1 moved 2 units east." {
		t.Errorf("expected rule-based fallback on empty response, got %q", got)
	}
}

func TestComposer_GeneratorTimeoutFallsBack(t *testing.T) {
	gen := &fakeGenerator{text: "too late", block: 500 * time.Millisecond}
	c := NewComposer(WithGenerator(gen), WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := c.Compose(context.Background(), nil, nil, []types.MovedObject{moved("D1", "door", 2, 0)})
	if got != "Door D1 moved 2 units east." {
		t.Errorf("expected rule-based fallback on timeout, got %q", got)
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Errorf("compose did not respect the generation timeout")
	}
}

func TestComposer_GeneratorSkippedWhenNoChanges(t *testing.T) {
	gen := &fakeGenerator{text: "should not be called"}
	c := NewComposer(WithGenerator(gen))

	got := c.Compose(context.Background(), nil, nil, nil)
	if got != NoChanges {
		t.Errorf("expected %q, got %q", NoChanges, got)
	}
	if gen.lastPrompt != "" {
		t.Errorf("generator must not be consulted for an empty change set")
	}
}

func TestBuildPrompt_ItemizesSmallCategories(t *testing.T) {
	prompt := buildPrompt(
		[]types.DrawingObject{obj("D1", "door", 4, 2)},
		nil,
		[]types.MovedObject{moved("W1", "wall", 0, -3)},
	)
	if !strings.Contains(prompt, "Added door D1 at position (4,2)") {
		t.Errorf("prompt missing itemized added entry:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Moved wall W1 3 units south") {
		t.Errorf("prompt missing itemized moved entry:\n%s", prompt)
	}
}

func TestBuildPrompt_AggregatesLargeCategories(t *testing.T) {
	var added []types.DrawingObject
	for i := 0; i < 8; i++ {
		added = append(added, obj("W"+string(rune('0'+i)), "wall", float64(i), 0))
	}
	prompt := buildPrompt(added, nil, nil)

	if strings.Contains(prompt, "at position") {
		t.Errorf("large category must not be itemized:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Added 8 wall") {
		t.Errorf("expected aggregate count in prompt:\n%s", prompt)
	}
}
