package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/abhinav-TB/Build-Trace/internal/logger"
	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

// NoChanges is the summary emitted for an empty change set.
const NoChanges = "No changes detected."

// DefaultGenerateTimeout bounds a single external generation call.
const DefaultGenerateTimeout = 10 * time.Second

// Generator produces natural-language text for a prompt. It may fail
// or time out; the composer absorbs both.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Composer turns a change set into a one-or-two sentence summary. The
// rule-based path is always available; when a Generator is configured
// it is tried first and any failure falls back transparently.
type Composer struct {
	gen     Generator
	timeout time.Duration
	log     logger.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithGenerator enables the external generation path.
func WithGenerator(g Generator) Option {
	return func(c *Composer) { c.gen = g }
}

// WithTimeout overrides the per-call generation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) { c.timeout = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Composer) { c.log = l }
}

// NewComposer creates a Composer. Without options it is purely
// rule-based.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		timeout: DefaultGenerateTimeout,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose returns a human-readable summary of the given changes. The
// external generator, when present, is called with a bounded timeout
// and never holds up the caller beyond it; every failure path lands on
// the rule-based text.
func (c *Composer) Compose(ctx context.Context, added, removed []types.DrawingObject, moved []types.MovedObject) string {
	fallback := c.ruleBased(added, removed, moved)
	if c.gen == nil || fallback == NoChanges {
		return fallback
	}

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.gen.Generate(genCtx, buildPrompt(added, removed, moved))
	if err != nil {
		c.log.WithField("error", err.Error()).Debug("summary generation failed, using rule-based summary")
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.log.Debug("summary generator returned empty text, using rule-based summary")
		return fallback
	}
	return text
}

// ruleBased builds the deterministic summary: one clause per non-empty
// category, joined with "; " and terminated with ".".
func (c *Composer) ruleBased(added, removed []types.DrawingObject, moved []types.MovedObject) string {
	if len(added) == 0 && len(removed) == 0 && len(moved) == 0 {
		return NoChanges
	}

	var parts []string

	if len(removed) == 1 {
		obj := removed[0]
		parts = append(parts, fmt.Sprintf("%s %s removed", capitalize(obj.TypeOrDefault()), obj.ID))
	} else if len(removed) > 1 {
		parts = append(parts, countByType(removed)+" removed")
	}

	if len(added) == 1 {
		obj := added[0]
		parts = append(parts, fmt.Sprintf("%s %s added at (%s,%s)",
			capitalize(obj.TypeOrDefault()), obj.ID, formatCoord(obj.X), formatCoord(obj.Y)))
	} else if len(added) > 1 {
		parts = append(parts, countByType(added)+" added")
	}

	if len(moved) == 1 {
		m := moved[0]
		distance := abs(m.Delta.X) + abs(m.Delta.Y)
		parts = append(parts, fmt.Sprintf("%s %s moved %s units %s",
			capitalize(typeOrDefault(m.Type)), m.ID, formatNumber(distance), Direction(m.Delta.X, m.Delta.Y)))
	} else if len(moved) > 1 {
		// No per-object detail at scale, just the aggregate.
		parts = append(parts, fmt.Sprintf("%d objects repositioned", len(moved)))
	}

	return strings.Join(parts, "; ") + "."
}

// typeCount is a (type, occurrences) pair in first-seen order.
type typeCount struct {
	name  string
	count int
}

func groupByType(objects []types.DrawingObject) []typeCount {
	index := make(map[string]int, len(objects))
	var counts []typeCount
	for i := range objects {
		name := objects[i].TypeOrDefault()
		if pos, ok := index[name]; ok {
			counts[pos].count++
			continue
		}
		index[name] = len(counts)
		counts = append(counts, typeCount{name: name, count: 1})
	}
	return counts
}

// countByType renders "2 walls, 1 door" style groupings.
func countByType(objects []types.DrawingObject) string {
	counts := groupByType(objects)
	strs := make([]string, len(counts))
	for i, tc := range counts {
		strs[i] = fmt.Sprintf("%d %s", tc.count, pluralize(tc.name, tc.count))
	}
	return strings.Join(strs, ", ")
}

func pluralize(name string, count int) string {
	if count > 1 {
		return name + "s"
	}
	return name
}

func typeOrDefault(t string) string {
	if t == "" {
		return "object"
	}
	return t
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatCoord renders a possibly absent coordinate. "?" marks objects
// that carried no value for the axis.
func formatCoord(v *float64) string {
	if v == nil {
		return "?"
	}
	return formatNumber(*v)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
