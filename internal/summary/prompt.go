package summary

import (
	"fmt"
	"strings"

	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

// itemizedLimit caps the per-category detail included in a prompt.
// Past it the prompt switches to aggregate-by-type counts so the
// request stays bounded no matter how large the change set is.
const itemizedLimit = 5

// buildPrompt constructs the text handed to the external generator.
func buildPrompt(added, removed []types.DrawingObject, moved []types.MovedObject) string {
	var details []string

	if len(added) <= itemizedLimit {
		for i := range added {
			obj := &added[i]
			details = append(details, fmt.Sprintf("Added %s %s at position (%s,%s)",
				obj.TypeOrDefault(), obj.ID, formatCoord(obj.X), formatCoord(obj.Y)))
		}
	} else {
		details = append(details, "Added "+aggregateByType(added))
	}

	if len(removed) <= itemizedLimit {
		for i := range removed {
			obj := &removed[i]
			details = append(details, fmt.Sprintf("Removed %s %s", obj.TypeOrDefault(), obj.ID))
		}
	} else {
		details = append(details, "Removed "+aggregateByType(removed))
	}

	if len(moved) <= itemizedLimit {
		for _, m := range moved {
			distance := abs(m.Delta.X) + abs(m.Delta.Y)
			details = append(details, fmt.Sprintf("Moved %s %s %s units %s",
				typeOrDefault(m.Type), m.ID, formatNumber(distance), Direction(m.Delta.X, m.Delta.Y)))
		}
	} else {
		details = append(details, fmt.Sprintf("Repositioned %d objects", len(moved)))
	}

	var sb strings.Builder
	sb.WriteString("You are analyzing changes in a construction drawing between version A and version B.\n")
	sb.WriteString("Generate a concise, professional summary in 1-2 sentences.\n\n")
	sb.WriteString("Changes:\n")
	fmt.Fprintf(&sb, "- %d objects added\n", len(added))
	fmt.Fprintf(&sb, "- %d objects removed\n", len(removed))
	fmt.Fprintf(&sb, "- %d objects moved\n\n", len(moved))
	sb.WriteString("Details:\n")
	sb.WriteString(strings.Join(details, "\n"))
	sb.WriteString("\n\nWrite a natural, professional summary suitable for architects and construction managers.\n")
	sb.WriteString("Be specific with object IDs when there are few changes. Use aggregate counts for many changes.\n\n")
	sb.WriteString("Summary:")
	return sb.String()
}

// aggregateByType renders "2 walls, 1 door" without itemizing.
func aggregateByType(objects []types.DrawingObject) string {
	counts := groupByType(objects)
	strs := make([]string, len(counts))
	for i, tc := range counts {
		strs[i] = fmt.Sprintf("%d %s", tc.count, tc.name)
	}
	return strings.Join(strs, ", ")
}
