package summary

// Direction maps a 2D displacement to a cardinal or intercardinal
// label. The north/south component comes first, matching compass
// convention ("northeast", never "eastnorth").
func Direction(dx, dy float64) string {
	if dx == 0 && dy == 0 {
		return "in place"
	}

	var label string
	if dy > 0 {
		label = "north"
	} else if dy < 0 {
		label = "south"
	}
	if dx > 0 {
		label += "east"
	} else if dx < 0 {
		label += "west"
	}
	return label
}
