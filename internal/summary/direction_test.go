package summary

import "testing"

func TestDirection(t *testing.T) {
	tests := []struct {
		dx, dy float64
		want   string
	}{
		{0, 0, "in place"},
		{5, 0, "east"},
		{-5, 0, "west"},
		{0, 5, "north"},
		{0, -5, "south"},
		{3, 4, "northeast"},
		{-3, 4, "northwest"},
		{3, -4, "southeast"},
		{-3, -4, "southwest"},
		{0.5, -0.5, "southeast"},
	}

	for _, tt := range tests {
		if got := Direction(tt.dx, tt.dy); got != tt.want {
			t.Errorf("Direction(%g, %g) = %q, want %q", tt.dx, tt.dy, got, tt.want)
		}
	}
}
