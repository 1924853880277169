package tui

import (
	"math"
	"strings"
)

// renderRing draws a ring of the given radius inside a square canvas sized for maxRadius.
// rows is the canvas height in terminal cells. Cells are about twice as tall as wide,
// so columns are doubled to keep the ring round.
func renderRing(radius, maxRadius, stroke float64, rows int) string {
	if rows < 3 || maxRadius <= 0 {
		return ""
	}

	scale := float64(rows-1) / 2 / maxRadius
	r := radius * scale
	half := math.Max(stroke*scale/2, 0.5)
	center := float64(rows-1) / 2
	cols := rows * 2

	var b strings.Builder
	for y := 0; y < rows; y++ {
		line := make([]rune, cols)
		for x := 0; x < cols; x++ {
			dx := (float64(x) - float64(cols-1)/2) / 2
			dy := float64(y) - center
			if math.Abs(math.Hypot(dx, dy)-r) <= half {
				line[x] = '●'
			} else {
				line[x] = ' '
			}
		}
		b.WriteString(strings.TrimRight(string(line), " "))
		if y < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
