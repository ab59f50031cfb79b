package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/ufosim/internal/sim"
)

// Point is one (x, y) pair of a 2D plot.
type Point struct{ X, Y float64 }

// PhasePortrait returns the (theta, omega) trajectory of a recorded rollout.
func PhasePortrait(tr *sim.Trace) []Point {
	pts := make([]Point, len(tr.Samples))
	for i, s := range tr.Samples {
		pts[i] = Point{X: s.Theta, Y: s.Omega}
	}
	return pts
}

// SettlingTime is the first time after which |error| stays within tol for
// the rest of the trace. It returns -1 if the trace never settles.
func SettlingTime(tr *sim.Trace, tol float64) float64 {
	settled := -1
	for i := len(tr.Samples) - 1; i >= 0; i-- {
		if math.Abs(tr.Samples[i].Error) > tol {
			break
		}
		settled = i
	}
	if settled < 0 {
		return -1
	}
	return tr.Samples[settled].Time
}

// ScatterASCII rasterizes points into a width x height grid of runes with
// 10% padding and axes drawn where they cross the view.
func ScatterASCII(pts []Point, width, height int) string {
	if len(pts) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := bounds(pts)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }
	inside := func(r, c int) bool { return r >= 0 && r < height && c >= 0 && c < width }

	for _, p := range pts {
		if r, c := row(p.Y), col(p.X); inside(r, c) {
			grid[r][c] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range grid {
			if inside(r, c) && grid[r][c] == ' ' {
				grid[r][c] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := 0; c < width; c++ {
			if inside(r, c) && grid[r][c] == ' ' {
				grid[r][c] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, line := range grid {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}

func bounds(pts []Point) (minX, maxX, minY, maxY float64) {
	minX, maxX = pts[0].X, pts[0].X
	minY, maxY = pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	pad := func(lo, hi float64) (float64, float64) {
		r := hi - lo
		if r == 0 {
			r = 1
		}
		return lo - 0.1*r, hi + 0.1*r
	}
	minX, maxX = pad(minX, maxX)
	minY, maxY = pad(minY, maxY)
	return
}
