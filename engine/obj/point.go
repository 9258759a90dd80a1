package obj

import (
	"fmt"
	"math"
)

// Point is a position in a world
type Point struct {
	X float64
	Y float64
	Z float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", p.X, p.Y, p.Z)
}

// DistanceTo calculates distance between two positions
func (p Point) DistanceTo(o Point) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
