package canvas

import (
	"math"
	"strconv"
	"strings"
)

// DefaultCurvature matches the curvature used by the browser canvas for bezier edges.
const DefaultCurvature = 0.25

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path is a cubic bezier from a right-facing source handle to a left-facing target handle.
type Path struct {
	Source        Point `json:"source"`
	SourceControl Point `json:"sourceControl"`
	TargetControl Point `json:"targetControl"`
	Target        Point `json:"target"`
}

// BezierPath computes the edge path between two handles.
func BezierPath(source, target Point, curvature float64) Path {
	return Path{
		Source:        source,
		SourceControl: Point{X: source.X + controlOffset(target.X-source.X, curvature), Y: source.Y},
		TargetControl: Point{X: target.X - controlOffset(target.X-source.X, curvature), Y: target.Y},
		Target:        target,
	}
}

func controlOffset(distance, curvature float64) float64 {
	if distance >= 0 {
		return 0.5 * distance
	}

	return curvature * 25 * math.Sqrt(-distance)
}

// Midpoint is the point at t=0.5 on the curve, where labels and the delete marker sit.
func (p Path) Midpoint() Point {
	return Point{
		X: p.Source.X*0.125 + p.SourceControl.X*0.375 + p.TargetControl.X*0.375 + p.Target.X*0.125,
		Y: p.Source.Y*0.125 + p.SourceControl.Y*0.375 + p.TargetControl.Y*0.375 + p.Target.Y*0.125,
	}
}

// SVG renders the path as an SVG path command.
func (p Path) SVG() string {
	var b strings.Builder

	b.WriteString("M")
	writePoint(&b, p.Source)
	b.WriteString(" C")
	writePoint(&b, p.SourceControl)
	b.WriteString(" ")
	writePoint(&b, p.TargetControl)
	b.WriteString(" ")
	writePoint(&b, p.Target)

	return b.String()
}

func writePoint(b *strings.Builder, p Point) {
	b.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
	b.WriteString(",")
	b.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
}
