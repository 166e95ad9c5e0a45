package gauge

import (
	"math"
	"strconv"
	"strings"
)

// Arcs is the SVG geometry of a gauge drawn in a square viewBox.
type Arcs struct {
	Value     string
	Remainder string
}

// Arcs returns the two annular-sector paths of the snapshot for a gauge of
// outer radius r centred on (cx, cy). Slots share the arc span in proportion
// to their absolute values; an empty slot yields an empty path.
func (s Snapshot) Arcs(cx, cy, r float64) Arcs {
	a, b := math.Abs(s.Series[0]), math.Abs(s.Series[1])
	total := a + b
	if total == 0 {
		return Arcs{}
	}
	inner := r * s.Style.CutoutPercent / 100
	split := s.Style.Rotation + s.Style.Circumference*a/total
	end := s.Style.Rotation + s.Style.Circumference

	return Arcs{
		Value:     sectorPath(cx, cy, r, inner, s.Style.Rotation, split),
		Remainder: sectorPath(cx, cy, r, inner, split, end),
	}
}

func sectorPath(cx, cy, outer, inner, from, to float64) string {
	sweep := to - from
	if sweep <= 0 {
		return ""
	}
	large := "0"
	if sweep > 180 {
		large = "1"
	}
	ox1, oy1 := polar(cx, cy, outer, from)
	ox2, oy2 := polar(cx, cy, outer, to)
	ix2, iy2 := polar(cx, cy, inner, to)
	ix1, iy1 := polar(cx, cy, inner, from)

	var sb strings.Builder
	sb.WriteString("M" + num(ox1) + " " + num(oy1))
	sb.WriteString(" A" + num(outer) + " " + num(outer) + " 0 " + large + " 1 " + num(ox2) + " " + num(oy2))
	sb.WriteString(" L" + num(ix2) + " " + num(iy2))
	if inner > 0 {
		sb.WriteString(" A" + num(inner) + " " + num(inner) + " 0 " + large + " 0 " + num(ix1) + " " + num(iy1))
	}
	sb.WriteString(" Z")
	return sb.String()
}

// polar maps an angle in degrees, clockwise from 12 o'clock, to SVG coordinates.
func polar(cx, cy, r, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return cx + r*math.Sin(rad), cy - r*math.Cos(rad)
}

func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
