// Package export renders recorded runs as standalone SVG documents.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/motorsim/internal/telemetry"
	"github.com/san-kum/motorsim/internal/viz"
)

const background = "#0a0a0a"

// CanvasSVG draws every lit dot of a Braille canvas as a circle, scale
// pixels apart.
func CanvasSVG(w io.Writer, canvas *viz.Canvas, scale float64, fill string) error {
	if canvas == nil {
		return fmt.Errorf("export: nil canvas")
	}

	dotsW, dotsH := canvas.Width*2, canvas.Height*4
	width, height := float64(dotsW)*scale, float64(dotsH)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, background, fill)

	radius := scale * 0.4
	for y := 0; y < dotsH; y++ {
		for x := 0; x < dotsW; x++ {
			if !canvas.Dot(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, radius)
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesSVG draws a (time, value) series as a polyline with a caption.
func SeriesSVG(w io.Writer, points []telemetry.Point, width, height int, stroke, caption string) error {
	if len(points) < 2 {
		return fmt.Errorf("export: need at least 2 points, got %d", len(points))
	}

	minX, maxX := points[0][0], points[0][0]
	minY, maxY := points[0][1], points[0][1]
	for _, p := range points {
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, p[1]), max(maxY, p[1])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<text x="8" y="16" fill="%s" font-family="monospace" font-size="12">%s</text>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, stroke, caption, stroke)

	for i, p := range points {
		x := (p[0] - minX) / rangeX * float64(width)
		y := float64(height) - (p[1]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString("\"/>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
