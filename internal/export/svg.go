package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/mmst/internal/analysis"
)

// PortraitSVG draws a phase portrait as a square SVG path of the given
// size in pixels. Both axes share one scale, so the circular orbits of an
// uncoupled mapping oscillator stay circular.
func PortraitSVG(w io.Writer, p *analysis.PhasePortrait, size int, strokeColor string) error {
	if p == nil || len(p.Points) < 2 {
		return fmt.Errorf("portrait needs at least 2 points")
	}
	if size <= 0 {
		return fmt.Errorf("size must be positive, got %d", size)
	}

	r := 0.0
	for _, pt := range p.Points {
		r = math.Max(r, math.Max(math.Abs(pt.X), math.Abs(pt.Y)))
	}
	if r == 0 {
		r = 1
	}
	r *= 1.1
	s := float64(size)
	project := func(pt analysis.Point) (float64, float64) {
		return (pt.X + r) / (2 * r) * s, (r - pt.Y) / (2 * r) * s
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g stroke="#444466" stroke-width="1">
<line x1="0" y1="%.1f" x2="%d" y2="%.1f"/>
<line x1="%.1f" y1="0" x2="%.1f" y2="%d"/>
</g>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		size, size, size, size, s/2, size, s/2, s/2, s/2, size, strokeColor)

	for i, pt := range p.Points {
		x, y := project(pt)
		if i == 0 {
			fmt.Fprintf(bw, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(bw, " L%.1f,%.1f", x, y)
		}
	}
	fmt.Fprintf(bw, "\"/>\n<text x=\"8\" y=\"20\" fill=\"#888899\" font-family=\"monospace\" font-size=\"14\">state %d (q, p)</text>\n</svg>\n", p.State)
	return bw.Flush()
}
