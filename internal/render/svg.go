package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// Draft is an in-progress shape drawn above the annotations by the editor.
type Draft struct {
	Points []r2.Vec
	Cursor *r2.Vec
	Color  string
	Status string
}

// Document carries the page-level settings for WriteSVG.
type Document struct {
	// Src is the background image reference. When empty no background
	// pattern is emitted.
	Src string
	Alt string

	// Variant selects the container chrome: "default", "minimal" or
	// "bordered". It is written as a class name.
	Variant string
	Class   string

	Draft *Draft
}

const svgNS = "http://www.w3.org/2000/svg"

// WriteSVG writes the scene as a standalone SVG document whose viewBox is the
// logical image size. The document scales to its container while keeping
// the aspect ratio.
func WriteSVG(w io.Writer, scene Scene, doc Document) error {
	bw := bufio.NewWriter(w)
	sw := &svgWriter{w: bw}

	width := geometry.FormatNumber(scene.Width)
	height := geometry.FormatNumber(scene.Height)

	variant := doc.Variant
	if variant == "" {
		variant = "default"
	}
	classes := strings.TrimSpace("annotated-diagram variant-" + variant + " " + doc.Class)

	sw.printf(`<svg xmlns="%s" viewBox="0 0 %s %s" preserveAspectRatio="xMidYMid meet" width="100%%" height="100%%" class="%s" role="img"`,
		svgNS, width, height, esc(classes))
	if doc.Alt != "" {
		sw.printf(` aria-label="%s"`, esc(doc.Alt))
	}
	sw.printf(">\n")

	writeDefs(sw, scene, doc)

	if doc.Src != "" {
		sw.printf(`  <rect data-role="background" width="%s" height="%s" fill="url(#bg_img)"/>`+"\n", width, height)
	} else {
		sw.printf(`  <rect data-role="background" width="%s" height="%s" fill="transparent"/>`+"\n", width, height)
	}

	for _, l := range scene.Layers {
		writeLayer(sw, l)
	}

	if doc.Draft != nil {
		writeDraft(sw, *doc.Draft)
	}

	sw.printf("</svg>\n")
	if sw.err != nil {
		return fmt.Errorf("failed to write svg: %w", sw.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	return nil
}

// SVGString renders the scene to a string.
func SVGString(scene Scene, doc Document) (string, error) {
	var b strings.Builder
	if err := WriteSVG(&b, scene, doc); err != nil {
		return "", err
	}
	return b.String(), nil
}

type svgWriter struct {
	w   io.Writer
	err error
}

func (s *svgWriter) printf(format string, args ...interface{}) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func writeDefs(sw *svgWriter, scene Scene, doc Document) {
	sw.printf("  <defs>\n")
	sw.printf(`    <filter id="glow"><feGaussianBlur stdDeviation="%s" result="coloredBlur"/><feMerge><feMergeNode in="coloredBlur"/><feMergeNode in="SourceGraphic"/></feMerge></filter>`+"\n",
		geometry.FormatNumber(GlowRadius))
	sw.printf(`    <pattern id="dense_crosshatch" patternUnits="userSpaceOnUse" width="%[1]s" height="%[1]s"><path d="M 0,8 l 8,-8 M -2,2 l 4,-4 M 6,10 l 4,-4" stroke-width="1" stroke="#343434" stroke-linecap="square" opacity="0.5"/></pattern>`+"\n",
		geometry.FormatNumber(HatchSpacing))
	if doc.Src != "" {
		w := geometry.FormatNumber(scene.Width)
		h := geometry.FormatNumber(scene.Height)
		sw.printf(`    <pattern id="bg_img" patternUnits="userSpaceOnUse" width="%[1]s" height="%[2]s"><image href="%[3]s" width="%[1]s" height="%[2]s" preserveAspectRatio="xMidYMid slice"/></pattern>`+"\n",
			w, h, esc(doc.Src))
	}
	sw.printf("  </defs>\n")
}

func writeLayer(sw *svgWriter, l Layer) {
	sw.printf(`  <g class="annotation annotation-%s" data-annotation-id="%s" data-type="%s" data-phase="%s"`,
		l.Kind, esc(l.ID), l.Kind, l.Phase)
	if l.Active {
		sw.printf(` data-active="true"`)
	}
	if l.Phase == PhaseExit {
		sw.printf(` pointer-events="none"`)
	} else {
		sw.printf(` style="cursor: pointer"`)
	}
	if l.Popover != nil && l.PopoverOpen {
		sw.printf(` data-popover-open="true"`)
	}
	sw.printf(">\n")

	if l.Popover != nil {
		if l.Popover.Label != "" {
			sw.printf("    <title>%s</title>\n", esc(l.Popover.Label))
		}
		if l.Popover.Description != "" {
			sw.printf("    <desc>%s</desc>\n", esc(l.Popover.Description))
		}
	}

	writePhaseAnimation(sw, l)

	if !l.Outline.Empty() {
		d := l.Outline.SVG(l.Closed)
		if l.Closed && l.Style.Hatch {
			sw.printf(`    <path d="%s" fill="url(#dense_crosshatch)" opacity="%s" pointer-events="none"/>`+"\n",
				d, geometry.FormatNumber(HatchOpacity))
		}
		writeOutline(sw, l, d)
	}

	for _, m := range l.Markers {
		writeMarker(sw, l, m)
	}
	for _, c := range l.Captions {
		writeCaption(sw, c)
	}

	sw.printf("  </g>\n")
}

func writePhaseAnimation(sw *svgWriter, l Layer) {
	switch l.Phase {
	case PhaseEnter:
		sw.printf(`    <animate attributeName="opacity" from="0" to="1" dur="0.5s" fill="freeze"/>` + "\n")
	case PhaseExit:
		sw.printf(`    <animate attributeName="opacity" from="1" to="0" dur="0.5s" fill="freeze"/>` + "\n")
	}
}

func writeOutline(sw *svgWriter, l Layer, d string) {
	fill := "none"
	fillOpacity := ""
	if l.Closed {
		fill = esc(l.Style.Fill)
		fillOpacity = fmt.Sprintf(` fill-opacity="%s"`, geometry.FormatNumber(l.Style.FillOpacity))
	}
	dash := ""
	if l.Style.StrokeDash != "" {
		dash = fmt.Sprintf(` stroke-dasharray="%s"`, l.Style.StrokeDash)
	}
	filter := ""
	if l.Style.Glow {
		filter = ` filter="url(#glow)"`
	}

	sw.printf(`    <path d="%s" fill="%s"%s stroke="%s" stroke-width="%s"%s%s vector-effect="non-scaling-stroke"`,
		d, fill, fillOpacity, esc(l.Style.Stroke), geometry.FormatNumber(l.Style.StrokeWidth), dash, filter)

	// Open paths draw themselves in on entry.
	if !l.Closed && l.Phase == PhaseEnter {
		dur := "0.5s"
		if len(l.Markers) > 0 {
			dur = "1.5s"
		}
		sw.printf(` pathLength="1" stroke-dasharray="1" stroke-dashoffset="0">`+"\n"+
			`      <animate attributeName="stroke-dashoffset" from="1" to="0" dur="%s" fill="freeze"/>`+"\n"+
			"    </path>\n", dur)
		return
	}
	sw.printf("/>\n")
}

func writeMarker(sw *svgWriter, l Layer, m Marker) {
	cx := geometry.FormatNumber(m.Center.X)
	cy := geometry.FormatNumber(m.Center.Y)
	r := geometry.FormatNumber(m.Radius)
	color := esc(l.Color)

	filter := ""
	if l.Style.Glow && l.Kind == "point" {
		filter = ` filter="url(#glow)"`
	}
	sw.printf(`    <circle cx="%s" cy="%s" r="%s" fill="%s" stroke="white" stroke-width="%s" vector-effect="non-scaling-stroke"%s`,
		cx, cy, r, color, geometry.FormatNumber(MarkerRingWidth), filter)
	if l.Phase == PhaseEnter && m.Index > 0 {
		sw.printf(` opacity="0">`+"\n"+
			`      <animate attributeName="opacity" from="0" to="1" begin="%ss" dur="0.3s" fill="freeze"/>`+"\n"+
			"    </circle>\n", geometry.FormatNumber(float64(m.Index)*0.5))
	} else {
		sw.printf("/>\n")
	}

	if !m.Pulse {
		return
	}
	// Expanding, fading ring that repeats regardless of hover state.
	sw.printf(`    <circle cx="%s" cy="%s" r="%s" fill="none" stroke="%s" stroke-width="%s" vector-effect="non-scaling-stroke" pointer-events="none">`+"\n",
		cx, cy, r, color, geometry.FormatNumber(MarkerRingWidth))
	sw.printf(`      <animate attributeName="r" from="%s" to="%s" dur="%ss" repeatCount="indefinite"/>`+"\n",
		r, geometry.FormatNumber(m.Radius*PulseScale), geometry.FormatNumber(PulseSeconds))
	sw.printf(`      <animate attributeName="opacity" from="0.8" to="0" dur="%ss" repeatCount="indefinite"/>`+"\n",
		geometry.FormatNumber(PulseSeconds))
	sw.printf("    </circle>\n")
}

func writeCaption(sw *svgWriter, c Caption) {
	box := c.Box()
	textW := estimateTextWidth(c.Text)
	bx := box.Min.X + (CaptionWidth-textW)/2
	by := box.Min.Y + (CaptionHeight-20)/2
	sw.printf(`    <g class="caption" pointer-events="none"><rect x="%s" y="%s" width="%s" height="20" rx="6" fill="white" fill-opacity="0.8" stroke="#e5e7eb"/><text x="%s" y="%s" text-anchor="middle" dominant-baseline="central" font-size="12">%s</text></g>`+"\n",
		geometry.FormatNumber(bx), geometry.FormatNumber(by), geometry.FormatNumber(textW),
		geometry.FormatNumber(c.At.X), geometry.FormatNumber(by+10), esc(c.Text))
}

func writeDraft(sw *svgWriter, d Draft) {
	if len(d.Points) == 0 {
		return
	}
	color := d.Color
	if color == "" {
		color = "black"
	}
	pts := make([]string, len(d.Points))
	for i, p := range d.Points {
		pts[i] = geometry.FormatNumber(p.X) + "," + geometry.FormatNumber(p.Y)
	}
	sw.printf(`  <g class="draft" data-points="%d" pointer-events="none">`+"\n", len(d.Points))
	sw.printf(`    <polyline points="%s" fill="none" stroke="%s" stroke-width="2" stroke-dasharray="4 2"/>`+"\n",
		strings.Join(pts, " "), esc(color))
	if d.Cursor != nil {
		last := d.Points[len(d.Points)-1]
		sw.printf(`    <line x1="%s" y1="%s" x2="%s" y2="%s" stroke="black" stroke-width="1" stroke-dasharray="2 2" opacity="0.5"/>`+"\n",
			geometry.FormatNumber(last.X), geometry.FormatNumber(last.Y),
			geometry.FormatNumber(d.Cursor.X), geometry.FormatNumber(d.Cursor.Y))
	}
	for _, p := range d.Points {
		sw.printf(`    <circle cx="%s" cy="%s" r="3" fill="white" stroke="black"/>`+"\n",
			geometry.FormatNumber(p.X), geometry.FormatNumber(p.Y))
	}
	if d.Status != "" {
		sw.printf(`    <text class="draft-status" x="50%%" y="98%%" text-anchor="middle" font-size="12">%s</text>`+"\n", esc(d.Status))
	}
	sw.printf("  </g>\n")
}

// estimateTextWidth approximates the width of a 12px caption plus padding.
func estimateTextWidth(s string) float64 {
	return float64(len([]rune(s)))*6.5 + 16
}

func esc(s string) string {
	return html.EscapeString(s)
}
