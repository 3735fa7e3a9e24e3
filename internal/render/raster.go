package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// RasterOptions controls Rasterize.
type RasterOptions struct {
	// Scale converts logical units to output pixels. Zero means 1.
	Scale float64

	// Foreground resolves "currentColor". The zero value means black.
	Foreground color.Color

	// Background fills the canvas when no background image is given. The
	// zero value means white.
	Background color.Color

	Draft *Draft
}

// Rasterize draws the resting state of scene over bg, which is fitted to
// cover the logical size. bg may be nil. Exit layers are not drawn.
func Rasterize(bg image.Image, scene Scene, opts RasterOptions) *image.RGBA {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Round(scene.Width * scale))
	h := int(math.Round(scene.Height * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg != nil {
		fitted := imaging.Fill(bg, w, h, imaging.Center, imaging.Lanczos)
		draw.Draw(dst, dst.Bounds(), fitted, image.Point{}, draw.Src)
	} else {
		fill := opts.Background
		if fill == nil {
			fill = color.White
		}
		draw.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	}

	fg := color.NRGBAModel.Convert(color.Black).(color.NRGBA)
	if opts.Foreground != nil {
		fg = color.NRGBAModel.Convert(opts.Foreground).(color.NRGBA)
	}

	p := &painter{scale: scale, fg: fg}
	for _, l := range scene.Layers {
		if !l.Live() {
			continue
		}
		p.layer(dst, l)
	}
	for _, l := range scene.Layers {
		if l.Live() {
			p.captions(dst, l)
		}
	}
	if opts.Draft != nil {
		p.draft(dst, *opts.Draft)
	}
	return dst
}

type painter struct {
	scale float64
	fg    color.NRGBA
}

func (p *painter) px(v r2.Vec) r2.Vec {
	return r2.Scale(p.scale, v)
}

func (p *painter) pxAll(vs []r2.Vec) []r2.Vec {
	out := make([]r2.Vec, len(vs))
	for i, v := range vs {
		out[i] = p.px(v)
	}
	return out
}

func (p *painter) layer(dst *image.RGBA, l Layer) {
	if !l.Style.Glow {
		p.shape(dst, l)
		return
	}
	// Glow: a blurred copy of the shape underneath the shape itself.
	tmp := image.NewRGBA(dst.Bounds())
	p.shape(tmp, l)
	halo := blur.Gaussian(tmp, GlowRadius*p.scale)
	draw.Draw(dst, dst.Bounds(), halo, image.Point{}, draw.Over)
	draw.Draw(dst, dst.Bounds(), tmp, image.Point{}, draw.Over)
}

func (p *painter) shape(dst *image.RGBA, l Layer) {
	stroke := parseColor(l.Style.Stroke, p.fg)

	if !l.Outline.Empty() {
		outline := p.pxAll(l.Outline.Flatten(flattenStep / p.scale))
		if l.Closed {
			fill := parseColor(l.Style.Fill, p.fg)
			fill.A = uint8(math.Round(float64(fill.A) * l.Style.FillOpacity))
			fillPolygon(dst, outline, fill)
			if l.Style.Hatch {
				p.hatch(dst, outline)
			}
		}
		strokePolyline(dst, outline, l.Closed, l.Style.StrokeWidth, parseDash(l.Style.StrokeDash), stroke)
	}

	markerColor := parseColor(l.Color, p.fg)
	for _, m := range l.Markers {
		c := p.px(m.Center)
		r := m.Radius * p.scale
		fillCircle(dst, c, r+MarkerRingWidth/2, color.NRGBA{255, 255, 255, 255})
		fillCircle(dst, c, math.Max(r-MarkerRingWidth/2, 0.5), markerColor)
	}
}

func (p *painter) hatch(dst *image.RGBA, polygon []r2.Vec) {
	b := dst.Bounds()
	mask := image.NewAlpha(b)
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	addPolygon(ras, polygon)
	ras.Draw(mask, b, image.Opaque, image.Point{})

	lines := image.NewRGBA(b)
	ink := color.NRGBA{0x34, 0x34, 0x34, uint8(math.Round(255 * 0.5 * HatchOpacity))}
	step := HatchSpacing * p.scale
	bounds := geometry.Bounds(polygon)
	for k := bounds.Min.X + bounds.Min.Y; k <= bounds.Max.X+bounds.Max.Y+step; k += step {
		// Anti-diagonal x + y = k across the polygon's bounding box.
		a := r2.Vec{X: k - bounds.Max.Y, Y: bounds.Max.Y}
		c := r2.Vec{X: k - bounds.Min.Y, Y: bounds.Min.Y}
		strokePolyline(lines, []r2.Vec{a, c}, false, 1, nil, ink)
	}
	draw.DrawMask(dst, b, lines, image.Point{}, mask, image.Point{}, draw.Over)
}

func (p *painter) captions(dst *image.RGBA, l Layer) {
	for _, c := range l.Captions {
		box := c.Box()
		center := p.px(r2.Scale(0.5, r2.Add(box.Min, box.Max)))
		drawLabel(dst, center, c.Text)
	}
}

func (p *painter) draft(dst *image.RGBA, d Draft) {
	if len(d.Points) == 0 {
		return
	}
	pts := p.pxAll(d.Points)
	strokePolyline(dst, pts, false, 2, []float64{4, 2}, parseColor(d.Color, p.fg))
	if d.Cursor != nil {
		band := []r2.Vec{pts[len(pts)-1], p.px(*d.Cursor)}
		strokePolyline(dst, band, false, 1, []float64{2, 2}, color.NRGBA{0, 0, 0, 128})
	}
	for _, v := range pts {
		fillCircle(dst, v, 3.5, color.NRGBA{0, 0, 0, 255})
		fillCircle(dst, v, 2.5, color.NRGBA{255, 255, 255, 255})
	}
	if d.Status != "" {
		b := dst.Bounds()
		drawLabel(dst, r2.Vec{X: float64(b.Dx()) / 2, Y: float64(b.Dy()) - 14}, d.Status)
	}
}

func drawLabel(dst *image.RGBA, center r2.Vec, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: face}
	tw := float64(d.MeasureString(text).Ceil())
	bw, bh := tw+16, 20.0

	x0, y0 := center.X-bw/2, center.Y-bh/2
	box := []r2.Vec{{X: x0, Y: y0}, {X: x0 + bw, Y: y0}, {X: x0 + bw, Y: y0 + bh}, {X: x0, Y: y0 + bh}}
	fillPolygon(dst, box, color.NRGBA{255, 255, 255, 204})
	strokePolyline(dst, box, true, 1, nil, color.NRGBA{0xe5, 0xe7, 0xeb, 255})

	d.Dot = fixed.P(int(math.Round(center.X-tw/2)), int(math.Round(center.Y))+face.Ascent/2)
	d.DrawString(text)
}

// parseColor resolves a CSS colour. Unknown values and currentColor fall
// back to fg.
func parseColor(s string, fg color.NRGBA) color.NRGBA {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", strings.ToLower(CurrentColor):
		return fg
	case "none", "transparent":
		return color.NRGBA{}
	}
	if named, ok := namedColors[strings.ToLower(s)]; ok {
		s = named
	}
	if len(s) == 4 && s[0] == '#' {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return fg
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{r, g, b, 255}
}

var namedColors = map[string]string{
	"black":  "#000000",
	"white":  "#ffffff",
	"red":    "#ff0000",
	"green":  "#008000",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"orange": "#ffa500",
	"purple": "#800080",
	"gray":   "#808080",
	"grey":   "#808080",
}

// parseDash reads an SVG dash array such as "2,3" or "4 2".
func parseDash(s string) []float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	var out []float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 {
			return nil
		}
		out = append(out, v)
	}
	if len(out)%2 == 1 {
		out = append(out, out...)
	}
	for _, v := range out {
		if v > 0 {
			return out
		}
	}
	return nil
}

func addPolygon(r *vector.Rasterizer, pts []r2.Vec) {
	if len(pts) < 3 {
		return
	}
	r.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, v := range pts[1:] {
		r.LineTo(float32(v.X), float32(v.Y))
	}
	r.ClosePath()
}

func fillPolygon(dst draw.Image, pts []r2.Vec, c color.NRGBA) {
	if c.A == 0 || len(pts) < 3 {
		return
	}
	b := dst.Bounds()
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	addPolygon(ras, pts)
	ras.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func fillCircle(dst draw.Image, center r2.Vec, radius float64, c color.NRGBA) {
	b := dst.Bounds()
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	addDisc(ras, center, radius)
	ras.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// addDisc appends a circle approximation wound the same way as the stroke
// quads from addQuad, so overlapping pieces accumulate instead of cancel.
func addDisc(r *vector.Rasterizer, center r2.Vec, radius float64) {
	const n = 24
	r.MoveTo(float32(center.X+radius), float32(center.Y))
	for i := 1; i < n; i++ {
		t := -2 * math.Pi * float64(i) / n
		r.LineTo(float32(center.X+radius*math.Cos(t)), float32(center.Y+radius*math.Sin(t)))
	}
	r.ClosePath()
}

func addQuad(r *vector.Rasterizer, a, b r2.Vec, halfWidth float64) {
	d := r2.Sub(b, a)
	length := r2.Norm(d)
	if length == 0 {
		return
	}
	n := r2.Scale(halfWidth/length, r2.Vec{X: -d.Y, Y: d.X})
	addPolygon(r, []r2.Vec{r2.Add(a, n), r2.Add(b, n), r2.Sub(b, n), r2.Sub(a, n)})
}

// strokePolyline strokes pts with round joins and caps. dash may be nil.
func strokePolyline(dst draw.Image, pts []r2.Vec, closed bool, width float64, dash []float64, c color.NRGBA) {
	if c.A == 0 || len(pts) < 2 || width <= 0 {
		return
	}
	if closed {
		pts = append(append([]r2.Vec(nil), pts...), pts[0])
	}
	runs := [][]r2.Vec{pts}
	if len(dash) > 0 {
		runs = dashRuns(pts, dash)
	}

	b := dst.Bounds()
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	hw := width / 2
	for _, run := range runs {
		for i := 0; i+1 < len(run); i++ {
			addQuad(ras, run[i], run[i+1], hw)
		}
		if hw >= 1 {
			for _, v := range run {
				addDisc(ras, v, hw)
			}
		}
	}
	ras.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// dashRuns splits a polyline into the visible runs of a dash pattern.
func dashRuns(pts []r2.Vec, dash []float64) [][]r2.Vec {
	var runs [][]r2.Vec
	idx, remaining, on := 0, dash[0], true
	current := []r2.Vec{pts[0]}

	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		seg := r2.Norm(r2.Sub(b, a))
		pos := 0.0
		for seg-pos > remaining {
			pos += remaining
			at := r2.Add(a, r2.Scale(pos/seg, r2.Sub(b, a)))
			if on {
				runs = append(runs, append(current, at))
			}
			current = []r2.Vec{at}
			on = !on
			idx = (idx + 1) % len(dash)
			remaining = dash[idx]
		}
		remaining -= seg - pos
		current = append(current, b)
	}
	if on && len(current) > 1 {
		runs = append(runs, current)
	}
	return runs
}
