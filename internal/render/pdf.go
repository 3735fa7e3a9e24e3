package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// WritePDF writes scene as a one-page PDF whose page is the logical image
// size in points. bg is drawn underneath when non-nil.
func WritePDF(w io.Writer, bg image.Image, scene Scene, title string) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: scene.Width, Ht: scene.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.AddPage()
	pdf.SetLineJoinStyle("round")
	pdf.SetLineCapStyle("round")

	if bg != nil {
		if err := pdfBackground(pdf, bg, scene); err != nil {
			return err
		}
	}

	fg := color.NRGBA{0, 0, 0, 255}
	for _, l := range scene.Layers {
		if l.Live() {
			pdfLayer(pdf, l, fg)
		}
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range scene.Layers {
		if !l.Live() {
			continue
		}
		for _, c := range l.Captions {
			pdfCaption(pdf, c, tr(c.Text))
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func pdfBackground(pdf *gofpdf.Fpdf, bg image.Image, scene Scene) error {
	w := int(math.Max(1, math.Round(scene.Width)))
	h := int(math.Max(1, math.Round(scene.Height)))
	fitted := imaging.Fill(bg, w, h, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode background: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("background", opts, &buf)
	pdf.ImageOptions("background", 0, 0, scene.Width, scene.Height, false, opts, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to place background: %w", err)
	}
	return nil
}

func pdfLayer(pdf *gofpdf.Fpdf, l Layer, fg color.NRGBA) {
	if !l.Outline.Empty() {
		if l.Closed {
			fill := parseColor(l.Style.Fill, fg)
			pdf.SetAlpha(l.Style.FillOpacity, "Normal")
			pdf.SetFillColor(int(fill.R), int(fill.G), int(fill.B))
			pdfOutline(pdf, l)
			pdf.DrawPath("F")
			pdf.SetAlpha(1, "Normal")
		}

		stroke := parseColor(l.Style.Stroke, fg)
		pdf.SetDrawColor(int(stroke.R), int(stroke.G), int(stroke.B))
		pdf.SetLineWidth(l.Style.StrokeWidth)
		if dash := parseDash(l.Style.StrokeDash); len(dash) > 0 {
			pdf.SetDashPattern(dash, 0)
		}
		pdfOutline(pdf, l)
		pdf.DrawPath("D")
		pdf.SetDashPattern([]float64{}, 0)
	}

	mc := parseColor(l.Color, fg)
	for _, m := range l.Markers {
		pdf.SetFillColor(int(mc.R), int(mc.G), int(mc.B))
		pdf.SetDrawColor(255, 255, 255)
		pdf.SetLineWidth(MarkerRingWidth)
		pdf.Circle(m.Center.X, m.Center.Y, m.Radius, "FD")
	}
}

func pdfOutline(pdf *gofpdf.Fpdf, l Layer) {
	pdf.MoveTo(l.Outline.Start.X, l.Outline.Start.Y)
	for _, s := range l.Outline.Segments {
		if s.Kind == geometry.SegmentLine {
			pdf.LineTo(s.To.X, s.To.Y)
			continue
		}
		pdf.CurveBezierCubicTo(s.C1.X, s.C1.Y, s.C2.X, s.C2.Y, s.To.X, s.To.Y)
	}
	if l.Closed {
		pdf.ClosePath()
	}
}

func pdfCaption(pdf *gofpdf.Fpdf, c Caption, text string) {
	box := c.Box()
	center := r2.Scale(0.5, r2.Add(box.Min, box.Max))
	tw := pdf.GetStringWidth(text)
	bw, bh := tw+12, 16.0

	pdf.SetAlpha(0.8, "Normal")
	pdf.SetFillColor(255, 255, 255)
	pdf.SetDrawColor(0xe5, 0xe7, 0xeb)
	pdf.SetLineWidth(0.5)
	pdf.Rect(center.X-bw/2, center.Y-bh/2, bw, bh, "FD")
	pdf.SetAlpha(1, "Normal")

	pdf.SetTextColor(0, 0, 0)
	pdf.Text(center.X-tw/2, center.Y+3, text)
}
