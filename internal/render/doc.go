// Package render turns an ordered list of annotations into a Scene and draws
// that scene as SVG, as a raster image composited over the diagram's
// background, or as a PDF page.
//
// # Scene Construction
//
// Build is a pure function of its Input: the annotation list, the logical
// size, the active and popover IDs, and optionally the list from the previous
// render pass (used to mark entering and exiting layers for transitions). It
// never modifies the annotations it receives. Annotations that cannot be
// drawn, such as a region with fewer than three points, are skipped rather
// than reported.
//
// Layers keep list order. Later layers are drawn on top and win hit tests
// where shapes overlap.
//
// # Interaction State
//
// State holds the single active annotation and the open detail popover for
// one viewer or editor. It is an explicit object owned by its host; there is
// no package-level state.
//
// # Backends
//
//   - WriteSVG: scalable markup with glow and cross-hatch definitions,
//     SMIL animations for enter/exit transitions and pulsing point markers
//   - Rasterize: a still frame drawn with golang.org/x/image/vector over the
//     background fitted to the logical size
//   - WritePDF: a single page sized to the logical image, via gofpdf
//
// Animations are cosmetic. The raster and PDF backends draw the resting
// state of every layer.
package render
