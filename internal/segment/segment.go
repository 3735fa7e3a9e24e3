// Package segment proposes region outlines from a single click on the
// diagram. It backs the editor's magic-wand tool.
//
// Placeholder returns a fixed regular polygon around the click and needs no
// image. Flood grows a region of similar luminance from the click over the
// background image. Shapes picks the smallest drawn box around the click.
// Unavailable always fails, for deployments that disable the tool. Chain
// tries several in turn.
//
// Segmenters may be slow; callers run them off the event loop and pass a
// context so pending requests can be abandoned.
package segment

import (
	"context"
	"errors"
	"image"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// Sentinel errors reported by segmenters.
var (
	// ErrUnavailable means no segmentation backend can serve the request.
	ErrUnavailable = errors.New("segmentation unavailable")

	// ErrNoRegion means the backend ran but found nothing usable at the
	// requested point.
	ErrNoRegion = errors.New("no region found")
)

// Proposal defaults.
const (
	DefaultLabel = "Auto Region"
	DefaultColor = "#3b82f6"
)

// Request describes one click to segment. Point, Width and Height are in
// logical units. Image is the diagram background and may be nil.
type Request struct {
	Point  r2.Vec
	Width  float64
	Height float64
	Image  image.Image
}

// Proposal is a candidate region outline in logical coordinates.
type Proposal struct {
	Points []annotation.Point
	Label  string
	Color  string
}

// Segmenter turns a click into a region proposal.
type Segmenter interface {
	Segment(ctx context.Context, req Request) (*Proposal, error)
}

// Placeholder proposes a regular polygon centred on the click.
type Placeholder struct {
	Radius float64 // default 50
	Sides  int     // default 8
}

// Segment implements Segmenter.
func (p Placeholder) Segment(ctx context.Context, req Request) (*Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	radius := p.Radius
	if radius <= 0 {
		radius = 50
	}
	sides := p.Sides
	if sides < 3 {
		sides = 8
	}
	return &Proposal{
		Points: geometry.Points(geometry.RegularPolygon(req.Point, radius, sides)),
		Label:  DefaultLabel,
		Color:  DefaultColor,
	}, nil
}

// Unavailable rejects every request with ErrUnavailable.
type Unavailable struct{}

// Segment implements Segmenter.
func (Unavailable) Segment(context.Context, Request) (*Proposal, error) {
	return nil, ErrUnavailable
}

// Chain tries each segmenter in order and returns the first proposal. When
// all fail the joined errors are returned. Context cancellation stops the
// chain immediately.
type Chain []Segmenter

// Segment implements Segmenter.
func (c Chain) Segment(ctx context.Context, req Request) (*Proposal, error) {
	if len(c) == 0 {
		return nil, ErrUnavailable
	}
	var errs []error
	for _, s := range c {
		p, err := s.Segment(ctx, req)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// New returns the segmenter for a configuration name: "auto" (flood fill,
// then box detection, then the placeholder; also the default), "flood",
// "shapes", "placeholder", or "none".
func New(name string) (Segmenter, error) {
	switch name {
	case "", "auto":
		return Chain{&Flood{}, &Shapes{}, Placeholder{}}, nil
	case "flood":
		return &Flood{}, nil
	case "shapes":
		return &Shapes{}, nil
	case "placeholder":
		return Placeholder{}, nil
	case "none":
		return Unavailable{}, nil
	}
	return nil, errors.New("unknown segmenter " + name)
}
