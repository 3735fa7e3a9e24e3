// Package annotation defines the data model for shapes overlaid on a diagram.
//
// An annotation is one of four variants, all expressed in the logical pixel
// space of the diagram's background image (a fixed W x H grid chosen when the
// annotation set is authored):
//
//   - RegionAnnotation: a closed polygon (implicitly closed, >= 3 points)
//   - PathAnnotation: an open polyline or Catmull-Rom curve (>= 2 points)
//   - PathWithPointsAnnotation: a path with per-vertex markers and captions
//   - PointAnnotation: a single landmark marker
//
// # Coordinate System
//
// Coordinates are pairs of finite float64 values. Origin (0,0) is the top-left
// corner of the logical image, X grows rightward and Y grows downward. The
// logical space does not change when a viewer scales the diagram on screen.
//
// # Immutability
//
// Values handed to the renderer are never modified. Editing code replaces a
// whole annotation (see Clone) and whole Points slices rather than splicing
// in place.
//
// # Wire Format
//
// A collection serialises to a JSON array of tagged records:
//
//	[
//	  {
//	    "id": "region-1",
//	    "type": "region",
//	    "points": [[10, 10], [50, 10], [50, 50]],
//	    "label": "Example",
//	    "color": "#3b82f6"
//	  }
//	]
//
// Marshal and Unmarshal implement this format.
package annotation
