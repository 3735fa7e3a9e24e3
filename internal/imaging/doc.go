// Package imaging loads diagram backgrounds and provides the authoring aids
// that work on them: colour sampling and a coordinate grid overlay.
//
// # Coordinate System
//
// Backgrounds are used fitted to the diagram's logical size (see
// ImageCache.LoadFitted), so that one pixel is one logical unit. (0,0) is
// the top-left corner, X increases rightward and Y increases downward. A
// logical point (x, y) falls in pixel (floor(x), floor(y)).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Color Representation
//
// Colors are returned in multiple formats:
//   - Hex: lower-case "#rrggbb" (alpha excluded)
//   - RGBA: 8-bit components with alpha (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// # Performance Considerations
//
// Fitted variants are cached per logical size in addition to the decoded
// source. Use Evict() or Clear() to manage memory in long-running processes.
package imaging
