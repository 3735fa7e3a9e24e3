// Package editor implements the annotation authoring session: a tool mode,
// a draft buffer of clicked vertices, the committed annotation list, the
// selected annotation and its property edits.
//
// # State Machine
//
// The editor starts in the select tool. Choosing region, path or
// path-with-points enters drawing mode, where every click appends a vertex
// to the draft. Finish (or the Enter key) commits the draft when it holds at
// least two points, selects the new annotation and returns to the select
// tool; a shorter draft is discarded without comment. Cancel clears the
// draft and keeps the tool; the Escape key clears the draft and returns to
// the select tool. Switching tools discards the draft.
//
// The point tool commits a point annotation on the first click. The
// magic-wand tool hands the click to a segment.Segmenter on a background
// goroutine; the result is applied on the next editor call (or by Poll or
// Wait), committing a region and returning to the select tool. Failures are
// reported as Notices and leave the magic wand active.
//
// # Ownership
//
// The editor owns its annotation list. Annotations returns copies, and every
// change replaces list entries rather than mutating them, so earlier
// snapshots stay valid. An Editor is not safe for concurrent use.
package editor
