package editor

import "github.com/ironsheep/annotated-diagram-mcp/internal/annotation"

// Patch is a partial property edit. Nil fields are left unchanged. Fields
// that do not exist on an annotation's kind are ignored for it.
type Patch struct {
	Label       *string `json:"label,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`

	// Curve applies to paths and paths with points.
	Curve *bool `json:"curve,omitempty"`

	// The remaining fields apply to paths with points only.
	PathLabel  *string `json:"pathLabel,omitempty"`
	StartLabel *string `json:"startLabel,omitempty"`
	EndLabel   *string `json:"endLabel,omitempty"`
	Markers    *bool   `json:"markers,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Label == nil && p.Description == nil && p.Color == nil &&
		p.Curve == nil && p.PathLabel == nil && p.StartLabel == nil &&
		p.EndLabel == nil && p.Markers == nil
}

// Apply returns a copy of a with the patch applied. a is not modified.
func (p Patch) Apply(a annotation.Annotation) annotation.Annotation {
	b := a.Common()
	if p.Label != nil {
		b.Label = *p.Label
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Color != nil {
		b.Color = *p.Color
	}
	out := annotation.WithBase(a, b)

	switch v := out.(type) {
	case *annotation.PathAnnotation:
		if p.Curve != nil {
			v.Curve = *p.Curve
		}
	case *annotation.PathWithPointsAnnotation:
		if p.Curve != nil {
			v.Curve = *p.Curve
		}
		if p.PathLabel != nil {
			v.PathLabel = *p.PathLabel
		}
		if p.StartLabel != nil {
			v.StartLabel = *p.StartLabel
		}
		if p.EndLabel != nil {
			v.EndLabel = *p.EndLabel
		}
		if p.Markers != nil {
			v.Markers = *p.Markers
		}
	}
	return out
}
