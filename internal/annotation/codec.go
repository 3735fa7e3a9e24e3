package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// record is the flat wire form shared by all variants.
type record struct {
	ID          string  `json:"id"`
	Type        Kind    `json:"type"`
	Points      []Point `json:"points,omitempty"`
	Coordinates *Point  `json:"coordinates,omitempty"`
	Label       string  `json:"label,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	Curve       *bool   `json:"curve,omitempty"`
	PathLabel   string  `json:"pathLabel,omitempty"`
	StartLabel  string  `json:"startLabel,omitempty"`
	EndLabel    string  `json:"endLabel,omitempty"`
	Markers     bool    `json:"markers,omitempty"`
}

// ErrUnknownKind is returned when a record carries an unsupported type tag.
var ErrUnknownKind = errors.New("unknown annotation type")

func toRecord(a Annotation) record {
	b := a.Common()
	r := record{
		ID:          b.ID,
		Type:        a.Kind(),
		Label:       b.Label,
		Description: b.Description,
		Color:       b.Color,
	}
	switch v := a.(type) {
	case *RegionAnnotation:
		r.Points = v.Points
	case *PathAnnotation:
		r.Points = v.Points
		curve := v.Curve
		r.Curve = &curve
	case *PathWithPointsAnnotation:
		r.Points = v.Points
		curve := v.Curve
		r.Curve = &curve
		r.PathLabel = v.PathLabel
		r.StartLabel = v.StartLabel
		r.EndLabel = v.EndLabel
		r.Markers = v.Markers
	case *PointAnnotation:
		c := v.Coordinates
		r.Coordinates = &c
	}
	return r
}

func fromRecord(r record) (Annotation, error) {
	if r.ID == "" {
		return nil, errors.New("missing id")
	}
	base := Base{ID: r.ID, Label: r.Label, Description: r.Description, Color: r.Color}
	curve := r.Curve != nil && *r.Curve
	switch r.Type {
	case KindRegion:
		return &RegionAnnotation{Base: base, Points: r.Points}, nil
	case KindPath:
		return &PathAnnotation{Base: base, Points: r.Points, Curve: curve}, nil
	case KindPathWithPoints:
		return &PathWithPointsAnnotation{
			Base:       base,
			Points:     r.Points,
			Curve:      curve,
			PathLabel:  r.PathLabel,
			StartLabel: r.StartLabel,
			EndLabel:   r.EndLabel,
			Markers:    r.Markers,
		}, nil
	case KindPoint:
		if r.Coordinates == nil {
			return nil, errors.New("point annotation missing coordinates")
		}
		return &PointAnnotation{Base: base, Coordinates: *r.Coordinates}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Type)
}

// Marshal encodes a collection as an indented JSON array (two-space indent).
// Nil entries are dropped.
func Marshal(list []Annotation) ([]byte, error) {
	records := make([]record, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		records = append(records, toRecord(a))
	}
	return json.MarshalIndent(records, "", "  ")
}

// MarshalOne encodes a single annotation as a compact JSON object.
func MarshalOne(a Annotation) ([]byte, error) {
	if a == nil {
		return nil, errors.New("nil annotation")
	}
	return json.Marshal(toRecord(a))
}

// Unmarshal decodes a JSON array of annotation records. Structural problems
// (unknown type, missing id, malformed coordinates) are reported with the
// offending index. Geometric degeneracy, such as a region with two points,
// is not an error here; see Valid.
func Unmarshal(data []byte) ([]Annotation, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode annotation list: %w", err)
	}
	out := make([]Annotation, 0, len(raws))
	for i, raw := range raws {
		a, err := UnmarshalOne(raw)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// UnmarshalOne decodes a single annotation record.
func UnmarshalOne(data []byte) (Annotation, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return fromRecord(r)
}
