package annotation

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LegacyPoint is the {x, y} vertex form used by older diagram exports.
type LegacyPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LegacyRegion is one entry of a legacy regions file, keyed by region name.
type LegacyRegion struct {
	Name        string        `json:"name"`
	FillColor   string        `json:"fillColor"`
	Description string        `json:"description,omitempty"`
	Points      []LegacyPoint `json:"points"`
}

// LegacyLabel is a positioned caption on a legacy pathway.
type LegacyLabel struct {
	Position LegacyPoint `json:"position"`
	Text     string      `json:"text,omitempty"`
}

// LegacyPathway is one entry of a legacy pathways file.
type LegacyPathway struct {
	Color  string        `json:"color"`
	Width  float64       `json:"width"`
	Labels []LegacyLabel `json:"labels"`
	Points []LegacyPoint `json:"points"`
}

// ImportLegacy converts legacy region and pathway maps into annotations.
//
// Regions become region annotations with ID "region-<key>". Pathways with at
// least two points become path-with-points annotations with ID "path-<key>",
// markers and curve enabled; the first three label texts fill the path,
// start and end captions. Keys are visited in sorted order so the output is
// stable. Regions with no points and pathways with fewer than two points are
// skipped.
func ImportLegacy(regions map[string]LegacyRegion, pathways map[string]LegacyPathway) []Annotation {
	out := make([]Annotation, 0, len(regions)+len(pathways))

	for _, key := range sortedKeys(regions) {
		r := regions[key]
		if len(r.Points) == 0 {
			continue
		}
		out = append(out, &RegionAnnotation{
			Base: Base{
				ID:          "region-" + key,
				Label:       r.Name,
				Description: r.Description,
				Color:       r.FillColor,
			},
			Points: convertLegacyPoints(r.Points),
		})
	}

	for _, key := range sortedKeys(pathways) {
		p := pathways[key]
		if len(p.Points) < 2 {
			continue
		}
		a := &PathWithPointsAnnotation{
			Base:    Base{ID: "path-" + key, Color: p.Color},
			Points:  convertLegacyPoints(p.Points),
			Markers: true,
			Curve:   true,
		}
		if len(p.Labels) > 0 {
			a.PathLabel = p.Labels[0].Text
		}
		if len(p.Labels) > 1 {
			a.StartLabel = p.Labels[1].Text
		}
		if len(p.Labels) > 2 {
			a.EndLabel = p.Labels[2].Text
		}
		out = append(out, a)
	}

	return out
}

// ImportLegacyJSON decodes legacy regions and pathways documents and converts
// them with ImportLegacy. Either document may be empty.
func ImportLegacyJSON(regionsJSON, pathwaysJSON []byte) ([]Annotation, error) {
	regions := map[string]LegacyRegion{}
	pathways := map[string]LegacyPathway{}
	if len(regionsJSON) > 0 {
		if err := json.Unmarshal(regionsJSON, &regions); err != nil {
			return nil, fmt.Errorf("failed to decode legacy regions: %w", err)
		}
	}
	if len(pathwaysJSON) > 0 {
		if err := json.Unmarshal(pathwaysJSON, &pathways); err != nil {
			return nil, fmt.Errorf("failed to decode legacy pathways: %w", err)
		}
	}
	return ImportLegacy(regions, pathways), nil
}

func convertLegacyPoints(src []LegacyPoint) []Point {
	out := make([]Point, len(src))
	for i, p := range src {
		out[i] = Point{p.X, p.Y}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
