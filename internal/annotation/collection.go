package annotation

// IndexOf returns the position of the first annotation with the given ID, or
// -1 when there is none.
func IndexOf(list []Annotation, id string) int {
	if id == "" {
		return -1
	}
	for i, a := range list {
		if a != nil && a.Common().ID == id {
			return i
		}
	}
	return -1
}

// Find returns the first annotation with the given ID.
func Find(list []Annotation, id string) (Annotation, bool) {
	i := IndexOf(list, id)
	if i < 0 {
		return nil, false
	}
	return list[i], true
}

// Remove returns a new slice without any annotation carrying id. The input
// slice is not modified.
func Remove(list []Annotation, id string) []Annotation {
	out := make([]Annotation, 0, len(list))
	for _, a := range list {
		if a != nil && a.Common().ID == id {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Replace returns a new slice in which the annotation with a's ID is swapped
// for a. When no annotation matches, the result equals the input.
func Replace(list []Annotation, a Annotation) []Annotation {
	out := make([]Annotation, len(list))
	copy(out, list)
	if i := IndexOf(out, a.Common().ID); i >= 0 {
		out[i] = a
	}
	return out
}

// Append returns a new slice with a added at the end (topmost).
func Append(list []Annotation, a Annotation) []Annotation {
	out := make([]Annotation, len(list), len(list)+1)
	copy(out, list)
	return append(out, a)
}

// CloneAll deep-copies every annotation in list.
func CloneAll(list []Annotation) []Annotation {
	out := make([]Annotation, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		out = append(out, Clone(a))
	}
	return out
}

// Duplicates returns the IDs that occur more than once, in order of their
// second occurrence.
func Duplicates(list []Annotation) []string {
	seen := make(map[string]int, len(list))
	var dups []string
	for _, a := range list {
		if a == nil {
			continue
		}
		id := a.Common().ID
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
