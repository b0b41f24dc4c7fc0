package config

// MergeArgs layers patches over a base argument list. Appends from
// every patch are added in order, then removes from every patch are
// dropped. A remove matches every occurrence of the exact argument.
func MergeArgs(base []string, patches ...*ArgsPatch) []string {
	out := make([]string, 0, len(base))
	out = append(out, base...)
	for _, p := range patches {
		if p == nil {
			continue
		}
		out = append(out, p.Append...)
	}
	removed := make(map[string]bool)
	for _, p := range patches {
		if p == nil {
			continue
		}
		for _, r := range p.Remove {
			removed[r] = true
		}
	}
	if len(removed) == 0 {
		return out
	}
	kept := out[:0]
	for _, a := range out {
		if !removed[a] {
			kept = append(kept, a)
		}
	}
	return kept
}
