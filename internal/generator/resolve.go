package generator

import "sort"

// moduleOrder is the canonical category order used for tie-breaking
// and as the fallback when dependencies cannot be linearized.
var moduleOrder = []string{"network", "compute", "database", "storage"}

func moduleRank(name string) int {
	for i, m := range moduleOrder {
		if m == name {
			return i
		}
	}
	return len(moduleOrder)
}

// resolveModuleOrder topologically sorts modules so dependencies come
// first, breaking ties in canonical category order. deps maps a module
// to the set of modules it depends on. If the dependency graph has a
// cycle the canonical order is returned and the second result is
// false; attribute references still imply ordering for the IaC tool,
// so emitting without explicit dependency wiring stays valid.
func resolveModuleOrder(modules []string, deps map[string]map[string]bool) ([]string, bool) {
	inDegree := make(map[string]int, len(modules))
	present := make(map[string]bool, len(modules))
	for _, m := range modules {
		present[m] = true
		inDegree[m] = 0
	}
	for m, ds := range deps {
		if !present[m] {
			continue
		}
		for d := range ds {
			if present[d] && d != m {
				inDegree[m]++
			}
		}
	}

	queue := make([]string, 0, len(modules))
	for _, m := range modules {
		if inDegree[m] == 0 {
			queue = append(queue, m)
		}
	}
	sortCanonical(queue)

	ordered := make([]string, 0, len(modules))
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		ordered = append(ordered, m)

		var freed []string
		for other, ds := range deps {
			if !present[other] || !ds[m] {
				continue
			}
			inDegree[other]--
			if inDegree[other] == 0 {
				freed = append(freed, other)
			}
		}
		sortCanonical(freed)
		queue = append(queue, freed...)
	}

	if len(ordered) != len(modules) {
		fallback := append([]string(nil), modules...)
		sortCanonical(fallback)
		return fallback, false
	}
	return ordered, true
}

func sortCanonical(ms []string) {
	sort.Slice(ms, func(i, j int) bool {
		ri, rj := moduleRank(ms[i]), moduleRank(ms[j])
		if ri != rj {
			return ri < rj
		}
		return ms[i] < ms[j]
	})
}
