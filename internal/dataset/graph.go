package dataset

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle between dataset definitions.
//
// The original loader recursed blindly and a cyclic definition would never
// terminate; cycles are rejected at definition time instead. The Path holds
// the offending chain with the repeated dataset at both ends, e.g.
// ["A", "B", "A"].
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// ValidateGraph checks that the dependency graph reachable from the given
// datasets is a DAG. Diamonds (a dataset shared by several parents) are
// fine; cycles are not.
func ValidateGraph(datasets ...*Dataset) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Dataset]int)

	var visit func(d *Dataset, trail []string) error
	visit = func(d *Dataset, trail []string) error {
		switch state[d] {
		case done:
			return nil
		case visiting:
			// Trim the trail to the start of the cycle.
			start := 0
			for i, name := range trail {
				if name == d.name {
					start = i
					break
				}
			}
			path := append(append([]string{}, trail[start:]...), d.name)
			return &CycleError{Path: path}
		}

		state[d] = visiting
		trail = append(trail, d.name)
		for _, dep := range d.deps {
			if err := visit(dep, trail); err != nil {
				return err
			}
		}
		state[d] = done
		return nil
	}

	for _, d := range datasets {
		if err := visit(d, nil); err != nil {
			return err
		}
	}
	return nil
}
