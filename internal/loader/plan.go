package loader

import (
	"github.com/roach88/seedbed/internal/dataset"
	"github.com/roach88/seedbed/internal/queue"
)

// PlanEntry is one dataset in a load plan, with the level it would be
// recorded at after all promotions.
type PlanEntry struct {
	Dataset *dataset.Dataset
	Level   int
}

// LoadPlan is the dry-run outcome of a load: the order datasets would be
// persisted in and the order they would be cleared in. No backend is
// touched.
type LoadPlan struct {
	Load   []PlanEntry
	Unload []*dataset.Dataset
}

// Plan computes the persistence and unload order for the given top-level
// datasets without loading anything. The graph is validated first; cyclic
// definitions return a dataset.CycleError.
func Plan(datasets ...*dataset.Dataset) (*LoadPlan, error) {
	if err := dataset.ValidateGraph(datasets...); err != nil {
		return nil, err
	}

	q := queue.New()
	var order []*dataset.Dataset

	var visit func(ds *dataset.Dataset, level int)
	visit = func(ds *dataset.Dataset, level int) {
		for _, dep := range ds.Deps() {
			visit(dep, level+1)
		}
		if q.Contains(ds) {
			q.Referenced(ds, level)
			return
		}
		q.Register(ds, level)
		order = append(order, ds)
	}
	for _, ds := range datasets {
		visit(ds, 1)
	}

	plan := &LoadPlan{Load: make([]PlanEntry, 0, len(order))}
	for _, ds := range order {
		level, _ := q.Level(ds)
		plan.Load = append(plan.Load, PlanEntry{Dataset: ds, Level: level})
	}
	for ds := range q.ToUnload() {
		plan.Unload = append(plan.Unload, ds)
	}
	return plan, nil
}
