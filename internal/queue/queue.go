// Package queue tracks which datasets a load session has persisted and at
// what dependency depth, and produces the safe unload order.
//
// Levels grow downward into the dependency graph: a top-level dataset is
// registered at level 1, its dependencies at 2, and so on. Unloading drains
// levels in ascending order, so datasets that depend on others are always
// cleared before the datasets they point to. A dataset reachable through
// several paths is only acknowledged at its highest level, which guarantees
// every dependent is drained first.
package queue

import (
	"iter"
	"slices"

	"github.com/roach88/seedbed/internal/dataset"
)

// Queue is the dependency-level tracker for one load session.
//
// Bookkeeping uses an explicit arena: every dataset instance seen by the
// queue is assigned a monotonically increasing integer id. Identity is the
// instance, not the name - two instances with the same name are tracked
// separately.
//
// Not safe for concurrent use; a session owns its queue exclusively.
type Queue struct {
	ids     map[*dataset.Dataset]int
	arena   []*dataset.Dataset // arena[id] = instance
	level   map[int]int        // id -> highest level seen
	buckets map[int][]int      // level -> ids in arrival order
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		ids:     make(map[*dataset.Dataset]int),
		level:   make(map[int]int),
		buckets: make(map[int][]int),
	}
}

// Contains reports whether the dataset instance has been registered.
func (q *Queue) Contains(ds *dataset.Dataset) bool {
	_, ok := q.ids[ds]
	return ok
}

// Len returns the number of tracked dataset instances.
func (q *Queue) Len() int {
	return len(q.ids)
}

// Level returns the recorded level for a dataset instance.
func (q *Queue) Level(ds *dataset.Dataset) (int, bool) {
	id, ok := q.ids[ds]
	if !ok {
		return 0, false
	}
	return q.level[id], true
}

// Register records the dataset as loaded at level and returns its arena id.
// Registering an instance twice is a bug in the caller; the loader checks
// Contains first and routes repeats through Referenced.
func (q *Queue) Register(ds *dataset.Dataset, level int) int {
	id, ok := q.ids[ds]
	if !ok {
		id = len(q.arena)
		q.ids[ds] = id
		q.arena = append(q.arena, ds)
	}
	q.push(id, level)
	return id
}

// Referenced records that an already-registered dataset was reached again
// at level. If the new level is higher, the dataset moves into the new
// level's bucket; equal or lower levels are a no-op - the recorded level
// only ever increases.
func (q *Queue) Referenced(ds *dataset.Dataset, level int) {
	id, ok := q.ids[ds]
	if !ok {
		return
	}
	q.push(id, level)
}

// push places id into the bucket for level, honoring highest-level-wins.
func (q *Queue) push(id, level int) {
	if prev, seen := q.level[id]; seen {
		if level <= prev {
			return
		}
		q.buckets[prev] = remove(q.buckets[prev], id)
	}
	q.level[id] = level
	q.buckets[level] = append(q.buckets[level], id)
}

// ToUnload yields datasets in safe unload order: ascending level,
// first-registered-first within a level. The sequence is lazy and reflects
// queue state at iteration time; it is meant to be consumed once by an
// unload drain.
func (q *Queue) ToUnload() iter.Seq[*dataset.Dataset] {
	return func(yield func(*dataset.Dataset) bool) {
		for _, level := range q.levels() {
			for _, id := range q.buckets[level] {
				if !yield(q.arena[id]) {
					return
				}
			}
		}
	}
}

// Clear discards all tracked state. Called once after a completed unload.
func (q *Queue) Clear() {
	q.ids = make(map[*dataset.Dataset]int)
	q.arena = nil
	q.level = make(map[int]int)
	q.buckets = make(map[int][]int)
}

// levels returns the occupied level numbers in ascending order.
func (q *Queue) levels() []int {
	levels := make([]int, 0, len(q.buckets))
	for l, ids := range q.buckets {
		if len(ids) > 0 {
			levels = append(levels, l)
		}
	}
	slices.Sort(levels)
	return levels
}

func remove(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
