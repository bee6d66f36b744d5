// Package schedule drives hook chains across the depths of a route tree and
// folds their results into a single navigation outcome.
package schedule

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/routekit/internal/hooks"
	"github.com/felixgeelhaar/routekit/internal/ir"
)

// Direction is the order in which depths are processed
type Direction int

const (
	// RootFirst processes the shallowest depth first (load phases)
	RootFirst Direction = iota
	// LeafFirst processes the deepest depth first (unload phases)
	LeafFirst
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case RootFirst:
		return "root-first"
	case LeafFirst:
		return "leaf-first"
	default:
		return "unknown"
	}
}

// Task is one node's work for a phase
type Task struct {
	Node  ir.NodeID
	Depth int
	Run   func(ctx context.Context) hooks.Result
}

// Result is the settled result of one task
type Result struct {
	Node     ir.NodeID
	Depth    int
	Position int // start order within the phase, used for tie-breaks
	hooks.Result
}

// Scheduler runs tasks depth by depth
type Scheduler struct {
	// OnLevel, when set, is called before a depth is started
	OnLevel func(depth int, nodes []ir.NodeID)
}

// RunLevel starts every task without waiting for the previous one and
// returns once all have settled. Positions continue from start.
func (s *Scheduler) RunLevel(ctx context.Context, tasks []Task, start int) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	if s != nil && s.OnLevel != nil {
		nodes := make([]ir.NodeID, len(tasks))
		for i, t := range tasks {
			nodes[i] = t.Node
		}
		s.OnLevel(tasks[0].Depth, nodes)
	}

	var g errgroup.Group
	for i, task := range tasks {
		results[i] = Result{Node: task.Node, Depth: task.Depth, Position: start + i}
		g.Go(func() error {
			results[i].Result = task.Run(ctx)
			return nil
		})
	}
	// Sibling failures are reported through results, never through Wait
	_ = g.Wait()

	return results
}

// Run partitions tasks by depth and processes depths in the given direction,
// concurrently within a depth and sequentially across depths. When
// stopOnPreempt is set, no further depth is started once a depth produced a
// non-continue result.
func (s *Scheduler) Run(ctx context.Context, tasks []Task, dir Direction, stopOnPreempt bool) []Result {
	levels := Partition(tasks, dir)

	var all []Result
	for _, level := range levels {
		results := s.RunLevel(ctx, level, len(all))
		all = append(all, results...)
		if stopOnPreempt && AnyPreempted(results) {
			break
		}
	}
	return all
}

// Partition groups tasks by depth, ordered by direction. Within a depth the
// input order is kept.
func Partition(tasks []Task, dir Direction) [][]Task {
	byDepth := make(map[int][]Task)
	for _, t := range tasks {
		byDepth[t.Depth] = append(byDepth[t.Depth], t)
	}

	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	if dir == LeafFirst {
		sort.Sort(sort.Reverse(sort.IntSlice(depths)))
	}

	levels := make([][]Task, 0, len(depths))
	for _, d := range depths {
		levels = append(levels, byDepth[d])
	}
	return levels
}

// AnyPreempted reports whether any result refused, redirected or failed
func AnyPreempted(results []Result) bool {
	for _, r := range results {
		if r.Preempted() {
			return true
		}
	}
	return false
}
