// Package graph declares the static dependency graph among the four
// analysis stages. The graph is built once per request shape and never
// mutates at runtime.
package graph

import (
	"errors"
	"fmt"

	"github.com/wattsonlabs/wattson/pkg/models"
)

// ErrCycleDetected indicates a circular dependency among stages.
var ErrCycleDetected = errors.New("circular dependency detected")

// Node is one static graph element: a stage and the stages whose
// successful output it requires.
type Node struct {
	// Stage identifies the node.
	Stage models.Stage
	// DependsOn lists the upstream stages that must terminate before
	// this stage may be invoked.
	DependsOn []models.Stage
}

// TaskGraph is a directed acyclic graph of stage dependencies.
// Nodes keep their declaration order so topological ordering is
// deterministic.
type TaskGraph struct {
	// order preserves node declaration order.
	order []models.Stage
	// edges maps a stage to the stages it depends on.
	edges map[models.Stage][]models.Stage
}

// New builds a TaskGraph from node declarations. Returns an error if a
// dependency references an undeclared stage or the graph has a cycle.
func New(nodes []Node) (*TaskGraph, error) {
	g := &TaskGraph{
		edges: make(map[models.Stage][]models.Stage, len(nodes)),
	}

	for _, n := range nodes {
		if _, dup := g.edges[n.Stage]; dup {
			return nil, fmt.Errorf("stage %s declared twice", n.Stage)
		}
		g.order = append(g.order, n.Stage)
		g.edges[n.Stage] = append([]models.Stage(nil), n.DependsOn...)
	}

	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.edges[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on undeclared stage %s", n.Stage, dep)
			}
		}
	}

	if g.hasCycle() {
		return nil, ErrCycleDetected
	}

	return g, nil
}

// NewAnalysisGraph builds the fixed pipeline graph: Parser feeds both
// MeterAnalyzer and AnomalyDetector, and Recommendation waits on all three.
// When a historical meter series is present, AnomalyDetector additionally
// depends on MeterAnalyzer's baseline output, which collapses the fan-out
// to a chain.
func NewAnalysisGraph(withHistory bool) *TaskGraph {
	anomalyDeps := []models.Stage{models.StageParser}
	if withHistory {
		anomalyDeps = append(anomalyDeps, models.StageMeterAnalyzer)
	}

	g, err := New([]Node{
		{Stage: models.StageParser},
		{Stage: models.StageMeterAnalyzer, DependsOn: []models.Stage{models.StageParser}},
		{Stage: models.StageAnomalyDetector, DependsOn: anomalyDeps},
		{Stage: models.StageRecommendation, DependsOn: []models.Stage{
			models.StageParser, models.StageMeterAnalyzer, models.StageAnomalyDetector,
		}},
	})
	if err != nil {
		// The fixed graph is acyclic by construction.
		panic(fmt.Sprintf("graph: invalid analysis graph: %v", err))
	}
	return g
}

// Stages returns all stages in declaration order.
func (g *TaskGraph) Stages() []models.Stage {
	return append([]models.Stage(nil), g.order...)
}

// Size returns the number of stages in the graph.
func (g *TaskGraph) Size() int {
	return len(g.order)
}

// DependenciesOf returns the stages the given stage depends on.
func (g *TaskGraph) DependenciesOf(stage models.Stage) []models.Stage {
	return append([]models.Stage(nil), g.edges[stage]...)
}

// DependentsOf returns the stages that depend on the given stage.
func (g *TaskGraph) DependentsOf(stage models.Stage) []models.Stage {
	var dependents []models.Stage
	for _, s := range g.order {
		for _, dep := range g.edges[s] {
			if dep == stage {
				dependents = append(dependents, s)
				break
			}
		}
	}
	return dependents
}

// IsParallelGroup returns true if none of the given stages depends on
// another, directly or transitively, so they may run concurrently.
func (g *TaskGraph) IsParallelGroup(stages []models.Stage) bool {
	for _, a := range stages {
		for _, b := range stages {
			if a != b && g.dependsOn(a, b) {
				return false
			}
		}
	}
	return true
}

// dependsOn reports whether stage a transitively depends on stage b.
func (g *TaskGraph) dependsOn(a, b models.Stage) bool {
	for _, dep := range g.edges[a] {
		if dep == b || g.dependsOn(dep, b) {
			return true
		}
	}
	return false
}

// TopologicalOrder returns the stages in an order where every dependency
// comes before its dependents. The order is deterministic: ties are broken
// by declaration order.
func (g *TaskGraph) TopologicalOrder() []models.Stage {
	visited := make(map[models.Stage]bool, len(g.order))
	var result []models.Stage

	var visit func(s models.Stage)
	visit = func(s models.Stage) {
		if visited[s] {
			return
		}
		visited[s] = true
		for _, dep := range g.edges[s] {
			visit(dep)
		}
		result = append(result, s)
	}

	for _, s := range g.order {
		visit(s)
	}

	return result
}

// Ready returns the stages whose dependencies are all in the done set and
// which are not themselves done, in declaration order.
func (g *TaskGraph) Ready(done map[models.Stage]bool) []models.Stage {
	var ready []models.Stage
	for _, s := range g.order {
		if done[s] {
			continue
		}
		satisfied := true
		for _, dep := range g.edges[s] {
			if !done[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, s)
		}
	}
	return ready
}

// hasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *TaskGraph) hasCycle() bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[models.Stage]int, len(g.order))

	var visit func(s models.Stage) bool
	visit = func(s models.Stage) bool {
		colors[s] = 1
		for _, dep := range g.edges[s] {
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}
		colors[s] = 2
		return false
	}

	for _, s := range g.order {
		if colors[s] == 0 && visit(s) {
			return true
		}
	}
	return false
}
