package graph

import (
	"errors"
	"testing"

	"github.com/wattsonlabs/wattson/pkg/models"
)

func TestNewRejectsUnknownDependency(t *testing.T) {
	_, err := New([]Node{
		{Stage: models.StageParser, DependsOn: []models.Stage{models.StageRecommendation}},
	})
	if err == nil {
		t.Fatal("expected error for undeclared dependency")
	}
}

func TestNewRejectsDuplicateStage(t *testing.T) {
	_, err := New([]Node{
		{Stage: models.StageParser},
		{Stage: models.StageParser},
	})
	if err == nil {
		t.Fatal("expected error for duplicate stage")
	}
}

func TestNewRejectsCycle(t *testing.T) {
	_, err := New([]Node{
		{Stage: models.StageParser, DependsOn: []models.Stage{models.StageRecommendation}},
		{Stage: models.StageRecommendation, DependsOn: []models.Stage{models.StageParser}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestAnalysisGraphShape(t *testing.T) {
	g := NewAnalysisGraph(false)

	if g.Size() != 4 {
		t.Fatalf("expected 4 nodes, got %d", g.Size())
	}

	if deps := g.DependenciesOf(models.StageParser); len(deps) != 0 {
		t.Errorf("parser should have no dependencies, got %v", deps)
	}

	for _, s := range []models.Stage{models.StageMeterAnalyzer, models.StageAnomalyDetector} {
		deps := g.DependenciesOf(s)
		if len(deps) != 1 || deps[0] != models.StageParser {
			t.Errorf("%s should depend only on parser, got %v", s, deps)
		}
	}

	recDeps := g.DependenciesOf(models.StageRecommendation)
	if len(recDeps) != 3 {
		t.Errorf("recommendation should depend on 3 stages, got %v", recDeps)
	}
}

func TestAnalysisGraphWithHistory(t *testing.T) {
	g := NewAnalysisGraph(true)

	deps := g.DependenciesOf(models.StageAnomalyDetector)
	if len(deps) != 2 {
		t.Fatalf("expected anomaly detector to gain the baseline dependency, got %v", deps)
	}

	// The fan-out collapses: the siblings are no longer a parallel group.
	group := []models.Stage{models.StageMeterAnalyzer, models.StageAnomalyDetector}
	if g.IsParallelGroup(group) {
		t.Error("expected fan-out group to be serialized when history is present")
	}
}

func TestIsParallelGroup(t *testing.T) {
	g := NewAnalysisGraph(false)

	if !g.IsParallelGroup([]models.Stage{models.StageMeterAnalyzer, models.StageAnomalyDetector}) {
		t.Error("meter analyzer and anomaly detector should form a parallel group")
	}
	if g.IsParallelGroup([]models.Stage{models.StageParser, models.StageMeterAnalyzer}) {
		t.Error("parser and meter analyzer should not form a parallel group")
	}
	if g.IsParallelGroup([]models.Stage{models.StageParser, models.StageRecommendation}) {
		t.Error("transitive dependencies should block a parallel group")
	}
}

func TestTopologicalOrder(t *testing.T) {
	g := NewAnalysisGraph(false)

	order := g.TopologicalOrder()
	if len(order) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(order))
	}

	positions := make(map[models.Stage]int, len(order))
	for i, s := range order {
		positions[s] = i
	}

	constraints := []struct {
		before, after models.Stage
	}{
		{models.StageParser, models.StageMeterAnalyzer},
		{models.StageParser, models.StageAnomalyDetector},
		{models.StageParser, models.StageRecommendation},
		{models.StageMeterAnalyzer, models.StageRecommendation},
		{models.StageAnomalyDetector, models.StageRecommendation},
	}
	for _, c := range constraints {
		if positions[c.before] >= positions[c.after] {
			t.Errorf("%s should come before %s, got order %v", c.before, c.after, order)
		}
	}
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	g := NewAnalysisGraph(false)

	first := g.TopologicalOrder()
	for i := 0; i < 20; i++ {
		again := g.TopologicalOrder()
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("order changed between calls: %v vs %v", first, again)
			}
		}
	}
}

func TestReady(t *testing.T) {
	g := NewAnalysisGraph(false)

	done := map[models.Stage]bool{}
	ready := g.Ready(done)
	if len(ready) != 1 || ready[0] != models.StageParser {
		t.Fatalf("expected only parser ready initially, got %v", ready)
	}

	done[models.StageParser] = true
	ready = g.Ready(done)
	if len(ready) != 2 {
		t.Fatalf("expected fan-out group ready after parser, got %v", ready)
	}

	done[models.StageMeterAnalyzer] = true
	done[models.StageAnomalyDetector] = true
	ready = g.Ready(done)
	if len(ready) != 1 || ready[0] != models.StageRecommendation {
		t.Fatalf("expected only recommendation ready, got %v", ready)
	}

	done[models.StageRecommendation] = true
	if ready = g.Ready(done); len(ready) != 0 {
		t.Fatalf("expected no ready stages when all done, got %v", ready)
	}
}

func TestDependentsOf(t *testing.T) {
	g := NewAnalysisGraph(false)

	dependents := g.DependentsOf(models.StageParser)
	if len(dependents) != 3 {
		t.Errorf("expected 3 dependents of parser, got %v", dependents)
	}

	dependents = g.DependentsOf(models.StageRecommendation)
	if len(dependents) != 0 {
		t.Errorf("expected no dependents of recommendation, got %v", dependents)
	}
}
