package types

import (
	"os"
	"path"
	"testing"
)

func TestVisitGraphUpdate(t *testing.T) {
	g := NewVisitGraph()
	if !g.Update(Observation{0, 0}, JointAction{1, 2}, Observation{1, 2}) {
		t.Error("first visit of (0, 0) should be new")
	}
	if g.Update(Observation{0, 0}, JointAction{1, 2}, Observation{1, 2}) {
		t.Error("second visit of (0, 0) should not be new")
	}
	g.Update(Observation{1, 2}, JointAction{0, 0}, Observation{0, 0})

	visits := g.Visits()
	if visits["(0, 0)"] != 2 || visits["(1, 2)"] != 1 {
		t.Errorf("unexpected visits %v", visits)
	}
	if g.Edges() != 2 {
		t.Errorf("expected 2 distinct edges, got %d", g.Edges())
	}
	if c := g.Nodes["(0, 0)"].Next["(1, 2)"]["(1, 2)"]; c != 2 {
		t.Errorf("expected edge count 2, got %d", c)
	}
}

func TestVisitGraphAnalyzerAndRecorder(t *testing.T) {
	trace := NewTrace()
	trace.Append(0, Observation{0, 0}, JointAction{1, 1}, []float64{0, 0}, Observation{1, 1})
	trace.Append(1, Observation{1, 1}, JointAction{1, 1}, []float64{0, 0}, Observation{1, 1})

	a := NewVisitGraphAnalyzer()
	a.Analyze(0, 0, "exp", trace)
	graph, ok := a.DataSet().(*VisitGraph)
	if !ok {
		t.Fatalf("unexpected dataset %T", a.DataSet())
	}
	if len(graph.Nodes) != 2 || graph.Nodes["(1, 1)"].Visits != 1 {
		t.Errorf("unexpected graph %+v", graph.Nodes)
	}

	dir := t.TempDir()
	if err := VisitGraphRecorder(dir)(0, 1, []string{"exp"}, []DataSet{graph}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path.Join(dir, "0_exp_graph.json")); err != nil {
		t.Errorf("graph not written: %s", err)
	}

	a.Reset()
	if len(a.DataSet().(*VisitGraph).Nodes) != 0 {
		t.Error("reset should clear the graph")
	}
}
