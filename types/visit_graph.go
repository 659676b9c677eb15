package types

import (
	"path"
	"strconv"

	"github.com/zeu5/pricing-rl/util"
)

// VisitGraph is the transition graph between observations. Edges are keyed by
// the joint action that produced them and count how often they were taken.
type VisitGraph struct {
	Nodes map[string]*Node `json:"nodes"`
}

func NewVisitGraph() *VisitGraph {
	return &VisitGraph{
		Nodes: make(map[string]*Node),
	}
}

// Update records one transition, returns true when from was not visited before
func (v *VisitGraph) Update(from Observation, action JointAction, to Observation) bool {
	fromKey := from.Hash()
	toKey := to.Hash()
	isNew := false
	if _, ok := v.Nodes[fromKey]; !ok {
		v.Nodes[fromKey] = newNode(from)
		isNew = true
	}
	if _, ok := v.Nodes[toKey]; !ok {
		v.Nodes[toKey] = newNode(to)
	}
	v.Nodes[fromKey].Visits += 1
	v.Nodes[fromKey].addNext(Observation(action).Hash(), toKey)
	return isNew
}

// Visits returns the number of times each observation was left
func (v *VisitGraph) Visits() map[string]int {
	results := make(map[string]int, len(v.Nodes))
	for k, n := range v.Nodes {
		results[k] = n.Visits
	}
	return results
}

// Edges is the total number of distinct (observation, action, next) transitions
func (v *VisitGraph) Edges() int {
	total := 0
	for _, n := range v.Nodes {
		for _, next := range n.Next {
			total += len(next)
		}
	}
	return total
}

type Node struct {
	Observation Observation `json:"observation"`
	Visits      int         `json:"visits"`
	// action hash to next observation hash to count
	Next map[string]map[string]int `json:"next"`
}

func newNode(o Observation) *Node {
	return &Node{
		Observation: o.Copy(),
		Next:        make(map[string]map[string]int),
	}
}

func (n *Node) addNext(action, next string) {
	if _, ok := n.Next[action]; !ok {
		n.Next[action] = make(map[string]int)
	}
	n.Next[action][next] += 1
}

// VisitGraphAnalyzer accumulates the transitions of all episodes of a run
type VisitGraphAnalyzer struct {
	graph *VisitGraph
}

var _ Analyzer = &VisitGraphAnalyzer{}

func NewVisitGraphAnalyzer() Analyzer {
	return &VisitGraphAnalyzer{graph: NewVisitGraph()}
}

func (a *VisitGraphAnalyzer) Analyze(_, _ int, _ string, trace *Trace) {
	for _, s := range trace.Steps {
		a.graph.Update(s.Observation, s.Action, s.Next)
	}
}

// DataSet is the *VisitGraph of the run
func (a *VisitGraphAnalyzer) DataSet() DataSet {
	return a.graph
}

func (a *VisitGraphAnalyzer) Reset() {
	a.graph = NewVisitGraph()
}

// VisitGraphRecorder writes the graph of every experiment to
// <run>_<experiment>_graph.json
func VisitGraphRecorder(savePath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		for i, name := range names {
			graph, ok := ds[i].(*VisitGraph)
			if !ok {
				continue
			}
			file := path.Join(savePath, strconv.Itoa(run)+"_"+name+"_graph.json")
			if err := util.WriteJSON(file, graph); err != nil {
				return err
			}
		}
		return nil
	}
}
