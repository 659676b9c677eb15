package types

import (
	"path"
	"strconv"

	"github.com/zeu5/pricing-rl/util"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// EpisodeSummary condenses a trace to per-firm averages
type EpisodeSummary struct {
	Run         int       `json:"run"`
	Episode     int       `json:"episode"`
	Experiment  string    `json:"experiment"`
	Steps       int       `json:"steps"`
	MeanRewards []float64 `json:"mean_rewards"`
	MeanActions []float64 `json:"mean_actions"`
}

func Summarize(run, episode int, experiment string, trace *Trace) EpisodeSummary {
	firms := 0
	if len(trace.Steps) > 0 {
		firms = len(trace.Steps[0].Action)
	}
	summary := EpisodeSummary{
		Run:         run,
		Episode:     episode,
		Experiment:  experiment,
		Steps:       trace.Len(),
		MeanRewards: make([]float64, firms),
		MeanActions: make([]float64, firms),
	}
	for f := 0; f < firms; f++ {
		rewards := make([]float64, trace.Len())
		actions := make([]float64, trace.Len())
		for i, s := range trace.Steps {
			rewards[i] = s.Rewards[f]
			actions[i] = float64(s.Action[f])
		}
		summary.MeanRewards[f] = stat.Mean(rewards, nil)
		summary.MeanActions[f] = stat.Mean(actions, nil)
	}
	return summary
}

// EpisodeSummaryAnalyzer keeps one summary per episode
type EpisodeSummaryAnalyzer struct {
	summaries []EpisodeSummary
}

var _ Analyzer = &EpisodeSummaryAnalyzer{}

func NewEpisodeSummaryAnalyzer() Analyzer {
	return &EpisodeSummaryAnalyzer{summaries: make([]EpisodeSummary, 0)}
}

func (e *EpisodeSummaryAnalyzer) Analyze(run, episode int, experiment string, trace *Trace) {
	if trace.Len() == 0 {
		return
	}
	e.summaries = append(e.summaries, Summarize(run, episode, experiment, trace))
}

func (e *EpisodeSummaryAnalyzer) DataSet() DataSet {
	out := make([]EpisodeSummary, len(e.summaries))
	copy(out, e.summaries)
	return out
}

func (e *EpisodeSummaryAnalyzer) Reset() {
	e.summaries = make([]EpisodeSummary, 0)
}

// ProfitAnalyzer records the mean reward of every firm in each episode
type ProfitAnalyzer struct {
	rewards [][]float64
}

var _ Analyzer = &ProfitAnalyzer{}

func NewProfitAnalyzer() Analyzer {
	return &ProfitAnalyzer{rewards: make([][]float64, 0)}
}

func (p *ProfitAnalyzer) Analyze(run, episode int, experiment string, trace *Trace) {
	if trace.Len() == 0 {
		return
	}
	p.rewards = append(p.rewards, Summarize(run, episode, experiment, trace).MeanRewards)
}

// DataSet is a [][]float64 indexed by episode then firm
func (p *ProfitAnalyzer) DataSet() DataSet {
	out := make([][]float64, len(p.rewards))
	copy(out, p.rewards)
	return out
}

func (p *ProfitAnalyzer) Reset() {
	p.rewards = make([][]float64, 0)
}

// CoverageAnalyzer counts the distinct observations visited so far after each episode
type CoverageAnalyzer struct {
	visited map[string]bool
	counts  []int
}

var _ Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer() Analyzer {
	return &CoverageAnalyzer{
		visited: make(map[string]bool),
		counts:  make([]int, 0),
	}
}

func (c *CoverageAnalyzer) Analyze(_, _ int, _ string, trace *Trace) {
	for _, s := range trace.Steps {
		c.visited[s.Next.Hash()] = true
	}
	c.counts = append(c.counts, len(c.visited))
}

// DataSet is a []int with the cumulative number of distinct observations
func (c *CoverageAnalyzer) DataSet() DataSet {
	out := make([]int, len(c.counts))
	copy(out, c.counts)
	return out
}

func (c *CoverageAnalyzer) Reset() {
	c.visited = make(map[string]bool)
	c.counts = make([]int, 0)
}

// ProfitPlotter draws the mean profit per episode, one line per experiment and firm
func ProfitPlotter(plotPath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		p := plot.New()
		p.Title.Text = "Mean profit"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Profit"
		color := 0
		for i := 0; i < len(names); i++ {
			rewards, ok := ds[i].([][]float64)
			if !ok || len(rewards) == 0 {
				continue
			}
			for f := 0; f < len(rewards[0]); f++ {
				points := make(plotter.XYs, len(rewards))
				for e, r := range rewards {
					points[e] = plotter.XY{X: float64(e), Y: r[f]}
				}
				line, err := plotter.NewLine(points)
				if err != nil {
					continue
				}
				line.Color = plotutil.Color(color)
				color++
				p.Add(line)
				p.Legend.Add(names[i]+" firm "+strconv.Itoa(f), line)
			}
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_profit.png"))
	}
}

// CoveragePlotter draws the number of distinct observations over episodes
func CoveragePlotter(plotPath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "States covered"
		for i := 0; i < len(names); i++ {
			counts, ok := ds[i].([]int)
			if !ok {
				continue
			}
			points := make(plotter.XYs, len(counts))
			for e, v := range counts {
				points[e] = plotter.XY{X: float64(e), Y: float64(v)}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_coverage.png"))
	}
}

// DatasetRecorder stores the raw datasets as JSON, keyed by experiment name
func DatasetRecorder(savePath, name string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		out := make(map[string]DataSet, len(names))
		for i, n := range names {
			out[n] = ds[i]
		}
		return util.WriteJSON(path.Join(savePath, strconv.Itoa(run)+"_"+name+".json"), out)
	}
}
