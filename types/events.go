package types

import (
	"path"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/util"
)

// EventDesc names a pattern to look for in the traces. Check returns whether
// the pattern occurs and the step at which it is first complete.
type EventDesc struct {
	Name  string
	Check func(*Trace) (bool, int)
}

// EventOccurrences maps an event name to the first episode it was seen in
type EventOccurrences map[string]int

// EventAnalyzer records the first episode of every event, and stores the
// trace of that episode up to the event step under savePath
type EventAnalyzer struct {
	savePath string
	events   []EventDesc
	first    EventOccurrences
	log      logrus.FieldLogger
}

var _ Analyzer = &EventAnalyzer{}

func NewEventAnalyzerCtor(savePath string, log logrus.FieldLogger, events ...EventDesc) AnalyzerCtor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func() Analyzer {
		return &EventAnalyzer{
			savePath: savePath,
			events:   events,
			first:    make(EventOccurrences),
			log:      log,
		}
	}
}

func (e *EventAnalyzer) Analyze(run, episode int, experiment string, trace *Trace) {
	for _, ev := range e.events {
		if _, seen := e.first[ev.Name]; seen {
			continue
		}
		found, step := ev.Check(trace)
		if !found {
			continue
		}
		e.first[ev.Name] = episode
		if e.savePath != "" {
			file := path.Join(e.savePath, strconv.Itoa(run)+"_"+experiment+"_"+ev.Name+"_"+strconv.Itoa(episode)+"_step"+strconv.Itoa(step)+".json")
			if err := util.WriteJSON(file, trace.Slice(0, step+1)); err != nil {
				e.log.WithFields(logrus.Fields{
					"experiment": experiment,
					"event":      ev.Name,
					"episode":    episode,
				}).WithError(err).Warn("could not store event trace")
			}
		}
	}
}

func (e *EventAnalyzer) DataSet() DataSet {
	out := make(EventOccurrences, len(e.first))
	for k, v := range e.first {
		out[k] = v
	}
	return out
}

func (e *EventAnalyzer) Reset() {
	e.first = make(EventOccurrences)
}

// EventComparator logs the first occurrences and writes them to <run>_events.json
func EventComparator(savePath string, log logrus.FieldLogger) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		data := make(map[string]EventOccurrences)
		for i, exp := range names {
			occurrences, ok := ds[i].(EventOccurrences)
			if !ok {
				continue
			}
			for name, episode := range occurrences {
				log.WithFields(logrus.Fields{
					"run":        run,
					"experiment": exp,
					"event":      name,
					"episode":    episode,
				}).Info("event first seen")
			}
			data[exp] = occurrences
		}
		return util.WriteJSON(path.Join(savePath, strconv.Itoa(run)+"_events.json"), data)
	}
}

// SustainedAbove holds when every firm prices at index min or higher for
// steps consecutive periods
func SustainedAbove(min, steps int) func(*Trace) (bool, int) {
	return sustained(steps, func(i int) bool { return i >= min })
}

// SustainedBelow holds when every firm prices at index max or lower for
// steps consecutive periods
func SustainedBelow(max, steps int) func(*Trace) (bool, int) {
	return sustained(steps, func(i int) bool { return i <= max })
}

func sustained(steps int, pred func(int) bool) func(*Trace) (bool, int) {
	return func(t *Trace) (bool, int) {
		run := 0
		for _, s := range t.Steps {
			all := len(s.Action) > 0
			for _, a := range s.Action {
				if !pred(a) {
					all = false
					break
				}
			}
			if !all {
				run = 0
				continue
			}
			run++
			if run >= steps {
				return true, s.Step
			}
		}
		return false, -1
	}
}
