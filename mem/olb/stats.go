package olb

import (
	"slices"

	"github.com/sarchlab/bgas/datarecording"
	"github.com/sarchlab/bgas/sim"
)

// A Stat is a counter the OLB reports.
type Stat int

// Statistics of an OLB.
const (
	StatTotalOps Stat = iota
	StatTotalRead
	StatTotalWrite
	StatExtRead
	StatExtWrite
	StatLocalRead
	StatLocalWrite
	numStats
)

var statNames = [numStats]string{
	"TotalOps",
	"TotalRead",
	"TotalWrite",
	"ExtRead",
	"ExtWrite",
	"LocalRead",
	"LocalWrite",
}

func (s Stat) String() string {
	if s < 0 || s >= numStats {
		return "Unknown"
	}

	return statNames[s]
}

// AllStats returns every statistic in report order.
func AllStats() []Stat {
	stats := make([]Stat, numStats)
	for i := range stats {
		stats[i] = Stat(i)
	}

	return stats
}

// A StatSink receives statistic increments.
type StatSink interface {
	Add(stat Stat, delta uint64)
}

// Counters is a StatSink that keeps the totals in memory.
type Counters struct {
	values [numStats]uint64
}

// Add increments a counter.
func (c *Counters) Add(stat Stat, delta uint64) {
	c.values[stat] += delta
}

// Get returns the value of a counter.
func (c *Counters) Get(stat Stat) uint64 {
	return c.values[stat]
}

// StatEntry is a row in the statistics table.
type StatEntry struct {
	Location string
	Stat     string
	Value    uint64
	Time     float64
}

// StatTable is the table the statistics are recorded into.
const StatTable = "olb_stats"

type finishHandler struct {
	comp     *Comp
	recorder datarecording.DataRecorder
}

// Handle records the final counters of the OLB.
func (h finishHandler) Handle(now sim.VTimeInSec) {
	h.comp.Finish(now, h.recorder)
}

// FinishHandler returns a handler that records the counters of the OLB into
// the recorder when the simulation ends.
func (c *Comp) FinishHandler(
	recorder datarecording.DataRecorder,
) sim.SimulationEndHandler {
	return finishHandler{comp: c, recorder: recorder}
}

// Finish writes the counters into the recorder. The counters are only
// available when the OLB reports to its default sink.
func (c *Comp) Finish(now sim.VTimeInSec, recorder datarecording.DataRecorder) {
	counters, ok := c.stats.(*Counters)
	if !ok {
		return
	}

	if !slices.Contains(recorder.ListTables(), StatTable) {
		recorder.CreateTable(StatTable, StatEntry{})
	}

	for _, s := range AllStats() {
		recorder.InsertData(StatTable, StatEntry{
			Location: c.Name(),
			Stat:     s.String(),
			Value:    counters.Get(s),
			Time:     float64(now),
		})
	}

	recorder.Flush()

	c.debug.Verbose(1, "finished with %d ops", counters.Get(StatTotalOps))
}
