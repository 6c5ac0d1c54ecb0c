package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sarchlab/bgas/datarecording"
	"github.com/sarchlab/bgas/mem/olb"
	"github.com/sarchlab/bgas/monitoring"
	"github.com/sarchlab/bgas/platform"
	"github.com/sarchlab/bgas/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: "`run` builds the nodes, runs the random accesses to completion, " +
		"checks the data read back and prints the OLB statistics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSimulation(cmd, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.Int("nodes", 2, "Number of nodes")
	f.String("topology", platform.TopologyDirect,
		"How the OLB reaches memory: direct, nic or nic4")
	f.String("freq", "1GHz", "Frequency of all components")
	f.String("mem-size", "1MiB", "Capacity of the memory of each node")
	f.Int("mem-latency", 100, "Memory latency in cycles")
	f.Int("reads", 1000, "Reads each agent issues")
	f.Int("writes", 1000, "Writes each agent issues")
	f.Float64("remote-ratio", 0.5, "Share of accesses that go to other nodes")
	f.String("agent-range", "4KiB", "Bytes each agent owns on every node")
	f.Int64("seed", 1, "Seed of the access pattern and random mappings")
	f.StringSlice("params", nil, "Files with OLB parameters in KEY=VALUE form")
	f.StringArray("set", nil, "Set an OLB parameter, as in --set mapping=random")
	f.String("db", "", "Record the statistics into this database")
	f.Bool("trace", false, "Record memory and network tasks into the database")
	f.Bool("debug", false, "Print OLB debug output to stderr")
	f.Bool("log-msgs", false, "Log messages crossing OLB ports to stderr")
	f.Bool("log-events", false, "Log every simulation event to stderr")
	f.Bool("monitor", false, "Serve the monitoring web page")
	f.Int("monitor-port", 0, "Port of the monitoring server")
	f.Bool("open-browser", false, "Open the monitoring page in a browser")
}

func runSimulation(cmd *cobra.Command, out io.Writer) error {
	f := cmd.Flags()

	files, _ := f.GetStringSlice("params")
	overrides, _ := f.GetStringArray("set")

	params, err := loadParams(files, overrides)
	if err != nil {
		return err
	}

	b, err := platformBuilder(cmd, params)
	if err != nil {
		return err
	}

	engine := sim.NewSerialEngine()
	b = b.WithEngine(engine)

	var recorder datarecording.DataRecorder
	if db, _ := f.GetString("db"); db != "" {
		recorder = datarecording.New(db)
		defer recorder.Close()

		trace, _ := f.GetBool("trace")
		b = b.WithRecorder(recorder).WithTaskTracing(trace)
	}

	if debug, _ := f.GetBool("debug"); debug {
		b = b.WithDebugWriter(os.Stderr)
	}

	if logMsgs, _ := f.GetBool("log-msgs"); logMsgs {
		b = b.WithMsgLogger(log.New(os.Stderr, "msg: ", 0))
	}

	if logEvents, _ := f.GetBool("log-events"); logEvents {
		b = b.WithEventLogger(log.New(os.Stderr, "event: ", 0))
	}

	p, err := b.Build()
	if err != nil {
		return err
	}

	if monitor, _ := f.GetBool("monitor"); monitor {
		startMonitor(cmd, p)
	}

	start := time.Now()

	err = p.Run()
	if err != nil {
		return err
	}

	printSummary(out, p, time.Since(start))

	return p.Verify()
}

func platformBuilder(
	cmd *cobra.Command,
	params olb.Params,
) (platform.Builder, error) {
	f := cmd.Flags()

	nodes, _ := f.GetInt("nodes")
	topology, _ := f.GetString("topology")
	memLatency, _ := f.GetInt("mem-latency")
	reads, _ := f.GetInt("reads")
	writes, _ := f.GetInt("writes")
	ratio, _ := f.GetFloat64("remote-ratio")
	seed, _ := f.GetInt64("seed")

	freqStr, _ := f.GetString("freq")

	freq, err := sim.ParseFreq(freqStr)
	if err != nil {
		return platform.Builder{}, err
	}

	memSizeStr, _ := f.GetString("mem-size")

	memSize, err := sim.ParseBytes(memSizeStr)
	if err != nil {
		return platform.Builder{}, err
	}

	rangeStr, _ := f.GetString("agent-range")

	agentRange, err := sim.ParseBytes(rangeStr)
	if err != nil {
		return platform.Builder{}, err
	}

	return platform.MakeBuilder().
		WithNumNodes(nodes).
		WithTopology(strings.ToLower(topology)).
		WithOLBParams(params).
		WithFreq(freq).
		WithMemory(memSize, memLatency).
		WithTraffic(reads, writes, ratio).
		WithAgentRange(agentRange).
		WithSeed(seed), nil
}

func startMonitor(cmd *cobra.Command, p *platform.Platform) {
	port, _ := cmd.Flags().GetInt("monitor-port")
	open, _ := cmd.Flags().GetBool("open-browser")

	m := monitoring.NewMonitor().WithPortNumber(port).WithOpenBrowser(open)
	m.RegisterSimulation(p.Simulation)

	for _, n := range p.Nodes {
		bar := m.CreateProgressBar(n.Agent.Name(),
			uint64(n.Agent.ReadLeft+n.Agent.WriteLeft))
		bar.StartTime = time.Now()
		n.Agent.Progress = bar
	}

	m.StartServer()
}

func printSummary(out io.Writer, p *platform.Platform, wall time.Duration) {
	fmt.Fprintf(out, "simulated %.9fs in %s\n",
		float64(p.Engine.CurrentTime()), wall.Round(time.Millisecond))

	for i, n := range p.Nodes {
		fmt.Fprintf(out, "%s (%s topology)\n",
			n.OLB.Name(), n.OLB.Topology().Kind)

		if counters := p.Counters(i); counters != nil {
			for _, s := range olb.AllStats() {
				fmt.Fprintf(out, "  %-12s %s\n",
					s, humanize.Comma(int64(counters.Get(s))))
			}
		}

		fmt.Fprintf(out, "  %-12s %s sent, %s received\n", "network",
			humanize.IBytes(n.Link.SentBytes()),
			humanize.IBytes(n.Link.ReceivedBytes()))
		fmt.Fprintf(out, "  %-12s %d requests, %.1fns average\n", "memory",
			n.MemoryRequests(), float64(n.MemoryLatency())*1e9)
	}
}
