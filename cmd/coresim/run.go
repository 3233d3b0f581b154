package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xThaid/coreblocks/monitoring"
	"github.com/xThaid/coreblocks/record"
	"github.com/xThaid/coreblocks/sim"
	"github.com/xThaid/coreblocks/vcd"
)

var runFlags = struct {
	until       uint64
	width       int
	period      uint64
	deltaLimit  int
	vcdPath     string
	gtkwPath    string
	recordPath  string
	monitor     bool
	monitorPort int
	openBrowser bool
	logCommits  bool
}{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the demo counter circuit and dump its waveform.",
	RunE:  runDemo,
}

func init() {
	runCmd.Flags().Uint64Var(&runFlags.until, "until", 200,
		"simulated time to run to")
	runCmd.Flags().IntVar(&runFlags.width, "width", 4,
		"bit width of the counter")
	runCmd.Flags().Uint64Var(&runFlags.period, "period", 5,
		"half period of the clock")
	runCmd.Flags().IntVar(&runFlags.deltaLimit, "delta-limit",
		envInt("COREBLOCKS_DELTA_LIMIT", 1000),
		"delta cycles allowed per instant before reporting non-convergence")
	runCmd.Flags().StringVar(&runFlags.vcdPath, "vcd", "counter.vcd",
		"path of the VCD trace to write")
	runCmd.Flags().StringVar(&runFlags.gtkwPath, "gtkw", "",
		"path of the GTKWave save file to write (optional)")
	runCmd.Flags().StringVar(&runFlags.recordPath, "record", "",
		"record settled changes into a SQLite database at this path (optional)")
	runCmd.Flags().BoolVar(&runFlags.monitor, "monitor", false,
		"start the HTTP monitor")
	runCmd.Flags().IntVar(&runFlags.monitorPort, "monitor-port",
		envInt("COREBLOCKS_MONITOR_PORT", 0),
		"port of the HTTP monitor (0 picks a random port)")
	runCmd.Flags().BoolVar(&runFlags.openBrowser, "open-browser", false,
		"open the monitor URL in the default browser")
	runCmd.Flags().BoolVar(&runFlags.logCommits, "log", false,
		"print every committed change to stderr")

	rootCmd.AddCommand(runCmd)
}

// counterFragment elaborates the demo circuit: an n-bit counter register
// clocked by clk, incremented by a combinational adder.
func counterFragment(width int) (*sim.Fragment, *sim.Signal) {
	top := sim.NewFragment("top")
	clk := top.AddSignal("clk", 1, 1)
	count := top.AddSignal("count", width, 0)

	inc := sim.NewFragment("inc")
	next := inc.AddSignal("next", width, 1)
	inc.AddProcess(sim.Comb([]*sim.Signal{count}, func(ctl *sim.Control) {
		ctl.Write(next, ctl.Read(count)+1)
	}))
	top.AddSub(inc)

	top.AddProcess(sim.Reg(clk, next, count))

	return top, clk
}

func runDemo(_ *cobra.Command, _ []string) error {
	fragment, clk := counterFragment(runFlags.width)

	engine := sim.MakeBuilder().
		WithFragment(fragment).
		WithDeltaLimit(runFlags.deltaLimit).
		Build()

	if err := engine.AddClockProcess(
		clk, 0, sim.VTime(runFlags.period)); err != nil {
		return err
	}

	if runFlags.logCommits {
		engine.AcceptHook(sim.NewCommitLogger(
			log.New(os.Stderr, "", 0)))
	}

	if runFlags.monitor {
		monitor := monitoring.NewMonitor()
		if runFlags.monitorPort > 0 {
			monitor.WithPortNumber(runFlags.monitorPort)
		}
		if runFlags.openBrowser {
			monitor.WithBrowserOpen()
		}
		monitor.RegisterEngine(engine)
		monitor.StartServer()
	}

	traceFile, err := os.Create(runFlags.vcdPath)
	if err != nil {
		return err
	}
	defer traceFile.Close()

	writer := vcd.NewWriter(traceFile)

	if runFlags.gtkwPath != "" {
		layoutFile, err := os.Create(runFlags.gtkwPath)
		if err != nil {
			return err
		}
		defer layoutFile.Close()
		writer.WithLayout(layoutFile)
	}

	var recorder record.Recorder
	if runFlags.recordPath != "" {
		recorder = record.New(runFlags.recordPath)
		defer recorder.Close()
	}

	body := func() error {
		return engine.Run(sim.VTime(runFlags.until))
	}

	run := func() error {
		return engine.CaptureWaveform(writer, sim.TraceConfig{}, body)
	}

	if recorder != nil {
		inner := run
		run = func() error {
			return engine.CaptureWaveform(
				record.NewTracer(recorder), sim.TraceConfig{}, inner)
		}
	}

	if err := run(); err != nil {
		return err
	}

	now, _ := engine.Now()
	fmt.Printf("simulated up to time %d, trace written to %s\n",
		now, runFlags.vcdPath)

	return nil
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring %s=%q: %s\n", key, v, err)
		return fallback
	}

	return n
}
