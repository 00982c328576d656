package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/tidewatch/driftsim/internal/config"
	"github.com/tidewatch/driftsim/internal/logging"
	"github.com/tidewatch/driftsim/internal/observability"
	"github.com/tidewatch/driftsim/internal/outputters"
	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/simmap"
	"github.com/tidewatch/driftsim/internal/spill"
	"github.com/tidewatch/driftsim/internal/tui"
)

var (
	storeDir    string
	logLevel    string
	logFormat   string
	metricsAddr string
	quiet       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "driftsim",
		Short: "particle trajectory simulation for surface spills",
	}

	rootCmd.PersistentFlags().StringVar(&storeDir, "store", ".driftsim", "run archive directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "run a scenario to completion",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	runCmd.Flags().BoolVar(&quiet, "quiet", false, "suppress rendered frames")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot an archived run's particle counts",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live [scenario.yaml]",
		Short: "run a scenario in the interactive viewer",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "list the mover kinds scenarios can use",
		Run: func(cmd *cobra.Command, args []string) {
			kinds := config.NewRegistry().MoverKinds()
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Println(kind)
			}
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check [scenario.yaml]",
		Short: "validate a scenario without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d spills, %d movers)\n", sc.Name, len(sc.Spills), len(sc.Movers))
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, liveCmd, kindsCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	log := logging.New(os.Stderr, logging.Config{Level: logLevel, Format: logFormat})

	sc, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if sc.Output.StoreDir == "" {
		sc.Output.StoreDir = storeDir
	}

	opts := config.BuildOptions{Logger: log}
	if !quiet {
		opts.RenderTo = os.Stdout
	}
	if metricsAddr != "" {
		collector, err := observability.NewRunCollector(nil)
		if err != nil {
			return err
		}
		opts.Collector = collector
		sc.Output.Metrics = true
		go func() {
			if err := http.ListenAndServe(metricsAddr, collector.Handler()); err != nil {
				log.Error("metrics server stopped", "err", err)
			}
		}()
		log.Info("serving metrics", "addr", metricsAddr)
	}

	m, closer, err := config.NewRegistry().Build(sc, opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info("starting run",
		"scenario", sc.Name,
		"steps", m.NumTimeSteps(),
		"dt", m.TimeStep(),
		"uncertain", m.Uncertain())

	var last sim.Report
	for report, err := range m.Steps() {
		if err != nil {
			return fmt.Errorf("run failed at step %d: %w", m.CurrentTimeStep(), err)
		}
		last = report
	}

	log.Info("run complete", "released", m.Spills().Certain().NumReleased())
	if dir, ok := last["output_filename"].(string); ok {
		fmt.Println("archived to", dir)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := outputters.NewRunStore(storeDir, "")
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs archived in", storeDir)
		return nil
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tSTART\tSTEPS\tSPILLS\tUNCERTAIN")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%v\n",
			run.ID, run.Scenario, run.StartTime.Format("2006-01-02 15:04"),
			run.NumSteps, run.NumSpills, run.Uncertain)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := outputters.NewRunStore(storeDir, "")
	meta, err := store.LoadRun(args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	if meta.NumSteps == 0 {
		return errors.New("run has no archived steps")
	}

	counts := make([]float64, 0, meta.NumSteps)
	beached := make([]float64, 0, meta.NumSteps)
	for step := 0; step < meta.NumSteps; step++ {
		_, statuses, err := store.LoadStep(meta.ID, step)
		if err != nil {
			return err
		}
		b := 0
		for _, s := range statuses {
			if s == spill.StatusBeached {
				b++
			}
		}
		counts = append(counts, float64(len(statuses)))
		beached = append(beached, float64(b))
	}

	fmt.Println(asciigraph.Plot(counts,
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Caption("particles in simulation")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(beached,
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Caption("particles beached")))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	log := logging.New(os.Stderr, logging.Config{Level: "error", Format: logFormat})

	sc, err := config.Load(args[0])
	if err != nil {
		return err
	}
	sc.Output.Render = false // the viewer draws its own frames

	m, closer, err := config.NewRegistry().Build(sc, config.BuildOptions{Logger: log})
	if err != nil {
		return err
	}
	defer closer.Close()

	extent := simmap.Rect{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}
	if sc.Output.Extent != nil {
		extent = simmap.Rect{
			MinLon: sc.Output.Extent.MinLon, MinLat: sc.Output.Extent.MinLat,
			MaxLon: sc.Output.Extent.MaxLon, MaxLat: sc.Output.Extent.MaxLat,
		}
	} else if mask, ok := m.Map().(*simmap.MaskMap); ok {
		extent = mask.Bounds
	}

	return tui.NewLive(sc.Name, m, extent).Run()
}
