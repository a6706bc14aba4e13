package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/loopsim/internal/analysis"
	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/experiment"
	"github.com/san-kum/loopsim/internal/export"
	"github.com/san-kum/loopsim/internal/optim"
	"github.com/san-kum/loopsim/internal/storage"
	"github.com/san-kum/loopsim/internal/tui"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	// Phase plot axes
	xAxis int
	yAxis int
	// Frame rate for run --live
	frameRate int
	live      bool
	noSave    bool
	// Tuning
	tuneMetric string
	kpRange    []float64
	kiRange    []float64
	kdRange    []float64
	workers    int
	// Image export
	outPath string
	svgOut  bool
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

// main registers commands and flags, starts the interactive TUI when no
// subcommand is given, and exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "loopsim",
		Short:        "feedback control loop simulator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".loopsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [plant]",
		Short: "run a simulation and store its record",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "draw the loop while it runs")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --live")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	compareCmd := &cobra.Command{
		Use:   "compare [plant]",
		Short: "compare open-loop and closed-loop runs of the same plant",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareLoops,
	}
	addRunFlags(compareCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "grid search PID gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "iae", "metric to minimise")
	tuneCmd.Flags().Float64SliceVar(&kpRange, "kp-range", nil, "kp candidates")
	tuneCmd.Flags().Float64SliceVar(&kiRange, "ki-range", nil, "ki candidates")
	tuneCmd.Flags().Float64SliceVar(&kdRange, "kd-range", nil, "kd candidates")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot output and command of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run record to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run record to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	pngCmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "render a run to PNG (or SVG with --svg)",
		Args:  cobra.ExactArgs(1),
		RunE:  renderImage,
	}
	pngCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.png)")
	pngCmd.Flags().BoolVar(&svgOut, "svg", false, "write an SVG polyline instead")

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive closed-loop view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	rootCmd.AddCommand(runCmd, compareCmd, tuneCmd, listCmd, plotCmd, phaseCmd,
		exportCSVCmd, exportJSONCmd, pngCmd, presetsCmd, liveCmd)
	rootCmd.AddCommand(batchCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(logger))
	if err != nil {
		return err
	}

	if live {
		var sp *float64
		if cfg.Mode == config.ModeClosed {
			sp = &cfg.Controller.Setpoint
		}
		r := tui.NewLiveRenderer(os.Stdout, cfg.Plant, sp, frameRate)
		r.Start()
		defer r.Stop()
		exp.GetSimulator().AddObserver(r)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s (%s loop)...\n", cfg.Plant, cfg.Mode)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil && !errors.Is(err, dynamo.ErrDiverging) {
		return err
	}
	elapsed := time.Since(start)

	runID := ""
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err = st.Save(cfg, result)
		if err != nil {
			return err
		}
		logger.Info("run stored", zap.String("id", runID), zap.String("dir", dataDir))
	}

	printSummary(cfg, result, runID, elapsed)
	if result.Diverged {
		fmt.Println(warnStyle.Render(fmt.Sprintf("diverged at t=%.4fs after %d steps", result.FinalTime, result.StepsTaken)))
	}
	return nil
}

func printSummary(cfg *config.Config, result *dynamo.Result, runID string, elapsed time.Duration) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s / %s loop / %s", cfg.Plant, cfg.Mode, cfg.Integrator)))
	if runID != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("run id:"), runID)
	}
	fmt.Printf("%s %v\n", labelStyle.Render("completed in:"), elapsed)
	fmt.Printf("%s %d\n", labelStyle.Render("steps:"), result.StepsTaken)
	if len(result.Final) > 0 {
		fmt.Printf("%s %v at t=%.4f\n", labelStyle.Render("final state:"), []float64(result.Final), result.FinalTime)
	}
	printMetrics(result.Metrics)
}

func printMetrics(metrics map[string]float64) {
	if len(metrics) == 0 {
		return
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-20s %.6f\n", name, metrics[name])
	}
}

func compareLoops(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cmp, err := experiment.Compare(ctx, cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("%s: open loop u=%g vs closed loop setpoint=%g (dt=%g, duration=%gs)\n\n",
		cfg.Plant, cfg.Command, cfg.Controller.Setpoint, cfg.Dt, cfg.Duration)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOOP\tFINAL OUTPUT\tTAIL MEAN\tCONTROL EFFORT")
	for _, row := range []struct {
		name string
		res  *dynamo.Result
	}{{"open", cmp.Open}, {"closed", cmp.Closed}} {
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\n",
			row.name,
			row.res.Final[0],
			stat.Mean(row.res.Tail(metricsTail), nil),
			row.res.Metrics["control_effort"],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(asciigraph.PlotMany([][]float64{cmp.Open.Outputs, cmp.Closed.Outputs},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Yellow, asciigraph.Aqua),
		asciigraph.Caption("output: open (yellow) vs closed (aqua)"),
	))
	return nil
}

const metricsTail = 0.1

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.Mode = config.ModeClosed

	var names []string
	var ranges [][]float64
	for _, r := range []struct {
		name   string
		values []float64
	}{{"kp", kpRange}, {"ki", kiRange}, {"kd", kdRange}} {
		if len(r.values) > 0 {
			names = append(names, r.name)
			ranges = append(ranges, r.values)
		}
	}
	if len(names) == 0 {
		names = []string{"kp", "ki"}
		ranges = [][]float64{{0.5, 1, 2, 4}, {0, 0.05, 0.1, 0.2}}
	}

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("tuning %s over %d candidates, minimising %s...\n", cfg.Plant, len(g.Candidates()), tuneMetric)
	start := time.Now()
	outcome, err := optim.TunePID(ctx, cfg, g.WithWorkers(workers).WithLogger(logger), tuneMetric,
		experiment.WithLogger(logger))
	if err != nil {
		return err
	}

	evaluated := append([]optim.Candidate(nil), outcome.Evaluated...)
	sort.SliceStable(evaluated, func(i, j int) bool { return evaluated[i].Value < evaluated[j].Value })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(tuneMetric))
	for i, c := range evaluated {
		if i >= 10 {
			break
		}
		cols := make([]string, len(names))
		for j, n := range names {
			cols[j] = fmt.Sprintf("%g", c.Params[n])
		}
		val := fmt.Sprintf("%.6f", c.Value)
		if c.Diverged {
			val = "diverged"
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(cols, "\t"), val)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%s %v (%s=%.6f) in %v\n", titleStyle.Render("best:"), outcome.Best, tuneMetric, outcome.Value, time.Since(start))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tMODE\tTIME\tDURATION\tDT\tINTEG\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Diverged {
			status = "diverged"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Plant,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			status,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *dynamo.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := st.LoadRecord(runID)
	if err != nil {
		return nil, nil, err
	}
	result.Metrics = meta.Metrics
	result.Diverged = meta.Diverged
	return meta, result, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if result.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("plant: %s (%s loop)\n", meta.Plant, meta.Mode)
	fmt.Printf("samples: %d\n\n", result.Len())

	series := [][]float64{result.Outputs}
	caption := "output vs time"
	if meta.Gains != nil {
		ref := make([]float64, result.Len())
		for i := range ref {
			ref[i] = meta.Gains.Setpoint
		}
		series = append(series, ref)
		caption = fmt.Sprintf("output vs time (setpoint %g)", meta.Gains.Setpoint)
	}

	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(result.Commands,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("command vs time"),
	))

	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	portrait, err := analysis.FromResult(result, xAxis, yAxis)
	if err != nil {
		return err
	}

	fmt.Printf("phase portrait: %s x%d vs x%d (%d points)\n\n", meta.ID, xAxis, yAxis, len(portrait.Points))
	fmt.Print(portrait.ASCII(72, 24))

	level := stat.Mean(result.Tail(metricsTail), nil)
	if period := analysis.Period(result.Times, result.Outputs, level); period > 0 {
		fmt.Printf("\noscillation period around %.4f: %.4fs\n", level, period)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, result)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, result)
}

func renderImage(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outPath
	if svgOut {
		if path == "" {
			path = meta.ID + ".svg"
		}
		svg := export.OutputToSVG(result, 800, 400, "#00ff00")
		if svg == "" {
			return fmt.Errorf("not enough samples to draw")
		}
		if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
			return err
		}
	} else {
		if path == "" {
			path = meta.ID + ".png"
		}
		opts := export.PlotOptions{
			Title:       fmt.Sprintf("%s (%s loop)", meta.Plant, meta.Mode),
			ShowCommand: true,
		}
		if meta.Gains != nil {
			sp := meta.Gains.Setpoint
			opts.Setpoint = &sp
		}
		if err := export.SavePNG(path, result, opts); err != nil {
			return err
		}
	}

	fmt.Printf("wrote %s\n", path)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	plants := experiment.NewRegistry().ListPlants()
	if len(args) > 0 {
		plants = args
	}

	for _, plant := range plants {
		presets := config.ListPresets(plant)
		if len(presets) == 0 {
			fmt.Printf("no presets for plant: %s\n", plant)
			continue
		}
		sort.Strings(presets)
		fmt.Printf("presets for %s:\n", plant)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
