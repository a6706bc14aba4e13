package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/loopsim/internal/automation"
	"github.com/san-kum/loopsim/internal/storage"
)

var (
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	mcTrials  int
	mcPerturb float64
	mcSeed    int64
)

func batchCommands() []*cobra.Command {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a scenario file and store the records",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep [plant]",
		Short: "sweep a plant parameter over a range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runParamSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "name", "k", "plant parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.05, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.5, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [plant]",
		Short: "run trials from randomly perturbed initial states",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addRunFlags(mcCmd)
	mcCmd.Flags().IntVar(&mcTrials, "trials", 100, "number of trials")
	mcCmd.Flags().Float64Var(&mcPerturb, "perturb", 0.1, "max perturbation per state component")
	mcCmd.Flags().Int64Var(&mcSeed, "seed", 1, "random seed")
	mcCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")

	return []*cobra.Command{scenarioCmd, sweepCmd, mcCmd}
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", scenario.Name, len(scenario.Steps))
	results, err := automation.RunScenario(ctx, scenario, logger)
	if err != nil {
		return err
	}

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPLANT\tMODE\tFINAL\tSTATUS\tRUN ID")
	for _, r := range results {
		id := "-"
		if st != nil {
			id, err = st.Save(r.Config, r.Result)
			if err != nil {
				return err
			}
			logger.Debug("scenario step stored", zap.String("step", r.Name), zap.String("id", id))
		}
		status := "ok"
		if r.Result.Diverged {
			status = "diverged"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n", r.Name, r.Config.Plant, r.Config.Mode,
			[]float64(r.Result.Final), status, id)
	}
	return w.Flush()
}

func runParamSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
		Workers:   workers,
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL OUTPUT\tCONTROL EFFORT\tSTATUS\n", sweepParam)
	for _, r := range results {
		status := "ok"
		if r.Diverged {
			status = "diverged"
		}
		fmt.Fprintf(w, "%g\t%.6f\t%.6f\t%s\n", r.ParamValue, r.FinalOutput, r.Metrics["control_effort"], status)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("monte carlo: %s, %d trials, perturbation ±%g, seed %d\n", cfg.Plant, mcTrials, mcPerturb, mcSeed)
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: mcPerturb,
		NumTrials:    mcTrials,
		Seed:         mcSeed,
		Workers:      workers,
	}, logger)
	if err != nil {
		return err
	}

	settled, diverged := automation.MonteCarloStats(results)
	fmt.Printf("%s %d/%d\n", labelStyle.Render("settled:"), settled, len(results))
	fmt.Printf("%s %d/%d\n", labelStyle.Render("diverged:"), diverged, len(results))
	return nil
}
