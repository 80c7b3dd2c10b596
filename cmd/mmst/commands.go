package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mmst/internal/analysis"
	"github.com/san-kum/mmst/internal/automation"
	"github.com/san-kum/mmst/internal/config"
	"github.com/san-kum/mmst/internal/experiment"
	"github.com/san-kum/mmst/internal/export"
	"github.com/san-kum/mmst/internal/integrators"
	"github.com/san-kum/mmst/internal/optim"
	"github.com/san-kum/mmst/internal/sim"
	"github.com/san-kum/mmst/internal/storage"
	"github.com/san-kum/mmst/internal/viz"
	"github.com/spf13/cobra"
)

func runTrajectory(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s with %s (dt=%g, %d steps)...\n", cfg.Model, exp.Trajectory().Scheme(), cfg.Dt, cfg.Steps)
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	runID, err := st.Save(exp.Metadata(result), result.Recording)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (t = %g)\n", result.Steps, result.Time)
	fmt.Printf("final populations: %s\n", formatVec(exp.Trajectory().Populations()))
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)

	if showPlot {
		chart, err := viz.PopulationChart(result.Recording, 80, 12)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(chart)
	}
	return nil
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	schemes := args[1:]
	if len(schemes) == 0 {
		schemes = integrators.Names()
	}

	fmt.Printf("comparing schemes for %s (dt=%g, %d steps)\n\n", cfg.Model, cfg.Dt, cfg.Steps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEME\tFINAL P0\tENERGY DRIFT\tACTION DRIFT\tEVALS\tTIME")

	logger := newLogger()
	for _, name := range schemes {
		c := cfg.Clone()
		c.Scheme = name
		exp, err := experiment.New(c, logger)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		result, err := exp.Run(context.Background())
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		traj := exp.Trajectory()
		fmt.Fprintf(w, "%s\t%.6f\t%.3e\t%.3e\t%d\t%v\n",
			name, traj.Populations()[0], result.Metrics["energy_drift"], result.Metrics["action_drift"],
			traj.Evaluations(), result.Elapsed.Round(time.Microsecond))
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}
	ens, err := exp.Ensemble(runs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d %s trajectories with %s...\n", runs, cfg.Model, cfg.Scheme)
	start := time.Now()
	res, err := ens.Run(ctx, cfg.Steps, max(cfg.RecordEvery, 1))
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	n := len(res.Populations[0])
	series := make([][]float64, n)
	legends := make([]string, n)
	for i := range series {
		legends[i] = fmt.Sprintf("<P%d>", i)
		for _, p := range res.Populations {
			series[i] = append(series[i], p[i])
		}
	}
	if len(res.Times) > 1 {
		fmt.Println(asciigraph.PlotMany(series,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.SeriesLegends(legends...),
			asciigraph.Caption("ensemble-averaged populations")))
		fmt.Println()
	}
	fmt.Printf("final averaged populations: %s\n", formatVec(res.Populations[len(res.Populations)-1]))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSCHEME\tDT\tSTEPS\tSTATES\tDRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%d\t%d\t%.2e\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Scheme,
			run.Dt,
			run.Steps,
			run.NumStates,
			run.Metrics["energy_drift"],
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *storage.Recording, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rec, err := st.LoadRecording(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, rec, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, rec, err := loadRun(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s, scheme: %s\n", meta.Model, meta.Scheme)
	fmt.Printf("samples: %d\n\n", rec.Len())

	pop, err := viz.PopulationChart(rec, 80, 12)
	if err != nil {
		return err
	}
	energy, err := viz.EnergyChart(rec, 80, 8)
	if err != nil {
		return err
	}
	fmt.Println(pop)
	fmt.Println()
	fmt.Println(energy)
	return nil
}

func plotRunPNG(cmd *cobra.Command, args []string) error {
	meta, rec, err := loadRun(args[0])
	if err != nil {
		return err
	}
	dir := outDir
	if dir == "" {
		dir = filepath.Join(dataDir, meta.ID)
	}
	title := fmt.Sprintf("%s (%s, dt=%g)", meta.Model, meta.Scheme, meta.Dt)
	paths, err := viz.SavePNGs(rec, dir, title)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println("wrote", p)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, rec, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if rec.Len() < 2 {
		return fmt.Errorf("run %s has too few samples", meta.ID)
	}
	if stateIndex < 0 || stateIndex >= len(rec.Populations[0]) {
		return fmt.Errorf("state %d outside [0, %d)", stateIndex, len(rec.Populations[0]))
	}

	// a startup phase can leave one irregular sample at the front
	first := uniformFrom(rec.Times)
	data := rec.Population(stateIndex)[first:]
	spacing := rec.Times[first+1] - rec.Times[first]

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("model: %s, state: %d, sample spacing: %g\n\n", meta.Model, stateIndex, spacing)

	ps := analysis.PowerSpectrum(data)
	if len(ps) > 8 {
		fmt.Println(asciigraph.Plot(ps[:len(ps)/4+1],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum of P%d", stateIndex))))
		fmt.Println()
	}

	freq, err := analysis.DominantFrequency(data, spacing)
	if err != nil {
		return err
	}
	fmt.Printf("dominant frequency: %.6g\n", freq)
	fmt.Printf("period: %.6g\n", 1/freq)
	return nil
}

// uniformFrom returns the first index from which times are evenly spaced.
func uniformFrom(times []float64) int {
	n := len(times)
	if n < 3 {
		return 0
	}
	spacing := times[n-1] - times[n-2]
	first := n - 2
	for first > 0 && math.Abs(times[first]-times[first-1]-spacing) <= 1e-9*math.Abs(spacing) {
		first--
	}
	return first
}

func phasePortrait(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	traj, err := startTrajectory(cfg)
	if err != nil {
		return err
	}
	portrait, err := analysis.GeneratePhasePortrait(traj, stateIndex, cfg.Steps)
	if err != nil {
		return err
	}
	fmt.Printf("mapping oscillator %d of %s (%s, %d steps)\n\n", stateIndex, cfg.Model, traj.Scheme(), cfg.Steps)
	fmt.Println(portrait.ToASCII(70, 24))

	if svgFile != "" {
		f, err := os.Create(svgFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.PortraitSVG(f, portrait, 600, string(viz.CurrentTheme.Accent)); err != nil {
			return err
		}
		fmt.Println("wrote", svgFile)
	}
	return nil
}

func parseSweepParams(args []string) ([]string, [][]float64, error) {
	var names []string
	var ranges [][]float64
	for _, arg := range args {
		name, list, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, nil, fmt.Errorf("bad --param %q, want name=v1,v2,...", arg)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad value in --param %q: %w", arg, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseSweepParams(sweepParams)
	if err != nil {
		return err
	}
	grid, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	grid.FixedTime = fixedTime
	grid.Logger = newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	best, all, err := grid.Search(ctx, cfg, sweepMetric)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(sweepMetric))
	for _, ev := range all {
		vals := make([]string, len(names))
		for i, n := range names {
			vals[i] = strconv.FormatFloat(ev.Params[n], 'g', -1, 64)
		}
		if ev.Err != nil {
			fmt.Fprintf(w, "%s\tfailed: %v\n", strings.Join(vals, "\t"), ev.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6g\n", strings.Join(vals, "\t"), ev.Value)
	}
	w.Flush()
	if err != nil {
		return err
	}
	fmt.Printf("\nbest %s = %.6g at %v\n", sweepMetric, best.Value, best.Params)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, err := automation.RunScenario(ctx, sc, st, newLogger())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMODEL\tSCHEME\tSTEPS\tENERGY DRIFT\tRUN ID")
	for _, r := range results {
		id := r.RunID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3e\t%s\n", r.Name, r.Config.Model, r.Config.Scheme,
			r.Result.Steps, r.Result.Metrics["energy_drift"], id)
	}
	w.Flush()
	return err
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, rec, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, rec)
}

// startTrajectory builds a trajectory from cfg that is ready to Step.
func startTrajectory(cfg *config.Config) (*sim.Trajectory, error) {
	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return nil, err
	}
	traj := exp.Trajectory()
	if err := traj.Initialize(); err != nil {
		return nil, err
	}
	if err := traj.Startup(); err != nil {
		return nil, err
	}
	return traj, nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)
	return viz.RunLive(cfg.Model, func() (*sim.Trajectory, error) {
		return startTrajectory(cfg)
	}, stepsPerTick)
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := experiment.NewRegistry().ListModels()
	if len(args) > 0 {
		models = args
	}
	for _, model := range models {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			fmt.Printf("no presets for model: %s\n", model)
			continue
		}
		fmt.Printf("presets for %s:\n", model)
		for _, p := range presets {
			c := config.GetPreset(model, p)
			fmt.Printf("  %-12s scheme=%s dt=%g steps=%d sampling=%s\n", p, c.Scheme, c.Dt, c.Steps, c.Sampling)
		}
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	fmt.Printf("models:  %s\n", strings.Join(reg.ListModels(), ", "))
	fmt.Printf("engines: %s\n", strings.Join(reg.ListEngines(), ", "))
	var names []string
	for _, n := range integrators.Names() {
		if !integrators.SelfStarting(n) {
			n += " (needs startup)"
		}
		names = append(names, n)
	}
	fmt.Printf("schemes: %s\n", strings.Join(names, ", "))
	return nil
}

func printMetrics(m map[string]float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range sortedNames(m) {
		fmt.Fprintf(w, "  %s:\t%.6g\n", name, m[name])
	}
	w.Flush()
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func formatVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.4f", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
