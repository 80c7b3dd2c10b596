package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/mmst/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	dt           float64
	steps        int
	seed         int64
	scheme       string
	startup      string
	sampling     string
	zeroPoint    float64
	initialState int
	recordEvery  int

	runs         int
	stepsPerTick int
	outDir       string
	stateIndex   int
	showPlot     bool
	theme        string
	svgFile      string
	sweepParams  []string
	sweepMetric  string
	fixedTime    bool
)

// main registers the mmst commands and runs the root command, exiting
// with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "mmst",
		Short:         "mapping-variable nonadiabatic dynamics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mmst", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "integrate one trajectory and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrajectory,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "print population chart after the run")

	compareCmd := &cobra.Command{
		Use:   "compare [model] [scheme...]",
		Short: "compare integration schemes on the same model",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSchemes,
	}
	addSimFlags(compareCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "average populations over trajectories with consecutive seeds",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addSimFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 16, "number of trajectories")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "terminal charts of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	plotPNGCmd := &cobra.Command{
		Use:   "plot-png [run_id]",
		Short: "write population and energy PNGs of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRunPNG,
	}
	plotPNGCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: the run directory)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "population power spectrum and dominant frequency",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&stateIndex, "state", 0, "electronic state")

	phaseCmd := &cobra.Command{
		Use:   "phase [model]",
		Short: "orbit of one mapping oscillator in the (q, p) plane",
		Args:  cobra.MaximumNArgs(1),
		RunE:  phasePortrait,
	}
	addSimFlags(phaseCmd)
	phaseCmd.Flags().IntVar(&stateIndex, "state", 0, "electronic state")
	phaseCmd.Flags().StringVar(&svgFile, "svg", "", "also write the portrait as SVG to this file")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "grid search over config parameters for the smallest metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "energy_drift", "metric to minimise")
	sweepCmd.Flags().BoolVar(&fixedTime, "fixed-time", true, "rescale steps so every point covers the same time")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of runs from YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "print a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a trajectory with live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerTick, "steps-per-tick", 4, "integration steps per frame")
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets, for one model or all",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models, engines and schemes",
		RunE:  listModels,
	}

	rootCmd.AddCommand(runCmd, compareCmd, ensembleCmd, listCmd, plotCmd, plotPNGCmd,
		analyzeCmd, phaseCmd, sweepCmd, scenarioCmd, exportCmd, liveCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "step size")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for sampled mapping angles")
	cmd.Flags().StringVar(&scheme, "scheme", config.DefaultScheme, "integration scheme")
	cmd.Flags().StringVar(&startup, "startup", config.DefaultStartup, "startup scheme for multistep integrators")
	cmd.Flags().StringVar(&sampling, "sampling", "focused", "mapping initial conditions: focused or sampled")
	cmd.Flags().Float64Var(&zeroPoint, "zero-point", 0, "zero-point parameter gamma")
	cmd.Flags().IntVar(&initialState, "initial-state", 0, "initially occupied electronic state")
	cmd.Flags().IntVar(&recordEvery, "every", config.DefaultEvery, "record one sample every n steps")
}

// newLogger writes logfmt to stderr. Only warnings and errors pass unless
// --verbose is set.
func newLogger() log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowWarn())
}

// resolveConfig builds the run configuration. Later sources win: model
// defaults, then --preset, then --config, then explicitly set flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	model := ""
	if len(args) > 0 {
		model = args[0]
	}

	cfg := config.DefaultConfig()
	if model != "" && model != config.DefaultModel {
		if names := config.ListPresets(model); len(names) > 0 {
			cfg = config.GetPreset(model, names[0])
		}
		cfg.Model = model
	}

	if preset != "" {
		if model == "" {
			model = cfg.Model
		}
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s (available: %v)", preset, model, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if model != "" {
			cfg.Model = model
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("scheme") {
		cfg.Scheme = scheme
	}
	if flags.Changed("startup") {
		cfg.Startup = startup
	}
	if flags.Changed("sampling") {
		cfg.Sampling = sampling
	}
	if flags.Changed("zero-point") {
		cfg.ZeroPoint = zeroPoint
	}
	if flags.Changed("initial-state") {
		cfg.InitialState = initialState
	}
	if flags.Changed("every") {
		cfg.RecordEvery = recordEvery
	}
	return cfg, nil
}
