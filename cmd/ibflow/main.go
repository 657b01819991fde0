package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ibflow/internal/config"
	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/ib"
	"github.com/san-kum/ibflow/internal/mask"
	"github.com/san-kum/ibflow/internal/metrics"
	"github.com/san-kum/ibflow/internal/solver"
	"github.com/san-kum/ibflow/internal/storage"
	"github.com/san-kum/ibflow/internal/tui"
	"github.com/san-kum/ibflow/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	initValue  float64
	slicePlane int
	frameRate  int
	variable   string
	plotHeight int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ibflow",
		Short: "immersed boundary forcing engine",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ibflow", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation and store the result",
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&initValue, "init", 280.0, "initial field value")

	watchCmd := &cobra.Command{
		Use:   "watch [variable]",
		Short: "run simulation with a live slice view",
		Args:  cobra.ExactArgs(1),
		RunE:  watchSimulation,
	}
	watchCmd.Flags().Float64Var(&initValue, "init", 280.0, "initial field value")
	watchCmd.Flags().IntVar(&slicePlane, "slice", -1, "z-plane to render (padded index)")
	watchCmd.Flags().IntVar(&frameRate, "fps", 20, "frame rate")

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "interactive slice browser",
		RunE:  viewSimulation,
	}
	viewCmd.Flags().Float64Var(&initValue, "init", 280.0, "initial field value")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "check a configuration without running it",
		RunE:  validateConfig,
	}

	maskCmd := &cobra.Command{
		Use:   "mask",
		Short: "render the cell classification",
		RunE:  showMask,
	}
	maskCmd.Flags().IntVar(&slicePlane, "slice", -1, "z-plane to render (padded index)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored centerline profile",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&variable, "variable", "", "variable to plot (default: first stored)")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.Presets() {
				fmt.Println(p)
			}
		},
	}

	rootCmd.AddCommand(runCmd, watchCmd, viewCmd, validateCmd, maskCmd, plotCmd, listCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	switch {
	case preset != "" && configFile != "":
		return nil, fmt.Errorf("--preset and --config are mutually exclusive")
	case preset != "":
		return config.Preset(preset)
	case configFile != "":
		return config.Load(configFile)
	default:
		return nil, fmt.Errorf("either --preset or --config is required (presets: %s)",
			strings.Join(config.Presets(), ", "))
	}
}

func buildMask(cfg *config.Config, g grid.Spec) (*mask.Mask, error) {
	switch cfg.Geometry.Kind {
	case "", "none":
		return mask.New(g), nil
	case "slab":
		return mask.Slab(g, cfg.Geometry.Axis, cfg.Geometry.Top)
	case "box":
		return mask.Box(g, cfg.Geometry.Lo, cfg.Geometry.Hi)
	default:
		return nil, fmt.Errorf("unknown geometry kind %q", cfg.Geometry.Kind)
	}
}

// buildSolver assembles the full stack from a configuration: grid,
// mask, strategies, engine, and the demo stepper around them.
func buildSolver(cfg *config.Config, log *slog.Logger) (*solver.Solver, error) {
	g := cfg.GridSpec()
	if err := g.Validate(); err != nil {
		return nil, err
	}

	strategies, err := cfg.Strategies()
	if err != nil {
		return nil, err
	}

	eng, err := ib.New(g, strategies, ib.WithLogger(log))
	if err != nil {
		return nil, err
	}

	m, err := buildMask(cfg, g)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	sol, err := solver.New(eng, m, solver.DefaultWeights(g), solver.Config{
		Dt:            cfg.Solver.Dt,
		Steps:         cfg.Solver.Steps,
		Diffusivity:   cfg.Solver.Diffusivity,
		ValidateState: true,
	}, log)
	if err != nil {
		return nil, err
	}

	for _, name := range eng.Registry().Names() {
		sol.SetField(name, initValue)
	}
	return sol, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sol, err := buildSolver(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	variables := sol.Variables()
	collectors := make([]*metrics.Collector, 0, len(variables))
	for _, name := range variables {
		collectors = append(collectors, metrics.NewCollector(name,
			metrics.NewMean(), metrics.NewRange()))
	}
	observe := func(step int, s *solver.Solver, rep *ib.Report) bool {
		for _, c := range collectors {
			c.OnStep(step, s, rep)
		}
		return true
	}

	res, err := sol.Run(ctx, observe)
	if err != nil {
		return err
	}

	summary := make(map[string]float64)
	for _, c := range collectors {
		for k, v := range c.Summary() {
			summary[k] = v
		}
	}

	label := preset
	if label == "" {
		label = "run"
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(label, sol, variables, cfg.Solver.Dt, res, summary)
	if err != nil {
		return err
	}

	fmt.Printf("saved %s (%d steps)\n", runID, res.StepsTaken)
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %.6g\n", k, summary[k])
	}
	fmt.Println(viz.AnomalySummary(res.Anomalies))
	return nil
}

func defaultSlice(g grid.Spec) int {
	if slicePlane >= 0 {
		return slicePlane
	}
	return g.Halo + g.NZ/2
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sol, err := buildSolver(cfg, log)
	if err != nil {
		return err
	}
	if sol.Field(args[0]) == nil {
		return fmt.Errorf("no such variable %q (have: %s)", args[0], strings.Join(sol.Variables(), ", "))
	}

	ctx, cancel := signalContext()
	defer cancel()

	r := tui.NewLiveRenderer(args[0], defaultSlice(sol.Grid()), frameRate)
	r.Start()
	defer r.Stop()

	res, err := sol.Run(ctx, r.OnStep)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d steps\n", res.StepsTaken)
	return nil
}

func viewSimulation(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sol, err := buildSolver(cfg, log)
	if err != nil {
		return err
	}
	return tui.Run(sol, sol.Variables(), cfg.Solver.Steps)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	g := cfg.GridSpec()
	if err := g.Validate(); err != nil {
		return err
	}
	strategies, err := cfg.Strategies()
	if err != nil {
		return err
	}
	eng, err := ib.New(g, strategies)
	if err != nil {
		return err
	}
	m, err := buildMask(cfg, g)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}

	fluid, solid, iface := m.Counts()
	fmt.Printf("ok: grid %dx%dx%d halo %d\n", g.NX, g.NY, g.NZ, g.Halo)
	fmt.Printf("cells: %d fluid, %d solid, %d interface\n", fluid, solid, iface)
	for _, name := range eng.Registry().Names() {
		strat, _ := eng.Registry().StrategyFor(name)
		fmt.Printf("  %s -> %s\n", name, strat)
	}
	return nil
}

func showMask(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	g := cfg.GridSpec()
	if err := g.Validate(); err != nil {
		return err
	}
	m, err := buildMask(cfg, g)
	if err != nil {
		return err
	}
	fmt.Println(viz.MaskSlice(m, defaultSlice(g)))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	name := variable
	if name == "" {
		if len(meta.Variables) == 0 {
			return fmt.Errorf("run %s has no variables", args[0])
		}
		name = meta.Variables[0]
	}

	p, err := st.LoadProfile(args[0], name)
	if err != nil {
		return err
	}
	if len(p) == 0 {
		return fmt.Errorf("empty profile for %q", name)
	}

	fmt.Println(asciigraph.Plot(p,
		asciigraph.Height(plotHeight),
		asciigraph.Caption(fmt.Sprintf("%s centerline, run %s", name, meta.ID))))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGRID\tSTEPS\tVARIABLES\tANOMALIES\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%dx%dx%d\t%d\t%s\t%d\t%s\n",
			r.ID, r.Grid[0], r.Grid[1], r.Grid[2], r.Steps,
			strings.Join(r.Variables, ","), r.Anomalies,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
