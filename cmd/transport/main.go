package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"

	"github.com/edp1096/toy-transport/internal/fluxplot"
	"github.com/edp1096/toy-transport/internal/history"
	"github.com/edp1096/toy-transport/internal/report"
	"github.com/edp1096/toy-transport/internal/watch"
	"github.com/edp1096/toy-transport/pkg/analysis"
	"github.com/edp1096/toy-transport/pkg/input"
	"github.com/edp1096/toy-transport/pkg/problem"
	"github.com/edp1096/toy-transport/pkg/solver"
	"github.com/edp1096/toy-transport/pkg/util"
)

type options struct {
	dbPath      string
	plotPath    string
	verbose     bool
	printMatrix bool
	logger      *slog.Logger
	store       *history.Store
}

func getKeys(m map[string][]float64, prefix string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func printResults(results map[string][]float64) {
	fmt.Println("\nAnalysis Results:")
	fmt.Println("================")

	if times, isTran := results["TIME"]; isTran {
		totals := getKeys(results, "TOTAL_")
		fmt.Printf("\nTransient Analysis Results (%d time points):\n", len(times))
		fmt.Println("Time        Group Totals")
		fmt.Println("------------------------------------------------")
		for i, t := range times {
			fmt.Printf("%9s  ", util.FormatValueFactor(t, "s"))
			for _, name := range totals {
				fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], ""))
			}
			fmt.Println()
		}
	}

	fluxes := getKeys(results, "PHI_")
	fmt.Printf("\nScalar Flux (%d cells):\n", len(results["X"]))
	fmt.Printf("%10s", "x")
	for _, name := range fluxes {
		fmt.Printf("  %14s", name)
	}
	fmt.Println()
	for i, x := range results["X"] {
		fmt.Print(util.FormatPosition(x))
		for _, name := range fluxes {
			fmt.Printf("  %14.6e", results[name][i])
		}
		fmt.Println()
	}

	if _, isTran := results["TIME"]; !isTran {
		fmt.Println("\nGroup Totals:")
		for _, name := range getKeys(results, "TOTAL_") {
			fmt.Printf("%s = %s\n", name, util.FormatValueFactor(results[name][0], ""))
		}
	}
}

func simulate(ctx context.Context, path string, opts options) error {
	if opts.verbose {
		fmt.Printf("\n[1] Reading deck file: %s\n", path)
	}
	deck, err := input.Load(path)
	if err != nil {
		return err
	}

	if opts.verbose {
		fmt.Println("\n[2] Building problem")
	}
	p, err := deck.Build(problem.WithLogger(opts.logger))
	if err != nil {
		return fmt.Errorf("building problem: %w", err)
	}
	defer p.Destroy()

	settings := p.Settings()
	strategy := solver.StrategyFor(settings.Upscattering, settings.WithinGroup)
	if opts.verbose {
		fmt.Printf("Title: %s\n", p.Name())
		fmt.Printf("Method: %s, strategy: %s\n", settings.Method, strategy)
		fmt.Printf("Cells: %d, systems: %s\n", p.Mesh().NumCells(), strings.Join(p.SystemNames(), " "))
	}

	reporters := solver.Reporters{report.NewConsole(os.Stdout)}
	var run *history.Run
	if opts.store != nil {
		run, err = opts.store.BeginRun(ctx, p.Name(), strategy)
		if err != nil {
			return err
		}
		reporters = append(reporters, run)
	}
	reporter := []solver.Option{solver.WithReporter(reporters)}

	if opts.verbose {
		fmt.Println("\n[3] Setting up analyzer")
	}
	var analyzer analysis.Analysis
	kind := analysis.STEADY
	if deck.Transient != nil {
		kind = analysis.TRAN
	}
	switch kind {
	case analysis.STEADY:
		analyzer = analysis.NewSteady(deck.SolverConfig(), opts.logger, reporter...)
	case analysis.TRAN:
		tr := deck.Transient
		scheme, _ := util.ParseTimeScheme(tr.Scheme)
		analyzer = analysis.NewTransient(deck.SolverConfig(), float64(tr.EndTime), float64(tr.TimeStep),
			scheme, tr.FromSteady, opts.logger, reporter...)
		if opts.verbose {
			fmt.Printf("Created Transient analyzer (step=%g, stop=%g, scheme=%s, from_steady=%v)\n",
				float64(tr.TimeStep), float64(tr.EndTime), scheme, tr.FromSteady)
		}
	}

	if err := analyzer.Setup(p); err != nil {
		return fmt.Errorf("analysis setup failed: %w", err)
	}

	if opts.verbose {
		fmt.Println("\n[4] Executing analysis")
	}
	execErr := analyzer.Execute()
	if run != nil && run.Err() != nil {
		opts.logger.Warn("history not fully recorded", slog.String("error", run.Err().Error()))
	}
	if opts.printMatrix {
		p.PrintSystems(os.Stdout)
	}
	if execErr != nil {
		return fmt.Errorf("analysis execution failed: %w", execErr)
	}

	printResults(analyzer.GetResults())

	if opts.plotPath != "" {
		if err := fluxplot.SaveResults(opts.plotPath, p.Name(), analyzer.GetResults()); err != nil {
			return err
		}
		fmt.Printf("\nFlux profile written to %s\n", opts.plotPath)
	}
	return nil
}

func printHistory(ctx context.Context, store *history.Store) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-5s %-25s %-35s %-6s %s\n", "ID", "Started", "Strategy", "Steps", "Title")
	for _, r := range runs {
		status := "FAILED"
		if r.Converged {
			status = "ok"
		}
		fmt.Printf("%-5d %-25s %-35s %-6d %s [%s]\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Strategy, r.Steps, r.Title, status)
	}
	return nil
}

func main() {
	var opts options
	flag.StringVar(&opts.dbPath, "db", "", "record solve history in this SQLite database")
	flag.StringVar(&opts.plotPath, "plot", "", "write the scalar flux profile to this image file")
	flag.BoolVar(&opts.verbose, "v", false, "verbose output and debug logging")
	flag.BoolVar(&opts.printMatrix, "matrix", false, "print the assembled equation systems")
	watchDeck := flag.Bool("watch", false, "rerun whenever the deck file changes")
	listRuns := flag.Bool("history", false, "list the runs recorded in -db and exit")
	flag.Parse()

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	opts.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.dbPath != "" {
		store, err := history.Open(opts.dbPath)
		if err != nil {
			log.Fatalf("Error opening history database: %v", err)
		}
		defer store.Close()
		opts.store = store
	}

	if *listRuns {
		if opts.store == nil {
			log.Fatal("-history needs -db")
		}
		if err := printHistory(ctx, opts.store); err != nil {
			log.Fatalf("Error reading history: %v", err)
		}
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: transport [-db history.db] [-plot flux.png] [-watch] [-v] deck.yaml")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	if !*watchDeck {
		if err := simulate(ctx, path, opts); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	var mu sync.Mutex
	rerun := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := simulate(ctx, path, opts); err != nil {
			opts.logger.Error("simulation failed", slog.String("deck", path), slog.String("error", err.Error()))
		}
	}
	rerun()
	if err := watch.File(ctx, path, watch.DefaultDebounce, opts.logger, rerun); err != nil {
		log.Fatalf("Error watching deck: %v", err)
	}
}
