package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/config"
	"github.com/rustyeddy/gptrader/evolve"
	"github.com/rustyeddy/gptrader/export"
	"github.com/rustyeddy/gptrader/journal"
	"github.com/rustyeddy/gptrader/market"
	"github.com/rustyeddy/gptrader/metrics"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Evolve a trading rule from historical bars",
	Long: `Evolve a population of rules against an OHLC CSV, replay the best one
and write best_tree.txt and gp_rule.mqh to the output directory.

The bars may carry ema50,ema200,rsi14,atr14 columns; otherwise the
indicators are computed and the warm-up rows dropped.

Example:
  gptrader evolve --data data/EURUSD_M15_in.csv --seed 42 --out-dir out`,
	RunE: runEvolve,
}

var (
	evData        string
	evInstrument  string
	evSeed        int64
	evWorkers     int
	evPopulation  int
	evGenerations int
	evOutDir      string
)

func init() {
	rootCmd.AddCommand(evolveCmd)

	evolveCmd.Flags().StringVarP(&evData, "data", "d", "", "OHLC CSV to train on (overrides data.path)")
	evolveCmd.Flags().StringVarP(&evInstrument, "instrument", "i", "", "instrument, e.g. EUR_USD (overrides data.instrument)")
	evolveCmd.Flags().Int64Var(&evSeed, "seed", evolve.DefaultSeed, "random seed")
	evolveCmd.Flags().IntVarP(&evWorkers, "workers", "w", 0, "fitness workers (0 = one per CPU)")
	evolveCmd.Flags().IntVarP(&evPopulation, "population", "p", evolve.DefaultPopulation, "population size")
	evolveCmd.Flags().IntVarP(&evGenerations, "generations", "g", evolve.DefaultGenerations, "number of generations")
	evolveCmd.Flags().StringVarP(&evOutDir, "out-dir", "o", "", "artifact directory (overrides export.out_dir)")
}

// applyEvolveFlags lets explicitly set flags win over the file and env.
func applyEvolveFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("data") {
		cfg.Data.Path = evData
	}
	if f.Changed("instrument") {
		cfg.Data.Instrument = evInstrument
	}
	if f.Changed("seed") {
		cfg.Evolution.Seed = evSeed
	}
	if f.Changed("workers") {
		cfg.Evolution.Workers = evWorkers
	}
	if f.Changed("population") {
		cfg.Evolution.Population = evPopulation
	}
	if f.Changed("generations") {
		cfg.Evolution.Generations = evGenerations
	}
	if f.Changed("out-dir") {
		cfg.Export.OutDir = evOutDir
	}
}

func runEvolve(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()
	applyEvolveFlags(cmd, cfg)

	bars, err := loadBars(cfg.Data)
	if err != nil {
		return err
	}
	params, err := cfg.Backtest.Params(cfg.Data.Instrument)
	if err != nil {
		return fmt.Errorf("backtest params: %w", err)
	}
	eval := backtest.NewEvaluator(bars, params)

	workers := cfg.Evolution.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	opts := cfg.Evolution.Options(workers)

	run := journal.NewRun(&market.BarSet{Instrument: cfg.Data.Instrument, Source: cfg.Data.Path, Bars: bars})
	run.Seed = opts.Seed
	run.Population = opts.Population
	run.Generations = opts.Generations
	log = log.With().Str("run_id", run.RunID).Logger()

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.DBPath, cfg.Journal.Dir)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	rec := metrics.New(run.RunID)
	var logbook []journal.GenerationRecord

	fmt.Printf("Evolving %s on %d bars from %s\n", cfg.Data.Instrument, len(bars), cfg.Data.Path)
	fmt.Printf("  Population: %d  Generations: %d  Workers: %d  Seed: %d\n",
		opts.Population, opts.Generations, workers, opts.Seed)

	ev := evolve.New(eval, opts).
		WithLogger(log).
		OnGeneration(func(s evolve.GenStats) {
			rec.ObserveGeneration(s)
			g := journal.GenerationFrom(run.RunID, s)
			logbook = append(logbook, g)
			if err := j.RecordGeneration(g); err != nil {
				log.Warn().Err(err).Int("gen", s.Gen).Msg("journal generation")
			}
		})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := ev.Run(ctx)
	if err != nil {
		return fmt.Errorf("evolve: %w", err)
	}
	run.Duration = time.Since(start)
	run.Evaluations = res.Evaluations

	rep, err := eval.Replay(res.Best.Tree)
	if err != nil {
		return fmt.Errorf("replay best rule: %w", err)
	}
	rec.ObserveReport(rep)

	paths, err := export.WriteAll(cfg.Export.OutDir, res.Best.Tree, cfg.Export.Options())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	run.TreePath, run.MQLPath = paths.Tree, paths.MQL
	run.ApplyReport(rep)

	if err := j.RecordRun(run); err != nil {
		return fmt.Errorf("journal run: %w", err)
	}
	trades := make([]journal.TradeRecord, 0, len(rep.Trades))
	for _, t := range rep.Trades {
		tr := journal.TradeFrom(run.RunID, cfg.Data.Instrument, bars, t)
		if err := j.RecordTrade(tr); err != nil {
			return fmt.Errorf("journal trade: %w", err)
		}
		trades = append(trades, tr)
	}

	var orgPath string
	if cfg.Journal.Org {
		orgPath = filepath.Join(cfg.Export.OutDir, "run_"+run.RunID+".org")
		report := journal.Report{Run: run, Generations: logbook, Trades: trades, Notes: journal.Observe(run, logbook)}
		if err := journal.WriteOrgFile(orgPath, report); err != nil {
			return err
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	fmt.Println()
	fmt.Printf("✓ Evolution complete in %s (%d evaluations)\n", run.Duration.Round(time.Millisecond), run.Evaluations)
	fmt.Printf("  Run ID:  %s\n", run.RunID)
	fmt.Printf("  Rule:    %s\n", rep.Rule)
	printReport(rep)
	fmt.Printf("  Wrote:   %s\n", paths.Tree)
	fmt.Printf("           %s\n", paths.MQL)
	if orgPath != "" {
		fmt.Printf("           %s\n", orgPath)
	}
	return nil
}

// printReport prints the backtest summary lines shared with eval.
func printReport(rep backtest.Report) {
	r := rep.Result
	fmt.Printf("  Fitness: %.2f\n", rep.Score)
	fmt.Printf("  Equity:  $%.2f -> $%.2f (%.2f%%)\n", r.InitialEquity, r.FinalEquity, r.ReturnPct)
	fmt.Printf("  Max DD:  %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("  Trades:  %d (W %d / L %d / forced %d, win rate %.1f%%)\n",
		r.Trades, r.Wins, r.Losses, r.ForcedCloses, rep.WinRate())
	if r.OpenTrade != nil {
		fmt.Printf("  Open:    %s from bar %d at %.5f\n", r.OpenTrade.Side, r.OpenTrade.EntryIdx, r.OpenTrade.Entry)
	}
}
