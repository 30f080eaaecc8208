package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/gp"
	"github.com/rustyeddy/gptrader/journal"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Backtest a single rule",
	Long: `Parse a rule written in tree notation and print its backtest report.

Terminals are EMA50, EMA200, RSI14 and ATR14; functions are add, sub,
mul, protected_div, gt, lt and if_func.

Example:
  gptrader eval --data data/EURUSD_M15_in.csv \
    --rule "if_func(gt(EMA50, EMA200), 1, -1)"`,
	RunE: runEval,
}

var (
	evalData       string
	evalInstrument string
	evalRule       string
	evalTrades     bool
)

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalData, "data", "d", "", "OHLC CSV to test on (overrides data.path)")
	evalCmd.Flags().StringVarP(&evalInstrument, "instrument", "i", "", "instrument (overrides data.instrument)")
	evalCmd.Flags().StringVarP(&evalRule, "rule", "r", "", "rule in tree notation (required)")
	evalCmd.Flags().BoolVar(&evalTrades, "trades", false, "print every trade as an Org entry")
	evalCmd.MarkFlagRequired("rule")
}

func runEval(cmd *cobra.Command, args []string) error {
	tree, err := gp.Parse(evalRule)
	if err != nil {
		return fmt.Errorf("parse rule: %w", err)
	}

	cfg, _, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()
	if cmd.Flags().Changed("data") {
		cfg.Data.Path = evalData
	}
	if cmd.Flags().Changed("instrument") {
		cfg.Data.Instrument = evalInstrument
	}

	bars, err := loadBars(cfg.Data)
	if err != nil {
		return err
	}
	params, err := cfg.Backtest.Params(cfg.Data.Instrument)
	if err != nil {
		return fmt.Errorf("backtest params: %w", err)
	}

	rep, err := backtest.NewEvaluator(bars, params).Replay(tree)
	if err != nil {
		return err
	}

	fmt.Printf("Rule: %s\n", rep.Rule)
	fmt.Printf("  Bars:    %d (%s)\n", rep.Bars, cfg.Data.Instrument)
	printReport(rep)

	if evalTrades && len(rep.Trades) > 0 {
		records := make([]journal.TradeRecord, len(rep.Trades))
		for i, t := range rep.Trades {
			records[i] = journal.TradeFrom("", cfg.Data.Instrument, bars, t)
		}
		fmt.Println()
		fmt.Print(journal.FormatTradesOrg(records))
	}
	return nil
}
