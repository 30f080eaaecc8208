package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gptrader/export"
	"github.com/rustyeddy/gptrader/gp"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a rule to MQL5",
	Long: `Render a rule as an MQL5 include that defines the signal function
and the indicator handles it needs.

Example:
  gptrader export --rule "if_func(gt(EMA50, EMA200), 1, -1)" --out gp_rule.mqh`,
	RunE: runExport,
}

var (
	exportRule     string
	exportOut      string
	exportFunction string
	exportDeadZone float64
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportRule, "rule", "r", "", "rule in tree notation (required)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", export.MQLFile, "output path, - for stdout")
	exportCmd.Flags().StringVar(&exportFunction, "function", "", "signal function name (overrides export.function)")
	exportCmd.Flags().Float64Var(&exportDeadZone, "dead-zone", 0, "signal dead zone (overrides export.dead_zone)")
	exportCmd.MarkFlagRequired("rule")
}

func runExport(cmd *cobra.Command, args []string) error {
	tree, err := gp.Parse(exportRule)
	if err != nil {
		return fmt.Errorf("parse rule: %w", err)
	}

	cfg, _, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := cfg.Export.Options()
	if cmd.Flags().Changed("function") {
		opts.Function = exportFunction
	}
	if cmd.Flags().Changed("dead-zone") {
		opts.DeadZone = exportDeadZone
	}

	src, err := export.MQL(tree, opts)
	if err != nil {
		return err
	}
	if exportOut == "-" {
		_, err = os.Stdout.Write(src)
		return err
	}

	if dir := filepath.Dir(exportOut); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(exportOut, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}

	fmt.Printf("✓ Exported %s\n", exportOut)
	fmt.Printf("  Function: int %s(int shift)\n", opts.Function)
	fmt.Printf("  Rule:     %s\n", tree)
	return nil
}
