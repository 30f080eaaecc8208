package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gptrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled evolution runs",
	Long: `Query and display run records from a SQLite journal.

Subcommands:
  runs    - List recent runs
  show    - Print one run as an Org report
  trades  - Print the best rule's trades of a run

Examples:
  gptrader journal runs --limit 5
  gptrader journal show <run-id>
  gptrader journal trades <run-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run as an Org report",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <run-id>",
	Short: "Print the trades of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalTradesCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./gptrader.sqlite", "path to SQLite journal DB")
	journalRunsCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum runs to list (0 = all)")
}

func openJournal() (*journal.SQLite, error) {
	if _, err := os.Stat(journalDBPath); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(journalLimit)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-26s  %-16s  %-8s  %5s  %9s  %8s  %6s\n", "RUN ID", "CREATED", "PAIR", "GENS", "FITNESS", "RETURN%", "TRADES")
	for _, r := range runs {
		fmt.Printf("%-26s  %-16s  %-8s  %5d  %9.2f  %8.2f  %6d\n",
			r.RunID, r.Created.Local().Format("2006-01-02 15:04"), r.Instrument,
			r.Generations, r.BestFitness, r.ReturnPct, r.Trades)
	}
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	gens, err := j.ListGenerations(run.RunID)
	if err != nil {
		return fmt.Errorf("query generations: %w", err)
	}
	trades, err := j.ListTrades(run.RunID)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	return journal.WriteOrg(os.Stdout, journal.Report{
		Run: run, Generations: gens, Trades: trades, Notes: journal.Observe(run, gens),
	})
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTrades(args[0])
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Println(journal.FormatTradesOrg(recs))
	return nil
}
