package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/patchjudge/patchjudge/internal/history"
	"github.com/patchjudge/patchjudge/internal/model"
)

var (
	flagHistoryLimit int
	flagHistoryJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent evaluations",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer store.Close()

		results, err := store.Recent(flagHistoryLimit)
		if err != nil {
			return err
		}

		if flagHistoryJSON {
			if results == nil {
				results = []model.EvaluationResult{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		if len(results) == 0 {
			fmt.Println("no evaluations recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tVERDICT\tOVERALL\tSCORES\tMODEL\tID")
		for _, res := range results {
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%d/%d/%d\t%s\t%s\n",
				res.EvaluatedAt.Format("2006-01-02 15:04"),
				res.Verdict,
				res.OverallScore,
				res.Scores.FunctionalCorrectness,
				res.Scores.Completeness,
				res.Scores.BehavioralEquivalence,
				res.Model,
				res.ID,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		counts, err := store.Counts()
		if err != nil {
			return err
		}
		fmt.Printf("\ntotal: %d pass, %d partial, %d fail\n",
			counts[model.VerdictPass], counts[model.VerdictPartial], counts[model.VerdictFail])
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum number of evaluations to list")
	historyCmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "emit the results as JSON")
	rootCmd.AddCommand(historyCmd)
}
