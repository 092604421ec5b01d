package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patchjudge/patchjudge/internal/eval"
	"github.com/patchjudge/patchjudge/internal/history"
	"github.com/patchjudge/patchjudge/internal/model"
	"github.com/patchjudge/patchjudge/internal/prompt"
	"github.com/patchjudge/patchjudge/internal/render"
)

var (
	flagIssue     string
	flagIssueFile string
	flagNotes     string
	flagRepoURL   string
	flagJSON      bool
	flagMarkdown  bool
	flagNoHistory bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <ground-truth.patch> <candidate.patch>",
	Short: "Evaluate a candidate patch against a ground-truth patch",
	Long: `Run one evaluation from the command line.

The two positional arguments are the ground-truth patch and the candidate
patch, as files in unified-diff format. The issue statement comes from
--issue (inline) or --issue-file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		issue, err := resolveIssue()
		if err != nil {
			return err
		}
		groundTruth, err := readPatch(args[0])
		if err != nil {
			return err
		}
		candidate, err := readPatch(args[1])
		if err != nil {
			return err
		}

		prompts, err := prompt.Load(cfg.PromptTemplatePath)
		if err != nil {
			return err
		}

		svc := eval.New(prompts)
		svc.MaxTokens = cfg.MaxTokens
		svc.Timeout = cfg.TimeoutDuration

		if !flagNoHistory {
			store, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("opening history database: %w", err)
			}
			defer store.Close()
			svc.History = store
		}

		res, err := svc.Evaluate(cmd.Context(), model.EvaluationRequest{
			IssueStatement:   issue,
			GroundTruthPatch: groundTruth,
			CandidatePatch:   candidate,
			Notes:            flagNotes,
			RepoURL:          flagRepoURL,
			Model:            cfg.Model,
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
		})
		if err != nil {
			return err
		}

		switch {
		case flagJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		case flagMarkdown:
			if err := render.WriteMarkdown(os.Stdout, res); err != nil {
				return err
			}
		default:
			fmt.Println(render.Terminal(res))
		}
		if res.Verdict == model.VerdictFail {
			os.Exit(1)
		}
		return nil
	},
}

// resolveIssue returns the issue statement from --issue or --issue-file.
func resolveIssue() (string, error) {
	if flagIssue != "" && flagIssueFile != "" {
		return "", fmt.Errorf("--issue and --issue-file are mutually exclusive")
	}
	if flagIssueFile != "" {
		data, err := os.ReadFile(flagIssueFile)
		if err != nil {
			return "", fmt.Errorf("reading issue file: %w", err)
		}
		return string(data), nil
	}
	if flagIssue == "" {
		return "", fmt.Errorf("an issue statement is required (--issue or --issue-file)")
	}
	return flagIssue, nil
}

// readPatch reads a patch file from disk, rejecting empty files.
func readPatch(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading patch: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", &model.FileFormatError{Name: path, Reason: "file is empty"}
	}
	return string(data), nil
}

func init() {
	evaluateCmd.Flags().StringVar(&flagIssue, "issue", "", "issue statement text")
	evaluateCmd.Flags().StringVar(&flagIssueFile, "issue-file", "", "file containing the issue statement")
	evaluateCmd.Flags().StringVar(&flagNotes, "notes", "", "optional constraints or extra context for the judge")
	evaluateCmd.Flags().StringVar(&flagRepoURL, "repo-url", "", "optional repository URL")
	evaluateCmd.Flags().BoolVar(&flagJSON, "json", false, "emit the full result as JSON")
	evaluateCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "emit the result as a markdown report (for CI logs and PR comments)")
	evaluateCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "skip recording the result in the history database")
	rootCmd.AddCommand(evaluateCmd)
}
