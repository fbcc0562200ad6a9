package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xknstntn/news-checker/internal/dispatch"
	"github.com/0xknstntn/news-checker/internal/model"
)

var (
	checkJSON    bool
	checkDeliver string
	checkTimeout time.Duration
	checkLLM     string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Verify a single claim and print the report",
	Long: `Check runs one verification in-process, without the queue:
- Split the text into at most three checkable claims
- Search news and web engines for evidence
- Read the most authoritative pages
- Score each claim and print the report

Example:
  newscheck check "Company X laid off 500 employees this week"
  newscheck check "..." --json
  newscheck check "..." --llm openai
  newscheck check "..." --deliver 123456789   # send to a Telegram chat`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	checkCmd.Flags().StringVar(&checkDeliver, "deliver", "", "also deliver the report to this conversation id")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 3*time.Minute, "overall verification timeout")
	checkCmd.Flags().StringVar(&checkLLM, "llm", "", "use the LLM strategy with this provider (openai, anthropic, ollama)")
}

// oneShot adapts the configuration for commands that do not consume the queue
func oneShot(deliver bool, provider string) func(*model.Config) {
	return func(cfg *model.Config) {
		cfg.Queue.Backend = "memory"
		cfg.Journal.Path = ""
		if !deliver {
			cfg.Dispatch.Kind = "stdout"
		}
		if provider != "" {
			cfg.LLM.Provider = provider
			cfg.Verify.Strategy = "llm"
		}
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	input := strings.TrimSpace(strings.Join(args, " "))
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	cfg, err := resolveConfig(oneShot(checkDeliver != "", checkLLM))
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.Check(ctx, input)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	report := dispatch.FormatResult(res)
	if checkJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), report)
	}

	if checkDeliver != "" {
		if err := a.dispatcher.Deliver(ctx, checkDeliver, report); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Delivered to %s via %s\n", checkDeliver, a.dispatcher.Name())
		}
	}
	return nil
}
