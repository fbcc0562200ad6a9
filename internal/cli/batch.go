package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xknstntn/news-checker/internal/dispatch"
	"github.com/0xknstntn/news-checker/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchJSON    bool
	batchLLM     string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many claims from a file in parallel",
	Long: `Batch verifies many inputs concurrently, without the queue:
- Read inputs from a file (one per line, # starts a comment, "-" reads stdin)
- Verify inputs in parallel with a configurable worker count
- Print every report in input order

Example:
  newscheck batch claims.txt
  newscheck batch claims.txt --concurrency 4 --json > results.jsonl
  cat claims.txt | newscheck batch -`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent checks")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print one JSON result per line")
	batchCmd.Flags().StringVar(&batchLLM, "llm", "", "use the LLM strategy with this provider (openai, anthropic, ollama)")
}

type batchLine struct {
	Input  string `json:"input"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := resolveConfig(oneShot(false, batchLLM))
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  newscheck batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Strategy:     %s\n", cfg.Verify.Strategy)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n\n", batchTimeout)

	processor := worker.NewBatchProcessor(a.pipeline, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			if batchJSON {
				_ = enc.Encode(batchLine{Input: result.Input, Error: result.Error.Error()})
			}
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Input, result.Error)
			continue
		}

		successCount++
		if batchJSON {
			if err := enc.Encode(batchLine{Input: result.Input, Result: result.Result}); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			continue
		}
		fmt.Fprintf(out, "▶ %s\n%s\n\n", result.Input, dispatch.FormatResult(result.Result))
	}

	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n\n", failureCount)

	return nil
}
