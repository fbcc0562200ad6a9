package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0xknstntn/news-checker/internal/model"
)

// Checker verifies a single free-text input
type Checker interface {
	Check(ctx context.Context, input string) (*model.VerificationResult, error)
}

// CheckJob verifies one input
type CheckJob struct {
	Input   string
	Checker Checker
}

// Execute runs the check
func (j *CheckJob) Execute(ctx context.Context) Result {
	result, err := j.Checker.Check(ctx, j.Input)
	return &CheckResult{Input: j.Input, Result: result, Error: err}
}

// CheckResult is the outcome of one CheckJob
type CheckResult struct {
	Input  string
	Result *model.VerificationResult
	Error  error
}

// GetError returns the error from the check
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks many inputs concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessInputs checks inputs concurrently and returns results in input order
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*CheckResult {
	if len(inputs) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, input := range inputs {
		if !pool.Submit(&CheckJob{Input: input, Checker: b.checker}) {
			break
		}
	}

	results := pool.Wait()
	out := make([]*CheckResult, len(results))
	for i, r := range results {
		out[i] = r.(*CheckResult)
	}
	return out
}

// ProcessFile reads inputs from a file and checks them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads one claim per line; "-" reads stdin
func ReadInputsFromFile(filePath string) ([]string, error) {
	if filePath == "-" {
		return ReadInputs(os.Stdin)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadInputs(file)
}

// ReadInputs reads non-empty, non-comment lines and drops duplicates
func ReadInputs(r io.Reader) ([]string, error) {
	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return inputs, nil
}
