package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/queue"
	"github.com/0xknstntn/news-checker/internal/worker"
)

var (
	enqueueChatID    string
	enqueueSessionID string
	enqueueFile      string
)

// enqueueCmd represents the enqueue command
var enqueueCmd = &cobra.Command{
	Use:   "enqueue [text]",
	Short: "Push verification tasks onto the queue",
	Long: `Enqueue pushes task envelopes in the chat bot's producer format:

  {"input": "...", "chat_id": "...", "session_id": "..."}

Example:
  newscheck enqueue "Company X laid off 500 employees" --chat-id 123456789
  newscheck enqueue --file claims.txt --chat-id 123456789`,
	Args: func(cmd *cobra.Command, args []string) error {
		if enqueueFile == "" && len(args) == 0 {
			return fmt.Errorf("provide the text to verify or --file")
		}
		return nil
	},
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().StringVar(&enqueueChatID, "chat-id", "", "conversation that receives the report (required)")
	enqueueCmd.Flags().StringVar(&enqueueSessionID, "session-id", "", "producer session id (optional)")
	enqueueCmd.Flags().StringVar(&enqueueFile, "file", "", "read one input per line from a file (\"-\" for stdin)")
	_ = enqueueCmd.MarkFlagRequired("chat-id")
}

type producerEnvelope struct {
	Input     string `json:"input"`
	ChatID    string `json:"chat_id"`
	SessionID string `json:"session_id,omitempty"`
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := resolveConfig(func(cfg *model.Config) {
		cfg.Dispatch.Kind = "stdout"
	})
	if err != nil {
		return err
	}

	inputs := []string{strings.TrimSpace(strings.Join(args, " "))}
	if enqueueFile != "" {
		inputs, err = worker.ReadInputsFromFile(enqueueFile)
		if err != nil {
			return err
		}
	}

	q, err := queue.Open(cfg.Queue)
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	for _, input := range inputs {
		payload, err := json.Marshal(producerEnvelope{Input: input, ChatID: enqueueChatID, SessionID: enqueueSessionID})
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		if _, err := queue.DecodeTask(payload); err != nil {
			return fmt.Errorf("refusing to enqueue %q: %w", input, err)
		}
		if err := q.Enqueue(ctx, payload); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
	}

	n, err := q.Len(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Enqueued %d task(s) on %s (%d pending)\n", len(inputs), cfg.Queue.Key, n)
	return nil
}
