package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xknstntn/news-checker/internal/dispatch"
	"github.com/0xknstntn/news-checker/internal/journal"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/queue"
)

var (
	journalOutcome string
	journalLimit   int
)

// journalCmd represents the journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect task outcomes and replay dropped tasks",
	Long: `Journal reads the task outcome journal written by the worker.

Every consumed task is recorded as succeeded, dropped, delivery_failed or
panicked. Failed entries keep the raw envelope so they can be re-enqueued.`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent task outcomes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(func(ctx context.Context, store *journal.Store, cfg *model.Config) error {
			entries, err := store.List(ctx, journal.Filter{Outcome: model.Outcome(journalOutcome), Limit: journalLimit})
			if err != nil {
				return err
			}
			t := newTable(48, "ID", "TIME", "OUTCOME", "LABEL", "SCORE", "CONVERSATION", "DETAIL")
			for _, e := range entries {
				score := ""
				if e.Label != "" {
					score = strconv.Itoa(e.Score)
				}
				t.add(
					strconv.FormatInt(e.ID, 10),
					e.CreatedAt.Local().Format(time.DateTime),
					string(e.Outcome),
					e.Label.Display(),
					score,
					e.ConversationID,
					e.Error,
				)
			}
			return t.render(cmd.OutOrStdout())
		})
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one journal entry with its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		return withJournal(func(ctx context.Context, store *journal.Store, cfg *model.Config) error {
			e, err := store.Get(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entry:         %d\n", e.ID)
			fmt.Fprintf(out, "Time:          %s\n", e.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Outcome:       %s\n", e.Outcome)
			fmt.Fprintf(out, "Task:          %s\n", e.TaskID)
			fmt.Fprintf(out, "Conversation:  %s\n", e.ConversationID)
			fmt.Fprintf(out, "Duration:      %s\n", e.Duration)
			if e.Error != "" {
				fmt.Fprintf(out, "Error:         %s\n", e.Error)
			}
			if e.Payload != "" {
				fmt.Fprintf(out, "Payload:       %s\n", e.Payload)
			}
			if e.Result != nil {
				fmt.Fprintf(out, "\n%s\n", dispatch.FormatResult(e.Result))
			}
			return nil
		})
	},
}

var journalReplayCmd = &cobra.Command{
	Use:   "replay <id>",
	Short: "Re-enqueue the payload of a failed task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		return withJournal(func(ctx context.Context, store *journal.Store, cfg *model.Config) error {
			q, err := queue.Open(cfg.Queue)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			e, err := store.Replay(ctx, id, q)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Re-enqueued entry %d (%s) on %s\n", e.ID, e.Outcome, cfg.Queue.Key)
			return nil
		})
	},
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count task outcomes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(func(ctx context.Context, store *journal.Store, cfg *model.Config) error {
			counts, err := store.Counts(ctx)
			if err != nil {
				return err
			}
			outcomes := make([]string, 0, len(counts))
			for o := range counts {
				outcomes = append(outcomes, string(o))
			}
			sort.Strings(outcomes)

			t := newTable(0, "OUTCOME", "COUNT")
			for _, o := range outcomes {
				t.add(o, strconv.FormatInt(counts[model.Outcome(o)], 10))
			}
			return t.render(cmd.OutOrStdout())
		})
	},
}

func withJournal(fn func(ctx context.Context, store *journal.Store, cfg *model.Config) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := resolveConfig(func(cfg *model.Config) {
		cfg.Dispatch.Kind = "stdout"
	})
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return fmt.Errorf("journal is disabled (journal.path is empty)")
	}

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(ctx, store, cfg)
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd, journalShowCmd, journalReplayCmd, journalStatsCmd)

	journalListCmd.Flags().StringVar(&journalOutcome, "outcome", "", "only show this outcome (succeeded, dropped, delivery_failed, panicked)")
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 20, "maximum entries to show")
}
