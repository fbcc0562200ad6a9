package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/0xknstntn/news-checker/internal/health"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/queue"
	"github.com/0xknstntn/news-checker/internal/worker"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume verification tasks from the queue",
	Long: `Worker starts a fixed pool of consumers on the task queue.

Each consumer takes one task at a time, verifies it and delivers the
report to the originating conversation. Tasks claimed by a previous
process that never acknowledged them are returned to the queue first.

SIGINT or SIGTERM stops taking new tasks; tasks in flight run to completion.

Example:
  newscheck worker
  newscheck worker --concurrency 10 --queue-addr redis:6379
  NEWSCHECK_DISPATCH_KIND=stdout newscheck worker --health-addr :8081`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	// Flag defaults mirror the built-in config so unset flags change nothing
	defaults := model.DefaultConfig()
	workerCmd.Flags().Int("concurrency", defaults.Worker.Concurrency, "number of concurrent workers")
	workerCmd.Flags().String("queue-addr", defaults.Queue.Addr, "Redis address (host:port)")
	workerCmd.Flags().String("queue-key", defaults.Queue.Key, "Redis list holding pending tasks")
	workerCmd.Flags().String("dispatcher", defaults.Dispatch.Kind, "result dispatcher: telegram, webhook or stdout")
	workerCmd.Flags().String("health-addr", defaults.Telemetry.HealthAddr, "serve gRPC health checks on this address (empty disables)")

	_ = viper.BindPFlag("worker.concurrency", workerCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("queue.addr", workerCmd.Flags().Lookup("queue-addr"))
	_ = viper.BindPFlag("queue.key", workerCmd.Flags().Lookup("queue-key"))
	_ = viper.BindPFlag("dispatch.kind", workerCmd.Flags().Lookup("dispatcher"))
	_ = viper.BindPFlag("telemetry.health_addr", workerCmd.Flags().Lookup("health-addr"))
}

type pinger interface {
	Ping(ctx context.Context) error
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(nil)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := queue.Open(cfg.Queue)
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	if p, ok := q.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("queue unreachable at %s: %w", cfg.Queue.Addr, err)
		}
	}
	if a.provider != nil {
		if err := a.provider.Ping(ctx); err != nil {
			a.logger.Warn("llm provider unreachable; verdicts will fall back to heuristics", "provider", a.provider.Name(), "err", err)
		}
	}

	healthDone := make(chan error, 1)
	if cfg.Telemetry.HealthAddr != "" {
		var probe health.Probe
		if p, ok := q.(pinger); ok {
			probe = p.Ping
		}
		srv, err := health.New(cfg.Telemetry.HealthAddr, probe, 10*time.Second, a.logger)
		if err != nil {
			return err
		}
		go func() { healthDone <- srv.Serve(ctx) }()
	} else {
		healthDone <- nil
	}

	consumer := worker.NewConsumer(q, a.pipeline, worker.ConsumerOptions{
		Workers:        cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Queue.DequeueTimeout,
		ErrorSleep:     cfg.Worker.ErrorSleep,
	}, a.logger.With("consumer", cfg.Queue.ConsumerID))

	runErr := consumer.Run(ctx)
	stop()
	if err := <-healthDone; err != nil {
		a.logger.Warn("health server stopped with error", "err", err)
	}
	return runErr
}
