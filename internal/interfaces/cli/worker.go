package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jasmincar/milo-lab/internal/application/gibbs"
	"github.com/jasmincar/milo-lab/internal/infrastructure/messaging/kafka"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/prometheus"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	var skipTopics bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process reverse-transform requests from Kafka",
		Long: "Consumes reverse-transform requests, reads each input object, stores the\n" +
			"result table and publishes a completion event. Failing requests are\n" +
			"retried and then dead-lettered. Runs until SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cliCtx.Config.Messaging.Kafka.Enabled {
				return errors.InvalidState("the worker requires messaging.kafka.enabled")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, cliCtx, !skipTopics)
		},
	}

	cmd.Flags().BoolVar(&skipTopics, "skip-topic-setup", false, "do not create the default topics on startup")
	return cmd
}

func runWorker(ctx context.Context, cliCtx *CLIContext, ensureTopics bool) error {
	kc := cliCtx.Config.Messaging.Kafka
	logger := cliCtx.Logger.Named("worker")

	if ensureTopics {
		if err := setupTopics(ctx, kc.Brokers, logger); err != nil {
			logger.Warn("topic setup failed; relying on broker auto-creation", logging.Err(err))
		}
	}

	rt, err := runtimeFor(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer rt.Close()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(kc), rt.Producer, logger.Named("consumer"))
	if err != nil {
		return err
	}
	defer consumer.Close()

	if rt.Collector != nil {
		release := prometheus.ExportGaugeFunc(rt.Collector, cliCtx.Config.Monitoring.Metrics.Namespace,
			"worker_consumer_lag", "Records between the worker offset and the partition high-water mark.",
			func() float64 {
				m := consumer.GetMetrics()
				return float64(m.Lag.Load())
			})
		defer release()
	}

	consumer.Subscribe(kc.RequestTopic, gibbs.RequestHandler(rt.Service, rt.Metrics, logger))
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	logger.Info("worker running",
		logging.String("topic", kc.RequestTopic),
		logging.String("group", kc.GroupID))

	<-ctx.Done()
	logger.Info("worker stopping")
	return nil
}

func setupTopics(ctx context.Context, brokers []string, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(brokers, logger.Named("topics"))
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureDefaultTopics(ctx)
}

//Personal.AI order the ending
