package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
	kafka_middleware "staybook/pkg/kafka/middleware"
	"staybook/pkg/logger"
)

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// redriver republishes dead-lettered messages to the topic they were originally bound for.
type redriver struct {
	publisher  publisher
	maxRetries int
	log        *logger.Logger

	republished int
	skipped     int
}

func (r *redriver) handle(ctx context.Context, msg kafka.Message) error {
	topic, ok := msg.GetHeader(kafka.HeaderOriginalTopic)
	if !ok || topic == "" {
		r.skipped++
		r.log.Warn("Dead-lettered message has no original topic, skipping",
			"key", msg.Key,
			"offset", msg.Offset,
		)
		return nil
	}
	if r.maxRetries > 0 && msg.GetRetryCount() >= r.maxRetries {
		r.skipped++
		r.log.Warn("Dead-lettered message exhausted its redrives, skipping",
			"topic", topic,
			"key", msg.Key,
			"retries", msg.GetRetryCount(),
		)
		return nil
	}

	out := kafka.Message{
		Topic:     topic,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   make(map[string]string, len(msg.Headers)),
		Timestamp: time.Now(),
	}
	for k, v := range msg.Headers {
		switch k {
		case kafka.HeaderOriginalTopic, kafka.HeaderDLQError, kafka.HeaderDLQTimestamp:
			continue
		}
		out.Headers[k] = v
	}
	out.IncrementRetryCount()

	if err := r.publisher.Publish(ctx, out); err != nil {
		return kafka.NewTransientError(fmt.Sprintf("failed to republish to %s", topic), err)
	}
	r.republished++
	return nil
}

func redriveCmd() *cobra.Command {
	var (
		duration   time.Duration
		maxRetries int
		groupID    string
	)

	cmd := &cobra.Command{
		Use:   "redrive",
		Short: "Republish dead-lettered notifications to their original topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			kafkaCfg, err := kafka_config.Load()
			if err != nil {
				return err
			}
			kafkaCfg.LogConfiguration(cfg.Log.Info)

			producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
			if err != nil {
				return err
			}
			defer producer.Close()

			r := &redriver{publisher: producer, maxRetries: maxRetries, log: cfg.Log}
			if groupID == "" {
				groupID = kafkaCfg.ConsumerGroup + "-redrive"
			}
			consumer, err := kafka.NewConsumer(kafkaCfg, kafkaCfg.DLQTopic, groupID, r.handle, cfg.Log)
			if err != nil {
				return err
			}
			defer consumer.Close()

			metrics := kafka_middleware.NewMetrics()
			consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
			consumer.Use(metrics.ConsumerMiddleware())

			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()

			cfg.Log.Info("Redriving dead letters", "topic", kafkaCfg.DLQTopic, "group", groupID, "for", duration)
			err = consumer.Start(ctx)
			cfg.Log.Info("Redrive finished",
				append([]any{"republished", r.republished, "skipped", r.skipped}, metrics.Snapshot().LogArgs()...)...)

			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "republished: %d, skipped: %d\n", r.republished, r.skipped)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "How long to drain the dead-letter topic")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 5, "Skip messages already redriven this many times (0 = no limit)")
	cmd.Flags().StringVar(&groupID, "group", "", "Consumer group (defaults to <consumer group>-redrive)")
	return cmd
}
