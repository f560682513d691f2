// Package consumer binds the processing pipeline to the staged-payload
// stream. Each queue message carries one or more notifications; independent
// notifications are processed concurrently with all-must-succeed
// aggregation so one failure is never masked by the others succeeding.
package consumer

import (
	"context"
	"fmt"
	"sync"

	"github.com/transitwire-systems/avl-stack/common/logging"
	"github.com/transitwire-systems/avl-stack/common/messaging"
	natsclient "github.com/transitwire-systems/avl-stack/common/messaging/nats"
	"github.com/transitwire-systems/avl-stack/processor/internal/service"
)

// Consumer consumes staged-payload notifications from JetStream.
type Consumer struct {
	js        *natsclient.JetStreamClient
	processor *service.Processor
	logger    *logging.Logger
}

// New constructs the consumer.
func New(js *natsclient.JetStreamClient, processor *service.Processor, logger *logging.Logger) *Consumer {
	return &Consumer{js: js, processor: processor, logger: logger}
}

// Start ensures the stream and durable consumer exist, then begins
// consuming. Returns a stop function.
func (c *Consumer) Start(ctx context.Context) (func(), error) {
	if _, err := c.js.CreateOrUpdateStream(ctx, natsclient.AVLStagedStream); err != nil {
		return nil, fmt.Errorf("ensure staged stream: %w", err)
	}

	consumerCfg := natsclient.DefaultConsumerConfig(
		messaging.ConsumerAVLProcessor,
		messaging.SubjectAVLStaged+".>",
	)
	if _, err := c.js.CreateOrUpdateConsumer(ctx, messaging.StreamAVLStaged, consumerCfg); err != nil {
		return nil, fmt.Errorf("ensure processor consumer: %w", err)
	}

	stop, err := c.js.ConsumeMessages(ctx, messaging.StreamAVLStaged, messaging.ConsumerAVLProcessor, c.handleMessage)
	if err != nil {
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Consuming staged payload notifications")
	return stop, nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg *messaging.Message) error {
	notifications, err := messaging.DecodeStagedObjectNotifications(msg.Data)
	if err != nil {
		// A malformed notification will never decode on redelivery;
		// log it and drop the message rather than retrying forever.
		c.logger.ErrorContext(ctx, "Dropping undecodable staged payload notification",
			logging.Error(err))
		return nil
	}

	return c.ProcessBatch(ctx, notifications)
}

// ProcessBatch runs independent notifications concurrently and fails if any
// unit of work failed.
func (c *Consumer) ProcessBatch(ctx context.Context, notifications []messaging.StagedObjectNotification) error {
	if len(notifications) == 1 {
		_, err := c.processor.Process(ctx, notifications[0])
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, len(notifications))

	for i, n := range notifications {
		wg.Add(1)
		go func(i int, n messaging.StagedObjectNotification) {
			defer wg.Done()
			_, errs[i] = c.processor.Process(ctx, n)
		}(i, n)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
