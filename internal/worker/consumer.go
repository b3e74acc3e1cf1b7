package worker

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NudgeSource delivers enqueue notifications. Satisfied by
// *rabbitmq.Client.
type NudgeSource interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// startNudgeConsumer subscribes to enqueue nudges and forwards them as
// poll triggers.
func (w *Worker) startNudgeConsumer(ctx context.Context) error {
	deliveries, err := w.nudges.Consume(w.workerID)
	if err != nil {
		return err
	}

	go w.consumeNudges(ctx, deliveries)

	w.logger.Info("Nudge consumer started",
		slog.String("worker_id", w.workerID),
	)

	return nil
}

// consumeNudges turns each delivery into an immediate poll. The nudge
// body is irrelevant: the Postgres queue is the source of truth, so every
// nudge is acked regardless of content and a lost one costs at most one
// poll interval of latency.
func (w *Worker) consumeNudges(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Nudge consumer stopped - context canceled")
			return

		case <-w.stopChan:
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Nudge delivery channel closed")
				return
			}

			if err := delivery.Ack(false); err != nil {
				w.logger.Warn("Failed to ack nudge",
					slog.Any("error", err),
				)
			}

			// Collapse bursts: one pending trigger is enough.
			select {
			case w.pollNow <- struct{}{}:
			default:
			}
		}
	}
}
