package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultStream = "notifications"

// StreamNotifier enqueues messages onto a Redis Stream for an external
// delivery worker. XAdd is a single round trip, cheap enough to call inline
// after a status write.
type StreamNotifier struct {
	client *redis.Client
	stream string
}

func NewStreamNotifier(client *redis.Client) *StreamNotifier {
	return &StreamNotifier{
		client: client,
		stream: defaultStream,
	}
}

func (n *StreamNotifier) Notify(ctx context.Context, msg Message) error {
	err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{
			"kind":           msg.Kind,
			"recipient":      msg.Recipient,
			"subject":        msg.Subject,
			"body":           msg.Body,
			"appointment_id": msg.AppointmentID.String(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
