package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// CleanupQueue carries records whose metadata and cold-tier state may have
	// diverged; a reconciliation consumer drains it out of band.
	CleanupQueue      = "image.cleanup"
	CleanupExchange   = "image.exchange"
	CleanupRoutingKey = "image.cleanup"
)

// Cleanup reasons.
const (
	ReasonOrphanedMetadata = "orphaned_metadata" // row exists, cold write failed and compensation failed too
	ReasonDisabled         = "disabled"          // record disabled, hot-tier purge may need retrying
)

// CleanupMessage asks the reconciliation consumer to restore consistency for
// one image record.
type CleanupMessage struct {
	Key         string `json:"key"`
	StoragePath string `json:"storage_path"`
	Reason      string `json:"reason"`
	Timestamp   int64  `json:"timestamp"`
}

// CleanupProduceService publishes cleanup messages for out-of-band
// reconciliation.
type CleanupProduceService struct {
	channel *amqp.Channel
}

func InitCleanupProduceService(channel *amqp.Channel) *CleanupProduceService {
	service := &CleanupProduceService{channel: channel}

	err := channel.ExchangeDeclare(
		CleanupExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare cleanup exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		CleanupQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare cleanup queue: " + err.Error())
	}

	err = channel.QueueBind(
		CleanupQueue,
		CleanupRoutingKey,
		CleanupExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind cleanup queue: " + err.Error())
	}

	return service
}

func (s *CleanupProduceService) PublishCleanup(ctx context.Context, key, storagePath, reason string) error {
	msg := CleanupMessage{
		Key:         key,
		StoragePath: storagePath,
		Reason:      reason,
		Timestamp:   time.Now().Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(ctx,
		CleanupExchange,
		CleanupRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
