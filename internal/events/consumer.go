package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"carevault/internal/contextutil"
	"carevault/internal/rag"
	"carevault/internal/service"
)

// Notification event types.
const (
	EventUploaded = "uploaded"
	EventDeleted  = "deleted"
)

// Notification is the document lifecycle event published by the upload
// frontend.
type Notification struct {
	Type       string `json:"type"`
	OwnerID    string `json:"owner_id"`
	DocumentID string `json:"document_id"`
	SourceURI  string `json:"source_uri,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
}

// Consumer pulls document notifications from Kafka and drives the service.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	service service.Service
	logger  *slog.Logger
}

// NewConsumer joins the given consumer group on the brokers.
func NewConsumer(brokers []string, groupID, topic string, svc service.Service, logger *slog.Logger) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to join consumer group: %w", err)
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		service: svc,
		logger:  logger,
	}, nil
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	handler := &groupHandler{consumer: c}

	go func() {
		for err := range c.group.Errors() {
			c.logger.ErrorContext(ctx, "consumer group error", "error", err)
		}
	}()

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume failed: %w", err)
		}
		// Consume returns on rebalance; loop unless we are shutting down.
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

// handle dispatches one notification. A handler error is returned to the
// claim loop so the message is redelivered; malformed payloads are logged
// and skipped.
func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var n Notification
	if err := json.Unmarshal(value, &n); err != nil {
		c.logger.WarnContext(ctx, "skipping malformed notification", "error", err)
		return nil
	}
	if n.OwnerID == "" || n.DocumentID == "" {
		c.logger.WarnContext(ctx, "skipping notification without owner or document ID",
			"type", n.Type)
		return nil
	}

	ctx = contextutil.WithLogger(ctx, c.logger.With(
		"document_id", n.DocumentID, "owner_id", n.OwnerID))

	switch n.Type {
	case EventUploaded:
		_, err := c.service.Ingest(ctx, service.IngestRequest{
			OwnerID:    n.OwnerID,
			DocumentID: n.DocumentID,
			SourceURI:  n.SourceURI,
			MIMEType:   n.MIMEType,
		})
		if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, rag.ErrCrossOwnerAccess) {
			// Retrying a bad notification cannot succeed.
			c.logger.WarnContext(ctx, "rejecting notification", "error", err)
			return nil
		}
		var stageErr *service.StageError
		if errors.As(err, &stageErr) && stageErr.Stage != service.StageEmbed {
			// Unreadable content stays FAILED until re-uploaded; redelivery
			// would only fail the same way.
			c.logger.WarnContext(ctx, "document failed ingestion",
				"stage", stageErr.Stage, "error", err)
			return nil
		}
		return err
	case EventDeleted:
		return c.service.Remove(ctx, n.OwnerID, n.DocumentID)
	default:
		c.logger.WarnContext(ctx, "skipping notification of unknown type", "type", n.Type)
		return nil
	}
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	consumer *Consumer
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.consumer.handle(session.Context(), msg.Value); err != nil {
				// Leave the offset unmarked so the message is redelivered.
				return err
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
