package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/config"
	"github.com/temcen/mealrec/pkg/models"
)

const (
	maxRetries       = 3
	defaultBaseDelay = time.Second
)

// RecommendationServedEvent records one page of recommendations shown to a
// member.
type RecommendationServedEvent struct {
	EventID            uuid.UUID                 `json:"event_id"`
	RecommendationID   uuid.UUID                 `json:"recommendation_id"`
	MemberID           int64                     `json:"member_id"`
	RecommendationType models.RecommendationType `json:"recommendation_type"`
	StoreIDs           []int64                   `json:"store_ids"`
	Scores             []float64                 `json:"scores"`
	Page               int                       `json:"page"`
	Size               int                       `json:"size"`
	Total              int                       `json:"total"`
	CacheHit           bool                      `json:"cache_hit"`
	Partial            bool                      `json:"partial"`
	ServedAt           time.Time                 `json:"served_at"`
}

// ProfileChangedEvent announces that a member's scoring inputs changed and
// cached rankings must be dropped.
type ProfileChangedEvent struct {
	EventID            uuid.UUID                 `json:"event_id"`
	MemberID           int64                     `json:"member_id"`
	Field              string                    `json:"field"`
	RecommendationType models.RecommendationType `json:"recommendation_type,omitempty"`
	ChangedAt          time.Time                 `json:"changed_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Topics struct {
	RecommendationServed string
	MemberProfileChanged string
}

type EventBus struct {
	writer    messageWriter
	reader    messageReader
	topics    Topics
	baseDelay time.Duration
	logger    *logrus.Logger
}

func NewEventBus(cfg *config.Config, logger *logrus.Logger) *EventBus {
	topics := Topics{
		RecommendationServed: cfg.Kafka.Topics.RecommendationServed,
		MemberProfileChanged: cfg.Kafka.Topics.MemberProfileChanged,
	}

	// Topic is set per message.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Balancer:     &kafka.Hash{}, // keyed by member id
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topics.MemberProfileChanged,
		GroupID:        cfg.Kafka.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return newEventBus(writer, reader, topics, logger)
}

func newEventBus(writer messageWriter, reader messageReader, topics Topics, logger *logrus.Logger) *EventBus {
	return &EventBus{
		writer:    writer,
		reader:    reader,
		topics:    topics,
		baseDelay: defaultBaseDelay,
		logger:    logger,
	}
}

func (b *EventBus) PublishRecommendationServed(ctx context.Context, event RecommendationServedEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	return b.publish(ctx, b.topics.RecommendationServed, event.MemberID, event.EventID, event)
}

func (b *EventBus) PublishProfileChanged(ctx context.Context, event ProfileChangedEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	return b.publish(ctx, b.topics.MemberProfileChanged, event.MemberID, event.EventID, event)
}

func (b *EventBus) publish(ctx context.Context, topic string, memberID int64, eventID uuid.UUID, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := []byte(strconv.FormatInt(memberID, 10))
	message := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID.String())},
			{Key: "member_id", Value: key},
			{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.writer.WriteMessages(ctx, message); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"topic":     topic,
			"member_id": memberID,
		}).Error("Failed to publish event to Kafka")
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"event_id":  eventID,
		"member_id": memberID,
	}).Debug("Event published to Kafka")

	return nil
}

// ConsumeProfileChanges feeds profile change events to handler until ctx is
// done. Failed events are retried with exponential backoff and then
// committed anyway so one poison event cannot stall the partition.
func (b *EventBus) ConsumeProfileChanges(ctx context.Context, handler func(context.Context, ProfileChangedEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		message, err := b.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.WithError(err).Error("Failed to read message from Kafka")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.baseDelay):
			}
			continue
		}

		var event ProfileChangedEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			b.logger.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal profile change event")
		} else if err := b.processWithRetry(ctx, event, handler); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			b.logger.WithError(err).WithField("member_id", event.MemberID).Error("Dropping profile change event after retries")
		}

		if err := b.reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			b.logger.WithError(err).Error("Failed to commit Kafka offset")
		}
	}
}

func (b *EventBus) processWithRetry(ctx context.Context, event ProfileChangedEvent, handler func(context.Context, ProfileChangedEvent) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := b.baseDelay * time.Duration(1<<uint(attempt-1))
			b.logger.WithFields(logrus.Fields{
				"member_id": event.MemberID,
				"attempt":   attempt,
				"delay":     delay,
			}).Info("Retrying profile change event")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = handler(ctx, event); lastErr == nil {
			return nil
		}

		b.logger.WithError(lastErr).WithFields(logrus.Fields{
			"member_id": event.MemberID,
			"attempt":   attempt,
		}).Warn("Profile change handling failed")
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (b *EventBus) Close() error {
	var errs []error

	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	if err := b.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %w", errors.Join(errs...))
	}

	return nil
}
