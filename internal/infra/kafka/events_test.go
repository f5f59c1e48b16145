package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error {
	close(f.errors)
	return nil
}

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, prefix string) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()
	asyncProducer := newFakeAsyncProducer()
	producer := newProducer(asyncProducer, config.KafkaSettings{TopicPrefix: prefix}, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "account-service",
		Env:  "test",
	}, zaptest.NewLogger(t))
	return publisher, asyncProducer
}

func receiveEnvelope(t *testing.T, asyncProducer *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()
	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}
		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishEmailUpdated(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t, "prod")

	updatedAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	event := domain.EmailUpdatedEvent{
		EventID:   "event-123",
		UserID:    "user-789",
		OldEmail:  "old@example.com",
		NewEmail:  "new@example.com",
		UpdatedAt: updatedAt,
		Metadata:  map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishEmailUpdated(context.Background(), event); err != nil {
		t.Fatalf("PublishEmailUpdated returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "prod.idp.user.email_updated" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	key, err := msg.Key.Encode()
	if err != nil || string(key) != event.UserID {
		t.Fatalf("expected message keyed by user id, got %q (%v)", key, err)
	}

	if got := envelope["event_id"]; got != event.EventID {
		t.Fatalf("unexpected event_id: %v", got)
	}
	if got := envelope["event_type"]; got != TopicEmailUpdated {
		t.Fatalf("unexpected event_type: %v", got)
	}
	if got := envelope["user_id"]; got != event.UserID {
		t.Fatalf("unexpected user_id: %v", got)
	}
	if got := envelope["version"]; got != schemaVersion {
		t.Fatalf("unexpected version: %v", got)
	}
	if got := envelope["timestamp"]; got != updatedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", got)
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["old_email"] != event.OldEmail || payload["new_email"] != event.NewEmail {
		t.Fatalf("unexpected payload: %v", payload)
	}
	metadata, ok := payload["metadata"].(map[string]any)
	if !ok || metadata["source"] != "unit-test" {
		t.Fatalf("metadata did not round-trip: %v", payload["metadata"])
	}

	envelopeMetadata, ok := envelope["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
	}
	if envelopeMetadata["service"] != "account-service" || envelopeMetadata["environment"] != "test" {
		t.Fatalf("unexpected envelope metadata: %v", envelopeMetadata)
	}
}

func TestPublishAssignsEventIDAndTopics(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t, "")
	ctx := context.Background()

	cases := []struct {
		name    string
		publish func() error
		topic   string
	}{
		{"updated", func() error {
			return publisher.PublishUserUpdated(ctx, domain.UserUpdatedEvent{UserID: "u1", Fields: []string{"full_name"}})
		}, TopicUserUpdated},
		{"email requested", func() error {
			return publisher.PublishEmailUpdateRequested(ctx, domain.EmailUpdateRequestedEvent{UserID: "u1", NewEmail: "n@example.com"})
		}, TopicEmailUpdateRequested},
		{"password", func() error {
			return publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{UserID: "u1"})
		}, TopicPasswordChanged},
		{"deleted", func() error {
			return publisher.PublishUserDeleted(ctx, domain.UserDeletedEvent{UserID: "u1"})
		}, TopicUserDeleted},
		{"suspension", func() error {
			return publisher.PublishSuspensionChanged(ctx, domain.SuspensionChangedEvent{UserID: "u1", Suspended: true})
		}, TopicSuspensionChanged},
		{"admin", func() error {
			return publisher.PublishAdminChanged(ctx, domain.AdminChangedEvent{UserID: "u1", IsAdmin: true})
		}, TopicAdminChanged},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.publish(); err != nil {
				t.Fatalf("publish returned error: %v", err)
			}
			msg, envelope := receiveEnvelope(t, asyncProducer)
			if msg.Topic != tc.topic {
				t.Fatalf("expected topic %s, got %s", tc.topic, msg.Topic)
			}
			if id, _ := envelope["event_id"].(string); id == "" {
				t.Fatalf("expected generated event id")
			}
			if _, ok := envelope["timestamp"].(string); !ok {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t, "")

	// fill the buffered input so the next send blocks
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishUserDeleted(ctx, domain.UserDeletedEvent{UserID: "u1"})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTopicName(t *testing.T) {
	p := &Producer{cfg: config.KafkaSettings{TopicPrefix: "stage"}}

	if got := p.TopicName(TopicUserDeleted); got != "stage.idp.user.deleted" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := p.TopicName("stage.idp.user.deleted"); got != "stage.idp.user.deleted" {
		t.Fatalf("prefix applied twice: %s", got)
	}
}

func TestProducerForwardsDeliveryErrors(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	producer := newProducer(asyncProducer, config.KafkaSettings{}, zaptest.NewLogger(t))
	defer producer.Close()

	asyncProducer.errors <- &sarama.ProducerError{
		Msg: &sarama.ProducerMessage{Topic: TopicUserUpdated},
		Err: sarama.ErrOutOfBrokers,
	}

	select {
	case err := <-producer.Errors():
		if err != sarama.ErrOutOfBrokers {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for forwarded error")
	}
}

func TestStubPublisherAcceptsEveryEvent(t *testing.T) {
	stub := NewStubPublisher(zaptest.NewLogger(t))
	ctx := context.Background()

	if err := stub.PublishUserUpdated(ctx, domain.UserUpdatedEvent{UserID: "u1"}); err != nil {
		t.Fatalf("PublishUserUpdated: %v", err)
	}
	if err := stub.PublishEmailUpdated(ctx, domain.EmailUpdatedEvent{UserID: "u1"}); err != nil {
		t.Fatalf("PublishEmailUpdated: %v", err)
	}
	if err := stub.PublishAdminChanged(ctx, domain.AdminChangedEvent{UserID: "u1"}); err != nil {
		t.Fatalf("PublishAdminChanged: %v", err)
	}
}
