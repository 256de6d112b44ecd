package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/medimandi/medimandi-backend/pkg/config"
	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
	"github.com/medimandi/medimandi-backend/pkg/logger"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakePubSub struct{ err error }

func (f *fakePubSub) Ping(context.Context) error            { return f.err }
func (f *fakePubSub) DomainPublisher() *gcppubsub.Publisher { return nil }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	fetchErr  error
}

func (f *fakeRepo) FetchUnpublished(limit int, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	events := f.events
	f.events = nil
	return events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeResult struct{ err error }

func (f *fakeResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return &fakeResult{err: f.err}
}

func publisherTestConfig() *config.Config {
	return &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 50,
			MaxAttempts:    3,
		},
	}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:           publisherTestConfig(),
		Logger:           logger.New(logger.Options{ServiceName: "test"}),
		DB:               &fakePinger{},
		PubSub:           &fakePubSub{},
		Repository:       repo,
		PublisherFactory: func() publisher { return pub },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func outboxEvent(attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventBidCreated,
		AggregateType: enums.AggregateBid,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     time.Now(),
		AttemptCount:  attempts,
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := outboxEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Errorf("processed = false")
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages", len(pub.messages))
	}
	msg := pub.messages[0]
	if string(msg.Data) != `{"version":1}` {
		t.Errorf("payload = %s", msg.Data)
	}
	if msg.Attributes["event_type"] != "bid_created" {
		t.Errorf("event_type attribute = %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Errorf("aggregate_id attribute = %q", msg.Attributes["aggregate_id"])
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Errorf("published ids = %v", repo.published)
	}
	if len(repo.failed) != 0 {
		t.Errorf("failed ids = %v", repo.failed)
	}
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	bad := outboxEvent(1)
	good := outboxEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{bad, good}}
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Errorf("processed = false")
	}
	if len(repo.failed) != 2 {
		t.Errorf("failed ids = %v", repo.failed)
	}
	if len(repo.published) != 0 {
		t.Errorf("published ids = %v", repo.published)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Errorf("processed = true for empty batch")
	}
}

func TestRunFailsWhenDependencyDown(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Config:           publisherTestConfig(),
		Logger:           logger.New(logger.Options{ServiceName: "test"}),
		DB:               &fakePinger{err: errors.New("connection refused")},
		PubSub:           &fakePubSub{},
		Repository:       &fakeRepo{},
		PublisherFactory: func() publisher { return &fakePublisher{} },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Errorf("Run succeeded with database down")
	}
}
