package cron

import (
	"context"
	"errors"
	"testing"
)

type fakeExpirer struct {
	swept int
	err   error
	calls int
}

func (f *fakeExpirer) ExpireStaleRequests(ctx context.Context) (int, error) {
	f.calls++
	return f.swept, f.err
}

func TestBidRequestExpiryJobRunsSweep(t *testing.T) {
	expirer := &fakeExpirer{swept: 3}
	job, err := NewBidRequestExpiryJob(BidRequestExpiryJobParams{
		Logger:  testLogger(),
		Auction: expirer,
	})
	if err != nil {
		t.Fatalf("NewBidRequestExpiryJob: %v", err)
	}
	if job.Name() != "bid-request-expiry" {
		t.Errorf("name = %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.calls != 1 {
		t.Errorf("sweep calls = %d, want 1", expirer.calls)
	}
}

func TestBidRequestExpiryJobPropagatesErrors(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	job, err := NewBidRequestExpiryJob(BidRequestExpiryJobParams{
		Logger:  testLogger(),
		Auction: expirer,
	})
	if err != nil {
		t.Fatalf("NewBidRequestExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
