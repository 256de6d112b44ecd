package cron

import (
	"context"
	"fmt"

	"github.com/medimandi/medimandi-backend/pkg/logger"
)

// requestExpirer is the slice of the auction service the job needs.
type requestExpirer interface {
	ExpireStaleRequests(ctx context.Context) (int, error)
}

// BidRequestExpiryJobParams configure the expiry sweep job.
type BidRequestExpiryJobParams struct {
	Logger  *logger.Logger
	Auction requestExpirer
}

// NewBidRequestExpiryJob builds the job that closes stale bid requests.
func NewBidRequestExpiryJob(params BidRequestExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Auction == nil {
		return nil, fmt.Errorf("auction service required")
	}
	return &bidRequestExpiryJob{
		logg:    params.Logger,
		auction: params.Auction,
	}, nil
}

type bidRequestExpiryJob struct {
	logg    *logger.Logger
	auction requestExpirer
}

func (j *bidRequestExpiryJob) Name() string { return "bid-request-expiry" }

func (j *bidRequestExpiryJob) Run(ctx context.Context) error {
	swept, err := j.auction.ExpireStaleRequests(ctx)
	if err != nil {
		return fmt.Errorf("expire stale bid requests: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "swept", swept)
	j.logg.Info(logCtx, "bid request expiry sweep complete")
	return nil
}
