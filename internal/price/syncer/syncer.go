// Package syncer drives price feed output into the record store on a daily
// schedule, idempotently.
package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/internal/price"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

const dateCodeLayout = "20060102"

// Feed is the slice of the price feed client the syncer needs.
type Feed interface {
	FetchPrices(ctx context.Context, dateCode string) ([]model.PriceRecord, error)
}

// Syncer pulls feed records and appends the ones not seen before. Runs for
// the same date are collapsed through singleflight: a retry racing with the
// scheduled run shares one execution instead of double-inserting. The store's
// uniqueness constraint backs this up across processes.
type Syncer struct {
	feed     Feed
	repo     price.Repository
	logger   logger.ZapLogger
	group    singleflight.Group
	syncHour int
}

func New(feed Feed, repo price.Repository, log logger.ZapLogger, syncHour int) *Syncer {
	return &Syncer{
		feed:     feed,
		repo:     repo,
		logger:   log,
		syncHour: syncHour,
	}
}

// SyncDate synchronizes the feed records published for dateCode (yyyyMMdd)
// and reports how many new records were stored.
func (s *Syncer) SyncDate(ctx context.Context, dateCode string) (int, error) {
	v, err, _ := s.group.Do(dateCode, func() (interface{}, error) {
		return s.syncDate(ctx, dateCode)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *Syncer) syncDate(ctx context.Context, dateCode string) (int, error) {
	runID := uuid.New().String()

	records, err := s.feed.FetchPrices(ctx, dateCode)
	if err != nil {
		s.logger.Error("price feed fetch failed",
			zap.String("run_id", runID),
			zap.String("date", dateCode),
			zap.Error(err))
		return 0, err
	}

	synced := 0
	for i := range records {
		rec := records[i]

		exists, err := s.repo.Exists(ctx, rec.ProductName, rec.Grade, rec.PriceDate)
		if err != nil {
			s.logger.Warn("existence check failed, skipping record",
				zap.String("run_id", runID),
				zap.String("product", rec.ProductName),
				zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		inserted, err := s.repo.Insert(ctx, &rec)
		if err != nil {
			s.logger.Warn("insert failed, skipping record",
				zap.String("run_id", runID),
				zap.String("product", rec.ProductName),
				zap.Error(err))
			continue
		}
		if inserted {
			synced++
		}
	}

	s.logger.Info("price data sync complete",
		zap.String("run_id", runID),
		zap.String("date", dateCode),
		zap.Int("fetched", len(records)),
		zap.Int("synced", synced))
	return synced, nil
}

// SyncRange walks from startCode to endCode in one-month steps and syncs each
// sampled date. Used for administrative backfills.
func (s *Syncer) SyncRange(ctx context.Context, startCode, endCode string) (int, error) {
	start, err := time.Parse(dateCodeLayout, startCode)
	if err != nil {
		return 0, err
	}
	end, err := time.Parse(dateCodeLayout, endCode)
	if err != nil {
		return 0, err
	}

	total := 0
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		n, err := s.SyncDate(ctx, cur.Format(dateCodeLayout))
		if err != nil {
			s.logger.Warn("skipping sync date",
				zap.String("date", cur.Format(dateCodeLayout)),
				zap.Error(err))
			continue
		}
		total += n
	}
	return total, nil
}

// Run blocks, syncing today's feed once per day at the configured hour, until
// the context is canceled. Errors are logged and the loop keeps going.
func (s *Syncer) Run(ctx context.Context) {
	s.logger.Info("starting price sync scheduler", zap.Int("hour", s.syncHour))
	for {
		next := s.nextRun(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("stopping price sync scheduler")
			return
		case <-timer.C:
			dateCode := time.Now().Format(dateCodeLayout)
			if _, err := s.SyncDate(ctx, dateCode); err != nil {
				s.logger.Error("scheduled price sync failed",
					zap.String("date", dateCode),
					zap.Error(err))
			}
		}
	}
}

func (s *Syncer) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.syncHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
