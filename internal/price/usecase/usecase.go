package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/internal/price"
	"github.com/greenmarket/catalog-service/internal/price/dto"
	"github.com/greenmarket/catalog-service/internal/price/match"
	"github.com/greenmarket/catalog-service/internal/price/stats"
	"github.com/greenmarket/catalog-service/pkg/cache"
	"github.com/greenmarket/catalog-service/pkg/logger"
	"github.com/pkg/errors"
)

const (
	comparisonCacheTTL   = 5 * time.Minute
	segmentWindowMonths  = 3
	defaultTrendMonths   = 6
	latestRecordsDefault = 20
)

type priceUseCase struct {
	repo     price.Repository
	cache    *cache.RedisClient // optional
	pool     *match.HistoryPool
	fixtures *Fixtures // nil unless a fixture path is configured
	logger   logger.ZapLogger
	now      func() time.Time
}

func NewPriceUseCase(repo price.Repository, cacheClient *cache.RedisClient, pool *match.HistoryPool, fixtures *Fixtures, log logger.ZapLogger) price.UseCase {
	return &priceUseCase{
		repo:     repo,
		cache:    cacheClient,
		pool:     pool,
		fixtures: fixtures,
		logger:   log,
		now:      time.Now,
	}
}

// primaryKeyword extracts the leading token of a seller-entered product name.
// Names like "상추, 무농약 4kg" should match feed records stored as "상추".
func primaryKeyword(productName string) string {
	fields := strings.FieldsFunc(productName, func(r rune) bool {
		return r == ',' || r == '，' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func (uc *priceUseCase) CompareToCurrent(ctx context.Context, productName string, currentPrice *float64) (*model.PriceComparison, error) {
	if strings.TrimSpace(productName) == "" {
		return nil, errors.New("product name is required")
	}

	if cached := uc.cachedComparison(ctx, productName, currentPrice); cached != nil {
		return cached, nil
	}

	keyword := primaryKeyword(productName)
	now := uc.now()

	curStart := monthStart(now)
	lastStart := curStart.AddDate(0, -1, 0)
	lastEnd := curStart.AddDate(0, 0, -1)

	lastMonth := uc.findRecords(ctx, keyword, lastStart, lastEnd)
	currentMonth := uc.findRecords(ctx, keyword, curStart, now)

	lastAvg := stats.Average(lastMonth)
	curAvg := stats.Average(currentMonth)

	comp := &model.PriceComparison{
		ProductName:         productName,
		LastMonthAverage:    lastAvg,
		CurrentMonthAverage: curAvg,
		CurrentProductPrice: currentPrice,
	}

	if len(lastMonth) == 0 && len(currentMonth) == 0 {
		if fx, ok := uc.fixtures.Lookup(productName); ok {
			comp.LastMonthAverage = fx.LastMonthAverage
			comp.CurrentMonthAverage = fx.CurrentMonthAverage
			lastAvg, curAvg = fx.LastMonthAverage, fx.CurrentMonthAverage
			comp.HasData = true
		}
	} else {
		comp.HasData = true
	}

	comp.PriceChangeRate = changeRateFor(currentPrice, lastAvg, curAvg)

	// A caller-supplied price is itself comparable even with zero history.
	if currentPrice != nil && *currentPrice > 0 {
		comp.HasData = true
	}

	uc.storeComparison(ctx, productName, currentPrice, comp)
	return comp, nil
}

// changeRateFor picks the comparison baseline: the caller's price against the
// current-month average, falling back to the last-month average; without a
// caller price, current month against last month.
func changeRateFor(currentPrice *float64, lastAvg, curAvg float64) float64 {
	if currentPrice != nil && *currentPrice > 0 {
		if rate, ok := stats.ChangeRate(curAvg, *currentPrice); ok {
			return rate
		}
		if rate, ok := stats.ChangeRate(lastAvg, *currentPrice); ok {
			return rate
		}
		return 0
	}
	if rate, ok := stats.ChangeRate(lastAvg, curAvg); ok {
		return rate
	}
	return 0
}

func (uc *priceUseCase) SegmentAverages(ctx context.Context, productName string) (*model.SegmentAverages, error) {
	if strings.TrimSpace(productName) == "" {
		return nil, errors.New("product name is required")
	}

	now := uc.now()
	records := uc.findRecords(ctx, productName, now.AddDate(0, -segmentWindowMonths, 0), now)

	out := &model.SegmentAverages{
		ProductName:   productName,
		GradeAverages: stats.GradeAverages(records),
		UnitAverages:  stats.UnitAverages(records),
		TotalRecords:  len(records),
		HasData:       len(records) > 0,
	}

	if len(records) == 0 {
		if fx, ok := uc.fixtures.Lookup(productName); ok && len(fx.GradeAverages) > 0 {
			out.GradeAverages = fx.GradeAverages
			out.UnitAverages = fx.UnitAverages
			out.TotalRecords = len(fx.GradeAverages) + len(fx.UnitAverages)
			out.HasData = true
		}
	}
	return out, nil
}

func (uc *priceUseCase) Trend(ctx context.Context, productName string, months int) (*dto.PriceTrend, error) {
	if strings.TrimSpace(productName) == "" {
		return nil, errors.New("product name is required")
	}
	if months <= 0 {
		months = defaultTrendMonths
	}

	now := uc.now()
	records := uc.findRecords(ctx, productName, now.AddDate(0, -months, 0), now)

	return &dto.PriceTrend{
		ProductName:     productName,
		MonthlyAverages: stats.MonthlyAverages(records),
		History:         records,
	}, nil
}

func (uc *priceUseCase) MatchingNames(term string) []string {
	if strings.TrimSpace(term) == "" {
		return nil
	}
	return uc.pool.MatchNames(term)
}

func (uc *priceUseCase) LatestPrices(ctx context.Context, limit int) ([]model.PriceRecord, error) {
	if limit <= 0 {
		limit = latestRecordsDefault
	}
	return uc.repo.FindLatest(ctx, limit)
}

func (uc *priceUseCase) LatestPricesByProduct(ctx context.Context, productName string, limit int) ([]model.PriceRecord, error) {
	if strings.TrimSpace(productName) == "" {
		return nil, errors.New("product name is required")
	}
	if limit <= 0 {
		limit = latestRecordsDefault
	}
	return uc.repo.FindLatestByName(ctx, productName, limit)
}

// findRecords is fail-open: a store error degrades to an empty window rather
// than failing the page that asked for a comparison.
func (uc *priceUseCase) findRecords(ctx context.Context, name string, start, end time.Time) []model.PriceRecord {
	records, err := uc.repo.FindByNameAndDateRange(ctx, name, start, end)
	if err != nil {
		uc.logger.Warn("price record lookup failed",
			zap.String("product", name),
			zap.Error(err))
		return nil
	}
	return records
}

func comparisonCacheKey(productName string, currentPrice *float64) string {
	raw := productName
	if currentPrice != nil {
		raw = fmt.Sprintf("%s|%.2f", productName, *currentPrice)
	}
	return fmt.Sprintf("price:compare:%x", md5.Sum([]byte(raw)))
}

func (uc *priceUseCase) cachedComparison(ctx context.Context, productName string, currentPrice *float64) *model.PriceComparison {
	if uc.cache == nil {
		return nil
	}
	val, err := uc.cache.Client.Get(ctx, comparisonCacheKey(productName, currentPrice)).Result()
	if err != nil {
		return nil
	}
	var comp model.PriceComparison
	if err := json.Unmarshal([]byte(val), &comp); err != nil {
		return nil
	}
	return &comp
}

func (uc *priceUseCase) storeComparison(ctx context.Context, productName string, currentPrice *float64, comp *model.PriceComparison) {
	if uc.cache == nil {
		return
	}
	data, err := json.Marshal(comp)
	if err != nil {
		return
	}
	uc.cache.Client.Set(ctx, comparisonCacheKey(productName, currentPrice), data, comparisonCacheTTL)
}
