package price

import (
	"context"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/internal/price/dto"
)

type UseCase interface {
	// CompareToCurrent builds the product-detail comparison: last-month and
	// current-month averages for the product's primary keyword, plus a
	// change rate against currentPrice when one is supplied.
	CompareToCurrent(ctx context.Context, productName string, currentPrice *float64) (*model.PriceComparison, error)

	// SegmentAverages computes grade- and unit-segmented averages over a
	// rolling three-month window.
	SegmentAverages(ctx context.Context, productName string) (*model.SegmentAverages, error)

	// Trend returns monthly averages and raw history over the last n months.
	Trend(ctx context.Context, productName string, months int) (*dto.PriceTrend, error)

	// MatchingNames suggests historical product names for a search term.
	MatchingNames(term string) []string

	LatestPrices(ctx context.Context, limit int) ([]model.PriceRecord, error)
	LatestPricesByProduct(ctx context.Context, productName string, limit int) ([]model.PriceRecord, error)
}
