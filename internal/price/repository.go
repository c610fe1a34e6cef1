package price

import (
	"context"
	"time"

	"github.com/greenmarket/catalog-service/internal/model"
)

// Repository is the append-only price-record store. Records are written by
// the sync orchestrator and read by matching and aggregation; nothing ever
// updates a stored record.
type Repository interface {
	// Insert stores the record unless an observation with the same
	// (source, product name, grade, price date) already exists. It reports
	// whether a row was actually written.
	Insert(ctx context.Context, rec *model.PriceRecord) (bool, error)

	// Exists reports whether an observation for (name, grade, date) is
	// already stored for the public data source.
	Exists(ctx context.Context, productName, grade string, priceDate time.Time) (bool, error)

	FindByNameAndDateRange(ctx context.Context, productName string, start, end time.Time) ([]model.PriceRecord, error)
	FindLatest(ctx context.Context, limit int) ([]model.PriceRecord, error)
	FindLatestByName(ctx context.Context, productName string, limit int) ([]model.PriceRecord, error)
	CountByDate(ctx context.Context, priceDate time.Time) (int, error)
}
