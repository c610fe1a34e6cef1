package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/greenmarket/catalog-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Insert(ctx context.Context, rec *model.PriceRecord) (bool, error) {
	// The unique index on (source, product_name, grade, price_date) backs up
	// the syncer's existence check: two overlapping runs cannot both insert.
	query := `
        INSERT INTO price_records (
            id, product_name, grade, unit, current_price,
            previous_month_price, two_months_ago_price, price_date,
            source, market_type, category
        )
        VALUES (
            :id, :product_name, :grade, :unit, :current_price,
            :previous_month_price, :two_months_ago_price, :price_date,
            :source, :market_type, :category
        )
        ON CONFLICT (source, product_name, grade, price_date) DO NOTHING
    `
	res, err := r.DB.NamedExecContext(ctx, query, rec)
	if err != nil {
		return false, errors.Wrap(err, "insert price record")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return rows == 1, nil
}

func (r *PGRepository) Exists(ctx context.Context, productName, grade string, priceDate time.Time) (bool, error) {
	var count int
	query := `
        SELECT count(*) FROM price_records
        WHERE source = $1 AND product_name = $2 AND grade = $3 AND price_date = $4
    `
	err := r.DB.GetContext(ctx, &count, query, model.SourcePublicData, productName, grade, priceDate)
	if err != nil {
		return false, errors.Wrap(err, "check price record existence")
	}
	return count > 0, nil
}

func (r *PGRepository) FindByNameAndDateRange(ctx context.Context, productName string, start, end time.Time) ([]model.PriceRecord, error) {
	var records []model.PriceRecord
	query := `
        SELECT * FROM price_records
        WHERE product_name = $1 AND price_date BETWEEN $2 AND $3
        ORDER BY price_date
    `
	err := r.DB.SelectContext(ctx, &records, query, productName, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "find price records by name and range")
	}
	return records, nil
}

func (r *PGRepository) FindLatest(ctx context.Context, limit int) ([]model.PriceRecord, error) {
	var records []model.PriceRecord
	query := `SELECT * FROM price_records ORDER BY price_date DESC LIMIT $1`
	err := r.DB.SelectContext(ctx, &records, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "find latest price records")
	}
	return records, nil
}

func (r *PGRepository) FindLatestByName(ctx context.Context, productName string, limit int) ([]model.PriceRecord, error) {
	var records []model.PriceRecord
	query := `
        SELECT * FROM price_records
        WHERE product_name = $1
        ORDER BY price_date DESC
        LIMIT $2
    `
	err := r.DB.SelectContext(ctx, &records, query, productName, limit)
	if err != nil {
		return nil, errors.Wrap(err, "find latest price records by name")
	}
	return records, nil
}

func (r *PGRepository) CountByDate(ctx context.Context, priceDate time.Time) (int, error) {
	var count int
	query := `SELECT count(*) FROM price_records WHERE price_date = $1`
	err := r.DB.GetContext(ctx, &count, query, priceDate)
	if err != nil {
		return 0, errors.Wrap(err, "count price records by date")
	}
	return count, nil
}
