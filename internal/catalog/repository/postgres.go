package repository

import (
	"context"
	"database/sql"

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

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            seller_id, title, content, product_name, price, quantity,
            delivery_fee, delivery_method, delivery_information,
            country_of_origin, thumbnail, status, created_at, updated_at
        )
        VALUES (
            :seller_id, :title, :content, :product_name, :price, :quantity,
            :delivery_fee, :delivery_method, :delivery_information,
            :country_of_origin, :thumbnail, :status, :created_at, :updated_at
        )
        RETURNING product_id
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, p)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.ProductID); err != nil {
			return errors.Wrap(err, "scan product id")
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := `SELECT * FROM products WHERE product_id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// FindAll returns every product row. The index rebuild walks this to reproject
// the whole catalog.
func (r *PGRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	query := `SELECT * FROM products ORDER BY product_id`
	if err := r.DB.SelectContext(ctx, &products, query); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PGRepository) FindBySeller(ctx context.Context, sellerID int64) ([]model.Product, error) {
	var products []model.Product
	query := `SELECT * FROM products WHERE seller_id = $1 ORDER BY created_at DESC`
	if err := r.DB.SelectContext(ctx, &products, query, sellerID); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET title = :title,
            content = :content,
            product_name = :product_name,
            price = :price,
            quantity = :quantity,
            delivery_fee = :delivery_fee,
            delivery_method = :delivery_method,
            delivery_information = :delivery_information,
            country_of_origin = :country_of_origin,
            thumbnail = :thumbnail,
            status = :status,
            updated_at = :updated_at
        WHERE product_id = :product_id AND seller_id = :seller_id
    `
	res, err := r.DB.NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Errorf("product %d not found for seller %d", p.ProductID, p.SellerID)
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE products SET status = $1, updated_at = NOW() WHERE product_id = $2`,
		status, id)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	return err
}
