package catalog

import (
	"context"

	"github.com/greenmarket/catalog-service/internal/catalog/dto"
	"github.com/greenmarket/catalog-service/internal/catalog/search"
	"github.com/greenmarket/catalog-service/internal/model"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]model.Product, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	DeleteProduct(ctx context.Context, id int64) error

	Search(ctx context.Context, params search.Params) (*search.Result, error)
	RebuildIndex(ctx context.Context) error
}
