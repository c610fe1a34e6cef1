package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/catalog"
	"github.com/greenmarket/catalog-service/internal/catalog/dto"
	"github.com/greenmarket/catalog-service/internal/catalog/indexer"
	"github.com/greenmarket/catalog-service/internal/catalog/search"
	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/pkg/cache"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

const searchCacheTTL = 1 * time.Minute

type catalogUseCase struct {
	repo    catalog.Repository
	cache   *cache.RedisClient // optional
	engine  *search.Engine
	indexer *indexer.Indexer
	logger  logger.ZapLogger
}

func NewCatalogUseCase(repo catalog.Repository, cacheClient *cache.RedisClient, engine *search.Engine, ix *indexer.Indexer, log logger.ZapLogger) catalog.UseCase {
	return &catalogUseCase{
		repo:    repo,
		cache:   cacheClient,
		engine:  engine,
		indexer: ix,
		logger:  log,
	}
}

func validStatus(status string) bool {
	switch status {
	case model.StatusActive, model.StatusSoldOut, model.StatusDeactivated:
		return true
	}
	return false
}

func (uc *catalogUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("title is required")
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return nil, errors.New("product name is required")
	}
	if input.Price < 0 {
		return nil, errors.New("price must not be negative")
	}

	now := time.Now()
	p := &model.Product{
		SellerID:            input.SellerID,
		Title:               input.Title,
		Content:             input.Content,
		ProductName:         input.ProductName,
		Price:               input.Price,
		Quantity:            input.Quantity,
		DeliveryFee:         input.DeliveryFee,
		DeliveryMethod:      input.DeliveryMethod,
		DeliveryInformation: input.DeliveryInformation,
		CountryOfOrigin:     input.CountryOfOrigin,
		Thumbnail:           input.Thumbnail,
		Status:              model.StatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	// Index asynchronously; the relational row is the source of truth and the
	// projection can always be rebuilt.
	go uc.indexProduct(context.Background(), p)

	return p, nil
}

func (uc *catalogUseCase) indexProduct(ctx context.Context, p *model.Product) {
	if err := uc.engine.Index(ctx, p); err != nil {
		uc.logger.Error("failed to index product",
			zap.Int64("product_id", p.ProductID),
			zap.Error(err))
	}
}

func (uc *catalogUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *catalogUseCase) ListBySeller(ctx context.Context, sellerID int64) ([]model.Product, error) {
	return uc.repo.FindBySeller(ctx, sellerID)
}

func (uc *catalogUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("product not found")
	}
	if p.SellerID != input.SellerID {
		return nil, errors.New("product belongs to another seller")
	}
	if input.Status != "" && !validStatus(input.Status) {
		return nil, errors.Errorf("unknown status %q", input.Status)
	}

	p.Title = input.Title
	p.Content = input.Content
	p.ProductName = input.ProductName
	p.Price = input.Price
	p.Quantity = input.Quantity
	p.DeliveryFee = input.DeliveryFee
	p.DeliveryMethod = input.DeliveryMethod
	p.DeliveryInformation = input.DeliveryInformation
	p.CountryOfOrigin = input.CountryOfOrigin
	p.Thumbnail = input.Thumbnail
	if input.Status != "" {
		p.Status = input.Status
	}
	p.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	go func(p model.Product) {
		if err := uc.engine.Update(context.Background(), &p, p.ProductID); err != nil {
			uc.logger.Error("failed to update product document",
				zap.Int64("product_id", p.ProductID),
				zap.Error(err))
		}
	}(*p)

	return p, nil
}

func (uc *catalogUseCase) UpdateStatus(ctx context.Context, id int64, status string) error {
	if !validStatus(status) {
		return errors.Errorf("unknown status %q", status)
	}

	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return errors.New("product not found")
	}

	if err := uc.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	p.Status = status
	go func(p model.Product) {
		if err := uc.engine.Update(context.Background(), &p, p.ProductID); err != nil {
			uc.logger.Error("failed to update product document",
				zap.Int64("product_id", p.ProductID),
				zap.Error(err))
		}
	}(*p)

	return nil
}

func (uc *catalogUseCase) DeleteProduct(ctx context.Context, id int64) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return nil // already gone
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	go func() {
		if err := uc.engine.Delete(context.Background(), id); err != nil {
			uc.logger.Error("failed to delete product document",
				zap.Int64("product_id", id),
				zap.Error(err))
		}
	}()

	return nil
}

func (uc *catalogUseCase) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	cacheKey := searchCacheKey(params)
	if cached := uc.cachedSearch(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	res, err := uc.engine.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	uc.storeSearch(ctx, cacheKey, res)
	return res, nil
}

func (uc *catalogUseCase) RebuildIndex(ctx context.Context) error {
	return uc.indexer.Rebuild(ctx)
}

func searchCacheKey(params search.Params) string {
	data, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("products:search:%x", md5.Sum(data))
}

func (uc *catalogUseCase) cachedSearch(ctx context.Context, key string) *search.Result {
	if uc.cache == nil || key == "" {
		return nil
	}
	val, err := uc.cache.Client.Get(ctx, key).Result()
	if err != nil {
		return nil
	}
	var res search.Result
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil
	}
	return &res
}

func (uc *catalogUseCase) storeSearch(ctx context.Context, key string, res *search.Result) {
	if uc.cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	uc.cache.Client.Set(ctx, key, data, searchCacheTTL)
}
