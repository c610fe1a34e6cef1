package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/catalog"
	"github.com/greenmarket/catalog-service/internal/catalog/dto"
	"github.com/greenmarket/catalog-service/internal/catalog/indexer"
	"github.com/greenmarket/catalog-service/internal/catalog/search"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

const defaultPageSize = 20

type CatalogHandler struct {
	uc     catalog.UseCase
	logger logger.ZapLogger
}

func NewCatalogHandler(uc catalog.UseCase, log logger.ZapLogger) *CatalogHandler {
	return &CatalogHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *CatalogHandler) SetupRoutes(r *gin.RouterGroup) {
	products := r.Group("/products")
	{
		products.GET("/search", h.SearchProducts)
		products.POST("", h.CreateProduct)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.PATCH("/:id/status", h.UpdateStatus)
		products.DELETE("/:id", h.DeleteProduct)
		products.GET("/seller/:sellerId", h.ListBySeller)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/search/reindex", h.RebuildIndex)
	}
}

// SearchProducts: GET /api/products/search?keyword=&status=&minPrice=&maxPrice=&scoreSort=&dateSort=&page=&pageSize=
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}

	params := search.Params{
		Keyword:   req.Keyword,
		Status:    req.Status,
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		ScoreSort: search.ParseSortDirection(req.ScoreSort),
		DateSort:  search.ParseSortDirection(req.DateSort),
		From:      (req.Page - 1) * req.PageSize,
		Size:      req.PageSize,
	}

	res, err := h.uc.Search(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SearchResponse{
		Products:   res.Products,
		Highlights: res.Highlights,
		Total:      res.Total,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req struct {
		SellerID            int64  `json:"sellerId" binding:"required"`
		Title               string `json:"title" binding:"required"`
		Content             string `json:"content"`
		ProductName         string `json:"productName" binding:"required"`
		Price               int64  `json:"price"`
		Quantity            int64  `json:"quantity"`
		DeliveryFee         int64  `json:"deliveryFee"`
		DeliveryMethod      string `json:"deliveryMethod"`
		DeliveryInformation string `json:"deliveryInformation"`
		CountryOfOrigin     string `json:"countryOfOrigin"`
		Thumbnail           string `json:"thumbnail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.CreateProduct(c.Request.Context(), &dto.CreateProductInput{
		SellerID:            req.SellerID,
		Title:               req.Title,
		Content:             req.Content,
		ProductName:         req.ProductName,
		Price:               req.Price,
		Quantity:            req.Quantity,
		DeliveryFee:         req.DeliveryFee,
		DeliveryMethod:      req.DeliveryMethod,
		DeliveryInformation: req.DeliveryInformation,
		CountryOfOrigin:     req.CountryOfOrigin,
		Thumbnail:           req.Thumbnail,
	})
	if err != nil {
		h.logger.Error("failed to create product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.GetProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) ListBySeller(c *gin.Context) {
	sellerID, err := pathID(c, "sellerId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := h.uc.ListBySeller(c.Request.Context(), sellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		SellerID            int64  `json:"sellerId" binding:"required"`
		Title               string `json:"title" binding:"required"`
		Content             string `json:"content"`
		ProductName         string `json:"productName" binding:"required"`
		Price               int64  `json:"price"`
		Quantity            int64  `json:"quantity"`
		DeliveryFee         int64  `json:"deliveryFee"`
		DeliveryMethod      string `json:"deliveryMethod"`
		DeliveryInformation string `json:"deliveryInformation"`
		CountryOfOrigin     string `json:"countryOfOrigin"`
		Thumbnail           string `json:"thumbnail"`
		Status              string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.UpdateProduct(c.Request.Context(), &dto.UpdateProductInput{
		ProductID:           id,
		SellerID:            req.SellerID,
		Title:               req.Title,
		Content:             req.Content,
		ProductName:         req.ProductName,
		Price:               req.Price,
		Quantity:            req.Quantity,
		DeliveryFee:         req.DeliveryFee,
		DeliveryMethod:      req.DeliveryMethod,
		DeliveryInformation: req.DeliveryInformation,
		CountryOfOrigin:     req.CountryOfOrigin,
		Thumbnail:           req.Thumbnail,
		Status:              req.Status,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.uc.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.uc.DeleteProduct(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// RebuildIndex: POST /api/admin/search/reindex
// A long-running rebuild; only one may run at a time.
func (h *CatalogHandler) RebuildIndex(c *gin.Context) {
	if err := h.uc.RebuildIndex(c.Request.Context()); err != nil {
		if errors.Is(err, indexer.ErrRebuildInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("index rebuild failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "index rebuilt"})
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return id, nil
}
