package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/price"
	"github.com/greenmarket/catalog-service/internal/price/syncer"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

const dateCodeLayout = "20060102"

type PriceHandler struct {
	uc     price.UseCase
	syncer *syncer.Syncer
	logger logger.ZapLogger
}

func NewPriceHandler(uc price.UseCase, s *syncer.Syncer, log logger.ZapLogger) *PriceHandler {
	return &PriceHandler{
		uc:     uc,
		syncer: s,
		logger: log,
	}
}

func (h *PriceHandler) SetupRoutes(r *gin.RouterGroup) {
	prices := r.Group("/prices")
	{
		prices.GET("/compare", h.Compare)
		prices.GET("/segments", h.Segments)
		prices.GET("/trend", h.Trend)
		prices.GET("/match", h.Match)
		prices.GET("/latest", h.Latest)
	}

	admin := r.Group("/admin/prices")
	{
		admin.POST("/sync/:date", h.SyncDate)
		admin.POST("/sync-range", h.SyncRange)
	}
}

// Compare: GET /api/prices/compare?productName=상추&price=8000
// price is optional; without it the comparison is month-over-month.
func (h *PriceHandler) Compare(c *gin.Context) {
	productName := c.Query("productName")
	if productName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productName is required"})
		return
	}

	var currentPrice *float64
	if raw := c.Query("price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		currentPrice = &v
	}

	comp, err := h.uc.CompareToCurrent(c.Request.Context(), productName, currentPrice)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (h *PriceHandler) Segments(c *gin.Context) {
	productName := c.Query("productName")
	if productName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productName is required"})
		return
	}

	out, err := h.uc.SegmentAverages(c.Request.Context(), productName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PriceHandler) Trend(c *gin.Context) {
	productName := c.Query("productName")
	if productName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productName is required"})
		return
	}
	months, _ := strconv.Atoi(c.DefaultQuery("months", "6"))

	trend, err := h.uc.Trend(c.Request.Context(), productName, months)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trend)
}

// Match: GET /api/prices/match?term=상추
// Suggests feed product names that a seller-entered term could be compared to.
func (h *PriceHandler) Match(c *gin.Context) {
	term := c.Query("term")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "term is required"})
		return
	}
	names := h.uc.MatchingNames(term)
	c.JSON(http.StatusOK, gin.H{"names": names, "total": len(names)})
}

func (h *PriceHandler) Latest(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if productName := c.Query("productName"); productName != "" {
		records, err := h.uc.LatestPricesByProduct(c.Request.Context(), productName, limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records, "total": len(records)})
		return
	}

	records, err := h.uc.LatestPrices(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "total": len(records)})
}

// SyncDate: POST /api/admin/prices/sync/:date (yyyyMMdd)
func (h *PriceHandler) SyncDate(c *gin.Context) {
	dateCode := c.Param("date")
	if _, err := time.Parse(dateCodeLayout, dateCode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be yyyyMMdd"})
		return
	}

	synced, err := h.syncer.SyncDate(c.Request.Context(), dateCode)
	if err != nil {
		h.logger.Error("manual price sync failed", zap.String("date", dateCode), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": dateCode, "synced": synced})
}

// SyncRange: POST /api/admin/prices/sync-range { "start": "20240101", "end": "20240601" }
// Backfills month-sampled dates between start and end.
func (h *PriceHandler) SyncRange(c *gin.Context) {
	var req struct {
		Start string `json:"start" binding:"required"`
		End   string `json:"end" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := time.Parse(dateCodeLayout, req.Start); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be yyyyMMdd"})
		return
	}
	if _, err := time.Parse(dateCodeLayout, req.End); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be yyyyMMdd"})
		return
	}

	synced, err := h.syncer.SyncRange(c.Request.Context(), req.Start, req.End)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": req.Start, "end": req.End, "synced": synced})
}
