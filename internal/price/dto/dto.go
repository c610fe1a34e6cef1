package dto

import "github.com/greenmarket/catalog-service/internal/model"

// PriceTrend is the rolling-window trend view for a product name.
type PriceTrend struct {
	ProductName     string              `json:"productName"`
	MonthlyAverages map[string]float64  `json:"monthlyAverages"`
	History         []model.PriceRecord `json:"priceHistory"`
}
