package model

import "time"

// Provenance tags for price records from the wholesale feed and the
// historical dataset (both come from the same public data provider).
const (
	SourcePublicData = "public-data"
	MarketGarak      = "garak"
	CategoryProduce  = "produce"
)

// PriceRecord is one commodity price observation from the wholesale market
// feed (or the flat historical dataset). Records are append-only: the syncer
// never mutates an existing row, and (source, product_name, grade, price_date)
// is unique within a source.
type PriceRecord struct {
	ID                 string    `db:"id" json:"id"`
	ProductName        string    `db:"product_name" json:"productName"`
	Grade              string    `db:"grade" json:"grade"`
	Unit               string    `db:"unit" json:"unit"`
	CurrentPrice       float64   `db:"current_price" json:"currentPrice"`
	PreviousMonthPrice float64   `db:"previous_month_price" json:"previousMonthPrice"`
	TwoMonthsAgoPrice  float64   `db:"two_months_ago_price" json:"twoMonthsAgoPrice"`
	PriceDate          time.Time `db:"price_date" json:"priceDate"`
	Source             string    `db:"source" json:"source"`
	MarketType         string    `db:"market_type" json:"marketType"`
	Category           string    `db:"category" json:"category"`
}

// MonthChangeRate is the change against the previous month's average carried
// on the record itself. ok is false when no previous price is known.
func (p *PriceRecord) MonthChangeRate() (float64, bool) {
	if p.PreviousMonthPrice <= 0 {
		return 0, false
	}
	return (p.CurrentPrice - p.PreviousMonthPrice) / p.PreviousMonthPrice * 100, true
}

// TwoMonthChangeRate is the change against the average from two months ago.
func (p *PriceRecord) TwoMonthChangeRate() (float64, bool) {
	if p.TwoMonthsAgoPrice <= 0 {
		return 0, false
	}
	return (p.CurrentPrice - p.TwoMonthsAgoPrice) / p.TwoMonthsAgoPrice * 100, true
}

// PriceComparison is the derived product-detail comparison. It is computed on
// demand and never persisted.
type PriceComparison struct {
	ProductName         string   `json:"productName"`
	LastMonthAverage    float64  `json:"lastMonthAverage"`
	CurrentMonthAverage float64  `json:"currentMonthAverage"`
	CurrentProductPrice *float64 `json:"currentProductPrice,omitempty"`
	PriceChangeRate     float64  `json:"priceChangeRate"`
	HasData             bool     `json:"hasData"`
}

// SegmentAverages groups average prices over a rolling window by quality
// grade and by packaging unit.
type SegmentAverages struct {
	ProductName   string             `json:"productName"`
	GradeAverages map[string]float64 `json:"gradeAverages"`
	UnitAverages  map[string]float64 `json:"unitAverages"`
	TotalRecords  int                `json:"totalRecords"`
	HasData       bool               `json:"hasData"`
}
