// Package stats computes comparative statistics over matched price records.
package stats

import (
	"github.com/greenmarket/catalog-service/internal/model"
)

// monthKey is the grouping key format for monthly aggregation.
const monthKey = "2006-01"

// MonthlyAverages groups records by calendar month of their price date and
// averages the current price within each group.
func MonthlyAverages(records []model.PriceRecord) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		key := rec.PriceDate.Format(monthKey)
		sums[key] += rec.CurrentPrice
		counts[key]++
	}

	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	return out
}

// ChangeRate returns the percentage change from previous to current. The
// second return value is false when previous is zero or negative, meaning no
// rate is defined.
func ChangeRate(previous, current float64) (float64, bool) {
	if previous <= 0 {
		return 0, false
	}
	return (current - previous) / previous * 100, true
}

// Average returns the mean current price of records, 0 for an empty slice.
func Average(records []model.PriceRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, rec := range records {
		sum += rec.CurrentPrice
	}
	return sum / float64(len(records))
}

// GradeAverages averages current prices per quality grade.
func GradeAverages(records []model.PriceRecord) map[string]float64 {
	return averagesBy(records, func(r model.PriceRecord) string { return r.Grade })
}

// UnitAverages averages current prices per packaging unit.
func UnitAverages(records []model.PriceRecord) map[string]float64 {
	return averagesBy(records, func(r model.PriceRecord) string { return r.Unit })
}

func averagesBy(records []model.PriceRecord, key func(model.PriceRecord) string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		k := key(rec)
		sums[k] += rec.CurrentPrice
		counts[k]++
	}

	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}
