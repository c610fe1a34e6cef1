package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/internal/price/match"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

type stubRepo struct {
	records []model.PriceRecord
}

func (s *stubRepo) Insert(ctx context.Context, rec *model.PriceRecord) (bool, error) {
	s.records = append(s.records, *rec)
	return true, nil
}

func (s *stubRepo) Exists(ctx context.Context, name, grade string, date time.Time) (bool, error) {
	return false, nil
}

func (s *stubRepo) FindByNameAndDateRange(ctx context.Context, name string, start, end time.Time) ([]model.PriceRecord, error) {
	var out []model.PriceRecord
	for _, rec := range s.records {
		if rec.ProductName != name {
			continue
		}
		if rec.PriceDate.Before(start) || rec.PriceDate.After(end) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubRepo) FindLatest(ctx context.Context, limit int) ([]model.PriceRecord, error) {
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *stubRepo) FindLatestByName(ctx context.Context, name string, limit int) ([]model.PriceRecord, error) {
	var out []model.PriceRecord
	for _, rec := range s.records {
		if rec.ProductName == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubRepo) CountByDate(ctx context.Context, date time.Time) (int, error) {
	return 0, nil
}

var testNow = time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)

func newTestUseCase(repo *stubRepo, fixtures *Fixtures) *priceUseCase {
	uc := NewPriceUseCase(repo, nil, match.NewHistoryPool("", logger.NewNop()), fixtures, logger.NewNop()).(*priceUseCase)
	uc.now = func() time.Time { return testNow }
	return uc
}

func rec(name string, price float64, date time.Time) model.PriceRecord {
	return model.PriceRecord{ProductName: name, CurrentPrice: price, PriceDate: date, Grade: "상", Unit: "4키로상자"}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func ptr(v float64) *float64 { return &v }

func TestCompareToCurrentWithHistory(t *testing.T) {
	repo := &stubRepo{records: []model.PriceRecord{
		rec("상추", 90, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)),
		rec("상추", 110, time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)),
		rec("상추", 110, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)),
	}}
	uc := newTestUseCase(repo, nil)

	comp, err := uc.CompareToCurrent(context.Background(), "상추, 무농약 4kg", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !comp.HasData {
		t.Error("HasData should be true with history")
	}
	if !almostEqual(comp.LastMonthAverage, 100) {
		t.Errorf("last month avg = %v, want 100", comp.LastMonthAverage)
	}
	if !almostEqual(comp.CurrentMonthAverage, 110) {
		t.Errorf("current month avg = %v, want 110", comp.CurrentMonthAverage)
	}
	// no caller price: current month vs last month
	if !almostEqual(comp.PriceChangeRate, 10) {
		t.Errorf("change rate = %v, want 10", comp.PriceChangeRate)
	}
}

func TestCompareToCurrentWithCallerPrice(t *testing.T) {
	repo := &stubRepo{records: []model.PriceRecord{
		rec("상추", 100, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)),
	}}
	uc := newTestUseCase(repo, nil)

	comp, err := uc.CompareToCurrent(context.Background(), "상추", ptr(120))
	if err != nil {
		t.Fatal(err)
	}
	// caller price against current-month average
	if !almostEqual(comp.PriceChangeRate, 20) {
		t.Errorf("change rate = %v, want 20", comp.PriceChangeRate)
	}
}

func TestCompareToCurrentCallerPriceFallsBackToLastMonth(t *testing.T) {
	repo := &stubRepo{records: []model.PriceRecord{
		rec("상추", 100, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)),
	}}
	uc := newTestUseCase(repo, nil)

	comp, err := uc.CompareToCurrent(context.Background(), "상추", ptr(150))
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(comp.PriceChangeRate, 50) {
		t.Errorf("change rate = %v, want 50 (vs last-month average)", comp.PriceChangeRate)
	}
}

func TestCompareToCurrentNoData(t *testing.T) {
	uc := newTestUseCase(&stubRepo{}, nil)

	comp, err := uc.CompareToCurrent(context.Background(), "상추", nil)
	if err != nil {
		t.Fatal(err)
	}
	if comp.HasData {
		t.Error("HasData should be false without history or caller price")
	}
	if comp.PriceChangeRate != 0 {
		t.Errorf("change rate = %v, want 0", comp.PriceChangeRate)
	}
}

func TestCompareToCurrentCallerPriceCountsAsData(t *testing.T) {
	uc := newTestUseCase(&stubRepo{}, nil)

	comp, err := uc.CompareToCurrent(context.Background(), "상추", ptr(9000))
	if err != nil {
		t.Fatal(err)
	}
	if !comp.HasData {
		t.Error("a supplied caller price is comparable even with zero history")
	}
	if comp.PriceChangeRate != 0 {
		t.Errorf("change rate = %v, want 0 with no baseline", comp.PriceChangeRate)
	}
}

func TestCompareToCurrentFixturesGated(t *testing.T) {
	// fixtures disabled: no fallback values appear
	uc := newTestUseCase(&stubRepo{}, nil)
	comp, _ := uc.CompareToCurrent(context.Background(), "상추", nil)
	if comp.LastMonthAverage != 0 || comp.CurrentMonthAverage != 0 {
		t.Errorf("fixtures disabled but got %+v", comp)
	}

	// fixtures enabled: fallback only when both windows are empty
	fx := &Fixtures{entries: []Fixture{{
		Keyword:             "상추",
		LastMonthAverage:    7500,
		CurrentMonthAverage: 8000,
	}}}
	uc = newTestUseCase(&stubRepo{}, fx)
	comp, _ = uc.CompareToCurrent(context.Background(), "청상추 한 박스", nil)
	if !comp.HasData {
		t.Error("fixture hit should report data")
	}
	if !almostEqual(comp.LastMonthAverage, 7500) || !almostEqual(comp.CurrentMonthAverage, 8000) {
		t.Errorf("fixture averages not applied: %+v", comp)
	}
	wantRate := (8000.0 - 7500.0) / 7500.0 * 100
	if !almostEqual(comp.PriceChangeRate, wantRate) {
		t.Errorf("change rate = %v, want %v", comp.PriceChangeRate, wantRate)
	}
}

func TestCompareToCurrentEmptyName(t *testing.T) {
	uc := newTestUseCase(&stubRepo{}, nil)
	if _, err := uc.CompareToCurrent(context.Background(), "  ", nil); err == nil {
		t.Error("expected caller error for blank product name")
	}
}

func TestPrimaryKeyword(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"상추", "상추"},
		{"상추, 무농약 4kg", "상추"},
		{"상추，특품", "상추"},
		{"  사과 부사", "사과"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := primaryKeyword(tt.in); got != tt.want {
			t.Errorf("primaryKeyword(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSegmentAverages(t *testing.T) {
	repo := &stubRepo{records: []model.PriceRecord{
		{ProductName: "상추", Grade: "상", Unit: "4키로상자", CurrentPrice: 8000, PriceDate: testNow.AddDate(0, -1, 0)},
		{ProductName: "상추", Grade: "중", Unit: "4키로상자", CurrentPrice: 7000, PriceDate: testNow.AddDate(0, -2, 0)},
		// outside the three-month window
		{ProductName: "상추", Grade: "하", Unit: "8키로상자", CurrentPrice: 1000, PriceDate: testNow.AddDate(0, -5, 0)},
	}}
	uc := newTestUseCase(repo, nil)

	out, err := uc.SegmentAverages(context.Background(), "상추")
	if err != nil {
		t.Fatal(err)
	}
	if !out.HasData || out.TotalRecords != 2 {
		t.Fatalf("got %+v", out)
	}
	if !almostEqual(out.GradeAverages["상"], 8000) || !almostEqual(out.GradeAverages["중"], 7000) {
		t.Errorf("grade averages: %v", out.GradeAverages)
	}
	if _, ok := out.GradeAverages["하"]; ok {
		t.Error("record outside window must be excluded")
	}
	if !almostEqual(out.UnitAverages["4키로상자"], 7500) {
		t.Errorf("unit averages: %v", out.UnitAverages)
	}
}

func TestTrend(t *testing.T) {
	repo := &stubRepo{records: []model.PriceRecord{
		rec("상추", 100, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)),
		rec("상추", 200, time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)),
		rec("상추", 150, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)),
	}}
	uc := newTestUseCase(repo, nil)

	trend, err := uc.Trend(context.Background(), "상추", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(trend.MonthlyAverages["2024-01"], 150) {
		t.Errorf("2024-01 = %v, want 150", trend.MonthlyAverages["2024-01"])
	}
	if !almostEqual(trend.MonthlyAverages["2024-02"], 150) {
		t.Errorf("2024-02 = %v, want 150", trend.MonthlyAverages["2024-02"])
	}
	if len(trend.History) != 3 {
		t.Errorf("history = %d records, want 3", len(trend.History))
	}
}
