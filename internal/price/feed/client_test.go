package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/greenmarket/catalog-service/pkg/logger"
)

const feedBody = `{
	"resultData": [
		{"PUM_NAME": "상추", "GRADE_NAME": "상", "UNIT_NAME": " 4키로상자 ", "AVG": "12,500", "PREAVG_1": "11,800", "PREAVG_2": "10,900"},
		{"PUM_NAME": "깻잎", "GRADE_NAME": "특", "UNIT_NAME": "2키로상자", "AVG": "20,000", "PREAVG_1": "19,000", "PREAVG_2": "18,500"},
		{"PUM_NAME": "감귤", "GRADE_NAME": "중", "UNIT_NAME": "10키로상자", "AVG": "not-a-number", "PREAVG_1": "9,000", "PREAVG_2": "8,000"}
	]
}`

func newTestClient(baseURL string, retries int) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		AccessKey:  "test-key",
		MarketCode: "211",
		PageSize:   10,
		Timeout:    2 * time.Second,
		RetryCount: retries,
	}, logger.NewNop())
}

func TestFetchPrices(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	records, err := client.FetchPrices(context.Background(), "20240115")
	if err != nil {
		t.Fatal(err)
	}

	// malformed third record skipped, batch continues
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.ProductName != "상추" || first.Grade != "상" {
		t.Errorf("unexpected record: %+v", first)
	}
	if first.Unit != "4키로상자" {
		t.Errorf("unit should be trimmed, got %q", first.Unit)
	}
	if first.CurrentPrice != 12500 || first.PreviousMonthPrice != 11800 || first.TwoMonthsAgoPrice != 10900 {
		t.Errorf("comma separators should be stripped: %+v", first)
	}
	if first.PriceDate.Format("20060102") != "20240115" {
		t.Errorf("price date = %v", first.PriceDate)
	}
	if first.ID != "상추_4키로상자_상_20240115" {
		t.Errorf("ID = %q", first.ID)
	}
	if first.Source != "public-data" || first.MarketType != "garak" || first.Category != "produce" {
		t.Errorf("provenance tags: %+v", first)
	}

	if gotQuery["s_date"][0] != "20240115" {
		t.Errorf("s_date = %v", gotQuery["s_date"])
	}
	if gotQuery["passwd"][0] != "test-key" {
		t.Errorf("passwd = %v", gotQuery["passwd"])
	}
	if gotQuery["s_deal"][0] != "211" {
		t.Errorf("s_deal = %v", gotQuery["s_deal"])
	}
}

func TestFetchPricesRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	records, err := client.FetchPrices(context.Background(), "20240115")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3 (two retries)", calls)
	}
}

func TestFetchPricesExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 1)
	if _, err := client.FetchPrices(context.Background(), "20240115"); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
}

func TestFetchPricesBadDateCode(t *testing.T) {
	client := newTestClient("http://localhost:0", 0)
	if _, err := client.FetchPrices(context.Background(), "2024-01-15"); err == nil {
		t.Fatal("expected error for malformed date code")
	}
}

func TestFetchPricesForPeriod(t *testing.T) {
	var dates []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dates = append(dates, r.URL.Query().Get("s_date"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultData": [{"PUM_NAME": "상추", "GRADE_NAME": "상", "UNIT_NAME": "4키로상자", "AVG": "7,000", "PREAVG_1": "6,500", "PREAVG_2": "6,000"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	records, err := client.FetchPricesForPeriod(context.Background(), "20240110", "20240320")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"20240110", "20240210", "20240310"}
	if len(dates) != len(want) {
		t.Fatalf("fetched dates %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %q, want %q", i, dates[i], want[i])
		}
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}
