package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/greenmarket/catalog-service/pkg/logger"
	"github.com/greenmarket/catalog-service/pkg/search"
)

func TestFuzzinessFor(t *testing.T) {
	tests := []struct {
		keyword string
		want    string
	}{
		{"사", "1"},
		{"사과", "1"},
		{"ab", "1"},
		{"사과즙", "AUTO"},
		{"토마토", "AUTO"},
		{"apple", "AUTO"},
	}
	for _, tt := range tests {
		if got := fuzzinessFor(tt.keyword); got != tt.want {
			t.Errorf("fuzzinessFor(%q) = %q, want %q", tt.keyword, got, tt.want)
		}
	}
}

func TestParseSortDirection(t *testing.T) {
	tests := []struct {
		in   string
		want SortDirection
	}{
		{"desc", SortDesc},
		{"DESC", SortDesc},
		{" desc ", SortDesc},
		{"asc", SortAsc},
		{"", SortAsc},
		{"garbage", SortAsc},
	}
	for _, tt := range tests {
		if got := ParseSortDirection(tt.in); got != tt.want {
			t.Errorf("ParseSortDirection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", Params{Size: 10}, false},
		{"valid with range", Params{MinPrice: 1000, MaxPrice: 50000, Size: 10}, false},
		{"negative from", Params{From: -1, Size: 10}, true},
		{"zero size", Params{Size: 0}, true},
		{"oversized page", Params{Size: 101}, true},
		{"negative min", Params{MinPrice: -1, Size: 10}, true},
		{"min above max", Params{MinPrice: 500, MaxPrice: 100, Size: 10}, true},
		{"min below unbounded max", Params{MinPrice: 500, MaxPrice: 0, Size: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func boolQuery(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	q, ok := body["query"].(map[string]interface{})
	if !ok {
		t.Fatal("missing query")
	}
	b, ok := q["bool"].(map[string]interface{})
	if !ok {
		t.Fatal("missing bool query")
	}
	return b
}

func TestBuildSearchBodyBlankKeyword(t *testing.T) {
	body := buildSearchBody(Params{Keyword: "   ", DateSort: SortDesc, Size: 10})

	b := boolQuery(t, body)
	if _, ok := b["must"]; ok {
		t.Error("blank keyword must not produce a relevance clause")
	}

	sorts := body["sort"].([]map[string]interface{})
	if len(sorts) != 1 {
		t.Fatalf("got %d sort keys, want 1 (date only)", len(sorts))
	}
	if _, ok := sorts[0]["createdAt"]; !ok {
		t.Error("date sort missing")
	}
}

func TestBuildSearchBodyWithKeyword(t *testing.T) {
	body := buildSearchBody(Params{Keyword: " 사과 ", ScoreSort: SortDesc, DateSort: SortAsc, Size: 10})

	b := boolQuery(t, body)
	must, ok := b["must"].([]map[string]interface{})
	if !ok || len(must) != 1 {
		t.Fatal("keyword should produce exactly one must clause")
	}
	matchField := must[0]["match"].(map[string]interface{})
	title := matchField["title"].(map[string]interface{})
	if title["query"] != "사과" {
		t.Errorf("keyword should be trimmed, got %q", title["query"])
	}
	if title["analyzer"] != AnalyzerName {
		t.Errorf("analyzer = %v", title["analyzer"])
	}
	if title["fuzziness"] != "1" {
		t.Errorf("two-character keyword fuzziness = %v, want 1", title["fuzziness"])
	}

	sorts := body["sort"].([]map[string]interface{})
	if len(sorts) != 2 {
		t.Fatalf("got %d sort keys, want score then date", len(sorts))
	}
	score := sorts[0]["_score"].(map[string]interface{})
	if score["order"] != "desc" {
		t.Errorf("score order = %v", score["order"])
	}
	created := sorts[1]["createdAt"].(map[string]interface{})
	if created["order"] != "asc" {
		t.Errorf("date order = %v", created["order"])
	}
}

func TestBuildSearchBodyPriceDefaults(t *testing.T) {
	body := buildSearchBody(Params{Size: 10, DateSort: SortAsc})

	b := boolQuery(t, body)
	filters := b["filter"].([]map[string]interface{})
	rangeFilter := filters[0]["range"].(map[string]interface{})
	priceRange := rangeFilter["price"].(map[string]interface{})
	if priceRange["gte"] != int64(0) {
		t.Errorf("gte = %v, want 0", priceRange["gte"])
	}
	if priceRange["lte"] != int64(defaultMaxPrice) {
		t.Errorf("lte = %v, want unbounded default", priceRange["lte"])
	}
}

func TestBuildSearchBodyAlwaysExcludesDeactivated(t *testing.T) {
	for _, status := range []string{"", "active"} {
		body := buildSearchBody(Params{Status: status, Size: 10, DateSort: SortAsc})
		b := boolQuery(t, body)
		filters := b["filter"].([]map[string]interface{})

		found := false
		for _, f := range filters {
			inner, ok := f["bool"].(map[string]interface{})
			if !ok {
				continue
			}
			mustNot := inner["must_not"].(map[string]interface{})
			term := mustNot["term"].(map[string]interface{})
			if term["status"] == "deactivated" {
				found = true
			}
		}
		if !found {
			t.Errorf("status=%q: deactivated exclusion filter missing", status)
		}
	}
}

func TestBuildSearchBodyStatusFilter(t *testing.T) {
	body := buildSearchBody(Params{Status: "active", Size: 10, DateSort: SortAsc})
	b := boolQuery(t, body)
	filters := b["filter"].([]map[string]interface{})
	if len(filters) != 3 {
		t.Fatalf("got %d filters, want range + exclusion + status term", len(filters))
	}
	term, ok := filters[2]["term"].(map[string]interface{})
	if !ok || term["status"] != "active" {
		t.Errorf("status term filter = %v", filters[2])
	}
}

const stubSearchResponse = `{
	"took": 3,
	"hits": {
		"total": {"value": 42},
		"hits": [
			{
				"_id": "7",
				"_score": 1.5,
				"_source": {"productId": 7, "sellerId": 1, "title": "부사 사과 5kg", "price": 24000, "status": "active"},
				"highlight": {"title": ["부사 <span style='color:red'>사과</span> 5kg"]}
			},
			{
				"_id": "9",
				"_score": 1.1,
				"_source": {"productId": 9, "sellerId": 2, "title": "사과즙 세트", "price": 18000, "status": "active"}
			}
		]
	}
}`

func stubElastic(t *testing.T, handler http.HandlerFunc) *search.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := search.NewClient(&search.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestEngineSearch(t *testing.T) {
	client := stubElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stubSearchResponse))
	})
	engine := NewEngine(client, logger.NewNop())

	res, err := engine.Search(context.Background(), Params{Keyword: "사과", Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 42 {
		t.Errorf("total = %d, want 42", res.Total)
	}
	if len(res.Products) != 2 {
		t.Fatalf("got %d products", len(res.Products))
	}
	if res.Products[0].ProductID != 7 || res.Products[0].Title != "부사 사과 5kg" {
		t.Errorf("first product: %+v", res.Products[0])
	}
	if len(res.Highlights["7"]) != 1 {
		t.Errorf("highlights: %v", res.Highlights)
	}
	if _, ok := res.Highlights["9"]; ok {
		t.Error("hit without highlight should not appear in the highlight map")
	}
}

func TestEngineSearchFailOpen(t *testing.T) {
	client := stubElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "boom"}`))
	})
	engine := NewEngine(client, logger.NewNop())

	res, err := engine.Search(context.Background(), Params{Keyword: "사과", Size: 10})
	if err != nil {
		t.Fatalf("transport errors must not escape the search boundary, got %v", err)
	}
	if res.Total != 0 || len(res.Products) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestEngineSearchRejectsCallerErrors(t *testing.T) {
	client := stubElastic(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid params must be rejected before any I/O")
	})
	engine := NewEngine(client, logger.NewNop())

	if _, err := engine.Search(context.Background(), Params{Size: 0}); err == nil {
		t.Error("expected validation error")
	}
}
