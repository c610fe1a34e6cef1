// Package search composes ranked queries against the product index.
package search

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/pkg/logger"
	"github.com/greenmarket/catalog-service/pkg/search"
)

const (
	// IndexName is the product catalog index.
	IndexName = "products"

	// AnalyzerName is the custom analyzer applied to title and productName.
	AnalyzerName = "product_text_analyzer"

	defaultMaxPrice = 1_000_000_000
	maxPageSize     = 100

	highlightPreTag  = "<span style='color:red'>"
	highlightPostTag = "</span>"
)

// Params is one catalog search request.
type Params struct {
	Keyword   string
	Status    string
	MinPrice  int64
	MaxPrice  int64 // 0 means unbounded
	ScoreSort SortDirection
	DateSort  SortDirection
	From      int
	Size      int
}

// Validate rejects caller errors before any I/O happens.
func (p *Params) Validate() error {
	if p.From < 0 {
		return errors.New("from must not be negative")
	}
	if p.Size < 1 || p.Size > maxPageSize {
		return errors.Errorf("size must be between 1 and %d", maxPageSize)
	}
	if p.MinPrice < 0 {
		return errors.New("minPrice must not be negative")
	}
	max := p.MaxPrice
	if max <= 0 {
		max = defaultMaxPrice
	}
	if p.MinPrice > max {
		return errors.New("minPrice must not exceed maxPrice")
	}
	return nil
}

// Result is one page of matching documents. Highlights carries the
// highlighted title fragments per product id; it is a UI side channel and
// plays no part in ranking.
type Result struct {
	Products   []model.Product
	Highlights map[string][]string
	Total      int
}

// fuzzinessFor scales the permitted edit distance with keyword length: very
// short keywords get a fixed single edit, longer ones use the backend's
// length-scaled automatic setting.
func fuzzinessFor(keyword string) string {
	if utf8.RuneCountInString(keyword) <= 2 {
		return "1"
	}
	return "AUTO"
}

// buildSearchBody assembles the bool query. The relevance clause (when a
// keyword is present) goes in must; range and status filters go in filter
// slots so they do not affect scoring. Deactivated listings are always
// excluded, whatever status the caller asked for.
func buildSearchBody(p Params) map[string]interface{} {
	keyword := strings.TrimSpace(p.Keyword)

	maxPrice := p.MaxPrice
	if maxPrice <= 0 {
		maxPrice = defaultMaxPrice
	}

	filters := []map[string]interface{}{
		{
			"range": map[string]interface{}{
				"price": map[string]interface{}{
					"gte": p.MinPrice,
					"lte": maxPrice,
				},
			},
		},
		{
			"bool": map[string]interface{}{
				"must_not": map[string]interface{}{
					"term": map[string]interface{}{
						"status": model.StatusDeactivated,
					},
				},
			},
		},
	}

	if status := strings.TrimSpace(p.Status); status != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{
				"status": status,
			},
		})
	}

	boolQuery := map[string]interface{}{
		"filter": filters,
	}

	if keyword != "" {
		boolQuery["must"] = []map[string]interface{}{
			{
				"match": map[string]interface{}{
					"title": map[string]interface{}{
						"query":     keyword,
						"analyzer":  AnalyzerName,
						"fuzziness": fuzzinessFor(keyword),
					},
				},
			},
		}
	}

	var sorts []map[string]interface{}
	if keyword != "" {
		sorts = append(sorts, map[string]interface{}{
			"_score": map[string]interface{}{"order": string(p.ScoreSort)},
		})
	}
	sorts = append(sorts, map[string]interface{}{
		"createdAt": map[string]interface{}{"order": string(p.DateSort)},
	})

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"from": p.From,
		"size": p.Size,
		"sort": sorts,
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"title": map[string]interface{}{
					"pre_tags":  []string{highlightPreTag},
					"post_tags": []string{highlightPostTag},
				},
			},
		},
	}
}

// Engine runs catalog queries against the search backend.
type Engine struct {
	client *search.Client
	logger logger.ZapLogger
}

func NewEngine(client *search.Client, log logger.ZapLogger) *Engine {
	return &Engine{client: client, logger: log}
}

// Search returns one page of matches plus the total hit count. Caller errors
// are rejected up front; transport and query failures degrade to an empty
// result with a warning, never an error - search must not take the page down
// with it.
func (e *Engine) Search(ctx context.Context, p Params) (*Result, error) {
	if p.ScoreSort == "" {
		p.ScoreSort = SortAsc
	}
	if p.DateSort == "" {
		p.DateSort = SortAsc
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	res, err := e.client.Search(ctx, IndexName, buildSearchBody(p))
	if err != nil {
		e.logger.Warn("catalog search failed, returning empty result",
			zap.String("keyword", p.Keyword),
			zap.Error(err))
		return &Result{Highlights: map[string][]string{}}, nil
	}

	out := &Result{
		Products:   make([]model.Product, 0, len(res.Hits.Hits)),
		Highlights: make(map[string][]string),
		Total:      res.Hits.Total.Value,
	}
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			e.logger.Warn("skipping undecodable search hit",
				zap.String("id", hit.ID),
				zap.Error(err))
			continue
		}
		out.Products = append(out.Products, p)
		if fragments, ok := hit.Highlight["title"]; ok {
			out.Highlights[hit.ID] = fragments
		}
	}
	return out, nil
}

// Index writes (or replaces) a product document, id = product id string.
func (e *Engine) Index(ctx context.Context, p *model.Product) error {
	return e.client.Index(ctx, IndexName, strconv.FormatInt(p.ProductID, 10), p)
}

// Delete removes the document for productID by term match. A deleted count
// other than one means the index disagrees with the store; that is logged as
// a warning, not treated as fatal.
func (e *Engine) Delete(ctx context.Context, productID int64) error {
	deleted, err := e.client.DeleteByQuery(ctx, IndexName, map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"productId": productID,
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "delete product %d from index", productID)
	}
	if deleted != 1 {
		e.logger.Warn("unexpected deleted document count",
			zap.Int64("product_id", productID),
			zap.Int64("deleted", deleted))
	}
	return nil
}

const updateScript = `
ctx._source.productName = params.productName;
ctx._source.title = params.title;
ctx._source.content = params.content;
ctx._source.price = params.price;
ctx._source.quantity = params.quantity;
ctx._source.deliveryFee = params.deliveryFee;
ctx._source.deliveryMethod = params.deliveryMethod;
ctx._source.deliveryInformation = params.deliveryInformation;
ctx._source.countryOfOrigin = params.countryOfOrigin;
ctx._source.status = params.status;
ctx._source.thumbnail = params.thumbnail;
ctx._source.updatedAt = params.updatedAt;
`

// Update rewrites the mutable product attributes in place by query, stamping
// a fresh modification time.
func (e *Engine) Update(ctx context.Context, p *model.Product, productID int64) error {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"productId": productID,
			},
		},
		"script": map[string]interface{}{
			"lang":   "painless",
			"source": updateScript,
			"params": map[string]interface{}{
				"productName":         p.ProductName,
				"title":               p.Title,
				"content":             p.Content,
				"price":               p.Price,
				"quantity":            p.Quantity,
				"deliveryFee":         p.DeliveryFee,
				"deliveryMethod":      p.DeliveryMethod,
				"deliveryInformation": p.DeliveryInformation,
				"countryOfOrigin":     p.CountryOfOrigin,
				"status":              p.Status,
				"thumbnail":           p.Thumbnail,
				"updatedAt":           time.Now().Format(time.RFC3339),
			},
		},
	}

	updated, failures, err := e.client.UpdateByQuery(ctx, IndexName, body)
	if err != nil {
		return errors.Wrapf(err, "update product %d in index", productID)
	}
	if failures > 0 {
		e.logger.Warn("partial update-by-query failure",
			zap.Int64("product_id", productID),
			zap.Int("failures", failures))
	}
	e.logger.Debug("product document updated",
		zap.Int64("product_id", productID),
		zap.Int64("updated", updated))
	return nil
}
