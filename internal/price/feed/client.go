// Package feed fetches commodity price observations from the public
// wholesale-market data provider.
package feed

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/internal/price/match"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

// Provider dataset identifiers. These select the wholesale produce price
// dataset on the provider side and do not vary per deployment.
const (
	datasetID  = "data58"
	resourceID = "4315"
)

const dateCodeLayout = "20060102"

type Config struct {
	BaseURL    string
	AccessKey  string
	MarketCode string // market segment code, e.g. "211"
	PageSize   int
	Timeout    time.Duration
	RetryCount int
}

// Client pulls daily price observations over HTTP. Transport failures are
// retried with backoff up to RetryCount times; the feed runs unattended so a
// transient provider error must not require manual replay.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger logger.ZapLogger
}

func NewClient(cfg Config, log logger.ZapLogger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: log,
	}
}

type feedItem struct {
	ProductName string `json:"PUM_NAME"`
	GradeName   string `json:"GRADE_NAME"`
	UnitName    string `json:"UNIT_NAME"`
	Avg         string `json:"AVG"`
	PrevAvg1    string `json:"PREAVG_1"`
	PrevAvg2    string `json:"PREAVG_2"`
}

type feedResponse struct {
	ResultData []feedItem `json:"resultData"`
}

// FetchPrices returns the price records published for dateCode (yyyyMMdd).
// Records that fail to convert are skipped with a warning; only transport or
// envelope-level failures return an error.
func (c *Client) FetchPrices(ctx context.Context, dateCode string) ([]model.PriceRecord, error) {
	priceDate, err := match.ParseDateCode(dateCode)
	if err != nil {
		return nil, err
	}

	var payload feedResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"passwd":         c.cfg.AccessKey,
			"pageidx":        "1",
			"portal.templet": "false",
			"p_pos_gubun":    "1",
			"id":             resourceID,
			"dataid":         datasetID,
			"pagesize":       strconv.Itoa(c.cfg.PageSize),
			"s_date":         dateCode,
			"s_deal":         c.cfg.MarketCode,
		}).
		SetResult(&payload).
		Get("")
	if err != nil {
		return nil, errors.Wrap(err, "fetch price feed")
	}
	if resp.IsError() {
		return nil, errors.Errorf("price feed returned %s", resp.Status())
	}

	records := make([]model.PriceRecord, 0, len(payload.ResultData))
	for _, item := range payload.ResultData {
		rec, err := c.convert(item, dateCode, priceDate)
		if err != nil {
			c.logger.Warn("skipping malformed feed record",
				zap.String("product", item.ProductName),
				zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchPricesForPeriod walks from start to end in one-month steps and
// collects the observations of each sampled date. A failed date is skipped;
// the remaining dates are still fetched.
func (c *Client) FetchPricesForPeriod(ctx context.Context, startCode, endCode string) ([]model.PriceRecord, error) {
	start, err := match.ParseDateCode(startCode)
	if err != nil {
		return nil, err
	}
	end, err := match.ParseDateCode(endCode)
	if err != nil {
		return nil, err
	}

	var all []model.PriceRecord
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		code := cur.Format(dateCodeLayout)
		records, err := c.FetchPrices(ctx, code)
		if err != nil {
			c.logger.Warn("skipping feed date", zap.String("date", code), zap.Error(err))
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (c *Client) convert(item feedItem, dateCode string, priceDate time.Time) (model.PriceRecord, error) {
	name := strings.TrimSpace(item.ProductName)
	if name == "" {
		return model.PriceRecord{}, errors.New("empty product name")
	}
	grade := strings.TrimSpace(item.GradeName)
	unit := strings.TrimSpace(item.UnitName)

	current, err := parseFeedPrice(item.Avg)
	if err != nil {
		return model.PriceRecord{}, err
	}
	prev, err := parseFeedPrice(item.PrevAvg1)
	if err != nil {
		return model.PriceRecord{}, err
	}
	twoAgo, err := parseFeedPrice(item.PrevAvg2)
	if err != nil {
		return model.PriceRecord{}, err
	}

	return model.PriceRecord{
		ID:                 match.RecordID(name, unit, grade, dateCode),
		ProductName:        name,
		Grade:              grade,
		Unit:               unit,
		CurrentPrice:       current,
		PreviousMonthPrice: prev,
		TwoMonthsAgoPrice:  twoAgo,
		PriceDate:          priceDate,
		Source:             model.SourcePublicData,
		MarketType:         model.MarketGarak,
		Category:           model.CategoryProduce,
	}, nil
}

// parseFeedPrice strips the provider's comma thousands separators before
// numeric parsing.
func parseFeedPrice(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse feed price %q", s)
	}
	return v, nil
}
