package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"
)

type Config struct {
	Addresses []string
	Username  string
	Password  string
}

// Client is a thin wrapper over the official Elasticsearch client exposing the
// handful of operations this service needs.
type Client struct {
	es *elasticsearch.Client
}

func NewClient(cfg *Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "elasticsearch client")
	}
	return &Client{es: es}, nil
}

type SearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

type Hit struct {
	ID        string              `json:"_id"`
	Score     float64             `json:"_score"`
	Source    json.RawMessage     `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

func (c *Client) CreateIndex(ctx context.Context, index, body string) error {
	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(body)),
	)
	if err != nil {
		return errors.Wrapf(err, "create index %s", index)
	}
	return closeAndCheck(res, "create index")
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.es.Indices.Delete(
		[]string{index},
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return errors.Wrapf(err, "delete index %s", index)
	}
	return closeAndCheck(res, "delete index")
}

func (c *Client) Index(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal document")
	}
	res, err := c.es.Index(
		index,
		bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return errors.Wrapf(err, "index document %s", id)
	}
	return closeAndCheck(res, "index document")
}

func (c *Client) Delete(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(
		index,
		id,
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return errors.Wrapf(err, "delete document %s", id)
	}
	return closeAndCheck(res, "delete document")
}

func (c *Client) Search(ctx context.Context, index string, query map[string]interface{}) (*SearchResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, errors.Wrap(err, "encode query")
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.Errorf("search: %s", readError(res))
	}

	var sr SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}
	return &sr, nil
}

// DeleteByQuery removes every document matching query and reports how many
// documents were deleted.
func (c *Client) DeleteByQuery(ctx context.Context, index string, query map[string]interface{}) (int64, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return 0, errors.Wrap(err, "encode query")
	}

	res, err := c.es.DeleteByQuery(
		[]string{index},
		&buf,
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, errors.Wrap(err, "delete by query")
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, errors.Errorf("delete by query: %s", readError(res))
	}

	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, errors.Wrap(err, "decode delete response")
	}
	return out.Deleted, nil
}

// UpdateByQuery applies a scripted update to every document matching the query
// in body and reports (updated count, failure count).
func (c *Client) UpdateByQuery(ctx context.Context, index string, body map[string]interface{}) (int64, int, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, 0, errors.Wrap(err, "encode body")
	}

	res, err := c.es.UpdateByQuery(
		[]string{index},
		c.es.UpdateByQuery.WithContext(ctx),
		c.es.UpdateByQuery.WithBody(&buf),
	)
	if err != nil {
		return 0, 0, errors.Wrap(err, "update by query")
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, 0, errors.Errorf("update by query: %s", readError(res))
	}

	var out struct {
		Updated  int64         `json:"updated"`
		Failures []interface{} `json:"failures"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, 0, errors.Wrap(err, "decode update response")
	}
	return out.Updated, len(out.Failures), nil
}

func closeAndCheck(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		return errors.Errorf("%s: %s", op, readError(res))
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

func readError(res *esapi.Response) string {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.Status()
	}
	return res.Status() + " " + string(body)
}
