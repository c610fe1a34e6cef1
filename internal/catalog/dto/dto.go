package dto

import "github.com/greenmarket/catalog-service/internal/model"

// SearchRequest is the query-string shape of a catalog search call.
type SearchRequest struct {
	Keyword   string `form:"keyword"`
	Status    string `form:"status"`
	MinPrice  int64  `form:"minPrice"`
	MaxPrice  int64  `form:"maxPrice"`
	ScoreSort string `form:"scoreSort"`
	DateSort  string `form:"dateSort"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

type SearchResponse struct {
	Products   []model.Product     `json:"products"`
	Highlights map[string][]string `json:"highlights"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
}
