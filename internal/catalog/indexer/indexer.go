// Package indexer owns the lifecycle of the product index: its mapping and
// the full rebuild that reprojects the relational catalog into it.
package indexer

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/catalog"
	catalogsearch "github.com/greenmarket/catalog-service/internal/catalog/search"
	"github.com/greenmarket/catalog-service/pkg/logger"
	"github.com/greenmarket/catalog-service/pkg/search"
)

// Rebuild phases. Exactly one rebuild runs at a time; a second caller gets
// ErrRebuildInProgress instead of queueing.
const (
	StateReady int32 = iota
	StateDeleting
	StateCreating
	StateReindexing
)

var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// IndexMapping defines the product index: a Korean-aware text analyzer over
// title and productName, keyword status, and the numeric/date fields the
// search filters and sorts depend on.
const IndexMapping = `{
    "settings": {
        "analysis": {
            "tokenizer": {
                "nori_mixed": {
                    "type": "nori_tokenizer",
                    "decompound_mode": "mixed"
                }
            },
            "analyzer": {
                "product_text_analyzer": {
                    "type": "custom",
                    "tokenizer": "nori_mixed",
                    "filter": ["lowercase", "nori_readingform", "nori_part_of_speech"]
                }
            }
        }
    },
    "mappings": {
        "properties": {
            "productId": { "type": "long" },
            "sellerId": { "type": "long" },
            "title": { "type": "text", "analyzer": "product_text_analyzer" },
            "content": { "type": "text", "analyzer": "product_text_analyzer" },
            "productName": { "type": "text", "analyzer": "product_text_analyzer" },
            "price": { "type": "long" },
            "quantity": { "type": "long" },
            "deliveryFee": { "type": "long" },
            "status": { "type": "keyword" },
            "thumbnail": { "type": "keyword", "index": false },
            "createdAt": { "type": "date" },
            "updatedAt": { "type": "date" }
        }
    }
}`

type Indexer struct {
	client *search.Client
	repo   catalog.Repository
	logger logger.ZapLogger
	state  atomic.Int32
}

func NewIndexer(client *search.Client, repo catalog.Repository, log logger.ZapLogger) *Indexer {
	return &Indexer{
		client: client,
		repo:   repo,
		logger: log,
	}
}

// State reports the current rebuild phase.
func (ix *Indexer) State() int32 {
	return ix.state.Load()
}

// EnsureIndex creates the product index if it does not exist yet. A failure
// here usually just means the index is already there, so it is logged at
// debug and ignored.
func (ix *Indexer) EnsureIndex(ctx context.Context) {
	if err := ix.client.CreateIndex(ctx, catalogsearch.IndexName, IndexMapping); err != nil {
		ix.logger.Debug("index create skipped", zap.Error(err))
	}
}

// Rebuild drops and recreates the product index, then reprojects every
// product row into it. Phases run strictly in order:
//
//	delete  - failure is logged and tolerated (the index may not exist)
//	create  - failure aborts; nothing was lost yet beyond the delete
//	reindex - failure aborts and leaves a partially filled index, which is
//	          loudly reported so an operator reruns the rebuild
func (ix *Indexer) Rebuild(ctx context.Context) error {
	if !ix.state.CompareAndSwap(StateReady, StateDeleting) {
		return ErrRebuildInProgress
	}
	defer ix.state.Store(StateReady)

	if err := ix.client.DeleteIndex(ctx, catalogsearch.IndexName); err != nil {
		ix.logger.Warn("index delete failed, continuing rebuild", zap.Error(err))
	}

	ix.state.Store(StateCreating)
	if err := ix.client.CreateIndex(ctx, catalogsearch.IndexName, IndexMapping); err != nil {
		return errors.Wrap(err, "create index")
	}

	ix.state.Store(StateReindexing)
	products, err := ix.repo.FindAll(ctx)
	if err != nil {
		ix.logger.Error("rebuild aborted before reindexing, index is empty", zap.Error(err))
		return errors.Wrap(err, "load products")
	}

	for i := range products {
		p := &products[i]
		if err := ix.client.Index(ctx, catalogsearch.IndexName, strconv.FormatInt(p.ProductID, 10), p); err != nil {
			ix.logger.Error("rebuild aborted mid-reindex, index is partial",
				zap.Int64("product_id", p.ProductID),
				zap.Int("indexed", i),
				zap.Int("total", len(products)))
			return errors.Wrapf(err, "index product %d", p.ProductID)
		}
	}

	ix.logger.Info("product index rebuilt", zap.Int("documents", len(products)))
	return nil
}
