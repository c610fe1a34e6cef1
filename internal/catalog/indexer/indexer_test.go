package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/pkg/logger"
	"github.com/greenmarket/catalog-service/pkg/search"
)

type stubRepo struct {
	products []model.Product
	err      error
}

func (s *stubRepo) Create(ctx context.Context, p *model.Product) error  { return nil }
func (s *stubRepo) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	return nil, nil
}
func (s *stubRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	return s.products, s.err
}
func (s *stubRepo) FindBySeller(ctx context.Context, sellerID int64) ([]model.Product, error) {
	return nil, nil
}
func (s *stubRepo) Update(ctx context.Context, p *model.Product) error { return nil }
func (s *stubRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return nil
}
func (s *stubRepo) Delete(ctx context.Context, id int64) error { return nil }

// elasticStub records index-lifecycle calls the way the search backend would
// see them.
type elasticStub struct {
	mu      sync.Mutex
	deletes int
	creates int
	indexed []string
	failOn  string // "delete", "create", "index"
}

func (e *elasticStub) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case r.Method == http.MethodDelete:
		e.deletes++
		if e.failOn == "delete" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "_doc"):
		parts := strings.Split(r.URL.Path, "/")
		e.indexed = append(e.indexed, parts[len(parts)-1])
		if e.failOn == "index" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
	case r.Method == http.MethodPut:
		e.creates++
		if e.failOn == "create" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
	}
	w.Write([]byte(`{"acknowledged":true}`))
}

func newTestIndexer(t *testing.T, stub *elasticStub, repo *stubRepo) *Indexer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)

	client, err := search.NewClient(&search.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatal(err)
	}
	return NewIndexer(client, repo, logger.NewNop())
}

func TestRebuild(t *testing.T) {
	stub := &elasticStub{}
	repo := &stubRepo{products: []model.Product{
		{ProductID: 1, Title: "사과 5kg"},
		{ProductID: 2, Title: "상추 1kg"},
	}}
	ix := newTestIndexer(t, stub, repo)

	if err := ix.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if stub.deletes != 1 || stub.creates != 1 {
		t.Errorf("deletes=%d creates=%d, want 1 each", stub.deletes, stub.creates)
	}
	if len(stub.indexed) != 2 || stub.indexed[0] != "1" || stub.indexed[1] != "2" {
		t.Errorf("indexed ids = %v", stub.indexed)
	}
	if ix.State() != StateReady {
		t.Errorf("state after rebuild = %d, want ready", ix.State())
	}
}

func TestRebuildToleratesDeleteFailure(t *testing.T) {
	stub := &elasticStub{failOn: "delete"}
	repo := &stubRepo{products: []model.Product{{ProductID: 1}}}
	ix := newTestIndexer(t, stub, repo)

	if err := ix.Rebuild(context.Background()); err != nil {
		t.Fatalf("missing index must not abort a rebuild: %v", err)
	}
	if len(stub.indexed) != 1 {
		t.Errorf("indexed = %v", stub.indexed)
	}
}

func TestRebuildAbortsOnCreateFailure(t *testing.T) {
	stub := &elasticStub{failOn: "create"}
	ix := newTestIndexer(t, stub, &stubRepo{})

	if err := ix.Rebuild(context.Background()); err == nil {
		t.Fatal("create failure must abort the rebuild")
	}
	if len(stub.indexed) != 0 {
		t.Errorf("no documents should be written after a failed create, got %v", stub.indexed)
	}
	if ix.State() != StateReady {
		t.Errorf("state must return to ready after a failed rebuild, got %d", ix.State())
	}
}

func TestRebuildAbortsOnLoadFailure(t *testing.T) {
	stub := &elasticStub{}
	ix := newTestIndexer(t, stub, &stubRepo{err: errors.New("db down")})

	if err := ix.Rebuild(context.Background()); err == nil {
		t.Fatal("load failure must abort the rebuild")
	}
}

func TestRebuildRejectsConcurrentRun(t *testing.T) {
	ix := NewIndexer(nil, &stubRepo{}, logger.NewNop())
	ix.state.Store(StateReindexing)

	if err := ix.Rebuild(context.Background()); !errors.Is(err, ErrRebuildInProgress) {
		t.Fatalf("got %v, want ErrRebuildInProgress", err)
	}
}
