package possync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/broker"
	catrepo "github.com/fekuna/omnipos-pos-sync/internal/category/repository"
	"github.com/fekuna/omnipos-pos-sync/internal/database/dbtest"
	invrepo "github.com/fekuna/omnipos-pos-sync/internal/inventory/repository"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	merchrepo "github.com/fekuna/omnipos-pos-sync/internal/merchant/repository"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	ordrepo "github.com/fekuna/omnipos-pos-sync/internal/order/repository"
	prodrepo "github.com/fekuna/omnipos-pos-sync/internal/product/repository"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/jmoiron/sqlx"
)

// fakePOS serves collections keyed by path with offset/limit paging.
type fakePOS struct {
	mu       sync.Mutex
	data     map[string][]any
	failures map[string]failure
	delay    time.Duration
	requests []*url.URL
}

// failure answers code for every request at or past offset from.
type failure struct {
	from int
	code int
}

func newFakePOS() *fakePOS {
	return &fakePOS{data: map[string][]any{}, failures: map[string]failure{}}
}

func (f *fakePOS) set(path string, records ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[path] = records
}

func (f *fakePOS) fail(path string, code int) {
	f.failFrom(path, 0, code)
}

func (f *fakePOS) failFrom(path string, offset, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure{from: offset, code: code}
}

func (f *fakePOS) slow(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *fakePOS) calls() []*url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*url.URL(nil), f.requests...)
}

func (f *fakePOS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL)
	fl, failing := f.failures[r.URL.Path]
	records := f.data[r.URL.Path]
	delay := f.delay
	f.mu.Unlock()

	time.Sleep(delay)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if failing && offset >= fl.from {
		http.Error(w, http.StatusText(fl.code), fl.code)
		return
	}
	page := []any{}
	for i := offset; i < offset+limit && i < len(records); i++ {
		page = append(page, records[i])
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"elements": page})
}

type recordingMetrics struct {
	mu         sync.Mutex
	runs       []string
	records    map[string]int
	tombstoned int
}

func (m *recordingMetrics) ObserveRun(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, result)
}

func (m *recordingMetrics) AddRecords(entity, outcome string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = map[string]int{}
	}
	m.records[entity+"/"+outcome] += n
}

func (m *recordingMetrics) ObservePhase(string, time.Duration) {}

func (m *recordingMetrics) AddTombstoned(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tombstoned += n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []broker.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env broker.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

// recordingIndexer keeps the last indexed version of each product by
// external id.
type recordingIndexer struct {
	mu   sync.Mutex
	docs map[string]model.Product
}

func (x *recordingIndexer) IndexProducts(_ context.Context, products []model.Product) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.docs == nil {
		x.docs = map[string]model.Product{}
	}
	for _, p := range products {
		x.docs[*p.ExternalID] = p
	}
	return nil
}

func (x *recordingIndexer) InvalidateListCache(context.Context, string) {}

func (x *recordingIndexer) doc(externalID string) (model.Product, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	p, ok := x.docs[externalID]
	return p, ok
}

type harness struct {
	db       *sqlx.DB
	pos      *fakePOS
	svc      *Service
	merchant *model.Merchant
	metrics  *recordingMetrics
	events   *recordingPublisher
	indexer  *recordingIndexer
}

const remoteMerchant = "RM1"

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := dbtest.New(t)
	pos := newFakePOS()
	srv := httptest.NewServer(pos)
	t.Cleanup(srv.Close)

	client := remote.NewClient(remote.Config{
		BaseURL:     srv.URL,
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, logger.NewNop())

	h := &harness{
		db:       db,
		pos:      pos,
		merchant: dbtest.SeedMerchant(t, db, remoteMerchant, "token-1"),
		metrics:  &recordingMetrics{},
		events:   &recordingPublisher{},
		indexer:  &recordingIndexer{},
	}
	h.svc = NewService(Deps{
		DB:         db,
		Merchants:  merchrepo.NewPGRepository(db),
		Categories: catrepo.NewPGRepository(db),
		Products:   prodrepo.NewPGRepository(db),
		Inventory:  invrepo.NewPGRepository(db),
		Orders:     ordrepo.NewPGRepository(db),
		Remote:     client,
		Indexer:    h.indexer,
		Events:     h.events,
		Metrics:    h.metrics,
		Logger:     logger.NewNop(),
	})
	return h
}

func ptr[T any](v T) *T { return &v }

func remoteCategory(id, name string) remote.Category {
	return remote.Category{ID: id, Name: name}
}

func remoteItem(id, name string, price int64, sku string, categoryIDs ...string) remote.Item {
	it := remote.Item{ID: id, Name: name, Price: price, SKU: sku}
	if len(categoryIDs) > 0 {
		it.Categories = &remote.RefList{}
		for _, c := range categoryIDs {
			it.Categories.Elements = append(it.Categories.Elements, remote.Ref{ID: c})
		}
	}
	return it
}

func remoteStock(itemID string, qty float64) remote.ItemStock {
	return remote.ItemStock{Item: remote.Ref{ID: itemID}, Quantity: &qty}
}

type line struct {
	itemID string
	price  int64
	qty    *int64
}

func remoteOrder(id string, total int64, lines ...line) remote.Order {
	o := remote.Order{ID: id, State: "open", Total: total, CreatedTime: 1714560000000, LineItems: &remote.LineItemList{}}
	for i, l := range lines {
		li := remote.LineItem{ID: id + "-L" + strconv.Itoa(i), Name: "Line " + strconv.Itoa(i), Price: l.price, Quantity: l.qty}
		if l.itemID != "" {
			li.Item = &remote.Ref{ID: l.itemID}
		}
		o.LineItems.Elements = append(o.LineItems.Elements, li)
	}
	return o
}
