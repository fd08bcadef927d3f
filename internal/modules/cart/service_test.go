package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/events"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/modules/settlement"
	"github.com/georgemunganga/printa-retail/internal/store"
)

var buyer = auth.Identity{UID: "u1", Email: "buyer@shop.test"}

type fixture struct {
	st        *store.Memory
	snap      *inventory.Snapshot
	rec       *events.Recorder
	committer *countingCommitter
	svc       Service
}

type countingCommitter struct {
	next  settlement.Committer
	fail  error
	mu    sync.Mutex
	calls []map[string]interface{}
}

func (c *countingCommitter) Commit(ctx context.Context, updates map[string]interface{}) error {
	c.mu.Lock()
	c.calls = append(c.calls, updates)
	c.mu.Unlock()
	if c.fail != nil {
		return errs.StoreWrite("atomic update", c.fail)
	}
	return c.next.Commit(ctx, updates)
}

func newFixture(t *testing.T, products map[string]interface{}) *fixture {
	t.Helper()
	f := &fixture{st: store.NewMemory(), snap: inventory.NewSnapshot(zap.NewNop()), rec: &events.Recorder{}}
	for id, p := range products {
		if err := f.st.Seed(inventory.ProductPath(id), p); err != nil {
			t.Fatal(err)
		}
	}
	f.sync(t)
	f.committer = &countingCommitter{next: settlement.StoreCommitter{Store: f.st}}
	f.svc = NewService(f.snap, f.committer, NewStoreRepository(f.st), f.rec, zap.NewNop())
	return f
}

func (f *fixture) sync(t *testing.T) {
	t.Helper()
	v, err := f.st.ReadOnce(context.Background(), inventory.ProductsPath)
	if err != nil {
		t.Fatal(err)
	}
	f.snap.Apply(store.AsMap(v))
}

// stored reads a raw value back from the store as a string, or "" when absent.
func (f *fixture) stored(t *testing.T, path string) string {
	t.Helper()
	v, err := f.st.ReadOnce(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		return ""
	}
	return v.(json.Number).String()
}

func item(name string, price, qty int) map[string]interface{} {
	return map[string]interface{}{"name": name, "price": price, "quantity": qty}
}

func TestCheckoutPartialFill(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"P": item("Pen", 10, 2), "Q": item("Quill", 4, 3)})
	_ = f.st.Seed("cart/u1", map[string]interface{}{"P": 5, "Q": 3})

	res, err := f.svc.Checkout(context.Background(), buyer, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fulfilled) != 2 || res.Fulfilled[0].Quantity != 2 || res.Fulfilled[1].Quantity != 3 {
		t.Fatalf("expected P 2 and Q 3 fulfilled, got %+v", res.Fulfilled)
	}
	if len(res.Shortfall) != 1 {
		t.Fatalf("expected one shortfall, got %+v", res.Shortfall)
	}
	sf := res.Shortfall[0]
	if sf.ProductID != "P" || sf.Requested != 5 || sf.Available != 2 || sf.Missing != 3 {
		t.Errorf("unexpected shortfall %+v", sf)
	}
	if !res.Total.Equal(decimal.NewFromInt(32)) {
		t.Errorf("expected total 32 for fulfilled lines only, got %s", res.Total)
	}
	if got := f.stored(t, inventory.QuantityPath("P")); got != "0" {
		t.Errorf("expected P at 0, got %s", got)
	}
	if got := f.stored(t, inventory.QuantityPath("Q")); got != "0" {
		t.Errorf("expected Q at 0, got %s", got)
	}
	if v, _ := f.st.ReadOnce(context.Background(), "cart/u1"); v != nil {
		t.Errorf("expected partial and full lines removed from cart, got %v", v)
	}
	if f.rec.Count(events.CheckoutCompleted) != 1 {
		t.Errorf("expected one checkout event, got %d", f.rec.Count(events.CheckoutCompleted))
	}
}

func TestCheckoutAccountsForEveryUnit(t *testing.T) {
	f := newFixture(t, map[string]interface{}{
		"A": item("A", 1, 7), "B": item("B", 1, 1), "C": item("C", 1, 0),
	})
	requested := map[string]interface{}{"A": 3, "B": 4, "C": 2}
	_ = f.st.Seed("cart/u1", requested)

	res, err := f.svc.Checkout(context.Background(), buyer, "")
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]int{}
	for _, l := range res.Fulfilled {
		got[l.ProductID] += l.Quantity
	}
	for _, s := range res.Shortfall {
		got[s.ProductID] += s.Missing
	}
	for id, q := range requested {
		if got[id] != q.(int) {
			t.Errorf("%s: expected %d units accounted for, got %d", id, q, got[id])
		}
	}
}

func TestCheckoutLeavesZeroMarkerForSoldOutLines(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"P": item("Pen", 10, 4), "Z": item("Zip", 3, 0)})
	_ = f.st.Seed("cart/u1", map[string]interface{}{"P": 1, "Z": 2})

	res, err := f.svc.Checkout(context.Background(), buyer, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Shortfall) != 1 || res.Shortfall[0].Reason != settlement.ReasonOutOfStock {
		t.Fatalf("expected Z out of stock, got %+v", res.Shortfall)
	}
	if got := f.stored(t, "cart/u1/Z"); got != "0" {
		t.Errorf("expected zero marker for Z, got %q", got)
	}
	if got := f.stored(t, "cart/u1/P"); got != "" {
		t.Errorf("expected P removed, got %q", got)
	}

	view, err := f.svc.GetCart(context.Background(), buyer.UID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.OutOfStock) != 1 || view.OutOfStock[0] != "Z" || view.CanCheckout {
		t.Errorf("expected only the Z marker left, got %+v", view)
	}

	// only the marker is left, so nothing can be bought
	_, err = f.svc.Checkout(context.Background(), buyer, "")
	if !errors.Is(err, errs.ErrNothingPurchasable) {
		t.Fatalf("expected ErrNothingPurchasable, got %v", err)
	}
	if len(f.committer.calls) != 1 {
		t.Errorf("expected no commit for the second checkout, got %d commits", len(f.committer.calls))
	}
}

func TestCheckoutCommitFailureLeavesCart(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"P": item("Pen", 10, 4)})
	_ = f.st.Seed("cart/u1", map[string]interface{}{"P": 3})
	f.committer.fail = errors.New("unavailable")

	res, err := f.svc.Checkout(context.Background(), buyer, "")
	if !errors.Is(err, errs.ErrStoreWrite) || res != nil {
		t.Fatalf("expected ErrStoreWrite and no result, got %+v %v", res, err)
	}
	if got := f.stored(t, "cart/u1/P"); got != "3" {
		t.Errorf("expected cart unchanged, got %q", got)
	}
	if got := f.stored(t, inventory.QuantityPath("P")); got != "4" {
		t.Errorf("expected inventory unchanged, got %s", got)
	}
	if f.rec.Count(events.CheckoutCompleted) != 0 {
		t.Error("expected no checkout event")
	}
}

func TestCheckoutAppliesDiscount(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"P": item("Pen", 50, 3)})
	_ = f.st.Seed("cart/u1", map[string]interface{}{"P": 3})

	res, err := f.svc.Checkout(context.Background(), buyer, "200")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Subtotal.Equal(decimal.NewFromInt(150)) || !res.Discount.Equal(decimal.NewFromInt(150)) || !res.Total.IsZero() {
		t.Errorf("expected discount clamped to subtotal, got %+v", res)
	}
}

func TestAddItemPersistsClampedQuantity(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"P": item("Pen", 10, 3)})
	ctx := context.Background()

	view, ch, err := f.svc.AddItem(ctx, buyer.UID, AddItemRequest{ProductID: "P", Quantity: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !ch.Clamped || ch.Quantity != 3 || view.Count != 3 {
		t.Errorf("expected clamp to 3, got %+v %+v", ch, view)
	}
	if got := f.stored(t, "cart/u1/P"); got != "3" {
		t.Errorf("expected 3 stored, got %q", got)
	}

	if _, _, err := f.svc.AddItem(ctx, buyer.UID, AddItemRequest{ProductID: "P"}); !errors.Is(err, errs.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if _, _, err := f.svc.AddItem(ctx, buyer.UID, AddItemRequest{ProductID: "missing"}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := f.svc.AddItem(ctx, buyer.UID, AddItemRequest{}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	_, ch, err = f.svc.ChangeQuantity(ctx, buyer.UID, "P", -3)
	if err != nil {
		t.Fatal(err)
	}
	if !ch.Removed {
		t.Errorf("expected line removed, got %+v", ch)
	}
	if got := f.stored(t, "cart/u1/P"); got != "" {
		t.Errorf("expected line gone from store, got %q", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"P": item("Pen", 10, 3), "Q": item("Quill", 1, 3)})
	ctx := context.Background()
	_ = f.st.Seed("cart/u1", map[string]interface{}{"P": 1, "Q": 2})

	view, err := f.svc.RemoveItem(ctx, buyer.UID, "P")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Lines) != 1 || view.Lines[0].ProductID != "Q" {
		t.Errorf("expected only Q left, got %+v", view.Lines)
	}
	if _, err := f.svc.Clear(ctx, buyer.UID); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.st.ReadOnce(ctx, "cart/u1"); v != nil {
		t.Errorf("expected cart cleared, got %v", v)
	}
}

func TestLoadReturnsPrivateCopies(t *testing.T) {
	st := store.NewMemory()
	_ = st.Seed("cart/u1", map[string]interface{}{"P": 2, "bad": "x"})
	repo := NewStoreRepository(st)

	var wg sync.WaitGroup
	results := make([]map[string]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lines, err := repo.Load(context.Background(), "u1")
			if err != nil {
				t.Error(err)
				return
			}
			lines["P"]++
			results[i] = lines
		}(i)
	}
	wg.Wait()
	for _, lines := range results {
		if lines["P"] != 3 || len(lines) != 1 {
			t.Errorf("expected an unshared copy with P=3, got %v", lines)
		}
	}
}

// gatedStore holds the first cart read until release is closed.
type gatedStore struct {
	store.Store
	once    sync.Once
	started chan struct{}
	release chan struct{}
	readErr chan error
}

func (g *gatedStore) ReadOnce(ctx context.Context, path string) (interface{}, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		<-g.release
		g.readErr <- ctx.Err()
	}
	return g.Store.ReadOnce(ctx, path)
}

func TestLoadSurvivesFirstCallerCancel(t *testing.T) {
	st := store.NewMemory()
	_ = st.Seed("cart/u1", map[string]interface{}{"P": 2})
	gs := &gatedStore{Store: st, started: make(chan struct{}), release: make(chan struct{}), readErr: make(chan error, 1)}
	repo := NewStoreRepository(gs)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := repo.Load(ctx, "u1")
		firstErr <- err
	}()
	<-gs.started

	second := make(chan map[string]int, 1)
	go func() {
		lines, err := repo.Load(context.Background(), "u1")
		if err != nil {
			t.Error(err)
		}
		second <- lines
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("expected the cancelled caller to stop with context.Canceled, got %v", err)
	}
	close(gs.release)

	if lines := <-second; lines["P"] != 2 {
		t.Errorf("expected P=2 for the second caller, got %v", lines)
	}
	if err := <-gs.readErr; err != nil {
		t.Errorf("expected the shared read to outlive the first caller, got %v", err)
	}
}

func TestHandlerCheckout(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"P": item("Pen", 10, 4)})
	authn := auth.NewService("secret", f.st)
	r := chi.NewRouter()
	NewHandler(f.svc, authn).RegisterRoutes(r)
	token, _ := authn.IssueToken(buyer, time.Hour)

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/api/v1/cart", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/api/v1/cart/checkout", "", token); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for an empty cart, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"P","quantity":2}`, token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 adding an item, got %d: %s", rec.Code, rec.Body)
	}
	rec := do(http.MethodPost, "/api/v1/cart/checkout", `{"discount":"5"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var res CheckoutResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Total.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected total 15, got %s", res.Total)
	}
}
