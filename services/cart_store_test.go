package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"cart-gateway/engine"
	"cart-gateway/models"
	"cart-gateway/services"
)

func newEngineStore(t *testing.T) *services.CartStore {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	engine.New(engine.NewMemoryStore(), time.Hour).Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	store := services.NewCartStore(services.NewCartClient(srv.URL, srv.Client()))
	t.Cleanup(store.Close)
	return store
}

func lineCart(lineID string, productID, price, quantity int) models.Cart {
	cart := models.Cart{
		Currency: "USD",
		Items: []models.CartLineItem{
			{LineID: lineID, ProductID: productID, Price: price, Quantity: quantity},
		},
	}
	cart.Recompute()
	return cart
}

func TestStoreCarriesSessionAcrossCalls(t *testing.T) {
	store := newEngineStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, models.ProductInput{ID: 1, Title: "mug", Price: 999}, 2))
	snap := store.Snapshot()
	require.Len(t, snap.Items, 1)
	require.Equal(t, 1998, snap.Subtotal)

	// The second add only merges into the same line if the session
	// cookie from the first response was carried over.
	require.NoError(t, store.AddItem(ctx, models.ProductInput{ID: 1, Title: "mug", Price: 999}, 2))
	snap = store.Snapshot()
	require.Len(t, snap.Items, 1)
	require.Equal(t, 4, snap.Items[0].Quantity)
	require.Equal(t, 3996, snap.Subtotal)

	require.NoError(t, store.Fetch(ctx))
	require.Equal(t, 3996, store.Snapshot().Subtotal)
}

func TestStoreLineMutations(t *testing.T) {
	store := newEngineStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, models.ProductInput{ID: 1, Price: 500}, 1))

	require.NoError(t, store.IncrementLine(ctx, "H1"))
	require.Equal(t, 2, store.Snapshot().Items[0].Quantity)

	require.NoError(t, store.DecrementLine(ctx, "H1"))
	require.Equal(t, 1, store.Snapshot().Items[0].Quantity)

	// Decrement at quantity one is a removal.
	require.NoError(t, store.DecrementLine(ctx, "H1"))
	require.Empty(t, store.Snapshot().Items)
	require.Equal(t, 0, store.Snapshot().Subtotal)

	// Increment needs the cached line to derive the requested quantity.
	require.ErrorIs(t, store.IncrementLine(ctx, "H1"), services.ErrUnknownLine)

	// Removing an absent line is dispatched and comes back as a no-op.
	require.NoError(t, store.RemoveLine(ctx, "H1"))
	require.Empty(t, store.Snapshot().Items)
}

func TestBusyGuardRejectsSecondMutation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		writeCart(w, lineCart("H1", 1, 500, 1))
	})
	mux.HandleFunc("PUT /cart/update/H1", func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		writeCart(w, lineCart("H1", 1, 500, 2))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := services.NewCartStore(services.NewCartClient(srv.URL, srv.Client()))
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))

	done := make(chan error, 1)
	go func() { done <- store.IncrementLine(ctx, "H1") }()

	<-started
	require.True(t, store.IsItemLoading("H1"))
	require.ErrorIs(t, store.IncrementLine(ctx, "H1"), services.ErrLineBusy)

	close(release)
	require.NoError(t, <-done)
	require.False(t, store.IsItemLoading("H1"))
	require.Equal(t, 2, store.Snapshot().Items[0].Quantity)
}

func TestDistinctLinesMutateConcurrently(t *testing.T) {
	store := newEngineStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, models.ProductInput{ID: 1, Price: 100}, 1))
	require.NoError(t, store.AddItem(ctx, models.ProductInput{ID: 2, Price: 200}, 1))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs[0] = store.IncrementLine(ctx, "H1") }()
	go func() { defer wg.Done(); errs[1] = store.IncrementLine(ctx, "H2") }()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	require.NoError(t, store.Fetch(ctx))
	snap := store.Snapshot()
	require.Len(t, snap.Items, 2)
	for _, item := range snap.Items {
		require.Equal(t, 2, item.Quantity, "line %s", item.LineID)
	}
	require.Equal(t, 600, snap.Subtotal)
}

func TestFailedMutationKeepsLastKnownGoodCart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		writeCart(w, lineCart("H1", 1, 500, 1))
	})
	mux.HandleFunc("PUT /cart/update/H1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := services.NewCartStore(services.NewCartClient(srv.URL, srv.Client()))
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))

	err := store.IncrementLine(ctx, "H1")
	var uErr *services.UpstreamError
	require.ErrorAs(t, err, &uErr)

	snap := store.Snapshot()
	require.Equal(t, "failed to update item", snap.Err)
	require.Len(t, snap.Items, 1)
	require.Equal(t, 1, snap.Items[0].Quantity, "cart must stay at last known-good state")
	require.False(t, store.IsItemLoading("H1"))

	// A later success clears the error.
	require.NoError(t, store.Fetch(ctx))
	require.Empty(t, store.Snapshot().Err)
}

func TestFetchLoadingFlag(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		writeCart(w, models.Cart{Currency: "USD"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := services.NewCartStore(services.NewCartClient(srv.URL, srv.Client()))
	defer store.Close()

	done := make(chan error, 1)
	go func() { done <- store.Fetch(context.Background()) }()

	<-started
	require.True(t, store.Snapshot().Loading)
	close(release)
	require.NoError(t, <-done)
	require.False(t, store.Snapshot().Loading)
}

func TestCloseDropsLateCompletion(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		writeCart(w, lineCart("H1", 1, 500, 1))
	})
	mux.HandleFunc("PUT /cart/update/H1", func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		writeCart(w, lineCart("H1", 1, 500, 2))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := services.NewCartStore(services.NewCartClient(srv.URL, srv.Client()))
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))

	done := make(chan error, 1)
	go func() { done <- store.IncrementLine(ctx, "H1") }()

	<-started
	store.Close()
	close(release)
	require.NoError(t, <-done)

	// The response arrived after teardown and must not be applied.
	require.Equal(t, 1, store.Snapshot().Items[0].Quantity)
	require.ErrorIs(t, store.Fetch(ctx), services.ErrStoreClosed)
}

func TestSubscribeNotify(t *testing.T) {
	store := newEngineStore(t)
	ctx := context.Background()

	var calls atomic.Int32
	unsubscribe := store.Subscribe(func() { calls.Add(1) })

	require.NoError(t, store.AddItem(ctx, models.ProductInput{ID: 1, Price: 100}, 1))
	require.Positive(t, calls.Load())

	unsubscribe()
	before := calls.Load()
	require.NoError(t, store.Fetch(ctx))
	require.Equal(t, before, calls.Load())
}

func TestStoreValidationErrorSurfacesMessage(t *testing.T) {
	store := newEngineStore(t)

	err := store.AddItem(context.Background(), models.ProductInput{Price: 100}, 1)
	var vErr *services.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, vErr.Message, store.Snapshot().Err)
}
