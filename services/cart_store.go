package services

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"

	"cart-gateway/models"
)

var (
	// ErrLineBusy rejects a mutation on a line that already has one in
	// flight. Callers surface it to the UI; nothing is queued.
	ErrLineBusy = errors.New("a mutation for this line is already in flight")

	// ErrUnknownLine rejects increment/decrement on a line id absent
	// from the cached cart, since the requested quantity is derived
	// from the cached value.
	ErrUnknownLine = errors.New("line is not present in the cart")

	// ErrStoreClosed rejects operations on a torn-down store.
	ErrStoreClosed = errors.New("cart store is closed")
)

// CartSnapshot is an immutable view of the store's state for rendering.
type CartSnapshot struct {
	Items    []models.CartLineItem
	Subtotal int
	Currency string
	Loading  bool
	Err      string
}

// CartStore is the client-side mutation coordinator. It caches the
// last known-good cart, keeps a per-line busy set so two mutations
// never race on the same line, and replaces the whole cached cart with
// the engine's response after every call. It also plays the browser's
// role of remembering cookies the engine sets, so a rotated session
// token is carried into the next request.
type CartStore struct {
	client *CartClient

	mu        sync.Mutex
	cart      models.Cart
	loading   bool
	lastErr   string
	busy      map[string]struct{}
	cookies   map[string]string
	listeners map[int]func()
	nextID    int
	closed    bool
}

func NewCartStore(client *CartClient) *CartStore {
	return &CartStore{
		client:    client,
		busy:      make(map[string]struct{}),
		cookies:   make(map[string]string),
		listeners: make(map[int]func()),
	}
}

// Subscribe registers a callback invoked after every state change. The
// returned function unsubscribes it.
func (s *CartStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *CartStore) Snapshot() CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.CartLineItem, len(s.cart.Items))
	copy(items, s.cart.Items)
	return CartSnapshot{
		Items:    items,
		Subtotal: s.cart.Subtotal,
		Currency: s.cart.Currency,
		Loading:  s.loading,
		Err:      s.lastErr,
	}
}

func (s *CartStore) IsItemLoading(lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.busy[lineID]
	return busy
}

// Close tears the store down. Responses that arrive afterwards are
// dropped instead of being written into dead state.
func (s *CartStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.listeners = make(map[int]func())
	s.mu.Unlock()
}

// Fetch loads the whole cart from the engine and replaces the cached
// copy. On failure the previous cart stays available.
func (s *CartStore) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	s.loading = true
	cookie := s.cookieHeader()
	s.mu.Unlock()
	s.notify()

	cart, header, err := s.client.FetchCart(ctx, cookie)

	s.mu.Lock()
	s.loading = false
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.finish(cart, header, err, "failed to load cart")
	s.mu.Unlock()
	s.notify()
	return err
}

// AddItem is a cart-level mutation: the resulting line id is unknown
// before the call, so no per-line guard applies and duplicate adds are
// deliberately not deduplicated here. Merging them into one line is
// the engine's line identity contract.
func (s *CartStore) AddItem(ctx context.Context, product models.ProductInput, quantity int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	cookie := s.cookieHeader()
	s.mu.Unlock()

	cart, header, err := s.client.AddItem(ctx, product, quantity, cookie)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.finish(cart, header, err, "failed to add item to cart")
	s.mu.Unlock()
	s.notify()
	return err
}

// IncrementLine requests quantity+1 for the line. The cached quantity
// only determines the requested value; the stored result always comes
// from the engine's response.
func (s *CartStore) IncrementLine(ctx context.Context, lineID string) error {
	return s.mutateLine(ctx, lineID, "failed to update item", func(cookie string, current int) (*models.Cart, http.Header, error) {
		return s.client.UpdateLine(ctx, lineID, current+1, cookie)
	}, true)
}

// DecrementLine requests quantity-1; at quantity 1 that is a removal,
// expressed as an update to zero.
func (s *CartStore) DecrementLine(ctx context.Context, lineID string) error {
	return s.mutateLine(ctx, lineID, "failed to update item", func(cookie string, current int) (*models.Cart, http.Header, error) {
		quantity := current - 1
		if quantity < 0 {
			quantity = 0
		}
		return s.client.UpdateLine(ctx, lineID, quantity, cookie)
	}, true)
}

func (s *CartStore) RemoveLine(ctx context.Context, lineID string) error {
	return s.mutateLine(ctx, lineID, "failed to remove item", func(cookie string, current int) (*models.Cart, http.Header, error) {
		return s.client.RemoveLine(ctx, lineID, cookie)
	}, false)
}

func (s *CartStore) mutateLine(ctx context.Context, lineID, friendly string, call func(cookie string, current int) (*models.Cart, http.Header, error), needLine bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if _, busy := s.busy[lineID]; busy {
		s.mu.Unlock()
		return ErrLineBusy
	}
	current := 0
	if line, ok := s.cart.Line(lineID); ok {
		current = line.Quantity
	} else if needLine {
		s.mu.Unlock()
		return ErrUnknownLine
	}
	s.busy[lineID] = struct{}{}
	cookie := s.cookieHeader()
	s.mu.Unlock()
	s.notify()

	cart, header, err := call(cookie, current)

	s.mu.Lock()
	delete(s.busy, lineID)
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.finish(cart, header, err, friendly)
	s.mu.Unlock()
	s.notify()
	return err
}

// finish applies a completed call under the store lock: on success the
// whole cached cart is replaced, on failure the cart is left at its
// last known-good value and only the error message changes.
func (s *CartStore) finish(cart *models.Cart, header http.Header, err error, friendly string) {
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			s.lastErr = vErr.Message
		} else {
			s.lastErr = friendly
		}
		return
	}
	s.storeCookies(header)
	s.cart = *cart
	s.lastErr = ""
}

func (s *CartStore) storeCookies(header http.Header) {
	if header == nil {
		return
	}
	for _, cookie := range (&http.Response{Header: header}).Cookies() {
		if cookie.Name == "" {
			continue
		}
		if cookie.MaxAge < 0 {
			delete(s.cookies, cookie.Name)
			continue
		}
		s.cookies[cookie.Name] = cookie.Value
	}
}

func (s *CartStore) cookieHeader() string {
	if len(s.cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.cookies))
	for name := range s.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+s.cookies[name])
	}
	return strings.Join(pairs, "; ")
}

func (s *CartStore) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
