package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
)

// ── In-memory store backing the product, transaction and ledger stubs ───────

type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
	entries  map[uuid.UUID]*model.Transaction
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]*model.Product),
		entries:  make(map[uuid.UUID]*model.Transaction),
	}
}

func (s *memStore) seed(name, sku string, opening int) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Product{Name: name, SKU: sku, OpeningStock: opening, Stock: opening}
	p.ID = uuid.New()
	s.products[p.ID] = p
	return p
}

func (s *memStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) product(id uuid.UUID) (*model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product", model.ErrNotFound)
	}
	return p, nil
}

func (s *memStore) change(entry model.Transaction, ids ...uuid.UUID) *repository.LedgerChange {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	c := &repository.LedgerChange{Entry: entry}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			c.Products = append(c.Products, *s.products[id])
		}
	}
	return c
}

// ── LedgerRepository ─────────────────────────────────────────────────────────

type stubLedger struct{ *memStore }

func (l stubLedger) Post(_ context.Context, entry *model.Transaction) (*repository.LedgerChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	p, err := l.product(entry.ProductID)
	if err != nil {
		return nil, err
	}
	next, err := model.ApplyMovement(p.Stock, entry.Kind, entry.Quantity)
	if err != nil {
		return nil, err
	}
	entry.ID = uuid.New()
	stored := *entry
	l.entries[entry.ID] = &stored
	p.Stock = next
	return l.change(stored, p.ID), nil
}

func (l stubLedger) Revise(_ context.Context, id uuid.UUID, next model.Transaction) (*repository.LedgerChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	old, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction", model.ErrNotFound)
	}
	from, err := l.product(old.ProductID)
	if err != nil {
		return nil, err
	}
	to, err := l.product(next.ProductID)
	if err != nil {
		return nil, err
	}

	fromStock := from.Stock - model.Delta(old.Kind, old.Quantity)
	toStock := to.Stock
	if from.ID == to.ID {
		toStock = fromStock
	}
	toStock += model.Delta(next.Kind, next.Quantity)
	if fromStock < 0 || toStock < 0 {
		return nil, fmt.Errorf("%w: revision", model.ErrInsufficientStock)
	}
	from.Stock = fromStock
	to.Stock = toStock

	previous := *old
	old.ProductID, old.Kind, old.Quantity = next.ProductID, next.Kind, next.Quantity
	old.TransactionDate, old.Note = next.TransactionDate, next.Note
	c := l.change(*old, from.ID, to.ID)
	c.Previous = &previous
	return c, nil
}

func (l stubLedger) Remove(_ context.Context, id uuid.UUID, _ string) (*repository.LedgerChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	old, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction", model.ErrNotFound)
	}
	p, err := l.product(old.ProductID)
	if err != nil {
		return nil, err
	}
	next, err := model.ReverseMovement(p.Stock, old.Kind, old.Quantity)
	if err != nil {
		return nil, err
	}
	delete(l.entries, id)
	p.Stock = next
	return l.change(*old, p.ID), nil
}

func (l stubLedger) AdjustTo(_ context.Context, productID uuid.UUID, target int, date time.Time, note *string, actor string) (*repository.LedgerChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := l.product(productID)
	if err != nil {
		return nil, err
	}
	kind, qty, ok := model.CorrectionFor(p.Stock, target)
	if !ok {
		return l.change(model.Transaction{}, p.ID), nil
	}
	entry := model.Transaction{ProductID: productID, Kind: kind, Quantity: qty, TransactionDate: date, Note: note}
	entry.ID = uuid.New()
	entry.CreatedBy = actor
	l.entries[entry.ID] = &entry
	p.Stock = target
	return l.change(entry, p.ID), nil
}

// ── ProductRepository ────────────────────────────────────────────────────────

type stubProducts struct{ *memStore }

func (r stubProducts) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	stored := *p
	r.products[p.ID] = &stored
	return nil
}

func (r stubProducts) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.product(id)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (r stubProducts) SKUTaken(_ context.Context, sku string, exceptID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r stubProducts) UpdateDetails(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.product(p.ID)
	if err != nil {
		return err
	}
	stored.Name, stored.SKU, stored.RackLocation = p.Name, p.SKU, p.RackLocation
	return nil
}

func (r stubProducts) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.product(id); err != nil {
		return err
	}
	delete(r.products, id)
	for tid, e := range r.entries {
		if e.ProductID == id {
			delete(r.entries, tid)
		}
	}
	return nil
}

func (r stubProducts) derived(p *model.Product) model.DerivedTotals {
	d := model.DerivedTotals{ID: p.ID, Name: p.Name, SKU: p.SKU, OpeningStock: p.OpeningStock, Stock: p.Stock}
	for _, e := range r.entries {
		if e.ProductID != p.ID {
			continue
		}
		if e.Kind == model.TxIn {
			d.TotalIn += int64(e.Quantity)
		} else {
			d.TotalOut += int64(e.Quantity)
		}
	}
	d.Derive()
	return d
}

func (r stubProducts) ListDerived(_ context.Context, q model.ListQuery) ([]model.DerivedTotals, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DerivedTotals
	for _, p := range r.products {
		if q.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			out = append(out, r.derived(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r stubProducts) FindDerived(_ context.Context, id uuid.UUID) (*model.DerivedTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.product(id)
	if err != nil {
		return nil, err
	}
	d := r.derived(p)
	d.DerivedTotal = 0 // the SQL computes it; make sure the service derives it
	return &d, nil
}

func (r stubProducts) Options(context.Context) ([]model.ProductOption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.ProductOption{}
	for _, p := range r.products {
		out = append(out, model.ProductOption{ID: p.ID, Name: p.Name, SKU: p.SKU, Stock: p.Stock})
	}
	return out, nil
}

func (r stubProducts) StockSnapshot(context.Context) ([]model.StockSlice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.StockSlice{}
	for _, p := range r.products {
		if p.Stock > 0 {
			out = append(out, model.StockSlice{Name: p.Name, Stock: p.Stock})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r stubProducts) Drifting(context.Context) ([]model.DriftReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []model.DriftReport
	for _, p := range r.products {
		d := r.derived(p)
		if d.Drift() != 0 {
			out = append(out, model.DriftReport{ProductID: p.ID, SKU: p.SKU, Name: p.Name, Stock: p.Stock, DerivedTotal: d.DerivedTotal, Drift: d.Drift()})
		}
	}
	return out, nil
}

// ── TransactionRepository ────────────────────────────────────────────────────

type stubTransactions struct {
	*memStore
	lastQuery model.TransactionQuery
	daily     []model.DailyKindTotal
	calls     int
}

func (r *stubTransactions) FindByID(_ context.Context, id uuid.UUID) (*model.TransactionView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction", model.ErrNotFound)
	}
	p := r.products[e.ProductID]
	return &model.TransactionView{ID: e.ID, ProductID: e.ProductID, Kind: e.Kind, Quantity: e.Quantity,
		TransactionDate: e.TransactionDate, ProductName: p.Name, SKU: p.SKU, Stock: p.Stock}, nil
}

func (r *stubTransactions) List(_ context.Context, q model.TransactionQuery) ([]model.TransactionView, int64, error) {
	r.lastQuery = q
	return []model.TransactionView{}, 0, nil
}

func (r *stubTransactions) DailyTotals(context.Context, *time.Time, *time.Time) ([]model.DailyKindTotal, error) {
	r.calls++
	return r.daily, nil
}

// ── UserRepository ───────────────────────────────────────────────────────────

type stubUsers struct {
	users map[uuid.UUID]*model.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user", model.ErrNotFound)
}

func (r *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user", model.ErrNotFound)
	}
	return u, nil
}

func (r *stubUsers) EmailTaken(_ context.Context, email string, exceptID uuid.UUID) (bool, error) {
	for _, u := range r.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUsers) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUsers) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("%w: user", model.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *stubUsers) List(_ context.Context, q model.ListQuery) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

// ── Cache and notifier ───────────────────────────────────────────────────────

type countingCache struct {
	entries       map[string][]byte
	invalidations int
}

func (c *countingCache) Generation(context.Context) (int64, bool) {
	return int64(c.invalidations), true
}

func newCountingCache() *countingCache {
	return &countingCache{entries: map[string][]byte{}}
}

func (c *countingCache) GetJSON(_ context.Context, key string, dest interface{}) bool {
	raw, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *countingCache) SetJSON(_ context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err == nil {
		c.entries[key] = raw
	}
}

func (c *countingCache) Invalidate(context.Context) {
	c.invalidations++
	c.entries = map[string][]byte{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.StockEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e model.StockEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
