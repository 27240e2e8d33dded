package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	LockPessimistic = "pessimistic"
	LockOptimistic  = "optimistic"
)

// errStale marks an optimistic write that lost a race. The whole unit is
// rolled back and re-run.
var errStale = errors.New("stale read")

// LedgerRepository is the single write path for stock. Every method runs as
// one database transaction that either commits the entry and the stock
// counter together or changes nothing.
type LedgerRepository interface {
	Post(ctx context.Context, entry *model.Transaction) (*LedgerChange, error)
	Revise(ctx context.Context, id uuid.UUID, next model.Transaction) (*LedgerChange, error)
	Remove(ctx context.Context, id uuid.UUID, actor string) (*LedgerChange, error)
	AdjustTo(ctx context.Context, productID uuid.UUID, target int, date time.Time, note *string, actor string) (*LedgerChange, error)
}

// LedgerChange describes a committed ledger write.
type LedgerChange struct {
	// Entry is the entry as written, or as it was before removal.
	Entry model.Transaction
	// Previous holds the pre-revision entry for Revise.
	Previous *model.Transaction
	// Products are the affected products with their new stock, ordered by id.
	Products []model.Product
}

// Posted reports whether an entry was written. AdjustTo to the current stock
// writes nothing.
func (c *LedgerChange) Posted() bool {
	return c.Entry.ID != uuid.Nil
}

// Product returns the affected product with the given id.
func (c *LedgerChange) Product(id uuid.UUID) (model.Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

type LedgerOptions struct {
	Mode       string
	MaxRetries int
	// OnRetry is called before each optimistic retry.
	OnRetry func()
}

type ledgerRepo struct {
	db   *gorm.DB
	opts LedgerOptions
}

func NewLedgerRepo(db *gorm.DB, opts LedgerOptions) LedgerRepository {
	if opts.Mode != LockOptimistic {
		opts.Mode = LockPessimistic
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.OnRetry == nil {
		opts.OnRetry = func() {}
	}
	return &ledgerRepo{db: db, opts: opts}
}

func (r *ledgerRepo) Post(ctx context.Context, entry *model.Transaction) (*LedgerChange, error) {
	return r.run(ctx, entry.CreatedBy, func(u *unit, change *LedgerChange) error {
		p, err := u.product(entry.ProductID)
		if err != nil {
			return err
		}
		next, err := model.ApplyMovement(p.Stock, entry.Kind, entry.Quantity)
		if err != nil {
			return err
		}
		if err := u.tx.Create(entry).Error; err != nil {
			return err
		}
		p.Stock = next
		change.Entry = *entry
		return nil
	})
}

// Revise replaces an entry's product, kind, quantity, date and note. The old
// movement is reversed and the new one applied in the same unit, so only the
// final stock of each affected product has to be non-negative.
func (r *ledgerRepo) Revise(ctx context.Context, id uuid.UUID, next model.Transaction) (*LedgerChange, error) {
	return r.run(ctx, next.UpdatedBy, func(u *unit, change *LedgerChange) error {
		old, err := u.entry(id)
		if err != nil {
			return err
		}
		if err := u.lock(old.ProductID, next.ProductID); err != nil {
			return err
		}

		deltas := map[uuid.UUID]int{}
		deltas[old.ProductID] -= model.Delta(old.Kind, old.Quantity)
		deltas[next.ProductID] += model.Delta(next.Kind, next.Quantity)
		for _, pid := range u.order {
			if d, ok := deltas[pid]; ok {
				if err := u.shift(pid, d); err != nil {
					return err
				}
			}
		}

		updated := *old
		updated.ProductID = next.ProductID
		updated.Kind = next.Kind
		updated.Quantity = next.Quantity
		updated.TransactionDate = next.TransactionDate
		updated.Note = next.Note
		updated.UpdatedBy = next.UpdatedBy
		if err := u.updateEntry(old, &updated); err != nil {
			return err
		}

		change.Previous = old
		change.Entry = updated
		return nil
	})
}

// Remove deletes an entry and reverses its movement. Removing an inbound
// entry whose units have already left fails with ErrInsufficientStock.
func (r *ledgerRepo) Remove(ctx context.Context, id uuid.UUID, actor string) (*LedgerChange, error) {
	return r.run(ctx, actor, func(u *unit, change *LedgerChange) error {
		old, err := u.entry(id)
		if err != nil {
			return err
		}
		p, err := u.product(old.ProductID)
		if err != nil {
			return err
		}
		next, err := model.ReverseMovement(p.Stock, old.Kind, old.Quantity)
		if err != nil {
			return err
		}
		if err := u.deleteEntry(old); err != nil {
			return err
		}
		p.Stock = next
		change.Entry = *old
		return nil
	})
}

// AdjustTo brings a product's stock to target by posting the correcting
// movement. Nothing is written when stock already equals target.
func (r *ledgerRepo) AdjustTo(ctx context.Context, productID uuid.UUID, target int, date time.Time, note *string, actor string) (*LedgerChange, error) {
	return r.run(ctx, actor, func(u *unit, change *LedgerChange) error {
		p, err := u.product(productID)
		if err != nil {
			return err
		}
		kind, quantity, ok := model.CorrectionFor(p.Stock, target)
		if !ok {
			return nil
		}
		next, err := model.ApplyMovement(p.Stock, kind, quantity)
		if err != nil {
			return err
		}

		entry := model.Transaction{
			BaseModel:       model.BaseModel{CreatedBy: actor, UpdatedBy: actor},
			ProductID:       productID,
			Kind:            kind,
			Quantity:        quantity,
			TransactionDate: date,
			Note:            note,
		}
		if err := u.tx.Create(&entry).Error; err != nil {
			return err
		}
		p.Stock = next
		change.Entry = entry
		return nil
	})
}

// run executes fn in a database transaction and writes back any stock fn
// changed. In optimistic mode a lost race rolls back and re-runs fn up to
// MaxRetries times before failing with ErrConflict.
func (r *ledgerRepo) run(ctx context.Context, actor string, fn func(u *unit, change *LedgerChange) error) (*LedgerChange, error) {
	for attempt := 0; ; attempt++ {
		change := &LedgerChange{}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			u := &unit{
				tx:       tx,
				mode:     r.opts.Mode,
				actor:    actor,
				products: map[uuid.UUID]*model.Product{},
				before:   map[uuid.UUID]int{},
			}
			if err := fn(u, change); err != nil {
				return err
			}
			if err := u.flush(); err != nil {
				return err
			}
			change.Products = u.snapshot()
			return nil
		})
		if err == nil {
			return change, nil
		}
		if !errors.Is(err, errStale) {
			return nil, translate(err, "product")
		}
		if attempt >= r.opts.MaxRetries {
			return nil, fmt.Errorf("%w: stock changed concurrently on %d attempts", model.ErrConflict, attempt+1)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.opts.OnRetry()
	}
}

// unit is the state of one ledger transaction attempt.
type unit struct {
	tx       *gorm.DB
	mode     string
	actor    string
	products map[uuid.UUID]*model.Product
	before   map[uuid.UUID]int
	order    []uuid.UUID
}

func (u *unit) optimistic() bool {
	return u.mode == LockOptimistic
}

// lock loads the given products. In pessimistic mode rows are locked with
// SELECT ... FOR UPDATE in id order so concurrent units cannot deadlock.
func (u *unit) lock(ids ...uuid.UUID) error {
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := u.products[id]; !ok && !containsID(missing, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sortIDs(missing)

	q := u.tx
	if !u.optimistic() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []model.Product
	if err := q.Where("id IN ?", missing).Order("id").Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) != len(missing) {
		return fmt.Errorf("%w: product", model.ErrNotFound)
	}

	for i := range rows {
		p := rows[i]
		u.products[p.ID] = &p
		u.before[p.ID] = p.Stock
		u.order = append(u.order, p.ID)
	}
	sortIDs(u.order)
	return nil
}

func (u *unit) product(id uuid.UUID) (*model.Product, error) {
	if err := u.lock(id); err != nil {
		return nil, err
	}
	return u.products[id], nil
}

// shift moves a loaded product's stock by delta.
func (u *unit) shift(id uuid.UUID, delta int) error {
	p := u.products[id]
	next := p.Stock + delta
	if next > model.MaxStock {
		return model.InvalidField("quantity", fmt.Sprintf("stock of %s would exceed %d", p.SKU, model.MaxStock))
	}
	if next < 0 {
		return fmt.Errorf("%w: %s has %d on hand, change needs %d", model.ErrInsufficientStock, p.SKU, p.Stock, -delta)
	}
	p.Stock = next
	return nil
}

func (u *unit) entry(id uuid.UUID) (*model.Transaction, error) {
	q := u.tx
	if !u.optimistic() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var entry model.Transaction
	if err := q.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: transaction", model.ErrNotFound)
		}
		return nil, err
	}
	return &entry, nil
}

// guard scopes a write to the entry as it was read. In optimistic mode a
// concurrent revision makes the write match zero rows.
func (u *unit) guard(q *gorm.DB, old *model.Transaction) *gorm.DB {
	q = q.Where("id = ?", old.ID)
	if u.optimistic() {
		q = q.Where("product_id = ? AND kind = ? AND quantity = ?", old.ProductID, old.Kind, old.Quantity)
	}
	return q
}

func (u *unit) updateEntry(old, updated *model.Transaction) error {
	res := u.guard(u.tx.Model(&model.Transaction{}), old).Updates(map[string]interface{}{
		"product_id":       updated.ProductID,
		"kind":             updated.Kind,
		"quantity":         updated.Quantity,
		"transaction_date": updated.TransactionDate,
		"note":             updated.Note,
		"updated_by":       updated.UpdatedBy,
	})
	return u.checkWrite(res, "transaction")
}

func (u *unit) deleteEntry(old *model.Transaction) error {
	res := u.guard(u.tx, old).Delete(&model.Transaction{})
	return u.checkWrite(res, "transaction")
}

// flush writes every changed stock counter. Optimistic writes are
// compare-and-set on the stock value read earlier in the unit.
func (u *unit) flush() error {
	for _, id := range u.order {
		p := u.products[id]
		if p.Stock == u.before[id] {
			continue
		}
		q := u.tx.Model(&model.Product{}).Where("id = ?", id)
		if u.optimistic() {
			q = q.Where("stock = ?", u.before[id])
		}
		res := q.Updates(map[string]interface{}{
			"stock":      p.Stock,
			"updated_by": u.actor,
		})
		if err := u.checkWrite(res, "product"); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) checkWrite(res *gorm.DB, what string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if u.optimistic() {
			return errStale
		}
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	}
	return nil
}

func (u *unit) snapshot() []model.Product {
	out := make([]model.Product, 0, len(u.order))
	for _, id := range u.order {
		out = append(out, *u.products[id])
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
