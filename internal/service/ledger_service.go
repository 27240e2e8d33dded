package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/metrics"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LedgerService is the only entry point for writes that change stock.
type LedgerService interface {
	PostTransaction(ctx context.Context, req TransactionRequest, actor model.Actor) error
	ReviseTransaction(ctx context.Context, id uuid.UUID, req TransactionRequest, actor model.Actor) (*model.TransactionResponse, error)
	RemoveTransaction(ctx context.Context, id uuid.UUID, actor model.Actor) error
	AdjustStock(ctx context.Context, productID uuid.UUID, req AdjustStockRequest, actor model.Actor) (*model.Product, error)
	Reconcile(ctx context.Context) ([]model.DriftReport, error)
}

// TransactionRequest is the body of POST and PUT /transactions.
type TransactionRequest struct {
	ProductID       string  `json:"product_id" validate:"required"`
	Kind            string  `json:"kind" validate:"required"`
	Quantity        int     `json:"quantity" validate:"gte=1,lte=2147483647"`
	TransactionDate string  `json:"transaction_date" validate:"required"`
	Note            *string `json:"note" validate:"omitempty,max=255"`
}

// AdjustStockRequest is the body of PUT /products/:id/stock.
type AdjustStockRequest struct {
	Stock           *int    `json:"stock" validate:"required,gte=0,lte=2147483647"`
	TransactionDate string  `json:"transaction_date"`
	Note            *string `json:"note" validate:"omitempty,max=255"`
}

// toEntry validates the request and converts it to a ledger entry. All field
// failures are reported together.
func (r TransactionRequest) toEntry() (model.Transaction, error) {
	fields := validateRequest(&r)

	kind, err := model.ParseKind(r.Kind)
	if err != nil && !fields.has("kind") {
		fields.merge(err)
	}
	var date time.Time
	if !fields.has("transaction_date") {
		if date, err = model.ParseDate(r.TransactionDate); err != nil {
			fields["transaction_date"] = "datetime=" + model.DateLayout
		}
	}
	var productID uuid.UUID
	if !fields.has("product_id") {
		if productID, err = uuid.Parse(r.ProductID); err != nil {
			fields["product_id"] = "uuid"
		}
	}
	if err := fields.err(); err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		ProductID:       productID,
		Kind:            kind,
		Quantity:        r.Quantity,
		TransactionDate: date,
		Note:            optionalNote(r.Note),
	}, nil
}

type ledgerService struct {
	ledger   repository.LedgerRepository
	products repository.ProductRepository
	cache    cache.Cache
	notifier events.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewLedgerService(
	ledger repository.LedgerRepository,
	products repository.ProductRepository,
	c cache.Cache,
	notifier events.Notifier,
	m *metrics.Metrics,
) LedgerService {
	return &ledgerService{
		ledger:   ledger,
		products: products,
		cache:    c,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *ledgerService) PostTransaction(ctx context.Context, req TransactionRequest, actor model.Actor) (err error) {
	ctx, span := startSpan(ctx, "ledger.post_transaction", actor)
	defer func() { endSpan(span, err) }()

	entry, err := req.toEntry()
	if err != nil {
		s.observe(ctx, kindLabel(req.Kind), err)
		return err
	}
	span.SetAttributes(
		attribute.String("product.id", entry.ProductID.String()),
		attribute.String("ledger.kind", string(entry.Kind)),
		attribute.Int("ledger.quantity", entry.Quantity),
	)
	entry.CreatedBy = actor.ID
	entry.UpdatedBy = actor.ID

	change, err := s.ledger.Post(ctx, &entry)
	s.observe(ctx, string(entry.Kind), err)
	if err != nil {
		return err
	}

	product, _ := change.Product(entry.ProductID)
	s.afterCommit(ctx, stockEvent(model.ActionTransactionCreated, product, &change.Entry, actor,
		fmt.Sprintf("%s recorded %s %d of '%s'", actor.Name, entry.Kind, entry.Quantity, product.Name)))
	return nil
}

func (s *ledgerService) ReviseTransaction(ctx context.Context, id uuid.UUID, req TransactionRequest, actor model.Actor) (_ *model.TransactionResponse, err error) {
	ctx, span := startSpan(ctx, "ledger.revise_transaction", actor, attribute.String("transaction.id", id.String()))
	defer func() { endSpan(span, err) }()

	next, err := req.toEntry()
	if err != nil {
		s.observe(ctx, "revise", err)
		return nil, err
	}
	next.UpdatedBy = actor.ID

	change, err := s.ledger.Revise(ctx, id, next)
	s.observe(ctx, "revise", err)
	if err != nil {
		return nil, err
	}

	var evts []model.StockEvent
	for _, p := range change.Products {
		evts = append(evts, stockEvent(model.ActionTransactionRevised, p, &change.Entry, actor,
			fmt.Sprintf("%s revised a transaction of '%s'", actor.Name, p.Name)))
	}
	s.afterCommit(ctx, evts...)

	resp := change.Entry.ToResponse()
	if p, ok := change.Product(change.Entry.ProductID); ok {
		resp.ProductName = p.Name
		resp.SKU = p.SKU
		resp.RackLocation = p.RackLocation
		resp.Stock = &p.Stock
	}
	return &resp, nil
}

func (s *ledgerService) RemoveTransaction(ctx context.Context, id uuid.UUID, actor model.Actor) (err error) {
	ctx, span := startSpan(ctx, "ledger.remove_transaction", actor, attribute.String("transaction.id", id.String()))
	defer func() { endSpan(span, err) }()

	change, err := s.ledger.Remove(ctx, id, actor.ID)
	s.observe(ctx, "remove", err)
	if err != nil {
		return err
	}

	product, _ := change.Product(change.Entry.ProductID)
	s.afterCommit(ctx, stockEvent(model.ActionTransactionRemoved, product, &change.Entry, actor,
		fmt.Sprintf("%s removed %s %d of '%s'", actor.Name, change.Entry.Kind, change.Entry.Quantity, product.Name)))
	return nil
}

// AdjustStock posts the in or out movement that brings the product to the
// requested stock.
func (s *ledgerService) AdjustStock(ctx context.Context, productID uuid.UUID, req AdjustStockRequest, actor model.Actor) (_ *model.Product, err error) {
	ctx, span := startSpan(ctx, "ledger.adjust_stock", actor, attribute.String("product.id", productID.String()))
	defer func() { endSpan(span, err) }()

	fields := validateRequest(&req)
	date := s.now().UTC().Truncate(24 * time.Hour)
	if req.TransactionDate != "" {
		if date, err = model.ParseDate(req.TransactionDate); err != nil {
			fields["transaction_date"] = "datetime=" + model.DateLayout
		}
	}
	if err := fields.err(); err != nil {
		s.observe(ctx, "adjust", err)
		return nil, err
	}

	note := optionalNote(req.Note)
	if note == nil {
		n := "stock adjustment"
		note = &n
	}

	change, err := s.ledger.AdjustTo(ctx, productID, *req.Stock, date, note, actor.ID)
	s.observe(ctx, "adjust", err)
	if err != nil {
		return nil, err
	}

	product, _ := change.Product(productID)
	if change.Posted() {
		s.afterCommit(ctx, stockEvent(model.ActionStockAdjusted, product, &change.Entry, actor,
			fmt.Sprintf("%s adjusted stock of '%s' to %d", actor.Name, product.Name, product.Stock)))
	}
	return &product, nil
}

// Reconcile reports products whose stock disagrees with their ledger and
// exports the count as a gauge.
func (s *ledgerService) Reconcile(ctx context.Context) (_ []model.DriftReport, err error) {
	ctx, span := startSpan(ctx, "ledger.reconcile", model.SystemActor)
	defer func() { endSpan(span, err) }()

	reports, err := s.products.Drifting(ctx)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Reconciliation failed")
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DriftProducts.Set(float64(len(reports)))
	}
	span.SetAttributes(attribute.Int("ledger.drift_products", len(reports)))

	for _, r := range reports {
		logger.Warn(ctx).
			Str("product_id", r.ProductID.String()).
			Str("sku", r.SKU).
			Int("stock", r.Stock).
			Int64("derived_total", r.DerivedTotal).
			Int64("drift", r.Drift).
			Msg("Stock drift detected")
	}
	return reports, nil
}

// afterCommit runs the side effects of a committed write.
func (s *ledgerService) afterCommit(ctx context.Context, evts ...model.StockEvent) {
	s.cache.Invalidate(ctx)
	for _, e := range evts {
		s.notifier.Notify(ctx, e)
	}
}

func (s *ledgerService) observe(ctx context.Context, kind string, err error) {
	outcome := postingOutcome(err)
	if s.metrics != nil {
		s.metrics.ObservePosting(kind, outcome)
	}

	switch outcome {
	case metrics.OutcomeCommitted:
		logger.Info(ctx).Str("operation", kind).Msg("Ledger write committed")
	case metrics.OutcomeInsufficient, metrics.OutcomeRejected:
		logger.Info(ctx).Str("operation", kind).Str("reason", err.Error()).Msg("Ledger write rejected")
	case metrics.OutcomeConflict:
		logger.Warn(ctx).Err(err).Str("operation", kind).Msg("Ledger write gave up after retries")
	default:
		logger.Error(ctx).Err(err).Str("operation", kind).Msg("Ledger write failed")
	}
}

func postingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCommitted
	case errors.Is(err, model.ErrInsufficientStock):
		return metrics.OutcomeInsufficient
	case errors.Is(err, model.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrNotFound):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}

// kindLabel keeps metric label cardinality bounded for unparsable kinds.
func kindLabel(raw string) string {
	if kind, err := model.ParseKind(raw); err == nil {
		return string(kind)
	}
	return "invalid"
}

func stockEvent(action string, p model.Product, entry *model.Transaction, actor model.Actor, msg string) model.StockEvent {
	e := model.StockEvent{
		Type:        model.EventTypeStockUpdate,
		Action:      action,
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		NewStock:    p.Stock,
		User:        actor,
		Message:     msg,
		OccurredAt:  time.Now().UTC(),
	}
	if entry != nil && entry.ID != uuid.Nil {
		id, kind := entry.ID, entry.Kind
		e.TransactionID = &id
		e.Kind = &kind
		e.Quantity = entry.Quantity
	}
	return e
}

func startSpan(ctx context.Context, name string, actor model.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("user.id", actor.ID))
	return otel.Tracer("stock-ledger").Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
