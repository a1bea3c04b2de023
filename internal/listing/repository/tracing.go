package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

var tracer = otel.Tracer("listing-repository")

// TracedProductRepository wraps a ProductRepository with tracing
type TracedProductRepository struct {
	next domain.ProductRepository
}

// NewTracedProductRepository creates a new repository with tracing
func NewTracedProductRepository(next domain.ProductRepository) *TracedProductRepository {
	return &TracedProductRepository{next: next}
}

// Append with tracing
func (r *TracedProductRepository) Append(ctx context.Context, product domain.Product) (uint64, error) {
	ctx, span := tracer.Start(ctx, "repository.Append",
		trace.WithAttributes(
			attribute.String("product.owner", string(product.Owner)),
			attribute.String("product.name", product.Name),
			attribute.Int64("product.price", product.Price),
		),
	)
	defer span.End()

	index, err := r.next.Append(ctx, product)
	if err != nil {
		recordError(span, err)
		return 0, err
	}

	span.SetAttributes(attribute.Int64("product.index", int64(index)))
	return index, nil
}

// FindByIndex with tracing
func (r *TracedProductRepository) FindByIndex(ctx context.Context, index uint64) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByIndex",
		trace.WithAttributes(
			attribute.Int64("product.index", int64(index)),
		),
	)
	defer span.End()

	product, err := r.next.FindByIndex(ctx, index)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("product.owner", string(product.Owner)),
		attribute.Int64("product.sold_count", int64(product.SoldCount)),
	)
	return product, nil
}

// Update with tracing
func (r *TracedProductRepository) Update(ctx context.Context, product *domain.Product) error {
	ctx, span := tracer.Start(ctx, "repository.Update",
		trace.WithAttributes(
			attribute.Int64("product.index", int64(product.Index)),
			attribute.String("product.name", product.Name),
			attribute.Int64("product.price", product.Price),
			attribute.Int64("product.sold_count", int64(product.SoldCount)),
		),
	)
	defer span.End()

	if err := r.next.Update(ctx, product); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// Tombstone with tracing
func (r *TracedProductRepository) Tombstone(ctx context.Context, index uint64) error {
	ctx, span := tracer.Start(ctx, "repository.Tombstone",
		trace.WithAttributes(
			attribute.Int64("product.index", int64(index)),
		),
	)
	defer span.End()

	if err := r.next.Tombstone(ctx, index); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// FindAll with tracing
func (r *TracedProductRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "repository.FindAll",
		trace.WithAttributes(
			attribute.Int("query.limit", limit),
			attribute.Int("query.offset", offset),
		),
	)
	defer span.End()

	products, err := r.next.FindAll(ctx, limit, offset)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(products)))
	return products, nil
}

func (r *TracedProductRepository) NextIndex(ctx context.Context) uint64 {
	return r.next.NextIndex(ctx)
}

func (r *TracedProductRepository) LiveCount(ctx context.Context) uint64 {
	return r.next.LiveCount(ctx)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
