package billing

import (
	"context"

	"github.com/google/uuid"
)

type ItemRepository interface {
	Create(ctx context.Context, it *Item) error
	Get(ctx context.Context, id uuid.UUID) (*Item, error)
	// GetMany returns the items found among ids, keyed by id. Missing ids
	// are simply absent from the map.
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Item, error)
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Item, int, error)
	Search(ctx context.Context, name string, limit, offset int) ([]*Item, int, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f InvoiceFilter, limit, offset int) ([]*Invoice, int, error)
}
